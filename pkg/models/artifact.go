package models

import "time"

type ArtifactKind string

const (
	SkeletonArtifactKind     ArtifactKind = "SKELETON"
	CredentialedArtifactKind ArtifactKind = "CREDENTIALED"
)

// Artifact is an immutable, versioned source-code document belonging to
// exactly one workflow. A pipeline stage never rewrites an artifact; it
// produces a new version.
type Artifact struct {
	WorkflowID   string       `json:"workflow_id" db:"workflow_id"`
	Version      int          `json:"version" db:"version"`
	Kind         ArtifactKind `json:"kind" db:"kind"`
	Source       string       `json:"source" db:"source"`
	Placeholders []string     `json:"placeholders" db:"-"` // unresolved placeholder names, sorted
	Fingerprint  string       `json:"-" db:"fingerprint"`  // binding input fingerprint, CREDENTIALED only
	CreatedAt    time.Time    `json:"created_at" db:"created_at"`
}
