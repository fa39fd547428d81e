// Package binder merges a caller-supplied credential set into a skeleton
// artifact. Binding is all-or-nothing and idempotent.
package binder

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"

	"github.com/Abzali8806/Cue-MVP-api/pkg/models"
	"github.com/Abzali8806/Cue-MVP-api/pkg/synth"
)

// MissingError reports placeholders with no matching key in the credential
// set. No artifact is produced: partial binding is never committed.
type MissingError struct {
	Missing []string // sorted placeholder names
}

func (e *MissingError) Error() string {
	return fmt.Sprintf("missing credentials for placeholders: %s", strings.Join(e.Missing, ", "))
}

// Result is a successful binding: the substituted source and the fingerprint
// of the exact (skeleton version, credential set) input pair.
type Result struct {
	Source      string
	Fingerprint string
}

type Binder struct{}

func New() *Binder { return &Binder{} }

// Bind substitutes every placeholder in the skeleton. If any placeholder is
// unmatched it returns a MissingError listing all of them; otherwise the
// returned source contains no placeholder tokens.
func (b *Binder) Bind(skeleton models.Artifact, creds models.CredentialSet) (Result, error) {
	var missing []string
	for _, name := range skeleton.Placeholders {
		if _, ok := creds[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return Result{}, &MissingError{Missing: missing}
	}

	// Longer names first: a placeholder that prefixes another must not
	// clobber it during substitution.
	names := append([]string(nil), skeleton.Placeholders...)
	sort.Slice(names, func(i, j int) bool { return len(names[i]) > len(names[j]) })
	source := skeleton.Source
	for _, name := range names {
		source = strings.ReplaceAll(source, synth.Token+name, creds[name])
	}

	return Result{
		Source:      source,
		Fingerprint: Fingerprint(skeleton.Version, skeleton.Placeholders, creds),
	}, nil
}

// Fingerprint hashes the skeleton version together with the credential pairs
// actually consumed, in sorted order. Re-binding the same set against the
// same skeleton version therefore yields the same fingerprint, which is how
// the orchestrator detects an idempotent resubmission.
func Fingerprint(skeletonVersion int, placeholders []string, creds models.CredentialSet) string {
	h := sha256.New()
	fmt.Fprintf(h, "v%d\n", skeletonVersion)
	names := append([]string(nil), placeholders...)
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(h, "%s=%s\n", name, creds[name])
	}
	return hex.EncodeToString(h.Sum(nil))
}
