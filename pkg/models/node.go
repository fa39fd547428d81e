package models

// NodePosition is a canvas coordinate for frontend visualization.
type NodePosition struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Node is one element of the workflow visualization graph returned to the
// frontend alongside a generated skeleton.
type Node struct {
	ID       string       `json:"id"`
	Type     string       `json:"type"`
	Label    string       `json:"label"`
	Position NodePosition `json:"position"`
}
