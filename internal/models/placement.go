package models

// DefaultSize is used when a request names no size.
const DefaultSize = 5

// Placement is a parsed chat request: what to draw, and where.
type Placement struct {
	Label string `json:"label"`
	X     int    `json:"x"`
	Y     int    `json:"y"`
	Size  int    `json:"size"`
}
