// README: Common value objects shared across modules.
package types

// ID is an opaque identifier. Rider IDs are the tag token read from a card.
type ID string

// Point is a coordinate pair in decimal degrees.
type Point struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}
