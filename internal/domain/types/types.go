// Package types contains the display shapes shared by the HTTP and CLI layers.
package types

// Slot is one rank input with its derived label.
type Slot struct {
	ID    int    `json:"id"`
	Value string `json:"value"`
	Label string `json:"label"`
}

// Display is everything the page shows after a change.
type Display struct {
	Total   int    `json:"total"`
	Slots   []Slot `json:"slots"`
	Records string `json:"records"`
	Link    string `json:"link"`
}

// Welcome is the personalized greeting for a signed-in player.
type Welcome struct {
	DisplayName string `json:"display_name"`
	Message     string `json:"message"`
}
