package types

// Notification is the realtime message pushed to connected clients when a
// photo lands in an album.
type Notification struct {
	Action   string `json:"action"`
	ImageURL string `json:"imageUrl"`
}
