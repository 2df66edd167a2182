package types

// IngestResult is the outcome of one validate -> upload -> persist unit.
// Consumed by the realtime notifier, never stored beyond the photo row.
type IngestResult struct {
	LocalPath string
	RemoteURL string
	AlbumID   string
}
