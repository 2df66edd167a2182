// Package upload is the cloud image store collaborator.
package upload

import "context"

// Uploader pushes one local file to remote storage and returns its URL.
// Implementations must respect ctx; the bridge always passes a deadline.
type Uploader interface {
	Upload(ctx context.Context, localPath, mimeType string) (string, error)
}
