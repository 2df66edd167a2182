// Package store is the relational collaborator: photo rows and album photo
// counters. The ingestion bridge only ever calls AddPhoto, which is one
// atomic unit, so the counter can never drift from the rows under concurrent
// ingestion.
package store

import (
	"context"
	"errors"
	"time"
)

var ErrAlbumNotFound = errors.New("album not found")

type Album struct {
	ID         string
	Name       string
	PhotoCount int
	CreatedAt  time.Time
}

type Photo struct {
	ID        string
	AlbumID   string
	URL       string
	Caption   string
	CreatedAt time.Time
}

// Store is what the ingestion bridge and the control API persist through.
type Store interface {
	// AddPhoto creates a photo row referencing albumID and increments the
	// album's photo counter by exactly one, in a single transaction.
	// Returns ErrAlbumNotFound when the album vanished concurrently; in
	// that case nothing is written.
	AddPhoto(ctx context.Context, albumID, url, caption string) (Photo, error)

	CreateAlbum(ctx context.Context, id, name string) (Album, error)
	Album(ctx context.Context, id string) (Album, error)
	Photos(ctx context.Context, albumID string) ([]Photo, error)

	Close() error
}
