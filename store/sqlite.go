package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/ayato-h/albumdrop/tool"
)

const schema = `
CREATE TABLE IF NOT EXISTS albums (
	id          TEXT PRIMARY KEY,
	name        TEXT NOT NULL,
	photo_count INTEGER NOT NULL DEFAULT 0,
	created_at  TIMESTAMP NOT NULL
);
CREATE TABLE IF NOT EXISTS photos (
	id         TEXT PRIMARY KEY,
	album_id   TEXT NOT NULL REFERENCES albums(id),
	url        TEXT NOT NULL,
	caption    TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_photos_album ON photos(album_id);
`

// SQLite implements Store on a local sqlite file.
type SQLite struct {
	db *sql.DB
}

var _ Store = (*SQLite)(nil)

// OpenSQLite opens (and migrates) the database at path.
func OpenSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?_busy_timeout=5000&_fk=1", path))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// sqlite allows one writer at a time; a single conn sidesteps SQLITE_BUSY
	// races between the ingest goroutines.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to migrate schema: %w", err)
	}

	tool.DefaultLogger.Infof("[Store] SQLite open at %s", path)
	return &SQLite{db: db}, nil
}

func (s *SQLite) AddPhoto(ctx context.Context, albumID, url, caption string) (Photo, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Photo{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	// The counter bump doubles as the existence check: zero rows affected
	// means the album is gone and the whole unit fails.
	res, err := tx.ExecContext(ctx, `UPDATE albums SET photo_count = photo_count + 1 WHERE id = ?`, albumID)
	if err != nil {
		return Photo{}, fmt.Errorf("failed to increment photo count: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return Photo{}, fmt.Errorf("failed to check increment: %w", err)
	}
	if affected == 0 {
		return Photo{}, ErrAlbumNotFound
	}

	photo := Photo{
		ID:        tool.GenerateRandomUUID(),
		AlbumID:   albumID,
		URL:       url,
		Caption:   caption,
		CreatedAt: time.Now().UTC(),
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO photos (id, album_id, url, caption, created_at) VALUES (?, ?, ?, ?, ?)`,
		photo.ID, photo.AlbumID, photo.URL, photo.Caption, photo.CreatedAt)
	if err != nil {
		return Photo{}, fmt.Errorf("failed to insert photo: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return Photo{}, fmt.Errorf("failed to commit: %w", err)
	}
	return photo, nil
}

func (s *SQLite) CreateAlbum(ctx context.Context, id, name string) (Album, error) {
	if id == "" {
		id = tool.GenerateRandomUUID()
	}
	album := Album{ID: id, Name: name, CreatedAt: time.Now().UTC()}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO albums (id, name, photo_count, created_at) VALUES (?, ?, 0, ?)`,
		album.ID, album.Name, album.CreatedAt)
	if err != nil {
		return Album{}, fmt.Errorf("failed to create album: %w", err)
	}
	return album, nil
}

func (s *SQLite) Album(ctx context.Context, id string) (Album, error) {
	var a Album
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, photo_count, created_at FROM albums WHERE id = ?`, id).
		Scan(&a.ID, &a.Name, &a.PhotoCount, &a.CreatedAt)
	if err == sql.ErrNoRows {
		return Album{}, ErrAlbumNotFound
	}
	if err != nil {
		return Album{}, fmt.Errorf("failed to fetch album: %w", err)
	}
	return a, nil
}

func (s *SQLite) Photos(ctx context.Context, albumID string) ([]Photo, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, album_id, url, caption, created_at FROM photos WHERE album_id = ? ORDER BY created_at DESC`, albumID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch photos: %w", err)
	}
	defer rows.Close()

	var photos []Photo
	for rows.Next() {
		var p Photo
		if err := rows.Scan(&p.ID, &p.AlbumID, &p.URL, &p.Caption, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan photo: %w", err)
		}
		photos = append(photos, p)
	}
	return photos, rows.Err()
}

func (s *SQLite) Close() error {
	return s.db.Close()
}
