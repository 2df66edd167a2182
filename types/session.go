package types

import "time"

// Session is an ephemeral ingestion grant: one username/password pair bound to
// one local directory and one destination album. Never persisted, restart
// invalidates everything on purpose.
type Session struct {
	ID        string
	Username  string
	Password  string
	RootDir   string // absolute, canonicalized
	AlbumID   string
	CreatedAt time.Time
}

// SessionInfo is the control API view of a session.
type SessionInfo struct {
	Username  string `json:"username"`
	Password  string `json:"password"`
	Directory string `json:"directory"`
	AlbumID   string `json:"albumId"`
}

// Info converts a session to its control API view.
func (s Session) Info() SessionInfo {
	return SessionInfo{
		Username:  s.Username,
		Password:  s.Password,
		Directory: s.RootDir,
		AlbumID:   s.AlbumID,
	}
}

// SessionGrant is what StartSession hands back to the client so a transfer
// client can be pointed at the drop directory.
type SessionGrant struct {
	Host     string `json:"host"`
	Username string `json:"username"`
	Password string `json:"password"`
	Port     int    `json:"port"`
	Mode     string `json:"mode"`
}
