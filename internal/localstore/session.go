package localstore

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"
)

// Session is the signed-in identity saved by `luna auth login`.
type Session struct {
	IDToken      string    `json:"id_token"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	Expiry       time.Time `json:"expiry"`
	Subject      string    `json:"subject"`
	Email        string    `json:"email,omitempty"`
}

// Expired reports whether the ID token is no longer accepted at now.
func (s Session) Expired(now time.Time) bool {
	return !s.Expiry.IsZero() && !now.Before(s.Expiry)
}

// LoadSession reads the session at path. It returns nil without error when there is none.
func LoadSession(path string) (*Session, error) {
	var session Session
	found, err := readJSON(path, &session)
	if err != nil || !found {
		return nil, err
	}
	if session.IDToken == "" {
		return nil, nil
	}
	return &session, nil
}

// SaveSession replaces the session at path.
func SaveSession(path string, session Session) error {
	return writeJSON(path, session)
}

// ClearSession removes the session at path. A missing file is not an error.
func ClearSession(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to remove session: %w", err)
	}
	return nil
}
