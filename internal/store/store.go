// Package store persists dialogue session snapshots so a host process
// can suspend and resume a session across restarts.
package store

import "context"

// Snapshot is everything needed to resume a Session: the current
// state name and the global frame's variable values, JSON-encoded by
// the caller (the store package stays value-representation agnostic).
type Snapshot struct {
	SessionID string
	BotName   string
	State     string
	GlobalsJSON string
}

// Store is the persistence boundary; SQLStore is the only
// implementation, but the interface keeps dialogue decoupled from any
// particular backend.
type Store interface {
	Save(ctx context.Context, snap Snapshot) error
	Load(ctx context.Context, sessionID string) (Snapshot, bool, error)
	Delete(ctx context.Context, sessionID string) error
	Close() error
}
