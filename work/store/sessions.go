package store

import (
	"fmt"
	"time"
)

// AppendSession writes one stream-resolution log entry. The log is
// append-only and never read back by this layer; callers submit these writes
// fire-and-forget.
func (db *DB) AppendSession(subscriberID, channelID, clientAddr string, at time.Time) error {
	_, err := db.Exec(`
		INSERT INTO sessions (subscriber_id, channel_id, client_addr, created_at)
		VALUES (?, ?, ?, ?)
	`, subscriberID, channelID, clientAddr, at.Unix())
	if err != nil {
		return fmt.Errorf("failed to append session: %w", err)
	}
	return nil
}
