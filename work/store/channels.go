package store

import (
	"database/sql"
	"fmt"
	"time"
)

// ChannelRow represents a live catalog entry. The catalog is owned by content
// management; this layer only reads it.
type ChannelRow struct {
	ID           string
	Name         string
	Category     string
	LogoURL      string
	EPGChannelID string
	StreamURL    string
	Active       bool
	CreatedAt    time.Time
}

const channelColumns = `id, name, category, logo_url, epg_channel_id, stream_url, active, created_at`

func scanChannel(scan func(dest ...any) error) (*ChannelRow, error) {
	var ch ChannelRow
	var active int
	var createdAt int64
	err := scan(
		&ch.ID, &ch.Name, &ch.Category, &ch.LogoURL, &ch.EPGChannelID,
		&ch.StreamURL, &active, &createdAt,
	)
	if err != nil {
		return nil, err
	}
	ch.Active = active != 0
	ch.CreatedAt = time.Unix(createdAt, 0).UTC()
	return &ch, nil
}

// LoadActiveChannels returns the active-channel snapshot ordered by creation
// time, then id for a stable tiebreak. Category positional ids and stream-id
// decoding both work against this snapshot, so the ordering must be
// deterministic within a request.
func (db *DB) LoadActiveChannels() ([]*ChannelRow, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM channels
		WHERE active = 1
		ORDER BY created_at, id
	`, channelColumns)

	rows, err := db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to load channels: %w", err)
	}
	defer rows.Close()

	var channels []*ChannelRow
	for rows.Next() {
		ch, err := scanChannel(rows.Scan)
		if err != nil {
			continue
		}
		channels = append(channels, ch)
	}

	return channels, rows.Err()
}

// GetChannelByID retrieves an active channel by its catalog identifier.
// Returns nil without error when no such channel exists.
func (db *DB) GetChannelByID(id string) (*ChannelRow, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM channels
		WHERE id = ? AND active = 1
	`, channelColumns)

	ch, err := scanChannel(db.QueryRow(query, id).Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get channel: %w", err)
	}

	return ch, nil
}
