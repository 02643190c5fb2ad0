package store

import (
	"fmt"
	"time"
)

// ProgramRow represents one EPG program belonging to a channel.
type ProgramRow struct {
	ID          string
	ChannelID   string
	Title       string
	Description string
	Category    string
	Rating      string
	ExternalID  string
	StartsAt    time.Time
	EndsAt      time.Time
}

const programColumns = `id, channel_id, title, description, category, rating, external_id, starts_at, ends_at`

func scanProgram(scan func(dest ...any) error) (*ProgramRow, error) {
	var p ProgramRow
	var startsAt, endsAt int64
	err := scan(
		&p.ID, &p.ChannelID, &p.Title, &p.Description, &p.Category,
		&p.Rating, &p.ExternalID, &startsAt, &endsAt,
	)
	if err != nil {
		return nil, err
	}
	p.StartsAt = time.Unix(startsAt, 0).UTC()
	p.EndsAt = time.Unix(endsAt, 0).UTC()
	return &p, nil
}

// UpcomingPrograms returns the channel's current and future programs
// (ends_at >= now) ordered by start time, limited to limit entries.
func (db *DB) UpcomingPrograms(channelID string, now time.Time, limit int) ([]*ProgramRow, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM epg_programs
		WHERE channel_id = ? AND ends_at >= ?
		ORDER BY starts_at
		LIMIT ?
	`, programColumns)

	rows, err := db.Query(query, channelID, now.Unix(), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to load programs: %w", err)
	}
	defer rows.Close()

	var programs []*ProgramRow
	for rows.Next() {
		p, err := scanProgram(rows.Scan)
		if err != nil {
			continue
		}
		programs = append(programs, p)
	}

	return programs, rows.Err()
}

// ProgramsInWindow returns every program overlapping the [from, to] window
// (ends_at >= from AND starts_at <= to) across all channels, ordered by
// channel then start time. Used by the XMLTV export.
func (db *DB) ProgramsInWindow(from, to time.Time) ([]*ProgramRow, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM epg_programs
		WHERE ends_at >= ? AND starts_at <= ?
		ORDER BY channel_id, starts_at
	`, programColumns)

	rows, err := db.Query(query, from.Unix(), to.Unix())
	if err != nil {
		return nil, fmt.Errorf("failed to load program window: %w", err)
	}
	defer rows.Close()

	var programs []*ProgramRow
	for rows.Next() {
		p, err := scanProgram(rows.Scan)
		if err != nil {
			continue
		}
		programs = append(programs, p)
	}

	return programs, rows.Err()
}
