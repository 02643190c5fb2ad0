package store

import (
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// SubscriberRow represents a subscriber account record.
type SubscriberRow struct {
	ID             string
	Username       string
	Password       string
	Status         string
	MaxConnections int
	IsTrial        bool
	CreatedAt      time.Time
	LastAuthAt     time.Time
}

// EntitlementRow represents an active subscription joined to its package.
type EntitlementRow struct {
	ID             string
	SubscriberID   string
	Status         string
	StartsAt       time.Time
	EndsAt         time.Time
	PackageName    string
	MaxConnections int
	OutputFormats  []string
}

// GetSubscriberByUsername retrieves a subscriber by exact username match.
// Returns nil without error when no such account exists.
func (db *DB) GetSubscriberByUsername(username string) (*SubscriberRow, error) {
	query := `
		SELECT id, username, password, status, max_connections, is_trial,
		       created_at, COALESCE(last_auth_at, 0)
		FROM subscribers
		WHERE username = ?
	`

	var row SubscriberRow
	var isTrial int
	var createdAt, lastAuthAt int64
	err := db.QueryRow(query, username).Scan(
		&row.ID, &row.Username, &row.Password, &row.Status,
		&row.MaxConnections, &isTrial, &createdAt, &lastAuthAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get subscriber: %w", err)
	}

	row.IsTrial = isTrial != 0
	row.CreatedAt = time.Unix(createdAt, 0).UTC()
	if lastAuthAt > 0 {
		row.LastAuthAt = time.Unix(lastAuthAt, 0).UTC()
	}

	return &row, nil
}

// TouchLastAuth stamps the last successful authentication time.
func (db *DB) TouchLastAuth(subscriberID string, at time.Time) error {
	_, err := db.Exec(
		"UPDATE subscribers SET last_auth_at = ? WHERE id = ?",
		at.Unix(), subscriberID,
	)
	if err != nil {
		return fmt.Errorf("failed to stamp last auth: %w", err)
	}
	return nil
}

// GetActiveEntitlement returns the subscriber's active subscription whose
// validity window covers now (ends_at >= now, inclusive), joined to its
// package. Returns nil without error when none exists.
func (db *DB) GetActiveEntitlement(subscriberID string, now time.Time) (*EntitlementRow, error) {
	query := `
		SELECT s.id, s.subscriber_id, s.status, s.starts_at, s.ends_at,
		       p.name, p.max_connections, p.output_formats
		FROM subscriptions s
		JOIN packages p ON p.id = s.package_id
		WHERE s.subscriber_id = ?
		  AND s.status = 'active'
		  AND s.ends_at >= ?
		ORDER BY s.ends_at DESC
		LIMIT 1
	`

	var row EntitlementRow
	var startsAt, endsAt int64
	var formats string
	err := db.QueryRow(query, subscriberID, now.Unix()).Scan(
		&row.ID, &row.SubscriberID, &row.Status, &startsAt, &endsAt,
		&row.PackageName, &row.MaxConnections, &formats,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get entitlement: %w", err)
	}

	row.StartsAt = time.Unix(startsAt, 0).UTC()
	row.EndsAt = time.Unix(endsAt, 0).UTC()
	row.OutputFormats = splitFormats(formats)

	return &row, nil
}

func splitFormats(s string) []string {
	var out []string
	for _, f := range strings.Split(s, ",") {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	if out == nil {
		out = []string{"m3u8", "ts"}
	}
	return out
}
