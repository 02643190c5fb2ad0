package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "gate.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func seedSubscriber(t *testing.T, db *DB, id, username, status string) {
	t.Helper()
	_, err := db.Exec(
		"INSERT INTO subscribers (id, username, password, status, max_connections, is_trial, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)",
		id, username, "s3cret", status, 2, 0, testNow.Add(-90*24*time.Hour).Unix(),
	)
	require.NoError(t, err)
}

func seedSubscription(t *testing.T, db *DB, id, subscriberID, status string, endsAt time.Time) {
	t.Helper()
	_, err := db.Exec(
		"INSERT OR IGNORE INTO packages (id, name, max_connections, output_formats) VALUES ('pkg-1', 'Gold', 2, 'm3u8,ts')")
	require.NoError(t, err)
	_, err = db.Exec(
		"INSERT INTO subscriptions (id, subscriber_id, package_id, status, starts_at, ends_at) VALUES (?, ?, 'pkg-1', ?, ?, ?)",
		id, subscriberID, status, testNow.Add(-30*24*time.Hour).Unix(), endsAt.Unix(),
	)
	require.NoError(t, err)
}

func seedChannel(t *testing.T, db *DB, id, name, category string, active bool, createdAt time.Time) {
	t.Helper()
	act := 0
	if active {
		act = 1
	}
	_, err := db.Exec(
		"INSERT INTO channels (id, name, category, stream_url, active, created_at) VALUES (?, ?, ?, 'http://up.example/feed.ts', ?, ?)",
		id, name, category, act, createdAt.Unix(),
	)
	require.NoError(t, err)
}

func seedProgram(t *testing.T, db *DB, id, channelID, title string, startsAt, endsAt time.Time) {
	t.Helper()
	_, err := db.Exec(
		"INSERT INTO epg_programs (id, channel_id, title, starts_at, ends_at) VALUES (?, ?, ?, ?, ?)",
		id, channelID, title, startsAt.Unix(), endsAt.Unix(),
	)
	require.NoError(t, err)
}

func TestOpenRunsMigrations(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gate.db")

	db, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, db.Ping())
	db.Close()

	// a second open against the same file must not re-apply migrations
	again, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, again.Ping())
	again.Close()
}

func TestGetSubscriberByUsername(t *testing.T) {
	db := openTestDB(t)
	seedSubscriber(t, db, "sub-1", "alice", "active")

	sub, err := db.GetSubscriberByUsername("alice")
	require.NoError(t, err)
	require.NotNil(t, sub)
	assert.Equal(t, "sub-1", sub.ID)
	assert.Equal(t, "s3cret", sub.Password)
	assert.Equal(t, "active", sub.Status)
	assert.Equal(t, 2, sub.MaxConnections)
	assert.False(t, sub.IsTrial)

	missing, err := db.GetSubscriberByUsername("nobody")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestTouchLastAuth(t *testing.T) {
	db := openTestDB(t)
	seedSubscriber(t, db, "sub-1", "alice", "active")

	require.NoError(t, db.TouchLastAuth("sub-1", testNow))

	sub, err := db.GetSubscriberByUsername("alice")
	require.NoError(t, err)
	assert.Equal(t, testNow, sub.LastAuthAt)
}

func TestGetActiveEntitlement(t *testing.T) {
	db := openTestDB(t)
	seedSubscriber(t, db, "sub-1", "alice", "active")
	seedSubscription(t, db, "ent-1", "sub-1", "active", testNow.Add(24*time.Hour))

	ent, err := db.GetActiveEntitlement("sub-1", testNow)
	require.NoError(t, err)
	require.NotNil(t, ent)
	assert.Equal(t, "Gold", ent.PackageName)
	assert.Equal(t, []string{"m3u8", "ts"}, ent.OutputFormats)
}

func TestGetActiveEntitlementBoundary(t *testing.T) {
	db := openTestDB(t)
	seedSubscriber(t, db, "sub-1", "alice", "active")
	seedSubscription(t, db, "ent-1", "sub-1", "active", testNow)

	// ends_at == now is still active, inclusive boundary
	ent, err := db.GetActiveEntitlement("sub-1", testNow)
	require.NoError(t, err)
	assert.NotNil(t, ent)

	ent, err = db.GetActiveEntitlement("sub-1", testNow.Add(time.Second))
	require.NoError(t, err)
	assert.Nil(t, ent)
}

func TestGetActiveEntitlementIgnoresCancelled(t *testing.T) {
	db := openTestDB(t)
	seedSubscriber(t, db, "sub-1", "alice", "active")
	seedSubscription(t, db, "ent-1", "sub-1", "cancelled", testNow.Add(24*time.Hour))

	ent, err := db.GetActiveEntitlement("sub-1", testNow)
	require.NoError(t, err)
	assert.Nil(t, ent)
}

func TestLoadActiveChannelsOrderAndFilter(t *testing.T) {
	db := openTestDB(t)
	seedChannel(t, db, "ch-b", "B", "Sports", true, testNow.Add(-time.Hour))
	seedChannel(t, db, "ch-a", "A", "News", true, testNow.Add(-2*time.Hour))
	seedChannel(t, db, "ch-c", "C", "News", false, testNow.Add(-3*time.Hour))

	channels, err := db.LoadActiveChannels()
	require.NoError(t, err)
	require.Len(t, channels, 2)
	assert.Equal(t, "A", channels[0].Name) // oldest first
	assert.Equal(t, "B", channels[1].Name)
}

func TestUpcomingPrograms(t *testing.T) {
	db := openTestDB(t)
	seedChannel(t, db, "ch-a", "A", "News", true, testNow.Add(-time.Hour))
	seedProgram(t, db, "p-old", "ch-a", "Ended", testNow.Add(-2*time.Hour), testNow.Add(-time.Hour))
	seedProgram(t, db, "p-now", "ch-a", "Running", testNow.Add(-10*time.Minute), testNow.Add(20*time.Minute))
	seedProgram(t, db, "p-next", "ch-a", "Next", testNow.Add(20*time.Minute), testNow.Add(time.Hour))

	programs, err := db.UpcomingPrograms("ch-a", testNow, 4)
	require.NoError(t, err)
	require.Len(t, programs, 2)
	assert.Equal(t, "Running", programs[0].Title)
	assert.Equal(t, "Next", programs[1].Title)

	limited, err := db.UpcomingPrograms("ch-a", testNow, 1)
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, "Running", limited[0].Title)
}

func TestProgramsInWindow(t *testing.T) {
	db := openTestDB(t)
	seedChannel(t, db, "ch-a", "A", "News", true, testNow.Add(-time.Hour))
	seedProgram(t, db, "p-in", "ch-a", "Inside", testNow, testNow.Add(time.Hour))
	seedProgram(t, db, "p-straddle", "ch-a", "Straddles", testNow.Add(-2*time.Hour), testNow.Add(time.Hour))
	seedProgram(t, db, "p-out", "ch-a", "Outside", testNow.Add(-5*time.Hour), testNow.Add(-4*time.Hour))

	programs, err := db.ProgramsInWindow(testNow.Add(-time.Hour), testNow.Add(2*time.Hour))
	require.NoError(t, err)
	require.Len(t, programs, 2)
}

func TestAppendSession(t *testing.T) {
	db := openTestDB(t)

	require.NoError(t, db.AppendSession("sub-1", "ch-a", "203.0.113.7", testNow))

	var count int
	require.NoError(t, db.QueryRow(
		"SELECT COUNT(*) FROM sessions WHERE subscriber_id = 'sub-1' AND channel_id = 'ch-a'").Scan(&count))
	assert.Equal(t, 1, count)
}
