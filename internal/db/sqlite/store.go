// Package sqlite is the embedded storage backend. It implements the same
// repository interfaces as the PostgreSQL backend on a single database file.
package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ad-tracker/youtube-announcer-go/internal/db"
	"github.com/ad-tracker/youtube-announcer-go/internal/db/models"
	"github.com/ad-tracker/youtube-announcer-go/internal/db/repository"

	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schema string

var (
	_ repository.ChannelRepository = (*Store)(nil)
	_ repository.LedgerRepository  = (*Store)(nil)
	_ repository.QuotaRepository   = (*Store)(nil)
)

const channelColumns = `channel_key, owner_user_id, title, source_id, source_url,
	high_water_mark_at, high_water_item_id, plan, active, created_at, updated_at`

// Store is a SQLite-backed channel registry, announcement ledger and quota log.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens (creating if needed) the database file at path and applies the schema.
func Open(ctx context.Context, path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("sqlite path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	dsn := "file:" + path + "?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// SQLite serializes writers; one connection avoids SQLITE_BUSY between our own goroutines.
	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)

	if _, err := conn.ExecContext(ctx, schema); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &Store{db: conn, now: time.Now}, nil
}

// Ping verifies the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) Upsert(ctx context.Context, channel *models.Channel) error {
	if channel.Plan == "" {
		channel.Plan = models.PlanFree
	}
	now := s.now().UnixNano()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO channels (channel_key, owner_user_id, title, plan, active, created_at, updated_at)
		VALUES (?, ?, ?, ?, 1, ?, ?)
		ON CONFLICT (channel_key) DO UPDATE
		SET owner_user_id = excluded.owner_user_id,
		    title = excluded.title,
		    active = 1,
		    updated_at = excluded.updated_at
	`, channel.ChannelKey, channel.OwnerUserID, channel.Title, string(channel.Plan), now, now)
	if err != nil {
		return db.WrapError(err, "upsert channel")
	}

	stored, err := s.GetByKey(ctx, channel.ChannelKey)
	if err != nil {
		return err
	}
	*channel = *stored

	return nil
}

func (s *Store) GetByKey(ctx context.Context, channelKey string) (*models.Channel, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+channelColumns+` FROM channels WHERE channel_key = ?`, channelKey)

	channel, err := scanChannel(row)
	if err != nil {
		return nil, db.WrapError(err, "get channel by key")
	}

	return channel, nil
}

func (s *Store) ListByOwner(ctx context.Context, ownerUserID int64) ([]*models.Channel, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+channelColumns+`
		FROM channels WHERE owner_user_id = ? ORDER BY updated_at DESC`, ownerUserID)
	if err != nil {
		return nil, db.WrapError(err, "list channels by owner")
	}
	defer rows.Close()

	return scanChannels(rows)
}

func (s *Store) ListActive(ctx context.Context) ([]*models.Channel, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+channelColumns+`
		FROM channels WHERE active = 1 ORDER BY created_at, channel_key`)
	if err != nil {
		return nil, db.WrapError(err, "list active channels")
	}
	defer rows.Close()

	return scanChannels(rows)
}

func (s *Store) SetSource(ctx context.Context, channelKey, sourceID, sourceURL string) error {
	return s.execOne(ctx, "set channel source", `
		UPDATE channels
		SET high_water_mark_at = CASE WHEN source_id IS ? THEN high_water_mark_at ELSE NULL END,
		    high_water_item_id = CASE WHEN source_id IS ? THEN high_water_item_id ELSE NULL END,
		    source_id = ?,
		    source_url = ?,
		    updated_at = ?
		WHERE channel_key = ?
	`, sourceID, sourceID, sourceID, sourceURL, s.now().UnixNano(), channelKey)
}

func (s *Store) SetPlan(ctx context.Context, channelKey string, plan models.Plan) error {
	return s.execOne(ctx, "set channel plan",
		`UPDATE channels SET plan = ?, updated_at = ? WHERE channel_key = ?`,
		string(plan), s.now().UnixNano(), channelKey)
}

func (s *Store) Deactivate(ctx context.Context, channelKey string) error {
	return s.execOne(ctx, "deactivate channel",
		`UPDATE channels SET active = 0, updated_at = ? WHERE channel_key = ?`,
		s.now().UnixNano(), channelKey)
}

func (s *Store) Stats(ctx context.Context) (*models.ChannelStats, error) {
	stats := &models.ChannelStats{}
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
		       COALESCE(SUM(CASE WHEN active = 1 THEN 1 ELSE 0 END), 0),
		       COALESCE(SUM(CASE WHEN active = 1 AND source_id IS NOT NULL THEN 1 ELSE 0 END), 0),
		       COALESCE(SUM(CASE WHEN plan = 'plus' THEN 1 ELSE 0 END), 0),
		       COUNT(DISTINCT owner_user_id)
		FROM channels
	`).Scan(&stats.Total, &stats.Active, &stats.Configured, &stats.Plus, &stats.Owners)
	if err != nil {
		return nil, db.WrapError(err, "channel stats")
	}

	return stats, nil
}

func (s *Store) IsPosted(ctx context.Context, channelKey, itemID string) (bool, error) {
	var posted bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM announcement_ledger WHERE channel_key = ? AND item_id = ?)`,
		channelKey, itemID,
	).Scan(&posted)
	if err != nil {
		return false, db.WrapError(err, "check ledger")
	}

	return posted, nil
}

func (s *Store) RecordPosted(ctx context.Context, entry *models.LedgerEntry) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return db.WrapError(err, "begin record posted")
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO announcement_ledger (channel_key, item_id, item_type, published_at, posted_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (channel_key, item_id) DO NOTHING
	`, entry.ChannelKey, entry.ItemID, string(entry.ItemType), entry.PublishedAt.UnixNano(), entry.PostedAt.UnixNano())
	if err != nil {
		return db.WrapError(err, "insert ledger entry")
	}

	published := entry.PublishedAt.UnixNano()
	_, err = tx.ExecContext(ctx, `
		UPDATE channels
		SET high_water_mark_at = ?, high_water_item_id = ?, updated_at = ?
		WHERE channel_key = ? AND (high_water_mark_at IS NULL OR high_water_mark_at < ?)
	`, published, entry.ItemID, s.now().UnixNano(), entry.ChannelKey, published)
	if err != nil {
		return db.WrapError(err, "advance high-water mark")
	}

	if err := tx.Commit(); err != nil {
		return db.WrapError(err, "commit record posted")
	}

	return nil
}

func (s *Store) AnchorHighWaterMark(ctx context.Context, channelKey, itemID string, at time.Time) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE channels
		SET high_water_mark_at = ?, high_water_item_id = ?, updated_at = ?
		WHERE channel_key = ? AND high_water_mark_at IS NULL
	`, at.UnixNano(), itemID, s.now().UnixNano(), channelKey)
	if err != nil {
		return db.WrapError(err, "anchor high-water mark")
	}

	if n, _ := result.RowsAffected(); n > 0 {
		return nil
	}

	var exists bool
	err = s.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM channels WHERE channel_key = ?)`, channelKey).Scan(&exists)
	if err != nil {
		return db.WrapError(err, "anchor high-water mark")
	}
	if !exists {
		return db.WrapError(sql.ErrNoRows, "anchor high-water mark")
	}

	return nil
}

func (s *Store) ListRecent(ctx context.Context, channelKey string, limit int) ([]*models.LedgerEntry, error) {
	if limit <= 0 {
		limit = 10
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT channel_key, item_id, item_type, published_at, posted_at
		FROM announcement_ledger
		WHERE channel_key = ?
		ORDER BY published_at DESC, posted_at DESC
		LIMIT ?
	`, channelKey, limit)
	if err != nil {
		return nil, db.WrapError(err, "list ledger entries")
	}
	defer rows.Close()

	var entries []*models.LedgerEntry
	for rows.Next() {
		var (
			entry               models.LedgerEntry
			itemType            string
			published, postedAt int64
		)
		if err := rows.Scan(&entry.ChannelKey, &entry.ItemID, &itemType, &published, &postedAt); err != nil {
			return nil, fmt.Errorf("scan ledger entry: %w", err)
		}
		entry.ItemType = models.ItemType(itemType)
		entry.PublishedAt = fromNanos(published)
		entry.PostedAt = fromNanos(postedAt)
		entries = append(entries, &entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ledger entries: %w", err)
	}

	return entries, nil
}

func (s *Store) GetTodaysQuota(ctx context.Context) (*models.QuotaInfo, error) {
	info := &models.QuotaInfo{}
	err := s.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(quota_used), 0), COALESCE(SUM(operations_count), 0) FROM api_quota_usage WHERE date = ?`,
		s.today(),
	).Scan(&info.QuotaUsed, &info.OperationsCount)
	if err != nil {
		return nil, db.WrapError(err, "get todays quota")
	}

	return info, nil
}

func (s *Store) IncrementQuota(ctx context.Context, quotaCost int, _ string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO api_quota_usage (date, quota_used, operations_count, updated_at)
		VALUES (?, ?, 1, ?)
		ON CONFLICT (date) DO UPDATE
		SET quota_used = quota_used + excluded.quota_used,
		    operations_count = operations_count + 1,
		    updated_at = excluded.updated_at
	`, s.today(), quotaCost, s.now().UnixNano())
	if err != nil {
		return db.WrapError(err, "increment quota")
	}

	return nil
}

func (s *Store) today() string {
	return s.now().UTC().Format("2006-01-02")
}

func (s *Store) execOne(ctx context.Context, op, query string, args ...any) error {
	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return db.WrapError(err, op)
	}

	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return db.WrapError(sql.ErrNoRows, op)
	}

	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanChannel(row rowScanner) (*models.Channel, error) {
	var (
		channel              models.Channel
		sourceID, sourceURL  sql.NullString
		markAt               sql.NullInt64
		markItem             sql.NullString
		plan                 string
		active               bool
		createdAt, updatedAt int64
	)

	err := row.Scan(
		&channel.ChannelKey,
		&channel.OwnerUserID,
		&channel.Title,
		&sourceID,
		&sourceURL,
		&markAt,
		&markItem,
		&plan,
		&active,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	channel.Plan, err = models.ParsePlan(plan)
	if err != nil {
		return nil, err
	}
	channel.Active = active
	channel.SourceID = nullString(sourceID)
	channel.SourceURL = nullString(sourceURL)
	channel.HighWaterItemID = nullString(markItem)
	if markAt.Valid {
		t := fromNanos(markAt.Int64)
		channel.HighWaterMarkAt = &t
	}
	channel.CreatedAt = fromNanos(createdAt)
	channel.UpdatedAt = fromNanos(updatedAt)

	return &channel, nil
}

func scanChannels(rows *sql.Rows) ([]*models.Channel, error) {
	var channels []*models.Channel

	for rows.Next() {
		channel, err := scanChannel(rows)
		if err != nil {
			return nil, fmt.Errorf("scan channel: %w", err)
		}
		channels = append(channels, channel)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate channels: %w", err)
	}

	return channels, nil
}

func nullString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

func fromNanos(ns int64) time.Time {
	return time.Unix(0, ns).UTC()
}
