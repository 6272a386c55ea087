// Package journal keeps an audit trail of relay outcomes in SQLite.
// Only outcomes are stored, never message content, and nothing is replayed.
package journal

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"slackgram/internal/bus"
	"slackgram/internal/domain"

	_ "modernc.org/sqlite"
)

const writeTimeout = 5 * time.Second

// Entry is one recorded relay outcome.
type Entry struct {
	ID        int64
	RelayID   string
	Status    domain.RelayStatus
	Reason    string
	Channel   string
	ChatID    string
	Sender    string
	Error     string
	Elapsed   time.Duration
	CreatedAt time.Time
}

// Store is a SQLite-backed relay journal.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open opens (or creates) the journal at path and applies pending migrations.
func Open(path string, logger *slog.Logger) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("cannot create journal directory %s: %w", dir, err)
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("cannot open journal: %w", err)
	}
	// SQLite allows one writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := runMigrations(db, logger); err != nil {
		db.Close()
		return nil, fmt.Errorf("journal migration failed: %w", err)
	}
	return &Store{db: db, logger: logger}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Record stores one relay result.
func (s *Store) Record(ctx context.Context, res domain.RelayResult) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO relay_log (relay_id, status, reason, channel, chat_id, sender, error, elapsed_ms, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		res.ID, string(res.Status), res.Reason, res.Channel, res.ChatID, res.Sender, res.ErrText(),
		res.Elapsed.Milliseconds(), time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("record relay %s: %w", res.ID, err)
	}
	return nil
}

// Recent returns up to limit entries, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, relay_id, status, reason, channel, chat_id, sender, error, elapsed_ms, created_at
		 FROM relay_log ORDER BY id DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query journal: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e         Entry
			status    string
			elapsedMS int64
		)
		if err := rows.Scan(&e.ID, &e.RelayID, &status, &e.Reason, &e.Channel, &e.ChatID,
			&e.Sender, &e.Error, &elapsedMS, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan journal row: %w", err)
		}
		e.Status = domain.RelayStatus(status)
		e.Elapsed = time.Duration(elapsedMS) * time.Millisecond
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Counts returns the number of recorded results per status.
func (s *Store) Counts(ctx context.Context) (map[domain.RelayStatus]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM relay_log GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("count journal: %w", err)
	}
	defer rows.Close()

	counts := make(map[domain.RelayStatus]int)
	for rows.Next() {
		var (
			status string
			n      int
		)
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("scan journal count: %w", err)
		}
		counts[domain.RelayStatus(status)] = n
	}
	return counts, rows.Err()
}

// Subscribe records every relay result emitted on eb. Write failures are
// logged and never reach the relay.
func (s *Store) Subscribe(eb *bus.EventBus) {
	handler := func(e bus.Event) {
		res, ok := bus.ResultFrom(e)
		if !ok {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		defer cancel()
		if err := s.Record(ctx, res); err != nil {
			s.logger.Warn("journal write failed", "relay_id", res.ID, "err", err)
		}
	}
	for _, t := range []string{bus.EventRelayDelivered, bus.EventRelaySkipped, bus.EventRelayFailed} {
		eb.On(t, handler)
	}
}
