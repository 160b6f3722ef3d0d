package database

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
)

// Store defines the ledger operations.
type Store interface {
	// Ping checks the database connection.
	Ping(ctx context.Context) error

	// SaveArchive inserts a ledger entry and sets its ID.
	SaveArchive(ctx context.Context, record *ArchiveRecord) error

	// RecentArchives returns the newest entries, newest first.
	RecentArchives(ctx context.Context, limit int) ([]ArchiveRecord, error)

	// PruneArchives deletes entries archived before the cutoff.
	PruneArchives(ctx context.Context, before time.Time) (int64, error)

	// RunSQLMaintenance performs database maintenance tasks like VACUUM.
	RunSQLMaintenance(ctx context.Context) error
}

type sqlxStore struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// NewStore creates a Store backed by sqlx.
func NewStore(db *sqlx.DB, logger *slog.Logger) Store {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &sqlxStore{
		db:     db,
		logger: logger.With("component", "store"),
	}
}

func (s *sqlxStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *sqlxStore) SaveArchive(ctx context.Context, record *ArchiveRecord) error {
	if record == nil {
		return fmt.Errorf("cannot save nil archive record")
	}
	if record.ChannelID == "" {
		return fmt.Errorf("archive record must have a channel_id")
	}
	if record.FileName == "" {
		return fmt.Errorf("archive record must have a file_name")
	}

	// Stored timestamps are always UTC.
	record.CreatedAt = time.Now().UTC()
	if record.ArchivedAt.IsZero() {
		record.ArchivedAt = record.CreatedAt
	}
	record.ArchivedAt = record.ArchivedAt.UTC()

	query := `
        INSERT INTO archives (created_at, channel_id, channel_name, ticket_type, opener_id, closed_by_id,
                              message_count, truncated, file_name, archive_message_id, archived_at)
        VALUES (:created_at, :channel_id, :channel_name, :ticket_type, :opener_id, :closed_by_id,
                :message_count, :truncated, :file_name, :archive_message_id, :archived_at);
    `
	result, err := s.db.NamedExecContext(ctx, query, record)
	if err != nil {
		s.logger.ErrorContext(ctx, "Error saving archive record", "channel_id", record.ChannelID, "error", err)
		return fmt.Errorf("failed to save archive record (channel %s): %w", record.ChannelID, err)
	}

	id, err := result.LastInsertId()
	if err == nil {
		//nolint:gosec // ids are positive
		record.ID = uint(id)
	} else {
		s.logger.WarnContext(ctx, "Could not retrieve last insert ID after saving archive record",
			"channel_id", record.ChannelID, "error", err)
	}

	s.logger.DebugContext(ctx, "Archive record saved", "channel_id", record.ChannelID, "id", record.ID)
	return nil
}

func (s *sqlxStore) RecentArchives(ctx context.Context, limit int) ([]ArchiveRecord, error) {
	if limit <= 0 {
		limit = 20
	}

	var records []ArchiveRecord
	query := `
        SELECT id, created_at, channel_id, channel_name, ticket_type, opener_id, closed_by_id,
               message_count, truncated, file_name, archive_message_id, archived_at
        FROM archives
        ORDER BY archived_at DESC, id DESC
        LIMIT ?;
    `
	if err := s.db.SelectContext(ctx, &records, query, limit); err != nil {
		s.logger.ErrorContext(ctx, "Error listing archive records", "limit", limit, "error", err)
		return nil, fmt.Errorf("failed to list archive records: %w", err)
	}
	return records, nil
}

func (s *sqlxStore) PruneArchives(ctx context.Context, before time.Time) (int64, error) {
	before = before.UTC()
	result, err := s.db.ExecContext(ctx, `DELETE FROM archives WHERE archived_at < ?;`, before)
	if err != nil {
		s.logger.ErrorContext(ctx, "Error pruning archive records", "before", before, "error", err)
		return 0, fmt.Errorf("failed to prune archive records: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count pruned archive records: %w", err)
	}
	s.logger.InfoContext(ctx, "Pruned archive records", "before", before, "deleted", n)
	return n, nil
}

// RunSQLMaintenance executes VACUUM, which SQLite requires outside a
// transaction.
func (s *sqlxStore) RunSQLMaintenance(ctx context.Context) error {
	if ctx.Err() != nil {
		s.logger.WarnContext(ctx, "Context cancelled or timed out before starting VACUUM", "error", ctx.Err())
		return ctx.Err()
	}

	s.logger.InfoContext(ctx, "Starting database maintenance (VACUUM)...")

	_, err := s.db.ExecContext(ctx, "VACUUM;")
	switch {
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled):
		s.logger.WarnContext(ctx, "VACUUM operation timed out or was cancelled", "error", err)
		return fmt.Errorf("database maintenance (VACUUM) timed out: %w", err)

	case err != nil:
		s.logger.ErrorContext(ctx, "Database maintenance (VACUUM) failed", "error", err)
		return fmt.Errorf("failed to execute VACUUM: %w", err)

	default:
		s.logger.InfoContext(ctx, "Database maintenance (VACUUM) completed successfully")
	}

	return nil
}
