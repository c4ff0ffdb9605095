package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/example/monitor-scheduler/internal/persistence"
)

// EntryRepository implements persistence.EntryRepository using SQLite
type EntryRepository struct {
	pool   *ConnectionPool
	helper *QueryHelper
	mapper *ErrorMapper
	retry  *RetryHelper
}

// NewEntryRepository creates a new SQLite room entry repository
func NewEntryRepository(pool *ConnectionPool) *EntryRepository {
	return &EntryRepository{
		pool:   pool,
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
		retry:  NewRetryHelper(DefaultRetryConfig()),
	}
}

const entryColumns = `id, user_id, room_id, started_at, ended_at, created_at, updated_at`

// CreateEntry inserts an entry. A second open entry for the same user is
// rejected with ErrEntryOpen; the partial unique index backs this up.
func (r *EntryRepository) CreateEntry(ctx context.Context, entry persistence.RoomEntry) error {
	if entry.ID == "" || entry.StartedAt.IsZero() || !entry.ValidWindow() {
		return persistence.ErrConstraintViolation
	}
	stampCreated(&entry.CreatedAt, &entry.UpdatedAt)

	return r.retry.WithRetry(ctx, func() error {
		return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
			if err := checkUserAndRoom(ctx, r.helper, tx, entry.UserID, entry.RoomID); err != nil {
				return err
			}
			if entry.EndedAt == nil {
				var openID string
				err := r.helper.QueryRowTx(ctx, tx,
					`SELECT id FROM room_entries WHERE user_id = ? AND ended_at IS NULL LIMIT 1`, entry.UserID,
				).Scan(&openID)
				if err == nil {
					return fmt.Errorf("sqlite: entry %s: %w", openID, persistence.ErrEntryOpen)
				}
				if !errors.Is(err, sql.ErrNoRows) {
					return r.mapper.MapError(err)
				}
			}

			_, err := r.helper.ExecTx(ctx, tx, `
				INSERT INTO room_entries (`+entryColumns+`)
				VALUES (?, ?, ?, ?, ?, ?, ?)`,
				entry.ID,
				entry.UserID,
				entry.RoomID,
				formatTime(entry.StartedAt),
				nullTime(entry.EndedAt),
				formatTime(entry.CreatedAt),
				formatTime(entry.UpdatedAt),
			)
			if err != nil {
				return fmt.Errorf("sqlite: create entry %s: %w", entry.ID, r.mapper.MapError(err))
			}
			return nil
		})
	})
}

// UpdateEntry replaces the entry's window. The creation timestamp is kept.
func (r *EntryRepository) UpdateEntry(ctx context.Context, entry persistence.RoomEntry) error {
	if entry.ID == "" || !entry.ValidWindow() {
		return persistence.ErrConstraintViolation
	}
	stampUpdated(&entry.UpdatedAt)

	return r.retry.WithRetry(ctx, func() error {
		result, err := r.pool.DB().ExecContext(ctx, `
			UPDATE room_entries
			SET user_id = ?, room_id = ?, started_at = ?, ended_at = ?, updated_at = ?
			WHERE id = ?`,
			entry.UserID,
			entry.RoomID,
			formatTime(entry.StartedAt),
			nullTime(entry.EndedAt),
			formatTime(entry.UpdatedAt),
			entry.ID,
		)
		if err != nil {
			return fmt.Errorf("sqlite: update entry %s: %w", entry.ID, r.mapper.MapError(err))
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return r.mapper.MapError(err)
		}
		if affected == 0 {
			return persistence.ErrNotFound
		}
		return nil
	})
}

// GetEntry retrieves an entry by ID
func (r *EntryRepository) GetEntry(ctx context.Context, id string) (persistence.RoomEntry, error) {
	row := r.helper.QueryRow(ctx, `SELECT `+entryColumns+` FROM room_entries WHERE id = ?`, id)
	entry, err := scanEntry(row)
	if err != nil {
		return persistence.RoomEntry{}, r.mapper.MapError(err)
	}
	return entry, nil
}

// ListEntries returns matching entries ordered by arrival then ID
func (r *EntryRepository) ListEntries(ctx context.Context, filter persistence.EntryFilter) ([]persistence.RoomEntry, error) {
	var (
		conditions []string
		args       []any
	)
	if filter.UserID != "" {
		conditions = append(conditions, "user_id = ?")
		args = append(args, filter.UserID)
	}
	if filter.RoomID != "" {
		conditions = append(conditions, "room_id = ?")
		args = append(args, filter.RoomID)
	}
	if filter.From != nil {
		conditions = append(conditions, "started_at >= ?")
		args = append(args, formatTime(*filter.From))
	}
	if filter.To != nil {
		conditions = append(conditions, "started_at < ?")
		args = append(args, formatTime(*filter.To))
	}
	if filter.OpenOnly {
		conditions = append(conditions, "ended_at IS NULL")
	}

	query := `SELECT ` + entryColumns + ` FROM room_entries`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY started_at, id"

	rows, err := r.helper.Query(ctx, query, args...)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	entries := make([]persistence.RoomEntry, 0)
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}
	return entries, nil
}

// FindOpenEntry returns the user's open entry or ErrNotFound.
func (r *EntryRepository) FindOpenEntry(ctx context.Context, userID string) (persistence.RoomEntry, error) {
	row := r.helper.QueryRow(ctx,
		`SELECT `+entryColumns+` FROM room_entries WHERE user_id = ? AND ended_at IS NULL LIMIT 1`, userID)
	entry, err := scanEntry(row)
	if err != nil {
		return persistence.RoomEntry{}, r.mapper.MapError(err)
	}
	return entry, nil
}

func scanEntry(row rowScanner) (persistence.RoomEntry, error) {
	var (
		entry                           persistence.RoomEntry
		startedAt, createdAt, updatedAt string
		endedAt                         sql.NullString
	)
	err := row.Scan(&entry.ID, &entry.UserID, &entry.RoomID, &startedAt, &endedAt, &createdAt, &updatedAt)
	if err != nil {
		return persistence.RoomEntry{}, err
	}
	if entry.StartedAt, err = parseTime(startedAt); err != nil {
		return persistence.RoomEntry{}, err
	}
	if endedAt.Valid {
		ended, err := parseTime(endedAt.String)
		if err != nil {
			return persistence.RoomEntry{}, err
		}
		entry.EndedAt = &ended
	}
	if entry.CreatedAt, err = parseTime(createdAt); err != nil {
		return persistence.RoomEntry{}, err
	}
	if entry.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return persistence.RoomEntry{}, err
	}
	return entry, nil
}
