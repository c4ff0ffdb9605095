package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/example/monitor-scheduler/internal/persistence"
)

// ScheduleRepository implements persistence.ScheduleRepository using SQLite
type ScheduleRepository struct {
	pool   *ConnectionPool
	helper *QueryHelper
	mapper *ErrorMapper
	retry  *RetryHelper
}

// NewScheduleRepository creates a new SQLite schedule repository
func NewScheduleRepository(pool *ConnectionPool) *ScheduleRepository {
	return &ScheduleRepository{
		pool:   pool,
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
		retry:  NewRetryHelper(DefaultRetryConfig()),
	}
}

const scheduleColumns = `id, user_id, room_id, start_time, end_time, status, recurring, notes, created_at, updated_at`

// CreateSchedule inserts a schedule. An active schedule is re-checked for
// overlap inside the same transaction as the insert.
func (r *ScheduleRepository) CreateSchedule(ctx context.Context, schedule persistence.Schedule) error {
	if schedule.ID == "" {
		return persistence.ErrConstraintViolation
	}
	if !schedule.End.After(schedule.Start) {
		return persistence.ErrConstraintViolation
	}
	stampCreated(&schedule.CreatedAt, &schedule.UpdatedAt)

	return r.retry.WithRetry(ctx, func() error {
		return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
			if err := r.checkReferences(ctx, tx, schedule); err != nil {
				return err
			}
			if err := r.checkOverlap(ctx, tx, schedule); err != nil {
				return err
			}

			_, err := r.helper.ExecTx(ctx, tx, `
				INSERT INTO schedules (`+scheduleColumns+`)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				schedule.ID,
				schedule.UserID,
				schedule.RoomID,
				formatTime(schedule.Start),
				formatTime(schedule.End),
				schedule.Status,
				schedule.Recurring,
				nullString(schedule.Notes),
				formatTime(schedule.CreatedAt),
				formatTime(schedule.UpdatedAt),
			)
			if err != nil {
				return fmt.Errorf("sqlite: create schedule %s: %w", schedule.ID, r.mapper.MapError(err))
			}
			return nil
		})
	})
}

// UpdateSchedule replaces every mutable column. The creation timestamp is kept.
func (r *ScheduleRepository) UpdateSchedule(ctx context.Context, schedule persistence.Schedule) error {
	if schedule.ID == "" {
		return persistence.ErrConstraintViolation
	}
	if !schedule.End.After(schedule.Start) {
		return persistence.ErrConstraintViolation
	}
	stampUpdated(&schedule.UpdatedAt)

	return r.retry.WithRetry(ctx, func() error {
		return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
			var exists int
			err := r.helper.QueryRowTx(ctx, tx, `SELECT 1 FROM schedules WHERE id = ?`, schedule.ID).Scan(&exists)
			if err != nil {
				return r.mapper.MapError(err)
			}
			if err := r.checkReferences(ctx, tx, schedule); err != nil {
				return err
			}
			if err := r.checkOverlap(ctx, tx, schedule); err != nil {
				return err
			}

			_, err = r.helper.ExecTx(ctx, tx, `
				UPDATE schedules
				SET user_id = ?, room_id = ?, start_time = ?, end_time = ?, status = ?, recurring = ?, notes = ?, updated_at = ?
				WHERE id = ?`,
				schedule.UserID,
				schedule.RoomID,
				formatTime(schedule.Start),
				formatTime(schedule.End),
				schedule.Status,
				schedule.Recurring,
				nullString(schedule.Notes),
				formatTime(schedule.UpdatedAt),
				schedule.ID,
			)
			if err != nil {
				return fmt.Errorf("sqlite: update schedule %s: %w", schedule.ID, r.mapper.MapError(err))
			}
			return nil
		})
	})
}

// GetSchedule retrieves a schedule by ID
func (r *ScheduleRepository) GetSchedule(ctx context.Context, id string) (persistence.Schedule, error) {
	row := r.helper.QueryRow(ctx, `SELECT `+scheduleColumns+` FROM schedules WHERE id = ?`, id)
	schedule, err := scanSchedule(row)
	if err != nil {
		return persistence.Schedule{}, r.mapper.MapError(err)
	}
	return schedule, nil
}

// ListSchedules returns matching schedules ordered by start then ID
func (r *ScheduleRepository) ListSchedules(ctx context.Context, filter persistence.ScheduleFilter) ([]persistence.Schedule, error) {
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
		conditions = append(conditions, "end_time > ?")
		args = append(args, formatTime(*filter.From))
	}
	if filter.To != nil {
		conditions = append(conditions, "start_time < ?")
		args = append(args, formatTime(*filter.To))
	}
	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			placeholders[i] = "?"
			args = append(args, status)
		}
		conditions = append(conditions, "status IN ("+strings.Join(placeholders, ", ")+")")
	}

	query := `SELECT ` + scheduleColumns + ` FROM schedules`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY start_time, id"

	rows, err := r.helper.Query(ctx, query, args...)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	schedules := make([]persistence.Schedule, 0)
	for rows.Next() {
		schedule, err := scanSchedule(rows)
		if err != nil {
			return nil, err
		}
		schedules = append(schedules, schedule)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}
	return schedules, nil
}

// DeleteSchedule removes a schedule by ID
func (r *ScheduleRepository) DeleteSchedule(ctx context.Context, id string) error {
	return r.retry.WithRetry(ctx, func() error {
		result, err := r.pool.DB().ExecContext(ctx, `DELETE FROM schedules WHERE id = ?`, id)
		if err != nil {
			return r.mapper.MapError(err)
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

func (r *ScheduleRepository) checkReferences(ctx context.Context, tx *sql.Tx, schedule persistence.Schedule) error {
	return checkUserAndRoom(ctx, r.helper, tx, schedule.UserID, schedule.RoomID)
}

// checkOverlap finds another active schedule of the same user or room whose
// interval intersects the candidate's. Timestamps are stored as UTC RFC 3339
// text so string comparison orders them.
func (r *ScheduleRepository) checkOverlap(ctx context.Context, tx *sql.Tx, schedule persistence.Schedule) error {
	if schedule.Status != persistence.StatusActive {
		return nil
	}

	var conflictID string
	err := r.helper.QueryRowTx(ctx, tx, `
		SELECT id FROM schedules
		WHERE status = ? AND id != ?
		  AND (user_id = ? OR room_id = ?)
		  AND start_time < ? AND end_time > ?
		ORDER BY start_time, id
		LIMIT 1`,
		persistence.StatusActive,
		schedule.ID,
		schedule.UserID,
		schedule.RoomID,
		formatTime(schedule.End),
		formatTime(schedule.Start),
	).Scan(&conflictID)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil
	case err != nil:
		return r.mapper.MapError(err)
	}
	return fmt.Errorf("sqlite: schedule %s: %w", conflictID, persistence.ErrConflict)
}

func checkUserAndRoom(ctx context.Context, helper *QueryHelper, tx *sql.Tx, userID, roomID string) error {
	var found int
	if err := helper.QueryRowTx(ctx, tx, `SELECT COUNT(*) FROM users WHERE id = ?`, userID).Scan(&found); err != nil {
		return err
	}
	if found == 0 {
		return fmt.Errorf("sqlite: user %s: %w", userID, persistence.ErrForeignKeyViolation)
	}
	if err := helper.QueryRowTx(ctx, tx, `SELECT COUNT(*) FROM rooms WHERE id = ?`, roomID).Scan(&found); err != nil {
		return err
	}
	if found == 0 {
		return fmt.Errorf("sqlite: room %s: %w", roomID, persistence.ErrForeignKeyViolation)
	}
	return nil
}

func scanSchedule(row rowScanner) (persistence.Schedule, error) {
	var (
		schedule                         persistence.Schedule
		start, end, createdAt, updatedAt string
		notes                            sql.NullString
	)
	err := row.Scan(
		&schedule.ID,
		&schedule.UserID,
		&schedule.RoomID,
		&start,
		&end,
		&schedule.Status,
		&schedule.Recurring,
		&notes,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return persistence.Schedule{}, err
	}
	if notes.Valid {
		schedule.Notes = &notes.String
	}
	if schedule.Start, err = parseTime(start); err != nil {
		return persistence.Schedule{}, err
	}
	if schedule.End, err = parseTime(end); err != nil {
		return persistence.Schedule{}, err
	}
	if schedule.CreatedAt, err = parseTime(createdAt); err != nil {
		return persistence.Schedule{}, err
	}
	if schedule.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return persistence.Schedule{}, err
	}
	return schedule, nil
}
