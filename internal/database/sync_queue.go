package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"fairway/internal/models"
)

const syncTaskColumns = `id, task_type, object_id, payload, status, retry_count, last_error, created_at, processed_at, next_retry_at`

// CreateSyncTask persists a queue row before anything is pushed to redis,
// so a task survives a crash between enqueue and delivery.
func (db *DB) CreateSyncTask(ctx context.Context, task *models.SyncTask) error {
	now := time.Now()
	result, err := db.ExecContext(ctx,
		`INSERT INTO sync_queue (task_type, object_id, payload, status, retry_count, last_error, created_at, next_retry_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		task.TaskType, task.ObjectID, task.Payload, task.Status,
		task.RetryCount, task.LastError, now, task.NextRetryAt)
	if err != nil {
		return fmt.Errorf("create sync task: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("sync task insert id: %w", err)
	}
	task.ID = id
	task.CreatedAt = now
	return nil
}

// GetPendingSyncTasks returns tasks ready to run: pending rows plus retry
// rows whose backoff delay has elapsed, oldest first.
func (db *DB) GetPendingSyncTasks(ctx context.Context, limit int) ([]models.SyncTask, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT `+syncTaskColumns+` FROM sync_queue
		 WHERE status IN ('pending', 'retry') AND (next_retry_at IS NULL OR next_retry_at <= ?)
		 ORDER BY created_at ASC LIMIT ?`,
		time.Now(), limit)
	if err != nil {
		return nil, fmt.Errorf("pending sync tasks: %w", err)
	}
	defer rows.Close()
	return scanSyncTasks(rows)
}

// GetFailedSyncTasks lists tasks that exhausted their retries, newest first.
func (db *DB) GetFailedSyncTasks(ctx context.Context) ([]models.SyncTask, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT `+syncTaskColumns+` FROM sync_queue WHERE status = 'failed' ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed sync tasks: %w", err)
	}
	defer rows.Close()
	return scanSyncTasks(rows)
}

// UpdateSyncTaskStatus records the outcome of one processing attempt. A
// retry bumps the attempt counter; terminal states stamp processed_at.
func (db *DB) UpdateSyncTaskStatus(ctx context.Context, id int64, status, errMsg string, nextRetryAt *time.Time) error {
	var err error
	switch status {
	case "retry":
		_, err = db.ExecContext(ctx,
			`UPDATE sync_queue SET status = ?, last_error = ?, next_retry_at = ?, retry_count = retry_count + 1 WHERE id = ?`,
			status, errMsg, nextRetryAt, id)
	case "completed", "failed":
		_, err = db.ExecContext(ctx,
			`UPDATE sync_queue SET status = ?, last_error = ?, next_retry_at = ?, processed_at = ? WHERE id = ?`,
			status, errMsg, nextRetryAt, time.Now(), id)
	default:
		_, err = db.ExecContext(ctx,
			`UPDATE sync_queue SET status = ?, last_error = ?, next_retry_at = ? WHERE id = ?`,
			status, errMsg, nextRetryAt, id)
	}
	if err != nil {
		return fmt.Errorf("update sync task %d: %w", id, err)
	}
	return nil
}

func scanSyncTasks(rows *sql.Rows) ([]models.SyncTask, error) {
	var tasks []models.SyncTask
	for rows.Next() {
		var t models.SyncTask
		if err := rows.Scan(&t.ID, &t.TaskType, &t.ObjectID, &t.Payload, &t.Status,
			&t.RetryCount, &t.LastError, &t.CreatedAt, &t.ProcessedAt, &t.NextRetryAt); err != nil {
			return nil, fmt.Errorf("scan sync task: %w", err)
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}
