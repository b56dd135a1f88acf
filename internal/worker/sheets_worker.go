package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"fairway/internal/database"
	"fairway/internal/domain"
	"fairway/internal/models"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	TaskBookingUpsert = "booking_upsert"
	TaskStatusUpdate  = "status_update"
	TaskAuditAppend   = "audit_append"
)

// workerTaskPayload is persisted in SyncTask.Payload as JSON.
type workerTaskPayload struct {
	BookingID int64              `json:"booking_id,omitempty"`
	Booking   *models.Booking    `json:"booking,omitempty"`
	Status    string             `json:"status,omitempty"`
	Audit     *models.AuditEntry `json:"audit,omitempty"`
}

// SheetsWorker consumes sync_queue tasks and mirrors them to Sheets. Tasks
// are persisted to sqlite first, then scheduled via redis (or the in-memory
// queue when redis is down); the sqlite poll is the catch-all.
type SheetsWorker struct {
	db            *database.DB
	sheets        domain.SheetsWriter
	redis         *redis.Client
	retryPolicy   RetryPolicy
	queue         chan models.SyncTask
	redisQueueKey string
	deadLetterKey string
	pollInterval  time.Duration
	batchSize     int
	logger        *zerolog.Logger
}

func NewSheetsWorker(db *database.DB, sheets domain.SheetsWriter, redisClient *redis.Client, retry RetryPolicy, logger *zerolog.Logger) *SheetsWorker {
	return &SheetsWorker{
		db:            db,
		sheets:        sheets,
		redis:         redisClient,
		retryPolicy:   retry.withDefaults(),
		queue:         make(chan models.SyncTask, models.WorkerQueueSize),
		redisQueueKey: "fairway:sheets:queue",
		deadLetterKey: "fairway:sheets:dead",
		pollInterval:  2 * time.Second,
		batchSize:     20,
		logger:        logger,
	}
}

func (w *SheetsWorker) EnqueueBookingUpsert(ctx context.Context, booking *models.Booking) error {
	if booking == nil || booking.ID == 0 {
		return errors.New("booking id is required")
	}
	return w.enqueue(ctx, TaskBookingUpsert, booking.ID, workerTaskPayload{
		BookingID: booking.ID,
		Booking:   booking,
	})
}

func (w *SheetsWorker) EnqueueStatusUpdate(ctx context.Context, bookingID int64, status string) error {
	if bookingID == 0 || status == "" {
		return errors.New("booking id and status are required")
	}
	return w.enqueue(ctx, TaskStatusUpdate, bookingID, workerTaskPayload{
		BookingID: bookingID,
		Status:    status,
	})
}

func (w *SheetsWorker) EnqueueAuditEntry(ctx context.Context, entry *models.AuditEntry) error {
	if entry == nil {
		return errors.New("audit entry is required")
	}
	return w.enqueue(ctx, TaskAuditAppend, entry.ObjectID, workerTaskPayload{
		Audit: entry,
	})
}

// enqueue persists the task to sqlite and schedules it via redis or the
// in-memory queue.
func (w *SheetsWorker) enqueue(ctx context.Context, taskType string, objectID int64, payload workerTaskPayload) error {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}

	syncTask := models.SyncTask{
		TaskType: taskType,
		ObjectID: objectID,
		Payload:  string(payloadBytes),
		Status:   "pending",
	}

	if err := w.db.CreateSyncTask(ctx, &syncTask); err != nil {
		return fmt.Errorf("persist sync task: %w", err)
	}

	// Try redis first for durability.
	if w.redis != nil {
		if err := w.lpushTask(ctx, w.redisQueueKey, &syncTask); err != nil {
			w.logger.Warn().Err(err).Msg("sheets worker redis push failed, fallback to memory queue")
		} else {
			return nil
		}
	}

	// Fallback to in-memory queue if redis missing or failed.
	select {
	case w.queue <- syncTask:
	default:
		w.logger.Warn().Int64("task_id", syncTask.ID).Msg("sheets worker in-memory queue full, task dropped to polling")
	}

	return nil
}

// Start launches the main loop; stops when ctx is done.
func (w *SheetsWorker) Start(ctx context.Context) {
	w.logger.Info().Msg("sheets worker started")
	defer w.logger.Info().Msg("sheets worker stopped")

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if t, ok := w.tryLocalQueue(); ok {
			w.processTask(ctx, &t)
			continue
		}

		if t, ok := w.tryRedis(ctx); ok {
			w.processTask(ctx, &t)
			continue
		}

		tasks, err := w.db.GetPendingSyncTasks(ctx, w.batchSize)
		if err != nil {
			w.logger.Error().Err(err).Msg("sheets worker fetch pending failed")
			time.Sleep(w.pollInterval)
			continue
		}
		if len(tasks) == 0 {
			time.Sleep(w.pollInterval)
			continue
		}

		for i := range tasks {
			w.processTask(ctx, &tasks[i])
		}
	}
}

func (w *SheetsWorker) tryLocalQueue() (models.SyncTask, bool) {
	select {
	case t := <-w.queue:
		return t, true
	default:
		return models.SyncTask{}, false
	}
}

func (w *SheetsWorker) tryRedis(ctx context.Context) (models.SyncTask, bool) {
	if w.redis == nil {
		return models.SyncTask{}, false
	}
	res, err := w.redis.BRPop(ctx, time.Second, w.redisQueueKey).Result()
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, redis.Nil) {
			return models.SyncTask{}, false
		}
		w.logger.Error().Err(err).Msg("sheets worker redis BRPOP error")
		return models.SyncTask{}, false
	}
	if len(res) != 2 {
		return models.SyncTask{}, false
	}
	var task models.SyncTask
	if err := json.Unmarshal([]byte(res[1]), &task); err != nil {
		w.logger.Error().Err(err).Msg("sheets worker decode redis task failed")
		return models.SyncTask{}, false
	}
	return task, true
}

func (w *SheetsWorker) processTask(ctx context.Context, task *models.SyncTask) {
	var payload workerTaskPayload
	if err := json.Unmarshal([]byte(task.Payload), &payload); err != nil {
		w.failTask(ctx, task, fmt.Errorf("decode payload: %w", err))
		return
	}

	if err := w.handleTask(ctx, task.TaskType, payload); err != nil {
		w.retryOrFail(ctx, task, err)
		return
	}

	if err := w.db.UpdateSyncTaskStatus(ctx, task.ID, "completed", "", nil); err != nil {
		w.logger.Error().Err(err).Int64("task_id", task.ID).Msg("sheets worker mark completed failed")
	}
}

func (w *SheetsWorker) handleTask(ctx context.Context, taskType string, payload workerTaskPayload) error {
	switch taskType {
	case TaskBookingUpsert:
		if payload.Booking == nil {
			return errors.New("booking payload missing")
		}
		return w.sheets.UpsertBooking(ctx, payload.Booking)
	case TaskStatusUpdate:
		if payload.BookingID == 0 || payload.Status == "" {
			return errors.New("booking id or status missing")
		}
		return w.sheets.UpdateBookingStatus(ctx, payload.BookingID, payload.Status)
	case TaskAuditAppend:
		if payload.Audit == nil {
			return errors.New("audit payload missing")
		}
		return w.sheets.AppendAuditEntry(ctx, payload.Audit)
	default:
		return fmt.Errorf("unknown task type: %s", taskType)
	}
}

func (w *SheetsWorker) retryOrFail(ctx context.Context, task *models.SyncTask, cause error) {
	attempt := task.RetryCount + 1
	if attempt >= w.retryPolicy.MaxRetries {
		if err := w.db.UpdateSyncTaskStatus(ctx, task.ID, "failed", cause.Error(), nil); err != nil {
			w.logger.Error().Err(err).Int64("task_id", task.ID).Msg("sheets worker mark failed failed")
		}
		w.pushDeadLetter(ctx, task)
		return
	}

	nextDelay := w.retryPolicy.NextDelay(attempt)
	nextTime := time.Now().Add(nextDelay)
	if err := w.db.UpdateSyncTaskStatus(ctx, task.ID, "retry", cause.Error(), &nextTime); err != nil {
		w.logger.Error().Err(err).Int64("task_id", task.ID).Msg("sheets worker mark retry failed")
	}
}

func (w *SheetsWorker) failTask(ctx context.Context, task *models.SyncTask, cause error) {
	if err := w.db.UpdateSyncTaskStatus(ctx, task.ID, "failed", cause.Error(), nil); err != nil {
		w.logger.Error().Err(err).Int64("task_id", task.ID).Msg("sheets worker mark failed failed")
	}
	w.pushDeadLetter(ctx, task)
}

func (w *SheetsWorker) lpushTask(ctx context.Context, key string, task *models.SyncTask) error {
	if w.redis == nil {
		return errors.New("redis client is nil")
	}
	data, err := json.Marshal(task)
	if err != nil {
		return err
	}
	return w.redis.LPush(ctx, key, data).Err()
}

func (w *SheetsWorker) pushDeadLetter(ctx context.Context, task *models.SyncTask) {
	if w.redis == nil {
		return
	}
	if err := w.lpushTask(ctx, w.deadLetterKey, task); err != nil {
		w.logger.Error().Err(err).Int64("task_id", task.ID).Msg("sheets worker deadletter push failed")
	}
}
