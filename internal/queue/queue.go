package queue

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/muratoffalex/omnibot/internal/commands"
	"github.com/muratoffalex/omnibot/internal/database"
	"github.com/muratoffalex/omnibot/internal/logger"
	"github.com/muratoffalex/omnibot/internal/telegram"
)

type TaskStatus string

const (
	TaskStatusPending  TaskStatus = "pending"
	TaskStatusRunning  TaskStatus = "running"
	TaskStatusComplete TaskStatus = "complete"
	TaskStatusFailed   TaskStatus = "failed"
)

const idlePollInterval = time.Second

var ErrEmptyCommand = errors.New("command name cannot be empty")

type Task struct {
	ID          int64
	Command     string
	UpdateData  []byte
	RetryCount  int
	MaxRetries  int
	RetryDelay  time.Duration
	LastAttempt time.Time
	NextAttempt time.Time
	Status      TaskStatus
	Update      *telegram.Update
}

func (t *Task) GetUpdate() (*telegram.Update, error) {
	if t.Update != nil {
		return t.Update, nil
	}

	var update telegram.Update
	if err := json.Unmarshal(t.UpdateData, &update); err != nil {
		return nil, fmt.Errorf("failed to unmarshal update data: %w", err)
	}
	t.Update = &update
	return t.Update, nil
}

// Queue persists command updates in the tasks table and runs them through
// per-command workers, throttled by a rate limiter and a concurrency cap.
type Queue struct {
	db           database.Database
	mu           sync.RWMutex
	limiters     map[string]*rate.Limiter
	pollInterval time.Duration
	logger       logger.Logger
}

func NewQueue(db database.Database, l logger.Logger) *Queue {
	return &Queue{
		db:           db,
		limiters:     make(map[string]*rate.Limiter),
		pollInterval: idlePollInterval,
		logger:       l.WithField("component", "queue"),
	}
}

// Add stores the update as a pending task. retryDelay is in milliseconds.
func (q *Queue) Add(ctx context.Context, cmd commands.Command, update telegram.Update, maxRetries int, retryDelay int64) error {
	cmdName := cmd.Name()
	if cmdName == "" {
		return ErrEmptyCommand
	}

	log := logger.FromContext(ctx, q.logger).WithFields(logger.Fields{
		"command":   cmdName,
		"update_id": update.UpdateID,
	})

	updateData, err := json.Marshal(update)
	if err != nil {
		return fmt.Errorf("failed to marshal update: %w", err)
	}

	_, err = q.db.ExecWithRetry(ctx, `
        INSERT INTO tasks (command, update_data, max_retries, retry_delay, next_attempt)
        VALUES (?, ?, ?, ?, ?)
    `, cmdName, updateData, maxRetries, retryDelay, time.Now().UTC())
	if err != nil {
		log.WithError(err).Error("Failed to add task")
		return err
	}

	log.Debug("Task added to queue")
	return nil
}

// Start launches workers for every handler. Tasks left running by a previous
// process are returned to pending first.
func (q *Queue) Start(ctx context.Context, handlers map[string]commands.Command) {
	if n, err := q.resetRunning(ctx); err != nil {
		q.logger.WithError(err).Error("Failed to reset running tasks")
	} else if n > 0 {
		q.logger.WithField("tasks", n).Info("Requeued interrupted tasks")
	}

	for cmd, handler := range handlers {
		q.StartCommand(ctx, cmd, handler)
	}
}

func (q *Queue) StartCommand(ctx context.Context, command string, handler commands.Command) {
	cfg := handler.GetQueueConfig()
	requests := max(cfg.Throttle.Requests, 1)
	concurrency := max(cfg.Throttle.Concurrency, 1)
	interval := cfg.Throttle.Period / time.Duration(requests)

	limiter := rate.NewLimiter(rate.Every(interval), requests)

	q.mu.Lock()
	q.limiters[command] = limiter
	q.mu.Unlock()

	q.logger.WithFields(logger.Fields{
		"command":     command,
		"period":      cfg.Throttle.Period,
		"requests":    requests,
		"interval":    interval,
		"concurrency": concurrency,
	}).Info("Configured rate limiter")

	for range concurrency {
		go q.taskWorker(ctx, command, handler, limiter)
	}
}

func (q *Queue) taskWorker(ctx context.Context, command string, h commands.Command, lim *rate.Limiter) {
	log := q.logger.WithField("command", command)
	log.Debug("Worker started")
	defer log.Debug("Worker stopped")

	for {
		if ctx.Err() != nil {
			return
		}

		task, err := q.lockAndGetTask(ctx, command)
		if err != nil {
			if ctx.Err() == nil {
				log.WithError(err).Error("Failed to get task")
			}
			if !sleep(ctx, q.pollInterval) {
				return
			}
			continue
		}
		if task == nil {
			log.Trace("No tasks available")
			if !sleep(ctx, q.pollInterval) {
				return
			}
			continue
		}

		reserve := lim.Reserve()
		if delay := reserve.Delay(); delay > 0 {
			log.WithFields(logger.Fields{
				"task":     task.ID,
				"wait_for": delay.String(),
			}).Debug("Rate limiting - delaying task")

			if !sleep(ctx, delay) {
				reserve.Cancel()
				q.release(task.ID)
				return
			}
		}

		if err := q.runTask(ctx, *task, h); err != nil {
			log.WithError(err).WithField("task_id", task.ID).Error("Task processing failed")
		}
	}
}

func (q *Queue) runTask(ctx context.Context, task Task, h commands.Command) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("recovered from panic: %v", r)
			if hErr := q.handleTaskError(context.WithoutCancel(ctx), task); hErr != nil {
				err = errors.Join(err, hErr)
			}
		}
	}()
	return q.handleTask(ctx, task, h)
}

func (q *Queue) handleTask(ctx context.Context, task Task, handler commands.Command) error {
	timeout := handler.GetQueueConfig().Timeout
	log := q.logger.WithFields(logger.Fields{
		"command": task.Command,
		"task_id": task.ID,
	})

	update, err := task.GetUpdate()
	if err != nil {
		log.WithError(err).Error("Dropping task with broken update data")
		return q.updateTaskStatus(context.WithoutCancel(ctx), task.ID, TaskStatusFailed)
	}

	execCtx := logger.NewContext(ctx, log)
	if timeout > 0 {
		var cancel context.CancelFunc
		execCtx, cancel = context.WithTimeout(execCtx, timeout)
		defer cancel()
	}

	log.WithField("timeout", timeout.String()).Debug("Start processing task")
	start := time.Now()

	err = handler.Execute(execCtx, *update)
	// bookkeeping must survive shutdown and the handler timeout
	dbCtx := context.WithoutCancel(ctx)

	if err != nil {
		fields := logger.Fields{"duration": time.Since(start).String()}
		if errors.Is(execCtx.Err(), context.DeadlineExceeded) {
			fields["timeout_reason"] = "deadline_exceeded"
		}
		log.WithError(err).WithFields(fields).Error("Handler execution failed")
		return q.handleTaskError(dbCtx, task)
	}

	if err := q.updateTaskStatus(dbCtx, task.ID, TaskStatusComplete); err != nil {
		return fmt.Errorf("failed to mark task as complete: %w", err)
	}

	log.WithField("duration", time.Since(start).String()).Info("Task completed successfully")
	return nil
}

func (q *Queue) handleTaskError(ctx context.Context, task Task) error {
	log := q.logger.WithFields(logger.Fields{
		"command":     task.Command,
		"task_id":     task.ID,
		"retry_count": task.RetryCount,
		"max_retries": task.MaxRetries,
	})

	if task.RetryCount >= task.MaxRetries {
		log.Warn("Max retries exceeded, marking as failed")
		return q.updateTaskStatus(ctx, task.ID, TaskStatusFailed)
	}

	delay := task.RetryDelay
	if delay <= 0 {
		q.mu.RLock()
		limiter, ok := q.limiters[task.Command]
		q.mu.RUnlock()
		if ok {
			r := limiter.Reserve()
			delay = r.Delay()
			r.Cancel()
		}
	}

	nextAttempt := time.Now().UTC().Add(delay)
	_, err := q.db.ExecWithRetry(ctx, `
		UPDATE tasks
		SET status = ?, retry_count = retry_count + 1, next_attempt = ?
		WHERE id = ?
	`, TaskStatusPending, nextAttempt, task.ID)
	if err != nil {
		log.WithError(err).Error("Failed to reschedule task")
		return err
	}

	log.WithField("next_attempt", nextAttempt).Info("Task rescheduled")
	return nil
}

func (q *Queue) lockAndGetTask(ctx context.Context, command string) (*Task, error) {
	var (
		task       Task
		retryDelay int64
	)
	now := time.Now().UTC()
	err := q.db.QueryRowContext(ctx, `
        UPDATE tasks
        SET status = ?, last_attempt = ?
        WHERE id = (
            SELECT id FROM tasks
            WHERE command = ? AND status = ? AND next_attempt <= ?
            ORDER BY id ASC
            LIMIT 1
        )
        RETURNING id, command, update_data, retry_count, max_retries, retry_delay`,
		TaskStatusRunning, now, command, TaskStatusPending, now,
	).Scan(
		&task.ID, &task.Command, &task.UpdateData,
		&task.RetryCount, &task.MaxRetries, &retryDelay,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	task.RetryDelay = time.Duration(retryDelay) * time.Millisecond
	task.Status = TaskStatusRunning
	task.LastAttempt = now
	return &task, nil
}

func (q *Queue) updateTaskStatus(ctx context.Context, taskID int64, status TaskStatus) error {
	q.logger.WithField("task_id", taskID).Debug("Marking task as " + string(status))

	_, err := q.db.ExecWithRetry(ctx,
		"UPDATE tasks SET status = ? WHERE id = ?",
		status, taskID)
	return err
}

// release returns a claimed but unstarted task to pending.
func (q *Queue) release(taskID int64) {
	if err := q.updateTaskStatus(context.Background(), taskID, TaskStatusPending); err != nil {
		q.logger.WithError(err).WithField("task_id", taskID).Error("Failed to release task")
	}
}

func (q *Queue) resetRunning(ctx context.Context) (int64, error) {
	res, err := q.db.ExecWithRetry(ctx,
		"UPDATE tasks SET status = ? WHERE status = ?",
		TaskStatusPending, TaskStatusRunning)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
