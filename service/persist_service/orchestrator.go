package persist_service

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"sync"
	"time"

	"fashion-studio/common/logger"
	"fashion-studio/model"
)

var (
	ErrQueueFull = errors.New("persist queue full")
	ErrClosed    = errors.New("persist orchestrator closed")
)

// Config sizes the orchestrator.
type Config struct {
	Workers     int
	QueueSize   int
	TaskTimeout time.Duration
}

// Orchestrator runs persistence tasks after the response has been sent.
// Tasks for one user always land on the same lane and run in the order they
// were scheduled. A task runs at most once; failures go to the dead-letter
// log and are never retried here.
type Orchestrator struct {
	store   Store
	dead    *DeadLetterLog
	log     *logger.Logger
	lanes   []chan Task
	timeout time.Duration

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

func NewOrchestrator(store Store, dead *DeadLetterLog, cfg Config, log *logger.Logger) *Orchestrator {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 64
	}
	if cfg.TaskTimeout <= 0 {
		cfg.TaskTimeout = 2 * time.Minute
	}
	o := &Orchestrator{
		store:   store,
		dead:    dead,
		log:     log,
		lanes:   make([]chan Task, cfg.Workers),
		timeout: cfg.TaskTimeout,
	}
	for i := range o.lanes {
		o.lanes[i] = make(chan Task, cfg.QueueSize)
		o.wg.Add(1)
		go o.work(i, o.lanes[i])
	}
	log.Info("Persist orchestrator started", "workers", cfg.Workers, "queue_size", cfg.QueueSize)
	return o
}

// Schedule enqueues t without blocking. When its lane is full the task is
// dead-lettered with its payload and ErrQueueFull is returned.
func (o *Orchestrator) Schedule(t Task) error {
	o.mu.RLock()
	defer o.mu.RUnlock()

	if o.closed {
		o.fail(t, model.PersistStageQueue, "", ErrClosed, true)
		return ErrClosed
	}
	select {
	case o.lanes[o.laneFor(t.UserID)] <- t:
		return nil
	default:
		o.fail(t, model.PersistStageQueue, "", ErrQueueFull, true)
		return ErrQueueFull
	}
}

// Shutdown stops accepting tasks and waits for queued ones to finish.
func (o *Orchestrator) Shutdown(ctx context.Context) error {
	o.mu.Lock()
	if !o.closed {
		o.closed = true
		for _, lane := range o.lanes {
			close(lane)
		}
	}
	o.mu.Unlock()

	done := make(chan struct{})
	go func() {
		o.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		o.log.Info("Persist orchestrator drained")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("drain persist queue: %w", ctx.Err())
	}
}

func (o *Orchestrator) laneFor(userID string) int {
	h := fnv.New32a()
	h.Write([]byte(userID))
	return int(h.Sum32() % uint32(len(o.lanes)))
}

func (o *Orchestrator) work(id int, lane <-chan Task) {
	defer o.wg.Done()
	for t := range lane {
		o.process(t)
	}
	o.log.Debug("Persist lane stopped", "lane", id)
}

// process uploads the payload, then writes the record.
func (o *Orchestrator) process(t Task) {
	stage := model.PersistStageUpload
	url := ""
	defer func() {
		if r := recover(); r != nil {
			o.fail(t, stage, url, fmt.Errorf("panic: %v", r), url == "")
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), o.timeout)
	defer cancel()

	var err error
	url, err = o.store.UploadFile(ctx, t.Data, t.Key, t.ContentType)
	if err != nil {
		url = ""
		o.fail(t, stage, "", err, true)
		return
	}

	stage = model.PersistStageLedger
	asset := t.Asset
	asset.URL = url
	if _, err := o.store.SaveAssetRecord(ctx, t.UserID, &asset); err != nil {
		o.fail(t, stage, url, err, false)
		return
	}
	o.log.Debug("Asset persisted", "user_id", t.UserID, "asset_id", asset.ID, "type", asset.Type)
}

// fail logs the failure and writes a dead letter. spool keeps the bytes when
// no store holds them.
func (o *Orchestrator) fail(t Task, stage model.PersistStage, url string, cause error, spool bool) {
	o.log.Error("Asset persistence failed", "user_id", t.UserID, "stage", stage, "key", t.Key, "error", cause)
	if o.dead == nil {
		return
	}
	f := &model.PersistFailure{
		UserID:      t.UserID,
		Stage:       stage,
		Key:         t.Key,
		ContentType: t.ContentType,
		URL:         url,
		Asset:       t.Asset,
		Error:       cause.Error(),
	}
	var payload []byte
	if spool {
		payload = t.Data
	}
	if err := o.dead.Record(f, payload); err != nil {
		o.log.Error("Dead letter write failed", "user_id", t.UserID, "key", t.Key, "error", err)
	}
}
