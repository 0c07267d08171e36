package audit

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Recorder writes records to a Store from a background worker so the
// request path never waits on the database.
type Recorder struct {
	store        Store
	records      chan *Record
	writeTimeout time.Duration
	logger       *slog.Logger

	wg        sync.WaitGroup
	done      chan struct{}
	closeOnce sync.Once

	// mu is held for reading while a record is enqueued so that Close
	// cannot mark the recorder closed between the check and the send.
	mu     sync.RWMutex
	closed bool

	dropped atomic.Int64
}

// NewRecorder starts a recorder with the given channel capacity. A
// non-positive bufferSize means 1000; a non-positive writeTimeout means 5s.
func NewRecorder(store Store, bufferSize int, writeTimeout time.Duration, logger *slog.Logger) *Recorder {
	if bufferSize <= 0 {
		bufferSize = 1000
	}
	if writeTimeout <= 0 {
		writeTimeout = 5 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}

	r := &Recorder{
		store:        store,
		records:      make(chan *Record, bufferSize),
		writeTimeout: writeTimeout,
		logger:       logger.With("component", "audit.recorder"),
		done:         make(chan struct{}),
	}

	r.wg.Add(1)
	go r.worker()

	return r
}

// Record enqueues record, filling ID and Timestamp when empty. It never
// blocks longer than the write timeout; records that cannot be enqueued
// are dropped and counted.
func (r *Recorder) Record(ctx context.Context, record *Record) {
	if record.ID == "" {
		record.ID = uuid.New().String()
	}
	if record.Timestamp.IsZero() {
		record.Timestamp = time.Now()
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		r.drop(record, "recorder closed")
		return
	}

	timer := time.NewTimer(r.writeTimeout)
	defer timer.Stop()

	select {
	case r.records <- record:
	case <-timer.C:
		r.drop(record, "audit channel full")
	case <-ctx.Done():
		r.drop(record, "request cancelled")
	}
}

func (r *Recorder) drop(record *Record, reason string) {
	r.dropped.Add(1)
	r.logger.Warn("dropping audit record",
		"reason", reason,
		"record_id", record.ID,
		"request_id", record.RequestID,
	)
}

// Dropped returns how many records were discarded.
func (r *Recorder) Dropped() int64 {
	return r.dropped.Load()
}

// Close stops accepting records, drains the queue and waits for the
// worker. Every record enqueued before Close is written. It does not close
// the store.
func (r *Recorder) Close() error {
	r.closeOnce.Do(func() {
		r.mu.Lock()
		r.closed = true
		close(r.done)
		r.mu.Unlock()
		r.wg.Wait()
	})
	return nil
}

func (r *Recorder) worker() {
	defer r.wg.Done()

	for {
		select {
		case record := <-r.records:
			r.write(record)
		case <-r.done:
			for {
				select {
				case record := <-r.records:
					r.write(record)
				default:
					return
				}
			}
		}
	}
}

func (r *Recorder) write(record *Record) {
	ctx, cancel := context.WithTimeout(context.Background(), r.writeTimeout)
	defer cancel()

	start := time.Now()
	if err := r.store.Save(ctx, record); err != nil {
		r.logger.Error("failed to store audit record",
			"record_id", record.ID,
			"request_id", record.RequestID,
			"error", err,
		)
		return
	}

	if d := time.Since(start); d > r.writeTimeout/2 {
		r.logger.Warn("slow audit write",
			"record_id", record.ID,
			"duration_ms", d.Milliseconds(),
		)
	}
}
