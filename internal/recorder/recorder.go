package recorder

import (
	"log/slog"
	"sync"
	"time"

	"github.com/me/schedlab/pkg/model"
)

// TypeStats aggregates closed records for one task type.
type TypeStats struct {
	Count int           `json:"count"`
	Total time.Duration `json:"total"`
}

// ThroughputSample is one bucket of the completions-per-second series.
type ThroughputSample struct {
	BucketEnd time.Duration `json:"bucket_end"`
	PerSecond float64       `json:"per_second"`
}

// Recorder is the ledger of start/end events for one scheduling run and the
// single source of truth for run statistics. All mutation is serialized by
// an internal mutex held only for the bookkeeping itself, never across a
// call into a work executor.
//
// Reset must be called before each run; reusing a Recorder without Reset
// mixes offsets from different runs.
type Recorder struct {
	mu       sync.Mutex
	logger   *slog.Logger
	runStart time.Time
	records  []model.ExecutionRecord
}

// NewRecorder creates a Recorder ready for Reset.
func NewRecorder(logger *slog.Logger) *Recorder {
	return &Recorder{
		logger:   logger.With("component", "recorder"),
		runStart: time.Now(),
	}
}

// Reset clears all records and restarts the run clock.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = r.records[:0]
	r.runStart = time.Now()
}

// RecordStart appends an open record for the task on the given worker.
func (r *Recorder) RecordStart(taskID, workerID int, typ model.TaskType) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, model.ExecutionRecord{
		TaskID:      taskID,
		WorkerID:    workerID,
		Type:        typ,
		StartOffset: time.Since(r.runStart),
	})
}

// RecordEnd closes the most recent open record for (taskID, workerID).
// A missing open record indicates a caller bug; it is logged and ignored so
// one worker's bookkeeping error cannot corrupt the ledger for others.
func (r *Recorder) RecordEnd(taskID, workerID int, failed bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.records) - 1; i >= 0; i-- {
		rec := &r.records[i]
		if rec.TaskID == taskID && rec.WorkerID == workerID && !rec.Done {
			rec.EndOffset = time.Since(r.runStart)
			rec.Done = true
			rec.Failed = failed
			return
		}
	}
	r.logger.Warn("record end without matching open record",
		"task_id", taskID,
		"worker_id", workerID,
	)
}

// SnapshotByType aggregates closed records per task type.
func (r *Recorder) SnapshotByType() map[model.TaskType]TypeStats {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make(map[model.TaskType]TypeStats)
	for _, rec := range r.records {
		if !rec.Done {
			continue
		}
		s := out[rec.Type]
		s.Count++
		s.Total += rec.Duration()
		out[rec.Type] = s
	}
	return out
}

// SnapshotByWorker aggregates closed records per worker, then per type.
func (r *Recorder) SnapshotByWorker() map[int]map[model.TaskType]TypeStats {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make(map[int]map[model.TaskType]TypeStats)
	for _, rec := range r.records {
		if !rec.Done {
			continue
		}
		byType := out[rec.WorkerID]
		if byType == nil {
			byType = make(map[model.TaskType]TypeStats)
			out[rec.WorkerID] = byType
		}
		s := byType[rec.Type]
		s.Count++
		s.Total += rec.Duration()
		byType[rec.Type] = s
	}
	return out
}

// ThroughputOverTime splits [0, maxEndOffset] into numBuckets equal buckets
// and reports completions per second in each. Returns nil when no records
// are closed or numBuckets < 1.
func (r *Recorder) ThroughputOverTime(numBuckets int) []ThroughputSample {
	if numBuckets < 1 {
		return nil
	}

	r.mu.Lock()
	closed := make([]model.ExecutionRecord, 0, len(r.records))
	for _, rec := range r.records {
		if rec.Done {
			closed = append(closed, rec)
		}
	}
	r.mu.Unlock()

	if len(closed) == 0 {
		return nil
	}

	var span time.Duration
	for _, rec := range closed {
		if rec.EndOffset > span {
			span = rec.EndOffset
		}
	}
	if span <= 0 {
		span = time.Nanosecond
	}

	width := span / time.Duration(numBuckets)
	if width <= 0 {
		width = time.Nanosecond
	}

	counts := make([]int, numBuckets)
	for _, rec := range closed {
		idx := int(rec.EndOffset / width)
		if idx >= numBuckets {
			idx = numBuckets - 1
		}
		counts[idx]++
	}

	samples := make([]ThroughputSample, numBuckets)
	for i, n := range counts {
		samples[i] = ThroughputSample{
			BucketEnd: time.Duration(i+1) * width,
			PerSecond: float64(n) / width.Seconds(),
		}
	}
	return samples
}

// CompletedCount returns the number of closed records, failed ones included.
func (r *Recorder) CompletedCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, rec := range r.records {
		if rec.Done {
			n++
		}
	}
	return n
}

// FailedCount returns the number of closed records flagged as failed.
func (r *Recorder) FailedCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, rec := range r.records {
		if rec.Done && rec.Failed {
			n++
		}
	}
	return n
}

// Records returns a copy of the ledger, open records included.
func (r *Recorder) Records() []model.ExecutionRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]model.ExecutionRecord, len(r.records))
	copy(out, r.records)
	return out
}
