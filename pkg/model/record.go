package model

import "time"

// ExecutionRecord is one entry in the recorder's ledger: a task observed on a
// worker, with offsets measured from the start of the run. A record is open
// (Done false) between RecordStart and RecordEnd. The recorder owns the
// collection; callers only ever see copies.
type ExecutionRecord struct {
	TaskID      int           `json:"task_id"`
	WorkerID    int           `json:"worker_id"`
	Type        TaskType      `json:"type"`
	StartOffset time.Duration `json:"start_offset"`
	EndOffset   time.Duration `json:"end_offset"`
	Failed      bool          `json:"failed"`
	Done        bool          `json:"done"`
}

// Duration returns the record's elapsed time, or 0 while the record is open.
func (r ExecutionRecord) Duration() time.Duration {
	if !r.Done {
		return 0
	}
	return r.EndOffset - r.StartOffset
}
