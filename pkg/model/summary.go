package model

import "time"

// Summary is the result of one policy run over a batch of tasks.
// Completed + Failed equals the number of tasks actually submitted; it can
// fall short of Total only when the run's context was cancelled mid-batch.
type Summary struct {
	Policy    string        `json:"policy"`
	Total     int           `json:"total"`
	Completed int           `json:"completed"`
	Failed    int           `json:"failed"`
	Elapsed   time.Duration `json:"elapsed"`
}
