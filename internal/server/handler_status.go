package server

import (
	"net/http"
	"runtime"
	"strconv"
	"time"

	"github.com/me/schedlab/internal/control"
	"github.com/me/schedlab/internal/recorder"
	"github.com/me/schedlab/pkg/model"
)

type healthResponse struct {
	Status    string `json:"status"`
	GoVersion string `json:"go_version"`
	Uptime    string `json:"uptime"`
	RunID     string `json:"run_id"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())
	respondOK(w, reqID, healthResponse{
		Status:    "healthy",
		GoVersion: runtime.Version(),
		Uptime:    time.Since(s.src.StartedAt).Round(time.Second).String(),
		RunID:     s.src.RunID,
	})
}

type occupancyView struct {
	Admitted int `json:"admitted"`
	Ceiling  int `json:"ceiling"`
}

type statusResponse struct {
	RunID     string                                `json:"run_id"`
	Policy    string                                `json:"policy"`
	Total     int                                   `json:"total"`
	Completed int                                   `json:"completed"`
	Failed    int                                   `json:"failed"`
	ByType    map[model.TaskType]recorder.TypeStats `json:"by_type"`
	Occupancy *occupancyView                        `json:"occupancy,omitempty"`
	Ticks     []control.TickSample                  `json:"ticks,omitempty"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())

	resp := statusResponse{
		RunID:     s.src.RunID,
		Policy:    s.src.Policy,
		Total:     s.src.Total,
		Completed: s.src.Recorder.CompletedCount(),
		Failed:    s.src.Recorder.FailedCount(),
		ByType:    s.src.Recorder.SnapshotByType(),
	}
	if s.src.Adaptive != nil {
		if admitted, ceiling, ok := s.src.Adaptive.Occupancy(); ok {
			resp.Occupancy = &occupancyView{Admitted: admitted, Ceiling: ceiling}
		}
		resp.Ticks = s.src.Adaptive.History()
	}

	respondOK(w, reqID, resp)
}

func (s *Server) handleThroughput(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())

	buckets := 10
	if q := r.URL.Query().Get("buckets"); q != "" {
		n, err := strconv.Atoi(q)
		if err != nil || n < 1 || n > 1000 {
			respondError(w, reqID, http.StatusBadRequest, "buckets must be an integer in [1, 1000]")
			return
		}
		buckets = n
	}

	respondOK(w, reqID, s.src.Recorder.ThroughputOverTime(buckets))
}
