package metrics

import (
	"encoding/json"
	"net/http"
	"runtime"
	"sync"
	"time"
)

// HealthStatus is served on /healthz.
type HealthStatus struct {
	Status     string        `json:"status"`
	Timestamp  time.Time     `json:"timestamp"`
	Uptime     time.Duration `json:"uptime"`
	GoVersion  string        `json:"go_version"`
	Checkpoint string        `json:"checkpoint,omitempty"`
	ModelType  string        `json:"model_type,omitempty"`
	Samples    int           `json:"samples"`
}

type healthState struct {
	mu         sync.RWMutex
	started    time.Time
	checkpoint string
	modelType  string
	samples    int
}

var health = &healthState{started: time.Now()}

// SetCheckpoint records the loaded checkpoint for /healthz.
func SetCheckpoint(name, modelType string) {
	health.mu.Lock()
	defer health.mu.Unlock()
	health.checkpoint = name
	health.modelType = modelType
}

// Health returns the current status. It is "starting" until a checkpoint is
// loaded.
func Health() HealthStatus {
	health.mu.RLock()
	defer health.mu.RUnlock()
	s := HealthStatus{
		Status:     "ok",
		Timestamp:  time.Now(),
		Uptime:     time.Since(health.started),
		GoVersion:  runtime.Version(),
		Checkpoint: health.checkpoint,
		ModelType:  health.modelType,
		Samples:    health.samples,
	}
	if health.checkpoint == "" {
		s.Status = "starting"
	}
	return s
}

func healthHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(Health())
}
