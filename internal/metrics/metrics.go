package metrics

import (
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	PassForward = "forward"
	PassReverse = "reverse"

	StopEnd    = "end"
	StopLength = "length"
)

var (
	SamplesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "quill_samples_total",
		Help: "Samples decoded, by model type",
	}, []string{"model_type"})

	GeneratedAtomsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "quill_generated_atoms_total",
		Help: "Atoms generated, by decoding pass",
	}, []string{"pass"})

	StopReasons = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "quill_decode_stop_total",
		Help: "Why decoding stopped: end atom or length cap",
	}, []string{"pass", "reason"})

	DecodeDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "quill_decode_duration_seconds",
		Help:    "Wall time of one decoding pass",
		Buckets: prometheus.DefBuckets,
	}, []string{"pass"})

	GeneratedLength = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "quill_generated_length_atoms",
		Help:    "Distribution of generated sequence lengths",
		Buckets: []float64{1, 5, 10, 25, 50, 100, 200, 500, 1000},
	})

	CheckpointLoadDuration = promauto.NewSummary(prometheus.SummaryOpts{
		Name: "quill_checkpoint_load_seconds",
		Help: "Time spent loading and validating a checkpoint",
	})

	CheckpointParameters = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "quill_checkpoint_parameters",
		Help: "Parameter count of the loaded checkpoint",
	})

	NumericalInstability = promauto.NewCounter(prometheus.CounterOpts{
		Name: "quill_logits_non_finite_total",
		Help: "Steps whose logits contained NaN or Inf",
	})

	Errors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "quill_errors_total",
		Help: "Errors by operation",
	}, []string{"operation"})

	ExportedRecords = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "quill_exported_rows_total",
		Help: "Rows written by exporters",
	}, []string{"sink"})
)

func RecordSample(modelType string) {
	SamplesTotal.WithLabelValues(modelType).Inc()
	health.mu.Lock()
	health.samples++
	health.mu.Unlock()
}

// RecordPass records one finished decoding pass.
func RecordPass(pass string, atoms int, hitEnd bool, duration time.Duration) {
	GeneratedAtomsTotal.WithLabelValues(pass).Add(float64(atoms))
	GeneratedLength.Observe(float64(atoms))
	DecodeDuration.WithLabelValues(pass).Observe(duration.Seconds())
	reason := StopLength
	if hitEnd {
		reason = StopEnd
	}
	StopReasons.WithLabelValues(pass, reason).Inc()
}

func RecordCheckpointLoad(params int64, duration time.Duration) {
	CheckpointParameters.Set(float64(params))
	CheckpointLoadDuration.Observe(duration.Seconds())
}

func RecordNonFinite() {
	NumericalInstability.Inc()
}

func RecordError(operation string) {
	Errors.WithLabelValues(operation).Inc()
}

func RecordExport(sink string, rows int) {
	ExportedRecords.WithLabelValues(sink).Add(float64(rows))
}

// Handler serves /metrics and /healthz.
func Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", healthHandler)
	return mux
}

// Serve exposes Handler on addr until the server fails. It returns nil on a
// clean shutdown.
func Serve(addr string) error {
	mux := Handler()
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
