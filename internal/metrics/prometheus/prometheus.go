package prometheus

import (
	"context"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/slok/gsx/internal/metrics"
	"github.com/slok/gsx/internal/model"
)

const namespace = "gsx"

// Recorder is the Prometheus implementation of metrics.Recorder.
type Recorder struct {
	operationDuration  *prometheus.HistogramVec
	instanceTransition *prometheus.CounterVec
	consoleCommands    *prometheus.CounterVec
}

// NewRecorder returns a new Prometheus recorder registered on reg.
func NewRecorder(reg prometheus.Registerer) *Recorder {
	r := &Recorder{
		operationDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "lifecycle",
			Name:      "operation_duration_seconds",
			Help:      "The duration of instance lifecycle operations.",
			Buckets:   []float64{0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}, []string{"operation", "success"}),

		instanceTransition: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "lifecycle",
			Name:      "instance_transitions_total",
			Help:      "Total number of instance status transitions.",
		}, []string{"from", "to"}),

		consoleCommands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "console",
			Name:      "commands_total",
			Help:      "Total number of console commands sent to instances.",
		}, []string{"success"}),
	}

	reg.MustRegister(
		r.operationDuration,
		r.instanceTransition,
		r.consoleCommands,
	)

	return r
}

func (r *Recorder) ObserveOperation(_ context.Context, op string, success bool, duration time.Duration) {
	r.operationDuration.WithLabelValues(op, strconv.FormatBool(success)).Observe(duration.Seconds())
}

func (r *Recorder) IncInstanceTransition(_ context.Context, from, to model.InstanceStatus) {
	r.instanceTransition.WithLabelValues(string(from), string(to)).Inc()
}

func (r *Recorder) IncConsoleCommand(_ context.Context, success bool) {
	r.consoleCommands.WithLabelValues(strconv.FormatBool(success)).Inc()
}

var _ metrics.Recorder = &Recorder{}
