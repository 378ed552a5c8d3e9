package metrics

import (
	"net/http"
	"strconv"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	promhttp "github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ersonp/onto-core/internal/domain/ports"
)

// Prometheus records measurements into its own registry.
type Prometheus struct {
	registry      *prom.Registry
	commitTotal   *prom.CounterVec
	commitSeconds *prom.HistogramVec
	lockWait      *prom.HistogramVec
	conflicts     prom.Counter
	transitions   *prom.CounterVec
}

var _ ports.Recorder = (*Prometheus)(nil)

// NewPrometheus creates a recorder with all collectors registered.
func NewPrometheus() *Prometheus {
	p := &Prometheus{
		registry: prom.NewRegistry(),
		commitTotal: prom.NewCounterVec(prom.CounterOpts{
			Name: "onto_commits_total",
			Help: "Total number of commit attempts by operation",
		}, []string{"op", "success"}),
		commitSeconds: prom.NewHistogramVec(prom.HistogramOpts{
			Name:    "onto_commit_seconds",
			Help:    "Commit duration in seconds, lock wait included",
			Buckets: prom.DefBuckets,
		}, []string{"op", "success"}),
		lockWait: prom.NewHistogramVec(prom.HistogramOpts{
			Name:    "onto_lock_wait_seconds",
			Help:    "Time spent waiting for the knowledge base lock",
			Buckets: prom.DefBuckets,
		}, []string{"acquired"}),
		conflicts: prom.NewCounter(prom.CounterOpts{
			Name: "onto_conflicts_total",
			Help: "Total number of conflicts that blocked a merge",
		}),
		transitions: prom.NewCounterVec(prom.CounterOpts{
			Name: "onto_transitions_total",
			Help: "Total number of merge request transitions by action",
		}, []string{"action"}),
	}

	p.registry.MustRegister(p.commitTotal, p.commitSeconds, p.lockWait, p.conflicts, p.transitions)
	return p
}

func (p *Prometheus) ObserveCommit(op string, success bool, d time.Duration) {
	label := strconv.FormatBool(success)
	p.commitTotal.WithLabelValues(op, label).Inc()
	p.commitSeconds.WithLabelValues(op, label).Observe(d.Seconds())
}

func (p *Prometheus) ObserveLockWait(acquired bool, d time.Duration) {
	p.lockWait.WithLabelValues(strconv.FormatBool(acquired)).Observe(d.Seconds())
}

func (p *Prometheus) AddConflicts(n int) {
	p.conflicts.Add(float64(n))
}

func (p *Prometheus) IncTransition(action string) {
	p.transitions.WithLabelValues(action).Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (p *Prometheus) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry.
func (p *Prometheus) Registry() *prom.Registry {
	return p.registry
}
