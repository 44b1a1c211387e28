package observability

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/aretw0/espalier/pkg/domain"
	"github.com/aretw0/espalier/pkg/views"
)

const namespace = "espalier"

// Recorder counts view churn and lifecycle events in Prometheus.
// It is a views.Observer; its Hooks feed the lifecycle counters.
type Recorder struct {
	viewsCreated   *prometheus.CounterVec
	viewsDestroyed *prometheus.CounterVec
	reconciles     *prometheus.CounterVec
	reconcileAdds  *prometheus.CounterVec
	reconcileDrops *prometheus.CounterVec
	nodeEvents     *prometheus.CounterVec
	connEvents     *prometheus.CounterVec
}

var _ views.Observer = (*Recorder)(nil)

// NewRecorder creates the collectors and registers them with reg.
func NewRecorder(reg prometheus.Registerer) (*Recorder, error) {
	r := &Recorder{
		viewsCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "views",
			Name:      "created_total",
			Help:      "Views built, by view set",
		}, []string{"set"}),
		viewsDestroyed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "views",
			Name:      "destroyed_total",
			Help:      "Views destroyed, by view set",
		}, []string{"set"}),
		reconciles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "views",
			Name:      "reconciles_total",
			Help:      "Reconcile passes, by view set",
		}, []string{"set"}),
		reconcileAdds: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "views",
			Name:      "reconcile_added_total",
			Help:      "Views added by reconcile passes",
		}, []string{"set"}),
		reconcileDrops: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "views",
			Name:      "reconcile_removed_total",
			Help:      "Views removed by reconcile passes",
		}, []string{"set"}),
		nodeEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "nodes",
			Name:      "events_total",
			Help:      "Node lifecycle events, by event and node type",
		}, []string{"event", "type"}),
		connEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "connections",
			Name:      "events_total",
			Help:      "Connection lifecycle events, by event and group",
		}, []string{"event", "group"}),
	}

	for _, c := range []prometheus.Collector{
		r.viewsCreated, r.viewsDestroyed, r.reconciles, r.reconcileAdds,
		r.reconcileDrops, r.nodeEvents, r.connEvents,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// ViewCreated implements views.Observer.
func (r *Recorder) ViewCreated(set string) { r.viewsCreated.WithLabelValues(set).Inc() }

// ViewDestroyed implements views.Observer.
func (r *Recorder) ViewDestroyed(set string) { r.viewsDestroyed.WithLabelValues(set).Inc() }

// Reconciled implements views.Observer.
func (r *Recorder) Reconciled(set string, added, removed int) {
	r.reconciles.WithLabelValues(set).Inc()
	r.reconcileAdds.WithLabelValues(set).Add(float64(added))
	r.reconcileDrops.WithLabelValues(set).Add(float64(removed))
}

// Hooks returns lifecycle hooks feeding the node and connection counters.
func (r *Recorder) Hooks() domain.LifecycleHooks {
	node := func(e *domain.NodeEvent) {
		r.nodeEvents.WithLabelValues(string(e.Type), e.NodeType).Inc()
	}
	conn := func(e *domain.ConnectionEvent) {
		r.connEvents.WithLabelValues(string(e.Type), e.Group).Inc()
	}
	return domain.LifecycleHooks{
		OnNodeCreate:  node,
		OnNodeDestroy: node,
		OnModeSwitch:  node,
		OnSlotReset:   node,
		OnConnect:     conn,
		OnDisconnect:  conn,
	}
}
