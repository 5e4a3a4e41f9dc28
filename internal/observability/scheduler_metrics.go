package observability

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/signalsfoundry/ransched/model"
)

// SchedulerCollector exposes slot dispatch metrics.
type SchedulerCollector struct {
	gatherer prometheus.Gatherer

	EventsProcessed  *prometheus.CounterVec
	EventsDropped    *prometheus.CounterVec
	DispatchDuration *prometheus.HistogramVec
	ActiveUEs        prometheus.Gauge
	CommonBacklog    prometheus.Gauge
	CellBacklog      *prometheus.GaugeVec

	// resolved children, so the dispatch path does not rebuild label slices
	mu        sync.Mutex
	processed map[eventSeries]prometheus.Counter
	dropped   map[eventSeries]prometheus.Counter
	durations [model.MaxCells]prometheus.Observer
	backlogs  [model.MaxCells]prometheus.Gauge
}

type eventSeries struct {
	cell   model.CellIndex
	kind   string
	reason string
}

// NewSchedulerCollector registers scheduler metrics against the provided registerer.
func NewSchedulerCollector(reg prometheus.Registerer) (*SchedulerCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	processed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sched_events_processed_total",
		Help: "UE events applied by the slot dispatch loop, labeled by cell and event kind.",
	}, []string{"cell", "kind"})
	processed, err := registerCounterVec(reg, processed, "sched_events_processed_total")
	if err != nil {
		return nil, err
	}

	dropped := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sched_events_dropped_total",
		Help: "UE events discarded by the slot dispatch loop, labeled by cell, event kind, and reason.",
	}, []string{"cell", "kind", "reason"})
	dropped, err = registerCounterVec(reg, dropped, "sched_events_dropped_total")
	if err != nil {
		return nil, err
	}

	durations := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "sched_dispatch_duration_seconds",
		Help:    "Time spent dispatching UE events for one cell in one slot.",
		Buckets: []float64{0.000005, 0.00001, 0.000025, 0.00005, 0.0001, 0.00025, 0.0005, 0.001},
	}, []string{"cell"})
	durations, err = registerHistogramVec(reg, durations, "sched_dispatch_duration_seconds")
	if err != nil {
		return nil, err
	}

	activeUEs, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "sched_active_ues",
		Help: "Number of UEs currently held by the scheduler repository.",
	}), "sched_active_ues")
	if err != nil {
		return nil, err
	}

	commonBacklog, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "sched_common_event_backlog",
		Help: "Common UE events still waiting for their PCell after the last dispatch.",
	}), "sched_common_event_backlog")
	if err != nil {
		return nil, err
	}

	cellBacklog := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "sched_cell_event_pending",
		Help: "Cell-specific events pushed since the last dispatch of the cell.",
	}, []string{"cell"})
	cellBacklog, err = registerGaugeVec(reg, cellBacklog, "sched_cell_event_pending")
	if err != nil {
		return nil, err
	}

	return &SchedulerCollector{
		gatherer:         gatherer,
		EventsProcessed:  processed,
		EventsDropped:    dropped,
		DispatchDuration: durations,
		ActiveUEs:        activeUEs,
		CommonBacklog:    commonBacklog,
		CellBacklog:      cellBacklog,
		processed:        make(map[eventSeries]prometheus.Counter),
		dropped:          make(map[eventSeries]prometheus.Counter),
	}, nil
}

// Gatherer returns the Prometheus gatherer associated with the collector.
func (c *SchedulerCollector) Gatherer() prometheus.Gatherer {
	if c == nil {
		return nil
	}
	return c.gatherer
}

// EventProcessed counts one applied event.
func (c *SchedulerCollector) EventProcessed(cell model.CellIndex, kind string) {
	if c == nil || c.EventsProcessed == nil {
		return
	}
	key := eventSeries{cell: cell, kind: kind}
	c.mu.Lock()
	ctr, ok := c.processed[key]
	if !ok {
		ctr = c.EventsProcessed.WithLabelValues(cellLabel(cell), kind)
		c.processed[key] = ctr
	}
	c.mu.Unlock()
	ctr.Inc()
}

// EventDropped counts one discarded event.
func (c *SchedulerCollector) EventDropped(cell model.CellIndex, kind, reason string) {
	if c == nil || c.EventsDropped == nil {
		return
	}
	key := eventSeries{cell: cell, kind: kind, reason: reason}
	c.mu.Lock()
	ctr, ok := c.dropped[key]
	if !ok {
		ctr = c.EventsDropped.WithLabelValues(cellLabel(cell), kind, reason)
		c.dropped[key] = ctr
	}
	c.mu.Unlock()
	ctr.Inc()
}

// ObserveDispatch records the time spent in one Run call.
func (c *SchedulerCollector) ObserveDispatch(cell model.CellIndex, d time.Duration) {
	if c == nil || c.DispatchDuration == nil || !cell.Valid() {
		return
	}
	c.mu.Lock()
	obs := c.durations[cell]
	if obs == nil {
		obs = c.DispatchDuration.WithLabelValues(cellLabel(cell))
		c.durations[cell] = obs
	}
	c.mu.Unlock()
	obs.Observe(d.Seconds())
}

// SetActiveUEs updates the repository size gauge.
func (c *SchedulerCollector) SetActiveUEs(n int) {
	if c == nil || c.ActiveUEs == nil {
		return
	}
	c.ActiveUEs.Set(float64(n))
}

// SetCommonBacklog updates the common event backlog gauge.
func (c *SchedulerCollector) SetCommonBacklog(n int) {
	if c == nil || c.CommonBacklog == nil {
		return
	}
	c.CommonBacklog.Set(float64(n))
}

// SetCellBacklog updates the pending cell-specific event gauge of a cell.
func (c *SchedulerCollector) SetCellBacklog(cell model.CellIndex, n int) {
	if c == nil || c.CellBacklog == nil || !cell.Valid() {
		return
	}
	c.mu.Lock()
	g := c.backlogs[cell]
	if g == nil {
		g = c.CellBacklog.WithLabelValues(cellLabel(cell))
		c.backlogs[cell] = g
	}
	c.mu.Unlock()
	g.Set(float64(n))
}

func cellLabel(cell model.CellIndex) string { return strconv.Itoa(int(cell)) }
