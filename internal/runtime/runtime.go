// Package runtime wires the scheduler components together and supervises
// their lifecycle: the cell catalogue feeds the event manager, the slot
// controller drives dispatch, and the ingress gRPC and metrics servers run
// beside it.
package runtime

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"

	"github.com/signalsfoundry/ransched/internal/config"
	"github.com/signalsfoundry/ransched/internal/ingress"
	"github.com/signalsfoundry/ransched/internal/logging"
	"github.com/signalsfoundry/ransched/internal/observability"
	"github.com/signalsfoundry/ransched/internal/sched"
	"github.com/signalsfoundry/ransched/kb"
	"github.com/signalsfoundry/ransched/model"
	"github.com/signalsfoundry/ransched/timectrl"
)

const shutdownTimeout = 5 * time.Second

// SlotAllocator is the resource allocator run after event dispatch for every
// cell and slot.
type SlotAllocator interface {
	AllocateSlot(sl model.Slot, cell model.CellIndex)
}

type noopAllocator struct{}

func (noopAllocator) AllocateSlot(model.Slot, model.CellIndex) {}

// Options customise runtime construction. Zero values select defaults.
type Options struct {
	Log       logging.Logger
	Registry  *prometheus.Registry
	Clock     clock.Clock
	Mode      timectrl.Mode
	Notifier  sched.ConfigurationNotifier
	Allocator SlotAllocator
	// SRB0 returns the SRB0 scheduler of a cell; nil schedulers are allowed.
	SRB0 func(model.CellIndex) sched.SRB0Scheduler
	// IngressListener replaces listening on the configured ingress address.
	IngressListener net.Listener
}

// SchedRuntime owns every long-lived component of the scheduler process.
type SchedRuntime struct {
	Cells   *kb.KnowledgeBase
	Manager *sched.EventManager
	Slots   *timectrl.SlotController
	Ingress *ingress.Service
	GRPC    *grpc.Server

	IngressMetrics   *observability.IngressCollector
	SchedulerMetrics *observability.SchedulerCollector

	cfg       config.Config
	log       logging.Logger
	allocator SlotAllocator
	listener  net.Listener

	mu sync.Mutex
	// active lists registered cells in index order. Fixed once New returns.
	active []model.CellIndex
}

// New builds a runtime from a validated configuration.
func New(cfg config.Config, opts Options) (*SchedRuntime, error) {
	log := opts.Log
	if log == nil {
		log = logging.Noop()
	}
	reg := opts.Registry
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	allocator := opts.Allocator
	if allocator == nil {
		allocator = noopAllocator{}
	}

	schedMetrics, err := observability.NewSchedulerCollector(reg)
	if err != nil {
		return nil, fmt.Errorf("scheduler metrics: %w", err)
	}
	ingressMetrics, err := observability.NewIngressCollector(reg)
	if err != nil {
		return nil, fmt.Errorf("ingress metrics: %w", err)
	}

	mgr := sched.NewEventManager(log,
		sched.WithNotifier(opts.Notifier),
		sched.WithMetricsRecorder(schedMetrics),
		sched.WithClock(opts.Clock),
		sched.WithMaxUEs(cfg.MaxUEs),
	)

	r := &SchedRuntime{
		Cells:            kb.NewKnowledgeBase(),
		Manager:          mgr,
		IngressMetrics:   ingressMetrics,
		SchedulerMetrics: schedMetrics,
		cfg:              cfg,
		log:              log,
		allocator:        allocator,
		listener:         opts.IngressListener,
	}

	unsubscribe := r.Cells.Subscribe(func(ev kb.Event) {
		if ev.Type != kb.EventCellAdded {
			return
		}
		var srb0 sched.SRB0Scheduler
		if opts.SRB0 != nil {
			srb0 = opts.SRB0(ev.Cell.Index)
		}
		mgr.AddCell(ev.Cell, srb0)
		r.mu.Lock()
		r.active = append(r.active, ev.Cell.Index)
		sort.Slice(r.active, func(i, j int) bool { return r.active[i] < r.active[j] })
		r.mu.Unlock()
	})
	defer unsubscribe()

	for _, cell := range cfg.Cells {
		if err := r.Cells.AddCell(cell); err != nil {
			return nil, fmt.Errorf("register cell: %w", err)
		}
		log.Info(context.Background(), "cell registered",
			logging.Int("cell_index", int(cell.Index)),
			logging.Int("pci", int(cell.PCI)),
		)
	}

	r.Slots = timectrl.NewSlotController(opts.Clock, model.NewSlot(cfg.Numerology, 0, 0), opts.Mode)
	r.Slots.AddListener(r.onSlot)

	r.Ingress = ingress.NewService(mgr, ingressMetrics, log)
	r.GRPC = grpc.NewServer(
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.ChainUnaryInterceptor(
			ingress.RequestIDUnaryServerInterceptor(log),
			ingress.TracingUnaryServerInterceptor(),
			ingressMetrics.UnaryServerInterceptor(),
		),
	)
	ingress.RegisterIngressServer(r.GRPC, r.Ingress)
	return r, nil
}

// ActiveCells returns the registered cells in index order.
func (r *SchedRuntime) ActiveCells() []model.CellIndex {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]model.CellIndex(nil), r.active...)
}

// onSlot dispatches every cell for the slot, then lets the allocator run.
func (r *SchedRuntime) onSlot(sl model.Slot) {
	for _, cell := range r.active {
		r.Manager.Run(sl, cell)
		r.allocator.AllocateSlot(sl, cell)
	}
}

// Run serves ingress and metrics and drives the slot controller until ctx is
// cancelled or nofSlots slots have elapsed (zero means no limit).
func (r *SchedRuntime) Run(ctx context.Context, nofSlots uint64) error {
	lis := r.listener
	if lis == nil {
		var err error
		lis, err = net.Listen("tcp", r.cfg.Ingress.Addr)
		if err != nil {
			return fmt.Errorf("listen ingress %s: %w", r.cfg.Ingress.Addr, err)
		}
	}

	var metricsSrv *http.Server
	if r.cfg.Metrics.Addr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", r.IngressMetrics.Handler())
		metricsSrv = &http.Server{Addr: r.cfg.Metrics.Addr, Handler: mux}
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		r.log.Info(gctx, "starting ingress gRPC server", logging.String("addr", lis.Addr().String()))
		if err := r.GRPC.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			return fmt.Errorf("ingress server: %w", err)
		}
		return nil
	})

	if metricsSrv != nil {
		g.Go(func() error {
			r.log.Info(gctx, "serving Prometheus metrics", logging.String("addr", metricsSrv.Addr))
			if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		})
	}

	g.Go(func() error {
		r.log.Info(gctx, "slot controller started",
			logging.String("mode", r.Slots.Mode().String()),
			logging.String("slot_duration", r.Slots.SlotDuration().String()),
			logging.Int("cells", len(r.active)),
		)
		<-r.Slots.Start(gctx, nofSlots)
		r.log.Info(gctx, "slot controller stopped", logging.String("last_slot", r.Slots.Now().String()))
		cancel()
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		r.GRPC.GracefulStop()
		if metricsSrv != nil {
			shutdownCtx, done := context.WithTimeout(context.Background(), shutdownTimeout)
			defer done()
			_ = metricsSrv.Shutdown(shutdownCtx)
		}
		return nil
	})

	return g.Wait()
}
