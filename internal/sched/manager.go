// Package sched is the scheduler's UE event dispatch core.
//
// Producers on any goroutine hand UE lifecycle requests and radio feedback to
// the EventManager through its Handle* methods. Each call turns into a
// deferred event on either the common list (UE-wide events) or the list of a
// cell (CRC and HARQ-ACK feedback). The slot driver calls Run once per active
// cell per slot; Run applies the events that belong to that cell and is the
// only place UE state is ever mutated.
package sched

import (
	"context"
	"fmt"
	"time"

	"github.com/benbjohnson/clock"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/signalsfoundry/ransched/internal/eventq"
	"github.com/signalsfoundry/ransched/internal/feedback"
	"github.com/signalsfoundry/ransched/internal/logging"
	"github.com/signalsfoundry/ransched/internal/ue"
	"github.com/signalsfoundry/ransched/model"
)

const tracerName = "github.com/signalsfoundry/ransched/internal/sched"

// Initial capacity of the event lists. They grow past it if needed.
const (
	defaultCommonCapacity = 256
	defaultCellCapacity   = 512
)

// Reasons attached to dropped-event metrics.
const (
	dropUENotFound        = "ue_not_found"
	dropCellNotConfigured = "cell_not_configured"
	dropUEExists          = "ue_exists"
)

type cellEntry struct {
	cfg    *model.CellConfig
	srb0   SRB0Scheduler
	events *eventq.List[cellEvent]
}

// EventManager defers UE events from producers to the slot dispatch loop.
//
// AddCell must be called for every cell before producers start and before the
// first Run. After that, Handle* methods are safe for concurrent use, and Run
// must be called from a single goroutine.
type EventManager struct {
	log      logging.Logger
	warn     *logging.RateLimited
	notifier ConfigurationNotifier
	metrics  MetricsRecorder
	clock    clock.Clock
	tracer   trace.Tracer
	maxUEs   int

	// producer side
	lifecycle *ue.LifecycleTable
	cells     [model.MaxCells]*cellEntry
	common    *eventq.List[commonEvent]

	// dispatch side, owned by the Run goroutine
	ues      *ue.Repository
	lastSlot model.Slot
	evlog    eventLog
	runCtx   context.Context
	ackUE    model.UEIndex
	ackSlot  model.Slot
	ackVisit func(feedback.AckOutcome)
}

// Option customises EventManager construction.
type Option func(*EventManager)

// WithNotifier attaches the receiver of lifecycle completions.
func WithNotifier(n ConfigurationNotifier) Option {
	return func(m *EventManager) {
		if n != nil {
			m.notifier = n
		}
	}
}

// WithMetricsRecorder attaches an optional metrics recorder.
func WithMetricsRecorder(r MetricsRecorder) Option {
	return func(m *EventManager) {
		if r != nil {
			m.metrics = r
		}
	}
}

// WithClock overrides the clock used to time dispatch.
func WithClock(c clock.Clock) Option {
	return func(m *EventManager) {
		if c != nil {
			m.clock = c
		}
	}
}

// WithWarnRates overrides the per-category limits on warnings emitted from
// the dispatch loop. An empty map disables limiting.
func WithWarnRates(rates map[time.Duration]int) Option {
	return func(m *EventManager) {
		m.warn = logging.NewRateLimited(m.log, rates)
	}
}

// WithMaxUEs lowers the number of UE indexes accepted for creation. Values
// outside (0, model.MaxUEs] are ignored.
func WithMaxUEs(n int) Option {
	return func(m *EventManager) {
		if n > 0 && n <= model.MaxUEs {
			m.maxUEs = n
		}
	}
}

// NewEventManager creates a manager with no cells.
func NewEventManager(log logging.Logger, opts ...Option) *EventManager {
	if log == nil {
		log = logging.Noop()
	}
	m := &EventManager{
		log:       log,
		notifier:  noopNotifier{},
		metrics:   noopMetrics{},
		clock:     clock.New(),
		tracer:    otel.Tracer(tracerName),
		maxUEs:    model.MaxUEs,
		lifecycle: ue.NewLifecycleTable(),
		common:    eventq.New[commonEvent](defaultCommonCapacity),
		ues:       ue.NewRepository(),
		evlog:     eventLog{log: log},
		runCtx:    context.Background(),
	}
	m.warn = logging.NewRateLimited(log, logging.DefaultWarnRates)
	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}
	m.ackVisit = m.onHARQAck
	return m
}

// AddCell registers a cell and its SRB0 scheduler. Registering an index twice
// or outside the cell universe is a configuration error and panics.
func (m *EventManager) AddCell(cfg model.CellConfig, srb0 SRB0Scheduler) {
	if !cfg.Index.Valid() {
		panic(fmt.Sprintf("sched: cell index %d out of range", cfg.Index))
	}
	if m.cells[cfg.Index] != nil {
		panic(fmt.Sprintf("sched: cell index %d already registered", cfg.Index))
	}
	if srb0 == nil {
		srb0 = noopSRB0{}
	}
	cfg = cfg.WithDefaults()
	m.cells[cfg.Index] = &cellEntry{
		cfg:    &cfg,
		srb0:   srb0,
		events: eventq.New[cellEvent](defaultCellCapacity),
	}
}

// CellExists reports whether cell was registered.
func (m *EventManager) CellExists(cell model.CellIndex) bool {
	return cell.Valid() && m.cells[cell] != nil
}

// Lifecycle exposes the producer-side lifecycle table.
func (m *EventManager) Lifecycle() *ue.LifecycleTable { return m.lifecycle }

// ---- UE lifecycle producers ----

// HandleUECreationRequest validates req, builds the UE on the calling
// goroutine and defers its insertion into the repository to the next Run.
func (m *EventManager) HandleUECreationRequest(ctx context.Context, req *model.UECreationRequest) (err error) {
	_, span := m.tracer.Start(ctx, "sched.HandleUECreationRequest",
		trace.WithAttributes(attribute.Int("ue_index", int(req.UEIndex))))
	defer endSpan(span, &err)

	if int(req.UEIndex) >= m.maxUEs {
		return fmt.Errorf("%w: ueId=%d, max %d UEs", ErrCapacity, req.UEIndex, m.maxUEs)
	}
	if req.CRNTI == 0 {
		return fmt.Errorf("%w: ueId=%d has no C-RNTI", ErrInvalidRequest, req.UEIndex)
	}
	if len(req.Cells) == 0 {
		return fmt.Errorf("%w: ueId=%d has no PCell", ErrInvalidRequest, req.UEIndex)
	}
	if err := m.validateCells(req.Cells); err != nil {
		return err
	}
	if err := validateLogicalChannels(req.LogicalChannels); err != nil {
		return err
	}

	gen, ok := m.lifecycle.BeginCreation(req.UEIndex)
	if !ok {
		return fmt.Errorf("%w: ueId=%d", ErrUEExists, req.UEIndex)
	}
	span.SetAttributes(attribute.Int64("generation", int64(gen)))

	u := ue.New(req.UEIndex, req.CRNTI, gen, m.buildCells(req.UEIndex, req.Cells), cloneLCs(req.LogicalChannels))
	m.common.Push(commonEvent{
		target: pendingTarget(req.UEIndex),
		gen:    gen,
		kind:   kindUECreate,
		newUE:  u,
	})
	return nil
}

// HandleUEReconfigurationRequest defers a reconfiguration of an existing UE.
// Contexts for the requested cells are built here; the ones the UE already
// has are kept when the event is applied.
func (m *EventManager) HandleUEReconfigurationRequest(ctx context.Context, req *model.UEReconfigurationRequest) (err error) {
	_, span := m.tracer.Start(ctx, "sched.HandleUEReconfigurationRequest",
		trace.WithAttributes(attribute.Int("ue_index", int(req.UEIndex))))
	defer endSpan(span, &err)

	if !req.UEIndex.Valid() {
		return fmt.Errorf("%w: ueId=%d out of range", ErrInvalidRequest, req.UEIndex)
	}
	if req.Cells != nil && len(req.Cells) == 0 {
		return fmt.Errorf("%w: ueId=%d reconfigured without PCell", ErrInvalidRequest, req.UEIndex)
	}
	if err := m.validateCells(req.Cells); err != nil {
		return err
	}
	if err := validateLogicalChannels(req.LogicalChannels); err != nil {
		return err
	}
	switch m.lifecycle.State(req.UEIndex) {
	case ue.Absent, ue.PendingDeletion:
		return fmt.Errorf("%w: ueId=%d", ErrUENotFound, req.UEIndex)
	}

	rc := &reconfig{lcs: cloneLCs(req.LogicalChannels)}
	if req.Cells != nil {
		rc.cells = m.buildCells(req.UEIndex, req.Cells)
	}
	m.common.Push(commonEvent{
		target: ueTarget(req.UEIndex),
		gen:    m.lifecycle.Generation(req.UEIndex),
		kind:   kindUEReconfig,
		reconf: rc,
	})
	return nil
}

// HandleUEDeletionRequest defers the removal of a UE.
func (m *EventManager) HandleUEDeletionRequest(ctx context.Context, ueIndex model.UEIndex) (err error) {
	_, span := m.tracer.Start(ctx, "sched.HandleUEDeletionRequest",
		trace.WithAttributes(attribute.Int("ue_index", int(ueIndex))))
	defer endSpan(span, &err)

	gen, ok := m.lifecycle.BeginDeletion(ueIndex)
	if !ok {
		return fmt.Errorf("%w: ueId=%d", ErrUENotFound, ueIndex)
	}
	m.common.Push(commonEvent{
		target: ueTarget(ueIndex),
		gen:    gen,
		kind:   kindUEDelete,
	})
	return nil
}

// ---- feedback producers ----

// HandleULBSRIndication defers a buffer status report.
func (m *EventManager) HandleULBSRIndication(ind *model.ULBSRIndication) error {
	if !m.CellExists(ind.CellIndex) {
		return fmt.Errorf("%w: cell_index=%d", ErrUnknownCell, ind.CellIndex)
	}
	if !ind.UEIndex.Valid() {
		return fmt.Errorf("%w: ueId=%d out of range", ErrInvalidRequest, ind.UEIndex)
	}
	bsr := *ind
	bsr.Reports = append([]model.RawLCGReport(nil), ind.Reports...)
	m.common.Push(commonEvent{
		target: ueTarget(ind.UEIndex),
		gen:    m.lifecycle.Generation(ind.UEIndex),
		kind:   kindULBSR,
		bsr:    bsr,
	})
	return nil
}

// HandleCRCIndication defers the CRC results of one cell and slot.
func (m *EventManager) HandleCRCIndication(ind *model.CRCIndication) error {
	if !m.CellExists(ind.CellIndex) {
		return fmt.Errorf("%w: cell_index=%d", ErrUnknownCell, ind.CellIndex)
	}
	for i := range ind.CRCs {
		if !ind.CRCs[i].UEIndex.Valid() {
			return fmt.Errorf("%w: crc[%d] ueId=%d out of range", ErrInvalidRequest, i, ind.CRCs[i].UEIndex)
		}
	}
	q := m.cells[ind.CellIndex].events
	for _, crc := range ind.CRCs {
		q.Push(cellEvent{
			ue:     crc.UEIndex,
			gen:    m.lifecycle.Generation(crc.UEIndex),
			kind:   kindCRC,
			crc:    crc,
			slotRx: ind.SlotRx,
		})
	}
	return nil
}

// HandleUCIIndication defers HARQ-ACK bits to the cell and scheduling
// requests to the common list.
func (m *EventManager) HandleUCIIndication(ind *model.UCIIndication) error {
	if !m.CellExists(ind.CellIndex) {
		return fmt.Errorf("%w: cell_index=%d", ErrUnknownCell, ind.CellIndex)
	}
	for i := range ind.UCIs {
		if !ind.UCIs[i].UEIndex.Valid() {
			return fmt.Errorf("%w: uci[%d] ueId=%d out of range", ErrInvalidRequest, i, ind.UCIs[i].UEIndex)
		}
	}
	q := m.cells[ind.CellIndex].events
	for _, uci := range ind.UCIs {
		if len(uci.HARQBits) == 0 {
			continue
		}
		q.Push(cellEvent{
			ue:       uci.UEIndex,
			gen:      m.lifecycle.Generation(uci.UEIndex),
			kind:     kindUCIHARQ,
			slotRx:   ind.SlotRx,
			harqBits: append([]bool(nil), uci.HARQBits...),
		})
	}
	for _, uci := range ind.UCIs {
		if !uci.SRDetected {
			continue
		}
		m.common.Push(commonEvent{
			target: ueTarget(uci.UEIndex),
			gen:    m.lifecycle.Generation(uci.UEIndex),
			kind:   kindSR,
		})
	}
	return nil
}

// HandleDLMACCEIndication defers a request to schedule a DL MAC CE.
func (m *EventManager) HandleDLMACCEIndication(ind *model.DLMACCEIndication) error {
	if !ind.UEIndex.Valid() {
		return fmt.Errorf("%w: ueId=%d out of range", ErrInvalidRequest, ind.UEIndex)
	}
	m.common.Push(commonEvent{
		target: ueTarget(ind.UEIndex),
		gen:    m.lifecycle.Generation(ind.UEIndex),
		kind:   kindDLMACCE,
		ceLCID: ind.CELCID,
	})
	return nil
}

// HandleDLBufferStateIndication defers a DL buffer occupancy update.
func (m *EventManager) HandleDLBufferStateIndication(ind *model.DLBufferStateIndication) error {
	if !ind.UEIndex.Valid() {
		return fmt.Errorf("%w: ueId=%d out of range", ErrInvalidRequest, ind.UEIndex)
	}
	if int(ind.LCID) >= model.MaxLCIDs {
		return fmt.Errorf("%w: lcid=%d out of range", ErrInvalidRequest, ind.LCID)
	}
	m.common.Push(commonEvent{
		target: ueTarget(ind.UEIndex),
		gen:    m.lifecycle.Generation(ind.UEIndex),
		kind:   kindDLBufferState,
		dlBS:   *ind,
	})
	return nil
}

func (m *EventManager) validateCells(cells []model.CellIndex) error {
	var seen [model.MaxCells]bool
	for _, c := range cells {
		if !m.CellExists(c) {
			return fmt.Errorf("%w: cell_index=%d", ErrUnknownCell, c)
		}
		if seen[c] {
			return fmt.Errorf("%w: cell_index=%d listed twice", ErrInvalidRequest, c)
		}
		seen[c] = true
	}
	return nil
}

func validateLogicalChannels(lcs []model.LogicalChannelConfig) error {
	for _, lc := range lcs {
		if int(lc.LCID) >= model.MaxLCIDs {
			return fmt.Errorf("%w: lcid=%d out of range", ErrInvalidRequest, lc.LCID)
		}
		if int(lc.LCGID) >= model.MaxLCGs {
			return fmt.Errorf("%w: lcid=%d lcg_id=%d out of range", ErrInvalidRequest, lc.LCID, lc.LCGID)
		}
	}
	return nil
}

func (m *EventManager) buildCells(idx model.UEIndex, cells []model.CellIndex) []*ue.UECell {
	out := make([]*ue.UECell, 0, len(cells))
	for _, c := range cells {
		out = append(out, ue.NewUECell(idx, m.cells[c].cfg))
	}
	return out
}

func cloneLCs(lcs []model.LogicalChannelConfig) []model.LogicalChannelConfig {
	if lcs == nil {
		return nil
	}
	return append(make([]model.LogicalChannelConfig, 0, len(lcs)), lcs...)
}

func endSpan(span trace.Span, err *error) {
	if *err != nil {
		span.RecordError(*err)
		span.SetStatus(codes.Error, (*err).Error())
	}
	span.End()
}
