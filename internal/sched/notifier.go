package sched

import (
	"time"

	"github.com/signalsfoundry/ransched/model"
)

// ConfigurationNotifier receives lifecycle completions. Calls happen on the
// slot dispatch goroutine and must not block.
type ConfigurationNotifier interface {
	OnUEConfigComplete(ueIndex model.UEIndex)
	OnUEDeleteResponse(ueIndex model.UEIndex)
}

// SRB0Scheduler is the per-cell scheduler of SRB0 traffic. It is told when a
// UE whose PCell is the cell has new SRB0 data.
type SRB0Scheduler interface {
	HandleDLBufferStateIndication(ueIndex model.UEIndex)
}

// MetricsRecorder receives dispatch measurements.
// observability.SchedulerCollector implements it.
type MetricsRecorder interface {
	EventProcessed(cell model.CellIndex, kind string)
	EventDropped(cell model.CellIndex, kind, reason string)
	ObserveDispatch(cell model.CellIndex, d time.Duration)
	SetActiveUEs(n int)
	SetCommonBacklog(n int)
	SetCellBacklog(cell model.CellIndex, n int)
}

type noopNotifier struct{}

func (noopNotifier) OnUEConfigComplete(model.UEIndex) {}
func (noopNotifier) OnUEDeleteResponse(model.UEIndex) {}

type noopSRB0 struct{}

func (noopSRB0) HandleDLBufferStateIndication(model.UEIndex) {}

type noopMetrics struct{}

func (noopMetrics) EventProcessed(model.CellIndex, string)         {}
func (noopMetrics) EventDropped(model.CellIndex, string, string)   {}
func (noopMetrics) ObserveDispatch(model.CellIndex, time.Duration) {}
func (noopMetrics) SetActiveUEs(int)                               {}
func (noopMetrics) SetCommonBacklog(int)                           {}
func (noopMetrics) SetCellBacklog(model.CellIndex, int)            {}
