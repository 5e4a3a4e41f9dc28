package sched

import (
	"context"
	"fmt"

	"github.com/signalsfoundry/ransched/internal/logging"
	"github.com/signalsfoundry/ransched/model"
)

// eventLog batches the events applied in one dispatch phase into a single
// log line. Nothing is formatted unless info logging is enabled.
type eventLog struct {
	log     logging.Logger
	enabled bool
	buf     []byte
}

func (l *eventLog) begin(ctx context.Context) {
	l.enabled = l.log.Enabled(ctx, logging.LevelInfo)
	l.buf = l.buf[:0]
}

func (l *eventLog) add(format string, args ...any) {
	if !l.enabled {
		return
	}
	if len(l.buf) > 0 {
		l.buf = append(l.buf, ", "...)
	}
	l.buf = fmt.Appendf(l.buf, format, args...)
}

// flush emits the batch. A common-phase batch has no cell.
func (l *eventLog) flush(ctx context.Context, cell model.CellIndex, common bool) {
	if !l.enabled || len(l.buf) == 0 {
		return
	}
	if common {
		l.log.Info(ctx, "SCHED: Processed events: ["+string(l.buf)+"]")
	} else {
		l.log.Info(ctx, fmt.Sprintf("SCHED: Processed events, cell_index=%d: [%s]", cell, l.buf),
			logging.Int("cell_index", int(cell)))
	}
	l.buf = l.buf[:0]
}
