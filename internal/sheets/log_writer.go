package sheets

import (
	"context"
	"time"

	"teamfee/internal/core"
	"teamfee/internal/log"
)

// LogWriter is the SummaryWriter used when no spreadsheet is configured.
// It only logs the headline figures.
type LogWriter struct {
	Logger *log.Logger
}

var _ SummaryWriter = (*LogWriter)(nil)

func (w *LogWriter) WriteSummary(ctx context.Context, s core.Summary, at time.Time) error {
	logger := w.Logger
	if logger == nil {
		logger = log.FromContext(ctx)
	}
	logger.InfoContext(ctx, "Summary computed",
		"people", s.PeopleCount,
		"teams", len(s.Teams),
		"billable", core.FormatAmount(s.Billable),
		"total", core.FormatAmount(s.Total),
		"at", at.Format(time.RFC3339))
	return nil
}
