package sheets

import (
	"context"
	"time"

	"teamfee/internal/core"
)

// Ports for outbound adapters.
type (
	// SummaryWriter publishes a computed summary to an external sheet,
	// replacing whatever the previous write left there.
	SummaryWriter interface {
		WriteSummary(ctx context.Context, s core.Summary, at time.Time) error
	}
)
