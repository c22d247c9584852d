package app

import (
	"context"
	"fmt"
	"time"

	"execdoc/internal/core/ports"
	"execdoc/internal/engine/analysis"
	"execdoc/internal/engine/parser"
)

// Health reports on the parser, the engine and the journal.
func (a *App) Health(ctx context.Context) ports.HealthStatus {
	status := ports.HealthStatus{
		Status:     "up",
		Timestamp:  time.Now().UTC(),
		Session:    a.session,
		Components: make(map[string]string),
	}

	if err := analysis.CheckSyntax("pass"); err != nil {
		status.Status = "degraded"
		status.Components["parser"] = err.ErrorMessage
	} else {
		pool := parser.PoolStats()
		status.Components["parser"] = fmt.Sprintf("ok (%d parses, %d leased, oldest %s)",
			pool.Leases, pool.Leased, pool.Oldest.Round(time.Millisecond))
	}

	status.Components["engine"] = fmt.Sprintf("ok (%d modules)", len(a.engine.Modules()))

	switch {
	case a.journal != nil:
		if _, err := a.journal.Recent(1); err != nil {
			status.Status = "degraded"
			status.Components["journal"] = err.Error()
		} else {
			status.Components["journal"] = "ok"
		}
	case a.Config.DB.Enabled:
		status.Status = "degraded"
		status.Components["journal"] = "missing but enabled in config"
	default:
		status.Components["journal"] = "disabled"
	}

	if ctx.Err() != nil {
		status.Status = "degraded"
	}
	return status
}
