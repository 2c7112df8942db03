package stage

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/tellae/eqasim/internal/ctxlog"
	"golang.org/x/time/rate"
)

// Progress reports the advancement of a long-running stage loop through the
// run's logger. Log lines are throttled so a tight loop cannot flood the
// output; the final line always appears.
type Progress struct {
	label   string
	total   int64
	done    atomic.Int64
	started time.Time
	limiter *rate.Limiter
	logger  *slog.Logger
}

// Progress starts a reporter for a loop of total items. The label reads
// like a sentence fragment, e.g. "Imputing income ...".
func (rt *Runtime) Progress(ctx context.Context, label string, total int) *Progress {
	logger := ctxlog.FromContext(ctx).With("stage", rt.name)
	logger.Info(label, "total", total)
	return &Progress{
		label:   label,
		total:   int64(total),
		started: time.Now(),
		// At most five progress lines per second, however hot the loop.
		limiter: rate.NewLimiter(rate.Every(200*time.Millisecond), 1),
		logger:  logger,
	}
}

// Advance records n finished items and maybe logs a progress line.
func (p *Progress) Advance(n int) {
	done := p.done.Add(int64(n))
	if !p.limiter.Allow() {
		return
	}
	p.log(done)
}

// Done logs the closing progress line with the elapsed wall time.
func (p *Progress) Done() {
	p.logger.Info(p.label,
		"done", p.done.Load(),
		"total", p.total,
		"elapsed", time.Since(p.started).Round(time.Millisecond).String(),
	)
}

func (p *Progress) log(done int64) {
	percent := 0.0
	if p.total > 0 {
		percent = 100 * float64(done) / float64(p.total)
	}
	p.logger.Info(p.label,
		"done", done,
		"total", p.total,
		"percent", int(percent),
	)
}
