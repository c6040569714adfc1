// Package pipeline wires the rate governor, proxy pool, fetch executor, retry
// policy, pagination controller, extractor and validator into one run that
// yields a lazy sequence of validated records plus a run summary.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/user/extraction-pipeline/internal/entity"
	"github.com/user/extraction-pipeline/internal/extract"
	"github.com/user/extraction-pipeline/internal/fetch"
	"github.com/user/extraction-pipeline/internal/pagination"
	"github.com/user/extraction-pipeline/internal/proxypool"
	"github.com/user/extraction-pipeline/internal/ratelimit"
	"github.com/user/extraction-pipeline/internal/repository"
	"github.com/user/extraction-pipeline/internal/retry"
	"github.com/user/extraction-pipeline/internal/validate"
	"github.com/user/extraction-pipeline/pkg/metrics"
)

// GiveUpError marks a page the retry loop permanently gave up on.
type GiveUpError struct {
	Reason  string
	Outcome entity.FetchOutcome
}

func (e *GiveUpError) Error() string {
	return "pipeline: gave up on page: " + e.Reason
}

// Options assembles a pipeline. Governor, Pool, Executor, Policy, Extractor
// and Validator are required; the stores are optional.
type Options struct {
	Governor  *ratelimit.Governor
	Pool      *proxypool.Pool
	Executor  *fetch.Executor
	Policy    retry.Policy
	Extractor extract.SiteExtractor
	Validator *validate.Validator

	MaxPages   int
	MaxRecords int
	Headers    map[string]string

	RecordSink  repository.RecordSink
	FailedPages repository.FailedPageStore

	// AdvanceOnFailure, when set, derives the next cursor for a permanently
	// failed page without its body. Numbered sources provide it so a single
	// dead page (or a momentarily exhausted proxy pool) skips ahead instead
	// of aborting the run. Token-addressed sources leave it nil.
	AdvanceOnFailure func(cur entity.PageCursor) *entity.PageCursor
}

// Pipeline orchestrates one scrape target.
type Pipeline struct {
	opts    Options
	monitor *monitor
}

// New builds a pipeline from assembled components. Configuration errors fail
// here, before any request fires; a running pipeline never errors out for
// expected network conditions.
func New(opts Options) (*Pipeline, error) {
	if opts.Governor == nil || opts.Pool == nil || opts.Executor == nil ||
		opts.Extractor == nil || opts.Validator == nil {
		return nil, errors.New("pipeline: missing required component")
	}
	if opts.Policy.MaxAttempts < 1 || opts.Policy.BaseDelay <= 0 || opts.Policy.MaxDelay < opts.Policy.BaseDelay {
		return nil, fmt.Errorf("pipeline: invalid retry policy: attempts=%d base=%s max=%s",
			opts.Policy.MaxAttempts, opts.Policy.BaseDelay, opts.Policy.MaxDelay)
	}
	return &Pipeline{opts: opts, monitor: newMonitor(100)}, nil
}

// Run starts the pipeline against a start URL. It returns immediately; records
// arrive on the Run's channel and the summary settles once the channel closes.
// The sequence is finite and non-restartable. Cancelling ctx stops the run
// cleanly between pages and attempts with a valid partial summary.
func (p *Pipeline) Run(ctx context.Context, startURL string) *Run {
	run := newRun()
	go p.drive(ctx, startURL, run)
	return run
}

func (p *Pipeline) drive(ctx context.Context, startURL string, run *Run) {
	defer close(run.records)

	ctrl := pagination.NewController(p.opts.MaxPages, p.opts.MaxRecords)
	if err := ctrl.Start(entity.PageCursor{URL: startURL, Page: 1}); err != nil {
		run.update(func(s *entity.RunSummary) { s.StopReason = err.Error() })
		return
	}

	for {
		if ctx.Err() != nil {
			ctrl.Cancel()
			break
		}
		cur, ok := ctrl.Next()
		if !ok {
			break
		}

		outcome, err := p.fetchPage(ctx, cur, run)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				ctrl.Cancel()
				break
			}
			p.recordPageFailure(ctx, cur, err, run)
			if p.opts.AdvanceOnFailure != nil {
				ctrl.PageFailedAdvance(p.opts.AdvanceOnFailure(cur))
				continue
			}
			ctrl.PageFailed()
			break
		}

		records, next := p.opts.Extractor.Extract(outcome.Body, cur)
		if len(records) == 0 {
			run.update(func(s *entity.RunSummary) { s.ExtractionDrift++ })
			metrics.PagesFetchedTotal.WithLabelValues("drift").Inc()
			slog.Info("Page yielded no recognizable records", "page_url", cur.URL, "page", cur.Page)
		} else {
			metrics.PagesFetchedTotal.WithLabelValues("ok").Inc()
		}
		run.update(func(s *entity.RunSummary) { s.PagesFetched++ })

		emitted, stopped := p.emit(ctx, records, ctrl, run)
		if stopped {
			ctrl.Cancel()
			break
		}
		ctrl.PageSucceeded(emitted, next)
	}

	reason := string(ctrl.Reason())
	if ctrl.State() == pagination.Exhausted {
		reason = "exhausted"
	}
	run.update(func(s *entity.RunSummary) { s.StopReason = reason })
	slog.Info("Run finished", "stop_reason", reason,
		"pages", ctrl.Cursor().PagesFetched, "records", ctrl.Cursor().RecordsEmitted)
}

// fetchPage runs the attempt/retry loop for one page. It returns the
// successful outcome, or the error the loop gave up with.
func (p *Pipeline) fetchPage(ctx context.Context, cur entity.PageCursor, run *Run) (entity.FetchOutcome, error) {
	for attempt := 1; ; attempt++ {
		if err := p.opts.Governor.Wait(ctx, ratelimit.GlobalScope); err != nil {
			return entity.FetchOutcome{}, err
		}

		identity, err := p.opts.Pool.Acquire()
		if err != nil {
			return entity.FetchOutcome{}, fmt.Errorf("acquire identity: %w", err)
		}
		if !identity.Direct {
			if err := p.opts.Governor.Wait(ctx, identity.Scope()); err != nil {
				return entity.FetchOutcome{}, err
			}
		}

		req := entity.FetchRequest{
			URL:       cur.URL,
			Headers:   p.opts.Headers,
			ProxyAddr: identity.Addr,
			Attempt:   attempt,
		}
		outcome := p.opts.Executor.Execute(ctx, req)
		p.opts.Pool.Report(identity, outcome)
		p.account(outcome, run)

		if outcome.Class == entity.Success {
			return outcome, nil
		}
		if ctx.Err() != nil {
			return entity.FetchOutcome{}, ctx.Err()
		}

		decision := p.opts.Policy.Decide(outcome, attempt)
		if !decision.Retry {
			return outcome, &GiveUpError{Reason: decision.Reason, Outcome: outcome}
		}
		// RotateProxy needs no explicit action here: the failure report above
		// already demoted the identity, so the next Acquire picks another.
		slog.Debug("Retrying page fetch",
			"page_url", cur.URL, "attempt", attempt, "after", decision.After,
			"rotate_proxy", decision.RotateProxy)
		if err := sleepCtx(ctx, decision.After); err != nil {
			return entity.FetchOutcome{}, err
		}
	}
}

// emit validates records in page order and sends survivors downstream until
// the record budget runs out. It reports whether the run was cancelled
// mid-page.
func (p *Pipeline) emit(ctx context.Context, records []entity.RawRecord, ctrl *pagination.Controller, run *Run) (int, bool) {
	emitted := 0
	budget := ctrl.RecordBudget()
	for _, raw := range records {
		if budget >= 0 && emitted >= budget {
			break
		}
		run.update(func(s *entity.RunSummary) { s.RecordsExtracted++ })

		validated, err := p.opts.Validator.Validate(ctx, raw)
		switch {
		case errors.Is(err, validate.ErrDuplicate):
			run.update(func(s *entity.RunSummary) { s.RecordsDeduplicated++ })
			metrics.RecordsTotal.WithLabelValues("deduplicated").Inc()
			continue
		case err != nil:
			run.update(func(s *entity.RunSummary) { s.RecordsRejected++ })
			metrics.RecordsTotal.WithLabelValues("rejected").Inc()
			slog.Debug("Record rejected", "page_url", raw.Source.PageURL, "error", err)
			continue
		}

		if p.opts.RecordSink != nil {
			if err := p.opts.RecordSink.Save(ctx, validated); err != nil {
				slog.Warn("Record sink save failed", "fingerprint", validated.Fingerprint, "error", err)
			}
		}

		select {
		case run.records <- *validated:
			emitted++
			run.update(func(s *entity.RunSummary) { s.RecordsEmitted++ })
			metrics.RecordsTotal.WithLabelValues("emitted").Inc()
		case <-ctx.Done():
			return emitted, true
		}
	}
	return emitted, false
}

func (p *Pipeline) account(outcome entity.FetchOutcome, run *Run) {
	run.update(func(s *entity.RunSummary) {
		s.Attempts++
		switch outcome.Class {
		case entity.Success:
			s.Successes++
		case entity.SoftFailure:
			s.SoftFailures++
		case entity.HardFailure:
			s.HardFailures++
		}
	})
	p.monitor.track(outcome)
}

func (p *Pipeline) recordPageFailure(ctx context.Context, cur entity.PageCursor, cause error, run *Run) {
	run.update(func(s *entity.RunSummary) { s.PagesFailed++ })
	metrics.PagesFetchedTotal.WithLabelValues("failed").Inc()
	slog.Warn("Giving up on page", "page_url", cur.URL, "page", cur.Page, "error", cause)

	if p.opts.FailedPages == nil {
		return
	}
	var giveUp *GiveUpError
	statusCode := 0
	if errors.As(cause, &giveUp) {
		statusCode = giveUp.Outcome.StatusCode
	}
	failed := &entity.FailedPage{
		URL:            cur.URL,
		Page:           cur.Page,
		FailureReason:  cause.Error(),
		HTTPStatusCode: statusCode,
		LastAttemptAt:  time.Now(),
	}
	if err := p.opts.FailedPages.SaveOrUpdate(ctx, failed); err != nil {
		slog.Warn("Failed page bookkeeping failed", "page_url", cur.URL, "error", err)
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
