// Package reconcile decides whether the record needs changing and drives a
// submitted change through propagation.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/bradleysepos/aws-ddns/internal/config"
	"github.com/bradleysepos/aws-ddns/internal/metrics"
	"github.com/bradleysepos/aws-ddns/internal/provider"
	"github.com/bradleysepos/aws-ddns/internal/resolver"
	"github.com/bradleysepos/aws-ddns/internal/state"
)

type Engine interface {
	Run(ctx context.Context) (Result, error)
}

type engine struct {
	store    state.Store
	client   provider.Client
	resolver *resolver.Resolver
	cfg      *config.Config
	metrics  *metrics.Metrics
}

func NewEngine(store state.Store, client provider.Client, res *resolver.Resolver, cfg *config.Config, metrics *metrics.Metrics) *engine {
	return &engine{
		store:    store,
		client:   client,
		resolver: res,
		cfg:      cfg,
		metrics:  metrics,
	}
}

// Run performs one update cycle: resolve, decide, then either stop or
// submit the change and poll its propagation. Any fatal error also emits an
// audit line to the operation log.
func (e *engine) Run(ctx context.Context) (Result, error) {
	start := time.Now()
	defer func() {
		e.metrics.SetRunDuration(time.Since(start))
	}()

	res, err := e.run(ctx)
	if err != nil {
		e.audit(res.Identity, err)
	}
	return res, err
}

func (e *engine) run(ctx context.Context) (Result, error) {
	id := e.cfg.Identity()
	res := Result{Identity: id}

	addr, err := e.resolver.Resolve(ctx, e.cfg.Resolve.Override)
	if err != nil {
		e.metrics.IncRun("resolve_failed")
		return res, err
	}
	candidate := addr.String()
	ttl := e.cfg.Record.TTL
	res.Value = candidate
	slog.Info("resolved external address", "address", candidate, "type", id.Type)

	decision, reason, err := e.decide(ctx, id, candidate, ttl)
	if err != nil {
		e.metrics.IncRun("decide_failed")
		return res, err
	}
	res.Decision = decision
	res.Reason = reason

	if decision == NoOpUpToDate {
		// Rewrite the cache even on no-op so it self-heals after a run that
		// consulted the authoritative service instead.
		if err := e.store.Save(id, candidate, ttl); err != nil {
			e.metrics.IncRun("cache_failed")
			return res, err
		}
		slog.Info("record up to date", "name", id.Name, "address", candidate, "ttl", ttl)
		e.metrics.IncRun("noop")
		return res, nil
	}
	slog.Info("record needs update", "name", id.Name, "reason", reason)

	info, transcript, err := e.client.SubmitChange(ctx, id, candidate, ttl, e.cfg.Update.Comment)
	e.appendLog(id, transcript)
	if err != nil {
		e.metrics.IncRun("change_failed")
		if errors.Is(err, provider.ErrUnparseableResponse) {
			return res, fmt.Errorf("%w (raw response in %s)", err, e.store.LogPath(id))
		}
		return res, fmt.Errorf("%w: %v (see %s)", ErrAuthorityChangeFailed, err, e.store.LogPath(id))
	}
	res.ChangeID = info.ID
	res.Status = info.Status

	if info.Status != provider.StatusInsync {
		status, polls, err := e.poll(ctx, id, info.ID)
		res.Status = status
		res.Polls = polls
		if err != nil {
			e.metrics.IncRun("change_failed")
			return res, err
		}
	}

	if err := e.store.Save(id, candidate, ttl); err != nil {
		e.metrics.IncRun("cache_failed")
		return res, err
	}
	slog.Info("record updated", "name", id.Name, "address", candidate, "ttl", ttl, "change", res.ChangeID, "status", res.Status)
	e.metrics.IncRun("updated")
	return res, nil
}

// decide determines whether the candidate address requires a change. The
// "current" side of the comparison is the cached state, unless the run was
// told to trust the authoritative service instead.
func (e *engine) decide(ctx context.Context, id provider.Identity, candidate string, ttl int64) (Decision, string, error) {
	var current *provider.Record

	if e.cfg.Update.ForceRemote {
		rec, err := e.client.CurrentRecord(ctx, id)
		if err != nil {
			return "", "", fmt.Errorf("%w: %v", ErrAuthorityQueryFailed, err)
		}
		current = rec
	} else {
		cached, err := e.store.Load(id)
		if err != nil {
			return "", "", fmt.Errorf("load cached state: %w", err)
		}
		if cached != nil {
			current = &provider.Record{Value: cached.Value, TTL: cached.TTL}
		}
	}

	switch {
	case current == nil:
		return NeedsUpdate, "no current record", nil
	case current.Value != candidate:
		return NeedsUpdate, fmt.Sprintf("address %s -> %s", current.Value, candidate), nil
	case current.TTL != ttl:
		return NeedsUpdate, fmt.Sprintf("ttl %d -> %d", current.TTL, ttl), nil
	default:
		return NoOpUpToDate, "", nil
	}
}

// poll queries propagation status until terminal success or the budget runs
// out. Exhausting the budget is not a failure: propagation may still be in
// flight, and the next scheduled run re-decides from scratch.
func (e *engine) poll(ctx context.Context, id provider.Identity, changeID string) (provider.ChangeStatus, int, error) {
	status := provider.StatusPending
	polls := 0
	for polls < e.cfg.Update.PollCount {
		if err := sleep(ctx, e.cfg.Update.PollInterval); err != nil {
			return status, polls, err
		}

		st, transcript, err := e.client.GetChangeStatus(ctx, changeID)
		polls++
		e.appendLog(id, transcript)
		if err != nil {
			e.metrics.IncChangePoll("error")
			if errors.Is(err, provider.ErrUnparseableResponse) {
				return status, polls, fmt.Errorf("%w (raw response in %s)", err, e.store.LogPath(id))
			}
			return status, polls, fmt.Errorf("%w: %v (see %s)", ErrAuthorityChangeFailed, err, e.store.LogPath(id))
		}
		e.metrics.IncChangePoll(string(st))
		status = st
		slog.Debug("polled change status", "change", changeID, "status", st, "polls", polls)

		if st == provider.StatusInsync {
			return status, polls, nil
		}
	}
	slog.Warn("poll budget exhausted, change still propagating", "change", changeID, "polls", polls)
	return status, polls, nil
}

func (e *engine) appendLog(id provider.Identity, transcript string) {
	if transcript == "" {
		return
	}
	if err := e.store.AppendLog(id, transcript); err != nil {
		slog.Warn("fail append operation log", "path", e.store.LogPath(id), "error", err)
	}
}

func (e *engine) audit(id provider.Identity, runErr error) {
	e.appendLog(id, provider.Transcript("audit", nil, nil, runErr))
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
