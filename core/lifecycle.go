package core

import (
	"context"
	"fmt"
	"time"

	"github.com/wildcatlabs/wildcat/protocol"
)

// ReconnectPolicy decides how long to wait before reconnect attempt
// number attempt (1-based). ok false stops retrying; the account is then
// parked as not_started until an explicit restart.
type ReconnectPolicy interface {
	NextDelay(attempt int) (delay time.Duration, ok bool)
}

// FixedDelayPolicy retries at a constant interval. MaxAttempts zero means
// unbounded.
type FixedDelayPolicy struct {
	Delay       time.Duration
	MaxAttempts int
}

func (p FixedDelayPolicy) NextDelay(attempt int) (time.Duration, bool) {
	if attempt < 1 {
		attempt = 1
	}
	if p.MaxAttempts > 0 && attempt > p.MaxAttempts {
		return 0, false
	}
	delay := p.Delay
	if delay < 0 {
		delay = 0
	}
	return delay, true
}

// ExponentialDelayPolicy doubles the wait per attempt up to Max.
type ExponentialDelayPolicy struct {
	Initial     time.Duration
	Max         time.Duration
	MaxAttempts int
}

func (p ExponentialDelayPolicy) NextDelay(attempt int) (time.Duration, bool) {
	if attempt < 1 {
		attempt = 1
	}
	if p.MaxAttempts > 0 && attempt > p.MaxAttempts {
		return 0, false
	}
	delay := p.Initial
	if delay <= 0 {
		delay = time.Second
	}
	for i := 1; i < attempt; i++ {
		delay *= 2
		if p.Max > 0 && delay >= p.Max {
			return p.Max, true
		}
	}
	if p.Max > 0 && delay > p.Max {
		delay = p.Max
	}
	return delay, true
}

func newReconnectPolicy(cfg ReconnectConfig) ReconnectPolicy {
	if cfg.MaxDelay > cfg.InitialDelay {
		return ExponentialDelayPolicy{
			Initial:     cfg.InitialDelay,
			Max:         cfg.MaxDelay,
			MaxAttempts: cfg.MaxAttempts,
		}
	}
	return FixedDelayPolicy{
		Delay:       cfg.InitialDelay,
		MaxAttempts: cfg.MaxAttempts,
	}
}

// sessionOutcome is what a connection event decided about the stream's
// future: keep consuming, stop for good, or redial once it drains.
type sessionOutcome int

const (
	outcomeContinue sessionOutcome = iota
	outcomeTerminal
	outcomeReconnect
)

// runSession consumes one live session's event stream until it closes.
// Runs on its own goroutine; per-account ordering is the channel's
// ordering, nothing here fans out across goroutines.
func (g *Gateway) runSession(session *AccountSession, auth protocol.AuthState, live protocol.Session) {
	ctx := g.runCtx
	outcome := outcomeContinue

	for event := range live.Events() {
		switch {
		case event.Connection != nil:
			if next := g.handleConnectionUpdate(ctx, session, auth, live, event.Connection); next != outcomeContinue {
				outcome = next
			}
		case event.Creds:
			g.logInfo(ctx, "session credentials updated", map[string]any{
				"account_id": session.AccountID,
			})
		case event.Batch != nil:
			g.processBatch(ctx, session, live, event.Batch)
		case len(event.Updates) > 0:
			g.logInfo(ctx, "message updates received", map[string]any{
				"account_id": session.AccountID,
				"count":      len(event.Updates),
			})
		}
	}

	if outcome == outcomeTerminal {
		return
	}
	select {
	case <-ctx.Done():
		return
	default:
	}
	if outcome == outcomeContinue {
		// The stream drained without a close event. A session no longer
		// registered was torn down deliberately; anything else dropped
		// mid-flight and gets the transient-close treatment.
		if _, ok := g.registry.Remove(session.AccountID); !ok {
			return
		}
		session.setStatus(StatusReconnecting)
		g.persistStatus(ctx, session.AccountID, StatusReconnecting)
	}
	go g.reconnectLoop(session.AccountID, session.CollectionName, 1)
}

// handleConnectionUpdate applies one engine connection event and reports
// what the session should do once the stream drains.
func (g *Gateway) handleConnectionUpdate(
	ctx context.Context,
	session *AccountSession,
	auth protocol.AuthState,
	live protocol.Session,
	update *protocol.ConnectionUpdate,
) sessionOutcome {
	if update == nil {
		return outcomeContinue
	}

	if update.PairingToken != "" {
		session.setPairingToken(update.PairingToken)
		session.setStatus(StatusConnecting)
		g.persistStatus(ctx, session.AccountID, StatusConnecting)
		g.logInfo(ctx, "pairing token issued", map[string]any{
			"account_id": session.AccountID,
		})
	}

	switch update.Phase {
	case protocol.PhaseConnecting:
		session.setStatus(StatusConnecting)
		g.persistStatus(ctx, session.AccountID, StatusConnecting)

	case protocol.PhaseOpen:
		session.setStatus(StatusConnected)
		session.setPairingToken("")
		session.setDisconnect(nil)
		g.persistStatus(ctx, session.AccountID, StatusConnected)
		g.recordCounter(ctx, "gateway.session_connected.total", 1, map[string]string{
			"account_id": session.AccountID,
		})
		g.logInfo(ctx, "session connected", map[string]any{
			"account_id": session.AccountID,
		})
		g.sendAdminNotice(ctx, session.AccountID, live)

	case protocol.PhaseClose:
		disconnect := update.Disconnect
		session.setDisconnect(disconnect)
		if disconnect != nil && disconnect.Code == protocol.CodeLoggedOut {
			return g.handleLoggedOut(ctx, session, auth, disconnect)
		}
		// The slot frees immediately: a concurrent create dials fresh
		// instead of finding the dead session, and the retry below goes
		// through the same single-flight path.
		g.registry.Remove(session.AccountID)
		session.setStatus(StatusReconnecting)
		g.persistStatus(ctx, session.AccountID, StatusReconnecting)
		fields := map[string]any{
			"account_id": session.AccountID,
		}
		if disconnect != nil {
			fields["code"] = disconnect.Code
			fields["reason"] = disconnect.Reason
		}
		g.logInfo(ctx, "session closed, reconnect scheduled", fields)
		return outcomeReconnect
	}
	return outcomeContinue
}

// handleLoggedOut is the one terminal close: the engine invalidated the
// account's credentials server-side, so keeping them would only replay
// the same rejection. Drop everything and park the account.
func (g *Gateway) handleLoggedOut(
	ctx context.Context,
	session *AccountSession,
	auth protocol.AuthState,
	disconnect *protocol.Disconnect,
) sessionOutcome {
	session.setStatus(StatusLoggedOut)
	g.persistStatus(ctx, session.AccountID, StatusLoggedOut)
	g.registry.Remove(session.AccountID)

	if dropper, ok := auth.(interface {
		DropAll(ctx context.Context) error
	}); ok {
		if err := dropper.DropAll(ctx); err != nil {
			g.logError(ctx, "credential drop after logout failed", map[string]any{
				"account_id": session.AccountID,
				"error":      err.Error(),
			})
		}
	}

	fields := map[string]any{
		"account_id": session.AccountID,
	}
	if disconnect != nil {
		fields["reason"] = disconnect.Reason
	}
	g.recordCounter(ctx, "gateway.session_logged_out.total", 1, map[string]string{
		"account_id": session.AccountID,
	})
	g.logInfo(ctx, "session logged out", fields)
	return outcomeTerminal
}

// reconnectLoop waits per policy and redials through the registry's
// single-flight path, so a retry firing while an external create is in
// flight shares that dial instead of racing it. The durable account row
// is re-checked before every attempt; an account removed while the timer
// was pending is never resurrected.
func (g *Gateway) reconnectLoop(accountID string, collection string, attempt int) {
	ctx := g.runCtx
	for {
		delay, ok := g.reconnectPolicy.NextDelay(attempt)
		if !ok {
			g.persistStatus(ctx, accountID, StatusNotStarted)
			g.logError(ctx, "reconnect attempts exhausted", map[string]any{
				"account_id": accountID,
				"attempts":   attempt - 1,
			})
			g.enqueueReconnectJob(ctx, accountID, attempt-1)
			return
		}
		if err := waitWithContext(ctx, delay); err != nil {
			return
		}
		if !g.accountStillWanted(ctx, accountID) {
			return
		}

		session, created, err := g.registry.CreateOrGet(ctx, accountID, func(ctx context.Context) (*AccountSession, error) {
			return g.openSession(ctx, accountID, collection)
		})
		if err != nil {
			g.logError(ctx, "reconnect attempt failed", map[string]any{
				"account_id": accountID,
				"attempt":    attempt,
				"error":      err.Error(),
			})
			attempt++
			continue
		}
		if !created {
			// Someone re-created the account while the timer was
			// pending; that session's loop owns the slot now.
			g.logInfo(ctx, "reconnect superseded by concurrent create", map[string]any{
				"account_id": accountID,
			})
			return
		}
		session.setStatus(StatusConnecting)
		g.recordCounter(ctx, "gateway.session_reconnected.total", 1, map[string]string{
			"account_id": accountID,
		})
		return
	}
}

// accountStillWanted guards reconnects against accounts deleted while the
// retry timer was pending. The session left the registry when the close
// was handled, so only the durable row can answer.
func (g *Gateway) accountStillWanted(ctx context.Context, accountID string) bool {
	if g.accountStore == nil {
		return true
	}
	if _, err := g.accountStore.Get(ctx, accountID); err != nil {
		return false
	}
	return true
}

// JobIDReconnect identifies the deferred reconnect job handed to a queue
// worker once the in-process retry policy gives up.
const JobIDReconnect = "gateway.account.reconnect"

func (g *Gateway) enqueueReconnectJob(ctx context.Context, accountID string, attempts int) {
	if g == nil || g.jobEnqueuer == nil {
		return
	}
	msg := &JobExecutionMessage{
		JobID: JobIDReconnect,
		Parameters: map[string]any{
			"account_id": accountID,
			"attempts":   attempts,
		},
		IdempotencyKey: JobIDReconnect + ":" + accountID,
		DedupPolicy:    "replace",
	}
	if err := g.jobEnqueuer.Enqueue(ctx, msg); err != nil {
		g.logError(ctx, "reconnect job enqueue failed", map[string]any{
			"account_id": accountID,
			"error":      err.Error(),
		})
		return
	}
	g.logInfo(ctx, "reconnect handed off to job queue", map[string]any{
		"account_id": accountID,
	})
}

func (g *Gateway) persistStatus(ctx context.Context, accountID string, status SessionStatus) {
	if g == nil || g.accountStore == nil {
		return
	}
	if err := g.accountStore.UpdateStatus(ctx, accountID, status); err != nil {
		g.logError(ctx, "status persist failed", map[string]any{
			"account_id": accountID,
			"status":     string(status),
			"error":      err.Error(),
		})
	}
}

func (g *Gateway) sendAdminNotice(ctx context.Context, accountID string, live protocol.Session) {
	destination := g.config.AdminDestination
	if destination == "" || live == nil {
		return
	}
	notice := fmt.Sprintf("account %s connected", accountID)
	if _, err := live.SendText(ctx, destination, notice); err != nil {
		g.logError(ctx, "admin notice failed", map[string]any{
			"account_id": accountID,
			"error":      err.Error(),
		})
	}
}

func waitWithContext(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return nil
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
