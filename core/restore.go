package core

import (
	"context"
	"strings"
	"time"
)

// RestoreResult summarizes one startup restore pass.
type RestoreResult struct {
	Candidates int
	Started    int
	Skipped    int
	Failed     int
}

// RestoreAccounts re-opens a session for every stored account that should
// be running: logged-out accounts stay parked, and with auto-connect
// disabled only accounts that were previously active restart. A failed
// open marks the row not_started and moves on; one broken account never
// blocks the rest.
func (g *Gateway) RestoreAccounts(ctx context.Context) (result RestoreResult, err error) {
	startedAt := time.Now().UTC()
	fields := map[string]any{}
	defer func() {
		fields["candidates"] = result.Candidates
		fields["started"] = result.Started
		fields["skipped"] = result.Skipped
		fields["failed"] = result.Failed
		g.observeOperation(ctx, startedAt, "restore_accounts", err, fields)
	}()

	if g.accountStore == nil {
		return RestoreResult{}, nil
	}
	records, listErr := g.accountStore.List(ctx)
	if listErr != nil {
		err = g.mapError(listErr)
		return RestoreResult{}, err
	}

	result.Candidates = len(records)
	for _, record := range records {
		if !g.shouldRestore(record) {
			result.Skipped++
			continue
		}
		accountID := record.AccountID
		collection := strings.TrimSpace(record.CollectionName)
		if collection == "" {
			collection = DefaultCollectionName(accountID)
		}

		_, _, openErr := g.registry.CreateOrGet(ctx, accountID, func(ctx context.Context) (*AccountSession, error) {
			return g.openSession(ctx, accountID, collection)
		})
		if openErr != nil {
			result.Failed++
			g.persistStatus(ctx, accountID, StatusNotStarted)
			g.logError(ctx, "account restore failed", map[string]any{
				"account_id": accountID,
				"error":      openErr.Error(),
			})
			continue
		}
		result.Started++
	}
	return result, nil
}

func (g *Gateway) shouldRestore(record AccountRecord) bool {
	if strings.TrimSpace(record.AccountID) == "" {
		return false
	}
	switch record.Status {
	case StatusLoggedOut:
		return false
	case StatusNotStarted, StatusClosed:
		return g.config.AutoConnectEnabled()
	default:
		return true
	}
}
