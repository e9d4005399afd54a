package sqlstore

import (
	"context"
	"fmt"
	"strings"
	"time"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"

	"github.com/wildcatlabs/wildcat/core"
)

type AccountStore struct {
	db   *bun.DB
	repo repository.Repository[*accountRecord]
}

func (s *AccountStore) Create(ctx context.Context, in core.AccountRecord) (core.AccountRecord, error) {
	if s == nil || s.repo == nil {
		return core.AccountRecord{}, fmt.Errorf("sqlstore: account store is not configured")
	}
	accountID := strings.TrimSpace(in.AccountID)
	if accountID == "" {
		return core.AccountRecord{}, fmt.Errorf("sqlstore: account id is required")
	}

	if _, err := s.findByAccountID(ctx, accountID); err == nil {
		return core.AccountRecord{}, conflict(fmt.Sprintf("account %q already exists", accountID))
	}

	in.AccountID = accountID
	record := newAccountRecord(in, time.Now().UTC())
	created, err := s.repo.Create(ctx, record)
	if err != nil {
		return core.AccountRecord{}, err
	}
	return created.toDomain(), nil
}

func (s *AccountStore) Get(ctx context.Context, accountID string) (core.AccountRecord, error) {
	if s == nil || s.repo == nil {
		return core.AccountRecord{}, fmt.Errorf("sqlstore: account store is not configured")
	}
	record, err := s.findByAccountID(ctx, strings.TrimSpace(accountID))
	if err != nil {
		return core.AccountRecord{}, err
	}
	return record.toDomain(), nil
}

func (s *AccountStore) List(ctx context.Context) ([]core.AccountRecord, error) {
	if s == nil || s.repo == nil {
		return nil, fmt.Errorf("sqlstore: account store is not configured")
	}
	records, _, err := s.repo.List(ctx,
		repository.OrderBy("created_at ASC"),
	)
	if err != nil {
		return nil, err
	}
	out := make([]core.AccountRecord, 0, len(records))
	for _, record := range records {
		out = append(out, record.toDomain())
	}
	return out, nil
}

func (s *AccountStore) UpdateStatus(ctx context.Context, accountID string, status core.SessionStatus) error {
	if s == nil || s.repo == nil {
		return fmt.Errorf("sqlstore: account store is not configured")
	}
	if strings.TrimSpace(string(status)) == "" {
		return fmt.Errorf("sqlstore: status is required")
	}
	record, err := s.findByAccountID(ctx, strings.TrimSpace(accountID))
	if err != nil {
		return err
	}
	record.Status = string(status)
	record.UpdatedAt = time.Now().UTC()

	_, err = s.repo.Update(ctx, record, repository.UpdateByID(record.ID))
	return err
}

// Delete soft-deletes the row and reports which credential collection the
// account used, so the caller can drop it afterwards.
func (s *AccountStore) Delete(ctx context.Context, accountID string) (string, error) {
	if s == nil || s.db == nil {
		return "", fmt.Errorf("sqlstore: account store is not configured")
	}
	record, err := s.findByAccountID(ctx, strings.TrimSpace(accountID))
	if err != nil {
		return "", err
	}
	if _, err := s.db.NewDelete().
		Model((*accountRecord)(nil)).
		Where("id = ?", record.ID).
		Exec(ctx); err != nil {
		return "", err
	}
	return record.CollectionName, nil
}

func (s *AccountStore) findByAccountID(ctx context.Context, accountID string) (*accountRecord, error) {
	if accountID == "" {
		return nil, fmt.Errorf("sqlstore: account id is required")
	}
	records, _, err := s.repo.List(ctx,
		repository.SelectBy("account_id", "=", accountID),
		repository.SelectPaginate(1, 0),
	)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, notFound(fmt.Sprintf("account %q not found", accountID))
	}
	return records[0], nil
}

var _ core.AccountStore = (*AccountStore)(nil)
