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

const (
	defaultMessagePageSize = 50
	maxMessagePageSize     = 200
)

type MessageStore struct {
	db   *bun.DB
	repo repository.Repository[*messageRecord]
}

// Insert appends one canonical record. A duplicate (account, message id)
// pair is a conflict: the pipeline never rewrites history.
func (s *MessageStore) Insert(ctx context.Context, in core.MessageRecord) (core.MessageRecord, error) {
	if s == nil || s.repo == nil {
		return core.MessageRecord{}, fmt.Errorf("sqlstore: message store is not configured")
	}
	if strings.TrimSpace(in.AccountID) == "" {
		return core.MessageRecord{}, fmt.Errorf("sqlstore: account id is required")
	}
	if strings.TrimSpace(in.MessageID) == "" {
		return core.MessageRecord{}, fmt.Errorf("sqlstore: message id is required")
	}

	if _, err := s.find(ctx, in.AccountID, in.MessageID); err == nil {
		return core.MessageRecord{}, conflict(fmt.Sprintf(
			"message %q already recorded for account %q", in.MessageID, in.AccountID,
		))
	}

	record, err := newMessageRow(in, time.Now().UTC())
	if err != nil {
		return core.MessageRecord{}, err
	}
	created, err := s.repo.Create(ctx, record)
	if err != nil {
		return core.MessageRecord{}, err
	}
	return created.toDomain(), nil
}

func (s *MessageStore) Get(ctx context.Context, accountID string, messageID string) (core.MessageRecord, error) {
	if s == nil || s.repo == nil {
		return core.MessageRecord{}, fmt.Errorf("sqlstore: message store is not configured")
	}
	record, err := s.find(ctx, accountID, messageID)
	if err != nil {
		return core.MessageRecord{}, err
	}
	return record.toDomain(), nil
}

// List pages through an account's records newest first.
func (s *MessageStore) List(ctx context.Context, filter core.MessageFilter) (core.MessagePage, error) {
	if s == nil || s.repo == nil {
		return core.MessagePage{}, fmt.Errorf("sqlstore: message store is not configured")
	}
	accountID := strings.TrimSpace(filter.AccountID)
	if accountID == "" {
		return core.MessagePage{}, fmt.Errorf("sqlstore: account id is required")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	perPage := filter.PerPage
	if perPage <= 0 {
		perPage = defaultMessagePageSize
	}
	if perPage > maxMessagePageSize {
		perPage = maxMessagePageSize
	}
	offset := (page - 1) * perPage

	selectors := []repository.SelectCriteria{
		repository.SelectBy("account_id", "=", accountID),
		repository.OrderBy("timestamp DESC"),
		repository.SelectPaginate(perPage, offset),
	}
	if chatID := strings.TrimSpace(filter.ChatID); chatID != "" {
		selectors = append(selectors, repository.SelectBy("chat_id", "=", chatID))
	}
	// Bound as time.Time so bun renders the literal per dialect; a string
	// bound would not compare against sqlite's stored text form.
	if filter.From != nil {
		from := filter.From.UTC()
		selectors = append(selectors, repository.SelectRawProcessor(func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Where("?TableAlias.timestamp >= ?", from)
		}))
	}
	if filter.To != nil {
		to := filter.To.UTC()
		selectors = append(selectors, repository.SelectRawProcessor(func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Where("?TableAlias.timestamp <= ?", to)
		}))
	}

	records, total, err := s.repo.List(ctx, selectors...)
	if err != nil {
		return core.MessagePage{}, err
	}

	items := make([]core.MessageRecord, 0, len(records))
	for _, record := range records {
		items = append(items, record.toDomain())
	}
	return core.MessagePage{
		Items:   items,
		Page:    page,
		PerPage: perPage,
		Total:   total,
		HasNext: offset+len(items) < total,
	}, nil
}

func (s *MessageStore) find(ctx context.Context, accountID string, messageID string) (*messageRecord, error) {
	accountID = strings.TrimSpace(accountID)
	messageID = strings.TrimSpace(messageID)
	if accountID == "" || messageID == "" {
		return nil, fmt.Errorf("sqlstore: account id and message id are required")
	}
	records, _, err := s.repo.List(ctx,
		repository.SelectBy("account_id", "=", accountID),
		repository.SelectBy("message_id", "=", messageID),
		repository.SelectPaginate(1, 0),
	)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, notFound(fmt.Sprintf("message %q not found for account %q", messageID, accountID))
	}
	return records[0], nil
}

var _ core.MessageStore = (*MessageStore)(nil)
