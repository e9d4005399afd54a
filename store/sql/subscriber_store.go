package sqlstore

import (
	"context"
	"fmt"
	"strings"
	"time"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/wildcatlabs/wildcat/core"
)

type SubscriberStore struct {
	db   *bun.DB
	repo repository.Repository[*subscriberRecord]
}

func (s *SubscriberStore) List(ctx context.Context) ([]core.Subscriber, error) {
	if s == nil || s.repo == nil {
		return nil, fmt.Errorf("sqlstore: subscriber store is not configured")
	}
	records, _, err := s.repo.List(ctx,
		repository.OrderBy("created_at ASC"),
	)
	if err != nil {
		return nil, err
	}
	out := make([]core.Subscriber, 0, len(records))
	for _, record := range records {
		out = append(out, record.toDomain())
	}
	return out, nil
}

// UpsertByURL registers a destination once: re-registering the same URL
// returns the existing row with created false.
func (s *SubscriberStore) UpsertByURL(ctx context.Context, url string) (core.Subscriber, bool, error) {
	if s == nil || s.repo == nil {
		return core.Subscriber{}, false, fmt.Errorf("sqlstore: subscriber store is not configured")
	}
	url = strings.TrimSpace(url)
	if url == "" {
		return core.Subscriber{}, false, fmt.Errorf("sqlstore: subscriber url is required")
	}

	if existing, err := s.findByURL(ctx, url); err == nil {
		return existing.toDomain(), false, nil
	}

	now := time.Now().UTC()
	record := &subscriberRecord{
		ID:        uuid.NewString(),
		URL:       url,
		CreatedAt: now,
		UpdatedAt: now,
	}
	created, err := s.repo.Create(ctx, record)
	if err != nil {
		// A concurrent registration can win the unique-url race; resolve
		// to that row instead of failing.
		if existing, findErr := s.findByURL(ctx, url); findErr == nil {
			return existing.toDomain(), false, nil
		}
		return core.Subscriber{}, false, err
	}
	return created.toDomain(), true, nil
}

func (s *SubscriberStore) findByURL(ctx context.Context, url string) (*subscriberRecord, error) {
	records, _, err := s.repo.List(ctx,
		repository.SelectBy("url", "=", url),
		repository.SelectPaginate(1, 0),
	)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, notFound(fmt.Sprintf("subscriber with url %q not found", url))
	}
	return records[0], nil
}

var _ core.SubscriberStore = (*SubscriberStore)(nil)
