package query

import (
	"context"
	"fmt"
	"testing"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/wildcatlabs/wildcat/core"
)

type stubReaders struct {
	getAccountFn      func(ctx context.Context, accountID string) (core.AccountStatus, error)
	listAccountsFn    func(ctx context.Context) ([]core.AccountStatus, error)
	getMessageFn      func(ctx context.Context, accountID string, messageID string) (core.MessageRecord, error)
	listMessagesFn    func(ctx context.Context, filter core.MessageFilter) (core.MessagePage, error)
	listSubscribersFn func(ctx context.Context) ([]core.Subscriber, error)
}

func (s stubReaders) GetAccount(ctx context.Context, accountID string) (core.AccountStatus, error) {
	if s.getAccountFn == nil {
		return core.AccountStatus{}, fmt.Errorf("get account not configured")
	}
	return s.getAccountFn(ctx, accountID)
}

func (s stubReaders) ListAccounts(ctx context.Context) ([]core.AccountStatus, error) {
	if s.listAccountsFn == nil {
		return nil, fmt.Errorf("list accounts not configured")
	}
	return s.listAccountsFn(ctx)
}

func (s stubReaders) GetMessage(ctx context.Context, accountID string, messageID string) (core.MessageRecord, error) {
	if s.getMessageFn == nil {
		return core.MessageRecord{}, fmt.Errorf("get message not configured")
	}
	return s.getMessageFn(ctx, accountID, messageID)
}

func (s stubReaders) ListMessages(ctx context.Context, filter core.MessageFilter) (core.MessagePage, error) {
	if s.listMessagesFn == nil {
		return core.MessagePage{}, fmt.Errorf("list messages not configured")
	}
	return s.listMessagesFn(ctx, filter)
}

func (s stubReaders) ListSubscribers(ctx context.Context) ([]core.Subscriber, error) {
	if s.listSubscribersFn == nil {
		return nil, fmt.Errorf("list subscribers not configured")
	}
	return s.listSubscribersFn(ctx)
}

func TestQueries_DelegateToReaders(t *testing.T) {
	t.Run("get account", func(t *testing.T) {
		reader := stubReaders{
			getAccountFn: func(_ context.Context, accountID string) (core.AccountStatus, error) {
				if accountID != "acct-1" {
					t.Fatalf("unexpected account id: %q", accountID)
				}
				return core.AccountStatus{AccountID: accountID, Status: core.StatusConnected}, nil
			},
		}
		qry := NewGetAccountQuery(reader)
		out, err := qry.Query(context.Background(), GetAccountMessage{AccountID: "acct-1"})
		if err != nil {
			t.Fatalf("get account query: %v", err)
		}
		if out.Status != core.StatusConnected {
			t.Fatalf("unexpected status: %q", out.Status)
		}
	})

	t.Run("list accounts", func(t *testing.T) {
		reader := stubReaders{
			listAccountsFn: func(context.Context) ([]core.AccountStatus, error) {
				return []core.AccountStatus{{AccountID: "a"}, {AccountID: "b"}}, nil
			},
		}
		qry := NewListAccountsQuery(reader)
		out, err := qry.Query(context.Background(), ListAccountsMessage{})
		if err != nil {
			t.Fatalf("list accounts query: %v", err)
		}
		if len(out) != 2 {
			t.Fatalf("expected 2 accounts, got %d", len(out))
		}
	})

	t.Run("list messages passes filter", func(t *testing.T) {
		from := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
		reader := stubReaders{
			listMessagesFn: func(_ context.Context, filter core.MessageFilter) (core.MessagePage, error) {
				if filter.AccountID != "acct-1" || filter.ChatID != "chat-9" {
					t.Fatalf("unexpected filter: %#v", filter)
				}
				if filter.From == nil || !filter.From.Equal(from) {
					t.Fatalf("expected from filter to survive")
				}
				return core.MessagePage{Total: 1}, nil
			},
		}
		qry := NewListMessagesQuery(reader)
		out, err := qry.Query(context.Background(), ListMessagesMessage{Filter: core.MessageFilter{
			AccountID: "acct-1",
			ChatID:    "chat-9",
			From:      &from,
		}})
		if err != nil {
			t.Fatalf("list messages query: %v", err)
		}
		if out.Total != 1 {
			t.Fatalf("unexpected total: %d", out.Total)
		}
	})

	t.Run("list subscribers", func(t *testing.T) {
		reader := stubReaders{
			listSubscribersFn: func(context.Context) ([]core.Subscriber, error) {
				return []core.Subscriber{{ID: "sub-1", URL: "https://hooks.example.com"}}, nil
			},
		}
		qry := NewListSubscribersQuery(reader)
		out, err := qry.Query(context.Background(), ListSubscribersMessage{})
		if err != nil {
			t.Fatalf("list subscribers query: %v", err)
		}
		if len(out) != 1 || out[0].ID != "sub-1" {
			t.Fatalf("unexpected subscribers: %#v", out)
		}
	})
}

func TestNilQueries_ReturnRichDependencyErrors(t *testing.T) {
	var qry *GetMessageQuery
	_, err := qry.Query(context.Background(), GetMessageMessage{AccountID: "a", MessageID: "m"})
	if err == nil {
		t.Fatalf("expected dependency error")
	}
	var rich *goerrors.Error
	if !goerrors.As(err, &rich) {
		t.Fatalf("expected go-errors envelope, got %T", err)
	}
	if rich.Category != goerrors.CategoryInternal {
		t.Fatalf("expected internal category, got %q", rich.Category)
	}
	if rich.TextCode != core.GatewayErrorInternal {
		t.Fatalf("expected %q text code, got %q", core.GatewayErrorInternal, rich.TextCode)
	}
}

func TestQueryMessages_Validate(t *testing.T) {
	cases := []struct {
		name    string
		msg     interface{ Validate() error }
		wantErr bool
	}{
		{"get account missing id", GetAccountMessage{}, true},
		{"get message missing message id", GetMessageMessage{AccountID: "a"}, true},
		{"list messages missing account", ListMessagesMessage{}, true},
		{"list messages negative page", ListMessagesMessage{Filter: core.MessageFilter{AccountID: "a", Page: -1}}, true},
		{"list messages ok", ListMessagesMessage{Filter: core.MessageFilter{AccountID: "a"}}, false},
		{"list accounts ok", ListAccountsMessage{}, false},
		{"list subscribers ok", ListSubscribersMessage{}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.msg.Validate()
			if tc.wantErr && err == nil {
				t.Fatalf("expected validation error")
			}
			if !tc.wantErr && err != nil {
				t.Fatalf("unexpected validation error: %v", err)
			}
		})
	}
}
