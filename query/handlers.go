package query

import (
	"context"

	"github.com/wildcatlabs/wildcat/core"
)

type AccountReader interface {
	GetAccount(ctx context.Context, accountID string) (core.AccountStatus, error)
	ListAccounts(ctx context.Context) ([]core.AccountStatus, error)
}

type MessageReader interface {
	GetMessage(ctx context.Context, accountID string, messageID string) (core.MessageRecord, error)
	ListMessages(ctx context.Context, filter core.MessageFilter) (core.MessagePage, error)
}

type SubscriberReader interface {
	ListSubscribers(ctx context.Context) ([]core.Subscriber, error)
}

type GetAccountQuery struct {
	reader AccountReader
}

func NewGetAccountQuery(reader AccountReader) *GetAccountQuery {
	return &GetAccountQuery{reader: reader}
}

func (q *GetAccountQuery) Query(ctx context.Context, msg GetAccountMessage) (core.AccountStatus, error) {
	if q == nil || q.reader == nil {
		return core.AccountStatus{}, queryDependencyError("query: account reader is required")
	}
	return q.reader.GetAccount(ctx, msg.AccountID)
}

type ListAccountsQuery struct {
	reader AccountReader
}

func NewListAccountsQuery(reader AccountReader) *ListAccountsQuery {
	return &ListAccountsQuery{reader: reader}
}

func (q *ListAccountsQuery) Query(ctx context.Context, msg ListAccountsMessage) ([]core.AccountStatus, error) {
	if q == nil || q.reader == nil {
		return nil, queryDependencyError("query: account reader is required")
	}
	return q.reader.ListAccounts(ctx)
}

type GetMessageQuery struct {
	reader MessageReader
}

func NewGetMessageQuery(reader MessageReader) *GetMessageQuery {
	return &GetMessageQuery{reader: reader}
}

func (q *GetMessageQuery) Query(ctx context.Context, msg GetMessageMessage) (core.MessageRecord, error) {
	if q == nil || q.reader == nil {
		return core.MessageRecord{}, queryDependencyError("query: message reader is required")
	}
	return q.reader.GetMessage(ctx, msg.AccountID, msg.MessageID)
}

type ListMessagesQuery struct {
	reader MessageReader
}

func NewListMessagesQuery(reader MessageReader) *ListMessagesQuery {
	return &ListMessagesQuery{reader: reader}
}

func (q *ListMessagesQuery) Query(ctx context.Context, msg ListMessagesMessage) (core.MessagePage, error) {
	if q == nil || q.reader == nil {
		return core.MessagePage{}, queryDependencyError("query: message reader is required")
	}
	return q.reader.ListMessages(ctx, msg.Filter)
}

type ListSubscribersQuery struct {
	reader SubscriberReader
}

func NewListSubscribersQuery(reader SubscriberReader) *ListSubscribersQuery {
	return &ListSubscribersQuery{reader: reader}
}

func (q *ListSubscribersQuery) Query(ctx context.Context, msg ListSubscribersMessage) ([]core.Subscriber, error) {
	if q == nil || q.reader == nil {
		return nil, queryDependencyError("query: subscriber reader is required")
	}
	return q.reader.ListSubscribers(ctx)
}
