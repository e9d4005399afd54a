package query

import (
	"fmt"
	"strings"

	"github.com/wildcatlabs/wildcat/core"
)

const (
	TypeGetAccount      = "gateway.query.account.get"
	TypeListAccounts    = "gateway.query.account.list"
	TypeGetMessage      = "gateway.query.message.get"
	TypeListMessages    = "gateway.query.message.list"
	TypeListSubscribers = "gateway.query.webhook.list"
)

type GetAccountMessage struct {
	AccountID string
}

func (GetAccountMessage) Type() string { return TypeGetAccount }

func (m GetAccountMessage) Validate() error {
	if strings.TrimSpace(m.AccountID) == "" {
		return fmt.Errorf("query: account id is required")
	}
	return nil
}

type ListAccountsMessage struct{}

func (ListAccountsMessage) Type() string { return TypeListAccounts }

func (ListAccountsMessage) Validate() error { return nil }

type GetMessageMessage struct {
	AccountID string
	MessageID string
}

func (GetMessageMessage) Type() string { return TypeGetMessage }

func (m GetMessageMessage) Validate() error {
	if strings.TrimSpace(m.AccountID) == "" {
		return fmt.Errorf("query: account id is required")
	}
	if strings.TrimSpace(m.MessageID) == "" {
		return fmt.Errorf("query: message id is required")
	}
	return nil
}

type ListMessagesMessage struct {
	Filter core.MessageFilter
}

func (ListMessagesMessage) Type() string { return TypeListMessages }

func (m ListMessagesMessage) Validate() error {
	if strings.TrimSpace(m.Filter.AccountID) == "" {
		return fmt.Errorf("query: account id is required")
	}
	if m.Filter.Page < 0 {
		return fmt.Errorf("query: page must be >= 0")
	}
	if m.Filter.PerPage < 0 {
		return fmt.Errorf("query: per_page must be >= 0")
	}
	return nil
}

type ListSubscribersMessage struct{}

func (ListSubscribersMessage) Type() string { return TypeListSubscribers }

func (ListSubscribersMessage) Validate() error { return nil }
