package command

import (
	"fmt"
	"strings"

	"github.com/wildcatlabs/wildcat/core"
)

const (
	TypeCreateAccount   = "gateway.command.account.create"
	TypeRemoveAccount   = "gateway.command.account.remove"
	TypeRestoreAccounts = "gateway.command.account.restore"
	TypeSendText        = "gateway.command.message.send_text"
	TypeSubscribe       = "gateway.command.webhook.subscribe"
)

type CreateAccountMessage struct {
	Request core.CreateAccountRequest
}

func (CreateAccountMessage) Type() string { return TypeCreateAccount }

func (m CreateAccountMessage) Validate() error {
	if strings.TrimSpace(m.Request.AccountID) == "" {
		return fmt.Errorf("command: account id is required")
	}
	return nil
}

type RemoveAccountMessage struct {
	AccountID string
}

func (RemoveAccountMessage) Type() string { return TypeRemoveAccount }

func (m RemoveAccountMessage) Validate() error {
	if strings.TrimSpace(m.AccountID) == "" {
		return fmt.Errorf("command: account id is required")
	}
	return nil
}

type RestoreAccountsMessage struct{}

func (RestoreAccountsMessage) Type() string { return TypeRestoreAccounts }

func (RestoreAccountsMessage) Validate() error { return nil }

type SendTextMessage struct {
	AccountID   string
	Destination string
	Text        string
}

func (SendTextMessage) Type() string { return TypeSendText }

func (m SendTextMessage) Validate() error {
	if strings.TrimSpace(m.AccountID) == "" {
		return fmt.Errorf("command: account id is required")
	}
	if strings.TrimSpace(m.Destination) == "" {
		return fmt.Errorf("command: destination is required")
	}
	if strings.TrimSpace(m.Text) == "" {
		return fmt.Errorf("command: text is required")
	}
	return nil
}

type SubscribeMessage struct {
	URL string
}

func (SubscribeMessage) Type() string { return TypeSubscribe }

func (m SubscribeMessage) Validate() error {
	if strings.TrimSpace(m.URL) == "" {
		return fmt.Errorf("command: subscriber url is required")
	}
	return nil
}
