package command

import (
	"context"

	gocmd "github.com/goliatone/go-command"
	"github.com/wildcatlabs/wildcat/core"
)

type MutatingService interface {
	CreateAccount(ctx context.Context, req core.CreateAccountRequest) (core.AccountStatus, error)
	RemoveAccount(ctx context.Context, accountID string) error
	RestoreAccounts(ctx context.Context) (core.RestoreResult, error)
	SendText(ctx context.Context, accountID string, destination string, text string) (string, error)
	Subscribe(ctx context.Context, url string) (core.Subscriber, bool, error)
}

// SendTextResult carries the engine-assigned message id of an outbound text.
type SendTextResult struct {
	MessageID string
}

// SubscribeResult reports the subscriber row and whether this call created it.
type SubscribeResult struct {
	Subscriber core.Subscriber
	Created    bool
}

type CreateAccountCommand struct {
	service MutatingService
}

func NewCreateAccountCommand(service MutatingService) *CreateAccountCommand {
	return &CreateAccountCommand{service: service}
}

func (c *CreateAccountCommand) Execute(ctx context.Context, msg CreateAccountMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: account service is required")
	}
	out, err := c.service.CreateAccount(ctx, msg.Request)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type RemoveAccountCommand struct {
	service MutatingService
}

func NewRemoveAccountCommand(service MutatingService) *RemoveAccountCommand {
	return &RemoveAccountCommand{service: service}
}

func (c *RemoveAccountCommand) Execute(ctx context.Context, msg RemoveAccountMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: account service is required")
	}
	return c.service.RemoveAccount(ctx, msg.AccountID)
}

type RestoreAccountsCommand struct {
	service MutatingService
}

func NewRestoreAccountsCommand(service MutatingService) *RestoreAccountsCommand {
	return &RestoreAccountsCommand{service: service}
}

func (c *RestoreAccountsCommand) Execute(ctx context.Context, msg RestoreAccountsMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: account service is required")
	}
	out, err := c.service.RestoreAccounts(ctx)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type SendTextCommand struct {
	service MutatingService
}

func NewSendTextCommand(service MutatingService) *SendTextCommand {
	return &SendTextCommand{service: service}
}

func (c *SendTextCommand) Execute(ctx context.Context, msg SendTextMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: message service is required")
	}
	messageID, err := c.service.SendText(ctx, msg.AccountID, msg.Destination, msg.Text)
	if err != nil {
		return err
	}
	storeResult(ctx, SendTextResult{MessageID: messageID})
	return nil
}

type SubscribeCommand struct {
	service MutatingService
}

func NewSubscribeCommand(service MutatingService) *SubscribeCommand {
	return &SubscribeCommand{service: service}
}

func (c *SubscribeCommand) Execute(ctx context.Context, msg SubscribeMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: subscriber service is required")
	}
	subscriber, created, err := c.service.Subscribe(ctx, msg.URL)
	if err != nil {
		return err
	}
	storeResult(ctx, SubscribeResult{Subscriber: subscriber, Created: created})
	return nil
}

func storeResult[T any](ctx context.Context, value T) {
	collector := gocmd.ResultFromContext[T](ctx)
	if collector == nil {
		return
	}
	collector.Store(value)
}
