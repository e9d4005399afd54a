package wildcat

import (
	"fmt"

	commanddispatcher "github.com/goliatone/go-command/dispatcher"

	"github.com/wildcatlabs/wildcat/adapters/gocommand"
	gatewaycommand "github.com/wildcatlabs/wildcat/command"
	"github.com/wildcatlabs/wildcat/core"
	gatewayquery "github.com/wildcatlabs/wildcat/query"
)

var _ CommandQueryService = (*core.Gateway)(nil)

// CommandQueryService is the surface the facade needs from the gateway. The
// core Gateway satisfies it directly.
type CommandQueryService interface {
	gatewaycommand.MutatingService
	gatewayquery.AccountReader
	gatewayquery.MessageReader
	gatewayquery.SubscriberReader
}

type Commands struct {
	CreateAccount   *gatewaycommand.CreateAccountCommand
	RemoveAccount   *gatewaycommand.RemoveAccountCommand
	RestoreAccounts *gatewaycommand.RestoreAccountsCommand
	SendText        *gatewaycommand.SendTextCommand
	Subscribe       *gatewaycommand.SubscribeCommand
}

type Queries struct {
	GetAccount      *gatewayquery.GetAccountQuery
	ListAccounts    *gatewayquery.ListAccountsQuery
	GetMessage      *gatewayquery.GetMessageQuery
	ListMessages    *gatewayquery.ListMessagesQuery
	ListSubscribers *gatewayquery.ListSubscribersQuery
}

type Facade struct {
	service  CommandQueryService
	commands Commands
	queries  Queries
}

func NewFacade(service CommandQueryService) (*Facade, error) {
	if service == nil {
		return nil, fmt.Errorf("wildcat: command/query service is required")
	}

	facade := &Facade{service: service}
	facade.commands = Commands{
		CreateAccount:   gatewaycommand.NewCreateAccountCommand(service),
		RemoveAccount:   gatewaycommand.NewRemoveAccountCommand(service),
		RestoreAccounts: gatewaycommand.NewRestoreAccountsCommand(service),
		SendText:        gatewaycommand.NewSendTextCommand(service),
		Subscribe:       gatewaycommand.NewSubscribeCommand(service),
	}
	facade.queries = Queries{
		GetAccount:      gatewayquery.NewGetAccountQuery(service),
		ListAccounts:    gatewayquery.NewListAccountsQuery(service),
		GetMessage:      gatewayquery.NewGetMessageQuery(service),
		ListMessages:    gatewayquery.NewListMessagesQuery(service),
		ListSubscribers: gatewayquery.NewListSubscribersQuery(service),
	}

	return facade, nil
}

func (f *Facade) Commands() Commands {
	if f == nil {
		return Commands{}
	}
	return f.commands
}

func (f *Facade) Queries() Queries {
	if f == nil {
		return Queries{}
	}
	return f.queries
}

func (f *Facade) Service() CommandQueryService {
	if f == nil {
		return nil
	}
	return f.service
}

// RegisterHandlers registers every facade command and query with the
// go-command registry and subscribes them on the process dispatcher. The
// returned subscriptions let the caller unwind on shutdown.
func (f *Facade) RegisterHandlers(adapter *gocommand.RegistryAdapter) ([]commanddispatcher.Subscription, error) {
	if f == nil {
		return nil, fmt.Errorf("wildcat: facade is required")
	}
	if adapter == nil {
		adapter = gocommand.NewRegistryAdapter(nil)
	}

	var subscriptions []commanddispatcher.Subscription
	collect := func(sub commanddispatcher.Subscription, err error) error {
		if err != nil {
			for _, active := range subscriptions {
				if active != nil {
					active.Unsubscribe()
				}
			}
			return err
		}
		subscriptions = append(subscriptions, sub)
		return nil
	}

	if err := collect(gocommand.RegisterAndSubscribe(adapter, f.commands.CreateAccount)); err != nil {
		return nil, err
	}
	if err := collect(gocommand.RegisterAndSubscribe(adapter, f.commands.RemoveAccount)); err != nil {
		return nil, err
	}
	if err := collect(gocommand.RegisterAndSubscribe(adapter, f.commands.RestoreAccounts)); err != nil {
		return nil, err
	}
	if err := collect(gocommand.RegisterAndSubscribe(adapter, f.commands.SendText)); err != nil {
		return nil, err
	}
	if err := collect(gocommand.RegisterAndSubscribe(adapter, f.commands.Subscribe)); err != nil {
		return nil, err
	}
	if err := collect(gocommand.RegisterAndSubscribeQuery(adapter, f.queries.GetAccount)); err != nil {
		return nil, err
	}
	if err := collect(gocommand.RegisterAndSubscribeQuery(adapter, f.queries.ListAccounts)); err != nil {
		return nil, err
	}
	if err := collect(gocommand.RegisterAndSubscribeQuery(adapter, f.queries.GetMessage)); err != nil {
		return nil, err
	}
	if err := collect(gocommand.RegisterAndSubscribeQuery(adapter, f.queries.ListMessages)); err != nil {
		return nil, err
	}
	if err := collect(gocommand.RegisterAndSubscribeQuery(adapter, f.queries.ListSubscribers)); err != nil {
		return nil, err
	}

	return subscriptions, nil
}
