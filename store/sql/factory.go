package sqlstore

import (
	"fmt"

	persistence "github.com/goliatone/go-persistence-bun"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"

	"github.com/wildcatlabs/wildcat/core"
)

// RepositoryFactory wires every gateway store onto one bun handle. It
// satisfies both core.RepositoryStoreFactory and core.StoreProvider so it
// can be handed to the gateway builder directly.
type RepositoryFactory struct {
	db *bun.DB

	accountStore    *AccountStore
	credentialStore *CredentialDocStore
	messageStore    *MessageStore
	subscriberStore *SubscriberStore
	mediaStore      *MediaStore
}

func NewRepositoryFactory() *RepositoryFactory {
	return &RepositoryFactory{}
}

func NewRepositoryFactoryFromPersistence(client *persistence.Client) (*RepositoryFactory, error) {
	factory := NewRepositoryFactory()
	if _, err := factory.BuildStores(client); err != nil {
		return nil, err
	}
	return factory, nil
}

func NewRepositoryFactoryFromDB(db *bun.DB) (*RepositoryFactory, error) {
	factory := NewRepositoryFactory()
	if _, err := factory.BuildStores(db); err != nil {
		return nil, err
	}
	return factory, nil
}

func (f *RepositoryFactory) BuildStores(persistenceClient any) (core.StoreProvider, error) {
	if f == nil {
		return nil, fmt.Errorf("sqlstore: repository factory is nil")
	}
	if f.db == nil {
		db, err := resolveBunDB(persistenceClient)
		if err != nil {
			return nil, err
		}
		f.db = db
	}
	if f.accountStore != nil && f.credentialStore != nil {
		return f, nil
	}
	if err := f.initStores(); err != nil {
		return nil, err
	}
	return f, nil
}

func (f *RepositoryFactory) AccountStore() core.AccountStore {
	if f == nil {
		return nil
	}
	return f.accountStore
}

func (f *RepositoryFactory) CredentialDocs() core.CredentialDocs {
	if f == nil {
		return nil
	}
	return f.credentialStore
}

func (f *RepositoryFactory) MessageStore() core.MessageStore {
	if f == nil {
		return nil
	}
	return f.messageStore
}

func (f *RepositoryFactory) SubscriberStore() core.SubscriberStore {
	if f == nil {
		return nil
	}
	return f.subscriberStore
}

func (f *RepositoryFactory) MediaStore() *MediaStore {
	if f == nil {
		return nil
	}
	return f.mediaStore
}

func (f *RepositoryFactory) DB() *bun.DB {
	if f == nil {
		return nil
	}
	return f.db
}

func (f *RepositoryFactory) initStores() error {
	accountRepo := repository.NewRepository[*accountRecord](f.db, accountHandlers())
	if validator, ok := accountRepo.(repository.Validator); ok {
		if err := validator.Validate(); err != nil {
			return fmt.Errorf("sqlstore: invalid account repository wiring: %w", err)
		}
	}
	credentialRepo := repository.NewRepository[*credentialDocRecord](f.db, credentialDocHandlers())
	if validator, ok := credentialRepo.(repository.Validator); ok {
		if err := validator.Validate(); err != nil {
			return fmt.Errorf("sqlstore: invalid credential repository wiring: %w", err)
		}
	}
	messageRepo := repository.NewRepository[*messageRecord](f.db, messageHandlers())
	if validator, ok := messageRepo.(repository.Validator); ok {
		if err := validator.Validate(); err != nil {
			return fmt.Errorf("sqlstore: invalid message repository wiring: %w", err)
		}
	}
	subscriberRepo := repository.NewRepository[*subscriberRecord](f.db, subscriberHandlers())
	if validator, ok := subscriberRepo.(repository.Validator); ok {
		if err := validator.Validate(); err != nil {
			return fmt.Errorf("sqlstore: invalid subscriber repository wiring: %w", err)
		}
	}
	mediaRepo := repository.NewRepository[*mediaObjectRecord](f.db, mediaObjectHandlers())
	if validator, ok := mediaRepo.(repository.Validator); ok {
		if err := validator.Validate(); err != nil {
			return fmt.Errorf("sqlstore: invalid media repository wiring: %w", err)
		}
	}

	f.accountStore = &AccountStore{db: f.db, repo: accountRepo}
	f.credentialStore = &CredentialDocStore{db: f.db, repo: credentialRepo}
	f.messageStore = &MessageStore{db: f.db, repo: messageRepo}
	f.subscriberStore = &SubscriberStore{db: f.db, repo: subscriberRepo}
	f.mediaStore = &MediaStore{db: f.db, repo: mediaRepo}
	return nil
}

func resolveBunDB(candidate any) (*bun.DB, error) {
	switch typed := candidate.(type) {
	case nil:
		return nil, fmt.Errorf("sqlstore: persistence client is required")
	case *bun.DB:
		return typed, nil
	case interface{ DB() *bun.DB }:
		db := typed.DB()
		if db == nil {
			return nil, fmt.Errorf("sqlstore: persistence client returned nil bun db")
		}
		return db, nil
	default:
		return nil, fmt.Errorf("sqlstore: unsupported persistence client %T", candidate)
	}
}

var (
	_ core.RepositoryStoreFactory = (*RepositoryFactory)(nil)
	_ core.StoreProvider          = (*RepositoryFactory)(nil)
)
