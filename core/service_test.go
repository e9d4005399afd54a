package core

import (
	"context"
	"testing"
	"time"

	goerrors "github.com/goliatone/go-errors"

	"github.com/wildcatlabs/wildcat/protocol"
	"github.com/wildcatlabs/wildcat/protocol/devkit"
)

func TestNewGateway_RequiresEngine(t *testing.T) {
	_, err := NewGateway(DefaultConfig(), WithCredentialDocs(newMemoryCredentialDocs()))
	if err == nil {
		t.Fatalf("expected engine requirement error")
	}
	var rich *goerrors.Error
	if !goerrors.As(err, &rich) {
		t.Fatalf("expected go-errors envelope, got %T", err)
	}
}

func TestNewGateway_RequiresCredentialDocs(t *testing.T) {
	_, err := NewGateway(DefaultConfig(), WithEngine(devkit.NewEngine()))
	if err == nil {
		t.Fatalf("expected credential store requirement error")
	}
}

func TestNewGateway_WiresStoresFromProvider(t *testing.T) {
	provider := staticStoreProvider{
		accounts:    newMemoryAccountStore(),
		credentials: newMemoryCredentialDocs(),
		messages:    newMemoryMessageStore(),
		subscribers: newMemorySubscriberStore(),
	}
	gateway, err := NewGateway(DefaultConfig(),
		WithEngine(devkit.NewEngine()),
		WithRepositoryFactory(provider),
	)
	if err != nil {
		t.Fatalf("new gateway: %v", err)
	}
	defer gateway.Close(context.Background())

	deps := gateway.Dependencies()
	if deps.AccountStore != AccountStore(provider.accounts) {
		t.Fatalf("account store not wired from provider")
	}
	if deps.MessageStore != MessageStore(provider.messages) {
		t.Fatalf("message store not wired from provider")
	}
}

type staticStoreProvider struct {
	accounts    *memoryAccountStore
	credentials *memoryCredentialDocs
	messages    *memoryMessageStore
	subscribers *memorySubscriberStore
}

func (p staticStoreProvider) AccountStore() AccountStore       { return p.accounts }
func (p staticStoreProvider) CredentialDocs() CredentialDocs   { return p.credentials }
func (p staticStoreProvider) MessageStore() MessageStore       { return p.messages }
func (p staticStoreProvider) SubscriberStore() SubscriberStore { return p.subscribers }

func TestGateway_CreateAccountValidatesInput(t *testing.T) {
	fixture := newGatewayFixture(t, devkit.NewEngine())
	defer fixture.gateway.Close(context.Background())

	_, err := fixture.gateway.CreateAccount(context.Background(), CreateAccountRequest{AccountID: "   "})
	if err == nil {
		t.Fatalf("expected validation error")
	}
	var rich *goerrors.Error
	if !goerrors.As(err, &rich) {
		t.Fatalf("expected go-errors envelope, got %T", err)
	}
	if rich.TextCode != GatewayErrorBadInput {
		t.Fatalf("expected bad input text code, got %q", rich.TextCode)
	}
}

func TestGateway_CreateAccountHonorsCustomCollection(t *testing.T) {
	engine := devkit.NewEngine()
	fixture := newGatewayFixture(t, engine)
	defer fixture.gateway.Close(context.Background())

	status, err := fixture.gateway.CreateAccount(context.Background(), CreateAccountRequest{
		AccountID:      "acct-1",
		CollectionName: "tenant_a_creds",
	})
	if err != nil {
		t.Fatalf("create account: %v", err)
	}
	if status.CollectionName != "tenant_a_creds" {
		t.Fatalf("expected custom collection, got %q", status.CollectionName)
	}

	record, err := fixture.accounts.Get(context.Background(), "acct-1")
	if err != nil {
		t.Fatalf("account row missing: %v", err)
	}
	if record.CollectionName != "tenant_a_creds" {
		t.Fatalf("stored collection mismatch: %q", record.CollectionName)
	}
}

func TestGateway_CreateAccountOpenFailureParksAccount(t *testing.T) {
	engine := devkit.NewEngine()
	fixture := newGatewayFixture(t, engine)
	defer fixture.gateway.Close(context.Background())

	engine.FailNextOpen(context.DeadlineExceeded)
	_, err := fixture.gateway.CreateAccount(context.Background(), CreateAccountRequest{AccountID: "acct-1"})
	if err == nil {
		t.Fatalf("expected open failure")
	}
	if fixture.accounts.status("acct-1") != StatusNotStarted {
		t.Fatalf("failed open should park the account as not_started")
	}

	// The registry holds nothing, so a retry dials again and succeeds.
	status, retryErr := fixture.gateway.CreateAccount(context.Background(), CreateAccountRequest{AccountID: "acct-1"})
	if retryErr != nil {
		t.Fatalf("retry: %v", retryErr)
	}
	if status.Status != StatusConnecting {
		t.Fatalf("expected connecting after retry, got %q", status.Status)
	}
}

func TestGateway_GetAccountFallsBackToStore(t *testing.T) {
	fixture := newGatewayFixture(t, devkit.NewEngine())
	defer fixture.gateway.Close(context.Background())

	if _, err := fixture.accounts.Create(context.Background(), AccountRecord{
		AccountID:      "parked",
		CollectionName: "auth_parked",
		Status:         StatusConnected,
	}); err != nil {
		t.Fatalf("seed account: %v", err)
	}

	status, err := fixture.gateway.GetAccount(context.Background(), "parked")
	if err != nil {
		t.Fatalf("get account: %v", err)
	}
	// A stored "connected" without a live session is stale.
	if status.Status != StatusNotStarted {
		t.Fatalf("expected not_started for stale row, got %q", status.Status)
	}
}

func TestGateway_GetAccountUnknownMapsToNotFound(t *testing.T) {
	fixture := newGatewayFixture(t, devkit.NewEngine())
	defer fixture.gateway.Close(context.Background())

	_, err := fixture.gateway.GetAccount(context.Background(), "ghost")
	if err == nil {
		t.Fatalf("expected not found")
	}
	var rich *goerrors.Error
	if !goerrors.As(err, &rich) {
		t.Fatalf("expected go-errors envelope, got %T", err)
	}
	if rich.TextCode != GatewayErrorAccountNotFound {
		t.Fatalf("expected account not found text code, got %q", rich.TextCode)
	}
	if rich.Category != goerrors.CategoryNotFound {
		t.Fatalf("expected not-found category, got %q", rich.Category)
	}
}

func TestGateway_ListAccountsMergesLiveAndStored(t *testing.T) {
	engine := devkit.NewEngine()
	fixture := newGatewayFixture(t, engine)
	defer fixture.gateway.Close(context.Background())

	if _, err := fixture.gateway.CreateAccount(context.Background(), CreateAccountRequest{AccountID: "live-1"}); err != nil {
		t.Fatalf("create live account: %v", err)
	}
	if _, err := fixture.accounts.Create(context.Background(), AccountRecord{
		AccountID:      "parked-1",
		CollectionName: "auth_parked-1",
		Status:         StatusLoggedOut,
	}); err != nil {
		t.Fatalf("seed parked account: %v", err)
	}

	listed, err := fixture.gateway.ListAccounts(context.Background())
	if err != nil {
		t.Fatalf("list accounts: %v", err)
	}
	if len(listed) != 2 {
		t.Fatalf("expected 2 accounts, got %d", len(listed))
	}
	byID := map[string]AccountStatus{}
	for _, status := range listed {
		byID[status.AccountID] = status
	}
	if byID["live-1"].Status != StatusConnecting {
		t.Fatalf("live account should report its session status, got %q", byID["live-1"].Status)
	}
	if byID["parked-1"].Status != StatusLoggedOut {
		t.Fatalf("logged-out row should keep its stored status, got %q", byID["parked-1"].Status)
	}
}

func TestGateway_RemoveAccountTearsDownEverything(t *testing.T) {
	engine := devkit.NewEngine()
	fixture := newGatewayFixture(t, engine)
	defer fixture.gateway.Close(context.Background())

	if _, err := fixture.gateway.CreateAccount(context.Background(), CreateAccountRequest{AccountID: "acct-1"}); err != nil {
		t.Fatalf("create account: %v", err)
	}
	if err := fixture.credentials.Write(context.Background(), "auth_acct-1", "creds", []byte(`{}`)); err != nil {
		t.Fatalf("seed credentials: %v", err)
	}
	live := engine.LastSession("acct-1")

	if err := fixture.gateway.RemoveAccount(context.Background(), "acct-1"); err != nil {
		t.Fatalf("remove account: %v", err)
	}
	if !live.LoggedOut() {
		t.Fatalf("expected best-effort logout")
	}
	if fixture.credentials.collectionSize("auth_acct-1") != 0 {
		t.Fatalf("credential collection should be dropped")
	}
	if _, err := fixture.accounts.Get(context.Background(), "acct-1"); err == nil {
		t.Fatalf("account row should be deleted")
	}
	if _, err := fixture.gateway.GetAccount(context.Background(), "acct-1"); err == nil {
		t.Fatalf("removed account should be gone")
	}
}

func TestGateway_RemoveUnknownAccountReturnsNotFound(t *testing.T) {
	fixture := newGatewayFixture(t, devkit.NewEngine())
	defer fixture.gateway.Close(context.Background())

	err := fixture.gateway.RemoveAccount(context.Background(), "ghost")
	if err == nil {
		t.Fatalf("expected not found")
	}
	var rich *goerrors.Error
	if !goerrors.As(err, &rich) {
		t.Fatalf("expected go-errors envelope, got %T", err)
	}
	if rich.TextCode != GatewayErrorAccountNotFound {
		t.Fatalf("expected not found text code, got %q", rich.TextCode)
	}
}

func TestGateway_SendTextRequiresConnectedSession(t *testing.T) {
	engine := devkit.NewEngine()
	fixture := newGatewayFixture(t, engine)
	defer fixture.gateway.Close(context.Background())

	if _, err := fixture.gateway.CreateAccount(context.Background(), CreateAccountRequest{AccountID: "acct-1"}); err != nil {
		t.Fatalf("create account: %v", err)
	}

	// Still connecting: sends must be refused.
	_, err := fixture.gateway.SendText(context.Background(), "acct-1", "chat-9", "too early")
	if err == nil {
		t.Fatalf("expected not connected error")
	}
	var rich *goerrors.Error
	if !goerrors.As(err, &rich) {
		t.Fatalf("expected go-errors envelope, got %T", err)
	}
	if rich.TextCode != GatewayErrorNotConnected {
		t.Fatalf("expected not connected text code, got %q", rich.TextCode)
	}

	live := engine.LastSession("acct-1")
	live.EmitConnection(protocol.ConnectionUpdate{Phase: protocol.PhaseOpen})
	if !waitFor(time.Second, func() bool {
		snapshot, _ := fixture.gateway.GetAccount(context.Background(), "acct-1")
		return snapshot.Status == StatusConnected
	}) {
		t.Fatalf("session never connected")
	}

	messageID, err := fixture.gateway.SendText(context.Background(), "acct-1", "chat-9", "hello")
	if err != nil {
		t.Fatalf("send text: %v", err)
	}
	if messageID == "" {
		t.Fatalf("expected message id")
	}
	sent := live.Sent()
	if len(sent) != 1 || sent[0].Destination != "chat-9" || sent[0].Text != "hello" {
		t.Fatalf("unexpected sends: %#v", sent)
	}
}

func TestGateway_SendTextUnknownAccount(t *testing.T) {
	fixture := newGatewayFixture(t, devkit.NewEngine())
	defer fixture.gateway.Close(context.Background())

	_, err := fixture.gateway.SendText(context.Background(), "ghost", "chat-9", "hello")
	if err == nil {
		t.Fatalf("expected not found")
	}
	var rich *goerrors.Error
	if !goerrors.As(err, &rich) {
		t.Fatalf("expected go-errors envelope, got %T", err)
	}
	if rich.TextCode != GatewayErrorAccountNotFound {
		t.Fatalf("expected not found text code, got %q", rich.TextCode)
	}
}

func TestGateway_SubscribeDeduplicatesByURL(t *testing.T) {
	fixture := newGatewayFixture(t, devkit.NewEngine())
	defer fixture.gateway.Close(context.Background())

	first, created, err := fixture.gateway.Subscribe(context.Background(), "https://hooks.example.com/in")
	if err != nil || !created {
		t.Fatalf("first subscribe: created=%v err=%v", created, err)
	}
	second, created, err := fixture.gateway.Subscribe(context.Background(), "https://hooks.example.com/in")
	if err != nil {
		t.Fatalf("second subscribe: %v", err)
	}
	if created || second.ID != first.ID {
		t.Fatalf("expected dedup by url: %#v vs %#v", first, second)
	}

	subscribers, err := fixture.gateway.ListSubscribers(context.Background())
	if err != nil {
		t.Fatalf("list subscribers: %v", err)
	}
	if len(subscribers) != 1 {
		t.Fatalf("expected one subscriber, got %d", len(subscribers))
	}
}

func TestGateway_CloseStopsSessionsWithoutLogout(t *testing.T) {
	engine := devkit.NewEngine()
	fixture := newGatewayFixture(t, engine)

	if _, err := fixture.gateway.CreateAccount(context.Background(), CreateAccountRequest{AccountID: "acct-1"}); err != nil {
		t.Fatalf("create account: %v", err)
	}
	live := engine.LastSession("acct-1")

	if err := fixture.gateway.Close(context.Background()); err != nil {
		t.Fatalf("close: %v", err)
	}
	if live.LoggedOut() {
		t.Fatalf("close must not log accounts out")
	}
	if fixture.accounts.status("acct-1") != StatusClosed {
		t.Fatalf("expected closed status, got %q", fixture.accounts.status("acct-1"))
	}
	if fixture.gateway.registry.Len() != 0 {
		t.Fatalf("registry should be empty after close")
	}
}
