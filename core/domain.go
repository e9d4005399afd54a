package core

import (
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/wildcatlabs/wildcat/protocol"
)

var (
	ErrAccountExists   = errors.New("core: account already exists")
	ErrAccountNotFound = errors.New("core: account not found")
	ErrNotConnected    = errors.New("core: account is not connected")
)

// SessionStatus is the externally visible lifecycle state of one account.
type SessionStatus string

const (
	StatusConnecting   SessionStatus = "connecting"
	StatusConnected    SessionStatus = "connected"
	StatusReconnecting SessionStatus = "reconnecting"
	StatusLoggedOut    SessionStatus = "logged_out"
	StatusClosed       SessionStatus = "closed"

	// StatusNotStarted is the durable marker for an account whose session
	// could not be (re)created; it surfaces as inactive rather than
	// retrying silently.
	StatusNotStarted SessionStatus = "not_started"
)

// AccountSession is the live in-memory record for one account. Owned by
// the registry; status and pairing fields are mutated only by the
// lifecycle controller, but reads can come from any caller goroutine.
type AccountSession struct {
	AccountID      string
	CollectionName string

	mu             sync.RWMutex
	status         SessionStatus
	pairingToken   string
	lastDisconnect *protocol.Disconnect
	session        protocol.Session
}

func NewAccountSession(accountID string, collectionName string) *AccountSession {
	return &AccountSession{
		AccountID:      strings.TrimSpace(accountID),
		CollectionName: strings.TrimSpace(collectionName),
		status:         StatusConnecting,
	}
}

func (s *AccountSession) Status() SessionStatus {
	if s == nil {
		return ""
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

func (s *AccountSession) setStatus(status SessionStatus) {
	s.mu.Lock()
	s.status = status
	s.mu.Unlock()
}

func (s *AccountSession) PairingToken() string {
	if s == nil {
		return ""
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pairingToken
}

func (s *AccountSession) setPairingToken(token string) {
	s.mu.Lock()
	s.pairingToken = token
	s.mu.Unlock()
}

// LastDisconnect reports the most recent close reason, nil while the
// session has never dropped.
func (s *AccountSession) LastDisconnect() *protocol.Disconnect {
	if s == nil {
		return nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastDisconnect
}

func (s *AccountSession) setDisconnect(disconnect *protocol.Disconnect) {
	s.mu.Lock()
	s.lastDisconnect = disconnect
	s.mu.Unlock()
}

// Session exposes the live protocol session for send/download operations.
func (s *AccountSession) Session() protocol.Session {
	if s == nil {
		return nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.session
}

func (s *AccountSession) setSession(session protocol.Session) {
	s.mu.Lock()
	s.session = session
	s.mu.Unlock()
}

// Snapshot captures the externally visible view in one lock acquisition.
func (s *AccountSession) Snapshot() AccountStatus {
	if s == nil {
		return AccountStatus{}
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return AccountStatus{
		AccountID:      s.AccountID,
		Status:         s.status,
		PairingToken:   s.pairingToken,
		CollectionName: s.CollectionName,
	}
}

// AccountStatus is the public snapshot returned by List.
type AccountStatus struct {
	AccountID      string        `json:"account_id"`
	Status         SessionStatus `json:"status"`
	PairingToken   string        `json:"pairing_token,omitempty"`
	CollectionName string        `json:"collection_name"`
}

// AccountRecord is the durable account row, independent of any live
// session.
type AccountRecord struct {
	AccountID      string
	Name           string
	CollectionName string
	Status         SessionStatus
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// DefaultCollectionName derives the credential collection for an account
// when no explicit override is given.
func DefaultCollectionName(accountID string) string {
	return "auth_" + strings.TrimSpace(accountID)
}

// MediaRef points at a captured attachment in the media backend.
type MediaRef struct {
	ObjectID string `json:"object_id"`
	URL      string `json:"url"`
	Mimetype string `json:"mimetype"`
	Size     int64  `json:"size"`
	FileName string `json:"file_name,omitempty"`
	Caption  string `json:"caption,omitempty"`
	Width    int    `json:"width,omitempty"`
	Height   int    `json:"height,omitempty"`
	Seconds  int    `json:"seconds,omitempty"`
}

// QuotedRef is the best-effort reply context extracted at ingestion.
type QuotedRef struct {
	MessageID   string `json:"message_id"`
	Participant string `json:"participant,omitempty"`
	Text        string `json:"text,omitempty"`
	HasMedia    bool   `json:"has_media"`
}

type MessageDirection string

const (
	DirectionInbound  MessageDirection = "inbound"
	DirectionOutbound MessageDirection = "outbound"
)

// MessageRecord is the canonical, append-only persisted form of one
// message event. Raw retains the engine payload verbatim so replies and
// quotes can be reconstructed without re-fetching.
type MessageRecord struct {
	ID        string
	AccountID string
	MessageID string
	ChatID    string
	Direction MessageDirection
	Timestamp time.Time
	Type      string
	Text      string
	Media     *MediaRef
	Quoted    *QuotedRef
	Mentions  []string
	Forwarded bool
	Raw       json.RawMessage
	CreatedAt time.Time
	UpdatedAt time.Time
}

// MessageFilter selects persisted message records; pagination is by
// timestamp, newest first.
type MessageFilter struct {
	AccountID string
	ChatID    string
	From      *time.Time
	To        *time.Time
	Page      int
	PerPage   int
}

type MessagePage struct {
	Items   []MessageRecord
	Page    int
	PerPage int
	Total   int
	HasNext bool
}

// Subscriber is a registered webhook destination. Registration is
// idempotent by URL.
type Subscriber struct {
	ID        string
	URL       string
	CreatedAt time.Time
}
