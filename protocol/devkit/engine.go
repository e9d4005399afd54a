package devkit

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/wildcatlabs/wildcat/protocol"
)

// Engine is an in-memory protocol engine for tests and local development.
// Every Open records the auth state it was given and returns a scripted
// session whose event stream the test drives directly.
type Engine struct {
	mu       sync.Mutex
	sessions map[string][]*Session
	opens    int
	openErr  error
}

func NewEngine() *Engine {
	return &Engine{sessions: map[string][]*Session{}}
}

// FailNextOpen makes the next Open call return err once.
func (e *Engine) FailNextOpen(err error) {
	e.mu.Lock()
	e.openErr = err
	e.mu.Unlock()
}

func (e *Engine) Open(_ context.Context, accountID string, auth protocol.AuthState) (protocol.Session, error) {
	if e == nil {
		return nil, fmt.Errorf("devkit: engine is nil")
	}
	accountID = strings.TrimSpace(accountID)
	if accountID == "" {
		return nil, fmt.Errorf("devkit: account id is required")
	}
	if auth == nil {
		return nil, fmt.Errorf("devkit: auth state is required")
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.openErr != nil {
		err := e.openErr
		e.openErr = nil
		return nil, err
	}
	session := newSession(accountID, auth)
	e.sessions[accountID] = append(e.sessions[accountID], session)
	e.opens++
	return session, nil
}

// OpenCount reports how many sessions the engine has opened in total.
func (e *Engine) OpenCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.opens
}

// LastSession returns the most recently opened session for an account.
func (e *Engine) LastSession(accountID string) *Session {
	e.mu.Lock()
	defer e.mu.Unlock()
	opened := e.sessions[accountID]
	if len(opened) == 0 {
		return nil
	}
	return opened[len(opened)-1]
}

type SentText struct {
	Destination string
	Text        string
}

// Session is the scripted session the devkit engine hands out. Emit* pushes
// events onto the stream in call order, matching the transport-order
// guarantee of the real engine.
type Session struct {
	accountID string
	auth      protocol.AuthState
	events    chan protocol.Event

	mu        sync.Mutex
	sent      []SentText
	loggedOut bool
	sendErr   error

	downloads   map[string][]byte
	downloadErr error
	messages    map[string]*protocol.Message

	closeOnce sync.Once
}

func newSession(accountID string, auth protocol.AuthState) *Session {
	return &Session{
		accountID: accountID,
		auth:      auth,
		events:    make(chan protocol.Event, 64),
		downloads: map[string][]byte{},
		messages:  map[string]*protocol.Message{},
	}
}

func (s *Session) Events() <-chan protocol.Event { return s.events }

func (s *Session) AuthState() protocol.AuthState { return s.auth }

func (s *Session) EmitConnection(update protocol.ConnectionUpdate) {
	s.events <- protocol.Event{Connection: &update}
}

func (s *Session) EmitCreds() {
	s.events <- protocol.Event{Creds: true}
}

func (s *Session) EmitBatch(batch protocol.MessageBatch) {
	s.events <- protocol.Event{Batch: &batch}
}

// Close ends the event stream, as the engine does on session teardown.
func (s *Session) Close() {
	s.closeOnce.Do(func() { close(s.events) })
}

func (s *Session) FailSends(err error) {
	s.mu.Lock()
	s.sendErr = err
	s.mu.Unlock()
}

func (s *Session) SendText(_ context.Context, destination string, text string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sendErr != nil {
		return "", s.sendErr
	}
	s.sent = append(s.sent, SentText{Destination: destination, Text: text})
	return fmt.Sprintf("devkit-%s-%d", s.accountID, len(s.sent)), nil
}

func (s *Session) Sent() []SentText {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]SentText(nil), s.sent...)
}

func (s *Session) Logout(context.Context) error {
	s.mu.Lock()
	s.loggedOut = true
	s.mu.Unlock()
	s.Close()
	return nil
}

func (s *Session) LoggedOut() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loggedOut
}

// StageDownload registers the payload Download returns for a message id.
func (s *Session) StageDownload(messageID string, payload []byte) {
	s.mu.Lock()
	s.downloads[messageID] = append([]byte(nil), payload...)
	s.mu.Unlock()
}

func (s *Session) FailDownloads(err error) {
	s.mu.Lock()
	s.downloadErr = err
	s.mu.Unlock()
}

func (s *Session) Download(_ context.Context, msg *protocol.Message) ([]byte, error) {
	if msg == nil {
		return nil, fmt.Errorf("devkit: message is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.downloadErr != nil {
		return nil, s.downloadErr
	}
	payload, ok := s.downloads[msg.Key.ID]
	if !ok {
		return nil, fmt.Errorf("devkit: no staged payload for message %q", msg.Key.ID)
	}
	return append([]byte(nil), payload...), nil
}

func (s *Session) RequestReupload(_ context.Context, msg *protocol.Message) (*protocol.Message, error) {
	if msg == nil {
		return nil, fmt.Errorf("devkit: message is required")
	}
	return msg, nil
}

// StageMessage registers a message for LoadMessage lookups.
func (s *Session) StageMessage(msg *protocol.Message) {
	if msg == nil {
		return
	}
	s.mu.Lock()
	s.messages[msg.Key.ChatID+"/"+msg.Key.ID] = msg
	s.mu.Unlock()
}

func (s *Session) LoadMessage(_ context.Context, chatID string, messageID string) (*protocol.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	msg, ok := s.messages[chatID+"/"+messageID]
	if !ok {
		return nil, fmt.Errorf("devkit: message %q not found in chat %q", messageID, chatID)
	}
	return msg, nil
}

var (
	_ protocol.Engine  = (*Engine)(nil)
	_ protocol.Session = (*Session)(nil)
)
