package media

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/wildcatlabs/wildcat/protocol"
)

type memoryBackend struct {
	mu       sync.Mutex
	objects  map[string]Object
	storeErr error
}

func newMemoryBackend() *memoryBackend {
	return &memoryBackend{objects: map[string]Object{}}
}

func backendKey(accountID, messageID string) string {
	return accountID + "/" + messageID
}

func (b *memoryBackend) Store(_ context.Context, obj Object) (Object, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.storeErr != nil {
		return Object{}, b.storeErr
	}
	b.objects[backendKey(obj.AccountID, obj.MessageID)] = obj
	return obj, nil
}

func (b *memoryBackend) Get(_ context.Context, accountID string, messageID string) (Object, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	obj, ok := b.objects[backendKey(accountID, messageID)]
	if !ok {
		return Object{}, fmt.Errorf("object not found")
	}
	return obj, nil
}

func (b *memoryBackend) Delete(_ context.Context, accountID string, messageID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.objects, backendKey(accountID, messageID))
	return nil
}

// scriptedSession fails the first N downloads, so the re-upload retry path
// can be exercised deterministically.
type scriptedSession struct {
	mu            sync.Mutex
	payload       []byte
	failDownloads int
	downloadCalls int
	reuploadCalls int
	reuploadErr   error
}

func (s *scriptedSession) Events() <-chan protocol.Event { return nil }

func (s *scriptedSession) SendText(context.Context, string, string) (string, error) {
	return "", fmt.Errorf("not supported")
}

func (s *scriptedSession) Logout(context.Context) error { return nil }

func (s *scriptedSession) Download(_ context.Context, msg *protocol.Message) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.downloadCalls++
	if s.failDownloads > 0 {
		s.failDownloads--
		return nil, errors.New("media gone from server")
	}
	return append([]byte(nil), s.payload...), nil
}

func (s *scriptedSession) RequestReupload(_ context.Context, msg *protocol.Message) (*protocol.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reuploadCalls++
	if s.reuploadErr != nil {
		return nil, s.reuploadErr
	}
	return msg, nil
}

func (s *scriptedSession) LoadMessage(context.Context, string, string) (*protocol.Message, error) {
	return nil, fmt.Errorf("not supported")
}

func imageMessage(id string) *protocol.Message {
	return &protocol.Message{
		Key: protocol.MessageKey{ID: id, ChatID: "chat-1"},
		Content: &protocol.Content{
			Image: &protocol.MediaPart{
				Mimetype: "image/jpeg",
				Caption:  "sunset",
				FileName: "sunset.jpg",
				Width:    640,
				Height:   480,
			},
		},
	}
}

func TestCapturer_StoresAttachment(t *testing.T) {
	backend := newMemoryBackend()
	capturer, err := NewCapturer(backend, nil)
	if err != nil {
		t.Fatalf("new capturer: %v", err)
	}
	session := &scriptedSession{payload: []byte{0xFF, 0xD8, 0xFF}}

	ref, err := capturer.Capture(context.Background(), session, imageMessage("msg-1"), "acct-1")
	if err != nil {
		t.Fatalf("capture: %v", err)
	}
	if ref.ObjectID == "" {
		t.Fatal("expected a generated object id")
	}
	if ref.URL != "/accounts/acct-1/messages/msg-1/media" {
		t.Fatalf("unexpected retrieval url %q", ref.URL)
	}
	if ref.Mimetype != "image/jpeg" || ref.Caption != "sunset" || ref.FileName != "sunset.jpg" {
		t.Fatalf("media part metadata lost: %+v", ref)
	}
	if ref.Width != 640 || ref.Height != 480 {
		t.Fatalf("dimensions lost: %+v", ref)
	}
	if ref.Size != 3 {
		t.Fatalf("expected size 3, got %d", ref.Size)
	}

	stored, err := backend.Get(context.Background(), "acct-1", "msg-1")
	if err != nil {
		t.Fatalf("backend lookup: %v", err)
	}
	if stored.MediaType != "image" || len(stored.Data) != 3 {
		t.Fatalf("unexpected stored object: %+v", stored)
	}
	if session.downloadCalls != 1 || session.reuploadCalls != 0 {
		t.Fatalf("expected a single direct download, got %d/%d", session.downloadCalls, session.reuploadCalls)
	}
}

func TestCapturer_RetriesOnceViaReupload(t *testing.T) {
	backend := newMemoryBackend()
	capturer, err := NewCapturer(backend, nil)
	if err != nil {
		t.Fatalf("new capturer: %v", err)
	}
	session := &scriptedSession{payload: []byte("fresh"), failDownloads: 1}

	ref, err := capturer.Capture(context.Background(), session, imageMessage("msg-2"), "acct-1")
	if err != nil {
		t.Fatalf("capture with re-upload retry: %v", err)
	}
	if session.downloadCalls != 2 || session.reuploadCalls != 1 {
		t.Fatalf("expected one retry via re-upload, got %d/%d", session.downloadCalls, session.reuploadCalls)
	}
	if ref.Size != 5 {
		t.Fatalf("expected refreshed payload stored, got size %d", ref.Size)
	}
}

func TestCapturer_ReuploadFailureSurfacesDownloadError(t *testing.T) {
	capturer, err := NewCapturer(newMemoryBackend(), nil)
	if err != nil {
		t.Fatalf("new capturer: %v", err)
	}
	session := &scriptedSession{failDownloads: 2, reuploadErr: errors.New("re-upload refused")}

	_, err = capturer.Capture(context.Background(), session, imageMessage("msg-3"), "acct-1")
	if err == nil {
		t.Fatal("expected capture to fail when re-upload is refused")
	}
	if session.downloadCalls != 1 {
		t.Fatalf("expected no second download after re-upload failure, got %d", session.downloadCalls)
	}
}

func TestCapturer_ValidatesInput(t *testing.T) {
	capturer, err := NewCapturer(newMemoryBackend(), nil)
	if err != nil {
		t.Fatalf("new capturer: %v", err)
	}
	ctx := context.Background()
	session := &scriptedSession{}

	if _, err := capturer.Capture(ctx, nil, imageMessage("msg-4"), "acct-1"); err == nil {
		t.Fatal("expected error for nil session")
	}
	if _, err := capturer.Capture(ctx, session, nil, "acct-1"); err == nil {
		t.Fatal("expected error for nil message")
	}
	text := &protocol.Message{
		Key:     protocol.MessageKey{ID: "msg-5", ChatID: "chat-1"},
		Content: &protocol.Content{Conversation: "plain text"},
	}
	if _, err := capturer.Capture(ctx, session, text, "acct-1"); err == nil {
		t.Fatal("expected error for a message without media")
	}
}

func TestCapturer_BackendFailure(t *testing.T) {
	backend := newMemoryBackend()
	backend.storeErr = errors.New("disk full")
	capturer, err := NewCapturer(backend, nil)
	if err != nil {
		t.Fatalf("new capturer: %v", err)
	}
	session := &scriptedSession{payload: []byte("x")}

	if _, err := capturer.Capture(context.Background(), session, imageMessage("msg-6"), "acct-1"); err == nil {
		t.Fatal("expected store failure to surface")
	}
}

func TestNewCapturer_RequiresBackend(t *testing.T) {
	if _, err := NewCapturer(nil, nil); err == nil {
		t.Fatal("expected error for nil backend")
	}
}
