package protocol

import (
	"context"
	"encoding/json"
	"strings"
	"time"
)

// ConnectionPhase mirrors the engine's connection-update phases.
type ConnectionPhase string

const (
	PhaseConnecting ConnectionPhase = "connecting"
	PhaseOpen       ConnectionPhase = "open"
	PhaseClose      ConnectionPhase = "close"
)

// Disconnect status codes surfaced by the engine on a close update. The
// logged-out code is the only one treated as terminal; everything else is
// assumed transient.
const (
	CodeLoggedOut          = 401
	CodeConnectionLost     = 408
	CodeConnectionReplaced = 440
	CodeRestartRequired    = 515
)

type Disconnect struct {
	Code   int
	Reason string
}

// ConnectionUpdate carries one engine connection event. PairingToken is set
// while the engine is waiting for the account owner to authorize the
// session out-of-band.
type ConnectionUpdate struct {
	Phase        ConnectionPhase
	PairingToken string
	Disconnect   *Disconnect
}

// BatchKind classifies a message-upsert notification.
type BatchKind string

const (
	BatchLiveNotify BatchKind = "notify"
	BatchHistory    BatchKind = "history"
	BatchAppend     BatchKind = "append"
)

type MessageBatch struct {
	Kind     BatchKind
	Messages []*Message
}

// MessageUpdate carries an edit/receipt style update for an existing
// message. The core persists the original record append-only, so updates
// are surfaced but never rewrite history.
type MessageUpdate struct {
	Key    MessageKey
	Status string
}

type MessageKey struct {
	ID          string
	ChatID      string
	Participant string
	FromMe      bool
}

// Message is the engine's decoded wire message. Raw retains the engine's
// original payload so quoted replies can be reconstructed later.
type Message struct {
	Key       MessageKey
	Timestamp time.Time
	Content   *Content
	Raw       json.RawMessage
}

// Content is the tagged decode of the engine's message body. Exactly the
// shapes the ingestion pipeline dispatches on; anything else stays in Raw.
type Content struct {
	Conversation string
	ExtendedText *ExtendedText
	Image        *MediaPart
	Video        *MediaPart
	Audio        *MediaPart
	Document     *MediaPart
	Sticker      *MediaPart
}

type ExtendedText struct {
	Text    string
	Context *ContextInfo
}

// MediaPart is the common shape of the engine's media message variants.
type MediaPart struct {
	Mimetype    string
	Caption     string
	FileName    string
	FileLength  int64
	Width       int
	Height      int
	Seconds     int
	GIFPlayback bool
	PushToTalk  bool
	Context     *ContextInfo
}

// ContextInfo carries reply/mention metadata attached to a content part.
type ContextInfo struct {
	StanzaID     string
	Participant  string
	Quoted       *Content
	MentionedIDs []string
	IsForwarded  bool
}

// MediaType is the explicit discriminant for media-bearing messages,
// decided once at ingestion time.
type MediaType string

const (
	MediaImage    MediaType = "image"
	MediaVideo    MediaType = "video"
	MediaAudio    MediaType = "audio"
	MediaDocument MediaType = "document"
	MediaSticker  MediaType = "sticker"
)

// MediaTypeOf probes the content shape in a fixed order; the first match
// wins. Returns "" when the message carries no media.
func MediaTypeOf(msg *Message) MediaType {
	if msg == nil || msg.Content == nil {
		return ""
	}
	content := msg.Content
	switch {
	case content.Image != nil:
		return MediaImage
	case content.Video != nil:
		return MediaVideo
	case content.Audio != nil:
		return MediaAudio
	case content.Document != nil:
		return MediaDocument
	case content.Sticker != nil:
		return MediaSticker
	}
	return ""
}

// MediaPartOf returns the media part matching the discriminant.
func MediaPartOf(msg *Message, mediaType MediaType) *MediaPart {
	if msg == nil || msg.Content == nil {
		return nil
	}
	switch mediaType {
	case MediaImage:
		return msg.Content.Image
	case MediaVideo:
		return msg.Content.Video
	case MediaAudio:
		return msg.Content.Audio
	case MediaDocument:
		return msg.Content.Document
	case MediaSticker:
		return msg.Content.Sticker
	}
	return nil
}

// ContextOf returns the first context info attached to any content part,
// probing in the same fixed order the original gateway used.
func ContextOf(msg *Message) *ContextInfo {
	if msg == nil || msg.Content == nil {
		return nil
	}
	content := msg.Content
	if content.ExtendedText != nil && content.ExtendedText.Context != nil {
		return content.ExtendedText.Context
	}
	for _, part := range []*MediaPart{content.Image, content.Video, content.Document, content.Audio} {
		if part != nil && part.Context != nil {
			return part.Context
		}
	}
	return nil
}

// TextOf resolves the display text of a message: direct conversation text,
// then extended text, then per-type captions. Empty string means no text.
func TextOf(msg *Message) string {
	if msg == nil || msg.Content == nil {
		return ""
	}
	content := msg.Content
	if text := strings.TrimSpace(content.Conversation); text != "" {
		return text
	}
	if content.ExtendedText != nil {
		if text := strings.TrimSpace(content.ExtendedText.Text); text != "" {
			return text
		}
	}
	for _, part := range []*MediaPart{content.Image, content.Video, content.Document} {
		if part != nil {
			if text := strings.TrimSpace(part.Caption); text != "" {
				return text
			}
		}
	}
	return ""
}

// Event is one entry on a session's event stream. Exactly one field is set.
type Event struct {
	Connection *ConnectionUpdate
	Creds      bool
	Batch      *MessageBatch
	Updates    []MessageUpdate
}

// KeyAccess is the keyed-credential surface the engine drives. Missing ids
// resolve to nil values, never errors; a nil value on Set deletes.
type KeyAccess interface {
	Get(ctx context.Context, category string, ids []string) (map[string]json.RawMessage, error)
	Set(ctx context.Context, changes map[string]map[string]json.RawMessage) error
}

// AuthState is what a session needs to stay authorized across restarts.
type AuthState interface {
	Creds(ctx context.Context) (json.RawMessage, error)
	SaveCreds(ctx context.Context, creds json.RawMessage) error
	Keys() KeyAccess
}

// Session is one live connection to the engine for one account.
type Session interface {
	// Events returns the session's ordered event stream. The channel is
	// closed when the session terminates.
	Events() <-chan Event

	SendText(ctx context.Context, destination string, text string) (messageID string, err error)
	Logout(ctx context.Context) error

	// Download fetches the binary payload of a media message. The engine
	// may need RequestReupload first when the server-side copy expired.
	Download(ctx context.Context, msg *Message) ([]byte, error)
	RequestReupload(ctx context.Context, msg *Message) (*Message, error)
	LoadMessage(ctx context.Context, chatID string, messageID string) (*Message, error)
}

// Engine opens sessions against the messaging protocol implementation.
type Engine interface {
	Open(ctx context.Context, accountID string, auth AuthState) (Session, error)
}
