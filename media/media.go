// Package media captures message attachments into a storage backend and
// hands back the reference the canonical message record carries.
package media

import (
	"context"
	"fmt"
	"strings"
	"time"

	glog "github.com/goliatone/go-logger/glog"
	"github.com/google/uuid"

	"github.com/wildcatlabs/wildcat/core"
	"github.com/wildcatlabs/wildcat/protocol"
)

// Object is one stored attachment blob plus the metadata needed to serve
// it back.
type Object struct {
	ID        string
	AccountID string
	MessageID string
	MediaType string
	Mimetype  string
	FileName  string
	Data      []byte
	Size      int64
	CreatedAt time.Time
}

// Backend persists attachment blobs keyed by (account, message).
type Backend interface {
	Store(ctx context.Context, obj Object) (Object, error)
	Get(ctx context.Context, accountID string, messageID string) (Object, error)
	Delete(ctx context.Context, accountID string, messageID string) error
}

// URLFor is the retrieval path embedded in message records and webhook
// payloads.
func URLFor(accountID string, messageID string) string {
	return "/accounts/" + accountID + "/messages/" + messageID + "/media"
}

// Capturer downloads a message's attachment through the live session and
// stores it in the backend.
type Capturer struct {
	backend Backend
	logger  core.Logger
}

func NewCapturer(backend Backend, logger core.Logger) (*Capturer, error) {
	if backend == nil {
		return nil, fmt.Errorf("media: backend is required")
	}
	return &Capturer{
		backend: backend,
		logger:  glog.Ensure(logger),
	}, nil
}

// Capture downloads the attachment and stores it. When the server-side
// copy expired the engine needs a re-upload request before the download
// can succeed, so a failed first download gets exactly one retry through
// that path.
func (c *Capturer) Capture(ctx context.Context, session protocol.Session, msg *protocol.Message, accountID string) (core.MediaRef, error) {
	if c == nil || c.backend == nil {
		return core.MediaRef{}, fmt.Errorf("media: capturer is not configured")
	}
	if session == nil {
		return core.MediaRef{}, fmt.Errorf("media: session is required")
	}
	if msg == nil || strings.TrimSpace(msg.Key.ID) == "" {
		return core.MediaRef{}, fmt.Errorf("media: message with a key is required")
	}
	mediaType := protocol.MediaTypeOf(msg)
	if mediaType == "" {
		return core.MediaRef{}, fmt.Errorf("media: message %s carries no media", msg.Key.ID)
	}
	part := protocol.MediaPartOf(msg, mediaType)
	if part == nil {
		return core.MediaRef{}, fmt.Errorf("media: message %s has no %s part", msg.Key.ID, mediaType)
	}

	data, err := c.download(ctx, session, msg)
	if err != nil {
		return core.MediaRef{}, fmt.Errorf("media: download failed for message %s: %w", msg.Key.ID, err)
	}

	obj := Object{
		ID:        uuid.NewString(),
		AccountID: accountID,
		MessageID: msg.Key.ID,
		MediaType: string(mediaType),
		Mimetype:  part.Mimetype,
		FileName:  part.FileName,
		Data:      data,
		Size:      int64(len(data)),
	}
	stored, err := c.backend.Store(ctx, obj)
	if err != nil {
		return core.MediaRef{}, fmt.Errorf("media: store failed for message %s: %w", msg.Key.ID, err)
	}

	return core.MediaRef{
		ObjectID: stored.ID,
		URL:      URLFor(accountID, msg.Key.ID),
		Mimetype: part.Mimetype,
		Size:     stored.Size,
		FileName: part.FileName,
		Caption:  part.Caption,
		Width:    part.Width,
		Height:   part.Height,
		Seconds:  part.Seconds,
	}, nil
}

func (c *Capturer) download(ctx context.Context, session protocol.Session, msg *protocol.Message) ([]byte, error) {
	data, err := session.Download(ctx, msg)
	if err == nil {
		return data, nil
	}
	c.logger.Info("download failed, requesting re-upload",
		"message_id", msg.Key.ID,
		"error", err.Error(),
	)

	refreshed, reuploadErr := session.RequestReupload(ctx, msg)
	if reuploadErr != nil {
		return nil, err
	}
	if refreshed == nil {
		refreshed = msg
	}
	return session.Download(ctx, refreshed)
}

var _ core.MediaCapturer = (*Capturer)(nil)
