package core

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/wildcatlabs/wildcat/protocol"
)

// processBatch ingests one message-upsert notification. Only live notify
// batches flow through; history syncs and appends are acknowledged but
// never persisted or fanned out.
func (g *Gateway) processBatch(ctx context.Context, session *AccountSession, live protocol.Session, batch *protocol.MessageBatch) {
	if batch == nil || len(batch.Messages) == 0 {
		return
	}
	if batch.Kind != protocol.BatchLiveNotify {
		g.logInfo(ctx, "non-live batch skipped", map[string]any{
			"account_id": session.AccountID,
			"kind":       string(batch.Kind),
			"count":      len(batch.Messages),
		})
		return
	}
	for _, msg := range batch.Messages {
		g.processMessage(ctx, session, live, msg)
	}
}

// processMessage handles one message independently: a failure in any step
// is logged and the remaining steps still run, and a panic never takes
// down the session loop or the rest of the batch.
func (g *Gateway) processMessage(ctx context.Context, session *AccountSession, live protocol.Session, msg *protocol.Message) {
	defer func() {
		if r := recover(); r != nil {
			g.logError(ctx, "message ingestion panicked", map[string]any{
				"account_id": session.AccountID,
				"panic":      fmt.Sprint(r),
			})
		}
	}()

	if msg == nil || strings.TrimSpace(msg.Key.ID) == "" {
		return
	}

	startedAt := time.Now().UTC()
	record := g.buildMessageRecord(session.AccountID, msg)

	mediaType := protocol.MediaTypeOf(msg)
	if mediaType != "" && g.mediaCapturer != nil {
		ref, err := g.mediaCapturer.Capture(ctx, live, msg, session.AccountID)
		if err != nil {
			g.logError(ctx, "media capture failed", map[string]any{
				"account_id": session.AccountID,
				"message_id": record.MessageID,
				"media_type": string(mediaType),
				"error":      err.Error(),
			})
		} else {
			record.Media = &ref
		}
	}

	if g.messageStore != nil {
		stored, err := g.messageStore.Insert(ctx, record)
		if err != nil {
			g.logError(ctx, "message persist failed", map[string]any{
				"account_id": session.AccountID,
				"message_id": record.MessageID,
				"error":      err.Error(),
			})
		} else {
			record = stored
		}
	}

	g.dispatchMessageEvent(ctx, session.AccountID, record)
	g.observeOperation(ctx, startedAt, "ingest_message", nil, map[string]any{
		"account_id": session.AccountID,
		"message_id": record.MessageID,
		"chat_id":    record.ChatID,
		"media_type": string(mediaType),
	})
}

func (g *Gateway) buildMessageRecord(accountID string, msg *protocol.Message) MessageRecord {
	direction := DirectionInbound
	if msg.Key.FromMe {
		direction = DirectionOutbound
	}
	timestamp := msg.Timestamp
	if timestamp.IsZero() {
		timestamp = time.Now().UTC()
	}

	record := MessageRecord{
		ID:        uuid.NewString(),
		AccountID: accountID,
		MessageID: msg.Key.ID,
		ChatID:    msg.Key.ChatID,
		Direction: direction,
		Timestamp: timestamp.UTC(),
		Type:      messageTypeOf(msg),
		Text:      protocol.TextOf(msg),
		Raw:       msg.Raw,
	}

	if info := protocol.ContextOf(msg); info != nil {
		if strings.TrimSpace(info.StanzaID) != "" {
			record.Quoted = quotedRefFrom(info)
		}
		if len(info.MentionedIDs) > 0 {
			record.Mentions = append([]string(nil), info.MentionedIDs...)
		}
		record.Forwarded = info.IsForwarded
	}
	return record
}

func messageTypeOf(msg *protocol.Message) string {
	if mediaType := protocol.MediaTypeOf(msg); mediaType != "" {
		return string(mediaType)
	}
	if protocol.TextOf(msg) != "" {
		return "text"
	}
	return "unknown"
}

func quotedRefFrom(info *protocol.ContextInfo) *QuotedRef {
	ref := &QuotedRef{
		MessageID:   info.StanzaID,
		Participant: info.Participant,
	}
	if quoted := info.Quoted; quoted != nil {
		quotedMsg := &protocol.Message{Content: quoted}
		ref.Text = protocol.TextOf(quotedMsg)
		ref.HasMedia = protocol.MediaTypeOf(quotedMsg) != ""
	}
	return ref
}

// dispatchMessageEvent fans the canonical record out to every subscriber.
// Delivery outcomes are observability, never ingestion failures.
func (g *Gateway) dispatchMessageEvent(ctx context.Context, accountID string, record MessageRecord) {
	if g.dispatcher == nil {
		return
	}
	payload := messageEventPayload(accountID, record)
	stats, err := g.dispatcher.Deliver(ctx, payload)
	fields := map[string]any{
		"account_id":  accountID,
		"message_id":  record.MessageID,
		"subscribers": stats.Subscribers,
		"delivered":   stats.Delivered,
		"failed":      stats.Failed,
	}
	if err != nil {
		fields["error"] = err.Error()
		g.logError(ctx, "event delivery incomplete", fields)
		return
	}
	if stats.Subscribers > 0 {
		g.logInfo(ctx, "event delivered", fields)
	}
}

func messageEventPayload(accountID string, record MessageRecord) map[string]any {
	payload := map[string]any{
		"event":      "message",
		"account_id": accountID,
		"message_id": record.MessageID,
		"chat_id":    record.ChatID,
		"direction":  string(record.Direction),
		"timestamp":  record.Timestamp.UTC().Format(time.RFC3339),
		"type":       record.Type,
	}
	if record.Text != "" {
		payload["text"] = record.Text
	}
	if record.Media != nil {
		media := map[string]any{
			"url":      record.Media.URL,
			"mimetype": record.Media.Mimetype,
			"size":     record.Media.Size,
		}
		if record.Media.FileName != "" {
			media["file_name"] = record.Media.FileName
		}
		if record.Media.Caption != "" {
			media["caption"] = record.Media.Caption
		}
		payload["media"] = media
	}
	if record.Quoted != nil {
		quoted := map[string]any{
			"message_id": record.Quoted.MessageID,
			"has_media":  record.Quoted.HasMedia,
		}
		if record.Quoted.Participant != "" {
			quoted["participant"] = record.Quoted.Participant
		}
		if record.Quoted.Text != "" {
			quoted["text"] = record.Quoted.Text
		}
		payload["quoted"] = quoted
	}
	if len(record.Mentions) > 0 {
		payload["mentions"] = append([]string(nil), record.Mentions...)
	}
	if record.Forwarded {
		payload["forwarded"] = true
	}
	return RedactSensitiveMap(payload)
}
