package sqlstore

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/wildcatlabs/wildcat/core"
	"github.com/wildcatlabs/wildcat/media"
)

func newAccountRecord(in core.AccountRecord, now time.Time) *accountRecord {
	status := in.Status
	if strings.TrimSpace(string(status)) == "" {
		status = core.StatusNotStarted
	}
	collection := strings.TrimSpace(in.CollectionName)
	if collection == "" {
		collection = core.DefaultCollectionName(in.AccountID)
	}
	return &accountRecord{
		ID:             uuid.NewString(),
		AccountID:      strings.TrimSpace(in.AccountID),
		Name:           strings.TrimSpace(in.Name),
		CollectionName: collection,
		Status:         string(status),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

func (r *accountRecord) toDomain() core.AccountRecord {
	if r == nil {
		return core.AccountRecord{}
	}
	return core.AccountRecord{
		AccountID:      r.AccountID,
		Name:           r.Name,
		CollectionName: r.CollectionName,
		Status:         core.SessionStatus(r.Status),
		CreatedAt:      r.CreatedAt,
		UpdatedAt:      r.UpdatedAt,
	}
}

func newMessageRow(in core.MessageRecord, now time.Time) (*messageRecord, error) {
	id := strings.TrimSpace(in.ID)
	if id == "" {
		id = uuid.NewString()
	}
	timestamp := in.Timestamp
	if timestamp.IsZero() {
		timestamp = now
	}
	record := &messageRecord{
		ID:        id,
		AccountID: strings.TrimSpace(in.AccountID),
		MessageID: strings.TrimSpace(in.MessageID),
		ChatID:    strings.TrimSpace(in.ChatID),
		Direction: string(in.Direction),
		Timestamp: timestamp.UTC(),
		Type:      in.Type,
		Text:      in.Text,
		Forwarded: in.Forwarded,
		Raw:       append(json.RawMessage(nil), in.Raw...),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if len(in.Mentions) > 0 {
		record.Mentions = append([]string(nil), in.Mentions...)
	}
	if in.Media != nil {
		encoded, err := json.Marshal(in.Media)
		if err != nil {
			return nil, fmt.Errorf("sqlstore: media ref encode failed: %w", err)
		}
		record.Media = encoded
	}
	if in.Quoted != nil {
		encoded, err := json.Marshal(in.Quoted)
		if err != nil {
			return nil, fmt.Errorf("sqlstore: quoted ref encode failed: %w", err)
		}
		record.Quoted = encoded
	}
	return record, nil
}

func (r *messageRecord) toDomain() core.MessageRecord {
	if r == nil {
		return core.MessageRecord{}
	}
	record := core.MessageRecord{
		ID:        r.ID,
		AccountID: r.AccountID,
		MessageID: r.MessageID,
		ChatID:    r.ChatID,
		Direction: core.MessageDirection(r.Direction),
		Timestamp: r.Timestamp,
		Type:      r.Type,
		Text:      r.Text,
		Forwarded: r.Forwarded,
		Raw:       append(json.RawMessage(nil), r.Raw...),
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
	if len(r.Mentions) > 0 {
		record.Mentions = append([]string(nil), r.Mentions...)
	}
	if len(r.Media) > 0 {
		var ref core.MediaRef
		if err := json.Unmarshal(r.Media, &ref); err == nil {
			record.Media = &ref
		}
	}
	if len(r.Quoted) > 0 {
		var ref core.QuotedRef
		if err := json.Unmarshal(r.Quoted, &ref); err == nil {
			record.Quoted = &ref
		}
	}
	return record
}

func (r *subscriberRecord) toDomain() core.Subscriber {
	if r == nil {
		return core.Subscriber{}
	}
	return core.Subscriber{
		ID:        r.ID,
		URL:       r.URL,
		CreatedAt: r.CreatedAt,
	}
}

func (r *mediaObjectRecord) toDomain() media.Object {
	if r == nil {
		return media.Object{}
	}
	return media.Object{
		ID:        r.ID,
		AccountID: r.AccountID,
		MessageID: r.MessageID,
		MediaType: r.MediaType,
		Mimetype:  r.Mimetype,
		FileName:  r.FileName,
		Data:      append([]byte(nil), r.Data...),
		Size:      r.Size,
		CreatedAt: r.CreatedAt,
	}
}
