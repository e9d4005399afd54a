package sqlstore

import (
	"encoding/json"
	"time"

	"github.com/uptrace/bun"
)

type accountRecord struct {
	bun.BaseModel `bun:"table:gateway_accounts,alias:ga"`

	ID             string     `bun:"id,pk"`
	AccountID      string     `bun:"account_id,notnull"`
	Name           string     `bun:"name"`
	CollectionName string     `bun:"collection_name,notnull"`
	Status         string     `bun:"status,notnull"`
	CreatedAt      time.Time  `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt      time.Time  `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
	DeletedAt      *time.Time `bun:"deleted_at,soft_delete"`
}

type credentialDocRecord struct {
	bun.BaseModel `bun:"table:gateway_credentials,alias:gc"`

	ID             string          `bun:"id,pk"`
	CollectionName string          `bun:"collection_name,notnull"`
	DocID          string          `bun:"doc_id,notnull"`
	Payload        json.RawMessage `bun:"payload,type:jsonb,notnull"`
	Format         string          `bun:"format,notnull"`
	FormatVersion  int             `bun:"format_version,notnull"`
	CreatedAt      time.Time       `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt      time.Time       `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

type messageRecord struct {
	bun.BaseModel `bun:"table:gateway_messages,alias:gm"`

	ID        string          `bun:"id,pk"`
	AccountID string          `bun:"account_id,notnull"`
	MessageID string          `bun:"message_id,notnull"`
	ChatID    string          `bun:"chat_id,notnull"`
	Direction string          `bun:"direction,notnull"`
	Timestamp time.Time       `bun:"timestamp,notnull"`
	Type      string          `bun:"type,notnull"`
	Text      string          `bun:"text"`
	Media     json.RawMessage `bun:"media,type:jsonb"`
	Quoted    json.RawMessage `bun:"quoted,type:jsonb"`
	Mentions  []string        `bun:"mentions,type:jsonb"`
	Forwarded bool            `bun:"forwarded,notnull,default:false"`
	Raw       json.RawMessage `bun:"raw,type:jsonb"`
	CreatedAt time.Time       `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt time.Time       `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

type subscriberRecord struct {
	bun.BaseModel `bun:"table:gateway_webhook_subscribers,alias:gws"`

	ID        string    `bun:"id,pk"`
	URL       string    `bun:"url,notnull,unique"`
	CreatedAt time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

type mediaObjectRecord struct {
	bun.BaseModel `bun:"table:gateway_media,alias:gmo"`

	ID        string    `bun:"id,pk"`
	AccountID string    `bun:"account_id,notnull"`
	MessageID string    `bun:"message_id,notnull"`
	MediaType string    `bun:"media_type,notnull"`
	Mimetype  string    `bun:"mimetype"`
	FileName  string    `bun:"file_name"`
	Data      []byte    `bun:"data,notnull"`
	Size      int64     `bun:"size,notnull"`
	CreatedAt time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
}
