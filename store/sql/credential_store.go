package sqlstore

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/wildcatlabs/wildcat/core"
)

// payloadCodec identifies the encoding behind every stored payload; the
// format columns must name the codec that produced the bytes, not a
// store-local label.
var payloadCodec core.CredentialCodec = core.TaggedJSONCredentialCodec{}

// CredentialDocStore is the document surface behind the credential
// key-store adapter: one row per (collection, doc id), payload already
// encoded by the core's codec.
type CredentialDocStore struct {
	db   *bun.DB
	repo repository.Repository[*credentialDocRecord]
}

func (s *CredentialDocStore) Read(ctx context.Context, collection string, docID string) (json.RawMessage, error) {
	if s == nil || s.repo == nil {
		return nil, fmt.Errorf("sqlstore: credential store is not configured")
	}
	collection, docID, err := normalizeDocKey(collection, docID)
	if err != nil {
		return nil, err
	}
	records, _, err := s.repo.List(ctx,
		repository.SelectBy("collection_name", "=", collection),
		repository.SelectBy("doc_id", "=", docID),
		repository.SelectPaginate(1, 0),
	)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, notFound(fmt.Sprintf("credential doc %q not found in collection %q", docID, collection))
	}
	return append(json.RawMessage(nil), records[0].Payload...), nil
}

func (s *CredentialDocStore) Write(ctx context.Context, collection string, docID string, payload json.RawMessage) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("sqlstore: credential store is not configured")
	}
	collection, docID, err := normalizeDocKey(collection, docID)
	if err != nil {
		return err
	}
	if len(payload) == 0 {
		return fmt.Errorf("sqlstore: credential payload is required")
	}

	now := time.Now().UTC()
	record := &credentialDocRecord{
		ID:             uuid.NewString(),
		CollectionName: collection,
		DocID:          docID,
		Payload:        append(json.RawMessage(nil), payload...),
		Format:         payloadCodec.Format(),
		FormatVersion:  payloadCodec.Version(),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	_, err = s.db.NewInsert().
		Model(record).
		On("CONFLICT (collection_name, doc_id) DO UPDATE").
		Set("payload = EXCLUDED.payload").
		Set("format = EXCLUDED.format").
		Set("format_version = EXCLUDED.format_version").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	return err
}

func (s *CredentialDocStore) Delete(ctx context.Context, collection string, docID string) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("sqlstore: credential store is not configured")
	}
	collection, docID, err := normalizeDocKey(collection, docID)
	if err != nil {
		return err
	}
	_, err = s.db.NewDelete().
		Model((*credentialDocRecord)(nil)).
		Where("collection_name = ?", collection).
		Where("doc_id = ?", docID).
		Exec(ctx)
	return err
}

func (s *CredentialDocStore) Drop(ctx context.Context, collection string) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("sqlstore: credential store is not configured")
	}
	collection = strings.TrimSpace(collection)
	if collection == "" {
		return fmt.Errorf("sqlstore: collection name is required")
	}
	_, err := s.db.NewDelete().
		Model((*credentialDocRecord)(nil)).
		Where("collection_name = ?", collection).
		Exec(ctx)
	return err
}

func normalizeDocKey(collection string, docID string) (string, string, error) {
	collection = strings.TrimSpace(collection)
	docID = strings.TrimSpace(docID)
	if collection == "" {
		return "", "", fmt.Errorf("sqlstore: collection name is required")
	}
	if docID == "" {
		return "", "", fmt.Errorf("sqlstore: doc id is required")
	}
	return collection, docID, nil
}

var _ core.CredentialDocs = (*CredentialDocStore)(nil)
