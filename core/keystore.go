package core

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	goerrors "github.com/goliatone/go-errors"

	"github.com/wildcatlabs/wildcat/protocol"
)

const credsDocID = "creds"

// KeyStoreAdapter binds one account's credential collection to the
// protocol engine's auth-state surface. Keyed material lives one document
// per "category-id"; the creds blob lives under a fixed id. Every value
// passes through the binary-safe codec in both directions.
//
// Reads mask both "never set" and "store unreachable" as absent — the
// engine probes unset keys routinely and treats any error as fatal. The
// underlying store still reports the distinction via error categories,
// which the adapter logs before masking.
type KeyStoreAdapter struct {
	docs       CredentialDocs
	codec      CredentialCodec
	collection string
	logger     Logger
}

func NewKeyStoreAdapter(docs CredentialDocs, codec CredentialCodec, collection string, logger Logger) (*KeyStoreAdapter, error) {
	if docs == nil {
		return nil, fmt.Errorf("core: credential docs store is required")
	}
	collection = strings.TrimSpace(collection)
	if collection == "" {
		return nil, fmt.Errorf("core: credential collection name is required")
	}
	if codec == nil {
		codec = TaggedJSONCredentialCodec{}
	}
	return &KeyStoreAdapter{
		docs:       docs,
		codec:      codec,
		collection: collection,
		logger:     logger,
	}, nil
}

func (a *KeyStoreAdapter) Collection() string {
	if a == nil {
		return ""
	}
	return a.collection
}

// Creds loads the account's credential blob; nil means absent, letting the
// engine initialize fresh material.
func (a *KeyStoreAdapter) Creds(ctx context.Context) (json.RawMessage, error) {
	value := a.read(ctx, credsDocID)
	if value == nil {
		return nil, nil
	}
	return a.reencode(value)
}

func (a *KeyStoreAdapter) SaveCreds(ctx context.Context, creds json.RawMessage) error {
	return a.writeRaw(ctx, credsDocID, creds)
}

// HasCreds reports whether a creds document exists without decoding it.
func (a *KeyStoreAdapter) HasCreds(ctx context.Context) bool {
	if a == nil || a.docs == nil {
		return false
	}
	_, err := a.docs.Read(ctx, a.collection, credsDocID)
	return err == nil
}

func (a *KeyStoreAdapter) Keys() protocol.KeyAccess {
	return keyAccess{adapter: a}
}

type keyAccess struct {
	adapter *KeyStoreAdapter
}

// Get resolves keyed material; missing ids map to nil entries, never
// errors.
func (k keyAccess) Get(ctx context.Context, category string, ids []string) (map[string]json.RawMessage, error) {
	a := k.adapter
	if a == nil {
		return nil, fmt.Errorf("core: key store adapter is nil")
	}
	out := make(map[string]json.RawMessage, len(ids))
	for _, id := range ids {
		value := a.read(ctx, category+"-"+id)
		if value == nil {
			out[id] = nil
			continue
		}
		encoded, err := a.reencode(value)
		if err != nil {
			a.logKeyError(ctx, "credential decode failed", category+"-"+id, err)
			out[id] = nil
			continue
		}
		out[id] = encoded
	}
	return out, nil
}

// Set applies keyed writes; a nil or empty value deletes the document.
// Writes are independent per key, so one failed upsert does not block the
// rest; the first error is returned after all keys were attempted.
func (k keyAccess) Set(ctx context.Context, changes map[string]map[string]json.RawMessage) error {
	a := k.adapter
	if a == nil {
		return fmt.Errorf("core: key store adapter is nil")
	}
	var firstErr error
	for category, entries := range changes {
		for id, value := range entries {
			docID := category + "-" + id
			var err error
			if len(value) == 0 || string(value) == "null" {
				err = a.docs.Delete(ctx, a.collection, docID)
			} else {
				err = a.writeRaw(ctx, docID, value)
			}
			if err != nil && firstErr == nil {
				firstErr = err
			}
			if err != nil {
				a.logKeyError(ctx, "credential write failed", docID, err)
			}
		}
	}
	return firstErr
}

// DropAll removes the whole collection. Destructive; used only by the
// explicit account-deletion workflow.
func (a *KeyStoreAdapter) DropAll(ctx context.Context) error {
	if a == nil || a.docs == nil {
		return fmt.Errorf("core: key store adapter is not configured")
	}
	return a.docs.Drop(ctx, a.collection)
}

// read resolves one document to its decoded value or nil for absent. Store
// failures are logged but masked as absent; see the type comment.
func (a *KeyStoreAdapter) read(ctx context.Context, docID string) any {
	if a == nil || a.docs == nil {
		return nil
	}
	payload, err := a.docs.Read(ctx, a.collection, docID)
	if err != nil {
		if !isNotFound(err) {
			a.logKeyError(ctx, "credential read failed, masking as absent", docID, err)
		}
		return nil
	}
	value, err := a.codec.Decode(payload)
	if err != nil {
		a.logKeyError(ctx, "credential payload corrupt, masking as absent", docID, err)
		return nil
	}
	return value
}

func (a *KeyStoreAdapter) writeRaw(ctx context.Context, docID string, raw json.RawMessage) error {
	if a == nil || a.docs == nil {
		return fmt.Errorf("core: key store adapter is not configured")
	}
	var value any
	if err := json.Unmarshal(raw, &value); err != nil {
		return fmt.Errorf("core: credential value is not valid JSON: %w", err)
	}
	encoded, err := a.codec.Encode(value)
	if err != nil {
		return err
	}
	return a.docs.Write(ctx, a.collection, docID, encoded)
}

// reencode turns a decoded value back into the engine-facing tagged JSON
// form. The engine consumes the same tagged wire shape it writes, so the
// adapter is symmetric end to end.
func (a *KeyStoreAdapter) reencode(value any) (json.RawMessage, error) {
	return a.codec.Encode(value)
}

func (a *KeyStoreAdapter) logKeyError(ctx context.Context, message string, docID string, err error) {
	if a == nil || a.logger == nil {
		return
	}
	logger := a.logger
	if ctx != nil {
		logger = logger.WithContext(ctx)
	}
	logger.Error(message, "collection", a.collection, "doc_id", docID, "error", err.Error())
}

func isNotFound(err error) bool {
	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return richErr.Category == goerrors.CategoryNotFound
	}
	return false
}

var _ protocol.AuthState = (*KeyStoreAdapter)(nil)
