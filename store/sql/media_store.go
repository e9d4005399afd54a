package sqlstore

import (
	"context"
	"fmt"
	"strings"
	"time"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/wildcatlabs/wildcat/media"
)

// MediaStore keeps attachment blobs in the database, one row per
// (account, message). Re-capturing the same message replaces the blob.
type MediaStore struct {
	db   *bun.DB
	repo repository.Repository[*mediaObjectRecord]
}

func (s *MediaStore) Store(ctx context.Context, obj media.Object) (media.Object, error) {
	if s == nil || s.db == nil {
		return media.Object{}, fmt.Errorf("sqlstore: media store is not configured")
	}
	accountID := strings.TrimSpace(obj.AccountID)
	messageID := strings.TrimSpace(obj.MessageID)
	if accountID == "" || messageID == "" {
		return media.Object{}, fmt.Errorf("sqlstore: account id and message id are required")
	}
	if len(obj.Data) == 0 {
		return media.Object{}, fmt.Errorf("sqlstore: media payload is required")
	}

	id := strings.TrimSpace(obj.ID)
	if id == "" {
		id = uuid.NewString()
	}
	record := &mediaObjectRecord{
		ID:        id,
		AccountID: accountID,
		MessageID: messageID,
		MediaType: obj.MediaType,
		Mimetype:  obj.Mimetype,
		FileName:  obj.FileName,
		Data:      append([]byte(nil), obj.Data...),
		Size:      int64(len(obj.Data)),
		CreatedAt: time.Now().UTC(),
	}
	if _, err := s.db.NewInsert().
		Model(record).
		On("CONFLICT (account_id, message_id) DO UPDATE").
		Set("media_type = EXCLUDED.media_type").
		Set("mimetype = EXCLUDED.mimetype").
		Set("file_name = EXCLUDED.file_name").
		Set("data = EXCLUDED.data").
		Set("size = EXCLUDED.size").
		Exec(ctx); err != nil {
		return media.Object{}, err
	}

	stored, err := s.find(ctx, accountID, messageID)
	if err != nil {
		return media.Object{}, err
	}
	return stored.toDomain(), nil
}

func (s *MediaStore) Get(ctx context.Context, accountID string, messageID string) (media.Object, error) {
	if s == nil || s.repo == nil {
		return media.Object{}, fmt.Errorf("sqlstore: media store is not configured")
	}
	record, err := s.find(ctx, strings.TrimSpace(accountID), strings.TrimSpace(messageID))
	if err != nil {
		return media.Object{}, err
	}
	return record.toDomain(), nil
}

func (s *MediaStore) Delete(ctx context.Context, accountID string, messageID string) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("sqlstore: media store is not configured")
	}
	accountID = strings.TrimSpace(accountID)
	messageID = strings.TrimSpace(messageID)
	if accountID == "" || messageID == "" {
		return fmt.Errorf("sqlstore: account id and message id are required")
	}
	_, err := s.db.NewDelete().
		Model((*mediaObjectRecord)(nil)).
		Where("account_id = ?", accountID).
		Where("message_id = ?", messageID).
		Exec(ctx)
	return err
}

func (s *MediaStore) find(ctx context.Context, accountID string, messageID string) (*mediaObjectRecord, error) {
	if accountID == "" || messageID == "" {
		return nil, fmt.Errorf("sqlstore: account id and message id are required")
	}
	records, _, err := s.repo.List(ctx,
		repository.SelectBy("account_id", "=", accountID),
		repository.SelectBy("message_id", "=", messageID),
		repository.SelectPaginate(1, 0),
	)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, notFound(fmt.Sprintf("media for message %q not found on account %q", messageID, accountID))
	}
	return records[0], nil
}

var _ media.Backend = (*MediaStore)(nil)
