package documents

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lingodocs/docstore/internal/logging"
	"github.com/lingodocs/docstore/internal/storage"
	"github.com/lingodocs/docstore/internal/storage/memstore"
	"github.com/lingodocs/docstore/internal/storage/retryx"
)

func validMetadata() UploadMetadata {
	return UploadMetadata{
		CustomerEmail:  "a@x.com",
		SourceLanguage: "en",
		TargetLanguage: "de",
		PageCount:      5,
	}
}

func newUploader(store storage.Store) *Uploader {
	return NewUploader(store, retryx.Policy{MaxRetries: 0}, logging.Discard())
}

func TestUploadMetadata_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*UploadMetadata)
		ok     bool
	}{
		{"valid", func(m *UploadMetadata) {}, true},
		{"regional language tag", func(m *UploadMetadata) { m.TargetLanguage = "pt-BR" }, true},
		{"missing email", func(m *UploadMetadata) { m.CustomerEmail = "" }, false},
		{"malformed email", func(m *UploadMetadata) { m.CustomerEmail = "not-an-email" }, false},
		{"short language", func(m *UploadMetadata) { m.SourceLanguage = "e" }, false},
		{"zero pages", func(m *UploadMetadata) { m.PageCount = 0 }, false},
		{"negative pages", func(m *UploadMetadata) { m.PageCount = -3 }, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			m := validMetadata()
			tc.mutate(&m)
			err := m.Validate()
			if tc.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestUploader_Upload(t *testing.T) {
	ms := memstore.New()
	u := newUploader(ms)
	ctx := context.Background()

	fixed := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	timeNow = func() time.Time { return fixed }
	t.Cleanup(func() { timeNow = time.Now })

	folder, err := ms.CreateFolder(ctx, "Temp", "")
	require.NoError(t, err)

	content := []byte("%PDF-1.4 test")
	rec, err := u.Upload(ctx, UploadInput{
		Content:  content,
		Filename: "doc.pdf",
		FolderID: folder.ID,
		Metadata: validMetadata(),
	})
	require.NoError(t, err)

	assert.Equal(t, "doc.pdf", rec.Name)
	assert.Equal(t, int64(len(content)), rec.Size)
	assert.True(t, rec.HasParent(folder.ID))
	assert.Equal(t, string(storage.StatusAwaitingPayment), rec.Property(storage.PropStatus))
	assert.Equal(t, "a@x.com", rec.Property(storage.PropCustomerEmail))
	assert.Equal(t, "5", rec.Property(storage.PropPageCount))
	assert.Equal(t, fixed.Format(time.RFC3339), rec.Property(storage.PropUploadTimestamp))

	stored, ok := ms.Content(rec.ID)
	require.True(t, ok)
	assert.Equal(t, content, stored)
}

func TestUploader_InvalidMetadataNeverReachesStore(t *testing.T) {
	cs := &createCountingStore{Store: memstore.New()}
	u := newUploader(cs)

	m := validMetadata()
	m.PageCount = 0
	_, err := u.Upload(context.Background(), UploadInput{
		Content:  []byte("x"),
		Filename: "doc.pdf",
		FolderID: "temp-1",
		Metadata: m,
	})
	require.Error(t, err)
	assert.Zero(t, cs.creates)
}

func TestUploader_SizeFallsBackToInputLength(t *testing.T) {
	zs := &zeroSizeStore{Store: memstore.New()}
	u := newUploader(zs)
	ctx := context.Background()

	content := []byte("0123456789")
	rec, err := u.Upload(ctx, UploadInput{
		Content:  content,
		Filename: "doc.pdf",
		FolderID: "temp-1",
		Metadata: validMetadata(),
	})
	require.NoError(t, err)
	assert.Equal(t, int64(len(content)), rec.Size)
}

func TestUploader_StoreErrorPropagates(t *testing.T) {
	fs := &failingCreateStore{
		Store: memstore.New(),
		err:   storage.NewError(storage.KindQuota, "files.create", 403, errors.New("storageQuotaExceeded")),
	}
	u := newUploader(fs)

	_, err := u.Upload(context.Background(), UploadInput{
		Content:  []byte("x"),
		Filename: "doc.pdf",
		FolderID: "temp-1",
		Metadata: validMetadata(),
	})
	var ee *storage.ExhaustedError
	require.ErrorAs(t, err, &ee, "retryable failures surface as exhaustion")
}

type createCountingStore struct {
	storage.Store
	creates int
}

func (c *createCountingStore) CreateFile(ctx context.Context, in *storage.CreateFileInput) (*storage.FileRecord, error) {
	c.creates++
	return c.Store.CreateFile(ctx, in)
}

type zeroSizeStore struct {
	storage.Store
}

func (z *zeroSizeStore) CreateFile(ctx context.Context, in *storage.CreateFileInput) (*storage.FileRecord, error) {
	rec, err := z.Store.CreateFile(ctx, in)
	if err != nil {
		return nil, err
	}
	rec.Size = 0
	return rec, nil
}

type failingCreateStore struct {
	storage.Store
	err error
}

func (f *failingCreateStore) CreateFile(ctx context.Context, in *storage.CreateFileInput) (*storage.FileRecord, error) {
	return nil, f.err
}
