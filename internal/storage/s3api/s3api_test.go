package s3api

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lingodocs/docstore/internal/storage"
)

func TestFileMetaRoundTrip(t *testing.T) {
	createdAt := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	props := map[string]string{
		storage.PropCustomerEmail: "a@x.com",
		storage.PropStatus:        string(storage.StatusAwaitingPayment),
		storage.PropPageCount:     "5",
	}

	meta, err := encodeFileMeta("doc.pdf", []string{"temp-1"}, createdAt, false, props)
	require.NoError(t, err)

	rec, err := decodeFileMeta("file-1", 1024, meta)
	require.NoError(t, err)

	assert.Equal(t, "file-1", rec.ID)
	assert.Equal(t, "doc.pdf", rec.Name)
	assert.Equal(t, int64(1024), rec.Size)
	assert.Equal(t, []string{"temp-1"}, rec.Parents)
	assert.True(t, rec.CreatedAt.Equal(createdAt))
	assert.False(t, rec.Trashed)
	assert.Equal(t, props, rec.Properties)
}

func TestFileMeta_TrashedAndEmptyProps(t *testing.T) {
	meta, err := encodeFileMeta("doc.pdf", nil, time.Now().UTC(), true, nil)
	require.NoError(t, err)
	assert.NotContains(t, meta, metaProps)

	rec, err := decodeFileMeta("file-1", 0, meta)
	require.NoError(t, err)
	assert.True(t, rec.Trashed)
	assert.Empty(t, rec.Parents)
	assert.Nil(t, rec.Properties)
}

func TestDecodeFileMeta_BadCreatedAt(t *testing.T) {
	_, err := decodeFileMeta("file-1", 0, map[string]string{
		metaCreatedAt: "yesterday",
	})
	require.Error(t, err)
}

func TestFolderMetaRoundTrip(t *testing.T) {
	meta := encodeFolderMeta("Inbox", "cust-1")
	node := decodeFolderMeta("folder-1", meta)

	assert.Equal(t, "folder-1", node.ID)
	assert.Equal(t, "Inbox", node.Name)
	assert.Equal(t, "cust-1", node.ParentID)
}

func TestUpdateFileMeta_PreservesDescriptionAcrossMove(t *testing.T) {
	createdAt := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	existing, err := encodeFileMeta("doc.pdf", []string{"temp-1"}, createdAt, false, map[string]string{
		storage.PropStatus: string(storage.StatusAwaitingPayment),
	})
	require.NoError(t, err)
	existing[metaDescription] = "5 page document, en to de, for a@x.com"

	meta, err := updateFileMeta(existing, &storage.FileUpdate{
		AddParents:    []string{"inbox-1"},
		RemoveParents: []string{"temp-1"},
		Properties: map[string]string{
			storage.PropStatus: string(storage.StatusPaymentConfirmed),
		},
	})
	require.NoError(t, err)

	assert.Equal(t, "5 page document, en to de, for a@x.com", meta[metaDescription])
	assert.Equal(t, "inbox-1", meta[metaParents])

	rec, err := decodeFileMeta("file-1", 0, meta)
	require.NoError(t, err)
	assert.Equal(t, "doc.pdf", rec.Name)
	assert.True(t, rec.CreatedAt.Equal(createdAt))
	assert.Equal(t, string(storage.StatusPaymentConfirmed), rec.Property(storage.PropStatus))
}

func TestUpdateFileMeta_AppliesNameAndDescription(t *testing.T) {
	existing, err := encodeFileMeta("doc.pdf", []string{"temp-1"}, time.Now().UTC(), false, nil)
	require.NoError(t, err)
	existing[metaDescription] = "old description"

	meta, err := updateFileMeta(existing, &storage.FileUpdate{
		Name:        "renamed.pdf",
		Description: "new description",
	})
	require.NoError(t, err)

	assert.Equal(t, "renamed.pdf", meta[metaName])
	assert.Equal(t, "new description", meta[metaDescription])
	assert.Equal(t, "temp-1", meta[metaParents])
}

func TestApplyParents(t *testing.T) {
	tests := []struct {
		name    string
		current []string
		add     []string
		remove  []string
		want    []string
	}{
		{"move", []string{"temp-1"}, []string{"inbox-1"}, []string{"temp-1"}, []string{"inbox-1"}},
		{"add only", []string{"temp-1"}, []string{"inbox-1"}, nil, []string{"temp-1", "inbox-1"}},
		{"add existing is idempotent", []string{"temp-1"}, []string{"temp-1"}, nil, []string{"temp-1"}},
		{"remove missing is a no-op", []string{"temp-1"}, nil, []string{"other"}, []string{"temp-1"}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, applyParents(tc.current, tc.add, tc.remove))
		})
	}
}
