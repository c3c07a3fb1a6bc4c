package reaper

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lingodocs/docstore/internal/logging"
	"github.com/lingodocs/docstore/internal/storage"
	"github.com/lingodocs/docstore/internal/storage/memstore"
	"github.com/lingodocs/docstore/internal/storage/retryx"
)

func newReaper(store storage.Store) *Reaper {
	return New(store, retryx.Policy{MaxRetries: 0}, logging.Discard())
}

func trashFiles(t *testing.T, ms *memstore.Store, sizes ...int) []string {
	t.Helper()
	ctx := context.Background()
	ids := make([]string, 0, len(sizes))
	for _, size := range sizes {
		rec, err := ms.CreateFile(ctx, &storage.CreateFileInput{
			Name:     "old.pdf",
			ParentID: "temp-1",
			Content:  make([]byte, size),
		})
		require.NoError(t, err)
		require.NoError(t, ms.TrashFile(rec.ID))
		ids = append(ids, rec.ID)
	}
	return ids
}

func TestReaper_EmptyTrashIsCheapNoOp(t *testing.T) {
	ds := &deleteCountingStore{Store: memstore.New()}
	r := newReaper(ds)

	res, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.True(t, res.TrashWasEmpty)
	assert.Zero(t, res.FilesDeleted)
	assert.Zero(t, res.FilesFailed)
	assert.Zero(t, res.BytesFreed)
	assert.Zero(t, ds.deletes, "no deletes may be attempted on an empty trash")
}

func TestReaper_DeletesAllTrashedFiles(t *testing.T) {
	ms := memstore.New()
	ids := trashFiles(t, ms, 100, 200, 300)
	r := newReaper(ms)
	ctx := context.Background()

	res, err := r.Run(ctx)
	require.NoError(t, err)
	assert.False(t, res.TrashWasEmpty)
	assert.Equal(t, 3, res.FilesDeleted)
	assert.Zero(t, res.FilesFailed)
	assert.Equal(t, int64(600), res.BytesFreed)

	for _, id := range ids {
		_, err := ms.GetFile(ctx, id)
		var se *storage.Error
		require.ErrorAs(t, err, &se)
		assert.Equal(t, storage.KindNotFound, se.Kind)
	}
}

func TestReaper_LeavesLiveFilesAlone(t *testing.T) {
	ms := memstore.New()
	ctx := context.Background()

	live, err := ms.CreateFile(ctx, &storage.CreateFileInput{
		Name:     "keep.pdf",
		ParentID: "temp-1",
		Content:  []byte("keep"),
	})
	require.NoError(t, err)
	trashFiles(t, ms, 10)

	res, err := newReaper(ms).Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, res.FilesDeleted)

	_, err = ms.GetFile(ctx, live.ID)
	assert.NoError(t, err)
}

func TestReaper_IndividualFailureDoesNotAbort(t *testing.T) {
	ms := memstore.New()
	ids := trashFiles(t, ms, 10, 20, 30)
	fs := &deleteFailingStore{Store: ms, failID: ids[1]}
	r := newReaper(fs)
	ctx := context.Background()

	res, err := r.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, res.FilesDeleted)
	assert.Equal(t, 1, res.FilesFailed)
	assert.Equal(t, int64(40), res.BytesFreed)

	// the failed file is still there for the next run
	trashed, err := ms.ListTrashed(ctx)
	require.NoError(t, err)
	require.Len(t, trashed, 1)
	assert.Equal(t, ids[1], trashed[0].ID)
}

func TestReaper_ListingFailureAbortsRun(t *testing.T) {
	fs := &listFailingStore{
		Store: memstore.New(),
		err:   storage.NewError(storage.KindPermission, "files.listTrashed", 403, errors.New("forbidden")),
	}
	r := newReaper(fs)

	res, err := r.Run(context.Background())
	assert.Nil(t, res)
	var se *storage.Error
	require.ErrorAs(t, err, &se)
	assert.Equal(t, storage.KindPermission, se.Kind)
}

func TestScheduler_StopCancelsInFlightRun(t *testing.T) {
	bs := &blockingListStore{Store: memstore.New(), started: make(chan struct{})}
	s, err := NewScheduler(newReaper(bs), "0 * * * *", logging.Discard())
	require.NoError(t, err)
	s.Start()

	done := make(chan struct{})
	go func() {
		defer close(done)
		s.run()
	}()

	// the run is blocked inside the store listing; Stop must unblock it
	<-bs.started
	s.Stop()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("in-flight run was not cancelled by Stop")
	}
}

func TestNewScheduler_RejectsBadSpec(t *testing.T) {
	r := newReaper(memstore.New())
	_, err := NewScheduler(r, "not a cron spec", logging.Discard())
	require.Error(t, err)
}

func TestNewScheduler_AcceptsHourlyBoundary(t *testing.T) {
	r := newReaper(memstore.New())
	s, err := NewScheduler(r, "0 * * * *", logging.Discard())
	require.NoError(t, err)
	s.Start()
	s.Stop()
}

type deleteCountingStore struct {
	storage.Store
	deletes int
}

func (d *deleteCountingStore) DeleteFile(ctx context.Context, id string) error {
	d.deletes++
	return d.Store.DeleteFile(ctx, id)
}

type deleteFailingStore struct {
	storage.Store
	failID string
}

func (d *deleteFailingStore) DeleteFile(ctx context.Context, id string) error {
	if id == d.failID {
		return storage.NewError(storage.KindPermission, "files.delete", 403, errors.New("forbidden"))
	}
	return d.Store.DeleteFile(ctx, id)
}

// blockingListStore parks ListTrashed until the caller's context is
// cancelled.
type blockingListStore struct {
	storage.Store
	started chan struct{}
	once    sync.Once
}

func (b *blockingListStore) ListTrashed(ctx context.Context) ([]*storage.FileRecord, error) {
	b.once.Do(func() { close(b.started) })
	<-ctx.Done()
	return nil, ctx.Err()
}

type listFailingStore struct {
	storage.Store
	err error
}

func (l *listFailingStore) ListTrashed(ctx context.Context) ([]*storage.FileRecord, error) {
	return nil, l.err
}
