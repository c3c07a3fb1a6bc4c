package storage

import (
	"context"

	"golang.org/x/sync/semaphore"
)

// BoundedStore wraps a Store with a weighted semaphore so at most max
// remote calls are in flight process-wide. The remote store degrades badly
// under concurrent load from one account, so every call blocks until a
// slot frees up; the calling goroutine resumes only once its own call
// (including retries issued above this layer) completes.
type BoundedStore struct {
	inner Store
	sem   *semaphore.Weighted
}

// Bound wraps inner with a cap of max concurrent calls. max < 1 is
// treated as 1.
func Bound(inner Store, max int64) *BoundedStore {
	if max < 1 {
		max = 1
	}
	return &BoundedStore{inner: inner, sem: semaphore.NewWeighted(max)}
}

func (b *BoundedStore) acquire(ctx context.Context) error {
	return b.sem.Acquire(ctx, 1)
}

func (b *BoundedStore) CreateFolder(ctx context.Context, name, parentID string) (*FolderNode, error) {
	if err := b.acquire(ctx); err != nil {
		return nil, err
	}
	defer b.sem.Release(1)
	return b.inner.CreateFolder(ctx, name, parentID)
}

func (b *BoundedStore) FindFolders(ctx context.Context, name, parentID string) ([]*FolderNode, error) {
	if err := b.acquire(ctx); err != nil {
		return nil, err
	}
	defer b.sem.Release(1)
	return b.inner.FindFolders(ctx, name, parentID)
}

func (b *BoundedStore) CreateFile(ctx context.Context, in *CreateFileInput) (*FileRecord, error) {
	if err := b.acquire(ctx); err != nil {
		return nil, err
	}
	defer b.sem.Release(1)
	return b.inner.CreateFile(ctx, in)
}

func (b *BoundedStore) GetFile(ctx context.Context, id string) (*FileRecord, error) {
	if err := b.acquire(ctx); err != nil {
		return nil, err
	}
	defer b.sem.Release(1)
	return b.inner.GetFile(ctx, id)
}

func (b *BoundedStore) UpdateFile(ctx context.Context, id string, upd *FileUpdate) (*FileRecord, error) {
	if err := b.acquire(ctx); err != nil {
		return nil, err
	}
	defer b.sem.Release(1)
	return b.inner.UpdateFile(ctx, id, upd)
}

func (b *BoundedStore) DeleteFile(ctx context.Context, id string) error {
	if err := b.acquire(ctx); err != nil {
		return err
	}
	defer b.sem.Release(1)
	return b.inner.DeleteFile(ctx, id)
}

func (b *BoundedStore) FindFilesByProperties(ctx context.Context, props map[string]string) ([]*FileRecord, error) {
	if err := b.acquire(ctx); err != nil {
		return nil, err
	}
	defer b.sem.Release(1)
	return b.inner.FindFilesByProperties(ctx, props)
}

func (b *BoundedStore) ListTrashed(ctx context.Context) ([]*FileRecord, error) {
	if err := b.acquire(ctx); err != nil {
		return nil, err
	}
	defer b.sem.Release(1)
	return b.inner.ListTrashed(ctx)
}
