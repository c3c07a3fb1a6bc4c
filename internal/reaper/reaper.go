// Package reaper empties the store's trash area on a schedule. Runs never
// overlap and a missed run is not queued; the next boundary picks up the
// work.
package reaper

import (
	"context"
	"time"

	"github.com/lingodocs/docstore/internal/logging"
	"github.com/lingodocs/docstore/internal/metrics"
	"github.com/lingodocs/docstore/internal/storage"
	"github.com/lingodocs/docstore/internal/storage/retryx"
)

// progressEvery bounds log volume on large trash sets; progress is logged
// for the first item, the last item and every progressEvery-th in between.
const progressEvery = 25

// ReapResult summarizes one reap run.
type ReapResult struct {
	TrashWasEmpty bool
	FilesDeleted  int
	FilesFailed   int
	BytesFreed    int64
	Elapsed       time.Duration
}

// Reaper deletes every trashed file, sequentially.
type Reaper struct {
	store  storage.Store
	policy retryx.Policy
	logger logging.Logger
}

func New(store storage.Store, policy retryx.Policy, logger logging.Logger) *Reaper {
	return &Reaper{store: store, policy: policy, logger: logger}
}

// Run lists the trash and deletes each item. A listing failure aborts the
// run; an individual delete failure is recorded and the run continues. The
// empty-trash branch is the common case and costs a single list call.
func (r *Reaper) Run(ctx context.Context) (*ReapResult, error) {
	start := time.Now()

	trashed, err := retryx.DoValue(ctx, r.policy, "files.listTrashed", func(ctx context.Context) ([]*storage.FileRecord, error) {
		return r.store.ListTrashed(ctx)
	})
	if err != nil {
		metrics.RecordReap(0, 0, false)
		return nil, err
	}

	if len(trashed) == 0 {
		r.logger.Info(ctx, "trash empty, nothing to reap")
		metrics.RecordReap(0, 0, true)
		return &ReapResult{TrashWasEmpty: true, Elapsed: time.Since(start)}, nil
	}

	res := &ReapResult{}
	for i, rec := range trashed {
		err := retryx.Do(ctx, r.policy, "files.delete", func(ctx context.Context) error {
			return r.store.DeleteFile(ctx, rec.ID)
		})
		if err != nil {
			res.FilesFailed++
			r.logger.Error(ctx, "trash delete failed", "file_id", rec.ID, "error", err)
			continue
		}
		res.FilesDeleted++
		res.BytesFreed += rec.Size

		if i == 0 || i == len(trashed)-1 || (i+1)%progressEvery == 0 {
			r.logger.Info(ctx, "reap progress",
				"deleted", res.FilesDeleted, "failed", res.FilesFailed, "of", len(trashed))
		}
	}

	res.Elapsed = time.Since(start)
	metrics.RecordReap(res.FilesDeleted, res.BytesFreed, true)
	r.logger.Info(ctx, "reap finished",
		"deleted", res.FilesDeleted, "failed", res.FilesFailed,
		"bytes_freed", res.BytesFreed, "elapsed", res.Elapsed.String())
	return res, nil
}
