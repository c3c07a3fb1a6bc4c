// Package payments drives the two-state payment workflow. A confirmed
// payment moves the customer's files from Temp to Inbox and flips their
// status; a failed payment deletes them. Files are located by customer and
// status, never by a session id.
package payments

import (
	"context"
	"time"

	"github.com/lingodocs/docstore/internal/folders"
	"github.com/lingodocs/docstore/internal/logging"
	"github.com/lingodocs/docstore/internal/storage"
	"github.com/lingodocs/docstore/internal/storage/retryx"
)

// FileOutcome is the per-file detail of one batch entry.
type FileOutcome struct {
	FileID string
	OK     bool
	Err    error
}

// MoveResult summarizes one payment-success batch. Outcomes preserve the
// caller's file order.
type MoveResult struct {
	Total    int
	Moved    int
	Failed   int
	Outcomes []FileOutcome
}

// DeleteResult summarizes one payment-failure batch.
type DeleteResult struct {
	Total    int
	Deleted  int
	Failed   int
	Outcomes []FileOutcome
}

// Orchestrator executes the move-or-delete workflow. Files within one
// batch are processed sequentially; the store misbehaves under concurrent
// load for a single customer.
type Orchestrator struct {
	store  storage.Store
	trees  *folders.TreeBuilder
	policy retryx.Policy
	logger logging.Logger
}

func New(store storage.Store, trees *folders.TreeBuilder, policy retryx.Policy, logger logging.Logger) *Orchestrator {
	return &Orchestrator{store: store, trees: trees, policy: policy, logger: logger}
}

var timeNow = time.Now

// OnPaymentSuccess moves each file from the customer's Temp folder to
// Inbox, then flips its status to payment_confirmed. A status-update
// failure after a successful move is logged but not rolled back; the move
// is the primary outcome. company may be empty for individual customers.
func (o *Orchestrator) OnPaymentSuccess(ctx context.Context, email string, fileIDs []string, company, paymentIntentID string) (*MoveResult, error) {
	tree, err := o.trees.CustomerFolders(ctx, email, company)
	if err != nil {
		return nil, err
	}

	res := &MoveResult{Total: len(fileIDs)}
	for _, id := range fileIDs {
		if err := o.moveAndConfirm(ctx, id, tree, paymentIntentID); err != nil {
			res.Failed++
			res.Outcomes = append(res.Outcomes, FileOutcome{FileID: id, Err: err})
			o.logger.Error(ctx, "payment move failed",
				"file_id", id, "customer_email", email, "error", err)
			continue
		}
		res.Moved++
		res.Outcomes = append(res.Outcomes, FileOutcome{FileID: id, OK: true})
	}

	o.logger.Info(ctx, "payment success processed",
		"customer_email", email, "total", res.Total, "moved", res.Moved, "failed", res.Failed)
	return res, nil
}

func (o *Orchestrator) moveAndConfirm(ctx context.Context, id string, tree *folders.CustomerTree, paymentIntentID string) error {
	rec, err := retryx.DoValue(ctx, o.policy, "files.move", func(ctx context.Context) (*storage.FileRecord, error) {
		return o.store.UpdateFile(ctx, id, &storage.FileUpdate{
			AddParents:    []string{tree.InboxID},
			RemoveParents: []string{tree.TempID},
		})
	})
	if err != nil {
		return err
	}

	current := storage.FileStatus(rec.Property(storage.PropStatus))
	if !current.CanTransitionTo(storage.StatusPaymentConfirmed) {
		o.logger.Warn(ctx, "file moved but status not confirmable",
			"file_id", id, "status", string(current))
		return nil
	}

	props := map[string]string{
		storage.PropStatus:             string(storage.StatusPaymentConfirmed),
		storage.PropPaymentConfirmedAt: timeNow().UTC().Format(time.RFC3339),
	}
	if paymentIntentID != "" {
		props[storage.PropPaymentIntentID] = paymentIntentID
	}

	_, err = retryx.DoValue(ctx, o.policy, "files.confirm", func(ctx context.Context) (*storage.FileRecord, error) {
		return o.store.UpdateFile(ctx, id, &storage.FileUpdate{Properties: props})
	})
	if err != nil {
		// The move already happened; the file sits in Inbox with a stale
		// status until the next reconciliation.
		o.logger.Error(ctx, "status update failed after move", "file_id", id, "error", err)
	}
	return nil
}

// OnPaymentFailure permanently deletes each file. No status is written;
// the record ceases to exist.
func (o *Orchestrator) OnPaymentFailure(ctx context.Context, email string, fileIDs []string) (*DeleteResult, error) {
	res := &DeleteResult{Total: len(fileIDs)}
	for _, id := range fileIDs {
		err := retryx.Do(ctx, o.policy, "files.delete", func(ctx context.Context) error {
			return o.store.DeleteFile(ctx, id)
		})
		if err != nil {
			res.Failed++
			res.Outcomes = append(res.Outcomes, FileOutcome{FileID: id, Err: err})
			o.logger.Error(ctx, "payment cleanup delete failed",
				"file_id", id, "customer_email", email, "error", err)
			continue
		}
		res.Deleted++
		res.Outcomes = append(res.Outcomes, FileOutcome{FileID: id, OK: true})
	}

	o.logger.Info(ctx, "payment failure processed",
		"customer_email", email, "total", res.Total, "deleted", res.Deleted, "failed", res.Failed)
	return res, nil
}
