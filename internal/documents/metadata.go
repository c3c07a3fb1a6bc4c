package documents

import (
	"context"

	"github.com/lingodocs/docstore/internal/storage"
	"github.com/lingodocs/docstore/internal/storage/retryx"
)

// Metadata reads, updates and searches file properties. The store's
// property map is the single source of truth for workflow state.
type Metadata struct {
	store  storage.Store
	policy retryx.Policy
}

func NewMetadata(store storage.Store, policy retryx.Policy) *Metadata {
	return &Metadata{store: store, policy: policy}
}

// UpdateProperties merges the given property keys into the file. An empty
// map is a no-op that reports success without a remote call.
func (m *Metadata) UpdateProperties(ctx context.Context, id string, props map[string]string) (bool, error) {
	return m.Update(ctx, id, props, "", "")
}

// Update merges property keys and optionally renames the file or replaces
// its description. Empty name and description leave the stored values
// untouched; a call with nothing to change reports success without a
// remote call.
func (m *Metadata) Update(ctx context.Context, id string, props map[string]string, name, description string) (bool, error) {
	if len(props) == 0 && name == "" && description == "" {
		return true, nil
	}
	_, err := retryx.DoValue(ctx, m.policy, "files.update", func(ctx context.Context) (*storage.FileRecord, error) {
		return m.store.UpdateFile(ctx, id, &storage.FileUpdate{
			Properties:  props,
			Name:        name,
			Description: description,
		})
	})
	if err != nil {
		return false, err
	}
	return true, nil
}

// FindByStatus returns the customer's non-trashed files in the given
// workflow status. Missing page_count defaults to 1 and size to 0 in the
// returned records.
func (m *Metadata) FindByStatus(ctx context.Context, email string, status storage.FileStatus) ([]*storage.FileRecord, error) {
	recs, err := retryx.DoValue(ctx, m.policy, "files.search", func(ctx context.Context) ([]*storage.FileRecord, error) {
		return m.store.FindFilesByProperties(ctx, map[string]string{
			storage.PropCustomerEmail: email,
			storage.PropStatus:        string(status),
		})
	})
	if err != nil {
		return nil, err
	}
	for _, rec := range recs {
		normalize(rec)
	}
	return recs, nil
}

// GetByID fetches one file directly. Preferred over search when the id is
// already known.
func (m *Metadata) GetByID(ctx context.Context, id string) (*storage.FileRecord, error) {
	rec, err := retryx.DoValue(ctx, m.policy, "files.get", func(ctx context.Context) (*storage.FileRecord, error) {
		return m.store.GetFile(ctx, id)
	})
	if err != nil {
		return nil, err
	}
	normalize(rec)
	return rec, nil
}

// normalize fills the defaults callers rely on: page_count 1, size never
// negative.
func normalize(rec *storage.FileRecord) {
	if rec.Properties == nil {
		rec.Properties = map[string]string{}
	}
	if rec.Property(storage.PropPageCount) == "" {
		rec.Properties[storage.PropPageCount] = "1"
	}
	if rec.Size < 0 {
		rec.Size = 0
	}
}
