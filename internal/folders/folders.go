// Package folders resolves and lazily builds the per-customer folder
// hierarchy in the remote store:
//
//	<root> / [<company>] / <customer email> / {Inbox, Temp, Completed}
//
// Folders are created on first reference and never deleted here.
package folders

import (
	"context"

	"github.com/lingodocs/docstore/internal/logging"
	"github.com/lingodocs/docstore/internal/storage"
	"github.com/lingodocs/docstore/internal/storage/retryx"
)

// Names of the three per-customer workflow folders.
const (
	FolderInbox     = "Inbox"
	FolderTemp      = "Temp"
	FolderCompleted = "Completed"
)

// Resolver finds or creates a single named folder under a parent. Repeated
// calls converge on one folder, but the find-then-create pair is not atomic:
// concurrent first-time calls for the same name may leave duplicates, which
// later calls tolerate by treating the first match as canonical.
type Resolver struct {
	store  storage.Store
	policy retryx.Policy
	logger logging.Logger
}

func NewResolver(store storage.Store, policy retryx.Policy, logger logging.Logger) *Resolver {
	return &Resolver{store: store, policy: policy, logger: logger}
}

// ResolveOrCreate returns the id of the non-trashed folder with the exact
// name under parentID (root when empty), creating it when absent.
func (r *Resolver) ResolveOrCreate(ctx context.Context, name, parentID string) (string, error) {
	found, err := retryx.DoValue(ctx, r.policy, "folders.find", func(ctx context.Context) ([]*storage.FolderNode, error) {
		return r.store.FindFolders(ctx, name, parentID)
	})
	if err != nil {
		return "", err
	}
	if len(found) > 0 {
		return found[0].ID, nil
	}

	node, err := retryx.DoValue(ctx, r.policy, "folders.create", func(ctx context.Context) (*storage.FolderNode, error) {
		return r.store.CreateFolder(ctx, name, parentID)
	})
	if err != nil {
		return "", err
	}
	r.logger.Info(ctx, "folder created", "name", name, "parent_id", parentID, "folder_id", node.ID)
	return node.ID, nil
}

// CustomerTree holds the resolved folder ids for one customer.
type CustomerTree struct {
	CustomerID  string
	InboxID     string
	TempID      string
	CompletedID string
}

// TreeBuilder composes the Resolver into the full per-customer hierarchy.
type TreeBuilder struct {
	resolver *Resolver
	rootName string
}

func NewTreeBuilder(resolver *Resolver, rootName string) *TreeBuilder {
	return &TreeBuilder{resolver: resolver, rootName: rootName}
}

// BuildCustomerTree ensures the customer's hierarchy exists and returns the
// Temp folder id, the landing zone for new uploads. company may be empty
// for individual customers.
func (b *TreeBuilder) BuildCustomerTree(ctx context.Context, email, company string) (string, error) {
	tree, err := b.CustomerFolders(ctx, email, company)
	if err != nil {
		return "", err
	}
	return tree.TempID, nil
}

// CustomerFolders resolves the whole per-customer tree. The customer's email
// is used only as a folder name; every folder belongs to the storage account
// this subsystem authenticates as.
func (b *TreeBuilder) CustomerFolders(ctx context.Context, email, company string) (*CustomerTree, error) {
	rootID, err := b.resolver.ResolveOrCreate(ctx, b.rootName, "")
	if err != nil {
		return nil, err
	}

	parentID := rootID
	if company != "" {
		parentID, err = b.resolver.ResolveOrCreate(ctx, company, rootID)
		if err != nil {
			return nil, err
		}
	}

	customerID, err := b.resolver.ResolveOrCreate(ctx, email, parentID)
	if err != nil {
		return nil, err
	}

	tree := &CustomerTree{CustomerID: customerID}
	for _, f := range []struct {
		name string
		dst  *string
	}{
		{FolderInbox, &tree.InboxID},
		{FolderTemp, &tree.TempID},
		{FolderCompleted, &tree.CompletedID},
	} {
		id, err := b.resolver.ResolveOrCreate(ctx, f.name, customerID)
		if err != nil {
			return nil, err
		}
		*f.dst = id
	}
	return tree, nil
}
