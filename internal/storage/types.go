// Package storage defines the remote hierarchical object store abstraction:
// the Store interface, the folder/file models exchanged with it, and the
// error taxonomy shared by all backends.
//
// The store holds folders, files with custom key/value properties, and a
// trash area. All durable workflow state lives in the property map of the
// remote file objects; this subsystem keeps no local state.
package storage

import (
	"context"
	"strconv"
	"time"
)

// Property keys used on remote file objects.
const (
	PropCustomerEmail      = "customer_email"
	PropSourceLanguage     = "source_language"
	PropTargetLanguage     = "target_language"
	PropPageCount          = "page_count"
	PropStatus             = "status"
	PropUploadTimestamp    = "upload_timestamp"
	PropPaymentIntentID    = "payment_intent_id"
	PropPaymentConfirmedAt = "payment_confirmed_at"
)

// FolderNode is one folder in the remote tree. ParentID is empty for
// folders that sit at the root of the store.
type FolderNode struct {
	ID       string
	Name     string
	ParentID string
}

// FileRecord is one uploaded document as the store reports it. Parents is
// the file's current parent folder set; moves are expressed as
// add-parent/remove-parent pairs on UpdateFile, never as in-place edits.
type FileRecord struct {
	ID         string
	Name       string
	Size       int64
	Parents    []string
	CreatedAt  time.Time
	WebURL     string
	Trashed    bool
	Properties map[string]string
}

// Property returns the named custom property, or "" if unset.
func (f *FileRecord) Property(key string) string {
	if f.Properties == nil {
		return ""
	}
	return f.Properties[key]
}

// PageCount returns the page_count property, defaulting to 1 when the
// property is missing or unparsable.
func (f *FileRecord) PageCount() int {
	n, err := strconv.Atoi(f.Property(PropPageCount))
	if err != nil || n < 1 {
		return 1
	}
	return n
}

// HasParent reports whether folderID is in the file's parent set.
func (f *FileRecord) HasParent(folderID string) bool {
	for _, p := range f.Parents {
		if p == folderID {
			return true
		}
	}
	return false
}

// CreateFileInput carries everything needed to land one file in a folder.
type CreateFileInput struct {
	Name        string
	ParentID    string
	Description string
	Content     []byte
	Properties  map[string]string
}

// FileUpdate describes a metadata update. Zero-value fields are left
// untouched by the store.
type FileUpdate struct {
	AddParents    []string
	RemoveParents []string
	Properties    map[string]string
	Name          string
	Description   string
}

// Store is the remote hierarchical object store consumed by every
// component in this subsystem. Implementations perform blocking network
// I/O; callers are expected to reach a Store only through the transport
// retry wrapper.
type Store interface {
	// CreateFolder creates a folder under parentID (or at root when
	// parentID is empty) and returns the store-assigned node.
	CreateFolder(ctx context.Context, name, parentID string) (*FolderNode, error)

	// FindFolders returns the non-trashed folders with the exact name under
	// parentID (root when empty), in store order.
	FindFolders(ctx context.Context, name, parentID string) ([]*FolderNode, error)

	// CreateFile uploads content and metadata in one call and returns the
	// store's authoritative record.
	CreateFile(ctx context.Context, in *CreateFileInput) (*FileRecord, error)

	// GetFile fetches one file by id.
	GetFile(ctx context.Context, id string) (*FileRecord, error)

	// UpdateFile applies a metadata update and returns the updated record.
	UpdateFile(ctx context.Context, id string, upd *FileUpdate) (*FileRecord, error)

	// DeleteFile permanently removes a file.
	DeleteFile(ctx context.Context, id string) error

	// FindFilesByProperties returns non-trashed files whose property map
	// matches every given key/value pair.
	FindFilesByProperties(ctx context.Context, props map[string]string) ([]*FileRecord, error)

	// ListTrashed returns every trashed file.
	ListTrashed(ctx context.Context) ([]*FileRecord, error)
}
