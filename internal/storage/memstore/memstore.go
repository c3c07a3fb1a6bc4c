// Package memstore implements storage.Store entirely in memory. It backs
// tests and the "memory" backend used for local development; semantics
// mirror the remote store: duplicate folder names are tolerated, files
// carry a property map and a parent set, trashed files are invisible to
// searches.
package memstore

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/lingodocs/docstore/internal/storage"
)

type fileEntry struct {
	rec     storage.FileRecord
	content []byte
}

type Store struct {
	mu      sync.Mutex
	folders map[string]*storage.FolderNode
	files   map[string]*fileEntry
	order   []string // folder ids in creation order, for stable search results
}

func New() *Store {
	return &Store{
		folders: make(map[string]*storage.FolderNode),
		files:   make(map[string]*fileEntry),
	}
}

func (s *Store) CreateFolder(ctx context.Context, name, parentID string) (*storage.FolderNode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	node := &storage.FolderNode{
		ID:       uuid.NewString(),
		Name:     name,
		ParentID: parentID,
	}
	s.folders[node.ID] = node
	s.order = append(s.order, node.ID)
	out := *node
	return &out, nil
}

func (s *Store) FindFolders(ctx context.Context, name, parentID string) ([]*storage.FolderNode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*storage.FolderNode
	for _, id := range s.order {
		f := s.folders[id]
		if f.Name == name && f.ParentID == parentID {
			cp := *f
			out = append(out, &cp)
		}
	}
	return out, nil
}

// Folder returns a folder by id for assertions in tests.
func (s *Store) Folder(id string) (*storage.FolderNode, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.folders[id]
	if !ok {
		return nil, false
	}
	cp := *f
	return &cp, true
}

func (s *Store) CreateFile(ctx context.Context, in *storage.CreateFileInput) (*storage.FileRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec := storage.FileRecord{
		ID:         uuid.NewString(),
		Name:       in.Name,
		Size:       int64(len(in.Content)),
		Parents:    []string{in.ParentID},
		CreatedAt:  time.Now().UTC(),
		Properties: copyProps(in.Properties),
	}
	s.files[rec.ID] = &fileEntry{rec: rec, content: append([]byte(nil), in.Content...)}
	return copyRecord(&rec), nil
}

func (s *Store) GetFile(ctx context.Context, id string) (*storage.FileRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.files[id]
	if !ok {
		return nil, notFound("files.get", id)
	}
	return copyRecord(&e.rec), nil
}

func (s *Store) UpdateFile(ctx context.Context, id string, upd *storage.FileUpdate) (*storage.FileRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.files[id]
	if !ok {
		return nil, notFound("files.update", id)
	}

	for _, p := range upd.AddParents {
		if !e.rec.HasParent(p) {
			e.rec.Parents = append(e.rec.Parents, p)
		}
	}
	for _, p := range upd.RemoveParents {
		kept := e.rec.Parents[:0]
		for _, cur := range e.rec.Parents {
			if cur != p {
				kept = append(kept, cur)
			}
		}
		e.rec.Parents = kept
	}
	if upd.Properties != nil {
		if e.rec.Properties == nil {
			e.rec.Properties = make(map[string]string)
		}
		for k, v := range upd.Properties {
			e.rec.Properties[k] = v
		}
	}
	if upd.Name != "" {
		e.rec.Name = upd.Name
	}

	return copyRecord(&e.rec), nil
}

func (s *Store) DeleteFile(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.files[id]; !ok {
		return notFound("files.delete", id)
	}
	delete(s.files, id)
	return nil
}

func (s *Store) FindFilesByProperties(ctx context.Context, props map[string]string) ([]*storage.FileRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*storage.FileRecord
	for _, e := range s.files {
		if e.rec.Trashed {
			continue
		}
		if matchesProps(&e.rec, props) {
			out = append(out, copyRecord(&e.rec))
		}
	}
	sortByCreated(out)
	return out, nil
}

func (s *Store) ListTrashed(ctx context.Context) ([]*storage.FileRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*storage.FileRecord
	for _, e := range s.files {
		if e.rec.Trashed {
			out = append(out, copyRecord(&e.rec))
		}
	}
	sortByCreated(out)
	return out, nil
}

// TrashFile marks a file as trashed, simulating a user moving it to the
// store's trash area from outside this subsystem.
func (s *Store) TrashFile(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.files[id]
	if !ok {
		return notFound("files.trash", id)
	}
	e.rec.Trashed = true
	return nil
}

// Content returns the stored bytes of a file.
func (s *Store) Content(id string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.files[id]
	if !ok {
		return nil, false
	}
	return append([]byte(nil), e.content...), true
}

func notFound(op, id string) error {
	return storage.NewError(storage.KindNotFound, op, 404, errors.New("no such file: "+id))
}

func matchesProps(rec *storage.FileRecord, props map[string]string) bool {
	for k, v := range props {
		if rec.Property(k) != v {
			return false
		}
	}
	return true
}

func sortByCreated(recs []*storage.FileRecord) {
	sort.SliceStable(recs, func(i, j int) bool {
		return recs[i].CreatedAt.Before(recs[j].CreatedAt)
	})
}

func copyRecord(rec *storage.FileRecord) *storage.FileRecord {
	cp := *rec
	cp.Parents = append([]string(nil), rec.Parents...)
	cp.Properties = copyProps(rec.Properties)
	return &cp
}

func copyProps(props map[string]string) map[string]string {
	if props == nil {
		return nil
	}
	cp := make(map[string]string, len(props))
	for k, v := range props {
		cp[k] = v
	}
	return cp
}
