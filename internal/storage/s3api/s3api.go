// Package s3api implements the document store on an S3-compatible bucket.
//
// Folders are zero-byte marker objects under folders/, files live under
// files/ with their record encoded in object metadata. Moves and property
// updates rewrite the metadata with a same-key copy.
package s3api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/google/uuid"

	"github.com/lingodocs/docstore/internal/storage"
)

const (
	folderPrefix = "folders/"
	filePrefix   = "files/"

	metaName        = "name"
	metaParent      = "parent"
	metaParents     = "parents"
	metaCreatedAt   = "created-at"
	metaTrashed     = "trashed"
	metaProps       = "props"
	metaDescription = "description"
)

// Config holds the bucket connection settings.
type Config struct {
	Endpoint  string
	Bucket    string
	Region    string
	AccessKey string
	SecretKey string
}

// Store implements storage.Store on an S3-compatible bucket.
type Store struct {
	client   *s3.Client
	bucket   string
	endpoint string
}

// New connects to the bucket, creating it when it does not exist.
func New(ctx context.Context, cfg Config) (*Store, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(cfg.Endpoint)
		o.UsePathStyle = true
	})

	st := &Store{
		client:   client,
		bucket:   cfg.Bucket,
		endpoint: strings.TrimRight(cfg.Endpoint, "/"),
	}
	if err := st.ensureBucket(ctx); err != nil {
		return nil, err
	}
	return st, nil
}

func (st *Store) ensureBucket(ctx context.Context) error {
	_, err := st.client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(st.bucket),
	})
	if err == nil {
		return nil
	}
	_, createErr := st.client.CreateBucket(ctx, &s3.CreateBucketInput{
		Bucket: aws.String(st.bucket),
	})
	if createErr != nil {
		return fmt.Errorf("bucket %s does not exist and cannot create: %w", st.bucket, createErr)
	}
	return nil
}

func (st *Store) CreateFolder(ctx context.Context, name, parentID string) (*storage.FolderNode, error) {
	id := uuid.NewString()
	_, err := st.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:   aws.String(st.bucket),
		Key:      aws.String(folderPrefix + id),
		Body:     bytes.NewReader(nil),
		Metadata: encodeFolderMeta(name, parentID),
	})
	if err != nil {
		return nil, classify("folders.create", err)
	}
	return &storage.FolderNode{ID: id, Name: name, ParentID: parentID}, nil
}

func (st *Store) FindFolders(ctx context.Context, name, parentID string) ([]*storage.FolderNode, error) {
	var out []*storage.FolderNode

	err := st.walk(ctx, folderPrefix, func(obj types.Object) error {
		head, err := st.head(ctx, "folders.find", *obj.Key)
		if err != nil {
			return err
		}
		node := decodeFolderMeta(strings.TrimPrefix(*obj.Key, folderPrefix), head.Metadata)
		if node.Name == name && node.ParentID == parentID {
			out = append(out, node)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (st *Store) CreateFile(ctx context.Context, in *storage.CreateFileInput) (*storage.FileRecord, error) {
	id := uuid.NewString()
	createdAt := time.Now().UTC()

	meta, err := encodeFileMeta(in.Name, []string{in.ParentID}, createdAt, false, in.Properties)
	if err != nil {
		return nil, storage.NewError(storage.KindStorage, "files.create", 0, err)
	}
	if in.Description != "" {
		meta[metaDescription] = in.Description
	}

	_, err = st.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(st.bucket),
		Key:           aws.String(filePrefix + id),
		Body:          bytes.NewReader(in.Content),
		ContentLength: aws.Int64(int64(len(in.Content))),
		Metadata:      meta,
	})
	if err != nil {
		return nil, classify("files.create", err)
	}

	rec, err := decodeFileMeta(id, int64(len(in.Content)), meta)
	if err != nil {
		return nil, storage.NewError(storage.KindStorage, "files.create", 0, err)
	}
	rec.WebURL = st.objectURL(filePrefix + id)
	return rec, nil
}

func (st *Store) GetFile(ctx context.Context, id string) (*storage.FileRecord, error) {
	head, err := st.head(ctx, "files.get", filePrefix+id)
	if err != nil {
		return nil, err
	}
	return st.record(id, head)
}

func (st *Store) UpdateFile(ctx context.Context, id string, upd *storage.FileUpdate) (*storage.FileRecord, error) {
	key := filePrefix + id
	head, err := st.head(ctx, "files.update", key)
	if err != nil {
		return nil, err
	}
	rec, err := st.record(id, head)
	if err != nil {
		return nil, err
	}

	meta, err := updateFileMeta(head.Metadata, upd)
	if err != nil {
		return nil, storage.NewError(storage.KindStorage, "files.update", 0, err)
	}

	// A same-key copy with REPLACE rewrites the metadata without
	// re-uploading the content.
	_, err = st.client.CopyObject(ctx, &s3.CopyObjectInput{
		Bucket:            aws.String(st.bucket),
		Key:               aws.String(key),
		CopySource:        aws.String(st.bucket + "/" + key),
		Metadata:          meta,
		MetadataDirective: types.MetadataDirectiveReplace,
	})
	if err != nil {
		return nil, classify("files.update", err)
	}

	updated, err := decodeFileMeta(id, rec.Size, meta)
	if err != nil {
		return nil, storage.NewError(storage.KindStorage, "files.update", 0, err)
	}
	updated.WebURL = st.objectURL(key)
	return updated, nil
}

func (st *Store) DeleteFile(ctx context.Context, id string) error {
	key := filePrefix + id
	// DeleteObject succeeds on missing keys; a head first keeps the
	// not-found contract.
	if _, err := st.head(ctx, "files.delete", key); err != nil {
		return err
	}
	_, err := st.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(st.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return classify("files.delete", err)
	}
	return nil
}

func (st *Store) FindFilesByProperties(ctx context.Context, props map[string]string) ([]*storage.FileRecord, error) {
	return st.scanFiles(ctx, "files.search", func(rec *storage.FileRecord) bool {
		if rec.Trashed {
			return false
		}
		for k, v := range props {
			if rec.Property(k) != v {
				return false
			}
		}
		return true
	})
}

func (st *Store) ListTrashed(ctx context.Context) ([]*storage.FileRecord, error) {
	return st.scanFiles(ctx, "files.listTrashed", func(rec *storage.FileRecord) bool {
		return rec.Trashed
	})
}

func (st *Store) scanFiles(ctx context.Context, op string, keep func(*storage.FileRecord) bool) ([]*storage.FileRecord, error) {
	var out []*storage.FileRecord

	err := st.walk(ctx, filePrefix, func(obj types.Object) error {
		head, err := st.head(ctx, op, *obj.Key)
		if err != nil {
			// A file deleted between list and head is not an error.
			if kind, ok := storage.KindOf(err); ok && kind == storage.KindNotFound {
				return nil
			}
			return err
		}
		rec, err := st.record(strings.TrimPrefix(*obj.Key, filePrefix), head)
		if err != nil {
			return err
		}
		if keep(rec) {
			out = append(out, rec)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// walk visits every object under prefix in key order.
func (st *Store) walk(ctx context.Context, prefix string, fn func(types.Object) error) error {
	paginator := s3.NewListObjectsV2Paginator(st.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(st.bucket),
		Prefix: aws.String(prefix),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return classify("objects.list", err)
		}
		for _, obj := range page.Contents {
			if err := fn(obj); err != nil {
				return err
			}
		}
	}
	return nil
}

func (st *Store) head(ctx context.Context, op, key string) (*s3.HeadObjectOutput, error) {
	out, err := st.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(st.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, classify(op, err)
	}
	return out, nil
}

func (st *Store) record(id string, head *s3.HeadObjectOutput) (*storage.FileRecord, error) {
	size := int64(0)
	if head.ContentLength != nil {
		size = *head.ContentLength
	}
	rec, err := decodeFileMeta(id, size, head.Metadata)
	if err != nil {
		return nil, storage.NewError(storage.KindStorage, "files.get", 0, err)
	}
	rec.WebURL = st.objectURL(filePrefix + id)
	return rec, nil
}

func (st *Store) objectURL(key string) string {
	return fmt.Sprintf("%s/%s/%s", st.endpoint, st.bucket, key)
}

func encodeFolderMeta(name, parentID string) map[string]string {
	return map[string]string{
		metaName:   name,
		metaParent: parentID,
	}
}

func decodeFolderMeta(id string, meta map[string]string) *storage.FolderNode {
	return &storage.FolderNode{
		ID:       id,
		Name:     meta[metaName],
		ParentID: meta[metaParent],
	}
}

// updateFileMeta rebuilds an object's full metadata map for a FileUpdate.
// The same-key copy replaces every metadata key, so keys the update does
// not touch, the description included, must be re-emitted from the
// existing map.
func updateFileMeta(existing map[string]string, upd *storage.FileUpdate) (map[string]string, error) {
	rec, err := decodeFileMeta("", 0, existing)
	if err != nil {
		return nil, err
	}

	parents := applyParents(rec.Parents, upd.AddParents, upd.RemoveParents)
	name := rec.Name
	if upd.Name != "" {
		name = upd.Name
	}
	props := rec.Properties
	if props == nil {
		props = map[string]string{}
	}
	for k, v := range upd.Properties {
		props[k] = v
	}

	meta, err := encodeFileMeta(name, parents, rec.CreatedAt, rec.Trashed, props)
	if err != nil {
		return nil, err
	}

	desc := existing[metaDescription]
	if upd.Description != "" {
		desc = upd.Description
	}
	if desc != "" {
		meta[metaDescription] = desc
	}
	return meta, nil
}

func encodeFileMeta(name string, parents []string, createdAt time.Time, trashed bool, props map[string]string) (map[string]string, error) {
	meta := map[string]string{
		metaName:      name,
		metaParents:   strings.Join(parents, ","),
		metaCreatedAt: createdAt.Format(time.RFC3339Nano),
		metaTrashed:   fmt.Sprintf("%t", trashed),
	}
	if len(props) > 0 {
		raw, err := json.Marshal(props)
		if err != nil {
			return nil, fmt.Errorf("encode properties: %w", err)
		}
		meta[metaProps] = string(raw)
	}
	return meta, nil
}

func decodeFileMeta(id string, size int64, meta map[string]string) (*storage.FileRecord, error) {
	rec := &storage.FileRecord{
		ID:      id,
		Name:    meta[metaName],
		Size:    size,
		Trashed: meta[metaTrashed] == "true",
	}
	if joined := meta[metaParents]; joined != "" {
		rec.Parents = strings.Split(joined, ",")
	}
	if raw := meta[metaCreatedAt]; raw != "" {
		createdAt, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			return nil, fmt.Errorf("decode created-at %q: %w", raw, err)
		}
		rec.CreatedAt = createdAt
	}
	if raw := meta[metaProps]; raw != "" {
		if err := json.Unmarshal([]byte(raw), &rec.Properties); err != nil {
			return nil, fmt.Errorf("decode properties: %w", err)
		}
	}
	return rec, nil
}

func applyParents(current, add, remove []string) []string {
	out := make([]string, 0, len(current)+len(add))
	for _, p := range current {
		if !contains(remove, p) {
			out = append(out, p)
		}
	}
	for _, p := range add {
		if !contains(out, p) {
			out = append(out, p)
		}
	}
	return out
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

// classify maps SDK failures onto the shared error taxonomy.
func classify(op string, err error) error {
	var notFound *types.NotFound
	var noSuchKey *types.NoSuchKey
	if errors.As(err, &notFound) || errors.As(err, &noSuchKey) {
		return storage.NewError(storage.KindNotFound, op, 404, err)
	}
	return storage.FromTransport(op, err)
}
