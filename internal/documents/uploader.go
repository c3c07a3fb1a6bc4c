// Package documents implements the upload pipeline and the metadata
// accessor. A file's property map is the durable workflow state; there is
// no session database behind it.
package documents

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/lingodocs/docstore/internal/logging"
	"github.com/lingodocs/docstore/internal/metrics"
	"github.com/lingodocs/docstore/internal/storage"
	"github.com/lingodocs/docstore/internal/storage/retryx"
)

const uploadMetadataSchema = `{
	"$schema": "https://json-schema.org/draft/2020-12/schema",
	"type": "object",
	"required": ["customer_email", "source_language", "target_language", "page_count"],
	"properties": {
		"customer_email":  {"type": "string", "pattern": "^[^@\\s]+@[^@\\s]+\\.[^@\\s]+$"},
		"source_language": {"type": "string", "minLength": 2, "maxLength": 8},
		"target_language": {"type": "string", "minLength": 2, "maxLength": 8},
		"page_count":      {"type": "integer", "minimum": 1}
	},
	"additionalProperties": false
}`

var uploadSchema = compileUploadSchema()

func compileUploadSchema() *jsonschema.Schema {
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader([]byte(uploadMetadataSchema)))
	if err != nil {
		panic(err)
	}
	c := jsonschema.NewCompiler()
	if err := c.AddResource("upload-metadata.json", doc); err != nil {
		panic(err)
	}
	sch, err := c.Compile("upload-metadata.json")
	if err != nil {
		panic(err)
	}
	return sch
}

// UploadMetadata is the customer-supplied metadata landing on the file's
// property map.
type UploadMetadata struct {
	CustomerEmail  string `json:"customer_email"`
	SourceLanguage string `json:"source_language"`
	TargetLanguage string `json:"target_language"`
	PageCount      int    `json:"page_count"`
}

// Validate checks the metadata against the embedded schema. Invalid
// metadata never reaches the store.
func (m UploadMetadata) Validate() error {
	raw, err := json.Marshal(m)
	if err != nil {
		return err
	}
	v, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return err
	}
	if err := uploadSchema.Validate(v); err != nil {
		return fmt.Errorf("invalid upload metadata: %w", err)
	}
	return nil
}

// UploadInput carries one document into a target folder.
type UploadInput struct {
	Content  []byte
	Filename string
	FolderID string
	Metadata UploadMetadata
}

// Uploader lands documents in the store together with their workflow
// properties. Every upload starts in awaiting_payment.
type Uploader struct {
	store  storage.Store
	policy retryx.Policy
	logger logging.Logger
}

func NewUploader(store storage.Store, policy retryx.Policy, logger logging.Logger) *Uploader {
	return &Uploader{store: store, policy: policy, logger: logger}
}

var timeNow = time.Now

// Upload validates the metadata, uploads the content and returns the
// store's authoritative record. Size falls back to the input byte length
// if the store omits it.
func (u *Uploader) Upload(ctx context.Context, in UploadInput) (*storage.FileRecord, error) {
	if err := in.Metadata.Validate(); err != nil {
		metrics.RecordUpload(0, false)
		return nil, err
	}

	now := timeNow().UTC()
	props := map[string]string{
		storage.PropCustomerEmail:   in.Metadata.CustomerEmail,
		storage.PropSourceLanguage:  in.Metadata.SourceLanguage,
		storage.PropTargetLanguage:  in.Metadata.TargetLanguage,
		storage.PropPageCount:       strconv.Itoa(in.Metadata.PageCount),
		storage.PropStatus:          string(storage.StatusAwaitingPayment),
		storage.PropUploadTimestamp: now.Format(time.RFC3339),
	}
	description := fmt.Sprintf("%d page document, %s to %s, for %s",
		in.Metadata.PageCount, in.Metadata.SourceLanguage, in.Metadata.TargetLanguage, in.Metadata.CustomerEmail)

	rec, err := retryx.DoValue(ctx, u.policy, "files.create", func(ctx context.Context) (*storage.FileRecord, error) {
		return u.store.CreateFile(ctx, &storage.CreateFileInput{
			Name:        in.Filename,
			ParentID:    in.FolderID,
			Description: description,
			Content:     in.Content,
			Properties:  props,
		})
	})
	if err != nil {
		metrics.RecordUpload(0, false)
		return nil, err
	}

	if rec.Size == 0 {
		rec.Size = int64(len(in.Content))
	}
	metrics.RecordUpload(rec.Size, true)
	u.logger.Info(ctx, "document uploaded",
		"file_id", rec.ID, "filename", in.Filename, "size", rec.Size,
		"customer_email", in.Metadata.CustomerEmail)
	return rec, nil
}
