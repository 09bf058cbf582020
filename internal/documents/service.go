// Package documents handles client document uploads: the file content goes
// to object storage, the metadata row goes to the documents table so the
// field catalog and profile views can see it like any other client data.
package documents

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/formmaster/pro/internal/database"
	"github.com/formmaster/pro/internal/errs"
	"github.com/formmaster/pro/internal/filestore"
	"github.com/formmaster/pro/internal/logger"
)

// DefaultURLTTL is how long a presigned download link stays valid.
const DefaultURLTTL = 15 * time.Minute

// documentsTable holds one row per uploaded document.
const documentsTable = "documents"

var documentColumns = []string{
	"id", "client_id", "doc_type", "file_name", "object_key",
	"content_type", "size", "verification_status", "uploaded_at",
}

// Document is the metadata row for one uploaded file.
type Document struct {
	ID                 string    `json:"id"`
	ClientID           string    `json:"clientId"`
	DocType            string    `json:"docType"`
	FileName           string    `json:"fileName"`
	ObjectKey          string    `json:"-"`
	ContentType        string    `json:"contentType"`
	Size               int64     `json:"size"`
	VerificationStatus string    `json:"verificationStatus"`
	UploadedAt         time.Time `json:"uploadedAt"`
}

// UploadRequest carries everything needed to store one document.
type UploadRequest struct {
	ClientID    string
	DocType     string // e.g. "photo", "aadhar_card", "marksheet"
	FileName    string
	ContentType string
	Size        int64 // -1 if unknown
	Content     io.Reader
}

// Service stores document content in object storage and metadata in the
// documents table.
type Service struct {
	db     database.DB
	store  filestore.Store
	bucket string
	log    *logger.Logger
	urlTTL time.Duration
}

// NewService creates a document service writing to bucket.
func NewService(db database.DB, store filestore.Store, bucket string, log *logger.Logger) *Service {
	if log == nil {
		log = logger.New(nil)
	}
	return &Service{
		db:     db,
		store:  store,
		bucket: bucket,
		log:    log.With().Str("component", "documents").Logger(),
		urlTTL: DefaultURLTTL,
	}
}

// Upload stores the file content and records its metadata. The object key is
// namespaced by client so per-client listing maps to a prefix scan as well.
func (s *Service) Upload(ctx context.Context, req UploadRequest) (*Document, error) {
	if strings.TrimSpace(req.ClientID) == "" {
		return nil, errs.New(errs.ErrKindInvalidInput, "client id is required")
	}
	if strings.TrimSpace(req.FileName) == "" {
		return nil, errs.New(errs.ErrKindInvalidInput, "file name is required")
	}
	if req.Content == nil {
		return nil, errs.New(errs.ErrKindInvalidInput, "file content is required")
	}

	doc := Document{
		ID:                 uuid.NewString(),
		ClientID:           req.ClientID,
		DocType:            req.DocType,
		FileName:           req.FileName,
		ContentType:        req.ContentType,
		VerificationStatus: "pending",
		UploadedAt:         time.Now().UTC(),
	}
	doc.ObjectKey = fmt.Sprintf("client-%s/%s%s", req.ClientID, doc.ID, path.Ext(req.FileName))

	info, err := s.store.PutObject(ctx, s.bucket, doc.ObjectKey, req.Content, req.Size, req.ContentType)
	if err != nil {
		return nil, errs.Wrap(errs.Kind(err), "uploading document "+req.FileName, err)
	}
	doc.Size = info.Size

	sql, args, err := database.Insert(documentsTable, s.db.Dialect()).
		Set("id", doc.ID).
		Set("client_id", doc.ClientID).
		Set("doc_type", doc.DocType).
		Set("file_name", doc.FileName).
		Set("object_key", doc.ObjectKey).
		Set("content_type", doc.ContentType).
		Set("size", doc.Size).
		Set("verification_status", doc.VerificationStatus).
		Set("uploaded_at", doc.UploadedAt).
		Build()
	if err != nil {
		return nil, err
	}

	if _, err := s.db.Exec(ctx, sql, args...); err != nil {
		// Do not leave an orphaned object behind the failed metadata row.
		if rmErr := s.store.RemoveObject(ctx, s.bucket, doc.ObjectKey); rmErr != nil {
			s.log.WarnWith("failed to remove orphaned object after insert failure", map[string]any{
				"key": doc.ObjectKey, "error": rmErr.Error(),
			})
		}
		return nil, errs.Wrap(errs.Kind(err), "recording document metadata", err)
	}

	s.log.InfoWith("document uploaded", map[string]any{
		"client_id": doc.ClientID,
		"doc_type":  doc.DocType,
		"size":      doc.Size,
	})
	return &doc, nil
}

// List returns all documents for a client, newest first.
func (s *Service) List(ctx context.Context, clientID string) ([]Document, error) {
	if strings.TrimSpace(clientID) == "" {
		return nil, errs.New(errs.ErrKindInvalidInput, "client id is required")
	}

	sql, args, err := database.Select(documentsTable, s.db.Dialect()).
		Columns(documentColumns...).
		Where("client_id", "=", clientID).
		OrderBy("uploaded_at", database.Desc).
		Build()
	if err != nil {
		return nil, err
	}

	rows, err := s.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, errs.Wrap(errs.Kind(err), "listing documents for client "+clientID, err)
	}

	recs, err := database.ScanRows(rows)
	if err != nil {
		return nil, err
	}

	docs := make([]Document, 0, len(recs))
	for _, rec := range recs {
		docs = append(docs, documentFromRow(rec))
	}
	return docs, nil
}

// Get fetches one document's metadata by ID.
func (s *Service) Get(ctx context.Context, id string) (*Document, error) {
	if id == "" {
		return nil, errs.New(errs.ErrKindInvalidInput, "document id is required")
	}

	sql, args, err := database.Select(documentsTable, s.db.Dialect()).
		Columns(documentColumns...).
		Where("id", "=", id).
		Build()
	if err != nil {
		return nil, err
	}

	row, err := s.db.QueryRow(ctx, sql, args...)
	if err != nil {
		return nil, errs.Wrap(errs.Kind(err), "fetching document "+id, err)
	}

	rec, err := database.ScanRow(row, documentColumns)
	if err != nil {
		if errs.IsNotFound(err) || errs.IsQueryFailed(err) {
			return nil, errs.Wrap(errs.ErrKindNotFound, "document "+id+" not found", err)
		}
		return nil, err
	}

	doc := documentFromRow(rec)
	return &doc, nil
}

// DownloadURL returns a presigned URL for the document's content.
func (s *Service) DownloadURL(ctx context.Context, id string) (string, error) {
	doc, err := s.Get(ctx, id)
	if err != nil {
		return "", err
	}
	u, err := s.store.PresignGetURL(ctx, s.bucket, doc.ObjectKey, s.urlTTL)
	if err != nil {
		return "", errs.Wrap(errs.Kind(err), "presigning document "+id, err)
	}
	return u, nil
}

// Delete removes a document's metadata row and its stored content.
func (s *Service) Delete(ctx context.Context, id string) error {
	doc, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	sql, args, err := database.Delete(documentsTable, s.db.Dialect()).
		Where("id", "=", id).
		Build()
	if err != nil {
		return err
	}

	n, err := s.db.Exec(ctx, sql, args...)
	if err != nil {
		return errs.Wrap(errs.Kind(err), "deleting document "+id, err)
	}
	if n == 0 {
		return errs.Newf(errs.ErrKindNotFound, "document %s not found", id)
	}

	if err := s.store.RemoveObject(ctx, s.bucket, doc.ObjectKey); err != nil {
		// Metadata is gone; the stray object is only a storage leak.
		s.log.WarnWith("failed to remove stored object for deleted document", map[string]any{
			"key": doc.ObjectKey, "error": err.Error(),
		})
	}
	return nil
}

// documentFromRow rebuilds a Document from a scanned row map.
func documentFromRow(rec map[string]any) Document {
	doc := Document{
		ID:                 asString(rec["id"]),
		ClientID:           asString(rec["client_id"]),
		DocType:            asString(rec["doc_type"]),
		FileName:           asString(rec["file_name"]),
		ObjectKey:          asString(rec["object_key"]),
		ContentType:        asString(rec["content_type"]),
		VerificationStatus: asString(rec["verification_status"]),
	}
	switch n := rec["size"].(type) {
	case int64:
		doc.Size = n
	case int32:
		doc.Size = int64(n)
	case int:
		doc.Size = int64(n)
	}
	if t, ok := rec["uploaded_at"].(time.Time); ok {
		doc.UploadedAt = t
	}
	return doc
}

func asString(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case []byte:
		return string(s)
	default:
		return ""
	}
}
