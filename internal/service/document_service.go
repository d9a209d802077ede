package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/foundation-api/internal/dto"
	"github.com/noah-isme/foundation-api/internal/models"
	appErrors "github.com/noah-isme/foundation-api/pkg/errors"
	"github.com/noah-isme/foundation-api/pkg/storage"
)

type documentRepository interface {
	Create(ctx context.Context, d *models.Document) error
	GetByID(ctx context.Context, id string) (*models.Document, error)
	Review(ctx context.Context, id string, status models.DocumentStatus, note *string, reviewerID string, at time.Time) error
	ExistingStorageIDs(ctx context.Context, ids []string) (map[string]bool, error)
}

type applicationReader interface {
	GetByID(ctx context.Context, id string) (*models.Application, error)
}

type beneficiaryReader interface {
	GetByID(ctx context.Context, id string) (*models.Beneficiary, error)
}

type objectStore interface {
	Put(storageID string, r io.Reader, maxBytes int64) (*storage.Object, error)
	Stat(storageID string) (*storage.Object, error)
	Open(storageID string) (*os.File, error)
	Delete(storageID string) error
	CleanupOlderThan(ttl time.Duration, keep func(storageID string) bool) ([]string, error)
}

type urlSigner interface {
	Sign(purpose storage.Purpose, storageID string) (string, time.Time, error)
	Verify(token string, purpose storage.Purpose) (string, time.Time, error)
}

// DocumentServiceConfig bounds uploads and sets where file URLs point.
type DocumentServiceConfig struct {
	MaxFileSizeBytes int64
	AllowedMIMEs     []string
	FilesBaseURL     string
	BulkConcurrency  int
}

// DocumentService issues signed upload/download URLs and tracks document review.
type DocumentService struct {
	docs          documentRepository
	applications  applicationReader
	beneficiaries beneficiaryReader
	configs       supportConfigProvider
	store         objectStore
	signer        urlSigner
	audit         auditLogger
	validator     *validator.Validate
	logger        *zap.Logger
	cfg           DocumentServiceConfig
	allowed       map[string]bool
	now           func() time.Time
}

// NewDocumentService constructs the service.
func NewDocumentService(docs documentRepository, applications applicationReader, beneficiaries beneficiaryReader, configs supportConfigProvider, store objectStore, signer urlSigner, audit auditLogger, validate *validator.Validate, logger *zap.Logger, cfg DocumentServiceConfig) *DocumentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if cfg.MaxFileSizeBytes <= 0 {
		cfg.MaxFileSizeBytes = 10 * 1024 * 1024
	}
	cfg.FilesBaseURL = strings.TrimRight(cfg.FilesBaseURL, "/")
	allowed := make(map[string]bool, len(cfg.AllowedMIMEs))
	for _, m := range cfg.AllowedMIMEs {
		allowed[strings.ToLower(m)] = true
	}
	return &DocumentService{
		docs:          docs,
		applications:  applications,
		beneficiaries: beneficiaries,
		configs:       configs,
		store:         store,
		signer:        signer,
		audit:         audit,
		validator:     validate,
		logger:        logger,
		cfg:           cfg,
		allowed:       allowed,
		now:           time.Now,
	}
}

// RequestUploadURL allocates a storage ID and returns a signed upload URL for it.
func (s *DocumentService) RequestUploadURL(ctx context.Context, req dto.UploadURLRequest, actor models.Actor) (*dto.UploadURLResponse, error) {
	if actor.UserID == "" {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "authentication required")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid upload request")
	}
	if req.SizeBytes > s.cfg.MaxFileSizeBytes {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("file exceeds the %d byte limit", s.cfg.MaxFileSizeBytes))
	}
	if !s.mimeAllowed(req.MIMEType) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "file type "+req.MIMEType+" is not accepted")
	}

	storageID := storage.NewStorageID()
	token, expiresAt, err := s.signer.Sign(storage.PurposeUpload, storageID)
	if err != nil {
		return nil, internalError(err, "failed to sign upload url")
	}
	return &dto.UploadURLResponse{
		StorageID: storageID,
		UploadURL: s.fileURL(storageID, "", token),
		ExpiresAt: expiresAt,
	}, nil
}

// Upload stores body under storageID when token grants it. Each storage ID
// accepts exactly one upload.
func (s *DocumentService) Upload(ctx context.Context, storageID, token string, body io.Reader) (*dto.UploadResult, error) {
	if err := s.verify(token, storage.PurposeUpload, storageID); err != nil {
		return nil, err
	}
	if _, err := s.store.Stat(storageID); err == nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "upload url already used")
	} else if !errors.Is(err, storage.ErrObjectNotFound) {
		return nil, internalError(err, "failed to inspect storage")
	}

	obj, err := s.store.Put(storageID, body, s.cfg.MaxFileSizeBytes)
	if err != nil {
		if errors.Is(err, storage.ErrTooLarge) {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("file exceeds the %d byte limit", s.cfg.MaxFileSizeBytes))
		}
		return nil, internalError(err, "failed to store file")
	}
	if !s.mimeAllowed(obj.MIMEType) {
		if err := s.store.Delete(storageID); err != nil {
			s.logger.Warn("failed to remove rejected upload", zap.String("storage_id", storageID), zap.Error(err))
		}
		return nil, appErrors.Clone(appErrors.ErrValidation, "file content type "+obj.MIMEType+" is not accepted")
	}
	return &dto.UploadResult{StorageID: storageID, SizeBytes: obj.SizeBytes, MIMEType: obj.MIMEType}, nil
}

// Register attaches an uploaded object to an application or beneficiary.
func (s *DocumentService) Register(ctx context.Context, req dto.RegisterDocumentRequest, actor models.Actor) (*models.Document, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid document payload")
	}
	if req.ApplicationID != nil && req.BeneficiaryID != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "attach the document to an application or a beneficiary, not both")
	}

	obj, err := s.store.Stat(req.StorageID)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			return nil, appErrors.Clone(appErrors.ErrValidation, "no upload found for storage_id")
		}
		return nil, internalError(err, "failed to inspect storage")
	}
	existing, err := s.docs.ExistingStorageIDs(ctx, []string{req.StorageID})
	if err != nil {
		return nil, internalError(err, "failed to check storage id")
	}
	if existing[req.StorageID] {
		return nil, appErrors.Clone(appErrors.ErrConflict, "storage_id is already registered")
	}

	doc := &models.Document{
		ApplicationID: req.ApplicationID,
		BeneficiaryID: req.BeneficiaryID,
		DocumentType:  req.DocumentType,
		StorageID:     req.StorageID,
		FileName:      req.FileName,
		MIMEType:      obj.MIMEType,
		SizeBytes:     obj.SizeBytes,
		Status:        models.DocumentPending,
		UploadedBy:    actor.UserID,
	}
	supportType, err := s.authorizeOwner(ctx, doc, actor)
	if err != nil {
		return nil, err
	}

	cfg, _, err := s.configs.Get(ctx, supportType)
	if err != nil {
		return nil, lookupError(err, "support type not found", "failed to load support configuration")
	}
	if requirement, ok := cfg.RequiredDocuments.Find(req.DocumentType); ok && requirement.ValidityPeriod > 0 {
		expires := s.now().UTC().AddDate(0, 0, requirement.ValidityPeriod)
		doc.ExpiresAt = &expires
	}

	if err := s.docs.Create(ctx, doc); err != nil {
		return nil, internalError(err, "failed to register document")
	}
	return doc, nil
}

// DownloadURL returns a signed link to the document's file.
func (s *DocumentService) DownloadURL(ctx context.Context, id string, actor models.Actor) (*dto.DownloadURLResponse, error) {
	doc, err := s.docs.GetByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "document not found", "failed to load document")
	}
	if _, err := s.authorizeOwner(ctx, doc, actor); err != nil {
		return nil, err
	}
	token, expiresAt, err := s.signer.Sign(storage.PurposeDownload, doc.StorageID)
	if err != nil {
		return nil, internalError(err, "failed to sign download url")
	}
	return &dto.DownloadURLResponse{URL: s.fileURL(doc.StorageID, "/download", token), ExpiresAt: expiresAt}, nil
}

// OpenDownload returns the object a download token grants.
func (s *DocumentService) OpenDownload(ctx context.Context, storageID, token string) (*storage.Object, io.ReadSeekCloser, error) {
	if err := s.verify(token, storage.PurposeDownload, storageID); err != nil {
		return nil, nil, err
	}
	obj, err := s.store.Stat(storageID)
	if err != nil {
		return nil, nil, s.objectError(err)
	}
	file, err := s.store.Open(storageID)
	if err != nil {
		return nil, nil, s.objectError(err)
	}
	return obj, file, nil
}

// Review records a reviewer's decision on one document.
func (s *DocumentService) Review(ctx context.Context, id string, req dto.ReviewDocumentRequest, actor models.Actor) (*models.Document, error) {
	if !canReview(actor.Role) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only reviewers can review documents")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid review payload")
	}
	if err := s.review(ctx, id, req.Status, req.Note, actor); err != nil {
		return nil, err
	}
	doc, err := s.docs.GetByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "document not found", "failed to load document")
	}
	return doc, nil
}

// BulkReview applies one decision to many documents independently.
func (s *DocumentService) BulkReview(ctx context.Context, req dto.BulkReviewDocumentsRequest, actor models.Actor) ([]dto.BulkItemResult, error) {
	if !canReview(actor.Role) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only reviewers can review documents")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid bulk review payload")
	}
	results := runBulk(ctx, s.cfg.BulkConcurrency, req.IDs, func(ctx context.Context, id string) error {
		return s.review(ctx, id, req.Status, req.Note, actor)
	})
	succeeded, failed := dto.CountResults(results)
	s.logger.Info("bulk document review", zap.String("status", string(req.Status)), zap.Int("succeeded", succeeded), zap.Int("failed", failed))
	return results, nil
}

// PurgeOrphans deletes uploads older than ttl that were never registered as a
// document. Files whose registration cannot be checked are kept.
func (s *DocumentService) PurgeOrphans(ctx context.Context, ttl time.Duration) ([]string, error) {
	var lookupErr error
	deleted, err := s.store.CleanupOlderThan(ttl, func(storageID string) bool {
		found, err := s.docs.ExistingStorageIDs(ctx, []string{storageID})
		if err != nil {
			lookupErr = err
			return true
		}
		return found[storageID]
	})
	if err != nil {
		return deleted, internalError(err, "failed to purge storage")
	}
	if lookupErr != nil {
		s.logger.Warn("some uploads were kept because their registration could not be checked", zap.Error(lookupErr))
	}
	if len(deleted) > 0 {
		s.logger.Info("orphaned uploads purged", zap.Int("count", len(deleted)))
	}
	return deleted, nil
}

func (s *DocumentService) review(ctx context.Context, id string, status models.DocumentStatus, note string, actor models.Actor) error {
	doc, err := s.docs.GetByID(ctx, id)
	if err != nil {
		return lookupError(err, "document not found", "failed to load document")
	}
	if err := s.docs.Review(ctx, id, status, strPtr(note), actor.UserID, s.now().UTC()); err != nil {
		return lookupError(err, "document not found", "failed to review document")
	}
	emitAudit(ctx, s.audit, s.logger, newAuditLog(actor, models.AuditActionDocumentReview, models.AuditResourceDocument, &doc.ID, models.RiskLow,
		map[string]interface{}{"status": doc.Status},
		map[string]interface{}{"status": status, "note": note},
	))
	return nil
}

// authorizeOwner checks the actor may act on the document's owner and returns
// the owner's support type.
func (s *DocumentService) authorizeOwner(ctx context.Context, doc *models.Document, actor models.Actor) (string, error) {
	staff := canReview(actor.Role)
	switch {
	case doc.ApplicationID != nil:
		app, err := s.applications.GetByID(ctx, *doc.ApplicationID)
		if err != nil {
			return "", lookupError(err, "application not found", "failed to load application")
		}
		if !staff && app.ApplicantUserID != actor.UserID {
			return "", appErrors.Clone(appErrors.ErrForbidden, "documents are only visible to their owner and staff")
		}
		return app.SupportType, nil
	case doc.BeneficiaryID != nil:
		b, err := s.beneficiaries.GetByID(ctx, *doc.BeneficiaryID)
		if err != nil {
			return "", lookupError(err, "beneficiary not found", "failed to load beneficiary")
		}
		if !staff && (b.UserID == nil || *b.UserID != actor.UserID) {
			return "", appErrors.Clone(appErrors.ErrForbidden, "documents are only visible to their owner and staff")
		}
		return b.SupportType, nil
	default:
		return "", appErrors.Clone(appErrors.ErrValidation, "document has no owner")
	}
}

func (s *DocumentService) verify(token string, purpose storage.Purpose, storageID string) error {
	granted, _, err := s.signer.Verify(token, purpose)
	switch {
	case errors.Is(err, storage.ErrTokenExpired):
		return appErrors.Clone(appErrors.ErrForbidden, "file link expired")
	case err != nil:
		return appErrors.Clone(appErrors.ErrForbidden, "file link invalid")
	case granted != storageID:
		return appErrors.Clone(appErrors.ErrForbidden, "file link does not match the requested file")
	}
	return nil
}

func (s *DocumentService) objectError(err error) error {
	if errors.Is(err, storage.ErrObjectNotFound) || errors.Is(err, storage.ErrInvalidID) {
		return appErrors.Clone(appErrors.ErrNotFound, "file not found")
	}
	return internalError(err, "failed to read file")
}

func (s *DocumentService) mimeAllowed(mimeType string) bool {
	if len(s.allowed) == 0 {
		return true
	}
	base, _, _ := strings.Cut(strings.ToLower(mimeType), ";")
	return s.allowed[strings.TrimSpace(base)]
}

func (s *DocumentService) fileURL(storageID, suffix, token string) string {
	return s.cfg.FilesBaseURL + "/" + storageID + suffix + "?token=" + url.QueryEscape(token)
}
