package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"go.uber.org/zap"

	"github.com/noah-isme/foundation-api/internal/models"
	appErrors "github.com/noah-isme/foundation-api/pkg/errors"
)

type auditLogger interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

func internalError(err error, message string) error {
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, message)
}

func validationError(err error, message string) error {
	return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, message)
}

// lookupError maps sql.ErrNoRows onto a not-found error and anything else onto
// an internal one. Errors that are already typed pass through.
func lookupError(err error, notFound, failed string) error {
	var typed *appErrors.Error
	if errors.As(err, &typed) {
		return err
	}
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.Clone(appErrors.ErrNotFound, notFound)
	}
	return internalError(err, failed)
}

func newAuditLog(actor models.Actor, action, resource string, resourceID *string, risk models.RiskLevel, oldValues, newValues interface{}) *models.AuditLog {
	log := &models.AuditLog{
		Action:     action,
		Resource:   resource,
		ResourceID: resourceID,
		RiskLevel:  risk,
		IPAddress:  actor.IP,
		UserAgent:  actor.UserAgent,
	}
	if actor.UserID != "" {
		id := actor.UserID
		log.UserID = &id
	}
	if oldValues != nil {
		log.OldValues, _ = json.Marshal(oldValues)
	}
	if newValues != nil {
		log.NewValues, _ = json.Marshal(newValues)
	}
	return log
}

func emitAudit(ctx context.Context, repo auditLogger, logger *zap.Logger, log *models.AuditLog) {
	if repo == nil || log == nil {
		return
	}
	if err := repo.CreateAuditLog(ctx, log); err != nil {
		logger.Warn("failed to record audit log", zap.String("action", log.Action), zap.Error(err))
	}
}

func strPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func paginationFor(page, pageSize, total int) *models.Pagination {
	page, pageSize = models.NormalizePage(page, pageSize)
	return &models.Pagination{Page: page, PageSize: pageSize, TotalCount: total}
}
