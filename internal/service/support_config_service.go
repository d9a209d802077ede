package service

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/noah-isme/foundation-api/internal/dto"
	"github.com/noah-isme/foundation-api/internal/models"
	"github.com/noah-isme/foundation-api/pkg/cache"
	"github.com/noah-isme/foundation-api/pkg/database"
	appErrors "github.com/noah-isme/foundation-api/pkg/errors"
)

var supportTypePattern = regexp.MustCompile(`^[a-z0-9_]+$`)

type supportConfigRepository interface {
	Get(ctx context.Context, supportType string) (*models.SupportConfig, error)
	List(ctx context.Context, includeInactive bool) ([]models.SupportConfig, error)
	Create(ctx context.Context, cfg *models.SupportConfig) error
	Update(ctx context.Context, cfg *models.SupportConfig) error
	SetActive(ctx context.Context, supportType string, active bool, actorID string) error
	Upsert(ctx context.Context, cfgs []models.SupportConfig) error
}

type supportConfigCache interface {
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

// SupportConfigService manages support configurations behind a read-through cache.
type SupportConfigService struct {
	repo      supportConfigRepository
	cache     supportConfigCache
	audit     auditLogger
	validator *validator.Validate
	logger    *zap.Logger
	cacheTTL  time.Duration
}

// NewSupportConfigService constructs the service. cache may be nil.
func NewSupportConfigService(repo supportConfigRepository, cache supportConfigCache, audit auditLogger, validate *validator.Validate, logger *zap.Logger, cacheTTL time.Duration) *SupportConfigService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if cacheTTL <= 0 {
		cacheTTL = 10 * time.Minute
	}
	return &SupportConfigService{repo: repo, cache: cache, audit: audit, validator: validate, logger: logger, cacheTTL: cacheTTL}
}

func supportConfigKey(supportType string) string {
	return cache.Key("support_config", supportType)
}

// Get returns the configuration, reporting whether it was served from cache.
func (s *SupportConfigService) Get(ctx context.Context, supportType string) (*models.SupportConfig, bool, error) {
	key := supportConfigKey(supportType)
	if s.cache != nil {
		var cached models.SupportConfig
		hit, err := s.cache.Get(ctx, key, &cached)
		if err == nil && hit {
			return &cached, true, nil
		}
	}

	cfg, err := s.repo.Get(ctx, supportType)
	if err != nil {
		return nil, false, lookupError(err, "support configuration not found", "failed to load support configuration")
	}
	if s.cache != nil {
		_ = s.cache.Set(ctx, key, cfg, s.cacheTTL)
	}
	return cfg, false, nil
}

// List returns configurations, optionally including disabled ones.
func (s *SupportConfigService) List(ctx context.Context, includeInactive bool) ([]models.SupportConfig, error) {
	cfgs, err := s.repo.List(ctx, includeInactive)
	if err != nil {
		return nil, internalError(err, "failed to list support configurations")
	}
	return cfgs, nil
}

// Create registers a new support type.
func (s *SupportConfigService) Create(ctx context.Context, req dto.SupportConfigRequest, actor models.Actor) (*models.SupportConfig, error) {
	if !actor.Role.Privileged() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only administrators can manage support configurations")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid support configuration payload")
	}
	cfg := req.ToModel(strings.TrimSpace(req.SupportType))
	if err := s.validateConfig(cfg); err != nil {
		return nil, err
	}
	cfg.CreatedBy = strPtr(actor.UserID)
	cfg.UpdatedBy = strPtr(actor.UserID)

	if err := s.repo.Create(ctx, cfg); err != nil {
		if _, dup := database.UniqueViolation(err); dup {
			return nil, appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("support type %s already exists", cfg.SupportType))
		}
		return nil, internalError(err, "failed to create support configuration")
	}

	s.invalidate(ctx, cfg.SupportType)
	emitAudit(ctx, s.audit, s.logger, newAuditLog(actor, models.AuditActionSupportConfigCreate, models.AuditResourceSupportConfig, &cfg.SupportType, models.RiskMedium, nil, cfg))
	return cfg, nil
}

// Update replaces the editable fields of an existing support type.
func (s *SupportConfigService) Update(ctx context.Context, supportType string, req dto.SupportConfigRequest, actor models.Actor) (*models.SupportConfig, error) {
	if !actor.Role.Privileged() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only administrators can manage support configurations")
	}
	if req.SupportType != "" && req.SupportType != supportType {
		return nil, appErrors.Clone(appErrors.ErrValidation, "support_type cannot be changed")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid support configuration payload")
	}

	existing, err := s.repo.Get(ctx, supportType)
	if err != nil {
		return nil, lookupError(err, "support configuration not found", "failed to load support configuration")
	}

	cfg := req.ToModel(supportType)
	if err := s.validateConfig(cfg); err != nil {
		return nil, err
	}
	cfg.IsActive = existing.IsActive
	cfg.CreatedBy = existing.CreatedBy
	cfg.CreatedAt = existing.CreatedAt
	cfg.UpdatedBy = strPtr(actor.UserID)

	if err := s.repo.Update(ctx, cfg); err != nil {
		return nil, lookupError(err, "support configuration not found", "failed to update support configuration")
	}

	s.invalidate(ctx, supportType)
	emitAudit(ctx, s.audit, s.logger, newAuditLog(actor, models.AuditActionSupportConfigUpdate, models.AuditResourceSupportConfig, &supportType, models.RiskMedium, existing, cfg))
	return cfg, nil
}

// Disable hides a support type from new applications. Configurations are never deleted.
func (s *SupportConfigService) Disable(ctx context.Context, supportType string, actor models.Actor) error {
	return s.setActive(ctx, supportType, false, actor)
}

// Enable reopens a disabled support type.
func (s *SupportConfigService) Enable(ctx context.Context, supportType string, actor models.Actor) error {
	return s.setActive(ctx, supportType, true, actor)
}

func (s *SupportConfigService) setActive(ctx context.Context, supportType string, active bool, actor models.Actor) error {
	if !actor.Role.Privileged() {
		return appErrors.Clone(appErrors.ErrForbidden, "only administrators can manage support configurations")
	}
	if err := s.repo.SetActive(ctx, supportType, active, actor.UserID); err != nil {
		return lookupError(err, "support configuration not found", "failed to update support configuration")
	}
	s.invalidate(ctx, supportType)

	action := models.AuditActionSupportConfigDisable
	if active {
		action = models.AuditActionSupportConfigEnable
	}
	emitAudit(ctx, s.audit, s.logger, newAuditLog(actor, action, models.AuditResourceSupportConfig, &supportType, models.RiskMedium, nil, map[string]bool{"is_active": active}))
	return nil
}

// SeedFromYAML validates and upserts every configuration in a YAML document.
func (s *SupportConfigService) SeedFromYAML(ctx context.Context, data []byte, actorID string) ([]models.SupportConfig, error) {
	cfgs, err := ParseSupportConfigsYAML(data)
	if err != nil {
		return nil, validationError(err, "invalid support configuration seed")
	}
	for i := range cfgs {
		if err := s.validateConfig(&cfgs[i]); err != nil {
			return nil, err
		}
		cfgs[i].CreatedBy = strPtr(actorID)
		cfgs[i].UpdatedBy = strPtr(actorID)
	}
	if err := s.repo.Upsert(ctx, cfgs); err != nil {
		return nil, internalError(err, "failed to seed support configurations")
	}
	for _, cfg := range cfgs {
		s.invalidate(ctx, cfg.SupportType)
	}
	s.logger.Info("support configurations seeded", zap.Int("count", len(cfgs)))
	return cfgs, nil
}

// ParseSupportConfigsYAML decodes a YAML list of support configurations. Keys
// use the same snake_case names as the JSON API. Entries default to active
// unless is_active is set explicitly.
func ParseSupportConfigsYAML(data []byte) ([]models.SupportConfig, error) {
	var raw []map[string]interface{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}
	cfgs := make([]models.SupportConfig, 0, len(raw))
	for i, entry := range raw {
		if _, set := entry["is_active"]; !set {
			entry["is_active"] = true
		}
		encoded, err := json.Marshal(entry)
		if err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}
		var cfg models.SupportConfig
		if err := json.Unmarshal(encoded, &cfg); err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}
		cfgs = append(cfgs, cfg)
	}
	return cfgs, nil
}

func (s *SupportConfigService) validateConfig(cfg *models.SupportConfig) error {
	if !supportTypePattern.MatchString(cfg.SupportType) {
		return appErrors.Clone(appErrors.ErrValidation, "support_type must match ^[a-z0-9_]+$")
	}
	if err := s.validator.Struct(cfg); err != nil {
		return validationError(err, "invalid support configuration")
	}
	seen := make(map[models.AcademicLevel]bool, len(cfg.AmountConfig))
	for _, tier := range cfg.AmountConfig {
		if seen[tier.AcademicLevel] {
			return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("duplicate amount tier for %s", tier.AcademicLevel))
		}
		seen[tier.AcademicLevel] = true
	}
	rules := cfg.EligibilityRules
	if floor, ceiling := rules.MinAcademicLevel.Ordinal(), rules.MaxAcademicLevel.Ordinal(); floor > 0 && ceiling > 0 && floor > ceiling {
		return appErrors.Clone(appErrors.ErrValidation, "min_academic_level is above max_academic_level")
	}
	if rules.MinAge > 0 && rules.MaxAge > 0 && rules.MinAge > rules.MaxAge {
		return appErrors.Clone(appErrors.ErrValidation, "min_age is above max_age")
	}
	if !cfg.PriorityWeights.Balanced() {
		return appErrors.WithDetails(appErrors.ErrValidation, "priority weights must sum to 1.0",
			map[string]float64{"sum": cfg.PriorityWeights.Sum()})
	}
	return nil
}

func (s *SupportConfigService) invalidate(ctx context.Context, supportType string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, supportConfigKey(supportType)); err != nil {
		s.logger.Warn("failed to invalidate support config cache", zap.String("support_type", supportType), zap.Error(err))
	}
}
