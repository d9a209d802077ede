package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/foundation-api/internal/dto"
	"github.com/noah-isme/foundation-api/internal/models"
	appErrors "github.com/noah-isme/foundation-api/pkg/errors"
)

type stubSupportConfigRepo struct {
	configs   map[string]models.SupportConfig
	getCalls  int
	createErr error
	upserted  []models.SupportConfig
}

func newStubSupportConfigRepo(cfgs ...models.SupportConfig) *stubSupportConfigRepo {
	repo := &stubSupportConfigRepo{configs: map[string]models.SupportConfig{}}
	for _, cfg := range cfgs {
		repo.configs[cfg.SupportType] = cfg
	}
	return repo
}

func (r *stubSupportConfigRepo) Get(ctx context.Context, supportType string) (*models.SupportConfig, error) {
	r.getCalls++
	cfg, ok := r.configs[supportType]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &cfg, nil
}

func (r *stubSupportConfigRepo) List(ctx context.Context, includeInactive bool) ([]models.SupportConfig, error) {
	var out []models.SupportConfig
	for _, cfg := range r.configs {
		if includeInactive || cfg.IsActive {
			out = append(out, cfg)
		}
	}
	return out, nil
}

func (r *stubSupportConfigRepo) Create(ctx context.Context, cfg *models.SupportConfig) error {
	if r.createErr != nil {
		return r.createErr
	}
	r.configs[cfg.SupportType] = *cfg
	return nil
}

func (r *stubSupportConfigRepo) Update(ctx context.Context, cfg *models.SupportConfig) error {
	if _, ok := r.configs[cfg.SupportType]; !ok {
		return sql.ErrNoRows
	}
	r.configs[cfg.SupportType] = *cfg
	return nil
}

func (r *stubSupportConfigRepo) SetActive(ctx context.Context, supportType string, active bool, actorID string) error {
	cfg, ok := r.configs[supportType]
	if !ok {
		return sql.ErrNoRows
	}
	cfg.IsActive = active
	r.configs[supportType] = cfg
	return nil
}

func (r *stubSupportConfigRepo) Upsert(ctx context.Context, cfgs []models.SupportConfig) error {
	r.upserted = append(r.upserted, cfgs...)
	for _, cfg := range cfgs {
		r.configs[cfg.SupportType] = cfg
	}
	return nil
}

type stubCache struct {
	entries map[string]interface{}
	deleted []string
}

func newStubCache() *stubCache { return &stubCache{entries: map[string]interface{}{}} }

func (c *stubCache) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	v, ok := c.entries[key]
	if !ok {
		return false, nil
	}
	*(dest.(*models.SupportConfig)) = v.(models.SupportConfig)
	return true, nil
}

func (c *stubCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	c.entries[key] = *(value.(*models.SupportConfig))
	return nil
}

func (c *stubCache) Delete(ctx context.Context, keys ...string) error {
	for _, k := range keys {
		delete(c.entries, k)
		c.deleted = append(c.deleted, k)
	}
	return nil
}

type stubAudit struct {
	logs []*models.AuditLog
}

func (a *stubAudit) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	a.logs = append(a.logs, log)
	return nil
}

var adminActor = models.Actor{UserID: "admin-1", Role: models.RoleAdmin}

func validConfigRequest(supportType string) dto.SupportConfigRequest {
	cfg := tuitionConfig()
	return dto.SupportConfigRequest{
		SupportType:      supportType,
		DisplayName:      cfg.DisplayName,
		EligibilityRules: cfg.EligibilityRules,
		AmountConfig:     cfg.AmountConfig,
		PriorityWeights:  models.PriorityWeights{FinancialNeed: 0.3, AcademicMerit: 0.3, EssayQuality: 0.2, FamilySituation: 0.1, CommunityImpact: 0.1},
	}
}

func TestSupportConfigCreateAuditsAndRejectsUnbalancedWeights(t *testing.T) {
	repo := newStubSupportConfigRepo()
	audit := &stubAudit{}
	svc := NewSupportConfigService(repo, newStubCache(), audit, nil, nil, time.Minute)

	cfg, err := svc.Create(context.Background(), validConfigRequest("tuition"), adminActor)
	require.NoError(t, err)
	assert.True(t, cfg.IsActive)
	require.Len(t, audit.logs, 1)
	assert.Equal(t, models.RiskMedium, audit.logs[0].RiskLevel)

	req := validConfigRequest("books")
	req.PriorityWeights.CommunityImpact = 0.3
	_, err = svc.Create(context.Background(), req, adminActor)
	assert.True(t, appErrors.IsValidation(err))
}

func TestSupportConfigCreateRequiresAdmin(t *testing.T) {
	svc := NewSupportConfigService(newStubSupportConfigRepo(), nil, nil, nil, nil, 0)
	_, err := svc.Create(context.Background(), validConfigRequest("tuition"), models.Actor{UserID: "r", Role: models.RoleReviewer})
	assert.True(t, appErrors.IsPermission(err))
}

func TestSupportConfigCreateRejectsBadKeyAndDuplicates(t *testing.T) {
	repo := newStubSupportConfigRepo()
	svc := NewSupportConfigService(repo, nil, nil, nil, nil, 0)

	_, err := svc.Create(context.Background(), validConfigRequest("Tuition Fund"), adminActor)
	assert.True(t, appErrors.IsValidation(err))

	repo.createErr = &pq.Error{Code: "23505", Constraint: "support_configs_pkey"}
	_, err = svc.Create(context.Background(), validConfigRequest("tuition"), adminActor)
	assert.True(t, appErrors.IsConflict(err))
}

func TestSupportConfigGetUsesCacheAndUpdateInvalidates(t *testing.T) {
	base := tuitionConfig()
	repo := newStubSupportConfigRepo(base)
	cache := newStubCache()
	svc := NewSupportConfigService(repo, cache, &stubAudit{}, nil, nil, time.Minute)
	ctx := context.Background()

	_, hit, err := svc.Get(ctx, "tuition")
	require.NoError(t, err)
	assert.False(t, hit)
	_, hit, err = svc.Get(ctx, "tuition")
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, 1, repo.getCalls)

	req := validConfigRequest("")
	req.DisplayName = "Renamed"
	updated, err := svc.Update(ctx, "tuition", req, adminActor)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.DisplayName)
	assert.Contains(t, cache.deleted, "support_config:tuition")

	got, hit, err := svc.Get(ctx, "tuition")
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, "Renamed", got.DisplayName)
}

func TestSupportConfigUpdateRejectsKeyChange(t *testing.T) {
	svc := NewSupportConfigService(newStubSupportConfigRepo(tuitionConfig()), nil, nil, nil, nil, 0)
	_, err := svc.Update(context.Background(), "tuition", validConfigRequest("books"), adminActor)
	assert.True(t, appErrors.IsValidation(err))
}

func TestSupportConfigDisableKeepsRow(t *testing.T) {
	repo := newStubSupportConfigRepo(tuitionConfig())
	audit := &stubAudit{}
	svc := NewSupportConfigService(repo, nil, audit, nil, nil, 0)

	require.NoError(t, svc.Disable(context.Background(), "tuition", adminActor))
	assert.False(t, repo.configs["tuition"].IsActive)
	require.Len(t, audit.logs, 1)
	assert.Equal(t, models.AuditActionSupportConfigDisable, audit.logs[0].Action)

	err := svc.Enable(context.Background(), "missing", adminActor)
	assert.True(t, appErrors.IsNotFound(err))
}

const seedYAML = `
- support_type: tuition
  display_name: Tuition support
  eligibility_rules:
    min_academic_level: primary
    max_age: 25
  amount_config:
    - academic_level: primary
      min_amount: 10000
      max_amount: 40000
      default_amount: 25000
      currency: NGN
      frequency: termly
      school_type_multipliers:
        private: 1.5
  priority_weights:
    financial_need: 0.5
    academic_merit: 0.5
- support_type: books
  display_name: Book grant
  is_active: false
  amount_config:
    - academic_level: jss
      min_amount: 100
      max_amount: 100
      default_amount: 100
      currency: NGN
      frequency: one_time
  priority_weights:
    financial_need: 1
`

func TestSeedFromYAML(t *testing.T) {
	repo := newStubSupportConfigRepo()
	svc := NewSupportConfigService(repo, nil, nil, nil, nil, 0)

	cfgs, err := svc.SeedFromYAML(context.Background(), []byte(seedYAML), "")
	require.NoError(t, err)
	require.Len(t, cfgs, 2)
	assert.True(t, cfgs[0].IsActive)
	assert.False(t, cfgs[1].IsActive)
	assert.Equal(t, 25, cfgs[0].EligibilityRules.MaxAge)
	assert.Equal(t, 1.5, cfgs[0].AmountConfig[0].SchoolTypeMultipliers.Private)
	assert.Len(t, repo.upserted, 2)
}

func TestSeedFromYAMLRejectsInvalidEntries(t *testing.T) {
	svc := NewSupportConfigService(newStubSupportConfigRepo(), nil, nil, nil, nil, 0)
	_, err := svc.SeedFromYAML(context.Background(), []byte("- support_type: x\n  display_name: X\n"), "")
	assert.True(t, appErrors.IsValidation(err))

	_, err = svc.SeedFromYAML(context.Background(), []byte("not: [valid"), "")
	assert.True(t, appErrors.IsValidation(err))
}
