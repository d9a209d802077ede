package service

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/foundation-api/internal/dto"
	"github.com/noah-isme/foundation-api/internal/models"
	"github.com/noah-isme/foundation-api/internal/repository"
	appErrors "github.com/noah-isme/foundation-api/pkg/errors"
)

type stubApplicationRepo struct {
	mu      sync.Mutex
	apps    map[string]*models.Application
	reviews map[string][]models.ApplicationReview
	audits  []*models.AuditLog
	nextID  int
}

func newStubApplicationRepo(apps ...models.Application) *stubApplicationRepo {
	repo := &stubApplicationRepo{apps: map[string]*models.Application{}, reviews: map[string][]models.ApplicationReview{}}
	for i := range apps {
		app := apps[i]
		repo.apps[app.ID] = &app
	}
	return repo
}

func (r *stubApplicationRepo) Create(ctx context.Context, app *models.Application) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	app.ID = fmt.Sprintf("app-%d", r.nextID)
	stored := *app
	r.apps[app.ID] = &stored
	return nil
}

func (r *stubApplicationRepo) GetByID(ctx context.Context, id string) (*models.Application, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	app, ok := r.apps[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	loaded := *app
	return &loaded, nil
}

func (r *stubApplicationRepo) ListReviews(ctx context.Context, id string) ([]models.ApplicationReview, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.ApplicationReview(nil), r.reviews[id]...), nil
}

func (r *stubApplicationRepo) List(ctx context.Context, filter models.ApplicationFilter) ([]models.Application, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Application
	for _, app := range r.apps {
		if filter.ApplicantUserID != "" && app.ApplicantUserID != filter.ApplicantUserID {
			continue
		}
		out = append(out, *app)
	}
	return out, len(out), nil
}

func (r *stubApplicationRepo) CountOpenByApplicant(ctx context.Context, applicantID, supportType string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for _, app := range r.apps {
		if app.ApplicantUserID == applicantID && app.SupportType == supportType && app.Open() {
			count++
		}
	}
	return count, nil
}

func (r *stubApplicationRepo) AssignReviewer(ctx context.Context, id, reviewerID string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	app, ok := r.apps[id]
	if !ok || app.Status.Terminal() {
		return sql.ErrNoRows
	}
	app.ReviewerID = &reviewerID
	if app.Status == models.ApplicationSubmitted {
		app.Status = models.ApplicationUnderReview
	}
	return nil
}

func (r *stubApplicationRepo) ApplyReview(ctx context.Context, change repository.ReviewChange) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	review := change.Review
	app, ok := r.apps[review.ApplicationID]
	if !ok || app.Status != review.FromStatus {
		return sql.ErrNoRows
	}
	app.Status = review.ToStatus
	if change.ReviewerID != nil && app.ReviewerID == nil {
		app.ReviewerID = change.ReviewerID
	}
	if change.PriorityScore != nil {
		app.PriorityScore = change.PriorityScore
	}
	r.reviews[app.ID] = append(r.reviews[app.ID], *review)
	if change.Audit != nil {
		r.audits = append(r.audits, change.Audit)
	}
	return nil
}

type stubBeneficiaryStore struct {
	byApp         map[string]*models.Beneficiary
	audits        []*models.AuditLog
	notifications []*models.Notification
	createErr     error
}

func newStubBeneficiaryStore() *stubBeneficiaryStore {
	return &stubBeneficiaryStore{byApp: map[string]*models.Beneficiary{}}
}

func (s *stubBeneficiaryStore) FindByApplicationID(ctx context.Context, applicationID string) (*models.Beneficiary, error) {
	b, ok := s.byApp[applicationID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return b, nil
}

func (s *stubBeneficiaryStore) CreateFromApplication(ctx context.Context, b *models.Beneficiary, audit *models.AuditLog, welcome *models.Notification) (*models.Beneficiary, bool, error) {
	if s.createErr != nil {
		return nil, false, s.createErr
	}
	if existing, ok := s.byApp[b.ApplicationID]; ok {
		return existing, false, nil
	}
	b.ID = "ben-" + b.ApplicationID
	s.byApp[b.ApplicationID] = b
	audit.ResourceID = &b.ID
	s.audits = append(s.audits, audit)
	s.notifications = append(s.notifications, welcome)
	return b, true, nil
}

type stubConfigProvider struct {
	cfgs map[string]models.SupportConfig
}

func (p *stubConfigProvider) Get(ctx context.Context, supportType string) (*models.SupportConfig, bool, error) {
	cfg, ok := p.cfgs[supportType]
	if !ok {
		return nil, false, appErrors.Clone(appErrors.ErrNotFound, "support configuration not found")
	}
	return &cfg, false, nil
}

type stubDocumentLister struct {
	docs []models.Document
}

func (l *stubDocumentLister) ListByApplication(ctx context.Context, applicationID string) ([]models.Document, error) {
	return l.docs, nil
}

var (
	reviewerActor   = models.Actor{UserID: "reviewer-1", Role: models.RoleReviewer}
	applicantActor  = models.Actor{UserID: "applicant-1", Role: models.RoleBeneficiary}
	superAdminActor = models.Actor{UserID: "root-1", Role: models.RoleSuperAdmin}
)

type applicationFixture struct {
	svc           *ApplicationService
	apps          *stubApplicationRepo
	beneficiaries *stubBeneficiaryStore
	configs       *stubConfigProvider
	documents     *stubDocumentLister
}

func newApplicationFixture(t *testing.T, apps ...models.Application) applicationFixture {
	t.Helper()
	cfg := tuitionConfig()
	cfg.PriorityWeights = models.PriorityWeights{FinancialNeed: 1}
	f := applicationFixture{
		apps:          newStubApplicationRepo(apps...),
		beneficiaries: newStubBeneficiaryStore(),
		configs:       &stubConfigProvider{cfgs: map[string]models.SupportConfig{"tuition": cfg}},
		documents:     &stubDocumentLister{},
	}
	f.svc = NewApplicationService(f.apps, f.beneficiaries, f.documents, f.configs, nil, nil, nil, ApplicationServiceConfig{AllowAdminOverride: true, BulkConcurrency: 2})
	f.svc.now = func() time.Time { return time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC) }
	return f
}

func submittedApplication(id string) models.Application {
	return models.Application{
		ID:              id,
		ApplicantUserID: applicantActor.UserID,
		SupportType:     "tuition",
		Status:          models.ApplicationSubmitted,
		Personal:        models.PersonalInfo{FullName: "Ada Obi", Email: "ada@example.com", DateOfBirth: "2015-06-01"},
		Education:       models.EducationInfo{AcademicLevel: models.LevelPrimary, SchoolType: models.SchoolPrivate, SchoolName: "Hillside"},
	}
}

func submitRequest() dto.SubmitApplicationRequest {
	return dto.SubmitApplicationRequest{
		SupportType: "tuition",
		Personal:    models.PersonalInfo{FullName: "Ada Obi", Email: "ada@example.com", DateOfBirth: "2015-06-01"},
		Education:   models.EducationInfo{AcademicLevel: models.LevelPrimary, SchoolType: models.SchoolPublic, SchoolName: "Hillside"},
		Financial:   models.FinancialInfo{HouseholdIncome: 120000, Dependents: 3, RequestedAmount: 25000},
		Essay:       models.Essay{Title: "Why I want to learn", Body: "Because."},
	}
}

func TestApplicationSubmitCreatesSubmittedApplication(t *testing.T) {
	f := newApplicationFixture(t)

	app, err := f.svc.Submit(context.Background(), submitRequest(), applicantActor)
	require.NoError(t, err)
	assert.Equal(t, models.ApplicationSubmitted, app.Status)
	assert.Equal(t, applicantActor.UserID, app.ApplicantUserID)
	assert.NotEmpty(t, app.ID)
}

func TestApplicationSubmitRejectsIneligibleApplicant(t *testing.T) {
	f := newApplicationFixture(t)
	req := submitRequest()
	req.Education.AcademicLevel = models.LevelUniversity

	_, err := f.svc.Submit(context.Background(), req, applicantActor)
	require.Error(t, err)
	assert.True(t, appErrors.IsValidation(err))
	assert.Equal(t, []string{"academic level university is above maximum sss", "no amount tier configured for university"}, appErrors.FromError(err).Details)
}

func TestApplicationSubmitEnforcesSettings(t *testing.T) {
	f := newApplicationFixture(t)
	cfg := f.configs.cfgs["tuition"]
	cfg.ApplicationSettings.RequiresGuardianConsent = true
	f.configs.cfgs["tuition"] = cfg

	_, err := f.svc.Submit(context.Background(), submitRequest(), applicantActor)
	assert.True(t, appErrors.IsValidation(err))

	req := submitRequest()
	req.Guardian = &models.GuardianInfo{FullName: "Ngozi Obi", Relationship: "mother", Phone: "+2348000000000", ConsentGiven: true}
	_, err = f.svc.Submit(context.Background(), req, applicantActor)
	require.NoError(t, err)

	_, err = f.svc.Submit(context.Background(), req, applicantActor)
	assert.True(t, appErrors.IsConflict(err), "second open application must conflict")

	deadline := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	cfg.ApplicationSettings.ApplicationDeadline = &deadline
	cfg.ApplicationSettings.AllowMultipleApplications = true
	f.configs.cfgs["tuition"] = cfg
	_, err = f.svc.Submit(context.Background(), req, applicantActor)
	assert.True(t, appErrors.IsValidation(err))
}

func TestApplicationSubmitUnknownSupportType(t *testing.T) {
	f := newApplicationFixture(t)
	req := submitRequest()
	req.SupportType = "housing"

	_, err := f.svc.Submit(context.Background(), req, applicantActor)
	assert.True(t, appErrors.IsValidation(err))
}

func TestApproveThenCreateBeneficiaryIsIdempotent(t *testing.T) {
	f := newApplicationFixture(t, submittedApplication("app1"))
	ctx := context.Background()

	app, err := f.svc.UpdateStatus(ctx, "app1", dto.UpdateApplicationStatusRequest{
		Status:        models.ApplicationApproved,
		Comments:      "Great essay",
		InternalNotes: "Strong financials",
	}, reviewerActor)
	require.NoError(t, err)
	assert.Equal(t, models.ApplicationApproved, app.Status)
	require.Len(t, app.Reviews, 1)
	assert.Equal(t, "Great essay", app.Reviews[0].Comments)
	assert.Equal(t, models.ApplicationSubmitted, app.Reviews[0].FromStatus)
	require.NotNil(t, app.ReviewerID)
	assert.Equal(t, reviewerActor.UserID, *app.ReviewerID)
	assert.Empty(t, f.apps.audits, "regular review decisions are not audited")

	beneficiary, created, err := f.svc.CreateBeneficiaryFromApplication(ctx, "app1", adminActor)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, int64(37500), beneficiary.ApprovedAmount)
	assert.Equal(t, "NGN", beneficiary.Currency)
	assert.Equal(t, models.BeneficiaryActive, beneficiary.Status)
	require.Len(t, f.beneficiaries.audits, 1)
	assert.Equal(t, models.RiskLow, f.beneficiaries.audits[0].RiskLevel)
	require.Len(t, f.beneficiaries.notifications, 1)
	welcome := f.beneficiaries.notifications[0]
	assert.Equal(t, models.TemplateWelcome, welcome.Template)
	assert.Equal(t, "ada@example.com", welcome.Recipient)
	assert.Equal(t, "Welcome to Tuition support", welcome.Subject)

	again, created, err := f.svc.CreateBeneficiaryFromApplication(ctx, "app1", adminActor)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, beneficiary.ID, again.ID)
	assert.Len(t, f.beneficiaries.audits, 1)
	assert.Len(t, f.beneficiaries.notifications, 1)
}

func TestCreateBeneficiaryRequiresApproval(t *testing.T) {
	f := newApplicationFixture(t, submittedApplication("app1"))

	_, _, err := f.svc.CreateBeneficiaryFromApplication(context.Background(), "app1", adminActor)
	assert.True(t, appErrors.IsConflict(err))

	_, _, err = f.svc.CreateBeneficiaryFromApplication(context.Background(), "app1", reviewerActor)
	assert.True(t, appErrors.IsPermission(err))
}

func TestTerminalStatusNeedsAdminOverride(t *testing.T) {
	approved := submittedApplication("app1")
	approved.Status = models.ApplicationApproved
	f := newApplicationFixture(t, approved)
	ctx := context.Background()

	_, err := f.svc.UpdateStatus(ctx, "app1", dto.UpdateApplicationStatusRequest{Status: models.ApplicationRejected}, adminActor)
	assert.ErrorIs(t, err, appErrors.ErrInvalidTransition)

	_, err = f.svc.UpdateStatus(ctx, "app1", dto.UpdateApplicationStatusRequest{Status: models.ApplicationRejected, Override: true}, reviewerActor)
	assert.ErrorIs(t, err, appErrors.ErrInvalidTransition)

	app, err := f.svc.UpdateStatus(ctx, "app1", dto.UpdateApplicationStatusRequest{Status: models.ApplicationRejected, Override: true, Comments: "Fraudulent documents"}, superAdminActor)
	require.NoError(t, err)
	assert.Equal(t, models.ApplicationRejected, app.Status)
	require.Len(t, f.apps.audits, 1)
	assert.Equal(t, models.RiskHigh, f.apps.audits[0].RiskLevel)
	assert.Equal(t, models.AuditActionApplicationOverride, f.apps.audits[0].Action)
	assert.True(t, app.Reviews[0].Override)
}

func TestOverrideRefusedOnceBeneficiaryExists(t *testing.T) {
	approved := submittedApplication("app1")
	approved.Status = models.ApplicationApproved
	f := newApplicationFixture(t, approved)
	f.beneficiaries.byApp["app1"] = &models.Beneficiary{ID: "ben-1", ApplicationID: "app1"}

	_, err := f.svc.UpdateStatus(context.Background(), "app1", dto.UpdateApplicationStatusRequest{Status: models.ApplicationRejected, Override: true}, adminActor)
	assert.ErrorIs(t, err, appErrors.ErrInvalidTransition)
	assert.Empty(t, f.apps.reviews["app1"])
}

func TestOverrideDisabledByConfiguration(t *testing.T) {
	rejected := submittedApplication("app1")
	rejected.Status = models.ApplicationRejected
	f := newApplicationFixture(t, rejected)
	f.svc.cfg.AllowAdminOverride = false

	_, err := f.svc.UpdateStatus(context.Background(), "app1", dto.UpdateApplicationStatusRequest{Status: models.ApplicationApproved, Override: true}, adminActor)
	assert.ErrorIs(t, err, appErrors.ErrInvalidTransition)
}

func TestUpdateStatusRejectsBackwardsMove(t *testing.T) {
	app := submittedApplication("app1")
	app.Status = models.ApplicationUnderReview
	f := newApplicationFixture(t, app)

	_, err := f.svc.UpdateStatus(context.Background(), "app1", dto.UpdateApplicationStatusRequest{Status: models.ApplicationSubmitted, Override: true}, adminActor)
	assert.ErrorIs(t, err, appErrors.ErrInvalidTransition)

	_, err = f.svc.UpdateStatus(context.Background(), "app1", dto.UpdateApplicationStatusRequest{Status: models.ApplicationUnderReview}, adminActor)
	assert.ErrorIs(t, err, appErrors.ErrInvalidTransition)
}

func TestUpdateStatusScoresSetPriority(t *testing.T) {
	f := newApplicationFixture(t, submittedApplication("app1"))

	app, err := f.svc.UpdateStatus(context.Background(), "app1", dto.UpdateApplicationStatusRequest{
		Status: models.ApplicationUnderReview,
		Scores: &models.ReviewScores{FinancialNeed: 80, AcademicMerit: 40},
	}, reviewerActor)
	require.NoError(t, err)
	require.NotNil(t, app.PriorityScore)
	assert.InDelta(t, 80.0, *app.PriorityScore, 0.001)
}

func TestReviewerCannotReviewOthersAssignment(t *testing.T) {
	app := submittedApplication("app1")
	other := "reviewer-2"
	app.ReviewerID = &other
	f := newApplicationFixture(t, app)

	_, err := f.svc.UpdateStatus(context.Background(), "app1", dto.UpdateApplicationStatusRequest{Status: models.ApplicationApproved}, reviewerActor)
	assert.True(t, appErrors.IsPermission(err))

	_, err = f.svc.UpdateStatus(context.Background(), "app1", dto.UpdateApplicationStatusRequest{Status: models.ApplicationApproved}, applicantActor)
	assert.True(t, appErrors.IsPermission(err))
}

func TestAssignReviewerMovesSubmittedUnderReview(t *testing.T) {
	f := newApplicationFixture(t, submittedApplication("app1"))
	reviewerID := "7b0c9a52-8a57-4c6a-9f0e-0d1d8a9f3c11"

	app, err := f.svc.AssignReviewer(context.Background(), "app1", dto.AssignReviewerRequest{ReviewerID: reviewerID}, adminActor)
	require.NoError(t, err)
	assert.Equal(t, models.ApplicationUnderReview, app.Status)
	assert.Equal(t, reviewerID, *app.ReviewerID)

	_, err = f.svc.AssignReviewer(context.Background(), "missing", dto.AssignReviewerRequest{ReviewerID: reviewerID}, adminActor)
	assert.True(t, appErrors.IsNotFound(err))
}

func TestBulkUpdateStatusReportsPerItem(t *testing.T) {
	approved := submittedApplication("22222222-2222-4222-8222-222222222222")
	approved.Status = models.ApplicationApproved
	f := newApplicationFixture(t, submittedApplication("11111111-1111-4111-8111-111111111111"), approved)

	results, err := f.svc.BulkUpdateStatus(context.Background(), dto.BulkApplicationStatusRequest{
		IDs:    []string{"11111111-1111-4111-8111-111111111111", "22222222-2222-4222-8222-222222222222", "33333333-3333-4333-8333-333333333333"},
		Status: models.ApplicationWaitlisted,
	}, adminActor)
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.True(t, results[0].Success)
	assert.False(t, results[1].Success)
	assert.Equal(t, appErrors.ErrInvalidTransition.Code, results[1].Code)
	assert.False(t, results[2].Success)
	assert.Equal(t, appErrors.ErrNotFound.Code, results[2].Code)

	succeeded, failed := dto.CountResults(results)
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 2, failed)
}

func TestApplicantsOnlySeeOwnApplications(t *testing.T) {
	mine := submittedApplication("app1")
	theirs := submittedApplication("app2")
	theirs.ApplicantUserID = "applicant-2"
	f := newApplicationFixture(t, mine, theirs)

	apps, page, err := f.svc.List(context.Background(), models.ApplicationFilter{}, applicantActor)
	require.NoError(t, err)
	require.Len(t, apps, 1)
	assert.Equal(t, "app1", apps[0].ID)
	assert.Equal(t, 1, page.TotalCount)

	_, err = f.svc.Get(context.Background(), "app2", applicantActor)
	assert.True(t, appErrors.IsPermission(err))
}

func TestDocumentChecklist(t *testing.T) {
	f := newApplicationFixture(t, submittedApplication("app1"))
	cfg := f.configs.cfgs["tuition"]
	cfg.RequiredDocuments = models.RequiredDocuments{
		{DocumentType: "birth_certificate", DisplayName: "Birth certificate", IsMandatory: true},
		{DocumentType: "report_card", DisplayName: "Report card", IsMandatory: true},
		{DocumentType: "photo", DisplayName: "Passport photo"},
	}
	f.configs.cfgs["tuition"] = cfg
	expired := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	f.documents.docs = []models.Document{
		{ID: "doc-1", DocumentType: "birth_certificate", Status: models.DocumentApproved},
		{ID: "doc-2", DocumentType: "report_card", Status: models.DocumentApproved, ExpiresAt: &expired},
		{ID: "doc-3", DocumentType: "photo", Status: models.DocumentPending},
	}

	items, err := f.svc.DocumentChecklist(context.Background(), "app1", adminActor)
	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.True(t, items[0].Satisfied)
	assert.Equal(t, "doc-1", *items[0].DocumentID)
	assert.False(t, items[1].Satisfied, "expired documents do not count")
	assert.False(t, items[2].Satisfied, "pending documents do not count")
	assert.False(t, items[2].IsMandatory)
}
