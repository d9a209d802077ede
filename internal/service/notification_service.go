package service

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/foundation-api/internal/dto"
	"github.com/noah-isme/foundation-api/internal/models"
	appErrors "github.com/noah-isme/foundation-api/pkg/errors"
	"github.com/noah-isme/foundation-api/pkg/jobs"
)

type notificationRepository interface {
	Enqueue(ctx context.Context, n *models.Notification) error
	GetByID(ctx context.Context, id string) (*models.Notification, error)
	MarkDelivered(ctx context.Context, id string) error
	List(ctx context.Context, filter models.NotificationFilter) ([]models.Notification, int, error)
}

type outboxKicker interface {
	Kick()
}

// NotificationService writes outbox rows and exposes them to operators.
type NotificationService struct {
	repo            notificationRepository
	kicker          outboxKicker
	validator       *validator.Validate
	logger          *zap.Logger
	bulkConcurrency int
}

// NewNotificationService constructs the service. kicker may be nil, in which
// case new rows wait for the next dispatcher poll.
func NewNotificationService(repo notificationRepository, kicker outboxKicker, validate *validator.Validate, logger *zap.Logger, bulkConcurrency int) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &NotificationService{repo: repo, kicker: kicker, validator: validate, logger: logger, bulkConcurrency: bulkConcurrency}
}

// Enqueue stores a pending notification for asynchronous delivery.
func (s *NotificationService) Enqueue(ctx context.Context, n *models.Notification) (*models.Notification, error) {
	if n == nil || n.Recipient == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "recipient is required")
	}
	if n.Channel != models.ChannelEmail && n.Channel != models.ChannelSMS {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unsupported channel")
	}
	if n.Template == "" {
		n.Template = models.TemplateCustom
	}
	n.Status = models.NotificationPending
	if err := s.repo.Enqueue(ctx, n); err != nil {
		return nil, internalError(err, "failed to enqueue notification")
	}
	s.kick()
	return n, nil
}

// BulkSend enqueues the same message for every recipient. Each recipient is
// independent; results are keyed by recipient address.
func (s *NotificationService) BulkSend(ctx context.Context, req dto.BulkSendRequest, actor models.Actor) ([]dto.BulkItemResult, error) {
	if !actor.Role.Privileged() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only administrators can send notifications")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid bulk send payload")
	}
	if req.Channel == models.ChannelEmail && req.Subject == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "subject is required for email")
	}

	keys := make([]string, len(req.Recipients))
	for i := range req.Recipients {
		keys[i] = strconv.Itoa(i)
	}
	results := runBulk(ctx, s.bulkConcurrency, keys, func(ctx context.Context, key string) error {
		i, _ := strconv.Atoi(key)
		recipient := req.Recipients[i]
		n, err := newNotification(req.Channel, recipient.Address, recipient.UserID, models.TemplateCustom, map[string]string{
			"Subject": req.Subject,
			"Body":    req.Body,
		})
		if err != nil {
			return internalError(err, "failed to render notification")
		}
		if err := s.repo.Enqueue(ctx, n); err != nil {
			return internalError(err, "failed to enqueue notification")
		}
		return nil
	})
	for i := range results {
		results[i].ID = req.Recipients[i].Address
	}

	succeeded, failed := dto.CountResults(results)
	s.logger.Info("bulk notification enqueued", zap.String("channel", string(req.Channel)), zap.Int("succeeded", succeeded), zap.Int("failed", failed))
	if succeeded > 0 {
		s.kick()
	}
	return results, nil
}

// MarkDelivered records a provider delivery confirmation. Unknown ids are
// not found; rows that were never sent are a conflict.
func (s *NotificationService) MarkDelivered(ctx context.Context, id string) error {
	err := s.repo.MarkDelivered(ctx, id)
	if err == nil {
		return nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return internalError(err, "failed to mark notification delivered")
	}
	n, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return lookupError(err, "notification not found", "failed to load notification")
	}
	return appErrors.Clone(appErrors.ErrConflict, "notification is "+string(n.Status)+", not sent")
}

// List returns outbox rows for operators.
func (s *NotificationService) List(ctx context.Context, filter models.NotificationFilter, actor models.Actor) ([]models.Notification, *models.Pagination, error) {
	if !actor.Role.Privileged() {
		return nil, nil, appErrors.Clone(appErrors.ErrForbidden, "only administrators can view notifications")
	}
	rows, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, internalError(err, "failed to list notifications")
	}
	return rows, paginationFor(filter.Page, filter.PageSize, total), nil
}

func (s *NotificationService) kick() {
	if s.kicker != nil {
		s.kicker.Kick()
	}
}

type outboxStore interface {
	ClaimDue(ctx context.Context, now time.Time, lease time.Duration, limit int) ([]models.Notification, error)
	MarkSent(ctx context.Context, id string, at time.Time) error
	RecordFailure(ctx context.Context, id, reason string, retryAt time.Time, final bool) error
}

// OutboxDispatcherConfig tunes polling and retries.
type OutboxDispatcherConfig struct {
	PollInterval     time.Duration
	BatchSize        int
	Workers          int
	MaxAttempts      int
	RetryDelay       time.Duration
	Lease            time.Duration
	// InlineRetries bounds the quick in-process retries of a failed send.
	// Once they are used up the row is rescheduled with RetryDelay backoff.
	InlineRetries    int
	InlineRetryDelay time.Duration
}

// OutboxDispatcher claims due notifications and delivers them through a
// worker queue. Delivery failures are recorded on the row and retried on a
// later poll until MaxAttempts is reached.
type OutboxDispatcher struct {
	store     outboxStore
	providers DeliveryProvider
	metrics   *MetricsService
	logger    *zap.Logger
	cfg       OutboxDispatcherConfig
	queue     *jobs.Queue
	kicks     chan struct{}
	now       func() time.Time

	mu      sync.Mutex
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	started bool
}

// NewOutboxDispatcher constructs a dispatcher. Start must be called before it polls.
func NewOutboxDispatcher(store outboxStore, providers DeliveryProvider, metrics *MetricsService, logger *zap.Logger, cfg OutboxDispatcherConfig) *OutboxDispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 10 * time.Second
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 2
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 5
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = 30 * time.Second
	}
	if cfg.Lease <= 0 {
		cfg.Lease = 5 * time.Minute
	}
	if cfg.InlineRetries < 0 {
		cfg.InlineRetries = 0
	}
	if cfg.InlineRetryDelay <= 0 {
		cfg.InlineRetryDelay = 2 * time.Second
	}

	d := &OutboxDispatcher{
		store:     store,
		providers: providers,
		metrics:   metrics,
		logger:    logger.With(zap.String("component", "outbox")),
		cfg:       cfg,
		kicks:     make(chan struct{}, 1),
		now:       time.Now,
	}
	d.queue = jobs.NewQueue("outbox", d.handle, jobs.QueueConfig{
		Workers:    cfg.Workers,
		BufferSize: cfg.BatchSize,
		MaxRetries: cfg.InlineRetries,
		RetryDelay: cfg.InlineRetryDelay,
		OnGiveUp:   d.giveUp,
		Logger:     logger,
	})
	return d
}

// Start launches the worker queue and the poll loop.
func (d *OutboxDispatcher) Start(ctx context.Context) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.started {
		return
	}
	ctx, d.cancel = context.WithCancel(ctx)
	d.queue.Start(ctx)
	d.wg.Add(1)
	go d.loop(ctx)
	d.started = true
}

// Stop halts polling and waits for in-flight deliveries.
func (d *OutboxDispatcher) Stop() {
	d.mu.Lock()
	if !d.started {
		d.mu.Unlock()
		return
	}
	d.cancel()
	d.mu.Unlock()
	d.wg.Wait()
	d.queue.Stop()
}

// Kick requests an immediate poll without waiting for the next tick.
func (d *OutboxDispatcher) Kick() {
	select {
	case d.kicks <- struct{}{}:
	default:
	}
}

// Drain delivers every due notification synchronously and reports how many
// rows were attempted. Used by the operator CLI.
func (d *OutboxDispatcher) Drain(ctx context.Context) (int, error) {
	attempted := 0
	for {
		batch, err := d.claim(ctx, d.cfg.BatchSize)
		if err != nil {
			return attempted, err
		}
		if len(batch) == 0 {
			return attempted, nil
		}
		for i := range batch {
			if err := d.send(ctx, &batch[i]); err != nil {
				d.recordFailure(ctx, &batch[i], err)
			}
		}
		attempted += len(batch)
	}
}

func (d *OutboxDispatcher) loop(ctx context.Context) {
	defer d.wg.Done()
	ticker := time.NewTicker(d.cfg.PollInterval)
	defer ticker.Stop()

	for {
		d.poll(ctx)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		case <-d.kicks:
		}
	}
}

// poll claims only as many rows as the queue buffer can take, so a backed up
// queue never blocks the loop or leases rows nobody will work on.
func (d *OutboxDispatcher) poll(ctx context.Context) {
	free := d.cfg.BatchSize - d.queue.Depth()
	if free <= 0 {
		return
	}
	batch, err := d.claim(ctx, free)
	if err != nil {
		if ctx.Err() == nil {
			d.logger.Warn("failed to claim notifications", zap.Error(err))
		}
		return
	}
	for i, n := range batch {
		err := d.queue.TryEnqueue(jobs.Job{ID: n.ID, Type: string(n.Channel), Payload: n})
		if err == nil {
			continue
		}
		// The lease expires and a later poll reclaims the rest of the batch.
		if errors.Is(err, jobs.ErrQueueFull) {
			d.logger.Debug("outbox queue full", zap.Int("deferred", len(batch)-i))
		} else {
			d.logger.Warn("failed to queue notification", zap.String("notification_id", n.ID), zap.Error(err))
		}
		return
	}
}

func (d *OutboxDispatcher) claim(ctx context.Context, limit int) ([]models.Notification, error) {
	start := time.Now()
	batch, err := d.store.ClaimDue(ctx, d.now().UTC(), d.cfg.Lease, limit)
	d.metrics.ObserveDBQuery("outbox_claim", time.Since(start))
	return batch, err
}

func (d *OutboxDispatcher) handle(ctx context.Context, job jobs.Job) error {
	n, ok := job.Payload.(models.Notification)
	if !ok {
		d.logger.Error("unexpected outbox payload", zap.String("job_id", job.ID))
		return nil
	}
	return d.send(ctx, &n)
}

// giveUp runs once the queue has used up its inline retries for a job.
func (d *OutboxDispatcher) giveUp(ctx context.Context, job jobs.Job, err error) {
	n, ok := job.Payload.(models.Notification)
	if !ok {
		return
	}
	d.recordFailure(ctx, &n, err)
}

// send hands n to its provider and marks the row sent on success.
func (d *OutboxDispatcher) send(ctx context.Context, n *models.Notification) error {
	if err := d.providers.Deliver(ctx, n); err != nil {
		return err
	}
	if err := d.store.MarkSent(ctx, n.ID, d.now().UTC()); err != nil {
		d.logger.Warn("failed to mark notification sent", zap.String("notification_id", n.ID), zap.Error(err))
	}
	d.metrics.RecordOutboxDelivery(string(n.Channel), string(models.NotificationSent))
	return nil
}

func (d *OutboxDispatcher) recordFailure(ctx context.Context, n *models.Notification, sendErr error) {
	log := d.logger.With(zap.String("notification_id", n.ID), zap.String("channel", string(n.Channel)))

	attempts := n.Attempts + 1
	final := attempts >= d.cfg.MaxAttempts
	retryAt := d.now().UTC().Add(d.cfg.RetryDelay * time.Duration(attempts))
	if err := d.store.RecordFailure(ctx, n.ID, sendErr.Error(), retryAt, final); err != nil {
		log.Warn("failed to record notification failure", zap.Error(err))
	}
	if final {
		log.Error("notification delivery abandoned", zap.Int("attempts", attempts), zap.Error(sendErr))
		d.metrics.RecordOutboxDelivery(string(n.Channel), string(models.NotificationFailed))
		return
	}
	log.Warn("notification delivery failed", zap.Int("attempts", attempts), zap.Time("retry_at", retryAt), zap.Error(sendErr))
	d.metrics.RecordOutboxDelivery(string(n.Channel), "retry")
}
