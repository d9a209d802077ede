package service

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
	"go.uber.org/zap"

	"github.com/noah-isme/foundation-api/internal/models"
	"github.com/noah-isme/foundation-api/pkg/config"
)

const (
	providerLog      = "log"
	providerSendGrid = "sendgrid"
	providerTwilio   = "twilio"

	sendGridHost     = "https://api.sendgrid.com"
	sendGridEndpoint = "/v3/mail/send"
)

// DeliveryProvider hands a rendered notification to an external channel.
type DeliveryProvider interface {
	Deliver(ctx context.Context, n *models.Notification) error
}

// DeliveryProviders routes outbox rows to the provider of their channel.
type DeliveryProviders map[models.NotificationChannel]DeliveryProvider

// NewDeliveryProviders builds the email and SMS providers named in cfg.
func NewDeliveryProviders(cfg config.NotificationsConfig, logger *zap.Logger) (DeliveryProviders, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	providers := DeliveryProviders{}

	switch strings.ToLower(cfg.EmailProvider) {
	case "", providerLog:
		providers[models.ChannelEmail] = NewLogProvider(logger)
	case providerSendGrid:
		if cfg.SendGridKey == "" {
			return nil, fmt.Errorf("sendgrid provider requires SENDGRID_API_KEY")
		}
		providers[models.ChannelEmail] = NewSendGridProvider(cfg.SendGridKey, cfg.FromName, cfg.FromEmail)
	default:
		return nil, fmt.Errorf("unknown email provider %q", cfg.EmailProvider)
	}

	switch strings.ToLower(cfg.SMSProvider) {
	case "", providerLog:
		providers[models.ChannelSMS] = NewLogProvider(logger)
	case providerTwilio:
		if cfg.TwilioSID == "" || cfg.TwilioToken == "" || cfg.TwilioFrom == "" {
			return nil, fmt.Errorf("twilio provider requires account sid, auth token and from number")
		}
		providers[models.ChannelSMS] = NewTwilioProvider(cfg.TwilioSID, cfg.TwilioToken, cfg.TwilioFrom)
	default:
		return nil, fmt.Errorf("unknown sms provider %q", cfg.SMSProvider)
	}

	return providers, nil
}

// Deliver sends n through the provider registered for its channel.
func (p DeliveryProviders) Deliver(ctx context.Context, n *models.Notification) error {
	provider, ok := p[n.Channel]
	if !ok {
		return fmt.Errorf("no provider for channel %q", n.Channel)
	}
	return provider.Deliver(ctx, n)
}

// LogProvider writes notifications to the log instead of sending them.
type LogProvider struct {
	logger *zap.Logger
}

// NewLogProvider constructs a LogProvider.
func NewLogProvider(logger *zap.Logger) *LogProvider {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogProvider{logger: logger}
}

// Deliver logs the notification.
func (p *LogProvider) Deliver(_ context.Context, n *models.Notification) error {
	p.logger.Info("notification delivered to log",
		zap.String("notification_id", n.ID),
		zap.String("channel", string(n.Channel)),
		zap.String("recipient", n.Recipient),
		zap.String("subject", n.Subject),
	)
	return nil
}

// SendGridProvider delivers email through the SendGrid v3 API.
type SendGridProvider struct {
	key  string
	host string
	from *sgmail.Email
}

// NewSendGridProvider constructs a SendGrid email provider.
func NewSendGridProvider(key, fromName, fromEmail string) *SendGridProvider {
	return &SendGridProvider{key: key, host: sendGridHost, from: sgmail.NewEmail(fromName, fromEmail)}
}

// Deliver posts one plain-text message.
func (p *SendGridProvider) Deliver(_ context.Context, n *models.Notification) error {
	personalization := sgmail.NewPersonalization()
	personalization.Subject = n.Subject
	personalization.AddTos(sgmail.NewEmail("", n.Recipient))

	m := sgmail.NewV3Mail()
	m.SetFrom(p.from)
	m.AddPersonalizations(personalization)
	m.AddContent(sgmail.NewContent("text/plain", n.Body))

	req := sendgrid.GetRequest(p.key, sendGridEndpoint, p.host)
	req.Method = http.MethodPost
	req.Body = sgmail.GetRequestBody(m)

	res, err := sendgrid.API(req)
	if err != nil {
		return fmt.Errorf("sendgrid request: %w", err)
	}
	if res.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("sendgrid responded %d: %s", res.StatusCode, res.Body)
	}
	return nil
}

// TwilioProvider delivers SMS through the Twilio messages API.
type TwilioProvider struct {
	client *twilio.RestClient
	from   string
}

// NewTwilioProvider constructs a Twilio SMS provider.
func NewTwilioProvider(accountSID, authToken, from string) *TwilioProvider {
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: accountSID,
		Password: authToken,
	})
	return &TwilioProvider{client: client, from: from}
}

// Deliver sends the notification body as one SMS.
func (p *TwilioProvider) Deliver(_ context.Context, n *models.Notification) error {
	params := &twilioApi.CreateMessageParams{}
	params.SetTo(n.Recipient)
	params.SetFrom(p.from)
	params.SetBody(n.Body)

	if _, err := p.client.Api.CreateMessage(params); err != nil {
		return fmt.Errorf("twilio create message: %w", err)
	}
	return nil
}
