package notify

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"akshaya-auth/internal/config"
	"akshaya-auth/internal/util"
)

const messageTemplate = "Your Akshaya E-Services verification code is: %s. Valid for 5 minutes."

// Notifier delivers a one-time code out of band. Delivery runs after the
// challenge is already stored; failures are logged, never surfaced to the
// requesting client.
type Notifier interface {
	Send(ctx context.Context, phone, code string) error
}

// NewNotifier selects the SMS gateway when credentials are configured and
// the dev notifier otherwise.
func NewNotifier(cfg config.SMSConfig) Notifier {
	if cfg.AccountSID != "" && cfg.AuthToken != "" && cfg.FromNumber != "" {
		return NewTwilioNotifier(cfg)
	}
	util.Warn("SMS credentials not configured, OTP codes will be logged instead")
	return &DevNotifier{}
}

// TwilioNotifier sends the code through the Twilio Messages API.
type TwilioNotifier struct {
	accountSID string
	authToken  string
	fromNumber string
	baseURL    string
	client     *http.Client
}

func NewTwilioNotifier(cfg config.SMSConfig) *TwilioNotifier {
	return &TwilioNotifier{
		accountSID: cfg.AccountSID,
		authToken:  cfg.AuthToken,
		fromNumber: cfg.FromNumber,
		baseURL:    cfg.APIBaseURL,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

func (n *TwilioNotifier) Send(ctx context.Context, phone, code string) error {
	form := url.Values{}
	form.Set("To", phone)
	form.Set("From", n.fromNumber)
	form.Set("Body", fmt.Sprintf(messageTemplate, code))

	endpoint := fmt.Sprintf("%s/Accounts/%s/Messages.json", n.baseURL, n.accountSID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("failed to build sms request: %w", err)
	}
	req.SetBasicAuth(n.accountSID, n.authToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("sms gateway request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("sms gateway returned %d: %s", resp.StatusCode, string(body))
	}

	util.Debug("SMS dispatched", zap.String("phone", MaskPhone(phone)))
	return nil
}

// DevNotifier logs the code instead of sending it. Development only.
type DevNotifier struct{}

func (n *DevNotifier) Send(_ context.Context, phone, code string) error {
	util.Info("OTP code issued (dev mode)",
		zap.String("phone", MaskPhone(phone)),
		zap.String("code", code))
	return nil
}

// MaskPhone keeps the last four digits for log correlation.
func MaskPhone(phone string) string {
	if len(phone) <= 4 {
		return "****"
	}
	return strings.Repeat("*", len(phone)-4) + phone[len(phone)-4:]
}
