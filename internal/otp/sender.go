package otp

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bytedance/sonic"
)

// EmailSender delivers a verification code to an email address.
type EmailSender interface {
	SendEmailOTP(ctx context.Context, email, code string) error
}

// SMSSender delivers a verification code to a phone number.
type SMSSender interface {
	SendSMSOTP(ctx context.Context, phone, code string) error
}

const senderTimeout = 10 * time.Second

// SendGridSender sends verification emails through the SendGrid v3 API.
type SendGridSender struct {
	apiKey    string
	fromEmail string
	fromName  string
	client    *http.Client
}

func NewSendGridSender(apiKey, fromEmail, fromName string) *SendGridSender {
	return &SendGridSender{
		apiKey:    apiKey,
		fromEmail: fromEmail,
		fromName:  fromName,
		client:    &http.Client{Timeout: senderTimeout},
	}
}

func (s *SendGridSender) SendEmailOTP(ctx context.Context, email, code string) error {
	payload := map[string]any{
		"personalizations": []map[string]any{
			{"to": []map[string]string{{"email": email}}},
		},
		"from":    map[string]string{"email": s.fromEmail, "name": s.fromName},
		"subject": "Your verification code",
		"content": []map[string]string{
			{
				"type":  "text/plain",
				"value": fmt.Sprintf("Your verification code is %s. It expires in 5 minutes.", code),
			},
		},
	}
	body, err := sonic.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode email payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		"https://api.sendgrid.com/v3/mail/send", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build email request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("email send rejected: status %d", resp.StatusCode)
	}
	return nil
}

// TwilioSender sends verification texts through the Twilio Messages API.
type TwilioSender struct {
	accountSID string
	authToken  string
	fromNumber string
	client     *http.Client
}

func NewTwilioSender(accountSID, authToken, fromNumber string) *TwilioSender {
	return &TwilioSender{
		accountSID: accountSID,
		authToken:  authToken,
		fromNumber: fromNumber,
		client:     &http.Client{Timeout: senderTimeout},
	}
}

func (s *TwilioSender) SendSMSOTP(ctx context.Context, phone, code string) error {
	form := url.Values{}
	form.Set("To", phone)
	form.Set("From", s.fromNumber)
	form.Set("Body", fmt.Sprintf("Your verification code is %s. It expires in 2 minutes.", code))

	endpoint := fmt.Sprintf("https://api.twilio.com/2010-04-01/Accounts/%s/Messages.json", s.accountSID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint,
		strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("failed to build sms request: %w", err)
	}
	req.SetBasicAuth(s.accountSID, s.authToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send sms: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("sms send rejected: status %d", resp.StatusCode)
	}
	return nil
}
