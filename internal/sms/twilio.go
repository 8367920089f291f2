package sms

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

const twilioBaseURL = "https://api.twilio.com/2010-04-01"

// TwilioSender delivers messages through the Twilio Messages REST API.
type TwilioSender struct {
	accountSID string
	authToken  string
	from       string
	client     *http.Client
}

// NewTwilioSender builds a Twilio-backed sender. The http.Client controls the
// request timeout; callers additionally bound each Send with a context.
func NewTwilioSender(accountSID, authToken, from string, client *http.Client) (*TwilioSender, error) {
	if accountSID == "" || authToken == "" || from == "" {
		return nil, fmt.Errorf("twilio account sid, auth token and from number are required")
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &TwilioSender{accountSID: accountSID, authToken: authToken, from: from, client: client}, nil
}

// Send posts the message to Twilio.
func (s *TwilioSender) Send(ctx context.Context, phone, body string) error {
	form := url.Values{}
	form.Set("To", phone)
	form.Set("From", s.from)
	form.Set("Body", body)

	endpoint := fmt.Sprintf("%s/Accounts/%s/Messages.json", twilioBaseURL, s.accountSID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("build twilio request: %w", err)
	}
	req.SetBasicAuth(s.accountSID, s.authToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("twilio request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("twilio responded %d: %s", resp.StatusCode, strings.TrimSpace(string(payload)))
	}
	return nil
}
