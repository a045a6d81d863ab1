package alerts

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"

	"github.com/sudo-init-do/servicehub/internal/config"
)

// SMSSender delivers a text message.
type SMSSender interface {
	SendSMS(ctx context.Context, to, body string) error
}

// NewSMSSender returns a Twilio sender, or a logging sender when Twilio
// credentials are missing.
func NewSMSSender(cfg config.TwilioConfig) SMSSender {
	if cfg.AccountSID == "" || cfg.AuthToken == "" || cfg.FromNumber == "" {
		return LogSMS{}
	}
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: cfg.AccountSID,
		Password: cfg.AuthToken,
	})
	return &TwilioSMS{client: client, from: cfg.FromNumber, countryCode: cfg.CountryCode}
}

type LogSMS struct{}

func (LogSMS) SendSMS(_ context.Context, to, body string) error {
	log.Printf("[notify] sms -> to=%s body=%q", to, body)
	return nil
}

type TwilioSMS struct {
	client      *twilio.RestClient
	from        string
	countryCode string
}

func (s *TwilioSMS) SendSMS(_ context.Context, to, body string) error {
	params := &twilioApi.CreateMessageParams{}
	params.SetTo(E164(to, s.countryCode))
	params.SetFrom(s.from)
	params.SetBody(body)

	resp, err := s.client.Api.CreateMessage(params)
	if err != nil {
		return fmt.Errorf("twilio: %w", err)
	}
	if resp.Sid != nil {
		log.Printf("[notify] sms sent -> sid=%s", *resp.Sid)
	}
	return nil
}

// E164 prefixes a local 8-digit number with the country code. Numbers that
// already carry a leading + are returned unchanged.
func E164(phone, countryCode string) string {
	phone = strings.TrimSpace(phone)
	if strings.HasPrefix(phone, "+") {
		return phone
	}
	if !strings.HasPrefix(countryCode, "+") {
		countryCode = "+" + countryCode
	}
	return countryCode + phone
}
