package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/kursadbilgin/message-dispatcher/internal/domain"
)

const defaultWebhookTimeout = 10 * time.Second

type webhookRequest struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

type webhookResponse struct {
	MessageID string `json:"messageId"`
}

// WebhookProvider delivers messages by POSTing JSON to an HTTP gateway.
type WebhookProvider struct {
	name     string
	client   *resty.Client
	endpoint string
}

func NewWebhookProvider(name, endpoint string) (*WebhookProvider, error) {
	client := resty.New()
	client.SetTimeout(defaultWebhookTimeout)
	client.SetRetryCount(0)

	return NewWebhookProviderWithClient(name, endpoint, client)
}

func NewWebhookProviderWithClient(name, endpoint string, client *resty.Client) (*WebhookProvider, error) {
	trimmedEndpoint := strings.TrimSpace(endpoint)
	if trimmedEndpoint == "" {
		return nil, fmt.Errorf("webhook endpoint is required")
	}
	if _, err := url.ParseRequestURI(trimmedEndpoint); err != nil {
		return nil, fmt.Errorf("invalid webhook endpoint: %w", err)
	}
	if client == nil {
		return nil, fmt.Errorf("resty client is required")
	}

	if client.GetClient().Timeout == 0 {
		client.SetTimeout(defaultWebhookTimeout)
	}
	// Retries belong to the dispatcher.
	client.SetRetryCount(0)

	if strings.TrimSpace(name) == "" {
		name = trimmedEndpoint
	}

	return &WebhookProvider{
		name:     name,
		client:   client,
		endpoint: trimmedEndpoint,
	}, nil
}

func (p *WebhookProvider) Name() string { return p.name }

func (p *WebhookProvider) Send(ctx context.Context, msg domain.Message) (*Receipt, error) {
	if p == nil || p.client == nil {
		return nil, fmt.Errorf("provider is not initialized")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	response, err := p.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(webhookRequest{
			To:      msg.Recipient,
			Subject: msg.Subject,
			Body:    msg.Body,
		}).
		Post(p.endpoint)
	if err != nil {
		return nil, &ProviderError{
			Provider:  p.name,
			Message:   "provider request failed",
			Transient: !errors.Is(err, context.Canceled),
			Cause:     err,
		}
	}
	if response == nil {
		return nil, &ProviderError{
			Provider:  p.name,
			Message:   "provider returned empty response",
			Transient: true,
		}
	}

	statusCode := response.StatusCode()
	responseBody := strings.TrimSpace(response.String())

	if statusCode >= http.StatusOK && statusCode < http.StatusMultipleChoices {
		return &Receipt{
			MessageID:  providerMessageID(response),
			Provider:   p.name,
			StatusCode: statusCode,
			Body:       responseBody,
		}, nil
	}

	return nil, &ProviderError{
		Provider:   p.name,
		StatusCode: statusCode,
		Message:    providerErrorMessage(statusCode, responseBody),
		Transient:  isTransientHTTPStatus(statusCode),
	}
}

func isTransientHTTPStatus(statusCode int) bool {
	return statusCode == http.StatusTooManyRequests || (statusCode >= http.StatusInternalServerError && statusCode <= 599)
}

func providerErrorMessage(statusCode int, body string) string {
	base := fmt.Sprintf("provider returned status %d", statusCode)
	if body == "" {
		return base
	}
	return fmt.Sprintf("%s: %s", base, body)
}

// providerMessageID prefers a messageId field in the JSON body and falls back
// to request id headers.
func providerMessageID(response *resty.Response) string {
	if response == nil {
		return ""
	}

	var decoded webhookResponse
	if err := json.Unmarshal(response.Body(), &decoded); err == nil {
		if id := strings.TrimSpace(decoded.MessageID); id != "" {
			return id
		}
	}

	for _, key := range []string{"X-Message-ID", "X-Request-ID", "X-Correlation-ID"} {
		if value := strings.TrimSpace(response.Header().Get(key)); value != "" {
			return value
		}
	}

	return ""
}
