package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/kursadbilgin/message-dispatcher/internal/dispatcher"
	"github.com/kursadbilgin/message-dispatcher/internal/domain"
	"github.com/kursadbilgin/message-dispatcher/internal/observability"
	"github.com/kursadbilgin/message-dispatcher/internal/provider"
	"github.com/kursadbilgin/message-dispatcher/internal/transport"
	"go.uber.org/zap"
)

func TestSendMessage(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name       string
		body       string
		result     domain.Result
		err        error
		wantStatus int
		wantBody   map[string]any
	}{
		{
			name:       "success",
			body:       `{"to":"user@example.com","subject":"Welcome","body":"hi"}`,
			result:     domain.SuccessResult(1, "FastProvider-1700000000000"),
			wantStatus: fiber.StatusOK,
			wantBody:   map[string]any{"status": "success", "providerId": float64(1), "messageId": "FastProvider-1700000000000"},
		},
		{
			name:       "delivery failed",
			body:       `{"to":"user@example.com","subject":"Welcome","body":"hi"}`,
			result:     domain.FailedResult(fmt.Errorf("%w after 3 attempts", domain.ErrAllProvidersFailed)),
			wantStatus: fiber.StatusBadGateway,
			wantBody:   map[string]any{"status": "failed", "error": "all providers failed after 3 attempts"},
		},
		{
			name:       "duplicate",
			body:       `{"to":"user@example.com","subject":"Welcome","body":"hi"}`,
			err:        fmt.Errorf("%w: user@example.com_Welcome_1", domain.ErrDuplicateMessage),
			wantStatus: fiber.StatusConflict,
		},
		{
			name:       "rate limited",
			body:       `{"to":"user@example.com","subject":"Welcome","body":"hi"}`,
			err:        fmt.Errorf("%w: 10 per 1m0s", domain.ErrRateLimitExceeded),
			wantStatus: fiber.StatusTooManyRequests,
		},
		{
			name:       "validation",
			body:       `{"subject":"Welcome"}`,
			err:        fmt.Errorf("%w: recipient is required", domain.ErrValidation),
			wantStatus: fiber.StatusBadRequest,
		},
		{
			name:       "malformed body",
			body:       `{"to":`,
			wantStatus: fiber.StatusBadRequest,
		},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			stub := &stubDispatcher{
				dispatchFn: func(ctx context.Context, msg domain.Message) (domain.Result, error) {
					return tc.result, tc.err
				},
			}

			resp, body := performRequest(t, newDispatchTestApp(t, stub), http.MethodPost, "/v1/messages", tc.body)
			if resp.StatusCode != tc.wantStatus {
				t.Fatalf("status = %d, want %d, body=%s", resp.StatusCode, tc.wantStatus, string(body))
			}
			if tc.wantBody == nil {
				return
			}

			var got map[string]any
			if err := json.Unmarshal(body, &got); err != nil {
				t.Fatalf("json unmarshal error = %v", err)
			}
			for key, want := range tc.wantBody {
				if got[key] != want {
					t.Fatalf("%s = %v, want %v (body=%s)", key, got[key], want, string(body))
				}
			}
		})
	}
}

func TestSendMessageCorrelationID(t *testing.T) {
	t.Parallel()

	var seen string
	stub := &stubDispatcher{
		dispatchFn: func(ctx context.Context, msg domain.Message) (domain.Result, error) {
			seen, _ = observability.CorrelationIDFromContext(ctx)
			if msg.Recipient != "user@example.com" {
				t.Errorf("recipient = %q, want trimmed address", msg.Recipient)
			}
			return domain.SuccessResult(0, "id"), nil
		},
	}

	app := newDispatchTestApp(t, stub)

	resp, _ := performRequest(t, app, http.MethodPost, "/v1/messages",
		`{"to":" user@example.com ","subject":"s","body":"b"}`,
		headerCorrelationID, "corr-123",
	)
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if seen != "corr-123" {
		t.Fatalf("correlation id in context = %q, want corr-123", seen)
	}
	if got := resp.Header.Get(headerCorrelationID); got != "corr-123" {
		t.Fatalf("response correlation header = %q, want corr-123", got)
	}

	resp, _ = performRequest(t, app, http.MethodPost, "/v1/messages", `{"to":"user@example.com","subject":"s","body":"b"}`)
	if resp.Header.Get(headerCorrelationID) == "" {
		t.Fatal("expected a generated correlation id")
	}
}

func TestRegisterDispatchRoutesRequiresDispatcher(t *testing.T) {
	t.Parallel()

	if err := RegisterDispatchRoutes(fiber.New(), nil); err == nil {
		t.Fatal("expected error for nil dispatcher")
	}
}

func TestSendMessageIntegration(t *testing.T) {
	t.Parallel()

	d, err := dispatcher.New(
		[]provider.Provider{
			provider.NewMockProvider("FailingProvider", 0),
			provider.NewMockProvider("WorkingProvider", 1),
		},
		dispatcher.Config{MaxRetries: 3, BaseDelay: time.Millisecond, RateLimitPerMinute: 2},
	)
	if err != nil {
		t.Fatalf("dispatcher.New() error = %v", err)
	}

	app := newDispatchTestApp(t, d)

	resp, body := performRequest(t, app, http.MethodPost, "/v1/messages", `{"to":"a@example.com","subject":"one","body":"b"}`)
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d, want 200, body=%s", resp.StatusCode, string(body))
	}

	var result map[string]any
	if err := json.Unmarshal(body, &result); err != nil {
		t.Fatalf("json unmarshal error = %v", err)
	}
	if result["providerId"] != float64(1) {
		t.Fatalf("providerId = %v, want 1", result["providerId"])
	}

	resp, _ = performRequest(t, app, http.MethodPost, "/v1/messages", `{"to":"b@example.com","subject":"two","body":"b"}`)
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("second status = %d, want 200", resp.StatusCode)
	}

	resp, _ = performRequest(t, app, http.MethodPost, "/v1/messages", `{"to":"c@example.com","subject":"three","body":"b"}`)
	if resp.StatusCode != fiber.StatusTooManyRequests {
		t.Fatalf("third status = %d, want 429", resp.StatusCode)
	}
}

func TestSendMessageHTTPMetricsUseResponseStatus(t *testing.T) {
	t.Parallel()

	outcomes := map[string]struct {
		result domain.Result
		err    error
	}{
		"dup@example.com":     {err: fmt.Errorf("%w: dup", domain.ErrDuplicateMessage)},
		"limited@example.com": {err: fmt.Errorf("%w: 10 per 1m0s", domain.ErrRateLimitExceeded)},
		"":                    {err: fmt.Errorf("%w: recipient is required", domain.ErrValidation)},
		"down@example.com":    {result: domain.FailedResult(domain.ErrAllProvidersFailed)},
		"ok@example.com":      {result: domain.SuccessResult(0, "receipt")},
	}

	stub := &stubDispatcher{
		dispatchFn: func(ctx context.Context, msg domain.Message) (domain.Result, error) {
			outcome := outcomes[msg.Recipient]
			return outcome.result, outcome.err
		},
	}

	metrics := observability.NewMetrics()
	app := fiber.New(fiber.Config{ErrorHandler: transport.ErrorHandler(zap.NewNop())})
	app.Use(metrics.HTTPMiddleware())
	if err := RegisterDispatchRoutes(app, stub); err != nil {
		t.Fatalf("RegisterDispatchRoutes() error = %v", err)
	}

	wantStatus := map[string]int{
		"dup@example.com":     fiber.StatusConflict,
		"limited@example.com": fiber.StatusTooManyRequests,
		"":                    fiber.StatusBadRequest,
		"down@example.com":    fiber.StatusBadGateway,
		"ok@example.com":      fiber.StatusOK,
	}
	for recipient, want := range wantStatus {
		resp, body := performRequest(t, app, http.MethodPost, "/v1/messages", fmt.Sprintf(`{"to":%q,"subject":"s","body":"b"}`, recipient))
		if resp.StatusCode != want {
			t.Fatalf("recipient %q status = %d, want %d, body=%s", recipient, resp.StatusCode, want, string(body))
		}
	}

	recorder := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	exposition := recorder.Body.String()

	for _, status := range []string{"400", "409", "429", "502", "200"} {
		series := fmt.Sprintf(`message_dispatcher_http_requests_total{method="POST",path="/v1/messages",status="%s"} 1`, status)
		if !strings.Contains(exposition, series) {
			t.Fatalf("missing series %s in:\n%s", series, exposition)
		}
	}
	if strings.Contains(exposition, `path="/v1/messages",status="500"`) {
		t.Fatalf("admission rejections must not be counted as 500:\n%s", exposition)
	}
}

func TestSendMessageEchoesMessageID(t *testing.T) {
	t.Parallel()

	stub := &stubDispatcher{
		dispatchFn: func(ctx context.Context, msg domain.Message) (domain.Result, error) {
			result := domain.SuccessResult(0, "receipt")
			result.ID = domain.MessageID("user@example.com_Welcome_1700000000000")
			return result, nil
		},
	}

	resp, body := performRequest(t, newDispatchTestApp(t, stub), http.MethodPost, "/v1/messages", `{"to":"user@example.com","subject":"Welcome","body":"b"}`)
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d, want 200, body=%s", resp.StatusCode, string(body))
	}
	if got := resp.Header.Get(headerMessageID); got != "user@example.com_Welcome_1700000000000" {
		t.Fatalf("X-Message-ID = %q", got)
	}
}
