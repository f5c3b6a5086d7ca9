package handler

import (
	"bytes"
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/kursadbilgin/message-dispatcher/internal/domain"
	"github.com/kursadbilgin/message-dispatcher/internal/transport"
	"go.uber.org/zap"
)

type stubDispatcher struct {
	dispatchFn func(ctx context.Context, msg domain.Message) (domain.Result, error)
}

func (s *stubDispatcher) Dispatch(ctx context.Context, msg domain.Message) (domain.Result, error) {
	return s.dispatchFn(ctx, msg)
}

func newDispatchTestApp(t *testing.T, dispatcher Dispatcher) *fiber.App {
	t.Helper()

	app := fiber.New(fiber.Config{
		ErrorHandler: transport.ErrorHandler(zap.NewNop()),
	})

	if err := RegisterDispatchRoutes(app, dispatcher); err != nil {
		t.Fatalf("RegisterDispatchRoutes() error = %v", err)
	}

	return app
}

func performRequest(t *testing.T, app *fiber.App, method string, path string, body string, headers ...string) (*http.Response, []byte) {
	t.Helper()

	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test() error = %v", err)
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read response body: %v", err)
	}
	_ = resp.Body.Close()

	return resp, respBody
}

type stubConnector struct {
	pingErr error
}

func (c stubConnector) Connect(context.Context) (driver.Conn, error) {
	return stubConn(c), nil
}

func (c stubConnector) Driver() driver.Driver {
	return stubDriver(c)
}

type stubDriver struct {
	pingErr error
}

func (d stubDriver) Open(string) (driver.Conn, error) {
	return stubConn(d), nil
}

type stubConn struct {
	pingErr error
}

func (c stubConn) Prepare(string) (driver.Stmt, error) { return nil, errors.New("not implemented") }
func (c stubConn) Close() error                        { return nil }
func (c stubConn) Begin() (driver.Tx, error)           { return nil, errors.New("not implemented") }
func (c stubConn) Ping(context.Context) error          { return c.pingErr }

func newStubSQLDB(t *testing.T, pingErr error) *sql.DB {
	t.Helper()

	db := sql.OpenDB(stubConnector{pingErr: pingErr})
	t.Cleanup(func() { _ = db.Close() })
	return db
}

type stubBroker struct {
	healthy bool
}

func (b stubBroker) Healthy() bool { return b.healthy }
