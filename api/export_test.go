package api

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus/hooks/test"
)

func newExportServer(hook Forwarder, auth Authenticator) *echo.Echo {
	e := echo.New()
	logger, _ := test.NewNullLogger()
	Register(e, &fakeBoard{}, nil, nil, auth, hook, logger)
	return e
}

func TestExportBacklogPassesThroughUpstreamResponse(t *testing.T) {
	var received backlogExportRequest
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		if err := sonic.Unmarshal(body, &received); err != nil {
			t.Errorf("upstream got invalid json: %v", err)
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"ok":true,"jobId":"42"}`))
	}))
	defer upstream.Close()

	logger, _ := test.NewNullLogger()
	hook := NewWebhookClient(upstream.URL, 2*time.Second, logger)
	e := newExportServer(hook, stubAuth{err: errMissingAuthorization})

	rec := doJSON(e, http.MethodPost, "/api/export/backlog",
		`{"to":"ana@example.com","column":"Hecho","mensaje":"backlog semanal"}`, "")

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	if rec.Body.String() != `{"ok":true,"jobId":"42"}` {
		t.Fatalf("upstream body not passed through: %s", rec.Body.String())
	}
	if received.To != "ana@example.com" || received.Column != "Hecho" {
		t.Fatalf("payload not forwarded: %+v", received)
	}
}

func TestExportBacklogReportsUpstreamErrorVerbatim(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("workflow exploded"))
	}))
	defer upstream.Close()

	logger, _ := test.NewNullLogger()
	hook := NewWebhookClient(upstream.URL, 2*time.Second, logger)
	e := newExportServer(hook, stubAuth{err: errMissingAuthorization})

	rec := doJSON(e, http.MethodPost, "/api/export/backlog", `{}`, "")

	if rec.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", rec.Code)
	}
	var ge gatewayError
	if err := sonic.Unmarshal(rec.Body.Bytes(), &ge); err != nil {
		t.Fatalf("decode gateway error: %v", err)
	}
	if ge.Error != "workflow exploded" {
		t.Fatalf("upstream body lost: %+v", ge)
	}
}

func TestExportBacklogUnreachableUpstream(t *testing.T) {
	logger, _ := test.NewNullLogger()
	hook := NewWebhookClient("http://127.0.0.1:1", 200*time.Millisecond, logger)
	e := newExportServer(hook, stubAuth{err: errMissingAuthorization})

	rec := doJSON(e, http.MethodPost, "/api/export/backlog", `{}`, "")

	if rec.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", rec.Code)
	}
	var ge gatewayError
	if err := sonic.Unmarshal(rec.Body.Bytes(), &ge); err != nil {
		t.Fatalf("decode gateway error: %v", err)
	}
	if ge.Message != "export workflow unreachable" {
		t.Fatalf("unexpected message: %+v", ge)
	}
}

func TestExportEmailRequiresAuth(t *testing.T) {
	e := newExportServer(nil, stubAuth{err: errMissingAuthorization})

	rec := doJSON(e, http.MethodPost, "/api/tareas/export-email", "", "")

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestExportEmailSubmitsJobForCaller(t *testing.T) {
	var job emailExportJob
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		if err := sonic.Unmarshal(body, &job); err != nil {
			t.Errorf("upstream got invalid json: %v", err)
		}
		_, _ = w.Write([]byte(`{"queued":true}`))
	}))
	defer upstream.Close()

	logger, _ := test.NewNullLogger()
	hook := NewWebhookClient(upstream.URL, 2*time.Second, logger)
	e := newExportServer(hook, stubAuth{identity: Identity{UserID: "u1", Email: "ana@example.com"}})

	rec := doJSON(e, http.MethodPost, "/api/tareas/export-email", "", "Bearer a.b.c")

	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202: %s", rec.Code, rec.Body.String())
	}
	if job.Email != "ana@example.com" || job.Type != "backlog-export" {
		t.Fatalf("job payload wrong: %+v", job)
	}
}
