package api

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"time"

	"github.com/bytedance/sonic"
	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"
)

const webhookResponseMaxSize = 256 * 1024 // 256 KiB

// WebhookClient posts export jobs to the external automation workflow.
type WebhookClient struct {
	url    string
	client *http.Client
	log    *log.Logger
}

// NewWebhookClient creates a client for the workflow webhook URL.
func NewWebhookClient(url string, timeout time.Duration, logger *log.Logger) *WebhookClient {
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &WebhookClient{url: url, client: &http.Client{Timeout: timeout}, log: logger}
}

// Forward posts the payload and returns the upstream status and body. The
// body is passed back verbatim for diagnosability.
func (w *WebhookClient) Forward(ctx context.Context, payload any) (int, []byte, error) {
	data, err := sonic.Marshal(payload)
	if err != nil {
		return 0, nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(data))
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)

	resp, err := w.client.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, webhookResponseMaxSize))
	if err != nil {
		return resp.StatusCode, nil, err
	}
	return resp.StatusCode, body, nil
}

type backlogExportRequest struct {
	To      string   `json:"to,omitempty"`
	Column  string   `json:"column,omitempty"`
	Fields  []string `json:"fields,omitempty"`
	Message string   `json:"mensaje,omitempty"`
}

type gatewayError struct {
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
}

func exportBacklog(hook Forwarder) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req backlogExportRequest
		dec := sonic.ConfigStd.NewDecoder(io.LimitReader(c.Request().Body, taskBodyMaxSize))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil && err != io.EOF {
			return c.String(http.StatusBadRequest, "invalid body")
		}

		status, body, err := hook.Forward(c.Request().Context(), req)
		if err != nil {
			return c.JSON(http.StatusBadGateway, gatewayError{Message: "export workflow unreachable", Error: err.Error()})
		}
		if status < 200 || status >= 300 {
			return c.JSON(http.StatusBadGateway, gatewayError{Message: "export workflow error", Error: string(body)})
		}
		return c.Blob(status, echo.MIMEApplicationJSON, body)
	}
}

type emailExportJob struct {
	Email string `json:"email"`
	Type  string `json:"tipo"`
}

func exportEmail(hook Forwarder, auth Authenticator) echo.HandlerFunc {
	return func(c echo.Context) error {
		identity, err := auth.IdentityFromAuthHeader(c.Request().Header.Get(echo.HeaderAuthorization))
		if err != nil {
			return c.String(http.StatusUnauthorized, err.Error())
		}

		job := emailExportJob{Email: identity.Email, Type: "backlog-export"}
		status, body, err := hook.Forward(c.Request().Context(), job)
		if err != nil {
			return c.JSON(http.StatusBadGateway, gatewayError{Message: "export workflow unreachable", Error: err.Error()})
		}
		if status < 200 || status >= 300 {
			return c.JSON(http.StatusBadGateway, gatewayError{Message: "export workflow error", Error: string(body)})
		}
		return c.Blob(http.StatusAccepted, echo.MIMEApplicationJSON, body)
	}
}
