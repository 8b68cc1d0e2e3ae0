package api

import (
	"io"
	"net/http"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"tablero-api/domain"
	"tablero-api/storage"
)

const accountBodyMaxSize = 16 * 1024 // 16 KiB

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type authResponse struct {
	AccessToken string      `json:"access_token"`
	User        domain.User `json:"user"`
}

func register(users UserStore, notifier Notifier, auth Authenticator, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()

		var req registerRequest
		dec := sonic.ConfigStd.NewDecoder(io.LimitReader(c.Request().Body, accountBodyMaxSize))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			return c.String(http.StatusBadRequest, "invalid body")
		}
		req.Email = strings.ToLower(strings.TrimSpace(req.Email))
		req.Name = strings.TrimSpace(req.Name)
		if req.Email == "" || !strings.Contains(req.Email, "@") {
			return c.String(http.StatusBadRequest, "invalid email")
		}
		if req.Name == "" {
			return c.String(http.StatusBadRequest, "name is required")
		}
		if len(req.Password) < 6 {
			return c.String(http.StatusBadRequest, "password too short")
		}

		if _, err := users.GetUserByEmail(ctx, req.Email); err == nil {
			return c.String(http.StatusConflict, "email already registered")
		} else if err != storage.ErrNotFound {
			c.Logger().Error(err)
			return c.String(http.StatusInternalServerError, "registration failed")
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
		if err != nil {
			c.Logger().Error(err)
			return c.String(http.StatusInternalServerError, "registration failed")
		}
		user := domain.User{
			ID:           uuid.NewString(),
			Email:        req.Email,
			Name:         req.Name,
			Role:         domain.DefaultRole,
			PasswordHash: string(hash),
		}
		if err := users.InsertUser(ctx, user); err != nil {
			c.Logger().Error(err)
			return c.String(http.StatusInternalServerError, "registration failed")
		}

		// Welcome mail is a non-critical side effect: failures are logged and
		// must never fail the registration itself.
		if notifier != nil {
			n := storage.Notification{Type: "welcome", To: user.Email, Name: user.Name}
			if err := notifier.EnqueueNotification(ctx, n); err != nil {
				logger.WithFields(log.Fields{"email": user.Email, "error": err}).Warn("welcome mail enqueue failed")
			}
		}

		token, err := auth.IssueToken(user)
		if err != nil {
			c.Logger().Error(err)
			return c.String(http.StatusInternalServerError, "registration failed")
		}
		return c.JSON(http.StatusCreated, authResponse{AccessToken: token, User: user})
	}
}

func login(users UserStore, auth Authenticator) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()

		var req loginRequest
		dec := sonic.ConfigStd.NewDecoder(io.LimitReader(c.Request().Body, accountBodyMaxSize))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			return c.String(http.StatusBadRequest, "invalid body")
		}
		req.Email = strings.ToLower(strings.TrimSpace(req.Email))

		// Same generic message for unknown email and wrong password so the
		// endpoint cannot be used to enumerate accounts.
		user, err := users.GetUserByEmail(ctx, req.Email)
		if err != nil {
			if err != storage.ErrNotFound {
				c.Logger().Error(err)
			}
			return c.String(http.StatusUnauthorized, "invalid credentials")
		}
		if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
			return c.String(http.StatusUnauthorized, "invalid credentials")
		}

		token, err := auth.IssueToken(user)
		if err != nil {
			c.Logger().Error(err)
			return c.String(http.StatusInternalServerError, "login failed")
		}
		return c.JSON(http.StatusOK, authResponse{AccessToken: token, User: user})
	}
}
