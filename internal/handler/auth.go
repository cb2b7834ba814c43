package handler

import (
	"errors"
	"net/http"
	"net/mail"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/neststay/internal/config"
	"github.com/iliyamo/neststay/internal/middleware"
	"github.com/iliyamo/neststay/internal/model"
	"github.com/iliyamo/neststay/internal/repository"
	"github.com/iliyamo/neststay/internal/utils"
)

// AuthHandler registers and logs in guests.
type AuthHandler struct {
	Cfg    config.AuthConfig
	Guests *repository.GuestRepo
}

func NewAuthHandler(cfg config.AuthConfig, guests *repository.GuestRepo) *AuthHandler {
	return &AuthHandler{Cfg: cfg, Guests: guests}
}

// ----- DTOs -----

type registerReq struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type guestPart struct {
	ID    uint64 `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

type authResp struct {
	Guest  guestPart         `json:"guest"`
	Access utils.AccessToken `json:"access"`
}

const minPasswordLen = 8

// Register creates a GUEST account and returns an access token.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return badRequest(c, "name", "is required")
	}
	if _, err := mail.ParseAddress(req.Email); err != nil {
		return badRequest(c, "email", "is not a valid address")
	}
	if len(req.Password) < minPasswordLen {
		return badRequest(c, "password", "must be at least 8 characters")
	}

	ctx, cancel := requestCtx(c)
	defer cancel()

	id, err := h.Guests.Create(ctx, req.Name, req.Email, req.Password, model.RoleGuest, h.Cfg.BcryptCost)
	if errors.Is(err, repository.ErrEmailExists) {
		return c.JSON(http.StatusConflict, echo.Map{"error": "email already exists"})
	}
	if err != nil {
		return writeError(c, err)
	}
	access, err := utils.NewAccessToken(h.Cfg.JWTSecret, id, model.RoleGuest, h.Cfg.AccessTTLMin)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, authResp{
		Guest:  guestPart{ID: id, Name: req.Name, Email: req.Email, Role: model.RoleGuest},
		Access: access,
	})
}

// Login verifies credentials and returns a fresh access token.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email/password required"})
	}

	ctx, cancel := requestCtx(c)
	defer cancel()

	g, err := h.Guests.GetByEmail(ctx, req.Email)
	if errors.Is(err, repository.ErrNotFound) {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
	}
	if err != nil {
		return writeError(c, err)
	}
	if !g.IsActive || !utils.VerifyPassword(g.PasswordHash, req.Password) {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
	}
	access, err := utils.NewAccessToken(h.Cfg.JWTSecret, g.ID, g.Role, h.Cfg.AccessTTLMin)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, authResp{
		Guest:  guestPart{ID: g.ID, Name: g.Name, Email: g.Email, Role: g.Role},
		Access: access,
	})
}

// Me returns the authenticated identity.
func (h *AuthHandler) Me(c echo.Context) error {
	id, _ := middleware.GuestID(c)
	return c.JSON(http.StatusOK, echo.Map{"guest_id": id, "role": middleware.Role(c)})
}
