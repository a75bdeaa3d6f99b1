package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/flight-seat-inventory/internal/middleware"
	"github.com/iliyamo/flight-seat-inventory/internal/utils"
)

// AuthHandler issues tokens for the mock identity provider. There are no
// accounts: whoever logs in is who they say they are.
type AuthHandler struct {
	Secret string
	TTL    time.Duration
}

type mockLoginReq struct {
	UserID string `json:"user_id"`
	Name   string `json:"name"`
	Role   string `json:"role"`
}

type userPart struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Role string `json:"role"`
}

type tokenPart struct {
	Token   string    `json:"token"`
	Expires time.Time `json:"expires"`
}

// MockLogin handles POST /v1/auth/mock-login. A missing user_id gets a
// fresh one; unknown roles become CUSTOMER.
func (h *AuthHandler) MockLogin(c echo.Context) error {
	var req mockLoginReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.UserID = strings.TrimSpace(req.UserID)
	if req.UserID == "" {
		req.UserID = uuid.NewString()
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		req.Name = "Guest"
	}
	role := strings.ToUpper(strings.TrimSpace(req.Role))
	if role != RoleAdmin {
		role = RoleCustomer
	}

	access, err := utils.NewAccessToken(h.Secret, req.UserID, req.Name, role, h.TTL)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "issue token failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"user":   userPart{ID: req.UserID, Name: req.Name, Role: role},
		"access": tokenPart{Token: access.Token, Expires: access.Exp},
	})
}

// Me handles GET /v1/auth/me.
func (h *AuthHandler) Me(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	name, _ := c.Get(middleware.CtxName).(string)
	role, _ := c.Get(middleware.CtxRole).(string)
	return c.JSON(http.StatusOK, userPart{ID: uid, Name: name, Role: role})
}
