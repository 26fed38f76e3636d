package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"cyber_case_app_go/db"
	"cyber_case_app_go/middleware"
	"cyber_case_app_go/models"
	"cyber_case_app_go/services"

	"github.com/labstack/echo/v4"
)

type loginRequest struct {
	Username string `json:"username" form:"username"`
	Password string `json:"password" form:"password"`
}

// TokenResponse is returned by a successful login
type TokenResponse struct {
	AccessToken string       `json:"access_token"`
	TokenType   string       `json:"token_type"`
	ExpiresAt   time.Time    `json:"expires_at"`
	User        *models.User `json:"user"`
}

// Login exchanges a username and password (form or JSON) for a bearer token
func (h *Handler) Login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}
	if strings.TrimSpace(req.Username) == "" || req.Password == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "Username and password are required")
	}

	user, err := services.Authenticate(db.DB, req.Username, req.Password, middleware.GetAuditContext(c))
	if err != nil {
		if errors.Is(err, services.ErrInvalidCredential) {
			c.Response().Header().Set(echo.HeaderWWWAuthenticate, "Bearer")
		}
		return h.fail(err, "User not found")
	}

	token, expires, err := h.Tokens.Issue(user)
	if err != nil {
		return h.fail(err, "")
	}

	return c.JSON(http.StatusOK, TokenResponse{
		AccessToken: token,
		TokenType:   "bearer",
		ExpiresAt:   expires,
		User:        user,
	})
}

// Me returns the authenticated officer
func (h *Handler) Me(c echo.Context) error {
	return c.JSON(http.StatusOK, middleware.GetCurrentUser(c))
}

type changePasswordRequest struct {
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}

// ChangePassword replaces the caller's password
func (h *Handler) ChangePassword(c echo.Context) error {
	var req changePasswordRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}

	if err := services.ChangePassword(db.DB, actorFrom(c), req.OldPassword, req.NewPassword); err != nil {
		return h.fail(err, "User not found")
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "Password updated successfully"})
}

type registerRequest struct {
	Username     string `json:"username"`
	Password     string `json:"password"`
	FullName     string `json:"full_name"`
	Role         string `json:"role"`
	BadgeNumber  string `json:"badge_number"`
	StationName  string `json:"station_name"`
	SubDivision  string `json:"sub_division"`
	DistrictName string `json:"district_name"`
	RangeName    string `json:"range_name"`
	ZoneName     string `json:"zone_name"`
	StateName    string `json:"state_name"`
}

// RegisterUser creates an officer account (admin only)
func (h *Handler) RegisterUser(c echo.Context) error {
	var req registerRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}
	if req.Role == "" {
		req.Role = string(models.RoleConstable)
	}

	user, err := services.RegisterUser(db.DB, actorFrom(c), services.RegisterInput{
		Username:     req.Username,
		Password:     req.Password,
		FullName:     req.FullName,
		Role:         req.Role,
		BadgeNumber:  req.BadgeNumber,
		StationName:  req.StationName,
		SubDivision:  req.SubDivision,
		DistrictName: req.DistrictName,
		RangeName:    req.RangeName,
		ZoneName:     req.ZoneName,
		StateName:    req.StateName,
	})
	if err != nil {
		return h.fail(err, "User not found")
	}
	return c.JSON(http.StatusCreated, user)
}
