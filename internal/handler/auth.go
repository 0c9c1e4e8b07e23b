package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/kidcheck/internal/middleware"
	"github.com/iliyamo/kidcheck/internal/model"
	"github.com/iliyamo/kidcheck/internal/service"
	"github.com/iliyamo/kidcheck/internal/session"
	"github.com/iliyamo/kidcheck/internal/utils"
)

// AuthHandler serves registration, login, logout and account endpoints.
type AuthHandler struct {
	responder
	Creds        *service.CredentialService
	Sessions     *session.Manager
	CookieSecure bool
}

func NewAuthHandler(creds *service.CredentialService, sessions *session.Manager, cookieSecure bool, log *slog.Logger) *AuthHandler {
	return &AuthHandler{responder: responder{log: log}, Creds: creds, Sessions: sessions, CookieSecure: cookieSecure}
}

// ----- DTOs -----

type registerReq struct {
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required"`
	Name      string `json:"name" validate:"required"`
	ChildName string `json:"childName"`
}

type loginReq struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type adminLoginReq struct {
	Name     string `json:"name" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type rotateReq struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required"`
}

type sessionPart struct {
	Token   string    `json:"token"`
	Expires time.Time `json:"expires"`
}

type userPart struct {
	ID       uint64     `json:"id"`
	Email    string     `json:"email"`
	Name     string     `json:"name"`
	UserType model.Role `json:"user_type"`
}

type adminPart struct {
	ID         uint64     `json:"id"`
	Name       string     `json:"name"`
	UserType   model.Role `json:"user_type"`
	MustRotate bool       `json:"must_rotate"`
}

func toUserPart(u model.User) userPart {
	return userPart{ID: u.ID, Email: u.Email, Name: u.Name, UserType: model.RoleParent}
}

// startSession issues a session for actor and sets the cookie.
func (h *AuthHandler) startSession(c echo.Context, actor model.Actor) (sessionPart, error) {
	tok, err := h.Sessions.Issue(c.Request().Context(), actor)
	if err != nil {
		return sessionPart{}, err
	}
	h.setCookie(c, tok)
	return sessionPart{Token: tok.Token, Expires: tok.Exp}, nil
}

func (h *AuthHandler) setCookie(c echo.Context, tok utils.SessionToken) {
	c.SetCookie(&http.Cookie{
		Name:     middleware.SessionCookie,
		Value:    tok.Token,
		Path:     "/",
		Expires:  tok.Exp,
		HttpOnly: true,
		Secure:   h.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *AuthHandler) clearCookie(c echo.Context) {
	c.SetCookie(&http.Cookie{
		Name:     middleware.SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

// Register: create a parent (and optional child) and start a session.
func (h *AuthHandler) Register(c echo.Context) error {
	msgs := messages{model.ErrConflict: "User already exists"}
	var req registerReq
	if err := bind(c, &req); err != nil {
		return h.fail(c, err, msgs)
	}
	u, err := h.Creds.RegisterUser(c.Request().Context(), service.Registration{
		Email: req.Email, Name: req.Name, Password: req.Password, ChildName: req.ChildName,
	})
	if err != nil {
		return h.fail(c, err, msgs)
	}
	sess, err := h.startSession(c, model.ParentActor(u.ID))
	if err != nil {
		return h.fail(c, err, nil)
	}
	return ok(c, echo.Map{"message": "User registered successfully", "user": toUserPart(u), "session": sess})
}

// Login: verify parent credentials and start a session.
func (h *AuthHandler) Login(c echo.Context) error {
	msgs := messages{model.ErrAuthFailure: "Invalid email or password"}
	var req loginReq
	if err := bind(c, &req); err != nil {
		return h.fail(c, err, msgs)
	}
	u, err := h.Creds.VerifyUser(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		return h.fail(c, err, msgs)
	}
	sess, err := h.startSession(c, model.ParentActor(u.ID))
	if err != nil {
		return h.fail(c, err, nil)
	}
	return ok(c, echo.Map{"message": "Login successful", "user": toUserPart(u), "session": sess})
}

// AdminLogin: verify admin credentials and start a session. The response
// tells the client whether the password must be rotated.
func (h *AuthHandler) AdminLogin(c echo.Context) error {
	msgs := messages{model.ErrAuthFailure: "Invalid admin credentials"}
	var req adminLoginReq
	if err := bind(c, &req); err != nil {
		return h.fail(c, err, msgs)
	}
	a, err := h.Creds.VerifyAdmin(c.Request().Context(), req.Name, req.Password)
	if err != nil {
		return h.fail(c, err, msgs)
	}
	sess, err := h.startSession(c, model.AdminActor(a.ID))
	if err != nil {
		return h.fail(c, err, nil)
	}
	return ok(c, echo.Map{
		"message": "Admin login successful",
		"admin":   adminPart{ID: a.ID, Name: a.Name, UserType: model.RoleAdmin, MustRotate: a.MustRotate},
		"session": sess,
	})
}

// Logout revokes the current session, if any, and clears the cookie.
func (h *AuthHandler) Logout(c echo.Context) error {
	if err := h.Sessions.Revoke(c.Request().Context(), middleware.TokenFrom(c)); err != nil {
		return h.fail(c, err, nil)
	}
	h.clearCookie(c)
	return ok(c, echo.Map{"message": "Logged out successfully"})
}

// Me returns the profile of the caller.
func (h *AuthHandler) Me(c echo.Context) error {
	p, err := h.Creds.Describe(c.Request().Context(), middleware.ActorFrom(c))
	if err != nil {
		return h.fail(c, err, nil)
	}
	return ok(c, echo.Map{"user": p})
}

// RotateAdminPassword replaces the calling admin's password.
func (h *AuthHandler) RotateAdminPassword(c echo.Context) error {
	msgs := messages{model.ErrAuthFailure: "Current password is incorrect", model.ErrForbidden: "Admin access required"}
	actor := middleware.ActorFrom(c)
	if err := session.Authorize(actor, session.OpRotateAdminPassword); err != nil {
		return h.fail(c, err, msgs)
	}
	var req rotateReq
	if err := bind(c, &req); err != nil {
		return h.fail(c, err, msgs)
	}
	err := h.Creds.RotateAdminPassword(c.Request().Context(), actor, req.CurrentPassword, req.NewPassword)
	if err != nil {
		return h.fail(c, err, msgs)
	}
	return ok(c, echo.Map{"message": "Password updated successfully"})
}
