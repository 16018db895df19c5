package handler

import (
	"net/http"
	"time"

	"codearena/internal/api/middleware"
	"codearena/internal/app/service"
	"codearena/internal/common"

	"github.com/go-chi/chi/v5"
)

// CookieOptions controls the auth cookies.
type CookieOptions struct {
	Secure        bool
	AccessExpiry  time.Duration
	RefreshExpiry time.Duration
}

type AuthHandler struct {
	authService *service.AuthService
	cookies     CookieOptions
}

func NewAuthHandler(authService *service.AuthService, cookies CookieOptions) *AuthHandler {
	return &AuthHandler{authService: authService, cookies: cookies}
}

func (h *AuthHandler) RegisterRoutes(r chi.Router) {
	r.Post("/register", h.register)
	r.Post("/login", h.login)
	r.Post("/refresh", h.refresh)
	r.Get("/check", h.check)

	r.Group(func(authed chi.Router) {
		authed.Use(middleware.Authenticator)
		authed.Post("/logout", h.logout)
	})
}

func (h *AuthHandler) register(w http.ResponseWriter, r *http.Request) {
	var req service.RegisterRequest
	if err := common.DecodeAndValidate(r, &req); err != nil {
		common.HandleError(w, r, err)
		return
	}

	resp, err := h.authService.Register(r.Context(), req)
	if err != nil {
		common.HandleError(w, r, err)
		return
	}
	h.setCookie(w, middleware.AccessTokenCookie, resp.AccessToken, h.cookies.AccessExpiry)
	common.RespondWithData(w, http.StatusCreated, "User registered successfully", map[string]interface{}{"user": resp.User})
}

func (h *AuthHandler) login(w http.ResponseWriter, r *http.Request) {
	var req service.LoginRequest
	if err := common.DecodeAndValidate(r, &req); err != nil {
		common.HandleError(w, r, err)
		return
	}

	resp, err := h.authService.Login(r.Context(), req)
	if err != nil {
		common.HandleError(w, r, err)
		return
	}
	h.setCookie(w, middleware.AccessTokenCookie, resp.AccessToken, h.cookies.AccessExpiry)
	h.setCookie(w, middleware.RefreshTokenCookie, resp.RefreshToken, h.cookies.RefreshExpiry)
	common.RespondWithData(w, http.StatusOK, "User logged in successfully", map[string]interface{}{"user": resp.User})
}

func (h *AuthHandler) logout(w http.ResponseWriter, r *http.Request) {
	h.clearCookie(w, middleware.AccessTokenCookie)
	h.clearCookie(w, middleware.RefreshTokenCookie)
	common.RespondWithData(w, http.StatusOK, "User logged out successfully", map[string]interface{}{})
}

func (h *AuthHandler) refresh(w http.ResponseWriter, r *http.Request) {
	var token string
	if c, err := r.Cookie(middleware.RefreshTokenCookie); err == nil {
		token = c.Value
	}

	resp, err := h.authService.Refresh(r.Context(), token)
	if err != nil {
		common.HandleError(w, r, err)
		return
	}
	h.setCookie(w, middleware.AccessTokenCookie, resp.AccessToken, h.cookies.AccessExpiry)
	common.RespondWithData(w, http.StatusOK, "Access token refreshed", map[string]interface{}{"user": resp.User})
}

// check never fails on a missing or bad token; it reports the session state.
func (h *AuthHandler) check(w http.ResponseWriter, r *http.Request) {
	userID, _, ok := middleware.OptionalUser(r.Context())
	if !ok {
		common.RespondWithData(w, http.StatusOK, "User not authenticated", map[string]interface{}{"authenticated": false})
		return
	}

	user, err := h.authService.CurrentUser(r.Context(), userID)
	if err != nil {
		common.HandleError(w, r, err)
		return
	}
	if user == nil {
		common.RespondWithData(w, http.StatusOK, "User not found", map[string]interface{}{"authenticated": false})
		return
	}
	common.RespondWithData(w, http.StatusOK, "User authenticated", map[string]interface{}{"authenticated": true, "user": user})
}

func (h *AuthHandler) setCookie(w http.ResponseWriter, name, value string, maxAge time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   int(maxAge.Seconds()),
		HttpOnly: true,
		Secure:   h.cookies.Secure,
		SameSite: http.SameSiteStrictMode,
	})
}

func (h *AuthHandler) clearCookie(w http.ResponseWriter, name string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.cookies.Secure,
		SameSite: http.SameSiteStrictMode,
	})
}
