package auth

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/clinic-api/internal/handler"
	"github.com/jwalitptl/clinic-api/internal/middleware"
	"github.com/jwalitptl/clinic-api/internal/model"
)

type Service interface {
	Register(ctx context.Context, req *model.RegisterRequest) (*model.AuthResult, error)
	Login(ctx context.Context, role model.Role, req *model.LoginRequest) (*model.AuthResult, error)
	Logout(ctx context.Context, token string) error
	Profile(ctx context.Context, p *model.Principal) (*model.Principal, error)
	ForgotPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, role model.Role, token, newPassword string) error
}

// CookieConfig controls the session cookie set at login.
type CookieConfig struct {
	// Secure marks the cookie Secure and SameSite=None, as production
	// serves the frontend from another origin over TLS.
	Secure bool
	MaxAge time.Duration
}

type Handler struct {
	svc    Service
	cookie CookieConfig
}

func NewHandler(svc Service, cookie CookieConfig) *Handler {
	if cookie.MaxAge <= 0 {
		cookie.MaxAge = 7 * 24 * time.Hour
	}
	return &Handler{svc: svc, cookie: cookie}
}

// RegisterRoutes mounts the account routes on r. authenticate guards the
// profile endpoints.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup, authenticate gin.HandlerFunc) {
	users := r.Group("/users")
	{
		users.POST("", h.Register)
		users.POST("/login", h.login(model.RolePatient))
		users.POST("/forgotPassword", h.ForgotPassword)
		users.POST("/resetPassword/:token", h.resetPassword(model.RolePatient))
		users.GET("/profile", authenticate, h.Profile)
	}

	admin := r.Group("/admin")
	{
		admin.POST("/login", h.login(model.RoleAdmin))
		admin.GET("/profile", authenticate, middleware.RequireRole(model.RoleAdmin), h.Profile)
	}

	doctors := r.Group("/doctors")
	{
		doctors.POST("/login", h.login(model.RoleDoctor))
		doctors.POST("/resetPassword/:token", h.resetPassword(model.RoleDoctor))
	}

	r.POST("/auth/logout", h.Logout)
}

func (h *Handler) Register(c *gin.Context) {
	var req model.RegisterRequest
	if !handler.BindJSON(c, &req) {
		return
	}

	res, err := h.svc.Register(c.Request.Context(), &req)
	if err != nil {
		handler.RespondError(c, err)
		return
	}

	h.setCookie(c, res.Token)
	c.JSON(http.StatusCreated, handler.NewSuccessResponse(res))
}

func (h *Handler) login(role model.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req model.LoginRequest
		if !handler.BindJSON(c, &req) {
			return
		}

		res, err := h.svc.Login(c.Request.Context(), role, &req)
		if err != nil {
			handler.RespondError(c, err)
			return
		}

		h.setCookie(c, res.Token)
		c.JSON(http.StatusOK, handler.NewSuccessResponse(res))
	}
}

func (h *Handler) Logout(c *gin.Context) {
	if err := h.svc.Logout(c.Request.Context(), middleware.TokenFrom(c)); err != nil {
		handler.RespondError(c, err)
		return
	}

	h.clearCookie(c)
	c.JSON(http.StatusOK, handler.NewSuccessResponse(gin.H{"message": "logged out successfully"}))
}

func (h *Handler) Profile(c *gin.Context) {
	p, err := h.svc.Profile(c.Request.Context(), middleware.PrincipalFrom(c))
	if err != nil {
		handler.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(p))
}

func (h *Handler) ForgotPassword(c *gin.Context) {
	var req model.ForgotPasswordRequest
	if !handler.BindJSON(c, &req) {
		return
	}

	if err := h.svc.ForgotPassword(c.Request.Context(), req.Email); err != nil {
		handler.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(gin.H{"message": "if the email exists, a reset link has been sent"}))
}

func (h *Handler) resetPassword(role model.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req model.ResetPasswordRequest
		if !handler.BindJSON(c, &req) {
			return
		}

		if err := h.svc.ResetPassword(c.Request.Context(), role, c.Param("token"), req.NewPassword); err != nil {
			handler.RespondError(c, err)
			return
		}

		c.JSON(http.StatusOK, handler.NewSuccessResponse(gin.H{"message": "password reset successfully"}))
	}
}

func (h *Handler) setCookie(c *gin.Context, token string) {
	h.writeCookie(c, token, int(h.cookie.MaxAge.Seconds()))
}

func (h *Handler) clearCookie(c *gin.Context) {
	h.writeCookie(c, "", -1)
}

func (h *Handler) writeCookie(c *gin.Context, value string, maxAge int) {
	if h.cookie.Secure {
		c.SetSameSite(http.SameSiteNoneMode)
	} else {
		c.SetSameSite(http.SameSiteLaxMode)
	}
	c.SetCookie(middleware.AuthCookie, value, maxAge, "/", "", h.cookie.Secure, true)
}
