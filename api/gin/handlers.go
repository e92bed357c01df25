package authgin

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	serrors "github.com/pilab-dev/homefin-auth/errors"
	"github.com/pilab-dev/homefin-auth/middleware"
	"github.com/pilab-dev/homefin-auth/services"
)

// Route paths.
const (
	LoginPath        = "/api/auth/login"
	RefreshPath      = "/api/auth/refresh"
	LogoutPath       = "/api/auth/logout"
	KeepAlivePath    = "/api/session/keepalive"
	MFASetupPath     = "/api/mfa/setup"
	MFAQRPath        = "/api/mfa/setup/qr"
	MFAConfirmPath   = "/api/mfa/confirm"
	MFAVerifyPath    = "/api/mfa/backup-codes/verify"
	MFARegenPath     = "/api/mfa/backup-codes/regenerate"
	MFAStatusPath    = "/api/mfa/status"
	limiterLogin     = "login"
	limiterKeepAlive = "keepalive"
)

// RateLimit is a request budget per window.
type RateLimit struct {
	Limit  int
	Window time.Duration
}

// Options configures the HTTP API.
type Options struct {
	LoginRateLimit     RateLimit
	KeepAliveRateLimit RateLimit
	ExemptPaths        []string
	// LoginPagePath is where expired browser sessions are redirected.
	LoginPagePath string
	Now           func() time.Time
}

// AuthAPI serves the login, session and MFA endpoints.
type AuthAPI struct {
	auth      *services.AuthService
	twoFactor *services.TwoFactorService
	tokens    *services.TokenService
	tracker   *services.SessionActivityTracker
	limiter   services.RateLimiter
	opts      Options
}

// NewAuthAPI creates the HTTP API over the given services.
func NewAuthAPI(
	auth *services.AuthService,
	twoFactor *services.TwoFactorService,
	tokens *services.TokenService,
	tracker *services.SessionActivityTracker,
	limiter services.RateLimiter,
	opts Options,
) *AuthAPI {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &AuthAPI{
		auth:      auth,
		twoFactor: twoFactor,
		tokens:    tokens,
		tracker:   tracker,
		limiter:   limiter,
		opts:      opts,
	}
}

// RegisterRoutes registers the API and its authentication chain on r.
func (api *AuthAPI) RegisterRoutes(r gin.IRouter) {
	sessionCfg := middleware.SessionActivityConfig{
		ExemptPaths:   api.opts.ExemptPaths,
		KeepAlivePath: KeepAlivePath,
		LoginPath:     api.opts.LoginPagePath,
	}
	root := r.Group("",
		middleware.Authenticate(api.tokens, api.tracker, sessionCfg),
		middleware.RateLimit(api.limiter, limiterKeepAlive,
			api.opts.KeepAliveRateLimit.Limit, api.opts.KeepAliveRateLimit.Window,
			middleware.OnlyRoute(http.MethodPost, KeepAlivePath, middleware.ByUserID), api.opts.Now),
		middleware.SessionActivity(api.tracker, sessionCfg),
	)

	root.POST(LoginPath, api.LoginHandler)
	root.POST(RefreshPath, api.RefreshHandler)

	authed := root.Group("", middleware.RequireAuth())
	authed.POST(LogoutPath, api.LogoutHandler)
	authed.POST(KeepAlivePath, api.KeepAliveHandler)
	authed.POST(MFASetupPath, api.MFASetupHandler)
	authed.GET(MFAQRPath, api.MFAQRCodeHandler)
	authed.POST(MFAConfirmPath, api.MFAConfirmHandler)
	authed.POST(MFAVerifyPath, api.BackupCodeVerifyHandler)
	authed.POST(MFARegenPath, api.BackupCodeRegenerateHandler)
	authed.GET(MFAStatusPath, api.MFAStatusHandler)
}

type loginBody struct {
	Identity   string `json:"identity"`
	Password   string `json:"password"`
	OTP        string `json:"otp,omitempty"`
	BackupCode string `json:"backup_code,omitempty"`
}

// LoginHandler handles POST /api/auth/login.
func (api *AuthAPI) LoginHandler(c *gin.Context) {
	var body loginBody
	bindErr := c.ShouldBindJSON(&body)

	// Throttle before looking at the payload so malformed floods count too.
	key := "ip:" + c.ClientIP()
	if identity := services.NormalizeIdentity(body.Identity); identity != "" {
		key = "identity:" + identity
	}
	if !middleware.CheckRate(c, api.limiter, limiterLogin, limiterLogin+":"+key,
		api.opts.LoginRateLimit.Limit, api.opts.LoginRateLimit.Window, api.opts.Now) {
		return
	}

	if bindErr != nil {
		middleware.AbortWithError(c, serrors.NewInvalidRequest("malformed request body"))
		return
	}
	if strings.TrimSpace(body.Identity) == "" || body.Password == "" {
		middleware.AbortWithError(c, serrors.NewInvalidRequest("identity and password are required"))
		return
	}

	pair, err := api.auth.Login(c.Request.Context(), services.LoginRequest{
		Identity:   body.Identity,
		Password:   body.Password,
		OTP:        body.OTP,
		BackupCode: body.BackupCode,
		IPAddress:  c.ClientIP(),
		UserAgent:  c.Request.UserAgent(),
	})
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, pair)
}

type refreshBody struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// RefreshHandler handles POST /api/auth/refresh.
func (api *AuthAPI) RefreshHandler(c *gin.Context) {
	var body refreshBody
	if err := c.ShouldBindJSON(&body); err != nil {
		middleware.AbortWithError(c, serrors.NewInvalidRequest("refresh_token is required"))
		return
	}
	pair, err := api.auth.Refresh(c.Request.Context(), body.RefreshToken)
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, pair)
}

// LogoutHandler handles POST /api/auth/logout.
func (api *AuthAPI) LogoutHandler(c *gin.Context) {
	id, _ := middleware.GetIdentity(c)
	if err := api.auth.Logout(c.Request.Context(), id.Session); err != nil {
		middleware.AbortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// KeepAliveHandler handles POST /api/session/keepalive. The extension itself
// happens in the session middleware.
func (api *AuthAPI) KeepAliveHandler(c *gin.Context) {
	c.Status(http.StatusNoContent)
}
