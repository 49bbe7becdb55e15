package router

import (
	"net/http"

	"github.com/admarket/backend/internal/infrastructure/auth"
	"github.com/admarket/backend/internal/infrastructure/logger"
	"github.com/admarket/backend/internal/interfaces/http/dto"
	"github.com/admarket/backend/internal/interfaces/http/handler"
	"github.com/admarket/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// Handlers are the HTTP handlers mounted by NewEngine
type Handlers struct {
	Campaigns *handler.CampaignHandler
	Payments  *handler.PaymentHandler
	Admin     *handler.AdminHandler
	System    *handler.SystemHandler
}

// Options configures the middleware stack in front of the handlers
type Options struct {
	Validator      *auth.TokenValidator
	GatewayRole    string
	Limiter        middleware.Limiter // nil disables rate limiting
	Meter          metric.Meter       // nil disables HTTP metrics
	CORS           middleware.CORSConfig
	MaxBodySize    int64
	TrustedProxies []string
	Tracing        middleware.TracingConfig
	Profiling      bool // label CPU samples per route
	Logger         *zap.Logger
}

// NewEngine builds the gin engine with the full middleware stack and the
// marketplace route table
func NewEngine(h Handlers, opts Options) *gin.Engine {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	middleware.SetupValidator()

	engine := gin.New()
	if len(opts.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(opts.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	// Order matters: the request ID and span exist before anything logs.
	engine.Use(middleware.RequestID())
	engine.Use(middleware.TracingWithConfig(opts.Tracing), middleware.SpanErrorMarker())
	engine.Use(logger.Recover(log))
	engine.Use(logger.AccessLog(log, logger.SkipPaths("/health")))
	engine.Use(middleware.HTTPMetrics(opts.Meter))
	engine.Use(middleware.Secure())
	engine.Use(middleware.CORS(opts.CORS))
	if opts.MaxBodySize > 0 {
		engine.Use(middleware.BodyLimit(opts.MaxBodySize))
	}

	engine.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, dto.NewErrorResponseWithRequestID(
			dto.ErrCodeRouteMissing, "Route not found", c.GetString(middleware.RequestIDKey)))
	})
	engine.GET("/health", h.System.Health)

	authenticated := []gin.HandlerFunc{
		middleware.Authenticate(opts.Validator, log),
		middleware.TracingAttributeInjector(),
	}
	if opts.Profiling {
		authenticated = append(authenticated, middleware.ProfilingLabels())
	}
	if opts.Limiter != nil {
		authenticated = append(authenticated, middleware.RateLimit(opts.Limiter, log))
	}

	NewRouter(engine).
		Register(campaignRoutes(h.Campaigns, authenticated)).
		Register(sellerRoutes(h.Campaigns, authenticated)).
		Register(channelRoutes(h.Campaigns, authenticated)).
		Register(paymentRoutes(h.Payments, authenticated)).
		Register(webhookRoutes(h.Payments, authenticated, opts.GatewayRole)).
		Register(adminRoutes(h.Admin, h.System, authenticated)).
		Setup()

	return engine
}

func campaignRoutes(h *handler.CampaignHandler, guards []gin.HandlerFunc) *DomainGroup {
	return NewDomainGroup("campaigns", "/campaigns").
		Use(guards...).
		POST("", h.CreateCampaign).
		GET("/:id", h.GetCampaign).
		PUT("/:id", h.UpdateCampaign).
		POST("/:id/accept", h.AcceptCampaign).
		POST("/:id/reject", h.RejectCampaign).
		POST("/:id/proof-upload", h.RequestProofUpload).
		POST("/:id/submit", h.SubmitCampaign).
		POST("/:id/confirm", h.ConfirmCampaign).
		POST("/:id/cancel", h.CancelCampaign).
		GET("/:id/activities", h.ListActivities)
}

func sellerRoutes(h *handler.CampaignHandler, guards []gin.HandlerFunc) *DomainGroup {
	return NewDomainGroup("sellers", "/sellers/me").
		Use(guards...).
		GET("/campaigns", h.ListSellerCampaigns).
		GET("/stats", h.GetSellerStats)
}

func channelRoutes(h *handler.CampaignHandler, guards []gin.HandlerFunc) *DomainGroup {
	return NewDomainGroup("channels", "/channels").
		Use(guards...).
		GET("/:id/campaigns", h.ListChannelCampaigns).
		GET("/:id/stats", h.GetChannelStats)
}

func paymentRoutes(h *handler.PaymentHandler, guards []gin.HandlerFunc) *DomainGroup {
	return NewDomainGroup("payments", "/payments").
		Use(guards...).
		POST("/deposits", h.CreateDeposit).
		POST("/withdrawals", h.RequestWithdrawal).
		GET("/balance", h.GetBalance).
		GET("/transactions", h.ListTransactions)
}

// webhookRoutes is the provider callback; only the gateway's service
// token may call it
func webhookRoutes(h *handler.PaymentHandler, guards []gin.HandlerFunc, gatewayRole string) *DomainGroup {
	return NewDomainGroup("payment-webhooks", "/payments/deposits").
		Use(guards...).
		Use(middleware.RequireRole(gatewayRole)).
		POST("/webhook", h.DepositWebhook)
}

func adminRoutes(h *handler.AdminHandler, system *handler.SystemHandler, guards []gin.HandlerFunc) *DomainGroup {
	admin := NewDomainGroup("admin", "/admin").
		Use(guards...).
		Use(middleware.RequireAdmin()).
		GET("/disputes", h.ListDisputes).
		GET("/disputes/:id", h.GetDispute).
		POST("/disputes/:id/resolve", h.ResolveDispute).
		GET("/withdrawals", h.ListWithdrawals).
		POST("/withdrawals/:id/approve", h.ApproveWithdrawal).
		POST("/withdrawals/:id/reject", h.RejectWithdrawal).
		GET("/stats", h.GetPlatformStats).
		POST("/users/:id/block", h.BlockUser).
		GET("/actions", h.ListActions).
		GET("/system/info", system.GetSystemInfo)

	admin.Group("outbox", "/outbox").
		GET("/dead", h.GetDeadLetterEntries).
		POST("/dead/retry-all", h.RetryAllDeadEntries).
		GET("/stats", h.GetOutboxStats).
		GET("/entries/:id", h.GetOutboxEntry).
		POST("/entries/:id/retry", h.RetryDeadEntry)
	return admin
}
