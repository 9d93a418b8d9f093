package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rongwang/buildtrue-server/internal/models"
	"github.com/rongwang/buildtrue-server/internal/realtime"
	"github.com/rongwang/buildtrue-server/internal/service"
)

// HandlerConfig carries the HTTP-only settings of the handler
type HandlerConfig struct {
	// UploadDir is served at /uploads when set (disk media driver)
	UploadDir string
	// RateLimit requests per RateWindow for each IP on public endpoints
	RateLimit  int
	RateWindow time.Duration
}

// Handler handles HTTP requests
type Handler struct {
	service service.Service
	hub     *realtime.Hub
	cfg     HandlerConfig
	limiter *RateLimiter
}

// NewHandler creates a new Handler. hub may be nil, which disables /api/ws.
func NewHandler(svc service.Service, hub *realtime.Hub, cfg HandlerConfig) *Handler {
	return &Handler{
		service: svc,
		hub:     hub,
		cfg:     cfg,
		limiter: NewRateLimiter(cfg.RateLimit, cfg.RateWindow),
	}
}

// Close stops background work owned by the handler
func (h *Handler) Close() {
	h.limiter.Stop()
}

// SetupRoutes configures the API routes
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.GET("/health", h.Health)
	if h.cfg.UploadDir != "" {
		router.Static("/uploads", h.cfg.UploadDir)
	}

	api := router.Group("/api")

	public := api.Group("")
	public.Use(h.limiter.Middleware())
	{
		public.POST("/auth/signup", h.SignUp)
		public.POST("/auth/login", h.Login)
		public.POST("/requestform", h.SubmitLead)
	}

	authed := api.Group("")
	authed.Use(AuthMiddleware())

	admin := api.Group("")
	admin.Use(AuthMiddleware(), RequireRole(models.RoleAdmin))

	// Leads
	admin.GET("/requestform/registrations", h.ListLeads)
	admin.PATCH("/requestform/:id/verify", h.VerifyLead)

	// Projects
	admin.POST("/projects", h.CreateProject)
	admin.GET("/projects", h.ListProjects)
	admin.GET("/projects/metrics", h.GetMetrics)
	authed.GET("/projects/client/projects", h.ListClientProjects)
	authed.GET("/projects/:id", h.GetProject)
	admin.PATCH("/projects/:id", h.UpdateProject)
	admin.PATCH("/projects/:id/status", h.ChangeStatus)
	admin.DELETE("/projects/:id", h.DeleteProject)

	// Labor ledger
	authed.GET("/projectslabor/:id/labor", h.ListLabor)
	admin.POST("/projectslabor/:id/labor", h.AddLabor)
	admin.PUT("/projectslabor/:id/labor/:laborId", h.UpdateLabor)
	admin.DELETE("/projectslabor/:id/labor/:laborId", h.DeleteLabor)

	// Material ledger
	authed.GET("/projectsmaterial/:id/materials", h.ListMaterials)
	admin.POST("/projectsmaterial/:id/materials/usage", h.UpsertUsage)
	admin.POST("/projectsmaterial/:id/materials/purchase", h.UpsertPurchase)
	admin.DELETE("/projectsmaterial/:id/materials/usage/:usageId", h.DeleteUsage)
	admin.DELETE("/projectsmaterial/:id/materials/purchase/:purchaseId", h.DeletePurchase)

	// Progress tracker
	admin.POST("/progress/:id/progress", h.CreateProgress)
	authed.GET("/progress/:id/progress", h.ListProgress)
	authed.GET("/progress/client/projects", h.ListClientProjects)
	authed.GET("/progress/progress/:progressId", h.GetProgress)
	admin.PUT("/progress/:id/progress/:progressId", h.UpdateProgress)
	admin.DELETE("/progress/:id/progress/:progressId", h.DeleteProgress)
	authed.POST("/progress/progress/:progressId/messages", h.AddMessage)
	authed.POST("/progress/progress/:progressId/view", h.MarkViewed)
	admin.POST("/progress/:id/progress/:progressId/notify", h.NotifyProgress)

	if h.hub != nil {
		api.GET("/ws", WebSocketAuthMiddleware(), h.ServeWS)
	}
}

// Health reports liveness
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}
