package routes

import (
	"context"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/noah-isme/homepage-content-api/internal/handler"
	"github.com/noah-isme/homepage-content-api/internal/middleware"
	"github.com/noah-isme/homepage-content-api/internal/models"
	"github.com/noah-isme/homepage-content-api/pkg/config"
	appErrors "github.com/noah-isme/homepage-content-api/pkg/errors"
	"github.com/noah-isme/homepage-content-api/pkg/response"
)

type tokenValidator interface {
	ValidateToken(token string) (*models.JWTClaims, error)
}

type auditWriter interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// Dependencies bundles what Setup needs to register every route.
type Dependencies struct {
	Content *handler.ContentHandler
	Metrics *handler.MetricsHandler
	Auth    tokenValidator
	Audit   auditWriter
	Logger  *zap.Logger
}

// Setup configures all API routes.
func Setup(router *gin.Engine, deps Dependencies, cfg *config.Config) {
	// Operational endpoints
	router.GET("/health", deps.Metrics.Health)
	router.GET("/ready", deps.Metrics.Ready)
	router.GET("/metrics", deps.Metrics.Prometheus)
	if cfg.Env != config.EnvProduction {
		router.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	router.NoRoute(func(c *gin.Context) {
		response.Error(c, appErrors.ErrNotFound)
	})

	api := router.Group(cfg.APIPrefix)

	// Public read path (no auth)
	public := api.Group("/content")
	public.GET("", deps.Content.PublicContent)
	public.GET("/preview/:token", deps.Content.SharedPreview)

	editors := middleware.RequireRoles(models.EditorRoles...)
	reviewers := middleware.RequireRoles(models.ReviewerRoles...)

	admin := api.Group("/admin/content", middleware.JWT(deps.Auth))
	admin.GET("", deps.Content.List)
	admin.GET("/data", deps.Content.Data)
	admin.GET("/approvals", reviewers, deps.Content.Approvals)
	admin.GET("/export", deps.Content.Export)
	admin.POST("/update", editors, deps.Content.Update)
	admin.POST("/bulk-update", editors, deps.Content.BulkUpdate)
	admin.POST("/import", editors, deps.Content.Import)
	admin.POST("/preview", editors,
		middleware.Audit(deps.Audit, deps.Logger, models.AuditActionContentPreview, "content"),
		deps.Content.Preview)

	// Single entry
	admin.GET("/:id", deps.Content.Get)
	admin.DELETE("/:id", reviewers, deps.Content.Archive)
	admin.GET("/:id/history", deps.Content.History)
	admin.GET("/:id/audit", reviewers,
		middleware.Audit(deps.Audit, deps.Logger, models.AuditActionAuditTrailRead, "content"),
		deps.Content.AuditTrail)
	admin.POST("/:id/request-approval", editors, deps.Content.RequestApproval)
	admin.POST("/:id/approve", reviewers, deps.Content.Approve)
	admin.POST("/:id/reject", reviewers, deps.Content.Reject)
	admin.POST("/:id/publish", reviewers, deps.Content.Publish)
	admin.POST("/:id/revert", editors, deps.Content.Revert)
}
