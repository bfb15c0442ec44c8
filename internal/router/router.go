package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/ikkim/bizmarket-backend/config"
	"github.com/ikkim/bizmarket-backend/internal/app/controller"
	"github.com/ikkim/bizmarket-backend/internal/app/model"
	"github.com/ikkim/bizmarket-backend/internal/middleware"
)

type Router struct {
	certificationController *controller.CertificationController
	policyController        *controller.CategoryPolicyController
	subscriptionController  *controller.SubscriptionController
	verificationController  *controller.VerificationController
	auditController         *controller.AuditController
	notificationController  *controller.NotificationController
	profileController       *controller.ProfileController
	authMiddleware          *middleware.AuthMiddleware
	config                  *config.Config
}

func NewRouter(
	certificationController *controller.CertificationController,
	policyController *controller.CategoryPolicyController,
	subscriptionController *controller.SubscriptionController,
	verificationController *controller.VerificationController,
	auditController *controller.AuditController,
	notificationController *controller.NotificationController,
	profileController *controller.ProfileController,
	authMiddleware *middleware.AuthMiddleware,
	cfg *config.Config,
) *Router {
	return &Router{
		certificationController: certificationController,
		policyController:        policyController,
		subscriptionController:  subscriptionController,
		verificationController:  verificationController,
		auditController:         auditController,
		notificationController:  notificationController,
		profileController:       profileController,
		authMiddleware:          authMiddleware,
		config:                  cfg,
	}
}

func (r *Router) Setup() *gin.Engine {
	gin.SetMode(r.config.Server.GinMode)

	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(middleware.LoggingMiddleware())
	router.Use(corsMiddleware(r.config.CORS.AllowedOrigins))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"message": "BizMarket trust API is running",
		})
	})

	auth := r.authMiddleware.Authenticate()
	sellerOnly := r.authMiddleware.RequireRole(model.RoleSeller)
	adminOnly := r.authMiddleware.RequireRole(model.RoleAdmin)

	v1 := router.Group("/api/v1")
	{
		// 결제 대행사 콜백 (JWT 대신 공유 시크릿)
		payments := v1.Group("/payments", r.subscriptionController.VerifyWebhook())
		{
			payments.POST("/callback", r.subscriptionController.PaymentCallback)
			payments.POST("/refund", r.subscriptionController.RefundCallback)
		}

		v1.GET("/categories/:id/badge-policy", r.policyController.Get)

		authed := v1.Group("", auth)
		{
			authed.PATCH("/me/profile", r.profileController.UpdateMe)
			authed.GET("/notifications", r.notificationController.List)
			authed.GET("/notifications/ws", r.notificationController.WebSocketHandler)

			authed.GET("/sellers/:id/trust", r.verificationController.GetTrustState)
			authed.GET("/sellers/:id/certifications", r.certificationController.ListBySeller)
			authed.GET("/certifications/:id/document", r.certificationController.DownloadDocument)
		}

		seller := v1.Group("/seller", auth, sellerOnly)
		{
			seller.POST("/certifications", r.certificationController.Submit)
			seller.GET("/certifications", r.certificationController.ListMine)
			seller.GET("/premium", r.subscriptionController.GetMine)
			seller.PATCH("/premium/auto-renew", r.subscriptionController.SetAutoRenew)
		}

		admin := v1.Group("/admin", auth, adminOnly)
		{
			admin.GET("/certifications", r.certificationController.ListByStatus)
			admin.POST("/certifications/:id/review", r.certificationController.Review)

			admin.POST("/categories/:id/badge-policy", r.policyController.Create)
			admin.PUT("/categories/:id/badge-policy", r.policyController.Update)
			admin.DELETE("/categories/:id/badge-policy", r.policyController.Delete)
			admin.POST("/categories/:id/recompute", r.verificationController.RecomputeCategory)

			admin.POST("/sellers/:id/recompute", r.verificationController.Recompute)
			admin.PUT("/sellers/:id/override", r.verificationController.Override)
			admin.DELETE("/sellers/:id/override", r.verificationController.ClearOverride)
			admin.POST("/sellers/:id/premium", r.subscriptionController.Activate)
			admin.POST("/premium/:id/deactivate", r.subscriptionController.Deactivate)

			admin.GET("/audit", r.auditController.Query)
			admin.GET("/audit/subjects/:id/export", r.auditController.Export)
		}
	}

	return router
}

func corsMiddleware(allowedOrigins []string) gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")

		for _, allowedOrigin := range allowedOrigins {
			if origin == allowedOrigin || allowedOrigin == "*" {
				c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
				break
			}
		}

		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Authorization, accept, origin, Cache-Control, X-Requested-With, X-Request-ID")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE, PATCH")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
