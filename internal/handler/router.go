package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/foundation-api/internal/middleware"
)

// Handlers groups every HTTP handler mounted by RegisterRoutes.
type Handlers struct {
	Auth           *AuthHandler
	Applications   *ApplicationHandler
	Beneficiaries  *BeneficiaryHandler
	Documents      *DocumentHandler
	Eligibility    *EligibilityHandler
	Exports        *ExportHandler
	Invitations    *InvitationHandler
	Meetings       *MeetingHandler
	Metrics        *MetricsHandler
	Notifications  *NotificationHandler
	SupportConfigs *SupportConfigHandler
	Users          *UserHandler
	Webhooks       *WebhookHandler
}

// RegisterRoutes mounts the API. Routes under prefix require a bearer token
// checked by auth; the webhook, signed file URLs and ops probes do not.
func RegisterRoutes(r *gin.Engine, prefix string, h Handlers, auth gin.HandlerFunc) {
	r.GET("/health", h.Metrics.Health)
	r.GET("/ready", h.Metrics.Ready)
	r.GET("/metrics", h.Metrics.Prometheus)

	r.POST("/clerk-webhook", h.Webhooks.Clerk)

	files := r.Group("/files")
	files.PUT("/:storageId", h.Documents.Upload)
	files.GET("/:storageId/download", h.Documents.Download)

	r.POST("/api/livekit/token", auth, h.Meetings.Token)

	api := r.Group(prefix, auth, middleware.WithResponseMeta())

	api.GET("/auth/me", h.Auth.Me)
	api.POST("/auth/token", middleware.Admins(), h.Auth.IssueToken)

	api.GET("/ops/stats", middleware.Admins(), h.Metrics.Stats)

	api.POST("/eligibility/resolve", h.Eligibility.Resolve)

	configs := api.Group("/support-configs")
	configs.GET("", h.SupportConfigs.List)
	configs.GET("/:supportType", h.SupportConfigs.Get)
	configs.POST("", middleware.Admins(), h.SupportConfigs.Create)
	configs.PUT("/:supportType", middleware.Admins(), h.SupportConfigs.Update)
	configs.POST("/:supportType/disable", middleware.Admins(), h.SupportConfigs.Disable)
	configs.POST("/:supportType/enable", middleware.Admins(), h.SupportConfigs.Enable)

	apps := api.Group("/applications")
	apps.POST("", h.Applications.Submit)
	apps.GET("", h.Applications.List)
	apps.POST("/bulk-status", middleware.Staff(), h.Applications.BulkUpdateStatus)
	apps.GET("/:id", h.Applications.Get)
	apps.GET("/:id/checklist", h.Applications.Checklist)
	apps.POST("/:id/assign", middleware.Staff(), h.Applications.AssignReviewer)
	apps.POST("/:id/status", middleware.Staff(), h.Applications.UpdateStatus)
	apps.POST("/:id/beneficiary", middleware.Staff(), h.Applications.CreateBeneficiary)

	beneficiaries := api.Group("/beneficiaries")
	beneficiaries.GET("", h.Beneficiaries.List)
	beneficiaries.GET("/:id", h.Beneficiaries.Get)
	beneficiaries.POST("/:id/status", middleware.Staff(), h.Beneficiaries.UpdateStatus)
	beneficiaries.GET("/:id/sessions", h.Beneficiaries.ListSessions)
	beneficiaries.POST("/:id/sessions", middleware.Staff(), h.Beneficiaries.RecordSession)
	api.GET("/sessions/:sessionId/renewal", middleware.Staff(), h.Beneficiaries.EvaluateRenewal)

	docs := api.Group("/documents")
	docs.POST("/upload-url", h.Documents.RequestUploadURL)
	docs.POST("", h.Documents.Register)
	docs.POST("/bulk-review", middleware.Staff(), h.Documents.BulkReview)
	docs.GET("/:id/download-url", h.Documents.DownloadURL)
	docs.POST("/:id/review", middleware.Staff(), h.Documents.Review)

	users := api.Group("/users", middleware.Admins())
	users.GET("", h.Users.List)
	users.GET("/:id", h.Users.Get)
	users.PUT("/:id/role", h.Users.ChangeRole)
	users.POST("/:id/deactivate", h.Users.Deactivate)
	users.POST("/:id/reactivate", h.Users.Reactivate)
	users.POST("/:id/block", h.Users.Block)
	users.DELETE("/:id", h.Users.Delete)

	invitations := api.Group("/invitations", middleware.Admins())
	invitations.GET("", h.Invitations.ListPending)
	invitations.POST("", h.Invitations.Invite)
	invitations.POST("/:id/resend", h.Invitations.Resend)
	invitations.POST("/:id/revoke", h.Invitations.Revoke)

	notifications := api.Group("/notifications", middleware.Admins())
	notifications.GET("", h.Notifications.List)
	notifications.POST("/bulk-send", h.Notifications.BulkSend)
	notifications.POST("/:id/delivered", h.Notifications.MarkDelivered)

	exports := api.Group("/exports", middleware.Staff())
	exports.GET("/applications", h.Exports.Applications)
	exports.GET("/beneficiaries", h.Exports.Beneficiaries)
}
