package handlers

import (
	"net/http"

	"cyber_case_app_go/middleware"
	"cyber_case_app_go/models"
	"cyber_case_app_go/services"

	"github.com/labstack/echo/v4"
)

// Routes mounts every API route on e
func (h *Handler) Routes(e *echo.Echo, loginLimiter *middleware.RateLimiter) {
	e.GET("/health", h.Health)

	api := e.Group("/api")
	api.Use(middleware.AuditContext())
	api.POST("/auth/token", h.Login, loginLimiter.Middleware())

	protected := api.Group("")
	protected.Use(middleware.RequireAuth(h.Tokens, services.ScopePolicyFromConfig(h.Config)))
	{
		protected.GET("/auth/me", h.Me)
		protected.POST("/auth/change-password", h.ChangePassword)
		protected.POST("/auth/register", h.RegisterUser, middleware.RequireRole(models.RoleAdmin))

		protected.POST("/cases", h.CreateCase)
		protected.GET("/cases", h.ListCases)
		protected.GET("/cases/:id", h.GetCase)
		protected.PATCH("/cases/:id/status", h.UpdateCaseStatus)

		protected.POST("/files/upload/:case_id", h.UploadEvidence)
		protected.GET("/files/case/:case_id", h.ListEvidence)
		protected.GET("/files/download/:id", h.DownloadEvidence)
		protected.GET("/files/view/:id", h.ViewEvidence)
		protected.PATCH("/files/:id/verification", h.UpdateEvidenceVerification)

		protected.POST("/requests", h.CreateTelecomRequest)
		protected.POST("/requests/batch", h.CreateTelecomBatch)
		protected.GET("/requests", h.ListTelecomRequests)
		protected.GET("/requests/:id", h.GetTelecomRequest)
		protected.POST("/requests/:id/approve", h.review(services.TelecomRequests, true))
		protected.POST("/requests/:id/reject", h.review(services.TelecomRequests, false))
		protected.POST("/requests/:id/dispatch", h.DispatchTelecomRequest)
		protected.POST("/requests/:id/upload", h.UploadTelecomResponse)
		protected.GET("/requests/:id/download", h.DownloadTelecomResponse)

		protected.POST("/financial-entities", h.CreateFinancialEntity)
		protected.GET("/financial-entities/case/:case_id", h.ListFinancialEntities)
		protected.PATCH("/financial-entities/:id/verify", h.VerifyFinancialEntity)
		protected.DELETE("/financial-entities/:id", h.DeleteFinancialEntity)

		protected.POST("/transactions", h.AddTransactionEvent)
		protected.GET("/transactions/case/:case_id/timeline", h.Timeline)

		protected.POST("/bank-requests", h.CreateBankRequest)
		protected.GET("/bank-requests", h.ListBankRequests)
		protected.GET("/bank-requests/:id", h.GetBankRequest)
		protected.GET("/bank-requests/requests/:id", h.GetBankRequest)
		protected.POST("/bank-requests/:id/approve", h.review(services.BankRequests, true))
		protected.POST("/bank-requests/:id/reject", h.review(services.BankRequests, false))

		protected.POST("/npci-requests", h.CreateNPCIRequest)
		protected.GET("/npci-requests", h.ListNPCIRequests)
		protected.GET("/npci-requests/:id", h.GetNPCIRequest)
		protected.GET("/npci-requests/requests/:id", h.GetNPCIRequest)
		protected.POST("/npci-requests/:id/approve", h.review(services.NPCIRequests, true))
		protected.POST("/npci-requests/:id/reject", h.review(services.NPCIRequests, false))

		protected.POST("/freeze-requests", h.CreateFreezeRequest)
		protected.GET("/freeze-requests", h.ListFreezeRequests)
		protected.GET("/freeze-requests/:id", h.GetFreezeRequest)
		protected.GET("/freeze-requests/requests/:id", h.GetFreezeRequest)
		protected.PATCH("/freeze-requests/:id/status", h.UpdateFreezeStatus)

		protected.GET("/analysis/universal-search", h.UniversalSearch)
		protected.GET("/analysis/comprehensive-investigation-data", h.Investigation)
		protected.GET("/analysis/network-graph", h.NetworkGraph)
		protected.GET("/analysis/correlate/:mobile", h.CorrelateMobile)
		protected.POST("/analysis/file-search", h.FileSearch)
		protected.GET("/analysis/cdr/:evidence_id", h.AnalyzeCDR)

		protected.GET("/analytics/mule-indicators/:identifier", h.MuleIndicators)
		protected.GET("/analytics/repeat-entities", h.RepeatEntities)
		protected.GET("/analytics/dashboard", h.Dashboard)
		protected.GET("/analytics/timeline/:case_id", h.Timeline)

		protected.GET("/tools/ip-lookup", h.IPLookup)
		protected.POST("/tools/tower-dump", h.TowerDump)

		admin := protected.Group("/admin")
		admin.GET("/audit-logs", h.ListAuditLogs, middleware.RequireRole(models.RoleAdmin, models.RoleDGP))
		admin.GET("/users", h.ListUsers, middleware.RequireRole(models.RoleAdmin))
		admin.GET("/security-alerts", h.SecurityAlerts, middleware.RequireRole(models.RoleAdmin, models.RoleDGP))
	}
}

// Health reports liveness
func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status":      "healthy",
		"environment": h.Config.Environment,
	})
}
