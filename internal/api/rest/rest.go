package rest

import (
	"github.com/gin-gonic/gin"
)

// SetupRoutes configures all REST API routes
func SetupRoutes(router *gin.Engine, handler Handler) {
	// Health check endpoint (no version prefix)
	router.GET("/health", handler.HealthCheck)

	// API v1 routes (read-only)
	v1 := router.Group("/api/v1")
	{
		// Trust line endpoints
		v1.GET("/accounts/:address/trust-lines", handler.ListTrustLines)
		v1.GET("/accounts/:address/trust-lines/:issuer/:code", handler.GetTrustLine)

		// Issuer endpoints
		v1.GET("/issuers/:address/outstanding", handler.GetIssuerOutstanding)

		// Changes endpoint (sequential audit log)
		v1.GET("/changes", handler.GetChanges)
	}
}
