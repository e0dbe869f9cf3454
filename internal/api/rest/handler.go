package rest

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/lightpoint/trustlines/internal/api/rest/dto"
	"github.com/lightpoint/trustlines/internal/domain"
	"github.com/lightpoint/trustlines/internal/store"
)

// Handler defines the interface for REST API handlers
// This interface allows for easy mocking and testing
type Handler interface {
	// GetTrustLine retrieves a single trust line
	// GET /api/v1/accounts/:address/trust-lines/:issuer/:code
	GetTrustLine(c *gin.Context)

	// ListTrustLines retrieves all trust lines held by an account
	// GET /api/v1/accounts/:address/trust-lines
	ListTrustLines(c *gin.Context)

	// GetIssuerOutstanding reports whether any holder still carries a
	// positive balance of the issuer's assets
	// GET /api/v1/issuers/:address/outstanding
	GetIssuerOutstanding(c *gin.Context)

	// GetChanges retrieves journal entries strictly after a cursor
	// GET /api/v1/changes?after=<cursor>&limit=<limit>
	GetChanges(c *gin.Context)

	// HealthCheck returns the health status of the API
	// GET /health
	HealthCheck(c *gin.Context)
}

// handler implements the Handler interface
type handler struct {
	store   store.Store
	journal store.JournalStore
}

// NewHandler creates a new REST API handler
func NewHandler(s store.Store, js store.JournalStore) Handler {
	return &handler{store: s, journal: js}
}

// parseAsset builds a credit asset from the :issuer and :code path params.
func parseAsset(c *gin.Context) (domain.Asset, bool) {
	issuer, err := domain.ParseAccountID(c.Param("issuer"))
	if err != nil {
		respondBadRequest(c, "Invalid issuer address", err.Error())
		return domain.Asset{}, false
	}

	code, err := domain.NewCurrencyCode(c.Param("code"))
	if err != nil {
		respondBadRequest(c, "Invalid currency code", err.Error())
		return domain.Asset{}, false
	}

	return domain.NewCreditAsset(code, issuer), true
}

// GetTrustLine retrieves a single trust line by holder, issuer and currency
func (h *handler) GetTrustLine(c *gin.Context) {
	holder, err := domain.ParseAccountID(c.Param("address"))
	if err != nil {
		respondBadRequest(c, "Invalid account address", err.Error())
		return
	}

	asset, ok := parseAsset(c)
	if !ok {
		return
	}

	line, err := h.store.Load(c.Request.Context(), holder, asset)
	if err != nil {
		var usageErr *domain.UsageError
		if errors.As(err, &usageErr) {
			respondBadRequest(c, "Invalid trust line key", usageErr.Error())
			return
		}
		respondInternalError(c, err, "Failed to load trust line")
		return
	}
	if line == nil {
		respondNotFound(c, "Trust line not found")
		return
	}

	c.JSON(http.StatusOK, dto.FromLine(line))
}

// ListTrustLines retrieves all trust lines held by an account
func (h *handler) ListTrustLines(c *gin.Context) {
	holder, err := domain.ParseAccountID(c.Param("address"))
	if err != nil {
		respondBadRequest(c, "Invalid account address", err.Error())
		return
	}

	lines := make([]dto.TrustLine, 0)
	for line, err := range h.store.LoadByHolder(c.Request.Context(), holder) {
		if err != nil {
			respondInternalError(c, err, "Failed to list trust lines")
			return
		}
		lines = append(lines, dto.FromLine(line))
	}

	c.JSON(http.StatusOK, dto.TrustLinesResponse{TrustLines: lines})
}

// GetIssuerOutstanding reports whether the issuer still has assets in circulation
func (h *handler) GetIssuerOutstanding(c *gin.Context) {
	issuer, err := domain.ParseAccountID(c.Param("address"))
	if err != nil {
		respondBadRequest(c, "Invalid issuer address", err.Error())
		return
	}

	outstanding, err := h.store.IssuerHasOutstandingBalance(c.Request.Context(), issuer)
	if err != nil {
		respondInternalError(c, err, "Failed to check issuer balances")
		return
	}

	c.JSON(http.StatusOK, dto.IssuerOutstandingResponse{
		Issuer:      issuer.String(),
		Outstanding: outstanding,
	})
}

// GetChanges retrieves journal entries strictly after a cursor
func (h *handler) GetChanges(c *gin.Context) {
	params, err := ParseGetChangesQuery(c)
	if err != nil {
		respondValidationError(c, err.Error())
		return
	}

	rows, err := h.journal.ListChanges(c.Request.Context(), params.After, params.Limit)
	if err != nil {
		respondInternalError(c, err, "Failed to list changes")
		return
	}

	response := dto.ChangesResponse{Changes: make([]dto.Change, 0, len(rows))}
	for _, row := range rows {
		response.Changes = append(response.Changes, dto.FromJournalRow(row))
	}
	if len(rows) > 0 {
		response.NextCursor = rows[len(rows)-1].Cursor
	}

	c.JSON(http.StatusOK, response)
}

// HealthCheck returns the health status of the API
func (h *handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
