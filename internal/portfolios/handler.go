package portfolios

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"portfolio-backend/internal/shared/server/middleware"
	"portfolio-backend/internal/shared/server/respond"
	"portfolio-backend/internal/shared/storage/object"
)

// Handler wires HTTP handlers to the portfolio service.
type Handler struct {
	Svc   *Service
	Repo  Repo
	Store object.ObjectStore
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service, repo Repo, store object.ObjectStore) *Handler {
	return &Handler{Svc: svc, Repo: repo, Store: store}
}

// RegisterRoutes attaches portfolio routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/portfolios/generate", h.generate)
	rg.GET("/portfolios", h.list)
	rg.GET("/portfolios/:id", h.get)
	rg.GET("/portfolios/:id/preview", h.preview)
	rg.GET("/portfolios/:id/download", h.download)
}

func (h *Handler) generate(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	if userID == "" {
		respond.Error(c, http.StatusUnauthorized, "unauthorized", "Missing identity", nil)
		return
	}

	var req GenerateRequest
	if err := decodeJSON(c.Request.Body, &req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
		return
	}

	portfolio, html, err := h.Svc.Generate(c.Request.Context(), userID, req)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidInput):
			respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
		case errors.Is(err, ErrNoHTML):
			respond.Error(c, http.StatusUnprocessableEntity, "no_html_found", "no HTML document found in workflow response", nil)
		case errors.Is(err, ErrWorkflowTimeout):
			respond.Error(c, http.StatusGatewayTimeout, "workflow_timeout", "workflow engine timed out", nil)
		case errors.Is(err, ErrWorkflowUnreachable):
			respond.Error(c, http.StatusBadGateway, "workflow_unreachable", "workflow engine unreachable", nil)
		case errors.Is(err, ErrWorkflowFailed):
			respond.Error(c, http.StatusBadGateway, "workflow_error", "workflow engine returned an error", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to generate portfolio", nil)
		}
		return
	}

	c.Set("portfolioId", portfolio.ID)
	respond.JSON(c, http.StatusCreated, GenerateResponse{
		PortfolioResponse: toResponse(portfolio),
		HTML:              html,
	})
}

func (h *Handler) list(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)

	limit := 20
	offset := 0
	if v := c.Query("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			limit = parsed
		}
	}
	if limit < 0 {
		limit = 0
	}
	if limit > 50 {
		limit = 50
	}
	if v := c.Query("offset"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			offset = parsed
		}
	}
	if offset < 0 {
		offset = 0
	}

	portfolios, err := h.Repo.ListByUser(c.Request.Context(), userID, limit, offset)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to list portfolios", nil)
		return
	}

	resp := make([]PortfolioResponse, 0, len(portfolios))
	for _, portfolio := range portfolios {
		resp = append(resp, toResponse(portfolio))
	}
	respond.JSON(c, http.StatusOK, resp)
}

func (h *Handler) get(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	portfolioID := c.Param("id")
	if portfolioID == "" {
		respond.Error(c, http.StatusBadRequest, "validation_error", "portfolio id is required", nil)
		return
	}

	portfolio, err := h.Repo.GetByID(c.Request.Context(), userID, portfolioID)
	if err != nil {
		h.respondRepoError(c, err)
		return
	}
	respond.JSON(c, http.StatusOK, toResponse(portfolio))
}

func (h *Handler) preview(c *gin.Context) {
	h.serveDocument(c, "")
}

func (h *Handler) download(c *gin.Context) {
	h.serveDocument(c, `attachment; filename="portfolio.html"`)
}

func (h *Handler) serveDocument(c *gin.Context, disposition string) {
	userID := middleware.UserIDFromContext(c)
	if userID == "" {
		respond.Error(c, http.StatusUnauthorized, "unauthorized", "Missing identity", nil)
		return
	}
	portfolioID := c.Param("id")
	if portfolioID == "" {
		respond.Error(c, http.StatusBadRequest, "validation_error", "portfolio id is required", nil)
		return
	}

	portfolio, err := h.Repo.GetByID(c.Request.Context(), userID, portfolioID)
	if err != nil {
		h.respondRepoError(c, err)
		return
	}

	reader, err := h.Store.Open(c.Request.Context(), portfolio.StorageKey)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to load portfolio document", nil)
		return
	}
	defer reader.Close()

	c.Header("Content-Type", portfolio.MimeType)
	if disposition != "" {
		c.Header("Content-Disposition", disposition)
	}
	c.Status(http.StatusOK)
	_, _ = io.Copy(c.Writer, reader)
}

func (h *Handler) respondRepoError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		respond.Error(c, http.StatusNotFound, "not_found", "portfolio not found", nil)
	case errors.Is(err, ErrForbidden):
		respond.Error(c, http.StatusForbidden, "forbidden", "access denied", nil)
	default:
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to fetch portfolio", nil)
	}
}

func decodeJSON(body io.ReadCloser, out any) error {
	if body == nil {
		return errors.New("request body is required")
	}
	errInvalidJSON := errors.New("invalid json body")
	decoder := json.NewDecoder(body)
	if err := decoder.Decode(out); err != nil {
		return errInvalidJSON
	}
	if err := decoder.Decode(&struct{}{}); err != io.EOF {
		return errInvalidJSON
	}
	return nil
}
