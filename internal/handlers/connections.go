package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/universal-inbox/universal-inbox/internal/middleware"
	"github.com/universal-inbox/universal-inbox/internal/models"
	"github.com/universal-inbox/universal-inbox/internal/services"
	"github.com/universal-inbox/universal-inbox/internal/store"
)

type ConnectionHandler struct {
	connections *services.IntegrationConnectionService
}

func NewConnectionHandler(cs *services.IntegrationConnectionService) *ConnectionHandler {
	return &ConnectionHandler{connections: cs}
}

type createConnectionRequest struct {
	ProviderKind string `json:"provider_kind" binding:"required"`
}

// Create handles POST /api/integration-connections
func (h *ConnectionHandler) Create(c *gin.Context) {
	var req createConnectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":             "invalid_request",
			"error_description": err.Error(),
		})
		return
	}

	conn, err := h.connections.CreateConnection(
		middleware.UserID(c),
		models.ProviderKind(req.ProviderKind),
	)
	if errors.Is(err, store.ErrConnectionConflict) {
		c.JSON(http.StatusConflict, gin.H{
			"error":             "connection_exists",
			"error_description": "a connection for this provider already exists",
		})
		return
	}
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":             "invalid_request",
			"error_description": err.Error(),
		})
		return
	}

	c.JSON(http.StatusCreated, conn)
}

// List handles GET /api/integration-connections
func (h *ConnectionHandler) List(c *gin.Context) {
	conns, err := h.connections.ListConnections(middleware.UserID(c))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, conns)
}

// Verify handles PATCH /api/integration-connections/:id
func (h *ConnectionHandler) Verify(c *gin.Context) {
	status, err := h.connections.Verify(c.Request.Context(), c.Param("id"), middleware.UserID(c))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	if status.Result == nil {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "connection_not_found",
		})
		return
	}
	c.JSON(http.StatusOK, status.Result)
}

// Disconnect handles DELETE /api/integration-connections/:id
func (h *ConnectionHandler) Disconnect(c *gin.Context) {
	status, err := h.connections.Disconnect(c.Request.Context(), c.Param("id"), middleware.UserID(c))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	if status.Result == nil {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "connection_not_found",
		})
		return
	}
	c.JSON(http.StatusOK, status.Result)
}

// UpdateConfig handles PUT /api/integration-connections/:id/config
func (h *ConnectionHandler) UpdateConfig(c *gin.Context) {
	var req models.ProviderConfig
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":             "invalid_request",
			"error_description": err.Error(),
		})
		return
	}

	status, err := h.connections.UpdateConfig(c.Param("id"), req, middleware.UserID(c))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	if status.Result == nil {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "connection_not_found",
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"updated": status.Updated,
		"config":  status.Result,
	})
}

// writeServiceError maps the service error taxonomy onto HTTP statuses.
func writeServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{
			"error":             "forbidden",
			"error_description": err.Error(),
		})
	case errors.Is(err, services.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{
			"error":             "not_found",
			"error_description": err.Error(),
		})
	case services.IsRecoverable(err):
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error":             "temporarily_unavailable",
			"error_description": err.Error(),
		})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":             "server_error",
			"error_description": err.Error(),
		})
	}
}
