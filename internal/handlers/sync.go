package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/universal-inbox/universal-inbox/internal/middleware"
	"github.com/universal-inbox/universal-inbox/internal/models"
	"github.com/universal-inbox/universal-inbox/internal/services"
)

type SyncHandler struct {
	sync *services.SyncService
}

func NewSyncHandler(ss *services.SyncService) *SyncHandler {
	return &SyncHandler{sync: ss}
}

type syncRequest struct {
	ProviderKind string `json:"provider_kind" binding:"required"`
}

// Sync handles POST /api/sync. The pass runs synchronously; recoverable
// provider failures surface as 503 so callers retry, with any partial
// progress already committed.
func (h *SyncHandler) Sync(c *gin.Context) {
	var req syncRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":             "invalid_request",
			"error_description": err.Error(),
		})
		return
	}

	kind := models.ProviderKind(req.ProviderKind)
	if !kind.IsValid() {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":             "invalid_request",
			"error_description": "unknown provider kind",
		})
		return
	}

	result, err := h.sync.SyncProvider(c.Request.Context(), middleware.UserID(c), kind)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"provider":      result.Provider,
		"items_fetched": result.ItemsFetched,
		"items_changed": result.ItemsChanged,
		"tasks_changed": result.TasksChanged,
		"notified":      result.Notified,
		"stale_swept":   result.StaleSwept,
	})
}

// CreateSinkItem handles POST /api/tasks/:id/sink-item
func (h *SyncHandler) CreateSinkItem(c *gin.Context) {
	item, err := h.sync.CreateSinkItemFromTask(c.Request.Context(), c.Param("id"), middleware.UserID(c))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, item)
}
