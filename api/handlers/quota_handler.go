package handlers

import (
	"net/http"
	"strconv"

	"example.com/cloudpanel/internal/models"
	"example.com/cloudpanel/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// QuotaHandler handles department resource count and limit requests
type QuotaHandler struct {
	service service.Service
	log     *logrus.Logger
}

// NewQuotaHandler creates a new QuotaHandler instance
func NewQuotaHandler(svc service.Service, log *logrus.Logger) *QuotaHandler {
	return &QuotaHandler{
		service: svc,
		log:     log,
	}
}

func departmentIDFromPath(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("departmentId"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid department ID",
		})
		return 0, false
	}
	return uint(id), true
}

// ListCounts lists the resource counts of a department
func (h *QuotaHandler) ListCounts(c *gin.Context) {
	departmentID, ok := departmentIDFromPath(c)
	if !ok {
		return
	}

	counts, err := h.service.ListResourceCounts(c, departmentID)
	if err != nil {
		h.log.WithError(err).Error("Failed to list resource counts")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to list resource counts",
		})
		return
	}

	c.JSON(http.StatusOK, counts)
}

// SetLimit sets the limit for a resource kind in a department. Zero
// means unlimited.
func (h *QuotaHandler) SetLimit(c *gin.Context) {
	departmentID, ok := departmentIDFromPath(c)
	if !ok {
		return
	}

	var req struct {
		Kind  models.ResourceKind `json:"kind"`
		Limit int64               `json:"limit"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid limit format",
		})
		return
	}
	if !req.Kind.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Unknown resource kind",
		})
		return
	}
	if req.Limit < 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Limit must not be negative",
		})
		return
	}

	if err := h.service.SetResourceLimit(c, departmentID, req.Kind, req.Limit); err != nil {
		h.log.WithError(err).Error("Failed to set resource limit")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to set resource limit",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "updated",
	})
}
