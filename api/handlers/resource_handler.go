package handlers

import (
	"net/http"

	"example.com/cloudpanel/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// ResourceHandler handles tracked resource queries
type ResourceHandler struct {
	service service.Service
	log     *logrus.Logger
}

// NewResourceHandler creates a new ResourceHandler instance
func NewResourceHandler(svc service.Service, log *logrus.Logger) *ResourceHandler {
	return &ResourceHandler{
		service: svc,
		log:     log,
	}
}

// ListVMs lists a department's tracked VM instances
func (h *ResourceHandler) ListVMs(c *gin.Context) {
	departmentID, ok := departmentIDFromPath(c)
	if !ok {
		return
	}

	page, err := h.service.ListVMs(c, departmentID, pagingFromQuery(c))
	if err != nil {
		h.log.WithError(err).Error("Failed to list VMs")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to list VMs",
		})
		return
	}

	c.JSON(http.StatusOK, page)
}

// ListVolumes lists a department's tracked volumes
func (h *ResourceHandler) ListVolumes(c *gin.Context) {
	departmentID, ok := departmentIDFromPath(c)
	if !ok {
		return
	}

	page, err := h.service.ListVolumes(c, departmentID, pagingFromQuery(c))
	if err != nil {
		h.log.WithError(err).Error("Failed to list volumes")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to list volumes",
		})
		return
	}

	c.JSON(http.StatusOK, page)
}
