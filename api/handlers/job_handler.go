package handlers

import (
	"errors"
	"net/http"

	"example.com/cloudpanel/internal/models"
	"example.com/cloudpanel/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// JobHandler receives platform job callbacks over HTTP. The same payloads
// also arrive on the service bus queue; this path exists for deployments
// that post callbacks directly.
type JobHandler struct {
	service service.Service
	log     *logrus.Logger
}

// NewJobHandler creates a new JobHandler instance
func NewJobHandler(svc service.Service, log *logrus.Logger) *JobHandler {
	return &JobHandler{
		service: svc,
		log:     log,
	}
}

// jobError maps correlator errors onto HTTP statuses. Malformed and
// unresolvable callbacks answer 4xx so the sender does not retry them.
func (h *JobHandler) jobError(c *gin.Context, err error) {
	var parseErr *service.ParseError
	if errors.As(err, &parseErr) {
		h.log.WithError(err).Warn("Malformed job callback")
		c.JSON(http.StatusBadRequest, gin.H{
			"error": err.Error(),
		})
		return
	}

	var corrErr *service.CorrelationError
	if errors.As(err, &corrErr) {
		h.log.WithError(err).Warn("Unresolvable job callback")
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error": err.Error(),
		})
		return
	}

	h.log.WithError(err).Error("Failed to process job callback")
	c.JSON(http.StatusInternalServerError, gin.H{
		"error": "Failed to process job callback",
	})
}

// SyncResourceStatus handles a generic async job status callback
func (h *JobHandler) SyncResourceStatus(c *gin.Context) {
	var payload models.JobStatusPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid callback format",
		})
		return
	}

	if err := h.service.SyncResourceStatus(c, &payload); err != nil {
		h.jobError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "processed",
	})
}

// AsyncVolume handles a volume job completion callback
func (h *JobHandler) AsyncVolume(c *gin.Context) {
	var resp models.VolumeResponse
	if err := c.ShouldBindJSON(&resp); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid callback format",
		})
		return
	}

	if err := h.service.AsyncVolume(c, &resp); err != nil {
		h.jobError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "processed",
	})
}

// AsyncNetworkOffering handles a network offering job completion callback
func (h *JobHandler) AsyncNetworkOffering(c *gin.Context) {
	var resp models.NetworkOfferingResponse
	if err := c.ShouldBindJSON(&resp); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid callback format",
		})
		return
	}

	if err := h.service.AsyncNetworkOffering(c, &resp); err != nil {
		h.jobError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "processed",
	})
}

// SyncVMUpdate re-reads a VM's state from the platform and records the
// transition if it changed
func (h *JobHandler) SyncVMUpdate(c *gin.Context) {
	instanceUUID := c.Param("uuid")
	if instanceUUID == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Instance UUID required",
		})
		return
	}

	if err := h.service.SyncVMUpdate(c, instanceUUID); err != nil {
		h.jobError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "processed",
	})
}

// ProcessorStats reports job processor queue statistics
func (h *JobHandler) ProcessorStats(c *gin.Context) {
	c.JSON(http.StatusOK, h.service.GetProcessorStats())
}
