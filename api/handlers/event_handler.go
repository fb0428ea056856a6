package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"example.com/cloudpanel/api/middleware"
	"example.com/cloudpanel/internal/models"
	"example.com/cloudpanel/internal/repository"
	"example.com/cloudpanel/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// EventHandler handles event ledger requests
type EventHandler struct {
	service service.Service
	log     *logrus.Logger
}

// NewEventHandler creates a new EventHandler instance
func NewEventHandler(svc service.Service, log *logrus.Logger) *EventHandler {
	return &EventHandler{
		service: svc,
		log:     log,
	}
}

// pagingFromQuery builds the paging window from query parameters
func pagingFromQuery(c *gin.Context) repository.PagingAndSorting {
	paging := repository.PagingAndSorting{}
	if page, err := strconv.Atoi(c.Query("page")); err == nil {
		paging.Page = page
	}
	if size, err := strconv.Atoi(c.Query("page_size")); err == nil {
		paging.PageSize = size
	}
	return paging
}

// ListEvents lists active events for UI display. This is the polling
// fallback used when push delivery misses.
func (h *EventHandler) ListEvents(c *gin.Context) {
	page, err := h.service.ListActiveEvents(c, pagingFromQuery(c))
	if err != nil {
		h.log.WithError(err).Error("Failed to list events")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to list events",
		})
		return
	}

	c.JSON(http.StatusOK, page)
}

// GetEvent gets a single event by uuid
func (h *EventHandler) GetEvent(c *gin.Context) {
	event, err := h.service.GetEvent(c, c.Param("uuid"))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Event not found",
			})
			return
		}
		h.log.WithError(err).Error("Failed to get event")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to get event",
		})
		return
	}

	c.JSON(http.StatusOK, event)
}

// ListEventsByJob lists the full event history of a job
func (h *EventHandler) ListEventsByJob(c *gin.Context) {
	events, err := h.service.FindEventsByJobID(c, c.Param("jobId"))
	if err != nil {
		h.log.WithError(err).Error("Failed to list job events")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to list job events",
		})
		return
	}

	c.JSON(http.StatusOK, events)
}

// ListOwnerEvents lists a user's active events. Without filters it lists by
// event type; the event, job_id and status query parameters narrow the
// listing for pollers tracking specific work.
func (h *EventHandler) ListOwnerEvents(c *gin.Context) {
	ownerID, err := strconv.ParseUint(c.Param("ownerId"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid owner ID",
		})
		return
	}

	eventName := c.Query("event")
	jobID := c.Query("job_id")
	if eventName != "" || jobID != "" {
		// Pollers usually ask which jobs are still pending
		status := models.EventStatus(c.DefaultQuery("status", string(models.EventStatusInProgress)))
		events, err := h.service.FindOwnerEventsByStatus(c, uint(ownerID), eventName, jobID, status)
		if err != nil {
			h.log.WithError(err).Error("Failed to list owner events")
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to list owner events",
			})
			return
		}

		c.JSON(http.StatusOK, events)
		return
	}

	eventType := models.EventType(c.DefaultQuery("type", string(models.EventTypeAction)))
	events, err := h.service.FindEventsByOwnerAndType(c, uint(ownerID), eventType)
	if err != nil {
		h.log.WithError(err).Error("Failed to list owner events")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to list owner events",
		})
		return
	}

	c.JSON(http.StatusOK, events)
}

// DeleteEvent soft-deletes an event. The row stays for audit.
func (h *EventHandler) DeleteEvent(c *gin.Context) {
	if err := h.service.SoftDeleteEvent(c, c.Param("uuid")); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Event not found",
			})
			return
		}
		h.log.WithError(err).Error("Failed to delete event")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to delete event",
		})
		return
	}

	c.Status(http.StatusNoContent)
}

// DispatchAction records a user action and fans it out
func (h *EventHandler) DispatchAction(c *gin.Context) {
	var req service.ActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.WithError(err).Warn("Invalid action format")
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid action format",
		})
		return
	}

	caller := middleware.CallerFromRequest(c)
	event, err := h.service.DispatchAction(c, caller, &req)
	if err != nil {
		if errors.Is(err, service.ErrQuotaExceeded) {
			c.JSON(http.StatusConflict, gin.H{
				"error": "Resource quota exceeded",
			})
			return
		}
		h.log.WithError(err).Error("Failed to dispatch action")
		c.JSON(http.StatusBadRequest, gin.H{
			"error": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, event)
}

// RecordAlert records a system alert
func (h *EventHandler) RecordAlert(c *gin.Context) {
	var req struct {
		Event   string `json:"event"`
		Message string `json:"message"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid alert format",
		})
		return
	}

	event, err := h.service.RecordAlert(c, req.Event, req.Message)
	if err != nil {
		h.log.WithError(err).Error("Failed to record alert")
		c.JSON(http.StatusBadRequest, gin.H{
			"error": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, event)
}
