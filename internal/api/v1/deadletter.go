package v1

import (
	"net/http"
	"strconv"

	ierr "github.com/flexprice/debitsync/internal/errors"
	"github.com/flexprice/debitsync/internal/logger"
	"github.com/flexprice/debitsync/internal/service"
	"github.com/gin-gonic/gin"
)

// DeadLetterHandler is the operator surface over failed post-ack work
type DeadLetterHandler struct {
	service service.DeadLetterService
	logger  *logger.Logger
}

func NewDeadLetterHandler(service service.DeadLetterService, logger *logger.Logger) *DeadLetterHandler {
	return &DeadLetterHandler{
		service: service,
		logger:  logger,
	}
}

// @Summary List dead letters
// @Tags DeadLetters
// @Produce json
// @Param limit query int false "Maximum entries, newest first"
// @Success 200 {object} dto.ListDeadLettersResponse
// @Router /v1/deadletters [get]
func (h *DeadLetterHandler) List(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			h.logger.Debugw("invalid dead letter limit", "limit", raw)
			c.Error(ierr.NewErrorf("invalid limit %q", raw).
				WithHint("limit must be a non-negative integer").
				Mark(ierr.ErrValidation))
			return
		}
		limit = n
	}

	resp, err := h.service.List(c.Request.Context(), limit)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// @Summary Get a dead letter
// @Tags DeadLetters
// @Produce json
// @Param id path string true "Dead letter ID"
// @Success 200 {object} dto.DeadLetterResponse
// @Failure 404 {object} ErrorResponse
// @Router /v1/deadletters/{id} [get]
func (h *DeadLetterHandler) Get(c *gin.Context) {
	resp, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// @Summary Replay a dead letter
// @Description Republishes the stored payload to its topic and removes the entry
// @Tags DeadLetters
// @Produce json
// @Param id path string true "Dead letter ID"
// @Success 200 {object} dto.ReplayDeadLetterResponse
// @Failure 404 {object} ErrorResponse
// @Router /v1/deadletters/{id}/replay [post]
func (h *DeadLetterHandler) Replay(c *gin.Context) {
	resp, err := h.service.Replay(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// @Summary Delete a dead letter
// @Tags DeadLetters
// @Param id path string true "Dead letter ID"
// @Success 204
// @Failure 404 {object} ErrorResponse
// @Router /v1/deadletters/{id} [delete]
func (h *DeadLetterHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		c.Error(err)
		return
	}
	c.Status(http.StatusNoContent)
}
