package v1

import (
	"io"
	"net/http"

	ierr "github.com/flexprice/debitsync/internal/errors"
	"github.com/flexprice/debitsync/internal/interfaces"
	"github.com/flexprice/debitsync/internal/logger"
	"github.com/flexprice/debitsync/internal/webhook/publisher"
	"github.com/gin-gonic/gin"
)

const stripeSignatureHeader = "Stripe-Signature"

// DebitsHandler accepts billing processor notifications
type DebitsHandler struct {
	verifier  interfaces.EventVerifier
	publisher publisher.EventPublisher
	logger    *logger.Logger
}

func NewDebitsHandler(
	verifier interfaces.EventVerifier,
	publisher publisher.EventPublisher,
	logger *logger.Logger,
) *DebitsHandler {
	return &DebitsHandler{
		verifier:  verifier,
		publisher: publisher,
		logger:    logger,
	}
}

// @Summary Sync usage debits for a billing cycle
// @Description Verifies a Stripe event and queues it for reconciliation. Processing happens after the response.
// @Tags Debits
// @Accept json
// @Produce json
// @Param Stripe-Signature header string false "Stripe webhook signature"
// @Success 200 {object} map[string]string
// @Failure 400 {object} ErrorResponse
// @Router /debits/sync [post]
func (h *DebitsHandler) Sync(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.Error(ierr.WithError(err).
			WithHint("Could not read request body").
			Mark(ierr.ErrValidation))
		return
	}

	event, err := h.verifier.Verify(c.Request.Context(), body, c.GetHeader(stripeSignatureHeader))
	if err != nil {
		h.logger.Warnw("rejected processor event", "error", err)
		c.Error(err)
		return
	}

	if !event.IsInvoiceEvent() {
		c.Error(ierr.NewErrorf("unsupported object %q", event.ObjectKind).
			WithHint("Only invoice events are reconciled").
			WithReportableDetails(map[string]any{
				"event_id":    event.EventID,
				"object_kind": event.ObjectKind,
			}).
			Mark(ierr.ErrValidation))
		return
	}

	if _, err := h.publisher.PublishEvent(c.Request.Context(), event); err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "accepted"})
}
