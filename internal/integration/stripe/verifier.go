package stripe

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/flexprice/debitsync/internal/api/dto"
	"github.com/flexprice/debitsync/internal/config"
	ierr "github.com/flexprice/debitsync/internal/errors"
	"github.com/flexprice/debitsync/internal/interfaces"
	"github.com/flexprice/debitsync/internal/logger"
	"github.com/flexprice/debitsync/internal/types"
	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"
)

// EventVerifier authenticates inbound Stripe webhooks.
//
// retrieve: the event is fetched again from Stripe by id and the fetched copy is used.
// signature: the Stripe-Signature header is checked against the webhook secret.
// trust: the body is used as is; stripe.test_customer_id, when set, replaces the customer.
type EventVerifier struct {
	client *Client
	config *config.StripeConfig
	mode   types.VerifierMode
	logger *logger.Logger
	now    func() time.Time
}

func NewEventVerifier(client *Client, cfg *config.Configuration, logger *logger.Logger) interfaces.EventVerifier {
	return &EventVerifier{
		client: client,
		config: &cfg.Stripe,
		mode:   cfg.Stripe.Verifier,
		logger: logger,
		now:    time.Now,
	}
}

func (v *EventVerifier) Verify(ctx context.Context, body []byte, signature string) (*dto.ReconciliationEvent, error) {
	if len(body) == 0 {
		return nil, ierr.NewError("empty webhook payload").
			WithHint("Request body is required").
			Mark(ierr.ErrValidation)
	}

	var (
		event *stripe.Event
		err   error
	)
	switch v.mode {
	case types.VerifierModeRetrieve:
		event, err = v.retrieve(ctx, body)
	case types.VerifierModeSignature:
		event, err = v.checkSignature(body, signature)
	case types.VerifierModeTrust:
		event, err = parseEvent(body)
	default:
		return nil, ierr.NewErrorf("unknown verifier mode %q", v.mode).
			Mark(ierr.ErrSystem)
	}
	if err != nil {
		return nil, err
	}

	override := ""
	if v.mode == types.VerifierModeTrust {
		override = v.config.TestCustomerID
	}
	return toReconciliationEvent(event, override, v.now())
}

func (v *EventVerifier) retrieve(ctx context.Context, body []byte) (*stripe.Event, error) {
	var envelope struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil || envelope.ID == "" {
		return nil, ierr.NewError("webhook payload has no event id").
			WithHint("Payload must be a Stripe event").
			Mark(ierr.ErrValidation)
	}

	event, err := v.client.api.V1Events.Retrieve(ctx, envelope.ID, nil)
	if err != nil {
		v.logger.Warnw("failed to retrieve stripe event", "event_id", envelope.ID, "error", err)
		return nil, ierr.WithError(err).
			WithHintf("Could not retrieve event %s from Stripe", envelope.ID).
			Mark(ierr.ErrValidation)
	}
	return event, nil
}

func (v *EventVerifier) checkSignature(body []byte, signature string) (*stripe.Event, error) {
	if signature == "" {
		return nil, ierr.NewError("missing Stripe-Signature header").
			WithHint("Stripe-Signature header is required").
			Mark(ierr.ErrValidation)
	}

	event, err := webhook.ConstructEventWithOptions(body, signature, v.config.WebhookSecret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Invalid webhook signature").
			Mark(ierr.ErrValidation)
	}
	return &event, nil
}

func parseEvent(body []byte) (*stripe.Event, error) {
	var event stripe.Event
	if err := json.Unmarshal(body, &event); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Payload is not a valid Stripe event").
			Mark(ierr.ErrValidation)
	}
	return &event, nil
}

func toReconciliationEvent(event *stripe.Event, customerOverride string, receivedAt time.Time) (*dto.ReconciliationEvent, error) {
	if event == nil || event.ID == "" || event.Data == nil || event.Data.Object == nil {
		return nil, ierr.NewError("event has no data object").
			WithHint("Payload must be a Stripe event with data.object").
			Mark(ierr.ErrValidation)
	}

	object := event.Data.Object
	result := &dto.ReconciliationEvent{
		EventID:            event.ID,
		EventType:          string(event.Type),
		ObjectKind:         stringField(object, "object"),
		ObjectID:           stringField(object, "id"),
		ExternalCustomerID: customerID(object["customer"]),
		ReceivedAt:         receivedAt.UTC(),
	}
	if customerOverride != "" {
		result.ExternalCustomerID = customerOverride
	}
	return result, nil
}

func stringField(object map[string]interface{}, key string) string {
	s, _ := object[key].(string)
	return strings.TrimSpace(s)
}

// customerID accepts both the plain id and an expanded customer object
func customerID(v interface{}) string {
	switch c := v.(type) {
	case string:
		return c
	case map[string]interface{}:
		return stringField(c, "id")
	}
	return ""
}
