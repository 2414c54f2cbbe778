package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"github.com/flexprice/debitsync/internal/api/dto"
	"github.com/flexprice/debitsync/internal/domain/deadletter"
	ierr "github.com/flexprice/debitsync/internal/errors"
	"github.com/flexprice/debitsync/internal/pubsub"
	"github.com/flexprice/debitsync/internal/types"
	"github.com/samber/lo"
)

const defaultDeadLetterListLimit = 100

type DeadLetterService interface {
	// Record stores a failed unit of work
	Record(ctx context.Context, entry *deadletter.Entry) error
	// RecordOutcome stores a failed reconciliation with the event as replay payload
	RecordOutcome(ctx context.Context, payload []byte, outcome *dto.ReconciliationOutcome) error
	List(ctx context.Context, limit int) (*dto.ListDeadLettersResponse, error)
	Get(ctx context.Context, id string) (*dto.DeadLetterResponse, error)
	// Replay republishes the entry to its topic and removes it
	Replay(ctx context.Context, id string) (*dto.ReplayDeadLetterResponse, error)
	Delete(ctx context.Context, id string) error
	// PoisonSink is where the message router forwards exhausted messages
	PoisonSink() message.Publisher
}

type deadLetterService struct {
	ServiceParams
}

func NewDeadLetterService(params ServiceParams) DeadLetterService {
	return &deadLetterService{ServiceParams: params}
}

func (s *deadLetterService) Record(ctx context.Context, entry *deadletter.Entry) error {
	if entry.ID == "" {
		entry.ID = types.GenerateUUIDWithPrefix(types.UUID_PREFIX_DEAD_LETTER)
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = s.now().UTC()
	}
	if entry.Attempts == 0 {
		entry.Attempts = 1
	}

	if err := s.DeadLetterRepo.Save(ctx, entry); err != nil {
		s.Logger.Errorw("failed to save dead letter",
			"kind", entry.Kind,
			"event_id", entry.EventID,
			"error", err,
		)
		s.Sentry.CaptureException(err)
		return err
	}

	s.Metrics.IncDeadLetter(entry.Kind)
	s.Logger.Warnw("dead-lettered work",
		"dead_letter_id", entry.ID,
		"kind", entry.Kind,
		"event_id", entry.EventID,
		"customer_id", entry.CustomerID,
		"credit_id", entry.CreditID,
		"outcome", entry.Outcome,
		"error", entry.Error,
	)
	return nil
}

func (s *deadLetterService) RecordOutcome(ctx context.Context, payload []byte, outcome *dto.ReconciliationOutcome) error {
	entry := &deadletter.Entry{
		Kind:       types.DeadLetterKindReconciliation,
		EventID:    outcome.EventID,
		CustomerID: outcome.CustomerID,
		CreditID:   outcome.CreditID,
		Outcome:    string(outcome.Kind),
		Payload:    payload,
	}
	if outcome.Err != nil {
		entry.Error = outcome.Err.Error()
	}
	// the adjustment exists; replay must deliver the invoice item, not reconcile again
	if outcome.Kind == types.OutcomeEmissionFailure && outcome.PendingEmission != nil {
		body, err := json.Marshal(outcome.PendingEmission)
		if err != nil {
			return ierr.WithError(err).
				WithHint("Failed to encode pending emission").
				Mark(ierr.ErrSystem)
		}
		entry.Kind = types.DeadLetterKindEmission
		entry.Payload = body
	}
	return s.Record(ctx, entry)
}

func (s *deadLetterService) List(ctx context.Context, limit int) (*dto.ListDeadLettersResponse, error) {
	if limit <= 0 {
		limit = defaultDeadLetterListLimit
	}
	entries, err := s.DeadLetterRepo.List(ctx, limit)
	if err != nil {
		return nil, err
	}
	return &dto.ListDeadLettersResponse{
		Items: lo.Map(entries, func(e *deadletter.Entry, _ int) *dto.DeadLetterResponse {
			return dto.NewDeadLetterResponse(e)
		}),
		Total: len(entries),
	}, nil
}

func (s *deadLetterService) Get(ctx context.Context, id string) (*dto.DeadLetterResponse, error) {
	entry, err := s.DeadLetterRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return dto.NewDeadLetterResponse(entry), nil
}

func (s *deadLetterService) Replay(ctx context.Context, id string) (*dto.ReplayDeadLetterResponse, error) {
	entry, err := s.DeadLetterRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if len(entry.Payload) == 0 {
		return nil, ierr.NewError("dead letter has no payload").
			WithHint("This entry cannot be replayed").
			WithReportableDetails(map[string]any{"id": id}).
			Mark(ierr.ErrInvalidOperation)
	}

	topic := s.topicFor(entry.Kind)
	msg := message.NewMessage(types.GenerateUUID(), message.Payload(entry.Payload))
	msg.Metadata.Set(pubsub.MetadataEventID, entry.EventID)
	if entry.CustomerID != "" {
		msg.Metadata.Set(pubsub.MetadataCustomerID, entry.CustomerID)
	}
	if entry.CreditID != "" {
		msg.Metadata.Set(pubsub.MetadataCreditID, entry.CreditID)
	}

	if err := s.PubSub.Publish(ctx, topic, msg); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to republish dead letter").
			Mark(ierr.ErrSystem)
	}

	if err := s.DeadLetterRepo.Delete(ctx, id); err != nil {
		// the message is already queued; a leftover entry is harmless
		s.Logger.Warnw("failed to remove replayed dead letter", "dead_letter_id", id, "error", err)
	}

	s.Logger.Infow("replayed dead letter",
		"dead_letter_id", id,
		"kind", entry.Kind,
		"topic", topic,
		"message_id", msg.UUID,
	)
	return &dto.ReplayDeadLetterResponse{
		ID:        id,
		Topic:     topic,
		MessageID: msg.UUID,
	}, nil
}

func (s *deadLetterService) Delete(ctx context.Context, id string) error {
	if _, err := s.DeadLetterRepo.Get(ctx, id); err != nil {
		return err
	}
	return s.DeadLetterRepo.Delete(ctx, id)
}

func (s *deadLetterService) topicFor(kind types.DeadLetterKind) string {
	if kind == types.DeadLetterKindEmission {
		return s.Config.Outbox.Topic
	}
	return s.Config.Reconciliation.Topic
}

func (s *deadLetterService) kindFor(topic string) types.DeadLetterKind {
	if topic == s.Config.Outbox.Topic {
		return types.DeadLetterKindEmission
	}
	return types.DeadLetterKindReconciliation
}

func (s *deadLetterService) PoisonSink() message.Publisher {
	return &poisonSink{service: s}
}

// poisonSink turns messages rejected by the router into dead-letter entries
type poisonSink struct {
	service *deadLetterService
}

func (p *poisonSink) Publish(_ string, messages ...*message.Message) error {
	for _, msg := range messages {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		err := p.service.Record(ctx, &deadletter.Entry{
			Kind:       p.service.kindFor(msg.Metadata.Get(middleware.PoisonedTopicKey)),
			EventID:    msg.Metadata.Get(pubsub.MetadataEventID),
			CustomerID: msg.Metadata.Get(pubsub.MetadataCustomerID),
			CreditID:   msg.Metadata.Get(pubsub.MetadataCreditID),
			Outcome:    "poisoned",
			Error:      msg.Metadata.Get(middleware.ReasonForPoisonedKey),
			Payload:    append([]byte(nil), msg.Payload...),
			Attempts:   p.service.Config.Outbox.MaxRetries + 1,
		})
		cancel()
		if err != nil {
			return err
		}
	}
	return nil
}

func (p *poisonSink) Close() error {
	return nil
}
