package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/flexprice/debitsync/internal/api/dto"
	v1 "github.com/flexprice/debitsync/internal/api/v1"
	"github.com/flexprice/debitsync/internal/config"
	"github.com/flexprice/debitsync/internal/domain/deadletter"
	ierr "github.com/flexprice/debitsync/internal/errors"
	"github.com/flexprice/debitsync/internal/service"
	"github.com/flexprice/debitsync/internal/testutil"
	"github.com/flexprice/debitsync/internal/types"
	"github.com/flexprice/debitsync/internal/webhook/publisher"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/suite"
)

type stubVerifier struct {
	event *dto.ReconciliationEvent
	err   error
	calls []string
}

func (v *stubVerifier) Verify(ctx context.Context, body []byte, signature string) (*dto.ReconciliationEvent, error) {
	v.calls = append(v.calls, signature)
	if v.err != nil {
		return nil, v.err
	}
	return v.event, nil
}

type RouterSuite struct {
	testutil.BaseServiceTestSuite
	cfg         *config.Configuration
	verifier    *stubVerifier
	deadLetters service.DeadLetterService
	router      *gin.Engine
}

func TestRouter(t *testing.T) {
	gin.SetMode(gin.TestMode)
	suite.Run(t, new(RouterSuite))
}

func (s *RouterSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()

	cfg := *s.GetConfig()
	s.cfg = &cfg

	stores := s.GetStores()
	params := service.NewServiceParams(
		s.GetLogger(),
		s.cfg,
		nil,
		s.GetMetrics(),
		stores.CustomerRepo,
		stores.DebitRepo,
		stores.CreditRepo,
		stores.DeadLetterRepo,
		s.GetPubSub(),
		s.GetGateway(),
	)
	s.deadLetters = service.NewDeadLetterService(params)
	s.verifier = &stubVerifier{event: &dto.ReconciliationEvent{
		EventID:            "evt_1",
		EventType:          types.StripeEventInvoiceCreated,
		ObjectKind:         types.StripeObjectInvoice,
		ObjectID:           "in_1",
		ExternalCustomerID: "cus_abc",
	}}

	s.router = NewRouter(Handlers{
		Health:     v1.NewHealthHandler(s.cfg),
		Debits:     v1.NewDebitsHandler(s.verifier, publisher.NewPublisher(s.GetPubSub(), s.cfg, s.GetLogger()), s.GetLogger()),
		DeadLetter: v1.NewDeadLetterHandler(s.deadLetters, s.GetLogger()),
	}, s.cfg, s.GetLogger(), s.GetMetrics())
}

func (s *RouterSuite) do(method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *RouterSuite) TestSyncAcceptsAndQueues() {
	w := s.do(http.MethodPost, "/debits/sync", `{"id":"evt_1"}`, map[string]string{
		"Stripe-Signature": "t=1,v1=abc",
		"X-Request-ID":     "req-42",
	})

	s.Equal(http.StatusOK, w.Code)
	s.JSONEq(`{"message":"accepted"}`, w.Body.String())
	s.Equal("req-42", w.Header().Get(types.HeaderRequestID))
	s.Equal([]string{"t=1,v1=abc"}, s.verifier.calls)

	messages := s.GetPubSub().GetMessages(s.cfg.Reconciliation.Topic)
	s.Require().Len(messages, 1)
	s.Equal("evt_1", messages[0].Metadata.Get("event_id"))
	s.Equal("req-42", messages[0].Metadata.Get("request_id"))

	var queued dto.ReconciliationEvent
	s.Require().NoError(json.Unmarshal(messages[0].Payload, &queued))
	s.Equal("cus_abc", queued.ExternalCustomerID)
}

func (s *RouterSuite) TestSyncRejectsUnverifiedEvent() {
	s.verifier.err = ierr.NewError("bad signature").
		WithHint("Invalid Stripe signature").
		Mark(ierr.ErrValidation)

	w := s.do(http.MethodPost, "/debits/sync", `{}`, nil)

	s.Equal(http.StatusBadRequest, w.Code)
	s.Contains(w.Body.String(), "Invalid Stripe signature")
	s.Empty(s.GetPubSub().GetMessages(s.cfg.Reconciliation.Topic))
}

func (s *RouterSuite) TestSyncRejectsNonInvoiceEvent() {
	s.verifier.event.ObjectKind = "customer"

	w := s.do(http.MethodPost, "/debits/sync", `{}`, nil)

	s.Equal(http.StatusBadRequest, w.Code)
	s.Empty(s.GetPubSub().GetMessages(s.cfg.Reconciliation.Topic))
}

func (s *RouterSuite) TestSyncPublishFailure() {
	s.GetPubSub().PublishErr = ierr.NewError("broker down").Mark(ierr.ErrSystem)

	w := s.do(http.MethodPost, "/debits/sync", `{}`, nil)

	s.Equal(http.StatusInternalServerError, w.Code)
}

func (s *RouterSuite) TestHealthAndMetrics() {
	w := s.do(http.MethodGet, "/health", "", nil)
	s.Equal(http.StatusOK, w.Code)
	s.Contains(w.Body.String(), `"status":"ok"`)
	s.NotEmpty(w.Header().Get(types.HeaderRequestID))

	w = s.do(http.MethodGet, "/metrics", "", nil)
	s.Equal(http.StatusOK, w.Code)
	s.Contains(w.Body.String(), "debitsync_invoiced_amount_total")
}

func (s *RouterSuite) TestDeadLetterLifecycle() {
	s.Require().NoError(s.deadLetters.Record(s.GetContext(), &deadletter.Entry{
		ID:      "dlq_1",
		Kind:    types.DeadLetterKindReconciliation,
		EventID: "evt_9",
		Outcome: string(types.OutcomeRetrievalFailure),
		Error:   "connection refused",
		Payload: json.RawMessage(`{"event_id":"evt_9"}`),
	}))
	s.Require().NoError(s.deadLetters.Record(s.GetContext(), &deadletter.Entry{
		ID:      "dlq_2",
		Kind:    types.DeadLetterKindReconciliation,
		EventID: "evt_10",
		Outcome: string(types.OutcomeCustomerNotFound),
		Payload: json.RawMessage(`{"event_id":"evt_10"}`),
	}))

	w := s.do(http.MethodGet, "/v1/deadletters?limit=10", "", nil)
	s.Require().Equal(http.StatusOK, w.Code)
	var list dto.ListDeadLettersResponse
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &list))
	s.Equal(2, list.Total)

	w = s.do(http.MethodGet, "/v1/deadletters?limit=abc", "", nil)
	s.Equal(http.StatusBadRequest, w.Code)

	w = s.do(http.MethodPost, "/v1/deadletters/dlq_1/replay", "", nil)
	s.Require().Equal(http.StatusOK, w.Code)
	var replay dto.ReplayDeadLetterResponse
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &replay))
	s.Equal(s.cfg.Reconciliation.Topic, replay.Topic)
	s.Len(s.GetPubSub().GetMessages(s.cfg.Reconciliation.Topic), 1)

	w = s.do(http.MethodGet, "/v1/deadletters/dlq_1", "", nil)
	s.Equal(http.StatusNotFound, w.Code)

	w = s.do(http.MethodDelete, "/v1/deadletters/dlq_2", "", nil)
	s.Equal(http.StatusNoContent, w.Code)

	w = s.do(http.MethodDelete, "/v1/deadletters/dlq_2", "", nil)
	s.Equal(http.StatusNotFound, w.Code)
}
