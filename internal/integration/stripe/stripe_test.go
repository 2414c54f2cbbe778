package stripe

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/flexprice/debitsync/internal/api/dto"
	"github.com/flexprice/debitsync/internal/config"
	ierr "github.com/flexprice/debitsync/internal/errors"
	"github.com/flexprice/debitsync/internal/logger"
	"github.com/flexprice/debitsync/internal/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/stripe/stripe-go/v82/webhook"
)

const invoiceEventJSON = `{
	"id": "evt_123",
	"object": "event",
	"type": "invoice.created",
	"data": {"object": {"id": "in_123", "object": "invoice", "customer": "cus_abc"}}
}`

type StripeSuite struct {
	suite.Suite
	server   *httptest.Server
	handler  http.HandlerFunc
	cfg      *config.Configuration
	client   *Client
	lastForm url.Values
	lastReq  *http.Request
}

func TestStripe(t *testing.T) {
	suite.Run(t, new(StripeSuite))
}

func (s *StripeSuite) SetupTest() {
	s.handler = nil
	s.lastForm = nil
	s.lastReq = nil
	s.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		s.lastForm, _ = url.ParseQuery(string(body))
		s.lastReq = r
		s.handler(w, r)
	}))

	s.cfg = config.GetDefaultConfig()
	s.cfg.Stripe.SecretKey = "sk_test_123"
	s.cfg.Stripe.WebhookSecret = "whsec_test"
	s.cfg.Stripe.MaxNetworkRetries = 0
	s.client = newClient(&s.cfg.Stripe, s.server.URL, s.server.Client(), logger.NewNoopLogger())
}

func (s *StripeSuite) TearDownTest() {
	s.server.Close()
}

func (s *StripeSuite) respond(status int, body string) {
	s.handler = func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}
}

func (s *StripeSuite) gateway() *InvoiceGateway {
	return NewInvoiceGateway(s.client, s.cfg, nil, logger.NewNoopLogger()).(*InvoiceGateway)
}

func (s *StripeSuite) invoiceItemRequest() *dto.InvoiceItemRequest {
	return &dto.InvoiceItemRequest{
		ExternalCustomerID: "cus_abc",
		Amount:             decimal.NewFromInt(7025),
		Currency:           "usd",
		Description:        "Usage Charge - Feb, 28 - Mar, 28",
		Metadata:           map[string]string{"credit_id": "credit_1", "subtotal": "7025"},
		IdempotencyKey:     "idem_1",
	}
}

func (s *StripeSuite) TestCreateInvoiceItem() {
	s.respond(http.StatusOK, `{"id":"ii_1","object":"invoiceitem","amount":7025,"currency":"usd","customer":"cus_abc","description":"Usage Charge - Feb, 28 - Mar, 28"}`)

	item, err := s.gateway().CreateInvoiceItem(context.Background(), s.invoiceItemRequest())
	s.Require().NoError(err)

	s.Equal("ii_1", item.ID)
	s.True(decimal.NewFromInt(7025).Equal(item.Amount))
	s.Equal("/v1/invoiceitems", s.lastReq.URL.Path)
	s.Equal("idem_1", s.lastReq.Header.Get("Idempotency-Key"))
	s.Equal("7025", s.lastForm.Get("amount"))
	s.Equal("cus_abc", s.lastForm.Get("customer"))
	s.Equal("usd", s.lastForm.Get("currency"))
	s.Equal("credit_1", s.lastForm.Get("metadata[credit_id]"))
}

func (s *StripeSuite) TestCreateInvoiceItemMajorUnits() {
	s.cfg.Ledger.AmountUnit = types.AmountUnitMajor
	s.respond(http.StatusOK, `{"id":"ii_2","object":"invoiceitem","amount":7025,"currency":"usd","customer":"cus_abc"}`)
	req := s.invoiceItemRequest()
	req.Amount = decimal.RequireFromString("70.25")

	item, err := s.gateway().CreateInvoiceItem(context.Background(), req)
	s.Require().NoError(err)

	s.Equal("7025", s.lastForm.Get("amount"))
	s.True(decimal.RequireFromString("70.25").Equal(item.Amount))
}

func (s *StripeSuite) TestCreateInvoiceItemRejectsFractionalMinorUnits() {
	s.respond(http.StatusOK, `{}`)
	req := s.invoiceItemRequest()
	req.Amount = decimal.RequireFromString("70.25")

	_, err := s.gateway().CreateInvoiceItem(context.Background(), req)
	s.Require().Error(err)
	s.True(ierr.IsValidation(err))
	s.Nil(s.lastReq)
}

func (s *StripeSuite) TestCreateInvoiceItemErrors() {
	tests := []struct {
		name      string
		status    int
		retryable bool
	}{
		{"bad request is permanent", http.StatusBadRequest, false},
		{"rate limited is retryable", http.StatusTooManyRequests, true},
		{"server error is retryable", http.StatusInternalServerError, true},
	}

	for _, tt := range tests {
		s.Run(tt.name, func() {
			s.respond(tt.status, `{"error":{"type":"invalid_request_error","message":"nope","code":"resource_missing"}}`)

			_, err := s.gateway().CreateInvoiceItem(context.Background(), s.invoiceItemRequest())
			s.Require().Error(err)
			s.Equal(tt.retryable, ierr.IsHTTPClient(err))
			s.Equal(!tt.retryable, ierr.IsValidation(err))
		})
	}
}

func (s *StripeSuite) TestCreateInvoiceItemRejectsInvalidRequest() {
	s.respond(http.StatusOK, `{}`)
	req := s.invoiceItemRequest()
	req.Amount = decimal.NewFromInt(-1)

	_, err := s.gateway().CreateInvoiceItem(context.Background(), req)
	s.Require().Error(err)
	s.True(ierr.IsValidation(err))
	s.Nil(s.lastReq)
}

func (s *StripeSuite) verifier(mode types.VerifierMode) *EventVerifier {
	s.cfg.Stripe.Verifier = mode
	v := NewEventVerifier(s.client, s.cfg, logger.NewNoopLogger()).(*EventVerifier)
	v.now = func() time.Time { return time.Date(2023, 3, 28, 10, 0, 0, 0, time.UTC) }
	return v
}

func (s *StripeSuite) TestVerifyRetrieve() {
	s.respond(http.StatusOK, invoiceEventJSON)

	event, err := s.verifier(types.VerifierModeRetrieve).Verify(context.Background(), []byte(`{"id":"evt_123","data":{"object":{"customer":"cus_forged"}}}`), "")
	s.Require().NoError(err)

	s.Equal("/v1/events/evt_123", s.lastReq.URL.Path)
	s.Equal("cus_abc", event.ExternalCustomerID)
	s.True(event.IsInvoiceEvent())
}

func (s *StripeSuite) TestVerifyRetrieveUnknownEvent() {
	s.respond(http.StatusNotFound, `{"error":{"type":"invalid_request_error","message":"No such event"}}`)

	_, err := s.verifier(types.VerifierModeRetrieve).Verify(context.Background(), []byte(`{"id":"evt_missing"}`), "")
	s.Require().Error(err)
	s.True(ierr.IsValidation(err))
}

func (s *StripeSuite) TestVerifySignature() {
	v := s.verifier(types.VerifierModeSignature)
	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   []byte(invoiceEventJSON),
		Secret:    s.cfg.Stripe.WebhookSecret,
		Timestamp: time.Now(),
	})

	event, err := v.Verify(context.Background(), signed.Payload, signed.Header)
	s.Require().NoError(err)
	s.Equal("evt_123", event.EventID)
	s.Equal("in_123", event.ObjectID)
	s.Equal(types.StripeEventInvoiceCreated, event.EventType)

	_, err = v.Verify(context.Background(), signed.Payload, "t=1,v1=deadbeef")
	s.Require().Error(err)
	s.True(ierr.IsValidation(err))

	_, err = v.Verify(context.Background(), signed.Payload, "")
	s.True(ierr.IsValidation(err))
}

func (s *StripeSuite) TestVerifyTrustInjectsTestCustomer() {
	s.cfg.Stripe.TestCustomerID = "cus_harness"
	event, err := s.verifier(types.VerifierModeTrust).Verify(context.Background(), []byte(invoiceEventJSON), "")
	s.Require().NoError(err)
	s.Equal("cus_harness", event.ExternalCustomerID)
	s.Equal(time.Date(2023, 3, 28, 10, 0, 0, 0, time.UTC), event.ReceivedAt)
}

func (s *StripeSuite) TestVerifyRejectsMalformedPayload() {
	v := s.verifier(types.VerifierModeTrust)
	for _, body := range []string{"", "not json", `{"id":"evt_1"}`} {
		_, err := v.Verify(context.Background(), []byte(body), "")
		s.Require().Error(err, body)
		s.True(ierr.IsValidation(err), body)
	}
}

func TestToStripeAmount(t *testing.T) {
	tests := []struct {
		name    string
		amount  string
		unit    types.AmountUnit
		want    int64
		wantErr bool
	}{
		{"minor passes through", "120", types.AmountUnitMinor, 120, false},
		{"minor zero", "0", types.AmountUnitMinor, 0, false},
		{"minor rejects fractions", "70.25", types.AmountUnitMinor, 0, true},
		{"empty unit is minor", "120", "", 120, false},
		{"major converts to cents", "70.25", types.AmountUnitMajor, 7025, false},
		{"major rounds half away from zero", "0.005", types.AmountUnitMajor, 1, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ToStripeAmount(decimal.RequireFromString(tt.amount), tt.unit)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, ierr.IsValidation(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFromStripeAmount(t *testing.T) {
	assert.True(t, decimal.NewFromInt(7025).Equal(FromStripeAmount(7025, types.AmountUnitMinor)))
	assert.True(t, decimal.RequireFromString("70.25").Equal(FromStripeAmount(7025, types.AmountUnitMajor)))
}

func TestCustomerIDAcceptsExpandedObject(t *testing.T) {
	require.Equal(t, "cus_1", customerID("cus_1"))
	require.Equal(t, "cus_2", customerID(map[string]interface{}{"id": "cus_2", "object": "customer"}))
	require.Equal(t, "", customerID(nil))
}
