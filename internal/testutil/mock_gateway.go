package testutil

import (
	"context"
	"sync"

	"github.com/flexprice/debitsync/internal/api/dto"
	"github.com/flexprice/debitsync/internal/types"
)

// MockInvoiceGateway records invoice item calls and collapses repeated
// idempotency keys the way Stripe does
type MockInvoiceGateway struct {
	mu       sync.Mutex
	requests []*dto.InvoiceItemRequest
	items    map[string]*dto.InvoiceItem
	// Err, when set, fails every call
	Err error
}

func NewMockInvoiceGateway() *MockInvoiceGateway {
	return &MockInvoiceGateway{items: make(map[string]*dto.InvoiceItem)}
}

func (g *MockInvoiceGateway) CreateInvoiceItem(ctx context.Context, req *dto.InvoiceItemRequest) (*dto.InvoiceItem, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.requests = append(g.requests, req)
	if g.Err != nil {
		return nil, g.Err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if item, ok := g.items[req.IdempotencyKey]; ok && req.IdempotencyKey != "" {
		return item, nil
	}
	item := &dto.InvoiceItem{
		ID:                 types.GenerateUUIDWithPrefix("ii"),
		ExternalCustomerID: req.ExternalCustomerID,
		Amount:             req.Amount,
		Currency:           req.Currency,
		Description:        req.Description,
	}
	g.items[req.IdempotencyKey] = item
	return item, nil
}

// Requests returns every call made, including failed ones
func (g *MockInvoiceGateway) Requests() []*dto.InvoiceItemRequest {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]*dto.InvoiceItemRequest(nil), g.requests...)
}

// Items returns the distinct invoice items created
func (g *MockInvoiceGateway) Items() []*dto.InvoiceItem {
	g.mu.Lock()
	defer g.mu.Unlock()
	items := make([]*dto.InvoiceItem, 0, len(g.items))
	for _, item := range g.items {
		items = append(items, item)
	}
	return items
}

func (g *MockInvoiceGateway) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.requests = nil
	g.items = make(map[string]*dto.InvoiceItem)
	g.Err = nil
}
