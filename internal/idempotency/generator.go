package idempotency

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/flexprice/debitsync/internal/types"
)

// Scope represents the scope of idempotency
type Scope string

const (
	// ScopeUsageAdjustment keys the single AUTO credit per customer and cycle
	ScopeUsageAdjustment Scope = "usage_adjustment"
	// ScopeInvoiceItem keys the processor invoice item emitted for a credit
	ScopeInvoiceItem Scope = "invoice_item"
)

// Generator generates idempotency keys
type Generator struct{}

// NewGenerator creates a new idempotency key generator
func NewGenerator() *Generator {
	return &Generator{}
}

// GenerateKey generates an idempotency key from a scope and parameters
func (g *Generator) GenerateKey(scope Scope, params map[string]interface{}) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(string(scope))
	for _, k := range keys {
		b.WriteString(fmt.Sprintf(":%s=%v", k, params[k]))
	}

	hash := sha256.Sum256([]byte(b.String()))
	return fmt.Sprintf("%s-%s", scope, hex.EncodeToString(hash[:16]))
}

// UsageAdjustmentKey identifies the adjustment for (customer, cycle, type).
// Cycle bounds are normalised to UTC so the key does not depend on process location.
func (g *Generator) UsageAdjustmentKey(customerID string, start, end time.Time, creditType types.CreditType) string {
	return g.GenerateKey(ScopeUsageAdjustment, map[string]interface{}{
		"customer_id": customerID,
		"cycle_start": start.UTC().Format(time.RFC3339),
		"cycle_end":   end.UTC().Format(time.RFC3339),
		"type":        string(creditType),
	})
}

// InvoiceItemKey is sent to the processor so redelivery of the same credit is collapsed
func (g *Generator) InvoiceItemKey(creditID string) string {
	return g.GenerateKey(ScopeInvoiceItem, map[string]interface{}{
		"credit_id": creditID,
	})
}
