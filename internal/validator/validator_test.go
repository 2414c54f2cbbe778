package validator

import (
	"testing"

	ierr "github.com/flexprice/debitsync/internal/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Name   string          `validate:"required"`
	Amount decimal.Decimal `validate:"gte=0"`
}

func TestValidateRequest(t *testing.T) {
	require.NoError(t, ValidateRequest(sample{Name: "a", Amount: decimal.NewFromInt(5)}))
	require.NoError(t, ValidateRequest(sample{Name: "a", Amount: decimal.Zero}))

	err := ValidateRequest(sample{Name: "a", Amount: decimal.NewFromInt(-1)})
	require.Error(t, err)
	assert.True(t, ierr.IsValidation(err))

	err = ValidateRequest(sample{Amount: decimal.NewFromInt(1)})
	require.Error(t, err)
	assert.True(t, ierr.IsValidation(err))
}
