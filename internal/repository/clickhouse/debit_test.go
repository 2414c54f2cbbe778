package clickhouse

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestListDebitsInWindowQueryReadsMergedRows(t *testing.T) {
	query := strings.Join(strings.Fields(listDebitsInWindowQuery), " ")

	assert.Contains(t, query, "FROM usage_debits FINAL")
	assert.Contains(t, query, "created_at >= ? AND created_at < ?")
}
