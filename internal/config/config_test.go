package config

import (
	"testing"

	"github.com/flexprice/debitsync/internal/types"
	"github.com/stretchr/testify/assert"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := GetDefaultConfig()
	assert.NoError(t, cfg.Validate())
	assert.False(t, cfg.IsProduction())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Configuration)
		wantErr bool
	}{
		{
			name:   "trust verifier in development",
			mutate: func(c *Configuration) {},
		},
		{
			name: "trust verifier refused in production",
			mutate: func(c *Configuration) {
				c.Deployment.Environment = types.EnvironmentProduction
			},
			wantErr: true,
		},
		{
			name: "signature verifier needs a webhook secret",
			mutate: func(c *Configuration) {
				c.Stripe.Verifier = types.VerifierModeSignature
			},
			wantErr: true,
		},
		{
			name: "signature verifier with secret",
			mutate: func(c *Configuration) {
				c.Stripe.Verifier = types.VerifierModeSignature
				c.Stripe.WebhookSecret = "whsec_test"
			},
		},
		{
			name: "clickhouse debit store without address",
			mutate: func(c *Configuration) {
				c.Ledger.DebitStore = types.DebitStoreClickHouse
			},
			wantErr: true,
		},
		{
			name: "major ledger amounts",
			mutate: func(c *Configuration) {
				c.Ledger.AmountUnit = types.AmountUnitMajor
			},
		},
		{
			name: "unknown ledger amount unit",
			mutate: func(c *Configuration) {
				c.Ledger.AmountUnit = "dollars"
			},
			wantErr: true,
		},
		{
			name: "unknown emission mode",
			mutate: func(c *Configuration) {
				c.Outbox.Mode = "carrier-pigeon"
			},
			wantErr: true,
		},
		{
			name: "unknown run mode",
			mutate: func(c *Configuration) {
				c.Deployment.Mode = "batch"
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := GetDefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestPostgresDSN(t *testing.T) {
	c := PostgresConfig{Host: "db", Port: 5432, User: "u", Password: "p", DBName: "ledger", SSLMode: "disable"}
	assert.Equal(t, "user=u password=p dbname=ledger host=db port=5432 sslmode=disable", c.GetDSN())
	assert.Equal(t, "postgres://u:p@db:5432/ledger?sslmode=disable", c.GetMigrateURL())
}
