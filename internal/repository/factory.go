package repository

import (
	"github.com/flexprice/debitsync/internal/cache"
	"github.com/flexprice/debitsync/internal/clickhouse"
	"github.com/flexprice/debitsync/internal/config"
	"github.com/flexprice/debitsync/internal/domain/credit"
	"github.com/flexprice/debitsync/internal/domain/customer"
	"github.com/flexprice/debitsync/internal/domain/debit"
	ierr "github.com/flexprice/debitsync/internal/errors"
	"github.com/flexprice/debitsync/internal/logger"
	"github.com/flexprice/debitsync/internal/postgres"
	clickhouseRepo "github.com/flexprice/debitsync/internal/repository/clickhouse"
	postgresRepo "github.com/flexprice/debitsync/internal/repository/postgres"
	"github.com/flexprice/debitsync/internal/sentry"
	"github.com/flexprice/debitsync/internal/types"
	"go.uber.org/fx"
)

type RepositoryParams struct {
	fx.In

	Config *config.Configuration
	DB     *postgres.DB
	Logger *logger.Logger
	Sentry *sentry.Service
	Cache  cache.Cache
	// ClickHouse is only provided when ledger.debit_store is clickhouse
	ClickHouse *clickhouse.ClickHouseStore `optional:"true"`
}

func NewCustomerRepository(p RepositoryParams) customer.Repository {
	return NewCachedCustomerRepository(
		postgresRepo.NewCustomerRepository(p.DB, p.Logger, p.Sentry),
		p.Cache,
		p.Logger,
	)
}

func NewCreditRepository(p RepositoryParams) credit.Repository {
	return postgresRepo.NewCreditRepository(p.DB, p.Logger, p.Sentry)
}

// NewDebitRepository selects the usage debit store from ledger.debit_store
func NewDebitRepository(p RepositoryParams) (debit.Repository, error) {
	switch p.Config.Ledger.DebitStore {
	case types.DebitStoreClickHouse:
		if p.ClickHouse == nil {
			return nil, ierr.NewError("clickhouse store not configured").
				WithHint("ledger.debit_store is clickhouse but no clickhouse connection was provided").
				Mark(ierr.ErrSystem)
		}
		return clickhouseRepo.NewDebitRepository(p.ClickHouse, p.Logger), nil
	case types.DebitStorePostgres, "":
		return postgresRepo.NewDebitRepository(p.DB, p.Logger, p.Sentry), nil
	default:
		return nil, ierr.NewError("unknown debit store").
			WithHintf("Unsupported ledger.debit_store %q", p.Config.Ledger.DebitStore).
			Mark(ierr.ErrValidation)
	}
}
