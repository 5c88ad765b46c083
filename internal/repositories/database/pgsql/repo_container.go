package pgsql

import (
	"github.com/jackc/pgx/v5/pgxpool"

	portsrepo "github.com/openacct/ledger_backend/internal/core/ports/repositories"
)

func NewRepositoryProvider(dbPool *pgxpool.Pool, forbidSummaryPosting bool) portsrepo.RepositoryProvider {
	accountRepo := newPgxAccountRepository(dbPool)
	fiscalPeriodRepo := newPgxFiscalPeriodRepository(dbPool)
	voucherRepo := newPgxVoucherRepository(dbPool, accountRepo, forbidSummaryPosting)
	currencyRepo := newPgxCurrencyRepository(dbPool, accountRepo, forbidSummaryPosting)

	return portsrepo.RepositoryProvider{
		AccountRepo:      accountRepo,
		FiscalPeriodRepo: fiscalPeriodRepo,
		VoucherRepo:      voucherRepo,
		CurrencyRepo:     currencyRepo,
	}
}
