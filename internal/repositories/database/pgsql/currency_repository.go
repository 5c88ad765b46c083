package pgsql

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/openacct/ledger_backend/internal/apperrors"
	"github.com/openacct/ledger_backend/internal/core/domain"
	portsrepo "github.com/openacct/ledger_backend/internal/core/ports/repositories"
)

const currencyColumns = `
	currency_code, name, symbol, exchange_rate, is_primary,
	created_at, created_by, last_updated_at, last_updated_by`

const policyColumns = `
	policy_id, name, policy_type, conversion_timing, allow_multi_currency_balances,
	revaluation_enabled, revaluation_frequency, is_active,
	created_at, created_by, last_updated_at, last_updated_by`

const contextColumns = `
	context_id, transaction_type, transaction_id, policy_id,
	transaction_currency, transaction_amount, reference_currency,
	exchange_rate_used, converted_amount, conversion_occurred, decision,
	created_at, created_by, last_updated_at, last_updated_by`

type PgxCurrencyRepository struct {
	BaseRepository
	accounts             portsrepo.AccountTransactionSupport
	forbidSummaryPosting bool
}

// newPgxCurrencyRepository creates a new repository for currency, policy,
// context, shadow entry and revaluation data. The account repository rides
// along so revaluation vouchers get the same in-transaction account checks
// as regular postings.
func newPgxCurrencyRepository(pool *pgxpool.Pool, accounts portsrepo.AccountTransactionSupport, forbidSummaryPosting bool) portsrepo.CurrencyRepositoryFacade {
	return &PgxCurrencyRepository{
		BaseRepository:       BaseRepository{Pool: pool},
		accounts:             accounts,
		forbidSummaryPosting: forbidSummaryPosting,
	}
}

var _ portsrepo.CurrencyRepositoryFacade = (*PgxCurrencyRepository)(nil)

func scanCurrency(row pgx.Row) (*domain.Currency, error) {
	var c domain.Currency
	err := row.Scan(
		&c.CurrencyCode,
		&c.Name,
		&c.Symbol,
		&c.ExchangeRate,
		&c.IsPrimary,
		&c.CreatedAt,
		&c.CreatedBy,
		&c.LastUpdatedAt,
		&c.LastUpdatedBy,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func scanPolicy(row pgx.Row) (*domain.CurrencyPolicy, error) {
	var p domain.CurrencyPolicy
	err := row.Scan(
		&p.PolicyID,
		&p.Name,
		&p.PolicyType,
		&p.ConversionTiming,
		&p.AllowMultiCurrencyBalances,
		&p.RevaluationEnabled,
		&p.RevaluationFrequency,
		&p.IsActive,
		&p.CreatedAt,
		&p.CreatedBy,
		&p.LastUpdatedAt,
		&p.LastUpdatedBy,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// FindCurrencyByCode retrieves a currency by its code.
func (r *PgxCurrencyRepository) FindCurrencyByCode(ctx context.Context, currencyCode string) (*domain.Currency, error) {
	query := `SELECT ` + currencyColumns + ` FROM currencies WHERE currency_code = $1;`
	currency, err := scanCurrency(r.Pool.QueryRow(ctx, query, currencyCode))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, apperrors.NewAppError(500, "failed to find currency "+currencyCode, err)
	}
	return currency, nil
}

// FindPrimaryCurrency retrieves the single reference currency.
func (r *PgxCurrencyRepository) FindPrimaryCurrency(ctx context.Context) (*domain.Currency, error) {
	query := `SELECT ` + currencyColumns + ` FROM currencies WHERE is_primary = TRUE;`
	currency, err := scanCurrency(r.Pool.QueryRow(ctx, query))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, apperrors.NewAppError(500, "failed to find reference currency", err)
	}
	return currency, nil
}

// ListCurrencies retrieves all configured currencies.
func (r *PgxCurrencyRepository) ListCurrencies(ctx context.Context) ([]domain.Currency, error) {
	query := `SELECT ` + currencyColumns + ` FROM currencies ORDER BY currency_code;`
	rows, err := r.Pool.Query(ctx, query)
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to query currencies", err)
	}
	defer rows.Close()

	currencies := []domain.Currency{}
	for rows.Next() {
		currency, err := scanCurrency(rows)
		if err != nil {
			return nil, apperrors.NewAppError(500, "failed to scan currency row", err)
		}
		currencies = append(currencies, *currency)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewAppError(500, "error iterating currency rows", err)
	}
	return currencies, nil
}

// SaveCurrency persists a new currency. The partial unique index on
// is_primary keeps the reference currency unique under concurrency.
func (r *PgxCurrencyRepository) SaveCurrency(ctx context.Context, currency domain.Currency) error {
	query := `
		INSERT INTO currencies (` + currencyColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9);
	`
	_, err := r.Pool.Exec(ctx, query,
		currency.CurrencyCode,
		currency.Name,
		currency.Symbol,
		currency.ExchangeRate,
		currency.IsPrimary,
		currency.CreatedAt,
		currency.CreatedBy,
		currency.LastUpdatedAt,
		currency.LastUpdatedBy,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return apperrors.NewAppError(409, "currency "+currency.CurrencyCode+" already exists", apperrors.ErrDuplicate)
		}
		return apperrors.NewAppError(500, "failed to insert currency "+currency.CurrencyCode, err)
	}
	return nil
}

// SaveExchangeRate records a historical rate for a currency pair and date.
func (r *PgxCurrencyRepository) SaveExchangeRate(ctx context.Context, rate domain.ExchangeRate) error {
	query := `
		INSERT INTO exchange_rates (
			exchange_rate_id, from_currency_code, to_currency_code, rate, date_effective,
			created_at, created_by, last_updated_at, last_updated_by
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9);
	`
	_, err := r.Pool.Exec(ctx, query,
		rate.ExchangeRateID,
		rate.FromCurrencyCode,
		rate.ToCurrencyCode,
		rate.Rate,
		rate.DateEffective,
		rate.CreatedAt,
		rate.CreatedBy,
		rate.LastUpdatedAt,
		rate.LastUpdatedBy,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return apperrors.NewAppError(409, "rate for "+rate.FromCurrencyCode+"/"+rate.ToCurrencyCode+" on that date already exists", apperrors.ErrDuplicate)
		}
		return apperrors.NewAppError(500, "failed to insert exchange rate", err)
	}
	return nil
}

// FindHistoricalRate retrieves the recorded rate for the exact pair and date.
func (r *PgxCurrencyRepository) FindHistoricalRate(ctx context.Context, fromCode, toCode string, date time.Time) (*domain.ExchangeRate, error) {
	query := `
		SELECT exchange_rate_id, from_currency_code, to_currency_code, rate, date_effective,
		       created_at, created_by, last_updated_at, last_updated_by
		FROM exchange_rates
		WHERE from_currency_code = $1 AND to_currency_code = $2 AND date_effective = $3::date;
	`
	var rate domain.ExchangeRate
	err := r.Pool.QueryRow(ctx, query, fromCode, toCode, date).Scan(
		&rate.ExchangeRateID,
		&rate.FromCurrencyCode,
		&rate.ToCurrencyCode,
		&rate.Rate,
		&rate.DateEffective,
		&rate.CreatedAt,
		&rate.CreatedBy,
		&rate.LastUpdatedAt,
		&rate.LastUpdatedBy,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, apperrors.NewAppError(500, "failed to find historical rate "+fromCode+"/"+toCode, err)
	}
	return &rate, nil
}

// FindActivePolicy retrieves the single active policy.
func (r *PgxCurrencyRepository) FindActivePolicy(ctx context.Context) (*domain.CurrencyPolicy, error) {
	query := `SELECT ` + policyColumns + ` FROM currency_policies WHERE is_active = TRUE;`
	policy, err := scanPolicy(r.Pool.QueryRow(ctx, query))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, apperrors.NewAppError(500, "failed to find active currency policy", err)
	}
	return policy, nil
}

// FindPolicyByID retrieves a policy by its identifier.
func (r *PgxCurrencyRepository) FindPolicyByID(ctx context.Context, policyID string) (*domain.CurrencyPolicy, error) {
	query := `SELECT ` + policyColumns + ` FROM currency_policies WHERE policy_id = $1;`
	policy, err := scanPolicy(r.Pool.QueryRow(ctx, query, policyID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, apperrors.NewAppError(500, "failed to find currency policy "+policyID, err)
	}
	return policy, nil
}

// ListPolicies retrieves all policies ordered by creation time.
func (r *PgxCurrencyRepository) ListPolicies(ctx context.Context) ([]domain.CurrencyPolicy, error) {
	query := `SELECT ` + policyColumns + ` FROM currency_policies ORDER BY created_at;`
	rows, err := r.Pool.Query(ctx, query)
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to query currency policies", err)
	}
	defer rows.Close()

	policies := []domain.CurrencyPolicy{}
	for rows.Next() {
		policy, err := scanPolicy(rows)
		if err != nil {
			return nil, apperrors.NewAppError(500, "failed to scan currency policy row", err)
		}
		policies = append(policies, *policy)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewAppError(500, "error iterating currency policy rows", err)
	}
	return policies, nil
}

// SavePolicy persists a new policy record.
func (r *PgxCurrencyRepository) SavePolicy(ctx context.Context, policy domain.CurrencyPolicy) error {
	query := `
		INSERT INTO currency_policies (` + policyColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12);
	`
	_, err := r.Pool.Exec(ctx, query,
		policy.PolicyID,
		policy.Name,
		policy.PolicyType,
		policy.ConversionTiming,
		policy.AllowMultiCurrencyBalances,
		policy.RevaluationEnabled,
		policy.RevaluationFrequency,
		policy.IsActive,
		policy.CreatedAt,
		policy.CreatedBy,
		policy.LastUpdatedAt,
		policy.LastUpdatedBy,
	)
	if err != nil {
		return apperrors.NewAppError(500, "failed to insert currency policy "+policy.PolicyID, err)
	}
	return nil
}

// ActivatePolicy activates the given policy and deactivates every other one,
// atomically. Policies are swapped, never mutated in place.
func (r *PgxCurrencyRepository) ActivatePolicy(ctx context.Context, policyID string, userID string, now time.Time) error {
	tx, err := r.Begin(ctx)
	if err != nil {
		return err
	}
	defer r.Rollback(ctx, tx)

	deactivateQuery := `
		UPDATE currency_policies
		SET is_active = FALSE, last_updated_at = $1, last_updated_by = $2
		WHERE is_active = TRUE AND policy_id != $3;
	`
	if _, err := tx.Exec(ctx, deactivateQuery, now, userID, policyID); err != nil {
		return apperrors.NewAppError(500, "failed to deactivate current currency policy", err)
	}

	activateQuery := `
		UPDATE currency_policies
		SET is_active = TRUE, last_updated_at = $1, last_updated_by = $2
		WHERE policy_id = $3;
	`
	cmdTag, err := tx.Exec(ctx, activateQuery, now, userID, policyID)
	if err != nil {
		return apperrors.NewAppError(500, "failed to activate currency policy "+policyID, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return apperrors.NewNotFoundError("currency policy " + policyID + " not found")
	}

	return r.Commit(ctx, tx)
}

// insertTransactionContext inserts one context row within a transaction.
// The unique index on (transaction_type, transaction_id) rejects a second
// context for the same source transaction.
func insertTransactionContext(ctx context.Context, tx pgx.Tx, tcc domain.TransactionCurrencyContext) error {
	query := `
		INSERT INTO transaction_currency_contexts (` + contextColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15);
	`
	_, err := tx.Exec(ctx, query,
		tcc.ContextID,
		tcc.TransactionType,
		tcc.TransactionID,
		tcc.PolicyID,
		tcc.TransactionCurrency,
		tcc.TransactionAmount,
		tcc.ReferenceCurrency,
		tcc.ExchangeRateUsed,
		tcc.ConvertedAmount,
		tcc.ConversionOccurred,
		tcc.Decision,
		tcc.CreatedAt,
		tcc.CreatedBy,
		tcc.LastUpdatedAt,
		tcc.LastUpdatedBy,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return apperrors.NewAppError(409, "currency context for "+tcc.TransactionType+"/"+tcc.TransactionID+" already exists", apperrors.ErrDuplicate)
		}
		return apperrors.NewAppError(500, "failed to insert currency context", err)
	}
	return nil
}

// SaveTransactionContext persists one context row in its own transaction.
func (r *PgxCurrencyRepository) SaveTransactionContext(ctx context.Context, tcc domain.TransactionCurrencyContext) error {
	tx, err := r.Begin(ctx)
	if err != nil {
		return err
	}
	defer r.Rollback(ctx, tx)

	if err := insertTransactionContext(ctx, tx, tcc); err != nil {
		return err
	}
	return r.Commit(ctx, tx)
}

// FindTransactionContext retrieves the context for a source transaction.
func (r *PgxCurrencyRepository) FindTransactionContext(ctx context.Context, transactionType, transactionID string) (*domain.TransactionCurrencyContext, error) {
	query := `
		SELECT ` + contextColumns + `
		FROM transaction_currency_contexts
		WHERE transaction_type = $1 AND transaction_id = $2;
	`
	var tcc domain.TransactionCurrencyContext
	err := r.Pool.QueryRow(ctx, query, transactionType, transactionID).Scan(
		&tcc.ContextID,
		&tcc.TransactionType,
		&tcc.TransactionID,
		&tcc.PolicyID,
		&tcc.TransactionCurrency,
		&tcc.TransactionAmount,
		&tcc.ReferenceCurrency,
		&tcc.ExchangeRateUsed,
		&tcc.ConvertedAmount,
		&tcc.ConversionOccurred,
		&tcc.Decision,
		&tcc.CreatedAt,
		&tcc.CreatedBy,
		&tcc.LastUpdatedAt,
		&tcc.LastUpdatedBy,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, apperrors.NewAppError(500, "failed to find currency context for "+transactionType+"/"+transactionID, err)
	}
	return &tcc, nil
}

// SumShadowEntries sums original-currency debits and credits for one account
// in one currency.
func (r *PgxCurrencyRepository) SumShadowEntries(ctx context.Context, accountCode, currencyCode string) (decimal.Decimal, decimal.Decimal, error) {
	query := `
		SELECT
			COALESCE(SUM(original_amount) FILTER (WHERE entry_type = 'DEBIT'), 0),
			COALESCE(SUM(original_amount) FILTER (WHERE entry_type = 'CREDIT'), 0)
		FROM currency_ledger_entries
		WHERE account_code = $1 AND original_currency = $2;
	`
	var debits, credits decimal.Decimal
	if err := r.Pool.QueryRow(ctx, query, accountCode, currencyCode).Scan(&debits, &credits); err != nil {
		return decimal.Zero, decimal.Zero, apperrors.NewAppError(500, "failed to sum "+currencyCode+" entries for account "+accountCode, err)
	}
	return debits, credits, nil
}

// CurrencyBalancesByAccount returns every currency the account holds activity
// in, with debit/credit aggregates.
func (r *PgxCurrencyRepository) CurrencyBalancesByAccount(ctx context.Context, accountCode string) ([]domain.CurrencyBalance, error) {
	query := `
		SELECT e.original_currency, e.account_code, a.account_type,
			COALESCE(SUM(e.original_amount) FILTER (WHERE e.entry_type = 'DEBIT'), 0),
			COALESCE(SUM(e.original_amount) FILTER (WHERE e.entry_type = 'CREDIT'), 0)
		FROM currency_ledger_entries e
		JOIN accounts a ON a.account_code = e.account_code
		WHERE e.account_code = $1
		GROUP BY e.original_currency, e.account_code, a.account_type
		ORDER BY e.original_currency;
	`
	return r.queryCurrencyBalances(ctx, query, accountCode)
}

// AccountsHoldingCurrency returns per-account aggregates for every account
// with shadow activity in the currency.
func (r *PgxCurrencyRepository) AccountsHoldingCurrency(ctx context.Context, currencyCode string) ([]domain.CurrencyBalance, error) {
	query := `
		SELECT e.original_currency, e.account_code, a.account_type,
			COALESCE(SUM(e.original_amount) FILTER (WHERE e.entry_type = 'DEBIT'), 0),
			COALESCE(SUM(e.original_amount) FILTER (WHERE e.entry_type = 'CREDIT'), 0)
		FROM currency_ledger_entries e
		JOIN accounts a ON a.account_code = e.account_code
		WHERE e.original_currency = $1
		GROUP BY e.original_currency, e.account_code, a.account_type
		ORDER BY e.account_code;
	`
	return r.queryCurrencyBalances(ctx, query, currencyCode)
}

func (r *PgxCurrencyRepository) queryCurrencyBalances(ctx context.Context, query string, args ...interface{}) ([]domain.CurrencyBalance, error) {
	rows, err := r.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to query currency balances", err)
	}
	defer rows.Close()

	balances := []domain.CurrencyBalance{}
	for rows.Next() {
		var b domain.CurrencyBalance
		if err := rows.Scan(&b.CurrencyCode, &b.AccountCode, &b.AccountType, &b.Debits, &b.Credits); err != nil {
			return nil, apperrors.NewAppError(500, "failed to scan currency balance row", err)
		}
		balances = append(balances, b)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewAppError(500, "error iterating currency balance rows", err)
	}
	return balances, nil
}

// TrialBalanceActivityByCurrency groups shadow activity per currency and
// account for the multi-currency trial balance.
func (r *PgxCurrencyRepository) TrialBalanceActivityByCurrency(ctx context.Context, asOf *time.Time) (map[string][]domain.CurrencyBalance, error) {
	query := `
		SELECT e.original_currency, e.account_code, a.account_type,
			COALESCE(SUM(e.original_amount) FILTER (WHERE e.entry_type = 'DEBIT'), 0),
			COALESCE(SUM(e.original_amount) FILTER (WHERE e.entry_type = 'CREDIT'), 0)
		FROM currency_ledger_entries e
		JOIN accounts a ON a.account_code = e.account_code
		WHERE a.is_active = TRUE
	`
	args := []interface{}{}
	if asOf != nil {
		query += ` AND e.entry_date <= $1`
		args = append(args, *asOf)
	}
	query += ` GROUP BY e.original_currency, e.account_code, a.account_type ORDER BY e.original_currency, e.account_code;`

	balances, err := r.queryCurrencyBalances(ctx, query, args...)
	if err != nil {
		return nil, err
	}

	grouped := make(map[string][]domain.CurrencyBalance)
	for _, b := range balances {
		grouped[b.CurrencyCode] = append(grouped[b.CurrencyCode], b)
	}
	return grouped, nil
}

// SaveRevaluationRun commits the gain/loss voucher, all revaluation rows and
// the currency's new spot rate as one transaction; partial application never
// survives. The voucher is optional: zero-effect runs pass nil and record
// only their rows. Returns the adjustment voucher number when one was posted.
func (r *PgxCurrencyRepository) SaveRevaluationRun(ctx context.Context, revaluations []domain.Revaluation, currencyCode string, newRate decimal.Decimal, voucher *domain.Voucher, lines []domain.LedgerLine, userID string, now time.Time) (*string, error) {
	tx, err := r.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer r.Rollback(ctx, tx)

	var adjustmentNumber *string
	if voucher != nil {
		if err := recheckPeriodInTx(ctx, tx, voucher.FiscalPeriodID); err != nil {
			return nil, err
		}
		if err := verifyPostableAccountsInTx(ctx, tx, r.accounts, lineAccountCodes(lines), r.forbidSummaryPosting); err != nil {
			return nil, err
		}
		number, err := insertVoucherInTx(ctx, tx, *voucher, lines)
		if err != nil {
			return nil, err
		}
		adjustmentNumber = &number
	}

	batch := &pgx.Batch{}
	revQuery := `
		INSERT INTO revaluations (
			revaluation_id, currency_code, account_code, previous_rate, new_rate,
			previous_balance, new_balance, gain_loss, adjustment_number, fiscal_period_id,
			created_at, created_by, last_updated_at, last_updated_by
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14);
	`
	for _, rev := range revaluations {
		// The adjustment number only exists once the sequencer ran in this
		// transaction, so it is stamped here rather than by the caller.
		rowNumber := rev.AdjustmentNumber
		if adjustmentNumber != nil {
			rowNumber = adjustmentNumber
		}
		batch.Queue(revQuery,
			rev.RevaluationID,
			rev.CurrencyCode,
			rev.AccountCode,
			rev.PreviousRate,
			rev.NewRate,
			rev.PreviousBalance,
			rev.NewBalance,
			rev.GainLoss,
			rowNumber,
			rev.FiscalPeriodID,
			rev.CreatedAt,
			rev.CreatedBy,
			rev.LastUpdatedAt,
			rev.LastUpdatedBy,
		)
	}

	br := tx.SendBatch(ctx, batch)
	if err := br.Close(); err != nil {
		return nil, apperrors.NewAppError(500, "failed to execute revaluation batch for "+currencyCode, err)
	}

	rateQuery := `
		UPDATE currencies
		SET exchange_rate = $2, last_updated_at = $3, last_updated_by = $4
		WHERE currency_code = $1;
	`
	cmdTag, err := tx.Exec(ctx, rateQuery, currencyCode, newRate, now, userID)
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to update spot rate for "+currencyCode, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return nil, apperrors.NewNotFoundError("currency " + currencyCode + " not found")
	}

	if err := r.Commit(ctx, tx); err != nil {
		return nil, err
	}
	return adjustmentNumber, nil
}
