package pgsql

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/openacct/ledger_backend/internal/apperrors"
	"github.com/openacct/ledger_backend/internal/core/domain"
	portsrepo "github.com/openacct/ledger_backend/internal/core/ports/repositories"
	"github.com/openacct/ledger_backend/internal/utils/pagination"
)

const voucherColumns = `
	voucher_id, voucher_number, document_type, voucher_date, fiscal_period_id,
	description, reference_type, reference_id,
	created_at, created_by, last_updated_at, last_updated_by`

const ledgerLineColumns = `
	ledger_line_id, voucher_id, account_code, entry_type, amount, description,
	reference_type, reference_id, is_closed,
	created_at, created_by, last_updated_at, last_updated_by`

// prefixColumns qualifies every column of a comma-separated list with a
// table alias, for queries that join.
func prefixColumns(alias, columns string) string {
	parts := strings.Split(columns, ",")
	for i, p := range parts {
		parts[i] = alias + "." + strings.TrimSpace(p)
	}
	return strings.Join(parts, ", ")
}

type PgxVoucherRepository struct {
	BaseRepository
	accounts             portsrepo.AccountTransactionSupport
	forbidSummaryPosting bool
}

// newPgxVoucherRepository creates a new repository for voucher and ledger
// line data. The account repository rides along so postings can re-check
// their accounts inside the commit transaction.
func newPgxVoucherRepository(pool *pgxpool.Pool, accounts portsrepo.AccountTransactionSupport, forbidSummaryPosting bool) portsrepo.VoucherRepositoryFacade {
	return &PgxVoucherRepository{
		BaseRepository:       BaseRepository{Pool: pool},
		accounts:             accounts,
		forbidSummaryPosting: forbidSummaryPosting,
	}
}

var _ portsrepo.VoucherRepositoryFacade = (*PgxVoucherRepository)(nil)

// recheckPeriodInTx re-reads the fiscal period's lock state under a share
// lock, so a concurrent lock or close always wins or loses cleanly against
// the posting.
func recheckPeriodInTx(ctx context.Context, tx pgx.Tx, fiscalPeriodID string) error {
	var isLocked, isClosed bool
	query := `SELECT is_locked, is_closed FROM fiscal_periods WHERE fiscal_period_id = $1 FOR SHARE;`
	if err := tx.QueryRow(ctx, query, fiscalPeriodID).Scan(&isLocked, &isClosed); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("%w: fiscal period %s does not exist", apperrors.ErrIntegrity, fiscalPeriodID)
		}
		return apperrors.NewAppError(500, "failed to re-check fiscal period "+fiscalPeriodID, err)
	}
	if isLocked || isClosed {
		return fmt.Errorf("%w: fiscal period %s is locked or closed", apperrors.ErrIntegrity, fiscalPeriodID)
	}
	return nil
}

// verifyPostableAccountsInTx share-locks the posting's accounts and re-runs
// the active and summary checks, so a deactivation or hierarchy change that
// lands after service-level validation cannot race the commit.
func verifyPostableAccountsInTx(ctx context.Context, tx pgx.Tx, accounts portsrepo.AccountTransactionSupport, accountCodes []string, forbidSummary bool) error {
	locked, err := accounts.FindAccountsByCodesForShare(ctx, tx, accountCodes)
	if err != nil {
		return err
	}
	for _, code := range accountCodes {
		if !locked[code].IsActive {
			return fmt.Errorf("%w: account %s is inactive", apperrors.ErrIntegrity, code)
		}
		if !forbidSummary {
			continue
		}
		hasChildren, err := accounts.HasChildAccountsInTx(ctx, tx, code)
		if err != nil {
			return err
		}
		if hasChildren {
			return fmt.Errorf("%w: account %s has child accounts", apperrors.ErrIntegrity, code)
		}
	}
	return nil
}

// lineAccountCodes collects the distinct account codes of the lines in
// first-seen order.
func lineAccountCodes(lines []domain.LedgerLine) []string {
	seen := make(map[string]struct{}, len(lines))
	codes := make([]string, 0, len(lines))
	for _, line := range lines {
		if _, ok := seen[line.AccountCode]; ok {
			continue
		}
		seen[line.AccountCode] = struct{}{}
		codes = append(codes, line.AccountCode)
	}
	return codes
}

// insertVoucherInTx assigns the voucher number and inserts the header and
// ledger lines within the caller's transaction. The sequencer is consumed
// only when no number was supplied, so a rolled-back posting never burns a
// gap into the numbering.
func insertVoucherInTx(ctx context.Context, tx pgx.Tx, voucher domain.Voucher, lines []domain.LedgerLine) (string, error) {
	voucherNumber := voucher.VoucherNumber
	if voucherNumber == "" {
		var err error
		voucherNumber, err = nextVoucherNumberInTx(ctx, tx, voucher.DocumentType)
		if err != nil {
			return "", err
		}
	}

	voucherQuery := `
		INSERT INTO vouchers (` + voucherColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12);
	`
	_, err := tx.Exec(ctx, voucherQuery,
		voucher.VoucherID,
		voucherNumber,
		voucher.DocumentType,
		voucher.VoucherDate,
		voucher.FiscalPeriodID,
		voucher.Description,
		voucher.ReferenceType,
		voucher.ReferenceID,
		voucher.CreatedAt,
		voucher.CreatedBy,
		voucher.LastUpdatedAt,
		voucher.LastUpdatedBy,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return "", apperrors.NewAppError(409, "voucher number "+voucherNumber+" already exists", apperrors.ErrDuplicate)
		}
		return "", apperrors.NewAppError(500, "failed to insert voucher "+voucherNumber, err)
	}

	batch := &pgx.Batch{}
	lineQuery := `
		INSERT INTO ledger_lines (` + ledgerLineColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13);
	`
	for _, line := range lines {
		batch.Queue(lineQuery,
			line.LedgerLineID,
			voucher.VoucherID,
			line.AccountCode,
			line.EntryType,
			line.Amount,
			line.Description,
			line.ReferenceType,
			line.ReferenceID,
			line.IsClosed,
			line.CreatedAt,
			line.CreatedBy,
			line.LastUpdatedAt,
			line.LastUpdatedBy,
		)
	}
	br := tx.SendBatch(ctx, batch)
	if err := br.Close(); err != nil {
		return "", apperrors.NewAppError(500, "failed to execute line batch for voucher "+voucherNumber, err)
	}
	return voucherNumber, nil
}

// SaveVoucher persists the voucher, its ledger lines, any shadow currency
// entries and the transaction currency context as one database transaction.
// The fiscal period's lock state and every line's account are re-checked
// under share locks before anything is written, so a concurrent lock, close,
// deactivation or hierarchy change cannot race the posting decision.
func (r *PgxVoucherRepository) SaveVoucher(ctx context.Context, voucher domain.Voucher, lines []domain.LedgerLine, shadowEntries []domain.CurrencyLedgerEntry, currencyContext *domain.TransactionCurrencyContext) (string, []domain.LedgerLine, error) {
	tx, err := r.Begin(ctx)
	if err != nil {
		return "", nil, err
	}
	defer r.Rollback(ctx, tx)

	// 1. Re-check the period and the accounts inside the transaction.
	if err := recheckPeriodInTx(ctx, tx, voucher.FiscalPeriodID); err != nil {
		return "", nil, err
	}
	if err := verifyPostableAccountsInTx(ctx, tx, r.accounts, lineAccountCodes(lines), r.forbidSummaryPosting); err != nil {
		return "", nil, err
	}

	// 2. Assign the number and insert the header and lines.
	voucherNumber, err := insertVoucherInTx(ctx, tx, voucher, lines)
	if err != nil {
		return "", nil, err
	}

	// 3. Batch-insert the shadow currency entries alongside their lines.
	batch := &pgx.Batch{}
	shadowQuery := `
		INSERT INTO currency_ledger_entries (
			entry_id, ledger_line_id, voucher_number, account_code, entry_type,
			original_currency, original_amount, posted_currency, posted_amount,
			exchange_rate_used, entry_date,
			created_at, created_by, last_updated_at, last_updated_by
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15);
	`
	for _, entry := range shadowEntries {
		batch.Queue(shadowQuery,
			entry.EntryID,
			entry.LedgerLineID,
			voucherNumber,
			entry.AccountCode,
			entry.EntryType,
			entry.OriginalCurrency,
			entry.OriginalAmount,
			entry.PostedCurrency,
			entry.PostedAmount,
			entry.ExchangeRateUsed,
			entry.EntryDate,
			entry.CreatedAt,
			entry.CreatedBy,
			entry.LastUpdatedAt,
			entry.LastUpdatedBy,
		)
	}

	br := tx.SendBatch(ctx, batch)
	if err := br.Close(); err != nil {
		return "", nil, apperrors.NewAppError(500, "failed to execute shadow entry batch for voucher "+voucherNumber, err)
	}

	// 4. Insert the transaction currency context, if one travels with the
	// voucher. The unique index rejects a second context for the same
	// source transaction.
	if currencyContext != nil {
		if err := insertTransactionContext(ctx, tx, *currencyContext); err != nil {
			return "", nil, err
		}
	}

	if err := r.Commit(ctx, tx); err != nil {
		return "", nil, err
	}

	saved := make([]domain.LedgerLine, len(lines))
	copy(saved, lines)
	return voucherNumber, saved, nil
}

// NextVoucherNumberInTx atomically increments the per-document-type counter
// within the given transaction and returns the formatted number.
func (r *PgxVoucherRepository) NextVoucherNumberInTx(ctx context.Context, tx pgx.Tx, documentType string) (string, error) {
	return nextVoucherNumberInTx(ctx, tx, documentType)
}

// nextVoucherNumberInTx upserts the per-document-type counter row. The
// upsert both creates the row on first use and serializes concurrent
// increments on the row lock.
func nextVoucherNumberInTx(ctx context.Context, tx pgx.Tx, documentType string) (string, error) {
	query := `
		INSERT INTO voucher_sequences (document_type, prefix, pad_width, last_value)
		VALUES ($1, $1 || '-', 6, 1)
		ON CONFLICT (document_type)
		DO UPDATE SET last_value = voucher_sequences.last_value + 1
		RETURNING prefix, pad_width, last_value;
	`
	var prefix string
	var padWidth int
	var lastValue int64
	if err := tx.QueryRow(ctx, query, documentType).Scan(&prefix, &padWidth, &lastValue); err != nil {
		return "", apperrors.NewAppError(500, "failed to increment voucher sequence for "+documentType, err)
	}
	return fmt.Sprintf("%s%0*d", prefix, padWidth, lastValue), nil
}

// FindSequence retrieves the counter row for a document type.
func (r *PgxVoucherRepository) FindSequence(ctx context.Context, documentType string) (*domain.VoucherSequence, error) {
	query := `SELECT document_type, prefix, pad_width, last_value FROM voucher_sequences WHERE document_type = $1;`
	var seq domain.VoucherSequence
	err := r.Pool.QueryRow(ctx, query, documentType).Scan(&seq.DocumentType, &seq.Prefix, &seq.PadWidth, &seq.LastValue)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, apperrors.NewAppError(500, "failed to find voucher sequence for "+documentType, err)
	}
	return &seq, nil
}

func scanVoucher(row pgx.Row) (*domain.Voucher, error) {
	var v domain.Voucher
	err := row.Scan(
		&v.VoucherID,
		&v.VoucherNumber,
		&v.DocumentType,
		&v.VoucherDate,
		&v.FiscalPeriodID,
		&v.Description,
		&v.ReferenceType,
		&v.ReferenceID,
		&v.CreatedAt,
		&v.CreatedBy,
		&v.LastUpdatedAt,
		&v.LastUpdatedBy,
	)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func scanLedgerLine(row pgx.Row) (*domain.LedgerLine, error) {
	var l domain.LedgerLine
	err := row.Scan(
		&l.LedgerLineID,
		&l.VoucherID,
		&l.AccountCode,
		&l.EntryType,
		&l.Amount,
		&l.Description,
		&l.ReferenceType,
		&l.ReferenceID,
		&l.IsClosed,
		&l.CreatedAt,
		&l.CreatedBy,
		&l.LastUpdatedAt,
		&l.LastUpdatedBy,
	)
	if err != nil {
		return nil, err
	}
	return &l, nil
}

// FindVoucherByNumber retrieves a voucher header by its document number.
func (r *PgxVoucherRepository) FindVoucherByNumber(ctx context.Context, voucherNumber string) (*domain.Voucher, error) {
	query := `SELECT ` + voucherColumns + ` FROM vouchers WHERE voucher_number = $1;`
	voucher, err := scanVoucher(r.Pool.QueryRow(ctx, query, voucherNumber))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, apperrors.NewAppError(500, "failed to find voucher "+voucherNumber, err)
	}
	return voucher, nil
}

// FindLinesByVoucherNumber retrieves all ledger lines of a voucher in
// insertion order.
func (r *PgxVoucherRepository) FindLinesByVoucherNumber(ctx context.Context, voucherNumber string) ([]domain.LedgerLine, error) {
	query := `
		SELECT ` + prefixColumns("l", ledgerLineColumns) + `
		FROM ledger_lines l
		JOIN vouchers v ON l.voucher_id = v.voucher_id
		WHERE v.voucher_number = $1
		ORDER BY l.created_at, l.ledger_line_id;
	`
	rows, err := r.Pool.Query(ctx, query, voucherNumber)
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to query lines of voucher "+voucherNumber, err)
	}
	defer rows.Close()

	lines := []domain.LedgerLine{}
	for rows.Next() {
		line, err := scanLedgerLine(rows)
		if err != nil {
			return nil, apperrors.NewAppError(500, "failed to scan ledger line row for voucher "+voucherNumber, err)
		}
		lines = append(lines, *line)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewAppError(500, "error iterating ledger line rows for voucher "+voucherNumber, err)
	}
	return lines, nil
}

// ListVouchers retrieves a paginated list of vouchers using token-based
// pagination over (voucher_date, created_at) descending.
func (r *PgxVoucherRepository) ListVouchers(ctx context.Context, limit int, nextToken *string) ([]domain.Voucher, *string, error) {
	if limit <= 0 {
		limit = 20
	}
	fetchLimit := limit + 1

	baseQuery := `SELECT ` + voucherColumns + ` FROM vouchers`
	orderByClause := `ORDER BY voucher_date DESC, created_at DESC`

	var rows pgx.Rows
	var err error
	args := []interface{}{}

	if nextToken != nil && *nextToken != "" {
		lastDate, lastCreatedAt, decodeErr := pagination.DecodeToken(*nextToken)
		if decodeErr != nil {
			return nil, nil, apperrors.NewAppError(400, "invalid nextToken", decodeErr)
		}
		args = append(args, lastDate, lastCreatedAt)
		query := baseQuery + ` WHERE (voucher_date, created_at) < ($1, $2) ` + orderByClause + ` LIMIT $3;`
		args = append(args, fetchLimit)
		rows, err = r.Pool.Query(ctx, query, args...)
	} else {
		query := baseQuery + ` ` + orderByClause + ` LIMIT $1;`
		args = append(args, fetchLimit)
		rows, err = r.Pool.Query(ctx, query, args...)
	}
	if err != nil {
		return nil, nil, apperrors.NewAppError(500, "failed to query vouchers", err)
	}
	defer rows.Close()

	vouchers := make([]domain.Voucher, 0, fetchLimit)
	for rows.Next() {
		voucher, err := scanVoucher(rows)
		if err != nil {
			return nil, nil, apperrors.NewAppError(500, "failed to scan voucher row", err)
		}
		vouchers = append(vouchers, *voucher)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, apperrors.NewAppError(500, "error iterating voucher rows", err)
	}

	var nextTokenVal *string
	if len(vouchers) > limit {
		last := vouchers[limit-1]
		token := pagination.EncodeToken(last.VoucherDate, last.CreatedAt)
		nextTokenVal = &token
		vouchers = vouchers[:limit]
	}
	return vouchers, nextTokenVal, nil
}

// ListLinesByAccountCode retrieves a paginated account statement ordered by
// voucher date descending with creation time as tie-breaker.
func (r *PgxVoucherRepository) ListLinesByAccountCode(ctx context.Context, accountCode string, limit int, nextToken *string) ([]domain.LedgerLine, *string, error) {
	if limit <= 0 {
		limit = 20
	}
	fetchLimit := limit + 1

	baseQuery := `
		SELECT ` + prefixColumns("l", ledgerLineColumns) + `, v.voucher_date
		FROM ledger_lines l
		JOIN vouchers v ON l.voucher_id = v.voucher_id
		WHERE l.account_code = $1
	`
	orderByClause := `ORDER BY v.voucher_date DESC, l.created_at DESC`

	var rows pgx.Rows
	var err error
	args := []interface{}{accountCode}

	if nextToken != nil && *nextToken != "" {
		lastDate, lastCreatedAt, decodeErr := pagination.DecodeToken(*nextToken)
		if decodeErr != nil {
			return nil, nil, apperrors.NewAppError(400, "invalid nextToken", decodeErr)
		}
		cursorClause := `AND (v.voucher_date, l.created_at) < ($2, $3)`
		args = append(args, lastDate, lastCreatedAt)
		query := baseQuery + " " + cursorClause + " " + orderByClause + " LIMIT $" + strconv.Itoa(len(args)+1) + ";"
		args = append(args, fetchLimit)
		rows, err = r.Pool.Query(ctx, query, args...)
	} else {
		query := baseQuery + " " + orderByClause + " LIMIT $" + strconv.Itoa(len(args)+1) + ";"
		args = append(args, fetchLimit)
		rows, err = r.Pool.Query(ctx, query, args...)
	}
	if err != nil {
		return nil, nil, apperrors.NewAppError(500, "failed to query lines for account "+accountCode, err)
	}
	defer rows.Close()

	type lineWithDate struct {
		line        domain.LedgerLine
		voucherDate time.Time
	}
	results := make([]lineWithDate, 0, fetchLimit)
	for rows.Next() {
		var l domain.LedgerLine
		var voucherDate time.Time
		err := rows.Scan(
			&l.LedgerLineID,
			&l.VoucherID,
			&l.AccountCode,
			&l.EntryType,
			&l.Amount,
			&l.Description,
			&l.ReferenceType,
			&l.ReferenceID,
			&l.IsClosed,
			&l.CreatedAt,
			&l.CreatedBy,
			&l.LastUpdatedAt,
			&l.LastUpdatedBy,
			&voucherDate,
		)
		if err != nil {
			return nil, nil, apperrors.NewAppError(500, "failed to scan ledger line row for account "+accountCode, err)
		}
		results = append(results, lineWithDate{line: l, voucherDate: voucherDate})
	}
	if err := rows.Err(); err != nil {
		return nil, nil, apperrors.NewAppError(500, "error iterating ledger line rows for account "+accountCode, err)
	}

	var nextTokenVal *string
	if len(results) > limit {
		last := results[limit-1]
		token := pagination.EncodeToken(last.voucherDate, last.line.CreatedAt)
		nextTokenVal = &token
		results = results[:limit]
	}

	lines := make([]domain.LedgerLine, len(results))
	for i, res := range results {
		lines[i] = res.line
	}
	return lines, nextTokenVal, nil
}

// SumAccountEntries sums DEBIT and CREDIT amounts separately over non-closed
// lines of the account, optionally bounded by voucher date.
func (r *PgxVoucherRepository) SumAccountEntries(ctx context.Context, accountCode string, asOf *time.Time) (decimal.Decimal, decimal.Decimal, error) {
	query := `
		SELECT
			COALESCE(SUM(l.amount) FILTER (WHERE l.entry_type = 'DEBIT'), 0),
			COALESCE(SUM(l.amount) FILTER (WHERE l.entry_type = 'CREDIT'), 0)
		FROM ledger_lines l
		JOIN vouchers v ON l.voucher_id = v.voucher_id
		WHERE l.account_code = $1 AND l.is_closed = FALSE
	`
	args := []interface{}{accountCode}
	if asOf != nil {
		query += ` AND v.voucher_date <= $2`
		args = append(args, *asOf)
	}

	var debits, credits decimal.Decimal
	if err := r.Pool.QueryRow(ctx, query, args...).Scan(&debits, &credits); err != nil {
		return decimal.Zero, decimal.Zero, apperrors.NewAppError(500, "failed to sum entries for account "+accountCode, err)
	}
	return debits, credits, nil
}

// TrialBalanceActivity returns per-account debit/credit aggregates for every
// active account with nonzero activity. Pure read.
func (r *PgxVoucherRepository) TrialBalanceActivity(ctx context.Context, asOf *time.Time) ([]domain.AccountActivity, error) {
	query := `
		SELECT a.account_code, a.name, a.account_type,
			COALESCE(SUM(l.amount) FILTER (WHERE l.entry_type = 'DEBIT'), 0),
			COALESCE(SUM(l.amount) FILTER (WHERE l.entry_type = 'CREDIT'), 0)
		FROM accounts a
		JOIN ledger_lines l ON l.account_code = a.account_code
		JOIN vouchers v ON l.voucher_id = v.voucher_id
		WHERE a.is_active = TRUE AND l.is_closed = FALSE
	`
	args := []interface{}{}
	if asOf != nil {
		query += ` AND v.voucher_date <= $1`
		args = append(args, *asOf)
	}
	query += ` GROUP BY a.account_code, a.name, a.account_type ORDER BY a.account_code;`

	rows, err := r.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to query trial balance activity", err)
	}
	defer rows.Close()

	activity := []domain.AccountActivity{}
	for rows.Next() {
		var act domain.AccountActivity
		if err := rows.Scan(&act.AccountCode, &act.AccountName, &act.AccountType, &act.Debits, &act.Credits); err != nil {
			return nil, apperrors.NewAppError(500, "failed to scan trial balance row", err)
		}
		activity = append(activity, act)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewAppError(500, "error iterating trial balance rows", err)
	}
	return activity, nil
}
