package accounting

import (
	"fmt"

	"github.com/openacct/ledger_backend/internal/core/domain"
	"github.com/shopspring/decimal"
)

// SignedAmount applies the correct sign to a line amount based on account
// type and entry type. This is the single authoritative debit/credit-to-sign
// rule; balances, trial balances and currency balances must all go through
// it rather than re-deriving the branch.
//
// DEBIT to ASSET/EXPENSE -> Positive (+)
// CREDIT to ASSET/EXPENSE -> Negative (-)
// DEBIT to LIABILITY/EQUITY/REVENUE -> Negative (-)
// CREDIT to LIABILITY/EQUITY/REVENUE -> Positive (+)
func SignedAmount(entryType domain.EntryType, accountType domain.AccountType, amount decimal.Decimal) (decimal.Decimal, error) {
	isDebit := entryType == domain.Debit

	switch accountType {
	case domain.Asset, domain.Expense:
		if !isDebit {
			return amount.Neg(), nil
		}
		return amount, nil
	case domain.Liability, domain.Equity, domain.Revenue:
		if isDebit {
			return amount.Neg(), nil
		}
		return amount, nil
	default:
		return decimal.Zero, fmt.Errorf("unknown account type '%s'", accountType)
	}
}

// NetBalance converts separate debit and credit sums into a single balance
// using the same convention as SignedAmount: debit-positive for Asset and
// Expense accounts, credit-positive otherwise.
func NetBalance(accountType domain.AccountType, debits, credits decimal.Decimal) (decimal.Decimal, error) {
	switch accountType {
	case domain.Asset, domain.Expense:
		return debits.Sub(credits), nil
	case domain.Liability, domain.Equity, domain.Revenue:
		return credits.Sub(debits), nil
	default:
		return decimal.Zero, fmt.Errorf("unknown account type '%s'", accountType)
	}
}

// SumByEntryType returns the total debit and credit amounts of the lines.
func SumByEntryType(lines []domain.LedgerLine) (debits, credits decimal.Decimal) {
	debits = decimal.Zero
	credits = decimal.Zero
	for _, line := range lines {
		if line.EntryType == domain.Debit {
			debits = debits.Add(line.Amount)
		} else {
			credits = credits.Add(line.Amount)
		}
	}
	return debits, credits
}

// IsBalanced reports whether debits and credits agree within the
// configured tolerance.
func IsBalanced(debits, credits decimal.Decimal) bool {
	return debits.Sub(credits).Abs().LessThanOrEqual(domain.BalanceTolerance)
}
