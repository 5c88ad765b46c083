package accounting_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openacct/ledger_backend/internal/core/domain"
	"github.com/openacct/ledger_backend/internal/utils/accounting"
)

func TestSignedAmount(t *testing.T) {
	amount := decimal.NewFromInt(100)

	testCases := []struct {
		name        string
		entryType   domain.EntryType
		accountType domain.AccountType
		expected    decimal.Decimal
	}{
		{"debit asset is positive", domain.Debit, domain.Asset, amount},
		{"credit asset is negative", domain.Credit, domain.Asset, amount.Neg()},
		{"debit expense is positive", domain.Debit, domain.Expense, amount},
		{"credit expense is negative", domain.Credit, domain.Expense, amount.Neg()},
		{"debit liability is negative", domain.Debit, domain.Liability, amount.Neg()},
		{"credit liability is positive", domain.Credit, domain.Liability, amount},
		{"debit equity is negative", domain.Debit, domain.Equity, amount.Neg()},
		{"credit equity is positive", domain.Credit, domain.Equity, amount},
		{"debit revenue is negative", domain.Debit, domain.Revenue, amount.Neg()},
		{"credit revenue is positive", domain.Credit, domain.Revenue, amount},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := accounting.SignedAmount(tc.entryType, tc.accountType, amount)
			require.NoError(t, err)
			assert.True(t, tc.expected.Equal(got), "expected %s, got %s", tc.expected, got)
		})
	}
}

func TestSignedAmount_UnknownAccountType(t *testing.T) {
	_, err := accounting.SignedAmount(domain.Debit, domain.AccountType("WEIRD"), decimal.NewFromInt(1))
	assert.Error(t, err)
}

func TestNetBalance(t *testing.T) {
	debits := decimal.NewFromInt(150)
	credits := decimal.NewFromInt(90)

	balance, err := accounting.NetBalance(domain.Asset, debits, credits)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(60).Equal(balance))

	balance, err = accounting.NetBalance(domain.Revenue, debits, credits)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(-60).Equal(balance))

	_, err = accounting.NetBalance(domain.AccountType("WEIRD"), debits, credits)
	assert.Error(t, err)
}

func TestSumByEntryType(t *testing.T) {
	lines := []domain.LedgerLine{
		{EntryType: domain.Debit, Amount: decimal.NewFromInt(100)},
		{EntryType: domain.Credit, Amount: decimal.NewFromInt(70)},
		{EntryType: domain.Credit, Amount: decimal.NewFromInt(30)},
	}

	debits, credits := accounting.SumByEntryType(lines)
	assert.True(t, decimal.NewFromInt(100).Equal(debits))
	assert.True(t, decimal.NewFromInt(100).Equal(credits))
}

func TestIsBalanced(t *testing.T) {
	assert.True(t, accounting.IsBalanced(decimal.NewFromInt(100), decimal.NewFromInt(100)))
	// Within the 0.01 tolerance.
	assert.True(t, accounting.IsBalanced(decimal.NewFromFloat(100.009), decimal.NewFromInt(100)))
	assert.False(t, accounting.IsBalanced(decimal.NewFromFloat(100.02), decimal.NewFromInt(100)))
}
