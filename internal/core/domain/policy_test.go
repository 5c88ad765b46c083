package domain_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/openacct/ledger_backend/internal/core/domain"
)

func snapshotWith(policyType domain.PolicyType, timing domain.ConversionTiming) domain.PolicySnapshot {
	return domain.PolicySnapshot{
		ActivePolicy: &domain.CurrencyPolicy{
			PolicyID:         "policy-1",
			PolicyType:       policyType,
			ConversionTiming: timing,
			IsActive:         true,
		},
		ReferenceCurrency: &domain.Currency{CurrencyCode: "USD", IsPrimary: true},
	}
}

func TestDetermineConversionDecision_NoActivePolicy(t *testing.T) {
	snap := domain.PolicySnapshot{}
	// Without a policy the engine fails safe to normalization behavior.
	assert.Equal(t, domain.DecisionPolicyMandated, snap.DetermineConversionDecision("EUR", false))
}

func TestDetermineConversionDecision_SameCurrencyWinsOverEverything(t *testing.T) {
	for _, pt := range []domain.PolicyType{domain.PolicyUnitOfMeasure, domain.PolicyValuedAsset, domain.PolicyNormalization} {
		snap := snapshotWith(pt, domain.TimingNever)
		assert.Equal(t, domain.DecisionSameCurrency, snap.DetermineConversionDecision("USD", false))
		assert.Equal(t, domain.DecisionSameCurrency, snap.DetermineConversionDecision("USD", true))
	}
}

func TestDetermineConversionDecision_UserRequestWinsOverDeferral(t *testing.T) {
	snap := snapshotWith(domain.PolicyUnitOfMeasure, domain.TimingNever)
	assert.Equal(t, domain.DecisionUserRequested, snap.DetermineConversionDecision("EUR", true))
}

// Every policy type and timing combination maps to exactly one decision.
func TestDetermineConversionDecision_TableIsTotal(t *testing.T) {
	timings := []domain.ConversionTiming{domain.TimingPosting, domain.TimingSettlement, domain.TimingReporting, domain.TimingNever}

	expected := map[domain.PolicyType]map[domain.ConversionTiming]domain.ConversionDecision{
		domain.PolicyNormalization: {
			domain.TimingPosting:    domain.DecisionPolicyMandated,
			domain.TimingSettlement: domain.DecisionPolicyMandated,
			domain.TimingReporting:  domain.DecisionPolicyMandated,
			domain.TimingNever:      domain.DecisionPolicyMandated,
		},
		domain.PolicyUnitOfMeasure: {
			domain.TimingPosting:    domain.DecisionDeferred,
			domain.TimingSettlement: domain.DecisionDeferred,
			domain.TimingReporting:  domain.DecisionDeferred,
			domain.TimingNever:      domain.DecisionDeferred,
		},
		domain.PolicyValuedAsset: {
			domain.TimingPosting:    domain.DecisionPolicyMandated,
			domain.TimingSettlement: domain.DecisionDeferred,
			domain.TimingReporting:  domain.DecisionDeferred,
			domain.TimingNever:      domain.DecisionDeferred,
		},
	}

	for policyType, byTiming := range expected {
		for _, timing := range timings {
			snap := snapshotWith(policyType, timing)
			got := snap.DetermineConversionDecision("EUR", false)
			assert.Equalf(t, byTiming[timing], got, "%s/%s", policyType, timing)
		}
	}
}

func TestDetermineConversionDecision_UnknownPolicyTypeIsExempted(t *testing.T) {
	snap := snapshotWith(domain.PolicyType("FUTURE_TYPE"), domain.TimingPosting)
	assert.Equal(t, domain.DecisionExempted, snap.DetermineConversionDecision("EUR", false))
}

func TestInvolvesConversion(t *testing.T) {
	assert.True(t, domain.DecisionPolicyMandated.InvolvesConversion())
	assert.True(t, domain.DecisionUserRequested.InvolvesConversion())
	assert.False(t, domain.DecisionSameCurrency.InvolvesConversion())
	assert.False(t, domain.DecisionDeferred.InvolvesConversion())
	assert.False(t, domain.DecisionExempted.InvolvesConversion())
}

func TestAllowsMultiCurrencyBalances(t *testing.T) {
	assert.True(t, domain.PolicySnapshot{}.AllowsMultiCurrencyBalances())

	snap := snapshotWith(domain.PolicyUnitOfMeasure, domain.TimingNever)
	snap.ActivePolicy.AllowMultiCurrencyBalances = true
	assert.True(t, snap.AllowsMultiCurrencyBalances())

	snap.ActivePolicy.AllowMultiCurrencyBalances = false
	assert.False(t, snap.AllowsMultiCurrencyBalances())
}

func TestEntryTypeOppositeAndValid(t *testing.T) {
	assert.Equal(t, domain.Credit, domain.Debit.Opposite())
	assert.Equal(t, domain.Debit, domain.Credit.Opposite())
	assert.True(t, domain.Debit.Valid())
	assert.True(t, domain.Credit.Valid())
	assert.False(t, domain.EntryType("BOTH").Valid())
}

func TestFiscalPeriodContains(t *testing.T) {
	period := domain.FiscalPeriod{
		StartDate: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC),
	}

	assert.True(t, period.Contains(time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)))
	assert.True(t, period.Contains(time.Date(2026, 3, 31, 23, 0, 0, 0, time.UTC)))
	assert.True(t, period.Contains(time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)))
	assert.False(t, period.Contains(time.Date(2026, 2, 28, 0, 0, 0, 0, time.UTC)))
	assert.False(t, period.Contains(time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)))
}

func TestFiscalPeriodAcceptsPostings(t *testing.T) {
	assert.True(t, domain.FiscalPeriod{}.AcceptsPostings())
	assert.False(t, domain.FiscalPeriod{IsLocked: true}.AcceptsPostings())
	assert.False(t, domain.FiscalPeriod{IsClosed: true}.AcceptsPostings())
}
