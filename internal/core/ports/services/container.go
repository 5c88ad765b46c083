package services

// ServiceContainer bundles the service implementations handed to the HTTP
// layer at startup.
type ServiceContainer struct {
	Account        AccountSvcFacade
	FiscalPeriod   FiscalPeriodSvcFacade
	Ledger         LedgerSvcFacade
	Currency       CurrencySvcFacade
	CurrencyPolicy CurrencyPolicySvcFacade
	Posting        MultiCurrencyPostingSvcFacade
}
