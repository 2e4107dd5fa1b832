package domain

import "fmt"

// Native currency of the ledger.
const (
	NativeCurrency = "XRP"
	// DropsPerXRP is the number of minor units (drops) in one XRP.
	DropsPerXRP = 1_000_000
)

// TrackedAsset identifies the single issued token being monitored.
// Set once at process start and never mutated.
type TrackedAsset struct {
	Currency string // currency code, e.g. "UCK"
	Issuer   string // issuing account (classic address)
}

// Matches reports whether currency/issuer identify this asset.
func (a TrackedAsset) Matches(currency, issuer string) bool {
	return currency == a.Currency && issuer == a.Issuer
}

// Pair returns the "{currency}+{issuer}" form used by market-data endpoints.
func (a TrackedAsset) Pair() string {
	return fmt.Sprintf("%s+%s", a.Currency, a.Issuer)
}

func (a TrackedAsset) String() string {
	return a.Currency + "." + a.Issuer
}
