package domain

import "github.com/shopspring/decimal"

// BuyCandidate is a net-positive balance change of the tracked asset
// together with the native currency spent by the transaction.
// Only constructed when Received > 0.
type BuyCandidate struct {
	Received    decimal.Decimal // tracked token received by the holder
	Spent       decimal.Decimal // declared XRP payment plus fee, in XRP
	Buyer       string          // transaction sender
	TxHash      string          // transaction reference
	LedgerIndex uint32          // ledger the transaction closed in (0 if unknown)
}

// Qualifies reports whether the candidate meets the minimum spend.
// The threshold applies to Spent only.
func (c BuyCandidate) Qualifies(minSpent decimal.Decimal) bool {
	return c.Spent.GreaterThanOrEqual(minSpent)
}
