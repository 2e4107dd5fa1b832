package watcher

import (
	"fmt"

	"github.com/shopspring/decimal"

	"xrpl-buy-bot/internal/domain"
	"xrpl-buy-bot/internal/xrpl"
)

const unknown = "unknown"

// Extraction is the outcome of inspecting one transaction message.
type Extraction struct {
	Buys           []domain.BuyCandidate // qualifying buys, in affected-node order
	BelowThreshold int                   // balance increases dropped for low spend
}

// Extractor derives buy candidates from transaction messages.
type Extractor struct {
	asset    domain.TrackedAsset
	minSpent decimal.Decimal
}

// NewExtractor creates an extractor for asset with the given minimum spend in XRP.
func NewExtractor(asset domain.TrackedAsset, minSpent decimal.Decimal) *Extractor {
	return &Extractor{asset: asset, minSpent: minSpent}
}

// Extract returns one candidate per affected node that increased a holder's
// balance of the tracked asset, provided the transaction spent at least the
// minimum. Non-transaction messages yield nothing. Nodes whose balances
// cannot be parsed are skipped.
func (e *Extractor) Extract(msg *xrpl.StreamMessage) (Extraction, error) {
	var out Extraction
	if msg == nil || msg.Type != xrpl.MessageTypeTransaction || msg.Meta == nil {
		return out, nil
	}

	tx := msg.Transaction
	if tx == nil {
		tx = &xrpl.Transaction{}
	}

	var (
		spent      decimal.Decimal
		spentKnown bool
	)

	for _, node := range msg.Meta.AffectedNodes {
		received, ok := e.received(node)
		if !ok || !received.IsPositive() {
			continue
		}

		if !spentKnown {
			var err error
			spent, err = SpentXRP(tx)
			if err != nil {
				return Extraction{}, fmt.Errorf("tx %s: %w", msg.TxHash(), err)
			}
			spentKnown = true
		}

		candidate := domain.BuyCandidate{
			Received:    received,
			Spent:       spent,
			Buyer:       orUnknown(tx.Account),
			TxHash:      orUnknown(msg.TxHash()),
			LedgerIndex: msg.LedgerIndex,
		}
		if !candidate.Qualifies(e.minSpent) {
			out.BelowThreshold++
			continue
		}
		out.Buys = append(out.Buys, candidate)
	}

	return out, nil
}

// received returns new minus previous holder balance of the tracked asset
// for node. ok is false when the node does not hold the asset or its
// balances are malformed.
func (e *Extractor) received(node xrpl.AffectedNode) (decimal.Decimal, bool) {
	fields := node.Fields()
	if fields == nil {
		return decimal.Zero, false
	}

	sign, ok := e.holderSign(fields)
	if !ok {
		return decimal.Zero, false
	}

	newBalance, err := balanceValue(fields.Balance)
	if err != nil {
		return decimal.Zero, false
	}

	prevBalance := decimal.Zero
	if node.PreviousFields != nil {
		prevBalance, err = balanceValue(node.PreviousFields.Balance)
		if err != nil {
			return decimal.Zero, false
		}
	}

	return newBalance.Sub(prevBalance).Mul(sign), true
}

// holderSign decides whether fields describe the tracked asset and returns
// the factor that turns the stored balance into the holder's balance.
//
// Entries carrying explicit Currency/Issuer fields are matched directly.
// Trust lines (RippleState) store the balance from the low account's side,
// so when the issuer is the low account the value is negated.
func (e *Extractor) holderSign(fields *xrpl.LedgerFields) (decimal.Decimal, bool) {
	one := decimal.NewFromInt(1)

	if fields.Currency != "" || fields.Issuer != "" {
		return one, e.asset.Matches(fields.Currency, fields.Issuer)
	}

	bal := fields.Balance
	if bal == nil || bal.Native || bal.Currency != e.asset.Currency {
		return decimal.Zero, false
	}
	switch {
	case fields.HighLimit != nil && fields.HighLimit.Issuer == e.asset.Issuer:
		return one, true
	case fields.LowLimit != nil && fields.LowLimit.Issuer == e.asset.Issuer:
		return one.Neg(), true
	default:
		return decimal.Zero, false
	}
}

// SpentXRP returns the declared native payment amount plus the fee, in XRP.
// Issued-currency amounts do not count.
func SpentXRP(tx *xrpl.Transaction) (decimal.Decimal, error) {
	spent := decimal.Zero

	drops, ok, err := tx.NativeAmount()
	if err != nil {
		return decimal.Zero, err
	}
	if ok {
		spent = spent.Add(xrpl.DropsToXRP(drops))
	}

	return spent.Add(xrpl.DropsToXRP(tx.Fee)), nil
}

func balanceValue(b *xrpl.Balance) (decimal.Decimal, error) {
	if b == nil {
		return decimal.Zero, nil
	}
	return b.Decimal()
}

func orUnknown(s string) string {
	if s == "" {
		return unknown
	}
	return s
}
