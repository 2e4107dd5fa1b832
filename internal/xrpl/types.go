package xrpl

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// Stream names accepted by the subscribe command.
const (
	StreamLedger       = "ledger"
	StreamTransactions = "transactions"
)

// Message types sent by the server.
const (
	MessageTypeTransaction  = "transaction"
	MessageTypeLedgerClosed = "ledgerClosed"
	MessageTypeResponse     = "response"
)

// Affected node kinds in transaction metadata.
const (
	NodeCreated  = "CreatedNode"
	NodeModified = "ModifiedNode"
	NodeDeleted  = "DeletedNode"
)

var nodeTypes = []string{NodeCreated, NodeModified, NodeDeleted}

// StreamMessage is one decoded message from a subscription.
type StreamMessage struct {
	Type         string           `json:"type"`
	Transaction  *Transaction     `json:"transaction,omitempty"`
	Meta         *TransactionMeta `json:"meta,omitempty"`
	Hash         string           `json:"hash,omitempty"`
	LedgerIndex  uint32           `json:"ledger_index,omitempty"`
	Validated    bool             `json:"validated,omitempty"`
	EngineResult string           `json:"engine_result,omitempty"`
}

// TxHash returns the transaction hash, preferring the one inside the transaction.
func (m *StreamMessage) TxHash() string {
	if m.Transaction != nil && m.Transaction.Hash != "" {
		return m.Transaction.Hash
	}
	return m.Hash
}

// Transaction holds the transaction fields the tracker reads.
type Transaction struct {
	TransactionType string          `json:"TransactionType"`
	Account         string          `json:"Account"`
	Amount          json.RawMessage `json:"Amount,omitempty"`
	Fee             decimal.Decimal `json:"Fee"`
	Hash            string          `json:"hash,omitempty"`
}

// NativeAmount returns the declared payment amount in drops.
// ok is false when Amount is absent or is an issued-currency object.
func (t *Transaction) NativeAmount() (drops decimal.Decimal, ok bool, err error) {
	raw := bytes.TrimSpace(t.Amount)
	if len(raw) == 0 || raw[0] != '"' {
		return decimal.Zero, false, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return decimal.Zero, false, fmt.Errorf("amount: %w", err)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false, fmt.Errorf("amount %q: %w", s, err)
	}
	return d, true, nil
}

// TransactionMeta is the metadata attached to a validated transaction.
type TransactionMeta struct {
	TransactionResult string         `json:"TransactionResult,omitempty"`
	AffectedNodes     []AffectedNode `json:"AffectedNodes"`
}

// AffectedNode is one ledger entry touched by a transaction.
// Accepts both the wrapped form ({"ModifiedNode": {...}}) and a flat body.
type AffectedNode struct {
	NodeType        string
	LedgerEntryType string
	FinalFields     *LedgerFields
	PreviousFields  *LedgerFields
	NewFields       *LedgerFields
}

type affectedNodeBody struct {
	LedgerEntryType string        `json:"LedgerEntryType,omitempty"`
	FinalFields     *LedgerFields `json:"FinalFields,omitempty"`
	PreviousFields  *LedgerFields `json:"PreviousFields,omitempty"`
	NewFields       *LedgerFields `json:"NewFields,omitempty"`
}

// UnmarshalJSON implements json.Unmarshaler.
func (n *AffectedNode) UnmarshalJSON(data []byte) error {
	var wrapper map[string]json.RawMessage
	if err := json.Unmarshal(data, &wrapper); err != nil {
		return err
	}

	nodeType := ""
	raw := json.RawMessage(data)
	for _, t := range nodeTypes {
		if inner, ok := wrapper[t]; ok {
			nodeType, raw = t, inner
			break
		}
	}

	var body affectedNodeBody
	if err := json.Unmarshal(raw, &body); err != nil {
		return fmt.Errorf("affected node: %w", err)
	}

	*n = AffectedNode{
		NodeType:        nodeType,
		LedgerEntryType: body.LedgerEntryType,
		FinalFields:     body.FinalFields,
		PreviousFields:  body.PreviousFields,
		NewFields:       body.NewFields,
	}
	return nil
}

// Fields returns FinalFields when present, otherwise NewFields.
func (n AffectedNode) Fields() *LedgerFields {
	if n.FinalFields != nil {
		return n.FinalFields
	}
	return n.NewFields
}

// LedgerFields is the subset of ledger entry fields used to read balances.
type LedgerFields struct {
	Account   string        `json:"Account,omitempty"`
	Currency  string        `json:"Currency,omitempty"`
	Issuer    string        `json:"Issuer,omitempty"`
	Balance   *Balance      `json:"Balance,omitempty"`
	HighLimit *IssuedAmount `json:"HighLimit,omitempty"`
	LowLimit  *IssuedAmount `json:"LowLimit,omitempty"`
}

// IssuedAmount is an amount of a non-native currency.
type IssuedAmount struct {
	Currency string `json:"currency"`
	Issuer   string `json:"issuer,omitempty"`
	Value    string `json:"value"`
}

// Decimal parses Value. An empty value reads as zero.
func (a IssuedAmount) Decimal() (decimal.Decimal, error) {
	if a.Value == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(a.Value)
}

// Balance is either an issued amount object or a native drops string.
type Balance struct {
	IssuedAmount
	Native bool
}

// UnmarshalJSON implements json.Unmarshaler.
func (b *Balance) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var drops string
		if err := json.Unmarshal(data, &drops); err != nil {
			return err
		}
		*b = Balance{IssuedAmount: IssuedAmount{Currency: "XRP", Value: drops}, Native: true}
		return nil
	}
	var amt IssuedAmount
	if err := json.Unmarshal(data, &amt); err != nil {
		return err
	}
	*b = Balance{IssuedAmount: amt}
	return nil
}

// DecodeMessage decodes one raw stream message.
func DecodeMessage(data []byte) (*StreamMessage, error) {
	var msg StreamMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("decode stream message: %w", err)
	}
	return &msg, nil
}

// DropsToXRP converts native minor units to whole XRP.
func DropsToXRP(drops decimal.Decimal) decimal.Decimal {
	return drops.Shift(-6)
}
