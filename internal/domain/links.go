package domain

import (
	"fmt"
	"net/url"
)

const (
	explorerTxURL = "https://xrpscan.com/tx/%s"
	chartURL      = "https://xpmarket.com/token/%s?issuer=%s"
)

// TxURL links to a transaction in the ledger explorer.
func TxURL(hash string) string {
	return fmt.Sprintf(explorerTxURL, url.PathEscape(hash))
}

// ChartURL links to the market chart of the asset.
func (a TrackedAsset) ChartURL() string {
	return fmt.Sprintf(chartURL, url.PathEscape(a.Currency), url.QueryEscape(a.Issuer))
}
