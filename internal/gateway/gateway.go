// Package gateway models the redirect callbacks of the supported payment
// gateways (eSewa, Khalti) and normalizes their differing encodings.
package gateway

import (
	"net/url"
	"strconv"
	"strings"
)

// Provider identifies which gateway issued a callback.
type Provider string

const (
	ProviderEsewa  Provider = "esewa"
	ProviderKhalti Provider = "khalti"
)

// Query parameter names used by the gateway redirect contract.
const (
	// ParamToken carries the base64 transaction token, when a gateway sends one.
	ParamToken = "data"

	paramPurchaseOrderID = "purchase_order_id"
	paramPidx            = "pidx"
	paramTotalAmount     = "total_amount"
	paramAmount          = "amount"
)

// Callback is a parsed gateway redirect: everything the reconciliation flow
// can learn from the inbound URL alone.
type Callback struct {
	Provider        Provider
	Token           *TransactionDescriptor // nil when absent or malformed
	PurchaseOrderID string                 // purchase_order_id query parameter
	Pidx            string                 // Khalti's secondary reference
	RawAmount       float64
	HasAmount       bool
}

// ParseCallback extracts the gateway callback from redirect query parameters.
// The presence of `pidx` signals Khalti; its absence signals eSewa. Token
// decode failures are swallowed: a mangled token degrades to the remaining
// parameters.
func ParseCallback(query url.Values) Callback {
	cb := Callback{
		Provider:        ProviderEsewa,
		Token:           DecodeToken(query.Get(ParamToken)),
		PurchaseOrderID: query.Get(paramPurchaseOrderID),
		Pidx:            query.Get(paramPidx),
	}
	if cb.Pidx != "" {
		cb.Provider = ProviderKhalti
	}

	if cb.Token != nil && cb.Token.TotalAmount.Set {
		cb.RawAmount = cb.Token.TotalAmount.Value
		cb.HasAmount = true
		return cb
	}
	for _, p := range []string{paramTotalAmount, paramAmount} {
		if v, ok := parseAmountParam(query.Get(p)); ok {
			cb.RawAmount = v
			cb.HasAmount = true
			return cb
		}
	}
	return cb
}

// DisplayAmount converts the gateway-reported amount into rupees for display.
// Khalti reports paisa (minor units) and must be divided by 100; eSewa
// reports rupees directly.
func (c Callback) DisplayAmount() (float64, bool) {
	if !c.HasAmount {
		return 0, false
	}
	if c.Provider == ProviderKhalti {
		return c.RawAmount / 100, true
	}
	return c.RawAmount, true
}

// parseAmountParam parses a query amount, tolerating comma grouping
// ("1,000.00") the way the token amounts do.
func parseAmountParam(s string) (float64, bool) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if s == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}
