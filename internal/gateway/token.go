package gateway

import (
	"encoding/base64"
	"encoding/json"
	"strconv"
	"strings"
)

// TransactionDescriptor is the payload eSewa packs into the `data` query
// parameter of its redirect: base64-encoded JSON describing the transaction.
// Only the fields the reconciliation flow cares about are mapped; gateways
// attach plenty more (signatures, product codes) that we ignore.
type TransactionDescriptor struct {
	TransactionUUID string      `json:"transaction_uuid"`
	TotalAmount     TokenAmount `json:"total_amount"`
	Status          string      `json:"status"`
}

// TokenAmount tolerates the gateway reporting an amount as a JSON number or
// as a formatted string ("1,000.00"). Zero value means absent.
type TokenAmount struct {
	Value float64
	Set   bool
}

// UnmarshalJSON accepts numbers, numeric strings, and comma-grouped strings.
// Anything unparseable leaves the amount unset rather than failing the whole
// token decode.
func (a *TokenAmount) UnmarshalJSON(data []byte) error {
	var n float64
	if err := json.Unmarshal(data, &n); err == nil {
		a.Value, a.Set = n, true
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			a.Value, a.Set = f, true
		}
	}
	return nil
}

// DecodeToken decodes a gateway-supplied opaque token into a transaction
// descriptor. Returns nil for absent, malformed, or tampered tokens; the
// redirect crosses the user's browser and third-party infrastructure, so a
// bad token is an expected input, not an error.
func DecodeToken(token string) *TransactionDescriptor {
	if token == "" {
		return nil
	}
	raw, err := decodeBase64(token)
	if err != nil {
		return nil
	}
	var desc TransactionDescriptor
	if err := json.Unmarshal(raw, &desc); err != nil {
		return nil
	}
	return &desc
}

// decodeBase64 tries the encodings gateways have been observed to use:
// standard, URL-safe, and their unpadded variants.
func decodeBase64(s string) ([]byte, error) {
	encodings := []*base64.Encoding{
		base64.StdEncoding,
		base64.URLEncoding,
		base64.RawStdEncoding,
		base64.RawURLEncoding,
	}
	var err error
	for _, enc := range encodings {
		var raw []byte
		if raw, err = enc.DecodeString(s); err == nil {
			return raw, nil
		}
	}
	return nil, err
}
