package gateway

import (
	"encoding/base64"
	"net/url"
	"testing"
)

func values(pairs ...string) url.Values {
	v := url.Values{}
	for i := 0; i+1 < len(pairs); i += 2 {
		v.Set(pairs[i], pairs[i+1])
	}
	return v
}

func TestParseCallback_ProviderDetection(t *testing.T) {
	cb := ParseCallback(values("purchase_order_id", "txn_1"))
	if cb.Provider != ProviderEsewa {
		t.Errorf("Expected esewa without pidx, got %s", cb.Provider)
	}

	cb = ParseCallback(values("purchase_order_id", "txn_1", "pidx", "Hx7Yw2"))
	if cb.Provider != ProviderKhalti {
		t.Errorf("Expected khalti with pidx, got %s", cb.Provider)
	}
	if cb.Pidx != "Hx7Yw2" {
		t.Errorf("Expected pidx carried through, got %q", cb.Pidx)
	}
}

func TestParseCallback_TokenAmountPreferred(t *testing.T) {
	token := base64.StdEncoding.EncodeToString([]byte(`{"transaction_uuid":"txn_tok","total_amount":550}`))
	cb := ParseCallback(values("data", token, "total_amount", "999"))

	if !cb.HasAmount || cb.RawAmount != 550 {
		t.Errorf("Expected token amount 550 to win, got %+v", cb)
	}
}

func TestParseCallback_AmountFallsBackToQuery(t *testing.T) {
	cb := ParseCallback(values("total_amount", "120"))
	if !cb.HasAmount || cb.RawAmount != 120 {
		t.Errorf("Expected total_amount=120, got %+v", cb)
	}

	cb = ParseCallback(values("amount", "75.5"))
	if !cb.HasAmount || cb.RawAmount != 75.5 {
		t.Errorf("Expected amount=75.5, got %+v", cb)
	}

	cb = ParseCallback(values())
	if cb.HasAmount {
		t.Errorf("Expected no amount, got %+v", cb)
	}
}

func TestParseCallback_MalformedTokenDegrades(t *testing.T) {
	cb := ParseCallback(values("data", "###garbage###", "purchase_order_id", "txn_fallback"))
	if cb.Token != nil {
		t.Error("Expected nil token for garbage data")
	}
	if cb.PurchaseOrderID != "txn_fallback" {
		t.Errorf("Expected purchase_order_id preserved, got %q", cb.PurchaseOrderID)
	}
}

func TestDisplayAmount_KhaltiMinorUnits(t *testing.T) {
	// Khalti reports paisa: 10000 paisa displays as 100 rupees.
	cb := ParseCallback(values("pidx", "abc", "total_amount", "10000"))
	got, ok := cb.DisplayAmount()
	if !ok || got != 100 {
		t.Errorf("Expected 100, got %v (ok=%v)", got, ok)
	}
}

func TestDisplayAmount_EsewaUnchanged(t *testing.T) {
	// eSewa reports rupees: 100 displays as 100.
	cb := ParseCallback(values("total_amount", "100"))
	got, ok := cb.DisplayAmount()
	if !ok || got != 100 {
		t.Errorf("Expected 100, got %v (ok=%v)", got, ok)
	}
}

func TestDisplayAmount_Absent(t *testing.T) {
	cb := ParseCallback(values("pidx", "abc"))
	if _, ok := cb.DisplayAmount(); ok {
		t.Error("Expected no display amount when callback carries none")
	}
}
