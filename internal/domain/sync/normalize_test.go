package sync

import (
	"testing"

	"ledgerlink/internal/infrastructure/provider"
)

func strPtr(s string) *string { return &s }

func TestNormalize(t *testing.T) {
	tests := []struct {
		name         string
		raw          provider.Transaction
		wantCurrency *string
		wantCategory *string
	}{
		{
			name: "ISO currency preferred",
			raw: provider.Transaction{
				TransactionID:          "tx-1",
				ISOCurrencyCode:        strPtr("USD"),
				UnofficialCurrencyCode: strPtr("XBT"),
			},
			wantCurrency: strPtr("USD"),
		},
		{
			name: "Unofficial currency as fallback",
			raw: provider.Transaction{
				TransactionID:          "tx-2",
				UnofficialCurrencyCode: strPtr("XBT"),
			},
			wantCurrency: strPtr("XBT"),
		},
		{
			name: "Detailed taxonomy primary label",
			raw: provider.Transaction{
				TransactionID:           "tx-3",
				Category:                []string{"Food and Drink", "Restaurants"},
				PersonalFinanceCategory: &provider.PersonalFinanceCategory{Primary: "FOOD_AND_DRINK", Detailed: "FOOD_AND_DRINK_COFFEE"},
			},
			wantCategory: strPtr("FOOD_AND_DRINK"),
		},
		{
			name: "Legacy category array ignored without taxonomy",
			raw: provider.Transaction{
				TransactionID: "tx-4",
				Category:      []string{"Travel"},
			},
		},
		{
			name: "Sparse record stays valid",
			raw:  provider.Transaction{TransactionID: "tx-5"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Normalize(&tt.raw, 42)

			if got.ID != tt.raw.TransactionID {
				t.Errorf("ID = %q, want %q", got.ID, tt.raw.TransactionID)
			}
			if got.UserID != 42 {
				t.Errorf("UserID = %d, want 42", got.UserID)
			}
			if !equalPtr(got.CurrencyCode, tt.wantCurrency) {
				t.Errorf("CurrencyCode = %v, want %v", deref(got.CurrencyCode), deref(tt.wantCurrency))
			}
			if !equalPtr(got.Category, tt.wantCategory) {
				t.Errorf("Category = %v, want %v", deref(got.Category), deref(tt.wantCategory))
			}
		})
	}
}

func TestNormalizePreservesVerbatimFields(t *testing.T) {
	raw := provider.Transaction{
		TransactionID:        "tx-9",
		AccountID:            "acc-9",
		Amount:               -13.37,
		Date:                 "2024-06-01",
		AuthorizedDate:       strPtr("2024-05-31"),
		Name:                 "ACME Corp",
		MerchantName:         strPtr("ACME"),
		CheckNumber:          strPtr("1021"),
		Pending:              true,
		PendingTransactionID: strPtr("tx-8"),
		PaymentChannel:       "online",
	}

	got := Normalize(&raw, 7)

	if got.Amount != -13.37 {
		t.Errorf("Amount = %v, want -13.37", got.Amount)
	}
	if got.Date != "2024-06-01" {
		t.Errorf("Date = %q, want 2024-06-01", got.Date)
	}
	if !got.Pending || got.PendingTransactionID == nil || *got.PendingTransactionID != "tx-8" {
		t.Errorf("pending fields not preserved: %+v", got)
	}
	if got.PaymentChannel != "online" {
		t.Errorf("PaymentChannel = %q, want online", got.PaymentChannel)
	}
}

func equalPtr(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func deref(s *string) string {
	if s == nil {
		return "<nil>"
	}
	return *s
}
