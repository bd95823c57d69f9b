package models

import (
	"time"
)

// Transaction is the canonical, store-resident form of a provider transaction.
// ID is the provider-assigned transaction id and is stable across modifications,
// so there is exactly one row per ID after reconciliation.
//
// Amount and Date are copied from the provider verbatim: Amount keeps the
// provider's signed numeric value, Date keeps the provider's YYYY-MM-DD string
// so no timezone or precision is invented. Optional fields are pointers; nil
// means the provider did not send them.
type Transaction struct {
	ID                   string    `json:"id"`
	UserID               int64     `json:"userId"`
	AccountID            string    `json:"accountId"`
	Amount               float64   `json:"amount"`
	CurrencyCode         *string   `json:"currencyCode,omitempty"`
	Date                 string    `json:"date"`
	AuthorizedDate       *string   `json:"authorizedDate,omitempty"`
	Name                 string    `json:"name"`
	MerchantName         *string   `json:"merchantName,omitempty"`
	Category             *string   `json:"category,omitempty"`
	CheckNumber          *string   `json:"checkNumber,omitempty"`
	Pending              bool      `json:"pending"`
	PendingTransactionID *string   `json:"pendingTransactionId,omitempty"`
	PaymentChannel       string    `json:"paymentChannel"`
	CreatedAt            time.Time `json:"createdAt"`
	UpdatedAt            time.Time `json:"updatedAt"`
}

// Equal reports whether two transactions carry the same provider-sourced
// content. Store timestamps are ignored; they change on every write.
func (t *Transaction) Equal(other *Transaction) bool {
	if other == nil {
		return false
	}
	return t.ID == other.ID &&
		t.UserID == other.UserID &&
		t.AccountID == other.AccountID &&
		t.Amount == other.Amount &&
		equalStringPtr(t.CurrencyCode, other.CurrencyCode) &&
		t.Date == other.Date &&
		equalStringPtr(t.AuthorizedDate, other.AuthorizedDate) &&
		t.Name == other.Name &&
		equalStringPtr(t.MerchantName, other.MerchantName) &&
		equalStringPtr(t.Category, other.Category) &&
		equalStringPtr(t.CheckNumber, other.CheckNumber) &&
		t.Pending == other.Pending &&
		equalStringPtr(t.PendingTransactionID, other.PendingTransactionID) &&
		t.PaymentChannel == other.PaymentChannel
}

func equalStringPtr(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
