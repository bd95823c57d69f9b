package sync

import (
	"ledgerlink/internal/infrastructure/provider"
	"ledgerlink/internal/models"
)

// Normalize maps one raw provider transaction into the canonical store form
// for the given owner. It is total: any record the provider returns, however
// sparse, produces a valid transaction. Optional provider fields that are
// absent stay nil rather than being coerced to zero values.
func Normalize(raw *provider.Transaction, userID int64) *models.Transaction {
	txn := &models.Transaction{
		ID:                   raw.TransactionID,
		UserID:               userID,
		AccountID:            raw.AccountID,
		Amount:               raw.Amount,
		Date:                 raw.Date,
		AuthorizedDate:       raw.AuthorizedDate,
		Name:                 raw.Name,
		MerchantName:         raw.MerchantName,
		CheckNumber:          raw.CheckNumber,
		Pending:              raw.Pending,
		PendingTransactionID: raw.PendingTransactionID,
		PaymentChannel:       raw.PaymentChannel,
	}

	// The provider populates exactly one of the two currency fields.
	switch {
	case raw.ISOCurrencyCode != nil:
		txn.CurrencyCode = raw.ISOCurrencyCode
	case raw.UnofficialCurrencyCode != nil:
		txn.CurrencyCode = raw.UnofficialCurrencyCode
	}

	// Prefer the detailed taxonomy's primary label; the legacy category
	// array is ignored when the taxonomy is absent so we never store a
	// half-resolved label.
	if raw.PersonalFinanceCategory != nil && raw.PersonalFinanceCategory.Primary != "" {
		primary := raw.PersonalFinanceCategory.Primary
		txn.Category = &primary
	}

	return txn
}
