package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"ledgerlink/internal/domain/sync"
	"ledgerlink/internal/models"
)

// Store implements sync.Store on Postgres.
type Store struct {
	db *DB
}

var _ sync.Store = (*Store)(nil)

func NewStore(db *DB) *Store {
	return &Store{db: db}
}

const transactionColumns = `id, user_id, account_id, amount, currency_code, date, authorized_date,
	       name, merchant_name, category, check_number, pending, pending_transaction_id,
	       payment_channel, created_at, updated_at`

func (s *Store) GetItemsForUser(ctx context.Context, userID int64) ([]*models.Item, error) {
	query := `
		SELECT id, user_id, access_token, transaction_cursor, created_at, updated_at
		FROM items
		WHERE user_id = $1
		ORDER BY created_at
	`

	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list items: %w", err)
	}
	defer rows.Close()

	var items []*models.Item
	for rows.Next() {
		var item models.Item
		if err := rows.Scan(&item.ID, &item.UserID, &item.AccessToken, &item.Cursor,
			&item.CreatedAt, &item.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan item: %w", err)
		}
		items = append(items, &item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating items: %w", err)
	}

	return items, nil
}

// ListUserIDs returns every user with at least one linked item. Used by the
// scheduler to enumerate sync work.
func (s *Store) ListUserIDs(ctx context.Context) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT user_id FROM items ORDER BY user_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list user ids: %w", err)
	}
	defer rows.Close()

	var userIDs []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan user id: %w", err)
		}
		userIDs = append(userIDs, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating user ids: %w", err)
	}

	return userIDs, nil
}

// SaveItem records a newly linked item. Items are created when a user links
// an institution; the sync engine itself only ever touches the cursor.
func (s *Store) SaveItem(ctx context.Context, item *models.Item) error {
	query := `
		INSERT INTO items (id, user_id, access_token, transaction_cursor)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET
		    access_token = EXCLUDED.access_token,
		    updated_at = CURRENT_TIMESTAMP
	`

	if _, err := s.db.ExecContext(ctx, query, item.ID, item.UserID, item.AccessToken, item.Cursor); err != nil {
		return fmt.Errorf("failed to save item: %w", err)
	}
	return nil
}

func (s *Store) GetItemInfo(ctx context.Context, itemID string) (*models.Item, error) {
	query := `
		SELECT id, user_id, access_token, transaction_cursor, created_at, updated_at
		FROM items
		WHERE id = $1
	`

	var item models.Item
	err := s.db.QueryRowContext(ctx, query, itemID).Scan(
		&item.ID, &item.UserID, &item.AccessToken, &item.Cursor,
		&item.CreatedAt, &item.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("item %s not found", itemID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get item: %w", err)
	}

	return &item, nil
}

func (s *Store) ListTransactions(ctx context.Context, userID int64, limit int) ([]*models.Transaction, error) {
	query := `
		SELECT ` + transactionColumns + `
		FROM transactions
		WHERE user_id = $1
		ORDER BY date DESC, id
		LIMIT $2
	`

	rows, err := s.db.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer rows.Close()

	var txns []*models.Transaction
	for rows.Next() {
		txn, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		txns = append(txns, txn)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transactions: %w", err)
	}

	return txns, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row rowScanner) (*models.Transaction, error) {
	var txn models.Transaction
	err := row.Scan(
		&txn.ID, &txn.UserID, &txn.AccountID, &txn.Amount, &txn.CurrencyCode,
		&txn.Date, &txn.AuthorizedDate, &txn.Name, &txn.MerchantName,
		&txn.Category, &txn.CheckNumber, &txn.Pending, &txn.PendingTransactionID,
		&txn.PaymentChannel, &txn.CreatedAt, &txn.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan transaction: %w", err)
	}
	return &txn, nil
}

// WithBatch runs fn inside one database transaction so batch mutations and
// the cursor commit are durable together or not at all.
func (s *Store) WithBatch(ctx context.Context, fn func(sync.BatchTx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(&batchTx{tx: tx}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

type batchTx struct {
	tx *sql.Tx
}

var _ sync.BatchTx = (*batchTx)(nil)

func (b *batchTx) InsertTransactionIfAbsent(ctx context.Context, txn *models.Transaction) (bool, error) {
	query := `
		INSERT INTO transactions (id, user_id, account_id, amount, currency_code, date,
		                          authorized_date, name, merchant_name, category, check_number,
		                          pending, pending_transaction_id, payment_channel)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (id) DO NOTHING
	`

	result, err := b.tx.ExecContext(ctx, query,
		txn.ID, txn.UserID, txn.AccountID, txn.Amount, txn.CurrencyCode, txn.Date,
		txn.AuthorizedDate, txn.Name, txn.MerchantName, txn.Category, txn.CheckNumber,
		txn.Pending, txn.PendingTransactionID, txn.PaymentChannel,
	)
	if err != nil {
		return false, fmt.Errorf("failed to insert transaction: %w", err)
	}

	return rowsChanged(result)
}

func (b *batchTx) UpsertTransactionIfChanged(ctx context.Context, txn *models.Transaction) (bool, error) {
	// The DO UPDATE WHERE clause makes identical redeliveries report zero
	// affected rows, so only content changes count toward the summary.
	query := `
		INSERT INTO transactions (id, user_id, account_id, amount, currency_code, date,
		                          authorized_date, name, merchant_name, category, check_number,
		                          pending, pending_transaction_id, payment_channel)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (id) DO UPDATE SET
		    account_id = EXCLUDED.account_id,
		    amount = EXCLUDED.amount,
		    currency_code = EXCLUDED.currency_code,
		    date = EXCLUDED.date,
		    authorized_date = EXCLUDED.authorized_date,
		    name = EXCLUDED.name,
		    merchant_name = EXCLUDED.merchant_name,
		    category = EXCLUDED.category,
		    check_number = EXCLUDED.check_number,
		    pending = EXCLUDED.pending,
		    pending_transaction_id = EXCLUDED.pending_transaction_id,
		    payment_channel = EXCLUDED.payment_channel,
		    updated_at = CURRENT_TIMESTAMP
		WHERE (transactions.account_id, transactions.amount, transactions.currency_code,
		       transactions.date, transactions.authorized_date, transactions.name,
		       transactions.merchant_name, transactions.category, transactions.check_number,
		       transactions.pending, transactions.pending_transaction_id,
		       transactions.payment_channel)
		      IS DISTINCT FROM
		      (EXCLUDED.account_id, EXCLUDED.amount, EXCLUDED.currency_code,
		       EXCLUDED.date, EXCLUDED.authorized_date, EXCLUDED.name,
		       EXCLUDED.merchant_name, EXCLUDED.category, EXCLUDED.check_number,
		       EXCLUDED.pending, EXCLUDED.pending_transaction_id,
		       EXCLUDED.payment_channel)
	`

	result, err := b.tx.ExecContext(ctx, query,
		txn.ID, txn.UserID, txn.AccountID, txn.Amount, txn.CurrencyCode, txn.Date,
		txn.AuthorizedDate, txn.Name, txn.MerchantName, txn.Category, txn.CheckNumber,
		txn.Pending, txn.PendingTransactionID, txn.PaymentChannel,
	)
	if err != nil {
		return false, fmt.Errorf("failed to upsert transaction: %w", err)
	}

	return rowsChanged(result)
}

func (b *batchTx) DeleteTransactionIfPresent(ctx context.Context, txnID string) (bool, error) {
	result, err := b.tx.ExecContext(ctx, `DELETE FROM transactions WHERE id = $1`, txnID)
	if err != nil {
		return false, fmt.Errorf("failed to delete transaction: %w", err)
	}

	return rowsChanged(result)
}

func (b *batchTx) CommitCursor(ctx context.Context, itemID, cursor string) error {
	result, err := b.tx.ExecContext(ctx,
		`UPDATE items SET transaction_cursor = $2, updated_at = CURRENT_TIMESTAMP WHERE id = $1`,
		itemID, cursor,
	)
	if err != nil {
		return fmt.Errorf("failed to commit cursor: %w", err)
	}

	changed, err := rowsChanged(result)
	if err != nil {
		return err
	}
	if !changed {
		return fmt.Errorf("item %s not found", itemID)
	}
	return nil
}

func rowsChanged(result sql.Result) (bool, error) {
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get affected rows: %w", err)
	}
	return rows > 0, nil
}
