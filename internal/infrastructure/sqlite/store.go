// Package sqlite provides a lightweight sync.Store for single-node
// deployments and integration tests.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	sqlitemigrate "github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/mattn/go-sqlite3"

	"ledgerlink/internal/domain/sync"
	"ledgerlink/internal/models"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// Store implements sync.Store on SQLite.
type Store struct {
	db *sql.DB
}

var _ sync.Store = (*Store)(nil)

// NewStore opens (or creates) the SQLite database at dsn and applies any
// pending embedded migrations.
func NewStore(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	driver, err := sqlitemigrate.WithInstance(db, &sqlitemigrate.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to create migration driver: %w", err)
	}

	source, err := iofs.New(migrationFS, "migrations")
	if err != nil {
		return nil, fmt.Errorf("failed to load embedded migrations: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, "ledgerlink", driver)
	if err != nil {
		return nil, fmt.Errorf("failed to instantiate migrations: %w", err)
	}
	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

const transactionColumns = `id, user_id, account_id, amount, currency_code, date, authorized_date,
	       name, merchant_name, category, check_number, pending, pending_transaction_id,
	       payment_channel, created_at, updated_at`

func (s *Store) GetItemsForUser(ctx context.Context, userID int64) ([]*models.Item, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, access_token, transaction_cursor, created_at, updated_at
		FROM items WHERE user_id = ? ORDER BY created_at`, userID)
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

func (s *Store) GetItemInfo(ctx context.Context, itemID string) (*models.Item, error) {
	var item models.Item
	err := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, access_token, transaction_cursor, created_at, updated_at
		FROM items WHERE id = ?`, itemID).Scan(
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

// ListUserIDs returns every user with at least one linked item.
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

// SaveItem records a newly linked item.
func (s *Store) SaveItem(ctx context.Context, item *models.Item) error {
	query := `
		INSERT INTO items (id, user_id, access_token, transaction_cursor)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
		    access_token = excluded.access_token,
		    updated_at = CURRENT_TIMESTAMP
	`

	if _, err := s.db.ExecContext(ctx, query, item.ID, item.UserID, item.AccessToken, item.Cursor); err != nil {
		return fmt.Errorf("failed to save item: %w", err)
	}
	return nil
}

func (s *Store) ListTransactions(ctx context.Context, userID int64, limit int) ([]*models.Transaction, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+transactionColumns+`
		FROM transactions WHERE user_id = ? ORDER BY date DESC, id LIMIT ?`, userID, limit)
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

const insertTransactionBody = ` INTO transactions (id, user_id, account_id, amount, currency_code, date,
	                          authorized_date, name, merchant_name, category, check_number,
	                          pending, pending_transaction_id, payment_channel)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

func insertArgs(txn *models.Transaction) []any {
	return []any{
		txn.ID, txn.UserID, txn.AccountID, txn.Amount, txn.CurrencyCode, txn.Date,
		txn.AuthorizedDate, txn.Name, txn.MerchantName, txn.Category, txn.CheckNumber,
		txn.Pending, txn.PendingTransactionID, txn.PaymentChannel,
	}
}

func (b *batchTx) InsertTransactionIfAbsent(ctx context.Context, txn *models.Transaction) (bool, error) {
	result, err := b.tx.ExecContext(ctx, `INSERT OR IGNORE`+insertTransactionBody, insertArgs(txn)...)
	if err != nil {
		return false, fmt.Errorf("failed to insert transaction: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get affected rows: %w", err)
	}
	return rows > 0, nil
}

func (b *batchTx) UpsertTransactionIfChanged(ctx context.Context, txn *models.Transaction) (bool, error) {
	// SQLite has no row-value IS DISTINCT FROM, so compare in Go: read the
	// existing row, and only write when content differs or the row is new.
	existing, err := b.getTransaction(ctx, txn.ID)
	if err != nil {
		return false, err
	}
	if existing != nil && existing.Equal(txn) {
		return false, nil
	}

	query := `INSERT` + insertTransactionBody + `
	ON CONFLICT (id) DO UPDATE SET
	    account_id = excluded.account_id,
	    amount = excluded.amount,
	    currency_code = excluded.currency_code,
	    date = excluded.date,
	    authorized_date = excluded.authorized_date,
	    name = excluded.name,
	    merchant_name = excluded.merchant_name,
	    category = excluded.category,
	    check_number = excluded.check_number,
	    pending = excluded.pending,
	    pending_transaction_id = excluded.pending_transaction_id,
	    payment_channel = excluded.payment_channel,
	    updated_at = CURRENT_TIMESTAMP
	`

	if _, err := b.tx.ExecContext(ctx, query, insertArgs(txn)...); err != nil {
		return false, fmt.Errorf("failed to upsert transaction: %w", err)
	}
	return true, nil
}

func (b *batchTx) getTransaction(ctx context.Context, id string) (*models.Transaction, error) {
	row := b.tx.QueryRowContext(ctx, `
		SELECT `+transactionColumns+`
		FROM transactions WHERE id = ?`, id)

	txn, err := scanTransaction(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return txn, nil
}

func (b *batchTx) DeleteTransactionIfPresent(ctx context.Context, txnID string) (bool, error) {
	result, err := b.tx.ExecContext(ctx, `DELETE FROM transactions WHERE id = ?`, txnID)
	if err != nil {
		return false, fmt.Errorf("failed to delete transaction: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get affected rows: %w", err)
	}
	return rows > 0, nil
}

func (b *batchTx) CommitCursor(ctx context.Context, itemID, cursor string) error {
	result, err := b.tx.ExecContext(ctx,
		`UPDATE items SET transaction_cursor = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		cursor, itemID,
	)
	if err != nil {
		return fmt.Errorf("failed to commit cursor: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("item %s not found", itemID)
	}
	return nil
}
