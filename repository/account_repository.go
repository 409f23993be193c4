package repository

import (
	"database/sql"
	"go-ledger-engine/logger"
	"go-ledger-engine/model"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// IAccountRepository defines the contract for account database operations.
type IAccountRepository interface {
	GetAccountForUpdate(tx *sql.Tx, accountID string) (*model.Account, error)
	UpdateAccountBalance(tx *sql.Tx, accountID string, newBalance decimal.Decimal) error
	GetAccountByID(accountID string) (*model.Account, error)
}

type AccountRepository struct {
	DB *sql.DB
}

func NewAccountRepository(db *sql.DB) *AccountRepository {
	return &AccountRepository{DB: db}
}

// GetAccountForUpdate reads an account under an exclusive row lock. The lock
// is held by the surrounding transaction until commit or rollback.
func (r *AccountRepository) GetAccountForUpdate(tx *sql.Tx, accountID string) (*model.Account, error) {
	log := logger.Log.WithField("account_id", accountID)
	log.Info("Executing query to get account for update")

	account := &model.Account{}
	query := `SELECT id, user_id, balance, created_at FROM accounts WHERE id = $1 FOR UPDATE`
	err := tx.QueryRow(query, accountID).Scan(&account.ID, &account.UserID, &account.Balance, &account.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			log.Info("Account not found for update")
		} else {
			log.WithError(err).Error("Failed to execute get account for update query")
		}
		return nil, err
	}
	return account, nil
}

func (r *AccountRepository) UpdateAccountBalance(tx *sql.Tx, accountID string, newBalance decimal.Decimal) error {
	log := logger.Log.WithFields(logrus.Fields{
		"account_id":  accountID,
		"new_balance": newBalance.String(),
	})
	log.Info("Executing query to update account balance")

	query := `UPDATE accounts SET balance = $1 WHERE id = $2`
	_, err := tx.Exec(query, newBalance, accountID)
	if err != nil {
		log.WithError(err).Error("Failed to execute update account balance query")
		return err
	}
	return nil
}

// GetAccountByID retrieves a single account outside any transaction. Read-only
// collaborator lookups only; the processor always reads under lock instead.
func (r *AccountRepository) GetAccountByID(accountID string) (*model.Account, error) {
	log := logger.Log.WithField("account_id", accountID)
	log.Info("Executing query to get account by ID")

	account := &model.Account{}
	query := `SELECT id, user_id, balance, created_at FROM accounts WHERE id = $1`
	err := r.DB.QueryRow(query, accountID).Scan(&account.ID, &account.UserID, &account.Balance, &account.CreatedAt)
	if err != nil {
		if err != sql.ErrNoRows {
			log.WithError(err).Error("Failed to execute get account by ID query")
		}
		return nil, err
	}
	return account, nil
}
