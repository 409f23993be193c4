package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"go-ledger-engine/db"
	"go-ledger-engine/logger"
	"go-ledger-engine/model"
	"go-ledger-engine/repository"
	"time"

	"github.com/lib/pq"
	"github.com/sirupsen/logrus"
)

var (
	ErrInvalidAmount       = errors.New("transfer amount must be positive")
	ErrAmountPrecision     = errors.New("transfer amount must have at most two decimal places")
	ErrSameAccountTransfer = errors.New("cannot transfer money to the same account")
	ErrAccountNotFound     = errors.New("account not found")
	ErrInsufficientFunds   = errors.New("insufficient funds")
)

// reasonConcurrencyConflict marks outcomes caused by lock timeouts or
// storage-reported deadlocks. No mutation has occurred; the command is safe to
// resubmit under a new transfer ID, but this ID stays terminally FAILED.
const reasonConcurrencyConflict = "concurrent access conflict"

const publishAttempts = 3

// EventPublisher emits one outcome event per terminal transfer state.
type EventPublisher interface {
	PublishOutcome(ctx context.Context, event model.TransferEvent) error
}

// Outcome is the resolved result of processing a single transfer command.
// Duplicate marks commands short-circuited by the idempotency guard or by an
// insert conflict with a racing delivery of the same ID.
type Outcome struct {
	TransferID string
	Status     model.TransferStatus
	Reason     string
	Duplicate  bool
}

// duplicateTransferError aborts the transaction of a delivery that lost the
// pending-insert race. It carries the status of the row the winner committed.
type duplicateTransferError struct {
	status model.TransferStatus
}

func (e *duplicateTransferError) Error() string {
	return fmt.Sprintf("transfer already exists with status %s", e.status)
}

type TransferService struct {
	db           *sql.DB
	accountRepo  repository.IAccountRepository
	transferRepo repository.ITransferRepository
	entryRepo    repository.ILedgerEntryRepository
	publisher    EventPublisher
	statusCache  *StatusCache
	lockTimeout  time.Duration
	retryDelay   time.Duration
}

func NewTransferService(
	database *sql.DB,
	accountRepo repository.IAccountRepository,
	transferRepo repository.ITransferRepository,
	entryRepo repository.ILedgerEntryRepository,
	publisher EventPublisher,
	statusCache *StatusCache,
	lockTimeout time.Duration,
) *TransferService {
	return &TransferService{
		db:           database,
		accountRepo:  accountRepo,
		transferRepo: transferRepo,
		entryRepo:    entryRepo,
		publisher:    publisher,
		statusCache:  statusCache,
		lockTimeout:  lockTimeout,
		retryDelay:   250 * time.Millisecond,
	}
}

// ProcessTransfer runs the full state machine for one command: idempotency
// guard, pre-lock validation, the locked double-entry transaction, and the
// outcome event. Validation and concurrency failures are resolved locally as
// a terminal FAILED transfer; a non-nil error is returned only when the
// command could not be brought to a terminal state and should be redelivered.
func (s *TransferService) ProcessTransfer(ctx context.Context, cmd model.TransferCommand) (Outcome, error) {
	log := logger.Log.WithFields(logrus.Fields{
		"transfer_id":  cmd.TransferID,
		"from_account": cmd.FromAccountID,
		"to_account":   cmd.ToAccountID,
		"amount":       cmd.Amount.String(),
	})
	log.Info("Processing transfer command")

	if status, ok := s.statusCache.Get(ctx, cmd.TransferID); ok {
		log.WithField("status", status).Info("Transfer already terminal (cache), skipping")
		return Outcome{TransferID: cmd.TransferID, Status: status, Duplicate: true}, nil
	}

	status, found, err := s.transferRepo.GetTransferStatus(cmd.TransferID)
	if err != nil {
		return Outcome{}, fmt.Errorf("could not check for existing transfer: %w", err)
	}
	if found {
		log.WithField("status", status).Info("Transfer already processed, skipping")
		if status.IsTerminal() {
			s.statusCache.Set(ctx, cmd.TransferID, status)
		}
		return Outcome{TransferID: cmd.TransferID, Status: status, Duplicate: true}, nil
	}

	if cmd.Amount.Sign() <= 0 {
		return s.fail(ctx, cmd, ErrInvalidAmount.Error(), log), nil
	}
	// Balances carry a fixed two-decimal scale; a sub-cent amount would be
	// rounded per column by the storage layer and break conservation.
	if !cmd.Amount.Equal(cmd.Amount.Truncate(2)) {
		return s.fail(ctx, cmd, ErrAmountPrecision.Error(), log), nil
	}
	if cmd.FromAccountID == cmd.ToAccountID {
		return s.fail(ctx, cmd, ErrSameAccountTransfer.Error(), log), nil
	}

	err = db.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		return s.applyTransfer(tx, cmd)
	})
	if err != nil {
		var dup *duplicateTransferError
		switch {
		case errors.As(err, &dup):
			log.WithField("status", dup.status).Info("Lost pending-insert race to a concurrent duplicate, skipping")
			if dup.status.IsTerminal() {
				s.statusCache.Set(ctx, cmd.TransferID, dup.status)
			}
			return Outcome{TransferID: cmd.TransferID, Status: dup.status, Duplicate: true}, nil
		case errors.Is(err, ErrAccountNotFound), errors.Is(err, ErrInsufficientFunds):
			return s.fail(ctx, cmd, err.Error(), log), nil
		case isConcurrencyError(err):
			log.WithError(err).Warn("Storage concurrency failure, no mutation applied")
			return s.fail(ctx, cmd, reasonConcurrencyConflict, log), nil
		default:
			return Outcome{}, fmt.Errorf("could not apply transfer: %w", err)
		}
	}

	log.Info("Transfer completed successfully")
	s.statusCache.Set(ctx, cmd.TransferID, model.StatusCompleted)
	s.publishOutcome(ctx, model.TransferEvent{
		TransferID: cmd.TransferID,
		Status:     string(model.StatusCompleted),
	}, log)

	return Outcome{TransferID: cmd.TransferID, Status: model.StatusCompleted}, nil
}

// applyTransfer performs steps 3-8 of the state machine inside one storage
// transaction: ordered row locks, validation under lock, the pending insert,
// both balance mutations with their ledger entries, and the COMPLETED update.
func (s *TransferService) applyTransfer(tx *sql.Tx, cmd model.TransferCommand) error {
	lockStmt := fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", s.lockTimeout.Milliseconds())
	if _, err := tx.Exec(lockStmt); err != nil {
		return fmt.Errorf("could not set lock timeout: %w", err)
	}

	// Every instance locks the lexicographically lower account ID first so
	// opposing transfers between the same pair cannot form a circular wait.
	first, second := cmd.FromAccountID, cmd.ToAccountID
	if second < first {
		first, second = second, first
	}

	locked := make(map[string]*model.Account, 2)
	for _, id := range []string{first, second} {
		account, err := s.accountRepo.GetAccountForUpdate(tx, id)
		if err != nil {
			if err == sql.ErrNoRows {
				return ErrAccountNotFound
			}
			return err
		}
		locked[id] = account
	}

	from := locked[cmd.FromAccountID]
	to := locked[cmd.ToAccountID]

	if from.Balance.LessThan(cmd.Amount) {
		return ErrInsufficientFunds
	}

	inserted, err := s.transferRepo.InsertPendingTransfer(tx, &model.Transfer{
		ID:          cmd.TransferID,
		FromAccount: cmd.FromAccountID,
		ToAccount:   cmd.ToAccountID,
		Amount:      cmd.Amount,
		Status:      model.StatusPending,
	})
	if err != nil {
		return fmt.Errorf("could not insert pending transfer: %w", err)
	}
	if !inserted {
		status, found, err := s.transferRepo.GetTransferStatusTx(tx, cmd.TransferID)
		if err != nil {
			return fmt.Errorf("could not re-read conflicting transfer: %w", err)
		}
		if !found {
			status = model.StatusPending
		}
		return &duplicateTransferError{status: status}
	}

	newFromBalance := from.Balance.Sub(cmd.Amount)
	if err := s.accountRepo.UpdateAccountBalance(tx, from.ID, newFromBalance); err != nil {
		return fmt.Errorf("could not update sender balance: %w", err)
	}
	if err := s.entryRepo.AppendEntry(tx, &model.LedgerEntry{
		TransferID:   cmd.TransferID,
		AccountID:    from.ID,
		Delta:        cmd.Amount.Neg(),
		BalanceAfter: newFromBalance,
	}); err != nil {
		return fmt.Errorf("could not append debit entry: %w", err)
	}

	newToBalance := to.Balance.Add(cmd.Amount)
	if err := s.accountRepo.UpdateAccountBalance(tx, to.ID, newToBalance); err != nil {
		return fmt.Errorf("could not update receiver balance: %w", err)
	}
	if err := s.entryRepo.AppendEntry(tx, &model.LedgerEntry{
		TransferID:   cmd.TransferID,
		AccountID:    to.ID,
		Delta:        cmd.Amount,
		BalanceAfter: newToBalance,
	}); err != nil {
		return fmt.Errorf("could not append credit entry: %w", err)
	}

	if err := s.transferRepo.MarkTransferCompleted(tx, cmd.TransferID); err != nil {
		return fmt.Errorf("could not mark transfer completed: %w", err)
	}
	return nil
}

// fail records the terminal FAILED row outside the rolled-back transaction and
// publishes the FAILED event. The conflict-tolerant write means a racing
// terminal row takes precedence and is never overwritten.
func (s *TransferService) fail(ctx context.Context, cmd model.TransferCommand, reason string, log *logrus.Entry) Outcome {
	log.WithField("reason", reason).Info("Transfer failed")

	err := s.transferRepo.RecordTransferFailure(&model.Transfer{
		ID:          cmd.TransferID,
		FromAccount: cmd.FromAccountID,
		ToAccount:   cmd.ToAccountID,
		Amount:      cmd.Amount,
	}, reason)
	if err != nil {
		// A failure referencing a missing account cannot satisfy the
		// transfers FK; the outcome then surfaces through the event only.
		log.WithError(err).Warn("Could not record transfer failure")
	} else {
		s.statusCache.Set(ctx, cmd.TransferID, model.StatusFailed)
	}

	s.publishOutcome(ctx, model.TransferEvent{
		TransferID: cmd.TransferID,
		Status:     string(model.StatusFailed),
		Reason:     reason,
	}, log)

	return Outcome{TransferID: cmd.TransferID, Status: model.StatusFailed, Reason: reason}
}

// publishOutcome retries event emission on its own: the business mutation is
// already committed, so a publish failure must never re-run the transfer,
// only the publication.
func (s *TransferService) publishOutcome(ctx context.Context, event model.TransferEvent, log *logrus.Entry) {
	var err error
	for attempt := 1; attempt <= publishAttempts; attempt++ {
		if err = s.publisher.PublishOutcome(ctx, event); err == nil {
			return
		}
		log.WithError(err).WithField("attempt", attempt).Warn("Failed to publish transfer outcome")

		select {
		case <-ctx.Done():
			return
		case <-time.After(time.Duration(attempt) * s.retryDelay):
		}
	}
	log.WithError(err).Error("Giving up on publishing transfer outcome")
}

// isConcurrencyError reports whether the storage engine rejected the attempt
// because of lock contention. SQLSTATEs: lock_not_available, deadlock_detected,
// serialization_failure.
func isConcurrencyError(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case "55P03", "40P01", "40001":
			return true
		}
	}
	return false
}
