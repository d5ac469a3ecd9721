/**
 * Copyright 2025-present Coinbase Global, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"pet-gacha-go/internal/models"
	"pet-gacha-go/internal/store"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// subledger implements store.Ledger over a single transaction scope.
type subledger struct {
	q   queryer
	now func() time.Time
}

// postParams contains the parameters for posting a ledger movement
type postParams struct {
	Token           models.Address
	From            models.Address // empty for mint
	To              models.Address
	Spender         models.Address
	TransactionType string
	Amount          decimal.Decimal
	Reference       string
}

func validAmount(amount decimal.Decimal) bool {
	return amount.IsPositive() && amount.IsInteger()
}

func (l *subledger) BalanceOf(ctx context.Context, token, holder models.Address) (decimal.Decimal, error) {
	return getBalance(ctx, l.q, token, holder)
}

func (l *subledger) Mint(ctx context.Context, token, to models.Address, amount decimal.Decimal, reference string) error {
	if to.IsZero() {
		return fmt.Errorf("mint to the zero address")
	}
	_, err := l.post(ctx, postParams{
		Token:           token,
		To:              to,
		TransactionType: models.TransactionTypeMint,
		Amount:          amount,
		Reference:       reference,
	})
	return err
}

func (l *subledger) Transfer(ctx context.Context, token, from, to models.Address, amount decimal.Decimal, reference string) error {
	if from.IsZero() || to.IsZero() {
		return fmt.Errorf("transfer from or to the zero address")
	}
	_, err := l.post(ctx, postParams{
		Token:           token,
		From:            from,
		To:              to,
		TransactionType: models.TransactionTypeTransfer,
		Amount:          amount,
		Reference:       reference,
	})
	return err
}

func (l *subledger) Approve(ctx context.Context, token, owner, spender models.Address, amount decimal.Decimal) error {
	if owner.IsZero() || spender.IsZero() {
		return fmt.Errorf("approve from or to the zero address")
	}
	if amount.IsNegative() || !amount.IsInteger() {
		return store.ErrInvalidAmount
	}
	if _, err := l.q.ExecContext(ctx, queryUpsertAllowance, token, owner, spender, amount.String(), l.now()); err != nil {
		return fmt.Errorf("failed to store allowance: %w", err)
	}

	zap.L().Debug("Allowance updated",
		zap.String("token", token.String()),
		zap.String("owner", owner.String()),
		zap.String("spender", spender.String()),
		zap.String("amount", amount.String()))
	return nil
}

func (l *subledger) Allowance(ctx context.Context, token, owner, spender models.Address) (decimal.Decimal, error) {
	var amountStr string
	err := l.q.QueryRowContext(ctx, queryGetAllowance, token, owner, spender).Scan(&amountStr)
	if errors.Is(err, sql.ErrNoRows) {
		return decimal.Zero, nil
	}
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to get allowance: %w", err)
	}
	amount, err := decimal.NewFromString(amountStr)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to parse allowance '%s': %w", amountStr, err)
	}
	return amount, nil
}

func (l *subledger) HasMovement(ctx context.Context, token models.Address, reference string) (bool, error) {
	var exists bool
	if err := l.q.QueryRowContext(ctx, queryHasMovement, token, reference).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to look up movement reference: %w", err)
	}
	return exists, nil
}

func (l *subledger) TransferFrom(ctx context.Context, token, spender, from, to models.Address, amount decimal.Decimal, reference string) error {
	if from.IsZero() || to.IsZero() {
		return fmt.Errorf("transfer from or to the zero address")
	}
	if !validAmount(amount) {
		return store.ErrInvalidAmount
	}

	allowance, err := l.Allowance(ctx, token, from, spender)
	if err != nil {
		return err
	}
	if allowance.LessThan(amount) {
		zap.L().Debug("Allowance too low",
			zap.String("token", token.String()),
			zap.String("owner", from.String()),
			zap.String("spender", spender.String()),
			zap.String("allowance", allowance.String()),
			zap.String("amount", amount.String()))
		return fmt.Errorf("%w: allowance %s, requested %s", store.ErrInsufficientAllowance, allowance.String(), amount.String())
	}

	if _, err := l.post(ctx, postParams{
		Token:           token,
		From:            from,
		To:              to,
		Spender:         spender,
		TransactionType: models.TransactionTypeTransferFrom,
		Amount:          amount,
		Reference:       reference,
	}); err != nil {
		return err
	}

	if _, err := l.q.ExecContext(ctx, queryUpsertAllowance, token, from, spender, allowance.Sub(amount).String(), l.now()); err != nil {
		return fmt.Errorf("failed to consume allowance: %w", err)
	}
	return nil
}

// post atomically (within the caller's transaction) debits From, credits To
// and records the movement with its journal entries.
func (l *subledger) post(ctx context.Context, params postParams) (*models.Transaction, error) {
	if !validAmount(params.Amount) {
		return nil, store.ErrInvalidAmount
	}

	transactionId := uuid.New().String()
	now := l.now()

	if params.From != "" {
		if _, _, err := l.applyDelta(ctx, params.Token, params.From, params.Amount.Neg(), transactionId, now); err != nil {
			return nil, err
		}
	}
	before, after, err := l.applyDelta(ctx, params.Token, params.To, params.Amount, transactionId, now)
	if err != nil {
		return nil, err
	}

	transaction := &models.Transaction{
		Id:              transactionId,
		Token:           params.Token,
		From:            params.From,
		To:              params.To,
		Spender:         params.Spender,
		TransactionType: params.TransactionType,
		Amount:          params.Amount,
		Reference:       params.Reference,
		CreatedAt:       now,
	}
	_, err = l.q.ExecContext(ctx, queryInsertTransaction,
		transaction.Id, transaction.Token, transaction.From, transaction.To, transaction.Spender,
		transaction.TransactionType, transaction.Amount.String(), transaction.Reference, now)
	if err != nil {
		return nil, fmt.Errorf("failed to insert transaction: %w", err)
	}

	if err := l.addJournalEntries(ctx, transaction); err != nil {
		return nil, fmt.Errorf("failed to add journal entries: %w", err)
	}

	zap.L().Debug("Ledger movement posted",
		zap.String("transaction_id", transactionId),
		zap.String("type", params.TransactionType),
		zap.String("token", params.Token.String()),
		zap.String("from", params.From.String()),
		zap.String("to", params.To.String()),
		zap.String("amount", params.Amount.String()),
		zap.String("to_old_balance", before.String()),
		zap.String("to_new_balance", after.String()))

	return transaction, nil
}

// applyDelta adds delta to the holder's balance with optimistic locking and
// refuses to take a balance below zero.
func (l *subledger) applyDelta(ctx context.Context, token, holder models.Address, delta decimal.Decimal, transactionId string, now time.Time) (decimal.Decimal, decimal.Decimal, error) {
	var currentBalanceStr string
	var accountId string
	var version int64

	err := l.q.QueryRowContext(ctx, queryGetAccountBalance, holder, token).Scan(&accountId, &currentBalanceStr, &version)

	var currentBalance decimal.Decimal
	if errors.Is(err, sql.ErrNoRows) {
		accountId = uuid.New().String()
		currentBalance = decimal.Zero
		version = 1

		_, err = l.q.ExecContext(ctx, queryInsertAccountBalance, accountId, holder, token, "0", 1, now)
		if err != nil {
			return decimal.Zero, decimal.Zero, fmt.Errorf("failed to create account balance: %w", err)
		}
	} else if err != nil {
		return decimal.Zero, decimal.Zero, fmt.Errorf("failed to get current balance: %w", err)
	} else {
		currentBalance, err = decimal.NewFromString(currentBalanceStr)
		if err != nil {
			return decimal.Zero, decimal.Zero, fmt.Errorf("failed to parse current balance '%s': %w", currentBalanceStr, err)
		}
	}

	newBalance := currentBalance.Add(delta)
	if newBalance.IsNegative() {
		return decimal.Zero, decimal.Zero, fmt.Errorf("%w: %s holds %s, needs %s",
			store.ErrInsufficientBalance, holder, currentBalance.String(), delta.Neg().String())
	}

	result, err := l.q.ExecContext(ctx, queryUpdateAccountBalance, newBalance.String(), transactionId, now, holder, token, version)
	if err != nil {
		return decimal.Zero, decimal.Zero, fmt.Errorf("failed to update balance: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return decimal.Zero, decimal.Zero, fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return decimal.Zero, decimal.Zero, fmt.Errorf("balance update failed - %w", store.ErrConcurrentModification)
	}

	return currentBalance, newBalance, nil
}

type journalEntry struct {
	accountType  string
	accountId    string
	debitAmount  decimal.Decimal
	creditAmount decimal.Decimal
}

// addJournalEntries creates double-entry bookkeeping entries
func (l *subledger) addJournalEntries(ctx context.Context, transaction *models.Transaction) error {
	// The receiving holder is debited; the sender (or the issuance account
	// for a mint) is credited.
	source := journalEntry{"holder", fmt.Sprintf("%s_%s", transaction.From, transaction.Token), decimal.Zero, transaction.Amount}
	if transaction.TransactionType == models.TransactionTypeMint {
		source = journalEntry{"issuance", fmt.Sprintf("supply_%s", transaction.Token), decimal.Zero, transaction.Amount}
	}
	entries := []journalEntry{
		{"holder", fmt.Sprintf("%s_%s", transaction.To, transaction.Token), transaction.Amount, decimal.Zero},
		source,
	}

	for _, entry := range entries {
		_, err := l.q.ExecContext(ctx, queryInsertJournalEntry,
			uuid.New().String(), transaction.Id, entry.accountType, entry.accountId,
			entry.debitAmount.String(), entry.creditAmount.String(), transaction.CreatedAt)
		if err != nil {
			return err
		}
	}

	return nil
}

func getBalance(ctx context.Context, q queryer, token, holder models.Address) (decimal.Decimal, error) {
	var balanceStr string
	err := q.QueryRowContext(ctx, queryGetBalance, holder, token).Scan(&balanceStr)
	if errors.Is(err, sql.ErrNoRows) {
		// No balance record means zero balance
		return decimal.Zero, nil
	}
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to get balance: %w", err)
	}

	balance, err := decimal.NewFromString(balanceStr)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to parse balance '%s': %w", balanceStr, err)
	}
	return balance, nil
}
