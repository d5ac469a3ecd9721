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


package api

import (
	"context"
	"fmt"

	"pet-gacha-go/internal/models"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// GetHolderBalance returns the current balance of a holder for one token
func (s *LedgerService) GetHolderBalance(ctx context.Context, holder, token models.Address) (decimal.Decimal, error) {
	if holder.IsZero() || token.IsZero() {
		return decimal.Zero, fmt.Errorf("holder and token are required")
	}

	balance, err := s.db.GetHolderBalance(ctx, holder, token)
	if err != nil {
		zap.L().Error("Failed to get holder balance",
			zap.String("holder", holder.String()),
			zap.String("token", token.String()),
			zap.Error(err))
		return decimal.Zero, fmt.Errorf("failed to retrieve balance")
	}

	return balance, nil
}

// GetHolderBalances returns all non-zero balances for a holder
func (s *LedgerService) GetHolderBalances(ctx context.Context, holder models.Address) ([]models.HolderBalance, error) {
	if holder.IsZero() {
		return nil, fmt.Errorf("holder is required")
	}

	balances, err := s.db.GetAllHolderBalances(ctx, holder)
	if err != nil {
		zap.L().Error("Failed to get holder balances", zap.String("holder", holder.String()), zap.Error(err))
		return nil, fmt.Errorf("failed to retrieve balances")
	}

	result := make([]models.HolderBalance, 0, len(balances))
	for _, balance := range balances {
		if balance.Balance.IsZero() {
			continue
		}
		result = append(result, models.HolderBalance{
			Token:   balance.Token,
			Balance: balance.Balance,
		})
	}

	return result, nil
}

// GetTransactionHistory returns paginated movements for a holder and token.
// Amounts are signed from the holder's point of view.
func (s *LedgerService) GetTransactionHistory(ctx context.Context, holder, token models.Address, limit, offset int) ([]models.TransactionRecord, error) {
	if holder.IsZero() || token.IsZero() {
		return nil, fmt.Errorf("holder and token are required")
	}

	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	transactions, err := s.db.GetTransactionHistory(ctx, holder, token, limit, offset)
	if err != nil {
		zap.L().Error("Failed to get transaction history",
			zap.String("holder", holder.String()),
			zap.String("token", token.String()),
			zap.Error(err))
		return nil, fmt.Errorf("failed to retrieve transaction history")
	}

	result := make([]models.TransactionRecord, len(transactions))
	for i, tx := range transactions {
		amount := tx.Amount
		if tx.From == holder && tx.To != holder {
			amount = amount.Neg()
		}
		result[i] = models.TransactionRecord{
			Id:        tx.Id,
			Type:      tx.TransactionType,
			Token:     tx.Token,
			Amount:    amount,
			Reference: tx.Reference,
			CreatedAt: tx.CreatedAt,
		}
	}

	return result, nil
}

// ReconcileHolderBalance checks the stored balance against the sum of movements
func (s *LedgerService) ReconcileHolderBalance(ctx context.Context, holder, token models.Address) error {
	if err := s.db.ReconcileHolderBalance(ctx, holder, token); err != nil {
		zap.L().Warn("Balance reconciliation failed",
			zap.String("holder", holder.String()),
			zap.String("token", token.String()),
			zap.Error(err))
		return err
	}
	return nil
}
