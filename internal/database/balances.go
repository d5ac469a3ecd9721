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
	"fmt"

	"pet-gacha-go/internal/models"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// GetHolderBalance returns current balance for holder/token (O(1) lookup)
func (s *Service) GetHolderBalance(ctx context.Context, holder, token models.Address) (decimal.Decimal, error) {
	zap.L().Debug("Getting balance", zap.String("holder", holder.String()), zap.String("token", token.String()))

	balance, err := getBalance(ctx, s.db, token, holder)
	if err != nil {
		zap.L().Error("Failed to get balance", zap.String("holder", holder.String()), zap.String("token", token.String()), zap.Error(err))
		return decimal.Zero, err
	}
	return balance, nil
}

// GetAllHolderBalances returns all non-zero balances for a holder
func (s *Service) GetAllHolderBalances(ctx context.Context, holder models.Address) ([]models.AccountBalance, error) {
	zap.L().Debug("Getting all balances", zap.String("holder", holder.String()))

	rows, err := s.db.QueryContext(ctx, queryGetAllHolderBalances, holder)
	if err != nil {
		zap.L().Error("Failed to get all balances", zap.String("holder", holder.String()), zap.Error(err))
		return nil, fmt.Errorf("failed to get all balances: %w", err)
	}
	defer func(rows *sql.Rows) {
		if err := rows.Close(); err != nil {
			zap.L().Warn("Failed to close rows", zap.Error(err))
		}
	}(rows)

	var balances []models.AccountBalance
	for rows.Next() {
		var balance models.AccountBalance
		var balanceStr string
		err := rows.Scan(&balance.Id, &balance.Holder, &balance.Token, &balanceStr,
			&balance.LastTransactionId, &balance.Version, &balance.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan balance: %w", err)
		}

		balance.Balance, err = decimal.NewFromString(balanceStr)
		if err != nil {
			return nil, fmt.Errorf("failed to parse balance '%s': %w", balanceStr, err)
		}

		balances = append(balances, balance)
	}

	// Check for errors during iteration
	if err := rows.Err(); err != nil {
		zap.L().Error("Error during balance row iteration", zap.Error(err))
		return nil, fmt.Errorf("error iterating balance rows: %w", err)
	}

	zap.L().Debug("Retrieved all balances", zap.String("holder", holder.String()), zap.Int("count", len(balances)))
	return balances, nil
}

// GetHolders returns every holder that ever had a balance row
func (s *Service) GetHolders(ctx context.Context) ([]models.Address, error) {
	rows, err := s.db.QueryContext(ctx, queryGetHolders)
	if err != nil {
		return nil, fmt.Errorf("unable to query holders: %w", err)
	}
	defer func(rows *sql.Rows) {
		if err := rows.Close(); err != nil {
			zap.L().Warn("Failed to close rows", zap.Error(err))
		}
	}(rows)

	var holders []models.Address
	for rows.Next() {
		var holder models.Address
		if err := rows.Scan(&holder); err != nil {
			return nil, fmt.Errorf("unable to scan holder row: %w", err)
		}
		holders = append(holders, holder)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating holder rows: %w", err)
	}
	return holders, nil
}

// ReconcileHolderBalance verifies that current balance matches the sum of all movements
func (s *Service) ReconcileHolderBalance(ctx context.Context, holder, token models.Address) error {
	zap.L().Info("Reconciling balance", zap.String("holder", holder.String()), zap.String("token", token.String()))

	currentBalance, err := s.GetHolderBalance(ctx, holder, token)
	if err != nil {
		return fmt.Errorf("failed to get current balance: %w", err)
	}

	// Amounts are stored as TEXT, so the sum is computed here rather than in SQL
	rows, err := s.db.QueryContext(ctx, queryGetHolderMovements, token, holder, holder)
	if err != nil {
		return fmt.Errorf("failed to load movements: %w", err)
	}
	defer func(rows *sql.Rows) {
		if err := rows.Close(); err != nil {
			zap.L().Warn("Failed to close rows", zap.Error(err))
		}
	}(rows)

	calculatedBalance := decimal.Zero
	for rows.Next() {
		var from, to models.Address
		var amountStr string
		if err := rows.Scan(&from, &to, &amountStr); err != nil {
			return fmt.Errorf("failed to scan movement: %w", err)
		}
		amount, err := decimal.NewFromString(amountStr)
		if err != nil {
			return fmt.Errorf("failed to parse amount '%s': %w", amountStr, err)
		}
		if from == holder {
			calculatedBalance = calculatedBalance.Sub(amount)
		}
		if to == holder {
			calculatedBalance = calculatedBalance.Add(amount)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("error iterating movement rows: %w", err)
	}

	if !currentBalance.Equal(calculatedBalance) {
		zap.L().Error("Balance reconciliation failed",
			zap.String("holder", holder.String()),
			zap.String("token", token.String()),
			zap.String("current_balance", currentBalance.String()),
			zap.String("calculated_balance", calculatedBalance.String()),
			zap.String("difference", currentBalance.Sub(calculatedBalance).String()))
		return fmt.Errorf("balance mismatch: current=%s, calculated=%s", currentBalance.String(), calculatedBalance.String())
	}

	zap.L().Info("Balance reconciliation successful",
		zap.String("holder", holder.String()),
		zap.String("token", token.String()),
		zap.String("balance", currentBalance.String()))
	return nil
}
