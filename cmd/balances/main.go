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


package main

import (
	"context"
	"flag"
	"fmt"

	"pet-gacha-go/internal/api"
	"pet-gacha-go/internal/common"
	"pet-gacha-go/internal/config"
	"pet-gacha-go/internal/database"
	"pet-gacha-go/internal/models"

	"go.uber.org/zap"
)

type balanceStats struct {
	totalHolders       int
	totalBalances      int
	holdersWithBalance int
	unreconciled       int
}

func printBalance(balance models.AccountBalance, isLast bool) {
	symbol := common.BoxPrefix(isLast)
	lastTx := common.ShortId(balance.LastTransactionId)

	fmt.Printf("%s %-15s: %20s (v%d, last_tx: %s, updated: %s)\n",
		symbol,
		balance.Token,
		common.FormatGold(balance.Balance),
		balance.Version,
		lastTx,
		balance.UpdatedAt.Format("2006-01-02 15:04:05"))
}

func printHolderHeader(holder models.Address, balanceCount, petCount int) {
	fmt.Printf("\n┌─ Holder: %s\n", holder)
	fmt.Printf("│  Tokens: %d\n", balanceCount)
	fmt.Printf("│  Pets: %d\n", petCount)
	common.PrintBoxSeparator(78)
}

func processHolder(ctx context.Context, holder models.Address, cfg *models.Config, dbService *database.Service, ledger *api.LedgerService, reconcile bool) (int, bool, error) {
	balances, err := dbService.GetAllHolderBalances(ctx, holder)
	if err != nil {
		return 0, true, fmt.Errorf("failed to get balances: %w", err)
	}

	if len(balances) == 0 {
		return 0, true, nil
	}

	pets, err := ledger.GetPetsOf(ctx, cfg.Gacha.Collection, holder)
	if err != nil {
		return 0, true, err
	}

	printHolderHeader(holder, len(balances), len(pets))
	reconciled := true
	for i, balance := range balances {
		printBalance(balance, i == len(balances)-1)
		if reconcile {
			if err := ledger.ReconcileHolderBalance(ctx, holder, balance.Token); err != nil {
				fmt.Printf("%s   ! reconciliation failed: %s\n", common.BoxDetailPrefix(i == len(balances)-1), err)
				reconciled = false
			}
		}
	}

	return len(balances), reconciled, nil
}

func processHoldersAndGenerateReport(ctx context.Context, holders []models.Address, cfg *models.Config, dbService *database.Service, reconcile bool, logger *zap.Logger) balanceStats {
	stats := balanceStats{}
	ledger := api.NewLedgerService(dbService)

	for _, holder := range holders {
		stats.totalHolders++

		balanceCount, reconciled, err := processHolder(ctx, holder, cfg, dbService, ledger, reconcile)
		if err != nil {
			logger.Error("Failed to process holder",
				zap.String("holder", holder.String()),
				zap.Error(err))
			continue
		}

		if !reconciled {
			stats.unreconciled++
		}
		if balanceCount > 0 {
			stats.holdersWithBalance++
			stats.totalBalances += balanceCount
		}
	}

	return stats
}

func main() {
	ctx := context.Background()

	logger, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	// Parse command line flags
	holderFlag := flag.String("holder", "", "Filter by specific holder address (optional)")
	reconcileFlag := flag.Bool("reconcile", false, "Verify every balance against the sum of its movements")
	flag.Parse()

	logger.Info("Starting balance query")

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}

	logger.Info("Connecting to database", zap.String("path", cfg.Database.Path))
	dbService, err := common.InitializeDatabaseOnly(ctx, cfg)
	if err != nil {
		logger.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer dbService.Close()

	holders, err := common.InitializeHolders(ctx, dbService, *holderFlag, logger)
	if err != nil {
		logger.Fatal("Failed to initialize holders", zap.Error(err))
	}

	common.PrintHeader("HOLDER BALANCE REPORT", common.DefaultWidth)

	stats := processHoldersAndGenerateReport(ctx, holders, cfg, dbService, *reconcileFlag, logger)

	summary := fmt.Sprintf("SUMMARY: %d holders with balances (%d total balances across %d holders queried)",
		stats.holdersWithBalance, stats.totalBalances, stats.totalHolders)
	if *reconcileFlag {
		summary += fmt.Sprintf(", %d unreconciled", stats.unreconciled)
	}
	common.PrintFooter(summary, common.DefaultWidth)

	logger.Info("Balance query completed",
		zap.Int("holders_queried", stats.totalHolders),
		zap.Int("holders_with_balances", stats.holdersWithBalance),
		zap.Int("total_balances", stats.totalBalances))
}
