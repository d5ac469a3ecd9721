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
	"errors"
	"flag"
	"fmt"
	"strings"

	"pet-gacha-go/internal/common"
	"pet-gacha-go/internal/config"
	apperrors "pet-gacha-go/internal/errors"
	"pet-gacha-go/internal/models"
	"pet-gacha-go/internal/store"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type seedBalance struct {
	Holder models.Address
	Amount decimal.Decimal
}

// parseSeeds parses a comma separated list of holder=amount pairs
func parseSeeds(raw string) ([]seedBalance, error) {
	var seeds []seedBalance
	if strings.TrimSpace(raw) == "" {
		return seeds, nil
	}

	seen := make(map[models.Address]bool)
	for _, pair := range strings.Split(raw, ",") {
		holder, amountStr, ok := strings.Cut(strings.TrimSpace(pair), "=")
		if !ok {
			return nil, fmt.Errorf("invalid seed %q, expected holder=amount", pair)
		}
		addr := models.Address(strings.TrimSpace(holder))
		if addr.IsZero() {
			return nil, fmt.Errorf("seed %q has no holder", pair)
		}
		if seen[addr] {
			return nil, fmt.Errorf("holder %s seeded twice", addr)
		}
		seen[addr] = true

		amount, err := decimal.NewFromString(strings.TrimSpace(amountStr))
		if err != nil {
			return nil, fmt.Errorf("seed %q has invalid amount: %w", pair, err)
		}
		if !amount.IsPositive() || !amount.IsInteger() {
			return nil, fmt.Errorf("seed %q amount must be a positive whole number", pair)
		}
		seeds = append(seeds, seedBalance{Holder: addr, Amount: amount})
	}
	return seeds, nil
}

// registerGold makes the Gold token an accepted payment token; re-running is a no-op
func registerGold(ctx context.Context, services *common.Services, cfg *models.Config) error {
	err := services.Marketplace.AddPaymentToken(ctx, cfg.Marketplace.Admin, cfg.Gacha.GoldToken)
	if errors.Is(err, apperrors.Sentinel(apperrors.CodeAlreadySupported)) {
		zap.L().Info("Gold already registered as payment token", zap.String("token", cfg.Gacha.GoldToken.String()))
		return nil
	}
	if err != nil {
		return err
	}
	zap.L().Info("Registered payment token", zap.String("token", cfg.Gacha.GoldToken.String()))
	return nil
}

func seedReference(holder models.Address) string {
	return fmt.Sprintf("setup:seed:%s", holder)
}

// seedHolder mints the starting balance of a holder that was never seeded.
// The check and the mint share one transaction, so a holder is seeded at
// most once whatever their balance is now.
func seedHolder(ctx context.Context, st store.Store, gold models.Address, seed seedBalance) (bool, error) {
	seeded := false
	err := st.RunInTx(ctx, func(tx store.Tx) error {
		reference := seedReference(seed.Holder)
		exists, err := tx.Ledger().HasMovement(ctx, gold, reference)
		if err != nil {
			return err
		}
		if exists {
			return nil
		}
		if err := tx.Ledger().Mint(ctx, gold, seed.Holder, seed.Amount, reference); err != nil {
			return err
		}
		seeded = true
		return nil
	})
	if err != nil {
		return false, err
	}

	if !seeded {
		zap.L().Info("Holder already seeded, skipping", zap.String("holder", seed.Holder.String()))
		return false, nil
	}

	zap.L().Info("Seeded holder balance",
		zap.String("holder", seed.Holder.String()),
		zap.String("amount", seed.Amount.String()))
	return true, nil
}

func main() {
	seedFlag := flag.String("seed", "", "Comma separated holder=amount Gold balances to mint (e.g. alice=10000,bob=10000)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		common.InstallFallbackLogger()
		zap.L().Fatal("Failed to load configuration", zap.Error(err))
	}

	_, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	ctx := context.Background()

	seeds, err := parseSeeds(*seedFlag)
	if err != nil {
		zap.L().Fatal("Invalid seed flag", zap.Error(err))
	}

	services, err := common.InitializeServices(ctx, cfg)
	if err != nil {
		zap.L().Fatal("Failed to initialize services", zap.Error(err))
	}
	defer services.Close()

	if err := registerGold(ctx, services, cfg); err != nil {
		zap.L().Fatal("Failed to register payment token", zap.Error(err))
	}

	var seeded, skipped, failed int
	for _, seed := range seeds {
		ok, err := seedHolder(ctx, services.DbService, cfg.Gacha.GoldToken, seed)
		switch {
		case err != nil:
			failed++
			zap.L().Error("Failed to seed holder", zap.String("holder", seed.Holder.String()), zap.Error(err))
		case ok:
			seeded++
		default:
			skipped++
		}
	}

	common.PrintHeader("SETUP COMPLETE", common.DefaultWidth)
	common.PrintField("Gacha", fmt.Sprintf("%s (collection %s)", services.Gacha.Address(), services.Gacha.Collection()))
	common.PrintField("Marketplace", services.Marketplace.Address())
	common.PrintField("Payment token", cfg.Gacha.GoldToken)
	common.PrintField("Offers", len(services.Gacha.Offers()))
	common.PrintFooter(fmt.Sprintf("SUMMARY: %d holders seeded, %d skipped, %d failed", seeded, skipped, failed), common.DefaultWidth)

	if failed > 0 {
		zap.L().Fatal("Setup completed with failures", zap.Int("failed", failed))
	}
}
