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
	"time"

	"pet-gacha-go/internal/api"
	"pet-gacha-go/internal/common"
	"pet-gacha-go/internal/config"
	"pet-gacha-go/internal/models"

	"go.uber.org/zap"
)

func printPets(owner models.Address, pets []models.PetHolding) {
	fmt.Printf("\n┌─ Owner: %s\n", owner)
	fmt.Printf("│  Pets: %d\n", len(pets))
	common.PrintBoxSeparator(78)
	for i, pet := range pets {
		source := "breeding"
		if pet.OfferId != 0 {
			source = fmt.Sprintf("offer %d", pet.OfferId)
		}
		fmt.Printf("%s pet #%-8d rank %d (%s, minted %s)\n",
			common.BoxPrefix(i == len(pets)-1),
			pet.Id,
			pet.Rank,
			source,
			pet.CreatedAt.Format("2006-01-02 15:04:05"))
	}
}

func printBreedRecords(records []models.BreedRecord, now time.Time) {
	common.PrintHeader("BREED RECORDS", common.DefaultWidth)
	if len(records) == 0 {
		fmt.Println("No active breed records")
		return
	}
	for i, record := range records {
		status := "ready"
		if now.Before(record.ReadyAt()) {
			status = fmt.Sprintf("ready in %s", record.ReadyAt().Sub(now).Round(time.Second))
		}
		fmt.Printf("%s breed #%-6d owner %-20s rank %d (%s)\n",
			common.BoxPrefix(i == len(records)-1),
			record.Matron,
			record.Owner,
			record.NewRank,
			status)
		fmt.Printf("%s    parents #%d + #%d, started %s\n",
			common.BoxDetailPrefix(i == len(records)-1),
			record.Matron,
			record.Sire,
			record.StartTime.Format("2006-01-02 15:04:05"))
	}
}

func printOrders(orders []models.Order) {
	common.PrintHeader("OPEN ORDERS", common.DefaultWidth)
	if len(orders) == 0 {
		fmt.Println("No open orders")
		return
	}
	for i, order := range orders {
		fmt.Printf("%s order #%-6d pet #%-6d %s %s by %s\n",
			common.BoxPrefix(i == len(orders)-1),
			order.Id,
			order.PetId,
			common.FormatGold(order.Price),
			order.PaymentToken,
			order.Seller)
	}
}

func main() {
	ctx := context.Background()

	logger, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	ownerFlag := flag.String("owner", "", "Filter pets by owner (default: every holder)")
	limitFlag := flag.Int("limit", 20, "Maximum number of open orders to list")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}

	dbService, err := common.InitializeDatabaseOnly(ctx, cfg)
	if err != nil {
		logger.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer dbService.Close()

	ledger := api.NewLedgerService(dbService)
	if err := ledger.HealthCheck(ctx); err != nil {
		logger.Fatal("Database not healthy", zap.Error(err))
	}

	holders, err := common.InitializeHolders(ctx, dbService, *ownerFlag, logger)
	if err != nil {
		logger.Fatal("Failed to initialize holders", zap.Error(err))
	}

	common.PrintHeader("PET REPORT", common.DefaultWidth)
	totalPets := 0
	for _, holder := range holders {
		pets, err := ledger.GetPetsOf(ctx, cfg.Gacha.Collection, holder)
		if err != nil {
			logger.Error("Failed to list pets", zap.String("owner", holder.String()), zap.Error(err))
			continue
		}
		if len(pets) == 0 {
			continue
		}
		printPets(holder, pets)
		totalPets += len(pets)
	}

	records, err := ledger.GetBreedRecords(ctx)
	if err != nil {
		logger.Fatal("Failed to list breed records", zap.Error(err))
	}
	printBreedRecords(records, time.Now().UTC())

	orders, err := ledger.GetOpenOrders(ctx, *limitFlag, 0)
	if err != nil {
		logger.Fatal("Failed to list open orders", zap.Error(err))
	}
	printOrders(orders)

	common.PrintFooter(fmt.Sprintf("SUMMARY: %d pets, %d breed records, %d open orders",
		totalPets, len(records), len(orders)), common.DefaultWidth)
}
