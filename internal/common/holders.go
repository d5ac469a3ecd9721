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


package common

import (
	"context"
	"fmt"

	"pet-gacha-go/internal/models"

	"go.uber.org/zap"
)

// HolderLister lists every address that holds a Gold balance
type HolderLister interface {
	GetHolders(ctx context.Context) ([]models.Address, error)
}

// InitializeHolders resolves the holders a command should report on.
// If holderFilter is provided, only that holder is returned.
// If holderFilter is empty, every known holder is returned.
func InitializeHolders(ctx context.Context, dbService HolderLister, holderFilter string, logger *zap.Logger) ([]models.Address, error) {
	if holderFilter != "" {
		holder := models.Address(holderFilter)
		if holder.IsZero() {
			return nil, fmt.Errorf("holder filter is the zero address")
		}
		logger.Info("Using single holder", zap.String("holder", holderFilter))
		return []models.Address{holder}, nil
	}

	holders, err := dbService.GetHolders(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get holders: %w", err)
	}

	logger.Info("Retrieved holders", zap.Int("count", len(holders)))
	return holders, nil
}
