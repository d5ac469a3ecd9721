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

	"go.uber.org/zap"
)

// GetOrder returns an order in any status, or nil when unknown
func (s *LedgerService) GetOrder(ctx context.Context, id int64) (*models.Order, error) {
	order, err := s.db.GetOrder(ctx, id)
	if err != nil {
		zap.L().Error("Failed to get order", zap.Int64("order_id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to retrieve order")
	}
	return order, nil
}

// GetOpenOrders returns a page of open orders, oldest first
func (s *LedgerService) GetOpenOrders(ctx context.Context, limit, offset int) ([]models.Order, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	orders, err := s.db.GetOpenOrders(ctx, limit, offset)
	if err != nil {
		zap.L().Error("Failed to get open orders", zap.Error(err))
		return nil, fmt.Errorf("failed to retrieve open orders")
	}
	return orders, nil
}
