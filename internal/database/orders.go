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

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// marketTable implements store.MarketStore
type marketTable struct {
	q   queryer
	now func() time.Time
}

// AddPaymentToken returns false when the token was already present
func (m *marketTable) AddPaymentToken(ctx context.Context, token models.Address) (bool, error) {
	result, err := m.q.ExecContext(ctx, queryInsertPaymentToken, token, m.now())
	if err != nil {
		return false, fmt.Errorf("unable to insert payment token: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("unable to get rows affected: %w", err)
	}
	return rowsAffected == 1, nil
}

func (m *marketTable) IsPaymentTokenSupported(ctx context.Context, token models.Address) (bool, error) {
	var one int
	err := m.q.QueryRowContext(ctx, queryGetPaymentToken, token).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("unable to query payment token: %w", err)
	}
	return true, nil
}

func (m *marketTable) InsertOrder(ctx context.Context, order models.Order) (int64, error) {
	result, err := m.q.ExecContext(ctx, queryInsertOrder,
		order.Seller, order.Collection, order.PetId, order.PaymentToken,
		order.Price.String(), models.OrderStatusOpen, m.now())
	if err != nil {
		return 0, fmt.Errorf("unable to insert order: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("unable to read order id: %w", err)
	}
	return id, nil
}

func (m *marketTable) GetOpenOrder(ctx context.Context, id int64) (*models.Order, error) {
	order, err := scanOrder(m.q.QueryRowContext(ctx, queryGetOpenOrder, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("unable to query order: %w", err)
	}
	return order, nil
}

func (m *marketTable) CloseOrder(ctx context.Context, id int64, status models.OrderStatus, buyer models.Address) error {
	result, err := m.q.ExecContext(ctx, queryCloseOrder, status, buyer, m.now(), id)
	if err != nil {
		return fmt.Errorf("unable to close order: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("unable to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("order %d is not open", id)
	}
	return nil
}

func scanOrder(row rowScanner) (*models.Order, error) {
	var order models.Order
	var priceStr string
	var closedAt sql.NullTime
	err := row.Scan(&order.Id, &order.Seller, &order.Collection, &order.PetId, &order.PaymentToken,
		&priceStr, &order.Status, &order.Buyer, &order.CreatedAt, &closedAt)
	if err != nil {
		return nil, err
	}
	order.Price, err = decimal.NewFromString(priceStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse price '%s': %w", priceStr, err)
	}
	if closedAt.Valid {
		order.ClosedAt = &closedAt.Time
	}
	return &order, nil
}

// GetOrder returns an order in any status, or nil when unknown
func (s *Service) GetOrder(ctx context.Context, id int64) (*models.Order, error) {
	order, err := scanOrder(s.db.QueryRowContext(ctx, queryGetOrder, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("unable to query order: %w", err)
	}
	return order, nil
}

// ListOpenOrders returns a page of open orders, oldest first
func (m *marketTable) ListOpenOrders(ctx context.Context, limit, offset int) ([]models.Order, error) {
	rows, err := m.q.QueryContext(ctx, queryGetOpenOrders, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("unable to query orders: %w", err)
	}
	defer func(rows *sql.Rows) {
		if err := rows.Close(); err != nil {
			zap.L().Warn("Failed to close rows", zap.Error(err))
		}
	}(rows)

	var orders []models.Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("unable to scan order row: %w", err)
		}
		orders = append(orders, *order)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating order rows: %w", err)
	}
	return orders, nil
}

// GetOpenOrders returns a page of open orders outside a transaction
func (s *Service) GetOpenOrders(ctx context.Context, limit, offset int) ([]models.Order, error) {
	zap.L().Debug("Querying open orders", zap.Int("limit", limit), zap.Int("offset", offset))
	return (&marketTable{q: s.db, now: s.now}).ListOpenOrders(ctx, limit, offset)
}

// IsPaymentTokenSupported reports payment token membership outside a transaction
func (s *Service) IsPaymentTokenSupported(ctx context.Context, token models.Address) (bool, error) {
	return (&marketTable{q: s.db, now: s.now}).IsPaymentTokenSupported(ctx, token)
}
