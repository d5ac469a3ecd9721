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

	"go.uber.org/zap"
)

// registry implements store.Registry for one collection over a transaction scope.
type registry struct {
	q          queryer
	now        func() time.Time
	collection models.Address
}

func (r *registry) Collection() models.Address {
	return r.collection
}

func (r *registry) OwnerOf(ctx context.Context, id int64) (models.Address, error) {
	var owner models.Address
	err := r.q.QueryRowContext(ctx, queryGetTokenOwner, id, r.collection).Scan(&owner)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("%w: %d", store.ErrInvalidTokenId, id)
	}
	if err != nil {
		return "", fmt.Errorf("failed to get token owner: %w", err)
	}
	return owner, nil
}

func (r *registry) BalanceOf(ctx context.Context, owner models.Address) (int64, error) {
	var count int64
	if err := r.q.QueryRowContext(ctx, queryCountTokensOf, r.collection, owner).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count tokens: %w", err)
	}
	return count, nil
}

func (r *registry) TokensOf(ctx context.Context, owner models.Address) ([]int64, error) {
	rows, err := r.q.QueryContext(ctx, queryGetTokensOf, r.collection, owner)
	if err != nil {
		return nil, fmt.Errorf("failed to list tokens: %w", err)
	}
	defer func(rows *sql.Rows) {
		if err := rows.Close(); err != nil {
			zap.L().Warn("Failed to close rows", zap.Error(err))
		}
	}(rows)

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan token id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating token rows: %w", err)
	}
	return ids, nil
}

func (r *registry) SetApprovalForAll(ctx context.Context, owner, operator models.Address, approved bool) error {
	if owner == operator {
		return fmt.Errorf("approve to caller")
	}
	if _, err := r.q.ExecContext(ctx, queryUpsertOperatorApproval, r.collection, owner, operator, approved, r.now()); err != nil {
		return fmt.Errorf("failed to store operator approval: %w", err)
	}

	zap.L().Info("Operator approval updated",
		zap.String("collection", r.collection.String()),
		zap.String("owner", owner.String()),
		zap.String("operator", operator.String()),
		zap.Bool("approved", approved))
	return nil
}

func (r *registry) IsApprovedForAll(ctx context.Context, owner, operator models.Address) (bool, error) {
	var approved bool
	err := r.q.QueryRowContext(ctx, queryGetOperatorApproval, r.collection, owner, operator).Scan(&approved)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to get operator approval: %w", err)
	}
	return approved, nil
}

func (r *registry) TransferFrom(ctx context.Context, caller, from, to models.Address, id int64) error {
	if to.IsZero() {
		return fmt.Errorf("transfer to the zero address")
	}

	owner, err := r.OwnerOf(ctx, id)
	if err != nil {
		return err
	}
	if owner != from {
		return fmt.Errorf("%w: token %d is owned by %s", store.ErrNotTokenOwner, id, owner)
	}
	if caller != owner {
		approved, err := r.IsApprovedForAll(ctx, owner, caller)
		if err != nil {
			return err
		}
		if !approved {
			return fmt.Errorf("%w: %s on token %d", store.ErrNotAuthorized, caller, id)
		}
	}

	if _, err := r.q.ExecContext(ctx, queryUpdateTokenOwner, to, id, r.collection); err != nil {
		return fmt.Errorf("failed to update token owner: %w", err)
	}

	zap.L().Debug("Token transferred",
		zap.String("collection", r.collection.String()),
		zap.Int64("token_id", id),
		zap.String("from", from.String()),
		zap.String("to", to.String()))
	return nil
}

func (r *registry) Mint(ctx context.Context, owner models.Address) (int64, error) {
	if owner.IsZero() {
		return 0, fmt.Errorf("mint to the zero address")
	}
	result, err := r.q.ExecContext(ctx, queryInsertToken, r.collection, owner, r.now())
	if err != nil {
		return 0, fmt.Errorf("failed to mint token: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read minted token id: %w", err)
	}
	return id, nil
}

func (r *registry) Burn(ctx context.Context, id int64) error {
	result, err := r.q.ExecContext(ctx, queryBurnToken, r.now(), id, r.collection)
	if err != nil {
		return fmt.Errorf("failed to burn token: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%w: %d", store.ErrInvalidTokenId, id)
	}
	return nil
}
