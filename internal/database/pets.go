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

	"pet-gacha-go/internal/models"

	"go.uber.org/zap"
)

// petTable implements store.PetStore
type petTable struct {
	q queryer
}

func (p *petTable) InsertPet(ctx context.Context, pet models.Pet) error {
	if _, err := p.q.ExecContext(ctx, queryInsertPet, pet.Id, pet.Rank, pet.OfferId, pet.CreatedAt); err != nil {
		return fmt.Errorf("unable to insert pet: %w", err)
	}
	return nil
}

// GetPet returns nil when the pet does not exist or was consumed
func (p *petTable) GetPet(ctx context.Context, id int64) (*models.Pet, error) {
	var pet models.Pet
	err := p.q.QueryRowContext(ctx, queryGetPet, id).Scan(&pet.Id, &pet.Rank, &pet.OfferId, &pet.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("unable to query pet: %w", err)
	}
	return &pet, nil
}

func (p *petTable) DeletePet(ctx context.Context, id int64) error {
	if _, err := p.q.ExecContext(ctx, queryDeletePet, id); err != nil {
		return fmt.Errorf("unable to delete pet: %w", err)
	}
	return nil
}

// GetPet returns the pet metadata, or nil when the id is unknown or burned
func (s *Service) GetPet(ctx context.Context, id int64) (*models.Pet, error) {
	zap.L().Debug("Querying pet", zap.Int64("pet_id", id))
	return (&petTable{q: s.db}).GetPet(ctx, id)
}

// GetPetsOf returns every live pet of a collection owned by owner
func (s *Service) GetPetsOf(ctx context.Context, collection, owner models.Address) ([]models.PetHolding, error) {
	zap.L().Debug("Querying pets by owner", zap.String("owner", owner.String()))

	rows, err := s.db.QueryContext(ctx, queryGetPetsOf, collection, owner)
	if err != nil {
		zap.L().Error("Failed to query pets", zap.Error(err))
		return nil, fmt.Errorf("unable to query pets: %w", err)
	}
	defer func(rows *sql.Rows) {
		if err := rows.Close(); err != nil {
			zap.L().Warn("Failed to close rows", zap.Error(err))
		}
	}(rows)

	var pets []models.PetHolding
	for rows.Next() {
		var pet models.PetHolding
		if err := rows.Scan(&pet.Id, &pet.Rank, &pet.OfferId, &pet.CreatedAt, &pet.Owner); err != nil {
			return nil, fmt.Errorf("unable to scan pet row: %w", err)
		}
		pets = append(pets, pet)
	}

	// Check for errors during iteration
	if err := rows.Err(); err != nil {
		zap.L().Error("Error during pet row iteration", zap.Error(err))
		return nil, fmt.Errorf("error iterating pet rows: %w", err)
	}

	return pets, nil
}

// GetPetOwner returns the current owner of a pet in collection
func (s *Service) GetPetOwner(ctx context.Context, collection models.Address, id int64) (models.Address, error) {
	return (&registry{q: s.db, now: s.now, collection: collection}).OwnerOf(ctx, id)
}

// IsApprovedForAll reports the operator approval of owner in collection
func (s *Service) IsApprovedForAll(ctx context.Context, collection, owner, operator models.Address) (bool, error) {
	return (&registry{q: s.db, now: s.now, collection: collection}).IsApprovedForAll(ctx, owner, operator)
}
