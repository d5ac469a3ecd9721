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

// GetPet returns a pet with its current owner, or nil when the id was never
// minted or has been burned
func (s *LedgerService) GetPet(ctx context.Context, collection models.Address, id int64) (*models.PetHolding, error) {
	pet, err := s.db.GetPet(ctx, id)
	if err != nil {
		zap.L().Error("Failed to get pet", zap.Int64("pet_id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to retrieve pet")
	}
	if pet == nil {
		return nil, nil
	}

	owner, err := s.db.GetPetOwner(ctx, collection, id)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve pet owner: %w", err)
	}

	return &models.PetHolding{Pet: *pet, Owner: owner}, nil
}

// GetPetsOf lists the pets a holder currently owns, escrowed pets excluded
func (s *LedgerService) GetPetsOf(ctx context.Context, collection, owner models.Address) ([]models.PetHolding, error) {
	if owner.IsZero() {
		return nil, fmt.Errorf("owner is required")
	}

	pets, err := s.db.GetPetsOf(ctx, collection, owner)
	if err != nil {
		zap.L().Error("Failed to get pets", zap.String("owner", owner.String()), zap.Error(err))
		return nil, fmt.Errorf("failed to retrieve pets")
	}
	return pets, nil
}

// GetBreedRecords returns the active breed records ordered by readiness
func (s *LedgerService) GetBreedRecords(ctx context.Context) ([]models.BreedRecord, error) {
	records, err := s.db.GetBreedRecords(ctx)
	if err != nil {
		zap.L().Error("Failed to get breed records", zap.Error(err))
		return nil, fmt.Errorf("failed to retrieve breed records")
	}
	return records, nil
}
