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

package gacha

import (
	"context"
	"errors"
	"fmt"
	"time"

	apperrors "pet-gacha-go/internal/errors"
	"pet-gacha-go/internal/events"
	"pet-gacha-go/internal/models"
	"pet-gacha-go/internal/store"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Engine sells pets for Gold, burns equal-rank pairs into timed breed
// records and mints the next-rank pet once a record matures.
type Engine struct {
	store     store.Store
	emitter   events.Emitter
	picker    RankPicker
	clock     Clock
	address   models.Address
	gold      models.Address
	pets      models.Address
	breedUnit time.Duration
	offers    map[int]models.GachaOffer
}

func New(st store.Store, emitter events.Emitter, cfg models.GachaConfig, offers []models.GachaOffer, picker RankPicker, clock Clock) (*Engine, error) {
	if st == nil {
		return nil, fmt.Errorf("store is required")
	}
	if picker == nil {
		return nil, fmt.Errorf("rank picker is required")
	}
	if cfg.Address.IsZero() || cfg.GoldToken.IsZero() || cfg.Collection.IsZero() {
		return nil, fmt.Errorf("gacha address, gold token and pet collection must be set")
	}
	if cfg.BreedUnit <= 0 {
		return nil, fmt.Errorf("breed unit must be positive, got %v", cfg.BreedUnit)
	}
	if err := ValidateOffers(offers); err != nil {
		return nil, err
	}
	if emitter == nil {
		emitter = events.NoopEmitter{}
	}
	if clock == nil {
		clock = SystemClock{}
	}

	byId := make(map[int]models.GachaOffer, len(offers))
	for _, offer := range offers {
		byId[offer.Id] = offer
	}

	zap.L().Info("Gacha engine initialized",
		zap.String("address", cfg.Address.String()),
		zap.String("gold_token", cfg.GoldToken.String()),
		zap.String("collection", cfg.Collection.String()),
		zap.Int("offers", len(byId)),
		zap.Duration("breed_unit", cfg.BreedUnit))

	return &Engine{
		store:     st,
		emitter:   emitter,
		picker:    picker,
		clock:     clock,
		address:   cfg.Address,
		gold:      cfg.GoldToken,
		pets:      cfg.Collection,
		breedUnit: cfg.BreedUnit,
		offers:    byId,
	}, nil
}

// Address is the engine's custodial account on the ledger and its operator
// identity on the registry
func (e *Engine) Address() models.Address {
	return e.address
}

// Collection is the registry the engine mints into
func (e *Engine) Collection() models.Address {
	return e.pets
}

// Offers returns the catalog ordered by id
func (e *Engine) Offers() []models.GachaOffer {
	return sortedOffers(e.offers)
}

// BreedDuration is the maturation time of a breeding between two pets of rank
func (e *Engine) BreedDuration(rank int) time.Duration {
	return time.Duration(rank) * e.breedUnit
}

// OpenGacha charges the offer price through the caller's allowance and mints
// a pet with a drawn rank to the caller.
func (e *Engine) OpenGacha(ctx context.Context, caller models.Address, offerId int, paid decimal.Decimal) (int64, error) {
	const op = "gacha.OpenGacha"

	if caller.IsZero() {
		return 0, apperrors.New(op, apperrors.CodeZeroAddress, "caller is the zero address")
	}
	offer, ok := e.offers[offerId]
	if !ok {
		return 0, apperrors.New(op, apperrors.CodeInvalidOffer, "offer %d does not exist", offerId)
	}
	if !paid.Equal(offer.Price) {
		return 0, apperrors.New(op, apperrors.CodePriceMismatch, "offer %d costs %s, paid %s", offerId, offer.Price.String(), paid.String())
	}

	var pet models.Pet
	err := e.store.RunInTx(ctx, func(tx store.Tx) error {
		id, err := tx.Registry(e.pets).Mint(ctx, caller)
		if err != nil {
			return err
		}

		reference := fmt.Sprintf("gacha:open:%d", id)
		if err := tx.Ledger().TransferFrom(ctx, e.gold, e.address, caller, e.address, offer.Price, reference); err != nil {
			return err
		}

		rank, err := e.picker.Pick(offer)
		if err != nil {
			return fmt.Errorf("unable to draw rank: %w", err)
		}

		pet = models.Pet{Id: id, Rank: rank, OfferId: offerId, CreatedAt: e.clock.Now()}
		return tx.Pets().InsertPet(ctx, pet)
	})
	if err != nil {
		zap.L().Warn("Gacha open failed",
			zap.String("caller", caller.String()),
			zap.Int("offer_id", offerId),
			zap.Error(err))
		return 0, apperrors.FromStore(op, err)
	}

	zap.L().Info("Gacha opened",
		zap.String("caller", caller.String()),
		zap.Int("offer_id", offerId),
		zap.Int64("pet_id", pet.Id),
		zap.Int("rank", pet.Rank),
		zap.String("price", offer.Price.String()))

	e.emitter.Emit(events.PetMinted{PetId: pet.Id, Owner: caller, Rank: pet.Rank, OfferId: offerId, Price: offer.Price})
	return pet.Id, nil
}

// BreedPets burns two equal-rank pets owned by caller and starts a breed
// record keyed by the matron id. The engine must be an approved operator.
func (e *Engine) BreedPets(ctx context.Context, caller models.Address, matron, sire int64) (int64, error) {
	const op = "gacha.BreedPets"

	if matron == sire {
		return 0, apperrors.New(op, apperrors.CodeSamePet, "pet %d cannot breed with itself", matron)
	}

	var record models.BreedRecord
	err := e.store.RunInTx(ctx, func(tx store.Tx) error {
		registry := tx.Registry(e.pets)

		for _, id := range []int64{matron, sire} {
			owner, err := registry.OwnerOf(ctx, id)
			if errors.Is(err, store.ErrInvalidTokenId) || (err == nil && owner != caller) {
				return apperrors.New(op, apperrors.CodeNotOwner, "caller does not own pet %d", id)
			}
			if err != nil {
				return err
			}
		}

		approved, err := registry.IsApprovedForAll(ctx, caller, e.address)
		if err != nil {
			return err
		}
		if !approved {
			return apperrors.New(op, apperrors.CodeNotAuthorized, "engine is not an approved operator for %s", caller)
		}

		matronPet, err := tx.Pets().GetPet(ctx, matron)
		if err != nil {
			return err
		}
		sirePet, err := tx.Pets().GetPet(ctx, sire)
		if err != nil {
			return err
		}
		if matronPet == nil || sirePet == nil {
			return apperrors.New(op, apperrors.CodePetNotFound, "missing rank metadata for pets %d and %d", matron, sire)
		}
		if matronPet.Rank != sirePet.Rank {
			return apperrors.New(op, apperrors.CodeRankMismatch, "pet %d is rank %d, pet %d is rank %d", matron, matronPet.Rank, sire, sirePet.Rank)
		}
		if matronPet.Rank >= MaxRank {
			return apperrors.New(op, apperrors.CodeMaxRankReached, "rank %d cannot breed", matronPet.Rank)
		}

		for _, id := range []int64{matron, sire} {
			if err := registry.Burn(ctx, id); err != nil {
				return err
			}
			if err := tx.Pets().DeletePet(ctx, id); err != nil {
				return err
			}
		}

		record = models.BreedRecord{
			Matron:        matron,
			Sire:          sire,
			Owner:         caller,
			StartTime:     e.clock.Now(),
			BreedDuration: e.BreedDuration(matronPet.Rank),
			NewRank:       matronPet.Rank + 1,
		}
		return tx.Breeds().InsertBreedRecord(ctx, record)
	})
	if err != nil {
		zap.L().Warn("Breeding failed",
			zap.String("caller", caller.String()),
			zap.Int64("matron", matron),
			zap.Int64("sire", sire),
			zap.Error(err))
		return 0, apperrors.FromStore(op, err)
	}

	zap.L().Info("Breeding started",
		zap.String("caller", caller.String()),
		zap.Int64("matron", matron),
		zap.Int64("sire", sire),
		zap.Int("new_rank", record.NewRank),
		zap.Time("ready_at", record.ReadyAt()))

	e.emitter.Emit(events.BreedStarted{
		BreedId: record.Matron,
		Owner:   caller,
		Matron:  matron,
		Sire:    sire,
		NewRank: record.NewRank,
		ReadyAt: record.ReadyAt(),
	})
	return record.Matron, nil
}

// ClaimPet mints the bred pet to the record owner once the breed duration
// has elapsed and clears the record.
func (e *Engine) ClaimPet(ctx context.Context, caller models.Address, breedId int64) (int64, error) {
	const op = "gacha.ClaimPet"

	var pet models.Pet
	err := e.store.RunInTx(ctx, func(tx store.Tx) error {
		record, err := tx.Breeds().GetBreedRecord(ctx, breedId)
		if err != nil {
			return err
		}
		if !record.Active() || record.Owner != caller {
			return apperrors.New(op, apperrors.CodeNotBreedOwner, "caller does not own breed record %d", breedId)
		}

		now := e.clock.Now()
		if now.Before(record.ReadyAt()) {
			return apperrors.New(op, apperrors.CodeNotReady, "breed record %d is ready at %s", breedId, record.ReadyAt().Format(time.RFC3339))
		}

		id, err := tx.Registry(e.pets).Mint(ctx, caller)
		if err != nil {
			return err
		}
		pet = models.Pet{Id: id, Rank: record.NewRank, CreatedAt: now}
		if err := tx.Pets().InsertPet(ctx, pet); err != nil {
			return err
		}
		return tx.Breeds().ClearBreedRecord(ctx, breedId)
	})
	if err != nil {
		zap.L().Warn("Claim failed",
			zap.String("caller", caller.String()),
			zap.Int64("breed_id", breedId),
			zap.Error(err))
		return 0, apperrors.FromStore(op, err)
	}

	zap.L().Info("Pet claimed",
		zap.String("caller", caller.String()),
		zap.Int64("breed_id", breedId),
		zap.Int64("pet_id", pet.Id),
		zap.Int("rank", pet.Rank))

	e.emitter.Emit(events.PetClaimed{BreedId: breedId, PetId: pet.Id, Owner: caller, Rank: pet.Rank})
	return pet.Id, nil
}

// Pet returns the rank metadata of a live pet
func (e *Engine) Pet(ctx context.Context, id int64) (models.Pet, error) {
	const op = "gacha.Pet"

	var pet *models.Pet
	err := e.store.RunInTx(ctx, func(tx store.Tx) error {
		var err error
		pet, err = tx.Pets().GetPet(ctx, id)
		return err
	})
	if err != nil {
		return models.Pet{}, apperrors.FromStore(op, err)
	}
	if pet == nil {
		return models.Pet{}, apperrors.New(op, apperrors.CodePetNotFound, "pet %d does not exist", id)
	}
	return *pet, nil
}

// BreedRecord returns the record keyed by breedId; the zero record when none is active
func (e *Engine) BreedRecord(ctx context.Context, breedId int64) (models.BreedRecord, error) {
	const op = "gacha.BreedRecord"

	var record models.BreedRecord
	err := e.store.RunInTx(ctx, func(tx store.Tx) error {
		var err error
		record, err = tx.Breeds().GetBreedRecord(ctx, breedId)
		return err
	})
	if err != nil {
		return models.BreedRecord{}, apperrors.FromStore(op, err)
	}
	return record, nil
}
