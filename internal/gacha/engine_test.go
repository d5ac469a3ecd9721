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
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"pet-gacha-go/internal/database"
	apperrors "pet-gacha-go/internal/errors"
	"pet-gacha-go/internal/events"
	"pet-gacha-go/internal/models"
	"pet-gacha-go/internal/store"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	gold   models.Address = "gold"
	pets   models.Address = "pets"
	engine models.Address = "gacha"
	alice  models.Address = "alice"
	bob    models.Address = "bob"
)

var oneDay = 24 * time.Hour

type manualClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type harness struct {
	ctx     context.Context
	db      *database.Service
	engine  *Engine
	clock   *manualClock
	emitted *events.Recorder
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	return newHarnessWithConns(t, 1)
}

func newHarnessWithConns(t *testing.T, conns int) *harness {
	t.Helper()

	ctx := context.Background()
	db, err := database.NewService(ctx, models.DatabaseConfig{
		Path:         filepath.Join(t.TempDir(), "gacha.db"),
		MaxOpenConns: conns,
		MaxIdleConns: conns,
		PingTimeout:  time.Second,
		BusyTimeout:  30 * time.Second,
	})
	require.NoError(t, err)
	t.Cleanup(db.Close)

	picker, err := NewWeightedPicker(42)
	require.NoError(t, err)

	clock := &manualClock{now: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)}
	recorder := &events.Recorder{}
	eng, err := New(db, recorder, models.GachaConfig{
		Address:    engine,
		GoldToken:  gold,
		Collection: pets,
		BreedUnit:  oneDay,
	}, DefaultOffers(), picker, clock)
	require.NoError(t, err)

	return &harness{ctx: ctx, db: db, engine: eng, clock: clock, emitted: recorder}
}

// fund mints Gold to holder and approves the engine for the whole amount
func (h *harness) fund(t *testing.T, holder models.Address, amount int64) {
	t.Helper()
	err := h.db.RunInTx(h.ctx, func(tx store.Tx) error {
		if err := tx.Ledger().Mint(h.ctx, gold, holder, decimal.NewFromInt(amount), "genesis"); err != nil {
			return err
		}
		return tx.Ledger().Approve(h.ctx, gold, holder, engine, decimal.NewFromInt(amount))
	})
	require.NoError(t, err)
}

func (h *harness) approveOperator(t *testing.T, owner models.Address) {
	t.Helper()
	err := h.db.RunInTx(h.ctx, func(tx store.Tx) error {
		return tx.Registry(pets).SetApprovalForAll(h.ctx, owner, engine, true)
	})
	require.NoError(t, err)
}

func (h *harness) open(t *testing.T, caller models.Address, offerId int) int64 {
	t.Helper()
	offer := h.engine.offers[offerId]
	id, err := h.engine.OpenGacha(h.ctx, caller, offerId, offer.Price)
	require.NoError(t, err)
	return id
}

func (h *harness) balance(t *testing.T, holder models.Address) decimal.Decimal {
	t.Helper()
	balance, err := h.db.GetHolderBalance(h.ctx, holder, gold)
	require.NoError(t, err)
	return balance
}

func TestNew_RejectsBadConfig(t *testing.T) {
	picker, err := NewWeightedPicker(1)
	require.NoError(t, err)
	cfg := models.GachaConfig{Address: engine, GoldToken: gold, Collection: pets, BreedUnit: oneDay}

	_, err = New(nil, nil, cfg, DefaultOffers(), picker, nil)
	assert.Error(t, err)

	db := newHarness(t).db

	bad := cfg
	bad.BreedUnit = 0
	_, err = New(db, nil, bad, DefaultOffers(), picker, nil)
	assert.Error(t, err)

	bad = cfg
	bad.GoldToken = models.ZeroAddress
	_, err = New(db, nil, bad, DefaultOffers(), picker, nil)
	assert.Error(t, err)

	_, err = New(db, nil, cfg, nil, picker, nil)
	assert.Error(t, err)
}

func TestOpenGacha_InvalidOffer(t *testing.T) {
	h := newHarness(t)
	h.fund(t, alice, 1000)

	_, err := h.engine.OpenGacha(h.ctx, alice, 7, decimal.NewFromInt(100))
	assert.ErrorIs(t, err, apperrors.Sentinel(apperrors.CodeInvalidOffer))
	assert.Contains(t, err.Error(), "gacha.OpenGacha")
}

func TestOpenGacha_PriceMismatchForAnyPrice(t *testing.T) {
	h := newHarness(t)
	h.fund(t, alice, 10000)

	for _, offer := range h.engine.Offers() {
		for _, delta := range []int64{-100, -1, 1, 100} {
			paid := offer.Price.Add(decimal.NewFromInt(delta))
			_, err := h.engine.OpenGacha(h.ctx, alice, offer.Id, paid)
			assert.ErrorIs(t, err, apperrors.Sentinel(apperrors.CodePriceMismatch), "offer %d paid %s", offer.Id, paid)
		}
	}
	assert.True(t, h.balance(t, alice).Equal(decimal.NewFromInt(10000)))
	assert.Empty(t, h.emitted.Events())
}

func TestOpenGacha_ChargesAndMints(t *testing.T) {
	h := newHarness(t)
	h.fund(t, alice, 10000)

	ids := make(map[int64]bool)
	for i := 1; i <= 3; i++ {
		id := h.open(t, alice, 1)
		assert.Equal(t, int64(i), id)
		ids[id] = true

		owner, err := h.db.GetPetOwner(h.ctx, pets, id)
		require.NoError(t, err)
		assert.Equal(t, alice, owner)

		pet, err := h.engine.Pet(h.ctx, id)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, pet.Rank, 1)
		assert.LessOrEqual(t, pet.Rank, MaxRank)
		assert.Equal(t, 1, pet.OfferId)
	}

	assert.Len(t, ids, 3)
	assert.True(t, h.balance(t, alice).Equal(decimal.NewFromInt(9700)), "caller balance %s", h.balance(t, alice))
	assert.True(t, h.balance(t, engine).Equal(decimal.NewFromInt(300)), "engine balance %s", h.balance(t, engine))
	assert.Len(t, h.emitted.OfType(events.TypePetMinted), 3)
}

func TestOpenGacha_InsufficientAllowanceRollsBack(t *testing.T) {
	h := newHarness(t)
	err := h.db.RunInTx(h.ctx, func(tx store.Tx) error {
		return tx.Ledger().Mint(h.ctx, gold, alice, decimal.NewFromInt(1000), "genesis")
	})
	require.NoError(t, err)

	_, err = h.engine.OpenGacha(h.ctx, alice, 1, decimal.NewFromInt(100))
	assert.ErrorIs(t, err, apperrors.Sentinel(apperrors.CodeInsufficientAllowance))
	assert.ErrorIs(t, err, store.ErrInsufficientAllowance)

	_, err = h.db.GetPetOwner(h.ctx, pets, 1)
	assert.ErrorIs(t, err, store.ErrInvalidTokenId)
	assert.True(t, h.balance(t, alice).Equal(decimal.NewFromInt(1000)))

	h.fund(t, alice, 100)
	id := h.open(t, alice, 1)
	assert.Equal(t, int64(1), id, "a rolled back mint must not consume an id")
}

func TestOpenGacha_InsufficientBalance(t *testing.T) {
	h := newHarness(t)
	h.fund(t, alice, 50)

	_, err := h.engine.OpenGacha(h.ctx, alice, 1, decimal.NewFromInt(100))
	assert.ErrorIs(t, err, apperrors.Sentinel(apperrors.CodeInsufficientBalance))
}

func TestBreedPets_Validation(t *testing.T) {
	t.Run("not owner", func(t *testing.T) {
		h := newHarness(t)
		h.fund(t, alice, 1000)
		h.approveOperator(t, alice)
		h.approveOperator(t, bob)
		h.open(t, alice, 1)
		h.open(t, alice, 1)

		_, err := h.engine.BreedPets(h.ctx, bob, 1, 2)
		assert.ErrorIs(t, err, apperrors.Sentinel(apperrors.CodeNotOwner))
	})

	t.Run("unknown pet", func(t *testing.T) {
		h := newHarness(t)
		h.fund(t, alice, 1000)
		h.approveOperator(t, alice)
		h.open(t, alice, 4)

		_, err := h.engine.BreedPets(h.ctx, alice, 1, 99)
		assert.ErrorIs(t, err, apperrors.Sentinel(apperrors.CodeNotOwner))
	})

	t.Run("same pet", func(t *testing.T) {
		h := newHarness(t)
		_, err := h.engine.BreedPets(h.ctx, alice, 1, 1)
		assert.ErrorIs(t, err, apperrors.Sentinel(apperrors.CodeSamePet))
	})

	t.Run("rank mismatch", func(t *testing.T) {
		h := newHarness(t)
		h.fund(t, alice, 1000)
		h.approveOperator(t, alice)
		h.open(t, alice, 4)
		h.open(t, alice, 5)

		_, err := h.engine.BreedPets(h.ctx, alice, 1, 2)
		assert.ErrorIs(t, err, apperrors.Sentinel(apperrors.CodeRankMismatch))
	})

	t.Run("max rank", func(t *testing.T) {
		h := newHarness(t)
		h.fund(t, alice, 1000)
		h.approveOperator(t, alice)
		h.open(t, alice, 6)
		h.open(t, alice, 6)

		_, err := h.engine.BreedPets(h.ctx, alice, 1, 2)
		assert.ErrorIs(t, err, apperrors.Sentinel(apperrors.CodeMaxRankReached))
	})

	t.Run("engine not approved", func(t *testing.T) {
		h := newHarness(t)
		h.fund(t, alice, 1000)
		h.open(t, alice, 4)
		h.open(t, alice, 4)

		_, err := h.engine.BreedPets(h.ctx, alice, 1, 2)
		assert.ErrorIs(t, err, apperrors.Sentinel(apperrors.CodeNotAuthorized))

		for _, id := range []int64{1, 2} {
			owner, err := h.db.GetPetOwner(h.ctx, pets, id)
			require.NoError(t, err)
			assert.Equal(t, alice, owner)
		}
	})
}

func TestBreedPets_BurnsAndRecords(t *testing.T) {
	for _, tc := range []struct {
		offer    int
		rank     int
		duration time.Duration
	}{
		{offer: 4, rank: 1, duration: oneDay},
		{offer: 5, rank: 2, duration: 2 * oneDay},
	} {
		h := newHarness(t)
		h.fund(t, alice, 1000)
		h.approveOperator(t, alice)
		h.open(t, alice, tc.offer)
		h.open(t, alice, tc.offer)

		breedId, err := h.engine.BreedPets(h.ctx, alice, 1, 2)
		require.NoError(t, err)
		assert.Equal(t, int64(1), breedId)

		for _, id := range []int64{1, 2} {
			_, err := h.db.GetPetOwner(h.ctx, pets, id)
			assert.ErrorIs(t, err, store.ErrInvalidTokenId)
		}

		record, err := h.engine.BreedRecord(h.ctx, breedId)
		require.NoError(t, err)
		assert.Equal(t, models.BreedRecord{
			Matron:        1,
			Sire:          2,
			Owner:         alice,
			StartTime:     h.clock.Now(),
			BreedDuration: tc.duration,
			NewRank:       tc.rank + 1,
		}, record)

		started := h.emitted.OfType(events.TypeBreedStarted)
		require.Len(t, started, 1)
		assert.Equal(t, tc.rank+1, started[0].(events.BreedStarted).NewRank)
	}
}

func TestClaimPet(t *testing.T) {
	for _, tc := range []struct {
		offer int
		rank  int
	}{
		{offer: 4, rank: 1},
		{offer: 5, rank: 2},
	} {
		h := newHarness(t)
		h.fund(t, alice, 1000)
		h.approveOperator(t, alice)
		h.open(t, alice, tc.offer)
		h.open(t, alice, tc.offer)
		breedId, err := h.engine.BreedPets(h.ctx, alice, 1, 2)
		require.NoError(t, err)

		_, err = h.engine.ClaimPet(h.ctx, bob, breedId)
		assert.ErrorIs(t, err, apperrors.Sentinel(apperrors.CodeNotBreedOwner))

		duration := h.engine.BreedDuration(tc.rank)
		h.clock.Advance(duration - time.Second)
		_, err = h.engine.ClaimPet(h.ctx, alice, breedId)
		assert.ErrorIs(t, err, apperrors.Sentinel(apperrors.CodeNotReady))

		h.clock.Advance(time.Second)
		petId, err := h.engine.ClaimPet(h.ctx, alice, breedId)
		require.NoError(t, err)
		assert.Equal(t, int64(3), petId)

		pet, err := h.engine.Pet(h.ctx, petId)
		require.NoError(t, err)
		assert.Equal(t, tc.rank+1, pet.Rank)

		owner, err := h.db.GetPetOwner(h.ctx, pets, petId)
		require.NoError(t, err)
		assert.Equal(t, alice, owner)

		record, err := h.engine.BreedRecord(h.ctx, breedId)
		require.NoError(t, err)
		assert.Equal(t, models.BreedRecord{}, record)

		_, err = h.engine.ClaimPet(h.ctx, alice, breedId)
		assert.ErrorIs(t, err, apperrors.Sentinel(apperrors.CodeNotBreedOwner), "a record is claimable exactly once")
	}
}

func TestRankProgression(t *testing.T) {
	h := newHarness(t)
	h.fund(t, alice, 10000)
	h.approveOperator(t, alice)

	// rank 1 + rank 1 -> rank 2, twice, then rank 2 + rank 2 -> rank 3
	var rank2 []int64
	for i := 0; i < 2; i++ {
		a := h.open(t, alice, 4)
		b := h.open(t, alice, 4)
		breedId, err := h.engine.BreedPets(h.ctx, alice, a, b)
		require.NoError(t, err)
		h.clock.Advance(h.engine.BreedDuration(1))
		id, err := h.engine.ClaimPet(h.ctx, alice, breedId)
		require.NoError(t, err)
		rank2 = append(rank2, id)
	}

	breedId, err := h.engine.BreedPets(h.ctx, alice, rank2[0], rank2[1])
	require.NoError(t, err)
	h.clock.Advance(h.engine.BreedDuration(2))
	top, err := h.engine.ClaimPet(h.ctx, alice, breedId)
	require.NoError(t, err)

	pet, err := h.engine.Pet(h.ctx, top)
	require.NoError(t, err)
	assert.Equal(t, MaxRank, pet.Rank)
	assert.Equal(t, int64(7), top)

	holdings, err := h.db.GetPetsOf(h.ctx, pets, alice)
	require.NoError(t, err)
	require.Len(t, holdings, 1)
	assert.Equal(t, top, holdings[0].Id)

	_, err = h.engine.Pet(h.ctx, 1)
	assert.ErrorIs(t, err, apperrors.Sentinel(apperrors.CodePetNotFound))
}

func TestOpenGacha_ConcurrentCallsAreSerialized(t *testing.T) {
	h := newHarnessWithConns(t, 8)

	const (
		holders      = 4
		opensPerUser = 10
	)
	callers := make([]models.Address, holders)
	for i := range callers {
		callers[i] = models.Address(fmt.Sprintf("player-%d", i))
		h.fund(t, callers[i], 100*opensPerUser)
	}

	var (
		mu  sync.Mutex
		ids = make(map[int64]bool)
		wg  sync.WaitGroup
	)
	errs := make(chan error, holders*opensPerUser)
	for _, caller := range callers {
		for i := 0; i < opensPerUser; i++ {
			wg.Add(1)
			go func(caller models.Address) {
				defer wg.Done()
				id, err := h.engine.OpenGacha(h.ctx, caller, 4, decimal.NewFromInt(100))
				if err != nil {
					errs <- err
					return
				}
				mu.Lock()
				ids[id] = true
				mu.Unlock()
			}(caller)
		}
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Errorf("OpenGacha failed: %v", err)
	}
	assert.Len(t, ids, holders*opensPerUser, "every open mints a distinct pet id")
	assert.True(t, h.balance(t, engine).Equal(decimal.NewFromInt(100*holders*opensPerUser)))
	for _, caller := range callers {
		assert.True(t, h.balance(t, caller).IsZero(), "caller %s", caller)
	}
	assert.Len(t, h.emitted.OfType(events.TypePetMinted), holders*opensPerUser)
}
