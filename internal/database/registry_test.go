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
	"errors"
	"testing"

	"pet-gacha-go/internal/store"
)

func TestRegistry_MintBurnNeverReusesIds(t *testing.T) {
	service, cleanup := setupTestDb(t)
	defer cleanup()

	ctx := context.Background()
	var first, second, third int64
	mustRun(t, service, func(tx store.Tx) error {
		reg := tx.Registry(testCollection)
		var err error
		if first, err = reg.Mint(ctx, "alice"); err != nil {
			return err
		}
		if second, err = reg.Mint(ctx, "alice"); err != nil {
			return err
		}
		return reg.Burn(ctx, second)
	})
	mustRun(t, service, func(tx store.Tx) error {
		var err error
		third, err = tx.Registry(testCollection).Mint(ctx, "bob")
		return err
	})

	if first != 1 || second != 2 || third != 3 {
		t.Errorf("Expected ids 1, 2, 3, got %d, %d, %d", first, second, third)
	}

	if _, err := service.GetPetOwner(ctx, testCollection, second); !errors.Is(err, store.ErrInvalidTokenId) {
		t.Errorf("Expected burned token to be invalid, got %v", err)
	}
	owner, err := service.GetPetOwner(ctx, testCollection, third)
	if err != nil {
		t.Fatalf("GetPetOwner failed: %v", err)
	}
	if owner != "bob" {
		t.Errorf("Expected owner bob, got %s", owner)
	}

	err = service.RunInTx(ctx, func(tx store.Tx) error {
		return tx.Registry(testCollection).Burn(ctx, second)
	})
	if !errors.Is(err, store.ErrInvalidTokenId) {
		t.Errorf("Expected double burn to fail with invalid token id, got %v", err)
	}
}

func TestRegistry_TransferFromRequiresOwnerOrOperator(t *testing.T) {
	service, cleanup := setupTestDb(t)
	defer cleanup()

	ctx := context.Background()
	var id int64
	mustRun(t, service, func(tx store.Tx) error {
		var err error
		id, err = tx.Registry(testCollection).Mint(ctx, "alice")
		return err
	})

	err := service.RunInTx(ctx, func(tx store.Tx) error {
		return tx.Registry(testCollection).TransferFrom(ctx, "market", "alice", "market", id)
	})
	if !errors.Is(err, store.ErrNotAuthorized) {
		t.Fatalf("Expected not authorized, got %v", err)
	}

	err = service.RunInTx(ctx, func(tx store.Tx) error {
		return tx.Registry(testCollection).TransferFrom(ctx, "bob", "bob", "carol", id)
	})
	if !errors.Is(err, store.ErrNotTokenOwner) {
		t.Fatalf("Expected not token owner, got %v", err)
	}

	mustRun(t, service, func(tx store.Tx) error {
		reg := tx.Registry(testCollection)
		if err := reg.SetApprovalForAll(ctx, "alice", "market", true); err != nil {
			return err
		}
		return reg.TransferFrom(ctx, "market", "alice", "market", id)
	})

	owner, err := service.GetPetOwner(ctx, testCollection, id)
	if err != nil {
		t.Fatalf("GetPetOwner failed: %v", err)
	}
	if owner != "market" {
		t.Errorf("Expected owner market, got %s", owner)
	}

	approved, err := service.IsApprovedForAll(ctx, testCollection, "alice", "market")
	if err != nil {
		t.Fatalf("IsApprovedForAll failed: %v", err)
	}
	if !approved {
		t.Errorf("Expected market to be approved for alice")
	}
}

func TestRegistry_CollectionsAreIsolated(t *testing.T) {
	service, cleanup := setupTestDb(t)
	defer cleanup()

	ctx := context.Background()
	var id int64
	mustRun(t, service, func(tx store.Tx) error {
		var err error
		id, err = tx.Registry(testCollection).Mint(ctx, "alice")
		return err
	})

	if _, err := service.GetPetOwner(ctx, "other", id); !errors.Is(err, store.ErrInvalidTokenId) {
		t.Errorf("Expected token to be unknown in another collection, got %v", err)
	}

	mustRun(t, service, func(tx store.Tx) error {
		reg := tx.Registry(testCollection)
		count, err := reg.BalanceOf(ctx, "alice")
		if err != nil {
			return err
		}
		if count != 1 {
			t.Errorf("Expected alice to hold 1 token, got %d", count)
		}
		ids, err := reg.TokensOf(ctx, "alice")
		if err != nil {
			return err
		}
		if len(ids) != 1 || ids[0] != id {
			t.Errorf("Expected alice tokens [%d], got %v", id, ids)
		}
		return nil
	})
}
