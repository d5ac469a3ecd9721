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

package store

import (
	"context"
	"errors"

	"pet-gacha-go/internal/models"

	"github.com/shopspring/decimal"
)

// Sentinel errors shared across all backend implementations.
var (
	ErrInsufficientBalance    = errors.New("insufficient balance")
	ErrInsufficientAllowance  = errors.New("insufficient allowance")
	ErrInvalidAmount          = errors.New("amount must be a positive whole number")
	ErrInvalidTokenId         = errors.New("invalid token id")
	ErrNotAuthorized          = errors.New("caller is not owner nor approved operator")
	ErrNotTokenOwner          = errors.New("transfer from incorrect owner")
	ErrConcurrentModification = errors.New("concurrent modification detected")
)

// Ledger is the fungible balance store ("Gold"). Every token is an
// independent balance sheet keyed by holder.
type Ledger interface {
	BalanceOf(ctx context.Context, token, holder models.Address) (decimal.Decimal, error)
	Mint(ctx context.Context, token, to models.Address, amount decimal.Decimal, reference string) error
	Transfer(ctx context.Context, token, from, to models.Address, amount decimal.Decimal, reference string) error
	Approve(ctx context.Context, token, owner, spender models.Address, amount decimal.Decimal) error
	Allowance(ctx context.Context, token, owner, spender models.Address) (decimal.Decimal, error)
	// TransferFrom moves amount from -> to on behalf of spender and consumes
	// the allowance owner=from granted to spender.
	TransferFrom(ctx context.Context, token, spender, from, to models.Address, amount decimal.Decimal, reference string) error
	// HasMovement reports whether a committed movement of token carries reference.
	HasMovement(ctx context.Context, token models.Address, reference string) (bool, error)
}

// Registry is the unique-asset ownership store ("Pet") of one collection.
type Registry interface {
	Collection() models.Address
	OwnerOf(ctx context.Context, id int64) (models.Address, error)
	BalanceOf(ctx context.Context, owner models.Address) (int64, error)
	TokensOf(ctx context.Context, owner models.Address) ([]int64, error)
	SetApprovalForAll(ctx context.Context, owner, operator models.Address, approved bool) error
	IsApprovedForAll(ctx context.Context, owner, operator models.Address) (bool, error)
	// TransferFrom requires caller to be the owner or an approved operator of from.
	TransferFrom(ctx context.Context, caller, from, to models.Address, id int64) error
	// Mint assigns the next sequential id to owner. Ids are never reused.
	Mint(ctx context.Context, owner models.Address) (int64, error)
	// Burn revokes ownership permanently.
	Burn(ctx context.Context, id int64) error
}

// PetStore holds the rank metadata owned by the gacha engine.
type PetStore interface {
	InsertPet(ctx context.Context, pet models.Pet) error
	GetPet(ctx context.Context, id int64) (*models.Pet, error)
	DeletePet(ctx context.Context, id int64) error
}

// BreedStore holds in-flight breeding records keyed by matron id.
type BreedStore interface {
	InsertBreedRecord(ctx context.Context, record models.BreedRecord) error
	// GetBreedRecord returns the zero record when none is active.
	GetBreedRecord(ctx context.Context, matron int64) (models.BreedRecord, error)
	ClearBreedRecord(ctx context.Context, matron int64) error
}

// MarketStore holds the marketplace payment tokens and orders.
type MarketStore interface {
	AddPaymentToken(ctx context.Context, token models.Address) (bool, error)
	IsPaymentTokenSupported(ctx context.Context, token models.Address) (bool, error)
	InsertOrder(ctx context.Context, order models.Order) (int64, error)
	// GetOpenOrder returns nil when the order is unknown or no longer open.
	GetOpenOrder(ctx context.Context, id int64) (*models.Order, error)
	ListOpenOrders(ctx context.Context, limit, offset int) ([]models.Order, error)
	CloseOrder(ctx context.Context, id int64, status models.OrderStatus, buyer models.Address) error
}

// Tx is one atomic unit of work. Nothing written through a Tx is visible
// to others until the surrounding RunInTx returns nil.
type Tx interface {
	Ledger() Ledger
	Registry(collection models.Address) Registry
	Pets() PetStore
	Breeds() BreedStore
	Market() MarketStore
}

// Store runs engine operations atomically.
type Store interface {
	// RunInTx commits when fn returns nil and rolls back otherwise.
	RunInTx(ctx context.Context, fn func(tx Tx) error) error
}
