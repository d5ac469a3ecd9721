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

package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Address identifies a holder, a contract account or a token
type Address string

// ZeroAddress is the canonical null identifier
const ZeroAddress Address = "0x0000000000000000000000000000000000000000"

// IsZero reports whether the address is empty or the null identifier
func (a Address) IsZero() bool {
	return a == "" || a == ZeroAddress
}

func (a Address) String() string {
	return string(a)
}

// AccountBalance represents current balance state (hot data)
type AccountBalance struct {
	Id                string          `db:"id"`
	Holder            Address         `db:"holder"`
	Token             Address         `db:"token"`
	Balance           decimal.Decimal `db:"balance"`
	LastTransactionId string          `db:"last_transaction_id"`
	Version           int64           `db:"version"`
	UpdatedAt         time.Time       `db:"updated_at"`
}

// Transaction represents one immutable ledger movement between two holders.
// Mint movements have an empty From.
type Transaction struct {
	Id              string          `db:"id"`
	Token           Address         `db:"token"`
	From            Address         `db:"from_holder"`
	To              Address         `db:"to_holder"`
	Spender         Address         `db:"spender"`
	TransactionType string          `db:"transaction_type"`
	Amount          decimal.Decimal `db:"amount"`
	Reference       string          `db:"reference"`
	Exported        bool            `db:"exported"`
	CreatedAt       time.Time       `db:"created_at"`
}

// Transaction types recorded by the ledger
const (
	TransactionTypeMint         = "mint"
	TransactionTypeTransfer     = "transfer"
	TransactionTypeTransferFrom = "transfer_from"
)

// Pet is the rank metadata of a minted asset. Ownership lives in the registry.
type Pet struct {
	Id        int64     `db:"token_id"`
	Rank      int       `db:"rank"`
	OfferId   int       `db:"offer_id"` // 0 when produced by breeding
	CreatedAt time.Time `db:"created_at"`
}

// BreedRecord is an in-flight breeding keyed by the matron id.
// The zero value means no active record.
type BreedRecord struct {
	Matron        int64         `db:"matron_id"`
	Sire          int64         `db:"sire_id"`
	Owner         Address       `db:"owner"`
	StartTime     time.Time     `db:"start_time"`
	BreedDuration time.Duration `db:"breed_duration"`
	NewRank       int           `db:"new_rank"`
}

// Active reports whether the record holds an in-flight breeding
func (r BreedRecord) Active() bool {
	return r.Matron != 0
}

// ReadyAt returns the earliest instant the record can be claimed
func (r BreedRecord) ReadyAt() time.Time {
	return r.StartTime.Add(r.BreedDuration)
}

// OrderStatus tracks the lifecycle of a marketplace order
type OrderStatus string

const (
	OrderStatusOpen      OrderStatus = "open"
	OrderStatusSettled   OrderStatus = "settled"
	OrderStatusCancelled OrderStatus = "cancelled"
)

// Order is an escrowed listing
type Order struct {
	Id           int64           `db:"id"`
	Seller       Address         `db:"seller"`
	Collection   Address         `db:"collection"`
	PetId        int64           `db:"token_id"`
	PaymentToken Address         `db:"payment_token"`
	Price        decimal.Decimal `db:"price"`
	Status       OrderStatus     `db:"status"`
	Buyer        Address         `db:"buyer"`
	CreatedAt    time.Time       `db:"created_at"`
	ClosedAt     *time.Time      `db:"closed_at"`
}
