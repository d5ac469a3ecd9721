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

// HolderBalance represents a holder's balance for a specific token
type HolderBalance struct {
	Token   Address         `json:"token"`
	Balance decimal.Decimal `json:"balance"`
}

// TransactionRecord represents a ledger movement in a holder's history
type TransactionRecord struct {
	Id        string          `json:"id"`
	Type      string          `json:"type"`
	Token     Address         `json:"token"`
	Amount    decimal.Decimal `json:"amount"` // signed from the holder's point of view
	Reference string          `json:"reference,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// PetHolding represents a pet together with its current owner
type PetHolding struct {
	Pet
	Owner Address `json:"owner"`
}

// Settlement is the outcome of a settled order
type Settlement struct {
	OrderId  int64           `json:"order_id"`
	Buyer    Address         `json:"buyer"`
	Seller   Address         `json:"seller"`
	PetId    int64           `json:"pet_id"`
	Price    decimal.Decimal `json:"price"`
	Fee      decimal.Decimal `json:"fee"`
	Proceeds decimal.Decimal `json:"proceeds"`
}
