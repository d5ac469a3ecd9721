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

import "github.com/shopspring/decimal"

// RankWeight is one outcome of a gacha draw
type RankWeight struct {
	Rank   int `yaml:"rank"`
	Weight int `yaml:"weight"`
}

// GachaOffer is a fixed-price purchase option that mints one pet
type GachaOffer struct {
	Id    int             `yaml:"id"`
	Price decimal.Decimal `yaml:"-"`
	Ranks []RankWeight    `yaml:"ranks"`
}

// FixedRank returns the rank when the offer always yields the same one
func (o GachaOffer) FixedRank() (int, bool) {
	if len(o.Ranks) == 1 {
		return o.Ranks[0].Rank, true
	}
	return 0, false
}
