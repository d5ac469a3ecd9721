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
	"fmt"
	"sort"

	"pet-gacha-go/internal/models"

	"github.com/shopspring/decimal"
)

// MaxRank is the top of the rank ladder; pets at MaxRank cannot breed
const MaxRank = 3

// DefaultOffers returns the built-in catalog: three weighted offers at
// increasing prices and three fixed-rank offers.
func DefaultOffers() []models.GachaOffer {
	return []models.GachaOffer{
		{Id: 1, Price: decimal.NewFromInt(100), Ranks: []models.RankWeight{{Rank: 1, Weight: 70}, {Rank: 2, Weight: 25}, {Rank: 3, Weight: 5}}},
		{Id: 2, Price: decimal.NewFromInt(200), Ranks: []models.RankWeight{{Rank: 1, Weight: 40}, {Rank: 2, Weight: 45}, {Rank: 3, Weight: 15}}},
		{Id: 3, Price: decimal.NewFromInt(300), Ranks: []models.RankWeight{{Rank: 1, Weight: 10}, {Rank: 2, Weight: 50}, {Rank: 3, Weight: 40}}},
		{Id: 4, Price: decimal.NewFromInt(100), Ranks: []models.RankWeight{{Rank: 1, Weight: 1}}},
		{Id: 5, Price: decimal.NewFromInt(100), Ranks: []models.RankWeight{{Rank: 2, Weight: 1}}},
		{Id: 6, Price: decimal.NewFromInt(100), Ranks: []models.RankWeight{{Rank: 3, Weight: 1}}},
	}
}

// ValidateOffers checks ids are unique and positive, prices are positive
// whole amounts and every rank sits on the ladder with a positive weight.
func ValidateOffers(offers []models.GachaOffer) error {
	if len(offers) == 0 {
		return fmt.Errorf("at least one gacha offer is required")
	}

	seen := make(map[int]bool, len(offers))
	for _, offer := range offers {
		if offer.Id <= 0 {
			return fmt.Errorf("offer id must be positive, got %d", offer.Id)
		}
		if seen[offer.Id] {
			return fmt.Errorf("duplicate offer id %d", offer.Id)
		}
		seen[offer.Id] = true

		if !offer.Price.IsPositive() || !offer.Price.IsInteger() {
			return fmt.Errorf("offer %d price must be a positive whole amount, got %s", offer.Id, offer.Price.String())
		}
		if len(offer.Ranks) == 0 {
			return fmt.Errorf("offer %d has no ranks", offer.Id)
		}
		for _, rw := range offer.Ranks {
			if rw.Rank < 1 || rw.Rank > MaxRank {
				return fmt.Errorf("offer %d rank %d outside 1..%d", offer.Id, rw.Rank, MaxRank)
			}
			if rw.Weight <= 0 {
				return fmt.Errorf("offer %d rank %d weight must be positive", offer.Id, rw.Rank)
			}
		}
	}
	return nil
}

func sortedOffers(offers map[int]models.GachaOffer) []models.GachaOffer {
	out := make([]models.GachaOffer, 0, len(offers))
	for _, offer := range offers {
		out = append(out, offer)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Id < out[j].Id })
	return out
}
