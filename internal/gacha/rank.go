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
	crand "crypto/rand"
	"encoding/binary"
	"fmt"
	"math/rand"
	"sync"

	"pet-gacha-go/internal/models"
)

// RankPicker draws the rank of a freshly minted pet for an offer
type RankPicker interface {
	Pick(offer models.GachaOffer) (int, error)
}

// WeightedPicker draws ranks proportionally to the offer weights from a
// seeded generator, so a given seed always yields the same sequence.
type WeightedPicker struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewWeightedPicker seeds the generator; a zero seed draws one from crypto/rand
func NewWeightedPicker(seed int64) (*WeightedPicker, error) {
	if seed == 0 {
		var err error
		if seed, err = newSeed(); err != nil {
			return nil, err
		}
	}
	return &WeightedPicker{rng: rand.New(rand.NewSource(seed))}, nil
}

func (p *WeightedPicker) Pick(offer models.GachaOffer) (int, error) {
	if rank, ok := offer.FixedRank(); ok {
		return rank, nil
	}

	total := 0
	for _, rw := range offer.Ranks {
		total += rw.Weight
	}
	if total <= 0 {
		return 0, fmt.Errorf("offer %d has no positive rank weight", offer.Id)
	}

	p.mu.Lock()
	roll := p.rng.Intn(total)
	p.mu.Unlock()

	for _, rw := range offer.Ranks {
		if roll < rw.Weight {
			return rw.Rank, nil
		}
		roll -= rw.Weight
	}
	return offer.Ranks[len(offer.Ranks)-1].Rank, nil
}

func newSeed() (int64, error) {
	var b [8]byte
	if _, err := crand.Read(b[:]); err != nil {
		return 0, fmt.Errorf("read random seed: %w", err)
	}
	return int64(binary.LittleEndian.Uint64(b[:])), nil
}
