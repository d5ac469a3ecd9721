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

package events

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBus_DeliversByTypeAndWildcard(t *testing.T) {
	bus := NewBus()

	var orders, all []Envelope
	bus.Subscribe(TypeOrderAdded, func(env Envelope) { orders = append(orders, env) })
	bus.Subscribe("", func(env Envelope) { all = append(all, env) })

	added := OrderAdded{OrderId: 1, Seller: "alice", PetId: 7, PaymentToken: "gold", Price: decimal.NewFromInt(500)}
	bus.Emit(added)
	bus.Emit(PetMinted{PetId: 1, Owner: "bob", Rank: 1})

	require.Len(t, orders, 1)
	assert.Equal(t, added, orders[0].Event)
	assert.NotEmpty(t, orders[0].Id)
	assert.False(t, orders[0].OccurredAt.IsZero())

	require.Len(t, all, 2)
	assert.Equal(t, TypePetMinted, all[1].Event.Type())
}

func TestBus_PanickingSubscriberDoesNotStopDelivery(t *testing.T) {
	bus := NewBus()

	var delivered []Envelope
	bus.Subscribe(TypeOrderSettled, func(Envelope) { panic("subscriber failure") })
	bus.Subscribe(TypeOrderSettled, func(env Envelope) { delivered = append(delivered, env) })

	assert.NotPanics(t, func() {
		bus.Emit(OrderSettled{OrderId: 1, Seller: "alice", Buyer: "bob", PetId: 1})
	})
	require.Len(t, delivered, 1)
	assert.Equal(t, int64(1), delivered[0].Event.(OrderSettled).OrderId)
}

func TestBus_IgnoresNil(t *testing.T) {
	bus := NewBus()
	called := false
	bus.Subscribe("", func(Envelope) { called = true })

	bus.Emit(nil)
	assert.False(t, called)
}

func TestRecorder(t *testing.T) {
	var rec Recorder
	var emitter Emitter = &rec

	emitter.Emit(PetMinted{PetId: 1})
	emitter.Emit(BreedStarted{BreedId: 1})
	emitter.Emit(PetMinted{PetId: 2})

	assert.Len(t, rec.Events(), 3)
	minted := rec.OfType(TypePetMinted)
	require.Len(t, minted, 2)
	assert.Equal(t, int64(2), minted[1].(PetMinted).PetId)

	NoopEmitter{}.Emit(PetMinted{})
}
