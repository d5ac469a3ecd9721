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
	"sync"
	"time"

	"pet-gacha-go/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Event type names
const (
	TypePetMinted      = "pet.minted"
	TypeBreedStarted   = "breed.started"
	TypePetClaimed     = "pet.claimed"
	TypeBreedReady     = "breed.ready"
	TypeOrderAdded     = "order.added"
	TypeOrderSettled   = "order.settled"
	TypeOrderCancelled = "order.cancelled"
)

// Event is a notification published after a committed state change
type Event interface {
	Type() string
}

// Envelope carries an event with its delivery metadata
type Envelope struct {
	Id         string
	OccurredAt time.Time
	Event      Event
}

// PetMinted is published when a gacha draw mints a pet
type PetMinted struct {
	PetId   int64
	Owner   models.Address
	Rank    int
	OfferId int
	Price   decimal.Decimal
}

// BreedStarted is published when two pets are burned into a breed record
type BreedStarted struct {
	BreedId int64
	Owner   models.Address
	Matron  int64
	Sire    int64
	NewRank int
	ReadyAt time.Time
}

// PetClaimed is published when a breed record is claimed
type PetClaimed struct {
	BreedId int64
	PetId   int64
	Owner   models.Address
	Rank    int
}

// BreedReady is published once when a breed record becomes claimable
type BreedReady struct {
	BreedId int64
	Owner   models.Address
	NewRank int
	ReadyAt time.Time
}

// OrderAdded is published once per successful listing
type OrderAdded struct {
	OrderId      int64
	Seller       models.Address
	PetId        int64
	PaymentToken models.Address
	Price        decimal.Decimal
}

// OrderSettled is published when an escrowed pet is sold
type OrderSettled struct {
	OrderId  int64
	Seller   models.Address
	Buyer    models.Address
	PetId    int64
	Price    decimal.Decimal
	Fee      decimal.Decimal
	Proceeds decimal.Decimal
}

// OrderCancelled is published when the seller withdraws a listing
type OrderCancelled struct {
	OrderId int64
	Seller  models.Address
	PetId   int64
}

func (PetMinted) Type() string      { return TypePetMinted }
func (BreedStarted) Type() string   { return TypeBreedStarted }
func (PetClaimed) Type() string     { return TypePetClaimed }
func (BreedReady) Type() string     { return TypeBreedReady }
func (OrderAdded) Type() string     { return TypeOrderAdded }
func (OrderSettled) Type() string   { return TypeOrderSettled }
func (OrderCancelled) Type() string { return TypeOrderCancelled }

// Emitter receives events from the engines
type Emitter interface {
	Emit(evt Event)
}

// NoopEmitter discards every event
type NoopEmitter struct{}

func (NoopEmitter) Emit(Event) {}

// Handler consumes delivered events
type Handler func(env Envelope)

// Bus fans events out to subscribers synchronously, in subscription order.
type Bus struct {
	mu       sync.RWMutex
	handlers map[string][]Handler
	all      []Handler
	now      func() time.Time
}

var _ Emitter = (*Bus)(nil)

func NewBus() *Bus {
	return &Bus{
		handlers: make(map[string][]Handler),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Subscribe registers h for one event type, or for every type when eventType is empty
func (b *Bus) Subscribe(eventType string, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if eventType == "" {
		b.all = append(b.all, h)
		return
	}
	b.handlers[eventType] = append(b.handlers[eventType], h)
}

// Emit delivers evt to its subscribers before returning
func (b *Bus) Emit(evt Event) {
	if evt == nil {
		return
	}

	b.mu.RLock()
	targets := make([]Handler, 0, len(b.handlers[evt.Type()])+len(b.all))
	targets = append(targets, b.handlers[evt.Type()]...)
	targets = append(targets, b.all...)
	b.mu.RUnlock()

	env := Envelope{Id: uuid.New().String(), OccurredAt: b.now(), Event: evt}
	zap.L().Debug("Publishing event",
		zap.String("event_id", env.Id),
		zap.String("type", evt.Type()),
		zap.Int("subscribers", len(targets)))

	for _, h := range targets {
		deliver(h, env)
	}
}

// deliver runs one handler. The state change behind env is already
// committed, so a panicking subscriber is logged and skipped.
func deliver(h Handler, env Envelope) {
	defer func() {
		if r := recover(); r != nil {
			zap.L().Error("Event subscriber panicked",
				zap.String("event_id", env.Id),
				zap.String("type", env.Event.Type()),
				zap.Any("panic", r))
		}
	}()
	h(env)
}

// Recorder keeps every emitted event in memory
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) Emit(evt Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, evt)
}

// Events returns a copy of the recorded events
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// OfType returns the recorded events with the given type
func (r *Recorder) OfType(eventType string) []Event {
	var out []Event
	for _, evt := range r.Events() {
		if evt.Type() == eventType {
			out = append(out, evt)
		}
	}
	return out
}
