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


package listener

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"pet-gacha-go/internal/database"
	"pet-gacha-go/internal/events"
	"pet-gacha-go/internal/formance"
	"pet-gacha-go/internal/models"

	"go.uber.org/zap"
)

// Source is the committed state the listener reads from
type Source interface {
	GetUnexportedTransactions(ctx context.Context, limit int) ([]models.Transaction, error)
	MarkTransactionExported(ctx context.Context, transactionId string) error
	GetBreedRecords(ctx context.Context) ([]models.BreedRecord, error)
}

// Exporter mirrors a committed ledger movement to an external ledger
type Exporter interface {
	ExportTransaction(ctx context.Context, tx models.Transaction) error
}

var (
	_ Source   = (*database.Service)(nil)
	_ Exporter = (*formance.Service)(nil)
)

// SyncListenerConfig contains configuration for SyncListener
type SyncListenerConfig struct {
	Source          Source
	Exporter        Exporter // nil disables the mirror
	Emitter         events.Emitter
	Now             func() time.Time
	PollingInterval time.Duration
	CleanupInterval time.Duration
	BatchSize       int
	NotifyBreeds    bool
}

// SyncListener exports committed ledger movements and announces matured
// breed records on a fixed interval
type SyncListener struct {
	source   Source
	exporter Exporter
	emitter  events.Emitter
	now      func() time.Time

	// Breed records already announced, keyed by breed id
	notified        map[int64]time.Time
	mutex           sync.RWMutex
	pollingInterval time.Duration
	cleanupInterval time.Duration
	batchSize       int
	notifyBreeds    bool

	// Control channels
	stopChan chan struct{}
	doneChan chan struct{}
	stopOnce sync.Once
	started  atomic.Bool
}

// NewSyncListener creates a new sync listener
func NewSyncListener(cfg SyncListenerConfig) *SyncListener {
	emitter := cfg.Emitter
	if emitter == nil {
		emitter = events.NoopEmitter{}
	}
	now := cfg.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 100
	}

	return &SyncListener{
		source:          cfg.Source,
		exporter:        cfg.Exporter,
		emitter:         emitter,
		now:             now,
		notified:        make(map[int64]time.Time),
		pollingInterval: cfg.PollingInterval,
		cleanupInterval: cfg.CleanupInterval,
		batchSize:       batchSize,
		notifyBreeds:    cfg.NotifyBreeds,
		stopChan:        make(chan struct{}),
		doneChan:        make(chan struct{}),
	}
}

func (d *SyncListener) isBreedNotified(breedId int64) bool {
	d.mutex.RLock()
	defer d.mutex.RUnlock()
	_, exists := d.notified[breedId]
	return exists
}

func (d *SyncListener) markBreedNotified(breedId int64) {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	d.notified[breedId] = d.now()
}

// cleanupLoop periodically forgets announced records that have been claimed
func (d *SyncListener) cleanupLoop(ctx context.Context) {
	ticker := time.NewTicker(d.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			d.cleanupNotifiedBreeds(ctx)
		case <-d.stopChan:
			return
		case <-ctx.Done():
			return
		}
	}
}

// cleanupNotifiedBreeds removes entries whose breed record is no longer active
func (d *SyncListener) cleanupNotifiedBreeds(ctx context.Context) {
	records, err := d.source.GetBreedRecords(ctx)
	if err != nil {
		zap.L().Warn("Unable to load breed records for cleanup", zap.Error(err))
		return
	}
	active := make(map[int64]bool, len(records))
	for _, record := range records {
		active[record.Matron] = true
	}

	d.mutex.Lock()
	defer d.mutex.Unlock()

	cleaned := 0
	for breedId := range d.notified {
		if !active[breedId] {
			delete(d.notified, breedId)
			cleaned++
		}
	}

	if cleaned > 0 {
		zap.L().Debug("Cleaned up claimed breed notifications",
			zap.Int("cleaned", cleaned),
			zap.Int("remaining", len(d.notified)))
	}
}
