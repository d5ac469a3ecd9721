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
	"fmt"
	"time"

	"pet-gacha-go/internal/events"

	"go.uber.org/zap"
)

// ANSI color helpers for console output.
const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
)

// Start drains the export backlog and then begins polling
func (d *SyncListener) Start(ctx context.Context) error {
	zap.L().Info("Starting sync listener")

	if d.source == nil {
		return fmt.Errorf("sync listener requires a source")
	}
	if d.pollingInterval <= 0 || d.cleanupInterval <= 0 {
		return fmt.Errorf("polling and cleanup intervals must be positive")
	}

	if err := d.performStartupRecovery(ctx); err != nil {
		zap.L().Error("Startup recovery failed", zap.Error(err))
		return fmt.Errorf("startup recovery failed: %w", err)
	}

	d.started.Store(true)
	go d.pollLoop(ctx)
	go d.cleanupLoop(ctx)

	zap.L().Info("Sync listener started successfully",
		zap.Duration("polling_interval", d.pollingInterval),
		zap.Bool("export_enabled", d.exporter != nil),
		zap.Bool("notify_breeds", d.notifyBreeds))

	return nil
}

// Stop gracefully stops the sync listener. It is safe to call more than
// once and after a failed Start.
func (d *SyncListener) Stop() {
	d.stopOnce.Do(func() {
		zap.L().Info("Stopping sync listener")
		close(d.stopChan)
	})
	if d.started.Load() {
		<-d.doneChan
	}
	zap.L().Info("Sync listener stopped")
}

// pollLoop runs the main polling loop
func (d *SyncListener) pollLoop(ctx context.Context) {
	defer close(d.doneChan)

	ticker := time.NewTicker(d.pollingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			d.poll(ctx)
		case <-d.stopChan:
			return
		case <-ctx.Done():
			return
		}
	}
}

// poll runs one export pass and one breed notification pass
func (d *SyncListener) poll(ctx context.Context) {
	exported, err := d.exportPending(ctx)
	if err != nil {
		fmt.Printf("%s[%s] ✗ export stopped after %d movements: %s%s\n",
			colorRed, time.Now().Format("15:04:05"), exported, err, colorReset)
	} else if exported > 0 {
		fmt.Printf("%s[%s] ✓ exported %d movements%s\n",
			colorGreen, time.Now().Format("15:04:05"), exported, colorReset)
	}

	announced, err := d.notifyMaturedBreeds(ctx)
	if err != nil {
		zap.L().Error("Failed to check breed records", zap.Error(err))
	} else if announced > 0 {
		fmt.Printf("%s[%s] ~ %d breed records ready to claim%s\n",
			colorYellow, time.Now().Format("15:04:05"), announced, colorReset)
	}
}

// performStartupRecovery exports every movement committed while the listener was down
func (d *SyncListener) performStartupRecovery(ctx context.Context) error {
	if d.exporter == nil {
		return nil
	}

	zap.L().Info("Starting startup recovery process")
	fmt.Printf("%s[%s] Exporting backlog%s\n", colorCyan, time.Now().Format("15:04:05"), colorReset)

	exported, err := d.exportPending(ctx)
	if err != nil {
		return err
	}

	zap.L().Info("Startup recovery completed successfully", zap.Int("movements_exported", exported))
	return nil
}

// exportPending exports unexported movements in commit order until none
// remain. It stops at the first failure so a later movement never reaches
// the mirror before an earlier one.
func (d *SyncListener) exportPending(ctx context.Context) (int, error) {
	if d.exporter == nil {
		return 0, nil
	}

	exported := 0
	for {
		batch, err := d.source.GetUnexportedTransactions(ctx, d.batchSize)
		if err != nil {
			return exported, fmt.Errorf("failed to load unexported movements: %w", err)
		}

		for _, tx := range batch {
			if err := d.exporter.ExportTransaction(ctx, tx); err != nil {
				zap.L().Error("Failed to export movement",
					zap.String("transaction_id", tx.Id),
					zap.Error(err))
				return exported, err
			}
			if err := d.source.MarkTransactionExported(ctx, tx.Id); err != nil {
				return exported, fmt.Errorf("failed to mark movement exported: %w", err)
			}
			exported++
		}

		if len(batch) < d.batchSize {
			return exported, nil
		}
	}
}

// notifyMaturedBreeds publishes BreedReady once for each claimable record
func (d *SyncListener) notifyMaturedBreeds(ctx context.Context) (int, error) {
	if !d.notifyBreeds {
		return 0, nil
	}

	records, err := d.source.GetBreedRecords(ctx)
	if err != nil {
		return 0, err
	}

	now := d.now()
	announced := 0
	for _, record := range records {
		if !record.Active() || now.Before(record.ReadyAt()) || d.isBreedNotified(record.Matron) {
			continue
		}

		d.emitter.Emit(events.BreedReady{
			BreedId: record.Matron,
			Owner:   record.Owner,
			NewRank: record.NewRank,
			ReadyAt: record.ReadyAt(),
		})
		d.markBreedNotified(record.Matron)
		announced++

		zap.L().Info("Breed record ready",
			zap.Int64("breed_id", record.Matron),
			zap.String("owner", record.Owner.String()),
			zap.Int("new_rank", record.NewRank))
	}
	return announced, nil
}
