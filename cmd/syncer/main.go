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


package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"pet-gacha-go/internal/common"
	"pet-gacha-go/internal/config"
	"pet-gacha-go/internal/events"
	"pet-gacha-go/internal/listener"

	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		common.InstallFallbackLogger()
		zap.L().Fatal("Failed to load configuration", zap.Error(err))
	}

	_, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	zap.L().Info("Starting pet gacha syncer")

	services, err := common.InitializeServices(ctx, cfg)
	if err != nil {
		zap.L().Fatal("Failed to initialize services", zap.Error(err))
	}
	defer services.Close()

	services.Bus.Subscribe(events.TypeBreedReady, func(env events.Envelope) {
		ready := env.Event.(events.BreedReady)
		zap.L().Info("Pet ready to claim",
			zap.String("event_id", env.Id),
			zap.Int64("breed_id", ready.BreedId),
			zap.String("owner", ready.Owner.String()),
			zap.Int("new_rank", ready.NewRank))
	})

	syncCfg := listener.SyncListenerConfig{
		Source:          services.DbService,
		Emitter:         services.Bus,
		PollingInterval: cfg.Listener.PollingInterval,
		CleanupInterval: cfg.Listener.CleanupInterval,
		BatchSize:       cfg.Listener.BatchSize,
		NotifyBreeds:    cfg.Listener.NotifyBreeds,
	}
	if services.Formance != nil {
		syncCfg.Exporter = services.Formance
	} else {
		zap.L().Warn("Formance mirror disabled, only breed notifications will run")
	}

	l := listener.NewSyncListener(syncCfg)
	if err := l.Start(ctx); err != nil {
		zap.L().Fatal("Failed to start sync listener", zap.Error(err))
	}

	zap.L().Info("Press Ctrl+C to stop")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	zap.L().Info("Shutdown signal received, stopping syncer...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	done := make(chan struct{})
	go func() {
		l.Stop()
		close(done)
	}()

	select {
	case <-done:
		zap.L().Info("Syncer stopped gracefully")
	case <-shutdownCtx.Done():
		zap.L().Warn("Forced shutdown after timeout")
	}
}
