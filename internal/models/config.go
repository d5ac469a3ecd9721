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

// Config represents the application configuration
type Config struct {
	Database    DatabaseConfig
	Gacha       GachaConfig
	Marketplace MarketplaceConfig
	Formance    FormanceConfig
	Listener    ListenerConfig
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Path            string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	PingTimeout     time.Duration
	BusyTimeout     time.Duration
}

// GachaConfig holds the gacha and breeding engine settings
type GachaConfig struct {
	Address    Address // custody account of the engine on the ledger and registry
	GoldToken  Address
	Collection Address // pet registry the engine mints into
	OffersFile string  // empty means built-in offers
	Seed       int64   // 0 picks a random seed
	BreedUnit  time.Duration
}

// MarketplaceConfig holds the escrow marketplace settings
type MarketplaceConfig struct {
	Address      Address
	Admin        Address
	Collection   Address
	FeeRecipient Address
	FeeRate      decimal.Decimal
	FeeDecimals  int32
}

// FormanceConfig holds the Formance Stack connection used by the ledger mirror
type FormanceConfig struct {
	StackURL     string
	ClientID     string
	ClientSecret string
	LedgerName   string
}

// Enabled reports whether a Formance stack has been configured
func (c FormanceConfig) Enabled() bool {
	return c.StackURL != "" && c.ClientID != "" && c.ClientSecret != ""
}

// ListenerConfig holds the background sync listener settings
type ListenerConfig struct {
	PollingInterval time.Duration
	CleanupInterval time.Duration
	BatchSize       int
	NotifyBreeds    bool // publish BreedReady for matured records
}
