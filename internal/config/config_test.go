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

package config

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "gacha.db", cfg.Database.Path)
	assert.Equal(t, 25, cfg.Database.MaxOpenConns)
	assert.Equal(t, 5*time.Second, cfg.Database.BusyTimeout)
	assert.Equal(t, 24*time.Hour, cfg.Gacha.BreedUnit)
	assert.Equal(t, cfg.Gacha.Collection, cfg.Marketplace.Collection)
	assert.True(t, cfg.Marketplace.FeeRate.Equal(decimal.NewFromInt(10)))
	assert.Equal(t, int32(0), cfg.Marketplace.FeeDecimals)
	assert.False(t, cfg.Formance.Enabled())
	assert.True(t, cfg.Listener.NotifyBreeds)
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("DATABASE_PATH", "/tmp/pets.db")
	t.Setenv("BREED_UNIT", "1m")
	t.Setenv("GACHA_SEED", "1234")
	t.Setenv("FEE_RATE", "25")
	t.Setenv("FEE_DECIMALS", "1")
	t.Setenv("PET_COLLECTION", "critters")
	t.Setenv("FORMANCE_STACK_URL", "http://localhost:8080")
	t.Setenv("FORMANCE_CLIENT_ID", "id")
	t.Setenv("FORMANCE_CLIENT_SECRET", "secret")
	t.Setenv("SYNC_NOTIFY_BREEDS", "false")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "/tmp/pets.db", cfg.Database.Path)
	assert.Equal(t, time.Minute, cfg.Gacha.BreedUnit)
	assert.Equal(t, int64(1234), cfg.Gacha.Seed)
	assert.True(t, cfg.Marketplace.FeeRate.Equal(decimal.NewFromInt(25)))
	assert.Equal(t, int32(1), cfg.Marketplace.FeeDecimals)
	assert.EqualValues(t, "critters", cfg.Marketplace.Collection)
	assert.True(t, cfg.Formance.Enabled())
	assert.False(t, cfg.Listener.NotifyBreeds)
}

func TestLoad_InvalidValues(t *testing.T) {
	t.Setenv("BREED_UNIT", "tomorrow")
	_, err := Load()
	assert.Error(t, err)

	t.Setenv("BREED_UNIT", "")
	t.Setenv("FEE_RATE", "ten")
	_, err = Load()
	assert.Error(t, err)
}
