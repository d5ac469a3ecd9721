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


package common

import (
	"fmt"
	"os"
	"path/filepath"

	"pet-gacha-go/internal/gacha"
	"pet-gacha-go/internal/models"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v2"
)

type OfferConfig struct {
	Id    int                 `yaml:"id"`
	Price string              `yaml:"price"`
	Ranks []models.RankWeight `yaml:"ranks"`
}

type OffersConfig struct {
	Offers []OfferConfig `yaml:"offers"`
}

// LoadOffers reads the gacha catalog from a YAML file. An empty path yields
// the built-in catalog.
func LoadOffers(offersFile string) ([]models.GachaOffer, error) {
	if offersFile == "" {
		return gacha.DefaultOffers(), nil
	}

	var offersPath string
	if filepath.IsAbs(offersFile) {
		offersPath = offersFile
	} else {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get working directory: %w", err)
		}
		offersPath = filepath.Join(wd, offersFile)
	}

	data, err := os.ReadFile(offersPath)
	if err != nil {
		return nil, fmt.Errorf("unable to read %s: %w", offersFile, err)
	}

	return ParseOffers(data)
}

// ParseOffers decodes and validates a YAML gacha catalog
func ParseOffers(data []byte) ([]models.GachaOffer, error) {
	var config OffersConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("unable to parse offers: %w", err)
	}

	offers := make([]models.GachaOffer, 0, len(config.Offers))
	for i, oc := range config.Offers {
		if oc.Price == "" {
			return nil, fmt.Errorf("offer at index %d missing price", i)
		}
		price, err := decimal.NewFromString(oc.Price)
		if err != nil {
			return nil, fmt.Errorf("offer at index %d has invalid price %q: %w", i, oc.Price, err)
		}
		offers = append(offers, models.GachaOffer{
			Id:    oc.Id,
			Price: price,
			Ranks: oc.Ranks,
		})
	}

	if err := gacha.ValidateOffers(offers); err != nil {
		return nil, err
	}
	return offers, nil
}
