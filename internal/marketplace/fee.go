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

package marketplace

import (
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	hundred = decimal.NewFromInt(100)
	ten     = decimal.NewFromInt(10)
)

// ValidateFee accepts a whole, non-negative feeRate whose percentage
// feeRate / 10^feeDecimals does not exceed 100.
func ValidateFee(feeRate decimal.Decimal, feeDecimals int32) error {
	if feeDecimals < 0 {
		return fmt.Errorf("fee decimals cannot be negative, got %d", feeDecimals)
	}
	if feeRate.IsNegative() || !feeRate.IsInteger() {
		return fmt.Errorf("fee rate must be a non-negative whole number, got %s", feeRate.String())
	}
	if feeRate.GreaterThan(hundred.Mul(ten.Pow(decimal.NewFromInt32(feeDecimals)))) {
		return fmt.Errorf("fee rate %s with %d decimals exceeds 100%%", feeRate.String(), feeDecimals)
	}
	return nil
}

// ComputeFee splits price into the fee floor(price * feeRate / 10^(feeDecimals+2))
// and the seller proceeds price - fee.
func ComputeFee(price, feeRate decimal.Decimal, feeDecimals int32) (fee, proceeds decimal.Decimal) {
	denominator := ten.Pow(decimal.NewFromInt32(feeDecimals + 2))
	fee, _ = price.Mul(feeRate).QuoRem(denominator, 0)
	return fee, price.Sub(fee)
}
