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

// Package errors provides coded domain errors shared by the game engines.
package errors

// Code is a machine-readable error code.
type Code string

const (
	// CodeUnknown represents an unknown error.
	CodeUnknown Code = "UNKNOWN"

	// Validation errors
	CodeInvalidOffer     Code = "INVALID_OFFER"
	CodePriceMismatch    Code = "PRICE_MISMATCH"
	CodeZeroPrice        Code = "ZERO_PRICE"
	CodeInvalidAmount    Code = "INVALID_AMOUNT"
	CodeZeroAddress      Code = "ZERO_ADDRESS"
	CodeUnsupportedToken Code = "UNSUPPORTED_TOKEN"
	CodeAlreadySupported Code = "ALREADY_SUPPORTED"
	CodeSamePet          Code = "SAME_PET"
	CodeSelfPurchase     Code = "SELF_PURCHASE"

	// Authorization errors
	CodeNotOwner      Code = "NOT_OWNER"
	CodeNotAuthorized Code = "NOT_AUTHORIZED"
	CodeNotSeller     Code = "NOT_SELLER"
	CodeNotBreedOwner Code = "NOT_BREED_OWNER"
	CodeNotAdmin      Code = "NOT_ADMIN"

	// State and timing errors
	CodeRankMismatch   Code = "RANK_MISMATCH"
	CodeMaxRankReached Code = "MAX_RANK_REACHED"
	CodeNotReady       Code = "NOT_READY"
	CodeOrderNotFound  Code = "ORDER_NOT_FOUND"
	CodePetNotFound    Code = "PET_NOT_FOUND"

	// Dependency errors
	CodeInsufficientBalance   Code = "INSUFFICIENT_BALANCE"
	CodeInsufficientAllowance Code = "INSUFFICIENT_ALLOWANCE"
	CodeInvalidTokenId        Code = "INVALID_TOKEN_ID"
	CodeStorage               Code = "STORAGE"
)
