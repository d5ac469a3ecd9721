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

package formance

import (
	"context"
	"fmt"
	"strings"

	"pet-gacha-go/internal/models"

	"github.com/formancehq/formance-sdk-go/v3/pkg/models/operations"
	"github.com/formancehq/formance-sdk-go/v3/pkg/models/shared"
	"go.uber.org/zap"
)

// Numscript templates. Metadata is set inside the script via set_tx_meta()
// so every Formance transaction is self-describing.

// Mints draw from the token's issuance account, which may go negative.
const numscriptMint = `vars {
  asset $asset
  number $amount
  account $token
  account $to
  string $movement_id
  string $movement_type
  string $reference
}

send [$asset $amount] (
  source = @issuance:$token allowing unbounded overdraft
  destination = @holders:$to
)

set_tx_meta("movement_id", $movement_id)
set_tx_meta("movement_type", $movement_type)
set_tx_meta("reference", $reference)
`

// Transfers are already balance-checked locally, so the holder source is
// bounded and a divergence between the two ledgers surfaces as an error.
const numscriptTransfer = `vars {
  asset $asset
  number $amount
  account $from
  account $to
  string $spender
  string $movement_id
  string $movement_type
  string $reference
}

send [$asset $amount] (
  source = @holders:$from
  destination = @holders:$to
)

set_tx_meta("movement_id", $movement_id)
set_tx_meta("movement_type", $movement_type)
set_tx_meta("spender", $spender)
set_tx_meta("reference", $reference)
`

// ExportTransaction posts one committed movement. The movement id is the
// Formance reference, so re-exporting after a crash is a no-op.
func (s *Service) ExportTransaction(ctx context.Context, tx models.Transaction) error {
	postTx, err := postTransactionFor(tx)
	if err != nil {
		return err
	}

	_, err = s.client.Ledger.V2.CreateTransaction(ctx, operations.V2CreateTransactionRequest{
		Ledger:            s.ledger,
		V2PostTransaction: postTx,
	})
	if err != nil {
		if isConflictError(err) {
			zap.L().Debug("Movement already exported", zap.String("transaction_id", tx.Id))
			return nil // idempotent
		}
		return fmt.Errorf("failed to export transaction %s: %w", tx.Id, err)
	}

	zap.L().Info("Movement exported to Formance",
		zap.String("transaction_id", tx.Id),
		zap.String("type", tx.TransactionType),
		zap.String("token", tx.Token.String()),
		zap.String("amount", tx.Amount.String()))
	return nil
}

// postTransactionFor builds the Formance request for a ledger movement
func postTransactionFor(tx models.Transaction) (shared.V2PostTransaction, error) {
	if !tx.Amount.IsPositive() || !tx.Amount.IsInteger() {
		return shared.V2PostTransaction{}, fmt.Errorf("transaction %s has a non exportable amount %s", tx.Id, tx.Amount.String())
	}

	vars := map[string]string{
		"asset":         formanceAsset(tx.Token),
		"amount":        tx.Amount.BigInt().String(),
		"to":            accountSegment(tx.To),
		"movement_id":   tx.Id,
		"movement_type": tx.TransactionType,
		"reference":     tx.Reference,
	}

	plain := numscriptTransfer
	if tx.TransactionType == models.TransactionTypeMint {
		plain = numscriptMint
		vars["token"] = accountSegment(tx.Token)
	} else {
		vars["from"] = accountSegment(tx.From)
		vars["spender"] = tx.Spender.String()
	}

	postTx := shared.V2PostTransaction{
		Reference: strPtr(tx.Id),
		Script: &shared.V2PostTransactionScript{
			Plain: plain,
			Vars:  vars,
		},
	}
	if !tx.CreatedAt.IsZero() {
		createdAt := tx.CreatedAt
		postTx.Timestamp = &createdAt
	}
	return postTx, nil
}

// formanceAsset returns the Formance UMN notation for a whole-unit token, e.g. "GOLD/0".
func formanceAsset(token models.Address) string {
	return strings.ToUpper(accountSegment(token)) + "/0"
}

// accountSegment maps an address onto the characters Formance accepts in an
// account path segment.
func accountSegment(addr models.Address) string {
	var b strings.Builder
	for _, c := range addr.String() {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '_':
			b.WriteRune(c)
		default:
			b.WriteRune('_')
		}
	}
	return b.String()
}

func strPtr(s string) *string { return &s }
