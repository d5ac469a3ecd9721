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

package database

const (
	// Balance queries
	queryGetBalance = `
		SELECT balance
		FROM account_balances
		WHERE holder = ? AND token = ?`

	queryGetAllHolderBalances = `
		SELECT id, holder, token, balance, COALESCE(last_transaction_id, ''), version, updated_at
		FROM account_balances
		WHERE holder = ? AND balance != '0'
		ORDER BY token`

	queryGetHolders = `
		SELECT DISTINCT holder
		FROM account_balances
		ORDER BY holder`

	queryGetAccountBalance = `
		SELECT id, balance, version
		FROM account_balances
		WHERE holder = ? AND token = ?`

	queryInsertAccountBalance = `
		INSERT INTO account_balances (id, holder, token, balance, version, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`

	queryUpdateAccountBalance = `
		UPDATE account_balances
		SET balance = ?, last_transaction_id = ?, version = version + 1, updated_at = ?
		WHERE holder = ? AND token = ? AND version = ?`

	// Allowance queries
	queryGetAllowance = `
		SELECT amount
		FROM allowances
		WHERE token = ? AND owner = ? AND spender = ?`

	queryUpsertAllowance = `
		INSERT INTO allowances (token, owner, spender, amount, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(token, owner, spender) DO UPDATE SET amount = excluded.amount, updated_at = excluded.updated_at`

	// Transaction queries
	queryHasMovement = `
		SELECT EXISTS(SELECT 1 FROM transactions WHERE token = ? AND reference = ?)`

	queryInsertTransaction = `
		INSERT INTO transactions (
			id, token, from_holder, to_holder, spender, transaction_type, amount, reference, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	queryInsertJournalEntry = `
		INSERT INTO journal_entries (id, transaction_id, account_type, account_id, debit_amount, credit_amount, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`

	queryGetTransactionHistory = `
		SELECT id, token, from_holder, to_holder, spender, transaction_type, amount, reference, exported, created_at
		FROM transactions
		WHERE token = ? AND (from_holder = ? OR to_holder = ?)
		ORDER BY created_at DESC, rowid DESC
		LIMIT ? OFFSET ?`

	queryGetHolderMovements = `
		SELECT from_holder, to_holder, amount
		FROM transactions
		WHERE token = ? AND (from_holder = ? OR to_holder = ?)`

	queryGetUnexportedTransactions = `
		SELECT id, token, from_holder, to_holder, spender, transaction_type, amount, reference, exported, created_at
		FROM transactions
		WHERE exported = 0
		ORDER BY rowid
		LIMIT ?`

	queryMarkTransactionExported = `
		UPDATE transactions SET exported = 1 WHERE id = ?`

	queryGetMostRecentTransactionTime = `
		SELECT MAX(created_at)
		FROM transactions`

	// Registry queries
	queryInsertToken = `
		INSERT INTO tokens (collection, owner, minted_at) VALUES (?, ?, ?)`

	queryGetTokenOwner = `
		SELECT owner
		FROM tokens
		WHERE id = ? AND collection = ? AND burned = 0`

	queryUpdateTokenOwner = `
		UPDATE tokens SET owner = ? WHERE id = ? AND collection = ? AND burned = 0`

	queryBurnToken = `
		UPDATE tokens SET owner = NULL, burned = 1, burned_at = ?
		WHERE id = ? AND collection = ? AND burned = 0`

	queryCountTokensOf = `
		SELECT COUNT(*) FROM tokens WHERE collection = ? AND owner = ? AND burned = 0`

	queryGetTokensOf = `
		SELECT id FROM tokens WHERE collection = ? AND owner = ? AND burned = 0 ORDER BY id`

	queryGetOperatorApproval = `
		SELECT approved
		FROM operator_approvals
		WHERE collection = ? AND owner = ? AND operator = ?`

	queryUpsertOperatorApproval = `
		INSERT INTO operator_approvals (collection, owner, operator, approved, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(collection, owner, operator) DO UPDATE SET approved = excluded.approved, updated_at = excluded.updated_at`

	// Pet queries
	queryInsertPet = `
		INSERT INTO pets (token_id, rank, offer_id, created_at) VALUES (?, ?, ?, ?)`

	queryGetPet = `
		SELECT token_id, rank, offer_id, created_at
		FROM pets
		WHERE token_id = ?`

	queryDeletePet = `
		DELETE FROM pets WHERE token_id = ?`

	queryGetPetsOf = `
		SELECT p.token_id, p.rank, p.offer_id, p.created_at, t.owner
		FROM pets p
		JOIN tokens t ON t.id = p.token_id
		WHERE t.collection = ? AND t.owner = ? AND t.burned = 0
		ORDER BY p.token_id`

	// Breed queries
	queryInsertBreedRecord = `
		INSERT INTO breed_records (matron_id, sire_id, owner, start_time, breed_duration, new_rank)
		VALUES (?, ?, ?, ?, ?, ?)`

	queryGetBreedRecord = `
		SELECT matron_id, sire_id, owner, start_time, breed_duration, new_rank
		FROM breed_records
		WHERE matron_id = ?`

	queryDeleteBreedRecord = `
		DELETE FROM breed_records WHERE matron_id = ?`

	queryGetBreedRecords = `
		SELECT matron_id, sire_id, owner, start_time, breed_duration, new_rank
		FROM breed_records
		ORDER BY start_time + breed_duration, matron_id`

	// Market queries
	queryInsertPaymentToken = `
		INSERT OR IGNORE INTO payment_tokens (token, added_at) VALUES (?, ?)`

	queryGetPaymentToken = `
		SELECT 1 FROM payment_tokens WHERE token = ?`

	queryInsertOrder = `
		INSERT INTO orders (seller, collection, token_id, payment_token, price, status, buyer, created_at)
		VALUES (?, ?, ?, ?, ?, ?, '', ?)`

	querySelectOrder = `
		SELECT id, seller, collection, token_id, payment_token, price, status, buyer, created_at, closed_at
		FROM orders`

	queryGetOrder = querySelectOrder + `
		WHERE id = ?`

	queryGetOpenOrder = querySelectOrder + `
		WHERE id = ? AND status = 'open'`

	queryGetOpenOrders = querySelectOrder + `
		WHERE status = 'open'
		ORDER BY id
		LIMIT ? OFFSET ?`

	queryCloseOrder = `
		UPDATE orders SET status = ?, buyer = ?, closed_at = ?
		WHERE id = ? AND status = 'open'`
)
