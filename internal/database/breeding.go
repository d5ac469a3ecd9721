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

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"pet-gacha-go/internal/models"

	"go.uber.org/zap"
)

// breedTable implements store.BreedStore
type breedTable struct {
	q queryer
}

func (b *breedTable) InsertBreedRecord(ctx context.Context, record models.BreedRecord) error {
	_, err := b.q.ExecContext(ctx, queryInsertBreedRecord,
		record.Matron, record.Sire, record.Owner,
		record.StartTime.UnixNano(), int64(record.BreedDuration), record.NewRank)
	if err != nil {
		return fmt.Errorf("unable to insert breed record: %w", err)
	}
	return nil
}

func (b *breedTable) GetBreedRecord(ctx context.Context, matron int64) (models.BreedRecord, error) {
	record, err := scanBreedRecord(b.q.QueryRowContext(ctx, queryGetBreedRecord, matron))
	if errors.Is(err, sql.ErrNoRows) {
		return models.BreedRecord{}, nil
	}
	if err != nil {
		return models.BreedRecord{}, fmt.Errorf("unable to query breed record: %w", err)
	}
	return record, nil
}

func (b *breedTable) ClearBreedRecord(ctx context.Context, matron int64) error {
	result, err := b.q.ExecContext(ctx, queryDeleteBreedRecord, matron)
	if err != nil {
		return fmt.Errorf("unable to clear breed record: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("unable to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("no active breed record for matron %d", matron)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBreedRecord(row rowScanner) (models.BreedRecord, error) {
	var record models.BreedRecord
	var startNanos, durationNanos int64
	if err := row.Scan(&record.Matron, &record.Sire, &record.Owner, &startNanos, &durationNanos, &record.NewRank); err != nil {
		return models.BreedRecord{}, err
	}
	record.StartTime = time.Unix(0, startNanos).UTC()
	record.BreedDuration = time.Duration(durationNanos)
	return record, nil
}

// GetBreedRecord returns the active record for matron, or the zero record
func (s *Service) GetBreedRecord(ctx context.Context, matron int64) (models.BreedRecord, error) {
	return (&breedTable{q: s.db}).GetBreedRecord(ctx, matron)
}

// GetBreedRecords returns all active records ordered by readiness
func (s *Service) GetBreedRecords(ctx context.Context) ([]models.BreedRecord, error) {
	rows, err := s.db.QueryContext(ctx, queryGetBreedRecords)
	if err != nil {
		zap.L().Error("Failed to query breed records", zap.Error(err))
		return nil, fmt.Errorf("unable to query breed records: %w", err)
	}
	defer func(rows *sql.Rows) {
		if err := rows.Close(); err != nil {
			zap.L().Warn("Failed to close rows", zap.Error(err))
		}
	}(rows)

	var records []models.BreedRecord
	for rows.Next() {
		record, err := scanBreedRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("unable to scan breed record: %w", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating breed records: %w", err)
	}
	return records, nil
}
