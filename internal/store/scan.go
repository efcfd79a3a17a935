package store

import (
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/wonny/vox/backend/internal/contracts"
)

// recordArgs flattens a record into the insert argument list,
// matching postColumns order exactly
func recordArgs(rec *contracts.PostRecord) []interface{} {
	var stockCode, stockName *string
	if rec.AssignedStock != nil {
		stockCode = &rec.AssignedStock.Code
		stockName = &rec.AssignedStock.Name
	}

	return []interface{}{
		rec.PostID, rec.PersonaID, rec.TopicID,
		stockCode, stockName,
		string(rec.State), rec.ContentTitle, rec.ContentBody,
		rec.PublishedAt, rec.PlatformPostID,
		rec.RetryCount, rec.LastError,
		string(rec.CollectionStatusFor(contracts.Horizon1h)),
		string(rec.CollectionStatusFor(contracts.Horizon1d)),
		string(rec.CollectionStatusFor(contracts.Horizon7d)),
		rec.CollectedAt[contracts.Horizon1h],
		rec.CollectedAt[contracts.Horizon1d],
		rec.CollectedAt[contracts.Horizon7d],
		rec.CreatedAt, rec.UpdatedAt,
	}
}

// scanRecord parses one row into a PostRecord, validating enums on the
// way in so a corrupted row fails loudly at the adapter boundary
func scanRecord(row pgx.Row) (*contracts.PostRecord, error) {
	var (
		rec                  contracts.PostRecord
		stockCode, stockName *string
		state                string
		status1h, status1d   string
		status7d             string
		at1h, at1d, at7d     *time.Time
	)

	err := row.Scan(
		&rec.PostID, &rec.PersonaID, &rec.TopicID,
		&stockCode, &stockName,
		&state, &rec.ContentTitle, &rec.ContentBody,
		&rec.PublishedAt, &rec.PlatformPostID,
		&rec.RetryCount, &rec.LastError,
		&status1h, &status1d, &status7d,
		&at1h, &at1d, &at7d,
		&rec.CreatedAt, &rec.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	rec.State = contracts.LifecycleState(state)
	if !rec.State.Valid() {
		return nil, fmt.Errorf("post %s: invalid state %q", rec.PostID, state)
	}

	if stockCode != nil {
		rec.AssignedStock = &contracts.Stock{Code: *stockCode}
		if stockName != nil {
			rec.AssignedStock.Name = *stockName
		}
	}

	rec.Collection = map[contracts.Horizon]contracts.CollectionStatus{
		contracts.Horizon1h: contracts.CollectionStatus(status1h),
		contracts.Horizon1d: contracts.CollectionStatus(status1d),
		contracts.Horizon7d: contracts.CollectionStatus(status7d),
	}
	rec.CollectedAt = map[contracts.Horizon]*time.Time{
		contracts.Horizon1h: at1h,
		contracts.Horizon1d: at1d,
		contracts.Horizon7d: at7d,
	}

	return &rec, nil
}

// scanRecords drains a result set
func scanRecords(rows pgx.Rows) ([]*contracts.PostRecord, error) {
	var records []*contracts.PostRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan post: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}
