package history

import (
	"database/sql"
	"time"
)

const recordColumns = "run_id, source_url, format, quality, range_start, range_end, state, error_message, output_bytes, created_at, updated_at, finished_at, delivered_at"

func scanRecord(scanner interface{ Scan(dest ...any) error }) (*Record, error) {
	var (
		rec          Record
		rangeEnd     sql.NullInt64
		errorMessage sql.NullString
		createdRaw   string
		updatedRaw   string
		finishedRaw  sql.NullString
		deliveredRaw sql.NullString
	)
	if err := scanner.Scan(
		&rec.RunID,
		&rec.SourceURL,
		&rec.Format,
		&rec.Quality,
		&rec.RangeStart,
		&rangeEnd,
		&rec.State,
		&errorMessage,
		&rec.OutputBytes,
		&createdRaw,
		&updatedRaw,
		&finishedRaw,
		&deliveredRaw,
	); err != nil {
		return nil, err
	}
	if rangeEnd.Valid {
		end := int(rangeEnd.Int64)
		rec.RangeEnd = &end
	}
	rec.ErrorMessage = errorMessage.String
	rec.CreatedAt = parseTime(createdRaw)
	rec.UpdatedAt = parseTime(updatedRaw)
	rec.FinishedAt = parseTime(finishedRaw.String)
	rec.DeliveredAt = parseTime(deliveredRaw.String)
	return &rec, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(raw string) time.Time {
	if raw == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}
	}
	return t
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func nullableInt(value *int) any {
	if value == nil {
		return nil
	}
	return *value
}
