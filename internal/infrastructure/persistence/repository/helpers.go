package repository

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/garyjia/cineexpense/internal/domain/entity"
)

// requireOneRow fails when an UPDATE matched nothing
func requireOneRow(result sql.Result, kind, id string) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%s %s not found", kind, id)
	}
	return nil
}

func parseDate(raw string) (entity.Date, error) {
	// postgres renders DATE casts as YYYY-MM-DD, sqlite stores the same text
	if len(raw) > len(entity.DateLayout) {
		raw = raw[:len(entity.DateLayout)]
	}
	return entity.ParseDate(raw)
}

func encodeJSON(v map[string]interface{}) (string, error) {
	if v == nil {
		return "{}", nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("failed to encode json: %w", err)
	}
	return string(b), nil
}

func decodeJSON(raw sql.NullString) (map[string]interface{}, error) {
	if !raw.Valid || raw.String == "" {
		return map[string]interface{}{}, nil
	}
	var v map[string]interface{}
	if err := json.Unmarshal([]byte(raw.String), &v); err != nil {
		return nil, fmt.Errorf("failed to decode json: %w", err)
	}
	return v, nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
