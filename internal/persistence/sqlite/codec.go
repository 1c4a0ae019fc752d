package sqlite

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// dateOnly is the storage layout for calendar days without a time component.
const dateOnly = "2006-01-02"

func encodeWeekdays(days []time.Weekday) string {
	if len(days) == 0 {
		return ""
	}
	parts := make([]string, len(days))
	for i, day := range days {
		parts[i] = strconv.Itoa(int(day))
	}
	return strings.Join(parts, ",")
}

func decodeWeekdays(encoded string) ([]time.Weekday, error) {
	if encoded == "" {
		return nil, nil
	}
	parts := strings.Split(encoded, ",")
	days := make([]time.Weekday, 0, len(parts))
	for _, part := range parts {
		value, err := strconv.Atoi(part)
		if err != nil || value < 0 || value > 6 {
			return nil, fmt.Errorf("invalid weekday value %q", part)
		}
		days = append(days, time.Weekday(value))
	}
	return days, nil
}

func encodeStrings(values []string) string {
	return strings.Join(values, ",")
}

func decodeStrings(encoded string) []string {
	if encoded == "" {
		return nil
	}
	return strings.Split(encoded, ",")
}

func encodeDates(dates []time.Time) string {
	if len(dates) == 0 {
		return ""
	}
	parts := make([]string, len(dates))
	for i, date := range dates {
		parts[i] = date.UTC().Format(dateOnly)
	}
	return strings.Join(parts, ",")
}

func decodeDates(encoded string) ([]time.Time, error) {
	if encoded == "" {
		return nil, nil
	}
	parts := strings.Split(encoded, ",")
	dates := make([]time.Time, 0, len(parts))
	for _, part := range parts {
		date, err := time.Parse(dateOnly, part)
		if err != nil {
			return nil, fmt.Errorf("invalid date value %q: %w", part, err)
		}
		dates = append(dates, date)
	}
	return dates, nil
}

func encodeMetadata(metadata map[string]string) (string, error) {
	if len(metadata) == 0 {
		return "", nil
	}
	encoded, err := json.Marshal(metadata)
	if err != nil {
		return "", fmt.Errorf("failed to encode metadata: %w", err)
	}
	return string(encoded), nil
}

func decodeMetadata(encoded string) (map[string]string, error) {
	if encoded == "" {
		return nil, nil
	}
	var metadata map[string]string
	if err := json.Unmarshal([]byte(encoded), &metadata); err != nil {
		return nil, fmt.Errorf("failed to decode metadata: %w", err)
	}
	return metadata, nil
}

func nullableString(value *string) any {
	if value == nil {
		return nil
	}
	return *value
}

func parseStoredTime(value, column string) (time.Time, error) {
	parsed, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse %s: %w", column, err)
	}
	return parsed, nil
}
