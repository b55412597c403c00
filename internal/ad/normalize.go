package ad

import (
	"encoding/json"
	"strconv"
)

// Fields is a flat, still loosely typed view of one search result, keyed by
// the JSON names of Record.
type Fields map[string]any

// Normalize flattens a raw search result. It never fails: a missing key path
// yields a nil value, and type problems are left for Validate to report.
func Normalize(raw map[string]any) Fields {
	location := object(raw, "location")
	company := object(raw, "company")
	category := object(raw, "category")

	return Fields{
		"title":               raw["title"],
		"created":             raw["created"],
		"salary_is_predicted": raw["salary_is_predicted"],
		"salary_min":          raw["salary_min"],
		"salary_max":          raw["salary_max"],
		"latitude":            raw["latitude"],
		"longitude":           raw["longitude"],
		"location":            location["display_name"],
		"area":                location["area"],
		"id":                  identifier(raw["id"]),
		"adref":               raw["adref"],
		"redirect_url":        raw["redirect_url"],
		"company":             company["display_name"],
		"description":         raw["description"],
		"contract_type":       raw["contract_type"],
		"contract_time":       raw["contract_time"],
		"label":               category["label"],
		"tag":                 category["tag"],
	}
}

// object returns the nested object under key, or nil when it is absent or
// not an object. Indexing a nil map is safe, so callers need no checks.
func object(raw map[string]any, key string) map[string]any {
	m, _ := raw[key].(map[string]any)
	return m
}

// identifier coerces numeric ids to their text form so the same ad gets the
// same id whether the API sent 12345 or "12345".
func identifier(v any) any {
	switch id := v.(type) {
	case json.Number:
		if _, err := id.Int64(); err == nil {
			return id.String()
		}
		if f, err := id.Float64(); err == nil {
			return strconv.FormatFloat(f, 'f', -1, 64)
		}
		return id.String()
	case float64:
		return strconv.FormatFloat(id, 'f', -1, 64)
	case int:
		return strconv.Itoa(id)
	case int64:
		return strconv.FormatInt(id, 10)
	default:
		return v
	}
}
