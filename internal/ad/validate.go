package ad

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// FieldError describes one missing or mistyped field.
type FieldError struct {
	Field  string
	Reason string
}

// SchemaError is returned by Validate when a normalized result cannot become
// a Record. It lists every failing field, not just the first one.
type SchemaError struct {
	ID     string
	Errors []FieldError
}

func (e *SchemaError) Error() string {
	parts := make([]string, len(e.Errors))
	for i, fe := range e.Errors {
		parts[i] = fe.Field + ": " + fe.Reason
	}
	id := e.ID
	if id == "" {
		id = "<unknown>"
	}
	return fmt.Sprintf("%d validation error(s) for ad %s: %s", len(e.Errors), id, strings.Join(parts, "; "))
}

type decoder func(r *Record, v any) error

type field struct {
	name     string
	required bool
	decode   decoder
}

var schema = []field{
	{"title", true, text(func(r *Record) *string { return &r.Title })},
	{"created", false, optText(func(r *Record) **string { return &r.Created })},
	{"salary_is_predicted", false, flag(func(r *Record) **int { return &r.SalaryIsPredicted })},
	{"salary_min", false, number(func(r *Record) **float64 { return &r.SalaryMin })},
	{"salary_max", false, number(func(r *Record) **float64 { return &r.SalaryMax })},
	{"latitude", false, number(func(r *Record) **float64 { return &r.Latitude })},
	{"longitude", false, number(func(r *Record) **float64 { return &r.Longitude })},
	{"area", false, textList(func(r *Record) *[]string { return &r.Area })},
	{"location", true, text(func(r *Record) *string { return &r.Location })},
	{"id", true, text(func(r *Record) *string { return &r.ID })},
	{"adref", false, optText(func(r *Record) **string { return &r.Adref })},
	{"redirect_url", true, text(func(r *Record) *string { return &r.RedirectURL })},
	{"company", false, optText(func(r *Record) **string { return &r.Company })},
	{"description", true, text(func(r *Record) *string { return &r.Description })},
	{"contract_type", false, optText(func(r *Record) **string { return &r.ContractType })},
	{"contract_time", false, optText(func(r *Record) **string { return &r.ContractTime })},
	{"label", true, text(func(r *Record) *string { return &r.Label })},
	{"tag", true, text(func(r *Record) *string { return &r.Tag })},
}

// Validate checks a normalized result against the record schema. Required
// fields must be non-empty text; optional fields may be nil but must have the
// right type when present.
func Validate(f Fields) (Record, error) {
	var (
		r    Record
		errs []FieldError
	)
	for _, fd := range schema {
		v := f[fd.name]
		if v == nil {
			if fd.required {
				errs = append(errs, FieldError{Field: fd.name, Reason: "field required"})
			}
			continue
		}
		if err := fd.decode(&r, v); err != nil {
			errs = append(errs, FieldError{Field: fd.name, Reason: err.Error()})
			continue
		}
		if fd.required {
			if s, ok := v.(string); ok && strings.TrimSpace(s) == "" {
				errs = append(errs, FieldError{Field: fd.name, Reason: "field required"})
			}
		}
	}
	if len(errs) > 0 {
		id, _ := f["id"].(string)
		return Record{}, &SchemaError{ID: id, Errors: errs}
	}
	return r, nil
}

func text(dst func(*Record) *string) decoder {
	return func(r *Record, v any) error {
		s, ok := v.(string)
		if !ok {
			return mistyped("text", v)
		}
		*dst(r) = s
		return nil
	}
}

func optText(dst func(*Record) **string) decoder {
	return func(r *Record, v any) error {
		s, ok := v.(string)
		if !ok {
			return mistyped("text", v)
		}
		*dst(r) = &s
		return nil
	}
}

func number(dst func(*Record) **float64) decoder {
	return func(r *Record, v any) error {
		var (
			f   float64
			err error
		)
		switch n := v.(type) {
		case float64:
			f = n
		case int:
			f = float64(n)
		case json.Number:
			f, err = n.Float64()
		case string:
			f, err = strconv.ParseFloat(strings.TrimSpace(n), 64)
		default:
			return mistyped("number", v)
		}
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return fmt.Errorf("invalid number %q", fmt.Sprint(v))
		}
		*dst(r) = &f
		return nil
	}
}

func flag(dst func(*Record) **int) decoder {
	return func(r *Record, v any) error {
		var i int
		switch n := v.(type) {
		case bool:
			if n {
				i = 1
			}
		case float64:
			if math.IsInf(n, 0) || n != math.Trunc(n) {
				return fmt.Errorf("invalid integer %v", n)
			}
			i = int(n)
		case int:
			i = n
		case json.Number:
			x, err := strconv.Atoi(n.String())
			if err != nil {
				return fmt.Errorf("invalid integer %q", n)
			}
			i = x
		case string:
			x, err := strconv.Atoi(strings.TrimSpace(n))
			if err != nil {
				return fmt.Errorf("invalid integer %q", n)
			}
			i = x
		default:
			return mistyped("integer", v)
		}
		*dst(r) = &i
		return nil
	}
}

func textList(dst func(*Record) *[]string) decoder {
	return func(r *Record, v any) error {
		switch list := v.(type) {
		case []string:
			*dst(r) = list
			return nil
		case []any:
			out := make([]string, len(list))
			for i, item := range list {
				s, ok := item.(string)
				if !ok {
					return fmt.Errorf("item %d: %w", i, mistyped("text", item))
				}
				out[i] = s
			}
			*dst(r) = out
			return nil
		default:
			return mistyped("list of text", v)
		}
	}
}

func mistyped(want string, got any) error {
	return fmt.Errorf("expected %s, got %T", want, got)
}
