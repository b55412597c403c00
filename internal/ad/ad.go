// Package ad turns raw Adzuna search results into validated job records.
package ad

import "strings"

// Record is a validated job advertisement. Optional values are pointers and
// are written as null when the source omits them.
type Record struct {
	Title             string   `json:"title"`
	Created           *string  `json:"created"`
	SalaryIsPredicted *int     `json:"salary_is_predicted"`
	SalaryMin         *float64 `json:"salary_min"`
	SalaryMax         *float64 `json:"salary_max"`
	Latitude          *float64 `json:"latitude"`
	Longitude         *float64 `json:"longitude"`
	Area              []string `json:"area"`
	Location          string   `json:"location"`
	ID                string   `json:"id"`
	Adref             *string  `json:"adref"`
	RedirectURL       string   `json:"redirect_url"`
	Company           *string  `json:"company"`
	Description       string   `json:"description"`
	ContractType      *string  `json:"contract_type"`
	ContractTime      *string  `json:"contract_time"`
	Label             string   `json:"label"`
	Tag               string   `json:"tag"`
}

// HasCoordinates reports whether the ad can be placed on a map.
func (r Record) HasCoordinates() bool {
	return r.Latitude != nil && r.Longitude != nil
}

// CompanyName returns the company display name or "" when unknown.
func (r Record) CompanyName() string {
	if r.Company == nil {
		return ""
	}
	return *r.Company
}

// IsInternship reports whether the title looks like an internship or
// work-study ("alternance") offer.
func IsInternship(r Record) bool {
	for _, kw := range []string{"alternance", "Alternance", "stage", "Stage"} {
		if strings.Contains(r.Title, kw) {
			return true
		}
	}
	return false
}

// Parse normalizes and validates one raw search result.
func Parse(raw map[string]any) (Record, error) {
	return Validate(Normalize(raw))
}
