package server

import (
	"encoding/csv"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/ahmethakanbesel/adzuna-ads/internal/ad"
)

type APIResponse[T any] struct {
	Message string `json:"message"`
	Data    T      `json:"data"`
}

func writeJSON[T any](w http.ResponseWriter, status int, data T) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(APIResponse[T]{
		Message: "ok",
		Data:    data,
	})
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(APIResponse[string]{
		Message: message,
		Data:    "",
	})
}

var csvHeader = []string{
	"id", "title", "company", "location", "area", "created",
	"salary_min", "salary_max", "salary_is_predicted",
	"contract_type", "contract_time", "latitude", "longitude",
	"label", "tag", "redirect_url", "internship",
}

func writeCSV(w http.ResponseWriter, records []ad.Record) {
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", "attachment; filename=adzuna_ads.csv")
	w.WriteHeader(http.StatusOK)

	cw := csv.NewWriter(w)
	_ = cw.Write(csvHeader)
	for _, r := range records {
		_ = cw.Write([]string{
			r.ID,
			r.Title,
			r.CompanyName(),
			r.Location,
			strings.Join(r.Area, " > "),
			str(r.Created),
			num(r.SalaryMin),
			num(r.SalaryMax),
			integer(r.SalaryIsPredicted),
			str(r.ContractType),
			str(r.ContractTime),
			num(r.Latitude),
			num(r.Longitude),
			r.Label,
			r.Tag,
			r.RedirectURL,
			strconv.FormatBool(ad.IsInternship(r)),
		})
	}
	cw.Flush()
}

func str(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func num(f *float64) string {
	if f == nil {
		return ""
	}
	return strconv.FormatFloat(*f, 'f', -1, 64)
}

func integer(i *int) string {
	if i == nil {
		return ""
	}
	return strconv.Itoa(*i)
}
