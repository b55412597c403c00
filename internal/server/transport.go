package server

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/ahmethakanbesel/adzuna-ads/internal/adzuna"
	"github.com/ahmethakanbesel/adzuna-ads/internal/apperror"
)

const (
	minRadius = 1
	maxRadius = 100
)

// SearchRequest is one search submitted from the page or the JSON API.
type SearchRequest struct {
	What     string
	Where    string
	Distance int
	Category string
	Format   string // "json" or "csv"
}

func parseSearchRequest(r *http.Request, defaults adzuna.Query) (SearchRequest, *apperror.AppError) {
	q := r.URL.Query()
	req := SearchRequest{
		What:     strings.TrimSpace(q.Get("what")),
		Where:    strings.TrimSpace(q.Get("where")),
		Category: strings.TrimSpace(q.Get("category")),
		Distance: defaults.Distance,
		Format:   q.Get("format"),
	}
	if req.What == "" {
		req.What = defaults.What
	}
	if v := q.Get("distance"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return req, apperror.New(apperror.BadRequest, "distance must be an integer")
		}
		req.Distance = n
	}
	return req, req.Validate()
}

func (r SearchRequest) Validate() *apperror.AppError {
	if r.Where == "" {
		return apperror.New(apperror.BadRequest, "please enter a location")
	}
	if r.Distance < minRadius || r.Distance > maxRadius {
		return apperror.New(apperror.BadRequest, "distance must be between 1 and 100 km")
	}
	if r.Format != "" && r.Format != "json" && r.Format != "csv" {
		return apperror.New(apperror.BadRequest, "format must be json or csv")
	}
	return nil
}

// Query converts the request into search parameters.
func (r SearchRequest) Query() adzuna.Query {
	return adzuna.Query{
		What:     r.What,
		Where:    r.Where,
		Distance: r.Distance,
		Category: r.Category,
	}
}
