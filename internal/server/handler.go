package server

import (
	"context"
	"errors"
	"html/template"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/ahmethakanbesel/adzuna-ads/internal/ad"
	"github.com/ahmethakanbesel/adzuna-ads/internal/adzuna"
	"github.com/ahmethakanbesel/adzuna-ads/internal/apperror"
	"github.com/ahmethakanbesel/adzuna-ads/internal/geocode"
	"github.com/ahmethakanbesel/adzuna-ads/internal/snapshot"
)

// AdSearcher fetches one page of raw search results.
type AdSearcher interface {
	Results(ctx context.Context, q adzuna.Query, page int) ([]map[string]any, error)
}

// Geocoder resolves a place name to coordinates.
type Geocoder interface {
	Lookup(ctx context.Context, q string) (geocode.Point, bool)
}

// Deps are the collaborators the HTTP layer needs.
type Deps struct {
	Ads         AdSearcher
	Geocoder    Geocoder
	SnapshotDir string
	Defaults    adzuna.Query
}

type handler struct {
	deps Deps
	tmpl *template.Template
}

type searchResponse struct {
	Query   adzuna.Query `json:"query"`
	Dropped int          `json:"dropped"`
	Ads     []ad.Record  `json:"ads"`
}

type snapshotResponse struct {
	Date string      `json:"date"`
	File string      `json:"file"`
	Ads  []ad.Record `json:"ads"`
}

type marker struct {
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
	Title   string  `json:"title"`
	Company string  `json:"company"`
	URL     string  `json:"url"`
}

type pageData struct {
	Where    string
	Distance int
	Searched bool
	Error    string
	Ads      []ad.Record
	Dropped  int
	Center   *geocode.Point
	Markers  []marker
}

func (h *handler) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *handler) index(w http.ResponseWriter, r *http.Request) {
	h.render(w, http.StatusOK, pageData{Distance: h.deps.Defaults.Distance})
}

func (h *handler) searchPage(w http.ResponseWriter, r *http.Request) {
	req, appErr := parseSearchRequest(r, h.deps.Defaults)
	data := pageData{Where: req.Where, Distance: req.Distance, Searched: true}
	if data.Distance < minRadius || data.Distance > maxRadius {
		data.Distance = h.deps.Defaults.Distance
	}
	if appErr != nil {
		data.Error = appErr.Message()
		h.render(w, appErr.HTTPStatus(), data)
		return
	}

	records, dropped, err := h.search(r.Context(), req)
	if err != nil {
		data.Error = errorMessage(err)
		h.render(w, errorStatus(err), data)
		return
	}
	data.Ads = records
	data.Dropped = dropped

	if p, ok := h.deps.Geocoder.Lookup(r.Context(), req.Where); ok {
		data.Center = &p
	}
	for _, rec := range records {
		if !rec.HasCoordinates() {
			continue
		}
		data.Markers = append(data.Markers, marker{
			Lat:     *rec.Latitude,
			Lon:     *rec.Longitude,
			Title:   rec.Title,
			Company: rec.CompanyName(),
			URL:     rec.RedirectURL,
		})
	}
	if data.Center == nil && len(data.Markers) > 0 {
		data.Center = &geocode.Point{Lat: data.Markers[0].Lat, Lon: data.Markers[0].Lon}
	}

	h.render(w, http.StatusOK, data)
}

func (h *handler) searchAds(w http.ResponseWriter, r *http.Request) {
	req, appErr := parseSearchRequest(r, h.deps.Defaults)
	if appErr != nil {
		writeError(w, appErr.HTTPStatus(), appErr.Message())
		return
	}

	records, dropped, err := h.search(r.Context(), req)
	if err != nil {
		writeError(w, errorStatus(err), errorMessage(err))
		return
	}

	if req.Format == "csv" {
		writeCSV(w, records)
		return
	}
	writeJSON(w, http.StatusOK, searchResponse{Query: req.Query(), Dropped: dropped, Ads: records})
}

func (h *handler) lookup(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		writeError(w, http.StatusBadRequest, "q query parameter is required")
		return
	}
	p, ok := h.deps.Geocoder.Lookup(r.Context(), q)
	if !ok {
		writeError(w, http.StatusNotFound, "no coordinates found")
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *handler) latestSnapshot(w http.ResponseWriter, _ *http.Request) {
	path, err := snapshot.Latest(h.deps.SnapshotDir)
	if errors.Is(err, snapshot.ErrNotFound) {
		writeError(w, http.StatusNotFound, "no snapshot available")
		return
	}
	if err != nil {
		slog.Error("list snapshots", "error", err)
		writeError(w, http.StatusInternalServerError, "could not list snapshots")
		return
	}

	records, err := snapshot.Read(path)
	if err != nil {
		slog.Error("read snapshot", "path", path, "error", err)
		writeError(w, http.StatusInternalServerError, "could not read snapshot")
		return
	}
	date, _ := snapshot.DateOf(path)
	writeJSON(w, http.StatusOK, snapshotResponse{
		Date: date.Format("2006-01-02"),
		File: filepath.Base(path),
		Ads:  records,
	})
}

// search runs a single-page search and validates the results. Ads that fail
// validation are skipped and counted.
func (h *handler) search(ctx context.Context, req SearchRequest) ([]ad.Record, int, error) {
	raws, err := h.deps.Ads.Results(ctx, req.Query(), 1)
	if err != nil {
		requestLogger(ctx).Error("job search failed", "where", req.Where, "distance", req.Distance, "error", err)
		return nil, 0, apperror.Wrap(apperror.BadGateway, "job search failed, please retry later", err)
	}

	records := make([]ad.Record, 0, len(raws))
	dropped := 0
	for _, raw := range raws {
		rec, err := ad.Parse(raw)
		if err != nil {
			requestLogger(ctx).Debug("ad dropped", "error", err)
			dropped++
			continue
		}
		records = append(records, rec)
	}
	return records, dropped, nil
}

func (h *handler) render(w http.ResponseWriter, status int, data pageData) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := h.tmpl.ExecuteTemplate(w, "index.html", data); err != nil {
		slog.Error("render page", "error", err)
	}
}

func errorStatus(err error) int {
	var ae *apperror.AppError
	if errors.As(err, &ae) {
		return ae.HTTPStatus()
	}
	return http.StatusInternalServerError
}

func errorMessage(err error) string {
	var ae *apperror.AppError
	if errors.As(err, &ae) {
		return ae.Message()
	}
	return "internal server error"
}
