package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	retry "github.com/avast/retry-go/v4"

	"lunagate/models"
	"lunagate/services/douban"
)

// doubanService is the slice of the douban client the gateway endpoints and
// the home aggregate consume.
type doubanService interface {
	Categories(context.Context, models.DoubanCategoriesQuery) (*models.DoubanResult, error)
	ListByTag(context.Context, models.DoubanTagQuery) (*models.DoubanResult, error)
	Recommendations(context.Context, models.DoubanRecommendQuery) (*models.DoubanResult, error)
}

var _ doubanService = (*douban.Client)(nil)

// Feeds change slowly upstream; let intermediaries hold them briefly.
const feedCacheControl = "public, max-age=300"

// DoubanHandler serves the catalog gateway endpoints that the frontend and
// the dual-mode retrieval service's server transport consume.
type DoubanHandler struct {
	Service doubanService
}

func NewDoubanHandler(s doubanService) *DoubanHandler {
	return &DoubanHandler{Service: s}
}

// Categories handles GET /api/douban/categories.
func (h *DoubanHandler) Categories(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	req := models.DoubanCategoriesQuery{
		Kind:     strings.TrimSpace(query.Get("kind")),
		Category: strings.TrimSpace(query.Get("category")),
		Type:     strings.TrimSpace(query.Get("type")),
		Limit:    trimAndParseInt(query.Get("limit")),
		Start:    trimAndParseInt(query.Get("start")),
	}

	res, err := fetchWithRetry(r.Context(), func(ctx context.Context) (*models.DoubanResult, error) {
		return h.Service.Categories(ctx, req)
	})
	if err != nil {
		writeDoubanError(w, err)
		return
	}
	writeFeed(w, res)
}

// ListByTag handles GET /api/douban. The route speaks pageSize/pageStart,
// unlike the categories route.
func (h *DoubanHandler) ListByTag(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	req := models.DoubanTagQuery{
		Tag:   strings.TrimSpace(query.Get("tag")),
		Type:  strings.TrimSpace(query.Get("type")),
		Limit: trimAndParseInt(query.Get("pageSize")),
		Start: trimAndParseInt(query.Get("pageStart")),
	}

	res, err := fetchWithRetry(r.Context(), func(ctx context.Context) (*models.DoubanResult, error) {
		return h.Service.ListByTag(ctx, req)
	})
	if err != nil {
		writeDoubanError(w, err)
		return
	}
	writeFeed(w, res)
}

// Recommendations handles GET /api/douban/recommands. The route spelling is
// load-bearing: deployed frontends request it, so it stays.
func (h *DoubanHandler) Recommendations(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	req := models.DoubanRecommendQuery{
		Kind:     strings.TrimSpace(query.Get("kind")),
		Category: strings.TrimSpace(query.Get("category")),
		Format:   strings.TrimSpace(query.Get("format")),
		Region:   strings.TrimSpace(query.Get("region")),
		Year:     strings.TrimSpace(query.Get("year")),
		Platform: strings.TrimSpace(query.Get("platform")),
		Sort:     strings.TrimSpace(query.Get("sort")),
		Limit:    trimAndParseInt(query.Get("limit")),
		Start:    trimAndParseInt(query.Get("start")),
	}

	res, err := fetchWithRetry(r.Context(), func(ctx context.Context) (*models.DoubanResult, error) {
		return h.Service.Recommendations(ctx, req)
	})
	if err != nil {
		writeDoubanError(w, err)
		return
	}
	writeFeed(w, res)
}

// fetchWithRetry runs one fetch and retries transient upstream failures a
// single time. Validation errors surface immediately.
func fetchWithRetry(ctx context.Context, fetch func(context.Context) (*models.DoubanResult, error)) (*models.DoubanResult, error) {
	return retry.DoWithData(
		func() (*models.DoubanResult, error) { return fetch(ctx) },
		retry.Context(ctx),
		retry.Attempts(2),
		retry.Delay(200*time.Millisecond),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool {
			var verr *douban.ValidationError
			return !errors.As(err, &verr)
		}),
		retry.OnRetry(func(n uint, err error) {
			log.Printf("[douban] upstream fetch failed (attempt %d), retrying: %v", n+1, err)
		}),
	)
}

func writeFeed(w http.ResponseWriter, res *models.DoubanResult) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", feedCacheControl)
	json.NewEncoder(w).Encode(res)
}

func writeDoubanError(w http.ResponseWriter, err error) {
	w.Header().Set("Content-Type", "application/json")

	var verr *douban.ValidationError
	if errors.As(err, &verr) {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]string{"error": verr.Reason})
		return
	}

	log.Printf("[douban] upstream fetch failed: %v", err)
	w.WriteHeader(http.StatusBadGateway)
	json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}

func trimAndParseInt(value string) int {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0
	}
	return parsed
}
