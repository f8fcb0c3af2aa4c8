package handlers

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/sourcegraph/conc/pool"

	"lunagate/models"
)

// HomeHandler assembles the landing-page shelves in one round-trip instead
// of three separate feed requests.
type HomeHandler struct {
	Service doubanService
}

func NewHomeHandler(s doubanService) *HomeHandler {
	return &HomeHandler{Service: s}
}

// HomeResponse bundles the three landing shelves. A shelf whose upstream
// fetch failed is null; the others still render.
type HomeResponse struct {
	HotMovies    *models.DoubanResult `json:"hotMovies"`
	HotSeries    *models.DoubanResult `json:"hotSeries"`
	VarietyShows *models.DoubanResult `json:"varietyShows"`
}

// Get handles GET /api/douban/home.
func (h *HomeHandler) Get(w http.ResponseWriter, r *http.Request) {
	limit := trimAndParseInt(r.URL.Query().Get("limit"))

	shelves := []models.DoubanCategoriesQuery{
		{Kind: "movie", Category: "热门", Type: "全部", Limit: limit},
		{Kind: "tv", Category: "tv", Type: "tv", Limit: limit},
		{Kind: "tv", Category: "show", Type: "show", Limit: limit},
	}

	start := time.Now()
	results := make([]*models.DoubanResult, len(shelves))

	p := pool.New().WithMaxGoroutines(len(shelves))
	for i, q := range shelves {
		i, q := i, q // pre-1.22 loopvar: keep per-iteration capture
		p.Go(func() {
			res, err := h.Service.Categories(r.Context(), q)
			if err != nil {
				log.Printf("[home] shelf %s/%s error: %v", q.Kind, q.Category, err)
				return
			}
			results[i] = res
		})
	}
	p.Wait()

	log.Printf("[home] assembled %d shelves in %dms", len(shelves), time.Since(start).Milliseconds())

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", feedCacheControl)
	json.NewEncoder(w).Encode(HomeResponse{
		HotMovies:    results[0],
		HotSeries:    results[1],
		VarietyShows: results[2],
	})
}
