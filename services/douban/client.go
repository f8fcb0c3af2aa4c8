package douban

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"time"

	"lunagate/models"
)

// Upstream defaults. The recent-hot and recommend feeds live on the mobile
// API host, tag search on the web host.
const (
	DefaultWebHost   = "https://movie.douban.com"
	DefaultAPIHost   = "https://m.douban.com"
	DefaultRelayBase = "https://cors.eu.org/"
	DefaultTimeout   = 10 * time.Second
)

const successMessage = "获取成功"

// yearPattern picks the first 4-digit run out of a card subtitle like
// "2024-01-12(中国大陆) / 剧情 / ...".
var yearPattern = regexp.MustCompile(`\d{4}`)

// ClientOptions configures a Client. Zero values fall back to the public
// douban hosts, the public CORS relay and the 10-second request timeout.
type ClientOptions struct {
	WebHost    string
	APIHost    string
	RelayBase  string
	Timeout    time.Duration
	Resolver   ProxyResolver
	HTTPClient *http.Client
}

// Client fetches douban catalog feeds straight from the upstream hosts and
// normalizes the three feed schemas into models.DoubanResult. A Client is
// stateless and safe for concurrent use.
type Client struct {
	httpc     *http.Client
	webHost   string
	apiHost   string
	relayBase string
	timeout   time.Duration
	resolver  ProxyResolver
}

// NewClient creates a douban client.
func NewClient(opts ClientOptions) *Client {
	c := &Client{
		httpc:     opts.HTTPClient,
		webHost:   opts.WebHost,
		apiHost:   opts.APIHost,
		relayBase: opts.RelayBase,
		timeout:   opts.Timeout,
		resolver:  opts.Resolver,
	}
	if c.httpc == nil {
		c.httpc = &http.Client{}
	}
	if c.webHost == "" {
		c.webHost = DefaultWebHost
	}
	if c.apiHost == "" {
		c.apiHost = DefaultAPIHost
	}
	if c.relayBase == "" {
		c.relayBase = DefaultRelayBase
	}
	if c.timeout <= 0 {
		c.timeout = DefaultTimeout
	}
	return c
}

// recent_hot feed schema.
type categoryPayload struct {
	Total int            `json:"total"`
	Items []categoryItem `json:"items"`
}

type categoryItem struct {
	ID           string   `json:"id"`
	Title        string   `json:"title"`
	CardSubtitle string   `json:"card_subtitle"`
	Pic          *picture `json:"pic"`
	Rating       *rating  `json:"rating"`
}

// search_subjects feed schema.
type tagPayload struct {
	Total    int          `json:"total"`
	Subjects []tagSubject `json:"subjects"`
}

type tagSubject struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	CardSubtitle string `json:"card_subtitle"`
	Cover        string `json:"cover"`
	Rate         string `json:"rate"`
}

// recommend feed schema.
type recommendPayload struct {
	Total int             `json:"total"`
	Items []recommendItem `json:"items"`
}

type recommendItem struct {
	ID     string   `json:"id"`
	Title  string   `json:"title"`
	Year   string   `json:"year"`
	Type   string   `json:"type"`
	Pic    *picture `json:"pic"`
	Rating *rating  `json:"rating"`
}

type picture struct {
	Large  string `json:"large"`
	Normal string `json:"normal"`
}

type rating struct {
	Value float64 `json:"value"`
}

// Categories retrieves a recent-hot category feed.
func (c *Client) Categories(ctx context.Context, q models.DoubanCategoriesQuery) (*models.DoubanResult, error) {
	return c.categories(ctx, q, false)
}

func (c *Client) categories(ctx context.Context, q models.DoubanCategoriesQuery, relay bool) (*models.DoubanResult, error) {
	q = normalizeCategoriesQuery(q)
	if err := validateCategoriesQuery(q); err != nil {
		return nil, err
	}

	target := fmt.Sprintf("%s/rexxar/api/v2/subject/recent_hot/%s?start=%d&limit=%d&category=%s&type=%s",
		c.apiHost, q.Kind, q.Start, q.Limit, url.QueryEscape(q.Category), url.QueryEscape(q.Type))

	var payload categoryPayload
	if err := c.fetchJSON(ctx, target, relay, &payload); err != nil {
		return nil, err
	}
	return &models.DoubanResult{
		Code:    http.StatusOK,
		Message: successMessage,
		List:    categoryList(payload.Items),
	}, nil
}

// ListByTag retrieves a tag-search feed.
func (c *Client) ListByTag(ctx context.Context, q models.DoubanTagQuery) (*models.DoubanResult, error) {
	return c.listByTag(ctx, q, false)
}

func (c *Client) listByTag(ctx context.Context, q models.DoubanTagQuery, relay bool) (*models.DoubanResult, error) {
	q = normalizeTagQuery(q)
	if err := validateTagQuery(q); err != nil {
		return nil, err
	}

	target := fmt.Sprintf("%s/j/search_subjects?type=%s&tag=%s&sort=recommend&page_limit=%d&page_start=%d",
		c.webHost, q.Type, url.QueryEscape(q.Tag), q.Limit, q.Start)

	var payload tagPayload
	if err := c.fetchJSON(ctx, target, relay, &payload); err != nil {
		return nil, err
	}
	return &models.DoubanResult{
		Code:    http.StatusOK,
		Message: successMessage,
		List:    tagList(payload.Subjects),
	}, nil
}

// Recommendations retrieves a recommendation feed. Unlike the other two
// pipelines this one does not validate its parameters; the upstream contract
// tolerates (and the original callers rely on) raw passthrough.
func (c *Client) Recommendations(ctx context.Context, q models.DoubanRecommendQuery) (*models.DoubanResult, error) {
	return c.recommendations(ctx, q, false)
}

func (c *Client) recommendations(ctx context.Context, q models.DoubanRecommendQuery, relay bool) (*models.DoubanResult, error) {
	q = normalizeRecommendQuery(q)

	target := fmt.Sprintf("%s/rexxar/api/v2/%s/recommend?%s",
		c.apiHost, q.Kind, recommendParams(q).Encode())

	var payload recommendPayload
	if err := c.fetchJSON(ctx, target, relay, &payload); err != nil {
		return nil, err
	}
	return &models.DoubanResult{
		Code:    http.StatusOK,
		Message: successMessage,
		List:    recommendList(payload.Items),
	}, nil
}

func categoryList(items []categoryItem) []models.DoubanItem {
	list := make([]models.DoubanItem, 0, len(items))
	for _, it := range items {
		list = append(list, models.DoubanItem{
			ID:     it.ID,
			Title:  it.Title,
			Poster: posterOf(it.Pic),
			Rate:   rateOf(it.Rating),
			Year:   yearPattern.FindString(it.CardSubtitle),
		})
	}
	return list
}

func tagList(subjects []tagSubject) []models.DoubanItem {
	list := make([]models.DoubanItem, 0, len(subjects))
	for _, s := range subjects {
		list = append(list, models.DoubanItem{
			ID:     s.ID,
			Title:  s.Title,
			Poster: s.Cover,
			Rate:   s.Rate,
			Year:   yearPattern.FindString(s.CardSubtitle),
		})
	}
	return list
}

// recommendList keeps movie and tv entries only; the recommend feed mixes in
// books and music which the catalog UI cannot play.
func recommendList(items []recommendItem) []models.DoubanItem {
	list := make([]models.DoubanItem, 0, len(items))
	for _, it := range items {
		if it.Type != "movie" && it.Type != "tv" {
			continue
		}
		list = append(list, models.DoubanItem{
			ID:     it.ID,
			Title:  it.Title,
			Poster: posterOf(it.Pic),
			Rate:   rateOf(it.Rating),
			Year:   it.Year,
		})
	}
	return list
}

// posterOf prefers the normal-size poster and falls back to the large one.
func posterOf(p *picture) string {
	if p == nil {
		return ""
	}
	if p.Normal != "" {
		return p.Normal
	}
	return p.Large
}

// rateOf formats a rating to one decimal. Absent and zero ratings both read
// as "not yet rated" upstream and map to the empty string.
func rateOf(r *rating) string {
	if r == nil || r.Value == 0 {
		return ""
	}
	return strconv.FormatFloat(r.Value, 'f', 1, 64)
}
