package douban

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"lunagate/models"
)

// Localized messages wrapped around pipeline failures.
const (
	categoriesFailureMsg = "获取豆瓣分类数据失败"
	tagFailureMsg        = "获取豆瓣数据失败"
	recommendFailureMsg  = "获取豆瓣推荐数据失败"
)

// FailureNotifier receives the localized description of a failed catalog
// retrieval. The categories and tag-list pipelines report non-validation
// failures through it; the recommendations pipeline does not.
type FailureNotifier interface {
	NotifyFetchFailure(message string)
}

// NotifierFunc adapts a plain function to a FailureNotifier.
type NotifierFunc func(message string)

func (f NotifierFunc) NotifyFetchFailure(message string) { f(message) }

// ServiceOptions configures a Service.
type ServiceOptions struct {
	// Client performs the direct and relay upstream fetches. Its resolver
	// also decides the transport mode. A nil Client gets default options.
	Client *Client
	// ServerBase is the base URL of the local gateway, e.g.
	// "http://127.0.0.1:8080". Used only when no proxy is configured.
	ServerBase string
	// HTTPClient carries the gateway requests; independent of the douban
	// client so gateway calls never wear the spoofed browser headers.
	HTTPClient *http.Client
	Notifier   FailureNotifier
	Timeout    time.Duration
}

// Service retrieves douban catalog feeds through one of two transports.
// When the client's resolver supplies a proxy base, feeds are fetched
// upstream directly. Otherwise the local gateway endpoints serve them, and
// a failing gateway is retried exactly once upstream through the CORS
// relay. Resolver-path failures never fall back.
type Service struct {
	client     *Client
	serverBase string
	httpc      *http.Client
	notifier   FailureNotifier
	timeout    time.Duration
}

// NewService creates a dual-mode douban service.
func NewService(opts ServiceOptions) *Service {
	s := &Service{
		client:     opts.Client,
		serverBase: strings.TrimRight(opts.ServerBase, "/"),
		httpc:      opts.HTTPClient,
		notifier:   opts.Notifier,
		timeout:    opts.Timeout,
	}
	if s.client == nil {
		s.client = NewClient(ClientOptions{})
	}
	if s.httpc == nil {
		s.httpc = &http.Client{}
	}
	if s.timeout <= 0 {
		s.timeout = DefaultTimeout
	}
	return s
}

func (s *Service) useClientTransport() bool {
	return s.client.proxyBase() != ""
}

// Categories retrieves a recent-hot category feed through the configured
// transport.
func (s *Service) Categories(ctx context.Context, q models.DoubanCategoriesQuery) (*models.DoubanResult, error) {
	if s.useClientTransport() {
		res, err := s.client.categories(ctx, q, false)
		if err != nil {
			return nil, s.fail(categoriesFailureMsg, err)
		}
		return res, nil
	}

	q = normalizeCategoriesQuery(q)
	if err := validateCategoriesQuery(q); err != nil {
		return nil, s.fail(categoriesFailureMsg, err)
	}

	endpoint := fmt.Sprintf("%s/api/douban/categories?kind=%s&category=%s&type=%s&limit=%d&start=%d",
		s.serverBase, q.Kind, url.QueryEscape(q.Category), url.QueryEscape(q.Type), q.Limit, q.Start)

	res, err := s.fetchGateway(ctx, endpoint)
	if err == nil {
		return res, nil
	}
	var terr *TransportError
	if errors.As(err, &terr) {
		log.Printf("[douban] gateway categories fetch failed, retrying through relay: %v", err)
		res, err = s.client.categories(ctx, q, true)
		if err != nil {
			return nil, s.fail(categoriesFailureMsg, err)
		}
		return res, nil
	}
	return nil, s.fail(categoriesFailureMsg, err)
}

// ListByTag retrieves a tag-search feed through the configured transport.
func (s *Service) ListByTag(ctx context.Context, q models.DoubanTagQuery) (*models.DoubanResult, error) {
	if s.useClientTransport() {
		res, err := s.client.listByTag(ctx, q, false)
		if err != nil {
			return nil, s.fail(tagFailureMsg, err)
		}
		return res, nil
	}

	q = normalizeTagQuery(q)
	if err := validateTagQuery(q); err != nil {
		return nil, s.fail(tagFailureMsg, err)
	}

	endpoint := fmt.Sprintf("%s/api/douban?tag=%s&type=%s&pageSize=%d&pageStart=%d",
		s.serverBase, url.QueryEscape(q.Tag), url.QueryEscape(q.Type), q.Limit, q.Start)

	res, err := s.fetchGateway(ctx, endpoint)
	if err == nil {
		return res, nil
	}
	var terr *TransportError
	if errors.As(err, &terr) {
		log.Printf("[douban] gateway tag fetch failed, retrying through relay: %v", err)
		res, err = s.client.listByTag(ctx, q, true)
		if err != nil {
			return nil, s.fail(tagFailureMsg, err)
		}
		return res, nil
	}
	return nil, s.fail(tagFailureMsg, err)
}

// Recommendations retrieves a recommendation feed through the configured
// transport. Failures wrap the localized message but are not pushed to the
// notifier.
func (s *Service) Recommendations(ctx context.Context, q models.DoubanRecommendQuery) (*models.DoubanResult, error) {
	if s.useClientTransport() {
		res, err := s.client.recommendations(ctx, q, false)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", recommendFailureMsg, err)
		}
		return res, nil
	}

	q = normalizeRecommendQuery(q)

	endpoint := fmt.Sprintf("%s/api/douban/recommands?kind=%s&limit=%d&start=%d&category=%s&format=%s&region=%s&year=%s&platform=%s&sort=%s",
		s.serverBase, q.Kind, q.Limit, q.Start,
		url.QueryEscape(q.Category), url.QueryEscape(q.Format), url.QueryEscape(q.Region),
		url.QueryEscape(q.Year), url.QueryEscape(q.Platform), url.QueryEscape(q.Sort))

	res, err := s.fetchGateway(ctx, endpoint)
	if err == nil {
		return res, nil
	}
	var terr *TransportError
	if errors.As(err, &terr) {
		log.Printf("[douban] gateway recommend fetch failed, retrying through relay: %v", err)
		res, err = s.client.recommendations(ctx, q, true)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", recommendFailureMsg, err)
		}
		return res, nil
	}
	return nil, fmt.Errorf("%s: %w", recommendFailureMsg, err)
}

// fetchGateway performs one GET against a local gateway endpoint. It shares
// the transport-error taxonomy with Client.fetchJSON: a bad status or a
// failed request reports *TransportError and is eligible for the relay
// fallback, a body that does not decode is not.
func (s *Service) fetchGateway(ctx context.Context, endpoint string) (*models.DoubanResult, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("douban: build gateway request %s: %w", endpoint, err)
	}
	resp, err := s.httpc.Do(req)
	if err != nil {
		return nil, &TransportError{URL: endpoint, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &TransportError{URL: endpoint, Status: resp.StatusCode}
	}

	var out models.DoubanResult
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("douban: decode gateway %s: %w", endpoint, err)
	}
	return &out, nil
}

// fail wraps err with the pipeline's localized message and reports the
// result to the notifier. Validation errors are caller mistakes rather than
// fetch failures and are never reported.
func (s *Service) fail(msg string, err error) error {
	wrapped := fmt.Errorf("%s: %w", msg, err)
	var verr *ValidationError
	if s.notifier != nil && !errors.As(err, &verr) {
		s.notifier.NotifyFetchFailure(wrapped.Error())
	}
	return wrapped
}
