package douban

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"lunagate/models"
)

const gatewayFixture = `{"code":200,"message":"获取成功","list":[{"id":"36934908","title":"好东西","poster":"https://img1.doubanio.com/m/p2916431311.jpg","rate":"8.6","year":"2024"}]}`

type fakeNotifier struct {
	messages []string
}

func (f *fakeNotifier) NotifyFetchFailure(message string) {
	f.messages = append(f.messages, message)
}

func TestServiceUsesGatewayWithoutProxy(t *testing.T) {
	upstreamCalls := 0
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		upstreamCalls++
	}))
	defer upstream.Close()

	gateway := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/douban/categories" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("kind") != "tv" || q.Get("category") != "tv" || q.Get("type") != "tv" {
			t.Errorf("unexpected query: %s", r.URL.RawQuery)
		}
		if q.Get("limit") != "20" || q.Get("start") != "0" {
			t.Errorf("unexpected pagination: %s", r.URL.RawQuery)
		}
		w.Write([]byte(gatewayFixture))
	}))
	defer gateway.Close()

	svc := NewService(ServiceOptions{
		Client:     NewClient(ClientOptions{APIHost: upstream.URL, WebHost: upstream.URL}),
		ServerBase: gateway.URL,
	})

	res, err := svc.Categories(context.Background(), models.DoubanCategoriesQuery{
		Kind: "tv", Category: "tv", Type: "tv",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.List) != 1 || res.List[0].ID != "36934908" {
		t.Errorf("unexpected result: %+v", res)
	}
	if upstreamCalls != 0 {
		t.Errorf("expected no direct upstream traffic, got %d calls", upstreamCalls)
	}
}

func TestServiceGatewayTagParameterNames(t *testing.T) {
	gateway := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/douban" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("tag") != "美剧" || q.Get("type") != "tv" {
			t.Errorf("unexpected query: %s", r.URL.RawQuery)
		}
		// The tag route speaks pageSize/pageStart, not limit/start.
		if q.Get("pageSize") != "16" || q.Get("pageStart") != "32" {
			t.Errorf("unexpected pagination: %s", r.URL.RawQuery)
		}
		w.Write([]byte(gatewayFixture))
	}))
	defer gateway.Close()

	svc := NewService(ServiceOptions{ServerBase: gateway.URL})
	_, err := svc.ListByTag(context.Background(), models.DoubanTagQuery{
		Tag: "美剧", Type: "tv", Limit: 16, Start: 32,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestServiceGatewayRecommendRoute(t *testing.T) {
	gateway := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/douban/recommands" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("kind") != "movie" || q.Get("category") != "喜剧" {
			t.Errorf("unexpected query: %s", r.URL.RawQuery)
		}
		if q.Get("year") != "" {
			t.Errorf("expected all sentinel cleared, got %q", q.Get("year"))
		}
		w.Write([]byte(gatewayFixture))
	}))
	defer gateway.Close()

	svc := NewService(ServiceOptions{ServerBase: gateway.URL})
	_, err := svc.Recommendations(context.Background(), models.DoubanRecommendQuery{
		Kind: "movie", Category: "喜剧", Year: "all",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestServiceUsesClientWithProxy(t *testing.T) {
	gatewayCalls := 0
	gateway := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gatewayCalls++
	}))
	defer gateway.Close()

	proxy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"total": 0, "items": []}`))
	}))
	defer proxy.Close()

	svc := NewService(ServiceOptions{
		Client:     NewClient(ClientOptions{Resolver: StaticProxy(proxy.URL + "/?url=")}),
		ServerBase: gateway.URL,
	})

	_, err := svc.Categories(context.Background(), models.DoubanCategoriesQuery{
		Kind: "movie", Category: "热门", Type: "全部",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gatewayCalls != 0 {
		t.Errorf("expected proxy transport to bypass the gateway, got %d calls", gatewayCalls)
	}
}

func TestServiceGatewayFailureFallsBackThroughRelay(t *testing.T) {
	gatewayCalls := 0
	gateway := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gatewayCalls++
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer gateway.Close()

	relayCalls := 0
	relay := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		relayCalls++
		if !strings.HasPrefix(r.RequestURI, "/https://m.douban.com/") {
			t.Errorf("unexpected relay request %q", r.RequestURI)
		}
		w.Write([]byte(categoriesFixture))
	}))
	defer relay.Close()

	svc := NewService(ServiceOptions{
		Client:     NewClient(ClientOptions{RelayBase: relay.URL + "/"}),
		ServerBase: gateway.URL,
	})

	res, err := svc.Categories(context.Background(), models.DoubanCategoriesQuery{
		Kind: "movie", Category: "热门", Type: "全部",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gatewayCalls != 1 {
		t.Errorf("expected 1 gateway call, got %d", gatewayCalls)
	}
	if relayCalls != 1 {
		t.Errorf("expected exactly 1 relay call, got %d", relayCalls)
	}
	if len(res.List) != 3 {
		t.Errorf("expected relay result, got %+v", res)
	}
}

func TestServiceGatewayUnreachableFallsBackThroughRelay(t *testing.T) {
	gateway := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	gatewayURL := gateway.URL
	gateway.Close()

	relayCalls := 0
	relay := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		relayCalls++
		w.Write([]byte(categoriesFixture))
	}))
	defer relay.Close()

	svc := NewService(ServiceOptions{
		Client:     NewClient(ClientOptions{RelayBase: relay.URL + "/"}),
		ServerBase: gatewayURL,
	})

	_, err := svc.Categories(context.Background(), models.DoubanCategoriesQuery{
		Kind: "movie", Category: "热门", Type: "全部",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if relayCalls != 1 {
		t.Errorf("expected exactly 1 relay call, got %d", relayCalls)
	}
}

func TestServiceGatewayDecodeFailureDoesNotFallBack(t *testing.T) {
	gateway := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>oops</html>"))
	}))
	defer gateway.Close()

	relayCalls := 0
	relay := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		relayCalls++
	}))
	defer relay.Close()

	notifier := &fakeNotifier{}
	svc := NewService(ServiceOptions{
		Client:     NewClient(ClientOptions{RelayBase: relay.URL + "/"}),
		ServerBase: gateway.URL,
		Notifier:   notifier,
	})

	_, err := svc.Categories(context.Background(), models.DoubanCategoriesQuery{
		Kind: "movie", Category: "热门", Type: "全部",
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "获取豆瓣分类数据失败") {
		t.Errorf("expected localized wrap, got %v", err)
	}
	if relayCalls != 0 {
		t.Errorf("decode failure must not reach the relay, got %d calls", relayCalls)
	}
	if len(notifier.messages) != 1 {
		t.Errorf("expected 1 notification, got %d", len(notifier.messages))
	}
}

func TestServiceProxyFailureDoesNotFallBack(t *testing.T) {
	proxy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer proxy.Close()

	relayCalls := 0
	relay := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		relayCalls++
	}))
	defer relay.Close()

	notifier := &fakeNotifier{}
	svc := NewService(ServiceOptions{
		Client: NewClient(ClientOptions{
			Resolver:  StaticProxy(proxy.URL + "/?url="),
			RelayBase: relay.URL + "/",
		}),
		Notifier: notifier,
	})

	_, err := svc.ListByTag(context.Background(), models.DoubanTagQuery{Tag: "热门", Type: "movie"})
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "获取豆瓣数据失败") {
		t.Errorf("expected localized wrap, got %v", err)
	}
	if relayCalls != 0 {
		t.Errorf("proxy failures must not reach the relay, got %d calls", relayCalls)
	}
	if len(notifier.messages) != 1 || !strings.Contains(notifier.messages[0], "获取豆瓣数据失败") {
		t.Errorf("expected tag failure notification, got %v", notifier.messages)
	}
}

func TestServiceRecommendFailureStaysSilent(t *testing.T) {
	gateway := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer gateway.Close()

	relay := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer relay.Close()

	notifier := &fakeNotifier{}
	svc := NewService(ServiceOptions{
		Client:     NewClient(ClientOptions{RelayBase: relay.URL + "/"}),
		ServerBase: gateway.URL,
		Notifier:   notifier,
	})

	_, err := svc.Recommendations(context.Background(), models.DoubanRecommendQuery{Kind: "movie"})
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "获取豆瓣推荐数据失败") {
		t.Errorf("expected localized wrap, got %v", err)
	}
	if len(notifier.messages) != 0 {
		t.Errorf("recommendations must not notify, got %v", notifier.messages)
	}
}

func TestServiceValidationStaysLocal(t *testing.T) {
	gatewayCalls := 0
	gateway := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gatewayCalls++
	}))
	defer gateway.Close()

	notifier := &fakeNotifier{}
	svc := NewService(ServiceOptions{ServerBase: gateway.URL, Notifier: notifier})

	_, err := svc.Categories(context.Background(), models.DoubanCategoriesQuery{
		Kind: "movie", Category: "", Type: "全部",
	})

	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError in chain, got %v", err)
	}
	if gatewayCalls != 0 {
		t.Errorf("validation must not hit the gateway, got %d calls", gatewayCalls)
	}
	if len(notifier.messages) != 0 {
		t.Errorf("validation errors must not notify, got %v", notifier.messages)
	}
}
