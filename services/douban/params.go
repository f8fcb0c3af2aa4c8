package douban

import (
	"encoding/json"
	"net/url"
	"strconv"
	"strings"

	"lunagate/models"
)

const (
	defaultPageLimit = 20
	maxPageLimit     = 100
)

// selectedCategories is serialized into the recommend feed's
// selected_categories query parameter. The type key is always present, the
// other two only when a filter is active.
type selectedCategories struct {
	Type   string `json:"类型"`
	Form   string `json:"形式,omitempty"`
	Region string `json:"地区,omitempty"`
}

func isValidKind(kind string) bool {
	return kind == "tv" || kind == "movie"
}

func validatePage(limit, start int) *ValidationError {
	if limit < 1 || limit > maxPageLimit {
		return &ValidationError{Param: "pageLimit", Reason: "pageLimit 必须在 1-100 之间"}
	}
	if start < 0 {
		return &ValidationError{Param: "pageStart", Reason: "pageStart 不能小于 0"}
	}
	return nil
}

// normalizeCategoriesQuery fills the pagination default. A zero Limit means
// the caller left it unset.
func normalizeCategoriesQuery(q models.DoubanCategoriesQuery) models.DoubanCategoriesQuery {
	if q.Limit == 0 {
		q.Limit = defaultPageLimit
	}
	return q
}

func validateCategoriesQuery(q models.DoubanCategoriesQuery) error {
	if !isValidKind(q.Kind) {
		return &ValidationError{Param: "kind", Reason: "kind 参数必须是 tv 或 movie"}
	}
	if q.Category == "" || q.Type == "" {
		return &ValidationError{Param: "category", Reason: "category 和 type 参数不能为空"}
	}
	if err := validatePage(q.Limit, q.Start); err != nil {
		return err
	}
	return nil
}

func normalizeTagQuery(q models.DoubanTagQuery) models.DoubanTagQuery {
	if q.Limit == 0 {
		q.Limit = defaultPageLimit
	}
	return q
}

func validateTagQuery(q models.DoubanTagQuery) error {
	if q.Tag == "" || q.Type == "" {
		return &ValidationError{Param: "tag", Reason: "tag 和 type 参数不能为空"}
	}
	if !isValidKind(q.Type) {
		return &ValidationError{Param: "type", Reason: "type 参数必须是 tv 或 movie"}
	}
	if err := validatePage(q.Limit, q.Start); err != nil {
		return err
	}
	return nil
}

// normalizeRecommendQuery rewrites the upstream UI's "no filter selected"
// sentinels to empty strings and fills the pagination default. This pipeline
// deliberately performs no further validation.
func normalizeRecommendQuery(q models.DoubanRecommendQuery) models.DoubanRecommendQuery {
	if q.Category == "all" {
		q.Category = ""
	}
	if q.Format == "all" {
		q.Format = ""
	}
	if q.Region == "all" {
		q.Region = ""
	}
	if q.Year == "all" {
		q.Year = ""
	}
	if q.Platform == "all" {
		q.Platform = ""
	}
	if q.Sort == "T" {
		q.Sort = ""
	}
	if q.Limit == 0 {
		q.Limit = defaultPageLimit
	}
	return q
}

// recommendTags builds the tags parameter. Category wins over format; the
// remaining filters are appended in a fixed order.
func recommendTags(q models.DoubanRecommendQuery) []string {
	var tags []string
	if q.Category != "" {
		tags = append(tags, q.Category)
	} else if q.Format != "" {
		tags = append(tags, q.Format)
	}
	if q.Region != "" {
		tags = append(tags, q.Region)
	}
	if q.Year != "" {
		tags = append(tags, q.Year)
	}
	if q.Platform != "" {
		tags = append(tags, q.Platform)
	}
	return tags
}

// recommendParams assembles the recommend feed's query string from an
// already-normalized query.
func recommendParams(q models.DoubanRecommendQuery) url.Values {
	sel, _ := json.Marshal(selectedCategories{
		Type:   q.Category,
		Form:   q.Format,
		Region: q.Region,
	})

	params := url.Values{}
	params.Set("refresh", "0")
	params.Set("start", strconv.Itoa(q.Start))
	params.Set("limit", strconv.Itoa(q.Limit))
	params.Set("uncollect", "false")
	params.Set("score_range", "0,10")
	params.Set("selected_categories", string(sel))
	params.Set("tags", strings.Join(recommendTags(q), ","))
	if q.Sort != "" {
		params.Set("sort", q.Sort)
	}
	return params
}
