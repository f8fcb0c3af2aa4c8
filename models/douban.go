package models

// DoubanItem is the canonical catalog entry produced by every douban
// pipeline. Every field is always present (possibly empty), so consumers
// can render without nil checks.
type DoubanItem struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	Poster string `json:"poster"`
	Rate   string `json:"rate"` // one-decimal numeric string, or ""
	Year   string `json:"year"` // 4-digit year, or ""
}

// DoubanResult is the envelope returned by every retrieval operation and by
// the /api/douban endpoints.
type DoubanResult struct {
	Code    int          `json:"code"`
	Message string       `json:"message"`
	List    []DoubanItem `json:"list"`
}

// DoubanCategoriesQuery selects a recent-hot category feed.
type DoubanCategoriesQuery struct {
	Kind     string `json:"kind"`     // "tv" | "movie"
	Category string `json:"category"` // e.g. "热门", "tv", "show"
	Type     string `json:"type"`     // e.g. "全部", "tv", "show"
	Limit    int    `json:"pageLimit"`
	Start    int    `json:"pageStart"`
}

// DoubanTagQuery selects a tag-search feed.
type DoubanTagQuery struct {
	Tag   string `json:"tag"`
	Type  string `json:"type"` // "tv" | "movie"
	Limit int    `json:"pageLimit"`
	Start int    `json:"pageStart"`
}

// DoubanRecommendQuery selects a recommendation feed. Filter fields may
// carry the upstream UI's "no filter" sentinels ("all", and "T" for Sort);
// those are rewritten to empty strings before the request is built. The
// caller's copy is never mutated.
type DoubanRecommendQuery struct {
	Kind     string `json:"kind"` // "tv" | "movie"
	Category string `json:"category"`
	Format   string `json:"format"`
	Region   string `json:"region"`
	Year     string `json:"year"`
	Platform string `json:"platform"`
	Sort     string `json:"sort"`
	Limit    int    `json:"pageLimit"`
	Start    int    `json:"pageStart"`
}
