package domain

// ContentItem is one piece of fetched channel content
type ContentItem struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	URL         string     `json:"url"`
	Statistics  Statistics `json:"statistics"`
}

// Statistics holds engagement counters. A nil counter means the source did not report it.
type Statistics struct {
	ViewCount    *int64 `json:"viewCount,omitempty"`
	LikeCount    *int64 `json:"likeCount,omitempty"`
	CommentCount *int64 `json:"commentCount,omitempty"`
}

// Int64Ptr returns a pointer to n
func Int64Ptr(n int64) *int64 {
	return &n
}

// Float64Ptr returns a pointer to f
func Float64Ptr(f float64) *float64 {
	return &f
}
