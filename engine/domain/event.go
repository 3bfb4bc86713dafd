package domain

// Search kinds carried by SearchEvent.
const (
	KindVector        = "vector"
	KindKeyword       = "keyword"
	KindKeywordShared = "keyword_shared"
)

// SearchEvent describes one handled search. It is published after the
// response is written and never affects it.
type SearchEvent struct {
	Kind       string `json:"kind"`
	Query      string `json:"query,omitempty"`
	Limit      int    `json:"limit"`
	Results    int    `json:"results"`
	DurationMS int64  `json:"duration_ms"`
	Error      string `json:"error,omitempty"`
}
