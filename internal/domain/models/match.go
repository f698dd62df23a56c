package models

import "time"

// MatchResult is one ranked candidate. Lower distance means more similar.
type MatchResult struct {
	Name     string  `json:"name"`
	Distance float64 `json:"distance"`
}

// SeriesView is the plain data a renderer needs for one series.
type SeriesView struct {
	Name       string      `json:"name"`
	Timestamps []time.Time `json:"timestamps"`
	Values     []float64   `json:"values"`
}

// MatchedPair is a (query, match, distance) tuple handed to visualization.
type MatchedPair struct {
	Query    SeriesView `json:"query"`
	Match    SeriesView `json:"match"`
	Distance float64    `json:"distance"`
}

// MatchReport is the outcome of one ranking call.
// Note: no transport (json/http) logic here beyond field tags.
type MatchReport struct {
	Query      string            `json:"query"`
	Period     int               `json:"period"`
	Mode       string            `json:"mode"`
	Candidates int               `json:"candidates"`
	Results    []MatchResult     `json:"results"`
	Matches    []MatchedPair     `json:"matches,omitempty"`
	Failures   map[string]string `json:"failures,omitempty"`
	Timestamp  time.Time         `json:"timestamp"`
}

// Names returns the ranked candidate names in order.
func (r *MatchReport) Names() []string {
	out := make([]string, len(r.Results))
	for i, res := range r.Results {
		out[i] = res.Name
	}
	return out
}
