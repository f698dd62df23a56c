package models

// CreateSeriesRequest uploads a table and stores the series built from it.
type CreateSeriesRequest struct {
	Name      string   `json:"name" validate:"required,max=200"`
	Target    string   `json:"target" validate:"required"`
	Threshold float64  `json:"threshold" validate:"gte=0,lte=1"`
	Columns   []Column `json:"columns" validate:"required,min=2,dive"`
}

// MatchRequest ranks stored series against either a stored series
// (QueryName) or an uploaded table (Name, Target, Columns). A missing N uses
// the configured neighbor count.
type MatchRequest struct {
	QueryName string   `json:"query_name" validate:"required_without=Name"`
	Name      string   `json:"name" validate:"required_without=QueryName"`
	Target    string   `json:"target" validate:"required_with=Name"`
	Threshold float64  `json:"threshold" validate:"gte=0,lte=1"`
	Columns   []Column `json:"columns" validate:"omitempty,min=2,dive"`
	N         *int     `json:"n,omitempty" validate:"omitempty,gte=1,lte=1000"`
	Period    int      `json:"period" validate:"omitempty,gte=2"`
}

// SeriesSummary is the listing form of a stored series.
type SeriesSummary struct {
	Name   string `json:"name"`
	Points int    `json:"points"`
}

// MatchJobRequest queues a match of a stored series.
type MatchJobRequest struct {
	QueryName string `json:"query_name" validate:"required"`
	N         *int   `json:"n,omitempty" validate:"omitempty,gte=1,lte=1000"`
	Period    int    `json:"period" validate:"omitempty,gte=2"`
}
