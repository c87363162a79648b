// Package schema has the tables, models and constants shared by all parts of ratingfit.
package schema

import "time"

// StatsTable is the season statistics source, one row per player season.
type StatsTable struct {
	Columns []string   // Column names aligned with StatsRow.Values (Player and Year excluded)
	Rows    []StatsRow // Rows in source order
}

// StatsRow is one player season from the statistics source.
type StatsRow struct {
	Player string   // Join key
	Year   int      // Season tag
	Values []string // Raw cells aligned with StatsTable.Columns
}

// RatingRow is one entry from the external rating source.
type RatingRow struct {
	FullName string `json:"full_name"`
	Rating   int    `json:"rating"`
	Salary   string `json:"salary"` // Currency encoded, e.g. "$1000000"
	Version  string `json:"version"`
}

// AnalysisTable is the joined table fed into the ensemble.
type AnalysisTable struct {
	Features []string      // Retained statistic feature names
	Rows     []AnalysisRow // One row per resolved player
}

// AnalysisRow is the join of a StatsRow with its resolved RatingRow.
type AnalysisRow struct {
	Player   string    `json:"player"`
	Features []float64 `json:"features"`
	Salary   float64   `json:"salary"` // In millions, 3 decimals
	Rating   int       `json:"rating"`
}

// Vector returns the model input for the row: the statistic features followed by salary.
// The returned slice is freshly allocated.
func (r AnalysisRow) Vector() []float64 {
	v := make([]float64, 0, len(r.Features)+1)
	v = append(v, r.Features...)
	return append(v, r.Salary)
}

// Len returns the number of rows in the table.
func (t AnalysisTable) Len() int {
	return len(t.Rows)
}

// Group is one disjoint fold of the analysis rows.
type Group struct {
	Index int
	Rows  []AnalysisRow
}

// Matrix returns the feature matrix and label vector of the group.
func (g Group) Matrix() (x [][]float64, y []float64) {
	x = make([][]float64, len(g.Rows))
	y = make([]float64, len(g.Rows))
	for i, r := range g.Rows {
		x[i] = r.Vector()
		y[i] = float64(r.Rating)
	}
	return x, y
}

// ScoredRow is an AnalysisRow with its out-of-fold approximate rating.
type ScoredRow struct {
	AnalysisRow
	GroupIndex   int `json:"group"`
	ApproxRating int `json:"approx_rating"`
}

// Delta returns the signed difference between the approximate and the true rating.
func (r ScoredRow) Delta() int {
	return r.ApproxRating - r.Rating
}

// ScoredGroup holds the scored rows of one group in their original order.
type ScoredGroup struct {
	Index int
	Rows  []ScoredRow
}

// FinalTable is the concatenation of all scored groups.
type FinalTable struct {
	Features []string    `json:"features"`
	Rows     []ScoredRow `json:"rows"`
}

// GroupSummary describes the training of a single group model.
type GroupSummary struct {
	Index      int           `json:"index"`
	Size       int           `json:"size"`
	Classes    int           `json:"classes"`
	Iterations int           `json:"iterations"`
	Converged  bool          `json:"converged"`
	Duration   time.Duration `json:"duration"`
}

// Evaluation summarizes how well approximate ratings match the ground truth.
type Evaluation struct {
	Rows          int     `json:"rows"`
	Exact         int     `json:"exact"`
	WithinOne     int     `json:"within_one"`
	Accuracy      float64 `json:"accuracy"`
	WithinOneRate float64 `json:"within_one_rate"`
	MAE           float64 `json:"mae"`
	RMSE          float64 `json:"rmse"`
	Pearson       float64 `json:"pearson"`
}

// Mismatch records a stats row that had no counterpart in the rating source.
type Mismatch struct {
	Player string `json:"player"`
	Year   int    `json:"year"`
}

// JoinReport carries the non-fatal diagnostics of a join.
type JoinReport struct {
	StatsRows      int        `json:"stats_rows"`
	SeasonFiltered int        `json:"season_filtered"`
	Joined         int        `json:"joined"`
	Mismatches     []Mismatch `json:"mismatches"`
	CanonicalPicks int        `json:"canonical_picks"` // Players resolved through the canonical version
}

// RunReport is everything a finished run hands to the output writers.
type RunReport struct {
	RunKey     string         `json:"run_key"`
	Seed       uint64         `json:"seed"`
	Model      ModelKind      `json:"model"`
	Join       JoinReport     `json:"join"`
	Groups     []GroupSummary `json:"groups"`
	Evaluation Evaluation     `json:"evaluation"`
	Table      FinalTable     `json:"table"`
}
