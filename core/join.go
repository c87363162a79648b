package core

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/huangsam/ratingfit/internal/contract"
	"github.com/huangsam/ratingfit/schema"
	"github.com/sirupsen/logrus"
)

const joinOp = "join"

// JoinOptions controls how the stats and rating sources are matched.
type JoinOptions struct {
	Season           int      // Keep only stats rows of this year; 0 keeps every year
	CanonicalVersion string   // Rating snapshot used when a player has several entries
	SalaryMarker     string   // Leading currency marker of the salary column
	DropColumns      []string // Non-predictive stats columns
}

// DefaultJoinOptions returns the join settings of the ratingfit CLI.
func DefaultJoinOptions() JoinOptions {
	return JoinOptions{
		Season:           contract.DefaultSeason,
		CanonicalVersion: contract.DefaultCanonicalVersion,
		SalaryMarker:     contract.DefaultSalaryMarker,
		DropColumns:      append([]string(nil), schema.DefaultDropColumns...),
	}
}

// JoinOptionsFromConfig extracts the join settings from a validated config.
func JoinOptionsFromConfig(cfg *contract.Config) JoinOptions {
	return JoinOptions{
		Season:           cfg.Season,
		CanonicalVersion: cfg.CanonicalVersion,
		SalaryMarker:     cfg.SalaryMarker,
		DropColumns:      cfg.DropColumns,
	}
}

// Join matches every stats row of the season with its rating entry by exact name.
// Stats rows without a rating entry are reported as mismatches and skipped.
// The output keeps the stats source order and shares no memory with the inputs.
func Join(stats schema.StatsTable, ratings []schema.RatingRow, opts JoinOptions) (schema.AnalysisTable, schema.JoinReport, error) {
	report := schema.JoinReport{StatsRows: len(stats.Rows)}
	if utf8.RuneCountInString(opts.SalaryMarker) != 1 {
		return schema.AnalysisTable{}, report, schema.NewError(schema.InvalidArgument, joinOp,
			"salary marker must be a single character, got %q", opts.SalaryMarker)
	}

	featureIdx, features := retainedColumns(stats.Columns, opts.DropColumns)
	if len(features) == 0 {
		return schema.AnalysisTable{}, report, schema.NewError(schema.InvalidArgument, joinOp,
			"no feature columns left after dropping %v", opts.DropColumns)
	}

	byName := make(map[string][]int, len(ratings))
	for i, r := range ratings {
		byName[r.FullName] = append(byName[r.FullName], i)
	}

	out := schema.AnalysisTable{Features: features}
	for _, row := range stats.Rows {
		if opts.Season != 0 && row.Year != opts.Season {
			report.SeasonFiltered++
			continue
		}
		if len(row.Values) != len(stats.Columns) {
			return schema.AnalysisTable{}, report, schema.NewError(schema.InvalidArgument, joinOp,
				"player %q has %d cells for %d columns", row.Player, len(row.Values), len(stats.Columns))
		}

		rating, canonical, found, err := resolveRating(row.Player, byName[row.Player], ratings, opts.CanonicalVersion)
		if err != nil {
			return schema.AnalysisTable{}, report, err
		}
		if !found {
			report.Mismatches = append(report.Mismatches, schema.Mismatch{Player: row.Player, Year: row.Year})
			contract.Log().WithFields(logrus.Fields{
				"kind":   string(schema.DataMismatch),
				"player": row.Player,
				"year":   row.Year,
			}).Info("Stats row has no rating entry")
			continue
		}
		if canonical {
			report.CanonicalPicks++
		}

		vals := make([]float64, len(featureIdx))
		for j, idx := range featureIdx {
			v, err := strconv.ParseFloat(strings.TrimSpace(row.Values[idx]), 64)
			if err != nil {
				return schema.AnalysisTable{}, report, schema.NewError(schema.InvalidArgument, joinOp,
					"player %q column %q: %q is not numeric", row.Player, stats.Columns[idx], row.Values[idx])
			}
			vals[j] = v
		}

		salary, err := ParseSalary(rating.Salary, opts.SalaryMarker)
		if err != nil {
			return schema.AnalysisTable{}, report, schema.WrapError(schema.JoinAmbiguity, joinOp,
				fmt.Errorf("player %q version %q: %w", rating.FullName, rating.Version, err))
		}

		out.Rows = append(out.Rows, schema.AnalysisRow{
			Player:   row.Player,
			Features: vals,
			Salary:   salary,
			Rating:   rating.Rating,
		})
	}

	report.Joined = len(out.Rows)
	return out, report, nil
}

// resolveRating picks the rating entry for a player among its candidate indices.
// found is false when there is no candidate at all.
func resolveRating(player string, candidates []int, ratings []schema.RatingRow, canonicalVersion string) (r schema.RatingRow, canonical, found bool, err error) {
	switch len(candidates) {
	case 0:
		return schema.RatingRow{}, false, false, nil
	case 1:
		return ratings[candidates[0]], false, true, nil
	}

	var picks []int
	for _, idx := range candidates {
		if ratings[idx].Version == canonicalVersion {
			picks = append(picks, idx)
		}
	}
	if len(picks) == 0 {
		versions := make([]string, len(candidates))
		for i, idx := range candidates {
			versions[i] = ratings[idx].Version
		}
		return schema.RatingRow{}, false, false, schema.NewError(schema.JoinAmbiguity, joinOp,
			"player %q has versions %v but none is %q", player, versions, canonicalVersion)
	}
	if len(picks) > 1 {
		contract.Log().WithFields(logrus.Fields{
			"player":  player,
			"version": canonicalVersion,
			"entries": len(picks),
		}).Warn("Duplicate canonical rating entries, using the first")
	}
	return ratings[picks[0]], true, true, nil
}

// ParseSalary strips the marker from a salary like "$1000000" and returns it
// in millions rounded to three decimals.
func ParseSalary(raw, marker string) (float64, error) {
	digits, ok := strings.CutPrefix(strings.TrimSpace(raw), marker)
	if !ok {
		return 0, fmt.Errorf("%w: %q lacks marker %q", schema.ErrSalaryFormat, raw, marker)
	}
	v, err := strconv.ParseInt(digits, 10, 64)
	if err != nil {
		var numErr *strconv.NumError
		if errors.As(err, &numErr) {
			err = numErr.Err
		}
		return 0, fmt.Errorf("%w: %q: %v", schema.ErrSalaryFormat, raw, err)
	}
	return math.Round(float64(v)/1e6*1000) / 1000, nil
}

// retainedColumns returns the indices and names of the columns not in drop.
func retainedColumns(columns, drop []string) ([]int, []string) {
	dropSet := make(map[string]struct{}, len(drop))
	for _, c := range drop {
		dropSet[c] = struct{}{}
	}
	var idx []int
	var names []string
	for i, c := range columns {
		if _, ok := dropSet[c]; ok {
			continue
		}
		idx = append(idx, i)
		names = append(names, c)
	}
	return idx, names
}
