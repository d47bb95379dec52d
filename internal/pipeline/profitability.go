package pipeline

import (
	"github.com/rs/zerolog/log"

	"go-sales-insights/internal/model"
)

// DefaultTopN is the ranking length used when none is given.
const DefaultTopN = 3

// ProfitabilityRanking is the most and least profitable groups of one
// dimension. Applicable is false when the dimension was never mapped; the
// lists are then empty and that is not an error.
type ProfitabilityRanking struct {
	Dimension  model.Field                      `json:"dimension"`
	Applicable bool                             `json:"applicable"`
	Top        []model.GroupAggregate           `json:"top"`
	Bottom     []model.GroupAggregate           `json:"bottom"`
	Excluded   []model.DegenerateAggregateError `json:"excluded,omitempty"`
}

// RankProfitability ranks groups of dim by profit margin. Groups with zero
// sales have no margin and are listed as excluded. Top is margin descending,
// Bottom margin ascending, ties by group key.
func RankProfitability(records []model.CanonicalRecord, dim model.Field, n int) ProfitabilityRanking {
	if n <= 0 {
		n = DefaultTopN
	}
	ranking := ProfitabilityRanking{
		Dimension: dim,
		Top:       []model.GroupAggregate{},
		Bottom:    []model.GroupAggregate{},
	}

	groups, ok := GroupByDimension(records, dim)
	if !ok {
		log.Debug().Str("dimension", string(dim)).Msg("profitability not applicable: dimension unmapped")
		return ranking
	}
	ranking.Applicable = true

	qualified := make([]model.GroupAggregate, 0, len(groups))
	for _, g := range groups {
		if !g.ProfitMarginPct.Valid {
			ranking.Excluded = append(ranking.Excluded, model.DegenerateAggregateError{
				GroupKey: g.GroupKey,
				Reason:   "zero sales, margin undefined",
			})
			continue
		}
		qualified = append(qualified, g)
	}

	desc := SortGroups(append([]model.GroupAggregate(nil), qualified...), "profit_margin_pct", false)
	asc := SortGroups(append([]model.GroupAggregate(nil), qualified...), "profit_margin_pct", true)
	ranking.Top = desc[:min(n, len(desc))]
	ranking.Bottom = asc[:min(n, len(asc))]
	return ranking
}
