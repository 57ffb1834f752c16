// Package selector ranks indicator-annotated candidates into long and short
// sets under count and threshold constraints.
package selector

import (
	"sort"

	"fractional-trader/config"
	"fractional-trader/internal/model"
)

// Select partitions records into long- and short-eligible candidates and
// ranks them by momentum score: longs descending (strongest first), shorts
// ascending (most negative first). Long output is truncated to EquitiesTop,
// short output to ShortsTop; ShortsTop of 0 always yields an empty short set.
//
// Ties are broken by symbol lexical order, so identical inputs always produce
// an identical, order-stable selection.
func Select(records []model.IndicatorRecord, cfg config.Config) model.SelectionSet {
	var longs, shorts []model.Candidate
	for _, r := range records {
		c := model.Classify(r, cfg.ZScoreThreshold)
		switch c.Side {
		case model.SideLong:
			longs = append(longs, c)
		case model.SideShort:
			shorts = append(shorts, c)
		}
	}

	sort.Slice(longs, func(i, j int) bool {
		si, sj := longs[i].Score(), longs[j].Score()
		if si != sj {
			return si > sj
		}
		return longs[i].Symbol < longs[j].Symbol
	})
	sort.Slice(shorts, func(i, j int) bool {
		si, sj := shorts[i].Score(), shorts[j].Score()
		if si != sj {
			return si < sj
		}
		return shorts[i].Symbol < shorts[j].Symbol
	})

	if len(longs) > cfg.EquitiesTop {
		longs = longs[:cfg.EquitiesTop]
	}
	if len(shorts) > cfg.ShortsTop {
		shorts = shorts[:cfg.ShortsTop]
	}

	return model.SelectionSet{Longs: longs, Shorts: shorts}
}
