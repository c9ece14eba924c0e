// internal/glyph/tooltip.go

package glyph

import (
	"fmt"
	"sort"
	"strings"

	"evimap/internal/domain/evidence"
)

const (
	// tooltipPlaceLimit separates the per-place itemization from the
	// aggregate-only summary.
	tooltipPlaceLimit = 5

	// tooltipRowLimit separates the per-evidence breakdown of a single
	// place from its summarized range.
	tooltipRowLimit = 10
)

// tooltip builds the glyph tooltip with a level of detail that shrinks
// as the cluster grows: a full per-evidence breakdown for one place,
// one line per place up to tooltipPlaceLimit places, and aggregate
// counts beyond that.
func (b *Builder) tooltip(placeIDs []int) string {
	switch {
	case len(placeIDs) == 0:
		return "No places"
	case len(placeIDs) == 1:
		return b.singlePlaceTooltip(placeIDs[0])
	case len(placeIDs) <= tooltipPlaceLimit:
		return b.placeListTooltip(placeIDs)
	default:
		return b.aggregateTooltip(placeIDs)
	}
}

func (b *Builder) singlePlaceTooltip(placeID int) string {
	name := b.placeName(placeID)
	tuples := b.displayTuples(placeID)

	if len(tuples) >= tooltipRowLimit {
		start, end, dated := timeRange(tuples)
		if dated {
			return fmt.Sprintf("%s: %d evidence records, %d–%d", name, len(tuples), start, end)
		}
		return fmt.Sprintf("%s: %d evidence records", name, len(tuples))
	}

	sorted := make([]*evidence.Tuple, len(tuples))
	copy(sorted, tuples)
	sort.Slice(sorted, func(i, j int) bool {
		si, sj := spanSortKey(sorted[i].TimeSpan), spanSortKey(sorted[j].TimeSpan)
		if si.start != sj.start {
			return si.start < sj.start
		}
		if si.end != sj.end {
			return si.end < sj.end
		}
		return sorted[i].TupleID < sorted[j].TupleID
	})

	var sb strings.Builder
	sb.WriteString(name)
	for _, t := range sorted {
		sb.WriteString("\n")
		sb.WriteString(b.evidenceLine(t))
	}
	return sb.String()
}

func (b *Builder) placeListTooltip(placeIDs []int) string {
	lines := make([]string, 0, len(placeIDs))
	for _, id := range placeIDs {
		tuples := b.displayTuples(id)
		lines = append(lines, fmt.Sprintf("%s: %d evidence records", b.placeName(id), len(tuples)))
	}
	return strings.Join(lines, "\n")
}

func (b *Builder) aggregateTooltip(placeIDs []int) string {
	total := 0
	active := 0
	for _, id := range placeIDs {
		for _, t := range b.displayTuples(id) {
			total++
			if t.Active {
				active++
			}
		}
	}
	return fmt.Sprintf("%d places, %d evidence records (%d active)", len(placeIDs), total, active)
}

func (b *Builder) evidenceLine(t *evidence.Tuple) string {
	religion := fmt.Sprintf("religion %d", t.ReligionID)
	if node := b.Hierarchy.Node(t.ReligionID); node != nil {
		religion = node.Name
	}

	span := "undated"
	if t.TimeSpan != nil {
		switch {
		case t.TimeSpan.Start != nil && t.TimeSpan.End != nil:
			span = fmt.Sprintf("%d–%d", *t.TimeSpan.Start, *t.TimeSpan.End)
		case t.TimeSpan.Start != nil:
			span = fmt.Sprintf("from %d", *t.TimeSpan.Start)
		case t.TimeSpan.End != nil:
			span = fmt.Sprintf("until %d", *t.TimeSpan.End)
		}
	}

	confidence := string(t.ReligionConfidence)
	if confidence == "" {
		confidence = "no confidence"
	}

	return fmt.Sprintf("  %s, %s, %s", religion, span, confidence)
}

func (b *Builder) placeName(placeID int) string {
	if p := b.Places[placeID]; p != nil {
		return p.Name
	}
	return fmt.Sprintf("place %d", placeID)
}

type sortKey struct {
	start, end int
}

// spanSortKey orders undated evidence after everything dated.
func spanSortKey(span *evidence.TimeSpan) sortKey {
	const late = 1 << 30
	key := sortKey{late, late}
	if span == nil {
		return key
	}
	if span.Start != nil {
		key.start = *span.Start
	}
	if span.End != nil {
		key.end = *span.End
	}
	return key
}

// timeRange returns the overall dated range of a tuple list.
func timeRange(tuples []*evidence.Tuple) (start, end int, dated bool) {
	for _, t := range tuples {
		if t.TimeSpan == nil {
			continue
		}
		if t.TimeSpan.Start != nil {
			if !dated || *t.TimeSpan.Start < start {
				start = *t.TimeSpan.Start
			}
			if !dated {
				end = start
			}
			dated = true
		}
		if t.TimeSpan.End != nil {
			if !dated || *t.TimeSpan.End > end {
				end = *t.TimeSpan.End
			}
			if !dated {
				start = *t.TimeSpan.End
			}
			dated = true
		}
	}
	return start, end, dated
}
