// internal/domain/filter/confidence.go

package filter

import (
	"evimap/internal/domain/evidence"
)

// ConfidenceRange is the set of confidence values permitted on one
// aspect. A nil range means "no restriction"; an empty (non-nil) range
// permits nothing. The two are distinct on purpose.
type ConfidenceRange []evidence.Confidence

// Permits reports whether the range allows a confidence value.
func (r ConfidenceRange) Permits(c evidence.Confidence) bool {
	if r == nil {
		return true
	}
	for _, v := range r {
		if v == c {
			return true
		}
	}
	return false
}

// ConfidenceAspects maps each of the six confidence aspects to its
// permitted range. Missing keys behave like a nil range.
type ConfidenceAspects map[evidence.Aspect]ConfidenceRange

// DefaultConfidenceAspects returns the fixed default selection: no
// restriction on any aspect.
func DefaultConfidenceAspects() ConfidenceAspects {
	aspects := make(ConfidenceAspects, len(evidence.Aspects))
	for _, a := range evidence.Aspects {
		aspects[a] = nil
	}
	return aspects
}

// Matches reports whether a tuple passes the confidence filter: every
// aspect's actual value(s) must intersect that aspect's permitted range.
// For the list-valued source aspect, any one element matching suffices.
func (f ConfidenceAspects) Matches(t *evidence.Tuple) bool {
	if f == nil {
		return true
	}
	for _, aspect := range evidence.Aspects {
		r, ok := f[aspect]
		if !ok || r == nil {
			continue
		}
		matched := false
		for _, v := range t.AspectValues(aspect) {
			if r.Permits(v) {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}
	return true
}
