// internal/domain/evidence/model.go

package evidence

// Coordinate represents a geographic point
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// TimeSpan represents a (possibly open-ended) historical time range in years.
// A nil Start or End means the corresponding bound is unknown.
type TimeSpan struct {
	Start *int `json:"start"`
	End   *int `json:"end"`
}

// Confidence is one categorical confidence value on a single aspect.
// The empty string represents an unset ("null") confidence.
type Confidence string

const (
	ConfidenceCertain   Confidence = "certain"
	ConfidenceProbable  Confidence = "probable"
	ConfidenceContested Confidence = "contested"
	ConfidenceUncertain Confidence = "uncertain"
	ConfidenceFalse     Confidence = "false"
	ConfidenceNone      Confidence = ""
)

// ConfidenceOrder lists all confidence values from most to least certain.
// Arc ordering and tooltip sorting rely on this ordering.
var ConfidenceOrder = []Confidence{
	ConfidenceCertain,
	ConfidenceProbable,
	ConfidenceContested,
	ConfidenceUncertain,
	ConfidenceFalse,
	ConfidenceNone,
}

// ConfidenceRank returns the position of c in ConfidenceOrder.
// Unknown values sort after all known ones.
func ConfidenceRank(c Confidence) int {
	for i, v := range ConfidenceOrder {
		if v == c {
			return i
		}
	}
	return len(ConfidenceOrder)
}

// Aspect identifies one of the six independent confidence axes of a tuple.
type Aspect string

const (
	AspectTime             Aspect = "time_confidence"
	AspectReligion         Aspect = "religion_confidence"
	AspectLocation         Aspect = "location_confidence"
	AspectPlaceAttribution Aspect = "place_attribution_confidence"
	AspectSource           Aspect = "source_confidences"
	AspectInterpretation   Aspect = "interpretation_confidence"
)

// Aspects lists all six confidence aspects.
var Aspects = []Aspect{
	AspectTime,
	AspectReligion,
	AspectLocation,
	AspectPlaceAttribution,
	AspectSource,
	AspectInterpretation,
}

// Tuple is one evidence assertion extracted from a document: a religion
// practiced at a place during a time span, backed by a set of sources.
// Identity fields are immutable after load; only Active is recomputed.
type Tuple struct {
	TupleID    int   `json:"tuple_id"`
	PlaceID    int   `json:"place_id"`
	ReligionID int   `json:"religion_id"`
	SourceIDs  []int `json:"source_ids"`

	TimeSpan *TimeSpan `json:"time_span"`

	TimeConfidence             Confidence   `json:"time_confidence"`
	ReligionConfidence         Confidence   `json:"religion_confidence"`
	LocationConfidence         Confidence   `json:"location_confidence"`
	PlaceAttributionConfidence Confidence   `json:"place_attribution_confidence"`
	SourceConfidences          []Confidence `json:"source_confidences"`
	InterpretationConfidence   Confidence   `json:"interpretation_confidence"`

	// Active is derived state: whether the tuple passes all current
	// filters. Never persisted.
	Active bool `json:"active"`
}

// AspectValues returns the tuple's value(s) for a confidence aspect.
// All aspects are single-valued except source_confidences, which carries
// one value per source.
func (t *Tuple) AspectValues(a Aspect) []Confidence {
	switch a {
	case AspectTime:
		return []Confidence{t.TimeConfidence}
	case AspectReligion:
		return []Confidence{t.ReligionConfidence}
	case AspectLocation:
		return []Confidence{t.LocationConfidence}
	case AspectPlaceAttribution:
		return []Confidence{t.PlaceAttributionConfidence}
	case AspectInterpretation:
		return []Confidence{t.InterpretationConfidence}
	case AspectSource:
		if len(t.SourceConfidences) == 0 {
			return []Confidence{ConfidenceNone}
		}
		return t.SourceConfidences
	}
	return nil
}

// Place is a geographic location that evidence tuples reference.
// A place with a nil Geoloc is unplaced: it is excluded from spatial
// clustering but still appears in list views.
type Place struct {
	ID                 int         `json:"id"`
	Name               string      `json:"name"`
	Geoloc             *Coordinate `json:"geoloc"`
	LocationConfidence Confidence  `json:"location_confidence"`
}

// Tag is a user-defined label attached to a set of evidence tuples.
type Tag struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	TupleIDs []int  `json:"tuple_ids"`
}

// Source is a document from which evidence was extracted.
type Source struct {
	ID        int    `json:"id"`
	Name      string `json:"name"`
	ShortName string `json:"short_name"`
}
