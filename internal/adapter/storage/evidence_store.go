// internal/adapter/storage/evidence_store.go

package storage

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v4/pgxpool"

	"evimap/internal/dataset"
	"evimap/internal/domain/evidence"
)

// EvidenceStore loads the startup bundle from Postgres
type EvidenceStore struct {
	db *pgxpool.Pool
}

// NewEvidenceStore creates a new evidence store
func NewEvidenceStore(db *pgxpool.Pool) *EvidenceStore {
	return &EvidenceStore{
		db: db,
	}
}

// LoadBundle loads everything the dataset needs in one pass
func (s *EvidenceStore) LoadBundle(ctx context.Context) (dataset.Bundle, error) {
	tuples, err := s.LoadTuples(ctx)
	if err != nil {
		return dataset.Bundle{}, err
	}
	places, err := s.LoadPlaces(ctx)
	if err != nil {
		return dataset.Bundle{}, err
	}
	hierarchy, err := s.LoadHierarchy(ctx)
	if err != nil {
		return dataset.Bundle{}, err
	}
	tags, err := s.LoadTags(ctx)
	if err != nil {
		return dataset.Bundle{}, err
	}
	sources, err := s.LoadSources(ctx)
	if err != nil {
		return dataset.Bundle{}, err
	}
	return dataset.Bundle{
		Tuples:    tuples,
		Places:    places,
		Hierarchy: hierarchy,
		Tags:      tags,
		Sources:   sources,
	}, nil
}

// LoadTuples loads all evidence tuples
func (s *EvidenceStore) LoadTuples(ctx context.Context) ([]*evidence.Tuple, error) {
	query := `
		SELECT
			tuple_id, place_id, religion_id, source_ids,
			time_start, time_end,
			time_confidence, religion_confidence, location_confidence,
			place_attribution_confidence, source_confidences, interpretation_confidence
		FROM evidence
		ORDER BY tuple_id
	`

	rows, err := s.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("error querying evidence: %w", err)
	}
	defer rows.Close()

	var tuples []*evidence.Tuple
	for rows.Next() {
		var t evidence.Tuple
		var sourceIDs []int32
		var start, end *int
		var sourceConfidences []string

		err := rows.Scan(
			&t.TupleID,
			&t.PlaceID,
			&t.ReligionID,
			&sourceIDs,
			&start,
			&end,
			&t.TimeConfidence,
			&t.ReligionConfidence,
			&t.LocationConfidence,
			&t.PlaceAttributionConfidence,
			&sourceConfidences,
			&t.InterpretationConfidence,
		)
		if err != nil {
			return nil, fmt.Errorf("error scanning evidence row: %w", err)
		}

		t.SourceIDs = toInts(sourceIDs)
		if start != nil || end != nil {
			t.TimeSpan = &evidence.TimeSpan{Start: start, End: end}
		}
		for _, c := range sourceConfidences {
			t.SourceConfidences = append(t.SourceConfidences, evidence.Confidence(c))
		}
		tuples = append(tuples, &t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating evidence rows: %w", err)
	}

	return tuples, nil
}

// LoadPlaces loads all places
func (s *EvidenceStore) LoadPlaces(ctx context.Context) ([]*evidence.Place, error) {
	query := `
		SELECT id, name, lat, lng, location_confidence
		FROM places
		ORDER BY id
	`

	rows, err := s.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("error querying places: %w", err)
	}
	defer rows.Close()

	var places []*evidence.Place
	for rows.Next() {
		var p evidence.Place
		var lat, lng *float64

		if err := rows.Scan(&p.ID, &p.Name, &lat, &lng, &p.LocationConfidence); err != nil {
			return nil, fmt.Errorf("error scanning place row: %w", err)
		}
		if lat != nil && lng != nil {
			p.Geoloc = &evidence.Coordinate{Lat: *lat, Lng: *lng}
		}
		places = append(places, &p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating place rows: %w", err)
	}

	return places, nil
}

// LoadHierarchy loads the religion tree and assembles it under a
// synthetic root. Rows with a null parent are level-0 religions.
func (s *EvidenceStore) LoadHierarchy(ctx context.Context) (*evidence.Hierarchy, error) {
	query := `
		SELECT id, parent_id, name, abbreviation, color
		FROM religions
		ORDER BY sort_order
	`

	rows, err := s.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("error querying religions: %w", err)
	}
	defer rows.Close()

	type row struct {
		node     *evidence.ReligionNode
		parentID *int
	}
	var ordered []row
	byID := make(map[int]*evidence.ReligionNode)

	for rows.Next() {
		var node evidence.ReligionNode
		var parentID *int

		if err := rows.Scan(&node.ID, &parentID, &node.Name, &node.Abbreviation, &node.Color); err != nil {
			return nil, fmt.Errorf("error scanning religion row: %w", err)
		}
		byID[node.ID] = &node
		ordered = append(ordered, row{node: &node, parentID: parentID})
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating religion rows: %w", err)
	}

	root := &evidence.ReligionNode{ID: 0}
	for _, r := range ordered {
		if r.parentID == nil {
			root.Children = append(root.Children, r.node)
			continue
		}
		parent, ok := byID[*r.parentID]
		if !ok {
			return nil, fmt.Errorf("religion %d references unknown parent %d", r.node.ID, *r.parentID)
		}
		parent.Children = append(parent.Children, r.node)
	}

	return evidence.NewHierarchy(root), nil
}

// LoadTags loads all tags with their tuple id sets
func (s *EvidenceStore) LoadTags(ctx context.Context) ([]*evidence.Tag, error) {
	query := `
		SELECT id, name, tuple_ids
		FROM tags
		ORDER BY id
	`

	rows, err := s.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("error querying tags: %w", err)
	}
	defer rows.Close()

	var tags []*evidence.Tag
	for rows.Next() {
		var tag evidence.Tag
		var tupleIDs []int32

		if err := rows.Scan(&tag.ID, &tag.Name, &tupleIDs); err != nil {
			return nil, fmt.Errorf("error scanning tag row: %w", err)
		}
		tag.TupleIDs = toInts(tupleIDs)
		tags = append(tags, &tag)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tag rows: %w", err)
	}

	return tags, nil
}

// LoadSources loads all source metadata
func (s *EvidenceStore) LoadSources(ctx context.Context) ([]*evidence.Source, error) {
	query := `
		SELECT id, name, short_name
		FROM sources
		ORDER BY id
	`

	rows, err := s.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("error querying sources: %w", err)
	}
	defer rows.Close()

	var sources []*evidence.Source
	for rows.Next() {
		var src evidence.Source

		if err := rows.Scan(&src.ID, &src.Name, &src.ShortName); err != nil {
			return nil, fmt.Errorf("error scanning source row: %w", err)
		}
		sources = append(sources, &src)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating source rows: %w", err)
	}

	return sources, nil
}

func toInts(values []int32) []int {
	if values == nil {
		return nil
	}
	out := make([]int, len(values))
	for i, v := range values {
		out[i] = int(v)
	}
	return out
}
