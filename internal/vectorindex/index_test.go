package vectorindex_test

import (
	"errors"
	"testing"

	"github.com/faceguard/core/internal/domain"
	"github.com/faceguard/core/internal/vectorindex"
)

func vec512(fill func(i int) float32) []float32 {
	v := make([]float32, 512)
	for i := range v {
		v[i] = fill(i)
	}
	return v
}

func unitVector(hot int) []float32 {
	return vec512(func(i int) float32 {
		if i == hot {
			return 1
		}
		return 0
	})
}

func TestIndex_EnrollRejectsWrongDimension(t *testing.T) {
	idx := vectorindex.NewIndex()
	err := idx.Enroll(domain.PersonEmbedding{PersonID: "p-1", Vector: make([]float32, 128)})
	if !errors.Is(err, vectorindex.ErrBadDimension) {
		t.Errorf("expected ErrBadDimension, got %v", err)
	}
}

func TestIndex_EnrollAcceptsValidVector(t *testing.T) {
	idx := vectorindex.NewIndex()
	if err := idx.Enroll(domain.PersonEmbedding{PersonID: "p-1", Vector: unitVector(0)}); err != nil {
		t.Fatalf("expected valid 512-dim vector to enroll, got %v", err)
	}
}

func TestIndex_SearchSimilar_FindsExactMatch(t *testing.T) {
	idx := vectorindex.NewIndex()
	idx.Enroll(domain.PersonEmbedding{PersonID: "p-1", Vector: unitVector(0)})
	idx.Enroll(domain.PersonEmbedding{PersonID: "p-2", Vector: unitVector(1)})

	matches := idx.SearchSimilar(unitVector(0), 5, 0.5)
	if len(matches) != 1 {
		t.Fatalf("expected exactly one match above threshold, got %d: %+v", len(matches), matches)
	}
	if matches[0].PersonID != "p-1" {
		t.Errorf("expected p-1 to match its own embedding, got %s", matches[0].PersonID)
	}
	if matches[0].Similarity < 0.99 {
		t.Errorf("expected near-1.0 similarity for an identical vector, got %f", matches[0].Similarity)
	}
}

func TestIndex_SearchSimilar_RespectsTopK(t *testing.T) {
	idx := vectorindex.NewIndex()
	for i := 0; i < 5; i++ {
		idx.Enroll(domain.PersonEmbedding{PersonID: "p-1", Vector: unitVector(0)})
	}
	matches := idx.SearchSimilar(unitVector(0), 2, 0.0)
	if len(matches) != 2 {
		t.Errorf("expected topK to cap results at 2, got %d", len(matches))
	}
}

func TestIndex_SearchSimilar_OrderedDescending(t *testing.T) {
	idx := vectorindex.NewIndex()
	idx.Enroll(domain.PersonEmbedding{PersonID: "far", Vector: unitVector(1)})
	idx.Enroll(domain.PersonEmbedding{PersonID: "near", Vector: unitVector(0)})

	matches := idx.SearchSimilar(unitVector(0), 10, -1)
	if len(matches) != 2 {
		t.Fatalf("expected both embeddings to clear a -1 threshold, got %d", len(matches))
	}
	if matches[0].PersonID != "near" {
		t.Errorf("expected the closer match first, got order %+v", matches)
	}
}

func TestIndex_SearchPerson_NoMatchBelowThreshold(t *testing.T) {
	idx := vectorindex.NewIndex()
	idx.Enroll(domain.PersonEmbedding{PersonID: "p-1", Vector: unitVector(1)})

	_, found := idx.SearchPerson(unitVector(0), 0.9)
	if found {
		t.Error("expected no match for an orthogonal embedding above a high threshold")
	}
}

func TestIndex_SearchPerson_PicksBestAcrossMultipleEmbeddings(t *testing.T) {
	idx := vectorindex.NewIndex()
	idx.Enroll(domain.PersonEmbedding{PersonID: "p-1", Vector: unitVector(1)})
	idx.Enroll(domain.PersonEmbedding{PersonID: "p-1", Vector: unitVector(0)})
	idx.Enroll(domain.PersonEmbedding{PersonID: "p-2", Vector: unitVector(1)})

	match, found := idx.SearchPerson(unitVector(0), 0.5)
	if !found {
		t.Fatal("expected a match")
	}
	if match.PersonID != "p-1" {
		t.Errorf("expected p-1 (has an exact-match embedding), got %s", match.PersonID)
	}
}
