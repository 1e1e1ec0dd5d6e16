package analysis

import (
	domain "github.com/avelinov/trendwatch/internal/domain/analysis"
)

// PlanChunks partitions documents, in retrieval order, into groups whose
// estimated token cost stays within budget. The partition is exhaustive and
// deterministic: every document lands in exactly one chunk, boundaries never
// split a document, and the same input always yields the same plan.
//
// When everything fits in one chunk the whole list is returned as a single
// group, which lets the caller skip the merge step entirely. A document that
// alone exceeds the budget still gets its own singleton chunk; it is never
// dropped or split.
func PlanChunks(docs []domain.Document, budget int, est domain.TokenEstimator) []domain.Chunk {
	if len(docs) == 0 {
		return nil
	}

	costs := make([]int, len(docs))
	total := 0
	for i := range docs {
		costs[i] = est.Estimate(docs[i].Text)
		total += costs[i]
	}

	// fast path: one chunk, one filter+analyze round, pass-through synthesis
	if total <= budget {
		return []domain.Chunk{{Index: 0, Documents: docs}}
	}

	var chunks []domain.Chunk
	var current []domain.Document
	size := 0
	for i := range docs {
		if len(current) > 0 && size+costs[i] > budget {
			chunks = append(chunks, domain.Chunk{Index: len(chunks), Documents: current})
			current = nil
			size = 0
		}
		current = append(current, docs[i])
		size += costs[i]
	}
	if len(current) > 0 {
		chunks = append(chunks, domain.Chunk{Index: len(chunks), Documents: current})
	}
	return chunks
}
