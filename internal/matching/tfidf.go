package matching

import (
	"math"
	"sort"
	"strings"

	"github.com/okofler/jobpilot/internal/catalog"
)

// RankedArtifact is a free-text ranking hit with a cosine similarity in 0..1.
type RankedArtifact struct {
	Artifact   catalog.Artifact `json:"artifact"`
	Similarity float64          `json:"similarity"`
}

// RankTFIDF ranks candidates against a free-text query by TF-IDF cosine
// similarity. It complements Match for the search path, where there is no
// structured task to score against, only words.
func RankTFIDF(query string, candidates []catalog.Artifact, topK int) []RankedArtifact {
	if topK <= 0 {
		topK = defaultMaxResults
	}
	queryTerms := termCounts(query)
	if len(queryTerms) == 0 || len(candidates) == 0 {
		return nil
	}

	docs := make([]map[string]int, len(candidates))
	df := make(map[string]int)
	for i, cand := range candidates {
		text := strings.Join([]string{
			cand.Title, cand.Summary, cand.Category,
			strings.Join(cand.Integrations, " "),
			strings.Join(cand.Tags, " "),
		}, " ")
		docs[i] = termCounts(text)
		for term := range docs[i] {
			df[term]++
		}
	}

	idf := func(term string) float64 {
		n := df[term]
		if n == 0 {
			return 0
		}
		return math.Log(float64(len(candidates)+1) / float64(n+1))
	}

	queryVec := make(map[string]float64, len(queryTerms))
	for term, count := range queryTerms {
		queryVec[term] = float64(count) * idf(term)
	}

	var ranked []RankedArtifact
	for i, doc := range docs {
		sim := cosine(queryVec, doc, idf)
		if sim <= 0 {
			continue
		}
		ranked = append(ranked, RankedArtifact{Artifact: candidates[i], Similarity: sim})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Similarity > ranked[j].Similarity
	})
	if len(ranked) > topK {
		ranked = ranked[:topK]
	}
	return ranked
}

func termCounts(text string) map[string]int {
	counts := make(map[string]int)
	for _, field := range strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !(('a' <= r && r <= 'z') || ('0' <= r && r <= '9') || r > 127)
	}) {
		if len([]rune(field)) < 3 || stopWords[field] {
			continue
		}
		counts[field]++
	}
	return counts
}

func cosine(queryVec map[string]float64, doc map[string]int, idf func(string) float64) float64 {
	var dot, qNorm, dNorm float64
	for term, qw := range queryVec {
		qNorm += qw * qw
		if count, ok := doc[term]; ok {
			dot += qw * float64(count) * idf(term)
		}
	}
	for term, count := range doc {
		dw := float64(count) * idf(term)
		dNorm += dw * dw
	}
	if qNorm == 0 || dNorm == 0 {
		return 0
	}
	return dot / (math.Sqrt(qNorm) * math.Sqrt(dNorm))
}
