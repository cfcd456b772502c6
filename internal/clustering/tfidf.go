package clustering

import (
	"math"
	"math/rand"
	"strings"

	"gonum.org/v1/gonum/floats"
)

// kmeansSeed fixes the k-means centroid initialization for determinism
// across runs on the same input.
const kmeansSeed = 42

// tfidfVectorize builds TF-IDF vectors over a fixed vocabulary derived from
// the corpus itself (the fallback path used only when the embedder's
// semantic clustering produced degenerate output).
func tfidfVectorize(texts []string) ([][]float64, []string) {
	docTokens := make([][]string, len(texts))
	df := make(map[string]int)
	for i, t := range texts {
		toks := embedTokenPattern.FindAllString(strings.ToLower(t), -1)
		docTokens[i] = toks
		seen := make(map[string]bool)
		for _, tok := range toks {
			if len(tok) <= 3 || seen[tok] {
				continue
			}
			seen[tok] = true
			df[tok]++
		}
	}

	vocab := make([]string, 0, len(df))
	for tok := range df {
		vocab = append(vocab, tok)
	}
	sortStrings(vocab)
	vocabIndex := make(map[string]int, len(vocab))
	for i, tok := range vocab {
		vocabIndex[tok] = i
	}

	n := float64(len(texts))
	vectors := make([][]float64, len(texts))
	for i, toks := range docTokens {
		tf := make(map[string]int)
		for _, tok := range toks {
			tf[tok]++
		}
		vec := make([]float64, len(vocab))
		for tok, count := range tf {
			idx, ok := vocabIndex[tok]
			if !ok {
				continue
			}
			idf := math.Log(n / float64(1+df[tok]))
			vec[idx] = float64(count) * idf
		}
		if norm := floats.Norm(vec, 2); norm > 0 {
			floats.Scale(1/norm, vec)
		}
		vectors[i] = vec
	}
	return vectors, vocab
}

func sortStrings(s []string) {
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && s[j-1] > s[j]; j-- {
			s[j-1], s[j] = s[j], s[j-1]
		}
	}
}

// kmeansClusterCount is the fallback cluster count rule:
// clamp(ceil(n/10), 2, 15).
func kmeansClusterCount(n int) int {
	k := (n + 9) / 10
	if k < 2 {
		k = 2
	}
	if k > 15 {
		k = 15
	}
	if k > n {
		k = n
	}
	return k
}

// kmeans runs a fixed-seed Lloyd's algorithm over TF-IDF vectors for at most
// maxIterations rounds, stopping early once no assignment changes, and
// returns each point's assigned cluster index.
func kmeans(vectors [][]float64, k int) []int {
	n := len(vectors)
	if n == 0 {
		return nil
	}
	dim := len(vectors[0])

	rng := rand.New(rand.NewSource(kmeansSeed))
	perm := rng.Perm(n)
	centroids := make([][]float64, k)
	for i := 0; i < k; i++ {
		centroids[i] = append([]float64(nil), vectors[perm[i%n]]...)
	}

	assignments := make([]int, n)
	const maxIterations = 25
	for iter := 0; iter < maxIterations; iter++ {
		changed := false
		for i, v := range vectors {
			best, bestDist := 0, math.Inf(1)
			for c, centroid := range centroids {
				d := sqDist(v, centroid)
				if d < bestDist {
					best, bestDist = c, d
				}
			}
			if assignments[i] != best {
				assignments[i] = best
				changed = true
			}
		}

		sums := make([][]float64, k)
		counts := make([]int, k)
		for c := range sums {
			sums[c] = make([]float64, dim)
		}
		for i, v := range vectors {
			c := assignments[i]
			floats.Add(sums[c], v)
			counts[c]++
		}
		for c := range centroids {
			if counts[c] == 0 {
				continue
			}
			floats.Scale(1/float64(counts[c]), sums[c])
			centroids[c] = sums[c]
		}

		if !changed {
			break
		}
	}
	return assignments
}

func sqDist(a, b []float64) float64 {
	var sum float64
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}
