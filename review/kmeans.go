package review

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
)

// Clusterer partitions a vector matrix into k clusters. Implementations must
// be deterministic for a fixed seed and input; the retry and sampling logic
// downstream relies on reproducible assignments, not on clustering quality.
type Clusterer interface {
	Cluster(vectors [][]float64, k int, seed int64) (assignment []int, centroids [][]float64, err error)
}

// KMeans is a seeded k-means++ / Lloyd's implementation of Clusterer.
// Ties (equidistant centers, equal candidate weights) always resolve to the
// lowest index, so a run is a pure function of (vectors, k, seed).
type KMeans struct {
	// MaxIterations bounds Lloyd's loop (defaults to 50). The loop also stops
	// early once assignments are stable.
	MaxIterations int
}

func (km KMeans) Cluster(vectors [][]float64, k int, seed int64) ([]int, [][]float64, error) {
	n := len(vectors)
	if n == 0 {
		return nil, nil, errors.New("Cluster: no vectors")
	}
	if k < 1 || k > n {
		return nil, nil, fmt.Errorf("Cluster: k=%d out of range for n=%d", k, n)
	}
	dim := len(vectors[0])
	for i, v := range vectors {
		if len(v) != dim {
			return nil, nil, fmt.Errorf("Cluster: vector %d has dimension %d, want %d", i, len(v), dim)
		}
	}

	maxIter := km.MaxIterations
	if maxIter <= 0 {
		maxIter = 50
	}

	rng := rand.New(rand.NewSource(seed))
	centroids := seedCentroids(vectors, k, rng)
	assignment := make([]int, n)
	for i := range assignment {
		assignment[i] = -1
	}

	for iter := 0; iter < maxIter; iter++ {
		changed := false
		for i, v := range vectors {
			c := nearestCentroid(v, centroids)
			if c != assignment[i] {
				assignment[i] = c
				changed = true
			}
		}
		if !changed && iter > 0 {
			break
		}

		counts := make([]int, k)
		sums := make([][]float64, k)
		for c := range sums {
			sums[c] = make([]float64, dim)
		}
		for i, v := range vectors {
			c := assignment[i]
			counts[c]++
			for d, x := range v {
				sums[c][d] += x
			}
		}

		for c := 0; c < k; c++ {
			if counts[c] == 0 {
				// Re-seed an empty cluster with the member farthest from its
				// current centroid; lowest index wins ties.
				far := farthestMember(vectors, centroids, assignment)
				assignment[far] = c
				copy(centroids[c], vectors[far])
				continue
			}
			for d := 0; d < dim; d++ {
				centroids[c][d] = sums[c][d] / float64(counts[c])
			}
		}
	}

	return assignment, centroids, nil
}

// seedCentroids is k-means++ initialization: the first center is uniform, the
// rest are drawn proportionally to squared distance from the nearest chosen
// center, using a cumulative scan so the draw is deterministic for one rng.
func seedCentroids(vectors [][]float64, k int, rng *rand.Rand) [][]float64 {
	n := len(vectors)
	dim := len(vectors[0])

	centroids := make([][]float64, 0, k)
	first := make([]float64, dim)
	copy(first, vectors[rng.Intn(n)])
	centroids = append(centroids, first)

	dists := make([]float64, n)
	for len(centroids) < k {
		total := 0.0
		for i, v := range vectors {
			d := squaredDistance(v, centroids[0])
			for _, c := range centroids[1:] {
				if dd := squaredDistance(v, c); dd < d {
					d = dd
				}
			}
			dists[i] = d
			total += d
		}

		pick := 0
		if total > 0 {
			target := rng.Float64() * total
			acc := 0.0
			for i, d := range dists {
				acc += d
				if acc >= target {
					pick = i
					break
				}
			}
		} else {
			// All points coincide with a chosen center; any point will do.
			pick = rng.Intn(n)
		}

		next := make([]float64, dim)
		copy(next, vectors[pick])
		centroids = append(centroids, next)
	}
	return centroids
}

func nearestCentroid(v []float64, centroids [][]float64) int {
	best := 0
	bestDist := math.MaxFloat64
	for c, centroid := range centroids {
		if d := squaredDistance(v, centroid); d < bestDist {
			best = c
			bestDist = d
		}
	}
	return best
}

func farthestMember(vectors [][]float64, centroids [][]float64, assignment []int) int {
	best := 0
	bestDist := -1.0
	for i, v := range vectors {
		d := squaredDistance(v, centroids[assignment[i]])
		if d > bestDist {
			best = i
			bestDist = d
		}
	}
	return best
}

func squaredDistance(a, b []float64) float64 {
	sum := 0.0
	for i := range a {
		diff := a[i] - b[i]
		sum += diff * diff
	}
	return sum
}

func euclideanDistance(a, b []float64) float64 {
	return math.Sqrt(squaredDistance(a, b))
}
