package review

// Resolution is one clustering granularity. The catalog and trend resolutions
// are independent partitions of the same embedding space with disjoint id
// namespaces; a record's cluster ids at the two resolutions are unrelated.
type Resolution struct {
	// DensityDivisor sets roughly how many records justify one cluster.
	DensityDivisor int
	KMin           int
	KMax           int
}

// CatalogResolution drives the ranked topic list and the tarot digest.
var CatalogResolution = Resolution{DensityDivisor: 50, KMin: 10, KMax: 50}

// TrendResolution drives the streamgraph; it is kept small for chart
// legibility. maxTopics caps the cluster count (defaults to 10).
func TrendResolution(maxTopics int) Resolution {
	if maxTopics <= 0 {
		maxTopics = 10
	}
	return Resolution{DensityDivisor: 50, KMin: 3, KMax: maxTopics}
}

// ClusterCount computes k = clamp(n/divisor, kMin, kMax), further clamped to
// n so the clustering primitive never sees k > n.
func (r Resolution) ClusterCount(n int) int {
	k := n / r.DensityDivisor
	if k < r.KMin {
		k = r.KMin
	}
	if k > r.KMax {
		k = r.KMax
	}
	if k > n {
		k = n
	}
	if k < 1 {
		k = 1
	}
	return k
}
