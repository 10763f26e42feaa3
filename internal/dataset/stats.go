package dataset

import (
	"math"

	"traject/internal/episode"
	"traject/internal/schema"
)

// ComputeStats aggregates per-feature elementwise statistics over one sealed
// episode. Only numeric features are summarized; video features are covered
// by their encoded media. The saver calls this so the capture goroutine
// never pays for the arithmetic.
func ComputeStats(snap *episode.Snapshot, sch schema.Schema) map[string]FeatureStats {
	out := make(map[string]FeatureStats)
	count := int64(len(snap.Frames))
	if count == 0 {
		return out
	}

	for _, name := range sch.NumericNames() {
		width := sch[name].FlatLen()
		mins := make([]float64, width)
		maxs := make([]float64, width)
		sums := make([]float64, width)
		sqs := make([]float64, width)
		for i := 0; i < width; i++ {
			mins[i] = math.Inf(1)
			maxs[i] = math.Inf(-1)
		}

		for _, frame := range snap.Frames {
			values := frame.Values[name].Floats
			for i := 0; i < width && i < len(values); i++ {
				v := values[i]
				if v < mins[i] {
					mins[i] = v
				}
				if v > maxs[i] {
					maxs[i] = v
				}
				sums[i] += v
				sqs[i] += v * v
			}
		}

		means := make([]float64, width)
		stds := make([]float64, width)
		n := float64(count)
		for i := 0; i < width; i++ {
			means[i] = sums[i] / n
			variance := sqs[i]/n - means[i]*means[i]
			if variance < 0 {
				variance = 0
			}
			stds[i] = math.Sqrt(variance)
		}

		out[name] = FeatureStats{Min: mins, Max: maxs, Mean: means, Std: stds, Count: count}
	}
	return out
}
