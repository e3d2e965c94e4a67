package pose

import "gonum.org/v1/gonum/spatial/r3"

// ComputeDistance returns the weighted mean direction difference between the
// bones of a reference skeleton and a sample, in [0, MaxDistance].
//
// Only valid reference bones take part. A bone the sample lacks, or did not
// track, counts as MaxDistance so occlusion is never free. An invalid or
// missing skeleton on either side, or a reference without bones, yields
// MaxDistance.
func ComputeDistance(reference, sample *Skeleton) float64 {
	if !reference.IsValid() || !sample.IsValid() || reference.boneCount == 0 {
		return MaxDistance
	}

	var discrepancy, total float64
	for _, seg := range Topology {
		j := seg.End
		if !reference.hasBone[j] || !reference.bones[j].Valid {
			continue
		}

		weight := reference.Weights.Weight(j)
		total += weight

		distance := MaxDistance
		if sample.hasBone[j] && sample.bones[j].Valid {
			distance = r3.Norm(r3.Sub(reference.bones[j].Direction, sample.bones[j].Direction))
		}
		discrepancy += weight * distance
	}

	if total == 0 {
		return MaxDistance
	}
	return discrepancy / total
}
