package topics

// smallDatasetThreshold switches parameter sets: tiny inputs get looser
// parameters to avoid degenerate everything-is-an-outlier clustering
const smallDatasetThreshold = 10

// Params control dimensionality reduction and clustering. Selected
// adaptively from dataset size, tunable policy rather than algorithmic law.
type Params struct {
	Components     int
	Neighbors      int
	MinClusterSize int
	MinSamples     int
}

// ParamsFor returns the parameter set for a document count
func ParamsFor(docCount int) Params {
	if docCount < smallDatasetThreshold {
		return Params{
			Components:     2,
			Neighbors:      2,
			MinClusterSize: 2,
			MinSamples:     1,
		}
	}
	return Params{
		Components:     5,
		Neighbors:      15,
		MinClusterSize: 5,
		MinSamples:     5,
	}
}
