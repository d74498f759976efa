package eval

// RecallAtK returns the fraction of expected documents found in the top k
// retrieved ids. Returns 0 when no documents are expected; callers exclude
// such cases from aggregates.
func RecallAtK(retrieved, expected []string, k int) float64 {
	if len(expected) == 0 || k <= 0 {
		return 0
	}
	top := topK(retrieved, k)
	found := 0
	for _, id := range expected {
		if _, ok := top[id]; ok {
			found++
		}
	}
	return float64(found) / float64(len(expected))
}

// PrecisionAtK returns the fraction of the top k retrieved ids that are
// expected. The denominator is k even when fewer results were retrieved;
// retrieving too little is a real precision failure.
func PrecisionAtK(retrieved, expected []string, k int) float64 {
	if len(expected) == 0 || k <= 0 {
		return 0
	}
	want := make(map[string]struct{}, len(expected))
	for _, id := range expected {
		want[id] = struct{}{}
	}
	relevant := 0
	for i, id := range retrieved {
		if i >= k {
			break
		}
		if _, ok := want[id]; ok {
			relevant++
		}
	}
	return float64(relevant) / float64(k)
}

// ReciprocalRank returns 1/rank of the first expected document in the
// retrieved list (1-based), or 0 when none appears.
func ReciprocalRank(retrieved, expected []string) float64 {
	if len(expected) == 0 {
		return 0
	}
	want := make(map[string]struct{}, len(expected))
	for _, id := range expected {
		want[id] = struct{}{}
	}
	for i, id := range retrieved {
		if _, ok := want[id]; ok {
			return 1 / float64(i+1)
		}
	}
	return 0
}

func topK(ids []string, k int) map[string]struct{} {
	if k > len(ids) {
		k = len(ids)
	}
	top := make(map[string]struct{}, k)
	for _, id := range ids[:k] {
		top[id] = struct{}{}
	}
	return top
}
