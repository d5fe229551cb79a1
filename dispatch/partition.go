package dispatch

import "github.com/poiesic/skillmatch/core"

// Partition splits corpus into ceil(n/size) disjoint batches of at most size
// documents. Documents are assigned in ascending ID order, so the same
// corpus always partitions the same way. A size below 1 is treated as 1.
func Partition(corpus core.Corpus, size int) []core.Corpus {
	if size < 1 {
		size = 1
	}
	ids := corpus.IDs()
	batches := make([]core.Corpus, 0, (len(ids)+size-1)/size)
	for start := 0; start < len(ids); start += size {
		end := min(start+size, len(ids))
		batches = append(batches, corpus.Subset(ids[start:end]))
	}
	return batches
}
