package utils

import (
	"runtime"
	"sync"
)

type PartitionMap struct {
	MaxIndex       int // MaxIndex is partitioned into ParallelDegree partitions
	ParallelDegree int
	Partitions     [][2]int // Beginning and end index of partitions
}

// NewPartitionMap splits [0, maxIndex) into ParallelDegree contiguous buckets.
// A ParallelDegree <= 0 uses GOMAXPROCS, and the degree is never larger than
// maxIndex so that no bucket is empty (unless maxIndex is zero).
func NewPartitionMap(ParallelDegree, maxIndex int) (pm *PartitionMap) {
	if ParallelDegree <= 0 {
		ParallelDegree = runtime.GOMAXPROCS(0)
	}
	if ParallelDegree > maxIndex && maxIndex > 0 {
		ParallelDegree = maxIndex
	}
	if ParallelDegree < 1 {
		ParallelDegree = 1
	}
	pm = &PartitionMap{
		MaxIndex:       maxIndex,
		ParallelDegree: ParallelDegree,
		Partitions:     make([][2]int, ParallelDegree),
	}
	for n := 0; n < ParallelDegree; n++ {
		pm.Partitions[n] = pm.Split1D(n)
	}
	return
}

func (pm *PartitionMap) GetBucketRange(bucketNum int) (kMin, kMax int) {
	kMin, kMax = pm.Partitions[bucketNum][0], pm.Partitions[bucketNum][1]
	return
}

func (pm *PartitionMap) Split1D(threadNum int) (bucket [2]int) {
	// Splits one dimension into ParallelDegree pieces with a maximum imbalance of one item
	var (
		Npart            = pm.MaxIndex / (pm.ParallelDegree)
		startAdd, endAdd int
		remainder        int
	)
	remainder = pm.MaxIndex % pm.ParallelDegree
	if remainder != 0 { // spread the remainder over the first chunks evenly
		if threadNum+1 > remainder {
			startAdd = remainder
			endAdd = 0
		} else {
			startAdd = threadNum
			endAdd = 1
		}
	}
	bucket[0] = threadNum*Npart + startAdd
	bucket[1] = bucket[0] + Npart + endAdd
	return
}

// ParallelFor runs f once per bucket, each in its own goroutine, and returns
// when all of them are done. A single bucket runs on the calling goroutine.
func (pm *PartitionMap) ParallelFor(f func(np, kMin, kMax int)) {
	var (
		NP = pm.ParallelDegree
		wg = sync.WaitGroup{}
	)
	if NP == 1 {
		kMin, kMax := pm.GetBucketRange(0)
		f(0, kMin, kMax)
		return
	}
	for np := 0; np < NP; np++ {
		wg.Add(1)
		go func(np int) {
			kMin, kMax := pm.GetBucketRange(np)
			f(np, kMin, kMax)
			wg.Done()
		}(np)
	}
	wg.Wait()
}

// ParallelSum is ParallelFor for reductions: each bucket returns a partial sum
// and the partials are added in bucket order, so the result does not depend
// on goroutine scheduling.
func (pm *PartitionMap) ParallelSum(f func(kMin, kMax int) float64) (sum float64) {
	var (
		partial = make([]float64, pm.ParallelDegree)
	)
	pm.ParallelFor(func(np, kMin, kMax int) {
		partial[np] = f(kMin, kMax)
	})
	for _, p := range partial {
		sum += p
	}
	return
}
