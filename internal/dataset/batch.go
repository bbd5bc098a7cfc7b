package dataset

// BatchPlan describes how a partition of samples is walked in batches.
// Batch i covers rows [i*BatchSize, (i+1)*BatchSize), clipped to the
// partition length for the final batch.
type BatchPlan struct {
	BatchSize      int
	NumBatches     int
	FinalBatchSize int
	NumSamples     int
}

// PlanBatches computes the batch layout for numSamples rows. A requested
// size outside (0, numSamples] is clamped to a single full batch.
func PlanBatches(numSamples, batchSize int) BatchPlan {
	if batchSize <= 0 || batchSize > numSamples {
		batchSize = numSamples
	}
	plan := BatchPlan{
		BatchSize:  batchSize,
		NumSamples: numSamples,
	}
	if numSamples == 0 {
		return plan
	}
	plan.NumBatches = (numSamples + batchSize - 1) / batchSize
	plan.FinalBatchSize = numSamples % batchSize
	if plan.FinalBatchSize == 0 {
		plan.FinalBatchSize = batchSize
	}
	return plan
}

// Range reports the [start, end) row range of batch i.
func (p BatchPlan) Range(i int) (start, end int) {
	start = i * p.BatchSize
	end = start + p.BatchSize
	if end > p.NumSamples {
		end = p.NumSamples
	}
	return start, end
}

// Len reports the size of batch i.
func (p BatchPlan) Len(i int) int {
	start, end := p.Range(i)
	return end - start
}
