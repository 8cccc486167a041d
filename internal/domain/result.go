package domain

// BatchResult summarizes one store-level batch write.
type BatchResult struct {
	// Created is the number of records written under a previously unseen
	// tracking number.
	Created int

	// Updated is the number of records merged into an existing tracking
	// number.
	Updated int

	// Failed is the number of records that could not be written after the
	// batch settled.
	Failed int

	// DuplicatesSeen is the number of extra occurrences of tracking numbers
	// that appeared more than once in the submitted batch.
	DuplicatesSeen int
}

// ChunkFailure records a chunk whose retry budget was exhausted.
type ChunkFailure struct {
	// Offset is the starting index of the chunk within the whole import.
	Offset int

	// Size is the number of records the chunk carried.
	Size int

	// Err is the error from the final attempt.
	Err error
}

// ImportSummary is the outcome of a whole batch import. Bulk operations
// always complete with a summary rather than an all-or-nothing error.
type ImportSummary struct {
	Created    int
	Updated    int
	Failed     int
	Duplicates int

	// Preexisting is the advisory pre-flight count of incoming tracking
	// numbers that already existed in the store. Zero when pre-flight is
	// disabled.
	Preexisting int

	// Rejected counts records dropped before any store call (snapshot
	// imports reject records missing required fields).
	Rejected int

	// FailedChunks lists every chunk that exhausted its retries.
	FailedChunks []ChunkFailure
}

// StorageInfo describes the active backend's footprint.
type StorageInfo struct {
	Count              int64 `json:"count"`
	EstimatedSizeBytes int64 `json:"estimatedSizeBytes"`
}
