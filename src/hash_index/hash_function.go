package hashindex

import "hash/fnv"

// hashKey hashes an encoded key
func hashKey(key []byte) uint32 {
	h := fnv.New32a()
	h.Write(key)
	return h.Sum32()
}

// computeBucket determines which bucket a hash value belongs to
func (hi *HashIndex) computeBucket(hashValue uint32) uint32 {
	bucket := hashValue & hi.metadata.HighMask

	// Buckets past MaxBucket have not been split off yet
	if bucket > hi.metadata.MaxBucket {
		bucket = hashValue & hi.metadata.LowMask
	}

	return bucket
}
