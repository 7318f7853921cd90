package hashindex

import (
	"bytes"
	"errors"
	"fmt"
)

var ErrDuplicateKey = errors.New("duplicate key detected in unique index")

// Insert adds a key/document pair to the hash index
func (hi *HashIndex) Insert(key []byte, docID string) error {
	hi.Lock()
	defer hi.Unlock()

	hashValue := hashKey(key)
	bucketNum := hi.computeBucket(hashValue)

	for _, item := range hi.buckets[bucketNum] {
		if !bytes.Equal(item.Key, key) {
			continue
		}
		for _, existing := range item.DocIDs {
			if existing == docID {
				return nil
			}
		}
		if hi.metadata.IsUnique {
			return fmt.Errorf("%w: %s already holds document %s", ErrDuplicateKey, hi.metadata.IndexField, item.DocIDs[0])
		}
		item.DocIDs = append(item.DocIDs, docID)
		hi.metadata.NumTuples++
		return nil
	}

	stored := make([]byte, len(key))
	copy(stored, key)
	hi.buckets[bucketNum] = append(hi.buckets[bucketNum], &HashIndexItem{
		HashValue: hashValue,
		Key:       stored,
		DocIDs:    []string{docID},
	})
	hi.metadata.NumKeys++
	hi.metadata.NumTuples++

	// Split once the average bucket load passes the fill factor
	if hi.metadata.NumKeys > uint64(hi.metadata.MaxBucket+1)*uint64(hi.metadata.FillFactor) {
		hi.splitBucket()
	}

	return nil
}

// Remove drops a key/document pair. It reports whether the pair was present.
func (hi *HashIndex) Remove(key []byte, docID string) bool {
	hi.Lock()
	defer hi.Unlock()

	bucketNum := hi.computeBucket(hashKey(key))
	bucket := hi.buckets[bucketNum]
	for i, item := range bucket {
		if !bytes.Equal(item.Key, key) {
			continue
		}
		for j, existing := range item.DocIDs {
			if existing != docID {
				continue
			}
			item.DocIDs = append(item.DocIDs[:j], item.DocIDs[j+1:]...)
			hi.metadata.NumTuples--
			if len(item.DocIDs) == 0 {
				hi.buckets[bucketNum] = append(bucket[:i], bucket[i+1:]...)
				hi.metadata.NumKeys--
			}
			return true
		}
		return false
	}
	return false
}

// Find returns the documents stored under key, in insertion order
func (hi *HashIndex) Find(key []byte) []string {
	hi.RLock()
	defer hi.RUnlock()

	for _, item := range hi.buckets[hi.computeBucket(hashKey(key))] {
		if bytes.Equal(item.Key, key) {
			out := make([]string, len(item.DocIDs))
			copy(out, item.DocIDs)
			return out
		}
	}
	return nil
}

// Contains reports whether any document is stored under key
func (hi *HashIndex) Contains(key []byte) bool {
	hi.RLock()
	defer hi.RUnlock()

	for _, item := range hi.buckets[hi.computeBucket(hashKey(key))] {
		if bytes.Equal(item.Key, key) {
			return true
		}
	}
	return false
}

// splitBucket implements the linear hashing bucket split algorithm.
// Caller must hold the write lock.
func (hi *HashIndex) splitBucket() {
	newBucketNum := hi.metadata.MaxBucket + 1
	splitBucket := newBucketNum & hi.metadata.LowMask

	hi.logger.Debugf("Splitting bucket %d into %d on %s", splitBucket, newBucketNum, hi.metadata.IndexField)

	hi.buckets = append(hi.buckets, nil)
	hi.metadata.MaxBucket = newBucketNum

	old := hi.buckets[splitBucket]
	hi.buckets[splitBucket] = nil
	for _, item := range old {
		target := hi.computeBucket(item.HashValue)
		hi.buckets[target] = append(hi.buckets[target], item)
	}

	// Table doubled, move to the next round of masks
	if hi.metadata.MaxBucket == hi.metadata.HighMask {
		hi.metadata.LowMask = hi.metadata.HighMask
		hi.metadata.HighMask = (hi.metadata.HighMask << 1) | 1
	}

	hi.metadata.Splits++
}
