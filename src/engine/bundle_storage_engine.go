package engine

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"syscall"
	"time"

	"syndrrel/src/helpers"
	"syndrrel/src/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
	"golang.org/x/sys/unix"
)

// BundleFileExtension is appended to the bundle name for its data file
const BundleFileExtension = ".bnd"

// BundleSnapshot is the on-disk form of a bundle
type BundleSnapshot struct {
	BundleID      string                   `bson:"bundleId"`
	Name          string                   `bson:"name"`
	Spec          string                   `bson:"spec"`
	Version       int                      `bson:"version"`
	AutoIncrement int64                    `bson:"autoIncrement"`
	Keys          []interface{}            `bson:"keys,omitempty"`
	Documents     []map[string]interface{} `bson:"documents"`
	SavedAt       time.Time                `bson:"savedAt"`
}

type BundleStore interface {
	SaveBundle(snapshot *BundleSnapshot) error
	LoadBundle(bundleName string) (*BundleSnapshot, error)
	ListBundles() ([]string, error)
	RemoveBundle(bundleName string) error
}

type BundleStorageEngine struct {
	DataDirectory string
	logger        *zap.SugaredLogger
}

func NewBundleStore(dataDir string, logger *zap.SugaredLogger) (*BundleStorageEngine, error) {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	store := &BundleStorageEngine{
		DataDirectory: dataDir,
		logger:        logger,
	}

	// Ensure the data directory exists
	if err := os.MkdirAll(store.DataDirectory, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory %s: %w", store.DataDirectory, err)
	}

	return store, nil
}

func (bse *BundleStorageEngine) bundlePath(bundleName string) string {
	return filepath.Join(bse.DataDirectory, bundleName+BundleFileExtension)
}

// SaveBundle encodes the snapshot as BSON and atomically replaces the bundle file
func (bse *BundleStorageEngine) SaveBundle(snapshot *BundleSnapshot) error {
	encoded, err := helpers.EncodeBSON(snapshot)
	if err != nil {
		return fmt.Errorf("error encoding bundle %s: %w", snapshot.Name, err)
	}

	if err := helpers.WriteFileAtomic(bse.bundlePath(snapshot.Name), encoded); err != nil {
		return fmt.Errorf("error writing bundle data file %s: %w", snapshot.Name, err)
	}

	bse.logger.Infow("Saved bundle file",
		"bundle", snapshot.Name,
		"documents", len(snapshot.Documents),
		"fileSize", len(encoded))
	return nil
}

// LoadBundle memory maps the bundle file and decodes it
func (bse *BundleStorageEngine) LoadBundle(bundleName string) (*BundleSnapshot, error) {
	filePath := bse.bundlePath(bundleName)
	if !helpers.FileExists(filePath, bse.logger) {
		return nil, fmt.Errorf("%w: bundle file %s does not exist", ErrBundleNotFound, bundleName)
	}

	bundleFile, err := helpers.OpenDataFile(bse.DataDirectory, bundleName+BundleFileExtension)
	if err != nil {
		return nil, err
	}
	defer bundleFile.Close()

	stat, err := bundleFile.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to get file stats for %s: %w", bundleName, err)
	}
	fileSize := int(stat.Size())
	if fileSize == 0 {
		return nil, fmt.Errorf("bundle file %s is empty", bundleName)
	}

	data, err := unix.Mmap(int(bundleFile.Fd()), 0, fileSize, syscall.PROT_READ, syscall.MAP_SHARED)
	if err != nil {
		return nil, fmt.Errorf("failed to memory map bundle file %s: %w", bundleName, err)
	}
	defer unix.Munmap(data)

	snapshot, err := helpers.DecodeBSON[BundleSnapshot](data)
	if err != nil {
		return nil, fmt.Errorf("error decoding bundle data from file %s: %w", bundleName, err)
	}

	// Nothing decoded may point into the mapping once it is unmapped
	for i, doc := range snapshot.Documents {
		snapshot.Documents[i] = map[string]interface{}(NormalizeDocument(doc))
	}
	for i, key := range snapshot.Keys {
		snapshot.Keys[i] = normalizeBSONValue(key)
	}

	bse.logger.Debugf("Loaded bundle file %s with %d documents", bundleName, len(snapshot.Documents))
	return &snapshot, nil
}

// ListBundles returns the names of all bundle files in the data directory
func (bse *BundleStorageEngine) ListBundles() ([]string, error) {
	entries, err := os.ReadDir(bse.DataDirectory)
	if err != nil {
		return nil, fmt.Errorf("error reading data directory %s: %w", bse.DataDirectory, err)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), BundleFileExtension) {
			continue
		}
		names = append(names, strings.TrimSuffix(entry.Name(), BundleFileExtension))
	}
	sort.Strings(names)
	return names, nil
}

func (bse *BundleStorageEngine) RemoveBundle(bundleName string) error {
	if err := helpers.DeleteDataFile(bse.bundlePath(bundleName)); err != nil {
		return fmt.Errorf("error removing bundle data file %s: %w", bundleName, err)
	}
	return nil
}

// NormalizeDocument converts decoded BSON values back to plain Go values
func NormalizeDocument(raw map[string]interface{}) models.Document {
	doc := make(models.Document, len(raw))
	for k, v := range raw {
		doc[k] = normalizeBSONValue(v)
	}
	return doc
}

func normalizeBSONValue(value interface{}) interface{} {
	switch v := value.(type) {
	case primitive.D:
		out := make(map[string]interface{}, len(v))
		for _, e := range v {
			out[e.Key] = normalizeBSONValue(e.Value)
		}
		return out
	case primitive.M:
		return normalizeMap(v)
	case map[string]interface{}:
		return normalizeMap(v)
	case primitive.A:
		return normalizeSlice(v)
	case []interface{}:
		return normalizeSlice(v)
	case primitive.DateTime:
		return v.Time().UTC()
	case primitive.Binary:
		return append([]byte(nil), v.Data...)
	case []byte:
		return append([]byte(nil), v...)
	case int32:
		return int64(v)
	case primitive.Null, primitive.Undefined:
		return nil
	default:
		return v
	}
}

func normalizeMap(m map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(m))
	for k, v := range m {
		out[k] = normalizeBSONValue(v)
	}
	return out
}

func normalizeSlice(s []interface{}) []interface{} {
	out := make([]interface{}, len(s))
	for i, v := range s {
		out[i] = normalizeBSONValue(v)
	}
	return out
}
