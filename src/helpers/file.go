package helpers

import (
	"fmt"
	"os"
	"path/filepath"

	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"
)

func OpenDataFile(dataDirectory, fileName string) (*os.File, error) {
	// Open a specific data file
	filePath := filepath.Join(dataDirectory, fileName)
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("error opening data file %s: %w", fileName, err)
	}
	return file, nil
}

// DeleteDataFile deletes a file, a missing file is not an error
func DeleteDataFile(filePath string) error {
	if err := os.Remove(filePath); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// FileExists checks if a file exists and is not a directory
func FileExists(filename string, logger *zap.SugaredLogger) bool {
	info, err := os.Stat(filename)
	if err != nil {
		if os.IsNotExist(err) {
			logger.Debugf("File does not exist: %s", filename)
			return false
		}

		logger.Infof("Error checking file %s for existence: %s", filename, err)
		return false
	}

	return !info.IsDir()
}

// WriteFileAtomic writes data to a temp file next to path and renames it into place
func WriteFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("error creating temp file for %s: %w", path, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("error writing temp file for %s: %w", path, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("error syncing temp file for %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	return os.Rename(tmpName, path)
}

// EncodeBSON encodes any BSON-marshalable value
func EncodeBSON(value interface{}) ([]byte, error) {
	bsonData, err := bson.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("error encoding BSON: %w", err)
	}
	return bsonData, nil
}

// DecodeBSON decodes BSON data into a value of type T
func DecodeBSON[T any](bsonData []byte) (T, error) {
	var decoded T
	if err := bson.Unmarshal(bsonData, &decoded); err != nil {
		return decoded, fmt.Errorf("error decoding BSON: %w", err)
	}
	return decoded, nil
}
