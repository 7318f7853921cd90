package engine

// This file contains the journal functionality for the database engine.
// Every write and schema version applied to the database is appended to
// a dated journal file.

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"
)

const (
	DefaultJournalMaxSize       = 10 * 1024 * 1024
	DefaultJournalRetentionDays = 7

	// Recent entries kept in memory
	journalEntryCap = 1024
)

var journalDatePattern = regexp.MustCompile(`_(\d{4}-\d{2}-\d{2})(\.\d+)?\.journal$`)

// JournalEntry represents a single entry in the journal.
type JournalEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Command   string    `json:"command"`
	Bundle    string    `json:"bundle"`
	Details   string    `json:"details"`
}

// Journal represents the journal for the database engine.
type Journal struct {
	mu                 sync.Mutex
	entries            []JournalEntry
	file               *os.File  // File handle for the journal file
	fileName           string    // Name of the open journal file
	baseFilePath       string    // Base path for journal files (without date)
	currentDate        time.Time // The date of the current journal file
	maxJournalFileSize int64
	currentSize        int64
	retentionDays      int
	rotations          int
	now                func() time.Time
}

// JournalOption configures a Journal
type JournalOption func(*Journal)

// WithMaxFileSize rotates the journal file once it grows past size bytes
func WithMaxFileSize(size int64) JournalOption {
	return func(j *Journal) {
		if size > 0 {
			j.maxJournalFileSize = size
		}
	}
}

// WithRetentionDays sets how long CleanupOldJournals keeps old files
func WithRetentionDays(days int) JournalOption {
	return func(j *Journal) {
		if days > 0 {
			j.retentionDays = days
		}
	}
}

// NewJournal creates a new journal instance.
func NewJournal(journalFilePath string, opts ...JournalOption) (*Journal, error) {
	journal := &Journal{
		baseFilePath:       getBaseFilePath(journalFilePath),
		maxJournalFileSize: DefaultJournalMaxSize,
		retentionDays:      DefaultJournalRetentionDays,
		now:                time.Now,
	}
	for _, opt := range opts {
		opt(journal)
	}

	// Open the current day's journal file
	if err := journal.ensureCorrectFileOpen(); err != nil {
		return nil, err
	}

	return journal, nil
}

// getBaseFilePath extracts the base path without date component
func getBaseFilePath(journalFilePath string) string {
	dir := filepath.Dir(journalFilePath)
	base := filepath.Base(journalFilePath)
	ext := filepath.Ext(journalFilePath)

	// Remove any existing date pattern (assuming YYYY-MM-DD format)
	baseName := strings.TrimSuffix(base, ext)
	datePattern := regexp.MustCompile(`_\d{4}-\d{2}-\d{2}$`)
	baseName = datePattern.ReplaceAllString(baseName, "")

	return filepath.Join(dir, baseName)
}

func (j *Journal) fileNameFor(date time.Time) string {
	return fmt.Sprintf("%s_%s.journal", j.baseFilePath, date.Format("2006-01-02"))
}

// ensureCorrectFileOpen ensures the correct journal file is open based on current date
func (j *Journal) ensureCorrectFileOpen() error {
	today := j.now().UTC().Truncate(24 * time.Hour)

	// If we already have the correct file open, do nothing
	if j.file != nil && j.currentDate.Equal(today) {
		return nil
	}

	if j.file != nil {
		if err := j.file.Close(); err != nil {
			return fmt.Errorf("failed to close previous journal file: %w", err)
		}
		j.file = nil
	}

	fileName := j.fileNameFor(today)
	if err := os.MkdirAll(filepath.Dir(fileName), 0755); err != nil {
		return fmt.Errorf("failed to create journal directory: %w", err)
	}

	file, err := os.OpenFile(fileName, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open journal file %s: %w", fileName, err)
	}
	info, err := file.Stat()
	if err != nil {
		file.Close()
		return fmt.Errorf("failed to stat journal file %s: %w", fileName, err)
	}

	j.file = file
	j.fileName = fileName
	j.currentDate = today
	j.currentSize = info.Size()

	return nil
}

// rotate moves the full journal file aside and starts a fresh one for today
func (j *Journal) rotate() error {
	if err := j.file.Close(); err != nil {
		return fmt.Errorf("failed to close journal file for rotation: %w", err)
	}
	j.file = nil

	var rotated string
	for {
		j.rotations++
		rotated = fmt.Sprintf("%s_%s.%d.journal", j.baseFilePath, j.currentDate.Format("2006-01-02"), j.rotations)
		if _, err := os.Stat(rotated); os.IsNotExist(err) {
			break
		}
	}
	if err := os.Rename(j.fileName, rotated); err != nil {
		return fmt.Errorf("failed to rotate journal file: %w", err)
	}

	return j.ensureCorrectFileOpen()
}

// AddEntry adds a new entry to the journal.
func (j *Journal) AddEntry(command, bundle, details string) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if err := j.ensureCorrectFileOpen(); err != nil {
		return err
	}

	entry := JournalEntry{
		Timestamp: j.now(),
		Command:   command,
		Bundle:    bundle,
		Details:   details,
	}

	line := fmt.Sprintf("%s | %s | %s | %s\n", entry.Timestamp.Format(time.RFC3339), entry.Command, entry.Bundle, entry.Details)
	if j.currentSize > 0 && j.currentSize+int64(len(line)) > j.maxJournalFileSize {
		if err := j.rotate(); err != nil {
			return err
		}
	}

	if _, err := j.file.WriteString(line); err != nil {
		return fmt.Errorf("failed to write to journal file: %w", err)
	}
	j.currentSize += int64(len(line))

	j.entries = append(j.entries, entry)
	if len(j.entries) > journalEntryCap {
		j.entries = j.entries[len(j.entries)-journalEntryCap:]
	}

	return nil
}

// Entries returns the most recent entries, oldest first
func (j *Journal) Entries() []JournalEntry {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]JournalEntry(nil), j.entries...)
}

// FileName returns the path of the open journal file
func (j *Journal) FileName() string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.fileName
}

// Close closes the journal file.
func (j *Journal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.file != nil {
		if err := j.file.Close(); err != nil {
			return fmt.Errorf("failed to close journal file: %w", err)
		}
		j.file = nil
	}
	return nil
}

// CleanupOldJournals removes journal files dated before the retention window.
// The open file is never removed.
func (j *Journal) CleanupOldJournals() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	cutoff := j.now().UTC().Truncate(24*time.Hour).AddDate(0, 0, -j.retentionDays)

	matches, err := filepath.Glob(j.baseFilePath + "_*.journal")
	if err != nil {
		return fmt.Errorf("failed to list journal files: %w", err)
	}

	for _, match := range matches {
		if match == j.fileName {
			continue
		}
		m := journalDatePattern.FindStringSubmatch(filepath.Base(match))
		if m == nil {
			continue
		}
		date, err := time.Parse("2006-01-02", m[1])
		if err != nil || !date.Before(cutoff) {
			continue
		}
		if err := os.Remove(match); err != nil {
			return fmt.Errorf("failed to remove old journal file %s: %w", match, err)
		}
	}
	return nil
}
