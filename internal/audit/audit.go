// Package audit persists circulation events as JSON files so that
// every checkout, return, reserve and promotion leaves a durable
// trace outside the database.
package audit

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/akowalski/bibliotek/internal/circulation"
)

// Record is the persisted form of a circulation event.
type Record struct {
	circulation.Event
	RecordedAt time.Time `json:"recorded_at"`
}

type Auditor struct {
	AuditDir string
}

func NewAuditor(auditDir string) *Auditor {
	return &Auditor{
		AuditDir: auditDir,
	}
}

// Record implements circulation.Recorder. Failures are logged, never
// returned: auditing must not fail a completed circulation operation.
func (a *Auditor) Record(event circulation.Event) {
	if _, err := a.SaveJSON(Record{Event: event, RecordedAt: time.Now()}); err != nil {
		log.Printf("Failed to write audit record: %v", err)
	}
}

// RecordPickupNotice persists a "book awaiting pickup" notice. Unlike
// Record it returns the error so the task queue can retry.
func (a *Auditor) RecordPickupNotice(userID, bookID uint) error {
	_, err := a.SaveJSON(map[string]any{
		"type":        "pickup_notice",
		"user_id":     userID,
		"book_id":     bookID,
		"recorded_at": time.Now(),
	})
	return err
}

// SaveJSON saves the provided data as JSON to a file with a UUID4
// filename and returns the filename.
func (a *Auditor) SaveJSON(data any) (string, error) {
	if err := a.ensureAuditDir(); err != nil {
		return "", fmt.Errorf("failed to ensure audit directory: %w", err)
	}

	filename := fmt.Sprintf("%s.json", uuid.New().String())
	path := filepath.Join(a.AuditDir, filename)

	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal data to JSON: %w", err)
	}

	if err := os.WriteFile(path, jsonData, 0644); err != nil {
		return "", fmt.Errorf("failed to write audit file: %w", err)
	}

	return filename, nil
}

// Cleanup deletes audit files older than the retention window and
// returns how many were removed.
func (a *Auditor) Cleanup(retention time.Duration) (int, error) {
	entries, err := os.ReadDir(a.AuditDir)
	if os.IsNotExist(err) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read audit directory: %w", err)
	}

	cutoff := time.Now().Add(-retention)
	removed := 0
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			if err := os.Remove(filepath.Join(a.AuditDir, entry.Name())); err != nil {
				return removed, fmt.Errorf("failed to remove audit file %s: %w", entry.Name(), err)
			}
			removed++
		}
	}
	return removed, nil
}

func (a *Auditor) ensureAuditDir() error {
	if _, err := os.Stat(a.AuditDir); os.IsNotExist(err) {
		if err := os.MkdirAll(a.AuditDir, 0755); err != nil {
			return fmt.Errorf("failed to create audit directory: %w", err)
		}
	}
	return nil
}
