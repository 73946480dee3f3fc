package key

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
)

// DefaultRecordPath is the key record written by each session.
const DefaultRecordPath = "key_used.txt"

// Record returns the one-line human-readable rendering of k.
func Record(k Key) string {
	return "Key used: " + k.String()
}

// WriteRecord overwrites path with the record of k.
func WriteRecord(path string, k Key) error {
	logrus.WithFields(logrus.Fields{
		"function": "WriteRecord",
		"path":     path,
		"key":      k.String(),
	}).Info("Writing key record")

	if err := os.WriteFile(path, []byte(Record(k)+"\n"), 0o644); err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "WriteRecord",
			"path":     path,
			"error":    err.Error(),
		}).Error("Failed to write key record")
		return fmt.Errorf("write key record %s: %w", path, err)
	}
	return nil
}
