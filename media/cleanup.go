package media

import (
	"errors"
	"io/fs"
	"os"

	"github.com/sirupsen/logrus"
)

// RemoveIfExists deletes a transient file. Failures are logged and never
// returned; the result reports whether a file was removed.
func RemoveIfExists(path string) bool {
	err := os.Remove(path)
	switch {
	case err == nil:
		logrus.WithFields(logrus.Fields{
			"function": "RemoveIfExists",
			"path":     path,
		}).Info("File removed")
		return true
	case errors.Is(err, fs.ErrNotExist):
		logrus.WithFields(logrus.Fields{
			"function": "RemoveIfExists",
			"path":     path,
		}).Debug("File not found, nothing to remove")
		return false
	default:
		logrus.WithFields(logrus.Fields{
			"function": "RemoveIfExists",
			"path":     path,
			"error":    err.Error(),
		}).Warn("Failed to remove file")
		return false
	}
}
