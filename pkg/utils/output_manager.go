package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// OutputManager lays out exported files in one directory per session
type OutputManager struct {
	BaseOutputDir string
}

// NewOutputManager creates a new output manager
func NewOutputManager(baseOutputDir string) *OutputManager {
	return &OutputManager{
		BaseOutputDir: baseOutputDir,
	}
}

// SessionDir creates the export directory of a session
func (om *OutputManager) SessionDir(sessionID string) (string, error) {
	dir := filepath.Join(om.BaseOutputDir, filepath.Base(sessionID))
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create session output directory: %w", err)
	}
	return dir, nil
}

// FilePath resolves fileName inside the session directory. Path separators
// in fileName are ignored.
func (om *OutputManager) FilePath(sessionID, fileName string) string {
	return filepath.Join(om.BaseOutputDir, filepath.Base(sessionID), filepath.Base(fileName))
}

// DownloadURL is where the API serves an exported file
func (om *OutputManager) DownloadURL(sessionID, fileName string) string {
	return fmt.Sprintf("/api/v1/sessions/%s/files/%s", sessionID, filepath.Base(fileName))
}

// ContentType maps an export extension to its MIME type
func (om *OutputManager) ContentType(fileName string) string {
	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".csv":
		return "text/csv"
	case ".json":
		return "application/json"
	case ".xlsx":
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	default:
		return "application/octet-stream"
	}
}

// FileSize returns the size of a file in bytes
func (om *OutputManager) FileSize(filePath string) (int64, error) {
	fileInfo, err := os.Stat(filePath)
	if err != nil {
		return 0, err
	}
	return fileInfo.Size(), nil
}

// RemoveSession deletes every exported file of a session
func (om *OutputManager) RemoveSession(sessionID string) error {
	return os.RemoveAll(filepath.Join(om.BaseOutputDir, filepath.Base(sessionID)))
}
