// Package output persists completion results to agent output files.
package output

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"
)

// backupTimestampLayout names backups down to the second, matching the
// files existing tooling already expects to find next to outputs.
const backupTimestampLayout = "20060102_150405"

// Writer saves agent results, backing up any file it is about to
// overwrite. JSON results are normalized to two-space indentation;
// anything else is written verbatim.
type Writer struct {
	backupEnabled bool
	logger        *slog.Logger

	// now is overridable so tests get stable backup names.
	now func() time.Time
}

// NewWriter creates a writer. When backupEnabled is false, existing
// output files are overwritten without a backup copy.
func NewWriter(backupEnabled bool, logger *slog.Logger) *Writer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Writer{backupEnabled: backupEnabled, logger: logger, now: time.Now}
}

// Write persists result to path. The existing file, if any, is backed
// up first; a failed backup is logged and the write proceeds. The
// result is normalized when it parses as JSON after markdown fence
// stripping and saved verbatim otherwise.
func (w *Writer) Write(path, result string) error {
	w.backupExisting(path)

	if normalized, ok := normalizeJSON(result); ok {
		if err := os.WriteFile(path, normalized, 0o644); err != nil {
			return fmt.Errorf("output: write %s: %w", path, err)
		}
		w.logger.Info("results saved", "path", path)
		return nil
	}

	if err := os.WriteFile(path, []byte(result), 0o644); err != nil {
		return fmt.Errorf("output: write %s: %w", path, err)
	}
	w.logger.Warn("result was not valid JSON, saved as text", "path", path)
	return nil
}

// backupExisting copies the current file aside before it is replaced.
// Backups are strictly best effort.
func (w *Writer) backupExisting(path string) {
	if !w.backupEnabled {
		return
	}
	if _, err := os.Stat(path); err != nil {
		return
	}

	backupPath := fmt.Sprintf("%s.backup_%s", path, w.now().Format(backupTimestampLayout))
	if err := copyFile(path, backupPath); err != nil {
		w.logger.Error("failed to create backup", "path", path, "error", err)
		return
	}
	w.logger.Info("created backup", "path", backupPath)
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// normalizeJSON strips a surrounding markdown code fence, and when the
// remainder parses as JSON, re-indents it with two spaces. Indenting
// the original tokens keeps object key order and non-ASCII text
// exactly as the model produced them. The second return is false when
// the result is not JSON and should be written as-is.
func normalizeJSON(result string) ([]byte, bool) {
	cleaned := strings.TrimSpace(result)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimSuffix(cleaned, "```")
	cleaned = strings.TrimSpace(cleaned)

	if !json.Valid([]byte(cleaned)) {
		return nil, false
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, []byte(cleaned), "", "  "); err != nil {
		return nil, false
	}
	return buf.Bytes(), true
}
