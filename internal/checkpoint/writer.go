package checkpoint

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/dshills/smellscan/internal/analysis"
)

const artifactExt = ".json"

// SanitizeRevision makes a revision name safe for a file name: "/" becomes
// "_" and "@" is dropped.
func SanitizeRevision(rev string) string {
	return strings.NewReplacer("/", "_", "@", "").Replace(rev)
}

// ArtifactName returns the deterministic file name for a revision and model
// alias.
func ArtifactName(prefix, revision, alias string) string {
	return prefix + "_" + SanitizeRevision(revision) + "_" + alias + artifactExt
}

// Writer writes artifacts into one directory.
type Writer struct {
	dir    string
	prefix string
}

// NewWriter creates a Writer. The directory is created on first write.
func NewWriter(dir, prefix string) *Writer {
	return &Writer{dir: dir, prefix: prefix}
}

// Path returns where the artifact for revision and alias is written.
func (w *Writer) Path(revision, alias string) string {
	return filepath.Join(w.dir, ArtifactName(w.prefix, revision, alias))
}

// Write replaces the artifact for revision and alias with results and
// returns its path. results is not modified.
func (w *Writer) Write(revision, alias string, results []analysis.Result) (string, error) {
	data, err := Encode(results)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return "", fmt.Errorf("creating output directory: %w", err)
	}

	path := w.Path(revision, alias)
	if err := writeAtomic(path, data); err != nil {
		return "", fmt.Errorf("writing checkpoint %s: %w", filepath.Base(path), err)
	}
	return path, nil
}

// Encode renders results as an indented JSON array sorted by file path.
// Non-ASCII text and HTML characters are written as-is.
func Encode(results []analysis.Result) ([]byte, error) {
	sorted := make([]analysis.Result, len(results))
	copy(sorted, results)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].File < sorted[j].File })

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(sorted); err != nil {
		return nil, fmt.Errorf("encoding results: %w", err)
	}
	return buf.Bytes(), nil
}

func writeAtomic(path string, data []byte) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		return err
	}
	if err = tmp.Sync(); err != nil {
		return err
	}
	if err = tmp.Close(); err != nil {
		return err
	}
	if err = os.Chmod(tmp.Name(), 0o644); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
