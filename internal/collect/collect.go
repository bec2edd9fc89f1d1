package collect

import (
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Options controls which files are eligible.
type Options struct {
	// Roots are package directories relative to the workspace root, in the
	// order their files should be emitted.
	Roots []string
	// SourceDir is the subdirectory of each root that is walked.
	SourceDir string
	// Extensions are allowed file suffixes, e.g. ".ts".
	Extensions []string
	// Exclude lists substrings that disqualify a relative path.
	Exclude []string
	// Limit caps the number of files returned when > 0.
	Limit int
}

// SourceFile is an eligible file in the current workspace.
type SourceFile struct {
	Path    string `json:"path"`
	RelPath string `json:"relPath"`
}

// Collector discovers eligible source files.
type Collector struct {
	opts   Options
	logger *slog.Logger
}

// New creates a Collector. A nil logger discards output.
func New(opts Options, logger *slog.Logger) *Collector {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Collector{opts: opts, logger: logger}
}

// Collect walks the allowed roots below workspace and returns the eligible
// files. Missing roots are skipped; only an inaccessible workspace is an error.
func (c *Collector) Collect(workspace string) ([]SourceFile, error) {
	root, err := filepath.Abs(workspace)
	if err != nil {
		return nil, fmt.Errorf("resolving workspace: %w", err)
	}
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("workspace not accessible: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("workspace %s is not a directory", root)
	}

	var files []SourceFile
	seen := make(map[string]bool)

	for _, pkg := range c.opts.Roots {
		srcDir := filepath.Join(root, filepath.FromSlash(pkg), c.opts.SourceDir)
		if st, err := os.Stat(srcDir); err != nil || !st.IsDir() {
			c.logger.Debug("skipping missing source root", "root", pkg)
			continue
		}

		var found []SourceFile
		walkErr := filepath.WalkDir(srcDir, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				c.logger.Debug("skipping unreadable path", "path", path, "error", err)
				return nil
			}
			if d.IsDir() {
				return nil
			}
			rel, err := filepath.Rel(root, path)
			if err != nil {
				return nil
			}
			rel = filepath.ToSlash(rel)
			if !c.Eligible(rel) || seen[rel] {
				return nil
			}
			seen[rel] = true
			found = append(found, SourceFile{Path: path, RelPath: rel})
			return nil
		})
		if walkErr != nil {
			c.logger.Warn("walking source root", "root", pkg, "error", walkErr)
		}

		sort.Slice(found, func(i, j int) bool { return found[i].RelPath < found[j].RelPath })
		files = append(files, found...)
	}

	if c.opts.Limit > 0 && len(files) > c.opts.Limit {
		c.logger.Info("file limit active", "limit", c.opts.Limit, "found", len(files))
		files = files[:c.opts.Limit]
	}

	return files, nil
}

// Eligible reports whether a workspace-relative path passes the extension and
// exclusion filters. It does not check the root or source directory.
func (c *Collector) Eligible(relPath string) bool {
	if !HasExtension(relPath, c.opts.Extensions) {
		return false
	}
	return !ContainsAny(relPath, c.opts.Exclude)
}

// HasExtension returns true if path ends with one of the extensions.
func HasExtension(path string, extensions []string) bool {
	for _, ext := range extensions {
		if ext != "" && strings.HasSuffix(path, ext) {
			return true
		}
	}
	return false
}

// ContainsAny returns true if path contains any of the substrings.
func ContainsAny(path string, substrings []string) bool {
	for _, s := range substrings {
		if s != "" && strings.Contains(path, s) {
			return true
		}
	}
	return false
}

// ReadText reads a file as text. Invalid UTF-8 sequences are dropped rather
// than reported, so undecodable bytes never fail a read.
func ReadText(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return strings.ToValidUTF8(string(data), ""), nil
}
