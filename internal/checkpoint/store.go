package checkpoint

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/dshills/smellscan/internal/analysis"
)

// ArtifactInfo summarizes one artifact on disk.
type ArtifactInfo struct {
	Name    string    `json:"name"`
	Path    string    `json:"path"`
	Tag     string    `json:"tag,omitempty"`
	Model   string    `json:"model,omitempty"`
	Entries int       `json:"entries"`
	OK      int       `json:"ok"`
	Errors  int       `json:"errors"`
	Bytes   int64     `json:"bytes"`
	ModTime time.Time `json:"modTime"`
	// Invalid is set when the file could not be decoded.
	Invalid string `json:"invalid,omitempty"`
}

// Stats aggregates every artifact in a directory.
type Stats struct {
	Dir        string `json:"dir"`
	Artifacts  int    `json:"artifacts"`
	Entries    int    `json:"entries"`
	OK         int    `json:"ok"`
	Errors     int    `json:"errors"`
	TotalBytes int64  `json:"totalBytes"`
}

// Store reads artifacts from a directory.
type Store struct {
	dir    string
	prefix string
}

// NewStore creates a Store over dir for artifacts named with prefix.
func NewStore(dir, prefix string) *Store {
	return &Store{dir: dir, prefix: prefix}
}

// Dir returns the artifact directory.
func (s *Store) Dir() string { return s.dir }

// List returns every artifact in the directory sorted by name. A missing
// directory has no artifacts.
func (s *Store) List() ([]ArtifactInfo, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading output directory: %w", err)
	}

	var infos []ArtifactInfo
	for _, e := range entries {
		if e.IsDir() || !s.isArtifact(e.Name()) {
			continue
		}
		fi, err := e.Info()
		if err != nil {
			continue
		}
		info := ArtifactInfo{
			Name:    e.Name(),
			Path:    filepath.Join(s.dir, e.Name()),
			Bytes:   fi.Size(),
			ModTime: fi.ModTime(),
		}
		results, err := Load(info.Path)
		if err != nil {
			info.Invalid = err.Error()
			infos = append(infos, info)
			continue
		}
		info.Entries = len(results)
		for _, r := range results {
			if r.OK() {
				info.OK++
			} else {
				info.Errors++
			}
		}
		if len(results) > 0 {
			info.Tag = results[0].Tag
			info.Model = results[0].Model
		}
		infos = append(infos, info)
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
	return infos, nil
}

// Stats returns totals over every artifact.
func (s *Store) Stats() (Stats, error) {
	stats := Stats{Dir: s.dir}
	infos, err := s.List()
	if err != nil {
		return stats, err
	}
	for _, info := range infos {
		stats.Artifacts++
		stats.Entries += info.Entries
		stats.OK += info.OK
		stats.Errors += info.Errors
		stats.TotalBytes += info.Bytes
	}
	return stats, nil
}

// LoadAll returns the results of every decodable artifact, in artifact name
// order. Undecodable artifacts are reported through skipped.
func (s *Store) LoadAll() (results []analysis.Result, skipped []ArtifactInfo, err error) {
	infos, err := s.List()
	if err != nil {
		return nil, nil, err
	}
	for _, info := range infos {
		if info.Invalid != "" {
			skipped = append(skipped, info)
			continue
		}
		rs, err := Load(info.Path)
		if err != nil {
			info.Invalid = err.Error()
			skipped = append(skipped, info)
			continue
		}
		results = append(results, rs...)
	}
	return results, skipped, nil
}

// Clear removes every artifact and returns how many were removed.
func (s *Store) Clear() (int, error) {
	infos, err := s.List()
	if err != nil {
		return 0, err
	}
	removed := 0
	for _, info := range infos {
		if err := os.Remove(info.Path); err != nil {
			return removed, fmt.Errorf("removing %s: %w", info.Name, err)
		}
		removed++
	}
	return removed, nil
}

func (s *Store) isArtifact(name string) bool {
	return strings.HasPrefix(name, s.prefix+"_") && strings.HasSuffix(name, artifactExt)
}

// Load decodes one artifact file.
func Load(path string) ([]analysis.Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var results []analysis.Result
	if err := json.Unmarshal(data, &results); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", filepath.Base(path), err)
	}
	return results, nil
}
