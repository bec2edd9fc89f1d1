package gitctx

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Revision is a named, timestamped point in history. Commit is the full
// SHA the name resolves to, when known.
type Revision struct {
	Name      string    `json:"name"`
	Commit    string    `json:"commit,omitempty"`
	Committed time.Time `json:"committed"`
}

// RepoMeta contains git repository metadata.
type RepoMeta struct {
	Root   string
	Head   string
	Branch string
}

// Repo is a git working tree on disk.
type Repo struct {
	Dir string
}

// Open returns a Repo for dir after checking that it is a git work tree.
func Open(ctx context.Context, dir string) (*Repo, error) {
	r := &Repo{Dir: dir}
	if _, err := r.git(ctx, "rev-parse", "--is-inside-work-tree"); err != nil {
		return nil, fmt.Errorf("not a git repository: %s: %w", dir, err)
	}
	return r, nil
}

// EnsureClone opens dir, cloning url into it first when dir does not exist.
// An existing non-repository dir is an error.
func EnsureClone(ctx context.Context, url, dir string) (*Repo, error) {
	if _, err := os.Stat(dir); err == nil {
		return Open(ctx, dir)
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("checking %s: %w", dir, err)
	}
	if url == "" {
		return nil, fmt.Errorf("repository %s does not exist and no clone URL is configured", dir)
	}
	if _, err := gitOutput(ctx, "", "clone", url, dir); err != nil {
		return nil, fmt.Errorf("git clone %s: %w", url, err)
	}
	return &Repo{Dir: dir}, nil
}

// Meta collects repository metadata.
func (r *Repo) Meta(ctx context.Context) (RepoMeta, error) {
	root, err := r.git(ctx, "rev-parse", "--show-toplevel")
	if err != nil {
		return RepoMeta{}, fmt.Errorf("not a git repository: %w", err)
	}
	head, err := r.git(ctx, "rev-parse", "HEAD")
	if err != nil {
		head = "" // new repo with no commits
	}
	branch, err := r.git(ctx, "rev-parse", "--abbrev-ref", "HEAD")
	if err != nil {
		branch = ""
	}
	return RepoMeta{
		Root:   strings.TrimSpace(root),
		Head:   strings.TrimSpace(head),
		Branch: strings.TrimSpace(branch),
	}, nil
}

// tagFormat yields name, the ref's own committer date (set for lightweight
// tags), the peeled committer date (set for annotated tags), then the same
// pair for the object name.
const tagFormat = "%(refname:short)%09%(committerdate:unix)%09%(*committerdate:unix)%09%(objectname)%09%(*objectname)"

// ListTags returns every tag with the committer time of its target commit.
// Tags that do not point at a commit are skipped. The order is unspecified.
func (r *Repo) ListTags(ctx context.Context) ([]Revision, error) {
	out, err := r.git(ctx, "for-each-ref", "--format="+tagFormat, "refs/tags")
	if err != nil {
		return nil, fmt.Errorf("git for-each-ref: %w", err)
	}
	return parseTags(out), nil
}

func parseTags(out string) []Revision {
	var revs []Revision
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimRight(line, "\r")
		if line == "" {
			continue
		}
		fields := strings.Split(line, "\t")
		if len(fields) < 2 || fields[0] == "" {
			continue
		}
		stamp := ""
		if len(fields) >= 3 && fields[2] != "" {
			stamp = fields[2]
		} else {
			stamp = fields[1]
		}
		secs, err := strconv.ParseInt(strings.TrimSpace(stamp), 10, 64)
		if err != nil {
			continue // tag of a tree or blob
		}
		rev := Revision{Name: fields[0], Committed: time.Unix(secs, 0).UTC()}
		if len(fields) >= 5 && fields[4] != "" {
			rev.Commit = fields[4]
		} else if len(fields) >= 4 {
			rev.Commit = fields[3]
		}
		revs = append(revs, rev)
	}
	return revs
}

// SelectTop returns the k most recently committed revisions, newest first.
// Ties are broken by name so the selection is stable. k <= 0 selects all.
func SelectTop(revs []Revision, k int) []Revision {
	sorted := make([]Revision, len(revs))
	copy(sorted, revs)
	sort.SliceStable(sorted, func(i, j int) bool {
		if !sorted[i].Committed.Equal(sorted[j].Committed) {
			return sorted[i].Committed.After(sorted[j].Committed)
		}
		return sorted[i].Name < sorted[j].Name
	})
	if k > 0 && len(sorted) > k {
		sorted = sorted[:k]
	}
	return sorted
}

// Resolve looks up named revisions, keeping the given order. Repeated names
// are resolved once, at their first position. Any name that does not resolve
// to a commit is an error.
func (r *Repo) Resolve(ctx context.Context, names []string) ([]Revision, error) {
	revs := make([]Revision, 0, len(names))
	seen := make(map[string]bool, len(names))
	for _, name := range names {
		if seen[name] {
			continue
		}
		seen[name] = true
		out, err := r.git(ctx, "log", "-1", "--format=%ct%x09%H", name+"^{commit}", "--")
		if err != nil {
			return nil, fmt.Errorf("unknown revision %q: %w", name, err)
		}
		stamp, commit, _ := strings.Cut(strings.TrimSpace(out), "\t")
		secs, err := strconv.ParseInt(stamp, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("reading commit time of %q: %w", name, err)
		}
		revs = append(revs, Revision{Name: name, Commit: commit, Committed: time.Unix(secs, 0).UTC()})
	}
	return revs, nil
}

// Distinct drops revisions whose name already appeared, keeping the first.
func Distinct(revs []Revision) []Revision {
	out := make([]Revision, 0, len(revs))
	seen := make(map[string]bool, len(revs))
	for _, r := range revs {
		if seen[r.Name] {
			continue
		}
		seen[r.Name] = true
		out = append(out, r)
	}
	return out
}

// Checkout force-checks-out rev, discarding local modifications.
func (r *Repo) Checkout(ctx context.Context, rev string) error {
	if _, err := r.git(ctx, "checkout", "--force", "--quiet", rev); err != nil {
		return fmt.Errorf("git checkout %s: %w", rev, err)
	}
	return nil
}

func (r *Repo) git(ctx context.Context, args ...string) (string, error) {
	return gitOutput(ctx, r.Dir, args...)
}

func gitOutput(ctx context.Context, dir string, args ...string) (string, error) {
	if dir != "" {
		args = append([]string{"-C", dir}, args...)
	}
	cmd := exec.CommandContext(ctx, "git", args...)
	out, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return string(out), fmt.Errorf("%s: %s", err, strings.TrimSpace(string(exitErr.Stderr)))
		}
		return "", err
	}
	return string(out), nil
}
