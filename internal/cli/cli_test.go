package cli

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/smellscan/internal/checkpoint"
	"github.com/dshills/smellscan/internal/config"
)

func init() {
	color.NoColor = true
}

// resetFlags resets all package-level flag variables to their zero values.
func resetFlags() {
	flagConfig = ""
	flagVerbose = false
	flagQuiet = false
	flagLogFormat = ""
	flagRepoDir = ""
	flagRepoURL = ""
	flagRevisions = 0
	flagWorkers = 0
	flagModels = ""
	flagLimit = 0
	flagOutputDir = ""
	flagOutputPrefix = ""
	flagProvider = ""
	flagBaseURL = ""
	flagModelParallelism = 0
	flagRedact = false
	flagMetricsAddr = ""
	flagTimeout = ""
	flagTags = ""
	flagDryRun = false
	flagFormat = ""
	flagOut = ""
	flagFilesTag = ""
	flagReportFormat = "table"
	flagReportTally = false
	flagReportOut = ""
	flagArtifactsJSON = false
}

// run executes the command tree with isolated config and returns stdout,
// stderr and the exit code.
func run(t *testing.T, args ...string) (string, string, int) {
	t.Helper()
	resetFlags()
	var stdout, stderr bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
	})
	code := execute(args)
	return stdout.String(), stderr.String(), code
}

func isolateEnv(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	for _, k := range []string{"SMELLSCAN_WORKERS", "SMELLSCAN_PROVIDER", "SMELLSCAN_MODELS", "SMELLSCAN_OUTPUT_DIR", "MAX_WORKERS", "HF_TOKEN"} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
	return dir
}

const sourceBody = "export function total(items: number[]): number {\n  return items.reduce((a, b) => a + b, 0);\n}\n"

// setupRepo creates a git repository with two tagged releases of a small
// package tree.
func setupRepo(t *testing.T) string {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}
	t.Setenv("GIT_AUTHOR_NAME", "test")
	t.Setenv("GIT_AUTHOR_EMAIL", "test@test.com")
	t.Setenv("GIT_COMMITTER_NAME", "test")
	t.Setenv("GIT_COMMITTER_EMAIL", "test@test.com")

	dir := t.TempDir()
	git := func(date string, args ...string) {
		t.Helper()
		cmd := exec.Command("git", args...)
		cmd.Dir = dir
		cmd.Env = append(os.Environ(), "GIT_AUTHOR_DATE="+date, "GIT_COMMITTER_DATE="+date)
		out, err := cmd.CombinedOutput()
		require.NoError(t, err, "git %v: %s", args, out)
	}
	write := func(rel, content string) {
		t.Helper()
		path := filepath.Join(dir, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}

	git("2024-01-01T00:00:00Z", "init", "-q")
	write("packages/core/src/a.ts", sourceBody)
	write("packages/core/src/a.test.ts", sourceBody)
	write("README.md", "# demo\n")
	git("2024-01-01T00:00:00Z", "add", "-A")
	git("2024-01-01T00:00:00Z", "commit", "-q", "-m", "one")
	git("2024-01-01T00:00:00Z", "tag", "v1.0.0")

	write("packages/core/src/b.ts", sourceBody+"// b\n")
	git("2024-02-01T00:00:00Z", "add", "-A")
	git("2024-02-01T00:00:00Z", "commit", "-q", "-m", "two")
	git("2024-02-01T00:00:00Z", "tag", "v1.1.0")
	return dir
}

// ollamaServer answers every chat request with a fenced analysis.
func ollamaServer(t *testing.T, calls *atomic.Int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, "/api/chat", r.URL.Path)
		content := "Here is the analysis:\n```json\n{\"code_smells\":[{\"name\":\"Long Method\",\"category\":\"Bloaters\",\"impact\":\"Low\"}]}\n```"
		_ = json.NewEncoder(w).Encode(map[string]any{
			"message":           map[string]string{"role": "assistant", "content": content},
			"prompt_eval_count": 10,
			"eval_count":        5,
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestSplitComma(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{"empty string", "", nil},
		{"single value", "v1.0.0", []string{"v1.0.0"}},
		{"multiple values", "a,b,c", []string{"a", "b", "c"}},
		{"whitespace trimmed", " a , b , c ", []string{"a", "b", "c"}},
		{"empty parts skipped", "a,,b", []string{"a", "b"}},
		{"all empty", ",,,", nil},
		{"scoped tags", "@mastra/core@0.1.0,v2", []string{"@mastra/core@0.1.0", "v2"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, splitComma(tt.input))
		})
	}
}

func TestBuildOverrides_NoFlags(t *testing.T) {
	resetFlags()
	assert.Empty(t, buildOverrides())
}

func TestBuildOverrides_AllFlags(t *testing.T) {
	resetFlags()
	flagRepoDir = "work"
	flagRepoURL = "https://example.com/r.git"
	flagRevisions = 2
	flagWorkers = 4
	flagModels = "a=b"
	flagLimit = 10
	flagOutputDir = "out"
	flagOutputPrefix = "res"
	flagProvider = "ollama"
	flagBaseURL = "http://localhost:11434"
	flagModelParallelism = 2
	flagRedact = true
	flagMetricsAddr = ":9090"
	flagTimeout = "30s"

	assert.Equal(t, map[string]string{
		"repo.dir":               "work",
		"repo.url":               "https://example.com/r.git",
		"revisions":              "2",
		"workers":                "4",
		"models":                 "a=b",
		"file_limit":             "10",
		"output.dir":             "out",
		"output.prefix":          "res",
		"provider":               "ollama",
		"base_url":               "http://localhost:11434",
		"model_parallelism":      "2",
		"privacy.redact_secrets": "true",
		"metrics_addr":           ":9090",
		"request_timeout":        "30s",
	}, buildOverrides())
}

func TestVersionCmd(t *testing.T) {
	out, _, code := run(t, "version")
	assert.Equal(t, ExitSuccess, code)
	assert.Equal(t, "smellscan version "+version+"\n", out)
}

func TestUnknownCommand(t *testing.T) {
	_, stderr, code := run(t, "frobnicate")
	assert.Equal(t, ExitUsageError, code)
	assert.Contains(t, stderr, "unknown command")
}

func TestConfigInitSetShow(t *testing.T) {
	dir := isolateEnv(t)
	path := filepath.Join(dir, "smellscan", "config.yaml")

	out, _, code := run(t, "config", "init")
	require.Equal(t, ExitSuccess, code)
	assert.Contains(t, out, path)
	assert.FileExists(t, path)

	_, stderr, code := run(t, "config", "init")
	assert.Equal(t, ExitSuccess, code)
	assert.Contains(t, stderr, "already exists")

	out, _, code = run(t, "config", "set", "workers", "8")
	require.Equal(t, ExitSuccess, code)
	assert.Contains(t, out, "Set workers = 8")

	cfg, err := config.LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 8, cfg.Workers)

	out, _, code = run(t, "config", "show")
	require.Equal(t, ExitSuccess, code)
	assert.Contains(t, out, "workers: 8")
}

func TestConfigSet_Errors(t *testing.T) {
	isolateEnv(t)

	_, stderr, code := run(t, "config", "set", "nonsense", "1")
	assert.Equal(t, ExitUsageError, code)
	assert.Contains(t, stderr, "unknown config key")

	_, stderr, code = run(t, "config", "set", "workers", "0")
	assert.Equal(t, ExitConfigError, code)
	assert.Contains(t, stderr, "Workers")

	_, _, code = run(t, "config", "set", "workers")
	assert.Equal(t, ExitUsageError, code)
}

func TestInvalidConfigFile(t *testing.T) {
	dir := isolateEnv(t)
	path := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("workers: 0\n"), 0o644))

	_, stderr, code := run(t, "--config", path, "run", "--dry-run")
	assert.Equal(t, ExitConfigError, code)
	assert.Contains(t, stderr, "invalid configuration")
}

func TestTagsCmd(t *testing.T) {
	isolateEnv(t)
	repo := setupRepo(t)

	out, _, code := run(t, "tags", "--repo", repo, "--revisions", "1")
	require.Equal(t, ExitSuccess, code)
	assert.Contains(t, out, "v1.1.0")
	assert.Contains(t, out, "v1.0.0")
	assert.Less(t, strings.Index(out, "v1.1.0"), strings.Index(out, "v1.0.0"))
}

func TestFilesCmd(t *testing.T) {
	isolateEnv(t)
	repo := setupRepo(t)

	out, stderr, code := run(t, "files", "--repo", repo, "--tag", "v1.0.0")
	require.Equal(t, ExitSuccess, code)
	assert.Equal(t, "packages/core/src/a.ts\n", out)
	assert.Contains(t, stderr, "1 files")

	out, _, code = run(t, "files", "--repo", repo, "--tag", "v1.1.0")
	require.Equal(t, ExitSuccess, code)
	assert.Equal(t, "packages/core/src/a.ts\npackages/core/src/b.ts\n", out)
}

func TestRunCmd_DryRun(t *testing.T) {
	isolateEnv(t)
	repo := setupRepo(t)
	outDir := t.TempDir()

	out, _, code := run(t, "run", "--dry-run", "--repo", repo, "--output-dir", outDir, "--models", "small=s,large=l")
	require.Equal(t, ExitSuccess, code)
	assert.Contains(t, out, "Planned 4 stages")
	assert.Contains(t, out, filepath.Join(outDir, "results_v1.1.0_small.json"))
	assert.Less(t, strings.Index(out, "v1.1.0"), strings.Index(out, "v1.0.0"), "newest tag first")

	entries, err := os.ReadDir(outDir)
	require.NoError(t, err)
	assert.Empty(t, entries, "dry run writes nothing")
}

func TestRunCmd_UnknownTag(t *testing.T) {
	isolateEnv(t)
	repo := setupRepo(t)

	_, stderr, code := run(t, "run", "--dry-run", "--repo", repo, "--tags", "v9.9.9")
	assert.Equal(t, ExitRuntimeError, code)
	assert.Contains(t, stderr, "v9.9.9")
}

func TestRunCmd_MissingCredentials(t *testing.T) {
	isolateEnv(t)
	repo := setupRepo(t)

	_, stderr, code := run(t, "run", "--repo", repo, "--output-dir", t.TempDir(), "--provider", "huggingface")
	assert.Equal(t, ExitConfigError, code)
	assert.Contains(t, stderr, "HF_TOKEN")
}

func TestRunCmd_EndToEnd(t *testing.T) {
	isolateEnv(t)
	repo := setupRepo(t)
	outDir := t.TempDir()
	var calls atomic.Int32
	srv := ollamaServer(t, &calls)

	out, stderr, code := run(t, "run",
		"--repo", repo,
		"--output-dir", outDir,
		"--provider", "ollama",
		"--base-url", srv.URL,
		"--models", "qwen_small=qwen2.5-coder:3b",
		"--tags", "v1.1.0",
		"--workers", "2",
	)
	require.Equal(t, ExitSuccess, code, stderr)
	assert.Equal(t, int32(2), calls.Load())
	assert.Contains(t, out, "results_v1.1.0_qwen_small.json")
	assert.Contains(t, out, "2 ok, 0 failed, 0 skipped")

	results, err := checkpoint.Load(filepath.Join(outDir, "results_v1.1.0_qwen_small.json"))
	require.NoError(t, err)
	require.Len(t, results, 2)
	for _, r := range results {
		assert.Equal(t, "v1.1.0", r.Tag)
		assert.Equal(t, "qwen_small", r.Model)
		assert.True(t, r.OK())
	}

	// report reads what run wrote
	out, stderr, code = run(t, "report", "--output-dir", outDir, "--format", "csv")
	require.Equal(t, ExitSuccess, code, stderr)
	assert.Contains(t, out, "tag,model,file,category,name,impact\n")
	assert.Contains(t, out, "v1.1.0,qwen_small,packages/core/src/a.ts,Bloaters,Long Method,Low\n")
	assert.Contains(t, stderr, "2 results, 0 errors, 2 smells")

	out, _, code = run(t, "report", "--output-dir", outDir, "--tally")
	require.Equal(t, ExitSuccess, code)
	assert.Contains(t, out, "qwen_small")

	out, _, code = run(t, "artifacts", "list", "--output-dir", outDir)
	require.Equal(t, ExitSuccess, code)
	assert.Contains(t, out, "results_v1.1.0_qwen_small.json")

	out, _, code = run(t, "artifacts", "stats", "--output-dir", outDir, "--json")
	require.Equal(t, ExitSuccess, code)
	var stats checkpoint.Stats
	require.NoError(t, json.Unmarshal([]byte(out), &stats))
	assert.Equal(t, 1, stats.Artifacts)
	assert.Equal(t, 2, stats.OK)

	out, _, code = run(t, "artifacts", "clear", "--output-dir", outDir)
	require.Equal(t, ExitSuccess, code)
	assert.Contains(t, out, "Removed 1 artifacts")
	assert.NoFileExists(t, filepath.Join(outDir, "results_v1.1.0_qwen_small.json"))
}

func TestRunCmd_ServerErrorsAreRecorded(t *testing.T) {
	isolateEnv(t)
	repo := setupRepo(t)
	outDir := t.TempDir()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	t.Cleanup(srv.Close)

	out, stderr, code := run(t, "run",
		"--repo", repo, "--output-dir", outDir,
		"--provider", "ollama", "--base-url", srv.URL,
		"--models", "m=model", "--tags", "v1.0.0",
	)
	require.Equal(t, ExitSuccess, code, stderr)
	assert.Contains(t, out, "0 ok, 1 failed")

	results, err := checkpoint.Load(filepath.Join(outDir, "results_v1.0.0_m.json"))
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Contains(t, results[0].Error, "503")
}

func TestReportCmd_BadFormat(t *testing.T) {
	isolateEnv(t)
	_, stderr, code := run(t, "report", "--format", "xml")
	assert.Equal(t, ExitUsageError, code)
	assert.Contains(t, stderr, "unsupported report format")
}

func TestModelsListCmd(t *testing.T) {
	isolateEnv(t)
	out, _, code := run(t, "models", "list")
	require.Equal(t, ExitSuccess, code)
	assert.Contains(t, out, "Provider: huggingface")
	assert.Contains(t, out, "qwen_small")
	assert.Contains(t, out, "Qwen/Qwen2.5-Coder-14B-Instruct")
	assert.Contains(t, out, "- anthropic")
}

func TestModelsDoctorCmd(t *testing.T) {
	isolateEnv(t)
	var calls atomic.Int32
	srv := ollamaServer(t, &calls)

	out, _, code := run(t, "models", "doctor", "--provider", "ollama", "--base-url", srv.URL, "--models", "a=x,b=y")
	require.Equal(t, ExitSuccess, code)
	assert.Equal(t, int32(2), calls.Load())
	assert.Contains(t, out, "OK a (x)")
	assert.Contains(t, out, "OK b (y)")
}

func TestModelsDoctorCmd_AuthFailure(t *testing.T) {
	isolateEnv(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad key", http.StatusUnauthorized)
	}))
	t.Cleanup(srv.Close)

	out, _, code := run(t, "models", "doctor", "--provider", "ollama", "--base-url", srv.URL, "--models", "a=x")
	assert.Equal(t, ExitConfigError, code)
	assert.Contains(t, out, "FAIL a (x)")
}
