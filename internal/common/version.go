package common

import (
	"bufio"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Set with -ldflags "-X github.com/bobmcallan/navwatch/internal/common.Version=..."
var (
	Version   = "dev"
	Build     = "unknown"
	GitCommit = "unknown"
)

// BuildInfo describes the running binary.
type BuildInfo struct {
	Version string `json:"version"`
	Build   string `json:"build"`
	Commit  string `json:"commit"`
}

// String renders the info on one line, e.g. "1.2.0 (build 2026-10-01, commit abc123)".
func (b BuildInfo) String() string {
	return b.Version + " (build " + b.Build + ", commit " + b.Commit + ")"
}

// CurrentBuild returns the build info of this binary.
func CurrentBuild() BuildInfo {
	return BuildInfo{Version: Version, Build: Build, Commit: GitCommit}
}

// GetVersion returns the semantic version string
func GetVersion() string {
	return Version
}

// LoadVersionFromFile fills unset build info from a ".version" file beside the
// executable. Values injected by ldflags win.
func LoadVersionFromFile() {
	exe, err := os.Executable()
	if err != nil {
		return
	}
	f, err := os.Open(filepath.Join(filepath.Dir(exe), ".version"))
	if err != nil {
		return
	}
	defer f.Close()
	applyVersionFile(f)
}

// applyVersionFile reads "key: value" lines. Blank lines and # comments are skipped.
func applyVersionFile(r io.Reader) {
	targets := map[string]struct {
		field *string
		unset string
	}{
		"version": {&Version, "dev"},
		"build":   {&Build, "unknown"},
		"commit":  {&GitCommit, "unknown"},
	}

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || line[0] == '#' {
			continue
		}
		key, val, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		t, known := targets[strings.ToLower(strings.TrimSpace(key))]
		if known && *t.field == t.unset {
			*t.field = strings.TrimSpace(val)
		}
	}
}
