package engine

import (
	"context"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"

	"github.com/tinyland-inc/huskycat/internal/huskyerr"
)

// skipDirs names directories discoverFiles never descends into: version
// control metadata and the orchestrator's own state directory.
var skipDirs = map[string]bool{
	".git":      true,
	".huskycat": true,
	"node_modules": true,
}

// discoverFiles expands paths (files or directories) into a sorted, deduped
// list of regular file paths, skipping version-control metadata the way a
// repository-aware tool invocation always should.
func discoverFiles(paths []string) ([]string, error) {
	seen := make(map[string]bool)
	var out []string

	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, huskyerr.Wrap(huskyerr.KindConfiguration, err, "stat target path %s", p)
		}
		if !info.IsDir() {
			if !seen[p] {
				seen[p] = true
				out = append(out, p)
			}
			continue
		}

		err = filepath.WalkDir(p, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				if path != p && skipDirs[d.Name()] {
					return filepath.SkipDir
				}
				return nil
			}
			if !seen[path] {
				seen[path] = true
				out = append(out, path)
			}
			return nil
		})
		if err != nil {
			return nil, huskyerr.Wrap(huskyerr.KindConfiguration, err, "walk target path %s", p)
		}
	}

	sort.Strings(out)
	return out, nil
}

// stagedFiles lists the repository's currently staged files via `git diff
// --cached`, for the git-hooks modes and the mcp validate_staged tool.
func stagedFiles(ctx context.Context, workspace string) ([]string, error) {
	cmd := exec.CommandContext(ctx, "git", "diff", "--cached", "--name-only", "--diff-filter=ACM")
	cmd.Dir = workspace
	out, err := cmd.Output()
	if err != nil {
		return nil, huskyerr.Wrap(huskyerr.KindIO, err, "list staged files")
	}

	var files []string
	for _, line := range strings.Split(string(out), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		files = append(files, filepath.Join(workspace, line))
	}
	sort.Strings(files)
	return files, nil
}
