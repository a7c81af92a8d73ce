package vm

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/javanstorm/qvm/internal/prompt"
)

// mediaSearchDepth bounds how deep the candidate search descends below
// each well-known directory.
const mediaSearchDepth = 2

// MediaResolver finds the installation medium. An explicitly supplied
// path wins; otherwise a shallow search over well-known directories
// produces candidates, and zero, one, or many candidates are handled
// distinctly through the prompter.
type MediaResolver struct {
	searchDirs []string
	prompt     prompt.Prompter
}

// NewMediaResolver returns a resolver over the default search
// directories: home, Downloads, a conventional ISOs folder, and temp.
func NewMediaResolver(p prompt.Prompter) *MediaResolver {
	var dirs []string
	if home, err := os.UserHomeDir(); err == nil {
		dirs = append(dirs,
			home,
			filepath.Join(home, "Downloads"),
			filepath.Join(home, "ISOs"),
		)
	}
	dirs = append(dirs, os.TempDir())
	return &MediaResolver{searchDirs: dirs, prompt: p}
}

// SetSearchDirs overrides the search directories.
func (r *MediaResolver) SetSearchDirs(dirs []string) {
	r.searchDirs = dirs
}

// Resolve returns the installation medium path.
func (r *MediaResolver) Resolve(explicit string) (string, error) {
	if explicit != "" {
		if !fileExists(explicit) {
			return "", fmt.Errorf("installation medium %s does not exist", explicit)
		}
		return explicit, nil
	}

	candidates := r.search()

	switch len(candidates) {
	case 0:
		path := r.prompt.Ask("No installation media found. Enter the medium path", "")
		if path == "" {
			return "", fmt.Errorf("an installation medium is required")
		}
		if !fileExists(path) {
			return "", fmt.Errorf("installation medium %s does not exist", path)
		}
		return path, nil

	case 1:
		if r.prompt.Confirm(fmt.Sprintf("Use %s as the installation medium?", candidates[0]), true) {
			return candidates[0], nil
		}
		path := r.prompt.Ask("Enter the medium path", "")
		if path == "" || !fileExists(path) {
			return "", fmt.Errorf("an installation medium is required")
		}
		return path, nil

	default:
		idx, ok := r.prompt.Choose("Multiple installation media found:", candidates)
		if ok {
			return candidates[idx], nil
		}
		path := r.prompt.Ask("Enter the medium path", "")
		if path == "" || !fileExists(path) {
			return "", fmt.Errorf("an installation medium is required")
		}
		return path, nil
	}
}

// search walks each directory up to mediaSearchDepth looking for media
// files. Unreadable directories are skipped.
func (r *MediaResolver) search() []string {
	var found []string
	seen := make(map[string]bool)

	for _, dir := range r.searchDirs {
		root := filepath.Clean(dir)
		_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return fs.SkipDir
			}
			if d.IsDir() {
				if depth(root, path) > mediaSearchDepth {
					return fs.SkipDir
				}
				return nil
			}
			if isMediaFile(path) && !seen[path] {
				seen[path] = true
				found = append(found, path)
			}
			return nil
		})
	}
	return found
}

func depth(root, path string) int {
	rel, err := filepath.Rel(root, path)
	if err != nil || rel == "." {
		return 0
	}
	return len(strings.Split(rel, string(filepath.Separator)))
}

func isMediaFile(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".iso")
}
