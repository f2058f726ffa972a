package manifest

import (
	"fmt"
	"os"
	"path/filepath"
)

// Resolver maps the path written in an import statement to the file it
// names. Relative imports are tried against the importing script's
// directory first, then against each search directory in order.
type Resolver struct {
	Dirs []string
}

// NewResolver creates a resolver over the given search directories.
func NewResolver(dirs []string) *Resolver {
	return &Resolver{Dirs: dirs}
}

// Resolve returns the absolute, cleaned path for an import of target made
// from a script located in fromDir. An empty fromDir means the current
// working directory.
func (r *Resolver) Resolve(fromDir, target string) (string, error) {
	if filepath.IsAbs(target) {
		return checkFile(filepath.Clean(target))
	}

	if fromDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("resolving %s: %w", target, err)
		}
		fromDir = wd
	}

	candidates := make([]string, 0, 1+len(r.Dirs))
	candidates = append(candidates, filepath.Join(fromDir, target))
	for _, d := range r.Dirs {
		candidates = append(candidates, filepath.Join(d, target))
	}

	for _, c := range candidates {
		if path, err := checkFile(c); err == nil {
			return path, nil
		}
	}
	return "", fmt.Errorf("could not open file %q", target)
}

func checkFile(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", err
	}
	if info.IsDir() {
		return "", fmt.Errorf("%s is a directory", abs)
	}
	return abs, nil
}
