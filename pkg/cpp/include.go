package cpp

import (
	"fmt"
	"os"
	"path/filepath"
)

// maxIncludeDepth bounds nested #include to catch a circular include
// that somehow dodges the on-stack check (e.g. two files including
// each other via a symlink alias).
const maxIncludeDepth = 200

// IncludeResolver finds the file a "#include" directive names and
// tracks which files are currently open, to reject a file including
// itself (directly or through a chain of other includes).
type IncludeResolver struct {
	userPaths   []string
	systemPaths []string
	stack       []string
}

// NewIncludeResolver builds a resolver with the given -I and -isystem
// search paths, in the order they should be tried.
func NewIncludeResolver(userPaths, systemPaths []string) *IncludeResolver {
	return &IncludeResolver{userPaths: userPaths, systemPaths: systemPaths}
}

// Resolve finds the file "#include" names. A quoted include
// ("name.h") first checks currentDir, the directory of the file doing
// the including; an angle include (<name.h>) does not. Both then fall
// back to the user (-I) paths and finally the system (-isystem) paths.
func (r *IncludeResolver) Resolve(name, currentDir string, quoted bool) (string, error) {
	if filepath.IsAbs(name) {
		if fileExists(name) {
			return name, nil
		}
		return "", fmt.Errorf("include file not found: %s", name)
	}

	var dirs []string
	if quoted && currentDir != "" {
		dirs = append(dirs, currentDir)
	}
	dirs = append(dirs, r.userPaths...)
	dirs = append(dirs, r.systemPaths...)

	for _, d := range dirs {
		candidate := filepath.Join(d, name)
		if fileExists(candidate) {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("include file not found: %s", name)
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// Push records path as currently open, failing if it is already on
// the include stack (a circular include) or the stack has grown
// suspiciously deep.
func (r *IncludeResolver) Push(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	for _, open := range r.stack {
		if open == abs {
			return fmt.Errorf("circular #include: %s", path)
		}
	}
	if len(r.stack) >= maxIncludeDepth {
		return fmt.Errorf("#include nested too deeply (> %d levels)", maxIncludeDepth)
	}
	r.stack = append(r.stack, abs)
	return nil
}

// Pop closes the most recently pushed file.
func (r *IncludeResolver) Pop() {
	if len(r.stack) > 0 {
		r.stack = r.stack[:len(r.stack)-1]
	}
}

// Depth returns how many files are currently open.
func (r *IncludeResolver) Depth() int { return len(r.stack) }
