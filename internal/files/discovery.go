// Package files expands the input file lists of scan jobs. Entries may be
// literal paths or glob patterns; expansion preserves entry order, sorts each
// pattern's matches and drops duplicates.
package files

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/Health-Informatics-UoN/nuh-helper/internal/errors"
)

// ExpandInputs resolves a list of paths and glob patterns into concrete file
// paths. A literal path is kept as-is; a pattern is expanded to its sorted
// matches, skipping directories. A pattern with no matches is a CONFIG error,
// as is a malformed pattern.
func ExpandInputs(entries []string) ([]string, error) {
	var paths []string
	seen := make(map[string]struct{})

	for _, entry := range entries {
		if !isPattern(entry) {
			if _, dup := seen[entry]; !dup {
				seen[entry] = struct{}{}
				paths = append(paths, entry)
			}
			continue
		}

		matches, err := filepath.Glob(entry)
		if err != nil {
			return nil, errors.NewConfigError("invalid file pattern", err).
				WithContext("pattern", entry)
		}
		if len(matches) == 0 {
			return nil, errors.Newf(errors.ErrTypeConfig, "pattern %q matched no files", entry)
		}
		sort.Strings(matches)
		for _, match := range matches {
			if info, err := os.Stat(match); err == nil && info.IsDir() {
				continue
			}
			if _, dup := seen[match]; dup {
				continue
			}
			seen[match] = struct{}{}
			paths = append(paths, match)
		}
	}

	return paths, nil
}

// isPattern reports whether an entry contains glob metacharacters.
func isPattern(entry string) bool {
	return strings.ContainsAny(entry, "*?[")
}
