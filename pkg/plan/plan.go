package plan

import (
	"path/filepath"
	"sort"
	"strings"
)

// Operation represents a planned stamp from source to destination.
type Operation struct {
	SourcePath      string
	DestinationPath string
}

// Options configures how destination paths are derived.
type Options struct {
	// Dir places outputs in a separate directory. Empty means next to the source.
	Dir string
	// Suffix is appended to the source stem.
	Suffix string
	// Ext is the output extension, including the dot.
	Ext string
}

func DefaultOptions() Options {
	return Options{
		Suffix: "_with_timestamp",
		Ext:    ".jpg",
	}
}

// OutputPath computes the destination for src.
//
// The path follows the pattern: <dir>/<stem><suffix><ext>, so IMG_001.JPG
// becomes IMG_001_with_timestamp.jpg. The source extension is always
// replaced, which means a.jpg and a.png map to the same output.
func OutputPath(src string, opts Options) string {
	dir := opts.Dir
	if dir == "" {
		dir = filepath.Dir(src)
	}
	base := filepath.Base(src)
	stem := strings.TrimSuffix(base, filepath.Ext(base))

	return filepath.Join(dir, stem+opts.Suffix+opts.Ext)
}

// IsOutput reports whether name looks like a file produced with opts.
func IsOutput(name string, opts Options) bool {
	if opts.Suffix == "" {
		return false
	}
	base := filepath.Base(name)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	return strings.HasSuffix(stem, opts.Suffix)
}

// Plan computes destination paths for a list of source files, in order.
func Plan(sources []string, opts Options) []Operation {
	operations := make([]Operation, 0, len(sources))
	for _, src := range sources {
		operations = append(operations, Operation{
			SourcePath:      src,
			DestinationPath: OutputPath(src, opts),
		})
	}
	return operations
}

// Collisions returns destinations shared by more than one source, mapped to
// those sources. Later operations overwrite earlier ones at run time.
func Collisions(operations []Operation) map[string][]string {
	byDest := make(map[string][]string)
	for _, op := range operations {
		byDest[op.DestinationPath] = append(byDest[op.DestinationPath], op.SourcePath)
	}

	collisions := make(map[string][]string)
	for dest, sources := range byDest {
		if len(sources) > 1 {
			sort.Strings(sources)
			collisions[dest] = sources
		}
	}
	return collisions
}
