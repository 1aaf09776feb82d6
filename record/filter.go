package record

import (
	"fmt"
	"regexp"

	"github.com/gobwas/glob"

	"github.com/fsetools/fseparse/flags"
)

// Filter decides which decoded records are delivered to the hub. It is
// immutable after construction and safe for concurrent use by multiple
// decoders. The zero value accepts everything.
type Filter struct {
	anyMask uint32
	allMask uint32
	pathRe  *regexp.Regexp
	globs   []glob.Glob
}

// NewFilter builds a filter from an optional path regular expression,
// optional path glob patterns, and any-of / all-of flag name sets. Flag names
// are resolved to bit positions up front; an unknown name or a bad pattern is
// a configuration error, reported before any decoding starts.
func NewFilter(pathPattern string, globPatterns, anyFlags, allFlags []string) (*Filter, error) {
	f := &Filter{}

	var err error
	if f.anyMask, err = flags.Mask(anyFlags); err != nil {
		return nil, fmt.Errorf("any-flags filter: %w", err)
	}
	if f.allMask, err = flags.Mask(allFlags); err != nil {
		return nil, fmt.Errorf("all-flags filter: %w", err)
	}

	if pathPattern != "" {
		if f.pathRe, err = regexp.Compile(pathPattern); err != nil {
			return nil, fmt.Errorf("invalid path regex %q: %w", pathPattern, err)
		}
	}

	for _, pattern := range globPatterns {
		g, err := glob.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid path glob %q: %w", pattern, err)
		}
		f.globs = append(f.globs, g)
	}

	return f, nil
}

// Accepts reports whether the record passes every configured predicate.
// Unset predicates match everything.
func (f *Filter) Accepts(r *Record) bool {
	if f.anyMask != 0 && f.anyMask&r.FlagBits == 0 {
		return false
	}
	if f.allMask != 0 && r.FlagBits&f.allMask != f.allMask {
		return false
	}
	if f.pathRe != nil && !f.pathRe.MatchString(r.Path) {
		return false
	}
	if len(f.globs) > 0 {
		matched := false
		for _, g := range f.globs {
			if g.Match(r.Path) {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}
	return true
}
