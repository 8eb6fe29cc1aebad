package walker

import (
	"path"
	"strings"
)

// patternSet is a simplified glob matcher grounded on the tree replicator's
// pattern cache: literal, prefix (foo*), suffix (*foo), and contains (*foo*)
// patterns are matched directly, everything else falls back to path.Match.
type patternSet struct {
	exact    map[string]struct{}
	prefixes []string
	suffixes []string
	contains []string
	complex  []string
}

func newPatternSet(patterns []string) *patternSet {
	if len(patterns) == 0 {
		return nil
	}

	ps := &patternSet{exact: make(map[string]struct{})}
	for _, p := range patterns {
		switch {
		case !strings.ContainsAny(p, "*?["):
			ps.exact[p] = struct{}{}
		case strings.HasPrefix(p, "*") && strings.HasSuffix(p, "*") && len(p) > 1 && !strings.ContainsAny(p[1:len(p)-1], "*?["):
			ps.contains = append(ps.contains, p[1:len(p)-1])
		case strings.HasSuffix(p, "*") && !strings.ContainsAny(p[:len(p)-1], "*?["):
			ps.prefixes = append(ps.prefixes, p[:len(p)-1])
		case strings.HasPrefix(p, "*") && !strings.ContainsAny(p[1:], "*?["):
			ps.suffixes = append(ps.suffixes, p[1:])
		default:
			ps.complex = append(ps.complex, p)
		}
	}
	return ps
}

func (ps *patternSet) matches(name string) bool {
	if ps == nil {
		return false
	}
	if _, ok := ps.exact[name]; ok {
		return true
	}
	for _, prefix := range ps.prefixes {
		if strings.HasPrefix(name, prefix) {
			return true
		}
	}
	for _, suffix := range ps.suffixes {
		if strings.HasSuffix(name, suffix) {
			return true
		}
	}
	for _, sub := range ps.contains {
		if strings.Contains(name, sub) {
			return true
		}
	}
	for _, pattern := range ps.complex {
		if ok, _ := path.Match(pattern, name); ok {
			return true
		}
	}
	return false
}

// filterSet combines include/exclude glob lists into one admission test,
// matched against both the entry's base name and its slash-separated path
// relative to the walk root.
type filterSet struct {
	include *patternSet
	exclude *patternSet
}

func newFilterSet(includeGlobs, excludeGlobs []string) filterSet {
	return filterSet{
		include: newPatternSet(includeGlobs),
		exclude: newPatternSet(excludeGlobs),
	}
}

// admit reports whether relPath (slash-separated, relative to the walk
// root) should be copied: excluded entries are always rejected; when an
// include list is configured, only entries matching it are admitted.
func (f filterSet) admit(relPath string) bool {
	base := path.Base(relPath)
	if f.exclude.matches(relPath) || f.exclude.matches(base) {
		return false
	}
	if f.include == nil {
		return true
	}
	return f.include.matches(relPath) || f.include.matches(base)
}
