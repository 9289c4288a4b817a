package repo

import (
	"bufio"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"
)

// IgnoreFile is the per-repository ignore list at the working tree root.
const IgnoreFile = ".mgitignore"

// IgnoreChecker determines if a path should be ignored.
//
// Each line of .mgitignore is a pattern. Blank lines and lines starting with
// "#" are skipped. A leading "!" re-includes a path, a trailing "/" matches
// directories only and a leading "/" anchors the pattern at the root.
// Patterns without a slash match the base name at any depth. A matched
// directory hides everything beneath it.
type IgnoreChecker struct {
	patterns []ignorePattern
}

type ignorePattern struct {
	pattern  string
	negated  bool
	dirOnly  bool
	anchored bool // match against the full relative path
	regex    *regexp.Regexp
}

// NewIgnoreChecker creates an IgnoreChecker for the given repository root.
// The metadata directory, and a .git directory beside it, are always
// ignored.
func NewIgnoreChecker(repoRoot string) *IgnoreChecker {
	ic := &IgnoreChecker{
		patterns: []ignorePattern{
			{pattern: DirName, anchored: true},
			{pattern: ".git", anchored: true},
		},
	}

	f, err := os.Open(filepath.Join(repoRoot, IgnoreFile))
	if err != nil {
		return ic
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if p, ok := parseIgnoreLine(scanner.Text()); ok {
			ic.patterns = append(ic.patterns, p)
		}
	}
	return ic
}

func parseIgnoreLine(line string) (ignorePattern, bool) {
	line = strings.TrimRight(line, " \t\r")
	if line == "" || strings.HasPrefix(line, "#") {
		return ignorePattern{}, false
	}

	var p ignorePattern
	if rest, ok := strings.CutPrefix(line, "!"); ok {
		p.negated = true
		line = rest
	}
	if strings.HasSuffix(line, "/") {
		p.dirOnly = true
		line = strings.TrimRight(line, "/")
	}
	if rest, ok := strings.CutPrefix(line, "/"); ok {
		p.anchored = true
		line = rest
	}
	if strings.Contains(line, "/") {
		p.anchored = true
	}
	if line == "" {
		return ignorePattern{}, false
	}

	p.pattern = line
	if strings.Contains(line, "**") {
		if re, err := regexp.Compile(globToRegex(line)); err == nil {
			p.regex = re
		}
	}
	return p, true
}

// IsIgnored reports whether the slash-separated, root-relative path is
// ignored. isDir says whether the path itself is a directory. The last
// matching pattern wins, and a path under an ignored directory is ignored.
func (ic *IgnoreChecker) IsIgnored(rel string, isDir bool) bool {
	rel = strings.Trim(filepath.ToSlash(rel), "/")
	if rel == "" || rel == "." {
		return false
	}

	parts := strings.Split(rel, "/")
	for i := 1; i < len(parts); i++ {
		if ic.decide(strings.Join(parts[:i], "/"), true) {
			return true
		}
	}
	return ic.decide(rel, isDir)
}

func (ic *IgnoreChecker) decide(rel string, isDir bool) bool {
	ignored := false
	for i := range ic.patterns {
		p := &ic.patterns[i]
		if p.dirOnly && !isDir {
			continue
		}
		if p.matches(rel) {
			ignored = !p.negated
		}
	}
	return ignored
}

func (p *ignorePattern) matches(rel string) bool {
	if p.anchored {
		return p.match(rel)
	}
	return p.match(path.Base(rel))
}

func (p *ignorePattern) match(target string) bool {
	if p.regex != nil {
		return p.regex.MatchString(target)
	}
	matched, _ := path.Match(p.pattern, target)
	return matched
}

// globToRegex translates a pattern containing "**" into a regular
// expression. "**/" matches zero or more directories, any other "**" matches
// across separators and "*" or "?" stay within one segment.
func globToRegex(pattern string) string {
	var b strings.Builder
	b.WriteString("^")
	for i := 0; i < len(pattern); i++ {
		ch := pattern[i]
		switch {
		case ch == '*' && strings.HasPrefix(pattern[i:], "**/"):
			b.WriteString("(?:.*/)?")
			i += 2
		case ch == '*' && strings.HasPrefix(pattern[i:], "**"):
			b.WriteString(".*")
			i++
		case ch == '*':
			b.WriteString("[^/]*")
		case ch == '?':
			b.WriteString("[^/]")
		default:
			b.WriteString(regexp.QuoteMeta(string(ch)))
		}
	}
	b.WriteString("$")
	return b.String()
}
