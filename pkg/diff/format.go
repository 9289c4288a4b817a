package diff

import (
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/odvcencio/mgit/pkg/object"
)

// DefaultContext is the number of unchanged lines shown around each change
// in unified mode.
const DefaultContext = 3

// FilePatch is everything needed to render the change to one path.
type FilePatch struct {
	Path    string
	OldMode object.FileMode
	NewMode object.FileMode
	OldHash object.Hash
	NewHash object.Hash
	Old     []string
	New     []string
	Ops     []Operation
}

// NewFilePatch splits both texts into lines and computes their edit script.
func NewFilePatch(path string, oldMode, newMode object.FileMode, oldHash, newHash object.Hash, oldText, newText string) FilePatch {
	p := FilePatch{
		Path:    path,
		OldMode: oldMode,
		NewMode: newMode,
		OldHash: oldHash,
		NewHash: newHash,
		Old:     SplitLines(oldText),
		New:     SplitLines(newText),
	}
	p.Ops = Compute(p.Old, p.New)
	return p
}

// ModeChanged reports whether the file mode differs.
func (p FilePatch) ModeChanged() bool { return p.OldMode != p.NewMode }

// ContentChanged reports whether the content hash differs.
func (p FilePatch) ContentChanged() bool { return p.OldHash != p.NewHash }

// RenderOptions controls Render output.
type RenderOptions struct {
	// Context is the number of unchanged lines around each change. Zero
	// selects the minimal form: only "- " and "+ " lines, no hunk headers.
	Context int
	// Color wraps header and change lines in ANSI colour codes.
	Color bool
}

type palette struct {
	meta, frag, del, add func(format string, a ...interface{}) string
}

func newPalette(enabled bool) palette {
	mk := func(attrs ...color.Attribute) func(string, ...interface{}) string {
		c := color.New(attrs...)
		if enabled {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
		return c.Sprintf
	}
	return palette{
		meta: mk(color.Bold),
		frag: mk(color.FgCyan),
		del:  mk(color.FgRed),
		add:  mk(color.FgGreen),
	}
}

// Render writes p in unified-diff style:
//
//	diff --git a/P b/P
//	old mode 100644
//	new mode 100755
//	index 1234567..89abcde
//	--- a/P
//	+++ b/P
//	- removed line
//	+ added line
//
// The mode lines appear only when the mode changed; when it did not, the
// mode is appended to the index line. Content lines are printed only when
// the content hash changed.
func Render(w io.Writer, p FilePatch, opts RenderOptions) error {
	_, err := io.WriteString(w, Format(p, opts))
	return err
}

// Format returns what Render would write.
func Format(p FilePatch, opts RenderOptions) string {
	pal := newPalette(opts.Color)
	var b strings.Builder

	b.WriteString(pal.meta("diff --git a/%s b/%s", p.Path, p.Path))
	b.WriteByte('\n')
	if p.ModeChanged() {
		b.WriteString(pal.meta("old mode %s", p.OldMode))
		b.WriteByte('\n')
		b.WriteString(pal.meta("new mode %s", p.NewMode))
		b.WriteByte('\n')
	}
	if !p.ContentChanged() {
		return b.String()
	}

	if p.ModeChanged() {
		b.WriteString(pal.meta("index %s..%s", p.OldHash.Short(), p.NewHash.Short()))
	} else {
		b.WriteString(pal.meta("index %s..%s %s", p.OldHash.Short(), p.NewHash.Short(), p.NewMode))
	}
	b.WriteByte('\n')
	b.WriteString(pal.meta("--- a/%s", p.Path))
	b.WriteByte('\n')
	b.WriteString(pal.meta("+++ b/%s", p.Path))
	b.WriteByte('\n')

	if opts.Context <= 0 {
		for _, op := range p.Ops {
			switch op.Kind {
			case Removed:
				b.WriteString(pal.del("- %s", p.Old[op.OldIndex]))
				b.WriteByte('\n')
			case Added:
				b.WriteString(pal.add("+ %s", p.New[op.NewIndex]))
				b.WriteByte('\n')
			}
		}
		return b.String()
	}

	for _, h := range buildHunks(p.Ops, opts.Context) {
		oldStart, oldCount, newStart, newCount := h.lineRange(p.Ops)
		b.WriteString(pal.frag("@@ -%d,%d +%d,%d @@", oldStart, oldCount, newStart, newCount))
		b.WriteByte('\n')
		for _, op := range p.Ops[h.start:h.end] {
			switch op.Kind {
			case Common:
				b.WriteString(" " + p.Old[op.OldIndex])
			case Removed:
				b.WriteString(pal.del("-%s", p.Old[op.OldIndex]))
			case Added:
				b.WriteString(pal.add("+%s", p.New[op.NewIndex]))
			}
			b.WriteByte('\n')
		}
	}
	return b.String()
}

type hunk struct {
	start int
	end   int
}

// buildHunks groups changed operations with up to contextLines unchanged
// operations on each side; overlapping groups are merged.
func buildHunks(ops []Operation, contextLines int) []hunk {
	if contextLines < 0 {
		contextLines = 0
	}

	var hunks []hunk
	for i, op := range ops {
		if op.Kind == Common {
			continue
		}

		start := max(i-contextLines, 0)
		end := min(i+contextLines+1, len(ops))

		if len(hunks) == 0 || start > hunks[len(hunks)-1].end {
			hunks = append(hunks, hunk{start: start, end: end})
			continue
		}
		if end > hunks[len(hunks)-1].end {
			hunks[len(hunks)-1].end = end
		}
	}
	return hunks
}

func (h hunk) lineRange(ops []Operation) (oldStart, oldCount, newStart, newCount int) {
	oldLine, newLine := 1, 1
	for _, op := range ops[:h.start] {
		switch op.Kind {
		case Common:
			oldLine++
			newLine++
		case Removed:
			oldLine++
		case Added:
			newLine++
		}
	}
	oldStart, newStart = oldLine, newLine

	for _, op := range ops[h.start:h.end] {
		switch op.Kind {
		case Common:
			oldCount++
			newCount++
		case Removed:
			oldCount++
		case Added:
			newCount++
		}
	}

	if oldCount == 0 {
		oldStart--
	}
	if newCount == 0 {
		newStart--
	}
	return oldStart, oldCount, newStart, newCount
}

// String renders the patch in minimal form without colour.
func (p FilePatch) String() string {
	return Format(p, RenderOptions{})
}
