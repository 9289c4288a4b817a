package diff

import (
	"fmt"
	"strings"
)

// Kind classifies an operation in an edit script.
type Kind int

const (
	Common  Kind = iota // Line is present in both sequences.
	Removed             // Line is present in the old sequence only.
	Added               // Line is present in the new sequence only.
)

func (k Kind) String() string {
	switch k {
	case Common:
		return "Common"
	case Removed:
		return "Removed"
	case Added:
		return "Added"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Operation is one step of an edit script. OldIndex is -1 for Added and
// NewIndex is -1 for Removed.
type Operation struct {
	Kind     Kind
	OldIndex int
	NewIndex int
}

func (op Operation) String() string {
	switch op.Kind {
	case Removed:
		return fmt.Sprintf("Removed(%d)", op.OldIndex)
	case Added:
		return fmt.Sprintf("Added(%d)", op.NewIndex)
	}
	return fmt.Sprintf("Common(%d,%d)", op.OldIndex, op.NewIndex)
}

// SplitLines splits s on newlines. A trailing newline does not produce an
// empty final line, and the empty string has no lines.
func SplitLines(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(strings.TrimSuffix(s, "\n"), "\n")
}

// Stats counts the added and removed lines of an edit script.
func Stats(ops []Operation) (added, removed int) {
	for _, op := range ops {
		switch op.Kind {
		case Added:
			added++
		case Removed:
			removed++
		}
	}
	return added, removed
}

// Changed reports whether ops contains anything other than Common.
func Changed(ops []Operation) bool {
	added, removed := Stats(ops)
	return added+removed > 0
}
