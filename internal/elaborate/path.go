package elaborate

import (
	"fmt"
	"strings"

	"github.com/roach88/logicsim/internal/ir"
)

// PathID is a handle to a frame in a Paths arena.
type PathID int

// Root is the frame of the test being elaborated.
const Root PathID = 0

// NoPath is the parent of Root.
const NoPath PathID = -1

// Frame records one invocation: the called unit, the call site and the
// ordinal of this call among calls to the same unit from the same parent.
type Frame struct {
	Parent PathID
	Unit   ir.Name
	Site   ir.Span
	Index  int
	Depth  int
}

// Paths is an append-only arena of frames.
// Signals created in one invocation share its PathID.
type Paths struct {
	frames []Frame
	counts map[childKey]int
}

type childKey struct {
	parent PathID
	unit   string
}

// NewPaths creates an arena whose root frame names the test.
func NewPaths(test ir.Name) *Paths {
	return &Paths{
		frames: []Frame{{Parent: NoPath, Unit: test, Site: test.Span}},
		counts: make(map[childKey]int),
	}
}

// Push appends a child frame for an invocation of unit under parent.
func (p *Paths) Push(parent PathID, unit ir.Name, site ir.Span) PathID {
	key := childKey{parent: parent, unit: unit.Key()}
	idx := p.counts[key]
	p.counts[key] = idx + 1

	p.frames = append(p.frames, Frame{
		Parent: parent,
		Unit:   unit,
		Site:   site,
		Index:  idx,
		Depth:  p.frames[parent].Depth + 1,
	})
	return PathID(len(p.frames) - 1)
}

// Frame returns the frame for id.
func (p *Paths) Frame(id PathID) Frame {
	return p.frames[id]
}

// Len returns the number of frames, root included.
func (p *Paths) Len() int {
	return len(p.frames)
}

// Depth returns the nesting depth of id; the root has depth 0.
func (p *Paths) Depth(id PathID) int {
	return p.frames[id].Depth
}

// Calls reports whether unit appears on the call chain ending at id. The
// root frame names a test, and tests are not units, so it never matches.
func (p *Paths) Calls(id PathID, unit string) bool {
	for cur := id; cur != NoPath && p.frames[cur].Parent != NoPath; cur = p.frames[cur].Parent {
		if p.frames[cur].Unit.Text == unit {
			return true
		}
	}
	return false
}

// Chain returns the unit names from the root down to id.
func (p *Paths) Chain(id PathID) []string {
	var out []string
	for cur := id; cur != NoPath; cur = p.frames[cur].Parent {
		out = append(out, p.frames[cur].Unit.Text)
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out
}

// Label is the scope component of a single frame: the test name for the
// root, "<unit>_<index>" for invocations.
func (p *Paths) Label(id PathID) string {
	f := p.frames[id]
	if f.Parent == NoPath {
		return f.Unit.Text
	}
	return fmt.Sprintf("%s_%d", f.Unit.Text, f.Index)
}

// Scope renders the hierarchical scope of id, e.g. "main.add_0".
func (p *Paths) Scope(id PathID) string {
	var parts []string
	for cur := id; cur != NoPath; cur = p.frames[cur].Parent {
		parts = append(parts, p.Label(cur))
	}
	for i, j := 0, len(parts)-1; i < j; i, j = i+1, j-1 {
		parts[i], parts[j] = parts[j], parts[i]
	}
	return strings.Join(parts, ".")
}
