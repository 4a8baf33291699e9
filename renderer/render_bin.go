package renderer

import (
	"cmp"
	"slices"

	"go.uber.org/zap"

	"scenegraph/gpu"
	"scenegraph/internal/logger"
)

// SortMode selects how a bin orders its leaves.
type SortMode int

const (
	// SortByState draws state graph by state graph, in the order each was
	// first met, and each state graph's leaves in traversal order.
	SortByState SortMode = iota
	// SortBackToFront draws leaves from farthest to nearest.
	SortBackToFront
)

// RenderBin collects the drawables of one bin number within a stage.
type RenderBin struct {
	number      int
	sortMode    SortMode
	stateGraphs []*StateGraph
	registered  map[*StateGraph]bool
	leaves      []*RenderLeaf
}

func newRenderBin(number int) *RenderBin {
	mode := SortByState
	if number == gpu.TransparentBin {
		mode = SortBackToFront
	}
	return &RenderBin{number: number, sortMode: mode, registered: make(map[*StateGraph]bool)}
}

func (b *RenderBin) Number() int                { return b.number }
func (b *RenderBin) SortMode() SortMode         { return b.sortMode }
func (b *RenderBin) SetSortMode(m SortMode)     { b.sortMode = m }
func (b *RenderBin) StateGraphs() []*StateGraph { return b.stateGraphs }
func (b *RenderBin) Leaves() []*RenderLeaf      { return b.leaves }

// AddLeaf records l under sg and registers sg with the bin.
func (b *RenderBin) AddLeaf(sg *StateGraph, l *RenderLeaf) {
	sg.AddLeaf(l)
	if !b.registered[sg] {
		b.registered[sg] = true
		b.stateGraphs = append(b.stateGraphs, sg)
	}
	b.leaves = append(b.leaves, l)
}

// Empty reports whether the bin holds no leaves.
func (b *RenderBin) Empty() bool { return len(b.leaves) == 0 }

// draw issues the bin's leaves. prev is the state graph the state stack
// currently reflects; the one it ends on is returned.
func (b *RenderBin) draw(state *gpu.State, prev *StateGraph) *StateGraph {
	if b.sortMode == SortBackToFront {
		leaves := slices.Clone(b.leaves)
		slices.SortStableFunc(leaves, func(x, y *RenderLeaf) int {
			return cmp.Compare(y.Depth, x.Depth)
		})
		var current *StateGraph
		var applied bool
		for _, l := range leaves {
			if current == nil || l.parent != current {
				moveStateGraph(state, prev, l.parent)
				prev, current = l.parent, l.parent
				applied = applyState(state)
			}
			if applied {
				l.draw(state)
			}
		}
		return prev
	}

	for _, sg := range b.stateGraphs {
		moveStateGraph(state, prev, sg)
		prev = sg
		if !applyState(state) {
			continue
		}
		for _, l := range sg.leaves {
			l.draw(state)
		}
	}
	return prev
}

func applyState(state *gpu.State) bool {
	if err := state.Apply(); err != nil {
		logger.Log.Warn("render bin: state not applied, skipping group", zap.Error(err))
		return false
	}
	return true
}
