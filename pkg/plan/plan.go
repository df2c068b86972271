package plan

import (
	"fmt"
	"strconv"
)

// NodeID identifies a plan node. IDs are stable across rewrites: a rewritten
// node keeps its ID, a new node gets a fresh one from the allocator. Node
// identity (same ID) is what deduplicates relations reachable through more
// than one path.
type NodeID string

// Symbol names one column of a node's output, qualified by the relation
// alias ("o.id"). Symbols are plain values; equality is string equality.
type Symbol string

func (s Symbol) String() string {
	return string(s)
}

// Node is one operator of a logical plan tree. The set of implementations
// is closed: TableScanNode, ValuesNode, FilterNode, ProjectNode, JoinNode,
// OutputNode. Rewrites type-switch over them and treat an unknown type as
// an internal error.
type Node interface {
	ID() NodeID
	Children() []Node
	// ReplaceChildren returns a copy of the node with its children swapped
	// for the given ones, keeping the same ID. The count must match the
	// node's arity.
	ReplaceChildren(children []Node) Node
	OutputSymbols() []Symbol
}

// IDAllocator issues fresh node IDs. One allocator lives for the whole
// planning of a query, so IDs are unique within a plan tree.
type IDAllocator struct {
	next int
}

func NewIDAllocator() *IDAllocator {
	return &IDAllocator{}
}

func (a *IDAllocator) Next() NodeID {
	id := NodeID(strconv.Itoa(a.next))
	a.next++
	return id
}

// SymbolsEqual reports whether two symbol lists match element by element.
func SymbolsEqual(a, b []Symbol) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// ContainsAllSymbols reports whether want ⊆ have.
func ContainsAllSymbols(have, want []Symbol) bool {
	set := make(map[Symbol]bool, len(have))
	for _, s := range have {
		set[s] = true
	}
	for _, s := range want {
		if !set[s] {
			return false
		}
	}
	return true
}

func checkArity(n Node, children []Node, want int) {
	if len(children) != want {
		panic(fmt.Sprintf("plan: node %s expects %d children, got %d", n.ID(), want, len(children)))
	}
}
