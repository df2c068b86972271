package plan

// IsAtMostScalar reports whether the node is proven to output at most one
// row, from plan shape alone. Scans are never proven scalar; Values with
// zero or one row is; filters and projections preserve the proof; inner
// and single-sided outer joins of two scalars stay scalar, full joins do
// not (two unmatched singletons make two rows).
func IsAtMostScalar(node Node) bool {
	switch n := node.(type) {
	case *ValuesNode:
		return len(n.Rows) <= 1
	case *ProjectNode:
		return IsAtMostScalar(n.Source)
	case *FilterNode:
		return IsAtMostScalar(n.Source)
	case *OutputNode:
		return IsAtMostScalar(n.Source)
	case *JoinNode:
		if n.Type == JoinFull {
			return false
		}
		return IsAtMostScalar(n.Left) && IsAtMostScalar(n.Right)
	default:
		return false
	}
}
