// Package explain renders logical plans as indented text, one node per
// line, annotated with the planner's statistics estimates when available.
package explain

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/dustin/go-humanize"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/tesseradb/tessera/pkg/plan"
	"github.com/tesseradb/tessera/pkg/stats"
)

// Renderer renders plan trees. With a nil estimator only the structure is
// rendered; otherwise each node carries estimated rows and output bytes.
type Renderer struct {
	estimator stats.Estimator
	printer   *message.Printer
}

func NewRenderer(estimator stats.Estimator) *Renderer {
	return &Renderer{
		estimator: estimator,
		printer:   message.NewPrinter(language.English),
	}
}

// Render returns the indented tree for root. Children indent two spaces
// under their parent.
func (r *Renderer) Render(ctx context.Context, root plan.Node) string {
	var b strings.Builder
	r.renderNode(ctx, &b, root, 0)
	return b.String()
}

func (r *Renderer) renderNode(ctx context.Context, b *strings.Builder, node plan.Node, depth int) {
	b.WriteString(strings.Repeat("  ", depth))
	b.WriteString(Label(node))
	if note := r.estimateNote(ctx, node); note != "" {
		b.WriteString("  ")
		b.WriteString(note)
	}
	b.WriteByte('\n')
	for _, child := range node.Children() {
		r.renderNode(ctx, b, child, depth+1)
	}
}

func (r *Renderer) estimateNote(ctx context.Context, node plan.Node) string {
	if r.estimator == nil {
		return ""
	}
	est, err := r.estimator.Estimate(ctx, node)
	if err != nil || est == nil || est.IsUnknown() {
		return "{rows: ?}"
	}
	rows := r.printer.Sprintf("%.0f", est.RowCount)
	bytes := est.OutputSizeBytes(node.OutputSymbols())
	if math.IsNaN(bytes) {
		return fmt.Sprintf("{rows: %s}", rows)
	}
	return fmt.Sprintf("{rows: %s, bytes: %s}", rows, humanize.Bytes(uint64(bytes)))
}

// Label describes one node without its children.
func Label(node plan.Node) string {
	switch n := node.(type) {
	case *plan.OutputNode:
		return fmt.Sprintf("Output[%s]", strings.Join(n.Names, ", "))
	case *plan.ProjectNode:
		return fmt.Sprintf("Project[%s]", assignmentList(n.Assignments))
	case *plan.FilterNode:
		return fmt.Sprintf("Filter[%s]", n.Predicate.String())
	case *plan.JoinNode:
		return joinLabel(n)
	case *plan.TableScanNode:
		if n.Alias != n.Table {
			return fmt.Sprintf("TableScan[%s AS %s]", n.Table, n.Alias)
		}
		return fmt.Sprintf("TableScan[%s]", n.Table)
	case *plan.ValuesNode:
		return fmt.Sprintf("Values[rows: %d]", len(n.Rows))
	default:
		return fmt.Sprintf("%T[%s]", node, node.ID())
	}
}

func joinLabel(n *plan.JoinNode) string {
	var name string
	switch n.Type {
	case plan.JoinInner:
		name = "InnerJoin"
		if len(n.Criteria) == 0 && n.Filter == nil {
			name = "CrossJoin"
		}
	case plan.JoinLeft:
		name = "LeftJoin"
	case plan.JoinRight:
		name = "RightJoin"
	case plan.JoinFull:
		name = "FullJoin"
	default:
		name = string(n.Type)
	}

	var b strings.Builder
	b.WriteString(name)
	if n.Distribution != plan.DistributionUnset {
		fmt.Fprintf(&b, "[%s]", n.Distribution)
	}
	conds := make([]string, 0, len(n.Criteria)+1)
	for _, c := range n.Criteria {
		conds = append(conds, c.String())
	}
	if n.Filter != nil {
		conds = append(conds, n.Filter.String())
	}
	if len(conds) > 0 {
		fmt.Fprintf(&b, "[%s]", strings.Join(conds, " AND "))
	}
	return b.String()
}

func assignmentList(assignments plan.Assignments) string {
	parts := make([]string, 0, len(assignments))
	for _, asg := range assignments {
		if asg.IsIdentity() {
			parts = append(parts, string(asg.Output))
			continue
		}
		parts = append(parts, fmt.Sprintf("%s := %s", asg.Output, asg.Expr.String()))
	}
	return strings.Join(parts, ", ")
}
