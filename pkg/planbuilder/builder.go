// Package planbuilder turns parsed SELECT statements into logical plans.
// It resolves tables against a catalog, qualifies every column reference
// into a plan symbol ("alias.column"), and keeps the FROM clause's join
// nesting intact so the optimizer sees the query's original shape.
package planbuilder

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/tesseradb/tessera/pkg/catalog"
	"github.com/tesseradb/tessera/pkg/parser"
	"github.com/tesseradb/tessera/pkg/plan"
)

// ErrUnsupported marks query constructs the planner does not handle.
// Callers test for it with errors.Is.
var ErrUnsupported = errors.New("unsupported query construct")

// Builder plans SELECT statements against one catalog. A builder is cheap;
// create one per query with the query's ID allocator.
type Builder struct {
	catalog catalog.Catalog
	alloc   *plan.IDAllocator
}

func New(cat catalog.Catalog, alloc *plan.IDAllocator) *Builder {
	return &Builder{catalog: cat, alloc: alloc}
}

// Build plans stmt into an OutputNode tree. The output fixes the
// user-visible column names and their order; everything below it speaks
// qualified symbols.
func (b *Builder) Build(ctx context.Context, stmt *parser.SelectStatement) (*plan.OutputNode, error) {
	if stmt == nil {
		return nil, fmt.Errorf("%w: empty SELECT", ErrUnsupported)
	}
	if stmt.Distinct {
		return nil, fmt.Errorf("%w: SELECT DISTINCT", ErrUnsupported)
	}
	if len(stmt.GroupBy) > 0 {
		return nil, fmt.Errorf("%w: GROUP BY", ErrUnsupported)
	}
	if stmt.Limit != nil {
		return nil, fmt.Errorf("%w: LIMIT", ErrUnsupported)
	}
	if len(stmt.Columns) == 0 {
		return nil, fmt.Errorf("%w: empty select list", ErrUnsupported)
	}

	if stmt.From == nil {
		return b.buildConstantSelect(stmt)
	}

	root, sc, err := b.buildRelation(ctx, stmt.From)
	if err != nil {
		return nil, err
	}

	if stmt.Where != nil {
		where, err := b.rewriteExpression(sc, stmt.Where)
		if err != nil {
			return nil, err
		}
		// An inner join absorbs the WHERE clause as a residual filter so
		// the join rules see every conjunct. Outer joins filter after
		// null extension and must keep the filter above.
		if join, ok := root.(*plan.JoinNode); ok && join.Type == plan.JoinInner {
			join.Filter = parser.And(join.Filter, where)
		} else {
			root = plan.NewFilter(b.alloc.Next(), root, where)
		}
	}

	assignments, names, err := b.buildSelectList(sc, stmt.Columns)
	if err != nil {
		return nil, err
	}

	child := root
	if !identityOver(assignments, root.OutputSymbols()) {
		child = plan.NewProject(b.alloc.Next(), root, assignments)
	}
	return plan.NewOutput(b.alloc.Next(), child, names, assignments.Outputs()), nil
}

// buildConstantSelect plans a FROM-less SELECT. A select list of plain
// literals becomes a single-row ValuesNode; anything computed is projected
// over a one-row zero-column values source.
func (b *Builder) buildConstantSelect(stmt *parser.SelectStatement) (*plan.OutputNode, error) {
	names := make([]string, 0, len(stmt.Columns))
	symbols := make([]plan.Symbol, 0, len(stmt.Columns))
	exprs := make([]*parser.Expression, 0, len(stmt.Columns))
	used := make(map[plan.Symbol]bool)

	allLiterals := true
	for i, col := range stmt.Columns {
		if col.IsWildcard {
			return nil, fmt.Errorf("%w: SELECT * without FROM", ErrUnsupported)
		}
		if col.Expr == nil {
			return nil, fmt.Errorf("%w: select item %d has no expression", ErrUnsupported, i+1)
		}
		if refs := parser.ReferencedColumns(col.Expr); len(refs) > 0 {
			return nil, fmt.Errorf("column %q does not exist", refs[0])
		}
		name := outputName(col, i)
		names = append(names, name)
		symbols = append(symbols, uniqueSymbol(used, plan.Symbol(name)))
		exprs = append(exprs, col.Expr)
		if col.Expr.Type != parser.ExprTypeValue {
			allLiterals = false
		}
	}

	if allLiterals {
		row := make([]interface{}, len(exprs))
		for i, e := range exprs {
			row[i] = e.Value
		}
		values := plan.NewValues(b.alloc.Next(), symbols, [][]interface{}{row})
		return plan.NewOutput(b.alloc.Next(), values, names, symbols), nil
	}

	// One empty row drives the computed projections.
	values := plan.NewValues(b.alloc.Next(), nil, [][]interface{}{{}})
	assignments := make(plan.Assignments, 0, len(exprs))
	for i, e := range exprs {
		assignments = append(assignments, plan.Assignment{Output: symbols[i], Expr: e})
	}
	project := plan.NewProject(b.alloc.Next(), values, assignments)
	return plan.NewOutput(b.alloc.Next(), project, names, symbols), nil
}

// buildRelation plans one FROM element and returns it with its name scope.
func (b *Builder) buildRelation(ctx context.Context, ref *parser.TableRef) (plan.Node, *scope, error) {
	switch ref.Kind {
	case parser.TableRefTable:
		meta, err := b.catalog.GetTable(ctx, ref.Table)
		if err != nil {
			return nil, nil, fmt.Errorf("resolve table %q: %w", ref.Table, err)
		}
		scan := plan.NewTableScan(b.alloc.Next(), ref.Table, ref.Alias, meta.ColumnNames())
		sc := &scope{}
		if err := sc.addRelation(scan.Alias, scan.OutputSymbols()); err != nil {
			return nil, nil, err
		}
		return scan, sc, nil

	case parser.TableRefJoin:
		if ref.Join == nil {
			return nil, nil, fmt.Errorf("%w: join without clause", ErrUnsupported)
		}
		return b.buildJoin(ctx, ref.Join)

	default:
		return nil, nil, fmt.Errorf("%w: FROM element kind %q", ErrUnsupported, ref.Kind)
	}
}

func (b *Builder) buildJoin(ctx context.Context, clause *parser.JoinClause) (plan.Node, *scope, error) {
	left, leftScope, err := b.buildRelation(ctx, clause.Left)
	if err != nil {
		return nil, nil, err
	}
	right, rightScope, err := b.buildRelation(ctx, clause.Right)
	if err != nil {
		return nil, nil, err
	}
	joined, err := leftScope.merge(rightScope)
	if err != nil {
		return nil, nil, err
	}

	var joinType plan.JoinType
	switch clause.Type {
	case parser.JoinTypeInner, parser.JoinTypeCross:
		joinType = plan.JoinInner
	case parser.JoinTypeLeft:
		joinType = plan.JoinLeft
	case parser.JoinTypeRight:
		joinType = plan.JoinRight
	case parser.JoinTypeFull:
		joinType = plan.JoinFull
	default:
		return nil, nil, fmt.Errorf("%w: join type %q", ErrUnsupported, clause.Type)
	}

	var criteria []plan.EquiClause
	var residual []*parser.Expression
	if clause.On != nil {
		for _, conj := range parser.Conjuncts(clause.On) {
			if parser.IsColumnEquality(conj) {
				symA, err := joined.resolve(conj.Left.Column)
				if err != nil {
					return nil, nil, err
				}
				symB, err := joined.resolve(conj.Right.Column)
				if err != nil {
					return nil, nil, err
				}
				// Orient the clause probe-side first. Equalities within
				// one side fall through to the residual filter.
				switch {
				case leftScope.contains(symA) && rightScope.contains(symB):
					criteria = append(criteria, plan.EquiClause{Left: symA, Right: symB})
					continue
				case leftScope.contains(symB) && rightScope.contains(symA):
					criteria = append(criteria, plan.EquiClause{Left: symB, Right: symA})
					continue
				}
			}
			rewritten, err := b.rewriteExpression(joined, conj)
			if err != nil {
				return nil, nil, err
			}
			residual = append(residual, rewritten)
		}
	}

	join := plan.NewJoin(b.alloc.Next(), joinType, left, right, criteria, parser.And(residual...))
	return join, joined, nil
}

// buildSelectList resolves the projection items into assignments plus the
// user-visible column names, in select-list order.
func (b *Builder) buildSelectList(sc *scope, columns []parser.SelectColumn) (plan.Assignments, []string, error) {
	assignments := make(plan.Assignments, 0, len(columns))
	names := make([]string, 0, len(columns))
	used := make(map[plan.Symbol]bool)

	for i, col := range columns {
		if col.IsWildcard {
			rels := sc.relations
			if col.Table != "" {
				rel := sc.relation(col.Table)
				if rel == nil {
					return nil, nil, fmt.Errorf("table %q does not exist in FROM clause", col.Table)
				}
				rels = []relation{*rel}
			}
			for _, rel := range rels {
				for _, sym := range rel.symbols {
					assignments = append(assignments, plan.Assignment{
						Output: sym,
						Expr:   parser.NewColumnExpr(string(sym)),
					})
					names = append(names, strings.TrimPrefix(string(sym), rel.qualifier+"."))
					used[sym] = true
				}
			}
			continue
		}

		if col.Expr == nil {
			return nil, nil, fmt.Errorf("%w: select item %d has no expression", ErrUnsupported, i+1)
		}

		if col.Expr.Type == parser.ExprTypeColumn {
			sym, err := sc.resolve(col.Expr.Column)
			if err != nil {
				return nil, nil, err
			}
			assignments = append(assignments, plan.Assignment{
				Output: sym,
				Expr:   parser.NewColumnExpr(string(sym)),
			})
			names = append(names, outputName(col, i))
			used[sym] = true
			continue
		}

		expr, err := b.rewriteExpression(sc, col.Expr)
		if err != nil {
			return nil, nil, err
		}
		name := outputName(col, i)
		sym := uniqueSymbol(used, plan.Symbol(name))
		assignments = append(assignments, plan.Assignment{Output: sym, Expr: expr})
		names = append(names, name)
	}
	return assignments, names, nil
}

// rewriteExpression clones expr with every column reference replaced by its
// resolved symbol.
func (b *Builder) rewriteExpression(sc *scope, expr *parser.Expression) (*parser.Expression, error) {
	cloned := parser.Clone(expr)
	if err := resolveColumns(sc, cloned); err != nil {
		return nil, err
	}
	return cloned, nil
}

func resolveColumns(sc *scope, expr *parser.Expression) error {
	if expr == nil {
		return nil
	}
	if expr.Type == parser.ExprTypeColumn {
		sym, err := sc.resolve(expr.Column)
		if err != nil {
			return err
		}
		expr.Column = string(sym)
		return nil
	}
	if err := resolveColumns(sc, expr.Left); err != nil {
		return err
	}
	if err := resolveColumns(sc, expr.Right); err != nil {
		return err
	}
	for i := range expr.Args {
		if err := resolveColumns(sc, &expr.Args[i]); err != nil {
			return err
		}
	}
	return nil
}

// outputName picks the user-visible name of one select item: the alias,
// then the parsed column or function name, then a positional placeholder.
func outputName(col parser.SelectColumn, pos int) string {
	if col.Alias != "" {
		return col.Alias
	}
	if col.Name != "" {
		return col.Name
	}
	return fmt.Sprintf("_col%d", pos)
}

// uniqueSymbol reserves base in used, suffixing it when already taken.
func uniqueSymbol(used map[plan.Symbol]bool, base plan.Symbol) plan.Symbol {
	sym := base
	for n := 1; used[sym]; n++ {
		sym = plan.Symbol(fmt.Sprintf("%s_%d", base, n))
	}
	used[sym] = true
	return sym
}

// identityOver reports whether assignments are exactly an identity
// projection of the given symbols, making the projection redundant.
func identityOver(assignments plan.Assignments, symbols []plan.Symbol) bool {
	return assignments.IsIdentity() && plan.SymbolsEqual(assignments.Outputs(), symbols)
}
