package explain

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tesseradb/tessera/pkg/catalog"
	"github.com/tesseradb/tessera/pkg/parser"
	"github.com/tesseradb/tessera/pkg/plan"
	"github.com/tesseradb/tessera/pkg/stats"
)

func TestRenderer_StructureOnly(t *testing.T) {
	scan := plan.NewTableScan("s", "users", "u", []string{"id"})
	filter := plan.NewFilter("f", scan, parser.NewBinaryExpr(parser.OpGT,
		parser.NewColumnExpr("u.id"), parser.NewValueExpr(int64(5))))
	out := plan.NewOutput("o", filter, []string{"id"}, []plan.Symbol{"u.id"})

	got := NewRenderer(nil).Render(context.Background(), out)

	want := "Output[id]\n" +
		"  Filter[(u.id > 5)]\n" +
		"    TableScan[users AS u]\n"
	assert.Equal(t, want, got)
}

func TestRenderer_JoinLabels(t *testing.T) {
	left := plan.NewTableScan("l", "users", "u", []string{"city_id"})
	right := plan.NewTableScan("r", "cities", "c", []string{"id"})

	tests := []struct {
		name string
		join *plan.JoinNode
		want string
	}{
		{
			name: "inner join with criteria and distribution",
			join: plan.NewJoin("j", plan.JoinInner, left, right,
				[]plan.EquiClause{{Left: "u.city_id", Right: "c.id"}}, nil).
				WithDistribution(plan.DistributionReplicated),
			want: "InnerJoin[REPLICATED][u.city_id = c.id]",
		},
		{
			name: "bare cross join",
			join: plan.NewJoin("j", plan.JoinInner, left, right, nil, nil),
			want: "CrossJoin",
		},
		{
			name: "left join with residual filter",
			join: plan.NewJoin("j", plan.JoinLeft, left, right, nil,
				parser.NewComparison(parser.OpLT, "u.city_id", "c.id")),
			want: "LeftJoin[(u.city_id < c.id)]",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Label(tt.join))
		})
	}
}

func TestRenderer_ProjectLabelShowsComputedAssignments(t *testing.T) {
	scan := plan.NewTableScan("s", "t_a", "a", []string{"a1"})
	project := plan.NewProject("p", scan, plan.Assignments{
		{Output: "d", Expr: parser.Negate(parser.NewColumnExpr("a.a1"))},
		{Output: "a.a1", Expr: parser.NewColumnExpr("a.a1")},
	})

	assert.Equal(t, "Project[d := (-a.a1), a.a1]", Label(project))
}

func TestRenderer_AnnotatesEstimates(t *testing.T) {
	cat := catalog.NewMemoryCatalog("mem")
	cat.AddTable(&catalog.TableMeta{Name: "users", Columns: []catalog.ColumnMeta{
		{Name: "id", Type: "bigint"},
	}}, &catalog.TableStats{
		RowCount: 1000,
		Columns: map[string]*catalog.ColumnStats{
			"id": {DistinctCount: 1000, AvgSizeBytes: 8},
		},
	})
	cat.AddTable(&catalog.TableMeta{Name: "ghosts", Columns: []catalog.ColumnMeta{
		{Name: "id", Type: "bigint"},
	}}, nil)

	renderer := NewRenderer(stats.NewProvider(cat))

	t.Run("known stats show rows and bytes", func(t *testing.T) {
		scan := plan.NewTableScan("s", "users", "u", []string{"id"})
		got := renderer.Render(context.Background(), scan)
		assert.Equal(t, "TableScan[users AS u]  {rows: 1,000, bytes: 8.0 kB}\n", got)
	})

	t.Run("missing stats show a placeholder", func(t *testing.T) {
		scan := plan.NewTableScan("s", "ghosts", "g", []string{"id"})
		got := renderer.Render(context.Background(), scan)
		assert.Equal(t, "TableScan[ghosts AS g]  {rows: ?}\n", got)
	})
}

func TestRenderer_ValuesLabelCountsRows(t *testing.T) {
	values := plan.NewValues("v", []plan.Symbol{"v.v1"}, [][]interface{}{{int64(1)}, {int64(2)}})
	assert.Equal(t, "Values[rows: 2]", Label(values))
}
