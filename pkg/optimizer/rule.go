package optimizer

import (
	"context"

	"github.com/tesseradb/tessera/pkg/cost"
	"github.com/tesseradb/tessera/pkg/plan"
	"github.com/tesseradb/tessera/pkg/session"
	"github.com/tesseradb/tessera/pkg/stats"
)

// Logger receives planner trace output. It is the printf subset of the
// embedding API's logger, so any of those loggers can be passed in
// directly.
type Logger interface {
	Debug(format string, args ...interface{})
	Info(format string, args ...interface{})
	Warn(format string, args ...interface{})
	Error(format string, args ...interface{})
}

type noopLogger struct{}

func (noopLogger) Debug(format string, args ...interface{}) {}
func (noopLogger) Info(format string, args ...interface{})  {}
func (noopLogger) Warn(format string, args ...interface{})  {}
func (noopLogger) Error(format string, args ...interface{}) {}

// Rule rewrites one plan node into a better equivalent. A rule that does
// not apply returns the input node unchanged; the driver detects rewrites
// by identity.
type Rule interface {
	// Name identifies the rule in logs and error messages.
	Name() string

	// Match cheaply checks whether the rule could apply to this node.
	Match(node plan.Node) bool

	// Apply rewrites the subtree rooted at node. Returning the input
	// node means the rule declined.
	Apply(ctx context.Context, node plan.Node, optCtx *Context) (plan.Node, error)
}

// Context carries the planner services rules share during one
// optimization run.
type Context struct {
	Session     *session.Session
	IDAllocator *plan.IDAllocator
	Estimator   stats.Estimator
	CostModel   *cost.Model
	Comparator  *cost.Comparator
	Logger      Logger
}

// NewContext assembles a rule context for one query. The cost model
// picks up the session's task count; the comparator uses the default
// weights.
func NewContext(sess *session.Session, allocator *plan.IDAllocator, estimator stats.Estimator) *Context {
	return &Context{
		Session:     sess,
		IDAllocator: allocator,
		Estimator:   estimator,
		CostModel:   cost.NewModel(sess.TaskCount()),
		Comparator:  cost.DefaultComparator(),
		Logger:      noopLogger{},
	}
}

// WithLogger replaces the context logger.
func (c *Context) WithLogger(logger Logger) *Context {
	c.Logger = logger
	return c
}
