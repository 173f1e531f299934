package vm

import (
	"context"
	"fmt"

	"go.uber.org/atomic"
	"go.uber.org/zap"

	"github.com/openvp/affe/pkg/codegen"
	"github.com/openvp/affe/pkg/errs"
	"github.com/openvp/affe/pkg/metrics"
	"github.com/openvp/affe/pkg/types"
)

// State is the persistence store of a script run. Values are looked up by the name of the persistent variable.
type State interface {
	// Value returns the stored value converted to t, or the default of t when nothing is stored.
	Value(name string, t *types.Type) (any, error)
	SetValue(name string, v any) error
}

type Option func(*Function)

// WithOperationLimit aborts invocations that execute more than n instructions. Zero means no limit.
func WithOperationLimit(n int) Option {
	return func(f *Function) {
		f.limit = n
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(f *Function) {
		f.logger = logger
	}
}

// WithMetrics reports every invocation to the prometheus collectors of package metrics.
func WithMetrics(enabled bool) Option {
	return func(f *Function) {
		f.metrics = enabled
	}
}

// WithName sets the name reported in logs and errors.
func WithName(name string) Option {
	return func(f *Function) {
		f.name = name
	}
}

// Function is a compiled script ready to be invoked against host instances.
// It is safe for concurrent use; every invocation gets its own frame.
type Function struct {
	program *codegen.Program
	name    string
	limit   int
	logger  *zap.Logger
	metrics bool

	invocations atomic.Uint64
	failures    atomic.Uint64
	operations  atomic.Uint64
}

func New(p *codegen.Program, opts ...Option) *Function {
	f := &Function{program: p, name: "script", logger: zap.NewNop()}
	for _, o := range opts {
		o(f)
	}
	return f
}

func (f *Function) Program() *codegen.Program {
	return f.program
}

func (f *Function) Name() string {
	return f.name
}

// Invoke runs the script with host as its host instance.
func (f *Function) Invoke(host any) error {
	return f.InvokeContext(context.Background(), host)
}

// InvokeContext runs the script. Cancellation of ctx aborts the run between instructions.
func (f *Function) InvokeContext(ctx context.Context, host any) (err error) {
	f.invocations.Inc()
	m := newMachine(ctx, f.program, host, f.limit)
	defer func() {
		if r := recover(); r != nil {
			err = errs.RuntimeError.Errorf(errs.NoOffset, "host panic at %04d: %v", m.pos, r)
		}
		f.operations.Add(uint64(m.ops))
		if f.metrics {
			metrics.InvocationDone(err)
		}
		if err != nil {
			f.failures.Inc()
			f.logger.Debug("Script invocation failed", zap.String("function", f.name), zap.Error(err))
		}
	}()
	return m.run()
}

// Stats are cumulative counters of a function.
type Stats struct {
	Invocations uint64
	Failures    uint64
	Operations  uint64
}

func (s Stats) String() string {
	return fmt.Sprintf("invocations=%d failures=%d operations=%d", s.Invocations, s.Failures, s.Operations)
}

func (f *Function) Stats() Stats {
	return Stats{
		Invocations: f.invocations.Load(),
		Failures:    f.failures.Load(),
		Operations:  f.operations.Load(),
	}
}
