package compiler

import (
	"io"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/openvp/affe/pkg/ast"
	"github.com/openvp/affe/pkg/codegen"
	"github.com/openvp/affe/pkg/metrics"
	"github.com/openvp/affe/pkg/parser"
	"github.com/openvp/affe/pkg/symbols"
	"github.com/openvp/affe/pkg/vm"
)

type Option func(*Compiler)

func WithLogger(logger *zap.Logger) Option {
	return func(c *Compiler) {
		c.logger = logger
	}
}

// WithCache keeps up to size compiled functions keyed by their source. Zero disables caching.
func WithCache(size int) Option {
	return func(c *Compiler) {
		c.cacheSize = size
	}
}

// WithOperationLimit limits the number of instructions one invocation of a compiled function may execute.
func WithOperationLimit(n int) Option {
	return func(c *Compiler) {
		c.limit = n
	}
}

// WithMetrics reports compilations and invocations to the prometheus collectors of package metrics.
func WithMetrics(enabled bool) Option {
	return func(c *Compiler) {
		c.metrics = enabled
	}
}

// Compiler turns scripts into functions operating on instances of the host described by its binding.
// It is safe for concurrent use as long as the binding is not modified.
type Compiler struct {
	binding   *Binding
	logger    *zap.Logger
	limit     int
	metrics   bool
	cacheSize int
	cache     *cache
}

func New(binding *Binding, opts ...Option) (*Compiler, error) {
	c := &Compiler{binding: binding, logger: zap.NewNop()}
	for _, o := range opts {
		o(c)
	}
	c.logger = c.logger.Named("compiler")
	if c.cacheSize > 0 {
		cc, err := newCache(c.cacheSize)
		if err != nil {
			return nil, err
		}
		c.cache = cc
	}
	return c, nil
}

func (c *Compiler) Binding() *Binding {
	return c.binding
}

// Compile parses and compiles src. Any error leaves no function behind.
func (c *Compiler) Compile(src string) (*vm.Function, error) {
	if c.cache == nil {
		return c.compileSource(src)
	}
	return c.cache.get(src, c.compileSource)
}

func (c *Compiler) CompileReader(r io.Reader) (*vm.Function, error) {
	src, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read script")
	}
	return c.Compile(string(src))
}

// CompileBlock compiles an already parsed script. Analysis rewrites the tree, so a block can be compiled only once.
func (c *Compiler) CompileBlock(root *ast.BlockNode) (*vm.Function, error) {
	p, _, err := c.build(root)
	if err != nil {
		return nil, err
	}
	return c.function(p), nil
}

// Analyze resolves and type checks root without generating a function.
func (c *Compiler) Analyze(root *ast.BlockNode) (*Info, error) {
	s := newCompilerState(c.binding)
	if err := s.analyzeBlock(root); err != nil {
		return nil, err
	}
	return s.info, nil
}

func (c *Compiler) compileSource(src string) (*vm.Function, error) {
	root, err := parser.Parse(src)
	if err != nil {
		c.observe(time.Now(), err)
		return nil, err
	}
	p, _, err := c.build(root)
	if err != nil {
		return nil, err
	}
	c.logger.Debug("Script compiled",
		zap.String("source", sourceKey(src)), zap.Int("locals", len(p.Locals)),
		zap.Int("size", len(p.Code)), zap.String("fingerprint", p.Fingerprint()))
	return c.function(p), nil
}

func (c *Compiler) build(root *ast.BlockNode) (p *codegen.Program, info *Info, err error) {
	start := time.Now()
	defer func() {
		c.observe(start, err)
	}()
	s := newCompilerState(c.binding)
	if err := s.compile(root); err != nil {
		return nil, nil, err
	}
	p, err = s.sink.Build()
	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to build program")
	}
	return p, s.info, nil
}

func (c *Compiler) observe(start time.Time, err error) {
	if !c.metrics {
		return
	}
	metrics.CompileDone(time.Since(start), err)
}

func (c *Compiler) function(p *codegen.Program) *vm.Function {
	return vm.New(p,
		vm.WithOperationLimit(c.limit),
		vm.WithLogger(c.logger.Named("vm")),
		vm.WithMetrics(c.metrics),
		vm.WithName(p.Fingerprint()),
	)
}

// Info holds what analysis resolved.
type Info struct {
	// Uses maps identifier references and call names to the symbols they denote.
	Uses map[ast.Node]symbols.Symbol
	// Scopes holds the table declared by each block.
	Scopes map[*ast.BlockNode]*symbols.Table
	// Persistent lists the variables loaded from and saved to the script state, in declaration order.
	Persistent []*symbols.Variable
}
