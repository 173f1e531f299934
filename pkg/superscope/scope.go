// Package superscope runs the scripts of a programmable oscilloscope: an init script once, a frame script
// and an optional beat script every frame, and a point script for every rendered vertex.
package superscope

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"github.com/qmuntal/stateless"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/openvp/affe/pkg/compiler"
	"github.com/openvp/affe/pkg/environment"
	"github.com/openvp/affe/pkg/errs"
	"github.com/openvp/affe/pkg/state"
	"github.com/openvp/affe/pkg/vm"
)

type ScriptKind int

const (
	InitScript ScriptKind = iota
	FrameScript
	BeatScript
	PointScript
	scriptKinds
)

var scriptNames = [...]string{
	InitScript:  "init",
	FrameScript: "frame",
	BeatScript:  "beat",
	PointScript: "point",
}

func (k ScriptKind) String() string {
	if k >= 0 && k < scriptKinds {
		return scriptNames[k]
	}
	return "unknown"
}

// ParseScriptKind returns the kind named name.
func ParseScriptKind(name string) (ScriptKind, error) {
	for k, n := range scriptNames {
		if n == name {
			return ScriptKind(k), nil
		}
	}
	return 0, errors.Errorf("unknown script kind '%s'", name)
}

const (
	needInitState = "NeedInit"
	runningState  = "Running"

	frameTrigger = "Frame"
	dirtyTrigger = "Dirty"
)

// FrameInfo describes the frame being prepared.
type FrameInfo struct {
	Width           int
	Height          int
	Beat            bool
	NativePCMLength int
}

// Point is a rendered vertex with its colour.
type Point struct {
	X     float32
	Y     float32
	Red   float32
	Green float32
	Blue  float32
	Alpha float32
}

type Option func(*Scope)

func WithLogger(logger *zap.Logger) Option {
	return func(s *Scope) {
		s.logger = logger
	}
}

// WithStore keeps persistent script variables in store instead of memory.
func WithStore(store state.Store) Option {
	return func(s *Scope) {
		s.store = store
	}
}

func WithCompilerOptions(opts ...compiler.Option) Option {
	return func(s *Scope) {
		s.compilerOpts = append(s.compilerOpts, opts...)
	}
}

func WithMathOptions(opts ...environment.MathOption) Option {
	return func(s *Scope) {
		s.mathOpts = append(s.mathOpts, opts...)
	}
}

// Scope owns a host and its scripts. Its methods may be called from several goroutines.
type Scope struct {
	logger       *zap.Logger
	store        state.Store
	compilerOpts []compiler.Option
	mathOpts     []environment.MathOption

	mu       sync.Mutex
	compiler *compiler.Compiler
	host     *Host
	sources  [scriptKinds]string
	scripts  [scriptKinds]*vm.Function
	machine  *stateless.StateMachine
	// Set while the machine enters Running, which runs the init script.
	frame FrameInfo
}

func New(opts ...Option) (*Scope, error) {
	s := &Scope{logger: zap.NewNop()}
	for _, o := range opts {
		o(s)
	}
	s.logger = s.logger.Named("superscope")
	if s.store == nil {
		s.store = state.NewMemoryStore()
	}
	b := compiler.NewBinding()
	if err := environment.InstallBase(b); err != nil {
		return nil, err
	}
	if err := environment.InstallMath(b, s.mathOpts...); err != nil {
		return nil, err
	}
	if err := BindHost(b); err != nil {
		return nil, errors.Wrap(err, "failed to bind scope host")
	}
	copts := append([]compiler.Option{compiler.WithLogger(s.logger)}, s.compilerOpts...)
	s.host = NewHost(state.New(s.store, state.WithLogger(s.logger.Named("state"))))
	c, err := compiler.New(b, copts...)
	if err != nil {
		return nil, err
	}
	s.compiler = c
	s.machine = s.newMachine()
	return s, nil
}

func (s *Scope) newMachine() *stateless.StateMachine {
	m := stateless.NewStateMachineWithMode(needInitState, stateless.FiringImmediate)
	m.Configure(needInitState).
		Permit(frameTrigger, runningState).
		Ignore(dirtyTrigger)
	m.Configure(runningState).
		OnEntryFrom(frameTrigger, func(ctx context.Context, _ ...any) error {
			s.update(s.frame)
			s.host.N = s.host.NativeN
			return s.runContext(ctx, InitScript)
		}).
		Permit(dirtyTrigger, needInitState).
		Ignore(frameTrigger)
	return m
}

// Host returns the script variables. They must not be modified while a frame is prepared or rendered.
func (s *Scope) Host() *Host {
	return s.host
}

func (s *Scope) Source(kind ScriptKind) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sources[kind]
}

// Script returns the compiled script of the given kind, nil when none is set.
func (s *Scope) Script(kind ScriptKind) *vm.Function {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scripts[kind]
}

// SetScript compiles src as the script of the given kind. An empty source removes the script. Replacing the init
// script runs it again before the next frame.
func (s *Scope) SetScript(kind ScriptKind, src string) error {
	if kind < 0 || kind >= scriptKinds {
		return errors.Errorf("invalid script kind %d", kind)
	}
	var fn *vm.Function
	if src != "" {
		var err error
		if fn, err = s.compiler.Compile(src); err != nil {
			return errs.Extend(err, "failed to compile "+kind.String()+" script")
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sources[kind] = src
	s.scripts[kind] = fn
	if kind == InitScript {
		return s.machine.Fire(dirtyTrigger)
	}
	return nil
}

// Reset forgets the persistent variables and runs the init script again before the next frame.
func (s *Scope) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.host.State.Clear(); err != nil {
		return err
	}
	return s.machine.Fire(dirtyTrigger)
}

// NeedsInit reports whether the next frame runs the init script.
func (s *Scope) NeedsInit() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.machine.MustState() == needInitState
}

func (s *Scope) update(f FrameInfo) {
	s.host.Width = float32(f.Width)
	s.host.Height = float32(f.Height)
	s.host.Beat = 0
	if f.Beat {
		s.host.Beat = 1
	}
	s.host.NativeN = float32(f.NativePCMLength)
}

func (s *Scope) runContext(ctx context.Context, kind ScriptKind) error {
	fn := s.scripts[kind]
	if fn == nil {
		return nil
	}
	if err := fn.InvokeContext(ctx, s.host); err != nil {
		s.logger.Warn("Script failed", zap.Stringer("script", kind), zap.Error(err))
		return errors.Wrapf(err, "%s script", kind)
	}
	return nil
}

// NextFrame runs the init script when needed, then the frame script and, on a beat, the beat script.
// A failing script does not stop the others; all failures are returned together.
func (s *Scope) NextFrame(ctx context.Context, f FrameInfo) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.frame = f
	err := s.machine.FireCtx(ctx, frameTrigger)
	if s.host.N <= 0 {
		return err
	}
	s.update(f)
	err = multierr.Append(err, s.runContext(ctx, FrameScript))
	if f.Beat {
		s.update(f)
		err = multierr.Append(err, s.runContext(ctx, BeatScript))
	}
	return err
}

// Render runs the point script once per point, feeding it the sample at the same relative position of pcm.
// Rendering stops at the first failing invocation and returns the points produced so far.
func (s *Scope) Render(ctx context.Context, pcm []float32) ([]Point, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := int(s.host.N)
	if n <= 0 {
		return nil, nil
	}
	fn := s.scripts[PointScript]
	points := make([]Point, 0, n)
	for k := 0; k < n; k++ {
		if err := ctx.Err(); err != nil {
			return points, err
		}
		s.host.I = 0
		if n > 1 {
			s.host.I = float32(k) / float32(n-1)
		}
		s.host.Value = sample(pcm, k, n)
		if fn != nil {
			if err := fn.Invoke(s.host); err != nil {
				s.logger.Warn("Script failed", zap.Stringer("script", PointScript), zap.Error(err))
				return points, errors.Wrapf(err, "point script at %d", k)
			}
		}
		points = append(points, Point{
			X:     s.host.X,
			Y:     s.host.Y,
			Red:   s.host.Red,
			Green: s.host.Green,
			Blue:  s.host.Blue,
			Alpha: s.host.Alpha,
		})
	}
	return points, nil
}

// sample maps point k of n onto pcm by nearest index.
func sample(pcm []float32, k, n int) float32 {
	if len(pcm) == 0 {
		return 0
	}
	if len(pcm) == n {
		return pcm[k]
	}
	return pcm[k*len(pcm)/n]
}
