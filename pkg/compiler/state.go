package compiler

import (
	"github.com/pkg/errors"

	"github.com/openvp/affe/pkg/ast"
	"github.com/openvp/affe/pkg/codegen"
	"github.com/openvp/affe/pkg/errs"
	"github.com/openvp/affe/pkg/state"
	"github.com/openvp/affe/pkg/symbols"
	"github.com/openvp/affe/pkg/types"
)

type loop struct {
	start codegen.Label
	end   codegen.Label
}

// compilerState drives one compilation. It is used by a single goroutine and discarded afterwards.
type compilerState struct {
	binding *Binding
	scopes  *symbols.Stack
	sink    *codegen.Builder
	info    *Info

	// Analysis only counts enclosing loops; emission tracks their labels.
	loopDepth int
	loops     []loop

	// Scratch locals available for reuse, by type.
	free []codegen.Local

	stateLocal  codegen.Local
	hasState    bool
	returnLabel codegen.Label
}

func newCompilerState(b *Binding) *compilerState {
	return &compilerState{
		binding: b,
		scopes:  symbols.NewStack(b.table.Copy()),
		sink:    codegen.NewBuilder(),
		info: &Info{
			Uses:   make(map[ast.Node]symbols.Symbol),
			Scopes: make(map[*ast.BlockNode]*symbols.Table),
		},
	}
}

// Sink, CastTo, Emit, CheckOutLocal and CheckInLocal make the state the symbols.TransformContext of transforms.

func (s *compilerState) Sink() codegen.Sink {
	return s.sink
}

func (s *compilerState) Emit(e ast.Expression) error {
	return s.emitExpr(e)
}

func (s *compilerState) CheckOutLocal(t *types.Type) codegen.Local {
	return s.checkOutLocal(t, false)
}

func (s *compilerState) CheckInLocal(l codegen.Local) {
	s.free = append(s.free, l)
}

// checkOutLocal returns a local of type t. A temporary local stays available to the next checkout, so it must be
// consumed before any other code is generated.
func (s *compilerState) checkOutLocal(t *types.Type, temporary bool) codegen.Local {
	for i, l := range s.free {
		if l.Type != t {
			continue
		}
		if !temporary {
			s.free = append(s.free[:i], s.free[i+1:]...)
		}
		return l
	}
	l := s.sink.DeclareLocal(t)
	if temporary {
		s.free = append(s.free, l)
	}
	return l
}

// lookupType resolves a type name used in a declaration or cast.
func (s *compilerState) lookupType(id *ast.Identifier) (*symbols.TypeName, error) {
	sym, ok := s.scopes.Lookup(id.Name)
	if !ok {
		return nil, errs.SemanticError.Errorf(id.Offset(), "unknown type '%s'", id.Name)
	}
	tn, ok := sym.(*symbols.TypeName)
	if !ok {
		return nil, errs.SemanticError.Errorf(id.Offset(), "'%s' is not a type", id.Name)
	}
	return tn, nil
}

// declare adds a local variable to the innermost scope. Names may not shadow any visible symbol.
func (s *compilerState) declare(id *ast.Identifier, t *types.Type) (*symbols.Variable, error) {
	if _, ok := s.scopes.Lookup(id.Name); ok {
		return nil, errs.SemanticError.Errorf(id.Offset(), "identifier '%s' previously declared", id.Name)
	}
	v := symbols.NewVariable(id.Name, t, s.sink.DeclareLocal(t))
	if err := s.scopes.Declare(v); err != nil {
		return nil, errs.SemanticError.Wrap(err, id.Offset(), "failed to declare variable")
	}
	return v, nil
}

// defineLocal declares a variable for an assignment to an unknown name. Such variables are float,
// global to the script and persistent.
func (s *compilerState) defineLocal(ref *ast.ReferenceNode) (*symbols.Variable, error) {
	v := symbols.NewVariable(ref.Name, types.Typ[types.Float32], s.checkOutLocal(types.Typ[types.Float32], false))
	if err := s.scopes.Global().Add(v); err != nil {
		return nil, errs.SemanticError.Wrap(err, ref.Offset(), "failed to declare variable")
	}
	s.makePersistent(v)
	return v, nil
}

func (s *compilerState) makePersistent(v *symbols.Variable) {
	v.Persistent = true
	s.info.Persistent = append(s.info.Persistent, v)
}

func (s *compilerState) pushLoop(l loop) {
	s.loops = append(s.loops, l)
}

func (s *compilerState) popLoop() {
	s.loops = s.loops[:len(s.loops)-1]
}

func (s *compilerState) currentLoop(n ast.Node) (loop, error) {
	if len(s.loops) == 0 {
		return loop{}, errs.SemanticError.New(n.Offset(), "not inside a loop")
	}
	return s.loops[len(s.loops)-1], nil
}

// compile analyzes root and generates the function body around it: persistent variables are loaded
// from the bound script state on entry and saved back on every exit path.
func (s *compilerState) compile(root *ast.BlockNode) error {
	if err := s.analyzeBlock(root); err != nil {
		return err
	}
	s.returnLabel = s.sink.DefineLabel()

	if f := s.binding.state; f != nil {
		s.hasState = true
		s.stateLocal = s.sink.DeclareLocal(state.Type)
		s.sink.Emit(codegen.OpLoadHost)
		s.sink.EmitField(codegen.OpLoadField, f)
		s.sink.EmitLocal(codegen.OpStoreLocal, s.stateLocal)
		for _, v := range s.info.Persistent {
			s.sink.EmitLocal(codegen.OpLoadLocal, s.stateLocal)
			s.sink.EmitConst(v.Name())
			s.sink.EmitType(codegen.OpStateGet, v.Type)
			s.sink.EmitLocal(codegen.OpStoreLocal, v.Local)
		}
		s.sink.BeginTry()
	}

	if err := s.emitBlock(root); err != nil {
		return err
	}

	if s.hasState {
		s.sink.BeginFinally()
		for _, v := range s.info.Persistent {
			s.sink.EmitLocal(codegen.OpLoadLocal, s.stateLocal)
			s.sink.EmitConst(v.Name())
			s.sink.EmitLocal(codegen.OpLoadLocal, v.Local)
			if v.Type.IsValueType() {
				s.sink.EmitType(codegen.OpBox, v.Type)
			}
			s.sink.Emit(codegen.OpStateSet)
		}
		s.sink.EndTry()
	}
	s.sink.MarkLabel(s.returnLabel)
	s.sink.Emit(codegen.OpReturn)
	return nil
}

// semantic classifies err as a semantic error at offset unless it already carries a classification.
func semantic(err error, offset int, msg string) error {
	var classified *errs.Error
	if errors.As(err, &classified) {
		return err
	}
	return errs.SemanticError.Wrap(err, offset, msg)
}
