package state

import (
	"go.uber.org/zap"

	"github.com/openvp/affe/pkg/types"
)

// Type is the script type of ScriptState values. A host exposes its state by binding a field of this type.
var Type = types.NewClass("ScriptState", nil)

// ScriptState holds the persistent variables of a script across invocations.
// A nil *ScriptState is a valid empty state that discards writes.
type ScriptState struct {
	store  Store
	logger *zap.Logger
}

type Option func(*ScriptState)

func WithLogger(logger *zap.Logger) Option {
	return func(s *ScriptState) {
		s.logger = logger
	}
}

// New returns a state kept in store.
func New(store Store, opts ...Option) *ScriptState {
	s := &ScriptState{store: store, logger: zap.NewNop()}
	for _, o := range opts {
		o(s)
	}
	return s
}

// NewMemory returns a state kept in process memory.
func NewMemory(opts ...Option) *ScriptState {
	return New(NewMemoryStore(), opts...)
}

func (s *ScriptState) AffeType() *types.Type {
	return Type
}

func (s *ScriptState) Store() Store {
	if s == nil {
		return nil
	}
	return s.store
}

// Value returns the value stored under name as type t. Stored numbers are converted between numeric kinds.
// A missing value, or one that cannot be represented as t, yields the default of t.
func (s *ScriptState) Value(name string, t *types.Type) (any, error) {
	if s == nil {
		return types.Default(t), nil
	}
	v, ok, err := s.store.Get(name)
	if err != nil {
		return nil, err
	}
	if !ok {
		return types.Default(t), nil
	}
	vt := types.TypeOf(v)
	switch {
	case vt == t:
		return v, nil
	case t.IsValueType() && vt != nil && vt.IsValueType():
		return types.Convert(v, t.Kind())
	case !t.IsValueType() && (v == nil || t.IsAssignableFrom(vt)):
		return v, nil
	default:
		s.logger.Debug("Ignoring persisted value of another type",
			zap.String("name", name), zap.Stringer("stored", vt), zap.Stringer("requested", t))
		return types.Default(t), nil
	}
}

// SetValue stores v under name.
func (s *ScriptState) SetValue(name string, v any) error {
	if s == nil {
		return nil
	}
	return s.store.Put(name, v)
}

// Names returns the names of the stored values in ascending order.
func (s *ScriptState) Names() ([]string, error) {
	if s == nil {
		return nil, nil
	}
	return s.store.Keys()
}

// Clear forgets every stored value so the next invocation starts from defaults.
func (s *ScriptState) Clear() error {
	if s == nil {
		return nil
	}
	return s.store.Clear()
}
