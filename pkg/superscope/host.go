package superscope

import (
	"github.com/openvp/affe/pkg/compiler"
	"github.com/openvp/affe/pkg/state"
	"github.com/openvp/affe/pkg/types"
)

// Host holds the variables shared by the scripts of a scope.
type Host struct {
	Red       float32
	Green     float32
	Blue      float32
	Alpha     float32
	N         float32
	X         float32
	Y         float32
	PX        float32
	PY        float32
	PAlpha    float32
	Width     float32
	Height    float32
	Beat      float32
	I         float32
	Value     float32
	NativeN   float32
	LineWidth float32

	State *state.ScriptState
}

func NewHost(s *state.ScriptState) *Host {
	return &Host{
		Red:       1,
		Green:     1,
		Blue:      1,
		Alpha:     1,
		PAlpha:    0.1,
		LineWidth: 1,
		State:     s,
	}
}

var hostFields = []struct {
	name string
	ref  func(h *Host) *float32
}{
	{"red", func(h *Host) *float32 { return &h.Red }},
	{"green", func(h *Host) *float32 { return &h.Green }},
	{"blue", func(h *Host) *float32 { return &h.Blue }},
	{"alpha", func(h *Host) *float32 { return &h.Alpha }},
	{"n", func(h *Host) *float32 { return &h.N }},
	{"x", func(h *Host) *float32 { return &h.X }},
	{"y", func(h *Host) *float32 { return &h.Y }},
	{"px", func(h *Host) *float32 { return &h.PX }},
	{"py", func(h *Host) *float32 { return &h.PY }},
	{"palpha", func(h *Host) *float32 { return &h.PAlpha }},
	{"w", func(h *Host) *float32 { return &h.Width }},
	{"h", func(h *Host) *float32 { return &h.Height }},
	{"b", func(h *Host) *float32 { return &h.Beat }},
	{"i", func(h *Host) *float32 { return &h.I }},
	{"v", func(h *Host) *float32 { return &h.Value }},
	{"nativen", func(h *Host) *float32 { return &h.NativeN }},
	{"linewidth", func(h *Host) *float32 { return &h.LineWidth }},
}

// BindHost adds the host variables and its script state to b.
func BindHost(b *compiler.Binding) error {
	for _, f := range hostFields {
		ref := f.ref
		if err := compiler.FieldRef(b, f.name, types.Typ[types.Float32], func(h any) *float32 {
			return ref(h.(*Host))
		}); err != nil {
			return err
		}
	}
	return b.State("State", func(h any) *state.ScriptState {
		return h.(*Host).State
	})
}
