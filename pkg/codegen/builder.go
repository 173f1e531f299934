package codegen

import (
	"bytes"
	"encoding/binary"
	"reflect"

	"github.com/ccoveille/go-safecast"
	"github.com/pkg/errors"

	"github.com/openvp/affe/pkg/types"
)

type fixup struct {
	at    int
	label Label
}

type region struct {
	finally Label
	end     Label
	closing bool
}

// Builder is a Sink that encodes instructions into a Program. The first encoding error
// is kept and reported by Build.
type Builder struct {
	w      *bytes.Buffer
	labels []int
	fixups []fixup
	tries  []region
	err    error

	constants []any
	constIDs  map[any]uint16
	types     []*types.Type
	typeIDs   map[*types.Type]uint16
	fields    []*types.Field
	fieldIDs  map[*types.Field]uint16
	props     []*types.Property
	propIDs   map[*types.Property]uint16
	methods   []*types.Method
	methodIDs map[*types.Method]uint16
	names     []string
	nameIDs   map[string]uint16
	locals    []*types.Type
}

func NewBuilder() *Builder {
	return &Builder{
		w:         new(bytes.Buffer),
		constIDs:  make(map[any]uint16),
		typeIDs:   make(map[*types.Type]uint16),
		fieldIDs:  make(map[*types.Field]uint16),
		propIDs:   make(map[*types.Property]uint16),
		methodIDs: make(map[*types.Method]uint16),
		nameIDs:   make(map[string]uint16),
	}
}

func (b *Builder) fail(err error) {
	if b.err == nil {
		b.err = err
	}
}

func (b *Builder) u16(v int, what string) uint16 {
	r, err := safecast.Convert[uint16](v)
	if err != nil {
		b.fail(errors.Wrapf(err, "too many %s", what))
	}
	return r
}

func (b *Builder) write(op byte, arg uint16) {
	b.w.WriteByte(op)
	var buf [2]byte
	binary.BigEndian.PutUint16(buf[:], arg)
	b.w.Write(buf[:])
}

// Len returns the current code position.
func (b *Builder) Len() int {
	return b.w.Len()
}

func (b *Builder) DefineLabel() Label {
	b.labels = append(b.labels, -1)
	return Label(len(b.labels) - 1)
}

func (b *Builder) MarkLabel(l Label) {
	if b.labels[l] >= 0 {
		b.fail(errors.Errorf("label %d marked twice", l))
		return
	}
	b.labels[l] = b.w.Len()
}

func (b *Builder) DeclareLocal(t *types.Type) Local {
	b.locals = append(b.locals, t)
	return Local{Index: len(b.locals) - 1, Type: t}
}

func (b *Builder) Emit(op byte) {
	if Size(op) != 1 {
		b.fail(errors.Errorf("operation %s requires a parameter", OpName(op)))
	}
	b.w.WriteByte(op)
}

// EmitConst pushes a constant. Null constants are emitted as OpPushNull.
func (b *Builder) EmitConst(v any) {
	if v == nil {
		b.w.WriteByte(OpPushNull)
		return
	}
	if !reflect.TypeOf(v).Comparable() {
		b.constants = append(b.constants, v)
		b.write(OpPush, b.u16(len(b.constants)-1, "constants"))
		return
	}
	id, ok := b.constIDs[v]
	if !ok {
		b.constants = append(b.constants, v)
		id = b.u16(len(b.constants)-1, "constants")
		b.constIDs[v] = id
	}
	b.write(OpPush, id)
}

func (b *Builder) EmitLocal(op byte, l Local) {
	b.write(op, b.u16(l.Index, "locals"))
}

func (b *Builder) EmitJump(op byte, l Label) {
	b.fixups = append(b.fixups, fixup{at: b.w.Len() + 1, label: l})
	b.write(op, 0)
}

func (b *Builder) EmitType(op byte, t *types.Type) {
	id, ok := b.typeIDs[t]
	if !ok {
		b.types = append(b.types, t)
		id = b.u16(len(b.types)-1, "types")
		b.typeIDs[t] = id
	}
	b.write(op, id)
}

func (b *Builder) EmitConv(k types.Kind) {
	b.write(OpConv, uint16(k))
}

func (b *Builder) EmitRank(op byte, rank int) {
	b.write(op, b.u16(rank, "dimensions"))
}

func (b *Builder) EmitField(op byte, f *types.Field) {
	id, ok := b.fieldIDs[f]
	if !ok {
		b.fields = append(b.fields, f)
		id = b.u16(len(b.fields)-1, "fields")
		b.fieldIDs[f] = id
	}
	b.write(op, id)
}

func (b *Builder) EmitProperty(op byte, p *types.Property) {
	id, ok := b.propIDs[p]
	if !ok {
		b.props = append(b.props, p)
		id = b.u16(len(b.props)-1, "properties")
		b.propIDs[p] = id
	}
	b.write(op, id)
}

func (b *Builder) EmitMethod(op byte, m *types.Method) {
	id, ok := b.methodIDs[m]
	if !ok {
		b.methods = append(b.methods, m)
		id = b.u16(len(b.methods)-1, "methods")
		b.methodIDs[m] = id
	}
	b.write(op, id)
}

func (b *Builder) EmitName(op byte, name string) {
	id, ok := b.nameIDs[name]
	if !ok {
		b.names = append(b.names, name)
		id = b.u16(len(b.names)-1, "names")
		b.nameIDs[name] = id
	}
	b.write(op, id)
}

func (b *Builder) BeginTry() {
	r := region{finally: b.DefineLabel(), end: b.DefineLabel()}
	b.tries = append(b.tries, r)
	b.EmitJump(OpTry, r.finally)
}

func (b *Builder) BeginFinally() {
	if len(b.tries) == 0 || b.tries[len(b.tries)-1].closing {
		b.fail(errors.New("finally outside of protected region"))
		return
	}
	r := &b.tries[len(b.tries)-1]
	r.closing = true
	b.EmitJump(OpLeave, r.end)
	b.MarkLabel(r.finally)
}

func (b *Builder) EndTry() {
	if len(b.tries) == 0 || !b.tries[len(b.tries)-1].closing {
		b.fail(errors.New("protected region has no finally handler"))
		return
	}
	r := b.tries[len(b.tries)-1]
	b.tries = b.tries[:len(b.tries)-1]
	b.w.WriteByte(OpEndFinally)
	b.MarkLabel(r.end)
}

// Build resolves label references and returns the finished program.
func (b *Builder) Build() (*Program, error) {
	if b.err != nil {
		return nil, b.err
	}
	if len(b.tries) != 0 {
		return nil, errors.New("unterminated protected region")
	}
	code := bytes.Clone(b.w.Bytes())
	for _, f := range b.fixups {
		pos := b.labels[f.label]
		if pos < 0 {
			return nil, errors.Errorf("label %d is never marked", f.label)
		}
		p, err := safecast.Convert[uint16](pos)
		if err != nil {
			return nil, errors.Wrap(err, "code too long")
		}
		binary.BigEndian.PutUint16(code[f.at:], p)
	}
	return &Program{
		Code:       code,
		Constants:  b.constants,
		Types:      b.types,
		Fields:     b.fields,
		Properties: b.props,
		Methods:    b.methods,
		Names:      b.names,
		Locals:     b.locals,
	}, nil
}
