package vm

import (
	"context"
	"encoding/binary"

	"github.com/pkg/errors"

	"github.com/openvp/affe/pkg/codegen"
	"github.com/openvp/affe/pkg/errs"
	"github.com/openvp/affe/pkg/types"
)

const cancellationCheckInterval = 1024

// handler is an entered protected region. The region spans [start, finally).
type handler struct {
	start   int
	finally int
}

func (h handler) contains(pos int) bool {
	return pos >= h.start && pos < h.finally
}

// completion is what a running finally handler resumes when it ends.
type completion struct {
	err    error
	target int
	depth  int
}

// ref is the address of a local slot.
type ref struct {
	slot *any
}

func deref(v any) any {
	if r, ok := v.(*ref); ok {
		return *r.slot
	}
	return v
}

type machine struct {
	ctx         context.Context
	p           *codegen.Program
	code        []byte
	host        any
	locals      []any
	stack       []any
	handlers    []handler
	completions []completion
	ip          int
	pos         int
	ops         int
	limit       int
}

func newMachine(ctx context.Context, p *codegen.Program, host any, limit int) *machine {
	locals := make([]any, len(p.Locals))
	for i, t := range p.Locals {
		locals[i] = types.Default(t)
	}
	return &machine{ctx: ctx, p: p, code: p.Code, host: host, locals: locals, limit: limit}
}

func (m *machine) run() error {
	for m.ip < len(m.code) {
		if m.limit > 0 && m.ops >= m.limit {
			return errs.RuntimeError.New(errs.NoOffset, "operation limit exceeded")
		}
		if m.ops%cancellationCheckInterval == 0 {
			if err := m.ctx.Err(); err != nil {
				return errs.RuntimeError.Wrap(err, errs.NoOffset, "invocation aborted")
			}
		}
		m.ops++
		m.pos = m.ip
		op := m.code[m.ip]
		m.ip++
		done, err := m.safeStep(op)
		if err != nil {
			var classified *errs.Error
			if !errors.As(err, &classified) {
				err = errs.RuntimeError.Wrapf(err, errs.NoOffset, "%s at %04d", codegen.OpName(op), m.pos)
			}
			if err = m.throw(err); err != nil {
				return err
			}
			continue
		}
		if done {
			return nil
		}
	}
	return errs.RuntimeError.New(errs.NoOffset, "broken code")
}

// throw transfers control to the innermost finally handler, or returns err when there is none.
func (m *machine) throw(err error) error {
	// Completions of finally handlers being abandoned are dropped.
	for len(m.completions) > 0 && m.completions[len(m.completions)-1].depth >= len(m.handlers) {
		m.completions = m.completions[:len(m.completions)-1]
	}
	if len(m.handlers) == 0 {
		return err
	}
	h := m.handlers[len(m.handlers)-1]
	m.handlers = m.handlers[:len(m.handlers)-1]
	m.completions = append(m.completions, completion{err: err, depth: len(m.handlers)})
	m.stack = m.stack[:0]
	m.ip = h.finally
	return nil
}

// leave jumps to target, running the finally handlers of every region left on the way.
func (m *machine) leave(target int) {
	if n := len(m.handlers); n > 0 && !m.handlers[n-1].contains(target) {
		h := m.handlers[n-1]
		m.handlers = m.handlers[:n-1]
		m.completions = append(m.completions, completion{target: target, depth: len(m.handlers)})
		m.ip = h.finally
		return
	}
	m.ip = target
}

// endFinally resumes the leave that entered the running handler, or returns the error that did.
func (m *machine) endFinally() error {
	n := len(m.completions)
	if n == 0 {
		return errors.New("end of finally handler outside of handler")
	}
	c := m.completions[n-1]
	m.completions = m.completions[:n-1]
	if c.err != nil {
		return c.err
	}
	m.leave(c.target)
	return nil
}

// safeStep turns a panic raised by host code into an error of the instruction.
func (m *machine) safeStep(op byte) (done bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			done, err = false, errors.Errorf("host panic: %v", r)
		}
	}()
	return m.step(op)
}

func (m *machine) step(op byte) (bool, error) {
	switch op {
	case codegen.OpNop:

	case codegen.OpPush:
		m.push(m.p.Constants[m.arg16()])

	case codegen.OpPushNull:
		m.push(nil)

	case codegen.OpPop:
		if _, err := m.pop(); err != nil {
			return false, err
		}

	case codegen.OpDup:
		v, err := m.peek()
		if err != nil {
			return false, err
		}
		m.push(v)

	case codegen.OpLoadHost:
		m.push(m.host)

	case codegen.OpLoadLocal:
		m.push(m.locals[m.arg16()])

	case codegen.OpStoreLocal:
		v, err := m.pop()
		if err != nil {
			return false, err
		}
		m.locals[m.arg16()] = v

	case codegen.OpLoadLocalAddr:
		m.push(&ref{slot: &m.locals[m.arg16()]})

	case codegen.OpLoadField:
		f := m.p.Fields[m.arg16()]
		recv, err := m.receiver()
		if err != nil {
			return false, err
		}
		v, err := loadField(f, recv)
		if err != nil {
			return false, err
		}
		m.push(v)

	case codegen.OpLoadStaticField:
		v, err := loadField(m.p.Fields[m.arg16()], nil)
		if err != nil {
			return false, err
		}
		m.push(v)

	case codegen.OpStoreField:
		f := m.p.Fields[m.arg16()]
		v, err := m.pop()
		if err != nil {
			return false, err
		}
		recv, err := m.receiver()
		if err != nil {
			return false, err
		}
		if err := storeField(f, recv, v); err != nil {
			return false, err
		}

	case codegen.OpStoreStaticField:
		f := m.p.Fields[m.arg16()]
		v, err := m.pop()
		if err != nil {
			return false, err
		}
		if err := storeField(f, nil, v); err != nil {
			return false, err
		}

	case codegen.OpGetProperty, codegen.OpGetStaticProperty:
		p := m.p.Properties[m.arg16()]
		index, err := m.popN(len(p.Params))
		if err != nil {
			return false, err
		}
		var recv any
		if op == codegen.OpGetProperty {
			if recv, err = m.receiver(); err != nil {
				return false, err
			}
		}
		if p.Get == nil {
			return false, errors.Errorf("property '%s' is write-only", p.Name)
		}
		v, err := p.Get(recv, index)
		if err != nil {
			return false, err
		}
		m.push(v)

	case codegen.OpSetProperty, codegen.OpSetStaticProperty:
		p := m.p.Properties[m.arg16()]
		v, err := m.pop()
		if err != nil {
			return false, err
		}
		index, err := m.popN(len(p.Params))
		if err != nil {
			return false, err
		}
		var recv any
		if op == codegen.OpSetProperty {
			if recv, err = m.receiver(); err != nil {
				return false, err
			}
		}
		if p.Set == nil {
			return false, errors.Errorf("property '%s' is read-only", p.Name)
		}
		if err := p.Set(recv, index, v); err != nil {
			return false, err
		}

	case codegen.OpCall, codegen.OpCallVirt:
		fn := m.p.Methods[m.arg16()]
		args, err := m.popN(len(fn.Params))
		if err != nil {
			return false, err
		}
		var recv any
		if op == codegen.OpCallVirt {
			if recv, err = m.receiver(); err != nil {
				return false, err
			}
		}
		res, err := fn.Fn(recv, args)
		if err != nil {
			return false, errors.Wrapf(err, "call to %s", fn)
		}
		if fn.ReturnsValue() {
			m.push(res)
		}

	case codegen.OpLoadElem:
		a, index, err := m.element(m.arg16())
		if err != nil {
			return false, err
		}
		v, err := a.Get(index...)
		if err != nil {
			return false, err
		}
		m.push(v)

	case codegen.OpStoreElem:
		rank := m.arg16()
		v, err := m.pop()
		if err != nil {
			return false, err
		}
		a, index, err := m.element(rank)
		if err != nil {
			return false, err
		}
		if err := a.Set(v, index...); err != nil {
			return false, err
		}

	case codegen.OpNewArray:
		elem := m.p.Types[m.arg16()]
		v, err := m.pop()
		if err != nil {
			return false, err
		}
		n, err := toIndex(v)
		if err != nil {
			return false, err
		}
		if n < 0 {
			return false, errors.Errorf("negative array length %d", n)
		}
		m.push(types.NewArray(elem, n))

	case codegen.OpLateGet:
		name := m.p.Names[m.arg16()]
		target, err := m.receiver()
		if err != nil {
			return false, err
		}
		v, err := lateGet(target, name)
		if err != nil {
			return false, err
		}
		m.push(v)

	case codegen.OpLateSet:
		name := m.p.Names[m.arg16()]
		v, err := m.pop()
		if err != nil {
			return false, err
		}
		target, err := m.receiver()
		if err != nil {
			return false, err
		}
		if err := lateSet(target, name, v); err != nil {
			return false, err
		}

	case codegen.OpLateCall:
		name := m.p.Names[m.arg16()]
		v, err := m.pop()
		if err != nil {
			return false, err
		}
		target, err := m.receiver()
		if err != nil {
			return false, err
		}
		args, ok := v.(*types.Array)
		if !ok {
			return false, errors.Errorf("late call arguments must be an array, found %s", types.TypeOf(v))
		}
		res, err := lateCall(target, name, args)
		if err != nil {
			return false, err
		}
		m.push(res)

	case codegen.OpAdd, codegen.OpSub, codegen.OpMul, codegen.OpDiv, codegen.OpRem, codegen.OpAnd, codegen.OpOr:
		b, a, err := m.pop2()
		if err != nil {
			return false, err
		}
		v, err := arithmetic(op, a, b)
		if err != nil {
			return false, err
		}
		m.push(v)

	case codegen.OpCeq:
		b, a, err := m.pop2()
		if err != nil {
			return false, err
		}
		m.push(equal(a, b))

	case codegen.OpCgt, codegen.OpClt:
		b, a, err := m.pop2()
		if err != nil {
			return false, err
		}
		c, err := compare(a, b)
		if err != nil {
			return false, err
		}
		if op == codegen.OpCgt {
			m.push(c > 0)
		} else {
			m.push(c < 0)
		}

	case codegen.OpNeg:
		v, err := m.pop()
		if err != nil {
			return false, err
		}
		r, err := negate(v)
		if err != nil {
			return false, err
		}
		m.push(r)

	case codegen.OpNot:
		v, err := m.pop()
		if err != nil {
			return false, err
		}
		b, ok := v.(bool)
		if !ok {
			return false, errors.Errorf("not a boolean value '%v' of type '%s'", v, types.TypeOf(v))
		}
		m.push(!b)

	case codegen.OpConv:
		k := types.Kind(m.arg16())
		v, err := m.pop()
		if err != nil {
			return false, err
		}
		r, err := types.Convert(deref(v), k)
		if err != nil {
			return false, err
		}
		m.push(r)

	case codegen.OpBox:
		m.arg16()

	case codegen.OpUnbox:
		t := m.p.Types[m.arg16()]
		v, err := m.pop()
		if err != nil {
			return false, err
		}
		if v == nil {
			return false, errors.Errorf("null reference cannot be converted to %s", t)
		}
		if types.TypeOf(v) != t {
			return false, errors.Errorf("invalid cast from %s to %s", types.TypeOf(v), t)
		}
		m.push(v)

	case codegen.OpCastClass:
		t := m.p.Types[m.arg16()]
		v, err := m.peek()
		if err != nil {
			return false, err
		}
		if v != nil && !t.IsAssignableFrom(types.TypeOf(v)) {
			return false, errors.Errorf("invalid cast from %s to %s", types.TypeOf(v), t)
		}

	case codegen.OpJump:
		m.ip = m.arg16()

	case codegen.OpJumpIfTrue, codegen.OpJumpIfFalse:
		pos := m.arg16()
		v, err := m.pop()
		if err != nil {
			return false, err
		}
		b, ok := v.(bool)
		if !ok {
			return false, errors.Errorf("not a boolean value '%v' of type '%s'", v, types.TypeOf(v))
		}
		if b == (op == codegen.OpJumpIfTrue) {
			m.ip = pos
		}

	case codegen.OpTry:
		finally := m.arg16()
		m.handlers = append(m.handlers, handler{start: m.ip, finally: finally})

	case codegen.OpLeave:
		m.leave(m.arg16())

	case codegen.OpEndFinally:
		return false, m.endFinally()

	case codegen.OpStateGet:
		t := m.p.Types[m.arg16()]
		name, state, err := m.stateRef()
		if err != nil {
			return false, err
		}
		if state == nil {
			m.push(types.Default(t))
			break
		}
		v, err := state.Value(name, t)
		if err != nil {
			return false, errors.Wrapf(err, "failed to load '%s'", name)
		}
		m.push(v)

	case codegen.OpStateSet:
		v, err := m.pop()
		if err != nil {
			return false, err
		}
		name, state, err := m.stateRef()
		if err != nil {
			return false, err
		}
		if state != nil {
			if err := state.SetValue(name, v); err != nil {
				return false, errors.Wrapf(err, "failed to store '%s'", name)
			}
		}

	case codegen.OpReturn:
		return true, nil

	default:
		return false, errors.Errorf("unknown code %#x", op)
	}
	return false, nil
}

func (m *machine) push(v any) {
	m.stack = append(m.stack, v)
}

func (m *machine) pop() (any, error) {
	if len(m.stack) == 0 {
		return nil, errors.New("empty stack")
	}
	value := m.stack[len(m.stack)-1]
	m.stack = m.stack[:len(m.stack)-1]
	return value, nil
}

// pop2 returns the top value and the one below it.
func (m *machine) pop2() (any, any, error) {
	b, err := m.pop()
	if err != nil {
		return nil, nil, err
	}
	a, err := m.pop()
	if err != nil {
		return nil, nil, err
	}
	return b, a, nil
}

// popN pops n values, returning them in push order.
func (m *machine) popN(n int) ([]any, error) {
	if len(m.stack) < n {
		return nil, errors.Errorf("stack holds %d values, %d required", len(m.stack), n)
	}
	out := make([]any, n)
	copy(out, m.stack[len(m.stack)-n:])
	m.stack = m.stack[:len(m.stack)-n]
	return out, nil
}

func (m *machine) peek() (any, error) {
	if len(m.stack) == 0 {
		return nil, errors.New("empty stack")
	}
	return m.stack[len(m.stack)-1], nil
}

// receiver pops the target of a member access.
func (m *machine) receiver() (any, error) {
	v, err := m.pop()
	if err != nil {
		return nil, err
	}
	v = deref(v)
	if v == nil {
		return nil, errors.New("null reference")
	}
	return v, nil
}

func (m *machine) element(rank int) (*types.Array, []int, error) {
	raw, err := m.popN(rank)
	if err != nil {
		return nil, nil, err
	}
	index := make([]int, rank)
	for i, v := range raw {
		if index[i], err = toIndex(v); err != nil {
			return nil, nil, err
		}
	}
	v, err := m.receiver()
	if err != nil {
		return nil, nil, err
	}
	a, ok := v.(*types.Array)
	if !ok {
		return nil, nil, errors.Errorf("value of type %s is not an array", types.TypeOf(v))
	}
	return a, index, nil
}

// stateRef pops the variable name and the state it belongs to. A nil state means nothing is bound.
func (m *machine) stateRef() (string, State, error) {
	v, err := m.pop()
	if err != nil {
		return "", nil, err
	}
	name, ok := v.(string)
	if !ok {
		return "", nil, errors.Errorf("invalid state key of type %s", types.TypeOf(v))
	}
	v, err = m.pop()
	if err != nil {
		return "", nil, err
	}
	if v == nil {
		return name, nil, nil
	}
	s, ok := v.(State)
	if !ok {
		return "", nil, errors.Errorf("value of type %T is not a script state", v)
	}
	return name, s, nil
}

func (m *machine) arg16() int {
	res := binary.BigEndian.Uint16(m.code[m.ip : m.ip+2])
	m.ip += 2
	return int(res)
}

func toIndex(v any) (int, error) {
	i, err := types.Convert(v, types.Int32)
	if err != nil {
		return 0, err
	}
	return int(i.(int32)), nil
}
