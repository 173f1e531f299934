package vm

import (
	"github.com/pkg/errors"

	"github.com/openvp/affe/pkg/types"
)

func loadField(f *types.Field, recv any) (any, error) {
	if f.Literal {
		return f.Value, nil
	}
	if f.Get == nil {
		return nil, errors.Errorf("field '%s' cannot be read", f.Name)
	}
	return f.Get(recv), nil
}

func storeField(f *types.Field, recv, v any) error {
	if !f.CanWrite() {
		return errors.Errorf("field '%s' is read-only", f.Name)
	}
	f.Set(recv, v)
	return nil
}

// lateMember resolves the single instance field or property named name on the runtime type of target.
func lateMember(target any, name string) (types.Member, error) {
	t := types.TypeOf(target)
	members := t.DataMembers(name, false)
	switch len(members) {
	case 0:
		return nil, errors.Errorf("member '%s' not found on %s", name, t)
	case 1:
		return members[0], nil
	default:
		return nil, errors.Errorf("member '%s' is ambiguous on %s", name, t)
	}
}

func lateGet(target any, name string) (any, error) {
	member, err := lateMember(target, name)
	if err != nil {
		return nil, err
	}
	switch mb := member.(type) {
	case *types.Field:
		return loadField(mb, target)
	case *types.Property:
		if !mb.CanRead() {
			return nil, errors.Errorf("property '%s' is write-only", name)
		}
		return mb.Get(target, nil)
	default:
		return nil, errors.Errorf("member '%s' is not a field or property", name)
	}
}

// lateSet stores v converted to the member type.
func lateSet(target any, name string, v any) error {
	member, err := lateMember(target, name)
	if err != nil {
		return err
	}
	v, err = types.Coerce(v, member.MemberType())
	if err != nil {
		return errors.Wrapf(err, "cannot set '%s'", name)
	}
	switch mb := member.(type) {
	case *types.Field:
		return storeField(mb, target, v)
	case *types.Property:
		if !mb.CanWrite() {
			return errors.Errorf("property '%s' is read-only", name)
		}
		return mb.Set(target, nil, v)
	default:
		return errors.Errorf("member '%s' is not a field or property", name)
	}
}

// lateCall selects the instance method named name by the runtime types of the arguments.
// The result of a void method is the null reference.
func lateCall(target any, name string, args *types.Array) (any, error) {
	t := types.TypeOf(target)
	in := make([]any, args.Len())
	for i := range in {
		v, err := args.Get(i)
		if err != nil {
			return nil, err
		}
		in[i] = v
	}
	fn, err := types.SelectMethod(t.Methods(name, false), types.ArgTypes(in))
	if err != nil {
		return nil, errors.Wrapf(err, "method '%s' on %s", name, t)
	}
	for i, p := range fn.Params {
		if in[i], err = types.Coerce(in[i], p); err != nil {
			return nil, errors.Wrapf(err, "argument %d of '%s'", i+1, name)
		}
	}
	res, err := fn.Fn(target, in)
	if err != nil {
		return nil, errors.Wrapf(err, "call to %s", fn)
	}
	if !fn.ReturnsValue() {
		return nil, nil
	}
	return res, nil
}
