package codegen

import (
	"fmt"

	"github.com/valyala/bytebufferpool"

	"github.com/openvp/affe/pkg/types"
)

// Disassemble renders a listing of the program, one instruction per line.
func Disassemble(p *Program) string {
	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)

	for i, l := range p.Locals {
		_, _ = fmt.Fprintf(buf, ".local %d %s\n", i, l.Name())
	}
	for pos := 0; pos < len(p.Code); pos += Size(p.Code[pos]) {
		op := p.Code[pos]
		if Size(op) == 1 || pos+3 > len(p.Code) {
			_, _ = fmt.Fprintf(buf, "%04d %s\n", pos, OpName(op))
			continue
		}
		_, _ = fmt.Fprintf(buf, "%04d %-10s %s\n", pos, OpName(op), operandText(p, op, p.Arg16(pos)))
	}
	return buf.String()
}

func operandText(p *Program, op byte, arg int) string {
	switch opcodes[op].operand {
	case constOperand:
		if arg < len(p.Constants) {
			if s, ok := p.Constants[arg].(string); ok {
				return fmt.Sprintf("%q", s)
			}
			return fmt.Sprintf("%v (%s)", p.Constants[arg], types.TypeOf(p.Constants[arg]))
		}
	case localOperand:
		if arg < len(p.Locals) {
			return fmt.Sprintf("%d (%s)", arg, p.Locals[arg].Name())
		}
	case fieldOperand:
		if arg < len(p.Fields) {
			return p.Fields[arg].Name
		}
	case propertyOperand:
		if arg < len(p.Properties) {
			return p.Properties[arg].Name
		}
	case methodOperand:
		if arg < len(p.Methods) {
			return p.Methods[arg].String()
		}
	case nameOperand:
		if arg < len(p.Names) {
			return p.Names[arg]
		}
	case typeOperand:
		if arg < len(p.Types) {
			return p.Types[arg].Name()
		}
	case kindOperand:
		return types.Kind(arg).String()
	case rankOperand:
		return fmt.Sprintf("%d", arg)
	case positionOperand:
		return fmt.Sprintf("%04d", arg)
	}
	return fmt.Sprintf("#%d", arg)
}
