package symbols

import (
	"github.com/elliotchance/orderedmap/v2"
	"github.com/pkg/errors"
)

// Table maps names to symbols in declaration order.
type Table struct {
	m *orderedmap.OrderedMap[string, Symbol]
}

func NewTable() *Table {
	return &Table{m: orderedmap.NewOrderedMap[string, Symbol]()}
}

// Add declares s. Names are unique within a table.
func (t *Table) Add(s Symbol) error {
	if _, ok := t.m.Get(s.Name()); ok {
		return errors.Errorf("symbol '%s' is already declared", s.Name())
	}
	t.m.Set(s.Name(), s)
	return nil
}

func (t *Table) Lookup(name string) (Symbol, bool) {
	return t.m.Get(name)
}

func (t *Table) Len() int {
	return t.m.Len()
}

// Symbols returns the symbols in declaration order.
func (t *Table) Symbols() []Symbol {
	out := make([]Symbol, 0, t.m.Len())
	for el := t.m.Front(); el != nil; el = el.Next() {
		out = append(out, el.Value)
	}
	return out
}

// Copy returns a table with every symbol except variables.
func (t *Table) Copy() *Table {
	c := NewTable()
	for el := t.m.Front(); el != nil; el = el.Next() {
		if _, ok := el.Value.(*Variable); ok {
			continue
		}
		c.m.Set(el.Key, el.Value)
	}
	return c
}

// Stack is the chain of lexical scopes. The first table is the global one.
type Stack struct {
	tables []*Table
}

func NewStack(global *Table) *Stack {
	return &Stack{tables: []*Table{global}}
}

func (s *Stack) Push(t *Table) {
	s.tables = append(s.tables, t)
}

// Pop removes the innermost table. The global table is never removed.
func (s *Stack) Pop() (*Table, error) {
	if len(s.tables) <= 1 {
		return nil, errors.New("scope stack underflow")
	}
	t := s.tables[len(s.tables)-1]
	s.tables = s.tables[:len(s.tables)-1]
	return t, nil
}

// Lookup searches from the innermost table outwards.
func (s *Stack) Lookup(name string) (Symbol, bool) {
	for i := len(s.tables) - 1; i >= 0; i-- {
		if sym, ok := s.tables[i].Lookup(name); ok {
			return sym, true
		}
	}
	return nil, false
}

// Declare adds sym to the innermost table.
func (s *Stack) Declare(sym Symbol) error {
	return s.tables[len(s.tables)-1].Add(sym)
}

func (s *Stack) Global() *Table {
	return s.tables[0]
}

func (s *Stack) Depth() int {
	return len(s.tables)
}
