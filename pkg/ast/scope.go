package ast

import "github.com/bpetrakis/lacec/pkg/types"

// BindingKind distinguishes what a name resolves to, so a reference to a
// type used as a value (or vice versa) is rejected by symbol analysis.
type BindingKind int

const (
	BindValue BindingKind = iota
	BindType
	BindVariant
)

// Binding is what a Scope maps a name to.
type Binding struct {
	Kind BindingKind
	Name string

	// Value bindings (BindValue): the defining node, one of
	// *FuncDef, *GlobalDef, or *LetStmt. A parameter binding leaves Def
	// nil and sets Param instead.
	Def Definition
	Param *Param

	// Type bindings (BindType): the interned type.
	Type types.Type

	// Variant bindings (BindVariant): which enum and which named value.
	Enum        *EnumDef
	VariantName string
}

// Scope is a node in the lexical-scope tree. The tree is built by the
// parser and outlives the AST nodes that reference it; the Program owns
// the root scope.
type Scope struct {
	Parent *Scope
	Names  map[string]*Binding
}

// NewScope creates a child scope of parent (parent may be nil for the root).
func NewScope(parent *Scope) *Scope {
	return &Scope{Parent: parent, Names: make(map[string]*Binding)}
}

// Declare binds name in s. Returns false if name is already bound in this
// scope (duplicate names within one scope are a parse-time fatal error);
// shadowing an outer scope's binding is allowed.
func (s *Scope) Declare(b *Binding) bool {
	if _, exists := s.Names[b.Name]; exists {
		return false
	}
	s.Names[b.Name] = b
	return true
}

// Lookup walks the scope chain from s outward and returns the first
// binding found for name.
func (s *Scope) Lookup(name string) (*Binding, bool) {
	for cur := s; cur != nil; cur = cur.Parent {
		if b, ok := cur.Names[name]; ok {
			return b, true
		}
	}
	return nil, false
}
