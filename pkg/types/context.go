package types

import "fmt"

// Context interns every type object created while compiling one translation
// unit. After interning, pointer equality of two *entries implies type
// equality — but Array/Pointer/Function/Alias are still compared
// structurally via TypeEqual, since their element types may themselves be
// freshly-constructed (not yet re-interned) values.
type Context struct {
	scalars map[scalarKey]Type
	ptrs    map[string]Type
	arrays  map[string]Type
	fns     map[string]Type
	structs map[string]*Struct
	enums   map[string]*Enum
	aliases map[string]*Alias
}

type scalarKey struct {
	kind  string
	width int
	sign  bool
}

// NewContext creates an empty interning context for one translation unit.
func NewContext() *Context {
	return &Context{
		scalars: make(map[scalarKey]Type),
		ptrs:    make(map[string]Type),
		arrays:  make(map[string]Type),
		fns:     make(map[string]Type),
		structs: make(map[string]*Struct),
		enums:   make(map[string]*Enum),
		aliases: make(map[string]*Alias),
	}
}

func (c *Context) intern(key scalarKey, build func() Type) Type {
	if t, ok := c.scalars[key]; ok {
		return t
	}
	t := build()
	c.scalars[key] = t
	return t
}

func (c *Context) Void() Type { return c.intern(scalarKey{kind: "void"}, func() Type { return Void{} }) }
func (c *Context) Bool() Type { return c.intern(scalarKey{kind: "bool"}, func() Type { return Bool{} }) }
func (c *Context) Char() Type { return c.intern(scalarKey{kind: "char"}, func() Type { return Char{} }) }

func (c *Context) Int(w IntWidth) Type {
	return c.intern(scalarKey{kind: "int", width: int(w)}, func() Type { return Int{Width: w} })
}

func (c *Context) UInt(w IntWidth) Type {
	return c.intern(scalarKey{kind: "uint", width: int(w)}, func() Type { return UInt{Width: w} })
}

func (c *Context) Float(w FloatWidth) Type {
	return c.intern(scalarKey{kind: "float", width: int(w)}, func() Type { return Float{Width: w} })
}

func (c *Context) Pointer(pointee QualType) Type {
	key := fmt.Sprintf("*%p:%s:%d", pointee.Type, pointee.Type.String(), pointee.Quals)
	if t, ok := c.ptrs[key]; ok {
		return t
	}
	t := Pointer{Pointee: pointee}
	c.ptrs[key] = t
	return t
}

func (c *Context) Array(elem QualType, length uint32) Type {
	key := fmt.Sprintf("[%s;%d]", elem.Type.String(), length)
	if t, ok := c.arrays[key]; ok {
		return t
	}
	t := Array{Elem: elem, Length: length}
	c.arrays[key] = t
	return t
}

func (c *Context) Function(ret QualType, params []QualType) Type {
	key := ret.Type.String()
	for _, p := range params {
		key += "," + p.Type.String()
	}
	if t, ok := c.fns[key]; ok {
		return t
	}
	t := Function{Return: ret, Params: params}
	c.fns[key] = t
	return t
}

// DeclareStruct registers an empty struct under name. Symbol analysis calls
// it for every struct definition before resolving any Deferred type, which
// is what makes forward references to the struct resolvable.
// Returns an error if name is already bound to a Struct/Enum/Alias.
func (c *Context) DeclareStruct(name string) (*Struct, error) {
	if err := c.checkFresh(name); err != nil {
		return nil, err
	}
	s := &Struct{Name: name}
	c.structs[name] = s
	return s, nil
}

func (c *Context) DeclareEnum(name string, underlying Type) (*Enum, error) {
	if err := c.checkFresh(name); err != nil {
		return nil, err
	}
	e := &Enum{Name: name, Underlying: underlying}
	c.enums[name] = e
	return e, nil
}

func (c *Context) DeclareAlias(name string, underlying QualType) (*Alias, error) {
	if err := c.checkFresh(name); err != nil {
		return nil, err
	}
	a := &Alias{Name: name, Underlying: underlying}
	c.aliases[name] = a
	return a, nil
}

func (c *Context) checkFresh(name string) error {
	if _, ok := c.structs[name]; ok {
		return fmt.Errorf("type %q already defined", name)
	}
	if _, ok := c.enums[name]; ok {
		return fmt.Errorf("type %q already defined", name)
	}
	if _, ok := c.aliases[name]; ok {
		return fmt.Errorf("type %q already defined", name)
	}
	return nil
}

// Lookup resolves a named type definition (struct, enum, or alias) for
// Deferred-type resolution. Returns (nil, false) if unbound.
func (c *Context) Lookup(name string) (Type, bool) {
	if s, ok := c.structs[name]; ok {
		return s, true
	}
	if e, ok := c.enums[name]; ok {
		return e, true
	}
	if a, ok := c.aliases[name]; ok {
		return a, true
	}
	return nil, false
}

// LookupStruct returns the live *Struct for name, for callers (field-access
// resolution) that need the pointer rather than the boxed Type interface.
func (c *Context) LookupStruct(name string) (*Struct, bool) {
	s, ok := c.structs[name]
	return s, ok
}

// LookupEnum returns the live *Enum for name, for callers that need variant
// lookup rather than the boxed Type interface.
func (c *Context) LookupEnum(name string) (*Enum, bool) {
	e, ok := c.enums[name]
	return e, ok
}
