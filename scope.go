package main

import "fmt"

// SymbolKind distinguishes how a symbol's location is interpreted.
type SymbolKind string

const (
	SymbolVariable  SymbolKind = "variable"
	SymbolFunction  SymbolKind = "function"
	SymbolParameter SymbolKind = "parameter"
)

// Symbol is a named entity resolved during parsing. Variables carry a
// stack-frame byte offset, parameters a SysV integer-register ordinal,
// functions neither.
type Symbol struct {
	Name       string
	Type       PrimitiveType
	ParamTypes []PrimitiveType // functions only
	Kind       SymbolKind

	StackOffset int // SymbolVariable: byte displacement from the frame base
	ParamIndex  int // SymbolParameter: parameter-register ordinal
}

// Scope is one lexical scope: a name -> symbol map plus the running
// frame-offset counter for the variables declared in it.
type Scope struct {
	symbols    map[string]*Symbol
	lastOffset int
}

func NewScope() *Scope {
	return &Scope{symbols: map[string]*Symbol{}}
}

// Get returns the symbol bound to name in this scope only, or nil.
// Nested lookup is the parser's job; it walks its scope stack.
func (s *Scope) Get(name string) *Symbol {
	return s.symbols[name]
}

// Add declares a new symbol. Variables are laid out in declaration
// order: the offset counter advances by the type's byte size and the
// new cumulative value becomes the symbol's offset.
func (s *Scope) Add(name string, typ PrimitiveType, paramTypes []PrimitiveType, kind SymbolKind) (*Symbol, error) {
	if _, ok := s.symbols[name]; ok {
		return nil, fmt.Errorf("redeclaration of '%s'", name)
	}

	s.lastOffset += typ.Size() / 8

	sym := &Symbol{
		Name:        name,
		Type:        typ,
		ParamTypes:  paramTypes,
		Kind:        kind,
		StackOffset: s.lastOffset,
	}
	s.symbols[name] = sym
	return sym, nil
}

// AddParameter declares a function parameter, whose location is a
// register ordinal rather than a frame displacement.
func (s *Scope) AddParameter(name string, typ PrimitiveType, index int) (*Symbol, error) {
	if _, ok := s.symbols[name]; ok {
		return nil, fmt.Errorf("redeclaration of '%s'", name)
	}

	sym := &Symbol{
		Name:       name,
		Type:       typ,
		Kind:       SymbolParameter,
		ParamIndex: index,
	}
	s.symbols[name] = sym
	return sym, nil
}
