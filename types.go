package main

// PrimitiveType is a built-in value type. TypeUnknown only shows up in
// diagnostics; no well-formed AST node carries it.
type PrimitiveType string

const (
	TypeI8      PrimitiveType = "i8"
	TypeI16     PrimitiveType = "i16"
	TypeI32     PrimitiveType = "i32"
	TypeI64     PrimitiveType = "i64"
	TypeU8      PrimitiveType = "u8"
	TypeU16     PrimitiveType = "u16"
	TypeU32     PrimitiveType = "u32"
	TypeU64     PrimitiveType = "u64"
	TypeBool    PrimitiveType = "bool"
	TypeVoid    PrimitiveType = "void"
	TypeUnknown PrimitiveType = "unknown"
)

// PrimitiveTypeFromName resolves a type keyword spelling ("i8" .. "bool").
func PrimitiveTypeFromName(name string) (PrimitiveType, bool) {
	switch name {
	case "i8", "i16", "i32", "i64", "u8", "u16", "u32", "u64", "bool":
		return PrimitiveType(name), true
	default:
		return TypeUnknown, false
	}
}

// Size returns the width in bits. Void and Unknown have no width.
func (t PrimitiveType) Size() int {
	switch t {
	case TypeI8, TypeU8, TypeBool:
		return 8
	case TypeI16, TypeU16:
		return 16
	case TypeI32, TypeU32:
		return 32
	case TypeI64, TypeU64:
		return 64
	default:
		return 0
	}
}

func (t PrimitiveType) IsSigned() bool {
	switch t {
	case TypeI8, TypeI16, TypeI32, TypeI64:
		return true
	default:
		return false
	}
}

func (t PrimitiveType) IsUnsigned() bool {
	switch t {
	case TypeU8, TypeU16, TypeU32, TypeU64:
		return true
	default:
		return false
	}
}

// SignFlipped maps each integer type to its opposite-signedness twin.
// Needed once unary negation exists; the grammar doesn't produce it yet.
func (t PrimitiveType) SignFlipped() PrimitiveType {
	switch t {
	case TypeI8:
		return TypeU8
	case TypeI16:
		return TypeU16
	case TypeI32:
		return TypeU32
	case TypeI64:
		return TypeU64
	case TypeU8:
		return TypeI8
	case TypeU16:
		return TypeI16
	case TypeU32:
		return TypeI32
	case TypeU64:
		return TypeI64
	default:
		return t
	}
}

// CompatibleWith reports whether a value of type t can flow into dest.
// oneSided is the assignment/parameter-passing direction: dest must be
// strictly wider. Two-sided (binary operands) additionally rejects
// unsigned-into-signed and non-bool-into-bool, but allows any widths;
// equalizing widths is the caller's job.
func (t PrimitiveType) CompatibleWith(dest PrimitiveType, oneSided bool) bool {
	if t == dest {
		return true
	}

	if t == TypeBool && dest != TypeBool {
		return false
	}

	if t.IsSigned() && dest.IsUnsigned() {
		return false
	}

	if !oneSided {
		if t != TypeBool && dest == TypeBool {
			return false
		}

		if t.IsUnsigned() && dest.IsSigned() {
			return false
		}

		return true
	}

	return dest.Size() > t.Size()
}

// PrimitiveValue holds the raw bits of a literal. The bits only mean
// something next to a PrimitiveType tag; reinterpret at point of use.
type PrimitiveValue uint64

func (v PrimitiveValue) Uint64() uint64 {
	return uint64(v)
}

func (v PrimitiveValue) Int64() int64 {
	return int64(v)
}
