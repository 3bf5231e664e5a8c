// Package types implements the compiler's type sum: primitives,
// pointers, references, arrays, structs ("constructs"), enumerations,
// and function pointers, plus the size/alignment/signedness/
// assignability queries the rest of the backend needs from a type.
package types

import "fmt"

// Kind discriminates the Type sum.
type Kind int

const (
	KindBasic Kind = iota
	KindPointer
	KindReference
	KindArray
	KindConstruct
	KindEnumerated
	KindFunctionPointer
)

// Primitive is the scalar tag carried by a Basic type.
type Primitive int

const (
	I8 Primitive = iota
	U8
	I16
	U16
	I32
	U32
	I64
	U64
	Char
	Float32
	Float64
	Bool
	Void
)

var primitiveSizes = map[Primitive]int{
	I8: 1, U8: 1, Char: 1, Bool: 1,
	I16: 2, U16: 2,
	I32: 4, U32: 4, Float32: 4,
	I64: 8, U64: 8, Float64: 8,
	Void: 0,
}

var primitiveSigned = map[Primitive]bool{
	I8: true, I16: true, I32: true, I64: true, Char: true,
	U8: false, U16: false, U32: false, U64: false, Bool: false,
	Float32: true, Float64: true,
}

// Member is one named slot of a Construct (struct) or Enumerated type,
// in declaration order.
type Member struct {
	Name string
	Type *Type
}

// Param is one function-pointer parameter.
type Param struct {
	Name string
	Type *Type
}

// Type is a tagged sum over every type shape the compiler handles.
// Exactly the fields for
// Kind are meaningful; the rest are zero. Two Types with identical
// shape but different Mutable are distinct for hashing/lookup — see
// symtab's per-type hashing — but are compatible for most operations
// through Assignable.
type Type struct {
	Kind    Kind
	Mutable bool

	// Basic
	Prim Primitive

	// Pointer / Array element, Reference target
	Elem *Type

	// Array
	Count int

	// Construct / Enumerated
	Members []Member

	// FunctionPointer
	Public    bool
	Inline    bool
	Params    []Param
	Return    *Type
}

// Basic constructs a Basic type.
func Basic(p Primitive, mutable bool) *Type {
	return &Type{Kind: KindBasic, Prim: p, Mutable: mutable}
}

// PointerTo constructs a Pointer type.
func PointerTo(elem *Type, mutable bool) *Type {
	return &Type{Kind: KindPointer, Elem: elem, Mutable: mutable}
}

// ReferenceTo constructs a Reference type.
func ReferenceTo(target *Type) *Type {
	return &Type{Kind: KindReference, Elem: target}
}

// ArrayOf constructs an Array type.
func ArrayOf(elem *Type, count int, mutable bool) *Type {
	return &Type{Kind: KindArray, Elem: elem, Count: count, Mutable: mutable}
}

// ConstructOf builds a struct-like Construct type from ordered members.
func ConstructOf(members []Member, mutable bool) *Type {
	return &Type{Kind: KindConstruct, Members: members, Mutable: mutable}
}

// EnumeratedOf builds an enum-like type from ordered named constants.
func EnumeratedOf(members []Member) *Type {
	return &Type{Kind: KindEnumerated, Members: members}
}

// FunctionPointerOf builds a function-pointer signature type.
func FunctionPointerOf(public, inline bool, params []Param, ret *Type, mutable bool) *Type {
	return &Type{
		Kind:    KindFunctionPointer,
		Public:  public,
		Inline:  inline,
		Params:  params,
		Return:  ret,
		Mutable: mutable,
	}
}

// Size returns the type's size in bytes.
func (t *Type) Size() int {
	switch t.Kind {
	case KindBasic:
		return primitiveSizes[t.Prim]
	case KindPointer, KindReference, KindFunctionPointer:
		return 8
	case KindArray:
		return t.Elem.Size() * t.Count
	case KindConstruct:
		total := 0
		for _, m := range t.Members {
			total += align(total, m.Type.Alignment()) - total
			total += m.Type.Size()
		}
		return align(total, t.Alignment())
	case KindEnumerated:
		return 4
	}
	return 0
}

// Alignment returns the type's natural alignment in bytes.
func (t *Type) Alignment() int {
	switch t.Kind {
	case KindBasic:
		return primitiveSizes[t.Prim]
	case KindPointer, KindReference, KindFunctionPointer:
		return 8
	case KindArray:
		return t.Elem.Alignment()
	case KindConstruct:
		best := 1
		for _, m := range t.Members {
			if a := m.Type.Alignment(); a > best {
				best = a
			}
		}
		return best
	case KindEnumerated:
		return 4
	}
	return 1
}

func align(offset, alignment int) int {
	if alignment <= 1 {
		return offset
	}
	rem := offset % alignment
	if rem == 0 {
		return offset
	}
	return offset + (alignment - rem)
}

// IsSigned reports whether the type is a signed Basic type: the
// signed integers, char, and the two floating-point primitives report
// true; unsigned integers, bool, void, and every non-Basic type report
// false.
func (t *Type) IsSigned() bool {
	if t.Kind != KindBasic {
		return false
	}
	return primitiveSigned[t.Prim]
}

// IsAddressCalcCompatible reports whether a value of this type may
// participate directly in an x86-64 effective-address computation
// (base, index, or offset). Only 32- or 64-bit-wide integral types
// qualify; narrower operands must be widened first.
func (t *Type) IsAddressCalcCompatible() bool {
	if t.Kind == KindPointer || t.Kind == KindReference {
		return true
	}
	if t.Kind != KindBasic {
		return false
	}
	switch t.Prim {
	case I32, U32, I64, U64:
		return true
	}
	return false
}

// IsExpandingMoveRequired reports whether moving a value of type src
// into a location of type dst needs a sign- or zero-extending move,
// i.e. dst is wider than src.
func IsExpandingMoveRequired(dst, src *Type) bool {
	return dst.Size() > src.Size()
}

// sameShape compares two types' structural shape, ignoring
// mutability, used by Assignable to find the dominating type.
func sameShape(a, b *Type) bool {
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case KindBasic:
		return a.Prim == b.Prim
	case KindPointer, KindReference, KindArray:
		if a.Kind == KindArray && a.Count != b.Count {
			return false
		}
		return sameShape(a.Elem, b.Elem)
	case KindConstruct, KindEnumerated:
		if len(a.Members) != len(b.Members) {
			return false
		}
		for i := range a.Members {
			if a.Members[i].Name != b.Members[i].Name || !sameShape(a.Members[i].Type, b.Members[i].Type) {
				return false
			}
		}
		return true
	case KindFunctionPointer:
		if len(a.Params) != len(b.Params) {
			return false
		}
		for i := range a.Params {
			if !sameShape(a.Params[i].Type, b.Params[i].Type) {
				return false
			}
		}
		return sameShape(a.Return, b.Return)
	}
	return false
}

// Assignable returns the dominating type of lhs and rhs, or nil if no
// type dominates. Two shapes that match exactly dominate trivially.
// A pointer-to-mutable dominates (is assignable to) a pointer-to its
// immutable counterpart, making pointer-to-mutable a strict subtype
// of pointer-to-immutable.
func Assignable(lhs, rhs *Type) *Type {
	if lhs == nil || rhs == nil {
		return nil
	}
	if !sameShape(lhs, rhs) {
		return nil
	}
	switch {
	case lhs.Mutable == rhs.Mutable:
		return lhs
	case lhs.Kind == KindPointer && !lhs.Mutable && rhs.Mutable:
		// pointer-to-mutable rhs may flow into pointer-to-immutable lhs
		return lhs
	case rhs.Kind == KindPointer && !rhs.Mutable && lhs.Mutable:
		return rhs
	default:
		return lhs
	}
}

// String renders a Type for debug output and error messages.
func (t *Type) String() string {
	if t == nil {
		return "<nil type>"
	}
	switch t.Kind {
	case KindBasic:
		return primName(t.Prim)
	case KindPointer:
		return fmt.Sprintf("*%s%s", mutTag(t.Mutable), t.Elem.String())
	case KindReference:
		return fmt.Sprintf("&%s", t.Elem.String())
	case KindArray:
		return fmt.Sprintf("[%d]%s", t.Count, t.Elem.String())
	case KindConstruct:
		return fmt.Sprintf("struct{%d members}", len(t.Members))
	case KindEnumerated:
		return fmt.Sprintf("enum{%d members}", len(t.Members))
	case KindFunctionPointer:
		return fmt.Sprintf("fn(%d params) %s", len(t.Params), t.Return.String())
	}
	return "<invalid type>"
}

func mutTag(mutable bool) string {
	if mutable {
		return "mut "
	}
	return ""
}

func primName(p Primitive) string {
	switch p {
	case I8:
		return "i8"
	case U8:
		return "u8"
	case I16:
		return "i16"
	case U16:
		return "u16"
	case I32:
		return "i32"
	case U32:
		return "u32"
	case I64:
		return "i64"
	case U64:
		return "u64"
	case Char:
		return "char"
	case Float32:
		return "f32"
	case Float64:
		return "f64"
	case Bool:
		return "bool"
	case Void:
		return "void"
	}
	return "?"
}
