package symtab

import (
	"nanoc/internal/oir"
	"nanoc/internal/types"
)

// MacroRecord is the symbol-table entry for a preprocessor macro. The
// macro's own expansion is a front-end concern (out of scope
// here); the backend only needs to know a name was claimed, and
// at what line, for the unused-macro-adjacent diagnostics symmetry.
type MacroRecord struct {
	Name string
	Line int
}

// FunctionTable is the single global-scope function symbol table.
type FunctionTable struct {
	table *bucketArray[oir.Function]
}

// NewFunctionTable returns an empty function table.
func NewFunctionTable() *FunctionTable {
	return &FunctionTable{table: newBucketArray[oir.Function](FunctionKeyspace)}
}

// Declare inserts fn under its name.
func (t *FunctionTable) Declare(fn *oir.Function) {
	t.table.Insert(fn.Name, FNV1a64(fn.Name), fn)
}

// Lookup finds a function by name.
func (t *FunctionTable) Lookup(name string) (*oir.Function, bool) {
	return t.table.Lookup(name, FNV1a64(name))
}

// Each visits every declared function.
func (t *FunctionTable) Each(fn func(*oir.Function)) {
	t.table.Each(func(_ string, f *oir.Function) { fn(f) })
}

// variableSheaf is one scope level of the variable table.
type variableSheaf struct {
	table *bucketArray[oir.Variable]
}

// VariableTable is a stack of scoped sheafs, innermost last.
type VariableTable struct {
	sheafs []*variableSheaf
}

// NewVariableTable returns a variable table with its single top-level
// (global) scope already pushed.
func NewVariableTable() *VariableTable {
	vt := &VariableTable{}
	vt.InitializeScope()
	return vt
}

// InitializeScope pushes a fresh sheaf.
func (t *VariableTable) InitializeScope() {
	t.sheafs = append(t.sheafs, &variableSheaf{table: newBucketArray[oir.Variable](VariableKeyspace)})
}

// FinalizeScope pops the innermost sheaf. Panics if called with no
// scope pushed beyond the mandatory global one.
func (t *VariableTable) FinalizeScope() {
	if len(t.sheafs) <= 1 {
		panic("symtab: FinalizeScope called with no local scope to pop")
	}
	t.sheafs = t.sheafs[:len(t.sheafs)-1]
}

// Depth reports how many scopes (including global) are pushed.
func (t *VariableTable) Depth() int { return len(t.sheafs) }

// Declare inserts v into the innermost scope.
func (t *VariableTable) Declare(v *oir.Variable) {
	innermost := t.sheafs[len(t.sheafs)-1]
	innermost.table.Insert(v.Name, FNV1a64(v.Name), v)
}

// Lookup walks from the innermost scope outward to the global scope.
func (t *VariableTable) Lookup(name string) (*oir.Variable, bool) {
	h := FNV1a64(name)
	for i := len(t.sheafs) - 1; i >= 0; i-- {
		if v, ok := t.sheafs[i].table.Lookup(name, h); ok {
			return v, true
		}
	}
	return nil, false
}

// LookupLocal only consults the innermost scope, without walking
// outward.
func (t *VariableTable) LookupLocal(name string) (*oir.Variable, bool) {
	return t.sheafs[len(t.sheafs)-1].table.Lookup(name, FNV1a64(name))
}

// typeSheaf is one scope level of the type table.
type typeSheaf struct {
	table *bucketArray[types.Type]
}

// TypeTable is a stack of scoped sheafs for named types.
type TypeTable struct {
	sheafs []*typeSheaf
}

// NewTypeTable returns a type table with its global scope pushed.
func NewTypeTable() *TypeTable {
	tt := &TypeTable{}
	tt.InitializeScope()
	return tt
}

// InitializeScope pushes a fresh sheaf.
func (t *TypeTable) InitializeScope() {
	t.sheafs = append(t.sheafs, &typeSheaf{table: newBucketArray[types.Type](TypeKeyspace)})
}

// FinalizeScope pops the innermost sheaf.
func (t *TypeTable) FinalizeScope() {
	if len(t.sheafs) <= 1 {
		panic("symtab: FinalizeScope called with no local scope to pop")
	}
	t.sheafs = t.sheafs[:len(t.sheafs)-1]
}

// Declare inserts ty under name in the innermost scope, hashing in
// mutability (and member count for arrays).
func (t *TypeTable) Declare(name string, ty *types.Type) {
	h := hashForType(name, ty)
	innermost := t.sheafs[len(t.sheafs)-1]
	innermost.table.Insert(name, h, ty)
}

// Lookup walks from the innermost scope outward.
func (t *TypeTable) Lookup(name string, mutable bool, arrayMemberCount int) (*types.Type, bool) {
	h := hashForNameMutability(name, mutable, arrayMemberCount)
	for i := len(t.sheafs) - 1; i >= 0; i-- {
		if ty, ok := t.sheafs[i].table.Lookup(name, h); ok {
			return ty, true
		}
	}
	return nil, false
}

func hashForType(name string, ty *types.Type) uint64 {
	if ty.Kind == types.KindArray {
		return ArrayTypeHash(name, len(ty.Members), ty.Mutable)
	}
	return TypeHash(name, ty.Mutable)
}

func hashForNameMutability(name string, mutable bool, arrayMemberCount int) uint64 {
	if arrayMemberCount > 0 {
		return ArrayTypeHash(name, arrayMemberCount, mutable)
	}
	return TypeHash(name, mutable)
}

// MacroTable is the single global-scope macro table.
type MacroTable struct {
	table *bucketArray[MacroRecord]
}

// NewMacroTable returns an empty macro table.
func NewMacroTable() *MacroTable {
	return &MacroTable{table: newBucketArray[MacroRecord](MacroKeyspace)}
}

// Declare records a macro definition.
func (t *MacroTable) Declare(rec *MacroRecord) {
	t.table.Insert(rec.Name, FNV1a64(rec.Name), rec)
}

// Lookup finds a macro by name.
func (t *MacroTable) Lookup(name string) (*MacroRecord, bool) {
	return t.table.Lookup(name, FNV1a64(name))
}
