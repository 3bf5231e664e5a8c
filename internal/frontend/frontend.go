// Package frontend adapts a real, already-implemented front end — the
// standard library's own go/parser — into the upstream AST contract
// internal/ast defines. Lexing and parsing a language
// from scratch is out of scope; go/parser already does
// that job for a well-specified grammar, so nanoc's CLI reuses it
// rather than inventing a bespoke surface syntax, and this package is
// only the translation from go/ast's shape to internal/ast's.
//
// The accepted subset mirrors exactly what internal/cfg's lowering
// switch understands: top-level functions with scalar parameters, var
// declarations, assignment, if/else, for-as-while loops, break,
// continue, return, and arithmetic/relational/logical expressions over
// identifiers and integer literals. Any other statement or expression
// inside a function is reported as a CompileError rather than silently
// dropped; top-level declarations other than receiver-less functions
// (imports, types, package-level vars, methods) are skipped without an
// error.
package frontend

import (
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"strconv"

	nanocast "nanoc/internal/ast"
	"nanoc/internal/errors"
	"nanoc/internal/types"
)

// FunctionSource is one parsed top-level function, ready for
// internal/cfg.Build once its parameters are turned into oir.Variable
// slots by the caller.
type FunctionSource struct {
	Name       string
	Public     bool
	Params     []Param
	ReturnType *types.Type
	Body       *nanocast.Node
	Line       int
}

// Param is one function parameter's surface name and type.
type Param struct {
	Name string
	Type *types.Type
}

// CompilationUnit is every function definition found in one source
// file, in declaration order — the stack-like list of definitions
// the back end consumes.
type CompilationUnit struct {
	Functions []FunctionSource
}

var typeNames = map[string]types.Primitive{
	"int8": types.I8, "uint8": types.U8, "byte": types.U8,
	"int16": types.I16, "uint16": types.U16,
	"int32": types.I32, "uint32": types.U32, "rune": types.I32,
	"int64": types.I64, "uint64": types.U64,
	"int": types.I64, "uint": types.U64,
	"float32": types.Float32, "float64": types.Float64,
	"bool": types.Bool,
}

var binaryOps = map[token.Token]string{
	token.ADD: "+", token.SUB: "-", token.MUL: "*", token.QUO: "/", token.REM: "%",
	token.AND: "&", token.OR: "|", token.XOR: "^", token.SHL: "<<", token.SHR: ">>",
	token.LSS: "<", token.LEQ: "<=", token.GTR: ">", token.GEQ: ">=",
	token.EQL: "==", token.NEQ: "!=",
}

var logicalOps = map[token.Token]string{
	token.LAND: "&&", token.LOR: "||",
}

// ParseFile reads path, parses it as Go source with go/parser, and
// translates every top-level function into the upstream AST contract.
func ParseFile(path string) (*CompilationUnit, error) {
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, path, nil, parser.ParseComments)
	if err != nil {
		return nil, errors.NewSyntaxError(err.Error(), path, 0, 0)
	}

	t := &translator{fset: fset, file: path}
	var unit CompilationUnit
	for _, decl := range file.Decls {
		fn, ok := decl.(*ast.FuncDecl)
		if !ok || fn.Recv != nil {
			continue
		}
		src, err := t.translateFunc(fn)
		if err != nil {
			return nil, err
		}
		unit.Functions = append(unit.Functions, *src)
	}
	return &unit, nil
}

type translator struct {
	fset *token.FileSet
	file string
	b    nanocast.Builder
	env  map[string]*types.Type
}

func (t *translator) line(pos token.Pos) int {
	return t.fset.Position(pos).Line
}

func (t *translator) errf(pos token.Pos, format string, args ...any) error {
	return errors.NewCompileError(errors.SyntaxError, fmt.Sprintf(format, args...), t.file, t.line(pos), 0)
}

func (t *translator) resolveType(expr ast.Expr) (*types.Type, error) {
	ident, ok := expr.(*ast.Ident)
	if !ok {
		return nil, t.errf(expr.Pos(), "unsupported type expression %T", expr)
	}
	prim, ok := typeNames[ident.Name]
	if !ok {
		return nil, t.errf(expr.Pos(), "unsupported type %q", ident.Name)
	}
	return types.Basic(prim, false), nil
}

func (t *translator) translateFunc(fn *ast.FuncDecl) (*FunctionSource, error) {
	t.env = make(map[string]*types.Type)

	var params []Param
	if fn.Type.Params != nil {
		for _, field := range fn.Type.Params.List {
			ty, err := t.resolveType(field.Type)
			if err != nil {
				return nil, err
			}
			names := field.Names
			if len(names) == 0 {
				names = []*ast.Ident{{Name: "_"}}
			}
			for _, n := range names {
				params = append(params, Param{Name: n.Name, Type: ty})
				t.env[n.Name] = ty
			}
		}
	}

	var retType *types.Type
	if results := fn.Type.Results; results != nil && len(results.List) > 0 {
		ty, err := t.resolveType(results.List[0].Type)
		if err != nil {
			return nil, err
		}
		retType = ty
	} else {
		retType = types.Basic(types.Void, false)
	}

	body, err := t.translateBlock(fn.Body)
	if err != nil {
		return nil, err
	}

	return &FunctionSource{
		Name:       fn.Name.Name,
		Public:     fn.Name.IsExported(),
		Params:     params,
		ReturnType: retType,
		Body:       body,
		Line:       t.line(fn.Pos()),
	}, nil
}

func (t *translator) translateBlock(blk *ast.BlockStmt) (*nanocast.Node, error) {
	stmts := make([]*nanocast.Node, 0, len(blk.List))
	for _, s := range blk.List {
		n, err := t.translateStmt(s)
		if err != nil {
			return nil, err
		}
		if n != nil {
			stmts = append(stmts, n)
		}
	}
	return t.b.Block(t.line(blk.Pos()), stmts...), nil
}

func (t *translator) translateStmt(s ast.Stmt) (*nanocast.Node, error) {
	line := t.line(s.Pos())
	switch st := s.(type) {
	case *ast.DeclStmt:
		return t.translateGenDecl(st.Decl.(*ast.GenDecl))
	case *ast.AssignStmt:
		return t.translateAssign(st)
	case *ast.IfStmt:
		return t.translateIf(st)
	case *ast.ForStmt:
		return t.translateFor(st)
	case *ast.BranchStmt:
		switch st.Tok {
		case token.BREAK:
			return t.b.Break(line), nil
		case token.CONTINUE:
			return t.b.Continue(line), nil
		}
		return nil, t.errf(st.Pos(), "unsupported branch statement")
	case *ast.ReturnStmt:
		if len(st.Results) == 0 {
			return t.b.Return(nil, line), nil
		}
		v, err := t.translateExpr(st.Results[0])
		if err != nil {
			return nil, err
		}
		return t.b.Return(v, line), nil
	case *ast.BlockStmt:
		return t.translateBlock(st)
	case *ast.ExprStmt:
		return nil, t.errf(st.Pos(), "bare expression statements are not supported")
	default:
		return nil, t.errf(s.Pos(), "unsupported statement %T", s)
	}
}

func (t *translator) translateGenDecl(gd *ast.GenDecl) (*nanocast.Node, error) {
	if gd.Tok != token.VAR || len(gd.Specs) != 1 {
		return nil, t.errf(gd.Pos(), "only single-name var declarations are supported")
	}
	spec := gd.Specs[0].(*ast.ValueSpec)
	if len(spec.Names) != 1 {
		return nil, t.errf(gd.Pos(), "only single-name var declarations are supported")
	}
	name := spec.Names[0].Name
	ty, err := t.resolveType(spec.Type)
	if err != nil {
		return nil, err
	}
	t.env[name] = ty
	var value *nanocast.Node
	if len(spec.Values) == 1 {
		value, err = t.translateExprTyped(spec.Values[0], ty)
		if err != nil {
			return nil, err
		}
	}
	return t.b.Decl(name, ty, true, value, t.line(gd.Pos())), nil
}

func (t *translator) translateAssign(as *ast.AssignStmt) (*nanocast.Node, error) {
	if len(as.Lhs) != 1 || len(as.Rhs) != 1 {
		return nil, t.errf(as.Pos(), "only single-target assignment is supported")
	}
	ident, ok := as.Lhs[0].(*ast.Ident)
	if !ok {
		return nil, t.errf(as.Pos(), "assignment target must be a plain identifier")
	}
	line := t.line(as.Pos())
	if as.Tok == token.DEFINE {
		v, err := t.translateExpr(as.Rhs[0])
		if err != nil {
			return nil, err
		}
		ty := t.inferType(as.Rhs[0])
		t.env[ident.Name] = ty
		return t.b.Decl(ident.Name, ty, true, v, line), nil
	}
	ty, ok := t.env[ident.Name]
	if !ok {
		return nil, t.errf(as.Pos(), "assignment to undeclared name %q", ident.Name)
	}
	v, err := t.translateExprTyped(as.Rhs[0], ty)
	if err != nil {
		return nil, err
	}
	return t.b.Assign(ident.Name, v, line), nil
}

func (t *translator) translateIf(ifs *ast.IfStmt) (*nanocast.Node, error) {
	if ifs.Init != nil {
		return nil, t.errf(ifs.Pos(), "if statements with an init clause are not supported")
	}
	cond, err := t.translateExpr(ifs.Cond)
	if err != nil {
		return nil, err
	}
	then, err := t.translateBlock(ifs.Body)
	if err != nil {
		return nil, err
	}
	var els *nanocast.Node
	if ifs.Else != nil {
		els, err = t.translateStmt(ifs.Else)
		if err != nil {
			return nil, err
		}
	}
	return t.b.If(cond, then, els, t.line(ifs.Pos())), nil
}

// translateFor supports only the "for <cond> { ... }" shape (no
// init/post clause), which is exactly a while loop — the only looping
// construct internal/cfg's lowering switch implements.
func (t *translator) translateFor(fs *ast.ForStmt) (*nanocast.Node, error) {
	if fs.Init != nil || fs.Post != nil {
		return nil, t.errf(fs.Pos(), "for loops with an init or post clause are not supported, use a plain condition loop")
	}
	if fs.Cond == nil {
		return nil, t.errf(fs.Pos(), "infinite for loops are not supported")
	}
	cond, err := t.translateExpr(fs.Cond)
	if err != nil {
		return nil, err
	}
	body, err := t.translateBlock(fs.Body)
	if err != nil {
		return nil, err
	}
	return t.b.While(cond, body, t.line(fs.Pos())), nil
}

// inferType derives the type of a DEFINE-assigned expression by
// walking to its leftmost identifier or literal; good enough for the
// integer/float fixtures this loader targets.
func (t *translator) inferType(e ast.Expr) *types.Type {
	switch ex := e.(type) {
	case *ast.Ident:
		if ty, ok := t.env[ex.Name]; ok {
			return ty
		}
	case *ast.BinaryExpr:
		return t.inferType(ex.X)
	case *ast.BasicLit:
		if ex.Kind == token.FLOAT {
			return types.Basic(types.Float64, false)
		}
		return types.Basic(types.I32, false)
	}
	return types.Basic(types.I32, false)
}

func (t *translator) translateExpr(e ast.Expr) (*nanocast.Node, error) {
	return t.translateExprTyped(e, t.inferType(e))
}

func (t *translator) translateExprTyped(e ast.Expr, ty *types.Type) (*nanocast.Node, error) {
	line := t.line(e.Pos())
	switch ex := e.(type) {
	case *ast.ParenExpr:
		return t.translateExprTyped(ex.X, ty)
	case *ast.Ident:
		return t.b.Ident(ex.Name, line), nil
	case *ast.BasicLit:
		switch ex.Kind {
		case token.INT:
			n, err := strconv.ParseInt(ex.Value, 0, 64)
			if err != nil {
				return nil, t.errf(ex.Pos(), "malformed integer literal %q", ex.Value)
			}
			return t.b.IntConst(n, ty, line), nil
		case token.FLOAT:
			f, err := strconv.ParseFloat(ex.Value, 64)
			if err != nil {
				return nil, t.errf(ex.Pos(), "malformed float literal %q", ex.Value)
			}
			return t.b.FloatConst(f, ty, line), nil
		}
		return nil, t.errf(ex.Pos(), "unsupported literal kind")
	case *ast.UnaryExpr:
		operand, err := t.translateExprTyped(ex.X, ty)
		if err != nil {
			return nil, err
		}
		op := ex.Op.String()
		if op == "^" {
			op = "~"
		}
		return t.b.Unary(op, operand, ty, line), nil
	case *ast.BinaryExpr:
		if op, ok := logicalOps[ex.Op]; ok {
			left, err := t.translateExprTyped(ex.X, ty)
			if err != nil {
				return nil, err
			}
			right, err := t.translateExprTyped(ex.Y, ty)
			if err != nil {
				return nil, err
			}
			return t.b.Logical(op, left, right, line), nil
		}
		op, ok := binaryOps[ex.Op]
		if !ok {
			return nil, t.errf(ex.Pos(), "unsupported operator %s", ex.Op)
		}
		left, err := t.translateExprTyped(ex.X, ty)
		if err != nil {
			return nil, err
		}
		right, err := t.translateExprTyped(ex.Y, ty)
		if err != nil {
			return nil, err
		}
		return t.b.Binary(op, left, right, ty, line), nil
	default:
		return nil, t.errf(e.Pos(), "unsupported expression %T", e)
	}
}
