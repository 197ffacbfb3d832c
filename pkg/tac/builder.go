package tac

import "github.com/minic32/rv32cc/pkg/ast"

// BuildProgram lowers a fully resolved AST into TAC. Name resolution and
// type checking (pkg/sema) must already have run: every ast.Ident/CallExpr
// carries a non-nil Sym, and every global's initializer is a constant.
func BuildProgram(prog *ast.Program) *Program {
	funcLabels := make(map[string]*Label, len(prog.Functions))
	for _, f := range prog.Functions {
		funcLabels[f.Name] = &Label{Kind: LabelFuncEntry, Name: f.Name}
	}

	out := &Program{}
	for _, f := range prog.Functions {
		if f.Body == nil {
			continue
		}
		out.Functions = append(out.Functions, buildFunction(f, funcLabels))
	}
	for _, d := range prog.Declarations {
		out.Globals = append(out.Globals, buildGlobal(d))
	}
	return out
}

func buildGlobal(d *ast.VarDecl) *Global {
	g := &Global{Name: d.Name}
	if !d.IsArray() {
		if lit, ok := d.Init.(*ast.IntLit); ok {
			g.HasScalarInit = true
			g.ScalarInit = int32(lit.Value)
		}
		return g
	}
	words := d.Sym.ByteSize() / 4
	for _, e := range d.InitList {
		lit, _ := e.(*ast.IntLit)
		if lit != nil {
			g.ArrayWords = append(g.ArrayWords, int32(lit.Value))
		} else {
			g.ArrayWords = append(g.ArrayWords, 0)
		}
	}
	if words > len(g.ArrayWords) {
		g.ZeroWords = words - len(g.ArrayWords)
	}
	return g
}

// loopLabels records the targets break/continue jump to inside one
// enclosing loop.
type loopLabels struct {
	breakLabel    *Label
	continueLabel *Label
}

// funcBuilder accumulates one function's TAC, mirroring the teacher's
// mutable-state-visitor idiom (one instance per function, not reused).
type funcBuilder struct {
	fn         *Function
	funcLabels map[string]*Label
	nextTemp   Temp
	nextLabel  int
	loops      []loopLabels
}

func buildFunction(f *ast.FuncDecl, funcLabels map[string]*Label) *Function {
	b := &funcBuilder{
		fn:         &Function{Name: f.Name, EntryName: f.Name},
		funcLabels: funcLabels,
	}
	b.emitLabel(funcLabels[f.Name])
	for _, param := range f.Params {
		t := b.freshTemp()
		param.Sym.Temp = int(t)
		b.fn.Params = append(b.fn.Params, t)
	}
	b.buildBlock(f.Body)
	if !f.ReturnsValue {
		if n := len(b.fn.Instrs); n == 0 || b.fn.Instrs[n-1].Kind() != KindReturn {
			b.emit(&Return{})
		}
	}
	b.fn.NumTemps = int(b.nextTemp)
	return b.fn
}

func (b *funcBuilder) freshTemp() Temp {
	t := b.nextTemp
	b.nextTemp++
	return t
}

func (b *funcBuilder) freshLabel() *Label {
	b.nextLabel++
	return &Label{Kind: LabelBranchTarget, ID: b.nextLabel}
}

func (b *funcBuilder) emit(instr Instr) {
	b.fn.Instrs = append(b.fn.Instrs, instr)
}

func (b *funcBuilder) emitLabel(l *Label)            { b.emit(&Mark{Label: l}) }
func (b *funcBuilder) emitBranch(l *Label)            { b.emit(&Branch{Target: l}) }
func (b *funcBuilder) emitCondBranch(op CondOp, cond Temp, l *Label) {
	b.emit(&CondBranch{Op: op, Cond: cond, Target: l})
}

func (b *funcBuilder) emitLoad(value int) Temp {
	t := b.freshTemp()
	b.emit(&LoadImm{Dst: t, Value: int32(value)})
	return t
}

func (b *funcBuilder) emitLoadSymbol(name string) Temp {
	t := b.freshTemp()
	b.emit(&LoadSymbol{Dst: t, Symbol: name})
	return t
}

func (b *funcBuilder) emitLoadInMem(base Temp, offset int) Temp {
	t := b.freshTemp()
	b.emit(&Load{Dst: t, Base: base, Offset: offset})
	return t
}

func (b *funcBuilder) emitStoreInMem(src, base Temp, offset int) {
	b.emit(&Store{Src: src, Base: base, Offset: offset})
}

func (b *funcBuilder) emitAssign(dst, src Temp) Temp {
	b.emit(&Assign{Dst: dst, Src: src})
	return dst
}

func (b *funcBuilder) emitUnary(op UnaryOp, src Temp) Temp {
	t := b.freshTemp()
	b.emit(&Unary{Op: op, Dst: t, Src: src})
	return t
}

func (b *funcBuilder) emitBinary(op BinaryOp, lhs, rhs Temp) Temp {
	t := b.freshTemp()
	b.emit(&Binary{Op: op, Dst: t, Lhs: lhs, Rhs: rhs})
	return t
}

func (b *funcBuilder) emitAlloc(size int) Temp {
	t := b.freshTemp()
	b.emit(&Alloc{Dst: t, Size: size})
	return t
}

func (b *funcBuilder) emitParam(t Temp) {
	b.emit(&Param{Src: t})
}

func (b *funcBuilder) emitCall(target *Label, args []Temp) Temp {
	for _, a := range args {
		b.emitParam(a)
	}
	t := b.freshTemp()
	b.emit(&Call{Dst: t, HasDst: true, Target: target, Args: args})
	return t
}

func (b *funcBuilder) openLoop(breakLabel, continueLabel *Label) {
	b.loops = append(b.loops, loopLabels{breakLabel, continueLabel})
}

func (b *funcBuilder) closeLoop() {
	b.loops = b.loops[:len(b.loops)-1]
}

func (b *funcBuilder) currentLoop() loopLabels {
	return b.loops[len(b.loops)-1]
}

var binOpTable = map[ast.BinaryOp]BinaryOp{
	ast.Add: Add, ast.Sub: Sub, ast.Mul: Mul, ast.Div: Div, ast.Mod: Rem,
	ast.Eq: Equ, ast.Ne: Neq, ast.Lt: Slt, ast.Gt: Sgt, ast.Le: Leq, ast.Ge: Geq,
	ast.LogicAnd: And, ast.LogicOr: Or,
}

// buildBlock lowers a statement sequence.
func (b *funcBuilder) buildBlock(block *ast.Block) {
	for _, s := range block.Stmts {
		b.buildStmt(s)
	}
}

func (b *funcBuilder) buildStmt(s ast.Stmt) {
	switch st := s.(type) {
	case *ast.VarDecl:
		b.buildDeclaration(st)
	case *ast.Block:
		b.buildBlock(st)
	case *ast.IfStmt:
		b.buildIf(st)
	case *ast.WhileStmt:
		b.buildWhile(st)
	case *ast.DoWhileStmt:
		b.buildDoWhile(st)
	case *ast.ForStmt:
		b.buildFor(st)
	case *ast.BreakStmt:
		b.emitBranch(b.currentLoop().breakLabel)
	case *ast.ContinueStmt:
		b.emitBranch(b.currentLoop().continueLabel)
	case *ast.ReturnStmt:
		if st.Expr == nil {
			b.emit(&Return{})
			return
		}
		v := b.buildExpr(st.Expr)
		b.emit(&Return{Value: v, HasValue: true})
	case *ast.ExprStmt:
		b.buildExpr(st.X)
	case *ast.EmptyStmt:
		// no-op
	}
}

func (b *funcBuilder) buildDeclaration(decl *ast.VarDecl) {
	sym := decl.Sym
	if !decl.IsArray() {
		sym.Temp = int(b.freshTemp())
	} else {
		size := sym.ByteSize()
		sym.Temp = int(b.emitAlloc(size))
		offset := 0
		var zeroTemp Temp
		haveZero := false
		for _, e := range decl.InitList {
			lit := e.(*ast.IntLit)
			var v Temp
			if lit.Value == 0 {
				if !haveZero {
					zeroTemp = b.emitLoad(0)
					haveZero = true
				}
				v = zeroTemp
			} else {
				v = b.emitLoad(lit.Value)
			}
			b.emitStoreInMem(v, Temp(sym.Temp), offset)
			offset += 4
		}
	}
	if decl.Init != nil {
		v := b.buildExpr(decl.Init)
		b.emitAssign(Temp(sym.Temp), v)
	}
}

func (b *funcBuilder) buildIf(st *ast.IfStmt) {
	cond := b.buildExpr(st.Cond)
	if st.Else == nil {
		skip := b.freshLabel()
		b.emitCondBranch(BranchIfZero, cond, skip)
		b.buildStmt(st.Then)
		b.emitLabel(skip)
		return
	}
	skip := b.freshLabel()
	exit := b.freshLabel()
	b.emitCondBranch(BranchIfZero, cond, skip)
	b.buildStmt(st.Then)
	b.emitBranch(exit)
	b.emitLabel(skip)
	b.buildStmt(st.Else)
	b.emitLabel(exit)
}

func (b *funcBuilder) buildWhile(st *ast.WhileStmt) {
	begin := b.freshLabel()
	loop := b.freshLabel()
	brk := b.freshLabel()
	b.openLoop(brk, loop)

	b.emitLabel(begin)
	cond := b.buildExpr(st.Cond)
	b.emitCondBranch(BranchIfZero, cond, brk)
	b.buildStmt(st.Body)
	b.emitLabel(loop)
	b.emitBranch(begin)
	b.emitLabel(brk)
	b.closeLoop()
}

func (b *funcBuilder) buildDoWhile(st *ast.DoWhileStmt) {
	begin := b.freshLabel()
	loop := b.freshLabel()
	brk := b.freshLabel()
	b.openLoop(brk, loop)

	b.emitLabel(begin)
	b.buildStmt(st.Body)
	b.emitLabel(loop)
	cond := b.buildExpr(st.Cond)
	b.emitCondBranch(BranchIfZero, cond, brk)
	b.emitBranch(begin)
	b.emitLabel(brk)
	b.closeLoop()
}

func (b *funcBuilder) buildFor(st *ast.ForStmt) {
	begin := b.freshLabel()
	loop := b.freshLabel()
	brk := b.freshLabel()
	b.openLoop(brk, loop)

	if st.Init != nil {
		b.buildStmt(st.Init)
	}
	b.emitLabel(begin)
	if st.Cond != nil {
		cond := b.buildExpr(st.Cond)
		b.emitCondBranch(BranchIfZero, cond, brk)
	}
	b.buildStmt(st.Body)
	b.emitLabel(loop)
	if st.Update != nil {
		b.buildStmt(st.Update)
	}
	b.emitBranch(begin)
	b.emitLabel(brk)
	b.closeLoop()
}

// addressCompute lowers a (possibly multi-dimensional) index chain to the
// byte address of the indexed element, walking outermost-index-last as the
// AST nests IndexExpr{IndexExpr{a,i},j} for a[i][j].
func (b *funcBuilder) addressCompute(idx *ast.IndexExpr) Temp {
	expr := idx
	var indexes []Temp
	indexes = append(indexes, b.buildExpr(expr.Index))
	for {
		base, ok := expr.Base.(*ast.IndexExpr)
		if !ok {
			break
		}
		expr = base
		indexes = append(indexes, b.buildExpr(expr.Index))
	}
	arrayIdent := expr.Base.(*ast.Ident)
	sym := arrayIdent.Sym
	if sym.Kind == ast.SymGlobalArray {
		sym.Temp = int(b.emitLoadSymbol(sym.Name))
	}

	// lengths[0..n-1] = [1, dims[n-1], dims[n-2], ..., dims[1]], matching
	// indexes in innermost-first order. The outer bound dims[0] never
	// contributes to a stride, which is also why a parameter's leading
	// array bound may be elided.
	dims := sym.Dims
	lengths := make([]int, len(indexes))
	lengths[0] = 1
	for k := 1; k < len(indexes); k++ {
		lengths[k] = dims[len(dims)-k]
	}

	addr := Temp(sym.Temp)
	size := 4
	for k, index := range indexes {
		size *= lengths[k]
		sizeTemp := b.emitLoad(size)
		offset := b.emitBinary(Mul, index, sizeTemp)
		addr = b.emitBinary(Add, addr, offset)
	}
	return addr
}

func (b *funcBuilder) buildExpr(e ast.Expr) Temp {
	switch x := e.(type) {
	case *ast.IntLit:
		return b.emitLoad(x.Value)
	case *ast.Ident:
		sym := x.Sym
		if sym.Kind == ast.SymGlobalScalar {
			base := b.emitLoadSymbol(sym.Name)
			return b.emitLoadInMem(base, 0)
		}
		if sym.Kind == ast.SymGlobalArray {
			sym.Temp = int(b.emitLoadSymbol(sym.Name))
			return Temp(sym.Temp)
		}
		return Temp(sym.Temp)
	case *ast.IndexExpr:
		addr := b.addressCompute(x)
		return b.emitLoadInMem(addr, 0)
	case *ast.UnaryExpr:
		v := b.buildExpr(x.Operand)
		op := Neg
		switch x.Op {
		case ast.LogicNot:
			op = Seqz
		case ast.BitNot:
			op = Not
		}
		return b.emitUnary(op, v)
	case *ast.BinaryExpr:
		lhs := b.buildExpr(x.Lhs)
		rhs := b.buildExpr(x.Rhs)
		return b.emitBinary(binOpTable[x.Op], lhs, rhs)
	case *ast.AssignExpr:
		return b.buildAssign(x)
	case *ast.CondExpr:
		return b.buildCondExpr(x)
	case *ast.CallExpr:
		return b.buildCall(x)
	}
	return b.emitLoad(0)
}

func (b *funcBuilder) buildAssign(x *ast.AssignExpr) Temp {
	rhs := b.buildExpr(x.Rhs)
	if idx, ok := x.Lhs.(*ast.IndexExpr); ok {
		addr := b.addressCompute(idx)
		b.emitStoreInMem(rhs, addr, 0)
		return rhs
	}
	ident := x.Lhs.(*ast.Ident)
	sym := ident.Sym
	if sym.Kind == ast.SymGlobalScalar {
		base := b.emitLoadSymbol(sym.Name)
		b.emitStoreInMem(rhs, base, 0)
		return rhs
	}
	return b.emitAssign(Temp(sym.Temp), rhs)
}

func (b *funcBuilder) buildCondExpr(x *ast.CondExpr) Temp {
	cond := b.buildExpr(x.Cond)
	skip := b.freshLabel()
	exit := b.freshLabel()
	result := b.freshTemp()
	b.emitCondBranch(BranchIfZero, cond, skip)
	thenVal := b.buildExpr(x.Then)
	b.emitAssign(result, thenVal)
	b.emitBranch(exit)
	b.emitLabel(skip)
	elseVal := b.buildExpr(x.Else)
	b.emitAssign(result, elseVal)
	b.emitLabel(exit)
	return result
}

func (b *funcBuilder) buildCall(x *ast.CallExpr) Temp {
	args := make([]Temp, len(x.Args))
	for i, a := range x.Args {
		args[i] = b.buildExpr(a)
	}
	target := b.funcLabels[x.Name]
	return b.emitCall(target, args)
}
