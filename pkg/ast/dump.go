package ast

import (
	"fmt"
	"strings"
)

// Dump renders prog as an indented textual tree, for the --dparse debug
// flag. It is a plain recursive text dump rather than a
// dedicated visitor-based Printer type, since the debug flags only need a
// readable trace, not a re-parseable format.
func Dump(prog *Program) string {
	var b strings.Builder
	for _, d := range prog.Defs {
		dumpDef(&b, d, 0)
	}
	return b.String()
}

func indent(b *strings.Builder, depth int) {
	b.WriteString(strings.Repeat("  ", depth))
}

func dumpDef(b *strings.Builder, d Definition, depth int) {
	indent(b, depth)
	switch def := d.(type) {
	case *FuncDef:
		fmt.Fprintf(b, "func %s(", def.Name)
		for i, p := range def.Params {
			if i > 0 {
				b.WriteString(", ")
			}
			fmt.Fprintf(b, "%s: %s", p.Name, p.Type)
		}
		fmt.Fprintf(b, ") -> %s\n", def.Return)
		if def.Body != nil {
			dumpBlock(b, def.Body, depth+1)
		}
	case *StructDef:
		fmt.Fprintf(b, "struct %s {\n", def.Name)
		for _, f := range def.Fields {
			indent(b, depth+1)
			fmt.Fprintf(b, "%s: %s\n", f.Name, f.Type)
		}
		indent(b, depth)
		b.WriteString("}\n")
	case *EnumDef:
		fmt.Fprintf(b, "enum %s [%s] {\n", def.Name, def.Underlying)
		for _, v := range def.Variants {
			indent(b, depth+1)
			fmt.Fprintf(b, "%s = %d\n", v.Name, v.Value)
		}
		indent(b, depth)
		b.WriteString("}\n")
	case *GlobalDef:
		fmt.Fprintf(b, "global %s: %s\n", def.Name, def.Declared)
		if def.Init != nil {
			dumpExpr(b, def.Init, depth+1)
		}
	case *LoadDef:
		fmt.Fprintf(b, "load %q\n", def.Path)
	}
}

func dumpBlock(b *strings.Builder, blk *Block, depth int) {
	indent(b, depth)
	b.WriteString("{\n")
	for _, s := range blk.Stmts {
		dumpStmt(b, s, depth+1)
	}
	indent(b, depth)
	b.WriteString("}\n")
}

func dumpStmt(b *strings.Builder, s Stmt, depth int) {
	indent(b, depth)
	switch st := s.(type) {
	case *Block:
		b.WriteString("\n")
		dumpBlock(b, st, depth)
	case *LetStmt:
		fmt.Fprintf(b, "let %s: %s\n", st.Name, st.Declared)
		if st.Init != nil {
			dumpExpr(b, st.Init, depth+1)
		}
	case *RetStmt:
		b.WriteString("ret\n")
		if st.Value != nil {
			dumpExpr(b, st.Value, depth+1)
		}
	case *IfStmt:
		b.WriteString("if\n")
		dumpExpr(b, st.Cond, depth+1)
		dumpStmt(b, st.Then, depth+1)
		if st.Else != nil {
			indent(b, depth)
			b.WriteString("else\n")
			dumpStmt(b, st.Else, depth+1)
		}
	case *UntilStmt:
		b.WriteString("until\n")
		dumpExpr(b, st.Cond, depth+1)
		if st.Body != nil {
			dumpStmt(b, st.Body, depth+1)
		}
	case *StopStmt:
		b.WriteString("stop\n")
	case *RestartStmt:
		b.WriteString("restart\n")
	case *ExprStmt:
		b.WriteString("expr\n")
		dumpExpr(b, st.Expr, depth+1)
	}
}

func dumpExpr(b *strings.Builder, e Expr, depth int) {
	indent(b, depth)
	switch ex := e.(type) {
	case *IntLit:
		fmt.Fprintf(b, "int %d : %s\n", ex.Value, ex.Type())
	case *FloatLit:
		fmt.Fprintf(b, "float %g : %s\n", ex.Value, ex.Type())
	case *CharLit:
		fmt.Fprintf(b, "char %q : %s\n", ex.Value, ex.Type())
	case *StringLit:
		fmt.Fprintf(b, "string %q : %s\n", ex.Value, ex.Type())
	case *BoolLit:
		fmt.Fprintf(b, "bool %v : %s\n", ex.Value, ex.Type())
	case *NullLit:
		fmt.Fprintf(b, "null : %s\n", ex.Type())
	case *Ref:
		fmt.Fprintf(b, "ref %s : %s\n", ex.Name, ex.Type())
	case *Unary:
		fmt.Fprintf(b, "unary %s : %s\n", ex.Op, ex.Type())
		dumpExpr(b, ex.Operand, depth+1)
	case *Binary:
		fmt.Fprintf(b, "binary %s : %s\n", ex.Op, ex.Type())
		dumpExpr(b, ex.Left, depth+1)
		dumpExpr(b, ex.Right, depth+1)
	case *Cast:
		fmt.Fprintf(b, "cast(%v) -> %s\n", ex.Kind, ex.Type())
		dumpExpr(b, ex.Operand, depth+1)
	case *Subscript:
		fmt.Fprintf(b, "subscript : %s\n", ex.Type())
		dumpExpr(b, ex.Base, depth+1)
		dumpExpr(b, ex.Index, depth+1)
	case *FieldAccess:
		fmt.Fprintf(b, "field .%s : %s\n", ex.Name, ex.Type())
		dumpExpr(b, ex.Base, depth+1)
	case *Call:
		fmt.Fprintf(b, "call : %s\n", ex.Type())
		dumpExpr(b, ex.Callee, depth+1)
		for _, a := range ex.Args {
			dumpExpr(b, a, depth+1)
		}
	case *SizeofType:
		fmt.Fprintf(b, "sizeof(%s) : %s\n", ex.Arg, ex.Type())
	case *SizeofExpr:
		fmt.Fprintf(b, "sizeof(expr) : %s\n", ex.Type())
		dumpExpr(b, ex.Arg, depth+1)
	default:
		fmt.Fprintf(b, "%T\n", ex)
	}
}
