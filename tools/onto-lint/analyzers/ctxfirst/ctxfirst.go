// Package ctxfirst detects exported functions whose context.Context
// parameter is not the first one.
package ctxfirst

import (
	"go/ast"
	"go/types"

	"golang.org/x/tools/go/analysis"
	"golang.org/x/tools/go/analysis/passes/inspect"
	"golang.org/x/tools/go/ast/inspector"
)

// Analyzer reports exported functions and methods that take a
// context.Context anywhere but first.
var Analyzer = &analysis.Analyzer{
	Name:     "ctxfirst",
	Doc:      "detects exported functions whose context.Context parameter is not first",
	Requires: []*analysis.Analyzer{inspect.Analyzer},
	Run:      run,
}

func run(pass *analysis.Pass) (any, error) {
	inspect := pass.ResultOf[inspect.Analyzer].(*inspector.Inspector)

	nodeFilter := []ast.Node{
		(*ast.FuncDecl)(nil),
	}

	inspect.Preorder(nodeFilter, func(n ast.Node) {
		fn := n.(*ast.FuncDecl)
		if !fn.Name.IsExported() || fn.Type.Params == nil {
			return
		}

		pos := 0
		for _, field := range fn.Type.Params.List {
			names := len(field.Names)
			if names == 0 {
				names = 1
			}
			if pos > 0 && isContext(pass.TypesInfo.TypeOf(field.Type)) {
				pass.Reportf(field.Pos(), "%s takes context.Context as parameter %d - it should be first", fn.Name.Name, pos+1)
				return
			}
			pos += names
		}
	})

	return nil, nil
}

func isContext(t types.Type) bool {
	named, ok := t.(*types.Named)
	if !ok {
		return false
	}
	obj := named.Obj()
	return obj.Pkg() != nil && obj.Pkg().Path() == "context" && obj.Name() == "Context"
}
