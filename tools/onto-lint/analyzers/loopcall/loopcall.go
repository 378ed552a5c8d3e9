// Package loopcall detects per-item embedding and vector index calls inside loops.
package loopcall

import (
	"go/ast"

	"golang.org/x/tools/go/analysis"
	"golang.org/x/tools/go/analysis/passes/inspect"
	"golang.org/x/tools/go/ast/inspector"
)

// Analyzer detects embedder and vector index calls inside loops that should
// go through the batch form.
var Analyzer = &analysis.Analyzer{
	Name:     "loopcall",
	Doc:      "detects embedder and vector index calls inside loops that should be batched",
	Requires: []*analysis.Analyzer{inspect.Analyzer},
	Run:      run,
}

// batchHints maps a per-item method to the advice reported for it.
var batchHints = map[string]string{
	"Embed":  "use EmbedBatch",
	"Upsert": "collect the vectors and upsert once",
	"Search": "search once outside the loop",
}

func run(pass *analysis.Pass) (any, error) {
	inspect := pass.ResultOf[inspect.Analyzer].(*inspector.Inspector)

	nodeFilter := []ast.Node{
		(*ast.RangeStmt)(nil),
		(*ast.ForStmt)(nil),
	}

	inspect.Preorder(nodeFilter, func(n ast.Node) {
		var body *ast.BlockStmt
		switch stmt := n.(type) {
		case *ast.RangeStmt:
			body = stmt.Body
		case *ast.ForStmt:
			body = stmt.Body
		}
		if body == nil {
			return
		}

		ast.Inspect(body, func(n ast.Node) bool {
			// Nested loops are visited on their own.
			switch n.(type) {
			case *ast.RangeStmt, *ast.ForStmt, *ast.FuncLit:
				return false
			}

			call, ok := n.(*ast.CallExpr)
			if !ok {
				return true
			}
			sel, ok := call.Fun.(*ast.SelectorExpr)
			if !ok {
				return true
			}

			if hint, ok := batchHints[sel.Sel.Name]; ok {
				pass.Reportf(call.Pos(), "potential N+1: %s called inside loop - %s", sel.Sel.Name, hint)
			}
			return true
		})
	})

	return nil, nil
}
