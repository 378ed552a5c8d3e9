// Package analyzers provides all custom static analyzers for onto-core.
package analyzers

import (
	"golang.org/x/tools/go/analysis"

	"github.com/ersonp/onto-core/tools/onto-lint/analyzers/ctxfirst"
	"github.com/ersonp/onto-core/tools/onto-lint/analyzers/errwrap"
	"github.com/ersonp/onto-core/tools/onto-lint/analyzers/loopcall"
)

// All returns all analyzers to run.
func All() []*analysis.Analyzer {
	return []*analysis.Analyzer{
		ctxfirst.Analyzer,
		errwrap.Analyzer,
		loopcall.Analyzer,
	}
}
