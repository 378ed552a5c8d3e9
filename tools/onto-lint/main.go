// onto-lint is a custom static analyzer for onto-core conventions.
package main

import (
	"golang.org/x/tools/go/analysis/multichecker"

	"github.com/ersonp/onto-core/tools/onto-lint/analyzers"
)

func main() {
	multichecker.Main(analyzers.All()...)
}
