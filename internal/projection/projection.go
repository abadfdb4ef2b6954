// Package projection provides JMESPath-based reshaping of fetched data.
//
// Expressions are compiled once, when the owning data source is constructed,
// and reused for every fetch. A syntactically invalid expression is rejected
// at compile time so that no data source with a broken projection can exist.
package projection

import (
	"fmt"

	"github.com/jmespath/go-jmespath"
)

// Projector applies a compiled JMESPath expression to raw structured data.
type Projector struct {
	expr     string
	compiled *jmespath.JMESPath
}

// Compile parses the given JMESPath expression and returns a reusable
// Projector. It fails if the expression does not parse under the JMESPath
// grammar.
func Compile(expr string) (*Projector, error) {
	compiled, err := jmespath.Compile(expr)
	if err != nil {
		return nil, fmt.Errorf("invalid JMESPath expression %q: %w", expr, err)
	}

	return &Projector{
		expr:     expr,
		compiled: compiled,
	}, nil
}

// Expression returns the source expression string.
func (p *Projector) Expression() string {
	return p.expr
}

// Apply evaluates the expression against raw data (nested maps, slices and
// scalars as produced by encoding/json or the database drivers) and returns
// the selected subset. A projection that matches nothing yields nil.
func (p *Projector) Apply(data any) (any, error) {
	result, err := p.compiled.Search(data)
	if err != nil {
		return nil, fmt.Errorf("projection %q failed: %w", p.expr, err)
	}
	return result, nil
}
