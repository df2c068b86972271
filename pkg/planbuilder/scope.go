package planbuilder

import (
	"fmt"
	"strings"

	"github.com/tesseradb/tessera/pkg/plan"
)

// relation is one named relation visible to column resolution.
type relation struct {
	qualifier string
	symbols   []plan.Symbol
}

// scope is the set of relations a clause can reference, in FROM order.
type scope struct {
	relations []relation
}

func (s *scope) addRelation(qualifier string, symbols []plan.Symbol) error {
	if s.relation(qualifier) != nil {
		return fmt.Errorf("not unique table/alias: %q", qualifier)
	}
	s.relations = append(s.relations, relation{qualifier: qualifier, symbols: symbols})
	return nil
}

// merge combines two scopes into a new one, rejecting duplicate qualifiers.
func (s *scope) merge(other *scope) (*scope, error) {
	merged := &scope{relations: make([]relation, 0, len(s.relations)+len(other.relations))}
	merged.relations = append(merged.relations, s.relations...)
	for _, rel := range other.relations {
		if err := merged.addRelation(rel.qualifier, rel.symbols); err != nil {
			return nil, err
		}
	}
	return merged, nil
}

// relation returns the relation with the given qualifier, or nil.
func (s *scope) relation(qualifier string) *relation {
	for i := range s.relations {
		if s.relations[i].qualifier == qualifier {
			return &s.relations[i]
		}
	}
	return nil
}

// contains reports whether sym is produced by any relation in scope.
func (s *scope) contains(sym plan.Symbol) bool {
	for _, rel := range s.relations {
		for _, candidate := range rel.symbols {
			if candidate == sym {
				return true
			}
		}
	}
	return false
}

// resolve maps a column reference to its symbol. Qualified names
// ("u.city_id") bind against the named relation; bare names must match
// exactly one relation's column.
func (s *scope) resolve(name string) (plan.Symbol, error) {
	if idx := strings.LastIndex(name, "."); idx >= 0 {
		qualifier, column := name[:idx], name[idx+1:]
		rel := s.relation(qualifier)
		if rel == nil {
			return "", fmt.Errorf("table %q does not exist in FROM clause", qualifier)
		}
		want := plan.Symbol(qualifier + "." + column)
		for _, sym := range rel.symbols {
			if sym == want {
				return sym, nil
			}
		}
		return "", fmt.Errorf("column %q does not exist in table %q", column, qualifier)
	}

	var found plan.Symbol
	matches := 0
	suffix := "." + name
	for _, rel := range s.relations {
		for _, sym := range rel.symbols {
			if strings.HasSuffix(string(sym), suffix) {
				found = sym
				matches++
			}
		}
	}
	switch matches {
	case 0:
		return "", fmt.Errorf("column %q does not exist", name)
	case 1:
		return found, nil
	default:
		return "", fmt.Errorf("column reference %q is ambiguous", name)
	}
}
