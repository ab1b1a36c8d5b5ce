package sat

// Kind identifies how a Constraint restricts its literals
type Kind int

const (
	// At least one literal holds
	KindClause Kind = iota
	// At most Bound literals hold
	KindAtMost
	// At least Bound literals hold
	KindAtLeast
	// Exactly Bound literals hold
	KindExactly
	// The number of literals that hold is one of Allowed
	KindDomain
)

// Constraint is a declarative restriction over literals. Constraints carry no auxiliary variables, so they can be produced
// concurrently and lowered into clauses afterwards by an Encoder
type Constraint struct {
	Kind     Kind
	Literals []int64
	Bound    int
	Allowed  []int
}

func Clause(literals ...int64) Constraint {
	return Constraint{Kind: KindClause, Literals: literals}
}

func Unit(literal int64) Constraint {
	return Constraint{Kind: KindClause, Literals: []int64{literal}}
}

func AtMost(literals []int64, bound int) Constraint {
	return Constraint{Kind: KindAtMost, Literals: literals, Bound: bound}
}

func AtLeast(literals []int64, bound int) Constraint {
	return Constraint{Kind: KindAtLeast, Literals: literals, Bound: bound}
}

func Exactly(literals []int64, bound int) Constraint {
	return Constraint{Kind: KindExactly, Literals: literals, Bound: bound}
}

func Domain(literals []int64, allowed []int) Constraint {
	return Constraint{Kind: KindDomain, Literals: literals, Allowed: allowed}
}

// Holds evaluates the constraint against a solution
func (constraint Constraint) Holds(solution SATSolution) bool {
	count := solution.Count(constraint.Literals)
	switch constraint.Kind {
	case KindClause:
		return count > 0
	case KindAtMost:
		return count <= constraint.Bound
	case KindAtLeast:
		return count >= constraint.Bound
	case KindExactly:
		return count == constraint.Bound
	case KindDomain:
		for _, value := range constraint.Allowed {
			if value == count {
				return true
			}
		}
		return false
	}
	return false
}
