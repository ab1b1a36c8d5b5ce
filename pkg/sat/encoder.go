package sat

import (
	"slices"

	"github.com/samber/lo"
)

// pairwiseThreshold is the largest at-most-one constraint encoded with binary clauses instead of a sequential counter
const pairwiseThreshold = 6

// Encoder lowers declarative constraints into the clauses of a SAT instance, allocating auxiliary variables after the
// ones already present in it
type Encoder struct {
	sat *SAT
}

func NewEncoder(variables uint64) *Encoder {
	return &Encoder{
		sat: &SAT{
			Variables: variables,
			Clauses:   [][]int64{},
		},
	}
}

// SAT returns the instance built so far. The encoder keeps appending to it, so solvers that support incremental solving
// only need to load the new clauses
func (encoder *Encoder) SAT() *SAT {
	return encoder.sat
}

// Fresh allocates a new auxiliary variable
func (encoder *Encoder) Fresh() int64 {
	encoder.sat.Variables++
	return int64(encoder.sat.Variables)
}

func (encoder *Encoder) AddClause(literals ...int64) {
	encoder.sat.Clauses = append(encoder.sat.Clauses, slices.Clone(literals))
}

func (encoder *Encoder) Add(constraint Constraint) {
	switch constraint.Kind {
	case KindClause:
		encoder.AddClause(constraint.Literals...)
	case KindAtMost:
		encoder.atMost(constraint.Literals, constraint.Bound)
	case KindAtLeast:
		encoder.atLeast(constraint.Literals, constraint.Bound)
	case KindExactly:
		encoder.exactly(constraint.Literals, constraint.Bound)
	case KindDomain:
		encoder.domain(constraint.Literals, constraint.Allowed)
	}
}

func (encoder *Encoder) atMost(literals []int64, bound int) {
	n := len(literals)
	switch {
	case bound >= n:
		return
	case bound < 0:
		encoder.AddClause() // Unsatisfiable
		return
	case bound == 0:
		for _, literal := range literals {
			encoder.AddClause(-literal)
		}
		return
	case bound == 1 && n <= pairwiseThreshold:
		for i := range n - 1 {
			for j := i + 1; j < n; j++ {
				encoder.AddClause(-literals[i], -literals[j])
			}
		}
		return
	}

	// Sequential counter: registers[i][j] holds whenever more than j of the first i+1 literals hold
	registers := make([][]int64, n-1)
	for i := range registers {
		registers[i] = make([]int64, bound)
		for j := range bound {
			registers[i][j] = encoder.Fresh()
		}
	}

	encoder.AddClause(-literals[0], registers[0][0])
	for j := 1; j < bound; j++ {
		encoder.AddClause(-registers[0][j])
	}
	for i := 1; i < n-1; i++ {
		encoder.AddClause(-literals[i], registers[i][0])
		encoder.AddClause(-registers[i-1][0], registers[i][0])
		for j := 1; j < bound; j++ {
			encoder.AddClause(-literals[i], -registers[i-1][j-1], registers[i][j])
			encoder.AddClause(-registers[i-1][j], registers[i][j])
		}
		encoder.AddClause(-literals[i], -registers[i-1][bound-1])
	}
	encoder.AddClause(-literals[n-1], -registers[n-2][bound-1])
}

func (encoder *Encoder) atLeast(literals []int64, bound int) {
	n := len(literals)
	switch {
	case bound <= 0:
		return
	case bound > n:
		encoder.AddClause() // Unsatisfiable
	case bound == 1:
		encoder.AddClause(literals...)
	case bound == n:
		for _, literal := range literals {
			encoder.AddClause(literal)
		}
	default:
		outputs := encoder.Counter(literals, bound)
		encoder.AddClause(outputs[bound-1])
	}
}

func (encoder *Encoder) exactly(literals []int64, bound int) {
	n := len(literals)
	if bound <= 0 || bound >= n || (bound == 1 && n <= pairwiseThreshold) {
		encoder.atMost(literals, bound)
		encoder.atLeast(literals, bound)
		return
	}
	outputs := encoder.Counter(literals, bound+1)
	encoder.AddClause(outputs[bound-1])
	encoder.AddClause(-outputs[bound])
}

func (encoder *Encoder) domain(literals []int64, allowed []int) {
	n := len(literals)
	permitted := make([]bool, n+1)
	maxAllowed := -1
	for _, value := range allowed {
		if value < 0 || value > n {
			continue
		}
		permitted[value] = true
		maxAllowed = max(maxAllowed, value)
	}
	if maxAllowed < 0 {
		encoder.AddClause() // No reachable value is allowed
		return
	}

	// Values above maxAllowed are cut with a single clause, so the counter only has to reach the gaps below it
	lastGap := -1
	for value := range maxAllowed {
		if !permitted[value] {
			lastGap = value
		}
	}
	limit := lastGap + 1
	if maxAllowed < n {
		limit = max(limit, maxAllowed+1)
	}
	if limit == 0 {
		return
	}

	outputs := encoder.Counter(literals, limit)
	if maxAllowed < n {
		encoder.AddClause(-outputs[maxAllowed])
	}
	for value := 0; value <= lastGap; value++ {
		if permitted[value] {
			continue
		}
		// Forbid "count == value", i.e. (count >= value) and not (count >= value+1)
		if value == 0 {
			encoder.AddClause(outputs[0])
		} else {
			encoder.AddClause(-outputs[value-1], outputs[value])
		}
	}
}

// Counter builds a unary counter over the literals and returns its outputs: outputs[j] holds if and only if at least
// j+1 of the literals hold. Only the first limit outputs are built
func (encoder *Encoder) Counter(literals []int64, limit int) []int64 {
	limit = min(limit, len(literals))
	if limit <= 0 {
		return nil
	}

	// A zero entry stands for the constant false: the first i+1 literals cannot reach j+1 when j > i
	previous := make([]int64, limit)
	for i, literal := range literals {
		current := make([]int64, limit)
		for j := 0; j < limit && j <= i; j++ {
			register := encoder.Fresh()
			current[j] = register
			above := previous[j] // at least j+1 among the first i literals

			// register <= above or (literal and at least j among the first i literals)
			if above != 0 {
				encoder.AddClause(-above, register)
			}
			if j == 0 {
				encoder.AddClause(-literal, register)
			} else {
				encoder.AddClause(-literal, -previous[j-1], register)
			}

			// register => above or literal, register => above or at least j among the first i literals
			encoder.AddClause(withoutFalse(-register, above, literal)...)
			if j > 0 {
				encoder.AddClause(withoutFalse(-register, above, previous[j-1])...)
			}
		}
		previous = current
	}

	return previous
}

func withoutFalse(literals ...int64) []int64 {
	return lo.Filter(literals, func(literal int64, _ int) bool { return literal != 0 })
}
