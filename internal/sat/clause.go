package sat

import (
	"strings"

	"github.com/cortexplan/lcp/internal/domain"
)

// status bits for a clause, grounded on the bitfield variant the teacher
// kept alongside its simpler boolean-fields Clause (top-level sat/clauses.go
// in the retrieval pack): a single byte beats three bools for a structure
// that is allocated by the million during search.
type status uint8

const (
	statusLearnt    status = 0b001
	statusProtected status = 0b010
)

// Clause is an ordered sequence of boolean-variable literals with two
// designated watches at positions 0 and 1 (spec.md §3). Every literal here
// is one of domain.TrueLit(v)/domain.FalseLit(v) for some boolean variable
// v; the chronicle encoder and expr.Interner are responsible for reifying
// anything non-boolean before it reaches the SAT engine.
type Clause struct {
	activity float64
	lbd      int // literal block distance; ReduceDB ranks learnt clauses by activity, not by lbd
	literals []domain.Literal
	mask     status
}

// Literals returns the clause's literals. Callers must not modify the
// returned slice.
func (c *Clause) Literals() []domain.Literal { return c.literals }

func (c *Clause) learnt() bool    { return c.mask&statusLearnt != 0 }
func (c *Clause) protected() bool { return c.mask&statusProtected != 0 }
func (c *Clause) setProtected()   { c.mask |= statusProtected }
func (c *Clause) clearProtected() { c.mask &^= statusProtected }

func newClause(literals []domain.Literal, learnt bool) *Clause {
	c := &Clause{literals: append([]domain.Literal{}, literals...)}
	if learnt {
		c.mask |= statusLearnt
	}
	return c
}

func (c *Clause) String() string {
	if len(c.literals) == 0 {
		return "Clause[]"
	}
	var sb strings.Builder
	sb.WriteString("Clause[")
	for i, l := range c.literals {
		if i > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(l.String())
	}
	sb.WriteByte(']')
	return sb.String()
}
