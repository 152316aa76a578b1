package hades

import (
	"fmt"
	"strings"

	"github.com/lunagic/hades/hades/internal/sqlutil"
)

// Condition is one node of a filter tree: either a raw fragment built
// with Cond or a Group joining child conditions with AND, OR, or XOR.
type Condition interface {
	compile() (string, []any, error)
	validate() error
}

// Cond builds a leaf condition from a raw SQL fragment and its bound
// values. Each ? placeholder pairs positionally with one value, and a
// slice or array value expands to an inline (?, ?, ...) list at that
// spot. The placeholder scan is textual: a literal ? inside a quoted
// string in the fragment still counts as a placeholder and will throw
// the pairing off.
func Cond(fragment string, args ...any) Condition {
	return leaf{
		fragment: fragment,
		args:     args,
	}
}

type leaf struct {
	fragment string
	args     []any
}

func (condition leaf) compile() (string, []any, error) {
	return sqlutil.Prepare(condition.fragment, condition.args)
}

func (condition leaf) validate() error {
	_, _, err := sqlutil.Prepare(condition.fragment, condition.args)

	return err
}

const (
	combinatorAnd = "&&"
	combinatorOr  = "||"
	combinatorXor = "XOR"
)

// Group joins child conditions in order. Each child after the first
// carries the combinator linking it to the one before it, so a single
// group can mix the three operators the way they would read inline:
// Or(a, b).Xor(c) compiles to ( a || b XOR c ).
type Group struct {
	members []groupMember
}

type groupMember struct {
	combinator string
	condition  Condition
}

// And groups conditions joined by &&.
func And(conditions ...Condition) *Group {
	return newGroup(combinatorAnd, conditions)
}

// Or groups conditions joined by ||.
func Or(conditions ...Condition) *Group {
	return newGroup(combinatorOr, conditions)
}

// Xor groups conditions joined by XOR.
func Xor(conditions ...Condition) *Group {
	return newGroup(combinatorXor, conditions)
}

func newGroup(combinator string, conditions []Condition) *Group {
	group := &Group{}
	for _, condition := range conditions {
		group.members = append(group.members, groupMember{
			combinator: combinator,
			condition:  condition,
		})
	}

	return group
}

// And appends a condition joined to the previous one by &&.
func (group *Group) And(condition Condition) *Group {
	return group.push(combinatorAnd, condition)
}

// Or appends a condition joined to the previous one by ||.
func (group *Group) Or(condition Condition) *Group {
	return group.push(combinatorOr, condition)
}

// Xor appends a condition joined to the previous one by XOR.
func (group *Group) Xor(condition Condition) *Group {
	return group.push(combinatorXor, condition)
}

func (group *Group) push(combinator string, condition Condition) *Group {
	group.members = append(group.members, groupMember{
		combinator: combinator,
		condition:  condition,
	})

	return group
}

// compile renders the group as a single parenthesized expression. The
// first member's combinator never renders; every later member joins
// with its own.
func (group *Group) compile() (string, []any, error) {
	builder := strings.Builder{}
	builder.WriteString("(")

	args := []any{}
	for i, member := range group.members {
		if i > 0 {
			builder.WriteString(" " + member.combinator)
		}

		fragment, memberArgs, err := member.condition.compile()
		if err != nil {
			return "", nil, err
		}

		builder.WriteString(" " + fragment)
		args = append(args, memberArgs...)
	}

	builder.WriteString(" )")

	return builder.String(), args, nil
}

func (group *Group) validate() error {
	if group == nil || len(group.members) == 0 {
		return ErrEmptyConditionGroup
	}

	for _, member := range group.members {
		if member.condition == nil {
			return fmt.Errorf("nil condition in group")
		}

		if err := member.condition.validate(); err != nil {
			return err
		}
	}

	return nil
}
