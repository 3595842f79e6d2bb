// Package fsm holds the transition table shared by the activity and registration machines.
package fsm

import (
	"fmt"
	"sort"

	"github.com/Nguyentram30/Real-time-student-activity-management-CI-CD-Pipeline-sub000/internal/shared/apperr"
)

type key[S, A comparable] struct {
	from   S
	action A
}

// Table maps (state, action) to the next state. A missing entry rejects the move.
type Table[S, A comparable] struct {
	name  string
	moves map[key[S, A]]S
}

func New[S, A comparable](name string) *Table[S, A] {
	return &Table[S, A]{name: name, moves: map[key[S, A]]S{}}
}

// Allow registers action from every listed source state into to.
func (t *Table[S, A]) Allow(action A, to S, from ...S) *Table[S, A] {
	for _, f := range from {
		t.moves[key[S, A]{from: f, action: action}] = to
	}
	return t
}

// Next returns the target state or an IllegalTransition error.
func (t *Table[S, A]) Next(from S, action A) (S, error) {
	to, ok := t.moves[key[S, A]{from: from, action: action}]
	if !ok {
		var zero S
		return zero, apperr.IllegalTransition(fmt.Sprintf("%s: cannot %v from %v", t.name, action, from))
	}
	return to, nil
}

func (t *Table[S, A]) Can(from S, action A) bool {
	_, ok := t.moves[key[S, A]{from: from, action: action}]
	return ok
}

// Sources lists the states from which action is legal, in a stable order.
// It feeds the "status = ANY(...)" guard of conditional updates.
func (t *Table[S, A]) Sources(action A) []S {
	var out []S
	for k := range t.moves {
		if k.action == action {
			out = append(out, k.from)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return fmt.Sprint(out[i]) < fmt.Sprint(out[j])
	})
	return out
}
