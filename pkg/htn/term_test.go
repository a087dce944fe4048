package htn

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Symbols shared by the tests of this package.
const (
	symAt = iota
	symR1
	symR2
	symRoom
	symLit
	symVal
	symA
	symB
	symC
	symMove
	symCount
)

type names []string

func (n names) ConstantName(id int) string {
	if id < len(n) {
		return n[id]
	}
	return ""
}

var testNames = names{"at", "r1", "r2", "room", "lit", "val", "a", "b", "c", "move"}

func TestFindUnifierSoundness(t *testing.T) {
	tests := []struct {
		name     string
		template Term
		ground   Term
		vars     int
		wantOK   bool
	}{
		{"variable", Var(0), Const(symA), 1, true},
		{"constant match", Const(symA), Const(symA), 0, true},
		{"constant mismatch", Const(symA), Const(symB), 0, false},
		{"number", Number(3), Number(3), 0, true},
		{"number vs constant", Number(3), Const(symA), 0, false},
		{"list", NewList(Var(0), Const(symB)), NewList(Const(symA), Const(symB)), 1, true},
		{"list length mismatch", NewList(Var(0)), NewList(Const(symA), Const(symB)), 1, false},
		{"repeated variable", NewList(Var(0), Var(0)), NewList(Const(symA), Const(symA)), 1, true},
		{"repeated variable conflict", NewList(Var(0), Var(0)), NewList(Const(symA), Const(symB)), 1, false},
		{"dotted tail", List{Items: []Term{Var(0)}, Tail: Var(1)}, NewList(Const(symA), Const(symB), Const(symC)), 2, true},
		{"dotted tail empty rest", List{Items: []Term{Var(0)}, Tail: Var(1)}, NewList(Const(symA)), 2, true},
		{"nested list", NewList(NewList(Var(0)), Number(1)), NewList(NewList(Number(2)), Number(1)), 1, true},
		{"nil vs list", Nil, NewList(Const(symA)), 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := NewBinding(tt.vars)
			ok := tt.template.FindUnifier(tt.ground, b)
			require.Equal(t, tt.wantOK, ok)
			if ok {
				assert.True(t, tt.template.Bind(b).Equal(tt.ground),
					"%s bound by %s should equal %s", tt.template, b, tt.ground)
			}
		})
	}
}

func TestFindUnifierBoundVariable(t *testing.T) {
	b := NewBinding(1)
	b[0] = Const(symA)
	assert.True(t, Var(0).FindUnifier(Const(symA), b))
	assert.False(t, Var(0).FindUnifier(Const(symB), b))
}

func TestFindUnifierVariableChains(t *testing.T) {
	b := NewBinding(2)
	require.True(t, Var(0).FindUnifier(Var(1), b))
	require.True(t, Var(1).FindUnifier(Var(0), b), "the reverse pair is already unified")
	assert.Nil(t, b[1], "no cycle is recorded")

	require.True(t, Var(0).FindUnifier(Number(3), b))
	assert.Equal(t, Number(3), Var(0).Bind(b))
	assert.Equal(t, Number(3), Var(1).Bind(b))
	assert.False(t, Var(1).FindUnifier(Number(4), b))
}

func TestVariableNeverEqual(t *testing.T) {
	assert.False(t, Var(0).Equal(Var(0)))
	assert.False(t, NewList(Var(0)).Equal(NewList(Var(0))))
	assert.True(t, NewList(Const(symA)).Equal(NewList(Const(symA))))
}

func TestBindLeavesUnboundVariables(t *testing.T) {
	b := NewBinding(2)
	b[1] = Number(7)
	got := NewList(Var(0), Var(1)).Bind(b)
	l := got.(List)
	assert.Equal(t, Var(0), l.Items[0])
	assert.Equal(t, Number(7), l.Items[1])
	assert.False(t, got.IsGround())
}

func TestBindSplicesListTail(t *testing.T) {
	b := NewBinding(1)
	b[0] = NewList(Const(symB), Const(symC))
	got := List{Items: []Term{Const(symA)}, Tail: Var(0)}.Bind(b)
	assert.True(t, got.Equal(NewList(Const(symA), Const(symB), Const(symC))))
	assert.Equal(t, "(a b c)", FormatTerm(got, testNames))
}

func TestCallCollapsesWhenGround(t *testing.T) {
	c := NewCall("plus", StdPlus, Var(0), Number(2))
	assert.False(t, c.IsGround())

	partial := c.Bind(NewBinding(1))
	_, stillCall := partial.(Call)
	assert.True(t, stillCall)

	b := NewBinding(1)
	b[0] = Number(3)
	assert.Equal(t, Number(5), c.Bind(b))
}

func TestCallUnregisteredPanics(t *testing.T) {
	fn := NewRegistry().Resolve("missing")
	c := NewCall("missing", fn, Number(1))
	defer func() {
		r := recover()
		require.NotNil(t, r)
		err, ok := r.(*NativeError)
		require.True(t, ok)
		assert.ErrorIs(t, err, ErrUnknownFunction)
	}()
	c.Eval()
}

func TestMerge(t *testing.T) {
	a := Binding{Const(symA), nil, nil}
	b := Binding{Const(symB), Const(symB), nil}
	c := Binding{nil, nil, Const(symC)}

	m := Merge(a, b)
	assert.Equal(t, Binding{Const(symA), Const(symB), nil}, m)

	// No slot is contested by more than one source between a and c, or b and c.
	left := Merge(Merge(Binding{Const(symA), nil, nil}, Binding{nil, Const(symB), nil}), c)
	right := Merge(Binding{Const(symA), nil, nil}, Merge(Binding{nil, Const(symB), nil}, c))
	assert.Equal(t, left, right)

	// Inputs are untouched.
	assert.Nil(t, a[1])
}

func TestPredicateMatchWildcards(t *testing.T) {
	head := NewPredicate(symAt, 2, Var(0), Var(1))
	query := NewPredicate(symAt, 5, Const(symA), Var(4))

	b := NewBinding(head.VarCount)
	require.True(t, head.Match(query, b))
	assert.Equal(t, Const(symA), b[0])
	assert.Nil(t, b[1], "query variables must not leak into the head scope")

	assert.False(t, head.Match(NewPredicate(symRoom, 0, Const(symA), Const(symB)), NewBinding(2)))
}

func TestPredicateFormat(t *testing.T) {
	p := NewPredicate(symAt, 1, Const(symR1), Number(2.5), Var(0))
	assert.Equal(t, "(at r1 2.5 ?var0)", p.Format(testNames))
	assert.Equal(t, "(c0 c1 2.5 ?var0)", p.String())
}
