package steps

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMergeNeverDowngrades(t *testing.T) {
	reg := NewRegistry(nil)
	reg.Merge(Set{Lowercase: true})
	reg.Merge(Set{Lowercase: false})

	assert.Equal(t, Set{Lowercase: true}, reg.Get())
}

func TestMergeIgnoresFalseForAbsentStep(t *testing.T) {
	reg := NewRegistry(nil)
	reg.Merge(Set{RemoveNumbers: false})

	assert.Empty(t, reg.Get())
}

func TestMergeUpgradesFalseFromRecord(t *testing.T) {
	reg := NewRegistry(Set{Lowercase: false})
	reg.Merge(Set{Lowercase: true})

	assert.Equal(t, true, reg.Get()[Lowercase])
}

func TestMergeIsIdempotent(t *testing.T) {
	updates := Set{Lowercase: true, MinWordLength: 3, CustomStopwords: []string{"foo"}, Stem: false}

	once := NewRegistry(nil)
	once.Merge(updates)

	twice := NewRegistry(nil)
	twice.Merge(updates)
	twice.Merge(updates)

	assert.Equal(t, once.Get(), twice.Get())
	assert.Equal(t, float64(3), once.Get()[MinWordLength])
}

func TestMergeSkipsEmptyParameters(t *testing.T) {
	reg := NewRegistry(nil)
	reg.Merge(Set{CustomStopwords: []string{}, Language: ""})

	assert.Empty(t, reg.Get())
}

func TestGetReturnsSnapshot(t *testing.T) {
	reg := NewRegistry(nil)
	reg.Merge(Set{CustomStopwords: []string{"a", "b"}})

	snap := reg.Get()
	snap[Lowercase] = true
	snap[CustomStopwords].([]string)[0] = "zzz"

	assert.Equal(t, Set{CustomStopwords: []string{"a", "b"}}, reg.Get())
}

func TestReconcileSkipsSatisfiedSteps(t *testing.T) {
	previous := Set{Lowercase: true}

	eff := Reconcile(previous, Set{Lowercase: true})
	assert.Equal(t, false, eff[Lowercase])
	assert.True(t, eff.IsNoop())

	eff = Reconcile(previous, Set{Lowercase: false})
	assert.Equal(t, false, eff[Lowercase])
}

func TestReconcileRunsNewSteps(t *testing.T) {
	eff := Reconcile(Set{}, Set{RemoveNumbers: true})

	assert.Equal(t, true, eff[RemoveNumbers])
	assert.Equal(t, []string{}, eff[CustomStopwords])
	assert.False(t, eff.IsNoop())
}

func TestReconcileEmptyRequest(t *testing.T) {
	eff := Reconcile(Set{Lowercase: true}, Set{})

	assert.Empty(t, eff)
	assert.True(t, eff.IsNoop())
}

func TestReconcileChangedParameterMustRun(t *testing.T) {
	previous := Set{MinWordLength: 3}

	assert.Equal(t, false, Reconcile(previous, Set{MinWordLength: 3})[MinWordLength])
	assert.Equal(t, float64(4), Reconcile(previous, Set{MinWordLength: 4})[MinWordLength])
}

func TestReconcileStructuredEqualityIsDeep(t *testing.T) {
	previous := Set{"dictionary": []any{"alpha", "beta"}}

	eff := Reconcile(previous, Set{"dictionary": []string{"alpha", "beta"}})
	assert.Equal(t, false, eff["dictionary"])

	eff = Reconcile(previous, Set{"dictionary": []string{"beta", "alpha"}})
	assert.Equal(t, []string{"beta", "alpha"}, eff["dictionary"])
}

func TestReconcileCustomStopwordsForceRemoval(t *testing.T) {
	previous := Set{RemoveStopwords: true, CustomStopwords: []string{"foo"}}
	requested := Set{RemoveStopwords: true, CustomStopwords: []string{"foo", "bar", "foo", " "}}

	eff := Reconcile(previous, requested)

	assert.Equal(t, true, eff[RemoveStopwords])
	assert.Equal(t, []string{"bar", "foo"}, eff[CustomStopwords])
}

func TestReconcileDoesNotMutateInputs(t *testing.T) {
	previous := Set{Lowercase: true}
	requested := Set{Lowercase: true, CustomStopwords: []string{"b", "a"}}

	_ = Reconcile(previous, requested)

	assert.Equal(t, Set{Lowercase: true}, previous)
	assert.Equal(t, []string{"b", "a"}, requested[CustomStopwords])
}

func TestNormalizeNumbersAndLists(t *testing.T) {
	assert.Equal(t, float64(2), Normalize(2))
	assert.Equal(t, float64(2), Normalize(int64(2)))
	assert.Equal(t, []string{"x"}, Normalize([]any{"x"}))
	assert.True(t, Equal(3, 3.0))
	assert.False(t, Equal(true, "true"))
}

func TestSetAccessors(t *testing.T) {
	s := Set{Lowercase: true, MinWordLength: 3, CustomStopwords: []any{"b", "a"}, MaxWordLength: 0}

	assert.True(t, s.Flag(Lowercase, false))
	assert.True(t, s.Flag(Stem, true))
	n, ok := s.Number(MinWordLength)
	require.True(t, ok)
	assert.Equal(t, 3.0, n)
	_, ok = s.Number(MaxWordLength)
	assert.False(t, ok)
	assert.Equal(t, []string{"a", "b"}, s.List(CustomStopwords))
	assert.Equal(t, []string{CustomStopwords, Lowercase, MaxWordLength, MinWordLength}, s.Names())
	assert.Equal(t, Set{Lowercase: true, MinWordLength: float64(3), CustomStopwords: []string{"b", "a"}}, s.Pending())
}
