package tracker

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func names[T any](nodes []*Node[T]) []string {
	out := make([]string, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, n.Name)
	}
	return out
}

func TestChain(t *testing.T) {
	tr := New[int]()
	v1, err := tr.Add("v1", 1)
	require.NoError(t, err)
	assert.Same(t, v1, v1.Family.Root)
	assert.Same(t, v1, v1.Family.Latest)

	v2, err := tr.Add("v2", 2, "v1")
	require.NoError(t, err)
	v3, err := tr.Add("v3", 3, "v2")
	require.NoError(t, err)

	assert.Same(t, v3, v1.Family.Latest)
	assert.Equal(t, []string{"v1", "v2"}, names(v3.Versions(false)))
	assert.Equal(t, []string{"v1", "v2", "v3"}, names(v3.Versions(true)))
	assert.Empty(t, v1.Versions(false))
	assert.True(t, v3.Extends(v1))
	assert.True(t, v3.Extends(v3))
	assert.False(t, v1.Extends(v2))
	assert.Equal(t, []string{"v1", "v2", "v3"}, names(v1.Family.Members()))
	assert.Equal(t, []string{"v2"}, names(v1.Children()))

	latest, ok := tr.Latest("v2")
	require.True(t, ok)
	assert.Same(t, v3, latest)
}

func TestBranchDoesNotMoveLatest(t *testing.T) {
	tr := New[string]()
	_, _ = tr.Add("base", "")
	_, _ = tr.Add("a", "", "base")
	b, err := tr.Add("b", "", "base")
	require.NoError(t, err)

	// b не наследует a, поэтому последняя версия остаётся a
	assert.Equal(t, "a", b.Family.Latest.Name)
}

func TestErrors(t *testing.T) {
	tr := New[int]()
	_, _ = tr.Add("a", 0)
	_, _ = tr.Add("b", 0)

	_, err := tr.Add("c", 0, "a", "b")
	require.ErrorIs(t, err, ErrMultipleInheritance)
	assert.Contains(t, err.Error(), "Multiple inheritance")
	assert.Contains(t, err.Error(), "is not allowed")
	assert.Contains(t, err.Error(), "(c)")

	_, err = tr.Add("c", 0, "zzz")
	assert.ErrorIs(t, err, ErrUnknownParent)

	_, err = tr.Add("a", 0)
	assert.ErrorIs(t, err, ErrDuplicate)

	_, err = tr.Add("", 0)
	assert.ErrorIs(t, err, ErrEmptyName)

	_, err = tr.Parent("d", "a", "b")
	assert.ErrorIs(t, err, ErrMultipleInheritance)
	_, ok := tr.Get("d")
	assert.False(t, ok)
	assert.Len(t, tr.Nodes(), 2)
}

func TestAlias(t *testing.T) {
	tr := New[int]()
	root, _ := tr.Add("root", 0)
	child, _ := tr.Add("child", 0, "root")
	_, _ = tr.Add("other", 0, "root")

	require.ErrorIs(t, tr.SetAlias("root", "x"), ErrNoParent)
	require.NoError(t, tr.SetAlias("child", "next"))
	require.ErrorIs(t, tr.SetAlias("other", "next"), ErrAliasTaken)

	got, ok := root.Alias("next")
	require.True(t, ok)
	assert.Same(t, child, got)
}
