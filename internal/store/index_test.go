package store

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIndexBasics(t *testing.T) {
	ix := newIndex()

	_, ok := ix.get("a")
	assert.False(t, ok)

	ix.put("a", "/root/aa")
	path, ok := ix.get("a")
	assert.True(t, ok)
	assert.Equal(t, "/root/aa", path)
	assert.Equal(t, 1, ix.size())

	ix.put("a", "/root/bb")
	path, _ = ix.get("a")
	assert.Equal(t, "/root/bb", path, "a key has at most one live path")
	assert.Equal(t, 1, ix.size())

	ix.delete("a")
	_, ok = ix.get("a")
	assert.False(t, ok)
}

func TestIndexKeyByPath(t *testing.T) {
	ix := newIndex()
	ix.put("a", "/root/aa")
	ix.put("b", "/root/sub/bb")

	key, ok := ix.keyByPath("/root/sub/bb")
	assert.True(t, ok)
	assert.Equal(t, "b", key)

	_, ok = ix.keyByPath("/root/unknown")
	assert.False(t, ok)
}

func TestIndexKeysUnder(t *testing.T) {
	ix := newIndex()
	ix.put("z", "/root/zz")
	ix.put("a", "/root/aa")
	ix.put("s", "/root/sessions/ss")

	assert.Equal(t, []string{"a", "s", "z"}, ix.keysUnder("/root"), "sorted, full tree")
	assert.Equal(t, []string{"s"}, ix.keysUnder("/root/sessions"))
	assert.Empty(t, ix.keysUnder("/root/other"))
	assert.Empty(t, ix.keysUnder("/root/sess"), "prefix match is per path segment")
}

func TestIndexPurgeUnder(t *testing.T) {
	ix := newIndex()
	ix.put("a", "/root/aa")
	ix.put("s1", "/root/sessions/s1")
	ix.put("s2", "/root/sessions/s2")

	assert.Equal(t, 2, ix.purgeUnder("/root/sessions"))
	assert.Equal(t, []string{"a"}, ix.keysUnder("/root"))
}

func TestIndexReplace(t *testing.T) {
	ix := newIndex()
	ix.put("old", "/root/old")

	ix.replace(map[string]string{"new": "/root/new"})
	_, ok := ix.get("old")
	assert.False(t, ok)
	_, ok = ix.get("new")
	assert.True(t, ok)
}

func TestUnderDir(t *testing.T) {
	sep := string(filepath.Separator)
	tests := []struct {
		name string
		path string
		dir  string
		want bool
	}{
		{"Direct Child", filepath.Join(sep+"a", "b"), sep + "a", true},
		{"Nested", filepath.Join(sep+"a", "b", "c"), sep + "a", true},
		{"Same", sep + "a", sep + "a", true},
		{"Sibling", sep + "ab", sep + "a", false},
		{"Outside", filepath.Join(sep+"b", "c"), sep + "a", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, underDir(tt.path, tt.dir))
		})
	}
}
