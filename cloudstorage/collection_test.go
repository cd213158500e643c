package cloudstorage

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollection(t *testing.T) {
	c := NewCollection[int]()
	c.Set("b", 2)
	c.Set("a", 1)
	c.Set("c", 3)
	c.Set("b", 20)

	assert.Equal(t, 3, c.Len())
	assert.Equal(t, []string{"b", "a", "c"}, c.Keys())
	assert.Equal(t, []int{20, 1, 3}, c.Values())

	v, ok := c.Get("b")
	assert.True(t, ok)
	assert.Equal(t, 20, v)

	v, ok = c.At(1)
	assert.True(t, ok)
	assert.Equal(t, 1, v)

	_, ok = c.At(3)
	assert.False(t, ok)
	_, ok = c.At(-1)
	assert.False(t, ok)
	_, ok = c.Get("missing")
	assert.False(t, ok)

	assert.True(t, c.Delete("a"))
	assert.False(t, c.Delete("a"))
	assert.False(t, c.Has("a"))
	assert.Equal(t, []string{"b", "c"}, c.Keys())

	var keys []string
	for k, v := range c.All() {
		keys = append(keys, k)
		if v == 20 {
			break
		}
	}
	assert.Equal(t, []string{"b"}, keys)

	data, err := json.Marshal(c)
	require.NoError(t, err)
	assert.JSONEq(t, `[20, 3]`, string(data))
}

func TestCollection_KeysIsACopy(t *testing.T) {
	c := NewCollection[string]()
	c.Set("a", "x")

	keys := c.Keys()
	keys[0] = "changed"

	assert.Equal(t, []string{"a"}, c.Keys())
}

func TestCollection_ZeroValue(t *testing.T) {
	var c Collection[int]
	assert.Equal(t, 0, c.Len())

	c.Set("a", 1)
	c.Set("b", 2)
	c.Set("a", 3)

	v, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, 3, v)
	assert.Equal(t, []string{"a", "b"}, c.Keys())
}

func TestMetaName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Foo", "Foo"},
		{"foo", "Foo"},
		{"X-Container-Meta-Foo", "Foo"},
		{"x-container-meta-foo-bar", "Foo-Bar"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, metaName(containerMetaPrefix, tt.in))
		})
	}
}
