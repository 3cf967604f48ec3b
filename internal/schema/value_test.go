package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsEmpty(t *testing.T) {
	assert.True(t, IsEmpty(nil))
	assert.True(t, IsEmpty(""))
	assert.True(t, IsEmpty([]any{}))
	assert.True(t, IsEmpty([]string{}))
	assert.True(t, IsEmpty([]FileDescriptor{}))
	assert.True(t, IsEmpty(map[string]any{}))
	assert.True(t, IsEmpty((*FileDescriptor)(nil)))

	assert.False(t, IsEmpty(" "))
	assert.False(t, IsEmpty(0))
	assert.False(t, IsEmpty(false))
	assert.False(t, IsEmpty([]string{"a"}))
	assert.False(t, IsEmpty(FileDescriptor{Filename: "a.pdf"}))
}

func TestEqualNormalizesNumbers(t *testing.T) {
	assert.True(t, Equal(3, 3.0))
	assert.True(t, Equal(int64(2), float32(2)))
	assert.False(t, Equal("3", 3))
	assert.True(t, Equal("US", "US"))
	assert.False(t, Equal(nil, ""))
}

func TestAsFiles(t *testing.T) {
	files := AsFiles([]any{
		map[string]any{"filename": "a.pdf", "size": 12.0},
		map[string]any{"filename": "b.png"},
	})
	assert.Len(t, files, 2)
	assert.Equal(t, "a.pdf", files[0].Filename)
	assert.EqualValues(t, 12, files[0].Size)

	assert.Len(t, AsFiles(FileDescriptor{Filename: "c.doc"}), 1)
	assert.Nil(t, AsFiles(nil))
}

func TestCloneIsDeep(t *testing.T) {
	orig := FormValue{"s": {"tags": []string{"a"}, "items": []any{map[string]any{"k": "v"}}}}
	cp := orig.Clone()

	cp["s"]["tags"].([]string)[0] = "changed"
	cp["s"]["items"].([]any)[0].(map[string]any)["k"] = "changed"

	assert.Equal(t, "a", orig["s"]["tags"].([]string)[0])
	assert.Equal(t, "v", orig["s"]["items"].([]any)[0].(map[string]any)["k"])
}
