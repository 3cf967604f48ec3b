package draft

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roelfdiedericks/gointake/internal/config"
	"github.com/roelfdiedericks/gointake/internal/schema"
)

func TestEncodeDecode(t *testing.T) {
	at := time.Date(2026, 5, 1, 9, 30, 0, 0, time.UTC)
	d := New(schema.FormValue{"personal": {"fullName": "Jane", "age": 41.0, "tags": []any{"a"}}}, at)
	assert.Equal(t, "2026-05-01T09:30:00.000Z", d.Timestamp)

	blob, err := Encode(d)
	require.NoError(t, err)

	got, err := Decode(blob)
	require.NoError(t, err)
	assert.Equal(t, d.Value, got.Value)
	assert.True(t, at.Equal(got.SavedAt()))
}

func TestDecodeCorrupt(t *testing.T) {
	for _, blob := range []string{"not json", "", "null", `{"timestamp":"x"}`, `{"value":"str"}`} {
		_, err := Decode(blob)
		var pe *ParseError
		assert.ErrorAs(t, err, &pe, "%q", blob)
	}
}

func TestDecodeNullSectionBecomesEmpty(t *testing.T) {
	d, err := Decode(`{"value":{"personal":null},"timestamp":""}`)
	require.NoError(t, err)
	assert.NotNil(t, d.Value["personal"])
}

func exerciseKV(t *testing.T, kv KV) {
	t.Helper()
	_, err := kv.Get(DefaultKey)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, kv.Set(DefaultKey, `{"value":{}}`))
	require.NoError(t, kv.Set(DefaultKey, `{"value":{"a":{}}}`))
	v, err := kv.Get(DefaultKey)
	require.NoError(t, err)
	assert.Equal(t, `{"value":{"a":{}}}`, v)

	require.NoError(t, kv.Remove(DefaultKey))
	require.NoError(t, kv.Remove(DefaultKey), "removing twice is fine")
	_, err = kv.Get(DefaultKey)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore(t *testing.T) {
	m := NewMemoryStore()
	exerciseKV(t, m)
	assert.Equal(t, 2, m.Writes())
}

func TestFileStore(t *testing.T) {
	s, err := NewFileStore(filepath.Join(t.TempDir(), "drafts"))
	require.NoError(t, err)
	exerciseKV(t, s)

	assert.Error(t, s.Set("../escape", "x"))
}

func TestSQLiteStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "drafts.db")
	s, err := NewSQLiteStore(path)
	require.NoError(t, err)
	exerciseKV(t, s)

	require.NoError(t, s.Set("k", "v"))
	at, err := s.UpdatedAt("k")
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now(), at, time.Minute)
	require.NoError(t, s.Close())

	// reopening skips the applied migration and keeps data
	s, err = NewSQLiteStore(path)
	require.NoError(t, err)
	defer s.Close()
	v, err := s.Get("k")
	require.NoError(t, err)
	assert.Equal(t, "v", v)
}

func TestOpenBackends(t *testing.T) {
	dir := t.TempDir()

	s, err := Open(config.DraftConfig{Backend: "file", Path: dir})
	require.NoError(t, err)
	assert.IsType(t, &FileStore{}, s)

	s, err = Open(config.DraftConfig{Backend: "sqlite", Path: dir})
	require.NoError(t, err)
	assert.IsType(t, &SQLiteStore{}, s)
	require.NoError(t, s.Close())
	assert.FileExists(t, filepath.Join(dir, "drafts.db"))

	s, err = Open(config.DraftConfig{Backend: "memory"})
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, s)

	_, err = Open(config.DraftConfig{Backend: "redis"})
	assert.Error(t, err)
}

func TestLoadSave(t *testing.T) {
	kv := NewMemoryStore()
	require.NoError(t, Save(kv, DefaultKey, New(schema.FormValue{"s": {"f": "v"}}, time.Now())))
	d, err := Load(kv, DefaultKey)
	require.NoError(t, err)
	assert.Equal(t, "v", d.Value["s"]["f"])
}
