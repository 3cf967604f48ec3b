package upload

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roelfdiedericks/gointake/internal/metrics"
)

var pdfData = []byte("%PDF-1.4\n1 0 obj\n<< /Type /Catalog >>\nendobj\ntrailer\n%%EOF\n")

func newService(t *testing.T) *Service {
	t.Helper()
	s, err := NewService(Options{Dir: t.TempDir(), Tick: time.Millisecond}, metrics.New())
	require.NoError(t, err)
	return s
}

func drain(ch <-chan Progress) []Progress {
	var out []Progress
	for p := range ch {
		out = append(out, p)
	}
	return out
}

func TestValidateFile(t *testing.T) {
	s := newService(t)

	assert.True(t, s.ValidateFile(File{Name: "brief.PDF", Size: 1024}).Valid)
	assert.True(t, s.ValidateFile(File{Name: "brief.pdf", Size: int64(len(pdfData)), Data: pdfData}).Valid)

	v := s.ValidateFile(File{Name: "big.pdf", Size: 26 * 1024 * 1024})
	assert.False(t, v.Valid)
	assert.Contains(t, v.Error, "File size exceeds 25MB limit")

	v = s.ValidateFile(File{Name: "run.exe", Size: 10})
	assert.Contains(t, v.Error, "File type not allowed")

	v = s.ValidateFile(File{Name: "fake.pdf", Size: 5, Data: []byte("hello")})
	assert.False(t, v.Valid, "content does not match an allowed type")
}

func TestUploadCompletes(t *testing.T) {
	s := newService(t)
	events := drain(s.Upload(context.Background(), File{Name: "brief.pdf", Size: int64(len(pdfData)), Data: pdfData}))
	require.NotEmpty(t, events)

	last := events[len(events)-1]
	assert.Equal(t, StatusCompleted, last.Status)
	assert.Equal(t, 100, last.Progress)
	require.NotNil(t, last.File)
	assert.Equal(t, "brief.pdf", last.File.Filename)
	assert.Equal(t, "application/pdf", last.File.Type)

	prev := 0
	for _, e := range events[:len(events)-1] {
		assert.Equal(t, StatusUploading, e.Status)
		assert.GreaterOrEqual(t, e.Progress, prev)
		assert.Less(t, e.Progress, 101)
		prev = e.Progress
	}

	path := strings.TrimPrefix(last.File.URL, "file://")
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, pdfData, data)
	assert.Equal(t, ".pdf", filepath.Ext(path))

	fd, ok := s.Get(last.File.ID)
	require.True(t, ok)
	assert.Equal(t, *last.File, fd)
	assert.Len(t, s.Files(), 1)

	assert.True(t, s.Delete(fd.ID))
	assert.NoFileExists(t, path)
	assert.False(t, s.Delete(fd.ID))
}

func TestUploadRejected(t *testing.T) {
	s := newService(t)
	events := drain(s.Upload(context.Background(), File{Name: "virus.exe", Size: 10}))
	require.Len(t, events, 1)
	assert.Equal(t, StatusError, events[0].Status)
	assert.Contains(t, events[0].Error, "File type not allowed")
}

func TestUploadCancelled(t *testing.T) {
	s, err := NewService(Options{Tick: time.Hour}, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	ch := s.Upload(ctx, File{Name: "a.pdf", Size: 1})
	cancel()

	select {
	case _, open := <-ch:
		assert.False(t, open, "closed without a terminal event")
	case <-time.After(5 * time.Second):
		t.Fatal("upload did not stop")
	}
}

func TestUploadMultipleIsolatesFailures(t *testing.T) {
	s := newService(t)
	files := []File{
		{Name: "a.pdf", Size: int64(len(pdfData)), Data: pdfData},
		{Name: "b.exe", Size: 10},
		{Name: "c.png", Size: 10},
	}

	var last []Progress
	n := 0
	for snap := range s.UploadMultiple(context.Background(), files) {
		require.Len(t, snap, 3)
		last = snap
		n++
	}
	require.NotNil(t, last)
	assert.Greater(t, n, 2)
	assert.Equal(t, StatusCompleted, last[0].Status)
	assert.Equal(t, StatusError, last[1].Status)
	assert.Equal(t, StatusCompleted, last[2].Status)
	assert.Equal(t, "c.png", last[2].Filename)
	assert.Contains(t, last[2].File.URL, "mock://uploaded-files/")
}

func TestSlotsCancelPrevious(t *testing.T) {
	var slots Slots
	first, done1 := slots.Begin(context.Background(), "documents")
	second, done2 := slots.Begin(context.Background(), "documents")

	assert.Error(t, first.Err(), "first upload cancelled")
	assert.NoError(t, second.Err())
	assert.True(t, slots.Active("documents"))

	done1()
	assert.True(t, slots.Active("documents"), "stale done leaves the newer slot alone")
	done2()
	assert.False(t, slots.Active("documents"))

	other, _ := slots.Begin(context.Background(), "photos")
	slots.CancelAll()
	assert.Error(t, other.Err())
}
