package upload

import (
	"context"
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	. "github.com/roelfdiedericks/gointake/internal/logging"
	"github.com/roelfdiedericks/gointake/internal/metrics"
	"github.com/roelfdiedericks/gointake/internal/schema"
	"github.com/roelfdiedericks/gointake/internal/validation"
)

const (
	DefaultMaxSizeMB = 25
	DefaultTick      = 200 * time.Millisecond
	maxIncrement     = 30.0
)

// Status of one upload.
type Status string

const (
	StatusUploading Status = "uploading"
	StatusCompleted Status = "completed"
	StatusError     Status = "error"
)

// Progress is one event of an upload stream. File is set on completion.
type Progress struct {
	Filename string                 `json:"filename"`
	Progress int                    `json:"progress"`
	Status   Status                 `json:"status"`
	Error    string                 `json:"error,omitempty"`
	File     *schema.FileDescriptor `json:"file,omitempty"`
}

// Validation is the result of ValidateFile.
type Validation struct {
	Valid bool
	Error string
}

// Error is a per-file rejection or transfer failure.
type Error struct {
	Filename string
	Reason   string
}

func (e *Error) Error() string {
	return fmt.Sprintf("upload %s: %s", e.Filename, e.Reason)
}

// Options configures a Service.
type Options struct {
	Dir       string // where uploaded content is kept; "" keeps nothing on disk
	MaxSizeMB int
	Accept    []string
	Tick      time.Duration
}

// Service is the file upload collaborator of one session.
type Service struct {
	cfg     Options
	metrics *metrics.Manager

	mu    sync.Mutex
	files map[string]schema.FileDescriptor
}

// NewService applies defaults and creates the upload directory.
func NewService(cfg Options, m *metrics.Manager) (*Service, error) {
	if cfg.MaxSizeMB <= 0 {
		cfg.MaxSizeMB = DefaultMaxSizeMB
	}
	if len(cfg.Accept) == 0 {
		cfg.Accept = validation.DefaultAccept
	}
	if cfg.Tick <= 0 {
		cfg.Tick = DefaultTick
	}
	if cfg.Dir != "" {
		if err := os.MkdirAll(cfg.Dir, 0700); err != nil {
			return nil, fmt.Errorf("failed to create upload directory: %w", err)
		}
	}
	L_debug("upload: service initialized", "dir", cfg.Dir, "maxSizeMB", cfg.MaxSizeMB, "tick", cfg.Tick)
	return &Service{cfg: cfg, metrics: m, files: make(map[string]schema.FileDescriptor)}, nil
}

// MaxSizeMB is the per-file cap.
func (s *Service) MaxSizeMB() int { return s.cfg.MaxSizeMB }

// ValidateFile applies the size cap and extension allow-list, then checks
// the sniffed content type when the content is available.
func (s *Service) ValidateFile(f File) Validation {
	return s.validate(f, s.cfg.Accept)
}

func (s *Service) validate(f File, accept []string) Validation {
	if msg, _ := validation.CheckFile(f.Name, f.Size, accept, s.cfg.MaxSizeMB); msg != "" {
		return Validation{Error: msg}
	}
	if len(f.Data) > 0 && !mimeAllowed(f.Data) {
		return Validation{Error: fmt.Sprintf("%s: File type not allowed", f.Name)}
	}
	return Validation{Valid: true}
}

// Upload streams progress for one file. The stream ends with a completed or
// error event, or closes without one when ctx is cancelled.
func (s *Service) Upload(ctx context.Context, f File) <-chan Progress {
	return s.upload(ctx, f, s.cfg.Accept)
}

// UploadAccepting is Upload with a field-specific extension list.
func (s *Service) UploadAccepting(ctx context.Context, f File, accept []string) <-chan Progress {
	if len(accept) == 0 {
		accept = s.cfg.Accept
	}
	return s.upload(ctx, f, accept)
}

func (s *Service) upload(ctx context.Context, f File, accept []string) <-chan Progress {
	out := make(chan Progress)

	go func() {
		defer close(out)
		start := time.Now()

		send := func(p Progress) bool {
			select {
			case out <- p:
				return true
			case <-ctx.Done():
				return false
			}
		}
		fail := func(reason string) {
			s.metrics.RecordFailure("upload", "file", reason)
			L_warn("upload: failed", "file", f.Name, "reason", reason)
			send(Progress{Filename: f.Name, Status: StatusError, Error: reason})
		}

		if v := s.validate(f, accept); !v.Valid {
			fail(v.Error)
			return
		}

		ticker := time.NewTicker(s.cfg.Tick)
		defer ticker.Stop()

		progress := 0.0
		for {
			select {
			case <-ctx.Done():
				L_debug("upload: cancelled", "file", f.Name)
				return
			case <-ticker.C:
			}

			progress += rand.Float64() * maxIncrement
			if progress < 100 {
				if !send(Progress{Filename: f.Name, Progress: int(progress + 0.5), Status: StatusUploading}) {
					return
				}
				continue
			}

			fd, err := s.store(f)
			if err != nil {
				fail(err.Error())
				return
			}
			s.metrics.RecordSuccess("upload", "file")
			s.metrics.RecordDuration("upload", "file", time.Since(start))
			L_info("upload: completed", "file", f.Name, "id", fd.ID, "size", fd.Size)
			send(Progress{Filename: f.Name, Progress: 100, Status: StatusCompleted, File: &fd})
			return
		}
	}()

	return out
}

// store keeps the content under a uuid name and records the descriptor.
func (s *Service) store(f File) (schema.FileDescriptor, error) {
	id := uuid.New().String()
	fd := schema.FileDescriptor{
		ID:         id,
		Filename:   f.Name,
		Size:       f.Size,
		Type:       f.ContentType,
		UploadedAt: time.Now(),
	}
	if fd.Type == "" && len(f.Data) > 0 {
		fd.Type = DetectMIME(f.Data)
	}

	if s.cfg.Dir != "" && len(f.Data) > 0 {
		absPath := filepath.Join(s.cfg.Dir, id+f.Ext())
		if err := os.WriteFile(absPath, f.Data, 0600); err != nil {
			return schema.FileDescriptor{}, fmt.Errorf("failed to write file: %w", err)
		}
		fd.URL = "file://" + absPath
	} else {
		fd.URL = fmt.Sprintf("mock://uploaded-files/%d-%s", fd.UploadedAt.UnixMilli(), f.Name)
	}

	s.mu.Lock()
	s.files[id] = fd
	s.mu.Unlock()
	return fd, nil
}

// UploadMultiple runs uploads side by side and emits a snapshot of every
// file's latest progress on each change. A failing file does not stop the
// others. Slots that have not reported yet are zero values.
func (s *Service) UploadMultiple(ctx context.Context, files []File) <-chan []Progress {
	out := make(chan []Progress)

	type update struct {
		index int
		p     Progress
	}
	updates := make(chan update)

	var wg sync.WaitGroup
	for i, f := range files {
		wg.Add(1)
		go func(i int, f File) {
			defer wg.Done()
			for p := range s.Upload(ctx, f) {
				select {
				case updates <- update{i, p}:
				case <-ctx.Done():
					return
				}
			}
		}(i, f)
	}
	go func() {
		wg.Wait()
		close(updates)
	}()

	go func() {
		defer close(out)
		results := make([]Progress, len(files))
		for u := range updates {
			results[u.index] = u.p
			snapshot := append([]Progress(nil), results...)
			select {
			case out <- snapshot:
			case <-ctx.Done():
				for range updates {
				}
				return
			}
		}
	}()

	return out
}

// Files lists stored descriptors, oldest first.
func (s *Service) Files() []schema.FileDescriptor {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]schema.FileDescriptor, 0, len(s.files))
	for _, fd := range s.files {
		out = append(out, fd)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UploadedAt.Before(out[j].UploadedAt) })
	return out
}

// Get returns a stored descriptor by id.
func (s *Service) Get(id string) (schema.FileDescriptor, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fd, ok := s.files[id]
	return fd, ok
}

// Delete forgets a descriptor and removes its content from disk.
func (s *Service) Delete(id string) bool {
	s.mu.Lock()
	fd, ok := s.files[id]
	delete(s.files, id)
	s.mu.Unlock()
	if !ok {
		return false
	}
	if path, found := strings.CutPrefix(fd.URL, "file://"); found {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			L_warn("upload: failed to remove file", "path", path, "error", err)
		}
	}
	return true
}
