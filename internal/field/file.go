package field

import (
	"context"
	"errors"
	"fmt"

	. "github.com/roelfdiedericks/gointake/internal/logging"
	"github.com/roelfdiedericks/gointake/internal/schema"
	"github.com/roelfdiedericks/gointake/internal/upload"
)

// FileControl holds the descriptors of uploaded files. A single-file field
// emits one descriptor (or nil); a multiple field emits a slice.
type FileControl struct {
	base
	uploads *upload.Service
	slots   *upload.Slots
	slot    string
	files   []schema.FileDescriptor
}

func (c *FileControl) WriteValue(v any) {
	c.files = schema.AsFiles(v)
}

func (c *FileControl) Value() any {
	if c.field.Multiple {
		return append(make([]schema.FileDescriptor, 0, len(c.files)), c.files...)
	}
	if len(c.files) == 0 {
		return nil
	}
	return c.files[0]
}

// Files returns the current descriptors.
func (c *FileControl) Files() []schema.FileDescriptor {
	return append([]schema.FileDescriptor(nil), c.files...)
}

// Attach validates and uploads candidates, calling progress with each
// snapshot. Completed files are appended (multiple) or replace the current
// one, and the value is emitted once. Rejected or failed files come back as
// *upload.Error values joined into the returned error; they never stop the
// others. Attaching again while an upload runs cancels the earlier one.
func (c *FileControl) Attach(ctx context.Context, files []upload.File, progress func([]upload.Progress)) error {
	if c.disabled {
		return ErrDisabled
	}
	if !c.field.Multiple && len(files) > 1 {
		files = files[len(files)-1:]
	}

	var errs []error
	var accepted []upload.File
	for _, f := range files {
		if v := c.uploads.ValidateFile(f); !v.Valid {
			errs = append(errs, &upload.Error{Filename: f.Name, Reason: v.Error})
			continue
		}
		if msg := c.acceptError(f); msg != "" {
			errs = append(errs, &upload.Error{Filename: f.Name, Reason: msg})
			continue
		}
		accepted = append(accepted, f)
	}
	if len(accepted) == 0 {
		c.MarkTouched()
		return errors.Join(errs...)
	}

	ctx, done := c.slots.Begin(ctx, c.slot)
	defer done()

	var last []upload.Progress
	for snap := range c.uploads.UploadMultiple(ctx, accepted) {
		last = snap
		if progress != nil {
			progress(snap)
		}
	}
	if ctx.Err() != nil {
		L_debug("field: upload superseded", "field", c.field.ID)
		return errors.Join(append(errs, ctx.Err())...)
	}

	var completed []schema.FileDescriptor
	for _, p := range last {
		switch {
		case p.Status == upload.StatusCompleted && p.File != nil:
			completed = append(completed, *p.File)
		case p.Status == upload.StatusError:
			errs = append(errs, &upload.Error{Filename: p.Filename, Reason: p.Error})
		}
	}
	if len(completed) > 0 {
		if c.field.Multiple {
			c.files = append(c.files, completed...)
		} else {
			c.files = completed[len(completed)-1:]
		}
		c.emit(c.Value())
	}
	return errors.Join(errs...)
}

// acceptError applies the field's own accept list on top of the service's.
func (c *FileControl) acceptError(f upload.File) string {
	if len(c.field.Accept) == 0 {
		return ""
	}
	for _, a := range c.field.Accept {
		if a == f.Ext() {
			return ""
		}
	}
	return fmt.Sprintf("%s: File type not allowed", f.Name)
}

// RemoveFile drops the file at index and emits.
func (c *FileControl) RemoveFile(index int) error {
	if c.disabled {
		return ErrDisabled
	}
	if index < 0 || index >= len(c.files) {
		return fmt.Errorf("file index %d out of range", index)
	}
	c.files = append(c.files[:index:index], c.files[index+1:]...)
	c.emit(c.Value())
	return nil
}

// SetFileMeta sets a metadata entry declared in the field's fileMeta list.
func (c *FileControl) SetFileMeta(index int, key, value string) error {
	if c.disabled {
		return ErrDisabled
	}
	if index < 0 || index >= len(c.files) {
		return fmt.Errorf("file index %d out of range", index)
	}
	declared := false
	for _, k := range c.field.FileMeta {
		declared = declared || k == key
	}
	if !declared {
		return fmt.Errorf("%s does not collect %q", c.field.ID, key)
	}
	switch key {
	case "description":
		c.files[index].Description = value
	case "date":
		c.files[index].Date = value
	default:
		return fmt.Errorf("unsupported file metadata %q", key)
	}
	c.emit(c.Value())
	return nil
}
