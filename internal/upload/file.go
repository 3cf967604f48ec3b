// Package upload validates candidate files and simulates their transfer,
// reporting progress ticks and finally a stored file descriptor.
package upload

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// File is an upload candidate.
type File struct {
	Name        string
	Size        int64
	ContentType string // sniffed from Data when empty
	Data        []byte
	Path        string // source path when read from disk
}

// FromPath reads a candidate from disk.
func FromPath(path string) (File, error) {
	info, err := os.Stat(path)
	if err != nil {
		return File{}, err
	}
	if info.IsDir() {
		return File{}, fmt.Errorf("%s is a directory", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return File{}, err
	}
	return File{
		Name:        filepath.Base(path),
		Size:        info.Size(),
		ContentType: DetectMIME(data),
		Data:        data,
		Path:        path,
	}, nil
}

// Ext returns the lower-cased extension including the dot.
func (f File) Ext() string {
	return strings.ToLower(filepath.Ext(f.Name))
}

// DetectMIME returns the MIME type from magic bytes, not the file name.
func DetectMIME(data []byte) string {
	return mimetype.Detect(data).String()
}

// AllowedMIMETypes are the content types accepted for legal documents.
var AllowedMIMETypes = map[string]bool{
	"application/pdf":    true,
	"application/msword": true,
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": true,
	"image/png":  true,
	"image/jpeg": true,
	"image/jpg":  true,
}

// mimeAllowed checks a detected type and its ancestors (docx is a zip, for
// instance, and older Word files sniff as OLE storage).
func mimeAllowed(data []byte) bool {
	for m := mimetype.Detect(data); m != nil; m = m.Parent() {
		for allowed := range AllowedMIMETypes {
			if m.Is(allowed) {
				return true
			}
		}
	}
	return false
}
