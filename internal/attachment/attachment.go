package attachment

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Kind is the attachment classification driving tool selection. It is a pure
// function of the declared file name's extension; no content sniffing.
type Kind string

const (
	KindPDF     Kind = "pdf"
	KindImage   Kind = "image"
	KindAudio   Kind = "audio"
	KindCSV     Kind = "tabular-csv"
	KindExcel   Kind = "tabular-excel"
	KindUnknown Kind = "unknown"
)

var kindByExtension = map[string]Kind{
	".pdf":  KindPDF,
	".png":  KindImage,
	".jpg":  KindImage,
	".jpeg": KindImage,
	".webp": KindImage,
	".bmp":  KindImage,
	".tiff": KindImage,
	".wav":  KindAudio,
	".mp3":  KindAudio,
	".m4a":  KindAudio,
	".aac":  KindAudio,
	".flac": KindAudio,
	".ogg":  KindAudio,
	".csv":  KindCSV,
	".xlsx": KindExcel,
}

func Classify(filename string) Kind {
	ext := strings.ToLower(filepath.Ext(filename))
	if kind, ok := kindByExtension[ext]; ok {
		return kind
	}
	return KindUnknown
}

func (k Kind) Tabular() bool {
	return k == KindCSV || k == KindExcel
}

// Extension returns the loader extension for tabular kinds ("csv" or "xlsx").
func (k Kind) Extension() string {
	switch k {
	case KindCSV:
		return "csv"
	case KindExcel:
		return "xlsx"
	default:
		return ""
	}
}

// TableName derives the in-memory relation name from the uploaded file's base
// name with its extension stripped. The value is used verbatim downstream.
func TableName(filename string) string {
	base := filepath.Base(filename)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// Spooled is a request-scoped copy of an uploaded attachment on disk.
type Spooled struct {
	Path     string
	Filename string
	Kind     Kind
}

// Spool writes the attachment body to a temp file preserving the original
// extension, capped at maxBytes when positive. Callers must invoke Cleanup
// on every exit path.
func Spool(r io.Reader, filename string, maxBytes int64) (*Spooled, error) {
	suffix := filepath.Ext(filename)
	tmp, err := os.CreateTemp("", "chatmesh-upload-*"+suffix)
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}

	body := r
	if maxBytes > 0 {
		body = io.LimitReader(r, maxBytes+1)
	}
	written, err := io.Copy(tmp, body)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(tmp.Name())
		return nil, fmt.Errorf("spool attachment %q: %w", filename, err)
	}
	if maxBytes > 0 && written > maxBytes {
		_ = os.Remove(tmp.Name())
		return nil, fmt.Errorf("attachment %q exceeds %d byte limit", filename, maxBytes)
	}

	return &Spooled{
		Path:     tmp.Name(),
		Filename: filepath.Base(filename),
		Kind:     Classify(filename),
	}, nil
}

func (s *Spooled) Cleanup() {
	if s == nil || s.Path == "" {
		return
	}
	_ = os.Remove(s.Path)
	s.Path = ""
}
