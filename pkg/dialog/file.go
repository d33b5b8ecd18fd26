package dialog

import (
	"encoding/json"
	"fmt"
)

// FileFilter restricts the files offered by a file dialog.
type FileFilter struct {
	Description string   `json:"description"`
	Filters     []string `json:"filters"`
}

// NewFileFilter creates a filter with the given patterns.
func NewFileFilter(description string, patterns ...string) *FileFilter {
	return &FileFilter{Description: description, Filters: append([]string{}, patterns...)}
}

// Push adds a pattern.
func (f *FileFilter) Push(pattern string) *FileFilter {
	f.Filters = append(f.Filters, pattern)
	return f
}

// FileOpenDialog asks the user to pick one or more existing files.
type FileOpenDialog struct {
	Filter   *FileFilter `json:"filter"`
	Multiple bool        `json:"multiple"`
	Title    string      `json:"title"`
	Path     string      `json:"path"`
}

// NewFileOpen creates a single-selection open dialog starting at path.
func NewFileOpen(title, path string) *FileOpenDialog {
	return &FileOpenDialog{Title: title, Path: path}
}

// WithFilter sets the file filter.
func (d *FileOpenDialog) WithFilter(f *FileFilter) *FileOpenDialog {
	d.Filter = f
	return d
}

// AllowMultiple enables multiple selection.
func (d *FileOpenDialog) AllowMultiple() *FileOpenDialog {
	d.Multiple = true
	return d
}

func (*FileOpenDialog) TypeName() string { return "FileOpenDialog" }

func (*FileOpenDialog) resolve(data json.RawMessage) (FileOpenResult, error) {
	var r FileOpenResult
	err := r.UnmarshalJSON(data)
	return r, err
}

// FileOpenKind tells how a file open dialog was closed.
type FileOpenKind uint8

const (
	FileOpenCanceled FileOpenKind = iota
	FileOpenSelected
	FileOpenSelectedMultiple
)

// FileOpenResult is the outcome of a FileOpenDialog. Paths holds one entry
// for FileOpenSelected and any number for FileOpenSelectedMultiple.
type FileOpenResult struct {
	Kind  FileOpenKind
	Paths []string
}

// MarshalJSON encodes the result the way the frontend reports it.
func (r FileOpenResult) MarshalJSON() ([]byte, error) {
	switch r.Kind {
	case FileOpenCanceled:
		return json.Marshal("Canceled")
	case FileOpenSelected:
		if len(r.Paths) != 1 {
			return nil, fmt.Errorf("%w: single selection with %d paths", ErrInvalidResult, len(r.Paths))
		}
		return json.Marshal(map[string]string{"Selected": r.Paths[0]})
	case FileOpenSelectedMultiple:
		return json.Marshal(map[string][]string{"SelectedMultiple": r.Paths})
	default:
		return nil, fmt.Errorf("%w: unknown file open kind %d", ErrInvalidResult, r.Kind)
	}
}

// UnmarshalJSON decodes "Canceled", {"Selected": path} or
// {"SelectedMultiple": [paths]}.
func (r *FileOpenResult) UnmarshalJSON(data []byte) error {
	variant, payload, err := unitOrTagged(data)
	if err != nil {
		return err
	}
	switch variant {
	case "Canceled":
		*r = FileOpenResult{Kind: FileOpenCanceled}
	case "Selected":
		var p string
		if err := json.Unmarshal(payload, &p); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidResult, err)
		}
		*r = FileOpenResult{Kind: FileOpenSelected, Paths: []string{p}}
	case "SelectedMultiple":
		var ps []string
		if err := json.Unmarshal(payload, &ps); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidResult, err)
		}
		*r = FileOpenResult{Kind: FileOpenSelectedMultiple, Paths: ps}
	default:
		return fmt.Errorf("%w: unknown file open result %q", ErrInvalidResult, variant)
	}
	return nil
}

// FileSaveDialog asks the user for a destination path.
type FileSaveDialog struct {
	Title  string      `json:"title"`
	Path   string      `json:"path"`
	Filter *FileFilter `json:"filter"`
}

// NewFileSave creates a save dialog starting at path.
func NewFileSave(title, path string) *FileSaveDialog {
	return &FileSaveDialog{Title: title, Path: path}
}

// WithFilter sets the file filter.
func (d *FileSaveDialog) WithFilter(f *FileFilter) *FileSaveDialog {
	d.Filter = f
	return d
}

func (*FileSaveDialog) TypeName() string { return "FileSaveDialog" }

func (*FileSaveDialog) resolve(data json.RawMessage) (FileSaveResult, error) {
	var r FileSaveResult
	err := r.UnmarshalJSON(data)
	return r, err
}

// FileSaveResult is the outcome of a FileSaveDialog.
type FileSaveResult struct {
	Canceled bool
	Path     string
}

// MarshalJSON encodes {"SaveTo": path} or "Cancel".
func (r FileSaveResult) MarshalJSON() ([]byte, error) {
	if r.Canceled {
		return json.Marshal("Cancel")
	}
	return json.Marshal(map[string]string{"SaveTo": r.Path})
}

// UnmarshalJSON decodes {"SaveTo": path} or "Cancel".
func (r *FileSaveResult) UnmarshalJSON(data []byte) error {
	variant, payload, err := unitOrTagged(data)
	if err != nil {
		return err
	}
	switch variant {
	case "Cancel":
		*r = FileSaveResult{Canceled: true}
	case "SaveTo":
		var p string
		if err := json.Unmarshal(payload, &p); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidResult, err)
		}
		*r = FileSaveResult{Path: p}
	default:
		return fmt.Errorf("%w: unknown file save result %q", ErrInvalidResult, variant)
	}
	return nil
}
