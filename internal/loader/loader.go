package loader

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/roach88/aqlkit/internal/queryir"
)

// Format identifies the encoding of a snapshot file.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatCUE  Format = "cue"
)

// FormatFromPath picks the format from the file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".cue":
		return FormatCUE, nil
	default:
		return "", &LoadError{Path: path, Message: fmt.Sprintf("unsupported snapshot extension %q", filepath.Ext(path))}
	}
}

// LoadError reports a snapshot file that could not be read or decoded.
// Line and Column are 1-based and zero when unknown.
type LoadError struct {
	Path    string
	Line    int
	Column  int
	Message string
	Err     error
}

func (e *LoadError) Error() string {
	loc := e.Path
	if e.Line > 0 {
		loc = fmt.Sprintf("%s:%d:%d", e.Path, e.Line, e.Column)
	}
	if loc == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", loc, e.Message)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// Load reads a query snapshot from path. The format follows the extension.
func Load(path string) (*queryir.Query, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{Path: path, Message: "read snapshot", Err: err}
	}
	return LoadBytes(data, format, path)
}

// LoadBytes decodes a query snapshot in the given format. filename is used
// for error positions only.
func LoadBytes(data []byte, format Format, filename string) (*queryir.Query, error) {
	js, err := ToJSON(data, format, filename)
	if err != nil {
		return nil, err
	}
	q, err := queryir.FromJSON(js)
	if err != nil {
		return nil, &LoadError{Path: filename, Message: err.Error(), Err: err}
	}
	logrus.WithFields(logrus.Fields{"path": filename, "format": format}).Debug("loaded snapshot")
	return q, nil
}

// ToJSON converts a snapshot document in any supported format to JSON.
func ToJSON(data []byte, format Format, filename string) ([]byte, error) {
	switch format {
	case FormatJSON:
		return data, nil
	case FormatYAML:
		return yamlToJSON(data, filename)
	case FormatCUE:
		return cueToJSON(data, filename)
	default:
		return nil, &LoadError{Path: filename, Message: fmt.Sprintf("unsupported format %q", format)}
	}
}

// FindFiles walks dir and returns the files whose extension is one of
// exts, in lexical order.
func FindFiles(dir string, exts ...string) ([]string, error) {
	want := make(map[string]bool, len(exts))
	for _, ext := range exts {
		want[strings.ToLower(ext)] = true
	}

	var files []string
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && want[strings.ToLower(filepath.Ext(path))] {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}
