package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/roach88/aqlkit/internal/loader"
	"github.com/roach88/aqlkit/internal/queryir"
)

// LoadError represents an error that occurred while reading a snapshot.
type LoadError struct {
	Code    string
	Message string
	Path    string
	Line    int // 1-based, zero when unknown
	Column  int
}

func (e *LoadError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Path, e.Line, e.Column, e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// LoadSnapshot reads one query snapshot file and maps failures to CLI
// error codes.
func LoadSnapshot(path string) (*queryir.Query, *LoadError) {
	info, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("snapshot not found: %s", path), Path: path}
	}
	if err != nil {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing snapshot: %v", err), Path: path}
	}
	if info.IsDir() {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("snapshot is a directory: %s", path), Path: path}
	}

	if _, err := loader.FormatFromPath(path); err != nil {
		return nil, &LoadError{Code: ErrCodeUnsupportedFormat, Message: err.Error(), Path: path}
	}

	q, err := loader.Load(path)
	if err != nil {
		return nil, convertLoadError(path, err)
	}
	return q, nil
}

// FindSnapshotFiles walks dir and returns every snapshot file in it.
func FindSnapshotFiles(dir string) ([]string, *LoadError) {
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("snapshot directory not found: %s", dir), Path: dir}
	}
	files, err := loader.FindFiles(dir, ".json", ".yaml", ".yml", ".cue")
	if err != nil {
		return nil, &LoadError{Code: ErrCodeScanError, Message: fmt.Sprintf("error scanning directory: %v", err), Path: dir}
	}
	if len(files) == 0 {
		return nil, &LoadError{Code: ErrCodeNoFiles, Message: fmt.Sprintf("no snapshot files found in %s", dir), Path: dir}
	}
	return files, nil
}

// convertLoadError converts a loader error to a LoadError with position info.
func convertLoadError(path string, err error) *LoadError {
	code := ErrCodeLoadFailed
	if queryir.IsSerializationError(err) {
		code = ErrCodeSerialization
	}
	var le *loader.LoadError
	if errors.As(err, &le) {
		return &LoadError{Code: code, Message: le.Message, Path: path, Line: le.Line, Column: le.Column}
	}
	return &LoadError{Code: code, Message: err.Error(), Path: path}
}

// Error code constants - unified across all CLI commands.
const (
	ErrCodeGeneric           = "E001" // Generic/unknown error
	ErrCodeScanError         = "E002" // Directory scan error
	ErrCodeNoFiles           = "E003" // No snapshot files found
	ErrCodeLoadFailed        = "E004" // Snapshot could not be parsed
	ErrCodeNotFound          = "E005" // Path not found
	ErrCodeUnsupportedFormat = "E006" // Unknown snapshot file extension
	ErrCodeWriteFailed       = "E007" // File write error
	ErrCodeStoreFailed       = "E008" // Snapshot store error
	ErrCodeStoreNotFound     = "E009" // No stored snapshot with that name

	// Query configuration errors
	ErrCodeMissingSource     = "E101"
	ErrCodeMissingVariable   = "E102"
	ErrCodeMissingCollection = "E103"
	ErrCodeNegativeLimit     = "E104"
	ErrCodeNegativeOffset    = "E105"
	ErrCodeOffsetNoLimit     = "E106"
	ErrCodeInvalidIdentifier = "E110"
	ErrCodeInvalidOperator   = "E111"
	ErrCodeInvalidDirection  = "E112"
	ErrCodeInvalidValue      = "E113"
	ErrCodeKeepWithoutInto   = "E114"
	ErrCodeEmptyQuery        = "E115"
	ErrCodeUnsupportedNode   = "E116"
	ErrCodeBuilderMisuse     = "E117"

	// Snapshot decoding errors
	ErrCodeSerialization = "E120"
)

// MapConfigurationCode maps a query configuration error code to a CLI code.
func MapConfigurationCode(code queryir.ConfigErrorCode) string {
	switch code {
	case queryir.ErrCodeMissingSource:
		return ErrCodeMissingSource
	case queryir.ErrCodeMissingVariable:
		return ErrCodeMissingVariable
	case queryir.ErrCodeMissingCollection:
		return ErrCodeMissingCollection
	case queryir.ErrCodeNegativeLimit:
		return ErrCodeNegativeLimit
	case queryir.ErrCodeNegativeOffset:
		return ErrCodeNegativeOffset
	case queryir.ErrCodeOffsetWithoutLimit:
		return ErrCodeOffsetNoLimit
	case queryir.ErrCodeInvalidIdentifier:
		return ErrCodeInvalidIdentifier
	case queryir.ErrCodeInvalidOperator:
		return ErrCodeInvalidOperator
	case queryir.ErrCodeInvalidDirection:
		return ErrCodeInvalidDirection
	case queryir.ErrCodeInvalidValue:
		return ErrCodeInvalidValue
	case queryir.ErrCodeKeepWithoutInto:
		return ErrCodeKeepWithoutInto
	case queryir.ErrCodeEmptyQuery:
		return ErrCodeEmptyQuery
	case queryir.ErrCodeUnsupportedNode:
		return ErrCodeUnsupportedNode
	case queryir.ErrCodeBuilderMisuse:
		return ErrCodeBuilderMisuse
	default:
		return ErrCodeGeneric
	}
}
