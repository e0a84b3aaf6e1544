package model

import "fmt"

// MetadataError is a fatal problem with the metadata of a single table.
// Processing of the affected target stops; other targets are unaffected.
type MetadataError struct {
	Table   string // full name of the offending table, may be empty
	Message string
}

func (e *MetadataError) Error() string {
	if e.Table != "" {
		return fmt.Sprintf("%s: %s", e.Table, e.Message)
	}
	return e.Message
}

// NewMetadataErrorf creates a MetadataError for the given table.
func NewMetadataErrorf(table, format string, args ...any) *MetadataError {
	return &MetadataError{Table: table, Message: fmt.Sprintf(format, args...)}
}

// MetadataWarning is an advisory anomaly. The table stays usable but some
// derived roles are empty.
type MetadataWarning struct {
	Table   string
	Message string
}

func (w *MetadataWarning) Error() string {
	if w.Table != "" {
		return fmt.Sprintf("%s: %s", w.Table, w.Message)
	}
	return w.Message
}

// NewMetadataWarningf creates a MetadataWarning for the given table.
func NewMetadataWarningf(table, format string, args ...any) *MetadataWarning {
	return &MetadataWarning{Table: table, Message: fmt.Sprintf(format, args...)}
}
