package equipment

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorKind discriminates the failure classes of the ingestion and
// report pipeline.
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	KindUnsupportedFormat
	KindEmptyInput
	KindMissingColumns
	KindNoValidData
	KindDatasetNotFound
	KindReportGenerationFailed
)

func (k ErrorKind) String() string {
	switch k {
	case KindUnsupportedFormat:
		return "unsupported_format"
	case KindEmptyInput:
		return "empty_input"
	case KindMissingColumns:
		return "missing_columns"
	case KindNoValidData:
		return "no_valid_data"
	case KindDatasetNotFound:
		return "dataset_not_found"
	case KindReportGenerationFailed:
		return "report_generation_failed"
	default:
		return "unknown"
	}
}

// Error is a pipeline failure. Missing is only set for KindMissingColumns.
type Error struct {
	Kind    ErrorKind
	Msg     string
	Missing []string
	Err     error
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Msg != "" {
		b.WriteString(e.Msg)
	} else {
		b.WriteString(strings.ReplaceAll(e.Kind.String(), "_", " "))
	}
	if len(e.Missing) > 0 {
		b.WriteString(": ")
		b.WriteString(strings.Join(e.Missing, ", "))
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is an *Error of the same kind, so the
// sentinels below match any error of their kind regardless of payload.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// Sentinels for use with errors.Is.
var (
	ErrUnsupportedFormat      = &Error{Kind: KindUnsupportedFormat}
	ErrEmptyInput             = &Error{Kind: KindEmptyInput}
	ErrMissingColumns         = &Error{Kind: KindMissingColumns}
	ErrNoValidData            = &Error{Kind: KindNoValidData}
	ErrDatasetNotFound        = &Error{Kind: KindDatasetNotFound}
	ErrReportGenerationFailed = &Error{Kind: KindReportGenerationFailed}
)

// UnsupportedFormat builds a KindUnsupportedFormat error.
func UnsupportedFormat(cause error, format string, args ...interface{}) error {
	return &Error{Kind: KindUnsupportedFormat, Msg: fmt.Sprintf(format, args...), Err: cause}
}

// EmptyInput builds a KindEmptyInput error.
func EmptyInput(msg string) error {
	return &Error{Kind: KindEmptyInput, Msg: msg}
}

// MissingColumns builds a KindMissingColumns error listing the absent names.
func MissingColumns(missing []string) error {
	return &Error{
		Kind:    KindMissingColumns,
		Msg:     "missing required columns",
		Missing: append([]string(nil), missing...),
	}
}

// NoValidData builds a KindNoValidData error.
func NoValidData(msg string) error {
	return &Error{Kind: KindNoValidData, Msg: msg}
}

// DatasetNotFound builds a KindDatasetNotFound error for id.
func DatasetNotFound(id string) error {
	return &Error{Kind: KindDatasetNotFound, Msg: fmt.Sprintf("dataset %s not found", id)}
}

// ReportGenerationFailed wraps cause as a KindReportGenerationFailed error.
func ReportGenerationFailed(cause error) error {
	return &Error{Kind: KindReportGenerationFailed, Msg: "failed to generate report", Err: cause}
}

// KindOf returns the kind of the first *Error in err's chain, or
// KindUnknown.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// MissingOf returns the missing-column payload of err, if any.
func MissingOf(err error) []string {
	var e *Error
	if errors.As(err, &e) {
		return e.Missing
	}
	return nil
}
