package metainfo

import (
	"fmt"
	"strconv"
	"time"
)

// Kind discriminates the closed set of metainfo value types.
type Kind string

const (
	KindString        Kind = "string"
	KindInteger       Kind = "integer"
	KindDecimal       Kind = "decimal"
	KindBoolean       Kind = "boolean"
	KindDateTime      Kind = "datetime"
	KindMemorySize    Kind = "memorySize"
	KindExternalLink  Kind = "externalLink"
	KindFileReference Kind = "fileReference"
	KindEmpty         Kind = "empty"
)

// Value is a single metainfo value. Multi-valued keys hold a []Value.
type Value interface {
	Kind() Kind
	// String renders the value the way the platform displays it.
	String() string
}

type StringValue struct {
	Value string
}

func (v StringValue) Kind() Kind     { return KindString }
func (v StringValue) String() string { return v.Value }

type IntegerValue struct {
	Value int64
}

func (v IntegerValue) Kind() Kind     { return KindInteger }
func (v IntegerValue) String() string { return strconv.FormatInt(v.Value, 10) }

// DecimalValue keeps the literal text so precision survives round-trips.
type DecimalValue struct {
	Value string
}

func (v DecimalValue) Kind() Kind     { return KindDecimal }
func (v DecimalValue) String() string { return v.Value }

type BooleanValue struct {
	Value bool
}

func (v BooleanValue) Kind() Kind     { return KindBoolean }
func (v BooleanValue) String() string { return strconv.FormatBool(v.Value) }

// DateTimeValue stores milliseconds since the Unix epoch, UTC.
type DateTimeValue struct {
	Millis int64
}

func (v DateTimeValue) Kind() Kind { return KindDateTime }

func (v DateTimeValue) Time() time.Time {
	return time.UnixMilli(v.Millis).UTC()
}

func (v DateTimeValue) String() string {
	return v.Time().Format("2006-01-02 15:04:05")
}

// MemorySizeValue is a byte count.
type MemorySizeValue struct {
	Bytes int64
}

func (v MemorySizeValue) Kind() Kind     { return KindMemorySize }
func (v MemorySizeValue) String() string { return strconv.FormatInt(v.Bytes, 10) }

// ExternalLink points at data outside the platform's storage.
type ExternalLink struct {
	Text   string
	URL    string
	Format map[string]string
}

func (v ExternalLink) Kind() Kind     { return KindExternalLink }
func (v ExternalLink) String() string { return v.URL }

// Reference directions as the platform records them.
const (
	DirectionSource = "SOURCE"
	DirectionResult = "RESULT"
	DirectionLink   = "LINK"
)

// FileReference points at another platform-managed file by accession.
type FileReference struct {
	Accession string
	Direction string
}

func (v FileReference) Kind() Kind     { return KindFileReference }
func (v FileReference) String() string { return v.Accession }

// EmptyValue marks a key as present with no content.
type EmptyValue struct{}

func (v EmptyValue) Kind() Kind     { return KindEmpty }
func (v EmptyValue) String() string { return "" }

// NewDateTime builds a DateTimeValue from a time.
func NewDateTime(t time.Time) DateTimeValue {
	return DateTimeValue{Millis: t.UnixMilli()}
}

// NewExternalLink validates the URL scheme and builds a link value.
func NewExternalLink(text, url string, format map[string]string) (ExternalLink, error) {
	if err := ValidateLinkURL(url); err != nil {
		return ExternalLink{}, fmt.Errorf("external link %q: %w", url, err)
	}
	return ExternalLink{Text: text, URL: url, Format: format}, nil
}
