// Package id defines the TypeID-based identifiers used by every Docket
// record.
//
// An ID has the form "prefix_suffix" where the prefix names the entity
// type and the suffix is a UUIDv7, so IDs are globally unique and sort by
// creation time.
package id

import (
	"database/sql/driver"
	"fmt"
	"strings"

	"go.jetify.com/typeid/v2"
)

// Prefix identifies the entity type encoded in a TypeID.
type Prefix string

const (
	PrefixClient    Prefix = "cli" // Client of the firm
	PrefixMatter    Prefix = "mat" // Legal matter
	PrefixTimeEntry Prefix = "te"  // Logged unit of work
	PrefixInvoice   Prefix = "inv" // Invoice
	PrefixLineItem  Prefix = "li"  // Invoice line item
)

// ID is a prefix-qualified, sortable, URL-safe identifier.
//
//nolint:recvcheck // Value receivers for read-only methods, pointer receivers for UnmarshalText/Scan.
type ID struct {
	inner typeid.TypeID
	valid bool
}

// Nil is the zero-value ID.
var Nil ID

// New generates an ID with the given prefix. It panics on an invalid
// prefix, which is a programming error.
func New(prefix Prefix) ID {
	tid, err := typeid.Generate(string(prefix))
	if err != nil {
		panic(fmt.Sprintf("id: invalid prefix %q: %v", prefix, err))
	}
	return ID{inner: tid, valid: true}
}

// Parse parses any TypeID string.
func Parse(s string) (ID, error) {
	if s == "" {
		return Nil, fmt.Errorf("id: parse %q: empty string", s)
	}
	tid, err := typeid.Parse(s)
	if err != nil {
		return Nil, fmt.Errorf("id: parse %q: %w", s, err)
	}
	return ID{inner: tid, valid: true}, nil
}

// ParseWithPrefix parses s and requires its prefix to be expected.
func ParseWithPrefix(s string, expected Prefix) (ID, error) {
	parsed, err := Parse(s)
	if err != nil {
		return Nil, err
	}
	if parsed.Prefix() != expected {
		return Nil, fmt.Errorf("id: expected prefix %q, got %q", expected, parsed.Prefix())
	}
	return parsed, nil
}

// MustParse is like Parse but panics on error. Use for hardcoded values.
func MustParse(s string) ID {
	parsed, err := Parse(s)
	if err != nil {
		panic(fmt.Sprintf("id: must parse %q: %v", s, err))
	}
	return parsed
}

// Aliases documenting which prefix a field expects.
type (
	ClientID    = ID
	MatterID    = ID
	TimeEntryID = ID
	InvoiceID   = ID
	LineItemID  = ID
)

func NewClientID() ID    { return New(PrefixClient) }
func NewMatterID() ID    { return New(PrefixMatter) }
func NewTimeEntryID() ID { return New(PrefixTimeEntry) }
func NewInvoiceID() ID   { return New(PrefixInvoice) }
func NewLineItemID() ID  { return New(PrefixLineItem) }

func ParseClientID(s string) (ID, error)    { return ParseWithPrefix(s, PrefixClient) }
func ParseMatterID(s string) (ID, error)    { return ParseWithPrefix(s, PrefixMatter) }
func ParseTimeEntryID(s string) (ID, error) { return ParseWithPrefix(s, PrefixTimeEntry) }
func ParseInvoiceID(s string) (ID, error)   { return ParseWithPrefix(s, PrefixInvoice) }

// String returns "prefix_suffix", or "" for Nil.
func (i ID) String() string {
	if !i.valid {
		return ""
	}
	return i.inner.String()
}

// Prefix returns the prefix component of this ID.
func (i ID) Prefix() Prefix {
	if !i.valid {
		return ""
	}
	return Prefix(i.inner.Prefix())
}

// IsNil reports whether this ID is the zero value.
func (i ID) IsNil() bool { return !i.valid }

// Compare orders IDs by their string form. Within one prefix this is
// creation order. Stores claim rows in this order so that competing
// claimers always contend on the same first row.
func Compare(a, b ID) int {
	return strings.Compare(a.String(), b.String())
}

// Strings renders ids with String.
func Strings(ids []ID) []string {
	out := make([]string, len(ids))
	for n, i := range ids {
		out[n] = i.String()
	}
	return out
}

// MarshalText implements encoding.TextMarshaler.
func (i ID) MarshalText() ([]byte, error) {
	return []byte(i.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (i *ID) UnmarshalText(data []byte) error {
	if len(data) == 0 {
		*i = Nil
		return nil
	}
	parsed, err := Parse(string(data))
	if err != nil {
		return err
	}
	*i = parsed
	return nil
}

// Value implements driver.Valuer; Nil is stored as NULL.
func (i ID) Value() (driver.Value, error) {
	if !i.valid {
		return nil, nil //nolint:nilnil // nil is the canonical NULL for driver.Valuer
	}
	return i.inner.String(), nil
}

// Scan implements sql.Scanner.
func (i *ID) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*i = Nil
		return nil
	case string:
		return i.UnmarshalText([]byte(v))
	case []byte:
		return i.UnmarshalText(v)
	default:
		return fmt.Errorf("id: cannot scan %T into ID", src)
	}
}
