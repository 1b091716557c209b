package id_test

import (
	"encoding/json"
	"slices"
	"strings"
	"testing"

	"github.com/xraph/docket/id"
)

func TestConstructors(t *testing.T) {
	tests := []struct {
		name   string
		newFn  func() id.ID
		parse  func(string) (id.ID, error)
		prefix string
	}{
		{"ClientID", id.NewClientID, id.ParseClientID, "cli_"},
		{"MatterID", id.NewMatterID, id.ParseMatterID, "mat_"},
		{"TimeEntryID", id.NewTimeEntryID, id.ParseTimeEntryID, "te_"},
		{"InvoiceID", id.NewInvoiceID, id.ParseInvoiceID, "inv_"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			original := tt.newFn()
			if !strings.HasPrefix(original.String(), tt.prefix) {
				t.Fatalf("expected prefix %q, got %q", tt.prefix, original.String())
			}
			parsed, err := tt.parse(original.String())
			if err != nil {
				t.Fatalf("parse failed: %v", err)
			}
			if parsed != original {
				t.Errorf("round-trip mismatch: %q != %q", parsed, original)
			}
		})
	}
}

func TestCrossTypeRejection(t *testing.T) {
	matterID := id.NewMatterID().String()
	if _, err := id.ParseInvoiceID(matterID); err == nil {
		t.Errorf("expected ParseInvoiceID to reject %q", matterID)
	}
}

func TestParseInvalid(t *testing.T) {
	for _, s := range []string{"", "not-an-id", "inv_"} {
		if _, err := id.Parse(s); err == nil {
			t.Errorf("expected error for %q", s)
		}
	}
}

func TestNil(t *testing.T) {
	var i id.ID
	if !i.IsNil() || i.String() != "" || i.Prefix() != "" {
		t.Errorf("zero ID not nil: %q", i)
	}
	v, err := i.Value()
	if err != nil || v != nil {
		t.Errorf("Value of Nil: got %v, %v", v, err)
	}
}

func TestCompareFollowsCreationOrder(t *testing.T) {
	a := id.NewTimeEntryID()
	b := id.NewTimeEntryID()
	c := id.NewTimeEntryID()

	got := []id.ID{c, a, b}
	slices.SortFunc(got, id.Compare)
	if !slices.Equal(got, []id.ID{a, b, c}) {
		t.Errorf("unexpected order: %v", id.Strings(got))
	}
}

func TestScan(t *testing.T) {
	want := id.NewInvoiceID()

	var fromString, fromBytes, fromNil id.ID
	if err := fromString.Scan(want.String()); err != nil || fromString != want {
		t.Errorf("scan string: %v %v", fromString, err)
	}
	if err := fromBytes.Scan([]byte(want.String())); err != nil || fromBytes != want {
		t.Errorf("scan bytes: %v %v", fromBytes, err)
	}
	if err := fromNil.Scan(nil); err != nil || !fromNil.IsNil() {
		t.Errorf("scan nil: %v %v", fromNil, err)
	}
	if err := fromNil.Scan(42); err == nil {
		t.Error("expected error scanning int")
	}
}

func TestJSONField(t *testing.T) {
	type doc struct {
		InvoiceID id.ID `json:"invoice_id"`
	}
	want := id.NewInvoiceID()
	data, err := json.Marshal(doc{InvoiceID: want})
	if err != nil {
		t.Fatal(err)
	}
	var got doc
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatal(err)
	}
	if got.InvoiceID != want {
		t.Errorf("got %q, want %q", got.InvoiceID, want)
	}
}
