// Package docket provides the time and billing ledger of a law-firm
// practice: billable time against matters, frozen invoices with globally
// unique numbers, the invoice lifecycle and durable PDF export.
//
// Docket is a library, not a service. It is imported into a host
// application and runs against one of the bundled stores:
//
//   - Hourly and flat-fee matters as a tagged billing variant
//   - Integer money arithmetic with round-half-up pricing
//   - One atomic operation that persists an invoice and claims its entries
//   - Storage-level invoice numbering, safe across processes
//   - Compare-and-swap status transitions and a background overdue sweep
//   - Deterministic PDF rendering with idempotent, retried uploads
//
// # Quick Start
//
//	import (
//	    "github.com/xraph/docket"
//	    blobfs "github.com/xraph/docket/blob/fs"
//	    "github.com/xraph/docket/store/postgres"
//	)
//
//	s := postgres.New(db)
//	blobs, err := blobfs.New("/var/lib/docket/invoices", "https://files.example.com/invoices")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	engine := docket.New(s, docket.WithBlobStore(blobs))
//	if err := engine.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer engine.Stop()
//
// # Billing flow
//
// Work is recorded against a matter. Each entry carries the rate in force
// when it was logged:
//
//	rate := docket.USD(25000) // $250.00 per hour
//	entry, err := engine.RecordTimeEntry(ctx, docket.TimeEntryInput{
//	    MatterID:        matterID,
//	    Description:     "Draft statement of claim",
//	    DurationMinutes: 120,
//	    HourlyRate:      &rate,
//	    Billable:        true,
//	    EntryDate:       time.Now(),
//	})
//
// Unbilled entries are turned into a draft invoice. The entries are claimed
// in the same atomic step; a second invoice over any of them fails with a
// ConflictError:
//
//	inv, err := engine.CreateInvoice(ctx, docket.InvoiceInput{
//	    MatterID:     matterID,
//	    ClientID:     clientID,
//	    TimeEntryIDs: []id.TimeEntryID{entry.ID},
//	    DueDate:      time.Now().AddDate(0, 0, 30),
//	})
//
// Invoices then move through draft, sent, paid, overdue and void:
//
//	inv, err = engine.UpdateInvoiceStatus(ctx, inv.ID, invoice.StatusSent)
//	exp, err := engine.ExportInvoicePDF(ctx, inv.ID)
//
// # Errors
//
// Failures are reported through a small taxonomy checked with errors.Is:
// ErrInvalidInput (ValidationError), ErrNotFound (NotFoundError),
// ErrConflict (ConflictError), ErrInvalidTransition and ErrUnavailable
// (UnavailableError). Only unavailable errors are worth retrying.
//
// # TypeID
//
// All entities use TypeID identifiers:
//
//	mat_01h2xcejqtf2nbrexx3vqjhp41  // Matter ID
//	te_01h2xcejqtf2nbrexx3vqjhp41   // Time entry ID
//	inv_01h455vb4pex5vsknk084sn02q  // Invoice ID
package docket
