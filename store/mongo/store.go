package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/mongodriver"

	"github.com/xraph/docket"
	"github.com/xraph/docket/id"
	"github.com/xraph/docket/invoice"
	"github.com/xraph/docket/matter"
	docketstore "github.com/xraph/docket/store"
	"github.com/xraph/docket/timeentry"
)

// Collection name constants.
const (
	colClients     = "docket_clients"
	colMatters     = "docket_matters"
	colTimeEntries = "docket_time_entries"
	colInvoices    = "docket_invoices"
	colCounters    = "docket_counters"
)

// invoiceCounter is the docket_counters document backing invoice numbers.
const invoiceCounter = "invoice_number"

// releaseTimeout bounds the compensating write that frees claimed entries
// after a failed invoice insert.
const releaseTimeout = 5 * time.Second

// compile-time interface check
var _ docketstore.Store = (*Store)(nil)

// Store implements store.Store using MongoDB via Grove ORM.
//
// Claims are a single UpdateMany filtered on an empty invoice_id; each
// document update is atomic, so an entry can be claimed once. Without
// multi-document transactions, a claim that loses a race and an invoice
// insert that fails are undone by releasing only the entries the call
// itself claimed. A unique index on number rejects reused invoice numbers.
type Store struct {
	db  *grove.DB
	mdb *mongodriver.MongoDB
}

// New creates a new MongoDB store backed by Grove ORM.
func New(db *grove.DB) *Store {
	return &Store{
		db:  db,
		mdb: mongodriver.Unwrap(db),
	}
}

// DB returns the underlying grove database for direct access.
func (s *Store) DB() *grove.DB { return s.db }

// Migrate creates indexes for all docket collections.
func (s *Store) Migrate(ctx context.Context) error {
	indexes := migrationIndexes()

	for col, models := range indexes {
		if len(models) == 0 {
			continue
		}
		_, err := s.mdb.Collection(col).Indexes().CreateMany(ctx, models)
		if err != nil {
			return fmt.Errorf("docket/mongo: migrate %s indexes: %w", col, err)
		}
	}
	return nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// ==================== Client / Matter Store ====================

func (s *Store) CreateClient(ctx context.Context, c *matter.Client) error {
	_, err := s.mdb.NewInsert(toClientModel(c)).Exec(ctx)
	if err != nil {
		return fmt.Errorf("docket/mongo: create client: %w", err)
	}
	return nil
}

func (s *Store) GetClient(ctx context.Context, clientID id.ClientID) (*matter.Client, error) {
	var m clientModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": clientID.String()}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, docket.ErrClientNotFound
		}
		return nil, fmt.Errorf("docket/mongo: get client: %w", err)
	}
	return fromClientModel(&m)
}

func (s *Store) CreateMatter(ctx context.Context, mt *matter.Matter) error {
	m, err := toMatterModel(mt)
	if err != nil {
		return err
	}
	if _, err := s.mdb.NewInsert(m).Exec(ctx); err != nil {
		return fmt.Errorf("docket/mongo: create matter: %w", err)
	}
	return nil
}

func (s *Store) GetMatter(ctx context.Context, matterID id.MatterID) (*matter.Matter, error) {
	var m matterModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": matterID.String()}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, docket.ErrMatterNotFound
		}
		return nil, fmt.Errorf("docket/mongo: get matter: %w", err)
	}
	return fromMatterModel(&m)
}

func (s *Store) UpdateMatter(ctx context.Context, mt *matter.Matter) error {
	m, err := toMatterModel(mt)
	if err != nil {
		return err
	}
	m.UpdatedAt = now()

	res, err := s.mdb.NewUpdate(m).
		Filter(bson.M{"_id": m.ID}).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("docket/mongo: update matter: %w", err)
	}
	if res.MatchedCount() == 0 {
		return docket.ErrMatterNotFound
	}
	return nil
}

// ==================== Time Entry Store ====================

func (s *Store) CreateTimeEntry(ctx context.Context, e *timeentry.TimeEntry) error {
	_, err := s.mdb.NewInsert(toTimeEntryModel(e)).Exec(ctx)
	if err != nil {
		return fmt.Errorf("docket/mongo: create time entry: %w", err)
	}
	return nil
}

func (s *Store) GetTimeEntry(ctx context.Context, entryID id.TimeEntryID) (*timeentry.TimeEntry, error) {
	var m timeEntryModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": entryID.String()}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, docket.ErrTimeEntryNotFound
		}
		return nil, fmt.Errorf("docket/mongo: get time entry: %w", err)
	}
	return fromTimeEntryModel(&m)
}

func (s *Store) ListUnbilled(ctx context.Context, matterID id.MatterID) ([]*timeentry.TimeEntry, error) {
	var models []timeEntryModel
	err := s.mdb.NewFind(&models).
		Filter(bson.M{
			"matter_id":  matterID.String(),
			"billable":   true,
			"invoice_id": "",
		}).
		Sort(bson.D{{Key: "entry_date", Value: 1}, {Key: "_id", Value: 1}}).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("docket/mongo: list unbilled: %w", err)
	}

	result := make([]*timeentry.TimeEntry, len(models))
	for i := range models {
		e, err := fromTimeEntryModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = e
	}
	return result, nil
}

func (s *Store) MarkInvoiced(ctx context.Context, entryIDs []id.TimeEntryID, invoiceID id.InvoiceID, at time.Time) error {
	return s.claim(ctx, entryIDs, invoiceID, at)
}

// claim sets invoice_id on every entry in entryIDs that is still unclaimed.
//
// MongoDB only offers multi-document transactions on replica sets, so the
// claim is a saga: the entries are checked, claimed with one UpdateMany,
// and if a concurrent writer won any of them, the entries this call
// claimed are released again. Entries claimed before the call are never
// touched.
func (s *Store) claim(ctx context.Context, entryIDs []id.TimeEntryID, invoiceID id.InvoiceID, at time.Time) error {
	if len(entryIDs) == 0 {
		return nil
	}
	if err := s.claimConflict(ctx, entryIDs); !errors.Is(err, errNoConflict) {
		return err
	}

	res, err := s.mdb.Collection(colTimeEntries).UpdateMany(ctx,
		bson.M{"_id": bson.M{"$in": id.Strings(entryIDs)}, "invoice_id": ""},
		bson.M{"$set": bson.M{"invoice_id": invoiceID.String(), "updated_at": at.UTC()}},
	)
	if err != nil {
		return fmt.Errorf("docket/mongo: claim entries: %w", err)
	}
	if res.ModifiedCount == int64(len(entryIDs)) {
		return nil
	}

	if err := s.release(ctx, entryIDs, invoiceID); err != nil {
		return err
	}
	if err := s.claimConflict(ctx, entryIDs); !errors.Is(err, errNoConflict) {
		return err
	}
	return docket.ErrEntryAlreadyInvoiced
}

// release frees the entries of entryIDs claimed for invoiceID. Callers
// pass only entries that were unclaimed before their own claim. It runs
// even when ctx is already done.
func (s *Store) release(ctx context.Context, entryIDs []id.TimeEntryID, invoiceID id.InvoiceID) error {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), releaseTimeout)
	defer cancel()

	_, err := s.mdb.Collection(colTimeEntries).UpdateMany(ctx,
		bson.M{"_id": bson.M{"$in": id.Strings(entryIDs)}, "invoice_id": invoiceID.String()},
		bson.M{"$set": bson.M{"invoice_id": "", "updated_at": now()}},
	)
	if err != nil {
		return fmt.Errorf("docket/mongo: release claims of %s: %w", invoiceID, err)
	}
	return nil
}

// errNoConflict reports that every entry exists and is unclaimed.
var errNoConflict = errors.New("docket/mongo: no claim conflict")

// claimConflict reports the first missing entry, or every entry of
// entryIDs that is already claimed. It returns errNoConflict when the
// whole set is claimable.
func (s *Store) claimConflict(ctx context.Context, entryIDs []id.TimeEntryID) error {
	var models []timeEntryModel
	err := s.mdb.NewFind(&models).
		Filter(bson.M{"_id": bson.M{"$in": id.Strings(entryIDs)}}).
		Scan(ctx)
	if err != nil {
		return fmt.Errorf("docket/mongo: read claimed entries: %w", err)
	}

	claimed := make(map[string]bool, len(models))
	for i := range models {
		claimed[models[i].ID] = models[i].InvoiceID != ""
	}

	var taken []id.ID
	for _, eid := range entryIDs {
		isClaimed, found := claimed[eid.String()]
		if !found {
			return docket.ErrTimeEntryNotFound.WithID(eid)
		}
		if isClaimed {
			taken = append(taken, eid)
		}
	}
	if len(taken) == 0 {
		return errNoConflict
	}
	return docket.EntriesAlreadyInvoiced(taken...)
}

// ==================== Invoice Store ====================

// NextInvoiceNumber atomically increments the invoice_number counter,
// creating it on first use.
func (s *Store) NextInvoiceNumber(ctx context.Context) (int64, error) {
	var doc struct {
		Value int64 `bson:"value"`
	}
	err := s.mdb.Collection(colCounters).FindOneAndUpdate(ctx,
		bson.M{"_id": invoiceCounter},
		bson.M{"$inc": bson.M{"value": int64(1)}},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&doc)
	if err != nil {
		return 0, fmt.Errorf("docket/mongo: next invoice number: %w", err)
	}
	return doc.Value, nil
}

// CreateInvoice claims the entries and then inserts the invoice. A failed
// insert releases the claim.
func (s *Store) CreateInvoice(ctx context.Context, inv *invoice.Invoice) error {
	if err := s.claim(ctx, inv.TimeEntryIDs, inv.ID, inv.UpdatedAt); err != nil {
		return err
	}

	_, err := s.mdb.NewInsert(toInvoiceModel(inv)).Exec(ctx)
	if err == nil {
		return nil
	}
	if len(inv.TimeEntryIDs) > 0 {
		if relErr := s.release(ctx, inv.TimeEntryIDs, inv.ID); relErr != nil {
			return errors.Join(fmt.Errorf("docket/mongo: create invoice: %w", err), relErr)
		}
	}
	if mongo.IsDuplicateKeyError(err) {
		return docket.ErrDuplicateNumber
	}
	return fmt.Errorf("docket/mongo: create invoice: %w", err)
}

func (s *Store) GetInvoice(ctx context.Context, invID id.InvoiceID) (*invoice.Invoice, error) {
	var m invoiceModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": invID.String()}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, docket.ErrInvoiceNotFound
		}
		return nil, fmt.Errorf("docket/mongo: get invoice: %w", err)
	}
	return fromInvoiceModel(&m)
}

func (s *Store) ListInvoices(ctx context.Context, matterID id.MatterID, opts invoice.ListOpts) ([]*invoice.Invoice, error) {
	var models []invoiceModel

	filter := bson.M{"matter_id": matterID.String()}
	if opts.Status != "" {
		filter["status"] = string(opts.Status)
	}

	q := s.mdb.NewFind(&models).
		Filter(filter).
		Sort(bson.D{{Key: "number", Value: 1}})

	if opts.Limit > 0 {
		q = q.Limit(int64(opts.Limit))
	}
	if opts.Offset > 0 {
		q = q.Skip(int64(opts.Offset))
	}

	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("docket/mongo: list invoices: %w", err)
	}
	return fromInvoiceModels(models)
}

func (s *Store) UpdateInvoiceStatus(ctx context.Context, invID id.InvoiceID, from, to invoice.Status, at time.Time) error {
	t := at.UTC()
	set := bson.M{"status": string(to), "updated_at": t}
	if col := invoice.StatusColumn(to); col != "" {
		set[col] = t
	}

	res, err := s.mdb.NewUpdate((*invoiceModel)(nil)).
		Filter(bson.M{"_id": invID.String(), "status": string(from)}).
		SetUpdate(bson.M{"$set": set}).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("docket/mongo: update invoice status: %w", err)
	}
	if res.MatchedCount() > 0 {
		return nil
	}

	if _, err := s.GetInvoice(ctx, invID); err != nil {
		return err
	}
	return docket.ErrStatusChanged
}

func (s *Store) SetInvoiceExport(ctx context.Context, invID id.InvoiceID, exp invoice.Export) error {
	res, err := s.mdb.NewUpdate((*invoiceModel)(nil)).
		Filter(bson.M{"_id": invID.String()}).
		Set("export", exportModel{URL: exp.URL, FileName: exp.FileName, ExportedAt: exp.ExportedAt.UTC()}).
		Set("updated_at", now()).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("docket/mongo: set invoice export: %w", err)
	}
	if res.MatchedCount() == 0 {
		return docket.ErrInvoiceNotFound
	}
	return nil
}

func (s *Store) ListOverdueCandidates(ctx context.Context, asOf time.Time) ([]*invoice.Invoice, error) {
	var models []invoiceModel
	err := s.mdb.NewFind(&models).
		Filter(bson.M{
			"status":   bson.M{"$in": bson.A{string(invoice.StatusDraft), string(invoice.StatusSent)}},
			"due_date": bson.M{"$lt": asOf.UTC()},
		}).
		Sort(bson.D{{Key: "number", Value: 1}}).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("docket/mongo: list overdue candidates: %w", err)
	}
	return fromInvoiceModels(models)
}

// ==================== Helpers ====================

// now returns the current UTC time.
func now() time.Time {
	return time.Now().UTC()
}

// isNoDocuments checks if an error wraps mongo.ErrNoDocuments.
func isNoDocuments(err error) bool {
	return errors.Is(err, mongo.ErrNoDocuments)
}

func fromInvoiceModels(models []invoiceModel) ([]*invoice.Invoice, error) {
	result := make([]*invoice.Invoice, len(models))
	for i := range models {
		inv, err := fromInvoiceModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = inv
	}
	return result, nil
}

// migrationIndexes returns the index definitions for all docket collections.
func migrationIndexes() map[string][]mongo.IndexModel {
	return map[string][]mongo.IndexModel{
		colClients: {
			{Keys: bson.D{{Key: "name", Value: 1}}},
		},
		colMatters: {
			{Keys: bson.D{{Key: "client_id", Value: 1}}},
		},
		colTimeEntries: {
			{Keys: bson.D{{Key: "matter_id", Value: 1}, {Key: "invoice_id", Value: 1}, {Key: "entry_date", Value: 1}}},
			{Keys: bson.D{{Key: "invoice_id", Value: 1}}},
		},
		colInvoices: {
			{
				Keys:    bson.D{{Key: "number", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
			{Keys: bson.D{{Key: "matter_id", Value: 1}, {Key: "number", Value: 1}}},
			{Keys: bson.D{{Key: "status", Value: 1}, {Key: "due_date", Value: 1}}},
		},
	}
}
