package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/sqlitedriver"
	"github.com/xraph/grove/migrate"

	"github.com/xraph/docket"
	"github.com/xraph/docket/id"
	"github.com/xraph/docket/invoice"
	"github.com/xraph/docket/matter"
	docketstore "github.com/xraph/docket/store"
	"github.com/xraph/docket/timeentry"
)

// compile-time interface check
var _ docketstore.Store = (*Store)(nil)

// invoiceSequence is the docket_sequences row backing invoice numbers.
const invoiceSequence = "invoice_number"

// Store implements store.Store using SQLite via Grove ORM.
//
// Claims and invoice inserts run in one transaction. Concurrent writers
// wait on SQLite's write lock, so open the database with a busy timeout,
// e.g. "file:docket.db?_pragma=busy_timeout(5000)".
type Store struct {
	db  *grove.DB
	sdb *sqlitedriver.SqliteDB
}

// New creates a new SQLite store backed by Grove ORM.
func New(db *grove.DB) *Store {
	return &Store{
		db:  db,
		sdb: sqlitedriver.Unwrap(db),
	}
}

// DB returns the underlying grove database for direct access.
func (s *Store) DB() *grove.DB { return s.db }

// Migrate creates the required tables and indexes using the grove orchestrator.
func (s *Store) Migrate(ctx context.Context) error {
	executor, err := migrate.NewExecutorFor(s.sdb)
	if err != nil {
		return fmt.Errorf("docket/sqlite: create migration executor: %w", err)
	}
	orch := migrate.NewOrchestrator(executor, Migrations)
	if _, err := orch.Migrate(ctx); err != nil {
		return fmt.Errorf("docket/sqlite: migration failed: %w", err)
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
	_, err := s.sdb.NewInsert(toClientModel(c)).Exec(ctx)
	return err
}

func (s *Store) GetClient(ctx context.Context, clientID id.ClientID) (*matter.Client, error) {
	m := new(clientModel)
	err := s.sdb.NewSelect(m).
		Where("id = ?", clientID.String()).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, docket.ErrClientNotFound
		}
		return nil, err
	}
	return fromClientModel(m)
}

func (s *Store) CreateMatter(ctx context.Context, mt *matter.Matter) error {
	m, err := toMatterModel(mt)
	if err != nil {
		return err
	}
	_, err = s.sdb.NewInsert(m).Exec(ctx)
	return err
}

func (s *Store) GetMatter(ctx context.Context, matterID id.MatterID) (*matter.Matter, error) {
	m := new(matterModel)
	err := s.sdb.NewSelect(m).
		Where("id = ?", matterID.String()).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, docket.ErrMatterNotFound
		}
		return nil, err
	}
	return fromMatterModel(m)
}

func (s *Store) UpdateMatter(ctx context.Context, mt *matter.Matter) error {
	m, err := toMatterModel(mt)
	if err != nil {
		return err
	}
	m.UpdatedAt = now()
	res, err := s.sdb.NewUpdate(m).WherePK().Exec(ctx)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return docket.ErrMatterNotFound
	}
	return nil
}

// ==================== Time Entry Store ====================

func (s *Store) CreateTimeEntry(ctx context.Context, e *timeentry.TimeEntry) error {
	_, err := s.sdb.NewInsert(toTimeEntryModel(e)).Exec(ctx)
	return err
}

func (s *Store) GetTimeEntry(ctx context.Context, entryID id.TimeEntryID) (*timeentry.TimeEntry, error) {
	m := new(timeEntryModel)
	err := s.sdb.NewSelect(m).
		Where("id = ?", entryID.String()).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, docket.ErrTimeEntryNotFound
		}
		return nil, err
	}
	return fromTimeEntryModel(m)
}

func (s *Store) ListUnbilled(ctx context.Context, matterID id.MatterID) ([]*timeentry.TimeEntry, error) {
	var models []timeEntryModel
	err := s.sdb.NewSelect(&models).
		Where("matter_id = ?", matterID.String()).
		Where("billable = ?", true).
		Where("invoice_id = ''").
		OrderExpr("entry_date ASC, id ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return fromTimeEntryModels(models)
}

func (s *Store) MarkInvoiced(ctx context.Context, entryIDs []id.TimeEntryID, invoiceID id.InvoiceID, at time.Time) error {
	if len(entryIDs) == 0 {
		return nil
	}
	err := s.inTx(ctx, func(q queryer) error {
		return claim(ctx, q, entryIDs, invoiceID, at)
	})
	if errors.Is(err, errPartialClaim) {
		return s.claimConflict(ctx, entryIDs)
	}
	return err
}

// errPartialClaim rolls back a claim that did not match every entry.
var errPartialClaim = errors.New("docket/sqlite: partial claim")

// queryer is satisfied by both *sqlitedriver.SqliteDB and
// *sqlitedriver.SqliteTx.
type queryer interface {
	NewSelect(model ...any) *sqlitedriver.SelectQuery
	NewInsert(model any) *sqlitedriver.InsertQuery
	NewUpdate(model any) *sqlitedriver.UpdateQuery
	NewRaw(query string, args ...any) *sqlitedriver.RawQuery
}

// inTx runs fn in a transaction, committing only if fn returns nil.
func (s *Store) inTx(ctx context.Context, fn func(q queryer) error) error {
	tx, err := s.sdb.BeginTxQuery(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return errors.Join(err, fmt.Errorf("docket/sqlite: rollback: %w", rbErr))
		}
		return err
	}
	return tx.Commit()
}

// claim sets invoice_id on every entry in entryIDs that is still
// unclaimed. It returns errPartialClaim unless all of them matched; the
// caller's transaction must then roll back.
func claim(ctx context.Context, q queryer, entryIDs []id.TimeEntryID, invoiceID id.InvoiceID, at time.Time) error {
	if len(entryIDs) == 0 {
		return nil
	}
	in, args := inClause(entryIDs)
	res, err := q.NewUpdate((*timeEntryModel)(nil)).
		Set("invoice_id = ?", invoiceID.String()).
		Set("updated_at = ?", at.UTC()).
		Where("invoice_id = ''").
		Where("id IN ("+in+")", args...).
		Exec(ctx)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows != int64(len(entryIDs)) {
		return errPartialClaim
	}
	return nil
}

// claimConflict explains why a claim on entryIDs did not match every row.
// It reads committed state after the claim was rolled back.
func (s *Store) claimConflict(ctx context.Context, entryIDs []id.TimeEntryID) error {
	in, args := inClause(entryIDs)
	var models []timeEntryModel
	err := s.sdb.NewSelect(&models).
		Where("id IN ("+in+")", args...).
		Scan(ctx)
	if err != nil {
		return err
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
		// The competing claim was rolled back before we looked.
		return docket.ErrEntryAlreadyInvoiced
	}
	return docket.EntriesAlreadyInvoiced(taken...)
}

// ==================== Invoice Store ====================

// NextInvoiceNumber increments the invoice_number sequence row.
func (s *Store) NextInvoiceNumber(ctx context.Context) (int64, error) {
	var n int64
	err := s.sdb.NewRaw(
		`UPDATE docket_sequences SET value = value + 1 WHERE name = ? RETURNING value`,
		invoiceSequence,
	).Scan(ctx, &n)
	if err != nil {
		if isNoRows(err) {
			return 0, fmt.Errorf("docket/sqlite: sequence %q missing, run Migrate", invoiceSequence)
		}
		return 0, err
	}
	return n, nil
}

// CreateInvoice inserts the invoice and claims its entries in one
// transaction. The insert runs first so the transaction takes the write
// lock on its first statement.
func (s *Store) CreateInvoice(ctx context.Context, inv *invoice.Invoice) error {
	m, err := toInvoiceModel(inv)
	if err != nil {
		return err
	}
	err = s.inTx(ctx, func(q queryer) error {
		if _, err := q.NewInsert(m).Exec(ctx); err != nil {
			return uniqueViolation(err)
		}
		return claim(ctx, q, inv.TimeEntryIDs, inv.ID, inv.UpdatedAt)
	})
	if errors.Is(err, errPartialClaim) {
		return s.claimConflict(ctx, inv.TimeEntryIDs)
	}
	return err
}

// uniqueViolation maps unique index failures on docket_invoices to the
// docket sentinels.
func uniqueViolation(err error) error {
	msg := err.Error()
	switch {
	case !strings.Contains(msg, "UNIQUE constraint failed"):
		return err
	case strings.Contains(msg, "docket_invoices.number"):
		return docket.ErrDuplicateNumber
	case strings.Contains(msg, "docket_invoices.id"):
		return docket.ErrAlreadyExists
	}
	return err
}

func (s *Store) GetInvoice(ctx context.Context, invID id.InvoiceID) (*invoice.Invoice, error) {
	m := new(invoiceModel)
	err := s.sdb.NewSelect(m).
		Where("id = ?", invID.String()).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, docket.ErrInvoiceNotFound
		}
		return nil, err
	}
	return fromInvoiceModel(m)
}

func (s *Store) ListInvoices(ctx context.Context, matterID id.MatterID, opts invoice.ListOpts) ([]*invoice.Invoice, error) {
	var models []invoiceModel
	q := s.sdb.NewSelect(&models).Where("matter_id = ?", matterID.String())

	if opts.Status != "" {
		q = q.Where("status = ?", string(opts.Status))
	}
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		q = q.Offset(opts.Offset)
	}
	q = q.OrderExpr("number ASC")

	if err := q.Scan(ctx); err != nil {
		return nil, err
	}
	return fromInvoiceModels(models)
}

func (s *Store) UpdateInvoiceStatus(ctx context.Context, invID id.InvoiceID, from, to invoice.Status, at time.Time) error {
	t := at.UTC()
	q := s.sdb.NewUpdate((*invoiceModel)(nil)).
		Set("status = ?", string(to)).
		Set("updated_at = ?", t)
	if col := invoice.StatusColumn(to); col != "" {
		q = q.Set(col+" = ?", t)
	}
	res, err := q.
		Where("id = ?", invID.String()).
		Where("status = ?", string(from)).
		Exec(ctx)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows > 0 {
		return nil
	}

	if _, err := s.GetInvoice(ctx, invID); err != nil {
		return err
	}
	return docket.ErrStatusChanged
}

func (s *Store) SetInvoiceExport(ctx context.Context, invID id.InvoiceID, exp invoice.Export) error {
	res, err := s.sdb.NewUpdate((*invoiceModel)(nil)).
		Set("export_url = ?", exp.URL).
		Set("export_file_name = ?", exp.FileName).
		Set("exported_at = ?", exp.ExportedAt.UTC()).
		Set("updated_at = ?", exp.ExportedAt.UTC()).
		Where("id = ?", invID.String()).
		Exec(ctx)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return docket.ErrInvoiceNotFound
	}
	return nil
}

func (s *Store) ListOverdueCandidates(ctx context.Context, asOf time.Time) ([]*invoice.Invoice, error) {
	var models []invoiceModel
	err := s.sdb.NewSelect(&models).
		Where("status IN (?, ?)", string(invoice.StatusDraft), string(invoice.StatusSent)).
		Where("due_date < ?", asOf.UTC()).
		OrderExpr("number ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return fromInvoiceModels(models)
}

// ==================== Helpers ====================

// now returns the current UTC time.
func now() time.Time {
	return time.Now().UTC()
}

// isNoRows checks for the standard sql.ErrNoRows sentinel.
func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

// inClause returns "?, ?, ..." and the matching args for ids.
func inClause(ids []id.TimeEntryID) (string, []any) {
	args := make([]any, len(ids))
	for i, eid := range ids {
		args[i] = eid.String()
	}
	return strings.TrimSuffix(strings.Repeat("?, ", len(ids)), ", "), args
}

func fromTimeEntryModels(models []timeEntryModel) ([]*timeentry.TimeEntry, error) {
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
