package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/pgdriver"
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

// Store implements store.Store using PostgreSQL via Grove ORM.
//
// Invoice inserts and entry claims share one transaction, and a claim
// that misses any entry rolls back whole. Invoice numbers come from a
// sequence.
type Store struct {
	db *grove.DB
	pg *pgdriver.PgDB
}

// New creates a new PostgreSQL store backed by Grove ORM.
func New(db *grove.DB) *Store {
	return &Store{
		db: db,
		pg: pgdriver.Unwrap(db),
	}
}

// DB returns the underlying grove database for direct access.
func (s *Store) DB() *grove.DB { return s.db }

// Migrate creates the required tables and indexes using the grove orchestrator.
func (s *Store) Migrate(ctx context.Context) error {
	executor, err := migrate.NewExecutorFor(s.pg)
	if err != nil {
		return fmt.Errorf("docket/postgres: create migration executor: %w", err)
	}
	orch := migrate.NewOrchestrator(executor, Migrations)
	if _, err := orch.Migrate(ctx); err != nil {
		return fmt.Errorf("docket/postgres: migration failed: %w", err)
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
	_, err := s.pg.NewInsert(toClientModel(c)).Exec(ctx)
	return err
}

func (s *Store) GetClient(ctx context.Context, clientID id.ClientID) (*matter.Client, error) {
	m := new(clientModel)
	err := s.pg.NewSelect(m).
		Where("id = $1", clientID.String()).
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
	_, err = s.pg.NewInsert(m).Exec(ctx)
	return err
}

func (s *Store) GetMatter(ctx context.Context, matterID id.MatterID) (*matter.Matter, error) {
	m := new(matterModel)
	err := s.pg.NewSelect(m).
		Where("id = $1", matterID.String()).
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
	res, err := s.pg.NewUpdate(m).WherePK().Exec(ctx)
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
	_, err := s.pg.NewInsert(toTimeEntryModel(e)).Exec(ctx)
	return err
}

func (s *Store) GetTimeEntry(ctx context.Context, entryID id.TimeEntryID) (*timeentry.TimeEntry, error) {
	m := new(timeEntryModel)
	err := s.pg.NewSelect(m).
		Where("id = $1", entryID.String()).
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
	err := s.pg.NewSelect(&models).
		Where("matter_id = $1", matterID.String()).
		Where("billable = TRUE").
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
var errPartialClaim = errors.New("docket/postgres: partial claim")

// queryer is satisfied by both *pgdriver.PgDB and *pgdriver.PgTx.
type queryer interface {
	NewSelect(model ...any) *pgdriver.SelectQuery
	NewInsert(model any) *pgdriver.InsertQuery
	NewUpdate(model any) *pgdriver.UpdateQuery
	NewRaw(query string, args ...any) *pgdriver.RawQuery
}

// inTx runs fn in a transaction, committing only if fn returns nil.
func (s *Store) inTx(ctx context.Context, fn func(q queryer) error) error {
	tx, err := s.pg.BeginTxQuery(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return errors.Join(err, fmt.Errorf("docket/postgres: rollback: %w", rbErr))
		}
		return err
	}
	return tx.Commit()
}

// claim sets invoice_id on every entry in entryIDs that is still
// unclaimed. Rows locked by a concurrent claim are re-checked once that
// claim commits. It returns errPartialClaim unless all of them matched.
func claim(ctx context.Context, q queryer, entryIDs []id.TimeEntryID, invoiceID id.InvoiceID, at time.Time) error {
	if len(entryIDs) == 0 {
		return nil
	}
	in, args := inClause(3, entryIDs)
	res, err := q.NewUpdate((*timeEntryModel)(nil)).
		Set("invoice_id = $1", invoiceID.String()).
		Set("updated_at = $2", at.UTC()).
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
	in, args := inClause(1, entryIDs)
	var models []timeEntryModel
	err := s.pg.NewSelect(&models).
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

// NextInvoiceNumber draws from docket_invoice_number_seq. Numbers consumed
// by failed creates are not reused.
func (s *Store) NextInvoiceNumber(ctx context.Context) (int64, error) {
	var n int64
	if err := s.pg.NewRaw(`SELECT nextval('docket_invoice_number_seq')`).Scan(ctx, &n); err != nil {
		return 0, err
	}
	return n, nil
}

// CreateInvoice inserts the invoice and claims its entries in one
// transaction.
func (s *Store) CreateInvoice(ctx context.Context, inv *invoice.Invoice) error {
	err := s.inTx(ctx, func(q queryer) error {
		if _, err := q.NewInsert(toInvoiceModel(inv)).Exec(ctx); err != nil {
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
	case !strings.Contains(msg, "duplicate key value"):
		return err
	case strings.Contains(msg, "idx_docket_invoices_number"):
		return docket.ErrDuplicateNumber
	case strings.Contains(msg, "docket_invoices_pkey"):
		return docket.ErrAlreadyExists
	}
	return err
}

func (s *Store) GetInvoice(ctx context.Context, invID id.InvoiceID) (*invoice.Invoice, error) {
	m := new(invoiceModel)
	err := s.pg.NewSelect(m).
		Where("id = $1", invID.String()).
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
	q := s.pg.NewSelect(&models).Where("matter_id = $1", matterID.String())

	argIdx := 1
	if opts.Status != "" {
		argIdx++
		q = q.Where(fmt.Sprintf("status = $%d", argIdx), string(opts.Status))
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
	q := s.pg.NewUpdate((*invoiceModel)(nil)).
		Set("status = $1", string(to)).
		Set("updated_at = $2", t)

	argIdx := 2
	if col := invoice.StatusColumn(to); col != "" {
		argIdx++
		q = q.Set(fmt.Sprintf("%s = $%d", col, argIdx), t)
	}
	res, err := q.
		Where(fmt.Sprintf("id = $%d", argIdx+1), invID.String()).
		Where(fmt.Sprintf("status = $%d", argIdx+2), string(from)).
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
	res, err := s.pg.NewUpdate((*invoiceModel)(nil)).
		Set("export_url = $1", exp.URL).
		Set("export_file_name = $2", exp.FileName).
		Set("exported_at = $3", exp.ExportedAt.UTC()).
		Set("updated_at = $4", exp.ExportedAt.UTC()).
		Where("id = $5", invID.String()).
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
	err := s.pg.NewSelect(&models).
		Where("status IN ($1, $2)", string(invoice.StatusDraft), string(invoice.StatusSent)).
		Where("due_date < $3", asOf.UTC()).
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

// inClause returns "$start, $start+1, ..." and the matching args for ids.
func inClause(start int, ids []id.TimeEntryID) (string, []any) {
	marks := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, eid := range ids {
		marks[i] = fmt.Sprintf("$%d", start+i)
		args[i] = eid.String()
	}
	return strings.Join(marks, ", "), args
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
