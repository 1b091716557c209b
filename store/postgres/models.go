package postgres

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/xraph/grove"

	"github.com/xraph/docket/id"
	"github.com/xraph/docket/invoice"
	"github.com/xraph/docket/matter"
	"github.com/xraph/docket/timeentry"
	"github.com/xraph/docket/types"
)

// ==================== Client models ====================

type clientModel struct {
	grove.BaseModel `grove:"table:docket_clients"`

	ID        string    `grove:"id,pk"`
	Name      string    `grove:"name"`
	Email     string    `grove:"email"`
	Phone     string    `grove:"phone"`
	Address   string    `grove:"address"`
	CreatedAt time.Time `grove:"created_at"`
	UpdatedAt time.Time `grove:"updated_at"`
}

func toClientModel(c *matter.Client) *clientModel {
	return &clientModel{
		ID:        c.ID.String(),
		Name:      c.Name,
		Email:     c.Email,
		Phone:     c.Phone,
		Address:   c.Address,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}

func fromClientModel(m *clientModel) (*matter.Client, error) {
	clientID, err := id.ParseClientID(m.ID)
	if err != nil {
		return nil, err
	}
	return &matter.Client{
		Entity:  types.Entity{CreatedAt: m.CreatedAt, UpdatedAt: m.UpdatedAt},
		ID:      clientID,
		Name:    m.Name,
		Email:   m.Email,
		Phone:   m.Phone,
		Address: m.Address,
	}, nil
}

// ==================== Matter models ====================

type matterModel struct {
	grove.BaseModel `grove:"table:docket_matters"`

	ID            string            `grove:"id,pk"`
	ClientID      string            `grove:"client_id"`
	Title         string            `grove:"title"`
	Reference     string            `grove:"reference"`
	Currency      string            `grove:"currency"`
	Status        string            `grove:"status"`
	BillingMode   string            `grove:"billing_mode"`
	BillingAmount int64             `grove:"billing_amount"`
	Metadata      map[string]string `grove:"metadata,type:jsonb"`
	CreatedAt     time.Time         `grove:"created_at"`
	UpdatedAt     time.Time         `grove:"updated_at"`
}

func toMatterModel(m *matter.Matter) (*matterModel, error) {
	if m.Billing == nil {
		return nil, fmt.Errorf("docket/postgres: matter %s has no billing mode", m.ID)
	}
	return &matterModel{
		ID:            m.ID.String(),
		ClientID:      m.ClientID.String(),
		Title:         m.Title,
		Reference:     m.Reference,
		Currency:      m.Currency,
		Status:        string(m.Status),
		BillingMode:   string(m.Billing.Mode()),
		BillingAmount: m.Billing.Amount().Amount,
		Metadata:      m.Metadata,
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
	}, nil
}

func fromMatterModel(m *matterModel) (*matter.Matter, error) {
	matterID, err := id.ParseMatterID(m.ID)
	if err != nil {
		return nil, err
	}
	clientID, err := id.ParseClientID(m.ClientID)
	if err != nil {
		return nil, err
	}
	billing, err := matter.NewBilling(matter.Mode(m.BillingMode), types.New(m.BillingAmount, m.Currency))
	if err != nil {
		return nil, err
	}
	return &matter.Matter{
		Entity:    types.Entity{CreatedAt: m.CreatedAt, UpdatedAt: m.UpdatedAt},
		ID:        matterID,
		ClientID:  clientID,
		Title:     m.Title,
		Reference: m.Reference,
		Currency:  m.Currency,
		Status:    matter.Status(m.Status),
		Billing:   billing,
		Metadata:  m.Metadata,
	}, nil
}

// ==================== Time entry models ====================

type timeEntryModel struct {
	grove.BaseModel `grove:"table:docket_time_entries"`

	ID                 string    `grove:"id,pk"`
	MatterID           string    `grove:"matter_id"`
	Description        string    `grove:"description"`
	RawDescription     string    `grove:"raw_description"`
	DurationMinutes    int64     `grove:"duration_minutes"`
	HourlyRateAmount   *int64    `grove:"hourly_rate_amount"`
	HourlyRateCurrency string    `grove:"hourly_rate_currency"`
	Billable           bool      `grove:"billable"`
	EntryDate          time.Time `grove:"entry_date"`
	InvoiceID          string    `grove:"invoice_id"`
	CreatedAt          time.Time `grove:"created_at"`
	UpdatedAt          time.Time `grove:"updated_at"`
}

func toTimeEntryModel(e *timeentry.TimeEntry) *timeEntryModel {
	m := &timeEntryModel{
		ID:              e.ID.String(),
		MatterID:        e.MatterID.String(),
		Description:     e.Description,
		RawDescription:  e.RawDescription,
		DurationMinutes: e.DurationMinutes,
		Billable:        e.Billable,
		EntryDate:       e.EntryDate,
		CreatedAt:       e.CreatedAt,
		UpdatedAt:       e.UpdatedAt,
	}
	if !e.InvoiceID.IsNil() {
		m.InvoiceID = e.InvoiceID.String()
	}
	if e.HourlyRate != nil {
		amt := e.HourlyRate.Amount
		m.HourlyRateAmount = &amt
		m.HourlyRateCurrency = e.HourlyRate.Currency
	}
	return m
}

func fromTimeEntryModel(m *timeEntryModel) (*timeentry.TimeEntry, error) {
	entryID, err := id.ParseTimeEntryID(m.ID)
	if err != nil {
		return nil, err
	}
	matterID, err := id.ParseMatterID(m.MatterID)
	if err != nil {
		return nil, err
	}

	e := &timeentry.TimeEntry{
		Entity:          types.Entity{CreatedAt: m.CreatedAt, UpdatedAt: m.UpdatedAt},
		ID:              entryID,
		MatterID:        matterID,
		Description:     m.Description,
		RawDescription:  m.RawDescription,
		DurationMinutes: m.DurationMinutes,
		Billable:        m.Billable,
		EntryDate:       m.EntryDate,
	}
	if m.InvoiceID != "" {
		if e.InvoiceID, err = id.ParseInvoiceID(m.InvoiceID); err != nil {
			return nil, err
		}
	}
	if m.HourlyRateAmount != nil {
		rate := types.New(*m.HourlyRateAmount, m.HourlyRateCurrency)
		e.HourlyRate = &rate
	}
	return e, nil
}

// ==================== Invoice models ====================

type invoiceModel struct {
	grove.BaseModel `grove:"table:docket_invoices"`

	ID             string          `grove:"id,pk"`
	Number         int64           `grove:"number"`
	MatterID       string          `grove:"matter_id"`
	ClientID       string          `grove:"client_id"`
	TimeEntryIDs   json.RawMessage `grove:"time_entry_ids,type:jsonb"`
	LineItems      json.RawMessage `grove:"line_items,type:jsonb"`
	Currency       string          `grove:"currency"`
	SubtotalAmount int64           `grove:"subtotal_amount"`
	TotalAmount    int64           `grove:"total_amount"`
	DueDate        time.Time       `grove:"due_date"`
	Notes          string          `grove:"notes"`
	Status         string          `grove:"status"`
	BillTo         json.RawMessage `grove:"bill_to,type:jsonb"`
	ExportURL      string          `grove:"export_url"`
	ExportFileName string          `grove:"export_file_name"`
	ExportedAt     *time.Time      `grove:"exported_at"`
	SentAt         *time.Time      `grove:"sent_at"`
	PaidAt         *time.Time      `grove:"paid_at"`
	OverdueAt      *time.Time      `grove:"overdue_at"`
	VoidedAt       *time.Time      `grove:"voided_at"`
	CreatedAt      time.Time       `grove:"created_at"`
	UpdatedAt      time.Time       `grove:"updated_at"`
}

func toInvoiceModel(inv *invoice.Invoice) *invoiceModel {
	entryIDs, _ := json.Marshal(id.Strings(inv.TimeEntryIDs)) //nolint:errcheck // best-effort
	lineItems, _ := json.Marshal(inv.LineItems)               //nolint:errcheck // best-effort
	billTo, _ := json.Marshal(inv.BillTo)                     //nolint:errcheck // best-effort

	m := &invoiceModel{
		ID:             inv.ID.String(),
		Number:         inv.Number,
		MatterID:       inv.MatterID.String(),
		ClientID:       inv.ClientID.String(),
		TimeEntryIDs:   entryIDs,
		LineItems:      lineItems,
		Currency:       inv.Currency,
		SubtotalAmount: inv.Subtotal.Amount,
		TotalAmount:    inv.Total.Amount,
		DueDate:        inv.DueDate,
		Notes:          inv.Notes,
		Status:         string(inv.Status),
		BillTo:         billTo,
		SentAt:         inv.SentAt,
		PaidAt:         inv.PaidAt,
		OverdueAt:      inv.OverdueAt,
		VoidedAt:       inv.VoidedAt,
		CreatedAt:      inv.CreatedAt,
		UpdatedAt:      inv.UpdatedAt,
	}
	if inv.Export != nil {
		m.ExportURL = inv.Export.URL
		m.ExportFileName = inv.Export.FileName
		m.ExportedAt = &inv.Export.ExportedAt
	}
	return m
}

func fromInvoiceModel(m *invoiceModel) (*invoice.Invoice, error) {
	invID, err := id.ParseInvoiceID(m.ID)
	if err != nil {
		return nil, err
	}
	matterID, err := id.ParseMatterID(m.MatterID)
	if err != nil {
		return nil, err
	}
	clientID, err := id.ParseClientID(m.ClientID)
	if err != nil {
		return nil, err
	}

	var raw []string
	if err := json.Unmarshal(m.TimeEntryIDs, &raw); err != nil {
		return nil, fmt.Errorf("docket/postgres: invoice %s entries: %w", m.ID, err)
	}
	entryIDs := make([]id.TimeEntryID, len(raw))
	for i, s := range raw {
		if entryIDs[i], err = id.ParseTimeEntryID(s); err != nil {
			return nil, err
		}
	}

	var lineItems []invoice.LineItem
	if err := json.Unmarshal(m.LineItems, &lineItems); err != nil {
		return nil, fmt.Errorf("docket/postgres: invoice %s line items: %w", m.ID, err)
	}
	var billTo invoice.BillTo
	if len(m.BillTo) > 0 {
		_ = json.Unmarshal(m.BillTo, &billTo) //nolint:errcheck // best-effort
	}

	inv := &invoice.Invoice{
		Entity:       types.Entity{CreatedAt: m.CreatedAt, UpdatedAt: m.UpdatedAt},
		ID:           invID,
		Number:       m.Number,
		MatterID:     matterID,
		ClientID:     clientID,
		TimeEntryIDs: entryIDs,
		LineItems:    lineItems,
		Currency:     m.Currency,
		Subtotal:     types.New(m.SubtotalAmount, m.Currency),
		Total:        types.New(m.TotalAmount, m.Currency),
		DueDate:      m.DueDate,
		Notes:        m.Notes,
		Status:       invoice.Status(m.Status),
		BillTo:       billTo,
		SentAt:       m.SentAt,
		PaidAt:       m.PaidAt,
		OverdueAt:    m.OverdueAt,
		VoidedAt:     m.VoidedAt,
	}
	if m.ExportURL != "" && m.ExportedAt != nil {
		inv.Export = &invoice.Export{URL: m.ExportURL, FileName: m.ExportFileName, ExportedAt: *m.ExportedAt}
	}
	return inv, nil
}
