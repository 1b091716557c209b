package mongo

import (
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

	ID        string    `grove:"id,pk"      bson:"_id"`
	Name      string    `grove:"name"       bson:"name"`
	Email     string    `grove:"email"      bson:"email,omitempty"`
	Phone     string    `grove:"phone"      bson:"phone,omitempty"`
	Address   string    `grove:"address"    bson:"address,omitempty"`
	CreatedAt time.Time `grove:"created_at" bson:"created_at"`
	UpdatedAt time.Time `grove:"updated_at" bson:"updated_at"`
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

	ID        string            `grove:"id,pk"      bson:"_id"`
	ClientID  string            `grove:"client_id"  bson:"client_id"`
	Title     string            `grove:"title"      bson:"title"`
	Reference string            `grove:"reference"  bson:"reference,omitempty"`
	Currency  string            `grove:"currency"   bson:"currency"`
	Status    string            `grove:"status"     bson:"status"`
	Billing   billingModel      `grove:"billing"    bson:"billing"`
	Metadata  map[string]string `grove:"metadata"   bson:"metadata,omitempty"`
	CreatedAt time.Time         `grove:"created_at" bson:"created_at"`
	UpdatedAt time.Time         `grove:"updated_at" bson:"updated_at"`
}

type billingModel struct {
	Mode   string `bson:"mode"`
	Amount int64  `bson:"amount"`
}

func toMatterModel(m *matter.Matter) (*matterModel, error) {
	if m.Billing == nil {
		return nil, fmt.Errorf("docket/mongo: matter %s has no billing mode", m.ID)
	}
	return &matterModel{
		ID:        m.ID.String(),
		ClientID:  m.ClientID.String(),
		Title:     m.Title,
		Reference: m.Reference,
		Currency:  m.Currency,
		Status:    string(m.Status),
		Billing: billingModel{
			Mode:   string(m.Billing.Mode()),
			Amount: m.Billing.Amount().Amount,
		},
		Metadata:  m.Metadata,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
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
	billing, err := matter.NewBilling(matter.Mode(m.Billing.Mode), types.New(m.Billing.Amount, m.Currency))
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

	ID              string      `grove:"id,pk"            bson:"_id"`
	MatterID        string      `grove:"matter_id"        bson:"matter_id"`
	Description     string      `grove:"description"      bson:"description"`
	RawDescription  string      `grove:"raw_description"  bson:"raw_description"`
	DurationMinutes int64       `grove:"duration_minutes" bson:"duration_minutes"`
	HourlyRate      *moneyModel `grove:"hourly_rate"      bson:"hourly_rate,omitempty"`
	Billable        bool        `grove:"billable"         bson:"billable"`
	EntryDate       time.Time   `grove:"entry_date"       bson:"entry_date"`
	InvoiceID       string      `grove:"invoice_id"       bson:"invoice_id"`
	CreatedAt       time.Time   `grove:"created_at"       bson:"created_at"`
	UpdatedAt       time.Time   `grove:"updated_at"       bson:"updated_at"`
}

type moneyModel struct {
	Amount   int64  `bson:"amount"`
	Currency string `bson:"currency"`
}

func toMoneyModel(m *types.Money) *moneyModel {
	if m == nil {
		return nil
	}
	return &moneyModel{Amount: m.Amount, Currency: m.Currency}
}

func fromMoneyModel(m *moneyModel) *types.Money {
	if m == nil {
		return nil
	}
	v := types.New(m.Amount, m.Currency)
	return &v
}

func toTimeEntryModel(e *timeentry.TimeEntry) *timeEntryModel {
	m := &timeEntryModel{
		ID:              e.ID.String(),
		MatterID:        e.MatterID.String(),
		Description:     e.Description,
		RawDescription:  e.RawDescription,
		DurationMinutes: e.DurationMinutes,
		HourlyRate:      toMoneyModel(e.HourlyRate),
		Billable:        e.Billable,
		EntryDate:       e.EntryDate,
		CreatedAt:       e.CreatedAt,
		UpdatedAt:       e.UpdatedAt,
	}
	if !e.InvoiceID.IsNil() {
		m.InvoiceID = e.InvoiceID.String()
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
		HourlyRate:      fromMoneyModel(m.HourlyRate),
		Billable:        m.Billable,
		EntryDate:       m.EntryDate,
	}
	if m.InvoiceID != "" {
		if e.InvoiceID, err = id.ParseInvoiceID(m.InvoiceID); err != nil {
			return nil, err
		}
	}
	return e, nil
}

// ==================== Invoice models ====================

type invoiceModel struct {
	grove.BaseModel `grove:"table:docket_invoices"`

	ID             string          `grove:"id,pk"           bson:"_id"`
	Number         int64           `grove:"number"          bson:"number"`
	MatterID       string          `grove:"matter_id"       bson:"matter_id"`
	ClientID       string          `grove:"client_id"       bson:"client_id"`
	TimeEntryIDs   []string        `grove:"time_entry_ids"  bson:"time_entry_ids"`
	LineItems      []lineItemModel `grove:"line_items"      bson:"line_items"`
	Currency       string          `grove:"currency"        bson:"currency"`
	SubtotalAmount int64           `grove:"subtotal_amount" bson:"subtotal_amount"`
	TotalAmount    int64           `grove:"total_amount"    bson:"total_amount"`
	DueDate        time.Time       `grove:"due_date"        bson:"due_date"`
	Notes          string          `grove:"notes"           bson:"notes,omitempty"`
	Status         string          `grove:"status"          bson:"status"`
	BillTo         billToModel     `grove:"bill_to"         bson:"bill_to"`
	Export         *exportModel    `grove:"export"          bson:"export,omitempty"`
	SentAt         *time.Time      `grove:"sent_at"         bson:"sent_at,omitempty"`
	PaidAt         *time.Time      `grove:"paid_at"         bson:"paid_at,omitempty"`
	OverdueAt      *time.Time      `grove:"overdue_at"      bson:"overdue_at,omitempty"`
	VoidedAt       *time.Time      `grove:"voided_at"       bson:"voided_at,omitempty"`
	CreatedAt      time.Time       `grove:"created_at"      bson:"created_at"`
	UpdatedAt      time.Time       `grove:"updated_at"      bson:"updated_at"`
}

type lineItemModel struct {
	ID              string      `bson:"id"`
	Type            string      `bson:"type"`
	TimeEntryID     string      `bson:"time_entry_id,omitempty"`
	Description     string      `bson:"description"`
	EntryDate       time.Time   `bson:"entry_date,omitempty"`
	DurationMinutes int64       `bson:"duration_minutes,omitempty"`
	Rate            *moneyModel `bson:"rate,omitempty"`
	Amount          int64       `bson:"amount"`
}

type billToModel struct {
	ClientName      string `bson:"client_name"`
	ClientEmail     string `bson:"client_email,omitempty"`
	ClientPhone     string `bson:"client_phone,omitempty"`
	ClientAddress   string `bson:"client_address,omitempty"`
	MatterTitle     string `bson:"matter_title"`
	MatterReference string `bson:"matter_reference,omitempty"`
}

type exportModel struct {
	URL        string    `bson:"url"`
	FileName   string    `bson:"file_name"`
	ExportedAt time.Time `bson:"exported_at"`
}

func toInvoiceModel(inv *invoice.Invoice) *invoiceModel {
	lineItems := make([]lineItemModel, len(inv.LineItems))
	for i, li := range inv.LineItems {
		lineItems[i] = lineItemModel{
			ID:              li.ID.String(),
			Type:            string(li.Type),
			Description:     li.Description,
			EntryDate:       li.EntryDate,
			DurationMinutes: li.DurationMinutes,
			Rate:            toMoneyModel(li.Rate),
			Amount:          li.Amount.Amount,
		}
		if !li.TimeEntryID.IsNil() {
			lineItems[i].TimeEntryID = li.TimeEntryID.String()
		}
	}

	m := &invoiceModel{
		ID:             inv.ID.String(),
		Number:         inv.Number,
		MatterID:       inv.MatterID.String(),
		ClientID:       inv.ClientID.String(),
		TimeEntryIDs:   id.Strings(inv.TimeEntryIDs),
		LineItems:      lineItems,
		Currency:       inv.Currency,
		SubtotalAmount: inv.Subtotal.Amount,
		TotalAmount:    inv.Total.Amount,
		DueDate:        inv.DueDate,
		Notes:          inv.Notes,
		Status:         string(inv.Status),
		BillTo:         billToModel(inv.BillTo),
		SentAt:         inv.SentAt,
		PaidAt:         inv.PaidAt,
		OverdueAt:      inv.OverdueAt,
		VoidedAt:       inv.VoidedAt,
		CreatedAt:      inv.CreatedAt,
		UpdatedAt:      inv.UpdatedAt,
	}
	if inv.Export != nil {
		m.Export = &exportModel{
			URL:        inv.Export.URL,
			FileName:   inv.Export.FileName,
			ExportedAt: inv.Export.ExportedAt,
		}
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

	entryIDs := make([]id.TimeEntryID, len(m.TimeEntryIDs))
	for i, s := range m.TimeEntryIDs {
		if entryIDs[i], err = id.ParseTimeEntryID(s); err != nil {
			return nil, err
		}
	}

	lineItems := make([]invoice.LineItem, len(m.LineItems))
	for i, li := range m.LineItems {
		liID, liErr := id.ParseWithPrefix(li.ID, id.PrefixLineItem)
		if liErr != nil {
			return nil, liErr
		}
		lineItems[i] = invoice.LineItem{
			ID:              liID,
			Type:            invoice.LineItemType(li.Type),
			Description:     li.Description,
			EntryDate:       li.EntryDate,
			DurationMinutes: li.DurationMinutes,
			Rate:            fromMoneyModel(li.Rate),
			Amount:          types.New(li.Amount, m.Currency),
		}
		if li.TimeEntryID != "" {
			if lineItems[i].TimeEntryID, err = id.ParseTimeEntryID(li.TimeEntryID); err != nil {
				return nil, err
			}
		}
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
		BillTo:       invoice.BillTo(m.BillTo),
		SentAt:       m.SentAt,
		PaidAt:       m.PaidAt,
		OverdueAt:    m.OverdueAt,
		VoidedAt:     m.VoidedAt,
	}
	if m.Export != nil {
		inv.Export = &invoice.Export{
			URL:        m.Export.URL,
			FileName:   m.Export.FileName,
			ExportedAt: m.Export.ExportedAt,
		}
	}
	return inv, nil
}
