package docket

import (
	"context"
	"fmt"

	"github.com/xraph/docket/id"
	"github.com/xraph/docket/invoice"
)

// ──────────────────────────────────────────────────
// PDF Export
// ──────────────────────────────────────────────────

// ExportInvoicePDF renders the stored invoice snapshot, uploads it under
// invoice-<number>.pdf and records the reference on the invoice.
//
// Concurrent calls for the same invoice share one render and upload. The
// shared work is detached from any single caller's cancellation; a caller
// whose context ends stops waiting and gets an UnavailableError.
func (e *Engine) ExportInvoicePDF(ctx context.Context, invID id.InvoiceID) (*invoice.Export, error) {
	if e.blobs == nil {
		return nil, ErrNoBlobStore
	}

	ch := e.exports.DoChan(invID.String(), func() (interface{}, error) {
		return e.exportInvoice(context.WithoutCancel(ctx), invID)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		exp := *res.Val.(*invoice.Export)
		if res.Shared {
			e.logger.Debug("invoice export shared", "invoice_id", invID.String())
		}
		return &exp, nil
	case <-ctx.Done():
		return nil, classify("export invoice", ctx.Err())
	}
}

func (e *Engine) exportInvoice(ctx context.Context, invID id.InvoiceID) (*invoice.Export, error) {
	inv, err := e.GetInvoice(ctx, invID)
	if err != nil {
		return nil, err
	}

	exp, err := e.renderAndUpload(ctx, inv)
	if err != nil {
		e.plugins.EmitInvoiceExportFailed(ctx, invID.String(), err)
		e.logger.Error("invoice export failed",
			"invoice_id", invID.String(),
			"number", inv.DisplayNumber(),
			"error", err,
		)
		return nil, err
	}

	inv.Export = exp
	e.plugins.EmitInvoiceExported(ctx, inv, exp.URL)
	e.logger.Info("invoice exported",
		"invoice_id", invID.String(),
		"file", exp.FileName,
		"url", exp.URL,
	)
	return exp, nil
}

func (e *Engine) renderAndUpload(ctx context.Context, inv *invoice.Invoice) (*invoice.Export, error) {
	doc, err := e.renderer.Render(inv)
	if err != nil {
		return nil, fmt.Errorf("docket: render %s: %w", inv.DisplayNumber(), err)
	}

	fileName := inv.FileName()

	putCtx, cancel := e.opContext(ctx)
	url, err := e.blobs.Put(putCtx, fileName, e.renderer.ContentType(), doc)
	cancel()
	if err != nil {
		return nil, classify("upload "+fileName, err)
	}

	exp := invoice.Export{URL: url, FileName: fileName, ExportedAt: e.clock()}

	opCtx, cancel := e.opContext(ctx)
	defer cancel()
	if err := e.store.SetInvoiceExport(opCtx, inv.ID, exp); err != nil {
		return nil, classify("record export", err)
	}
	return &exp, nil
}
