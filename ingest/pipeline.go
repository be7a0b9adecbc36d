package ingest

import (
	"fmt"
	"time"

	"github.com/yunusmujadidi/purchase-order/models"
)

// Draft is a parsed row ready to be numbered and stored
type Draft struct {
	Line  int          `json:"line"`
	Order models.Order `json:"order"`
}

// Batch is the outcome of parsing one file
type Batch struct {
	Drafts  []Draft
	Skipped []int // source lines without a client
}

// Orders returns the draft orders in file order
func (b *Batch) Orders() []models.Order {
	orders := make([]models.Order, len(b.Drafts))
	for i, d := range b.Drafts {
		orders[i] = d.Order
	}
	return orders
}

// Total is the number of data rows seen, skipped rows included
func (b *Batch) Total() int {
	return len(b.Drafts) + len(b.Skipped)
}

// Parse turns a decoded table into order drafts with stage and status inferred.
// Only a header without a client column fails; row defects never do.
func Parse(table *Table, layout Layout, loc *time.Location) (*Batch, error) {
	header := ResolveHeader(table.Header)
	if !header.Has(layout.Client...) {
		return nil, &FileError{
			Code:    ErrCodeMissingColumn,
			Message: fmt.Sprintf("File has no client column (expected one of %v)", layout.Client),
		}
	}

	batch := &Batch{Drafts: make([]Draft, 0, len(table.Rows))}
	for _, rec := range table.Rows {
		order, ok := ParseRow(NewRow(rec.Line, header, rec.Cells), layout, loc)
		if !ok {
			batch.Skipped = append(batch.Skipped, rec.Line)
			continue
		}
		order.CurrentStage, order.Status = InferStageAndStatus(&order)
		batch.Drafts = append(batch.Drafts, Draft{Line: rec.Line, Order: order})
	}
	return batch, nil
}
