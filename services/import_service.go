package services

import (
	"context"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/yunusmujadidi/purchase-order/ingest"
	"github.com/yunusmujadidi/purchase-order/metrics"
	"github.com/yunusmujadidi/purchase-order/models"
	"github.com/yunusmujadidi/purchase-order/repository"
)

// PreviewRows is how many parsed drafts an import preview shows
const PreviewRows = 5

// ImportResult summarizes one import
type ImportResult struct {
	Total       int    `json:"total"`      // data rows in the file, skipped rows included
	Imported    int    `json:"imported"`   // rows actually stored
	Duplicates  int    `json:"duplicates"` // parsed rows the store dropped as existing order numbers
	SkippedRows []int  `json:"skipped_rows"`
	Message     string `json:"message"`
}

// ImportPreview is the first rows of a file as they would be imported
type ImportPreview struct {
	Total       int            `json:"total"`
	Importable  int            `json:"importable"`
	SkippedRows []int          `json:"skipped_rows"`
	Drafts      []ingest.Draft `json:"drafts"`
}

// ImportService runs the ingestion pipeline against the order store
type ImportService struct {
	repo    repository.OrderRepository
	layout  ingest.Layout
	loc     *time.Location
	metrics *metrics.Collector
	events  Publisher
	now     func() time.Time
}

// NewImportService creates an importer. collector and events may be nil.
func NewImportService(repo repository.OrderRepository, layout ingest.Layout, loc *time.Location, collector *metrics.Collector, events Publisher) *ImportService {
	if events == nil {
		events = NopPublisher{}
	}
	if loc == nil {
		loc = time.UTC
	}
	return &ImportService{
		repo:    repo,
		layout:  layout,
		loc:     loc,
		metrics: collector,
		events:  events,
		now:     time.Now,
	}
}

// Layout returns the column layout used for imports and exports
func (s *ImportService) Layout() ingest.Layout {
	return s.layout
}

// Location returns the time zone spreadsheet dates are read in
func (s *ImportService) Location() *time.Location {
	return s.loc
}

func (s *ImportService) parse(filename string, r io.Reader) (*ingest.Batch, error) {
	table, err := ingest.ReadFile(filename, r)
	if err != nil {
		return nil, err
	}
	return ingest.Parse(table, s.layout, s.loc)
}

// Preview parses a file without storing anything and returns its first drafts
func (s *ImportService) Preview(ctx context.Context, filename string, r io.Reader) (*ImportPreview, error) {
	batch, err := s.parse(filename, r)
	if err != nil {
		return nil, err
	}

	drafts := batch.Drafts
	if len(drafts) > PreviewRows {
		drafts = drafts[:PreviewRows]
	}
	return &ImportPreview{
		Total:       batch.Total(),
		Importable:  len(batch.Drafts),
		SkippedRows: nonNil(batch.Skipped),
		Drafts:      drafts,
	}, nil
}

// Import parses a file, numbers the drafts after the highest existing sequence
// of the current year and stores them in one bulk write
func (s *ImportService) Import(ctx context.Context, actor *models.User, filename string, r io.Reader) (*ImportResult, error) {
	batch, err := s.parse(filename, r)
	if err != nil {
		return nil, err
	}

	orders := batch.Orders()
	result := &ImportResult{Total: batch.Total(), SkippedRows: nonNil(batch.Skipped)}

	if len(orders) > 0 {
		year := s.now().In(s.loc).Year()
		maxSeq, err := s.repo.MaxSequence(ctx, year)
		if err != nil {
			return nil, err
		}
		ingest.AssignOrderNumbers(orders, year, maxSeq+1)
		for i := range orders {
			orders[i].CreatedByID = actor.ID
		}

		imported, err := s.repo.BulkCreate(ctx, orders)
		if err != nil {
			return nil, err
		}
		result.Imported = int(imported)
		result.Duplicates = len(orders) - result.Imported
	}

	result.Message = fmt.Sprintf("Imported %d of %d orders", result.Imported, result.Total)
	log.Printf("%s from %s (%d skipped, %d duplicates)", result.Message, filename, len(result.SkippedRows), result.Duplicates)

	if s.metrics != nil {
		s.metrics.RecordImport(result.Imported, result.Duplicates, len(result.SkippedRows))
	}
	if result.Imported > 0 {
		s.events.Publish(OrderEvent{Type: EventOrdersImport, Count: result.Imported, At: s.now()})
	}
	return result, nil
}

func nonNil(lines []int) []int {
	if lines == nil {
		return []int{}
	}
	return lines
}
