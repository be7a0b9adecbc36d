package ingest

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/xuri/excelize/v2"
	"github.com/yunusmujadidi/purchase-order/models"
)

// ExportDateLayout is the DD/MM/YYYY form ParseDate reads back
const ExportDateLayout = "02/01/2006"

// ExportSheetName names the single worksheet of an XLSX export
const ExportSheetName = "Orders"

// ExportHeader returns the header row of an export: the first alias of every
// field column, then the five stage pairs.
func ExportHeader(layout Layout) []string {
	header := []string{
		first(layout.Client),
		first(layout.SWCode),
		first(layout.Product),
		first(layout.Quantity),
		first(layout.Size),
		first(layout.Description),
		first(layout.Picture),
		first(layout.POApprovalDate),
		first(layout.DeliveryDate),
		first(layout.DeliveryAddress),
	}
	for _, cols := range layout.Stages {
		header = append(header, cols.In, cols.Out)
	}
	return header
}

// ExportRecord renders one order in ExportHeader column order. Importing the
// record again yields the same client, product, dates and inferred stage.
func ExportRecord(o *models.Order, loc *time.Location) []string {
	client := o.ClientName
	if o.ClientProject != nil {
		client += " " + *o.ClientProject
	}

	record := []string{
		client,
		deref(o.SWCode),
		o.ProductName,
		strconv.Itoa(o.Quantity),
		deref(o.Size),
		deref(o.Description),
		deref(o.PictureRef),
		formatDate(o.POApprovalDate, loc),
		formatDate(o.DeliveryDate, loc),
		deref(o.DeliveryAddress),
	}
	for _, stage := range models.ProductionStages {
		in, out := o.StageTimes(stage)
		record = append(record, formatDate(in, loc), formatDate(out, loc))
	}
	return record
}

// WriteCSV writes orders as a CSV file in the import layout
func WriteCSV(w io.Writer, orders []models.Order, layout Layout, loc *time.Location) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(ExportHeader(layout)); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for i := range orders {
		if err := writer.Write(ExportRecord(&orders[i], loc)); err != nil {
			return fmt.Errorf("failed to write order %s: %w", orders[i].OrderNumber, err)
		}
	}
	writer.Flush()
	return writer.Error()
}

// WriteXLSX writes orders as a single-sheet workbook in the import layout
func WriteXLSX(w io.Writer, orders []models.Order, layout Layout, loc *time.Location) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), ExportSheetName); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	header := ExportHeader(layout)
	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#D9E1F2"}, Pattern: 1},
	})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}
	if err := f.SetSheetRow(ExportSheetName, "A1", &header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	last, _ := excelize.CoordinatesToCellName(len(header), 1)
	if err := f.SetCellStyle(ExportSheetName, "A1", last, headerStyle); err != nil {
		return fmt.Errorf("failed to style header: %w", err)
	}

	for i := range orders {
		record := ExportRecord(&orders[i], loc)
		cells := make([]interface{}, len(record))
		for j, v := range record {
			cells[j] = v
		}
		// quantity stays numeric so spreadsheet sums work
		cells[3] = orders[i].Quantity

		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(ExportSheetName, cell, &cells); err != nil {
			return fmt.Errorf("failed to write order %s: %w", orders[i].OrderNumber, err)
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func formatDate(t *time.Time, loc *time.Location) string {
	if t == nil {
		return ""
	}
	if loc != nil {
		return t.In(loc).Format(ExportDateLayout)
	}
	return t.Format(ExportDateLayout)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func first(aliases []string) string {
	if len(aliases) == 0 {
		return ""
	}
	return aliases[0]
}
