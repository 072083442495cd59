package export

import (
	"fmt"
	"io"
	"time"

	"gearbook/internal/models"

	"github.com/xuri/excelize/v2"
)

const sheetName = "Reservations"

var columns = []string{
	"Equipment", "Category", "Location", "Equipment Status",
	"Reservation ID", "Requester", "Start", "End", "Status", "Updated",
}

// WriteReservationsWorkbook renders every reservation of the given records
// into an xlsx workbook, one row per reservation, and writes it to w.
func WriteReservationsWorkbook(w io.Writer, equipment []*models.Equipment) error {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(sheetName)
	if err != nil {
		return fmt.Errorf("error creating sheet: %v", err)
	}
	f.SetActiveSheet(index)

	if err := writeHeader(f); err != nil {
		return err
	}

	row := 2
	for _, eq := range equipment {
		for i := range eq.Reservations {
			writeReservationRow(f, row, eq, &eq.Reservations[i])
			row++
		}
	}

	_ = f.SetColWidth(sheetName, "A", "A", 25)
	_ = f.SetColWidth(sheetName, "B", "J", 20)
	_ = f.DeleteSheet("Sheet1")

	if err := f.Write(w); err != nil {
		return fmt.Errorf("error writing workbook: %v", err)
	}
	return nil
}

func writeHeader(f *excelize.File) error {
	for i, title := range columns {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return fmt.Errorf("error naming header cell: %v", err)
		}
		_ = f.SetCellValue(sheetName, cell, title)
	}

	style, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		return fmt.Errorf("error creating header style: %v", err)
	}
	last, _ := excelize.CoordinatesToCellName(len(columns), 1)
	_ = f.SetCellStyle(sheetName, "A1", last, style)
	return nil
}

func writeReservationRow(f *excelize.File, row int, eq *models.Equipment, res *models.Reservation) {
	values := []interface{}{
		eq.Name,
		eq.Category,
		eq.Location,
		string(eq.Status),
		res.ID,
		res.RequesterID,
		res.Range.Start.Format(time.RFC3339),
		res.Range.End.Format(time.RFC3339),
		string(res.Status),
		res.UpdatedAt.Format(time.RFC3339),
	}
	for i, v := range values {
		cell, _ := excelize.CoordinatesToCellName(i+1, row)
		_ = f.SetCellValue(sheetName, cell, v)
	}
}
