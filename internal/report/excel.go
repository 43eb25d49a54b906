package report

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/festago/festago/internal/partner"
)

var applicationHeaders = []string{
	"ID", "Event Name", "Status", "Booth Type", "Booth Size",
	"Products", "Price Range", "Applied Date", "Reviewed Date",
	"Participation Fee", "Payment Status", "Booth Location",
}

// ApplicationsExcel renders a partner's application history as an xlsx
// workbook. eventNames maps event IDs to display names; unknown IDs
// fall back to the raw ID.
func ApplicationsExcel(apps []*partner.Application, eventNames map[string]string) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Applications"
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return nil, err
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Color: []string{"4CAF50"}, Pattern: 1},
		Font: &excelize.Font{Bold: true, Color: "FFFFFF"},
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build header style: %w", err)
	}

	for col, header := range applicationHeaders {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return nil, err
		}
		if err := f.SetCellValue(sheet, cell, header); err != nil {
			return nil, err
		}
	}
	last, _ := excelize.CoordinatesToCellName(len(applicationHeaders), 1)
	if err := f.SetCellStyle(sheet, "A1", last, headerStyle); err != nil {
		return nil, err
	}

	for i, app := range apps {
		eventName := eventNames[app.EventID]
		if eventName == "" {
			eventName = app.EventID
		}
		reviewed := ""
		if app.ReviewedAt != nil {
			reviewed = app.ReviewedAt.Format("2006-01-02")
		}
		values := []any{
			app.ID,
			eventName,
			app.Status,
			app.BoothType,
			app.BoothSize,
			app.Products,
			app.PriceRange,
			app.AppliedAt.Format("2006-01-02"),
			reviewed,
			app.ParticipationFee,
			app.PaymentStatus,
			app.BoothLocation,
		}
		for col, v := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, i+2)
			if err != nil {
				return nil, err
			}
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return nil, err
			}
		}
	}

	if err := f.SetColWidth(sheet, "A", "L", 18); err != nil {
		return nil, err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf.Bytes(), nil
}
