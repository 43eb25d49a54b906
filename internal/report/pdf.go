// Package report renders partner-facing exports: the analytics PDF
// report and the application history spreadsheet.
package report

import (
	"bytes"
	"fmt"
	"sort"
	"time"

	"github.com/go-pdf/fpdf"

	"github.com/festago/festago/internal/analytics"
)

// AnalyticsPDF renders a performance report for one analytics record.
func AnalyticsPDF(rec *analytics.Record, partnerName, eventName string) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(25, 25, 25)
	pdf.AddPage()

	// Title.
	pdf.SetFont("Helvetica", "B", 24)
	pdf.SetTextColor(26, 26, 26)
	pdf.CellFormat(0, 12, "Performance Report", "", 1, "C", false, 0, "")
	pdf.Ln(8)

	// Report header.
	pdf.SetFont("Helvetica", "", 10)
	info := [][2]string{
		{"Partner:", partnerName},
		{"Event:", eventName},
		{"Date:", rec.GeneratedAt.Format("2006-01-02")},
	}
	for _, row := range info {
		pdf.SetTextColor(102, 102, 102)
		pdf.CellFormat(40, 7, row[0], "", 0, "L", false, 0, "")
		pdf.SetTextColor(26, 26, 26)
		pdf.CellFormat(0, 7, row[1], "", 1, "L", false, 0, "")
	}
	pdf.Ln(8)

	heading(pdf, "Key Performance Indicators")
	kpiRows := [][2]string{
		{"Visitor Count", fmt.Sprintf("%d", rec.VisitorCount)},
		{"Estimated Sales", fmt.Sprintf("%.0f KRW", rec.EstimatedSales)},
		{"Average Rating", fmt.Sprintf("%.1f / 5.0", rec.AverageRating)},
		{"Review Count", fmt.Sprintf("%d", rec.ReviewCount)},
		{"Sentiment Score", fmt.Sprintf("%.1f%%", rec.SentimentScore)},
	}
	table(pdf, []string{"Metric", "Value"}, []float64{80, 80}, kpiRows, rgb{76, 175, 80})

	if len(rec.TopProducts) > 0 {
		heading(pdf, "Top Products")
		products := rec.TopProducts
		if len(products) > 5 {
			products = products[:5]
		}
		var rows [][2]string
		for i, p := range products {
			rows = append(rows, [2]string{
				fmt.Sprintf("%d. %s", i+1, p.Name),
				fmt.Sprintf("%d clicks, %ds avg view", p.Clicks, p.AvgTime),
			})
		}
		table(pdf, []string{"Product", "Engagement"}, []float64{80, 80}, rows, rgb{33, 150, 243})
	}

	if len(rec.HourlyVisitors) > 0 {
		heading(pdf, "Hourly Visitor Distribution")
		hours := make([]string, 0, len(rec.HourlyVisitors))
		for h := range rec.HourlyVisitors {
			hours = append(hours, h)
		}
		sort.Strings(hours)
		var rows [][2]string
		for _, h := range hours {
			rows = append(rows, [2]string{h + ":00", fmt.Sprintf("%d", rec.HourlyVisitors[h])})
		}
		table(pdf, []string{"Hour", "Visitors"}, []float64{40, 40}, rows, rgb{255, 152, 0})
	}

	if len(rec.PositiveKeywords) > 0 || len(rec.NegativeKeywords) > 0 {
		heading(pdf, "Review Analysis")
		pdf.SetFont("Helvetica", "", 10)
		pdf.SetTextColor(102, 102, 102)
		if len(rec.PositiveKeywords) > 0 {
			pdf.CellFormat(0, 6, "Positive Keywords:", "", 1, "L", false, 0, "")
			pdf.MultiCell(0, 6, keywordLine(rec.PositiveKeywords), "", "L", false)
			pdf.Ln(4)
		}
		if len(rec.NegativeKeywords) > 0 {
			pdf.CellFormat(0, 6, "Negative Keywords:", "", 1, "L", false, 0, "")
			pdf.MultiCell(0, 6, keywordLine(rec.NegativeKeywords), "", "L", false)
		}
	}

	pdf.Ln(12)
	pdf.SetFont("Helvetica", "", 8)
	pdf.SetTextColor(102, 102, 102)
	footer := fmt.Sprintf("Generated on %s | Powered by Festago", time.Now().Format("2006-01-02 15:04:05"))
	pdf.CellFormat(0, 6, footer, "", 1, "C", false, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

type rgb struct{ r, g, b int }

func heading(pdf *fpdf.Fpdf, text string) {
	pdf.SetFont("Helvetica", "B", 16)
	pdf.SetTextColor(51, 51, 51)
	pdf.CellFormat(0, 10, text, "", 1, "L", false, 0, "")
	pdf.Ln(2)
}

func table(pdf *fpdf.Fpdf, headers []string, widths []float64, rows [][2]string, headerColor rgb) {
	pdf.SetFont("Helvetica", "B", 10)
	pdf.SetFillColor(headerColor.r, headerColor.g, headerColor.b)
	pdf.SetTextColor(255, 255, 255)
	for i, h := range headers {
		pdf.CellFormat(widths[i], 9, h, "1", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 10)
	pdf.SetTextColor(26, 26, 26)
	for i, row := range rows {
		if i%2 == 1 {
			pdf.SetFillColor(245, 245, 245)
		} else {
			pdf.SetFillColor(255, 255, 255)
		}
		pdf.CellFormat(widths[0], 8, row[0], "1", 0, "C", true, 0, "")
		pdf.CellFormat(widths[1], 8, row[1], "1", 1, "C", true, 0, "")
	}
	pdf.Ln(6)
}

func keywordLine(keywords []analytics.Keyword) string {
	if len(keywords) > 10 {
		keywords = keywords[:10]
	}
	var buf bytes.Buffer
	for i, kw := range keywords {
		if i > 0 {
			buf.WriteString(", ")
		}
		fmt.Fprintf(&buf, "%s (%d)", kw.Word, kw.Count)
	}
	return buf.String()
}
