package freight

import (
	"context"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

const profitabilitySheet = "Profitability"

var profitabilityHeader = []any{
	"Job", "Customer", "Route", "Status", "Currency",
	"Revenue", "Total Cost", "Profit", "Base", "Revenue (base)", "Profit (base)", "Margin %",
}

// WriteProfitabilityReport renders one row per job as an XLSX workbook.
func (s *Store) WriteProfitabilityReport(ctx context.Context, w io.Writer, base string) error {
	data, err := s.read(ctx)
	if err != nil {
		return err
	}

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", profitabilitySheet); err != nil {
		return fmt.Errorf("freight: name sheet: %w", err)
	}
	if err := f.SetSheetRow(profitabilitySheet, "A1", &profitabilityHeader); err != nil {
		return fmt.Errorf("freight: write header: %w", err)
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("freight: header style: %w", err)
	}
	lastCol, err := excelize.ColumnNumberToName(len(profitabilityHeader))
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(profitabilitySheet, "A1", lastCol+"1", bold); err != nil {
		return fmt.Errorf("freight: apply header style: %w", err)
	}

	for i := range data.Jobs {
		job := &data.Jobs[i]
		result, err := s.profitability(data, job, base)
		if err != nil {
			return err
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := []any{
			job.No,
			job.Customer,
			job.Origin + " - " + job.Destination,
			string(job.Status),
			job.Currency,
			job.Revenue().InexactFloat64(),
			job.TotalCost.InexactFloat64(),
			job.ActualProfit.InexactFloat64(),
			result.Base,
			result.Revenue.InexactFloat64(),
			result.Profit.InexactFloat64(),
			result.MarginPercent.InexactFloat64(),
		}
		if err := f.SetSheetRow(profitabilitySheet, cell, &row); err != nil {
			return fmt.Errorf("freight: write row for %s: %w", job.No, err)
		}
	}

	if err := f.SetPanes(profitabilitySheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return fmt.Errorf("freight: freeze header: %w", err)
	}
	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("freight: write workbook: %w", err)
	}
	return nil
}
