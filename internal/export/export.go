// Package export renders the registry as an Excel workbook, one sheet per category.
package export

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/ashinth-ffyo/harmony-cup/internal/models"
)

const (
	FileName    = "Harmony Cup.xlsx"
	ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// Lister is the read side of the registry the exporter needs.
type Lister interface {
	List(ctx context.Context, category, sortField string) ([]models.Team, error)
}

type Exporter struct {
	teams Lister
}

func New(teams Lister) *Exporter {
	return &Exporter{teams: teams}
}

// ExportAll returns the workbook as bytes.
func (e *Exporter) ExportAll(ctx context.Context) ([]byte, error) {
	var buf bytes.Buffer
	if err := e.Render(ctx, &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Render writes the workbook to w. Teams appear in insertion order.
func (e *Exporter) Render(ctx context.Context, w io.Writer) error {
	f := excelize.NewFile()
	defer f.Close()

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("creating header style: %w", err)
	}

	for i, c := range models.Categories {
		sheet := string(c)
		if i == 0 {
			if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
				return fmt.Errorf("naming sheet %s: %w", sheet, err)
			}
		} else if _, err := f.NewSheet(sheet); err != nil {
			return fmt.Errorf("creating sheet %s: %w", sheet, err)
		}

		teams, err := e.teams.List(ctx, sheet, "")
		if err != nil {
			return fmt.Errorf("exporting %s: %w", sheet, err)
		}
		if err := writeSheet(f, sheet, teams, bold); err != nil {
			return err
		}
	}
	f.SetActiveSheet(0)

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("writing workbook: %w", err)
	}
	return nil
}

func writeSheet(f *excelize.File, sheet string, teams []models.Team, headerStyle int) error {
	header := make([]any, len(models.Columns))
	for i, col := range models.Columns {
		header[i] = col
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("writing %s header: %w", sheet, err)
	}
	last, err := excelize.CoordinatesToCellName(len(models.Columns), 1)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, "A1", last, headerStyle); err != nil {
		return fmt.Errorf("styling %s header: %w", sheet, err)
	}

	for r, t := range teams {
		row := make([]any, len(models.Columns))
		row[0] = t.RefNo
		for i, col := range models.Columns[1:] {
			row[i+1] = t.Value(col)
		}
		cell, err := excelize.CoordinatesToCellName(1, r+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("writing %s row %d: %w", sheet, r+2, err)
		}
	}
	return nil
}
