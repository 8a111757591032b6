// Package export renders staff-facing spreadsheet downloads.
package export

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"
)

// ActivityStat is one student's row in the activity statistics workbook.
type ActivityStat struct {
	UserID         string
	UserName       string
	Class          string
	SapporoCount   int
	TokyoCount     int
	OtherCount     int
	CompletedCount int
	TotalCount     int
}

const activitySheet = "Activity Statistics"

var activityHeader = []string{
	"Student ID", "Name", "Class",
	"Sapporo", "Tokyo", "Other",
	"Completed", "Total",
}

// WriteActivityBook renders the statistics rows into an xlsx workbook.
func WriteActivityBook(stats []ActivityStat) (*bytes.Buffer, error) {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(activitySheet)
	if err != nil {
		return nil, fmt.Errorf("create sheet: %w", err)
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, fmt.Errorf("drop default sheet: %w", err)
	}

	for col, title := range activityHeader {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return nil, fmt.Errorf("header cell: %w", err)
		}
		if err := f.SetCellValue(activitySheet, cell, title); err != nil {
			return nil, fmt.Errorf("set header: %w", err)
		}
	}

	for i, stat := range stats {
		row := i + 2
		values := []interface{}{
			stat.UserID, stat.UserName, stat.Class,
			stat.SapporoCount, stat.TokyoCount, stat.OtherCount,
			stat.CompletedCount, stat.TotalCount,
		}
		for col, value := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, row)
			if err != nil {
				return nil, fmt.Errorf("data cell: %w", err)
			}
			if err := f.SetCellValue(activitySheet, cell, value); err != nil {
				return nil, fmt.Errorf("set cell: %w", err)
			}
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf, nil
}
