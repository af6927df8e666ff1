package sheets

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/xuri/excelize/v2"
)

// WorkbookClient serves tabs from a local .xlsx file. The file is reopened on every call so
// reads always see the current content.
type WorkbookClient struct {
	path   string
	mu     sync.Mutex
	logger *logrus.Logger
}

func NewWorkbookClient(path string, logger *logrus.Logger) (*WorkbookClient, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	return &WorkbookClient{path: path, logger: logger}, nil
}

func (c *WorkbookClient) ReadRows(_ context.Context, tab string) ([][]string, error) {
	f, err := excelize.OpenFile(c.path)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	if tab == "" {
		tab = f.GetSheetName(0)
	}
	if index, _ := f.GetSheetIndex(tab); index < 0 {
		return nil, fmt.Errorf("read tab %q: %w", tab, ErrTabNotFound)
	}

	rows, err := f.GetRows(tab)
	if err != nil {
		return nil, fmt.Errorf("read tab %q: %w", tab, err)
	}

	c.logger.WithFields(logrus.Fields{
		"tab":  tab,
		"rows": len(rows),
	}).Debug("Fetched workbook rows")
	return rows, nil
}

func (c *WorkbookClient) AppendRows(_ context.Context, tab string, rows [][]string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	f, err := excelize.OpenFile(c.path)
	if err != nil {
		return fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	if index, _ := f.GetSheetIndex(tab); index < 0 {
		if _, err := f.NewSheet(tab); err != nil {
			return fmt.Errorf("create tab %q: %w", tab, err)
		}
	}

	existing, err := f.GetRows(tab)
	if err != nil {
		return fmt.Errorf("read tab %q: %w", tab, err)
	}

	next := len(existing) + 1
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, next+i)
		if err != nil {
			return err
		}
		values := make([]interface{}, len(row))
		for j, value := range row {
			values[j] = value
		}
		if err := f.SetSheetRow(tab, cell, &values); err != nil {
			return fmt.Errorf("append to tab %q: %w", tab, err)
		}
	}

	if err := f.Save(); err != nil {
		return fmt.Errorf("save workbook: %w", err)
	}

	c.logger.WithFields(logrus.Fields{
		"tab":  tab,
		"rows": len(rows),
	}).Info("Appended workbook rows")
	return nil
}

// WriteWorkbook creates an .xlsx file at path holding one sheet per tab.
func WriteWorkbook(path string, tabs map[string][][]string) error {
	f := excelize.NewFile()
	defer f.Close()

	const initial = "Sheet1"
	for tab, rows := range tabs {
		if _, err := f.NewSheet(tab); err != nil {
			return fmt.Errorf("create tab %q: %w", tab, err)
		}
		for i, row := range rows {
			cell, err := excelize.CoordinatesToCellName(1, i+1)
			if err != nil {
				return err
			}
			values := make([]interface{}, len(row))
			for j, value := range row {
				values[j] = value
			}
			if err := f.SetSheetRow(tab, cell, &values); err != nil {
				return err
			}
		}
	}
	if _, ok := tabs[initial]; !ok && len(tabs) > 0 {
		if err := f.DeleteSheet(initial); err != nil {
			return err
		}
	}
	return f.SaveAs(path)
}
