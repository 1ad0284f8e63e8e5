// Package export renders ledger rows into spreadsheet files.
package export

import (
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"

	"wykonczymy/internal/models"
)

// SheetName is the single worksheet of a transaction export.
const SheetName = "Transakcje"

// ContentType is the MIME type of the files written by WriteTransactionsXLSX.
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

const dateLayout = "02.01.2006"

var headers = []string{
	"Data", "Typ", "Kwota", "Wpływ na kasę", "Metoda płatności", "Kasa",
	"Inwestycja", "Pracownik", "Kategoria", "Opis", "Faktura / notatka",
}

// Filename returns the attachment name for an export made at t.
func Filename(t time.Time) string {
	return fmt.Sprintf("transakcje_%s.xlsx", t.Format("20060102_150405"))
}

// WriteTransactionsXLSX writes one row per transaction, in the given order,
// under a header row. Amounts are written as numbers in major units.
func WriteTransactionsXLSX(w io.Writer, transactions []models.Transaction) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	for i, header := range headers {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(SheetName, cell, header); err != nil {
			return err
		}
	}

	amountStyle, err := f.NewStyle(&excelize.Style{NumFmt: 4})
	if err != nil {
		return fmt.Errorf("create amount style: %w", err)
	}

	for i := range transactions {
		t := &transactions[i]
		row := i + 2
		values := []any{
			t.Date.Format(dateLayout),
			string(t.Type),
			t.Amount.Decimal().InexactFloat64(),
			t.Effect().Register.Decimal().InexactFloat64(),
			string(t.PaymentMethod),
			registerName(t),
			investmentName(t),
			workerName(t),
			categoryName(t),
			t.Description,
			evidence(t),
		}
		for col, v := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, row)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(SheetName, cell, v); err != nil {
				return err
			}
		}
		if err := f.SetCellStyle(SheetName, fmt.Sprintf("C%d", row), fmt.Sprintf("D%d", row), amountStyle); err != nil {
			return err
		}
	}

	if err := f.SetPanes(SheetName, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"}); err != nil {
		return err
	}
	return f.Write(w)
}

func registerName(t *models.Transaction) string {
	if t.CashRegister != nil {
		return t.CashRegister.Name
	}
	return t.CashRegisterID
}

func investmentName(t *models.Transaction) string {
	if t.Investment != nil {
		return t.Investment.Name
	}
	return ""
}

func workerName(t *models.Transaction) string {
	if t.Worker != nil {
		return t.Worker.FullName()
	}
	return ""
}

func categoryName(t *models.Transaction) string {
	if t.OtherCategory != nil {
		return t.OtherCategory.Name
	}
	return ""
}

func evidence(t *models.Transaction) string {
	if t.Invoice != nil {
		return t.Invoice.Filename
	}
	return t.Evidence()
}
