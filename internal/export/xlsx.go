// Package export renders catalog and order reports as Excel workbooks and
// reads product sheets back for bulk import.
package export

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/tealeg/xlsx"

	"github.com/MikeMC777/storefront/internal/catalog"
	"github.com/MikeMC777/storefront/internal/money"
	"github.com/MikeMC777/storefront/internal/order"
)

const (
	ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	timeLayout  = "2006-01-02 15:04:05"
)

var productHeaders = []string{"ID", "Name", "Description", "Price", "Stock", "ImageURL", "CategoryIDs", "CreatedAt", "UpdatedAt"}

func header(sheet *xlsx.Sheet, cols []string) {
	row := sheet.AddRow()
	for _, h := range cols {
		row.AddCell().SetString(h)
	}
}

// Products writes one row per product. Price is in minor units.
func Products(w io.Writer, products []catalog.Product) error {
	file := xlsx.NewFile()
	sheet, err := file.AddSheet("Products")
	if err != nil {
		return fmt.Errorf("add sheet: %w", err)
	}
	header(sheet, productHeaders)

	for _, p := range products {
		row := sheet.AddRow()
		row.AddCell().SetInt64(p.ID)
		row.AddCell().SetString(p.Name)
		row.AddCell().SetString(p.Description)
		row.AddCell().SetInt64(p.Price)
		row.AddCell().SetInt(p.Stock)
		img := ""
		if p.ImageURL != nil {
			img = *p.ImageURL
		}
		row.AddCell().SetString(img)
		ids := make([]string, 0, len(p.CategoryIDs))
		for _, id := range p.CategoryIDs {
			ids = append(ids, strconv.FormatInt(id, 10))
		}
		row.AddCell().SetString(strings.Join(ids, ","))
		row.AddCell().SetString(p.CreatedAt.Format(timeLayout))
		row.AddCell().SetString(p.UpdatedAt.Format(timeLayout))
	}
	return file.Write(w)
}

// Orders writes an Orders sheet and an Items sheet keyed by order id.
func Orders(w io.Writer, orders []order.Order) error {
	file := xlsx.NewFile()
	sheet, err := file.AddSheet("Orders")
	if err != nil {
		return fmt.Errorf("add sheet: %w", err)
	}
	items, err := file.AddSheet("Items")
	if err != nil {
		return fmt.Errorf("add sheet: %w", err)
	}
	header(sheet, []string{"ID", "UserID", "Status", "Total", "Receiver", "Phone", "Address", "CreatedAt"})
	header(items, []string{"OrderID", "ProductID", "Product", "Quantity", "UnitPrice", "Subtotal"})

	for _, o := range orders {
		row := sheet.AddRow()
		row.AddCell().SetInt64(o.ID)
		if o.UserID != nil {
			row.AddCell().SetInt64(*o.UserID)
		} else {
			row.AddCell().SetString("")
		}
		row.AddCell().SetString(string(o.Status))
		row.AddCell().SetString(money.String(o.TotalPrice))
		row.AddCell().SetString(o.ReceiverName)
		row.AddCell().SetString(o.Phone)
		row.AddCell().SetString(o.AddressLine)
		row.AddCell().SetString(o.CreatedAt.Format(timeLayout))

		for _, it := range o.Items {
			r := items.AddRow()
			r.AddCell().SetInt64(o.ID)
			if it.ProductID != nil {
				r.AddCell().SetInt64(*it.ProductID)
			} else {
				r.AddCell().SetString("")
			}
			r.AddCell().SetString(it.ProductName)
			r.AddCell().SetInt(it.Quantity)
			r.AddCell().SetString(money.String(it.UnitPrice))
			r.AddCell().SetString(money.String(it.Subtotal()))
		}
	}
	return file.Write(w)
}

// ImportRow is one product parsed from an uploaded sheet.
type ImportRow = catalog.ImportItem

// ParseProducts reads a sheet laid out like Products. Rows with a blank name
// are skipped; malformed numbers fail the whole import.
func ParseProducts(r io.ReaderAt, size int64) ([]ImportRow, error) {
	file, err := xlsx.OpenReaderAt(r, size)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	if len(file.Sheets) == 0 || file.Sheets[0].MaxRow < 1 {
		return nil, fmt.Errorf("workbook is empty")
	}
	sheet := file.Sheets[0]

	var out []ImportRow
	for i := 1; i < len(sheet.Rows); i++ {
		row := sheet.Rows[i]
		get := func(col int) string {
			if row == nil || col >= len(row.Cells) {
				return ""
			}
			return strings.TrimSpace(row.Cells[col].String())
		}
		name := get(1)
		if name == "" {
			continue
		}
		line := i + 1
		ir := ImportRow{Line: line}

		if s := get(0); s != "" {
			if ir.ID, err = strconv.ParseInt(s, 10, 64); err != nil {
				return nil, fmt.Errorf("row %d: invalid id %q", line, s)
			}
		}
		price, err := strconv.ParseInt(get(3), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("row %d: invalid price %q", line, get(3))
		}
		stock, err := strconv.Atoi(get(4))
		if err != nil {
			return nil, fmt.Errorf("row %d: invalid stock %q", line, get(4))
		}
		ir.Input = catalog.ProductInput{Name: name, Description: get(2), Price: &price, Stock: &stock}
		if img := get(5); img != "" {
			ir.Input.ImageURL = &img
		}
		for _, s := range strings.Split(get(6), ",") {
			if s = strings.TrimSpace(s); s == "" {
				continue
			}
			id, err := strconv.ParseInt(s, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("row %d: invalid category id %q", line, s)
			}
			ir.CategoryIDs = append(ir.CategoryIDs, id)
		}
		out = append(out, ir)
	}
	return out, nil
}
