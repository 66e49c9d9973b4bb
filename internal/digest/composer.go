package digest

import (
	"fmt"
	"html/template"
	"strings"

	"stock-alert-service/internal/models"
)

// Composer renders a DigestReport into the HTML body of the operator email.
// Sections render only when their list is non-empty. Sale-affected items and
// other low-stock items land in different sections with different styling;
// that split comes from the caller.
type Composer struct {
	tmpl *template.Template
}

func New() *Composer {
	return &Composer{tmpl: template.Must(template.New("digest").Parse(reportTemplate))}
}

type row struct {
	Name       string
	Barcode    string
	Category   string
	Stock      int
	MinStock   int
	Expiration string
}

type reportView struct {
	GeneratedAt    string
	OutOfStock     []row
	RecentAffected []row
	OtherLowStock  []row
	Expired        []row
	ExpiringSoon   []row
	// Payables is rendered once the debts module exposes due invoices.
	// TODO: populate from the payables endpoint when it ships.
	Payables []row
}

// Compose builds the HTML document for the report.
func (c *Composer) Compose(r models.DigestReport) (string, error) {
	view := reportView{
		GeneratedAt:    r.GeneratedAt.Format("02/01/2006 15:04"),
		OutOfStock:     stockRows(r.OutOfStock),
		RecentAffected: stockRows(r.RecentlyAffected),
		OtherLowStock:  stockRows(r.LowStock),
		Expired:        expirationRows(r.Expired),
		ExpiringSoon:   expirationRows(r.ExpiringSoon),
	}

	var b strings.Builder
	if err := c.tmpl.Execute(&b, view); err != nil {
		return "", fmt.Errorf("failed to render digest: %w", err)
	}
	return b.String(), nil
}

// Subject builds the email subject line, encoding urgency and item counts.
func Subject(r models.DigestReport) string {
	urgent := r.UrgentItems()
	if len(urgent) > 0 {
		return fmt.Sprintf("🚨 URGENTE: %d producto(s) sin stock", len(urgent))
	}
	total := len(r.LowStock) + len(r.RecentlyAffected) + len(r.Expired) + len(r.ExpiringSoon)
	return fmt.Sprintf("Reporte de inventario: %d producto(s) requieren atención", total)
}

func stockRows(products []models.Product) []row {
	rows := make([]row, 0, len(products))
	for _, p := range products {
		rows = append(rows, row{
			Name:     p.Name,
			Barcode:  p.Barcode,
			Category: p.Category,
			Stock:    p.Stock,
			MinStock: models.MinStockFor(p.Category),
		})
	}
	return rows
}

func expirationRows(products []models.Product) []row {
	rows := make([]row, 0, len(products))
	for _, p := range products {
		exp := "-"
		if p.ExpirationDate != nil {
			exp = p.ExpirationDate.Format("02/01/2006")
		}
		rows = append(rows, row{
			Name:       p.Name,
			Barcode:    p.Barcode,
			Category:   p.Category,
			Stock:      p.Stock,
			Expiration: exp,
		})
	}
	return rows
}

const reportTemplate = `<!DOCTYPE html>
<html>
<head><meta charset="utf-8"></head>
<body style="font-family:Arial,sans-serif;color:#333;">
<h2>Reporte de inventario</h2>
<p>Generado: {{.GeneratedAt}}</p>
{{if .OutOfStock}}
<h3 style="color:#c0392b;">PRODUCTOS SIN STOCK</h3>
<table border="1" cellpadding="6" cellspacing="0">
<tr><th>Producto</th><th>Código</th><th>Categoría</th><th>Stock</th><th>Mínimo</th></tr>
{{range .OutOfStock}}<tr style="background:#fdecea;"><td>{{.Name}}</td><td>{{.Barcode}}</td><td>{{.Category}}</td><td>{{.Stock}}</td><td>{{.MinStock}}</td></tr>
{{end}}</table>
{{end}}
{{if .RecentAffected}}
<h3 style="color:#e67e22;">STOCK BAJO: AFECTADOS POR LA ÚLTIMA VENTA</h3>
<table border="1" cellpadding="6" cellspacing="0">
<tr><th>Producto</th><th>Código</th><th>Categoría</th><th>Stock</th><th>Mínimo</th></tr>
{{range .RecentAffected}}<tr style="background:#fef5e7;"><td>{{.Name}}</td><td>{{.Barcode}}</td><td>{{.Category}}</td><td>{{.Stock}}</td><td>{{.MinStock}}</td></tr>
{{end}}</table>
{{end}}
{{if .OtherLowStock}}
<h3 style="color:#d35400;">STOCK BAJO</h3>
<table border="1" cellpadding="6" cellspacing="0">
<tr><th>Producto</th><th>Código</th><th>Categoría</th><th>Stock</th><th>Mínimo</th></tr>
{{range .OtherLowStock}}<tr><td>{{.Name}}</td><td>{{.Barcode}}</td><td>{{.Category}}</td><td>{{.Stock}}</td><td>{{.MinStock}}</td></tr>
{{end}}</table>
{{end}}
{{if .Expired}}
<h3 style="color:#7b241c;">PRODUCTOS VENCIDOS</h3>
<table border="1" cellpadding="6" cellspacing="0">
<tr><th>Producto</th><th>Código</th><th>Categoría</th><th>Vencimiento</th></tr>
{{range .Expired}}<tr style="background:#f5b7b1;"><td>{{.Name}}</td><td>{{.Barcode}}</td><td>{{.Category}}</td><td>{{.Expiration}}</td></tr>
{{end}}</table>
{{end}}
{{if .ExpiringSoon}}
<h3 style="color:#b9770e;">PRODUCTOS POR VENCER</h3>
<table border="1" cellpadding="6" cellspacing="0">
<tr><th>Producto</th><th>Código</th><th>Categoría</th><th>Vencimiento</th></tr>
{{range .ExpiringSoon}}<tr style="background:#fcf3cf;"><td>{{.Name}}</td><td>{{.Barcode}}</td><td>{{.Category}}</td><td>{{.Expiration}}</td></tr>
{{end}}</table>
{{end}}
{{if .Payables}}
<h3>CUENTAS POR PAGAR</h3>
<table border="1" cellpadding="6" cellspacing="0">
{{range .Payables}}<tr><td>{{.Name}}</td></tr>
{{end}}</table>
{{end}}
</body>
</html>`
