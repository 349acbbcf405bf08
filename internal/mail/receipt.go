package mail

import (
	"bytes"
	"html/template"
)

type ReceiptLine struct {
	Name      string
	Color     string
	Size      string
	Quantity  int64
	LineTotal int64
}

type ReceiptData struct {
	StoreName    string
	OrderNo      string
	CustomerName string
	Currency     string
	Lines        []ReceiptLine
	Subtotal     int64
	DeliveryFee  int64
	Total        int64
}

var receiptTmpl = template.Must(template.New("receipt").Parse(`<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; color: #222;">
  <h2>{{.StoreName}}</h2>
  <p>Hi {{.CustomerName}}, thank you for your order <strong>{{.OrderNo}}</strong>.</p>
  <table width="100%" cellpadding="6" style="border-collapse: collapse;">
    <tr style="background: #f4f4f4;">
      <th align="left">Item</th><th align="left">Variant</th><th align="right">Qty</th><th align="right">Total ({{.Currency}})</th>
    </tr>
    {{range .Lines}}
    <tr>
      <td>{{.Name}}</td>
      <td>{{.Color}} / {{.Size}}</td>
      <td align="right">{{.Quantity}}</td>
      <td align="right">{{.LineTotal}}</td>
    </tr>
    {{end}}
    <tr><td colspan="3" align="right">Subtotal</td><td align="right">{{.Subtotal}}</td></tr>
    <tr><td colspan="3" align="right">Delivery</td><td align="right">{{.DeliveryFee}}</td></tr>
    <tr><td colspan="3" align="right"><strong>Total</strong></td><td align="right"><strong>{{.Total}}</strong></td></tr>
  </table>
  <p>We will let you know as soon as your order ships.</p>
</body>
</html>`))

func RenderReceipt(data ReceiptData) (string, error) {
	var buf bytes.Buffer
	if err := receiptTmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
