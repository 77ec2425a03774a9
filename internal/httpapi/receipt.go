package httpapi

import (
	"encoding/base64"
	"fmt"
	"strings"

	"lanepos/backend/internal/domain"
	"lanepos/backend/internal/money"
)

type receiptResponse struct {
	SaleID       string `json:"sale_id"`
	PreviewText  string `json:"preview_text"`
	EscposBase64 string `json:"escpos_base64"`
	FileName     string `json:"file_name"`
}

func buildReceipt(sale domain.Sale) receiptResponse {
	lines := []string{
		"LanePOS",
		"========================",
		"Sale: " + sale.ID,
		"Date: " + sale.CommittedAt.Format("2006-01-02 15:04:05"),
	}
	if sale.CustomerID != "" {
		lines = append(lines, "Customer: "+sale.CustomerID)
	}
	lines = append(lines, "------------------------")
	for _, line := range sale.Lines {
		lines = append(lines, fmt.Sprintf("%s x%d", line.Name, line.Quantity))
		lines = append(lines, fmt.Sprintf("  %s", money.Format(line.NetCents)))
	}
	lines = append(lines,
		"------------------------",
		fmt.Sprintf("Total  : %s", money.Format(sale.TotalCents)),
	)
	for _, payment := range sale.Payments {
		lines = append(lines, fmt.Sprintf("%-7s: %s", paymentLabel(payment.Method), money.Format(payment.AmountCents)))
	}
	lines = append(lines,
		fmt.Sprintf("Change : %s", money.Format(sale.ChangeCents)),
		"========================",
		"Thank you",
		"",
	)

	// ESC/POS: initialize, print lines, partial cut.
	escpos := []byte{0x1b, 0x40}
	for _, line := range lines {
		escpos = append(escpos, []byte(line)...)
		escpos = append(escpos, '\n')
	}
	escpos = append(escpos, []byte{0x1d, 0x56, 0x41, 0x10}...)

	return receiptResponse{
		SaleID:       sale.ID,
		PreviewText:  strings.Join(lines, "\n"),
		EscposBase64: base64.StdEncoding.EncodeToString(escpos),
		FileName:     fmt.Sprintf("receipt-%s.bin", sale.ID),
	}
}

func paymentLabel(method domain.PaymentMethod) string {
	switch method {
	case domain.PayCash:
		return "Cash"
	case domain.PayCard:
		return "Card"
	case domain.PayOnAccount:
		return "Account"
	default:
		return string(method)
	}
}
