package models

import (
	"fmt"
	"strings"
)

type InvoiceKind string

const (
	InvoiceAdvance InvoiceKind = "advance"
	InvoiceFinal   InvoiceKind = "final"
)

// InvoiceNumber is stable per reservation and kind, e.g. INV-FINAL-00042.
func InvoiceNumber(kind InvoiceKind, reservationID uint) string {
	return fmt.Sprintf("INV-%s-%05d", strings.ToUpper(string(kind)), reservationID)
}
