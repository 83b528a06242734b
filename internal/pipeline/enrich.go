package pipeline

import (
	"github.com/joseph-ayodele/receipt-recognizer/internal/parser"
	"github.com/joseph-ayodele/receipt-recognizer/internal/qr"
)

// Enrich attaches the caller-side fields to a parsed record: the tax service
// link when the QR payload is a URL, the raw OCR text, and the receipt number
// carried by the link when the parsed one looks like an OCR misread.
func Enrich(rec *parser.Record, qrValue, rawText string) {
	text := rawText
	rec.RawText = &text
	if !qr.IsURL(qrValue) {
		return
	}
	link := qrValue
	rec.FNSURL = &link

	number, ok := qr.ReceiptNumberFromURL(link)
	if ok && suspiciousReceiptNumber(parser.Value(rec.ReceiptNumber)) {
		rec.ReceiptNumber = &number
	}
}

func suspiciousReceiptNumber(n string) bool {
	if len(n) < 8 {
		return true
	}
	return len(n) < 10 && allDigits(n)
}

func allDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}
