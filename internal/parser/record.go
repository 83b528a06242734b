package parser

// Record is the flat receipt produced by one Parse call. Absent fields are nil
// and serialize as null; Services is never nil.
type Record struct {
	ReceiptNumber  *string   `json:"receipt_number"`
	Date           *string   `json:"date"`
	Time           *string   `json:"time"`
	SellerName     *string   `json:"seller_name"`
	SellerINN      *string   `json:"seller_inn"`
	BuyerINN       *string   `json:"buyer_inn"`
	Services       []Service `json:"services"`
	TotalAmount    *string   `json:"total_amount"`
	TaxMode        *string   `json:"tax_mode"`
	CheckFormer    *string   `json:"check_former"`
	CheckFormerINN *string   `json:"check_former_inn"`

	// Set by callers after parsing, never by the parser.
	FNSURL  *string `json:"fns_url,omitempty"`
	RawText *string `json:"raw_text,omitempty"`
}

// Service is one reconstructed line item. Amount uses '.' as the separator.
type Service struct {
	Name   string `json:"name"`
	Amount string `json:"amount"`
}

// Value returns the field or "" when it is absent.
func Value(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

func ptr(s string) *string { return &s }

func optional(s string, ok bool) *string {
	if !ok {
		return nil
	}
	return ptr(s)
}
