package entity

import (
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/receipt-recognizer/internal/parser"
)

// Receipt is a recognized record together with the file it came from.
type Receipt struct {
	ID         uuid.UUID     `json:"id"`
	FileHash   string        `json:"file_hash"`
	SourcePath string        `json:"source_path"`
	Record     parser.Record `json:"record"`
	IssuedOn   *time.Time    `json:"issued_on,omitempty"`
	CreatedAt  time.Time     `json:"created_at"`
}

// ParseIssuedOn converts the record date (DD.MM.YY or DD.MM.YYYY) into a
// calendar day. It returns nil when the date is absent or unparseable.
func ParseIssuedOn(date *string) *time.Time {
	if date == nil {
		return nil
	}
	for _, layout := range []string{"02.01.2006", "02.01.06"} {
		if t, err := time.Parse(layout, *date); err == nil {
			return &t
		}
	}
	return nil
}
