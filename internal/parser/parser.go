package parser

import (
	"log/slog"
	"regexp"
	"strings"
)

// Parser turns the OCR line array of one receipt into a Record.
// It is safe for concurrent use; every call works on its own cursor.
type Parser struct {
	amountPatterns []*regexp.Regexp
	logger         *slog.Logger
}

// Option configures a Parser.
type Option func(*Parser)

// WithTotalPatterns replaces the amount pattern table. Each pattern must
// capture the figure in group 1. An empty table keeps the default.
func WithTotalPatterns(patterns []*regexp.Regexp) Option {
	return func(p *Parser) {
		if len(patterns) > 0 {
			p.amountPatterns = patterns
		}
	}
}

// WithLogger sets the logger used for debug traces.
func WithLogger(l *slog.Logger) Option {
	return func(p *Parser) {
		if l != nil {
			p.logger = l
		}
	}
}

func New(opts ...Option) *Parser {
	p := &Parser{
		amountPatterns: DefaultAmountPatterns(),
		logger:         slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ParseText splits text into trimmed, non-empty lines and parses them.
func (p *Parser) ParseText(text string) Record {
	var lines []string
	for _, l := range SplitLines(text) {
		if l = strings.TrimSpace(l); l != "" {
			lines = append(lines, l)
		}
	}
	return p.Parse(lines)
}

// Parse never fails: fields that cannot be validated are left nil.
func (p *Parser) Parse(lines []string) Record {
	rec := Record{Services: []Service{}}
	if len(lines) == 0 {
		return rec
	}
	c := newCursor(lines)

	if v, ok := firstMatch(c.lines, receiptNumberRules); ok {
		rec.ReceiptNumber = ptr(v)
	}
	rec.Date = optional(firstMatch(c.lines, dateRules))
	rec.Time = receiptTime(c)
	rec.SellerName = optional(firstMatch(c.lines, sellerNameRules))
	rec.SellerINN = sellerINN(c)
	rec.BuyerINN = buyerINN(c)
	rec.TaxMode = taxMode(c)
	rec.CheckFormer = checkFormer(c)
	rec.CheckFormerINN = checkFormerINN(c)
	rec.TotalAmount = totalAmount(c, p.amountPatterns)
	rec.Services = p.services(c)

	p.logger.Debug("parser.parse.ok",
		"lines", len(lines),
		"services", len(rec.Services),
		"receipt_number", Value(rec.ReceiptNumber),
		"total", Value(rec.TotalAmount),
	)
	return rec
}

// services runs the reconstruction strategies until one yields items.
func (p *Parser) services(c *cursor) []Service {
	for _, s := range serviceStrategies {
		items := s.run(c, p.amountPatterns)
		if len(items) == 0 {
			continue
		}
		out := dedupServices(items)
		p.logger.Debug("parser.services.strategy", "strategy", s.name, "items", len(items), "kept", len(out))
		return out
	}
	return []Service{}
}
