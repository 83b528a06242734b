// Package extract declares the collaborators the recognition pipeline reads
// a receipt file through.
package extract

import (
	"context"
	"time"

	"github.com/joseph-ayodele/receipt-recognizer/internal/ocr"
)

// OCRText is what the text recognizer made of one file.
type OCRText struct {
	Text       string
	Pages      int
	SourceType string // constants.PDF | constants.IMAGE
	Method     string
	Language   string
	Confidence float32
	Duration   time.Duration
	Warnings   []string
}

type TextExtractor interface {
	Extract(ctx context.Context, path string) (OCRText, error)
}

// TextExtractorFunc adapts a function to TextExtractor.
type TextExtractorFunc func(ctx context.Context, path string) (OCRText, error)

func (f TextExtractorFunc) Extract(ctx context.Context, path string) (OCRText, error) {
	return f(ctx, path)
}

// QRDecoder returns the normalized payload of the code printed on the
// receipt; false when there is none or it cannot be read.
type QRDecoder interface {
	Decode(ctx context.Context, path string) (string, bool)
}

// FromOCR exposes an ocr.Extractor as a TextExtractor.
func FromOCR(e *ocr.Extractor) TextExtractor {
	return TextExtractorFunc(func(ctx context.Context, path string) (OCRText, error) {
		r, err := e.Extract(ctx, path)
		if err != nil {
			return OCRText{Method: r.Method, Warnings: r.Warnings}, err
		}
		return OCRText{
			Text:       r.Text,
			Pages:      r.Pages,
			SourceType: r.SourceType,
			Method:     r.Method,
			Language:   r.Language,
			Confidence: r.Confidence,
			Duration:   r.Duration,
			Warnings:   r.Warnings,
		}, nil
	})
}
