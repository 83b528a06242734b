package ocr

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/joseph-ayodele/receipt-recognizer/constants"
)

// minPDFTextRunes is how much embedded text a PDF needs before OCR is skipped.
const minPDFTextRunes = 40

func (e *Extractor) extractPDF(ctx context.Context, path string) (ExtractionResult, error) {
	text, pages, warns, err := e.pdfToText(ctx, path)
	if err == nil && len([]rune(strings.TrimSpace(text))) >= minPDFTextRunes {
		text = Normalize(text)
		return ExtractionResult{
			Text:       text,
			Pages:      pages,
			SourceType: constants.PDF,
			Method:     "pdf-text",
			Warnings:   warns,
			Confidence: heuristicConfidence(text),
		}, nil
	}
	if err != nil {
		e.logger.Warn("pdftotext failed, falling back to ocr", "path", path, "error", err)
		warns = append(warns, err.Error())
	}

	text, pages, ocrWarns, err := e.pdfToOCR(ctx, path)
	warns = append(warns, ocrWarns...)
	if err != nil {
		return ExtractionResult{SourceType: constants.PDF, Warnings: warns}, err
	}
	text = Normalize(text)
	return ExtractionResult{
		Text:       text,
		Pages:      pages,
		SourceType: constants.PDF,
		Method:     "pdf-ocr",
		Language:   e.lang(),
		Warnings:   warns,
		Confidence: heuristicConfidence(text),
	}, nil
}

func (e *Extractor) pdfToText(ctx context.Context, path string) (text string, pages int, warnings []string, err error) {
	// pdftotext -layout -enc UTF-8 -eol unix <path> -
	out, errb, err := e.runner.Run(ctx, e.cfg.Pdftotext, "-layout", "-enc", "UTF-8", "-eol", "unix", path, "-")
	if err != nil {
		return "", 0, []string{string(errb)}, err
	}
	text = string(out)
	// A form-feed \f is used as page separator by default
	pages = 1 + strings.Count(strings.TrimRight(text, "\f"), "\f")
	return text, pages, nil, nil
}

func (e *Extractor) pdfToOCR(ctx context.Context, path string) (text string, pages int, warnings []string, err error) {
	tmpDir, err := os.MkdirTemp("", "rr-pp-*")
	if err != nil {
		return "", 0, nil, err
	}
	defer func() {
		if err := os.RemoveAll(tmpDir); err != nil {
			e.logger.Warn("failed to remove temp dir", "dir", tmpDir, "error", err)
		}
	}()

	prefix := filepath.Join(tmpDir, "page")
	// pdftoppm -r 300 -png <in.pdf> <tmp/page>
	_, errb, err := e.runner.Run(ctx, e.cfg.Pdftoppm, "-r", fmt.Sprintf("%d", e.cfg.DPI), "-png", path, prefix)
	if err != nil {
		return "", 0, []string{string(errb)}, err
	}

	// collect generated pngs (prefix-1.png, prefix-2.png, ...)
	matches, _ := filepath.Glob(prefix + "-*.png")
	sort.Strings(matches)
	if e.cfg.MaxPages > 0 && len(matches) > e.cfg.MaxPages {
		matches = matches[:e.cfg.MaxPages]
	}
	if len(matches) == 0 {
		return "", 0, []string{"pdftoppm produced no images"}, fmt.Errorf("no pages rendered")
	}

	var b strings.Builder
	var warns []string
	var pageErr error
	for _, img := range matches {
		txt, w, err := e.tesseractOCR(ctx, img)
		if err != nil {
			warns = append(warns, err.Error())
			pageErr = err
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString(txt)
		warns = append(warns, w...)
	}
	if b.Len() == 0 && pageErr != nil {
		return "", len(matches), warns, pageErr
	}
	return b.String(), len(matches), warns, nil
}
