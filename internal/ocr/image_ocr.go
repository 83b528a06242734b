package ocr

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/joseph-ayodele/receipt-recognizer/constants"
)

func (e *Extractor) extractImage(ctx context.Context, path string) (ExtractionResult, error) {
	txt, warn, err := e.tesseractOCR(ctx, path)
	if err != nil {
		return ExtractionResult{SourceType: constants.IMAGE, Warnings: warn}, err
	}
	txt = Normalize(txt)

	var ocrConf float32
	if e.cfg.EnableTSVConfidence {
		if c, err2 := e.tesseractTSVConfidence(ctx, path); err2 == nil {
			ocrConf = c
		} else {
			warn = append(warn, err2.Error())
		}
	}
	heurConf := heuristicConfidence(txt)

	// blend: weight OCR higher if present
	conf := heurConf
	if ocrConf > 0 {
		conf = 0.7*ocrConf + 0.3*heurConf
	}
	if conf > 1.0 {
		conf = 1.0
	}

	return ExtractionResult{
		Text:       txt,
		Pages:      1,
		SourceType: constants.IMAGE,
		Method:     "image-ocr",
		Language:   e.lang(),
		Warnings:   warn,
		Confidence: conf,
	}, nil
}

// tesseractArgs builds "<file> stdout -l rus+eng --psm N --oem N [--tessdata-dir D] [extra...]".
func (e *Extractor) tesseractArgs(path string, extra ...string) []string {
	args := []string{path, "stdout", "-l", e.lang(),
		"--psm", strconv.Itoa(e.cfg.PSM),
		"--oem", strconv.Itoa(e.cfg.OEM),
	}
	if e.cfg.TessdataDir != "" {
		args = append(args, "--tessdata-dir", e.cfg.TessdataDir)
	}
	return append(args, extra...)
}

func (e *Extractor) tesseractOCR(ctx context.Context, path string) (string, []string, error) {
	out, errb, err := e.runner.Run(ctx, e.cfg.Tesseract, e.tesseractArgs(path)...)
	if err != nil {
		return "", []string{string(errb)}, fmt.Errorf("tesseract: %w", err)
	}
	return string(out), nil, nil
}

// tesseractTSVConfidence runs tesseract in TSV mode and returns mean word conf in 0..1.
func (e *Extractor) tesseractTSVConfidence(ctx context.Context, path string) (float32, error) {
	out, _, err := e.runner.Run(ctx, e.cfg.Tesseract, e.tesseractArgs(path, "tsv")...)
	if err != nil {
		return 0, fmt.Errorf("tesseract TSV: %w", err)
	}
	return meanTSVConfidence(string(out)), nil
}

// meanTSVConfidence averages the conf column over word rows. Tesseract TSV
// has 12 columns; conf is the 11th and is -1 for non-word rows.
func meanTSVConfidence(tsv string) float32 {
	var sum, n float64
	for i, ln := range strings.Split(tsv, "\n") {
		if i == 0 || ln == "" {
			continue
		}
		cols := strings.Split(ln, "\t")
		if len(cols) < 12 {
			continue
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(cols[10]), 64)
		if err != nil || v < 0 {
			continue
		}
		sum += v
		n++
	}
	if n == 0 {
		return 0
	}
	return float32(sum / n / 100.0)
}
