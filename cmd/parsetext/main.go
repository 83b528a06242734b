// parsetext parses OCR text from a file or stdin and prints the record as JSON.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/joseph-ayodele/receipt-recognizer/internal/parser"
	"github.com/joseph-ayodele/receipt-recognizer/internal/schema"
)

func main() {
	validate := flag.Bool("validate", false, "check the record against the receipt schema")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

	in := io.Reader(os.Stdin)
	if path := flag.Arg(0); path != "" && path != "-" {
		f, err := os.Open(path)
		if err != nil {
			logger.Error("failed to open input", "path", path, "error", err)
			os.Exit(1)
		}
		defer f.Close()
		in = f
	}

	if err := run(in, os.Stdout, *validate); err != nil {
		logger.Error("parse failed", "error", err)
		os.Exit(1)
	}
}

func run(in io.Reader, out io.Writer, validate bool) error {
	data, err := io.ReadAll(in)
	if err != nil {
		return fmt.Errorf("read input: %w", err)
	}
	rec := parser.New().ParseText(string(data))
	if validate {
		body, err := json.Marshal(rec)
		if err != nil {
			return err
		}
		if err := schema.Validate(body); err != nil {
			return err
		}
	}
	enc := json.NewEncoder(out)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(rec)
}
