package qr

import (
	"context"
	"log/slog"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/joseph-ayodele/receipt-recognizer/internal/ocr"
)

// fnsCheckURL is the tax service page that renders a receipt from its QR payload.
const fnsCheckURL = "https://www.nalog.gov.ru/rn77/program/596129272/?data="

var (
	reFNSPayload     = regexp.MustCompile(`^t=`)
	reReceiptFromURL = regexp.MustCompile(`/receipt/\d+/([A-Za-z0-9]+)/`)
	// zbarimg prints these instead of a payload when it cannot run properly.
	toolNoise = []string{"not recognized", "command not found", "error", "failed"}
)

type Config struct {
	Zbarimg string        // binary name or absolute path; if empty -> "zbarimg"
	Timeout time.Duration // 0 = caller's context only
}

// Decoder reads the QR code printed on a receipt photo.
type Decoder struct {
	cfg    Config
	runner ocr.Runner
	logger *slog.Logger
}

func NewDecoder(cfg Config, runner ocr.Runner, logger *slog.Logger) *Decoder {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Zbarimg == "" {
		cfg.Zbarimg = "zbarimg"
	}
	if runner == nil {
		runner = ocr.ExecRunner{Logger: logger}
	}
	return &Decoder{cfg: cfg, runner: runner, logger: logger}
}

// Decode returns the normalized payload of the first QR code in the image.
// A missing code, a missing binary and a failed run all report false.
func (d *Decoder) Decode(ctx context.Context, path string) (string, bool) {
	if d.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.cfg.Timeout)
		defer cancel()
	}
	out, _, err := d.runner.Run(ctx, d.cfg.Zbarimg, "-q", "--raw", path)
	if err != nil {
		// zbarimg exits 4 when the image has no symbol; that is not worth a warning.
		d.logger.Debug("qr.decode.none", "path", path, "error", err)
		return "", false
	}
	payload := firstLine(string(out))
	if payload == "" {
		return "", false
	}
	low := strings.ToLower(payload)
	for _, noise := range toolNoise {
		if strings.Contains(low, noise) {
			d.logger.Warn("qr.decode.noise", "path", path, "output", payload)
			return "", false
		}
	}
	return NormalizePayload(payload), true
}

// NormalizePayload turns a bare fiscal payload ("t=...&s=...&fn=...") or any
// long non-URL payload into a link to the tax service check page. URLs are
// returned unchanged.
func NormalizePayload(payload string) string {
	payload = strings.TrimSpace(payload)
	low := strings.ToLower(payload)
	if strings.HasPrefix(low, "http://") || strings.HasPrefix(low, "https://") {
		return payload
	}
	if reFNSPayload.MatchString(payload) ||
		(!strings.Contains(low, "ofd.ru") && !strings.Contains(low, "http") && len(payload) > 20) {
		return fnsCheckURL + url.QueryEscape(payload)
	}
	return payload
}

// IsURL reports whether payload is an http(s) link.
func IsURL(payload string) bool {
	u, err := url.Parse(payload)
	return err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// ReceiptNumberFromURL extracts the receipt ID from a ".../receipt/<inn>/<id>/" link.
func ReceiptNumberFromURL(link string) (string, bool) {
	m := reReceiptFromURL.FindStringSubmatch(link)
	if m == nil {
		return "", false
	}
	return m[1], true
}

func firstLine(s string) string {
	for _, l := range strings.Split(s, "\n") {
		if l = strings.TrimSpace(l); l != "" {
			return l
		}
	}
	return ""
}
