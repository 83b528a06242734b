package ocr

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/receipt-recognizer/constants"
)

type call struct {
	name string
	args []string
}

type fakeRunner struct {
	calls  []call
	stdout map[string]string // keyed by binary, or binary+" tsv"
	err    error
}

func (f *fakeRunner) Run(_ context.Context, name string, args ...string) ([]byte, []byte, error) {
	f.calls = append(f.calls, call{name: name, args: args})
	if f.err != nil {
		return nil, []byte("boom"), f.err
	}
	key := name
	if len(args) > 0 && args[len(args)-1] == "tsv" {
		key += " tsv"
	}
	return []byte(f.stdout[key]), nil, nil
}

func TestExtractor_Extract_Image(t *testing.T) {
	r := &fakeRunner{stdout: map[string]string{
		"tesseract": "Чек №AB12345678\r\n-----\nИтого   500,00 ₽\n\n\n\n",
	}}
	e := NewExtractor(Config{TessdataDir: "/usr/share/tessdata"}, nil, WithRunner(r))

	res, err := e.Extract(context.Background(), "/tmp/receipt.JPG")
	require.NoError(t, err)

	assert.Equal(t, "Чек №AB12345678\n\nИтого 500,00 ₽", res.Text)
	assert.Equal(t, constants.IMAGE, res.SourceType)
	assert.Equal(t, "image-ocr", res.Method)
	assert.Equal(t, "rus+eng", res.Language)
	require.Len(t, r.calls, 1)
	assert.Equal(t, []string{
		"/tmp/receipt.JPG", "stdout", "-l", "rus+eng", "--psm", "6", "--oem", "3",
		"--tessdata-dir", "/usr/share/tessdata",
	}, r.calls[0].args)
}

func TestExtractor_Extract_TSVConfidence(t *testing.T) {
	tsv := strings.Join([]string{
		"level\tpage_num\tblock_num\tpar_num\tline_num\tword_num\tleft\ttop\twidth\theight\tconf\ttext",
		"1\t1\t0\t0\t0\t0\t0\t0\t100\t100\t-1\t",
		"5\t1\t1\t1\t1\t1\t10\t10\t20\t10\t90\tЧек",
		"5\t1\t1\t1\t1\t2\t40\t10\t20\t10\t70\tИтого",
	}, "\n")
	r := &fakeRunner{stdout: map[string]string{"tesseract": "Итого 10,00 ₽", "tesseract tsv": tsv}}
	e := NewExtractor(Config{EnableTSVConfidence: true}, nil, WithRunner(r))

	res, err := e.Extract(context.Background(), "a.png")
	require.NoError(t, err)
	assert.Len(t, r.calls, 2)
	assert.InDelta(t, 0.7*0.8+0.3*heuristicConfidence(res.Text), res.Confidence, 0.001)
}

func TestExtractor_Extract_EmptyText(t *testing.T) {
	r := &fakeRunner{stdout: map[string]string{"tesseract": "  \n\n"}}
	e := NewExtractor(Config{}, nil, WithRunner(r))

	_, err := e.Extract(context.Background(), "a.png")
	assert.ErrorIs(t, err, ErrEmptyText)
}

func TestExtractor_Extract_EngineUnavailable(t *testing.T) {
	r := &fakeRunner{err: ErrEngineUnavailable}
	e := NewExtractor(Config{}, nil, WithRunner(r))

	_, err := e.Extract(context.Background(), "a.jpeg")
	assert.ErrorIs(t, err, ErrEngineUnavailable)
}

func TestExtractor_Extract_UnsupportedExtension(t *testing.T) {
	e := NewExtractor(Config{}, nil, WithRunner(&fakeRunner{}))

	_, err := e.Extract(context.Background(), "a.gif")
	assert.Error(t, err)
}

func TestExtractor_Extract_PDFText(t *testing.T) {
	text := "Кассовый чек\nИНН 500100732259\nИтого 1 500,00 ₽\nСпасибо за покупку\f"
	r := &fakeRunner{stdout: map[string]string{"pdftotext": text}}
	e := NewExtractor(Config{}, nil, WithRunner(r))

	res, err := e.Extract(context.Background(), "r.pdf")
	require.NoError(t, err)
	assert.Equal(t, "pdf-text", res.Method)
	assert.Equal(t, 1, res.Pages)
	assert.Contains(t, res.Text, "Итого 1 500,00 ₽")
	require.Len(t, r.calls, 1)
}

func TestExecRunner_Run_MissingBinary(t *testing.T) {
	_, _, err := ExecRunner{}.Run(context.Background(), "definitely-not-a-real-binary-7f3a")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrEngineUnavailable)
}

func TestNormalize(t *testing.T) {
	in := "Итого\t\t500,00\r\n____\n\n\n\nИНН  123\n"
	assert.Equal(t, "Итого 500,00\n\nИНН 123", Normalize(in))
	assert.Equal(t, "", Normalize(""))
	// decomposed "й" composes to the single code point
	assert.Equal(t, "\u0439", Normalize("\u0438\u0306"))
}
