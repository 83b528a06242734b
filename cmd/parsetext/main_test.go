package main

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleText = `Чек №AB12345678
01.02.2024 9:05
Продавец Иван Иванович Петров
ИНН продавца (НПД) 123456789012
Наименование Сумма
Выполнение работ
500,00 ₽
Итого 500,00 ₽
`

func TestRun_PrintsRecord(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, run(strings.NewReader(sampleText), &out, true))

	var got map[string]any
	require.NoError(t, json.Unmarshal(out.Bytes(), &got))
	assert.Equal(t, "AB12345678", got["receipt_number"])
	assert.Equal(t, "500.00", got["total_amount"])
	assert.Equal(t, "123456789012", got["seller_inn"])
}

func TestRun_EmptyInput(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, run(strings.NewReader(""), &out, false))
	assert.Contains(t, out.String(), `"receipt_number": null`)
}
