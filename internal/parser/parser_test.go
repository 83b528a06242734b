package parser

import (
	"encoding/json"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var sampleReceipt = []string{
	"Чек №AB12345678",
	"01.02.2024 9:05",
	"Продавец Иван Иванович Петров",
	"ИНН продавца (НПД) 123456789012",
	"Наименование Сумма",
	"Выполнение работ",
	"оказание услуг в сервисе X",
	"500,00 ₽",
	"Итого 500,00 ₽",
}

func TestParser_Parse_SampleReceipt(t *testing.T) {
	rec := New().Parse(sampleReceipt)

	assert.Equal(t, "AB12345678", Value(rec.ReceiptNumber))
	assert.Equal(t, "01.02.2024", Value(rec.Date))
	assert.Equal(t, "09:05", Value(rec.Time))
	assert.Equal(t, "Иван Иванович Петров", Value(rec.SellerName))
	assert.Equal(t, "123456789012", Value(rec.SellerINN))
	assert.Equal(t, "500.00", Value(rec.TotalAmount))
	assert.Nil(t, rec.BuyerINN)
	assert.Nil(t, rec.CheckFormer)

	require.Len(t, rec.Services, 1)
	assert.Contains(t, rec.Services[0].Name, "Выполнение работ")
	assert.Contains(t, rec.Services[0].Name, "оказание услуг в сервисе X")
	assert.Equal(t, "500.00", rec.Services[0].Amount)
}

func TestParser_Parse_NoLines(t *testing.T) {
	rec := New().Parse(nil)

	data, err := json.Marshal(rec)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"receipt_number": null, "date": null, "time": null,
		"seller_name": null, "seller_inn": null, "buyer_inn": null,
		"services": [], "total_amount": null, "tax_mode": null,
		"check_former": null, "check_former_inn": null
	}`, string(data))
}

func TestParser_ParseText_DropsBlankLines(t *testing.T) {
	text := "Чек №AB12345678\r\n\r\n   \n01.02.2024 9:05\n"
	rec := New().ParseText(text)

	assert.Equal(t, "AB12345678", Value(rec.ReceiptNumber))
	assert.Equal(t, "01.02.2024", Value(rec.Date))
	assert.Empty(t, rec.Services)
	assert.NotNil(t, rec.Services)
}

func TestParser_Parse_TotalAmountNormalization(t *testing.T) {
	tests := []struct {
		name string
		line string
	}{
		{name: "thousand group and currency", line: "Итого 1 234,56 ₽"},
		{name: "plain dot decimal", line: "Итого 1234.56"},
		{name: "rub suffix", line: "Итого: 1234,56 руб"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := New().Parse([]string{tt.line})
			assert.Equal(t, "1234.56", Value(rec.TotalAmount))
		})
	}
}

func TestParser_Parse_TotalOnNextLine(t *testing.T) {
	rec := New().Parse([]string{"ИТОГО:", "780,00 ₽"})
	assert.Equal(t, "780.00", Value(rec.TotalAmount))
}

func TestParser_Parse_TotalSkipsItemCount(t *testing.T) {
	rec := New().Parse([]string{"Итого 12 позиций", "500,00 ₽"})
	assert.Equal(t, "500.00", Value(rec.TotalAmount))

	rec = New().Parse([]string{"Итого 500"})
	assert.Equal(t, "500", Value(rec.TotalAmount))
}

func TestParser_Parse_WithTotalPatterns(t *testing.T) {
	p := New(WithTotalPatterns([]*regexp.Regexp{regexp.MustCompile(`(\d+)\s*EUR`)}))
	rec := p.Parse([]string{"Итого 42 EUR"})
	assert.Equal(t, "42", Value(rec.TotalAmount))

	rec = New(WithTotalPatterns(nil)).Parse([]string{"Итого 42,00 ₽"})
	assert.Equal(t, "42.00", Value(rec.TotalAmount))
}

func TestParser_Parse_ServicesKeepInputOrder(t *testing.T) {
	rec := New().Parse([]string{
		"Наименование Сумма",
		"1. Консультация юриста 1 500,00 ₽",
		"2. Подготовка договора 2 000,00 ₽",
		"3. Регистрация 300,00 ₽",
		"Итого 3 800,00 ₽",
	})

	require.Len(t, rec.Services, 3)
	assert.Equal(t, Service{Name: "Консультация юриста", Amount: "1500.00"}, rec.Services[0])
	assert.Equal(t, Service{Name: "Подготовка договора", Amount: "2000.00"}, rec.Services[1])
	assert.Equal(t, Service{Name: "Регистрация", Amount: "300.00"}, rec.Services[2])
	assert.Equal(t, "3800.00", Value(rec.TotalAmount))
}

func TestParser_Parse_ServicesUnique(t *testing.T) {
	rec := New().Parse([]string{
		"Наименование",
		"Консультация юриста 1 500,00 ₽",
		"Консультация юриста 1 500,00 ₽",
		"Итого 1 500,00 ₽",
	})

	require.Len(t, rec.Services, 1)
	assert.Equal(t, "1500.00", rec.Services[0].Amount)
}

func TestParser_Parse_MarkerScanWithoutSection(t *testing.T) {
	rec := New().Parse([]string{
		"Оказание консультации",
		"700 руб",
		"Спасибо за покупку",
	})

	require.Len(t, rec.Services, 1)
	assert.Equal(t, Service{Name: "Оказание консультации", Amount: "700"}, rec.Services[0])
}

func TestParser_Parse_TotalRescue(t *testing.T) {
	rec := New().Parse([]string{
		"Оказание услуг по ремонту",
		"мастер Петров",
		"Итого 1200,50 руб",
	})

	require.Len(t, rec.Services, 1)
	assert.Equal(t, "Оказание услуг по ремонту мастер Петров", rec.Services[0].Name)
	assert.Equal(t, "1200.50", rec.Services[0].Amount)
}

func TestParser_Parse_KeywordPairing(t *testing.T) {
	rec := New().Parse([]string{
		"Сервис доставки",
		"350,00",
		"Спасибо",
	})

	require.Len(t, rec.Services, 1)
	assert.Equal(t, Service{Name: "Сервис доставки", Amount: "350.00"}, rec.Services[0])
}

func TestParser_Parse_Concurrent(t *testing.T) {
	p := New()
	want := p.Parse(sampleReceipt)

	done := make(chan Record, 8)
	for i := 0; i < cap(done); i++ {
		go func() { done <- p.Parse(sampleReceipt) }()
	}
	for i := 0; i < cap(done); i++ {
		assert.Equal(t, want, <-done)
	}
}
