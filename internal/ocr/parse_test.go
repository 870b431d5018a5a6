package ocr

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseReceiptText(t *testing.T) {
	text := `Big Bazaar Hypermarket
123 MG Road, Bengaluru
Invoice No: BB-2024-00931
Date: 15/03/2024
Rice 5kg          450.00
Cooking Oil 1L    185.50
CGST: 28.50
Discount: 50.00
Grand Total: Rs. 1,245.00
Thank you, visit again`

	data, confidence := ParseReceiptText(text)

	assert.Equal(t, "Big Bazaar Hypermarket", data.MerchantName)
	assert.Equal(t, 1245.00, data.Amount)
	assert.Equal(t, "BB-2024-00931", data.BillNumber)
	require.NotNil(t, data.Date)
	assert.Equal(t, time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), *data.Date)
	assert.Equal(t, 28.50, data.TaxAmount)
	assert.Equal(t, 50.00, data.DiscountAmount)
	assert.Equal(t, 1.0, confidence)
}

func TestParseReceiptTextPartial(t *testing.T) {
	data, confidence := ParseReceiptText("Corner Store\nTotal: 320")

	assert.Equal(t, "Corner Store", data.MerchantName)
	assert.Equal(t, 320.0, data.Amount)
	assert.Nil(t, data.Date)
	assert.Empty(t, data.BillNumber)
	assert.Equal(t, 0.5, confidence)
}

func TestParseReceiptTextEmpty(t *testing.T) {
	data, confidence := ParseReceiptText("")

	assert.Empty(t, data.MerchantName)
	assert.Zero(t, data.Amount)
	assert.Equal(t, 0.0, confidence)
}

func TestParseReceiptTextISODate(t *testing.T) {
	data, _ := ParseReceiptText("Shop\nDate: 2024-03-15\nTotal: 99.99")

	require.NotNil(t, data.Date)
	assert.Equal(t, time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), *data.Date)
}

func TestParseReceiptTextTwoDigitYear(t *testing.T) {
	data, _ := ParseReceiptText("Shop\nDate: 15/03/24\nTotal: 99.99")

	require.NotNil(t, data.Date)
	assert.Equal(t, 2024, data.Date.Year())
}

func TestParseReceiptTextCommaAmount(t *testing.T) {
	data, _ := ParseReceiptText("Shop\nBill Amount: ₹ 12,450.75")

	assert.Equal(t, 12450.75, data.Amount)
}
