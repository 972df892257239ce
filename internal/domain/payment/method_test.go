package payment

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validCard() *CardInput {
	return &CardInput{
		Number:      "4242 4242 4242 4242",
		CVC:         "123",
		CardHolder:  "Ada Lovelace",
		ExpiryMonth: 12,
		ExpiryYear:  time.Now().Year() + 3,
	}
}

func TestCardInput_Validate(t *testing.T) {
	require.NoError(t, validCard().Validate())

	short := validCard()
	short.Number = "4242"
	assert.Error(t, short.Validate())

	badCVC := validCard()
	badCVC.CVC = "12"
	assert.Error(t, badCVC.Validate())

	noHolder := validCard()
	noHolder.CardHolder = ""
	assert.Error(t, noHolder.Validate())

	badMonth := validCard()
	badMonth.ExpiryMonth = 13
	assert.Error(t, badMonth.Validate())

	expired := validCard()
	expired.ExpiryYear = time.Now().Year() - 1
	assert.Error(t, expired.Validate())
}

func TestCardInput_Redact(t *testing.T) {
	m := validCard().Redact(42)

	assert.Equal(t, int64(42), m.AccountID)
	assert.Equal(t, "visa", m.Brand)
	assert.Equal(t, "4242", m.Last4)
	assert.Equal(t, "Ada Lovelace", m.CardHolder)
}

func TestBrandOf(t *testing.T) {
	assert.Equal(t, "visa", BrandOf("4242424242424242"))
	assert.Equal(t, "mastercard", BrandOf("5105105105105100"))
	assert.Equal(t, "amex", BrandOf("371449635398431"))
	assert.Equal(t, "card", BrandOf("6011000990139424"))
}

func TestMaskNumber(t *testing.T) {
	assert.Equal(t, "************4242", MaskNumber("4242 4242 4242 4242"))
	assert.Equal(t, "4242", MaskNumber("4242"))
}
