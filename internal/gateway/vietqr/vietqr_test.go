package vietqr

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuilder_Details(t *testing.T) {
	b := NewBuilder(Config{
		BankBIN:       "970436",
		AccountNumber: "0123456789",
		AccountName:   "NGUYEN VAN A",
		BankName:      "Vietcombank",
	})

	d := b.Details("ORD20250101120000000042", 280000)

	assert.Equal(t, "Vietcombank", d.BankName)
	assert.Equal(t, "0123456789", d.AccountNumber)
	assert.Equal(t, int64(280000), d.Amount)
	assert.Equal(t, "DH ORD20250101120000000042", d.TransferNote)
	assert.Equal(t,
		"https://img.vietqr.io/image/970436-0123456789-compact.png?amount=280000&addInfo=DH+ORD20250101120000000042&accountName=NGUYEN+VAN+A",
		d.QRImageURL,
	)
}

func TestTransferNote(t *testing.T) {
	assert.Equal(t, "DH ORD123", TransferNote("ORD123"))
}
