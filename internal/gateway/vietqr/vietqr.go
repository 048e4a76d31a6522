// Package vietqr builds static bank-transfer QR images for manual payment.
// There is no API call involved; the image host renders the QR from the
// query string and the transfer itself is verified by hand.
package vietqr

import (
	"fmt"
	"net/url"
)

const imageHost = "https://img.vietqr.io/image"

// Config identifies the receiving bank account.
type Config struct {
	BankBIN       string `env:"VIETQR_BANK_BIN" envDefault:"970436"`
	AccountNumber string `env:"VIETQR_ACCOUNT_NUMBER"`
	AccountName   string `env:"VIETQR_ACCOUNT_NAME"`
	BankName      string `env:"VIETQR_BANK_NAME" envDefault:"Vietcombank"`
}

// Details is everything the customer needs to complete a manual transfer.
type Details struct {
	BankName      string `json:"bank_name"`
	AccountNumber string `json:"account_number"`
	AccountName   string `json:"account_name"`
	Amount        int64  `json:"amount"`
	TransferNote  string `json:"transfer_note"`
	QRImageURL    string `json:"qr_image_url"`
}

// Builder produces transfer details for orders.
type Builder struct {
	cfg Config
}

func NewBuilder(cfg Config) *Builder {
	return &Builder{cfg: cfg}
}

// TransferNote returns the note the customer must include so the transfer
// can be matched to the order.
func TransferNote(orderNumber string) string {
	return "DH " + orderNumber
}

// Details builds the transfer instructions for one order. The QR encodes
// the exact amount and the matching note so the customer cannot mistype
// either.
func (b *Builder) Details(orderNumber string, amount int64) *Details {
	note := TransferNote(orderNumber)
	qr := fmt.Sprintf("%s/%s-%s-compact.png?amount=%d&addInfo=%s&accountName=%s",
		imageHost,
		b.cfg.BankBIN,
		b.cfg.AccountNumber,
		amount,
		url.QueryEscape(note),
		url.QueryEscape(b.cfg.AccountName),
	)
	return &Details{
		BankName:      b.cfg.BankName,
		AccountNumber: b.cfg.AccountNumber,
		AccountName:   b.cfg.AccountName,
		Amount:        amount,
		TransferNote:  note,
		QRImageURL:    qr,
	}
}
