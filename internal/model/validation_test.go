package model_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rezonia/fattura-renderer/internal/model"
)

func TestValidateVAT(t *testing.T) {
	tests := []struct {
		name    string
		vat     string
		wantErr bool
	}{
		{"valid italian", "IT01234567897", false},
		{"bad check digit", "IT01234567890", true},
		{"too few digits", "IT0123456789", true},
		{"letters in italian code", "IT0123456789A", true},
		{"foreign id accepted", "DE123456789", false},
		{"foreign id with symbols", "DE123-456", true},
		{"too short", "IT", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := model.ValidateVAT(tt.vat)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateIBAN(t *testing.T) {
	tests := []struct {
		name    string
		iban    string
		wantErr bool
	}{
		{"valid italian", "IT60X0542811101000000123456", false},
		{"valid with spaces", "IT60 X054 2811 1010 0000 0123 456", false},
		{"valid lowercase", "gb82west12345698765432", false},
		{"wrong checksum", "IT60X0542811101000000123457", true},
		{"too short", "IT60X05", true},
		{"invalid characters", "IT60X0542811101000000123-56", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := model.ValidateIBAN(tt.iban)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestCheckInvoice(t *testing.T) {
	inv := &model.Invoice{
		Invoicer: model.Company{Name: "Acme", VAT: "IT01234567890"},
		Invoicee: model.Company{Name: "Rossi", VAT: "IT09876543217"},
		Installments: []model.Installment{
			{Number: "1"},
			{Number: "2", Payment: &model.Payment{IBAN: "IT60X0542811101000000123457"}},
		},
	}

	failures := model.CheckInvoice(inv)
	require.Len(t, failures, 2)
	assert.Equal(t, "invoicer.vat", failures[0].Field)
	assert.Equal(t, "checksum", failures[0].Rule)
	assert.Equal(t, "installments[1].payment.iban", failures[1].Field)

	inv.Invoicer.VAT = "IT01234567897"
	inv.Installments[1].Payment.IBAN = "IT60X0542811101000000123456"
	assert.Empty(t, model.CheckInvoice(inv))
}
