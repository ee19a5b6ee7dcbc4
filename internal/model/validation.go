package model

import (
	"errors"
	"fmt"
	"strings"
)

// ValidateVAT checks the format of a VAT identifier. Italian identifiers
// (IT prefix) must carry 11 digits with a valid check digit; other
// countries are only checked for being alphanumeric.
func ValidateVAT(vat string) error {
	if len(vat) < 3 {
		return NewValidationError("vat", vat, "length", "too short")
	}

	country, code := vat[:2], vat[2:]
	if !isAlnum(code) {
		return NewValidationError("vat", vat, "charset", "must be alphanumeric")
	}
	if country != "IT" {
		return nil
	}

	if len(code) != 11 || !isDigits(code) {
		return NewValidationError("vat", vat, "length", "italian VAT number must have 11 digits")
	}
	if !luhn(code) {
		return NewValidationError("vat", vat, "checksum", "invalid check digit")
	}
	return nil
}

// ValidateIBAN checks an IBAN with the ISO 13616 mod-97 algorithm
func ValidateIBAN(iban string) error {
	s := strings.ToUpper(strings.ReplaceAll(iban, " ", ""))
	if len(s) < 15 || len(s) > 34 {
		return NewValidationError("iban", iban, "length", "must be 15 to 34 characters")
	}
	if !isAlnum(s) {
		return NewValidationError("iban", iban, "charset", "must be alphanumeric")
	}

	rearranged := s[4:] + s[:4]
	rem := 0
	for _, c := range rearranged {
		var v int
		switch {
		case c >= '0' && c <= '9':
			v = int(c - '0')
			rem = (rem*10 + v) % 97
		default:
			v = int(c-'A') + 10
			rem = (rem*100 + v) % 97
		}
	}
	if rem != 1 {
		return NewValidationError("iban", iban, "checksum", "invalid check digits")
	}
	return nil
}

// CheckInvoice runs the advisory field checks over an extracted invoice and
// returns every failure with Field set to its location in the model.
func CheckInvoice(inv *Invoice) []*ValidationError {
	var out []*ValidationError
	add := func(field string, err error) {
		var verr *ValidationError
		if errors.As(err, &verr) {
			cp := *verr
			cp.Field = field
			out = append(out, &cp)
		}
	}

	add("invoicer.vat", ValidateVAT(inv.Invoicer.VAT))
	add("invoicee.vat", ValidateVAT(inv.Invoicee.VAT))
	if inv.ThirdParty != nil {
		add("thirdParty.vat", ValidateVAT(inv.ThirdParty.VAT))
	}
	for i, in := range inv.Installments {
		if in.Payment != nil {
			add(fmt.Sprintf("installments[%d].payment.iban", i), ValidateIBAN(in.Payment.IBAN))
		}
	}
	return out
}

func luhn(digits string) bool {
	sum := 0
	for i := 0; i < len(digits)-1; i++ {
		d := int(digits[i] - '0')
		if i%2 == 1 {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
	}
	check := (10 - sum%10) % 10
	return check == int(digits[len(digits)-1]-'0')
}

func isDigits(s string) bool {
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return s != ""
}

func isAlnum(s string) bool {
	for _, c := range s {
		if !(c >= '0' && c <= '9') && !(c >= 'A' && c <= 'Z') && !(c >= 'a' && c <= 'z') {
			return false
		}
	}
	return s != ""
}
