package payment

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/Domenick1991/skycheckout/internal/domain"
)

type CardDetails struct {
	Number       string `json:"number"`
	HolderName   string `json:"holder_name"`
	Expiry       string `json:"expiry"`
	SecurityCode string `json:"security_code"`
}

type Request struct {
	Method domain.PaymentMethod `json:"method"`
	Card   *CardDetails         `json:"card,omitempty"`
}

var (
	cardDigitsRegex   = regexp.MustCompile(`^\d{16}$`)
	expiryRegex       = regexp.MustCompile(`^(0[1-9]|1[0-2])/\d{2}$`)
	securityCodeRegex = regexp.MustCompile(`^\d{3,4}$`)
	separatorReplacer = strings.NewReplacer(" ", "", "-", "")
)

// NormalizeCardNumber drops the space and dash separators users type.
func NormalizeCardNumber(number string) string {
	return separatorReplacer.Replace(number)
}

// Validate checks the method-specific input. Wallet redirects carry no local
// input and always pass.
func Validate(req Request) error {
	switch req.Method {
	case domain.PaymentMethodWalletRedirect:
		return nil
	case domain.PaymentMethodCardGateway, domain.PaymentMethodManualCard:
	default:
		verr := domain.NewValidationError(domain.ErrPaymentValidationFailed)
		verr.Add("method", "unsupported payment method")
		return verr
	}

	verr := domain.NewValidationError(domain.ErrPaymentValidationFailed)
	card := req.Card
	if card == nil {
		card = &CardDetails{}
	}
	if !cardDigitsRegex.MatchString(NormalizeCardNumber(card.Number)) {
		verr.Add("number", "must contain 16 digits")
	}
	if utf8.RuneCountInString(strings.TrimSpace(card.HolderName)) < 3 {
		verr.Add("holder_name", "must be at least 3 characters")
	}
	if !expiryRegex.MatchString(card.Expiry) {
		verr.Add("expiry", "must be MM/YY")
	}
	if !securityCodeRegex.MatchString(card.SecurityCode) {
		verr.Add("security_code", "must be 3 or 4 digits")
	}
	if !verr.Empty() {
		return verr
	}
	return nil
}

// CardBrand guesses the network from the leading digit.
func CardBrand(number string) string {
	n := NormalizeCardNumber(number)
	switch {
	case strings.HasPrefix(n, "4"):
		return "Visa"
	case strings.HasPrefix(n, "5"):
		return "Mastercard"
	case strings.HasPrefix(n, "3"):
		return "Amex"
	default:
		return ""
	}
}

func lastFour(number string) string {
	n := NormalizeCardNumber(number)
	if len(n) < 4 {
		return n
	}
	return n[len(n)-4:]
}
