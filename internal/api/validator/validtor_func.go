package validator

import (
	"regexp"

	"github.com/go-playground/validator/v10"
)

const (
	amountRegex   = `^\d+(\.\d{1,2})?$`
	msisdnRegex   = `^(\+?254|0)?(7|1)\d{8}$`
	currencyRegex = `^[A-Z]{3}$`
)

const (
	AmountTag   = "amount"
	MSISDNTag   = "msisdn"
	CurrencyTag = "currency"
)

var valid = map[string]func(fl validator.FieldLevel) bool{
	AmountTag:   ValidateAmount,
	MSISDNTag:   ValidateMSISDN,
	CurrencyTag: ValidateCurrency,
}

func ValidateAmount(fl validator.FieldLevel) bool {
	amount := fl.Field().String()
	return regexp.MustCompile(amountRegex).MatchString(amount)
}

func ValidateMSISDN(fl validator.FieldLevel) bool {
	phone := fl.Field().String()
	return regexp.MustCompile(msisdnRegex).MatchString(phone)
}

func ValidateCurrency(fl validator.FieldLevel) bool {
	currency := fl.Field().String()
	return regexp.MustCompile(currencyRegex).MatchString(currency)
}
