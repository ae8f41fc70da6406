package service

import (
	"github.com/dukapay/payments/internal/model"
	"github.com/dukapay/payments/pkg/mpesa"
	"github.com/dukapay/payments/pkg/pesapal"
	"github.com/shopspring/decimal"
)

// GatewayLimits are the per-gateway acceptance rules enforced before a
// transaction row is created. A zero Max means unlimited.
type GatewayLimits struct {
	Min           decimal.Decimal
	Max           decimal.Decimal
	Currencies    []string
	WholeUnits    bool
	RequiresPhone bool
}

type Limits map[model.Gateway]GatewayLimits

func NewGatewayLimits(mpesaConfig mpesa.Config, pesapalConfig pesapal.Config) Limits {
	return Limits{
		model.GatewayMobileMoney: {
			Min:           decimal.NewFromFloat(mpesaConfig.MinAmount),
			Max:           decimal.NewFromFloat(mpesaConfig.MaxAmount),
			Currencies:    mpesaConfig.Currencies,
			WholeUnits:    true,
			RequiresPhone: true,
		},
		model.GatewayCard: {
			Min:        decimal.NewFromFloat(pesapalConfig.MinAmount),
			Max:        decimal.NewFromFloat(pesapalConfig.MaxAmount),
			Currencies: pesapalConfig.Currencies,
		},
	}
}

func (l GatewayLimits) allowsCurrency(currency string) bool {
	if len(l.Currencies) == 0 {
		return true
	}

	for _, allowed := range l.Currencies {
		if allowed == currency {
			return true
		}
	}

	return false
}

func (l GatewayLimits) allowsAmount(amount decimal.Decimal) bool {
	if amount.LessThan(l.Min) {
		return false
	}
	if l.Max.IsPositive() && amount.GreaterThan(l.Max) {
		return false
	}
	if l.WholeUnits && !amount.IsInteger() {
		return false
	}

	return true
}
