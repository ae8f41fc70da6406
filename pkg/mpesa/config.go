package mpesa

import "time"

type Config struct {
	Enable            bool          `mapstructure:"enable"`
	BaseURL           string        `mapstructure:"base_url"`
	ConsumerKey       string        `mapstructure:"consumer_key"`
	ConsumerSecret    string        `mapstructure:"consumer_secret"`
	ShortCode         string        `mapstructure:"short_code"`
	PassKey           string        `mapstructure:"pass_key"`
	CallbackURL       string        `mapstructure:"callback_url"`
	Timeout           time.Duration `mapstructure:"timeout"`
	TokenSafetyMargin time.Duration `mapstructure:"token_safety_margin"`
	MinAmount         float64       `mapstructure:"min_amount"`
	MaxAmount         float64       `mapstructure:"max_amount"`
	Currencies        []string      `mapstructure:"currencies"`
}
