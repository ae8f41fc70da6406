package config

import (
	"fmt"
	"time"

	"github.com/dukapay/payments/pkg/backoff"
	"github.com/dukapay/payments/pkg/mpesa"
	"github.com/dukapay/payments/pkg/mq"
	"github.com/dukapay/payments/pkg/mysql"
	"github.com/dukapay/payments/pkg/pesapal"
	"github.com/spf13/viper"
)

type Config struct {
	API        API            `mapstructure:"api"`
	Database   mysql.Config   `mapstructure:"database"`
	RabbitMQ   mq.Config      `mapstructure:"rabbitmq"`
	Mpesa      mpesa.Config   `mapstructure:"mpesa"`
	Pesapal    pesapal.Config `mapstructure:"pesapal"`
	Retry      backoff.Policy `mapstructure:"retry"`
	Poller     Poller         `mapstructure:"poller"`
	Reconciler Reconciler     `mapstructure:"reconciler"`
}

type API struct {
	Port string `mapstructure:"port"`
}

type Poller struct {
	Interval  time.Duration  `mapstructure:"interval"`
	BatchSize int            `mapstructure:"batch_size"`
	MinAge    time.Duration  `mapstructure:"min_age"`
	MaxChecks int            `mapstructure:"max_checks"`
	Backoff   backoff.Policy `mapstructure:"backoff"`
}

type Reconciler struct {
	Interval time.Duration `mapstructure:"interval"`
	Window   time.Duration `mapstructure:"window"`
}

func Load() (cfg *Config, err error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yml")
	viper.AddConfigPath("./config")

	err = viper.ReadInConfig()
	if err != nil {
		return cfg, fmt.Errorf("failed to load config: %w", err)
	}

	err = viper.Unmarshal(&cfg)
	if err != nil {
		return nil, err
	}

	return cfg, nil
}
