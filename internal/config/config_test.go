package config

import (
	"strings"
	"testing"

	"github.com/spf13/viper"
)

func loadForTest(t *testing.T, yaml string) Config {
	t.Helper()
	v := viper.New()
	v.SetConfigType("yaml")
	setDefaults(v)
	if yaml != "" {
		if err := v.ReadConfig(strings.NewReader(yaml)); err != nil {
			t.Fatalf("read config failed: %v", err)
		}
	}
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		t.Fatalf("unmarshal config failed: %v", err)
	}
	return cfg
}

func TestDefaults(t *testing.T) {
	cfg := loadForTest(t, "")
	if cfg.Reward.BaseCurrency != "USDT" {
		t.Fatalf("base currency want USDT got %s", cfg.Reward.BaseCurrency)
	}
	if cfg.Reward.CurrencyRates["USDT"] != "1" {
		t.Fatalf("unexpected currency rates: %v", cfg.Reward.CurrencyRates)
	}
	if roles := cfg.InternalAuth.ServiceRoles["payout-worker"]; len(roles) != 1 || roles[0] != "payout" {
		t.Fatalf("unexpected payout roles: %v", roles)
	}
	if cfg.Queue.Queues["critical"] == 0 {
		t.Fatalf("critical queue weight missing: %v", cfg.Queue.Queues)
	}
	if cfg.Kafka.Enabled || cfg.Kafka.Topics.PnLEvents == "" {
		t.Fatalf("unexpected kafka defaults: %+v", cfg.Kafka)
	}
	if cfg.Security.ClaimRateLimit.MaxRequests <= 0 {
		t.Fatalf("claim rate limit should be enabled by default")
	}
}

func TestOverridesFromYAML(t *testing.T) {
	cfg := loadForTest(t, `
server:
  port: "9090"
reward:
  base_currency: EUR
  currency_rates:
    EUR: "1"
    USD: "0.92"
kafka:
  enabled: true
  brokers: ["kafka-1:9092", "kafka-2:9092"]
`)
	if cfg.Server.Port != "9090" {
		t.Fatalf("port want 9090 got %s", cfg.Server.Port)
	}
	// viper 会把 map 键转成小写，汇率表在构建时统一转大写
	if cfg.Reward.BaseCurrency != "EUR" || cfg.Reward.CurrencyRates["usd"] != "0.92" {
		t.Fatalf("unexpected reward config: %+v", cfg.Reward)
	}
	if !cfg.Kafka.Enabled || len(cfg.Kafka.Brokers) != 2 {
		t.Fatalf("unexpected kafka config: %+v", cfg.Kafka)
	}
	if cfg.Log.ToLoggerOptions().MaxBackups != 7 {
		t.Fatalf("log defaults should survive partial overrides")
	}
}

func TestWeakSecrets(t *testing.T) {
	cfg := &Config{}
	cfg.UserJWT.SecretKey = "short"
	cfg.InternalAuth.SecretKey = "0123456789abcdef0123456789abcdef-strong"
	weak := cfg.WeakSecrets()
	if len(weak) != 1 || weak[0] != "user_jwt.secret" {
		t.Fatalf("unexpected weak secrets: %v", weak)
	}

	cfg.InternalAuth.SecretKey = "please-change-me-before-going-live-0000"
	if got := cfg.WeakSecrets(); len(got) != 2 {
		t.Fatalf("placeholder secret should be weak, got %v", got)
	}
}
