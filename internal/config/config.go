// =================================
// File: internal/config/config.go
// =================================
package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/spf13/viper"

	"github.com/rovshanmuradov/hybrid-swap/internal/escrow"
)

type Config struct {
	RPCList           []string `mapstructure:"rpc_list"`
	Keypair           string   `mapstructure:"keypair"`
	EscrowProgramID   string   `mapstructure:"escrow_program_id"`
	CoreProgramID     string   `mapstructure:"core_program_id"`
	FeeProjectAccount string   `mapstructure:"fee_project_account"`
	Delegates         []string `mapstructure:"delegates"`
	ConfirmTimeout    int      `mapstructure:"confirm_timeout"` // секунды
	SkipPreflight     bool     `mapstructure:"skip_preflight"`
	Commitment        string   `mapstructure:"commitment"`
	DebugLogging      bool     `mapstructure:"debug_logging"`
	LogFile           string   `mapstructure:"log_file"`
	MetricsAddr       string   `mapstructure:"metrics_addr"` // пусто - метрики не публикуются
}

const (
	EnvPrefix = "HYBRID_SWAP"

	DefaultRPCURL            = "https://api.devnet.solana.com"
	DefaultEscrowProgramID   = "MPL4o4wMzndgh8T1NVDxELQCj5UQfYTYEkabX3wNKtb"
	DefaultCoreProgramID     = "CoREENxT6tW1HoK8ypY1SxRMZTcVPm7R94rH4PZNhX7d"
	DefaultFeeProjectAccount = "GjF4LqmEhV33riVyAwHwiEeAHx4XXFn2yMY3fmMigoP3"
	DefaultConfirmTimeout    = 60
	DefaultCommitment        = "confirmed"
)

// DefaultDelegates - адреса, которым развернутая программа эскроу требует
// выдать UpdateDelegate на коллекцию.
var DefaultDelegates = []string{
	"5jD4WTmGYmJG6e9JjRvJX8Svk5Ph2rxqwPjrqky33rRg",
	"2BAnwcKZHzohvMjwZ4ekxN2vmrgLF955d8U1cw1XvHVz",
}

// LoadConfig читает файл конфигурации (если path не пуст) и переменные окружения.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()

	defaults := map[string]interface{}{
		"rpc_list":            []string{DefaultRPCURL},
		"escrow_program_id":   DefaultEscrowProgramID,
		"core_program_id":     DefaultCoreProgramID,
		"fee_project_account": DefaultFeeProjectAccount,
		"delegates":           DefaultDelegates,
		"confirm_timeout":     DefaultConfirmTimeout,
		"commitment":          DefaultCommitment,
		"log_file":            "logs/swapctl.log",
	}
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if err := loadEnvironmentVariables(v, &cfg); err != nil {
		return nil, err
	}

	return &cfg, validateConfig(&cfg)
}

// ConfirmTimeoutDuration возвращает таймаут подтверждения транзакции.
func (c *Config) ConfirmTimeoutDuration() time.Duration {
	return time.Duration(c.ConfirmTimeout) * time.Second
}

// Deployment разбирает адреса программ и делегатов.
func (c *Config) Deployment() (escrow.Deployment, error) {
	var (
		d   escrow.Deployment
		err error
	)
	if d.EscrowProgram, err = escrow.ParseAddress("escrow_program_id", c.EscrowProgramID); err != nil {
		return d, err
	}
	if d.CoreProgram, err = escrow.ParseAddress("core_program_id", c.CoreProgramID); err != nil {
		return d, err
	}
	if d.FeeProjectAccount, err = escrow.ParseAddress("fee_project_account", c.FeeProjectAccount); err != nil {
		return d, err
	}
	for i, raw := range c.Delegates {
		delegate, err := escrow.ParseAddress(fmt.Sprintf("delegates[%d]", i), raw)
		if err != nil {
			return d, err
		}
		d.Delegates = append(d.Delegates, delegate)
	}
	return d, nil
}

func validateConfig(cfg *Config) error {
	if len(cfg.RPCList) == 0 {
		return errors.New("rpc_list is empty")
	}
	for _, rpcURL := range cfg.RPCList {
		if err := validateURLWithCache(rpcURL, "http"); err != nil {
			return fmt.Errorf("invalid RPC URL %q: %w", rpcURL, err)
		}
	}
	if len(cfg.Delegates) == 0 {
		return errors.New("delegates list is empty")
	}
	if cfg.ConfirmTimeout <= 0 {
		return errors.New("invalid confirm_timeout")
	}
	switch cfg.Commitment {
	case "processed", "confirmed", "finalized":
	default:
		return fmt.Errorf("invalid commitment %q", cfg.Commitment)
	}
	return nil
}

var urlCache sync.Map

func validateURLWithCache(rawURL string, protocol string) error {
	if _, ok := urlCache.Load(rawURL); ok {
		return nil
	}
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return errors.New("invalid URL format")
	}
	if !strings.HasPrefix(parsed.Scheme, protocol) || parsed.Host == "" {
		return errors.New("invalid URL protocol")
	}
	urlCache.Store(rawURL, parsed)
	return nil
}

func loadEnvironmentVariables(v *viper.Viper, cfg *Config) error {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	envRPC := v.GetString("RPC_URL")
	if envRPC != "" {
		var cleanRPCs []string
		for _, rpc := range strings.Split(envRPC, ",") {
			clean := strings.TrimSpace(rpc)
			if clean != "" {
				cleanRPCs = append(cleanRPCs, clean)
			}
		}
		if len(cleanRPCs) > 0 {
			cfg.RPCList = cleanRPCs
		}
	}

	if envKeypair := v.GetString("KEYPAIR"); envKeypair != "" {
		cfg.Keypair = envKeypair
	}
	return nil
}

// LoadMarket читает профиль рынка (параметры эскроу) из файла и валидирует его.
func LoadMarket(path string) (escrow.EscrowConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return escrow.EscrowConfig{}, fmt.Errorf("failed to read market %s: %w", path, err)
	}

	var raw escrow.RawConfig
	if err := v.Unmarshal(&raw); err != nil {
		return escrow.EscrowConfig{}, fmt.Errorf("failed to decode market %s: %w", path, err)
	}

	return escrow.ValidateConfig(raw)
}
