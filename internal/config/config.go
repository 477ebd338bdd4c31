package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/mitchellh/go-homedir"
	toml "github.com/pelletier/go-toml/v2"
)

// Config is the notechain client configuration.
type Config struct {
	Ledger      LedgerConfig
	Wallet      WalletConfig
	Pinning     PinningConfig
	Timeouts    TimeoutConfig
	Sync        SyncConfig
	Log         LogConfig
	DownloadDir string

	// Source is the file the config was read from, empty when defaults
	// were used.
	Source string
}

// LedgerConfig locates the node and the notes contract.
type LedgerConfig struct {
	RPCURL          string
	ContractAddress string
}

// WalletConfig locates the JSON-RPC wallet provider. An empty URL means no
// provider is installed.
type WalletConfig struct {
	URL string
}

// PinningConfig configures the pinning API and what may be uploaded.
type PinningConfig struct {
	APIURL            string
	GatewayURL        string
	APIKey            string
	APISecret         string
	JWT               string
	MaxFileSize       int64
	AllowedExtensions []string
	UnpinOrphans      bool
}

// TimeoutConfig bounds remote calls.
type TimeoutConfig struct {
	Call        time.Duration
	Transaction time.Duration
}

// SyncConfig controls action exclusion and background refresh.
type SyncConfig struct {
	ActionScope  string
	PollInterval time.Duration // zero disables polling
}

// LogConfig configures the JSON log file.
type LogConfig struct {
	Level string
	File  string
}

const (
	defaultConfigPath      = "~/.config/notechain/config.toml"
	defaultRPCURL          = "http://127.0.0.1:8545"
	defaultContractAddress = "0xd7EA1A8C72000007f7474b6784813441680e842D"
	defaultWalletURL       = "http://127.0.0.1:1248"
	defaultAPIURL          = "https://api.pinata.cloud"
	defaultGatewayURL      = "https://gateway.pinata.cloud"
	defaultMaxFileSize     = 100 << 20
	defaultCallTimeout     = 15 * time.Second
	defaultTxTimeout       = 3 * time.Minute
	defaultActionScope     = "global"
	defaultPollInterval    = 30 * time.Second
	defaultLogLevel        = "info"
	defaultLogFile         = "~/.local/state/notechain/notechain.log"
	defaultDownloadDir     = "~/Downloads"
)

var defaultExtensions = []string{".pdf", ".doc", ".docx", ".txt", ".png", ".jpg", ".jpeg"}

// DefaultPath returns the default config file path.
func DefaultPath() string {
	return defaultConfigPath
}

// Default returns the configuration used when no file exists. Pinning
// secrets come from the PINATA_* environment variables.
func Default() Config {
	return Config{
		Ledger: LedgerConfig{RPCURL: defaultRPCURL, ContractAddress: defaultContractAddress},
		Wallet: WalletConfig{URL: defaultWalletURL},
		Pinning: PinningConfig{
			APIURL:            defaultAPIURL,
			GatewayURL:        defaultGatewayURL,
			APIKey:            os.Getenv("PINATA_API_KEY"),
			APISecret:         os.Getenv("PINATA_API_SECRET"),
			JWT:               os.Getenv("PINATA_JWT"),
			MaxFileSize:       defaultMaxFileSize,
			AllowedExtensions: append([]string(nil), defaultExtensions...),
			UnpinOrphans:      true,
		},
		Timeouts:    TimeoutConfig{Call: defaultCallTimeout, Transaction: defaultTxTimeout},
		Sync:        SyncConfig{ActionScope: defaultActionScope, PollInterval: defaultPollInterval},
		Log:         LogConfig{Level: defaultLogLevel, File: mustExpand(defaultLogFile)},
		DownloadDir: mustExpand(defaultDownloadDir),
	}
}

type rawConfig struct {
	Ledger struct {
		RPCURL          string `toml:"rpc_url"`
		ContractAddress string `toml:"contract_address"`
	} `toml:"ledger"`
	Wallet struct {
		URL *string `toml:"url"`
	} `toml:"wallet"`
	Pinning struct {
		APIURL            string   `toml:"api_url"`
		GatewayURL        string   `toml:"gateway_url"`
		APIKey            *string  `toml:"api_key"`
		APISecret         *string  `toml:"api_secret"`
		JWT               *string  `toml:"jwt"`
		MaxFileSize       *int64   `toml:"max_file_size"`
		AllowedExtensions []string `toml:"allowed_extensions"`
		UnpinOrphans      *bool    `toml:"unpin_orphans"`
	} `toml:"pinning"`
	Timeouts struct {
		Call        string `toml:"call"`
		Transaction string `toml:"transaction"`
	} `toml:"timeouts"`
	Sync struct {
		ActionScope  string  `toml:"action_scope"`
		PollInterval *string `toml:"poll_interval"`
	} `toml:"sync"`
	Log struct {
		Level string `toml:"level"`
		File  string `toml:"file"`
	} `toml:"log"`
	DownloadDir string `toml:"download_dir"`
}

// Load reads the config at path, falling back to defaults when the file is
// missing. ${VAR} references are expanded before parsing.
func Load(path string) (Config, error) {
	resolved, err := resolvePath(path)
	if err != nil {
		return Config{}, err
	}

	cfg := Default()

	file, err := os.Open(resolved)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, cfg.Validate()
		}
		return Config{}, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	bytes, err := io.ReadAll(file)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	var raw rawConfig
	if err := toml.Unmarshal([]byte(os.ExpandEnv(string(bytes))), &raw); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.apply(raw); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	cfg.Source = resolved

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

func (c *Config) apply(raw rawConfig) error {
	setString(&c.Ledger.RPCURL, raw.Ledger.RPCURL)
	setString(&c.Ledger.ContractAddress, raw.Ledger.ContractAddress)
	if raw.Wallet.URL != nil {
		c.Wallet.URL = strings.TrimSpace(*raw.Wallet.URL)
	}

	setString(&c.Pinning.APIURL, raw.Pinning.APIURL)
	setString(&c.Pinning.GatewayURL, raw.Pinning.GatewayURL)
	setOptional(&c.Pinning.APIKey, raw.Pinning.APIKey)
	setOptional(&c.Pinning.APISecret, raw.Pinning.APISecret)
	setOptional(&c.Pinning.JWT, raw.Pinning.JWT)
	if raw.Pinning.MaxFileSize != nil {
		c.Pinning.MaxFileSize = *raw.Pinning.MaxFileSize
	}
	if raw.Pinning.AllowedExtensions != nil {
		c.Pinning.AllowedExtensions = normalizeExtensions(raw.Pinning.AllowedExtensions)
	}
	if raw.Pinning.UnpinOrphans != nil {
		c.Pinning.UnpinOrphans = *raw.Pinning.UnpinOrphans
	}

	if err := setDuration(&c.Timeouts.Call, raw.Timeouts.Call, "timeouts.call"); err != nil {
		return err
	}
	if err := setDuration(&c.Timeouts.Transaction, raw.Timeouts.Transaction, "timeouts.transaction"); err != nil {
		return err
	}

	setString(&c.Sync.ActionScope, raw.Sync.ActionScope)
	if raw.Sync.PollInterval != nil {
		if err := setDuration(&c.Sync.PollInterval, *raw.Sync.PollInterval, "sync.poll_interval"); err != nil {
			return err
		}
		if strings.TrimSpace(*raw.Sync.PollInterval) == "" || strings.TrimSpace(*raw.Sync.PollInterval) == "0" {
			c.Sync.PollInterval = 0
		}
	}

	setString(&c.Log.Level, strings.ToLower(raw.Log.Level))
	if strings.TrimSpace(raw.Log.File) != "" {
		c.Log.File = mustExpand(raw.Log.File)
	}
	if strings.TrimSpace(raw.DownloadDir) != "" {
		c.DownloadDir = mustExpand(raw.DownloadDir)
	}
	return nil
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if err := validation.ValidateStruct(&c.Ledger,
		validation.Field(&c.Ledger.RPCURL, validation.Required),
		validation.Field(&c.Ledger.ContractAddress, validation.Required, validation.By(hexAddress)),
	); err != nil {
		return fmt.Errorf("ledger: %w", err)
	}
	if err := validation.ValidateStruct(&c.Pinning,
		validation.Field(&c.Pinning.APIURL, validation.Required),
		validation.Field(&c.Pinning.GatewayURL, validation.Required),
		validation.Field(&c.Pinning.MaxFileSize, validation.Min(int64(0))),
		validation.Field(&c.Pinning.APISecret, validation.When(c.Pinning.APIKey != "" && c.Pinning.JWT == "", validation.Required)),
	); err != nil {
		return fmt.Errorf("pinning: %w", err)
	}
	if err := validation.ValidateStruct(&c.Timeouts,
		validation.Field(&c.Timeouts.Call, validation.Min(time.Duration(0))),
		validation.Field(&c.Timeouts.Transaction, validation.Min(time.Duration(0))),
	); err != nil {
		return fmt.Errorf("timeouts: %w", err)
	}
	if err := validation.ValidateStruct(&c.Sync,
		validation.Field(&c.Sync.ActionScope, validation.Required, validation.In("global", "note")),
		validation.Field(&c.Sync.PollInterval, validation.Min(time.Duration(0))),
	); err != nil {
		return fmt.Errorf("sync: %w", err)
	}
	if err := validation.ValidateStruct(&c.Log,
		validation.Field(&c.Log.Level, validation.Required, validation.In("debug", "info", "warn", "error")),
		validation.Field(&c.Log.File, validation.Required),
	); err != nil {
		return fmt.Errorf("log: %w", err)
	}
	return nil
}

// SlogLevel maps Log.Level to a slog level.
func (c Config) SlogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return slog.LevelInfo
	}
	return level
}

// HasPinningCredentials reports whether any pinning credential is set.
func (c Config) HasPinningCredentials() bool {
	return c.Pinning.JWT != "" || c.Pinning.APIKey != ""
}

func hexAddress(value any) error {
	s, _ := value.(string)
	if !common.IsHexAddress(s) {
		return errors.New("must be a 0x-prefixed hex address")
	}
	return nil
}

func setString(dst *string, value string) {
	if v := strings.TrimSpace(value); v != "" {
		*dst = v
	}
}

func setOptional(dst *string, value *string) {
	if value != nil {
		*dst = strings.TrimSpace(*value)
	}
}

func setDuration(dst *time.Duration, value, field string) error {
	v := strings.TrimSpace(value)
	if v == "" || v == "0" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("%s: %w", field, err)
	}
	*dst = d
	return nil
}

func normalizeExtensions(exts []string) []string {
	out := make([]string, 0, len(exts))
	for _, ext := range exts {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		out = append(out, ext)
	}
	return out
}

func resolvePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return expandPath(defaultConfigPath)
	}
	return expandPath(path)
}

func mustExpand(path string) string {
	expanded, err := expandPath(path)
	if err != nil {
		return path
	}
	return expanded
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", fmt.Errorf("path is empty")
	}
	expanded, err := homedir.Expand(trimmed)
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Abs(expanded)
}
