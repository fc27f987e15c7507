// Package config holds the encryptme configuration and its YAML loader.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"gopkg.in/yaml.v3"

	"github.com/layer-3/encryptme/adapters/store"
)

type Chain struct {
	RPCURL        string `yaml:"rpc_url"`
	ChainID       uint64 `yaml:"chain_id"`
	ChatContract  string `yaml:"chat_contract"`
	VaultContract string `yaml:"vault_contract"`
}

type Session struct {
	TTL         time.Duration `yaml:"ttl"`
	ReadTimeout time.Duration `yaml:"read_timeout"`
}

type Auth struct {
	DeadlineGrace time.Duration `yaml:"deadline_grace"`
}

type Store struct {
	Kind     string `yaml:"kind"`
	Path     string `yaml:"path"`
	RedisURL string `yaml:"redis_url"`
	Prefix   string `yaml:"prefix"`
}

type Oracle struct {
	Chains []uint64 `yaml:"chains"`
	// Identity is an AGE-SECRET-KEY-1 string; empty generates one per process
	Identity string `yaml:"identity"`
}

type HTTP struct {
	Addr     string        `yaml:"addr"`
	TokenTTL time.Duration `yaml:"token_ttl"`
}

type Events struct {
	RedisURL string `yaml:"redis_url"`
	Prefix   string `yaml:"prefix"`
}

type Log struct {
	Verbosity int `yaml:"verbosity"`
}

// Config is the full configuration
type Config struct {
	Chain   Chain   `yaml:"chain"`
	Session Session `yaml:"session"`
	Auth    Auth    `yaml:"auth"`
	Store   Store   `yaml:"store"`
	Oracle  Oracle  `yaml:"oracle"`
	HTTP    HTTP    `yaml:"http"`
	Events  Events  `yaml:"events"`
	Log     Log     `yaml:"log"`
}

// Default returns the configuration used when no file is given
func Default() Config {
	return Config{
		Chain: Chain{
			RPCURL:  "http://127.0.0.1:8545",
			ChainID: 31337,
		},
		Session: Session{
			TTL:         24 * time.Hour,
			ReadTimeout: 7 * time.Second,
		},
		Auth: Auth{DeadlineGrace: time.Hour},
		Store: Store{
			Kind:   store.KindFile,
			Path:   defaultStorePath(),
			Prefix: "encryptme:session:",
		},
		Oracle: Oracle{Chains: []uint64{11155111, 31337}},
		HTTP: HTTP{
			Addr:     ":9000",
			TokenTTL: time.Hour,
		},
		Events: Events{Prefix: ""},
		Log:    Log{Verbosity: 3},
	}
}

func defaultStorePath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".encryptme/sessions"
	}
	return dir + "/encryptme/sessions"
}

// Load reads path over the defaults. Durations use Go syntax such as "24h".
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, cfg.Validate()
}

// Validate checks field ranges and formats
func (c Config) Validate() error {
	var errs []error
	if c.Session.TTL <= 0 {
		errs = append(errs, errors.New("session.ttl must be positive"))
	}
	if c.Session.ReadTimeout <= 0 {
		errs = append(errs, errors.New("session.read_timeout must be positive"))
	}
	if c.Auth.DeadlineGrace <= 0 {
		errs = append(errs, errors.New("auth.deadline_grace must be positive"))
	}
	switch c.Store.Kind {
	case store.KindMemory:
	case store.KindFile:
		if c.Store.Path == "" {
			errs = append(errs, errors.New("store.path is required for the file store"))
		}
	case store.KindRedis:
		if c.Store.RedisURL == "" {
			errs = append(errs, errors.New("store.redis_url is required for the redis store"))
		}
	default:
		errs = append(errs, fmt.Errorf("store.kind %q is not one of memory, file, redis", c.Store.Kind))
	}
	for name, addr := range map[string]string{
		"chain.chat_contract":  c.Chain.ChatContract,
		"chain.vault_contract": c.Chain.VaultContract,
	} {
		if addr != "" && !common.IsHexAddress(addr) {
			errs = append(errs, fmt.Errorf("%s %q is not an address", name, addr))
		}
	}
	if c.Log.Verbosity < 0 || c.Log.Verbosity > 5 {
		errs = append(errs, fmt.Errorf("log.verbosity %d out of range 0-5", c.Log.Verbosity))
	}
	return errors.Join(errs...)
}
