package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/ethereum/go-ethereum/log"
	"github.com/urfave/cli/v2"

	"github.com/layer-3/encryptme/config"
)

var (
	configFlag = &cli.StringFlag{
		Name:    "config",
		Usage:   "YAML configuration file",
		EnvVars: []string{"ENCRYPTME_CONFIG"},
	}
	verbosityFlag = &cli.IntFlag{
		Name:  "verbosity",
		Usage: "log level 0-5 (error, error, warn, info, debug, trace)",
		Value: 3,
	}
	rpcFlag = &cli.StringFlag{
		Name:    "rpc",
		Usage:   "JSON-RPC endpoint of the chain",
		EnvVars: []string{"ENCRYPTME_RPC_URL"},
	}
	chainIDFlag = &cli.Uint64Flag{
		Name:  "chain-id",
		Usage: "chain id; read from the node when zero",
	}
	chatContractFlag = &cli.StringFlag{
		Name:    "chat-contract",
		Usage:   "EncryptedChat contract address",
		EnvVars: []string{"ENCRYPTME_CHAT_CONTRACT"},
	}
	vaultContractFlag = &cli.StringFlag{
		Name:    "vault-contract",
		Usage:   "BidVault contract address",
		EnvVars: []string{"ENCRYPTME_VAULT_CONTRACT"},
	}
	keyFlag = &cli.StringFlag{
		Name:    "key",
		Usage:   "hex secp256k1 private key of the acting account",
		EnvVars: []string{"ENCRYPTME_KEY"},
	}
	storeFlag = &cli.StringFlag{
		Name:  "store",
		Usage: "session store: memory, file or redis",
	}
	storePathFlag = &cli.StringFlag{
		Name:  "store-path",
		Usage: "directory of the file session store",
	}
	redisFlag = &cli.StringFlag{
		Name:    "redis-url",
		Usage:   "Redis URL for the redis session store and event streams",
		EnvVars: []string{"REDIS_URL"},
	}
)

func main() {
	app := &cli.App{
		Name:  "encryptme",
		Usage: "wallet-authorized encrypted chat and sealed-bid vault",
		Flags: []cli.Flag{
			configFlag, verbosityFlag, rpcFlag, chainIDFlag, chatContractFlag, vaultContractFlag,
			keyFlag, storeFlag, storePathFlag, redisFlag,
		},
		Before: func(c *cli.Context) error {
			setupLogging(c.Int(verbosityFlag.Name))
			return nil
		},
		Commands: []*cli.Command{
			serveCommand,
			digestCommand,
			sessionCommand,
			chatCommand,
			bidCommand,
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func setupLogging(verbosity int) {
	var lvl slog.Level
	switch {
	case verbosity <= 1:
		lvl = slog.LevelError
	case verbosity == 2:
		lvl = slog.LevelWarn
	case verbosity == 3:
		lvl = slog.LevelInfo
	case verbosity == 4:
		lvl = slog.LevelDebug
	default:
		lvl = log.LevelTrace
	}
	log.SetDefault(log.NewLogger(log.NewTerminalHandlerWithLevel(os.Stderr, lvl, true)))
}

// loadConfig reads the config file and applies flag overrides
func loadConfig(c *cli.Context) (config.Config, error) {
	cfg, err := config.Load(c.String(configFlag.Name))
	if err != nil {
		return cfg, err
	}
	if c.IsSet(rpcFlag.Name) {
		cfg.Chain.RPCURL = c.String(rpcFlag.Name)
	}
	if c.IsSet(chainIDFlag.Name) {
		cfg.Chain.ChainID = c.Uint64(chainIDFlag.Name)
	}
	if c.IsSet(chatContractFlag.Name) {
		cfg.Chain.ChatContract = c.String(chatContractFlag.Name)
	}
	if c.IsSet(vaultContractFlag.Name) {
		cfg.Chain.VaultContract = c.String(vaultContractFlag.Name)
	}
	if c.IsSet(storeFlag.Name) {
		cfg.Store.Kind = c.String(storeFlag.Name)
	}
	if c.IsSet(storePathFlag.Name) {
		cfg.Store.Path = c.String(storePathFlag.Name)
	}
	if c.IsSet(redisFlag.Name) {
		cfg.Store.RedisURL = c.String(redisFlag.Name)
		cfg.Events.RedisURL = c.String(redisFlag.Name)
	}
	if c.IsSet(verbosityFlag.Name) {
		cfg.Log.Verbosity = c.Int(verbosityFlag.Name)
	}
	return cfg, cfg.Validate()
}
