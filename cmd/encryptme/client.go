package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"os"

	"github.com/ethereum/go-ethereum/common"
	"github.com/urfave/cli/v2"

	"github.com/layer-3/encryptme/adapters/ledger/chainledger"
	"github.com/layer-3/encryptme/adapters/oracle"
	"github.com/layer-3/encryptme/adapters/store"
	"github.com/layer-3/encryptme/adapters/wallet"
	"github.com/layer-3/encryptme/config"
	"github.com/layer-3/encryptme/ports"
	"github.com/layer-3/encryptme/service"
)

// client is the wiring shared by the account commands
type client struct {
	cfg      config.Config
	wallet   *wallet.KeyWallet
	ledger   *chainledger.Ledger
	sessions *service.SessionManager
	auth     *service.Authorizer
	chat     *service.ChatService
	bids     *service.BidService
	closer   func()
}

func newClient(c *cli.Context) (*client, error) {
	cfg, err := loadConfig(c)
	if err != nil {
		return nil, err
	}
	key := c.String(keyFlag.Name)
	if key == "" {
		return nil, errors.New("an account key is required (--key or ENCRYPTME_KEY)")
	}
	if !common.IsHexAddress(cfg.Chain.ChatContract) {
		return nil, fmt.Errorf("invalid chat contract %q", cfg.Chain.ChatContract)
	}

	w, err := wallet.FromHex(key)
	if err != nil {
		return nil, err
	}
	ctx := c.Context
	if err := w.Connect(ctx); err != nil {
		return nil, err
	}

	chainCfg := chainledger.Config{ChatContract: common.HexToAddress(cfg.Chain.ChatContract)}
	if cfg.Chain.ChainID != 0 {
		chainCfg.ChainID = new(big.Int).SetUint64(cfg.Chain.ChainID)
	}
	if common.IsHexAddress(cfg.Chain.VaultContract) {
		chainCfg.VaultContract = common.HexToAddress(cfg.Chain.VaultContract)
	}
	ledger, err := chainledger.Dial(ctx, cfg.Chain.RPCURL, chainCfg, w.PrivateKey())
	if err != nil {
		return nil, err
	}

	sessionStore, err := store.Open(ctx, cfg.Store.Kind, cfg.Store.Path, cfg.Store.RedisURL, cfg.Store.Prefix)
	if err != nil {
		ledger.Close()
		return nil, err
	}

	eventPub, closeEvents, err := eventPublisher(cfg.Events)
	if err != nil {
		ledger.Close()
		return nil, err
	}
	closer := func() {
		closeEvents()
		ledger.Close()
	}

	sessions := service.NewSessionManager(sessionStore, w, ledger, service.SessionOptions{
		TTL:         cfg.Session.TTL,
		ReadTimeout: cfg.Session.ReadTimeout,
		Events:      eventPub,
	})
	auth := service.NewAuthorizer(sessions, ledger, cfg.Auth.DeadlineGrace)

	chainID := cfg.Chain.ChainID
	if chainID == 0 {
		chainID = ledger.ChainID().Uint64()
	}
	var enc ports.Oracle
	if cfg.Oracle.Identity != "" {
		ageOracle, err := oracle.ParseAgeOracle(cfg.Oracle.Identity)
		if err != nil {
			closer()
			return nil, err
		}
		enc = ageOracle
	}

	return &client{
		cfg:      cfg,
		wallet:   w,
		ledger:   ledger,
		sessions: sessions,
		auth:     auth,
		chat:     service.NewChatService(auth, ledger, oracle.ForChain(chainID, cfg.Oracle.Chains, enc)),
		bids:     service.NewBidService(auth, ledger),
		closer:   closer,
	}, nil
}

func (cl *client) Close() {
	cl.closer()
}

// withClient runs fn with a client built from the global flags
func withClient(fn func(ctx context.Context, c *cli.Context, cl *client) error) cli.ActionFunc {
	return func(c *cli.Context) error {
		cl, err := newClient(c)
		if err != nil {
			return err
		}
		defer cl.Close()
		return fn(c.Context, c, cl)
	}
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
