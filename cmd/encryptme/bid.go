package main

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/urfave/cli/v2"

	"github.com/layer-3/encryptme/digest"
)

var (
	amountFlag = &cli.StringFlag{
		Name:     "amount",
		Usage:    "bid amount, in whole units when --decimals is set",
		Required: true,
	}
	decimalsFlag = &cli.IntFlag{
		Name:  "decimals",
		Usage: "token decimals applied to --amount",
	}
	saltFlag = &cli.StringFlag{
		Name:  "salt",
		Usage: "0x-prefixed 32-byte salt or a string of up to 31 bytes",
	}
)

var bidCommand = &cli.Command{
	Name:  "bid",
	Usage: "sealed bids on the commit-reveal vault",
	Subcommands: []*cli.Command{
		{
			Name:  "hash",
			Usage: "print the commitment of an amount and salt",
			Flags: []cli.Flag{amountFlag, decimalsFlag, saltFlag},
			Action: func(c *cli.Context) error {
				amount, salt, err := bidInputs(c, false)
				if err != nil {
					return err
				}
				h, err := digest.BidHash(amount, salt)
				if err != nil {
					return err
				}
				return printJSON(map[string]string{
					"hash": h.Hex(),
					"salt": hexutil.Encode(salt[:]),
				})
			},
		},
		{
			Name:  "commit",
			Usage: "commit a sealed bid; a random salt is drawn when --salt is empty",
			Flags: []cli.Flag{amountFlag, decimalsFlag, saltFlag},
			Action: withClient(func(ctx context.Context, c *cli.Context, cl *client) error {
				amount, salt, err := bidInputs(c, false)
				if err != nil {
					return err
				}
				h, err := cl.bids.Commit(ctx, amount, salt)
				if err != nil {
					return err
				}
				// The salt is needed to reveal, print it once
				return printJSON(map[string]string{
					"hash": h.Hex(),
					"salt": hexutil.Encode(salt[:]),
				})
			}),
		},
		{
			Name:  "reveal",
			Usage: "reveal the committed bid",
			Flags: []cli.Flag{amountFlag, decimalsFlag, saltFlag},
			Action: withClient(func(ctx context.Context, c *cli.Context, cl *client) error {
				amount, salt, err := bidInputs(c, true)
				if err != nil {
					return err
				}
				return cl.bids.Reveal(ctx, amount, salt)
			}),
		},
		{
			Name:  "cancel",
			Usage: "withdraw the active commitment",
			Action: withClient(func(ctx context.Context, c *cli.Context, cl *client) error {
				return cl.bids.Cancel(ctx)
			}),
		},
		{
			Name:      "status",
			Usage:     "show the vault state of a bidder",
			ArgsUsage: "[address]",
			Action: withClient(func(ctx context.Context, c *cli.Context, cl *client) error {
				bidder := cl.wallet.Address()
				if c.NArg() > 0 {
					raw := c.Args().First()
					if !common.IsHexAddress(raw) {
						return fmt.Errorf("invalid address %q", raw)
					}
					bidder = common.HexToAddress(raw)
				}
				status, err := cl.bids.Status(ctx, bidder)
				if err != nil {
					return err
				}
				return printJSON(status)
			}),
		},
	},
}

func bidInputs(c *cli.Context, requireSalt bool) (amount *big.Int, salt [32]byte, err error) {
	amount, err = digest.ParseAmount(c.String(amountFlag.Name), int32(c.Int(decimalsFlag.Name)))
	if err != nil {
		return nil, salt, err
	}
	raw := c.String(saltFlag.Name)
	switch {
	case raw != "":
		salt, err = digest.ParseSalt(raw)
	case requireSalt:
		err = fmt.Errorf("--salt is required")
	default:
		salt, err = digest.RandomSalt()
	}
	return amount, salt, err
}
