package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/urfave/cli/v2"
)

var chatCommand = &cli.Command{
	Name:  "chat",
	Usage: "authorized actions on the encrypted chat contract",
	Subcommands: []*cli.Command{
		{
			Name:      "register",
			Usage:     "register the account with a public key commitment",
			ArgsUsage: "[public-key]",
			Action: withClient(func(ctx context.Context, c *cli.Context, cl *client) error {
				pub := crypto.Keccak256Hash(crypto.FromECDSAPub(&cl.wallet.PrivateKey().PublicKey))
				if c.NArg() > 0 {
					pub = common.HexToHash(c.Args().First())
				}
				return cl.chat.Register(ctx, pub)
			}),
		},
		{
			Name:      "grant",
			Usage:     "let an account read messages sent by this one",
			ArgsUsage: "<address>",
			Action: withClient(func(ctx context.Context, c *cli.Context, cl *client) error {
				to, err := addressArg(c)
				if err != nil {
					return err
				}
				return cl.chat.GrantAccess(ctx, to)
			}),
		},
		{
			Name:      "send",
			Usage:     "encrypt and send a message",
			ArgsUsage: "<address> <text>",
			Action: withClient(func(ctx context.Context, c *cli.Context, cl *client) error {
				to, err := addressArg(c)
				if err != nil {
					return err
				}
				if c.NArg() != 2 {
					return fmt.Errorf("expected recipient and message text")
				}
				id, err := cl.chat.SendMessage(ctx, to, []byte(c.Args().Get(1)))
				if err != nil {
					return err
				}
				return printJSON(map[string]uint64{"id": id})
			}),
		},
		{
			Name:      "decrypt",
			Usage:     "request access to a message and open it",
			ArgsUsage: "<message-id>",
			Action: withClient(func(ctx context.Context, c *cli.Context, cl *client) error {
				id, err := strconv.ParseUint(c.Args().First(), 10, 64)
				if err != nil {
					return fmt.Errorf("invalid message id %q", c.Args().First())
				}
				msg, err := cl.chat.DecryptMessage(ctx, id)
				if err != nil {
					return err
				}
				return printJSON(map[string]any{
					"id":        msg.ID,
					"handle":    msg.Handle,
					"plaintext": string(msg.Plaintext),
					"opaque":    msg.Opaque,
				})
			}),
		},
		{
			Name:  "list",
			Usage: "list message metadata",
			Action: withClient(func(ctx context.Context, c *cli.Context, cl *client) error {
				msgs, err := cl.chat.Messages(ctx)
				if err != nil {
					return err
				}
				return printJSON(msgs)
			}),
		},
	},
}

func addressArg(c *cli.Context) (common.Address, error) {
	raw := c.Args().First()
	if !common.IsHexAddress(raw) {
		return common.Address{}, fmt.Errorf("invalid address %q", raw)
	}
	return common.HexToAddress(raw), nil
}
