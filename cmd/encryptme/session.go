package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v2"
)

var sessionCommand = &cli.Command{
	Name:  "session",
	Usage: "sign in, inspect or sign out the account session",
	Subcommands: []*cli.Command{
		{
			Name:  "login",
			Usage: "sign a session message and mirror it on the ledger",
			Action: withClient(func(ctx context.Context, c *cli.Context, cl *client) error {
				session, err := cl.sessions.SignIn(ctx)
				if err != nil {
					return err
				}
				if err := cl.sessions.CreateLedgerSession(ctx); err != nil {
					// The local session stays usable for reads
					fmt.Fprintln(c.App.ErrWriter, "Ledger session not created:", err)
				}
				return printJSON(map[string]any{
					"address":   session.Address,
					"expiresAt": session.ExpiresAt,
					"state":     cl.sessions.State(ctx),
				})
			}),
		},
		{
			Name:  "status",
			Usage: "report the authentication state",
			Action: withClient(func(ctx context.Context, c *cli.Context, cl *client) error {
				return printJSON(map[string]any{
					"address":       cl.wallet.Address(),
					"state":         cl.sessions.State(ctx),
					"ledgerSession": cl.sessions.CheckLedgerSession(ctx),
				})
			}),
		},
		{
			Name:  "logout",
			Usage: "clear the local session",
			Action: withClient(func(ctx context.Context, c *cli.Context, cl *client) error {
				return cl.sessions.SignOut(ctx)
			}),
		},
	},
}
