package main

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/urfave/cli/v2"

	"github.com/layer-3/encryptme/digest"
)

var digestCommand = &cli.Command{
	Name:      "digest",
	Usage:     "print the digest an account signs to authorize an action",
	ArgsUsage: "<action>",
	Flags: []cli.Flag{
		&cli.Uint64Flag{Name: "nonce", Usage: "account nonce"},
		&cli.Uint64Flag{Name: "deadline", Usage: "unix deadline in seconds", Required: true},
		&cli.StringSliceFlag{
			Name:  "arg",
			Usage: "typed argument kind:value with kind address, uint256, bytes32 or bool; repeat in order",
		},
	},
	Action: func(c *cli.Context) error {
		if c.NArg() != 1 {
			return fmt.Errorf("expected one action name")
		}
		var args []digest.Arg
		for _, raw := range c.StringSlice("arg") {
			arg, err := parseArg(raw)
			if err != nil {
				return err
			}
			args = append(args, arg)
		}
		h, err := digest.Build(c.Args().First(), args, c.Uint64("nonce"), c.Uint64("deadline"))
		if err != nil {
			return err
		}
		fmt.Println(h.Hex())
		return nil
	},
}

func parseArg(raw string) (digest.Arg, error) {
	kind, value, ok := strings.Cut(raw, ":")
	if !ok {
		return digest.Arg{}, fmt.Errorf("argument %q is not kind:value", raw)
	}
	switch kind {
	case "address":
		if !common.IsHexAddress(value) {
			return digest.Arg{}, fmt.Errorf("invalid address %q", value)
		}
		return digest.Address(common.HexToAddress(value)), nil
	case "uint256":
		v, ok := new(big.Int).SetString(value, 0)
		if !ok {
			return digest.Arg{}, fmt.Errorf("invalid uint256 %q", value)
		}
		return digest.Uint256(v), nil
	case "bytes32":
		return digest.Arg{Kind: digest.KindBytes32, Value: common.FromHex(value)}, nil
	case "bool":
		switch value {
		case "true":
			return digest.Bool(true), nil
		case "false":
			return digest.Bool(false), nil
		}
		return digest.Arg{}, fmt.Errorf("invalid bool %q", value)
	default:
		return digest.Arg{}, fmt.Errorf("unknown argument kind %q", kind)
	}
}
