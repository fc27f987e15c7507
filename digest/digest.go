// Package digest builds the fixed-width action digests that wallets sign to
// authorize privileged ledger actions, and the sealed-bid hashes of the bid
// vault.
//
// An action digest is
//
//	keccak256(abi.encode(string action, args..., uint256 nonce, uint256 deadline))
//
// The action name is the only dynamic value and abi.encode length-prefixes it.
// Every argument is one of the fixed-width kinds below, so no two distinct
// inputs share an encoding.
package digest

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"

	"github.com/layer-3/encryptme/core"
)

// MaxActionLength bounds the action name
const MaxActionLength = 64

// Kind is the declared ABI type of a digest argument
type Kind uint8

const (
	KindAddress Kind = iota + 1
	KindUint256
	KindBytes32
	KindBool
)

func (k Kind) String() string {
	switch k {
	case KindAddress:
		return "address"
	case KindUint256:
		return "uint256"
	case KindBytes32:
		return "bytes32"
	case KindBool:
		return "bool"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

var (
	stringType  = mustType("string")
	addressType = mustType("address")
	uint256Type = mustType("uint256")
	bytes32Type = mustType("bytes32")
	boolType    = mustType("bool")
)

func mustType(t string) abi.Type {
	typ, err := abi.NewType(t, "", nil)
	if err != nil {
		panic(err)
	}
	return typ
}

func (k Kind) abiType() (abi.Type, bool) {
	switch k {
	case KindAddress:
		return addressType, true
	case KindUint256:
		return uint256Type, true
	case KindBytes32:
		return bytes32Type, true
	case KindBool:
		return boolType, true
	}
	return abi.Type{}, false
}

// Arg is a typed digest argument
type Arg struct {
	Kind  Kind
	Value any
}

// Address declares a 20-byte address argument
func Address(a common.Address) Arg { return Arg{Kind: KindAddress, Value: a} }

// Uint256 declares a big-endian 32-byte unsigned integer argument
func Uint256(v *big.Int) Arg { return Arg{Kind: KindUint256, Value: v} }

// Uint64 declares a uint256 argument from a uint64
func Uint64(v uint64) Arg { return Arg{Kind: KindUint256, Value: v} }

// Bytes32 declares a 32-byte argument
func Bytes32(h common.Hash) Arg { return Arg{Kind: KindBytes32, Value: h} }

// Bool declares a boolean argument
func Bool(b bool) Arg { return Arg{Kind: KindBool, Value: b} }

// normalize converts the argument value to what the ABI packer expects,
// checking it against the declared kind and width.
func (a Arg) normalize() (any, error) {
	switch a.Kind {
	case KindAddress:
		switch v := a.Value.(type) {
		case common.Address:
			return v, nil
		case [common.AddressLength]byte:
			return common.Address(v), nil
		case []byte:
			if len(v) != common.AddressLength {
				return nil, fmt.Errorf("address must be %d bytes, got %d: %w", common.AddressLength, len(v), core.ErrEncoding)
			}
			return common.BytesToAddress(v), nil
		}
	case KindUint256:
		switch v := a.Value.(type) {
		case uint64:
			return new(big.Int).SetUint64(v), nil
		case *big.Int:
			if v == nil || v.Sign() < 0 {
				return nil, fmt.Errorf("uint256 must be non-negative: %w", core.ErrEncoding)
			}
			if _, overflow := uint256.FromBig(v); overflow {
				return nil, fmt.Errorf("uint256 overflow: %w", core.ErrEncoding)
			}
			return new(big.Int).Set(v), nil
		case *uint256.Int:
			if v == nil {
				return nil, fmt.Errorf("nil uint256: %w", core.ErrEncoding)
			}
			return v.ToBig(), nil
		}
	case KindBytes32:
		switch v := a.Value.(type) {
		case common.Hash:
			return [32]byte(v), nil
		case [32]byte:
			return v, nil
		case []byte:
			if len(v) != 32 {
				return nil, fmt.Errorf("bytes32 must be 32 bytes, got %d: %w", len(v), core.ErrEncoding)
			}
			return [32]byte(v), nil
		}
	case KindBool:
		if v, ok := a.Value.(bool); ok {
			return v, nil
		}
	default:
		return nil, fmt.Errorf("undeclared argument %s: %w", a.Kind, core.ErrEncoding)
	}
	return nil, fmt.Errorf("%T does not match declared %s: %w", a.Value, a.Kind, core.ErrEncoding)
}

// Build returns the digest of action over args, nonce and deadline
func Build(action string, args []Arg, nonce, deadline uint64) (common.Hash, error) {
	if action == "" || len(action) > MaxActionLength {
		return common.Hash{}, fmt.Errorf("action name length %d: %w", len(action), core.ErrEncoding)
	}

	arguments := make(abi.Arguments, 0, len(args)+3)
	values := make([]any, 0, len(args)+3)

	arguments = append(arguments, abi.Argument{Type: stringType})
	values = append(values, action)

	for i, arg := range args {
		typ, ok := arg.Kind.abiType()
		if !ok {
			return common.Hash{}, fmt.Errorf("argument %d: undeclared kind %s: %w", i, arg.Kind, core.ErrEncoding)
		}
		v, err := arg.normalize()
		if err != nil {
			return common.Hash{}, fmt.Errorf("argument %d: %w", i, err)
		}
		arguments = append(arguments, abi.Argument{Type: typ})
		values = append(values, v)
	}

	arguments = append(arguments, abi.Argument{Type: uint256Type}, abi.Argument{Type: uint256Type})
	values = append(values, new(big.Int).SetUint64(nonce), new(big.Int).SetUint64(deadline))

	packed, err := arguments.Pack(values...)
	if err != nil {
		return common.Hash{}, fmt.Errorf("pack: %v: %w", err, core.ErrEncoding)
	}
	return crypto.Keccak256Hash(packed), nil
}
