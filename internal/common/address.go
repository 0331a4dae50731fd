package common

import (
	"fmt"
	"strings"

	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/gagliardetto/solana-go"

	"github.com/hxuan190/quote-engine/internal/domain"
)

var ErrInvalidAddress = HTTPErrorBadRequest("invalid token address")

// NormalizeAddress returns the canonical form of a token address on chainID:
// EIP-55 checksum on EVM chains, base58 on Solana.
func NormalizeAddress(chainID domain.ChainID, addr string) (string, error) {
	addr = strings.TrimSpace(addr)
	if chainID.IsSolana() {
		pk, err := solana.PublicKeyFromBase58(addr)
		if err != nil {
			return "", fmt.Errorf("%w: %s", ErrInvalidAddress, addr)
		}
		return pk.String(), nil
	}
	if !ethcommon.IsHexAddress(addr) {
		return "", fmt.Errorf("%w: %s", ErrInvalidAddress, addr)
	}
	return ethcommon.HexToAddress(addr).Hex(), nil
}

// ResolveCurrency turns a request token reference into a Currency. "native",
// an empty string and the zero address all mean the chain's native coin.
func ResolveCurrency(chainID domain.ChainID, addr string, decimals uint8) (domain.Currency, error) {
	ch, known := ChainByID(chainID)
	if addr == "" || strings.EqualFold(addr, "native") || addr == (ethcommon.Address{}).Hex() {
		if !known {
			return domain.Currency{}, fmt.Errorf("unsupported chain %d", chainID)
		}
		return ch.Native, nil
	}
	norm, err := NormalizeAddress(chainID, addr)
	if err != nil {
		return domain.Currency{}, err
	}
	if known {
		for _, t := range ch.BaseTokens {
			if t.Address == norm {
				return t, nil
			}
		}
	}
	return domain.Token(chainID, norm, "", decimals), nil
}
