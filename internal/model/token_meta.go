package model

import "github.com/ethereum/go-ethereum/common"

const (
	DefaultTokenSymbol   = "TKN"
	DefaultTokenName     = "Token"
	DefaultTokenDecimals = uint8(18)
)

// TokenMeta captures ERC20 metadata.
type TokenMeta struct {
	Address  common.Address
	Decimals uint8
	Symbol   string
	Name     string
	LogoURL  string
}

// DefaultTokenMeta returns the metadata used when the token cannot be read.
func DefaultTokenMeta(address common.Address) TokenMeta {
	return TokenMeta{
		Address:  address,
		Decimals: DefaultTokenDecimals,
		Symbol:   DefaultTokenSymbol,
		Name:     DefaultTokenName,
	}
}
