package contracts

import (
	"fmt"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// Some older tokens return symbol and name as bytes32, so metadata reads try
// the string ABI first and fall back to the bytes32 one.
const erc20ABIStringJSON = `[
  {"inputs": [], "name": "decimals", "outputs": [{"type": "uint8"}], "stateMutability": "view", "type": "function"},
  {"inputs": [], "name": "symbol", "outputs": [{"type": "string"}], "stateMutability": "view", "type": "function"},
  {"inputs": [], "name": "name", "outputs": [{"type": "string"}], "stateMutability": "view", "type": "function"}
]`

const erc20ABIBytes32JSON = `[
  {"inputs": [], "name": "symbol", "outputs": [{"type": "bytes32"}], "stateMutability": "view", "type": "function"},
  {"inputs": [], "name": "name", "outputs": [{"type": "bytes32"}], "stateMutability": "view", "type": "function"}
]`

var (
	erc20Once     sync.Once
	erc20String   abi.ABI
	erc20Bytes32  abi.ABI
	erc20ParseErr error
)

func erc20ABIs() (abi.ABI, abi.ABI, error) {
	erc20Once.Do(func() {
		erc20String, erc20ParseErr = abi.JSON(strings.NewReader(erc20ABIStringJSON))
		if erc20ParseErr != nil {
			erc20ParseErr = fmt.Errorf("parse erc20 string abi: %w", erc20ParseErr)
			return
		}
		erc20Bytes32, erc20ParseErr = abi.JSON(strings.NewReader(erc20ABIBytes32JSON))
		if erc20ParseErr != nil {
			erc20ParseErr = fmt.Errorf("parse erc20 bytes32 abi: %w", erc20ParseErr)
		}
	})
	return erc20String, erc20Bytes32, erc20ParseErr
}
