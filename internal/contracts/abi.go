package contracts

import (
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

const factoryABIJSON = `[
  {
    "anonymous": false,
    "inputs": [
      {"indexed": true, "internalType": "uint256", "name": "templateId", "type": "uint256"},
      {"indexed": false, "internalType": "address", "name": "pool", "type": "address"}
    ],
    "name": "TemplateRegistered",
    "type": "event"
  },
  {
    "anonymous": false,
    "inputs": [
      {"indexed": true, "internalType": "uint256", "name": "templateId", "type": "uint256"},
      {"indexed": false, "internalType": "bool", "name": "active", "type": "bool"}
    ],
    "name": "TemplateStatusUpdated",
    "type": "event"
  },
  {
    "anonymous": false,
    "inputs": [
      {"indexed": true, "internalType": "uint256", "name": "templateId", "type": "uint256"},
      {"indexed": false, "internalType": "address", "name": "pool", "type": "address"}
    ],
    "name": "PoolCreated",
    "type": "event"
  },
  {
    "inputs": [{"internalType": "uint256", "name": "templateId", "type": "uint256"}],
    "name": "getTemplate",
    "outputs": [
      {
        "components": [
          {"internalType": "address", "name": "token", "type": "address"},
          {"internalType": "uint256", "name": "poolSize", "type": "uint256"},
          {"internalType": "uint256", "name": "entryFee", "type": "uint256"},
          {"internalType": "bool", "name": "exists", "type": "bool"},
          {"internalType": "bool", "name": "active", "type": "bool"},
          {"internalType": "address", "name": "currentPool", "type": "address"}
        ],
        "internalType": "struct PoolFactory.Template",
        "name": "",
        "type": "tuple"
      }
    ],
    "stateMutability": "view",
    "type": "function"
  }
]`

const poolABIJSON = `[
  {
    "anonymous": false,
    "inputs": [
      {"indexed": true, "internalType": "address", "name": "account", "type": "address"},
      {"indexed": false, "internalType": "uint256", "name": "amount", "type": "uint256"},
      {"indexed": false, "internalType": "uint256", "name": "cumulativeEntries", "type": "uint256"}
    ],
    "name": "TicketPurchased",
    "type": "event"
  },
  {
    "anonymous": false,
    "inputs": [
      {"indexed": false, "internalType": "uint256", "name": "jackpotAmount", "type": "uint256"},
      {"indexed": false, "internalType": "uint256", "name": "consolationAmount", "type": "uint256"},
      {"indexed": false, "internalType": "uint256", "name": "treasuryAmount", "type": "uint256"}
    ],
    "name": "PoolClosed",
    "type": "event"
  },
  {
    "anonymous": false,
    "inputs": [
      {"indexed": true, "internalType": "address", "name": "winner", "type": "address"},
      {"indexed": true, "internalType": "uint256", "name": "ticketNumber", "type": "uint256"},
      {"indexed": false, "internalType": "uint8", "name": "rewardType", "type": "uint8"},
      {"indexed": false, "internalType": "uint256", "name": "amount", "type": "uint256"}
    ],
    "name": "PrizeClaimed",
    "type": "event"
  },
  {"inputs": [], "name": "closed", "outputs": [{"internalType": "bool", "name": "", "type": "bool"}], "stateMutability": "view", "type": "function"},
  {"inputs": [], "name": "randomSeedCount", "outputs": [{"internalType": "uint8", "name": "", "type": "uint8"}], "stateMutability": "view", "type": "function"},
  {"inputs": [], "name": "totalEntries", "outputs": [{"internalType": "uint256", "name": "", "type": "uint256"}], "stateMutability": "view", "type": "function"},
  {"inputs": [], "name": "winnersFinalized", "outputs": [{"internalType": "bool", "name": "", "type": "bool"}], "stateMutability": "view", "type": "function"},
  {"inputs": [], "name": "jackpotPayed", "outputs": [{"internalType": "bool", "name": "", "type": "bool"}], "stateMutability": "view", "type": "function"},
  {"inputs": [], "name": "consolationPayoutIndex", "outputs": [{"internalType": "uint256", "name": "", "type": "uint256"}], "stateMutability": "view", "type": "function"},
  {"inputs": [], "name": "generatedConsolationWinners", "outputs": [{"internalType": "uint32", "name": "", "type": "uint32"}], "stateMutability": "view", "type": "function"},
  {"inputs": [], "name": "consolationPrizeEach", "outputs": [{"internalType": "uint256", "name": "", "type": "uint256"}], "stateMutability": "view", "type": "function"},
  {"inputs": [], "name": "consolationWinnerBps", "outputs": [{"internalType": "uint96", "name": "", "type": "uint96"}], "stateMutability": "view", "type": "function"},
  {"inputs": [], "name": "finalizeWinners", "outputs": [], "stateMutability": "nonpayable", "type": "function"},
  {"inputs": [{"internalType": "uint256", "name": "iterations", "type": "uint256"}], "name": "batchFinalizeWinners", "outputs": [], "stateMutability": "nonpayable", "type": "function"},
  {"inputs": [], "name": "payJackpotWinner", "outputs": [], "stateMutability": "nonpayable", "type": "function"},
  {"inputs": [{"internalType": "uint256", "name": "iterations", "type": "uint256"}], "name": "batchConsolationPayout", "outputs": [], "stateMutability": "nonpayable", "type": "function"},
  {"inputs": [], "name": "sweepResidualToTreasury", "outputs": [], "stateMutability": "nonpayable", "type": "function"}
]`

var (
	factoryABI     abi.ABI
	factoryABIOnce sync.Once
	factoryABIErr  error

	poolABI     abi.ABI
	poolABIOnce sync.Once
	poolABIErr  error
)

// FactoryABI returns the parsed pool factory ABI.
func FactoryABI() (abi.ABI, error) {
	factoryABIOnce.Do(func() {
		factoryABI, factoryABIErr = abi.JSON(strings.NewReader(factoryABIJSON))
	})
	return factoryABI, factoryABIErr
}

// PoolABI returns the parsed pool ABI.
func PoolABI() (abi.ABI, error) {
	poolABIOnce.Do(func() {
		poolABI, poolABIErr = abi.JSON(strings.NewReader(poolABIJSON))
	})
	return poolABI, poolABIErr
}
