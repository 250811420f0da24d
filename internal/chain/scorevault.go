package chain

import (
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// ScoreVaultMetaData contains all meta data concerning the ScoreVault contract.
var ScoreVaultMetaData = &bind.MetaData{
	ABI: "[{\"type\":\"function\",\"name\":\"updatePlayerData\",\"inputs\":[{\"name\":\"player\",\"type\":\"address\",\"internalType\":\"address\"},{\"name\":\"scoreAmount\",\"type\":\"uint256\",\"internalType\":\"uint256\"},{\"name\":\"transactionAmount\",\"type\":\"uint256\",\"internalType\":\"uint256\"}],\"outputs\":[],\"stateMutability\":\"nonpayable\"},{\"type\":\"function\",\"name\":\"totalScoreOfPlayer\",\"inputs\":[{\"name\":\"player\",\"type\":\"address\",\"internalType\":\"address\"}],\"outputs\":[{\"name\":\"\",\"type\":\"uint256\",\"internalType\":\"uint256\"}],\"stateMutability\":\"view\"},{\"type\":\"function\",\"name\":\"totalTransactionsOfPlayer\",\"inputs\":[{\"name\":\"player\",\"type\":\"address\",\"internalType\":\"address\"}],\"outputs\":[{\"name\":\"\",\"type\":\"uint256\",\"internalType\":\"uint256\"}],\"stateMutability\":\"view\"},{\"type\":\"function\",\"name\":\"playerDataPerGame\",\"inputs\":[{\"name\":\"game\",\"type\":\"address\",\"internalType\":\"address\"},{\"name\":\"player\",\"type\":\"address\",\"internalType\":\"address\"}],\"outputs\":[{\"name\":\"score\",\"type\":\"uint256\",\"internalType\":\"uint256\"},{\"name\":\"transactions\",\"type\":\"uint256\",\"internalType\":\"uint256\"}],\"stateMutability\":\"view\"}]",
}

// ScoreVault is a Go binding around the score vault contract. Only the four
// methods this service touches are bound; events are not consumed here.
type ScoreVault struct {
	ScoreVaultCaller
	ScoreVaultTransactor
}

// ScoreVaultCaller is a read-only binding to the contract.
type ScoreVaultCaller struct {
	contract *bind.BoundContract
}

// ScoreVaultTransactor is a write-only binding to the contract.
type ScoreVaultTransactor struct {
	contract *bind.BoundContract
}

// NewScoreVault creates a new instance of ScoreVault, bound to a specific deployed contract.
func NewScoreVault(address common.Address, backend bind.ContractBackend) (*ScoreVault, error) {
	parsed, err := ScoreVaultMetaData.GetAbi()
	if err != nil {
		return nil, err
	}
	contract := bind.NewBoundContract(address, *parsed, backend, backend, backend)
	return &ScoreVault{
		ScoreVaultCaller:     ScoreVaultCaller{contract: contract},
		ScoreVaultTransactor: ScoreVaultTransactor{contract: contract},
	}, nil
}

// TotalScoreOfPlayer is a free data retrieval call binding the contract method.
//
// Solidity: function totalScoreOfPlayer(address player) view returns(uint256)
func (_ScoreVault *ScoreVaultCaller) TotalScoreOfPlayer(opts *bind.CallOpts, player common.Address) (*big.Int, error) {
	var out []interface{}
	err := _ScoreVault.contract.Call(opts, &out, "totalScoreOfPlayer", player)
	if err != nil {
		return nil, err
	}
	return *abi.ConvertType(out[0], new(*big.Int)).(**big.Int), nil
}

// TotalTransactionsOfPlayer is a free data retrieval call binding the contract method.
//
// Solidity: function totalTransactionsOfPlayer(address player) view returns(uint256)
func (_ScoreVault *ScoreVaultCaller) TotalTransactionsOfPlayer(opts *bind.CallOpts, player common.Address) (*big.Int, error) {
	var out []interface{}
	err := _ScoreVault.contract.Call(opts, &out, "totalTransactionsOfPlayer", player)
	if err != nil {
		return nil, err
	}
	return *abi.ConvertType(out[0], new(*big.Int)).(**big.Int), nil
}

// PlayerDataPerGame is a free data retrieval call binding the contract method.
//
// Solidity: function playerDataPerGame(address game, address player) view returns(uint256 score, uint256 transactions)
func (_ScoreVault *ScoreVaultCaller) PlayerDataPerGame(opts *bind.CallOpts, game, player common.Address) (*big.Int, *big.Int, error) {
	var out []interface{}
	err := _ScoreVault.contract.Call(opts, &out, "playerDataPerGame", game, player)
	if err != nil {
		return nil, nil, err
	}
	score := *abi.ConvertType(out[0], new(*big.Int)).(**big.Int)
	transactions := *abi.ConvertType(out[1], new(*big.Int)).(**big.Int)
	return score, transactions, nil
}

// UpdatePlayerData is a paid mutator transaction binding the contract method.
//
// Solidity: function updatePlayerData(address player, uint256 scoreAmount, uint256 transactionAmount) returns()
func (_ScoreVault *ScoreVaultTransactor) UpdatePlayerData(opts *bind.TransactOpts, player common.Address, scoreAmount, transactionAmount *big.Int) (*types.Transaction, error) {
	return _ScoreVault.contract.Transact(opts, "updatePlayerData", player, scoreAmount, transactionAmount)
}
