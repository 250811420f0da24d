package chain

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"golang.org/x/time/rate"

	util "github.com/nadmetry/scorerelay/internal/util"
)

// Writer is the contract surface the handlers depend on. Tests substitute
// a stub so the pipeline can be exercised without a node.
type Writer interface {
	UpdatePlayerData(ctx context.Context, playerAddress string, scoreAmount, transactionAmount int64) (string, error)
	TotalScore(ctx context.Context, playerAddress string) (*big.Int, error)
	TotalTransactions(ctx context.Context, playerAddress string) (*big.Int, error)
	PlayerDataPerGame(ctx context.Context, gameAddress, playerAddress string) (*big.Int, *big.Int, error)
}

// EthWriter holds the single server-side signing key and issues the
// on-chain updatePlayerData calls. Writes are paced through one limiter:
// the signer's nonce ordering makes concurrent submissions contend, so
// sending faster than the chain accepts only manufactures conflicts.
type EthWriter struct {
	client *ethclient.Client
	vault  *ScoreVault
	auth   *bind.TransactOpts
	pace   *rate.Limiter
}

// Dial connects to the RPC node, loads the signing key and binds the vault
// contract. writeRPS caps outgoing transactions per second.
func Dial(ctx context.Context, rpcURL, privateKeyHex, contractAddr string, writeRPS float64) (*EthWriter, error) {
	client, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, err
	}

	key, err := crypto.HexToECDSA(privateKeyHex)
	if err != nil {
		return nil, err
	}

	chainID, err := client.NetworkID(ctx)
	if err != nil {
		return nil, err
	}

	auth, err := bind.NewKeyedTransactorWithChainID(key, chainID)
	if err != nil {
		return nil, err
	}

	vault, err := NewScoreVault(common.HexToAddress(contractAddr), client)
	if err != nil {
		return nil, err
	}

	util.LogInfo("Chain writer bound to %s on chain %s as %s", contractAddr, chainID, auth.From.Hex())
	return &EthWriter{
		client: client,
		vault:  vault,
		auth:   auth,
		pace:   rate.NewLimiter(rate.Limit(writeRPS), 1),
	}, nil
}

func (w *EthWriter) Close() {
	w.client.Close()
}

// UpdatePlayerData submits one score increment and returns the transaction
// hash. Errors come back classified, never raw node text.
func (w *EthWriter) UpdatePlayerData(ctx context.Context, playerAddress string, scoreAmount, transactionAmount int64) (string, error) {
	if err := w.pace.Wait(ctx); err != nil {
		return "", Classify(err)
	}

	opts := *w.auth
	opts.Context = ctx
	tx, err := w.vault.UpdatePlayerData(&opts,
		common.HexToAddress(playerAddress),
		big.NewInt(scoreAmount),
		big.NewInt(transactionAmount))
	if err != nil {
		return "", Classify(err)
	}
	return tx.Hash().Hex(), nil
}

func (w *EthWriter) TotalScore(ctx context.Context, playerAddress string) (*big.Int, error) {
	score, err := w.vault.TotalScoreOfPlayer(&bind.CallOpts{Context: ctx}, common.HexToAddress(playerAddress))
	if err != nil {
		return nil, Classify(err)
	}
	return score, nil
}

func (w *EthWriter) TotalTransactions(ctx context.Context, playerAddress string) (*big.Int, error) {
	transactions, err := w.vault.TotalTransactionsOfPlayer(&bind.CallOpts{Context: ctx}, common.HexToAddress(playerAddress))
	if err != nil {
		return nil, Classify(err)
	}
	return transactions, nil
}

func (w *EthWriter) PlayerDataPerGame(ctx context.Context, gameAddress, playerAddress string) (*big.Int, *big.Int, error) {
	score, transactions, err := w.vault.PlayerDataPerGame(&bind.CallOpts{Context: ctx},
		common.HexToAddress(gameAddress), common.HexToAddress(playerAddress))
	if err != nil {
		return nil, nil, Classify(err)
	}
	return score, transactions, nil
}
