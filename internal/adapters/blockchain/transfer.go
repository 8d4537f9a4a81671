package blockchain

import (
	"context"
	"log/slog"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/trebuchet-org/treb-bootstrap/internal/usecase"
)

// FundsTransferer sends ether from the deployer account
type FundsTransferer struct {
	client *Client
	log    *slog.Logger
}

// NewFundsTransferer creates a transferer
func NewFundsTransferer(client *Client, log *slog.Logger) *FundsTransferer {
	return &FundsTransferer{client: client, log: log}
}

// TransferFunds submits the value transfer and returns once the node accepts it
func (f *FundsTransferer) TransferFunds(ctx context.Context, to common.Address, amount *big.Int) error {
	tx, err := f.client.Send(ctx, &to, amount, nil)
	if err != nil {
		return err
	}
	f.log.Debug("funding sent", "to", to.Hex(), "wei", amount.String(), "tx", tx.Hash().Hex())
	return nil
}

var _ usecase.FundsTransferer = (*FundsTransferer)(nil)
