package dryrun

import (
	"context"
	"io"
	"log/slog"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trebuchet-org/treb-bootstrap/internal/domain/models"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func deploy(t *testing.T, d *Deployer, id string) common.Address {
	t.Helper()
	res, err := d.Deploy(context.Background(), models.DeployRequest{Component: &models.ComponentSpec{ID: id}})
	require.NoError(t, err)
	return res.Address
}

func TestDeployer_PredictsCreateAddresses(t *testing.T) {
	d := NewDeployer(DefaultSender, discardLogger())

	// well known first two anvil deployment addresses of account 0
	assert.Equal(t, common.HexToAddress("0x5FbDB2315678afecb367f032d93F642f64180aa3"), deploy(t, d, "RocketStorage"))
	assert.Equal(t, common.HexToAddress("0xe7f1725E7734CE288F8367e1Bb143E90bb3F0512"), deploy(t, d, "RocketPool"))
}

func TestTransferer_ConsumesNonce(t *testing.T) {
	d := NewDeployer(DefaultSender, discardLogger())
	tr := NewTransferer(d, discardLogger())

	deploy(t, d, "RocketStorage")
	require.NoError(t, tr.TransferFunds(context.Background(), common.Address{1}, big.NewInt(1)))

	// nonce 2, not 1
	assert.Equal(t, common.HexToAddress("0x9fE46736679d2D9a65F0992F2272dE9f3c7fa6e0"), deploy(t, d, "RocketPool"))
}

func TestSenderFromKey(t *testing.T) {
	assert.Equal(t, DefaultSender, SenderFromKey(""))
	assert.Equal(t, DefaultSender, SenderFromKey("not-a-key"))
	assert.Equal(t, DefaultSender,
		SenderFromKey("0xac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"))
}
