package blockchain

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ethereum/go-ethereum/common"
	"github.com/trebuchet-org/treb-bootstrap/internal/domain/models"
	"github.com/trebuchet-org/treb-bootstrap/internal/usecase"
)

// ArtifactRepository resolves compiled artifacts by name
type ArtifactRepository interface {
	GetArtifact(ctx context.Context, name string) (*models.Artifact, error)
}

// ContractDeployer creates contracts through the chain client
type ContractDeployer struct {
	client    *Client
	artifacts ArtifactRepository
	log       *slog.Logger
}

// NewContractDeployer creates a deployer
func NewContractDeployer(client *Client, artifacts ArtifactRepository, log *slog.Logger) *ContractDeployer {
	return &ContractDeployer{client: client, artifacts: artifacts, log: log}
}

// Deploy links, encodes and sends the creation transaction and waits for its receipt
func (d *ContractDeployer) Deploy(ctx context.Context, req models.DeployRequest) (*models.DeployResult, error) {
	spec := req.Component
	artifact, err := d.artifacts.GetArtifact(ctx, spec.Artifact)
	if err != nil {
		return nil, err
	}

	code, err := LinkBytecode(artifact, req.Libraries)
	if err != nil {
		return nil, err
	}

	inputs := artifact.ABI.Constructor.Inputs
	if len(inputs) != len(req.ConstructorArgs) {
		return nil, fmt.Errorf("%s constructor takes %d arguments, manifest gives %d",
			spec.ID, len(inputs), len(req.ConstructorArgs))
	}
	if len(inputs) > 0 {
		args := make([]interface{}, len(req.ConstructorArgs))
		for i, addr := range req.ConstructorArgs {
			args[i] = addr
		}
		encoded, err := inputs.Pack(args...)
		if err != nil {
			return nil, fmt.Errorf("encode constructor arguments of %s: %w", spec.ID, err)
		}
		code = append(code, encoded...)
	}

	tx, err := d.client.Send(ctx, nil, nil, code)
	if err != nil {
		return nil, err
	}
	d.log.Debug("deployment sent", "component", spec.ID, "tx", tx.Hash().Hex())

	receipt, err := d.client.WaitMined(ctx, tx)
	if err != nil {
		return nil, err
	}
	if receipt.ContractAddress == (common.Address{}) {
		return nil, fmt.Errorf("receipt of %s has no contract address", tx.Hash().Hex())
	}

	return &models.DeployResult{
		Address: receipt.ContractAddress,
		TxHash:  tx.Hash(),
	}, nil
}

var _ usecase.ContractDeployer = (*ContractDeployer)(nil)
