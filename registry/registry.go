// Package registry provides a typed handle to the deployed land registry
// contract. A handle is bound either to a plain provider (read-only) or to a
// signer (read/write); invoking a write on a read-only handle fails with
// ErrNotSigner rather than silently doing nothing.
package registry

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// LandRegistryMetaData contains all meta data concerning the land registry
// contract.
var LandRegistryMetaData = &bind.MetaData{
	ABI: "[{\"inputs\":[],\"name\":\"landImageHash\",\"outputs\":[{\"internalType\":\"string\",\"name\":\"\",\"type\":\"string\"}],\"stateMutability\":\"view\",\"type\":\"function\"},{\"inputs\":[],\"name\":\"landSize\",\"outputs\":[{\"internalType\":\"string\",\"name\":\"\",\"type\":\"string\"}],\"stateMutability\":\"view\",\"type\":\"function\"},{\"inputs\":[],\"name\":\"landLocation\",\"outputs\":[{\"internalType\":\"string\",\"name\":\"\",\"type\":\"string\"}],\"stateMutability\":\"view\",\"type\":\"function\"},{\"inputs\":[],\"name\":\"landDocumentPDFHash\",\"outputs\":[{\"internalType\":\"string\",\"name\":\"\",\"type\":\"string\"}],\"stateMutability\":\"view\",\"type\":\"function\"},{\"inputs\":[],\"name\":\"owner\",\"outputs\":[{\"internalType\":\"address\",\"name\":\"\",\"type\":\"address\"}],\"stateMutability\":\"view\",\"type\":\"function\"},{\"inputs\":[],\"name\":\"nextOwner\",\"outputs\":[{\"internalType\":\"address\",\"name\":\"\",\"type\":\"address\"}],\"stateMutability\":\"view\",\"type\":\"function\"},{\"inputs\":[{\"internalType\":\"address\",\"name\":\"newOwner\",\"type\":\"address\"}],\"name\":\"claimOwnership\",\"outputs\":[],\"stateMutability\":\"nonpayable\",\"type\":\"function\"},{\"inputs\":[{\"internalType\":\"address\",\"name\":\"newNextOwner\",\"type\":\"address\"}],\"name\":\"transferLandOwnership\",\"outputs\":[],\"stateMutability\":\"nonpayable\",\"type\":\"function\"},{\"inputs\":[{\"internalType\":\"string\",\"name\":\"documentHash\",\"type\":\"string\"}],\"name\":\"updateLandDocs\",\"outputs\":[],\"stateMutability\":\"nonpayable\",\"type\":\"function\"}]",
}

// Gateway is a bound handle to the land registry contract.
type Gateway struct {
	address  common.Address
	contract *bind.BoundContract

	// auth is nil for read-only handles.
	auth *bind.TransactOpts
}

// Bind constructs a Gateway for the contract at address. With a nil auth the
// handle is read-only; writes require a handle bound with the transact
// options of a signer.
func Bind(address common.Address, backend bind.ContractBackend, auth *bind.TransactOpts) (*Gateway, error) {
	parsed, err := LandRegistryMetaData.GetAbi()
	if err != nil {
		return nil, fmt.Errorf("failed to parse registry ABI: %w", err)
	}

	return &Gateway{
		address:  address,
		contract: bind.NewBoundContract(address, *parsed, backend, backend, backend),
		auth:     auth,
	}, nil
}

// Address returns the contract address the handle is bound to.
func (g *Gateway) Address() common.Address {
	return g.address
}

// CanSign reports whether the handle can submit write operations.
func (g *Gateway) CanSign() bool {
	return g.auth != nil
}

// LandImageHash returns the content identifier of the land image.
func (g *Gateway) LandImageHash(ctx context.Context) (string, error) {
	return g.callString(ctx, "landImageHash")
}

// LandSize returns the recorded size of the land.
func (g *Gateway) LandSize(ctx context.Context) (string, error) {
	return g.callString(ctx, "landSize")
}

// LandLocation returns the recorded location of the land.
func (g *Gateway) LandLocation(ctx context.Context) (string, error) {
	return g.callString(ctx, "landLocation")
}

// LandDocumentHash returns the content identifier of the land document PDF.
func (g *Gateway) LandDocumentHash(ctx context.Context) (string, error) {
	return g.callString(ctx, "landDocumentPDFHash")
}

// Owner returns the current owner of the land.
func (g *Gateway) Owner(ctx context.Context) (common.Address, error) {
	return g.callAddress(ctx, "owner")
}

// NextOwner returns the account designated to take over ownership.
func (g *Gateway) NextOwner(ctx context.Context) (common.Address, error) {
	return g.callAddress(ctx, "nextOwner")
}

// ClaimOwnership submits a transaction claiming ownership for newOwner.
func (g *Gateway) ClaimOwnership(ctx context.Context, newOwner common.Address) (*types.Transaction, error) {
	return g.transact(ctx, "claimOwnership", newOwner)
}

// TransferLandOwnership submits a transaction designating newNextOwner as
// the account allowed to claim the land.
func (g *Gateway) TransferLandOwnership(ctx context.Context, newNextOwner common.Address) (*types.Transaction, error) {
	return g.transact(ctx, "transferLandOwnership", newNextOwner)
}

// UpdateLandDocs submits a transaction recording a new document content
// identifier on-chain.
func (g *Gateway) UpdateLandDocs(ctx context.Context, documentHash string) (*types.Transaction, error) {
	return g.transact(ctx, "updateLandDocs", documentHash)
}

func (g *Gateway) callString(ctx context.Context, method string) (string, error) {
	var out []interface{}
	err := g.contract.Call(&bind.CallOpts{Context: ctx}, &out, method)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrReadFailure, method, err)
	}

	return *abi.ConvertType(out[0], new(string)).(*string), nil
}

func (g *Gateway) callAddress(ctx context.Context, method string) (common.Address, error) {
	var out []interface{}
	err := g.contract.Call(&bind.CallOpts{Context: ctx}, &out, method)
	if err != nil {
		return common.Address{}, fmt.Errorf("%w: %s: %v", ErrReadFailure, method, err)
	}

	return *abi.ConvertType(out[0], new(common.Address)).(*common.Address), nil
}

func (g *Gateway) transact(ctx context.Context, method string, params ...interface{}) (*types.Transaction, error) {
	if g.auth == nil {
		return nil, fmt.Errorf("%w: %s requires a signing handle", ErrNotSigner, method)
	}

	// Copy the opts so the caller-scoped context does not leak into the
	// signer's long-lived options.
	opts := *g.auth
	opts.Context = ctx

	tx, err := g.contract.Transact(&opts, method, params...)
	if err != nil {
		return nil, fmt.Errorf("failed to submit %s: %w", method, err)
	}

	return tx, nil
}
