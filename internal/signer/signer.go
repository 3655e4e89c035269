// Package signer turns an unsigned transaction into a signed one using a
// key-custody capability that only ever exposes "unlock and sign a digest".
package signer

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	klog "github.com/DebuggerAu/kin-sdk-core/internal/log"
	"github.com/DebuggerAu/kin-sdk-core/internal/wallet"
	"github.com/DebuggerAu/kin-sdk-core/pkg/crypto"
	"github.com/DebuggerAu/kin-sdk-core/pkg/kinerr"
	"github.com/ethereum/go-ethereum/core/types"
)

// KeyCustody signs 32-byte digests with the key behind ref once unlocked by
// passphrase. The key must not stay unlocked after the call returns.
type KeyCustody interface {
	UnlockAndSign(ref string, passphrase, digest []byte) ([]byte, error)
}

// ErrSenderMismatch is returned when the custody signed with a key that
// does not belong to the requesting account.
var ErrSenderMismatch = errors.New("signature does not recover to account address")

// Signer produces EIP-155 signed transactions for one chain.
type Signer struct {
	custody KeyCustody
	signer  types.Signer
}

// New returns a Signer for chainID backed by custody.
func New(custody KeyCustody, chainID *big.Int) *Signer {
	return &Signer{
		custody: custody,
		signer:  types.NewEIP155Signer(chainID),
	}
}

// ChainID returns the chain the signer commits to.
func (s *Signer) ChainID() *big.Int {
	return s.signer.ChainID()
}

// SignTx signs tx on behalf of account.
//
// Custody refusals (wrong passphrase, missing or corrupted entry) and a
// recovered sender other than account.Address are returned as
// kinerr.Passphrase. Anything else is kinerr.OperationFailed.
func (s *Signer) SignTx(ctx context.Context, account wallet.Account, passphrase []byte, tx *types.Transaction) (*types.Transaction, error) {
	const op = "sign transaction"

	if tx == nil {
		return nil, kinerr.Newf(kinerr.OperationFailed, op, "nil transaction")
	}
	if err := ctx.Err(); err != nil {
		return nil, kinerr.New(kinerr.OperationFailed, op, err)
	}

	digest := s.signer.Hash(tx)
	sig, err := s.custody.UnlockAndSign(account.Ref, passphrase, digest[:])
	if err != nil {
		if isCustodyRefusal(err) {
			klog.Signer.Debug().Str("account", account.Address.Hex()).Err(err).Msg("Custody refused to sign")
			return nil, kinerr.New(kinerr.Passphrase, op, err)
		}
		return nil, kinerr.New(kinerr.OperationFailed, op, err)
	}
	if len(sig) != crypto.SignatureSize {
		return nil, kinerr.Newf(kinerr.OperationFailed, op, "custody returned %d-byte signature", len(sig))
	}

	signed, err := tx.WithSignature(s.signer, sig)
	if err != nil {
		return nil, kinerr.New(kinerr.OperationFailed, op, fmt.Errorf("attach signature: %w", err))
	}

	sender, err := types.Sender(s.signer, signed)
	if err != nil {
		return nil, kinerr.New(kinerr.OperationFailed, op, fmt.Errorf("recover sender: %w", err))
	}
	if sender != account.Address {
		return nil, kinerr.New(kinerr.Passphrase, op,
			fmt.Errorf("%w: got %s, want %s", ErrSenderMismatch, sender.Hex(), account.Address.Hex()))
	}

	klog.Signer.Debug().
		Str("account", account.Address.Hex()).
		Uint64("nonce", signed.Nonce()).
		Str("tx", signed.Hash().Hex()).
		Msg("Transaction signed")
	return signed, nil
}

func isCustodyRefusal(err error) bool {
	return errors.Is(err, wallet.ErrWrongPassphrase) ||
		errors.Is(err, wallet.ErrAccountNotFound) ||
		errors.Is(err, wallet.ErrCorruptedKey) ||
		errors.Is(err, kinerr.ErrPassphrase)
}
