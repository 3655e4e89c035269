package kinerr

import (
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestKindOf(t *testing.T) {
	require.Equal(t, Unknown, KindOf(nil))
	require.Equal(t, Unknown, KindOf(io.EOF))

	err := New(Passphrase, "sign", io.EOF)
	require.Equal(t, Passphrase, KindOf(err))

	// Outermost tag wins.
	outer := New(OperationFailed, "balance", err)
	require.Equal(t, OperationFailed, KindOf(outer))
	require.Equal(t, Passphrase, KindOf(fmt.Errorf("ctx: %w", err)))
}

func TestSentinelsMatchAnywhereInChain(t *testing.T) {
	inner := New(Connectivity, "ledger.call", io.ErrUnexpectedEOF)
	outer := New(OperationFailed, "balance.get", inner)

	require.ErrorIs(t, outer, ErrOperationFailed)
	require.ErrorIs(t, outer, ErrConnectivity)
	require.ErrorIs(t, outer, io.ErrUnexpectedEOF)
	require.NotErrorIs(t, outer, ErrDecoding)

	// A non-sentinel *Error never matches by kind alone.
	require.False(t, errors.Is(outer, New(Connectivity, "other", nil)))
}

func TestWrapKeepsSpecificKind(t *testing.T) {
	require.NoError(t, Wrap("op", nil))

	specific := New(InsufficientBalance, "transfer", nil)
	require.Same(t, specific, Wrap("transfer", specific))

	generic := Wrap("transfer", io.EOF)
	require.Equal(t, OperationFailed, KindOf(generic))
	require.ErrorIs(t, generic, io.EOF)
}

func TestErrorString(t *testing.T) {
	require.Equal(t, "transfer.validate: operation failed: empty recipient",
		Newf(OperationFailed, "transfer.validate", "empty recipient").Error())
	require.Equal(t, "conversion: too precise",
		New(Conversion, "", errors.New("too precise")).Error())
	require.Equal(t, "insufficient balance", ErrInsufficientBalance.Error())
	require.Equal(t, "kind(42)", Kind(42).String())
}
