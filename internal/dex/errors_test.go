package dex

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsInsufficientBalanceSentinel(t *testing.T) {
	assert.True(t, IsInsufficientBalance(ErrInsufficientBalance))
	assert.True(t, IsInsufficientBalance(fmt.Errorf("create order: %w", ErrInsufficientBalance)))
}

func TestIsInsufficientBalanceTypedError(t *testing.T) {
	err := InsufficientBalanceError("usdc", 100, 5)
	assert.True(t, IsInsufficientBalance(err))
	assert.True(t, IsInsufficientBalance(fmt.Errorf("batch index 2: %w", err)))
}

func TestIsInsufficientBalanceSubstring(t *testing.T) {
	assert.True(t, IsInsufficientBalance(errors.New("rpc failed: INSUFFICIENT_BALANCE for account")))
}

func TestIsInsufficientBalanceJSONBody(t *testing.T) {
	assert.True(t, IsInsufficientBalance(
		errors.New(`exchange replied 400: {"code":"INSUFFICIENT_BALANCE","message":"not enough usdc"}`)))
	assert.True(t, IsInsufficientBalance(
		errors.New(`exchange replied 400: {"code":7,"message":"INSUFFICIENT_BALANCE on leg"}`)))
}

func TestIsInsufficientBalanceNegatives(t *testing.T) {
	assert.False(t, IsInsufficientBalance(nil))
	assert.False(t, IsInsufficientBalance(errors.New("network timeout")))
	assert.False(t, IsInsufficientBalance(NewError("WALLET_EMPTY", "wallet holds nothing")))
	assert.False(t, IsInsufficientBalance(
		errors.New(`exchange replied 400: {"code":"INVALID_RANGE","message":"lower above upper"}`)))
}

func TestErrorFormatting(t *testing.T) {
	err := NewError("INVALID_RANGE", "lower %d above upper %d", 60, 0)
	assert.Equal(t, "INVALID_RANGE: lower 60 above upper 0", err.Error())
	assert.Equal(t, "just text", (&Error{Message: "just text"}).Error())
}
