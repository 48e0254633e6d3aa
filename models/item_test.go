package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestItemConsistent(t *testing.T) {
	loanID := uint64(7)

	it := Item{IsAvailable: true}
	assert.True(t, it.Consistent())

	it = Item{IsAvailable: false, CurrentLoanID: &loanID}
	assert.True(t, it.Consistent())

	// The two halves of the state must move in lock-step.
	it = Item{IsAvailable: true, CurrentLoanID: &loanID}
	assert.False(t, it.Consistent())

	it = Item{IsAvailable: false}
	assert.False(t, it.Consistent())
}
