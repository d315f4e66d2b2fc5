package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateBalanced(t *testing.T) {
	balanced := []PostingLine{
		{AccountCode: AccountCodeProviderClearing, Direction: LedgerEntryDirectionDebit, Amount: 100_000},
		{AccountCode: AccountCodeVenuePayable, Direction: LedgerEntryDirectionCredit, Amount: 95_000},
		{AccountCode: AccountCodePlatformRevenue, Direction: LedgerEntryDirectionCredit, Amount: 5_000},
	}
	assert.NoError(t, ValidateBalanced(balanced))

	unbalanced := append([]PostingLine(nil), balanced...)
	unbalanced[2].Amount = 4_999
	assert.ErrorIs(t, ValidateBalanced(unbalanced), ErrUnbalancedEntry)

	assert.ErrorIs(t, ValidateBalanced(balanced[:1]), ErrInvalidEntryLines)
	assert.ErrorIs(t, ValidateBalanced([]PostingLine{
		{Direction: "sideways", Amount: 1},
		{Direction: LedgerEntryDirectionCredit, Amount: 1},
	}), ErrInvalidLineDirection)
}

func TestReverseSwapsDirections(t *testing.T) {
	lines := []LedgerEntryLine{
		{AccountCode: AccountCodeProviderClearing, Direction: LedgerEntryDirectionDebit, Amount: 10},
		{AccountCode: AccountCodeVenuePayable, Direction: LedgerEntryDirectionCredit, Amount: 10},
	}
	reversed := Reverse(lines)
	assert.Equal(t, LedgerEntryDirectionCredit, reversed[0].Direction)
	assert.Equal(t, LedgerEntryDirectionDebit, reversed[1].Direction)
	assert.NoError(t, ValidateBalanced(reversed))
}
