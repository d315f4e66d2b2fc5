package domain

// ValidateBalanced checks that debits equal credits.
func ValidateBalanced(lines []PostingLine) error {
	if len(lines) < 2 {
		return ErrInvalidEntryLines
	}
	var debit, credit int64
	for _, line := range lines {
		if line.Amount < 0 {
			return ErrInvalidLineAmount
		}
		switch line.Direction {
		case LedgerEntryDirectionDebit:
			debit += line.Amount
		case LedgerEntryDirectionCredit:
			credit += line.Amount
		default:
			return ErrInvalidLineDirection
		}
	}
	if debit != credit {
		return ErrUnbalancedEntry
	}
	return nil
}

// Reverse returns the compensating lines for a posted entry.
func Reverse(lines []LedgerEntryLine) []PostingLine {
	out := make([]PostingLine, 0, len(lines))
	for _, line := range lines {
		direction := LedgerEntryDirectionDebit
		if line.Direction == LedgerEntryDirectionDebit {
			direction = LedgerEntryDirectionCredit
		}
		out = append(out, PostingLine{
			AccountCode: line.AccountCode,
			Direction:   direction,
			Amount:      line.Amount,
		})
	}
	return out
}
