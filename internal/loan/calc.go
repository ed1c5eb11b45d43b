package loan

import (
	"fmt"
	"math"
)

// Quote is an amortized repayment estimate. Money values are rounded to
// cents; the quote is informational and never persisted.
type Quote struct {
	LoanAmount     float64 `json:"loan_amount"`
	InterestRate   float64 `json:"interest_rate"`
	LoanTermMonths int     `json:"loan_term_months"`
	MonthlyPayment float64 `json:"monthly_payment"`
	TotalPayment   float64 `json:"total_payment"`
	TotalInterest  float64 `json:"total_interest"`
}

// Amortize computes the fixed monthly payment for a loan of amount at the
// given annual percentage rate over termMonths.
func Amortize(amount, annualRate float64, termMonths int) (Quote, error) {
	if amount <= 0 {
		return Quote{}, fmt.Errorf("%w: amount must be > 0", ErrInvalidInput)
	}
	if annualRate < 0 {
		return Quote{}, fmt.Errorf("%w: rate must be >= 0", ErrInvalidInput)
	}
	if termMonths <= 0 {
		return Quote{}, fmt.Errorf("%w: term must be > 0 months", ErrInvalidInput)
	}

	var monthly float64
	if annualRate == 0 {
		monthly = amount / float64(termMonths)
	} else {
		r := annualRate / 100 / 12
		monthly = amount * r / (1 - math.Pow(1+r, -float64(termMonths)))
	}

	monthly = roundCents(monthly)
	total := roundCents(monthly * float64(termMonths))
	return Quote{
		LoanAmount:     amount,
		InterestRate:   annualRate,
		LoanTermMonths: termMonths,
		MonthlyPayment: monthly,
		TotalPayment:   total,
		TotalInterest:  roundCents(total - amount),
	}, nil
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}
