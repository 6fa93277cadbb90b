package domain

import "testing"

func TestCanTransitionLoanStatus(t *testing.T) {
	tests := []struct {
		from string
		to   string
		want bool
	}{
		{LoanStatusPending, LoanStatusApproved, true},
		{LoanStatusApproved, LoanStatusDisbursed, true},
		{LoanStatusDisbursed, LoanStatusClosed, true},
		// No skipping forward.
		{LoanStatusPending, LoanStatusDisbursed, false},
		{LoanStatusPending, LoanStatusClosed, false},
		{LoanStatusApproved, LoanStatusClosed, false},
		// No going back.
		{LoanStatusApproved, LoanStatusPending, false},
		{LoanStatusDisbursed, LoanStatusApproved, false},
		{LoanStatusClosed, LoanStatusDisbursed, false},
		// No self-loops or terminal transitions.
		{LoanStatusApproved, LoanStatusApproved, false},
		{LoanStatusClosed, LoanStatusClosed, false},
		{"", LoanStatusApproved, false},
	}
	for _, tc := range tests {
		if got := CanTransitionLoanStatus(tc.from, tc.to); got != tc.want {
			t.Errorf("CanTransitionLoanStatus(%q, %q) = %t, want %t", tc.from, tc.to, got, tc.want)
		}
	}
}
