package notification

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

const signature = "\n\nRegards,\nLending Team"

func MicroDepositSent(name, accountNumber string, amount decimal.Decimal) (string, string) {
	subject := "Micro Deposit Sent to Your Account"
	body := fmt.Sprintf("Hello %s,\n\nA micro deposit of %s has been sent to your account (%s).\n"+
		"Please check your bank account and confirm the amount to complete verification.",
		name, amount.StringFixed(2), accountNumber)
	return subject, body + signature
}

func AccountVerified(name, accountNumber string) (string, string) {
	subject := "Bank Account Verified"
	body := fmt.Sprintf("Hello %s,\n\nYour bank account %s has been verified. You can now apply for a loan.",
		name, accountNumber)
	return subject, body + signature
}

func LoanRejected(name string, applicationID int64, reason string) (string, string) {
	subject := "Loan Application Rejected"
	body := fmt.Sprintf("Dear %s,\n\nWe regret to inform you that your loan application #%d has been rejected.\nReason: %s",
		name, applicationID, reason)
	return subject, body + signature
}

func LoanApproved(name string, applicationID int64, amount, emi decimal.Decimal, termMonths int) (string, string) {
	subject := "Loan Application Approved"
	body := fmt.Sprintf("Dear %s,\n\nYour loan application #%d has been approved and %s has been disbursed.\n"+
		"Monthly installment: %s over %d months.",
		name, applicationID, amount.StringFixed(2), emi.StringFixed(2), termMonths)
	return subject, body + signature
}

func LoanApprovedNotDisbursed(name string, applicationID int64, reason string) (string, string) {
	subject := "Loan Application Approved - Disbursement Pending"
	body := fmt.Sprintf("Dear %s,\n\nYour loan application #%d has been approved but the disbursement could not be completed.\nReason: %s",
		name, applicationID, reason)
	return subject, body + signature
}

func RepaymentReceived(name string, loanID int64, amount, remaining decimal.Decimal) (string, string) {
	subject := "Loan Repayment Confirmation"
	body := fmt.Sprintf("Dear %s,\n\nWe have received your repayment of %s for loan #%d.\nYour outstanding balance is now %s.",
		name, amount.StringFixed(2), loanID, remaining.StringFixed(2))
	return subject, body + signature
}

func PaymentReminder(name string, loanID int64, dueDate time.Time, amount decimal.Decimal, overdue bool) (string, string) {
	if overdue {
		subject := "Overdue Loan Payment Notification"
		body := fmt.Sprintf("Dear %s,\n\nYour installment of %s for loan #%d was due on %s and is now overdue.\n"+
			"Please make the payment as soon as possible; late payments lower your credit score.",
			name, amount.StringFixed(2), loanID, dueDate.Format("2006-01-02"))
		return subject, body + signature
	}
	subject := "Upcoming Loan Payment Reminder"
	body := fmt.Sprintf("Dear %s,\n\nThis is a reminder that your installment of %s for loan #%d is due on %s.",
		name, amount.StringFixed(2), loanID, dueDate.Format("2006-01-02"))
	return subject, body + signature
}
