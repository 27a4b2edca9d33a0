package services

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Notification texts

func depositCompletedText(amount decimal.Decimal) string {
	return fmt.Sprintf("Your savings of %s has been successfully deposited.", amount.StringFixed(2))
}

func depositFailedText(amount decimal.Decimal, reason string) string {
	return fmt.Sprintf("Your savings deposit of %s was not completed (%s).", amount.StringFixed(2), reason)
}

func loanStatusText(loanID uint, status string) string {
	return fmt.Sprintf("Your loan request #%d has been %s.", loanID, status)
}

func loanRequestedText(loanID uint, username string, amount decimal.Decimal) string {
	return fmt.Sprintf("New loan request #%d of %s from %s is awaiting review.", loanID, amount.StringFixed(2), username)
}

func loanPaidText(loanID uint) string {
	return fmt.Sprintf("Your loan #%d has been fully repaid.", loanID)
}

func membershipRequestedText(username, group string) string {
	return fmt.Sprintf("%s has requested to join %s.", username, group)
}

func membershipDecisionText(group, status string) string {
	return fmt.Sprintf("Your membership request to join %s has been %s.", group, status)
}

func promotedText(group string) string {
	return fmt.Sprintf("You are now the admin of %s.", group)
}

func meetingScheduledText(title, group, date, clock string) string {
	return fmt.Sprintf("A new meeting '%s' for %s has been scheduled on %s at %s.", title, group, date, clock)
}

func meetingReminderText(title, group, clock string) string {
	return fmt.Sprintf("Reminder: '%s' for %s is tomorrow at %s.", title, group, clock)
}
