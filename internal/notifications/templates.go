package notifications

import (
	"fmt"

	"github.com/google/uuid"
)

// Plain-text lifecycle emails. Registration id is included so support staff
// can correlate replies with the audit trail.

func submittedMessage(name, eventTitle string, registrationID uuid.UUID) (subject, body string) {
	subject = fmt.Sprintf("Registration received for %s", eventTitle)
	body = fmt.Sprintf("Hi %s,\n\nWe received your registration for %s along with your payment details. "+
		"Our team will verify the payment and confirm your spot shortly.\n\nReference: %s\n",
		name, eventTitle, registrationID)
	return subject, body
}

func verifiedMessage(name, eventTitle string, registrationID uuid.UUID) (subject, body string) {
	subject = fmt.Sprintf("Payment verified for %s", eventTitle)
	body = fmt.Sprintf("Hi %s,\n\nYour payment for %s has been verified. Your registration is confirmed. See you there!\n\nReference: %s\n",
		name, eventTitle, registrationID)
	return subject, body
}

func rejectedMessage(name, eventTitle string, registrationID uuid.UUID, reason string) (subject, body string) {
	subject = fmt.Sprintf("Payment could not be verified for %s", eventTitle)
	body = fmt.Sprintf("Hi %s,\n\nWe could not verify the payment for your %s registration.", name, eventTitle)
	if reason != "" {
		body += fmt.Sprintf("\nReason: %s", reason)
	}
	body += fmt.Sprintf("\n\nYou can register again with corrected payment details.\n\nReference: %s\n", registrationID)
	return subject, body
}
