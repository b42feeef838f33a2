package notifications

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestLifecycleMessages(t *testing.T) {
	id := uuid.New()

	subject, body := submittedMessage("Asha", "Main Stage Night", id)
	assert.Contains(t, subject, "Registration received")
	assert.Contains(t, body, "Asha")
	assert.Contains(t, body, "Main Stage Night")
	assert.Contains(t, body, id.String())

	subject, body = verifiedMessage("Asha", "Main Stage Night", id)
	assert.Contains(t, subject, "verified")
	assert.Contains(t, body, "confirmed")
	assert.Contains(t, body, id.String())
}

func TestRejectedMessageReason(t *testing.T) {
	id := uuid.New()

	_, body := rejectedMessage("Asha", "Main Stage Night", id, "blurry screenshot")
	assert.Contains(t, body, "Reason: blurry screenshot")
	assert.Contains(t, body, "register again")

	_, body = rejectedMessage("Asha", "Main Stage Night", id, "")
	assert.NotContains(t, body, "Reason:")
}
