package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistrationStateDerivation(t *testing.T) {
	cases := []struct {
		name   string
		status PaymentStatus
		active bool
		want   LifecycleState
	}{
		{"pending active", PaymentPending, true, StatePendingVerification},
		{"verified active", PaymentVerified, true, StateVerified},
		{"rejected", PaymentRejected, false, StateRejected},
		{"pending withdrawn", PaymentPending, false, StateWithdrawn},
		{"verified withdrawn", PaymentVerified, false, StateWithdrawn},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := Registration{PaymentStatus: tc.status, IsActive: tc.active}
			assert.Equal(t, tc.want, r.State())
		})
	}
}

func TestPaymentIsVerifiedFollowsStatus(t *testing.T) {
	r := Registration{PaymentStatus: PaymentPending}
	assert.False(t, r.PaymentIsVerified())
	r.PaymentStatus = PaymentVerified
	assert.True(t, r.PaymentIsVerified())
	r.PaymentStatus = PaymentRejected
	assert.False(t, r.PaymentIsVerified())
}

func TestRegistrationJSONCarriesDerivedFields(t *testing.T) {
	r := Registration{PaymentStatus: PaymentVerified, IsActive: true, RegistrantName: "Asha Rao"}
	raw, err := json.Marshal(r)
	require.NoError(t, err)

	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &out))
	assert.Equal(t, true, out["payment_verified"])
	assert.Equal(t, "verified", out["state"])
	assert.Equal(t, "VERIFIED", out["payment_status"])
}
