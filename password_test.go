package auth_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	auth "github.com/learnit/go-auth"
)

func TestValidatePassword(t *testing.T) {
	tests := []struct {
		name     string
		password string
		wantRule string
	}{
		{
			name:     "all rules satisfied",
			password: "Abc123",
		},
		{
			name:     "empty password reports the digit rule first",
			password: "",
			wantRule: "digit",
		},
		{
			name:     "missing digit reported before missing uppercase",
			password: "onlylowercase",
			wantRule: "digit",
		},
		{
			name:     "missing lowercase",
			password: "UPPER123",
			wantRule: "lowercase",
		},
		{
			name:     "missing uppercase",
			password: "lower123",
			wantRule: "uppercase",
		},
		{
			name:     "unicode letters count",
			password: "Ärger123",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := auth.ValidatePassword(tt.password)

			if tt.wantRule == "" {
				assert.NoError(t, err)
				return
			}

			assert.Error(t, err)
			assert.True(t, auth.IsWeakPasswordError(err))
			assert.Contains(t, err.Error(), tt.wantRule)
		})
	}
}

func TestIsWeakPasswordError(t *testing.T) {
	assert.True(t, auth.IsWeakPasswordError(auth.ValidatePassword("weak")))
	assert.False(t, auth.IsWeakPasswordError(nil))
	assert.False(t, auth.IsWeakPasswordError(errors.New("some other error")))
	assert.False(t, auth.IsWeakPasswordError(auth.ErrInvalidCredentials))
}
