package auth_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	auth "github.com/learnit/go-auth"
)

func TestActivationURL(t *testing.T) {
	tests := []struct {
		name string
		cfg  auth.Config
		want string
	}{
		{
			name: "default prefix",
			cfg:  auth.Config{BaseURL: "https://app.example.com", APIPrefix: "/api"},
			want: "https://app.example.com/api/users/activate/tok123",
		},
		{
			name: "trailing slash on base url",
			cfg:  auth.Config{BaseURL: "https://app.example.com/", APIPrefix: "/api"},
			want: "https://app.example.com/api/users/activate/tok123",
		},
		{
			name: "prefix without leading slash",
			cfg:  auth.Config{BaseURL: "https://app.example.com", APIPrefix: "api"},
			want: "https://app.example.com/api/users/activate/tok123",
		},
		{
			name: "empty prefix",
			cfg:  auth.Config{BaseURL: "https://app.example.com"},
			want: "https://app.example.com/users/activate/tok123",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, auth.ActivationURL(tt.cfg, "tok123"))
		})
	}
}

func TestPasswordResetURL(t *testing.T) {
	cfg := auth.Config{BaseURL: "https://app.example.com", APIPrefix: "/api"}
	assert.Equal(t,
		"https://app.example.com/api/users/password-reset/tok123",
		auth.PasswordResetURL(cfg, "tok123"))

	cfg.APIPrefix = ""
	assert.Equal(t,
		"https://app.example.com/users/password-reset/tok123",
		auth.PasswordResetURL(cfg, "tok123"))
}
