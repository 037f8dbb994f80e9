package storage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestIdentity_TokenValid(t *testing.T) {
	now := time.Unix(1_000_000, 0)

	tests := []struct {
		name     string
		identity Identity
		want     bool
	}{
		{name: "no token", identity: Identity{ExpiresAt: now.Add(time.Hour).Unix()}},
		{name: "expired", identity: Identity{AccessToken: "t", ExpiresAt: now.Add(-time.Second).Unix()}},
		{name: "within margin", identity: Identity{AccessToken: "t", ExpiresAt: now.Add(30 * time.Second).Unix()}},
		{name: "valid", identity: Identity{AccessToken: "t", ExpiresAt: now.Add(time.Hour).Unix()}, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.identity.TokenValid(now, time.Minute))
		})
	}
}
