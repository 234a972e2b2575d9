package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAccessCodeValide(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	utilise := now.Add(-time.Hour)

	tests := []struct {
		nom  string
		code AccessCode
		want bool
	}{
		{"valide", AccessCode{ExpiresAt: now.Add(time.Hour)}, true},
		{"expiré", AccessCode{ExpiresAt: now.Add(-time.Minute)}, false},
		{"déjà utilisé", AccessCode{ExpiresAt: now.Add(time.Hour), UsedAt: &utilise}, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.code.Valide(now), tt.nom)
	}
}
