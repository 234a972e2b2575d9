package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefauts(t *testing.T) {
	cfg := Load()
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, ":8080", cfg.HTTPAddr())
	assert.Equal(t, "AGC", cfg.MembershipPrefix)
	assert.Equal(t, 500*time.Millisecond, cfg.RenderSettleDelay)
	assert.Equal(t, 72*time.Hour, cfg.AccessCodeValidity)
	assert.Equal(t, "https://api.qrserver.com/v1/create-qr-code/", cfg.QRServiceURL)
}

func TestGetEnvDuration(t *testing.T) {
	t.Setenv("DUREE_TEST", "2s")
	assert.Equal(t, 2*time.Second, getEnvDuration("DUREE_TEST", time.Minute))

	// une valeur numérique nue est lue en millisecondes
	t.Setenv("DUREE_TEST", "750")
	assert.Equal(t, 750*time.Millisecond, getEnvDuration("DUREE_TEST", time.Minute))

	t.Setenv("DUREE_TEST", "n'importe quoi")
	assert.Equal(t, time.Minute, getEnvDuration("DUREE_TEST", time.Minute))

	t.Setenv("DUREE_TEST", "")
	assert.Equal(t, time.Minute, getEnvDuration("DUREE_TEST", time.Minute))
}

func TestUploadEndpoint(t *testing.T) {
	cfg := Config{CloudinaryCloudName: "agco"}
	assert.Equal(t, "https://api.cloudinary.com/v1_1/agco/image/upload", cfg.UploadEndpoint())

	cfg.CloudinaryUploadURL = "http://127.0.0.1:9999/upload"
	assert.Equal(t, "http://127.0.0.1:9999/upload", cfg.UploadEndpoint())
}
