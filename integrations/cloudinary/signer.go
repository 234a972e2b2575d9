package cloudinary

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

// UploadAuthorization contient les paramètres signés de courte durée
// exigés par le stockage pour un upload.
type UploadAuthorization struct {
	Signature    string `json:"signature"`
	Timestamp    int64  `json:"timestamp"`
	APIKey       string `json:"api_key"`
	CloudName    string `json:"cloud_name"`
	UploadPreset string `json:"upload_preset"`
}

// SignatureProvider délivre une autorisation d'upload pour un public ID
// donné. L'implémentation locale signe avec le secret d'API ; les tests
// injectent la leur.
type SignatureProvider interface {
	SignUpload(ctx context.Context, publicID string) (UploadAuthorization, error)
}

// LocalSigner calcule la signature côté serveur (schéma Cloudinary :
// SHA-1 des paramètres triés concaténés au secret d'API).
type LocalSigner struct {
	CloudName    string
	APIKey       string
	APISecret    string
	UploadPreset string

	// now est remplaçable dans les tests.
	now func() time.Time
}

func NewLocalSigner(cloudName, apiKey, apiSecret, uploadPreset string) *LocalSigner {
	return &LocalSigner{
		CloudName:    cloudName,
		APIKey:       apiKey,
		APISecret:    apiSecret,
		UploadPreset: uploadPreset,
		now:          time.Now,
	}
}

func (s *LocalSigner) SignUpload(ctx context.Context, publicID string) (UploadAuthorization, error) {
	if s.APISecret == "" {
		return UploadAuthorization{}, errors.New("secret d'API Cloudinary manquant")
	}
	if publicID == "" {
		return UploadAuthorization{}, errors.New("public_id requis pour la signature")
	}

	ts := s.now().Unix()
	params := map[string]string{
		"public_id":     publicID,
		"timestamp":     fmt.Sprintf("%d", ts),
		"upload_preset": s.UploadPreset,
	}

	return UploadAuthorization{
		Signature:    signParams(params, s.APISecret),
		Timestamp:    ts,
		APIKey:       s.APIKey,
		CloudName:    s.CloudName,
		UploadPreset: s.UploadPreset,
	}, nil
}

func signParams(params map[string]string, secret string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, k+"="+params[k])
	}

	sum := sha1.Sum([]byte(strings.Join(pairs, "&") + secret))
	return hex.EncodeToString(sum[:])
}
