package cloudinary

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net"
	"net/http"
	"time"
)

const defaultUploadTimeout = 45 * time.Second

var (
	// ErrReponseIncomplete : la réponse du stockage ne contient pas
	// l'URL finale ou le public ID attendus.
	ErrReponseIncomplete = errors.New("réponse du stockage incomplète (secure_url ou public_id manquant)")
	// ErrUploadTimeout : le délai d'upload borné a été dépassé.
	ErrUploadTimeout = errors.New("délai d'upload dépassé")
)

// PublishResult est le résultat d'une publication : l'URL publique du
// document et la clé sous laquelle il est stocké.
type PublishResult struct {
	SecureURL string `json:"secure_url"`
	PublicID  string `json:"public_id"`
}

// Client publie des images vers le stockage de contenu. Fournir deux fois
// le même public ID écrase le document en place ; le pipeline s'appuie sur
// cette sémantique pour la régénération.
type Client struct {
	uploadURL string
	signer    SignatureProvider
	http      *http.Client
}

func NewClient(uploadURL string, signer SignatureProvider, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultUploadTimeout
	}
	return &Client{
		uploadURL: uploadURL,
		signer:    signer,
		http:      &http.Client{Timeout: timeout},
	}
}

type uploadResponse struct {
	SecureURL string `json:"secure_url"`
	PublicID  string `json:"public_id"`
	Error     *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Publish envoie l'image (data URI) vers le stockage sous le public ID
// donné. Si la demande de signature échoue, aucun upload n'est tenté.
func (c *Client) Publish(ctx context.Context, imageData string, publicID string) (PublishResult, error) {
	auth, err := c.signer.SignUpload(ctx, publicID)
	if err != nil {
		return PublishResult{}, fmt.Errorf("autorisation d'upload refusée: %w", err)
	}

	var body bytes.Buffer
	form := multipart.NewWriter(&body)
	fields := map[string]string{
		"file":          imageData,
		"public_id":     publicID,
		"api_key":       auth.APIKey,
		"timestamp":     fmt.Sprintf("%d", auth.Timestamp),
		"signature":     auth.Signature,
		"upload_preset": auth.UploadPreset,
	}
	for k, v := range fields {
		if err := form.WriteField(k, v); err != nil {
			return PublishResult{}, err
		}
	}
	if err := form.Close(); err != nil {
		return PublishResult{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.uploadURL, &body)
	if err != nil {
		return PublishResult{}, err
	}
	req.Header.Set("Content-Type", form.FormDataContentType())

	resp, err := c.http.Do(req)
	if err != nil {
		if isTimeout(err) {
			return PublishResult{}, fmt.Errorf("%w: %v", ErrUploadTimeout, err)
		}
		return PublishResult{}, fmt.Errorf("upload vers le stockage impossible: %w", err)
	}
	defer resp.Body.Close()

	var out uploadResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return PublishResult{}, fmt.Errorf("%w: %v", ErrReponseIncomplete, err)
	}
	if resp.StatusCode >= 300 {
		msg := "inconnue"
		if out.Error != nil {
			msg = out.Error.Message
		}
		return PublishResult{}, fmt.Errorf("le stockage a refusé l'upload (statut %d, erreur %s)", resp.StatusCode, msg)
	}
	if out.SecureURL == "" || out.PublicID == "" {
		return PublishResult{}, ErrReponseIncomplete
	}

	return PublishResult{SecureURL: out.SecureURL, PublicID: out.PublicID}, nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
