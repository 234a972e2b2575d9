package qrserver

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

const defaultHTTPTimeout = 10 * time.Second

// Client interroge le service externe de rendu QR (URL cible → PNG).
type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: defaultHTTPTimeout},
	}
}

// FetchPNG télécharge l'image QR encodant la donnée passée, à la taille
// demandée (carrée).
func (c *Client) FetchPNG(ctx context.Context, data string, size int) ([]byte, error) {
	q := url.Values{}
	q.Set("data", data)
	q.Set("size", fmt.Sprintf("%dx%d", size, size))
	q.Set("format", "png")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("service QR statut %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}
