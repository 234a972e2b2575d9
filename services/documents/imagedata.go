package documents

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"html/template"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"log"
	"math"
	"net/http"
	"time"

	"github.com/disintegration/imaging"
)

// EmbeddableImage est une image ré-encodée sous forme de data URI,
// directement insérable dans le balisage d'un document. Jamais persistée.
type EmbeddableImage string

// Vide indique qu'aucune image exploitable n'est portée.
func (e EmbeddableImage) Vide() bool { return e == "" }

// URL expose la data URI comme URL de confiance pour html/template,
// qui neutraliserait sinon le schéma data: dans un attribut src.
func (e EmbeddableImage) URL() template.URL { return template.URL(e) }

// Placeholder est l'image de substitution (1×1 transparent) utilisée
// quand une image décorative ne peut pas être récupérée : un visuel
// manquant ne doit jamais bloquer l'émission d'un document.
var Placeholder = placeholderImage()

func placeholderImage() EmbeddableImage {
	img := image.NewNRGBA(image.Rect(0, 0, 1, 1))
	img.SetNRGBA(0, 0, color.NRGBA{})
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		// encodage en mémoire d'un 1×1, ne peut pas échouer
		panic(err)
	}
	return FromPNGBytes(buf.Bytes())
}

// FromPNGBytes emballe des octets PNG en data URI.
func FromPNGBytes(b []byte) EmbeddableImage {
	return EmbeddableImage("data:image/png;base64," + base64.StdEncoding.EncodeToString(b))
}

// FromJPEGBytes emballe des octets JPEG en data URI.
func FromJPEGBytes(b []byte) EmbeddableImage {
	return EmbeddableImage("data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(b))
}

// Fetcher récupère une image distante, la redimensionne dans les bornes
// données et la ré-encode pour insertion dans un document.
type Fetcher struct {
	http *http.Client
}

func NewFetcher(timeout time.Duration) *Fetcher {
	if timeout <= 0 {
		timeout = 12 * time.Second
	}
	return &Fetcher{http: &http.Client{Timeout: timeout}}
}

// FetchAndResize ne renvoie jamais d'erreur : en cas d'échec réseau ou de
// décodage, l'image de substitution est retournée et la condition journalisée.
func (f *Fetcher) FetchAndResize(ctx context.Context, url string, maxW, maxH, quality int, preserveAlpha bool) EmbeddableImage {
	img, err := f.fetchAndResize(ctx, url, maxW, maxH, quality, preserveAlpha)
	if err != nil {
		log.Printf("[AVERTISSEMENT] image %s non récupérée (%v), substitution appliquée", url, err)
		return Placeholder
	}
	return img
}

func (f *Fetcher) fetchAndResize(ctx context.Context, url string, maxW, maxH, quality int, preserveAlpha bool) (EmbeddableImage, error) {
	if url == "" {
		return "", fmt.Errorf("URL d'image vide")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	resp, err := f.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("statut %d", resp.StatusCode)
	}

	src, err := imaging.Decode(resp.Body)
	if err != nil {
		return "", fmt.Errorf("décodage impossible: %w", err)
	}

	resized := Resize(src, maxW, maxH)

	var buf bytes.Buffer
	if preserveAlpha {
		if err := png.Encode(&buf, resized); err != nil {
			return "", err
		}
		return FromPNGBytes(buf.Bytes()), nil
	}
	if err := jpeg.Encode(&buf, resized, &jpeg.Options{Quality: quality}); err != nil {
		return "", err
	}
	return FromJPEGBytes(buf.Bytes()), nil
}

// Resize ajuste l'image dans les bornes données en conservant le ratio :
// scale = min(maxW/l, maxH/h), sans plafonner à 1 (l'agrandissement est
// autorisé, comportement historique de l'application).
func Resize(src image.Image, maxW, maxH int) image.Image {
	bounds := src.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w == 0 || h == 0 {
		return src
	}

	scale := math.Min(float64(maxW)/float64(w), float64(maxH)/float64(h))
	newW := int(math.Round(float64(w) * scale))
	newH := int(math.Round(float64(h) * scale))
	if newW < 1 {
		newW = 1
	}
	if newH < 1 {
		newH = 1
	}
	return imaging.Resize(src, newW, newH, imaging.Lanczos)
}
