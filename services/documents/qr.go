package documents

import (
	"bytes"
	"context"
	"image/png"
	"log"

	qrcode "github.com/skip2/go-qrcode"
)

// QRSize est la taille fixe (carrée) des codes QR insérés sur les cartes.
const QRSize = 140

// QRRemote est le service externe de rendu QR (URL cible → octets PNG).
type QRRemote interface {
	FetchPNG(ctx context.Context, data string, size int) ([]byte, error)
}

// QRGenerator produit l'image QR d'une URL. Service externe d'abord,
// génération locale en secours, substitution en dernier recours :
// l'absence de QR ne doit jamais bloquer l'émission d'une carte.
type QRGenerator struct {
	remote QRRemote
}

func NewQRGenerator(remote QRRemote) *QRGenerator {
	return &QRGenerator{remote: remote}
}

func (g *QRGenerator) Generate(ctx context.Context, url string) EmbeddableImage {
	if g.remote != nil {
		b, err := g.remote.FetchPNG(ctx, url, QRSize)
		if err == nil {
			_, derr := png.Decode(bytes.NewReader(b))
			if derr == nil {
				return FromPNGBytes(b)
			}
			err = derr
		}
		log.Printf("[AVERTISSEMENT] service QR indisponible (%v), génération locale", err)
	}

	b, err := qrcode.Encode(url, qrcode.Medium, QRSize)
	if err != nil {
		log.Printf("[AVERTISSEMENT] génération QR locale impossible (%v), substitution appliquée", err)
		return Placeholder
	}
	return FromPNGBytes(b)
}
