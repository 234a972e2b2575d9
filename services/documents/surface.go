package documents

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/chromedp"
)

// ErrSurfaceIndisponible : capture demandée avant qu'un document soit
// monté et peint sur la surface.
var ErrSurfaceIndisponible = errors.New("surface de rendu indisponible")

// Surface héberge le balisage dans un onglet Chrome headless invisible et
// capture la zone peinte en PNG. Une seule capture à la fois : la surface
// est partagée entre les exécutions du pipeline et protégée par mutex.
type Surface struct {
	allocCtx    context.Context
	allocCancel context.CancelFunc
	tabCtx      context.Context
	tabCancel   context.CancelFunc

	settle  time.Duration
	timeout time.Duration

	mu      sync.Mutex
	mounted bool
}

// NewSurface démarre le navigateur headless. execPath peut être vide
// (binaire Chrome trouvé sur le PATH).
func NewSurface(execPath string, settle, timeout time.Duration) (*Surface, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Headless,
		chromedp.DisableGPU,
		chromedp.NoSandbox,
	)
	if execPath != "" {
		opts = append(opts, chromedp.ExecPath(execPath))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	tabCtx, tabCancel := chromedp.NewContext(allocCtx)

	// Démarrage immédiat du navigateur pour échouer tôt si Chrome manque.
	if err := chromedp.Run(tabCtx); err != nil {
		tabCancel()
		allocCancel()
		return nil, fmt.Errorf("démarrage de la surface de rendu: %w", err)
	}

	if settle <= 0 {
		settle = 500 * time.Millisecond
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Surface{
		allocCtx:    allocCtx,
		allocCancel: allocCancel,
		tabCtx:      tabCtx,
		tabCancel:   tabCancel,
		settle:      settle,
		timeout:     timeout,
	}, nil
}

// Close arrête le navigateur.
func (s *Surface) Close() {
	s.tabCancel()
	s.allocCancel()
}

// Mount remplace intégralement le document affiché par le balisage donné
// et attend la barrière de peinture avant de rendre la main.
func (s *Surface) Mount(ctx context.Context, markup string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mount(ctx, markup)
}

// Capture rasterise la zone #document du dernier balisage monté.
func (s *Surface) Capture(ctx context.Context, width, height int) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.capture(ctx, width, height)
}

// Snapshot monte le balisage puis capture, sous un seul verrou : deux
// pipelines concurrents ne peuvent pas intercaler montage et capture.
func (s *Surface) Snapshot(ctx context.Context, markup string, width, height int) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.mount(ctx, markup); err != nil {
		return nil, err
	}
	return s.capture(ctx, width, height)
}

func (s *Surface) mount(ctx context.Context, markup string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	dataURI := "data:text/html;base64," + base64.StdEncoding.EncodeToString([]byte(markup))

	runCtx, cancel := context.WithTimeout(s.tabCtx, s.timeout)
	defer cancel()

	// Barrière de peinture : élément racine visible, puis délai de
	// stabilisation fixe pour laisser les images data URI se décoder.
	err := chromedp.Run(runCtx,
		chromedp.Navigate(dataURI),
		chromedp.WaitVisible("#document", chromedp.ByID),
		chromedp.Sleep(s.settle),
	)
	if err != nil {
		s.mounted = false
		return fmt.Errorf("montage du document: %w", err)
	}
	s.mounted = true
	return nil
}

func (s *Surface) capture(ctx context.Context, width, height int) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !s.mounted {
		return nil, ErrSurfaceIndisponible
	}

	runCtx, cancel := context.WithTimeout(s.tabCtx, s.timeout)
	defer cancel()

	// Le changement de viewport peut re-calculer la mise en page : la
	// barrière de peinture est répétée après l'émulation pour que la
	// capture observe le rendu final, pas celui du viewport précédent.
	var buf []byte
	err := chromedp.Run(runCtx,
		chromedp.EmulateViewport(int64(width), int64(height)),
		chromedp.WaitVisible("#document", chromedp.ByID),
		chromedp.Sleep(s.settle),
		chromedp.Screenshot("#document", &buf, chromedp.ByID),
	)
	if err != nil {
		return nil, fmt.Errorf("capture du document: %w", err)
	}
	if len(buf) == 0 {
		return nil, fmt.Errorf("%w: capture vide", ErrSurfaceIndisponible)
	}
	return buf, nil
}
