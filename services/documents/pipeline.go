package documents

import (
	"context"
	"fmt"
	"log"

	"github.com/agcoapp/agco-backend/integrations/cloudinary"
	"github.com/agcoapp/agco-backend/models"
)

// Etat du pipeline de publication. La progression est strictement
// séquentielle, sans retour arrière : tout échec interrompt l'exécution.
type Etat string

const (
	EtatDebut                Etat = "debut"
	EtatContreSignature      Etat = "contre_signature"
	EtatFormulaireProvisoire Etat = "formulaire_provisoire"
	EtatCarteRectoProvisoire Etat = "carte_recto_provisoire"
	EtatCarteVersoProvisoire Etat = "carte_verso_provisoire"
	EtatApprobation          Etat = "approbation"
	EtatFormulaireDefinitif  Etat = "formulaire_definitif"
	EtatCarteRectoDefinitif  Etat = "carte_recto_definitif"
	EtatCarteVersoDefinitif  Etat = "carte_verso_definitif"
	EtatTermine              Etat = "termine"
)

// PipelineError nomme l'étape qui a échoué. L'approbation (EtatApprobation)
// est le seul point qui mute le statut de l'adhérent : une erreur survenue
// APRÈS cette étape laisse l'adhérent approuvé avec des documents
// provisoires, situation signalée à l'opérateur via ApresApprobation.
type PipelineError struct {
	Etat Etat
	Err  error
}

func (e *PipelineError) Error() string {
	return fmt.Sprintf("pipeline interrompu à l'étape %s: %v", e.Etat, e.Err)
}

func (e *PipelineError) Unwrap() error { return e.Err }

// ApresApprobation indique si l'échec est survenu après la mutation du
// statut côté base (documents potentiellement périmés, pas de retour
// arrière automatique).
func (e *PipelineError) ApresApprobation() bool {
	switch e.Etat {
	case EtatFormulaireDefinitif, EtatCarteRectoDefinitif, EtatCarteVersoDefinitif:
		return true
	}
	return false
}

// SurfaceRenderer est la capacité de rendu hors écran injectée dans le
// pipeline (montage + capture sous un même verrou).
type SurfaceRenderer interface {
	Snapshot(ctx context.Context, markup string, width, height int) ([]byte, error)
}

// ImageFetcher récupère et ré-encode une image distante, avec
// substitution silencieuse en cas d'échec.
type ImageFetcher interface {
	FetchAndResize(ctx context.Context, url string, maxW, maxH, quality int, preserveAlpha bool) EmbeddableImage
}

// QRProvider produit l'image QR d'une URL, sans jamais échouer.
type QRProvider interface {
	Generate(ctx context.Context, url string) EmbeddableImage
}

// Publisher publie une image sous un public ID (écrasement en place).
type Publisher interface {
	Publish(ctx context.Context, imageData string, publicID string) (cloudinary.PublishResult, error)
}

// ApprovalRequest est la charge du point d'approbation : les URLs des
// documents provisoires en font partie, d'où la publication en deux temps.
type ApprovalRequest struct {
	AdhesionID    uint
	Commentaire   string
	FormulaireURL string
	CarteRectoURL string
	CarteVersoURL string
}

// Approver attribue le numéro d'adhérent. C'est l'unique point de
// mutation du statut du membre dans tout le pipeline.
type Approver interface {
	Approve(ctx context.Context, req ApprovalRequest) (string, error)
}

// ArtifactRecorder consigne chaque publication (création à la première
// révision, remplacement du contenu à la seconde, jamais de doublon).
type ArtifactRecorder interface {
	RecordArtifact(ctx context.Context, adhesionID uint, kind models.TypeDocument, res cloudinary.PublishResult, rev models.RevisionDocument) error
}

// ParametreSource fournit les réglages de l'association nécessaires au
// rendu (signature du président, logo).
type ParametreSource interface {
	SignaturePresidentURL(ctx context.Context) (string, error)
	LogoURL(ctx context.Context) (string, error)
}

// Pipeline orchestre la génération et la publication en deux phases des
// trois documents d'un adhérent.
type Pipeline struct {
	surface   SurfaceRenderer
	images    ImageFetcher
	qr        QRProvider
	publisher Publisher
	approver  Approver
	recorder  ArtifactRecorder
	params    ParametreSource
}

func NewPipeline(surface SurfaceRenderer, images ImageFetcher, qr QRProvider, publisher Publisher, approver Approver, recorder ArtifactRecorder, params ParametreSource) *Pipeline {
	return &Pipeline{
		surface:   surface,
		images:    images,
		qr:        qr,
		publisher: publisher,
		approver:  approver,
		recorder:  recorder,
		params:    params,
	}
}

// PipelineResult porte le numéro attribué et les trois documents publiés
// en révision définitive.
type PipelineResult struct {
	NumeroAdherent string                    `json:"numero_adherent"`
	Formulaire     cloudinary.PublishResult  `json:"formulaire"`
	CarteRecto     cloudinary.PublishResult  `json:"carte_recto"`
	CarteVerso     cloudinary.PublishResult  `json:"carte_verso"`
}

// execution est l'état mutable d'un parcours du pipeline.
type execution struct {
	adhesion    *models.Adhesion
	commentaire string
	champs      map[string]string
	images      Images
	resultats   map[models.TypeDocument]cloudinary.PublishResult
	numero      string
}

type etape struct {
	etat Etat
	run  func(ctx context.Context, ex *execution) error
}

// Approuver exécute la machine à états complète : publication provisoire
// des trois documents, approbation (attribution du numéro), puis
// republication définitive sous les mêmes public IDs.
func (p *Pipeline) Approuver(ctx context.Context, adhesion *models.Adhesion, commentaire string) (*PipelineResult, error) {
	ex := &execution{
		adhesion:    adhesion,
		commentaire: commentaire,
		champs:      adhesion.Champs(),
		resultats:   make(map[models.TypeDocument]cloudinary.PublishResult),
	}

	etapes := []etape{
		{EtatContreSignature, p.chargerVisuels},
		{EtatFormulaireProvisoire, p.publierDocument(models.DocumentFormulaire, models.RevisionProvisoire)},
		{EtatCarteRectoProvisoire, p.publierDocument(models.DocumentCarteRecto, models.RevisionProvisoire)},
		{EtatCarteVersoProvisoire, p.publierCarteVerso(models.RevisionProvisoire)},
		{EtatApprobation, p.approuver},
		{EtatFormulaireDefinitif, p.publierDocument(models.DocumentFormulaire, models.RevisionDefinitive)},
		{EtatCarteRectoDefinitif, p.publierDocument(models.DocumentCarteRecto, models.RevisionDefinitive)},
		{EtatCarteVersoDefinitif, p.publierCarteVerso(models.RevisionDefinitive)},
	}

	for _, st := range etapes {
		if err := ctx.Err(); err != nil {
			return nil, &PipelineError{Etat: st.etat, Err: err}
		}
		if err := st.run(ctx, ex); err != nil {
			return nil, &PipelineError{Etat: st.etat, Err: err}
		}
		log.Printf("[INFO] adhésion %d: étape %s terminée", adhesion.ID, st.etat)
	}

	return &PipelineResult{
		NumeroAdherent: ex.numero,
		Formulaire:     ex.resultats[models.DocumentFormulaire],
		CarteRecto:     ex.resultats[models.DocumentCarteRecto],
		CarteVerso:     ex.resultats[models.DocumentCarteVerso],
	}, nil
}

// Regenerer republie les documents demandés en révision définitive, pour
// la reprise opérateur après un échec survenu une fois l'adhérent
// approuvé. formulaireURL est l'URL du formulaire déjà publié, utilisée
// pour le QR du verso si le formulaire n'est pas régénéré dans ce lot.
func (p *Pipeline) Regenerer(ctx context.Context, adhesion *models.Adhesion, kinds []models.TypeDocument, formulaireURL string) (map[models.TypeDocument]cloudinary.PublishResult, error) {
	ex := &execution{
		adhesion:  adhesion,
		champs:    adhesion.Champs(),
		resultats: make(map[models.TypeDocument]cloudinary.PublishResult),
	}
	if formulaireURL != "" {
		ex.resultats[models.DocumentFormulaire] = cloudinary.PublishResult{
			SecureURL: formulaireURL,
			PublicID:  models.PublicIDFor(adhesion.ID, models.DocumentFormulaire),
		}
	}

	if err := p.chargerVisuels(ctx, ex); err != nil {
		return nil, &PipelineError{Etat: EtatContreSignature, Err: err}
	}

	// Ordre imposé : le verso dépend de l'URL du formulaire.
	ordre := []models.TypeDocument{models.DocumentFormulaire, models.DocumentCarteRecto, models.DocumentCarteVerso}
	demande := make(map[models.TypeDocument]bool, len(kinds))
	for _, k := range kinds {
		demande[k] = true
	}

	publies := make(map[models.TypeDocument]cloudinary.PublishResult)
	for _, kind := range ordre {
		if !demande[kind] {
			continue
		}
		var run func(context.Context, *execution) error
		if kind == models.DocumentCarteVerso {
			run = p.publierCarteVerso(models.RevisionDefinitive)
		} else {
			run = p.publierDocument(kind, models.RevisionDefinitive)
		}
		if err := run(ctx, ex); err != nil {
			return publies, &PipelineError{Etat: etatDefinitif(kind), Err: err}
		}
		publies[kind] = ex.resultats[kind]
	}
	return publies, nil
}

func etatDefinitif(kind models.TypeDocument) Etat {
	switch kind {
	case models.DocumentCarteRecto:
		return EtatCarteRectoDefinitif
	case models.DocumentCarteVerso:
		return EtatCarteVersoDefinitif
	default:
		return EtatFormulaireDefinitif
	}
}

// chargerVisuels récupère la contre-signature du président puis les
// visuels de l'adhérent. Tous dégradent en substitution, jamais en échec.
func (p *Pipeline) chargerVisuels(ctx context.Context, ex *execution) error {
	sigURL, err := p.params.SignaturePresidentURL(ctx)
	if err != nil {
		return fmt.Errorf("signature du président introuvable: %w", err)
	}
	logoURL, err := p.params.LogoURL(ctx)
	if err != nil {
		return fmt.Errorf("logo de l'association introuvable: %w", err)
	}

	ex.images = Images{
		Logo:            p.images.FetchAndResize(ctx, logoURL, 200, 200, 90, true),
		Photo:           p.images.FetchAndResize(ctx, ex.adhesion.PhotoURL, 300, 380, 80, false),
		Signature:       p.images.FetchAndResize(ctx, ex.adhesion.SignatureURL, 440, 180, 90, true),
		ContreSignature: p.images.FetchAndResize(ctx, sigURL, 440, 180, 90, true),
	}
	return nil
}

// publierDocument rend, capture et publie un document sous son public ID
// stable. Le même ID est réutilisé à la révision définitive : le stockage
// écrase le contenu en place.
func (p *Pipeline) publierDocument(kind models.TypeDocument, rev models.RevisionDocument) func(ctx context.Context, ex *execution) error {
	return func(ctx context.Context, ex *execution) error {
		res, err := p.renderEtPublier(ctx, ex, kind, ex.images)
		if err != nil {
			return err
		}
		ex.resultats[kind] = res
		return p.recorder.RecordArtifact(ctx, ex.adhesion.ID, kind, res, rev)
	}
}

// publierCarteVerso génère d'abord le QR à partir de l'URL du formulaire
// la plus récente. L'URL ne change pas entre les deux phases (public ID
// stable) mais le QR est régénéré depuis l'URL confirmée par prudence.
func (p *Pipeline) publierCarteVerso(rev models.RevisionDocument) func(ctx context.Context, ex *execution) error {
	return func(ctx context.Context, ex *execution) error {
		formulaire, ok := ex.resultats[models.DocumentFormulaire]
		if !ok || formulaire.SecureURL == "" {
			return fmt.Errorf("le verso exige un formulaire déjà publié")
		}

		images := ex.images
		images.QRCode = p.qr.Generate(ctx, formulaire.SecureURL)

		res, err := p.renderEtPublier(ctx, ex, models.DocumentCarteVerso, images)
		if err != nil {
			return err
		}
		ex.resultats[models.DocumentCarteVerso] = res
		return p.recorder.RecordArtifact(ctx, ex.adhesion.ID, models.DocumentCarteVerso, res, rev)
	}
}

func (p *Pipeline) renderEtPublier(ctx context.Context, ex *execution, kind models.TypeDocument, images Images) (cloudinary.PublishResult, error) {
	markup, err := Render(kind, ex.champs, images)
	if err != nil {
		return cloudinary.PublishResult{}, err
	}

	width, height := Dimensions(kind)
	capture, err := p.surface.Snapshot(ctx, markup, width, height)
	if err != nil {
		return cloudinary.PublishResult{}, err
	}

	publicID := models.PublicIDFor(ex.adhesion.ID, kind)
	return p.publisher.Publish(ctx, string(FromPNGBytes(capture)), publicID)
}

// approuver appelle le point d'approbation avec les URLs provisoires et
// réinjecte le numéro attribué dans les champs pour la phase définitive.
func (p *Pipeline) approuver(ctx context.Context, ex *execution) error {
	numero, err := p.approver.Approve(ctx, ApprovalRequest{
		AdhesionID:    ex.adhesion.ID,
		Commentaire:   ex.commentaire,
		FormulaireURL: ex.resultats[models.DocumentFormulaire].SecureURL,
		CarteRectoURL: ex.resultats[models.DocumentCarteRecto].SecureURL,
		CarteVersoURL: ex.resultats[models.DocumentCarteVerso].SecureURL,
	})
	if err != nil {
		return err
	}
	if numero == "" {
		return fmt.Errorf("aucun numéro d'adhérent attribué")
	}
	ex.numero = numero
	ex.adhesion.NumeroAdherent = numero
	ex.champs["numero_adherent"] = numero
	return nil
}
