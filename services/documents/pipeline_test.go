package documents

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agcoapp/agco-backend/integrations/cloudinary"
	"github.com/agcoapp/agco-backend/models"
)

// --- Doublures des capacités injectées dans le pipeline

type fakeSurface struct {
	captures []string // balisages capturés, dans l'ordre
	erreur   error
}

func (f *fakeSurface) Snapshot(ctx context.Context, markup string, width, height int) ([]byte, error) {
	if f.erreur != nil {
		return nil, f.erreur
	}
	f.captures = append(f.captures, markup)
	return []byte("png-" + fmt.Sprint(len(f.captures))), nil
}

type fakeFetcher struct{}

func (fakeFetcher) FetchAndResize(ctx context.Context, url string, maxW, maxH, quality int, preserveAlpha bool) EmbeddableImage {
	if url == "" {
		return Placeholder
	}
	return EmbeddableImage("data:image/png;base64,IMG")
}

type fakeQR struct {
	payloads []string
}

func (f *fakeQR) Generate(ctx context.Context, url string) EmbeddableImage {
	f.payloads = append(f.payloads, url)
	return EmbeddableImage("data:image/png;base64,QR")
}

type publication struct {
	publicID string
	contenu  string
}

type fakePublisher struct {
	publications []publication
	contenus     map[string]string // état du stockage : public ID → contenu
	echouerSur   string            // public ID qui échoue à partir de echouerDes
	echouerDes   int               // numéro d'appel (1-based) à partir duquel échouer
}

func (f *fakePublisher) Publish(ctx context.Context, imageData string, publicID string) (cloudinary.PublishResult, error) {
	appel := len(f.publications) + 1
	if f.echouerSur == publicID && appel >= f.echouerDes {
		return cloudinary.PublishResult{}, errors.New("stockage indisponible")
	}
	f.publications = append(f.publications, publication{publicID: publicID, contenu: imageData})
	if f.contenus == nil {
		f.contenus = make(map[string]string)
	}
	f.contenus[publicID] = imageData
	return cloudinary.PublishResult{
		SecureURL: "https://res.example.com/" + publicID + ".png",
		PublicID:  publicID,
	}, nil
}

type fakeApprover struct {
	numero  string
	erreur  error
	requete *ApprovalRequest
}

func (f *fakeApprover) Approve(ctx context.Context, req ApprovalRequest) (string, error) {
	f.requete = &req
	if f.erreur != nil {
		return "", f.erreur
	}
	return f.numero, nil
}

type enregistrement struct {
	kind models.TypeDocument
	rev  models.RevisionDocument
	url  string
}

type fakeRecorder struct {
	enregistrements []enregistrement
}

func (f *fakeRecorder) RecordArtifact(ctx context.Context, adhesionID uint, kind models.TypeDocument, res cloudinary.PublishResult, rev models.RevisionDocument) error {
	f.enregistrements = append(f.enregistrements, enregistrement{kind: kind, rev: rev, url: res.SecureURL})
	return nil
}

type fakeParams struct {
	signatureErr error
}

func (f *fakeParams) SignaturePresidentURL(ctx context.Context) (string, error) {
	if f.signatureErr != nil {
		return "", f.signatureErr
	}
	return "https://res.example.com/parametres/signature_president.png", nil
}

func (f *fakeParams) LogoURL(ctx context.Context) (string, error) {
	return "https://res.example.com/parametres/logo.png", nil
}

type banc struct {
	pipeline  *Pipeline
	surface   *fakeSurface
	qr        *fakeQR
	publisher *fakePublisher
	approver  *fakeApprover
	recorder  *fakeRecorder
	params    *fakeParams
}

func nouveauBanc() *banc {
	b := &banc{
		surface:   &fakeSurface{},
		qr:        &fakeQR{},
		publisher: &fakePublisher{},
		approver:  &fakeApprover{numero: "AGC-2024-001"},
		recorder:  &fakeRecorder{},
		params:    &fakeParams{},
	}
	b.pipeline = NewPipeline(b.surface, fakeFetcher{}, b.qr, b.publisher, b.approver, b.recorder, b.params)
	return b
}

func adhesionTest() *models.Adhesion {
	a := &models.Adhesion{
		Nom:            "Diallo",
		Prenom:         "Aminata",
		VilleResidence: "Paris",
		PhotoURL:       "https://res.example.com/photos/7.jpg",
		SignatureURL:   "https://res.example.com/signatures/7.png",
		Statut:         models.StatutEnAttente,
	}
	a.ID = 7
	return a
}

func TestPipelineApprouver(t *testing.T) {
	b := nouveauBanc()
	adhesion := adhesionTest()

	result, err := b.pipeline.Approuver(context.Background(), adhesion, "dossier complet")
	require.NoError(t, err)

	// six publications : trois provisoires puis trois définitives, sous
	// les MÊMES public IDs (écrasement, jamais de seconde clé)
	attendu := []string{
		"adhesions/7",
		"cartes_membres/7_recto",
		"cartes_membres/7_verso",
		"adhesions/7",
		"cartes_membres/7_recto",
		"cartes_membres/7_verso",
	}
	require.Len(t, b.publisher.publications, 6)
	for i, pub := range b.publisher.publications {
		assert.Equal(t, attendu[i], pub.publicID, "publication %d", i)
	}
	// le stockage ne détient que trois documents
	assert.Len(t, b.publisher.contenus, 3)

	// l'appel d'approbation reçoit les URLs provisoires
	require.NotNil(t, b.approver.requete)
	assert.Equal(t, uint(7), b.approver.requete.AdhesionID)
	assert.Equal(t, "dossier complet", b.approver.requete.Commentaire)
	assert.Equal(t, "https://res.example.com/adhesions/7.png", b.approver.requete.FormulaireURL)
	assert.Equal(t, "https://res.example.com/cartes_membres/7_recto.png", b.approver.requete.CarteRectoURL)
	assert.Equal(t, "https://res.example.com/cartes_membres/7_verso.png", b.approver.requete.CarteVersoURL)

	// résultat final
	assert.Equal(t, "AGC-2024-001", result.NumeroAdherent)
	assert.Equal(t, "adhesions/7", result.Formulaire.PublicID)
	assert.True(t, strings.HasPrefix(result.Formulaire.SecureURL, "https://"))

	// le numéro attribué figure dans les rendus de la seconde phase
	require.Len(t, b.surface.captures, 6)
	assert.NotContains(t, b.surface.captures[0], "AGC-2024-001")
	for _, markup := range b.surface.captures[3:] {
		assert.Contains(t, markup, "AGC-2024-001")
	}
}

// La charge du QR est exactement l'URL du formulaire publié le plus
// récemment : provisoire avant l'approbation, définitive après.
func TestPipelineQRDepuisFormulaire(t *testing.T) {
	b := nouveauBanc()

	_, err := b.pipeline.Approuver(context.Background(), adhesionTest(), "")
	require.NoError(t, err)

	require.Len(t, b.qr.payloads, 2)
	assert.Equal(t, "https://res.example.com/adhesions/7.png", b.qr.payloads[0])
	assert.Equal(t, "https://res.example.com/adhesions/7.png", b.qr.payloads[1])
	// l'URL est identique entre les deux phases : la clé de stockage est
	// stable, seul le contenu change
}

func TestPipelineRevisionsConsignees(t *testing.T) {
	b := nouveauBanc()

	_, err := b.pipeline.Approuver(context.Background(), adhesionTest(), "")
	require.NoError(t, err)

	require.Len(t, b.recorder.enregistrements, 6)
	for _, e := range b.recorder.enregistrements[:3] {
		assert.Equal(t, models.RevisionProvisoire, e.rev)
	}
	for _, e := range b.recorder.enregistrements[3:] {
		assert.Equal(t, models.RevisionDefinitive, e.rev)
	}
}

// Échec de l'approbation : le pipeline s'arrête avant toute publication
// définitive, l'erreur nomme l'étape, et elle est AVANT la mutation.
func TestPipelineEchecApprobation(t *testing.T) {
	b := nouveauBanc()
	b.approver.erreur = errors.New("backend injoignable")

	_, err := b.pipeline.Approuver(context.Background(), adhesionTest(), "")
	require.Error(t, err)

	var perr *PipelineError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, EtatApprobation, perr.Etat)
	assert.False(t, perr.ApresApprobation())
	assert.Len(t, b.publisher.publications, 3, "aucune publication définitive")
}

// Échec d'une publication définitive : le membre est déjà approuvé côté
// base, l'erreur doit le signaler pour déclencher la reprise opérateur.
func TestPipelineEchecApresApprobation(t *testing.T) {
	b := nouveauBanc()
	b.publisher.echouerSur = "cartes_membres/7_recto"
	b.publisher.echouerDes = 4 // la publication provisoire du recto passe

	_, err := b.pipeline.Approuver(context.Background(), adhesionTest(), "")
	require.Error(t, err)

	var perr *PipelineError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, EtatCarteRectoDefinitif, perr.Etat)
	assert.True(t, perr.ApresApprobation())
}

// Si la demande d'autorisation (ou toute publication provisoire) échoue,
// le point d'approbation n'est jamais appelé.
func TestPipelineEchecAvantApprobation(t *testing.T) {
	b := nouveauBanc()
	b.publisher.echouerSur = "adhesions/7"
	b.publisher.echouerDes = 1

	_, err := b.pipeline.Approuver(context.Background(), adhesionTest(), "")
	require.Error(t, err)

	var perr *PipelineError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, EtatFormulaireProvisoire, perr.Etat)
	assert.Nil(t, b.approver.requete, "l'approbation ne doit pas être appelée")
}

func TestPipelineSignaturePresidentAbsente(t *testing.T) {
	b := nouveauBanc()
	b.params.signatureErr = errors.New("non configurée")

	_, err := b.pipeline.Approuver(context.Background(), adhesionTest(), "")
	var perr *PipelineError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, EtatContreSignature, perr.Etat)
	assert.Empty(t, b.publisher.publications)
}

func TestPipelineAnnulation(t *testing.T) {
	b := nouveauBanc()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := b.pipeline.Approuver(ctx, adhesionTest(), "")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, b.publisher.publications)
}

func TestPipelineRegenererVersoSeul(t *testing.T) {
	b := nouveauBanc()
	adhesion := adhesionTest()
	adhesion.Statut = models.StatutApprouvee
	adhesion.NumeroAdherent = "AGC-2024-001"

	publies, err := b.pipeline.Regenerer(
		context.Background(),
		adhesion,
		[]models.TypeDocument{models.DocumentCarteVerso},
		"https://res.example.com/adhesions/7.png",
	)
	require.NoError(t, err)

	require.Len(t, b.publisher.publications, 1)
	assert.Equal(t, "cartes_membres/7_verso", b.publisher.publications[0].publicID)

	// le QR encode l'URL du formulaire déjà publié
	require.Len(t, b.qr.payloads, 1)
	assert.Equal(t, "https://res.example.com/adhesions/7.png", b.qr.payloads[0])

	res, ok := publies[models.DocumentCarteVerso]
	require.True(t, ok)
	assert.Equal(t, "cartes_membres/7_verso", res.PublicID)
}

func TestPipelineRegenererToutDansLOrdre(t *testing.T) {
	b := nouveauBanc()
	adhesion := adhesionTest()
	adhesion.Statut = models.StatutApprouvee
	adhesion.NumeroAdherent = "AGC-2024-002"

	// ordre demandé volontairement mélangé : le formulaire doit quand
	// même précéder le verso
	publies, err := b.pipeline.Regenerer(
		context.Background(),
		adhesion,
		[]models.TypeDocument{models.DocumentCarteVerso, models.DocumentFormulaire, models.DocumentCarteRecto},
		"",
	)
	require.NoError(t, err)
	require.Len(t, publies, 3)

	attendu := []string{"adhesions/7", "cartes_membres/7_recto", "cartes_membres/7_verso"}
	for i, pub := range b.publisher.publications {
		assert.Equal(t, attendu[i], pub.publicID)
	}
	// le numéro figure dans chaque rendu régénéré
	for _, markup := range b.surface.captures {
		assert.Contains(t, markup, "AGC-2024-002")
	}
}

func TestPipelineRegenererVersoSansFormulaire(t *testing.T) {
	b := nouveauBanc()
	adhesion := adhesionTest()
	adhesion.Statut = models.StatutApprouvee

	_, err := b.pipeline.Regenerer(
		context.Background(),
		adhesion,
		[]models.TypeDocument{models.DocumentCarteVerso},
		"",
	)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "formulaire")
}
