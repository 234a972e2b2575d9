package adhesions

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/agcoapp/agco-backend/integrations/cloudinary"
	"github.com/agcoapp/agco-backend/models"
	"github.com/agcoapp/agco-backend/services/documents"
)

var (
	ErrAdhesionIntrouvable = errors.New("adhésion introuvable")
	ErrDejaTraitee         = errors.New("adhésion déjà traitée")
)

// Store regroupe les accès base du domaine adhésion. Il implémente les
// capacités qu'attend le pipeline de documents (approbation, consignation
// des documents, réglages de l'association).
type Store struct {
	db     *gorm.DB
	prefix string
	now    func() time.Time
}

func NewStore(db *gorm.DB, prefix string) *Store {
	if prefix == "" {
		prefix = "AGC"
	}
	return &Store{db: db, prefix: prefix, now: time.Now}
}

// Approve attribue le numéro d'adhérent et marque l'adhésion approuvée.
// Unique point de mutation du statut dans tout le pipeline : tout échec en
// amont laisse l'adhésion en attente. Les URLs provisoires reçues sont
// conservées avec le commentaire de l'administrateur.
func (s *Store) Approve(ctx context.Context, req documents.ApprovalRequest) (string, error) {
	var numero string
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var adhesion models.Adhesion
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&adhesion, req.AdhesionID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrAdhesionIntrouvable
			}
			return err
		}
		if adhesion.Statut != models.StatutEnAttente {
			return fmt.Errorf("%w (statut %s)", ErrDejaTraitee, adhesion.Statut)
		}

		sequence, err := s.prochaineSequence(tx)
		if err != nil {
			return err
		}
		numero = fmt.Sprintf("%s-%d-%03d", s.prefix, s.now().Year(), sequence)

		return tx.Model(&adhesion).Updates(map[string]interface{}{
			"statut":            models.StatutApprouvee,
			"numero_adherent":   numero,
			"commentaire_admin": req.Commentaire,
		}).Error
	})
	if err != nil {
		return "", err
	}
	return numero, nil
}

// prochaineSequence incrémente le compteur de numérotation de l'année
// courante et renvoie la nouvelle valeur. La ligne de compteur est
// verrouillée FOR UPDATE : l'attribution est sérialisée, deux
// approbations concurrentes ne peuvent pas obtenir la même séquence, y
// compris sous postgres en READ COMMITTED où un simple comptage des
// adhésions approuvées verrait le même état dans les deux transactions.
func (s *Store) prochaineSequence(tx *gorm.DB) (int, error) {
	annee := s.now().Year()

	// crée la ligne de l'année si elle n'existe pas encore (no-op sinon,
	// l'unicité sur annee absorbe la course à la création)
	if err := tx.Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.CompteurAdhesion{Annee: annee}).Error; err != nil {
		return 0, err
	}

	var compteur models.CompteurAdhesion
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("annee = ?", annee).First(&compteur).Error; err != nil {
		return 0, err
	}

	// amorçage sur une base existante : les numéros déjà attribués avant
	// l'introduction du compteur restent comptés
	if compteur.Dernier == 0 {
		var deja int64
		if err := tx.Model(&models.Adhesion{}).
			Where("statut = ? AND numero_adherent LIKE ?", models.StatutApprouvee, fmt.Sprintf("%s-%d-%%", s.prefix, annee)).
			Count(&deja).Error; err != nil {
			return 0, err
		}
		compteur.Dernier = int(deja)
	}

	compteur.Dernier++
	if err := tx.Model(&compteur).Update("dernier", compteur.Dernier).Error; err != nil {
		return 0, err
	}
	return compteur.Dernier, nil
}

// Reject marque l'adhésion rejetée avec son motif.
func (s *Store) Reject(ctx context.Context, adhesionID uint, motif string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var adhesion models.Adhesion
		if err := tx.First(&adhesion, adhesionID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrAdhesionIntrouvable
			}
			return err
		}
		if adhesion.Statut != models.StatutEnAttente {
			return fmt.Errorf("%w (statut %s)", ErrDejaTraitee, adhesion.Statut)
		}
		return tx.Model(&adhesion).Updates(map[string]interface{}{
			"statut":      models.StatutRejetee,
			"motif_rejet": motif,
		}).Error
	})
}

// RecordArtifact consigne une publication : une ligne par couple
// (adhésion, type), mise à jour en place à chaque republication.
func (s *Store) RecordArtifact(ctx context.Context, adhesionID uint, kind models.TypeDocument, res cloudinary.PublishResult, rev models.RevisionDocument) error {
	artifact := models.Artifact{
		AdhesionID: adhesionID,
		Type:       kind,
		PublicID:   res.PublicID,
		SecureURL:  res.SecureURL,
		Revision:   rev,
	}
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "adhesion_id"}, {Name: "type"}},
			DoUpdates: clause.AssignmentColumns([]string{"public_id", "secure_url", "revision", "updated_at"}),
		}).
		Create(&artifact).Error
}

// Artifacts renvoie les documents publiés d'une adhésion.
func (s *Store) Artifacts(ctx context.Context, adhesionID uint) ([]models.Artifact, error) {
	var artifacts []models.Artifact
	err := s.db.WithContext(ctx).
		Where("adhesion_id = ?", adhesionID).
		Order("type").
		Find(&artifacts).Error
	return artifacts, err
}

// FormulaireURL renvoie l'URL du formulaire déjà publié, vide si aucun.
func (s *Store) FormulaireURL(ctx context.Context, adhesionID uint) (string, error) {
	var artifact models.Artifact
	err := s.db.WithContext(ctx).
		Where("adhesion_id = ? AND type = ?", adhesionID, models.DocumentFormulaire).
		First(&artifact).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return artifact.SecureURL, nil
}

// SignaturePresidentURL lit l'URL de la signature du contre-signataire.
func (s *Store) SignaturePresidentURL(ctx context.Context) (string, error) {
	return s.parametre(ctx, models.ParamSignaturePresident)
}

// LogoURL lit l'URL du logo de l'association. Optionnel : vide si absent.
func (s *Store) LogoURL(ctx context.Context) (string, error) {
	v, err := s.parametre(ctx, models.ParamLogoAssociation)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return "", err
	}
	return v, nil
}

func (s *Store) parametre(ctx context.Context, cle string) (string, error) {
	var param models.Parametre
	if err := s.db.WithContext(ctx).Where("cle = ?", cle).First(&param).Error; err != nil {
		return "", err
	}
	return param.Valeur, nil
}

// SetParametre crée ou remplace un réglage.
func (s *Store) SetParametre(ctx context.Context, cle, valeur string) error {
	param := models.Parametre{Cle: cle, Valeur: valeur}
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "cle"}},
			DoUpdates: clause.AssignmentColumns([]string{"valeur", "updated_at"}),
		}).
		Create(&param).Error
}
