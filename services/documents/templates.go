package documents

import (
	"bytes"
	"fmt"
	"html/template"

	"github.com/agcoapp/agco-backend/models"
)

// Tailles fixes des canevas virtuels (pixels, ~96dpi).
const (
	FormulaireWidth  = 794 // A4 portrait
	FormulaireHeight = 1123
	CarteWidth       = 700
	CarteHeight      = 490
)

// Dimensions renvoie la taille du canevas pour un type de document.
func Dimensions(kind models.TypeDocument) (int, int) {
	if kind == models.DocumentFormulaire {
		return FormulaireWidth, FormulaireHeight
	}
	return CarteWidth, CarteHeight
}

// Images regroupe les visuels embarqués dans un document. Tout champ vide
// est rendu comme un bloc de substitution, jamais comme une erreur.
type Images struct {
	Logo            EmbeddableImage
	Photo           EmbeddableImage
	Signature       EmbeddableImage
	ContreSignature EmbeddableImage
	QRCode          EmbeddableImage
}

type renderData struct {
	champs map[string]string
	Images Images
}

// Champ résout un champ selon la précédence fixe : nom localisé d'abord,
// nom canonique ensuite, chaîne vide sinon. Un champ absent ne produit
// jamais le littéral "undefined" ou "null".
func (d renderData) Champ(names ...string) string {
	for _, n := range names {
		if v, ok := d.champs[n]; ok && v != "" && v != "undefined" && v != "null" {
			return v
		}
	}
	return ""
}

// Render produit le balisage HTML d'un document. Pur et déterministe :
// aucune E/S, deux appels identiques produisent le même balisage.
func Render(kind models.TypeDocument, champs map[string]string, images Images) (string, error) {
	tpl, ok := templates[kind]
	if !ok {
		return "", fmt.Errorf("type de document inconnu: %s", kind)
	}
	var buf bytes.Buffer
	if err := tpl.Execute(&buf, renderData{champs: champs, Images: images}); err != nil {
		return "", fmt.Errorf("rendu du document %s: %w", kind, err)
	}
	return buf.String(), nil
}

var templates = map[models.TypeDocument]*template.Template{
	models.DocumentFormulaire: template.Must(template.New("formulaire").Parse(formulaireTpl)),
	models.DocumentCarteRecto: template.Must(template.New("carte_recto").Parse(carteRectoTpl)),
	models.DocumentCarteVerso: template.Must(template.New("carte_verso").Parse(carteVersoTpl)),
}

const baseStyle = `
	body { margin: 0; font-family: Helvetica, Arial, sans-serif; color: #1a1a2e; }
	.placeholder { display: flex; align-items: center; justify-content: center;
		background: #e8e8e8; color: #888; font-size: 11px; border: 1px dashed #bbb; }
	.champ-libelle { font-size: 10px; text-transform: uppercase; color: #606070; }
	.champ-valeur { font-size: 13px; border-bottom: 1px solid #c0c0c8; min-height: 17px; }
`

const formulaireTpl = `<!DOCTYPE html>
<html><head><meta charset="utf-8"><style>` + baseStyle + `
	#document { width: 794px; height: 1123px; background: #ffffff; padding: 36px; box-sizing: border-box; }
	.entete { display: flex; justify-content: space-between; align-items: flex-start; }
	.entete img.logo { width: 90px; height: 90px; object-fit: contain; }
	.entete .photo, .entete .photo-placeholder { width: 120px; height: 150px; object-fit: cover; }
	h1 { text-align: center; font-size: 20px; letter-spacing: 2px; margin: 10px 0 4px; }
	.numero { text-align: center; font-size: 13px; color: #b03030; margin-bottom: 18px; }
	table.infos { width: 100%; border-collapse: collapse; }
	table.infos td { padding: 9px 10px; width: 50%; vertical-align: bottom; }
	.commentaire { margin-top: 16px; min-height: 60px; border: 1px solid #c0c0c8; padding: 8px; font-size: 12px; }
	.signatures { display: flex; justify-content: space-between; margin-top: 44px; }
	.signatures .bloc { text-align: center; width: 240px; }
	.signatures img { max-width: 220px; max-height: 90px; }
</style></head>
<body><div id="document">
	<div class="entete">
		{{if .Images.Logo.Vide}}<div class="placeholder" style="width:90px;height:90px;">Logo</div>{{else}}<img class="logo" src="{{.Images.Logo.URL}}">{{end}}
		<div>
			<h1>FICHE D&#39;ADH&Eacute;SION</h1>
			<div class="numero">N&deg; adh&eacute;rent :
				{{with .Champ "numero_adherent" "membership_number"}}{{.}}{{else}}en cours d&#39;attribution{{end}}</div>
		</div>
		{{if .Images.Photo.Vide}}<div class="placeholder photo-placeholder" style="width:120px;height:150px;">Photo</div>{{else}}<img class="photo" src="{{.Images.Photo.URL}}">{{end}}
	</div>
	<table class="infos">
		<tr>
			<td><div class="champ-libelle">Nom</div><div class="champ-valeur">{{.Champ "nom" "last_name"}}</div></td>
			<td><div class="champ-libelle">Pr&eacute;nom(s)</div><div class="champ-valeur">{{.Champ "prenom" "first_name"}}</div></td>
		</tr>
		<tr>
			<td><div class="champ-libelle">Date de naissance</div><div class="champ-valeur">{{.Champ "date_naissance" "birth_date"}}</div></td>
			<td><div class="champ-libelle">Lieu de naissance</div><div class="champ-valeur">{{.Champ "lieu_naissance" "birth_place"}}</div></td>
		</tr>
		<tr>
			<td colspan="2"><div class="champ-libelle">Adresse</div><div class="champ-valeur">{{.Champ "adresse" "address"}}</div></td>
		</tr>
		<tr>
			<td><div class="champ-libelle">Profession</div><div class="champ-valeur">{{.Champ "profession" "profession"}}</div></td>
			<td><div class="champ-libelle">Employeur</div><div class="champ-valeur">{{.Champ "employeur" "employer"}}</div></td>
		</tr>
		<tr>
			<td><div class="champ-libelle">Ville de r&eacute;sidence</div><div class="champ-valeur">{{.Champ "ville_residence" "residence_city"}}</div></td>
			<td><div class="champ-libelle">Date d&#39;entr&eacute;e</div><div class="champ-valeur">{{.Champ "date_entree" "entry_date"}}</div></td>
		</tr>
		<tr>
			<td><div class="champ-libelle">T&eacute;l&eacute;phone</div><div class="champ-valeur">{{.Champ "telephone" "phone"}}</div></td>
			<td><div class="champ-libelle">N&deg; carte consulaire</div><div class="champ-valeur">{{.Champ "numero_carte_consulaire" "consular_id"}}</div></td>
		</tr>
		<tr>
			<td><div class="champ-libelle">Conjoint(e)</div><div class="champ-valeur">{{.Champ "conjoint" "spouse"}}</div></td>
			<td><div class="champ-libelle">Nombre d&#39;enfants</div><div class="champ-valeur">{{.Champ "nombre_enfants" "children_count"}}</div></td>
		</tr>
	</table>
	<div class="champ-libelle" style="margin-top:14px;">Commentaire</div>
	<div class="commentaire">{{.Champ "commentaire" "comment"}}</div>
	<div class="signatures">
		<div class="bloc">
			{{if .Images.Signature.Vide}}<div class="placeholder" style="width:220px;height:90px;margin:0 auto;">Signature</div>{{else}}<img src="{{.Images.Signature.URL}}">{{end}}
			<div class="champ-libelle">Signature de l&#39;adh&eacute;rent</div>
		</div>
		<div class="bloc">
			{{if .Images.ContreSignature.Vide}}<div class="placeholder" style="width:220px;height:90px;margin:0 auto;">Signature</div>{{else}}<img src="{{.Images.ContreSignature.URL}}">{{end}}
			<div class="champ-libelle">Le Pr&eacute;sident</div>
		</div>
	</div>
</div></body></html>`

const carteRectoTpl = `<!DOCTYPE html>
<html><head><meta charset="utf-8"><style>` + baseStyle + `
	#document { width: 700px; height: 490px; box-sizing: border-box; padding: 24px;
		background: linear-gradient(135deg, #16324f 0%, #2a5a8c 100%); color: #ffffff; }
	.entete { display: flex; align-items: center; gap: 16px; }
	.entete img.logo { width: 64px; height: 64px; object-fit: contain; }
	.entete h1 { font-size: 18px; margin: 0; letter-spacing: 1px; }
	.corps { display: flex; margin-top: 26px; gap: 24px; }
	.corps .photo, .corps .photo-placeholder { width: 150px; height: 190px; object-fit: cover; border-radius: 6px; }
	.identite .champ-libelle { color: #a9c3dd; }
	.identite .champ-valeur { border-bottom: none; font-size: 17px; margin-bottom: 10px; }
	.numero { margin-top: 10px; font-size: 20px; font-weight: bold; letter-spacing: 2px; color: #ffd166; }
	.pied { display: flex; justify-content: flex-end; margin-top: 14px; }
	.pied img { max-width: 160px; max-height: 60px; background: #ffffff; padding: 2px 8px; border-radius: 4px; }
</style></head>
<body><div id="document">
	<div class="entete">
		{{if .Images.Logo.Vide}}<div class="placeholder" style="width:64px;height:64px;">Logo</div>{{else}}<img class="logo" src="{{.Images.Logo.URL}}">{{end}}
		<h1>AGCO &mdash; CARTE DE MEMBRE</h1>
	</div>
	<div class="corps">
		{{if .Images.Photo.Vide}}<div class="placeholder photo-placeholder" style="width:150px;height:190px;">Photo</div>{{else}}<img class="photo" src="{{.Images.Photo.URL}}">{{end}}
		<div class="identite">
			<div class="champ-libelle">Nom</div>
			<div class="champ-valeur">{{.Champ "nom" "last_name"}}</div>
			<div class="champ-libelle">Pr&eacute;nom(s)</div>
			<div class="champ-valeur">{{.Champ "prenom" "first_name"}}</div>
			<div class="champ-libelle">Ville de r&eacute;sidence</div>
			<div class="champ-valeur">{{.Champ "ville_residence" "residence_city"}}</div>
			<div class="numero">
				{{with .Champ "numero_adherent" "membership_number"}}{{.}}{{else}}EN COURS D&#39;ATTRIBUTION{{end}}</div>
		</div>
	</div>
	<div class="pied">
		{{if not .Images.ContreSignature.Vide}}<img src="{{.Images.ContreSignature.URL}}">{{end}}
	</div>
</div></body></html>`

const carteVersoTpl = `<!DOCTYPE html>
<html><head><meta charset="utf-8"><style>` + baseStyle + `
	#document { width: 700px; height: 490px; box-sizing: border-box; padding: 28px;
		background: #f4f6f9; display: flex; flex-direction: column; }
	.corps { display: flex; gap: 28px; align-items: flex-start; }
	.qr, .qr-placeholder { width: 140px; height: 140px; background: #ffffff; padding: 6px; border: 1px solid #c0c0c8; }
	.mentions { font-size: 12px; line-height: 1.6; }
	.mentions h2 { font-size: 14px; margin: 0 0 8px; color: #16324f; }
	.pied { margin-top: auto; font-size: 11px; color: #606070; text-align: center; }
</style></head>
<body><div id="document">
	<div class="corps">
		{{if .Images.QRCode.Vide}}<div class="placeholder qr-placeholder" style="width:140px;height:140px;">QR</div>{{else}}<img class="qr" src="{{.Images.QRCode.URL}}">{{end}}
		<div class="mentions">
			<h2>V&eacute;rification</h2>
			<p>Scannez ce code pour consulter la fiche d&#39;adh&eacute;sion de
			{{.Champ "prenom" "first_name"}} {{.Champ "nom" "last_name"}}
			aupr&egrave;s de l&#39;association.</p>
			<p>N&deg; adh&eacute;rent :
				{{with .Champ "numero_adherent" "membership_number"}}{{.}}{{else}}en cours d&#39;attribution{{end}}<br>
			N&deg; carte consulaire : {{.Champ "numero_carte_consulaire" "consular_id"}}</p>
		</div>
	</div>
	<div class="pied">Cette carte est strictement personnelle. En cas de perte, merci de la signaler au bureau de l&#39;association.</div>
</div></body></html>`
