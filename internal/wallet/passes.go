package wallet

import (
	"strings"

	"loyalty-wallet-bridge/internal/config"
	"loyalty-wallet-bridge/internal/models"
)

// Template ids shared between the class definition and the objects that
// reference it.
const (
	PointsModuleID    = "points"
	PointsHeader      = "POINTS"
	bannerImageID     = "event_banner"
	overviewModuleID  = "game_overview"
	genericTypeUnset  = "GENERIC_TYPE_UNSPECIFIED"
	barcodeTypeQRCode = "QR_CODE"
)

// SanitizeIDComponent replaces every character outside [A-Za-z0-9_.-] with
// an underscore so the value can be embedded in a Wallet resource id.
func SanitizeIDComponent(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '_' || r == '.' || r == '-':
			return r
		}
		return '_'
	}, s)
}

// Passes builds class and object definitions from configuration.
type Passes struct {
	cfg config.WalletConfig
}

// NewPasses creates a pass builder.
func NewPasses(cfg config.WalletConfig) *Passes {
	return &Passes{cfg: cfg}
}

// ClassID is the issuer-scoped id of the loyalty class.
func (p *Passes) ClassID() string {
	return p.cfg.IssuerID + "." + p.cfg.ClassID
}

// ObjectID is the issuer-scoped id of the pass issued for email. The same
// email always maps to the same id.
func (p *Passes) ObjectID(email string) string {
	return p.cfg.IssuerID + "." + SanitizeIDComponent(email) + "." + p.cfg.ObjectPostfix
}

// BuildClass returns the loyalty class definition.
func (p *Passes) BuildClass() models.GenericClass {
	detail := func(path string) models.DetailsItemInfo {
		return models.DetailsItemInfo{Item: templateItem(path)}
	}

	return models.GenericClass{
		ID:             p.ClassID(),
		EnableSmartTap: p.cfg.EnableSmartTap,
		ClassTemplateInfo: &models.ClassTemplateInfo{
			CardTemplateOverride: &models.CardTemplateOverride{
				CardRowTemplateInfos: []models.CardRowTemplateInfo{
					{OneItem: &models.CardRowOneItem{Item: templateItem("object.textModulesData['" + PointsModuleID + "']")}},
				},
			},
			DetailsTemplateOverride: &models.DetailsTemplateOverride{
				DetailsItemInfos: []models.DetailsItemInfo{
					detail("class.imageModulesData['" + bannerImageID + "']"),
					detail("class.textModulesData['" + overviewModuleID + "']"),
					detail("class.linksModuleData.uris['official_site']"),
					detail("class.linksModuleData.uris['official_phone']"),
					detail("class.linksModuleData.uris['official_location']"),
					detail("class.linksModuleData.uris['official_email']"),
				},
			},
		},
		ImageModulesData: []models.ImageModuleData{
			{
				ID: bannerImageID,
				MainImage: models.Image{
					SourceURI:          models.ImageURI{URI: p.cfg.MainImageURI},
					ContentDescription: localized("en-US", "Loyalty Card Example"),
				},
			},
		},
		TextModulesData: []models.TextModuleData{
			{
				ID:     overviewModuleID,
				Header: "Gather points by making purchases at any of our channels.",
				Body:   "Join the program and accumulate points by making purchases. Redeem your points for exclusive rewards and offers in the app or website.",
			},
		},
		LinksModuleData: &models.LinksModuleData{
			URIs: []models.URI{
				{ID: "official_site", URI: orDefault(p.cfg.OfficialSite, config.DefaultOfficialSite), Description: "Official Site"},
				{ID: "official_phone", URI: orDefault(p.cfg.PhoneNumber, config.DefaultPhoneNumber), Description: "Contact Number"},
				{ID: "official_location", URI: orDefault(p.cfg.Location, config.DefaultLocation), Description: "Location"},
				{ID: "official_email", URI: orDefault(p.cfg.Email, config.DefaultEmail), Description: "Email"},
			},
		},
	}
}

// BuildObject returns the pass for email populated with loyalty data.
func (p *Passes) BuildObject(email string, data models.LoyaltyData) models.GenericObject {
	return models.GenericObject{
		ID:                 p.ObjectID(email),
		ClassID:            p.ClassID(),
		GenericType:        genericTypeUnset,
		HexBackgroundColor: orDefault(p.cfg.HexBackground, config.DefaultHexBackground),
		Logo:               models.Image{SourceURI: models.ImageURI{URI: p.cfg.LogoImageURI}},
		CardTitle:          *localized("en", orDefault(p.cfg.CardTitle, config.DefaultCardTitle)),
		Subheader:          *localized("en", orDefault(p.cfg.Subheader, config.DefaultSubheader)),
		Header:             *localized("en", data.Name),
		Barcode: models.Barcode{
			Type:  barcodeTypeQRCode,
			Value: data.LoyaltyCode,
		},
		HeroImage:       models.Image{SourceURI: models.ImageURI{URI: p.cfg.HeroImageURI}},
		TextModulesData: []models.TextModuleData{pointsModule(data.Points)},
	}
}

func pointsModule(points string) models.TextModuleData {
	return models.TextModuleData{ID: PointsModuleID, Header: PointsHeader, Body: points}
}

func templateItem(fieldPath string) models.TemplateItem {
	return models.TemplateItem{
		FirstValue: models.FieldSelector{
			Fields: []models.FieldReference{{FieldPath: fieldPath}},
		},
	}
}

func localized(language, value string) *models.LocalizedString {
	return &models.LocalizedString{
		DefaultValue: models.TranslatedString{Language: language, Value: value},
	}
}

func orDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
