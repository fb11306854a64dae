package models

// GenericClass is a Google Wallet generic pass class.
type GenericClass struct {
	ID                string             `json:"id"`
	EnableSmartTap    bool               `json:"enableSmartTap"`
	ClassTemplateInfo *ClassTemplateInfo `json:"classTemplateInfo,omitempty"`
	ImageModulesData  []ImageModuleData  `json:"imageModulesData,omitempty"`
	TextModulesData   []TextModuleData   `json:"textModulesData,omitempty"`
	LinksModuleData   *LinksModuleData   `json:"linksModuleData,omitempty"`
}

// ClassTemplateInfo overrides the card and details layout of a class.
type ClassTemplateInfo struct {
	CardTemplateOverride    *CardTemplateOverride    `json:"cardTemplateOverride,omitempty"`
	DetailsTemplateOverride *DetailsTemplateOverride `json:"detailsTemplateOverride,omitempty"`
}

type CardTemplateOverride struct {
	CardRowTemplateInfos []CardRowTemplateInfo `json:"cardRowTemplateInfos"`
}

type CardRowTemplateInfo struct {
	OneItem *CardRowOneItem `json:"oneItem,omitempty"`
}

type CardRowOneItem struct {
	Item TemplateItem `json:"item"`
}

type DetailsTemplateOverride struct {
	DetailsItemInfos []DetailsItemInfo `json:"detailsItemInfos"`
}

type DetailsItemInfo struct {
	Item TemplateItem `json:"item"`
}

type TemplateItem struct {
	FirstValue FieldSelector `json:"firstValue"`
}

type FieldSelector struct {
	Fields []FieldReference `json:"fields"`
}

// FieldReference points a template slot at a class or object field,
// e.g. "object.textModulesData['points']".
type FieldReference struct {
	FieldPath string `json:"fieldPath"`
}

type ImageModuleData struct {
	ID        string `json:"id"`
	MainImage Image  `json:"mainImage"`
}

type Image struct {
	SourceURI          ImageURI         `json:"sourceUri"`
	ContentDescription *LocalizedString `json:"contentDescription,omitempty"`
}

type ImageURI struct {
	URI string `json:"uri,omitempty"`
}

type TextModuleData struct {
	ID     string `json:"id"`
	Header string `json:"header"`
	Body   string `json:"body"`
}

type LinksModuleData struct {
	URIs []URI `json:"uris"`
}

type URI struct {
	ID          string `json:"id"`
	URI         string `json:"uri"`
	Description string `json:"description"`
}

type LocalizedString struct {
	DefaultValue TranslatedString `json:"defaultValue"`
}

type TranslatedString struct {
	Language string `json:"language"`
	Value    string `json:"value"`
}

// GenericObject is one user's Google Wallet generic pass.
type GenericObject struct {
	ID                 string           `json:"id"`
	ClassID            string           `json:"classId"`
	GenericType        string           `json:"genericType"`
	HexBackgroundColor string           `json:"hexBackgroundColor"`
	Logo               Image            `json:"logo"`
	CardTitle          LocalizedString  `json:"cardTitle"`
	Subheader          LocalizedString  `json:"subheader"`
	Header             LocalizedString  `json:"header"`
	Barcode            Barcode          `json:"barcode"`
	HeroImage          Image            `json:"heroImage"`
	TextModulesData    []TextModuleData `json:"textModulesData"`
}

type Barcode struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

// PointsPatch is the partial object update sent when a balance changes.
type PointsPatch struct {
	ID              string           `json:"id"`
	TextModulesData []TextModuleData `json:"textModulesData"`
}

// SavePayload is the payload section of a save-to-wallet token.
type SavePayload struct {
	GenericObjects []GenericObject `json:"genericObjects"`
}

// PassResult is returned once a pass has been provisioned and signed.
type PassResult struct {
	ObjectID string
	Token    string
	SaveURL  string
}
