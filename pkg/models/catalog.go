package models

// Category is the palette group a kind is listed under.
type Category string

const (
	CategoryConnectors   Category = "connectors"
	CategoryDocumentAI   Category = "document_ai"
	CategoryIntegrations Category = "integrations"
	CategoryReview       Category = "review"
)

// KindInfo is the static catalog entry for a node kind.
type KindInfo struct {
	Kind                     NodeKind `json:"kind"`
	Label                    string   `json:"label"`
	Category                 Category `json:"category"`
	RequiresCredentials      bool     `json:"requires_credentials"`
	RequiresExtractionConfig bool     `json:"requires_extraction_config"`
	AcceptsEndpoint          bool     `json:"accepts_endpoint"`
	HasComparisonView        bool     `json:"has_comparison_view"`
}

var kindInfos = map[NodeKind]KindInfo{
	KindGmail:           {Kind: KindGmail, Label: "Gmail", Category: CategoryConnectors, RequiresCredentials: true},
	KindOutlook:         {Kind: KindOutlook, Label: "Outlook", Category: CategoryConnectors, RequiresCredentials: true},
	KindInvoice:         {Kind: KindInvoice, Label: "Invoice Parser", Category: CategoryDocumentAI, RequiresExtractionConfig: true},
	KindContract:        {Kind: KindContract, Label: "Contract Analyzer", Category: CategoryDocumentAI, RequiresExtractionConfig: true},
	KindBankStatement:   {Kind: KindBankStatement, Label: "Bank Statement", Category: CategoryDocumentAI, RequiresExtractionConfig: true},
	KindSalesforce:      {Kind: KindSalesforce, Label: "Salesforce", Category: CategoryIntegrations},
	KindSAP:             {Kind: KindSAP, Label: "SAP S/4HANA", Category: CategoryIntegrations},
	KindSlack:           {Kind: KindSlack, Label: "Slack Notification", Category: CategoryIntegrations},
	KindHTTPSPost:       {Kind: KindHTTPSPost, Label: "HTTPS Post", Category: CategoryIntegrations, AcceptsEndpoint: true},
	KindDocumentCompare: {Kind: KindDocumentCompare, Label: "Document Compare", Category: CategoryReview, HasComparisonView: true},
}

// Info returns the catalog entry for the kind.
func (k NodeKind) Info() (KindInfo, bool) {
	info, ok := kindInfos[k]

	return info, ok
}

// Label returns the default display label of the kind.
func (k NodeKind) Label() string {
	return kindInfos[k].Label
}
