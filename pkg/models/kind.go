// Package models defines the core document pipeline models.
package models

// NodeKind identifies what a node does. The set of kinds is closed.
type NodeKind string

const (
	KindGmail           NodeKind = "gmail"
	KindOutlook         NodeKind = "outlook"
	KindInvoice         NodeKind = "invoice"
	KindContract        NodeKind = "contract"
	KindBankStatement   NodeKind = "bank_statement"
	KindSalesforce      NodeKind = "salesforce"
	KindSAP             NodeKind = "sap"
	KindSlack           NodeKind = "slack"
	KindHTTPSPost       NodeKind = "https_post"
	KindDocumentCompare NodeKind = "document_compare"
)

// Family groups kinds sharing the same configuration variant.
type Family string

const (
	FamilyConnector   Family = "connector"
	FamilyDocumentAI  Family = "document_ai"
	FamilyIntegration Family = "integration"
	FamilyReview      Family = "review"
)

// AllKinds lists every node kind in catalog order.
func AllKinds() []NodeKind {
	return []NodeKind{
		KindGmail, KindOutlook,
		KindInvoice, KindContract, KindBankStatement,
		KindSalesforce, KindSAP, KindSlack, KindHTTPSPost,
		KindDocumentCompare,
	}
}

// Family returns the configuration family of the kind, or "" for unknown kinds.
func (k NodeKind) Family() Family {
	switch k {
	case KindGmail, KindOutlook:
		return FamilyConnector
	case KindInvoice, KindContract, KindBankStatement:
		return FamilyDocumentAI
	case KindSalesforce, KindSAP, KindSlack, KindHTTPSPost:
		return FamilyIntegration
	case KindDocumentCompare:
		return FamilyReview
	default:
		return ""
	}
}

func (k NodeKind) Valid() bool {
	return k.Family() != ""
}

func (k NodeKind) IsDocumentAI() bool {
	return k.Family() == FamilyDocumentAI
}

// NewSettings returns the empty settings variant for the kind.
func (k NodeKind) NewSettings() Settings {
	switch k.Family() {
	case FamilyConnector:
		return &ConnectorSettings{}
	case FamilyDocumentAI:
		return &DocumentAISettings{}
	case FamilyIntegration:
		return &IntegrationSettings{}
	case FamilyReview:
		return &ReviewSettings{}
	default:
		return nil
	}
}
