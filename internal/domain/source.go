package domain

// SourceKind identifies the domain of the record that caused an action
type SourceKind string

const (
	SourceDocument          SourceKind = "DOCUMENT"
	SourceIncidentReport    SourceKind = "FNE"
	SourceSafetyStudy       SourceKind = "ES"
	SourceMaintenanceNotice SourceKind = "MISO"
	SourceCyberRisk         SourceKind = "CYBER_RISK"
	SourceManual            SourceKind = "MANUAL"
)

// SourceRef points at the record an action follows up on
type SourceRef struct {
	Kind  SourceKind `json:"kind"`
	ID    string     `json:"id"`
	Label string     `json:"label,omitempty"`
}

// FollowUpSource is implemented by every entity that can raise actions
type FollowUpSource interface {
	FollowUpRef() SourceRef
}

// FollowUpRef lets a bare SourceRef be used as a source
func (r SourceRef) FollowUpRef() SourceRef { return r }

// Document is a managed document (procedure, instruction, memo)
type Document struct {
	ID        string
	Reference string
	Title     string
	Version   string
}

func (d Document) FollowUpRef() SourceRef {
	label := d.Reference
	if d.Version != "" {
		label += " v" + d.Version
	}
	return SourceRef{Kind: SourceDocument, ID: d.ID, Label: label}
}

// IncidentReport is an FNE safety event notification
type IncidentReport struct {
	ID     string
	Number string
	Title  string
}

func (r IncidentReport) FollowUpRef() SourceRef {
	return SourceRef{Kind: SourceIncidentReport, ID: r.ID, Label: r.Number}
}

// SafetyStudy is an ES change-management safety study
type SafetyStudy struct {
	ID        string
	Reference string
	Subject   string
}

func (s SafetyStudy) FollowUpRef() SourceRef {
	return SourceRef{Kind: SourceSafetyStudy, ID: s.ID, Label: s.Reference}
}

// MaintenanceNotice is a MISO maintenance notice
type MaintenanceNotice struct {
	ID     string
	Number string
	System string
}

func (m MaintenanceNotice) FollowUpRef() SourceRef {
	return SourceRef{Kind: SourceMaintenanceNotice, ID: m.ID, Label: m.Number}
}

// CyberRisk is an entry of the cyber-risk register
type CyberRisk struct {
	ID    string
	Code  string
	Asset string
}

func (c CyberRisk) FollowUpRef() SourceRef {
	return SourceRef{Kind: SourceCyberRisk, ID: c.ID, Label: c.Code}
}
