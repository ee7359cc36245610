package xray

// WebhookEvent is the raw payload Xray posts to the webhook endpoint.
// Watch and policy names live at the top level and apply to every issue.
type WebhookEvent struct {
	WatchName  string         `json:"watch_name" validate:"required,max=255"`
	PolicyName string         `json:"policy_name" validate:"required,max=255"`
	HostName   string         `json:"host_name" validate:"omitempty,max=255"`
	Created    string         `json:"created" validate:"omitempty"`
	Issues     []WebhookIssue `json:"issues" validate:"dive"`
}

// WebhookIssue is one violation as it appears inside the webhook payload,
// before watch/policy context is stamped on.
type WebhookIssue struct {
	Severity          string     `json:"severity" validate:"required,xray_severity"`
	Type              string     `json:"type" validate:"required,xray_type"`
	Summary           string     `json:"summary" validate:"required,max=3000"`
	Description       string     `json:"description" validate:"required,max=3000"`
	CVE               string     `json:"cve" validate:"omitempty,cve_id"`
	Created           string     `json:"created" validate:"omitempty"`
	ImpactedArtifacts []Artifact `json:"impacted_artifacts" validate:"dive"`
}

// Flatten stamps the event-level context onto each issue, producing the
// ordered issue batch the rest of the pipeline works on.
func (e *WebhookEvent) Flatten() []Issue {
	issues := make([]Issue, 0, len(e.Issues))
	for _, wi := range e.Issues {
		created := wi.Created
		if created == "" {
			created = e.Created
		}
		issues = append(issues, Issue{
			WatchName:         e.WatchName,
			PolicyName:        e.PolicyName,
			HostName:          e.HostName,
			Created:           created,
			Type:              wi.Type,
			Severity:          wi.Severity,
			Summary:           wi.Summary,
			Description:       wi.Description,
			CVE:               wi.CVE,
			ImpactedArtifacts: wi.ImpactedArtifacts,
		})
	}
	return issues
}
