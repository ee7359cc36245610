package findings

// Finding is the canonical aggregator-facing record derived from one
// (issue, artifact) pair, shaped after the AWS Security Finding Format.
type Finding struct {
	ID                    string            `json:"Id"`
	AwsAccountID          string            `json:"AwsAccountId"`
	Region                string            `json:"Region"`
	CreatedAt             string            `json:"CreatedAt"`
	UpdatedAt             string            `json:"UpdatedAt"`
	Title                 string            `json:"Title"`
	Description           string            `json:"Description"`
	GeneratorID           string            `json:"GeneratorId"`
	ProductArn            string            `json:"ProductArn"`
	SchemaVersion         string            `json:"SchemaVersion"`
	SourceURL             string            `json:"SourceUrl"`
	CompanyName           string            `json:"CompanyName"`
	ProductName           string            `json:"ProductName"`
	ProductFields         map[string]string `json:"ProductFields"`
	Resources             []Resource        `json:"Resources"`
	FindingProviderFields ProviderFields    `json:"FindingProviderFields"`

	// Populated only for security violations; omitted entirely otherwise.
	Vulnerabilities []Vulnerability `json:"Vulnerabilities,omitempty"`
}

// Resource describes the impacted artifact's identity.
type Resource struct {
	Type    string          `json:"Type"`
	ID      string          `json:"Id"`
	Details ResourceDetails `json:"Details"`
}

type ResourceDetails struct {
	Other map[string]string `json:"Other"`
}

// ProviderFields carries the severity and type labels as reported by the
// finding provider.
type ProviderFields struct {
	Severity SeverityLabel `json:"Severity"`
	Types    []string      `json:"Types"`
}

type SeverityLabel struct {
	Label    string `json:"Label"`
	Original string `json:"Original"`
}

type Vulnerability struct {
	ID                 string              `json:"Id"`
	VulnerablePackages []VulnerablePackage `json:"VulnerablePackages"`
}

type VulnerablePackage struct {
	Name           string `json:"Name"`
	PackageManager string `json:"PackageManager"`
}

// SeverityUpdate is the narrow update contract for previously-imported
// findings: a severity-label refresh, not a re-import.
type SeverityUpdate struct {
	ID         string
	ProductArn string
	Label      string
}
