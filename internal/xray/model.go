package xray

import (
	"fmt"
	"strings"
)

// Kind classifies an Xray violation.
type Kind string

const (
	KindSecurity        Kind = "security"
	KindLicense         Kind = "license"
	KindOperationalRisk Kind = "operational_risk"
)

// ParseKind parses a violation type case-insensitively. Xray sends both
// "Operational Risk" and "operational_risk" depending on the version.
func ParseKind(s string) (Kind, error) {
	switch strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), " ", "_") {
	case "security":
		return KindSecurity, nil
	case "license":
		return KindLicense, nil
	case "operational_risk":
		return KindOperationalRisk, nil
	default:
		return "", fmt.Errorf("invalid violation type: %q", s)
	}
}

func (k Kind) String() string {
	return string(k)
}

// Issue is a single violation with its watch/policy context stamped on,
// the unit of work carried on the queue. Immutable once received.
type Issue struct {
	WatchName         string     `json:"watch_name"`
	PolicyName        string     `json:"policy_name"`
	HostName          string     `json:"host_name,omitempty"`
	Created           string     `json:"created,omitempty"`
	Type              string     `json:"type"`
	Severity          string     `json:"severity"`
	Summary           string     `json:"summary"`
	Description       string     `json:"description"`
	CVE               string     `json:"cve,omitempty"`
	ImpactedArtifacts []Artifact `json:"impacted_artifacts"`
}

// Artifact is one impacted artifact inside an issue.
type Artifact struct {
	Name          string         `json:"name" validate:"required,max=255"`
	DisplayName   string         `json:"display_name" validate:"required,max=3000"`
	Path          string         `json:"path" validate:"required,max=4096"`
	PkgType       string         `json:"pkg_type" validate:"required,max=255"`
	SHA256        string         `json:"sha256,omitempty" validate:"omitempty,max=66"`
	InfectedFiles []InfectedFile `json:"infected_files" validate:"required,dive"`
}

// InfectedFile is a vulnerable file inside an artifact. Path may be empty
// for whole-artifact matches.
type InfectedFile struct {
	Name        string `json:"name,omitempty" validate:"omitempty,max=255"`
	Path        string `json:"path" validate:"max=4096"`
	SHA256      string `json:"sha256,omitempty" validate:"omitempty,max=66"`
	DisplayName string `json:"display_name,omitempty" validate:"omitempty,max=3000"`
	PkgType     string `json:"pkg_type,omitempty" validate:"omitempty,max=20"`
}
