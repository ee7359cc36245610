package findings

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"unicode/utf8"

	"github.com/xray-integrations/securityhub-sync/internal/xray"
)

// ErrMalformedIssue marks an issue that slipped past schema validation with
// a required field missing. One malformed issue never aborts its siblings.
var ErrMalformedIssue = errors.New("malformed issue")

const (
	schemaVersion = "2018-10-08"
	maxTitleChars = 256
	titleKeep     = 251
)

var severityLabels = map[string]string{
	"low":      "LOW",
	"medium":   "MEDIUM",
	"high":     "HIGH",
	"critical": "CRITICAL",
}

// capability drives the single transform path for every violation kind.
type capability struct {
	includeVulnerabilities bool
	typeLabel              string
}

var capabilities = map[xray.Kind]capability{
	xray.KindSecurity: {
		includeVulnerabilities: true,
		typeLabel:              "Software and Configuration Checks/Vulnerabilities/CVE",
	},
	xray.KindLicense: {
		includeVulnerabilities: false,
		typeLabel:              "Software and Configuration Checks/Licenses/Compliance",
	},
	xray.KindOperationalRisk: {
		includeVulnerabilities: false,
		typeLabel:              "Software and Configuration Checks/Operational Risk",
	},
}

// Context is the per-run environment the transformer needs: the account the
// findings belong to, the region they are reported in, and the product ARN
// they are filed under.
type Context struct {
	AccountID  string
	Region     string
	ProductArn string
}

// NewContext fills in the default Security Hub product ARN when none is
// configured.
func NewContext(accountID, region, productArn string) Context {
	if productArn == "" {
		productArn = fmt.Sprintf("arn:aws:securityhub:%s:%s:product/%s/default", region, accountID, accountID)
	}
	return Context{AccountID: accountID, Region: region, ProductArn: productArn}
}

// Transform maps one validated issue to one finding per impacted artifact.
// Pure and deterministic: the same issue always yields the same finding IDs.
func Transform(issue xray.Issue, tc Context) ([]Finding, error) {
	if err := checkRequired(issue); err != nil {
		return nil, err
	}

	kind, err := xray.ParseKind(issue.Type)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedIssue, err)
	}
	caps := capabilities[kind]

	prefix := idPrefix(issue, kind)

	out := make([]Finding, 0, len(issue.ImpactedArtifacts))
	for _, artifact := range issue.ImpactedArtifacts {
		f := Finding{
			ID:            fmt.Sprintf("%s %s", prefix, artifact.SHA256),
			AwsAccountID:  tc.AccountID,
			Region:        tc.Region,
			CreatedAt:     issue.Created,
			UpdatedAt:     issue.Created,
			Title:         truncateTitle(issue.Summary),
			Description:   issue.Description,
			GeneratorID:   fmt.Sprintf("JFrog - Xray Policy %s", issue.PolicyName),
			ProductArn:    tc.ProductArn,
			SchemaVersion: schemaVersion,
			SourceURL:     fmt.Sprintf("https://%s/ui/watchesNew/edit/%s?activeTab=violations", issue.HostName, issue.WatchName),
			CompanyName:   "jfrog",
			ProductName:   "xray",
			ProductFields: map[string]string{
				"jfrog/xray/ViolationType": kind.String(),
				"jfrog/xray/Watch":         issue.WatchName,
				"jfrog/xray/Policy":        issue.PolicyName,
			},
			Resources: []Resource{{
				Type: "Other",
				ID:   artifact.SHA256,
				Details: ResourceDetails{Other: map[string]string{
					"Name":        artifact.Name,
					"DisplayName": artifact.DisplayName,
					"Path":        artifact.Path,
					"PackageType": artifact.PkgType,
				}},
			}},
			FindingProviderFields: ProviderFields{
				Severity: severityLabel(issue.Severity),
				Types:    []string{caps.typeLabel},
			},
		}

		if caps.includeVulnerabilities {
			f.Vulnerabilities = []Vulnerability{{
				ID:                 prefix,
				VulnerablePackages: vulnerablePackages(artifact.InfectedFiles),
			}}
		}

		out = append(out, f)
	}

	return out, nil
}

// TransformAll transforms a batch, isolating per-issue failures: a malformed
// issue is reported in the error slice and the rest of the batch proceeds.
func TransformAll(issues []xray.Issue, tc Context) ([]Finding, []error) {
	var all []Finding
	var errs []error
	for i, issue := range issues {
		fs, err := Transform(issue, tc)
		if err != nil {
			log.Printf("[warn] operation=transform issue=%d watch=%s error=%v", i, issue.WatchName, err)
			errs = append(errs, fmt.Errorf("issue %d: %w", i, err))
			continue
		}
		all = append(all, fs...)
	}
	return all, errs
}

func checkRequired(issue xray.Issue) error {
	switch {
	case issue.WatchName == "":
		return fmt.Errorf("%w: missing watch_name", ErrMalformedIssue)
	case issue.PolicyName == "":
		return fmt.Errorf("%w: missing policy_name", ErrMalformedIssue)
	case issue.Type == "":
		return fmt.Errorf("%w: missing type", ErrMalformedIssue)
	case issue.ImpactedArtifacts == nil:
		return fmt.Errorf("%w: missing impacted_artifacts", ErrMalformedIssue)
	}
	return nil
}

// idPrefix picks the stable, content-derived half of the finding ID: the CVE
// for security violations that carry one, the summary otherwise.
func idPrefix(issue xray.Issue, kind xray.Kind) string {
	if kind == xray.KindSecurity && issue.CVE != "" {
		return issue.CVE
	}
	return issue.Summary
}

func severityLabel(severity string) SeverityLabel {
	label, ok := severityLabels[strings.ToLower(severity)]
	if !ok {
		label = "INFORMATIONAL"
	}
	return SeverityLabel{Label: label, Original: severity}
}

// truncateTitle counts characters, not bytes: a multibyte summary under the
// limit passes through unmodified, and a truncated one never splits a rune.
func truncateTitle(summary string) string {
	if utf8.RuneCountInString(summary) > maxTitleChars {
		return string([]rune(summary)[:titleKeep]) + "..."
	}
	return summary
}

func vulnerablePackages(files []xray.InfectedFile) []VulnerablePackage {
	pkgs := make([]VulnerablePackage, 0, len(files))
	for _, f := range files {
		pkgs = append(pkgs, VulnerablePackage{
			Name:           f.DisplayName,
			PackageManager: f.PkgType,
		})
	}
	return pkgs
}
