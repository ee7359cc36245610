package findings

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xray-integrations/securityhub-sync/internal/xray"
)

func testContext() Context {
	return NewContext("123456789012", "us-west-1", "")
}

func securityIssue() xray.Issue {
	return xray.Issue{
		WatchName:   "prod-watch",
		PolicyName:  "sec-policy",
		HostName:    "xray.example.com",
		Created:     "2024-01-15T10:00:00Z",
		Type:        "security",
		Severity:    "High",
		Summary:     "CVE in openssl",
		Description: "heap overflow",
		CVE:         "CVE-2024-0001",
		ImpactedArtifacts: []xray.Artifact{{
			Name:        "libssl.so",
			DisplayName: "openssl:1.1.1",
			Path:        "default/repo/libssl.so",
			PkgType:     "Generic",
			SHA256:      "abc",
			InfectedFiles: []xray.InfectedFile{{
				Path:        "lib/libssl.so",
				DisplayName: "openssl:1.1.1",
				PkgType:     "Generic",
			}},
		}},
	}
}

func TestTransform_IdempotentID(t *testing.T) {
	fs, err := Transform(securityIssue(), testContext())
	require.NoError(t, err)
	require.Len(t, fs, 1)

	// Content-derived: CVE + artifact sha256, space separated.
	assert.Equal(t, "CVE-2024-0001 abc", fs[0].ID)
}

func TestTransform_Deterministic(t *testing.T) {
	first, err := Transform(securityIssue(), testContext())
	require.NoError(t, err)
	second, err := Transform(securityIssue(), testContext())
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestTransform_SummaryPrefixWithoutCVE(t *testing.T) {
	issue := securityIssue()
	issue.CVE = ""

	fs, err := Transform(issue, testContext())
	require.NoError(t, err)
	assert.Equal(t, "CVE in openssl abc", fs[0].ID)
}

func TestTransform_LicensePrefixIgnoresCVE(t *testing.T) {
	issue := securityIssue()
	issue.Type = "License"
	issue.Summary = "GPL-3.0 violation"

	fs, err := Transform(issue, testContext())
	require.NoError(t, err)
	assert.Equal(t, "GPL-3.0 violation abc", fs[0].ID)
}

func TestTransform_OneFindingPerArtifact(t *testing.T) {
	issue := securityIssue()
	second := issue.ImpactedArtifacts[0]
	second.SHA256 = "def"
	issue.ImpactedArtifacts = append(issue.ImpactedArtifacts, second)

	fs, err := Transform(issue, testContext())
	require.NoError(t, err)
	require.Len(t, fs, 2)
	assert.Equal(t, "CVE-2024-0001 abc", fs[0].ID)
	assert.Equal(t, "CVE-2024-0001 def", fs[1].ID)
}

func TestTransform_SecurityIncludesVulnerabilities(t *testing.T) {
	fs, err := Transform(securityIssue(), testContext())
	require.NoError(t, err)

	require.Len(t, fs[0].Vulnerabilities, 1)
	assert.Equal(t, "CVE-2024-0001", fs[0].Vulnerabilities[0].ID)
	require.Len(t, fs[0].Vulnerabilities[0].VulnerablePackages, 1)
	assert.Equal(t, "openssl:1.1.1", fs[0].Vulnerabilities[0].VulnerablePackages[0].Name)
	assert.Equal(t, "Generic", fs[0].Vulnerabilities[0].VulnerablePackages[0].PackageManager)
}

func TestTransform_NonSecurityOmitsVulnerabilities(t *testing.T) {
	issue := securityIssue()
	issue.Type = "Operational Risk"

	fs, err := Transform(issue, testContext())
	require.NoError(t, err)

	// Structural variant: the slice is absent, not empty.
	assert.Nil(t, fs[0].Vulnerabilities)
	assert.Equal(t,
		[]string{"Software and Configuration Checks/Operational Risk"},
		fs[0].FindingProviderFields.Types)
}

func TestTransform_SeverityMapping(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Critical", "CRITICAL"},
		{"HIGH", "HIGH"},
		{"medium", "MEDIUM"},
		{"Low", "LOW"},
		{"Information", "INFORMATIONAL"},
		{"Unknown", "INFORMATIONAL"},
		{"whatever", "INFORMATIONAL"},
	}
	for _, tc := range cases {
		issue := securityIssue()
		issue.Severity = tc.in

		fs, err := Transform(issue, testContext())
		require.NoError(t, err, tc.in)
		assert.Equal(t, tc.want, fs[0].FindingProviderFields.Severity.Label, tc.in)
		assert.Equal(t, tc.in, fs[0].FindingProviderFields.Severity.Original, tc.in)
	}
}

func TestTransform_TitleTruncation(t *testing.T) {
	issue := securityIssue()
	issue.Summary = strings.Repeat("x", 300)

	fs, err := Transform(issue, testContext())
	require.NoError(t, err)

	// 251 chars + "..."
	assert.Len(t, fs[0].Title, 254)
	assert.True(t, strings.HasSuffix(fs[0].Title, "..."))

	issue.Summary = strings.Repeat("y", 200)
	fs, err = Transform(issue, testContext())
	require.NoError(t, err)
	assert.Equal(t, issue.Summary, fs[0].Title)
}

func TestTransform_TitleTruncationCountsRunes(t *testing.T) {
	// 200 characters but 400 bytes: under the limit, passes unmodified.
	issue := securityIssue()
	issue.Summary = strings.Repeat("é", 200)

	fs, err := Transform(issue, testContext())
	require.NoError(t, err)
	assert.Equal(t, issue.Summary, fs[0].Title)

	// Over the limit: 251 runes + "...", never a split rune.
	issue.Summary = strings.Repeat("é", 300)
	fs, err = Transform(issue, testContext())
	require.NoError(t, err)
	assert.Equal(t, 254, utf8.RuneCountInString(fs[0].Title))
	assert.True(t, utf8.ValidString(fs[0].Title))
	assert.True(t, strings.HasSuffix(fs[0].Title, "..."))
}

func TestTransform_CommonFields(t *testing.T) {
	fs, err := Transform(securityIssue(), testContext())
	require.NoError(t, err)
	f := fs[0]

	assert.Equal(t, "123456789012", f.AwsAccountID)
	assert.Equal(t, "us-west-1", f.Region)
	assert.Equal(t, "arn:aws:securityhub:us-west-1:123456789012:product/123456789012/default", f.ProductArn)
	assert.Equal(t, "JFrog - Xray Policy sec-policy", f.GeneratorID)
	assert.Equal(t, "https://xray.example.com/ui/watchesNew/edit/prod-watch?activeTab=violations", f.SourceURL)
	assert.Equal(t, "2018-10-08", f.SchemaVersion)
	assert.Equal(t, "jfrog", f.CompanyName)
	assert.Equal(t, "xray", f.ProductName)
	assert.Equal(t, "security", f.ProductFields["jfrog/xray/ViolationType"])
	assert.Equal(t, "prod-watch", f.ProductFields["jfrog/xray/Watch"])

	require.Len(t, f.Resources, 1)
	assert.Equal(t, "Other", f.Resources[0].Type)
	assert.Equal(t, "abc", f.Resources[0].ID)
	assert.Equal(t, "libssl.so", f.Resources[0].Details.Other["Name"])
}

func TestTransform_MalformedIssue(t *testing.T) {
	issue := securityIssue()
	issue.WatchName = ""

	_, err := Transform(issue, testContext())
	assert.ErrorIs(t, err, ErrMalformedIssue)
}

func TestTransformAll_IsolatesFailures(t *testing.T) {
	bad := securityIssue()
	bad.PolicyName = ""
	good := securityIssue()

	fs, errs := TransformAll([]xray.Issue{bad, good}, testContext())

	// The malformed issue is reported without aborting its sibling.
	require.Len(t, errs, 1)
	assert.ErrorIs(t, errs[0], ErrMalformedIssue)
	require.Len(t, fs, 1)
	assert.Equal(t, "CVE-2024-0001 abc", fs[0].ID)
}
