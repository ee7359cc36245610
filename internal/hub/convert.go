package hub

import (
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/securityhub"
	"github.com/aws/aws-sdk-go-v2/service/securityhub/types"

	"github.com/xray-integrations/securityhub-sync/internal/findings"
)

func toAwsFindings(fs []findings.Finding) []types.AwsSecurityFinding {
	out := make([]types.AwsSecurityFinding, 0, len(fs))
	for _, f := range fs {
		out = append(out, toAwsFinding(f))
	}
	return out
}

func toAwsFinding(f findings.Finding) types.AwsSecurityFinding {
	asf := types.AwsSecurityFinding{
		Id:            aws.String(f.ID),
		AwsAccountId:  aws.String(f.AwsAccountID),
		Region:        aws.String(f.Region),
		CreatedAt:     aws.String(f.CreatedAt),
		UpdatedAt:     aws.String(f.UpdatedAt),
		Title:         aws.String(f.Title),
		Description:   aws.String(f.Description),
		GeneratorId:   aws.String(f.GeneratorID),
		ProductArn:    aws.String(f.ProductArn),
		SchemaVersion: aws.String(f.SchemaVersion),
		SourceUrl:     aws.String(f.SourceURL),
		CompanyName:   aws.String(f.CompanyName),
		ProductName:   aws.String(f.ProductName),
		ProductFields: f.ProductFields,
		FindingProviderFields: &types.FindingProviderFields{
			Severity: &types.FindingProviderSeverity{
				Label:    types.SeverityLabel(f.FindingProviderFields.Severity.Label),
				Original: aws.String(f.FindingProviderFields.Severity.Original),
			},
			Types: f.FindingProviderFields.Types,
		},
	}

	for _, r := range f.Resources {
		asf.Resources = append(asf.Resources, types.Resource{
			Type: aws.String(r.Type),
			Id:   aws.String(r.ID),
			Details: &types.ResourceDetails{
				Other: r.Details.Other,
			},
		})
	}

	for _, v := range f.Vulnerabilities {
		vuln := types.Vulnerability{Id: aws.String(v.ID)}
		for _, p := range v.VulnerablePackages {
			vuln.VulnerablePackages = append(vuln.VulnerablePackages, types.SoftwarePackage{
				Name:           aws.String(p.Name),
				PackageManager: aws.String(p.PackageManager),
			})
		}
		asf.Vulnerabilities = append(asf.Vulnerabilities, vuln)
	}

	return asf
}

// correlateImport derives per-finding outcomes from an import response. The
// response names failures by ID; everything submitted and not named failed
// was accepted. Correlation is always by ID, never by position.
func correlateImport(submitted []findings.Finding, out *securityhub.BatchImportFindingsOutput) BatchResult {
	failed := make(map[string]string, len(out.FailedFindings))
	for _, ff := range out.FailedFindings {
		failed[aws.ToString(ff.Id)] = aws.ToString(ff.ErrorMessage)
	}

	var result BatchResult
	for _, f := range submitted {
		if reason, ok := failed[f.ID]; ok {
			result.Rejected = append(result.Rejected, Rejection{ID: f.ID, Reason: reason})
			continue
		}
		result.Accepted = append(result.Accepted, f.ID)
	}
	return result
}

func correlateUpdate(out *securityhub.BatchUpdateFindingsOutput) BatchResult {
	var result BatchResult
	for _, p := range out.ProcessedFindings {
		result.Accepted = append(result.Accepted, aws.ToString(p.Id))
	}
	for _, u := range out.UnprocessedFindings {
		r := Rejection{Reason: aws.ToString(u.ErrorMessage)}
		if u.FindingIdentifier != nil {
			r.ID = aws.ToString(u.FindingIdentifier.Id)
		}
		result.Rejected = append(result.Rejected, r)
	}
	return result
}

// groupByLabel buckets severity updates so each Security Hub call carries
// one label. Insertion order keeps the output deterministic.
func groupByLabel(ups []findings.SeverityUpdate) [][]findings.SeverityUpdate {
	byLabel := make(map[string][]findings.SeverityUpdate)
	var order []string
	for _, u := range ups {
		if _, ok := byLabel[u.Label]; !ok {
			order = append(order, u.Label)
		}
		byLabel[u.Label] = append(byLabel[u.Label], u)
	}

	groups := make([][]findings.SeverityUpdate, 0, len(order))
	for _, label := range order {
		groups = append(groups, byLabel[label])
	}
	return groups
}

func updateInput(chunk []findings.SeverityUpdate) *securityhub.BatchUpdateFindingsInput {
	ids := make([]types.AwsSecurityFindingIdentifier, 0, len(chunk))
	for _, u := range chunk {
		ids = append(ids, types.AwsSecurityFindingIdentifier{
			Id:         aws.String(u.ID),
			ProductArn: aws.String(u.ProductArn),
		})
	}
	return &securityhub.BatchUpdateFindingsInput{
		FindingIdentifiers: ids,
		Severity: &types.SeverityUpdate{
			Label: types.SeverityLabel(chunk[0].Label),
		},
	}
}
