// Package pipeline orchestrates one synchronization run: transform the
// issue batch into findings, resolve which are already known, route them to
// the import or update path, and reconcile the outcomes.
package pipeline

import (
	"context"
	"fmt"
	"log"

	"github.com/xray-integrations/securityhub-sync/internal/findings"
	"github.com/xray-integrations/securityhub-sync/internal/hub"
	"github.com/xray-integrations/securityhub-sync/internal/xray"
)

// State names a phase of a synchronization run.
type State string

const (
	StateCollecting  State = "collecting"
	StateResolving   State = "resolving"
	StateRouting     State = "routing"
	StateUpdating    State = "updating"
	StateImporting   State = "importing"
	StateReconciling State = "reconciling"
	StateDone        State = "done"
)

// Ledger-write scope: write entries for accepted imports only, or for every
// attempted import.
const (
	ScopeAccepted = "accepted"
	ScopeAll      = "all"
)

// Resolver classifies candidate finding IDs as already known.
type Resolver interface {
	Resolve(ctx context.Context, ids []string) map[string]struct{}
}

// Aggregator is the external security-findings service.
type Aggregator interface {
	BatchImport(ctx context.Context, fs []findings.Finding) (hub.BatchResult, error)
	BatchUpdate(ctx context.Context, ups []findings.SeverityUpdate) (hub.BatchResult, error)
}

// Ledger records imported finding IDs.
type Ledger interface {
	Put(ctx context.Context, id string) error
}

// Spillover persists findings that failed import.
type Spillover interface {
	Put(ctx context.Context, fs []findings.Finding) error
}

// Report is the terminal outcome of a run.
type Report struct {
	Imported     int              `json:"imported"`
	Updated      int              `json:"updated"`
	ImportFailed int              `json:"import_failed"`
	ImportStatus *hub.BatchResult `json:"importStatus,omitempty"`
	UpdateStatus *hub.BatchResult `json:"updateStatus,omitempty"`
}

// Engine runs the finding synchronization state machine over injected
// collaborators.
type Engine struct {
	resolver    Resolver
	aggregator  Aggregator
	ledger      Ledger
	spillover   Spillover
	ledgerScope string
	tc          findings.Context
}

func New(resolver Resolver, aggregator Aggregator, ledger Ledger, spill Spillover, ledgerScope string, tc findings.Context) *Engine {
	if ledgerScope == "" {
		ledgerScope = ScopeAccepted
	}
	return &Engine{
		resolver:    resolver,
		aggregator:  aggregator,
		ledger:      ledger,
		spillover:   spill,
		ledgerScope: ledgerScope,
		tc:          tc,
	}
}

// Run executes one synchronization run over an issue batch. Per-finding
// rejections are first-class outcomes collected in the report; only a
// transport-level import/update failure is returned as an error. A path that
// completed before such a failure is not rolled back.
func (e *Engine) Run(ctx context.Context, issues []xray.Issue) (*Report, error) {
	state := StateCollecting
	log.Printf("[info] operation=sync state=%s issues=%d", state, len(issues))

	fs, errs := findings.TransformAll(issues, e.tc)
	for _, err := range errs {
		log.Printf("[warn] operation=sync state=%s transform error=%v", state, err)
	}
	if len(fs) == 0 {
		return &Report{}, nil
	}

	state = StateResolving
	ids := make([]string, 0, len(fs))
	for _, f := range fs {
		ids = append(ids, f.ID)
	}
	existing := e.resolver.Resolve(ctx, ids)
	log.Printf("[info] operation=sync state=%s candidates=%d existing=%d", state, len(ids), len(existing))

	state = StateRouting
	var toImport []findings.Finding
	var toUpdate []findings.Finding
	for _, f := range fs {
		if _, ok := existing[f.ID]; ok {
			toUpdate = append(toUpdate, f)
		} else {
			toImport = append(toImport, f)
		}
	}
	log.Printf("[info] operation=sync state=%s to_import=%d to_update=%d", state, len(toImport), len(toUpdate))

	report := &Report{}

	if len(toUpdate) > 0 {
		state = StateUpdating
		res, err := e.aggregator.BatchUpdate(ctx, severityUpdates(toUpdate))
		if err != nil {
			return nil, fmt.Errorf("update path: %w", err)
		}
		report.UpdateStatus = &res
		report.Updated = len(res.Accepted)
		log.Printf("[info] operation=sync state=%s accepted=%d rejected=%d", state, len(res.Accepted), len(res.Rejected))
	}

	if len(toImport) > 0 {
		state = StateImporting
		res, err := e.aggregator.BatchImport(ctx, toImport)
		if err != nil {
			return nil, fmt.Errorf("import path: %w", err)
		}
		report.ImportStatus = &res
		report.Imported = len(res.Accepted)
		report.ImportFailed = len(res.Rejected)
		log.Printf("[info] operation=sync state=%s accepted=%d rejected=%d", state, len(res.Accepted), len(res.Rejected))

		state = StateReconciling
		log.Printf("[info] operation=sync state=%s scope=%s", state, e.ledgerScope)
		e.reconcile(ctx, toImport, res)
	}

	state = StateDone
	log.Printf("[info] operation=sync state=%s imported=%d updated=%d import_failed=%d",
		state, report.Imported, report.Updated, report.ImportFailed)
	return report, nil
}

// reconcile ledgers the imported IDs and spills the rejected subset. Both
// are best effort: their failure is logged and never masks a run whose
// import/update calls succeeded.
func (e *Engine) reconcile(ctx context.Context, attempted []findings.Finding, res hub.BatchResult) {
	for _, id := range e.ledgerIDs(attempted, res) {
		if err := e.ledger.Put(ctx, id); err != nil {
			log.Printf("[warn] operation=reconcile ledger id=%q error=%v", id, err)
		}
	}

	if len(res.Rejected) == 0 {
		return
	}

	rejected := make(map[string]struct{}, len(res.Rejected))
	for _, r := range res.Rejected {
		rejected[r.ID] = struct{}{}
	}
	var spill []findings.Finding
	for _, f := range attempted {
		if _, ok := rejected[f.ID]; ok {
			spill = append(spill, f)
		}
	}

	if err := e.spillover.Put(ctx, spill); err != nil {
		log.Printf("[warn] operation=reconcile spillover count=%d error=%v", len(spill), err)
	}
}

// ledgerIDs applies the configured write scope: accepted imports only, or
// every attempted import.
func (e *Engine) ledgerIDs(attempted []findings.Finding, res hub.BatchResult) []string {
	if e.ledgerScope == ScopeAll {
		ids := make([]string, 0, len(attempted))
		for _, f := range attempted {
			ids = append(ids, f.ID)
		}
		return ids
	}
	return res.Accepted
}

func severityUpdates(fs []findings.Finding) []findings.SeverityUpdate {
	ups := make([]findings.SeverityUpdate, 0, len(fs))
	for _, f := range fs {
		ups = append(ups, findings.SeverityUpdate{
			ID:         f.ID,
			ProductArn: f.ProductArn,
			Label:      f.FindingProviderFields.Severity.Label,
		})
	}
	return ups
}
