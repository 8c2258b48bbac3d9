// Package validate holds the index diagnostics that operational
// tooling runs before and after deployments: configuration presence,
// authentication, index existence and shape, and an end-to-end
// upsert/query/delete smoke test.
package validate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/google/uuid"

	"rag-agent/internal/domain"
	"rag-agent/internal/vectorstore/pinecone"
)

// CheckResult is the outcome of one validation check.
type CheckResult struct {
	Name    string
	OK      bool
	Message string
}

// Target is the index surface the validator exercises: the store
// contract plus the control-plane calls the remote client exposes.
type Target interface {
	domain.IndexStore
	ListIndexes(ctx context.Context) ([]string, error)
	Describe(ctx context.Context) (*pinecone.IndexDescription, error)
}

// Validator runs the check suite against one index. A nil Embedder
// skips the smoke test.
type Validator struct {
	index         Target
	embedder      domain.Embedder
	wantDimension int
	wantMetric    string
	log           *slog.Logger
}

// New builds a Validator for the given target index.
func New(index Target, embedder domain.Embedder, wantDimension int, wantMetric string, log *slog.Logger) *Validator {
	if log == nil {
		log = slog.Default()
	}
	return &Validator{
		index:         index,
		embedder:      embedder,
		wantDimension: wantDimension,
		wantMetric:    wantMetric,
		log:           log,
	}
}

// RequiredEnvVars are the settings every deployment must carry.
var RequiredEnvVars = []string{"OPENAI_API_KEY", "PINECONE_API_KEY", "PINECONE_INDEX_NAME"}

// Run executes every check in order. A failing check does not stop
// the suite; callers get the full picture in one pass.
func (v *Validator) Run(ctx context.Context) []CheckResult {
	results := []CheckResult{
		v.checkEnv(),
		v.checkAuth(ctx),
	}
	desc, existsResult := v.checkExists(ctx)
	results = append(results, existsResult)
	if desc != nil {
		results = append(results, v.checkShape(desc))
		results = append(results, v.checkStats(ctx))
		if v.embedder != nil {
			results = append(results, v.checkSmoke(ctx))
		}
	}
	return results
}

func (v *Validator) checkEnv() CheckResult {
	var missing []string
	for _, name := range RequiredEnvVars {
		if os.Getenv(name) == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return CheckResult{
			Name:    "environment variables",
			Message: "missing: " + strings.Join(missing, ", "),
		}
	}
	return CheckResult{Name: "environment variables", OK: true, Message: "all required variables are set"}
}

func (v *Validator) checkAuth(ctx context.Context) CheckResult {
	names, err := v.index.ListIndexes(ctx)
	if err != nil {
		return CheckResult{Name: "API key", Message: err.Error()}
	}
	return CheckResult{
		Name:    "API key",
		OK:      true,
		Message: fmt.Sprintf("authenticated; %d index(es) visible", len(names)),
	}
}

func (v *Validator) checkExists(ctx context.Context) (*pinecone.IndexDescription, CheckResult) {
	desc, err := v.index.Describe(ctx)
	if err != nil {
		if errors.Is(err, domain.ErrIndexNotFound) {
			return nil, CheckResult{
				Name:    "index existence",
				Message: fmt.Sprintf("index %q not found; run `rag-agent index ensure` or ingest first", v.index.IndexName()),
			}
		}
		return nil, CheckResult{Name: "index existence", Message: err.Error()}
	}
	return desc, CheckResult{
		Name:    "index existence",
		OK:      true,
		Message: fmt.Sprintf("index %q exists (ready=%t)", desc.Name, desc.Status.Ready),
	}
}

func (v *Validator) checkShape(desc *pinecone.IndexDescription) CheckResult {
	var problems []string
	if v.wantDimension > 0 && desc.Dimension != v.wantDimension {
		problems = append(problems, fmt.Sprintf("dimension is %d, expected %d", desc.Dimension, v.wantDimension))
	}
	if v.wantMetric != "" && desc.Metric != v.wantMetric {
		problems = append(problems, fmt.Sprintf("metric is %q, expected %q", desc.Metric, v.wantMetric))
	}
	if len(problems) > 0 {
		return CheckResult{Name: "index configuration", Message: strings.Join(problems, "; ")}
	}
	return CheckResult{
		Name:    "index configuration",
		OK:      true,
		Message: fmt.Sprintf("dimension=%d metric=%s", desc.Dimension, desc.Metric),
	}
}

func (v *Validator) checkStats(ctx context.Context) CheckResult {
	stats, err := v.index.Stats(ctx)
	if err != nil {
		return CheckResult{Name: "index stats", Message: err.Error()}
	}
	return CheckResult{
		Name:    "index stats",
		OK:      true,
		Message: fmt.Sprintf("%d vector(s), dimension %d", stats.VectorCount, stats.Dimension),
	}
}

// checkSmoke embeds a probe string, upserts it under a throwaway ID,
// queries it back and deletes it again. The probe record is tagged so
// it can never be mistaken for real content.
func (v *Validator) checkSmoke(ctx context.Context) CheckResult {
	const probeText = "vector database validation probe"
	name := "read/write smoke test"

	vec, err := v.embedder.Embed(ctx, probeText)
	if err != nil {
		return CheckResult{Name: name, Message: "embed probe: " + err.Error()}
	}
	id := "validation-probe-" + uuid.NewString()
	record := domain.IndexRecord{
		ID:     id,
		Vector: vec,
		Metadata: map[string]string{
			domain.MetaText:       probeText,
			domain.MetaSourcePath: "validation-probe",
		},
	}
	if err := v.index.Upsert(ctx, []domain.IndexRecord{record}); err != nil {
		return CheckResult{Name: name, Message: "upsert probe: " + err.Error()}
	}
	// Best effort: clean the probe up even if the query fails.
	defer func() {
		if err := v.index.Delete(ctx, []string{id}); err != nil {
			v.log.Warn("failed to delete validation probe", "id", id, "error", err)
		}
	}()

	matches, err := v.index.Query(ctx, vec, 3, map[string]string{domain.MetaSourcePath: "validation-probe"})
	if err != nil {
		return CheckResult{Name: name, Message: "query probe: " + err.Error()}
	}
	if len(matches) == 0 {
		// Freshly upserted vectors can lag behind queries; report
		// success on the write path but note the miss.
		return CheckResult{Name: name, OK: true, Message: "upsert and delete succeeded; probe not yet queryable (index may still be syncing)"}
	}
	return CheckResult{
		Name:    name,
		OK:      true,
		Message: fmt.Sprintf("upsert, query and delete succeeded (top score %.3f)", matches[0].Score),
	}
}
