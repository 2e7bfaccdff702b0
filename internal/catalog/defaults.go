package catalog

import (
	"github.com/radarhq/radar/internal/scoring"
	"github.com/radarhq/radar/internal/types"
)

// Default returns the built-in target catalog, used when no catalog file is
// configured. Three contribution tracks: AI/ML frameworks, security tooling,
// and policy/compliance projects.
func Default() *Catalog {
	mk := func(category types.Category, repos ...string) []Target {
		targets := make([]Target, len(repos))
		for i, r := range repos {
			targets[i] = Target{Identifier: r, Category: category}
		}
		return targets
	}

	var targets []Target
	targets = append(targets, mk(types.CategoryAIML,
		"langchain-ai/langchain",
		"huggingface/transformers",
		"openai/openai-python",
		"run-llama/llama_index",
		"vllm-project/vllm",
		"pytorch/pytorch",
		"scikit-learn/scikit-learn",
		"tiangolo/fastapi",
		"pydantic/pydantic",
		"mlflow/mlflow",
		"ray-project/ray",
	)...)
	targets = append(targets, mk(types.CategorySecurity,
		"OWASP/CheatSheetSeries",
		"OWASP/wstg",
		"OWASP/ASVS",
		"PyCQA/bandit",
		"aquasecurity/trivy",
		"anchore/grype",
		"anchore/syft",
		"trufflesecurity/trufflehog",
		"gitleaks/gitleaks",
		"github/advisory-database",
	)...)
	targets = append(targets, mk(types.CategoryCompliance,
		"open-policy-agent/opa",
		"open-policy-agent/conftest",
		"bridgecrewio/checkov",
		"tenable/terrascan",
		"prowler-cloud/prowler",
		"aquasecurity/kube-bench",
		"FairwindsOps/polaris",
		"cloud-custodian/cloud-custodian",
	)...)

	return &Catalog{Targets: targets, Weights: scoring.DefaultWeights()}
}
