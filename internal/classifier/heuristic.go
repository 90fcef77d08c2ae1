package classifier

import (
	"strings"

	"github.com/dot-do/functions-gateway/internal/model"
)

// keyword tables per §4.7's heuristic fallback.
var keywordTables = map[model.FunctionKind][]string{
	model.KindCode:       {"calculate", "compute", "convert", "parse", "validate", "sort", "hash", "encode"},
	model.KindGenerative: {"summarize", "translate", "generate", "write", "describe", "compose"},
	model.KindAgentic:    {"research", "investigate", "analyze", "audit", "orchestrate", "crawl"},
	model.KindHuman:      {"approve", "review", "moderate", "verify", "authorize", "sign"},
}

// heuristicOrder fixes the tie-break order when a name matches more than
// one table: code, generative, agentic, human (tier ascending).
var heuristicOrder = []model.FunctionKind{model.KindCode, model.KindGenerative, model.KindAgentic, model.KindHuman}

func matchesAny(text string, keywords []string) bool {
	lower := strings.ToLower(text)
	for _, kw := range keywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// heuristicClassify implements §4.7 step 4: keyword-table classification,
// with a confidence boost when both name and description match.
func heuristicClassify(name, description string) model.ClassificationEntry {
	for _, kind := range heuristicOrder {
		keywords := keywordTables[kind]
		nameMatch := matchesAny(name, keywords)
		descMatch := description != "" && matchesAny(description, keywords)

		if nameMatch || descMatch {
			confidence := 0.6
			if nameMatch && descMatch {
				confidence = 0.85
			}
			return model.ClassificationEntry{
				Type:       kind,
				Confidence: confidence,
				Reasoning:  "heuristic keyword match",
				Provider:   "fallback",
			}
		}
	}

	return model.ClassificationEntry{
		Type:       model.KindCode,
		Confidence: 0.5,
		Reasoning:  "no heuristic keyword match; defaulting to code",
		Provider:   "fallback",
	}
}
