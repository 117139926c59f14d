package prompt

import (
	_ "embed"
	"strings"
)

var (
	//go:embed template/intake.txt
	intakeRaw string

	//go:embed template/knowledge.txt
	knowledgeRaw string

	//go:embed template/sql.txt
	sqlRaw string

	//go:embed template/summarize_single.txt
	summarizeSingleRaw string

	//go:embed template/summarize_multi.txt
	summarizeMultiRaw string
)

// PromptSet holds the system prompts for every model role.
// Prompts are FString templates: literal braces are doubled.
type PromptSet struct {
	Intake          string
	Knowledge       string
	SQL             string
	SummarizeSingle string
	SummarizeMulti  string
}

func LoadPromptSet() PromptSet {
	return PromptSet{
		Intake:          strings.TrimSpace(intakeRaw),
		Knowledge:       strings.TrimSpace(knowledgeRaw),
		SQL:             strings.TrimSpace(sqlRaw),
		SummarizeSingle: strings.TrimSpace(summarizeSingleRaw),
		SummarizeMulti:  strings.TrimSpace(summarizeMultiRaw),
	}
}
