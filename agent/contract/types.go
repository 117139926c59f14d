package contract

import "strings"

// TerminalAgent is the reserved agent name meaning "reply directly and stop".
const TerminalAgent = "END"

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Assignment is one delegated unit of work produced by the classifier.
type Assignment struct {
	Agent   string  `json:"agent"`
	Command string  `json:"command"`
	Result  *string `json:"result"`
	Finish  bool    `json:"finish"`
}

// AssignmentSet keeps classification order; order carries no priority.
type AssignmentSet []Assignment

func (a Assignment) IsTerminal() bool {
	return strings.TrimSpace(a.Agent) == TerminalAgent
}

func (a Assignment) HasResult() bool {
	return a.Result != nil
}

func (a Assignment) ResultText() string {
	if a.Result == nil {
		return ""
	}
	return *a.Result
}

// Pending returns the agent names of assignments still waiting for a result.
func (s AssignmentSet) Pending() []string {
	var out []string
	for _, a := range s {
		if !a.HasResult() {
			out = append(out, a.Agent)
		}
	}
	return out
}

// Clone deep-copies the set so result slots are not shared.
func (s AssignmentSet) Clone() AssignmentSet {
	if s == nil {
		return nil
	}
	out := make(AssignmentSet, len(s))
	for i, a := range s {
		out[i] = a
		if a.Result != nil {
			r := *a.Result
			out[i].Result = &r
		}
	}
	return out
}

type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type SynthesisKind string

const (
	SynthesisSingle SynthesisKind = "single"
	SynthesisMulti  SynthesisKind = "multi"
)

type AgentOutput struct {
	Agent  string `json:"agent"`
	Result string `json:"result"`
}

// SynthesisRequest is the payload handed to the synthesis model. A single
// request carries exactly one output.
type SynthesisRequest struct {
	Kind     SynthesisKind `json:"kind"`
	Question string        `json:"question"`
	Outputs  []AgentOutput `json:"outputs"`
}
