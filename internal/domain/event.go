package domain

import (
	"fmt"
	"time"
)

// Stage is a discovery phase in the research process. The set is closed;
// code branching on Stage should switch over all constants.
type Stage int

const (
	StageExploration Stage = iota
	StageUnexpectedConnection
	StageHypothesisFormation
	StageValidation
	StageIntegration
	StagePublication

	// NumStages is the cardinality of the Stage enumeration.
	NumStages = 6
)

var stageNames = [NumStages]string{
	"exploration",
	"unexpected_connection",
	"hypothesis_formation",
	"validation",
	"integration",
	"publication",
}

// String returns the stable wire name of the stage. The names are part of the
// canonical provenance encoding; do not rename.
func (s Stage) String() string {
	if s < 0 || int(s) >= NumStages {
		return fmt.Sprintf("stage(%d)", int(s))
	}
	return stageNames[s]
}

// ParseStage resolves a stage wire name.
func ParseStage(name string) (Stage, error) {
	for i, n := range stageNames {
		if n == name {
			return Stage(i), nil
		}
	}
	return 0, ErrInvalidRequest("unknown stage %q", name)
}

// MarshalText implements encoding.TextMarshaler.
func (s Stage) MarshalText() ([]byte, error) {
	if s < 0 || int(s) >= NumStages {
		return nil, ErrInvalidRequest("unknown stage %d", int(s))
	}
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Stage) UnmarshalText(text []byte) error {
	parsed, err := ParseStage(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Agent is an actor role in the discovery process. The set is closed.
type Agent int

const (
	AgentExplorer Agent = iota
	AgentPatternRecognizer
	AgentHypothesisGenerator
	AgentValidator
	AgentSynthesizer
	AgentTranslator
	AgentMetaOrchestrator

	// NumAgents is the cardinality of the Agent enumeration.
	NumAgents = 7
)

var agentNames = [NumAgents]string{
	"explorer",
	"pattern_recognizer",
	"hypothesis_generator",
	"validator",
	"synthesizer",
	"translator",
	"meta_orchestrator",
}

// String returns the stable wire name of the agent role.
func (a Agent) String() string {
	if a < 0 || int(a) >= NumAgents {
		return fmt.Sprintf("agent(%d)", int(a))
	}
	return agentNames[a]
}

// ParseAgent resolves an agent wire name.
func ParseAgent(name string) (Agent, error) {
	for i, n := range agentNames {
		if n == name {
			return Agent(i), nil
		}
	}
	return 0, ErrInvalidRequest("unknown agent %q", name)
}

// MarshalText implements encoding.TextMarshaler.
func (a Agent) MarshalText() ([]byte, error) {
	if a < 0 || int(a) >= NumAgents {
		return nil, ErrInvalidRequest("unknown agent %d", int(a))
	}
	return []byte(a.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *Agent) UnmarshalText(text []byte) error {
	parsed, err := ParseAgent(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// Event is one immutable record of an agent's action at a point in a trace.
// Sequence and Timestamp are assigned at append time; everything else is
// caller-supplied. Serendipity and Confidence are validated to [0,1] before
// an Event is constructed.
type Event struct {
	Sequence  int       `json:"sequence"`
	Timestamp time.Time `json:"timestamp"`
	Stage     Stage     `json:"stage"`
	Agent     Agent     `json:"agent"`
	Input     string    `json:"input"`
	Output    string    `json:"output"`

	// Language is an ISO 639-1 code. It is treated as an opaque key and is
	// not validated against a registry.
	Language string `json:"language"`

	Serendipity float64 `json:"serendipity"`
	Confidence  float64 `json:"confidence"`

	// AlignmentScore and TranslationQuality are optional per-event quality
	// measurements. nil means "not measured", which is distinct from zero.
	AlignmentScore     *float64 `json:"alignment_score,omitempty"`
	TranslationQuality *float64 `json:"translation_quality,omitempty"`
}

// EventOption attaches optional fields to an event at append time.
type EventOption func(*Event)

// WithAlignmentScore records a measured cross-language alignment score on
// the event.
func WithAlignmentScore(score float64) EventOption {
	return func(e *Event) {
		s := score
		e.AlignmentScore = &s
	}
}

// WithTranslationQuality records a measured translation quality on the event.
func WithTranslationQuality(quality float64) EventOption {
	return func(e *Event) {
		q := quality
		e.TranslationQuality = &q
	}
}
