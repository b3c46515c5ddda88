package specialist

import (
	"context"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"
)

// LLMSpecialist adapts a langchaingo model into the Specialist interface, so
// any supported provider can bid in auctions without the coordinator knowing
// about model inference.
type LLMSpecialist struct {
	name         string
	capabilities []string
	model        llms.Model
	confidence   float64
	system       string
}

// LLMOption configures an LLMSpecialist.
type LLMOption func(*LLMSpecialist)

// WithSystemPrompt prepends an instruction block to every proposal prompt.
func WithSystemPrompt(prompt string) LLMOption {
	return func(s *LLMSpecialist) {
		s.system = prompt
	}
}

// WithConfidence sets the fixed confidence this specialist bids with.
// Defaults to 0.5.
func WithConfidence(confidence float64) LLMOption {
	return func(s *LLMSpecialist) {
		if confidence >= 0 && confidence <= 1 {
			s.confidence = confidence
		}
	}
}

// NewLLMSpecialist wraps an LLM as a specialist for the given capabilities.
func NewLLMSpecialist(name string, model llms.Model, capabilities []string, opts ...LLMOption) *LLMSpecialist {
	s := &LLMSpecialist{
		name:         name,
		capabilities: capabilities,
		model:        model,
		confidence:   0.5,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name returns the specialist identifier.
func (s *LLMSpecialist) Name() string { return s.name }

// Capabilities returns the capabilities this specialist serves.
func (s *LLMSpecialist) Capabilities() []string { return s.capabilities }

// Propose renders the task into a prompt and returns the model's completion
// as a contribution. Model errors propagate so the coordinator excludes this
// specialist from the auction.
func (s *LLMSpecialist) Propose(ctx context.Context, task TaskContext) (*Contribution, error) {
	prompt := s.buildPrompt(task)

	response, err := llms.GenerateFromSinglePrompt(ctx, s.model, prompt)
	if err != nil {
		return nil, fmt.Errorf("llm generation failed: %w", err)
	}
	response = strings.TrimSpace(response)
	if response == "" {
		return nil, fmt.Errorf("llm returned empty response")
	}

	return &Contribution{
		SpecialistID: s.name,
		Response:     response,
		Confidence:   s.confidence,
	}, nil
}

func (s *LLMSpecialist) buildPrompt(task TaskContext) string {
	var b strings.Builder
	if s.system != "" {
		b.WriteString(s.system)
		b.WriteString("\n\n")
	}
	fmt.Fprintf(&b, "Goal: %s\nStep: %s\n", task.Goal, task.StepID)
	for k, v := range task.Inputs {
		fmt.Fprintf(&b, "Input %s: %s\n", k, v)
	}
	if len(task.Fixes) > 0 {
		b.WriteString("\nA reviewer rejected the previous attempt. Address every item:\n")
		for _, fix := range task.Fixes {
			fmt.Fprintf(&b, "- %s\n", fix)
		}
	}
	return b.String()
}

var _ Specialist = (*LLMSpecialist)(nil)
