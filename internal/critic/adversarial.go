package critic

import (
	"context"
	"fmt"
	"strings"
)

// AdversarialCritic probes artifacts for logical flaws. It is deliberately
// hostile: any indicator of contradiction, placeholder output, or an empty
// artifact produces a rejection with concrete fixes.
type AdversarialCritic struct {
	// MinLength rejects artifacts shorter than this many characters as
	// insufficiently substantiated. Zero disables the check.
	MinLength int
}

// NewAdversarialCritic creates the critic with a default minimum length of 8.
func NewAdversarialCritic() *AdversarialCritic {
	return &AdversarialCritic{MinLength: 8}
}

// Name returns the critic identifier.
func (c *AdversarialCritic) Name() string { return "adversarial" }

// contradictionMarkers are phrase pairs whose co-occurrence in one artifact
// signals an internal contradiction.
var contradictionMarkers = [][2]string{
	{"always", "never"},
	{"must", "must not"},
	{"is safe", "is not safe"},
	{"succeeded", "failed"},
}

// placeholderMarkers are fragments that indicate the producer emitted scaffold
// text instead of a real artifact.
var placeholderMarkers = []string{
	"todo",
	"tbd",
	"fixme",
	"placeholder",
	"lorem ipsum",
	"<insert",
}

// Review rejects artifacts that are empty, below the minimum length, carry
// placeholder scaffolding, or contradict themselves. Each finding maps to one
// fix instruction so the revision loop has actionable input.
func (c *AdversarialCritic) Review(ctx context.Context, artifact *Artifact) (*Verdict, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	content := strings.TrimSpace(artifact.Content)
	lower := strings.ToLower(content)

	var fixes []string

	if content == "" {
		fixes = append(fixes, "produce a non-empty artifact for the step")
	} else if c.MinLength > 0 && len(content) < c.MinLength {
		fixes = append(fixes, fmt.Sprintf("expand the artifact: %d characters is below the %d character minimum", len(content), c.MinLength))
	}

	for _, marker := range placeholderMarkers {
		if strings.Contains(lower, marker) {
			fixes = append(fixes, fmt.Sprintf("remove placeholder text %q and supply the real content", marker))
		}
	}

	for _, pair := range contradictionMarkers {
		if pairConflicts(lower, pair[0], pair[1]) {
			fixes = append(fixes, fmt.Sprintf("resolve the contradiction between %q and %q", pair[0], pair[1]))
		}
	}

	if len(fixes) > 0 {
		return &Verdict{
			Approved: false,
			Fixes:    fixes,
			Risk:     0.6,
			Notes:    fmt.Sprintf("adversarial review found %d logical flaw(s)", len(fixes)),
		}, nil
	}

	return &Verdict{Approved: true, Notes: "no logical flaws found"}, nil
}

// pairConflicts reports whether both phrases of a contradiction pair occur
// independently in s. When the first phrase is a substring of the second (as
// "must" is of "must not"), occurrences inside the second do not count.
func pairConflicts(s, first, second string) bool {
	if !strings.Contains(s, second) {
		return false
	}
	return strings.Count(s, first) > strings.Count(s, second)*strings.Count(second, first)
}

var _ Critic = (*AdversarialCritic)(nil)
