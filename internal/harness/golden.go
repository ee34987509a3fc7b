package harness

import (
	"fmt"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"
)

// FormatTrace renders a result as stable text for golden comparison:
//
//	scenario: contact_branching
//	form: survey
//	1 start -> pointer=0 step=[intro]
//	2 advance -> advanced pointer=1 step=[role]
//	...
//	answers:
//	  role = "dev"
//
// Answers are listed in lexical order of question id, or "answers: none"
// when the session did not complete.
func FormatTrace(scenarioName string, result *Result) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "scenario: %s\n", scenarioName)
	fmt.Fprintf(&b, "form: %s\n", result.FormID)
	for _, ev := range result.Trace {
		b.WriteString(ev.String())
		b.WriteByte('\n')
	}

	if result.Answers == nil {
		b.WriteString("answers: none\n")
		return []byte(b.String())
	}
	b.WriteString("answers:\n")
	for _, qid := range result.Answers.SortedIDs() {
		fmt.Fprintf(&b, "  %s = %s\n", qid, formatValue(result.Answers[qid]))
	}
	return []byte(b.String())
}

// RunWithGolden executes a scenario and compares the trace against a golden file.
// The golden file is stored in testdata/golden/{scenario.Name}.golden
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails.
// Test failure (via goldie) occurs if trace doesn't match golden file.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	AssertGolden(t, scenario.Name, result)
	return result, nil
}

// AssertGolden compares the given result's trace against a golden file
// without re-running the scenario.
func AssertGolden(t *testing.T, scenarioName string, result *Result) {
	t.Helper()

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, FormatTrace(scenarioName, result))
}
