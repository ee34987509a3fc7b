package harness

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/roach88/formstep/internal/compiler"
	"github.com/roach88/formstep/internal/engine"
	"github.com/roach88/formstep/internal/form"
)

// Harness drives one scenario against one session.
type Harness struct {
	session *engine.Session
	result  *Result
	logger  *slog.Logger
	seq     int
}

// Run executes a scenario and returns the result.
//
// Execution flow:
//  1. Load the form and reject definitions with error findings
//  2. Start a session
//  3. Execute each step, trace it, check its expectation
//  4. Check the completion expectation
//
// The returned error covers problems running the scenario (missing form,
// invalid definition, bad step value); mismatches go to Result.Errors.
func Run(scenario *Scenario) (*Result, error) {
	f, err := LoadForm(scenario)
	if err != nil {
		return nil, err
	}

	h := &Harness{
		result: NewResult(),
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)), // Suppress logs in tests
	}
	h.session = engine.NewSession(f, func(answers form.Answers) {
		h.result.Completions++
		h.result.Answers = answers
	}, engine.WithLogger(h.logger))

	h.result.FormID = f.ID
	h.trace(TraceEvent{Action: "start"})

	for i, step := range scenario.Steps {
		if err := h.execute(i, step); err != nil {
			return nil, err
		}
	}

	if scenario.ExpectCompletion != nil {
		if err := checkCompletion(h.result, scenario.ExpectCompletion); err != nil {
			return nil, err
		}
	}
	return h.result, nil
}

// LoadForm returns the scenario's form. Definitions with error findings
// are rejected the way a form loader would.
func LoadForm(scenario *Scenario) (*form.Form, error) {
	var (
		forms []*form.Form
		err   error
	)
	if scenario.Form != "" {
		forms, err = compiler.LoadFile(scenario.Form)
	} else {
		var data []byte
		data, err = yaml.Marshal(&scenario.Definition)
		if err == nil {
			forms, err = compiler.CompileSource(scenario.Name+".yaml", data)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("load form: %w", err)
	}

	f, err := pickForm(forms, scenario.FormID)
	if err != nil {
		return nil, err
	}

	if findings := form.Validate(f); form.HasErrors(findings) {
		for _, finding := range findings {
			if finding.Severity == form.SeverityError {
				return nil, fmt.Errorf("form %s is invalid: %w", f.ID, finding)
			}
		}
	}
	return f, nil
}

func pickForm(forms []*form.Form, id string) (*form.Form, error) {
	if id == "" {
		if len(forms) != 1 {
			return nil, fmt.Errorf("definition holds %d forms, set form_id", len(forms))
		}
		return forms[0], nil
	}
	for _, f := range forms {
		if f.ID == id {
			return f, nil
		}
	}
	return nil, fmt.Errorf("form %q not found in definition", id)
}

// execute performs one step, traces it and checks its expectation.
func (h *Harness) execute(i int, step Step) error {
	ev := TraceEvent{Action: step.Action, Question: step.Question}

	switch step.Action {
	case ActionRecord:
		v, err := form.ValueFromAny(step.Value)
		if err != nil {
			return fmt.Errorf("steps[%d]: value: %w", i, err)
		}
		h.session.RecordAnswer(step.Question, v)
		ev.Value = formatValue(v)
	case ActionClear:
		h.session.ClearAnswer(step.Question)
	case ActionToggle:
		h.session.ToggleOption(step.Question, step.Option)
		ev.Value = formatValue(form.Single(step.Option))
	case ActionAdvance:
		ev.Outcome = string(h.session.Advance())
	case ActionRetreat:
		moved := h.session.Retreat()
		ev.Moved = &moved
	case ActionSync:
		h.session.Sync()
	}

	display := h.trace(ev)
	if step.Expect != nil {
		for _, msg := range checkStep(step.Expect, display, ev) {
			h.result.AddError(fmt.Sprintf("steps[%d] %s: %s", i, step.Action, msg))
		}
	}
	return nil
}

// trace fills the screen fields of ev, appends it and returns the screen.
func (h *Harness) trace(ev TraceEvent) engine.Step {
	display := h.session.CurrentDisplay()

	h.seq++
	ev.Seq = h.seq
	ev.Pointer = h.session.Pointer()
	ev.Questions = display.QuestionIDs()
	if display.Group != nil {
		ev.Group = display.Group.ID
	}
	ev.Completed = h.session.Completed()

	h.result.Trace = append(h.result.Trace, ev)
	return display
}

// RunFile loads and runs one scenario file.
func RunFile(path string) (*Scenario, *Result, error) {
	scenario, err := LoadScenario(path)
	if err != nil {
		return nil, nil, err
	}
	result, err := Run(scenario)
	if err != nil {
		return scenario, nil, fmt.Errorf("%s: %w", scenario.Name, err)
	}
	return scenario, result, nil
}

// FindScenarios returns the scenario files in dir, sorted by name.
func FindScenarios(dir string) ([]string, error) {
	if _, err := os.Stat(dir); err != nil {
		return nil, err
	}
	var paths []string
	for _, pattern := range []string{"*.yaml", "*.yml"} {
		matches, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			return nil, err
		}
		paths = append(paths, matches...)
	}
	sort.Strings(paths)
	return paths, nil
}
