package form

// QuestionType is the input kind of a question.
type QuestionType string

const (
	TypeText        QuestionType = "text"
	TypeEmail       QuestionType = "email"
	TypePhone       QuestionType = "phone"
	TypeSelect      QuestionType = "select"
	TypeMultiselect QuestionType = "multiselect"
	TypeDate        QuestionType = "date"
)

// ValidQuestionTypes defines allowed question types.
var ValidQuestionTypes = map[QuestionType]bool{
	TypeText:        true,
	TypeEmail:       true,
	TypePhone:       true,
	TypeSelect:      true,
	TypeMultiselect: true,
	TypeDate:        true,
}

// HasOptions reports whether questions of this type carry an option list.
func (t QuestionType) HasOptions() bool {
	return t == TypeSelect || t == TypeMultiselect
}

// Status is the publication state of a form.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusScheduled Status = "scheduled"
	StatusPublished Status = "published"
)

// ValidStatuses defines allowed form statuses.
var ValidStatuses = map[Status]bool{
	StatusDraft:     true,
	StatusScheduled: true,
	StatusPublished: true,
}

// Layout is the arrangement of questions inside a group.
type Layout string

const (
	LayoutVertical   Layout = "vertical"
	LayoutHorizontal Layout = "horizontal"
	LayoutGrid       Layout = "grid"
)

// ValidLayouts defines allowed group layouts.
var ValidLayouts = map[Layout]bool{
	LayoutVertical:   true,
	LayoutHorizontal: true,
	LayoutGrid:       true,
}

// DefaultGridColumns is used when a grid group does not set columns.
const DefaultGridColumns = 2

// Operator is a branching comparison operator.
type Operator string

const (
	OpEquals      Operator = "equals"
	OpNotEquals   Operator = "not_equals"
	OpContains    Operator = "contains"
	OpNotContains Operator = "not_contains"
)

// KnownOperators lists the operators the evaluator understands.
// Anything else is accepted and evaluates as satisfied.
var KnownOperators = map[Operator]bool{
	OpEquals:      true,
	OpNotEquals:   true,
	OpContains:    true,
	OpNotContains: true,
}

// Action is what a branching rule does when all its conditions hold.
type Action string

const (
	ActionShow Action = "show"
	ActionHide Action = "hide"
)

// Form is a complete registration form definition.
type Form struct {
	ID            string     `json:"id"`
	Title         string     `json:"title"`
	Description   string     `json:"description,omitempty"`
	Status        Status     `json:"status"`
	ScheduledDate string     `json:"scheduled_date,omitempty"`
	Questions     []Question `json:"questions"`
	Groups        []Group    `json:"groups"`
	Theme         Theme      `json:"theme"`
}

// Question is one input in the form.
type Question struct {
	ID          string       `json:"id"`
	Type        QuestionType `json:"type"`
	Label       string       `json:"label"`
	Required    bool         `json:"required"`
	Placeholder string       `json:"placeholder,omitempty"`
	Options     []Option     `json:"options,omitempty"`
	Validation  *Validation  `json:"validation,omitempty"`
	Group       string       `json:"group,omitempty"` // empty = standalone
	Branching   *Branching   `json:"branching,omitempty"`
}

// Option is one choice of a select or multiselect question.
// Values need not be unique; ids must be.
type Option struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	Value string `json:"value"`
}

// Validation is advisory field metadata. The completion gate ignores it.
type Validation struct {
	Pattern   string `json:"pattern,omitempty"`
	Message   string `json:"message,omitempty"`
	MinLength *int   `json:"min_length,omitempty"`
	MaxLength *int   `json:"max_length,omitempty"`
}

// Branching is a conditional show/hide rule.
// All conditions are ANDed; there is no OR.
type Branching struct {
	Conditions []Condition `json:"conditions"`
	Action     Action      `json:"action"`
}

// Group is a co-display hint: questions sharing a group id form one step.
type Group struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Layout      Layout `json:"layout,omitempty"`
	Columns     int    `json:"columns,omitempty"`
}

// EffectiveColumns returns the column count a grid group renders with.
func (g Group) EffectiveColumns() int {
	if g.Layout != LayoutGrid {
		return 1
	}
	if g.Columns <= 0 {
		return DefaultGridColumns
	}
	return g.Columns
}

// GroupByID returns the group with the given id, or nil.
func (f *Form) GroupByID(id string) *Group {
	if id == "" {
		return nil
	}
	for i := range f.Groups {
		if f.Groups[i].ID == id {
			return &f.Groups[i]
		}
	}
	return nil
}

// QuestionByID returns the first question with the given id, or nil.
func (f *Form) QuestionByID(id string) *Question {
	for i := range f.Questions {
		if f.Questions[i].ID == id {
			return &f.Questions[i]
		}
	}
	return nil
}

// Normalize fills defaults the authoring tool would have applied:
// draft status, theme defaults and non-nil slices.
func (f *Form) Normalize() {
	if f.Status == "" {
		f.Status = StatusDraft
	}
	if f.Questions == nil {
		f.Questions = []Question{}
	}
	if f.Groups == nil {
		f.Groups = []Group{}
	}
	f.Theme = f.Theme.WithDefaults()
}
