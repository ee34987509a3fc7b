package form

// DefaultFormID is the id of the built-in registration form.
const DefaultFormID = "default-user-registration"

// DefaultForms returns the forms a fresh store is seeded with.
func DefaultForms() []Form {
	f := Form{
		ID:          DefaultFormID,
		Title:       "User Registration",
		Description: "Collect essential information from new users",
		Status:      StatusPublished,
		Groups:      []Group{},
		Questions: []Question{
			{
				ID:          "fullname",
				Type:        TypeText,
				Label:       "Full Name",
				Required:    true,
				Placeholder: "Enter your full name",
				Validation: &Validation{
					Pattern: `^[a-zA-Z\s]{2,}$`,
					Message: "Please enter your full name (minimum 2 characters)",
				},
			},
			{
				ID:          "email",
				Type:        TypeEmail,
				Label:       "Email Address",
				Required:    true,
				Placeholder: "you@example.com",
				Validation: &Validation{
					Pattern: `[a-z0-9._%+-]+@[a-z0-9.-]+\.[a-z]{2,}$`,
					Message: "Please enter a valid email address",
				},
			},
			{
				ID:          "phone",
				Type:        TypePhone,
				Label:       "Phone Number",
				Placeholder: "+1 (555) 000-0000",
				Validation: &Validation{
					Pattern: `^\+?[1-9]\d{1,14}$`,
					Message: "Please enter a valid phone number",
				},
			},
			{
				ID:          "role",
				Type:        TypeSelect,
				Label:       "Role",
				Required:    true,
				Placeholder: "Select your role",
				Options: []Option{
					{ID: "developer", Label: "Developer", Value: "developer"},
					{ID: "designer", Label: "Designer", Value: "designer"},
					{ID: "manager", Label: "Project Manager", Value: "manager"},
					{ID: "other", Label: "Other", Value: "other"},
				},
			},
			{
				ID:       "skills",
				Type:     TypeMultiselect,
				Label:    "Skills",
				Required: true,
				Options: []Option{
					{ID: "js", Label: "JavaScript", Value: "javascript"},
					{ID: "react", Label: "React", Value: "react"},
					{ID: "node", Label: "Node.js", Value: "nodejs"},
					{ID: "ts", Label: "TypeScript", Value: "typescript"},
					{ID: "ui", Label: "UI Design", Value: "ui"},
					{ID: "ux", Label: "UX Design", Value: "ux"},
				},
				Validation: &Validation{Message: "Please select at least one skill"},
			},
			{
				ID:         "start_date",
				Type:       TypeDate,
				Label:      "Available Start Date",
				Required:   true,
				Validation: &Validation{Message: "Please select your available start date"},
			},
		},
	}
	f.Normalize()
	return []Form{f}
}
