// internal/ui/component/form.go
package component

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/rovshanmuradov/tradedesk/internal/ui/style"
)

// FieldType represents the type of form field
type FieldType int

const (
	FieldTypeText FieldType = iota
	FieldTypeNumber
	FieldTypeSelect
)

// FormField represents a single form field
type FormField struct {
	Name       string
	Label      string
	Type       FieldType
	Value      string
	Options    []string
	Required   bool
	Validation func(string) error
	Error      string

	textInput   textinput.Model
	selectedIdx int
}

func (f *FormField) isText() bool {
	return f.Type == FieldTypeText || f.Type == FieldTypeNumber
}

// Form is a vertical list of inputs with one focused field.
type Form struct {
	fields     []FormField
	focusIndex int
	focused    bool

	labelStyle   lipgloss.Style
	inputStyle   lipgloss.Style
	focusedStyle lipgloss.Style
	errorStyle   lipgloss.Style
}

// NewForm creates a new form component
func NewForm() *Form {
	palette := style.DefaultPalette()

	return &Form{
		labelStyle: lipgloss.NewStyle().
			Foreground(palette.Text).
			Bold(true),

		inputStyle: lipgloss.NewStyle().
			Foreground(palette.Text).
			Padding(0, 1).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(palette.TextMuted),

		focusedStyle: lipgloss.NewStyle().
			Foreground(palette.Text).
			Padding(0, 1).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(palette.Primary),

		errorStyle: lipgloss.NewStyle().
			Foreground(palette.Error),
	}
}

// AddField adds a text or number field.
func (f *Form) AddField(name string, fieldType FieldType, label string, required bool, placeholder string) *Form {
	ti := textinput.New()
	ti.Width = 20
	ti.Placeholder = placeholder
	f.fields = append(f.fields, FormField{
		Name:      name,
		Label:     label,
		Type:      fieldType,
		Required:  required,
		textInput: ti,
	})
	return f
}

// AddSelect adds a field cycling through options with up/down.
func (f *Form) AddSelect(name, label string, options []string) *Form {
	field := FormField{Name: name, Label: label, Type: FieldTypeSelect, Options: options}
	if len(options) > 0 {
		field.Value = options[0]
	}
	f.fields = append(f.fields, field)
	return f
}

// SetFieldValue sets the value of a field
func (f *Form) SetFieldValue(name, value string) *Form {
	for i := range f.fields {
		field := &f.fields[i]
		if field.Name != name {
			continue
		}
		if field.Type == FieldTypeSelect {
			for j, opt := range field.Options {
				if opt == value {
					field.selectedIdx = j
					field.Value = value
				}
			}
		} else {
			field.textInput.SetValue(value)
			field.Value = field.textInput.Value()
		}
	}
	return f
}

// SetFieldValidation sets a validation function for a field
func (f *Form) SetFieldValidation(name string, validation func(string) error) *Form {
	for i := range f.fields {
		if f.fields[i].Name == name {
			f.fields[i].Validation = validation
		}
	}
	return f
}

// Focus gives the form keyboard focus.
func (f *Form) Focus() tea.Cmd {
	f.focused = true
	if len(f.fields) > 0 && f.fields[f.focusIndex].isText() {
		return f.fields[f.focusIndex].textInput.Focus()
	}
	return nil
}

// Blur removes keyboard focus.
func (f *Form) Blur() {
	f.focused = false
	for i := range f.fields {
		f.fields[i].textInput.Blur()
	}
}

// Update handles input for the focused field. Tab and shift+tab move
// between fields.
func (f *Form) Update(msg tea.Msg) (*Form, tea.Cmd) {
	if len(f.fields) == 0 || !f.focused {
		return f, nil
	}

	if msg, ok := msg.(tea.KeyMsg); ok {
		switch msg.String() {
		case "tab":
			return f, f.moveFocus(1)
		case "shift+tab":
			return f, f.moveFocus(-1)
		case "up":
			f.cycleOption(-1)
			return f, nil
		case "down":
			f.cycleOption(1)
			return f, nil
		}
	}

	field := &f.fields[f.focusIndex]
	if !field.isText() {
		return f, nil
	}
	var cmd tea.Cmd
	field.textInput, cmd = field.textInput.Update(msg)
	field.Value = field.textInput.Value()
	field.Error = ""
	return f, cmd
}

// View renders the form
func (f *Form) View() string {
	var content strings.Builder
	for i := range f.fields {
		field := &f.fields[i]
		label := field.Label
		if field.Required {
			label += " *"
		}
		content.WriteString(f.labelStyle.Render(label))
		content.WriteString("\n")

		fieldStyle := f.inputStyle
		if f.focused && i == f.focusIndex {
			fieldStyle = f.focusedStyle
		}
		if field.isText() {
			content.WriteString(fieldStyle.Render(field.textInput.View()))
		} else {
			text := field.Value
			if f.focused && i == f.focusIndex {
				text += " ↕"
			}
			content.WriteString(fieldStyle.Render(text))
		}
		if field.Error != "" {
			content.WriteString("\n")
			content.WriteString(f.errorStyle.Render("⚠ " + field.Error))
		}
		if i < len(f.fields)-1 {
			content.WriteString("\n")
		}
	}
	return content.String()
}

func (f *Form) moveFocus(delta int) tea.Cmd {
	f.fields[f.focusIndex].textInput.Blur()
	f.focusIndex = (f.focusIndex + delta + len(f.fields)) % len(f.fields)
	if f.fields[f.focusIndex].isText() {
		return f.fields[f.focusIndex].textInput.Focus()
	}
	return nil
}

func (f *Form) cycleOption(delta int) {
	field := &f.fields[f.focusIndex]
	if field.Type != FieldTypeSelect || len(field.Options) == 0 {
		return
	}
	field.selectedIdx = (field.selectedIdx + delta + len(field.Options)) % len(field.Options)
	field.Value = field.Options[field.selectedIdx]
}

// Validate validates all form fields
func (f *Form) Validate() bool {
	valid := true
	for i := range f.fields {
		field := &f.fields[i]
		field.Error = ""
		if field.Required && strings.TrimSpace(field.Value) == "" {
			field.Error = "This field is required"
			valid = false
			continue
		}
		if field.Validation != nil {
			if err := field.Validation(field.Value); err != nil {
				field.Error = err.Error()
				valid = false
			}
		}
	}
	return valid
}

// GetValue returns the value of a specific field
func (f *Form) GetValue(name string) string {
	for _, field := range f.fields {
		if field.Name == name {
			return field.Value
		}
	}
	return ""
}

// Reset clears text fields and keeps select choices.
func (f *Form) Reset() *Form {
	for i := range f.fields {
		field := &f.fields[i]
		field.Error = ""
		if field.isText() {
			field.textInput.SetValue("")
			field.Value = ""
		}
	}
	return f
}
