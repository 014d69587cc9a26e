package components

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mmcdole/marquee/internal/tui/styles"
)

// FormField describes one text input of a Form
type FormField struct {
	Label       string
	Placeholder string
	Secret      bool
	CharLimit   int
}

// Form is a stack of labeled text inputs with one focused at a time
type Form struct {
	title  string
	labels []string
	inputs []textinput.Model
	focus  int

	busy   bool
	err    string
	notice string
	hint   string
}

// NewForm creates a form with the given fields, focusing the first one
func NewForm(title string, fields ...FormField) Form {
	f := Form{title: title}
	for _, field := range fields {
		ti := textinput.New()
		ti.Placeholder = field.Placeholder
		ti.CharLimit = 128
		if field.CharLimit > 0 {
			ti.CharLimit = field.CharLimit
		}
		ti.Width = 36
		ti.Prompt = ""
		ti.TextStyle = lipgloss.NewStyle().Foreground(styles.White)
		ti.PlaceholderStyle = styles.DimStyle
		if field.Secret {
			ti.EchoMode = textinput.EchoPassword
			ti.EchoCharacter = '•'
		}
		f.labels = append(f.labels, field.Label)
		f.inputs = append(f.inputs, ti)
	}
	f.setFocus(0)
	return f
}

// Title returns the form heading
func (f Form) Title() string {
	return f.title
}

// Value returns the trimmed value of field i (secrets are returned verbatim)
func (f Form) Value(i int) string {
	if i < 0 || i >= len(f.inputs) {
		return ""
	}
	if f.inputs[i].EchoMode == textinput.EchoPassword {
		return f.inputs[i].Value()
	}
	return strings.TrimSpace(f.inputs[i].Value())
}

// SetValue sets the contents of field i
func (f *Form) SetValue(i int, v string) {
	if i >= 0 && i < len(f.inputs) {
		f.inputs[i].SetValue(v)
	}
}

// Focused returns the index of the focused field
func (f Form) Focused() int {
	return f.focus
}

// SetBusy disables input while a request is in flight
func (f *Form) SetBusy(busy bool) {
	f.busy = busy
	if busy {
		f.err = ""
		f.notice = ""
	}
}

// Busy reports whether a request is in flight
func (f Form) Busy() bool {
	return f.busy
}

// SetError shows an error under the inputs
func (f *Form) SetError(msg string) {
	f.err = msg
	f.notice = ""
}

// SetNotice shows an informational message under the inputs
func (f *Form) SetNotice(msg string) {
	f.notice = msg
	f.err = ""
}

// SetHint sets the dim key hint line at the bottom
func (f *Form) SetHint(hint string) {
	f.hint = hint
}

// Error returns the displayed error, if any
func (f Form) Error() string {
	return f.err
}

// Notice returns the displayed notice, if any
func (f Form) Notice() string {
	return f.notice
}

// Reset clears every field and message
func (f *Form) Reset() {
	for i := range f.inputs {
		f.inputs[i].SetValue("")
	}
	f.err = ""
	f.notice = ""
	f.busy = false
	f.setFocus(0)
}

func (f *Form) setFocus(i int) {
	if len(f.inputs) == 0 {
		return
	}
	f.focus = (i + len(f.inputs)) % len(f.inputs)
	for j := range f.inputs {
		if j == f.focus {
			f.inputs[j].Focus()
		} else {
			f.inputs[j].Blur()
		}
	}
}

// Update handles input events, returns (form, cmd, submitted).
// Enter on the last field submits; on earlier fields it advances.
func (f Form) Update(msg tea.Msg) (Form, tea.Cmd, bool) {
	if f.busy {
		return f, nil, false
	}

	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		switch {
		case key.Matches(keyMsg, FormKeys.Submit):
			if f.focus == len(f.inputs)-1 {
				return f, nil, true
			}
			f.setFocus(f.focus + 1)
			return f, nil, false
		case key.Matches(keyMsg, FormKeys.Next):
			f.setFocus(f.focus + 1)
			return f, nil, false
		case key.Matches(keyMsg, FormKeys.Prev):
			f.setFocus(f.focus - 1)
			return f, nil, false
		}
	}

	if len(f.inputs) == 0 {
		return f, nil, false
	}
	var cmd tea.Cmd
	f.inputs[f.focus], cmd = f.inputs[f.focus].Update(msg)
	return f, cmd, false
}

// View renders the form as a centered modal body
func (f Form) View(spinnerView string) string {
	const formWidth = 40

	var b strings.Builder
	b.WriteString(styles.ModalTitleStyle.Render(f.title))
	b.WriteString("\n")

	for i, input := range f.inputs {
		label := styles.DimStyle.Render(f.labels[i])
		if i == f.focus {
			label = styles.AccentStyle.Render(f.labels[i])
		}
		b.WriteString(label)
		b.WriteString("\n")
		b.WriteString(input.View())
		b.WriteString("\n\n")
	}

	switch {
	case f.busy:
		b.WriteString(spinnerView + styles.DimStyle.Render(" Please wait..."))
	case f.err != "":
		b.WriteString(styles.ErrorStyle.Render(strings.Join(styles.Wrap(f.err, formWidth), "\n")))
	case f.notice != "":
		b.WriteString(styles.SuccessStyle.Render(strings.Join(styles.Wrap(f.notice, formWidth), "\n")))
	default:
		b.WriteString(" ")
	}

	if f.hint != "" {
		b.WriteString("\n\n")
		b.WriteString(styles.DimStyle.Render(f.hint))
	}

	return styles.ModalStyle.
		Width(formWidth + 4).
		Render(b.String())
}
