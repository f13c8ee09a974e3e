package collab

import (
	"github.com/Iron-Ham/cvcollab/internal/merge"
	"github.com/Iron-Ham/cvcollab/internal/session"
)

// Field binds one CV input to the collaboration context on behalf of a
// participant, following the focus/blur lifecycle of a form control.
type Field struct {
	ctx         *Context
	section     string
	name        string
	participant session.Participant
	focused     bool
}

// Field returns a binding for section.field edited by p.
func (c *Context) Field(section, field string, p session.Participant) *Field {
	return &Field{ctx: c, section: section, name: field, participant: p}
}

// Focus takes the edit lock. Without an active session it does nothing.
func (f *Field) Focus() {
	f.focused = true
	if !f.ctx.Active() {
		return
	}
	if _, err := f.ctx.Acquire(f.section, f.name, f.participant); err != nil {
		f.ctx.logError("focus without edit lock", err, "section", f.section, "field", f.name)
	}
}

// Blur releases the edit lock and, if value differs from original,
// proposes it. The returned future is nil when nothing was proposed.
func (f *Field) Blur(value, original string) *merge.Future {
	f.focused = false
	if !f.ctx.Active() {
		return nil
	}
	f.ctx.Release(f.section, f.name, f.participant.ID)
	if value == original {
		return nil
	}
	future, err := f.ctx.ProposeEdit(f.section, f.name, value, f.participant)
	if err != nil {
		f.ctx.logError("edit dropped on blur", err, "section", f.section, "field", f.name)
		return nil
	}
	return future
}

// Focused reports whether Focus was called more recently than Blur.
func (f *Field) Focused() bool { return f.focused }

// Disabled reports whether another participant is editing the field.
func (f *Field) Disabled() bool {
	return f.ctx.Active() && f.ctx.IsHeldByOther(f.section, f.name, f.participant.ID)
}

// Editor returns the participant currently editing the field.
func (f *Field) Editor() (session.Participant, bool) {
	return f.ctx.Holder(f.section, f.name)
}
