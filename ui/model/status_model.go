package model

// StatusValues are the formatted texts shown in the kiosk status area.
type StatusValues struct {
	Phase      string
	Similarity string
	Streak     string
	Message    string
	MessageErr bool
}

// StatusModel remembers what the view currently shows so presenters only
// push changed values. No synchronization needed: updates occur on the UI thread tick.
type StatusModel struct {
	shown StatusValues
	set   bool
}

func NewStatusModel() *StatusModel { return &StatusModel{} }

// Update stores v and reports whether it differs from what was shown.
func (m *StatusModel) Update(v StatusValues) bool {
	if m == nil {
		return false
	}
	if m.set && m.shown == v {
		return false
	}
	m.shown, m.set = v, true
	return true
}

// Shown returns the values last stored.
func (m *StatusModel) Shown() StatusValues {
	if m == nil {
		return StatusValues{}
	}
	return m.shown
}
