package domain

// SelectionState names the externally visible state of a Selection.
type SelectionState string

const (
	StateIdle     SelectionState = "idle"
	StateHovered  SelectionState = "hovered"
	StateSelected SelectionState = "selected"
)

// Selection tracks the hovered cell and the sample shown in the detail
// panel. The zero value is idle.
//
// Transitions:
//
//	Hover(hit)   -> hovered(cell)     hover miss clears the hovered cell
//	Leave()      -> hover cleared
//	Click(hit)   -> selected(sample)  hover is kept underneath; a miss is a no-op
//	Close()      -> idle
type Selection struct {
	Hovered  string         `json:"hoveredCellId,omitempty"`
	Selected *WeatherSample `json:"selectedSample,omitempty"`
}

// State reports the dominant state: a selection outranks a hover.
func (s Selection) State() SelectionState {
	switch {
	case s.Selected != nil:
		return StateSelected
	case s.Hovered != "":
		return StateHovered
	default:
		return StateIdle
	}
}

// Hover records the cell under the pointer. Moving straight from one
// sampled cell to another replaces the hovered id without passing
// through idle.
func (s *Selection) Hover(cellID string, ok bool) {
	if !ok {
		s.Hovered = ""
		return
	}
	s.Hovered = cellID
}

// Leave clears the hover when the pointer leaves the surface.
func (s *Selection) Leave() {
	s.Hovered = ""
}

// Click selects sample when the click hit a sampled cell. Clicking outside
// every sampled cell leaves the selection untouched.
func (s *Selection) Click(sample WeatherSample, ok bool) {
	if !ok {
		return
	}
	s.Selected = &sample
}

// Close dismisses the detail panel and returns to idle.
func (s *Selection) Close() {
	s.Selected = nil
	s.Hovered = ""
}

// Reset discards all selection state, used when the pass is replaced.
func (s *Selection) Reset() {
	*s = Selection{}
}

// Rebind moves the selection onto a fresh pass over the same cells: the
// selected sample is replaced by the pass's sample for the same cell, or
// dropped when the pass no longer has it. The hover is cleared.
func (s *Selection) Rebind(p *Pass) {
	s.Hovered = ""
	if s.Selected == nil {
		return
	}
	sample, ok := p.Lookup(s.Selected.CellID)
	if !ok {
		s.Selected = nil
		return
	}
	s.Selected = &sample
}
