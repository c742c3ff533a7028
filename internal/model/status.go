package model

// Color tags a status for the display layer.
type Color string

const (
	ColorGreen  Color = "green"
	ColorRed    Color = "red"
	ColorOrange Color = "orange"
)

// Status is one state transition pushed to the display layer.
type Status struct {
	Label string `json:"label"`
	Color Color  `json:"color"`
}

// StatusIdle is emitted when nothing is running.
func StatusIdle() Status {
	return Status{Label: "idle", Color: ColorGreen}
}

// StatusClicking is emitted while the master loop is running.
func StatusClicking() Status {
	return Status{Label: "clicking", Color: ColorRed}
}

// StatusDelaying is emitted while a macro waits out its start delay.
func StatusDelaying(name string) Status {
	return Status{Label: "delaying " + name, Color: ColorOrange}
}

// StatusMacro is emitted when a macro starts sending actions.
func StatusMacro(name string) Status {
	return Status{Label: "macro: " + name, Color: ColorOrange}
}

// String returns the label.
func (s Status) String() string {
	return s.Label
}
