package state

// PrinterDoc is the subset of the print server's printer status document the
// display consumes.
type PrinterDoc struct {
	State       PrinterState `json:"state"`
	Temperature Temperatures `json:"temperature"`
}

type PrinterState struct {
	Text  string       `json:"text"`
	Flags PrinterFlags `json:"flags"`
}

type PrinterFlags struct {
	Operational bool `json:"operational"`
	Printing    bool `json:"printing"`
	Paused      bool `json:"paused"`
	Error       bool `json:"error"`
	Ready       bool `json:"ready"`
}

type Temperatures struct {
	Tool0 *Temp `json:"tool0"`
	Bed   *Temp `json:"bed"`
}

// Temp is a heater reading. Either value may be null on the wire.
type Temp struct {
	Actual *float64 `json:"actual"`
	Target *float64 `json:"target"`
}

// JobDoc is the subset of the current job document the display consumes.
type JobDoc struct {
	Job      JobInfo     `json:"job"`
	Progress JobProgress `json:"progress"`
	State    string      `json:"state"`
}

type JobInfo struct {
	File JobFile `json:"file"`
}

type JobFile struct {
	Name string `json:"name"`
}

// JobProgress carries completion in percent and the server's estimate of the
// remaining print time in seconds, both relative to the fetch time.
type JobProgress struct {
	Completion    *float64 `json:"completion"`
	PrintTime     *int     `json:"printTime"`
	PrintTimeLeft *int     `json:"printTimeLeft"`
}

// Printing reports whether the printer document says a print is running.
func (doc *PrinterDoc) Printing() bool {
	return doc != nil && doc.State.Flags.Printing
}
