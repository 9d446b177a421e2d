package main

import (
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	jsoniter "github.com/json-iterator/go"

	"github.com/rook-computer/octolcd/internal/state"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Scenario names accepted by ApplyScenario.
const (
	ScenarioIdle     = "idle"
	ScenarioHeating  = "heating"
	ScenarioPrinting = "printing"
	ScenarioOffline  = "offline"
)

const (
	simFile      = "benchy.gcode"
	heatUpPeriod = time.Minute
)

type SimFaults struct {
	JobFail     bool `json:"jobFail"`
	PrinterFail bool `json:"printerFail"`
	BadJSON     bool `json:"badJSON"`
	DelayMS     int  `json:"delayMs"`
}

// SimControl serves fake /api/job and /api/printer documents. Printing and
// heating progress with the wall clock from the moment the scenario was
// applied.
type SimControl struct {
	APIKey          string
	PrintDuration   time.Duration
	startupScenario string

	// Now is the simulation clock; time.Now when nil.
	Now func() time.Time

	mu       sync.RWMutex
	scenario string
	since    time.Time
	faults   SimFaults
}

func NewSimControl(apiKey, startupScenario string, printDuration time.Duration) *SimControl {
	startupScenario = strings.TrimSpace(startupScenario)
	if startupScenario == "" {
		startupScenario = ScenarioPrinting
	}
	if printDuration <= 0 {
		printDuration = 30 * time.Minute
	}
	return &SimControl{APIKey: apiKey, PrintDuration: printDuration, startupScenario: startupScenario}
}

func (c *SimControl) ApplyScenario(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		name = c.startupScenario
	}
	switch name {
	case ScenarioIdle, ScenarioHeating, ScenarioPrinting, ScenarioOffline:
	default:
		return fmt.Errorf("unknown scenario %q", name)
	}
	c.mu.Lock()
	c.scenario = name
	c.since = c.now()
	c.mu.Unlock()
	return nil
}

func (c *SimControl) Scenario() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.scenario
}

func (c *SimControl) Reset() error {
	c.SetFaults(SimFaults{})
	return c.ApplyScenario(c.startupScenario)
}

func (c *SimControl) Faults() SimFaults {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.faults
}

func (c *SimControl) SetFaults(v SimFaults) {
	c.mu.Lock()
	c.faults = v
	c.mu.Unlock()
}

func (c *SimControl) elapsed() (string, time.Duration) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.scenario, c.now().Sub(c.since)
}

// PrinterDoc reports the printer document for the current scenario, or false
// when the printer is offline.
func (c *SimControl) PrinterDoc() (*state.PrinterDoc, bool) {
	scenario, elapsed := c.elapsed()
	doc := &state.PrinterDoc{}
	switch scenario {
	case ScenarioOffline:
		return nil, false
	case ScenarioIdle:
		doc.State = state.PrinterState{Text: "Operational", Flags: state.PrinterFlags{Operational: true, Ready: true}}
		doc.Temperature = temps(21.3, 0, 20.8, 0)
	case ScenarioHeating:
		doc.State = state.PrinterState{Text: "Operational", Flags: state.PrinterFlags{Operational: true}}
		frac := min(elapsed.Seconds()/heatUpPeriod.Seconds(), 1)
		doc.Temperature = temps(21+frac*(215-21), 215, 21+frac*(60-21), 60)
	case ScenarioPrinting:
		text := "Printing"
		if elapsed >= c.PrintDuration {
			doc.State = state.PrinterState{Text: "Operational", Flags: state.PrinterFlags{Operational: true, Ready: true}}
			doc.Temperature = temps(214.6, 0, 59.9, 0)
			break
		}
		doc.State = state.PrinterState{Text: text, Flags: state.PrinterFlags{Operational: true, Printing: true}}
		doc.Temperature = temps(214.6, 215, 59.9, 60)
	}
	return doc, true
}

// JobDoc reports the job document for the current scenario.
func (c *SimControl) JobDoc() *state.JobDoc {
	scenario, elapsed := c.elapsed()
	doc := &state.JobDoc{}
	switch scenario {
	case ScenarioOffline:
		doc.State = "Offline"
	case ScenarioIdle, ScenarioHeating:
		doc.State = "Operational"
	case ScenarioPrinting:
		doc.Job.File.Name = simFile
		if elapsed >= c.PrintDuration {
			doc.State = "Operational"
			doc.Progress.Completion = floatp(100)
			doc.Progress.PrintTimeLeft = intp(0)
			break
		}
		doc.State = "Printing"
		completion := elapsed.Seconds() / c.PrintDuration.Seconds() * 100
		doc.Progress.Completion = &completion
		doc.Progress.PrintTime = intp(int(elapsed.Seconds()))
		doc.Progress.PrintTimeLeft = intp(int((c.PrintDuration - elapsed).Seconds()))
	}
	return doc
}

func temps(tool, toolTarget, bed, bedTarget float64) state.Temperatures {
	return state.Temperatures{
		Tool0: &state.Temp{Actual: floatp(round1(tool)), Target: floatp(toolTarget)},
		Bed:   &state.Temp{Actual: floatp(round1(bed)), Target: floatp(bedTarget)},
	}
}

func round1(v float64) float64 { return float64(int(v*10+0.5)) / 10 }

func floatp(v float64) *float64 { return &v }
func intp(v int) *int           { return &v }

func (c *SimControl) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now()
}

// Handler serves the print server endpoints and the /sim control endpoints.
func (c *SimControl) Handler() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/job", c.serveDocument(func() (any, int) { return c.JobDoc(), http.StatusOK }, func(f SimFaults) bool { return f.JobFail }))
	mux.HandleFunc("/api/printer", c.serveDocument(func() (any, int) {
		doc, ok := c.PrinterDoc()
		if !ok {
			return map[string]any{"error": "Printer is not operational"}, http.StatusConflict
		}
		return doc, http.StatusOK
	}, func(f SimFaults) bool { return f.PrinterFail }))
	registerSimEndpoints(mux, c)
	return mux
}

func (c *SimControl) serveDocument(doc func() (any, int), failing func(SimFaults) bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeSimError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		if c.APIKey != "" && r.Header.Get("X-Api-Key") != c.APIKey {
			writeSimError(w, http.StatusForbidden, "invalid api key")
			return
		}
		faults := c.Faults()
		if faults.DelayMS > 0 {
			select {
			case <-r.Context().Done():
				return
			case <-time.After(time.Duration(faults.DelayMS) * time.Millisecond):
			}
		}
		if failing(faults) {
			writeSimError(w, http.StatusInternalServerError, "simulated failure")
			return
		}
		if faults.BadJSON {
			w.Header().Set("Content-Type", "application/json; charset=utf-8")
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(`{"state": {"text": `))
			return
		}
		v, status := doc()
		writeSimJSON(w, status, v)
	}
}

func registerSimEndpoints(mux *http.ServeMux, control *SimControl) {
	mux.HandleFunc("/sim/reset", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeSimError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		if err := control.Reset(); err != nil {
			writeSimError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeSimJSON(w, http.StatusOK, map[string]any{"ok": true, "scenario": control.Scenario()})
	})

	mux.HandleFunc("/sim/scenario/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeSimError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		name := strings.TrimPrefix(r.URL.Path, "/sim/scenario/")
		name = strings.Trim(name, "/")
		if err := control.ApplyScenario(name); err != nil {
			writeSimError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeSimJSON(w, http.StatusOK, map[string]any{"ok": true, "scenario": control.Scenario()})
	})

	mux.HandleFunc("/sim/faults", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			writeSimJSON(w, http.StatusOK, control.Faults())
			return
		case http.MethodPost:
			var patch struct {
				JobFail     *bool `json:"jobFail"`
				PrinterFail *bool `json:"printerFail"`
				BadJSON     *bool `json:"badJSON"`
				DelayMS     *int  `json:"delayMs"`
			}
			if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
				writeSimError(w, http.StatusBadRequest, "invalid json")
				return
			}
			current := control.Faults()
			if patch.JobFail != nil {
				current.JobFail = *patch.JobFail
			}
			if patch.PrinterFail != nil {
				current.PrinterFail = *patch.PrinterFail
			}
			if patch.BadJSON != nil {
				current.BadJSON = *patch.BadJSON
			}
			if patch.DelayMS != nil {
				if *patch.DelayMS < 0 {
					writeSimError(w, http.StatusBadRequest, "delayMs must not be negative")
					return
				}
				current.DelayMS = *patch.DelayMS
			}
			control.SetFaults(current)
			writeSimJSON(w, http.StatusOK, current)
			return
		default:
			writeSimError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
	})
}

func writeSimJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeSimError(w http.ResponseWriter, status int, message string) {
	writeSimJSON(w, status, map[string]any{"error": message})
}
