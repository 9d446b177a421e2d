package config

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const minimal = `
octoprint:
  host: octopi.local
  api_key: 0123456789ABCDEF
`

func noEnv(string) (string, bool) { return "", false }

func TestParseAppliesDefaults(t *testing.T) {
	cfg, err := Parse([]byte(minimal), noEnv)
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if cfg.Display.Name != "Oleandri Printer" || cfg.Display.Driver != "auto" || cfg.Display.I2CBus != "1" {
		t.Fatalf("display defaults not applied: %+v", cfg.Display)
	}
	if cfg.Poller.Interval() != 5*time.Second {
		t.Fatalf("poll interval = %v", cfg.Poller.Interval())
	}
	if cfg.Display.Refresh() != 1500*time.Millisecond {
		t.Fatalf("refresh = %v", cfg.Display.Refresh())
	}
	if cfg.OctoPrint.Timeout() != 4*time.Second {
		t.Fatalf("timeout = %v", cfg.OctoPrint.Timeout())
	}
	if cfg.Web.Listen != ":8080" || cfg.MQTT.Port != 1883 || cfg.MQTT.Topic != "octolcd/status" {
		t.Fatalf("web/mqtt defaults not applied: %+v %+v", cfg.Web, cfg.MQTT)
	}
}

func TestParseFullFile(t *testing.T) {
	data := minimal + `
display:
  name: Bench Prusa
  driver: hd44780
  i2c_address: 0x3F
  refresh_ms: 1000
poller:
  interval_ms: 2000
mqtt:
  enabled: true
  broker: mqtt.lan
`
	cfg, err := Parse([]byte(data), noEnv)
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if cfg.Display.I2CAddress != 0x3F || cfg.Display.Driver != "hd44780" || cfg.Display.Name != "Bench Prusa" {
		t.Fatalf("display = %+v", cfg.Display)
	}
	if cfg.Poller.IntervalMS != 2000 || cfg.MQTT.Broker != "mqtt.lan" || cfg.MQTT.Port != 1883 {
		t.Fatalf("unexpected config %+v", cfg)
	}
}

func TestParseEnvOverrides(t *testing.T) {
	env := map[string]string{EnvHost: "10.0.0.5", EnvAPIKey: "fromenv", EnvListen: ":9090"}
	lookup := func(k string) (string, bool) { v, ok := env[k]; return v, ok }
	cfg, err := Parse([]byte("web: {enabled: true}\n"), lookup)
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if cfg.OctoPrint.Host != "10.0.0.5" || cfg.OctoPrint.APIKey != "fromenv" || cfg.Web.Listen != ":9090" {
		t.Fatalf("env overrides not applied: %+v", cfg)
	}
}

func TestParseValidation(t *testing.T) {
	cases := map[string]string{
		"missing host":      "octoprint: {api_key: k}",
		"missing key":       "octoprint: {host: h}",
		"long name":         minimal + "display: {name: This name is far too long}",
		"unknown driver":    minimal + "display: {driver: oled}",
		"zero interval":     minimal + "poller: {interval_ms: 0}",
		"negative refresh":  minimal + "display: {refresh_ms: -1}",
		"bad address":       minimal + "display: {i2c_address: 0x80}",
		"mqtt no broker":    minimal + "mqtt: {enabled: true}",
		"web without addr":  minimal + "web: {enabled: true, listen: ''}",
		"zero fetch budget": "octoprint: {host: h, api_key: k, timeout_ms: 0}",
	}
	for name, data := range cases {
		_, err := Parse([]byte(data), noEnv)
		if !errors.Is(err, ErrInvalid) {
			t.Fatalf("%s: expected ErrInvalid, got %v", name, err)
		}
	}
}

func TestParseRejectsBadYAML(t *testing.T) {
	_, err := Parse([]byte("octoprint: [unclosed"), noEnv)
	if err == nil || errors.Is(err, ErrInvalid) {
		t.Fatalf("expected a parse error, got %v", err)
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "octolcd.yaml")
	if err := os.WriteFile(path, []byte(minimal), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv(EnvHost, "")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.OctoPrint.Host != "octopi.local" {
		t.Fatalf("host = %q", cfg.OctoPrint.Host)
	}
	if _, err := Load(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestPrintMasksSecrets(t *testing.T) {
	cfg, err := Parse([]byte(minimal+"mqtt: {enabled: true, broker: b, password: hunter2}\n"), noEnv)
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	var buf bytes.Buffer
	cfg.Print(&buf)
	out := buf.String()
	if strings.Contains(out, "0123456789ABCDEF") || strings.Contains(out, "hunter2") {
		t.Fatalf("secret leaked: %s", out)
	}
	if !strings.Contains(out, "****CDEF") || !strings.Contains(out, "MQTT: b:1883") {
		t.Fatalf("unexpected summary: %s", out)
	}
}
