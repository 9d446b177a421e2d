// Package publish mirrors printer status to an MQTT broker so home
// automation can follow a print without polling the print server itself.
package publish

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	jsoniter "github.com/json-iterator/go"

	"github.com/rook-computer/octolcd/internal/render"
	"github.com/rook-computer/octolcd/internal/state"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	queueSize      = 16
	publishTimeout = 5 * time.Second
	connectWait    = 10 * time.Second
)

type Logger interface {
	Infof(component string, format string, args ...interface{})
	Errorf(component string, format string, args ...interface{})
}

// MQTTPublisher publishes one retained status message per snapshot.
// Enqueue never blocks the poller; snapshots arriving while the queue is
// full are dropped, the next one supersedes them anyway.
type MQTTPublisher struct {
	Broker   string
	Port     int
	Topic    string
	ClientID string
	Username string
	Password string
	Logger   Logger

	// NewClient builds the paho client; mqtt.NewClient when nil.
	NewClient func(*mqtt.ClientOptions) mqtt.Client
	Now       func() time.Time

	queue   chan *state.Snapshot
	dropped atomic.Uint64
	failing atomic.Bool
}

func NewMQTTPublisher(broker string, port int, topic string) *MQTTPublisher {
	return &MQTTPublisher{
		Broker:   broker,
		Port:     port,
		Topic:    topic,
		ClientID: "octolcd",
		queue:    make(chan *state.Snapshot, queueSize),
	}
}

// Enqueue hands snap to the publish loop and reports whether it was queued.
func (p *MQTTPublisher) Enqueue(snap *state.Snapshot) bool {
	if snap == nil {
		return false
	}
	select {
	case p.queue <- snap:
		return true
	default:
		p.dropped.Add(1)
		return false
	}
}

// Dropped counts snapshots discarded because the queue was full.
func (p *MQTTPublisher) Dropped() uint64 { return p.dropped.Load() }

func (p *MQTTPublisher) BrokerURL() string {
	return fmt.Sprintf("tcp://%s:%d", p.Broker, p.Port)
}

func (p *MQTTPublisher) clientOptions() *mqtt.ClientOptions {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(p.BrokerURL())
	opts.SetClientID(p.ClientID)
	if p.Username != "" {
		opts.SetUsername(p.Username)
		opts.SetPassword(p.Password)
	}
	opts.SetKeepAlive(60 * time.Second)
	opts.SetConnectTimeout(10 * time.Second)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(10 * time.Second)
	opts.SetMaxReconnectInterval(time.Minute)
	opts.SetOrderMatters(false)
	opts.SetOnConnectHandler(func(mqtt.Client) {
		p.infof("connected to %s", p.BrokerURL())
	})
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		p.errorf("connection lost: %v", err)
	})
	return opts
}

// Run connects and publishes queued snapshots until ctx is done. The broker
// being unreachable is not fatal: paho keeps retrying in the background.
func (p *MQTTPublisher) Run(ctx context.Context) error {
	newClient := p.NewClient
	if newClient == nil {
		newClient = mqtt.NewClient
	}
	client := newClient(p.clientOptions())

	token := client.Connect()
	if !token.WaitTimeout(connectWait) {
		p.infof("broker %s not reachable yet, retrying in background", p.BrokerURL())
	} else if err := token.Error(); err != nil {
		p.errorf("connect %s: %v", p.BrokerURL(), err)
	}
	defer client.Disconnect(250)

	for {
		select {
		case <-ctx.Done():
			return nil
		case snap := <-p.queue:
			p.publish(client, snap)
		}
	}
}

func (p *MQTTPublisher) publish(client mqtt.Client, snap *state.Snapshot) {
	payload, err := StatusPayload(snap, p.now())
	if err != nil {
		p.errorf("encode status: %v", err)
		return
	}
	token := client.Publish(p.Topic, 1, true, payload)
	ok := token.WaitTimeout(publishTimeout)
	if ok && token.Error() == nil {
		if p.failing.Swap(false) {
			p.infof("publishing to %s recovered", p.Topic)
		}
		return
	}
	if !p.failing.Swap(true) {
		err := token.Error()
		if !ok {
			err = fmt.Errorf("timed out after %v", publishTimeout)
		}
		p.errorf("publish %s: %v", p.Topic, err)
	}
}

type tempPayload struct {
	Actual *float64 `json:"actual"`
	Target *float64 `json:"target"`
}

type statusPayload struct {
	Printing     bool         `json:"printing"`
	State        *string      `json:"state"`
	File         *string      `json:"file"`
	Completion   *float64     `json:"completion"`
	TimeLeft     *int         `json:"time_left"`
	TimeLeftText string       `json:"time_left_text"`
	Tool         *tempPayload `json:"tool"`
	Bed          *tempPayload `json:"bed"`
	FetchedAt    *time.Time   `json:"fetched_at"`
}

// StatusPayload builds the JSON message for snap. time_left is the server's
// estimate counted down to now, the same value the display shows.
func StatusPayload(snap *state.Snapshot, now time.Time) ([]byte, error) {
	var out statusPayload
	if snap == nil {
		snap = &state.Snapshot{}
	}
	if printer := snap.Printer; printer != nil {
		out.Printing = printer.Printing()
		text := printer.State.Text
		out.State = &text
		out.Tool = toTempPayload(printer.Temperature.Tool0)
		out.Bed = toTempPayload(printer.Temperature.Bed)
	}
	if job := snap.Job; job != nil {
		if job.Job.File.Name != "" {
			name := job.Job.File.Name
			out.File = &name
		}
		out.Completion = job.Progress.Completion
		out.TimeLeft = render.ExtrapolateTimeLeft(job.Progress.PrintTimeLeft, snap.FetchedAt, now)
	}
	out.TimeLeftText = render.FormatTimeLeft(out.TimeLeft)
	if !snap.FetchedAt.IsZero() {
		fetched := snap.FetchedAt.UTC()
		out.FetchedAt = &fetched
	}
	return json.Marshal(out)
}

func toTempPayload(t *state.Temp) *tempPayload {
	if t == nil {
		return nil
	}
	return &tempPayload{Actual: t.Actual, Target: t.Target}
}

func (p *MQTTPublisher) now() time.Time {
	if p.Now != nil {
		return p.Now()
	}
	return time.Now()
}

func (p *MQTTPublisher) infof(format string, args ...interface{}) {
	if p.Logger != nil {
		p.Logger.Infof("mqtt", format, args...)
	}
}

func (p *MQTTPublisher) errorf(format string, args ...interface{}) {
	if p.Logger != nil {
		p.Logger.Errorf("mqtt", format, args...)
	}
}
