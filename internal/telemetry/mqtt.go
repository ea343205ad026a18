// Package telemetry publishes regulator status to an MQTT broker.
package telemetry

import (
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/san-kum/heatloop/internal/logs"
	"github.com/san-kum/heatloop/internal/regulator"
)

var ErrTimeout = errors.New("telemetry: publish timed out")

type Options struct {
	Broker      string
	ClientID    string
	Username    string
	Password    string
	CACert      string
	Topic       string
	QoS         byte
	Retained    bool
	KeepAlive   time.Duration
	PingTimeout time.Duration
	// Timeout bounds each publish. Zero waits forever.
	Timeout time.Duration
}

func DefaultOptions() Options {
	return Options{
		Broker:      "tcp://localhost:1883",
		ClientID:    "heatloop",
		Topic:       "heatloop/status",
		KeepAlive:   60 * time.Second,
		PingTimeout: 10 * time.Second,
		Timeout:     5 * time.Second,
	}
}

// Message is the JSON payload of one status update.
type Message struct {
	regulator.Status
	Time int64 `json:"time"`
}

func Encode(s regulator.Status, at time.Time) ([]byte, error) {
	return json.Marshal(Message{Status: s, Time: at.UnixMilli()})
}

type MQTTSink struct {
	c       paho.Client
	log     *logs.Loggers
	opts    Options
	nowFunc func() time.Time
}

func addCACert(opts *paho.ClientOptions, caCert string) (*paho.ClientOptions, error) {
	rootCAs, _ := x509.SystemCertPool()
	if rootCAs == nil {
		rootCAs = x509.NewCertPool()
	}

	certs, err := os.ReadFile(caCert)
	if err != nil {
		return nil, fmt.Errorf("failed to append %q to root CAs: %w", caCert, err)
	}
	if ok := rootCAs.AppendCertsFromPEM(certs); !ok {
		paho.WARN.Println("No certs appended, using system certs only")
	}
	return opts.SetTLSConfig(&tls.Config{RootCAs: rootCAs}), nil
}

// NewMQTTSink builds a client for opts and routes paho's logging to l.
// Connect must be called before publishing.
func NewMQTTSink(l *logs.Loggers, opts Options) (*MQTTSink, error) {
	if opts.Topic == "" {
		return nil, errors.New("telemetry: topic must not be empty")
	}
	paho.DEBUG = l.Info
	paho.WARN = l.Warn
	paho.ERROR = l.Error
	paho.CRITICAL = l.Critical

	co := paho.NewClientOptions().
		AddBroker(opts.Broker).
		SetKeepAlive(opts.KeepAlive).
		SetPingTimeout(opts.PingTimeout).
		SetAutoReconnect(true)
	if opts.Username != "" {
		co = co.SetUsername(opts.Username)
	}
	if opts.Password != "" {
		co = co.SetPassword(opts.Password)
	}
	if opts.ClientID != "" {
		co = co.SetClientID(opts.ClientID)
	}
	if opts.CACert != "" {
		var err error
		co, err = addCACert(co, opts.CACert)
		if err != nil {
			return nil, err
		}
	}

	return newSink(paho.NewClient(co), l, opts), nil
}

func newSink(c paho.Client, l *logs.Loggers, opts Options) *MQTTSink {
	return &MQTTSink{c: c, log: l, opts: opts, nowFunc: time.Now}
}

func (m *MQTTSink) Connect() error {
	if token := m.c.Connect(); token.Wait() && token.Error() != nil {
		return token.Error()
	}
	m.log.Info.Printf("Connected to '%s'", m.opts.Broker)
	return nil
}

func (m *MQTTSink) Publish(s regulator.Status) error {
	payload, err := Encode(s, m.nowFunc())
	if err != nil {
		return err
	}
	token := m.c.Publish(m.opts.Topic, m.opts.QoS, m.opts.Retained, payload)
	if m.opts.Timeout > 0 {
		if !token.WaitTimeout(m.opts.Timeout) {
			return ErrTimeout
		}
	} else {
		token.Wait()
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish failed for topic '%s': %w", m.opts.Topic, err)
	}
	return nil
}

func (m *MQTTSink) Close() {
	m.c.Disconnect(250)
}
