package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/url"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

const (
	mqttQoS         = 1
	mqttWaitTimeout = 3 * time.Second
)

type mqttClient interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
}

// MQTTPublisher gửi event tới broker MQTT theo topic <base>/<created|updated|deleted>
type MQTTPublisher struct {
	client mqttClient
	topic  string
}

// NewMQTTPublisher kết nối tới broker, ví dụ tcp://localhost:1883/tasks
func NewMQTTPublisher(rawURL string) (*MQTTPublisher, error) {
	uri, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse MQTT_URL: %w", err)
	}

	topic := strings.Trim(uri.Path, "/")
	if topic == "" {
		topic = "tasks"
	}

	client := mqtt.NewClient(createClientOptions("task-api", uri))
	token := client.Connect()
	if !token.WaitTimeout(mqttWaitTimeout) {
		return nil, fmt.Errorf("connect to MQTT broker %s: timeout", uri.Host)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connect to MQTT broker %s: %w", uri.Host, err)
	}

	log.Printf("MQTT publisher connected to %s (topic %s)", uri.Host, topic)
	return newMQTTPublisher(client, topic), nil
}

func newMQTTPublisher(client mqttClient, topic string) *MQTTPublisher {
	return &MQTTPublisher{client: client, topic: topic}
}

func createClientOptions(clientID string, uri *url.URL) *mqtt.ClientOptions {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("tcp://%s", uri.Host))
	if uri.User != nil {
		opts.SetUsername(uri.User.Username())
		password, _ := uri.User.Password()
		opts.SetPassword(password)
	}
	opts.SetClientID(clientID)
	opts.SetAutoReconnect(true)
	return opts
}

func (p *MQTTPublisher) topicFor(t Type) string {
	return p.topic + "/" + strings.TrimPrefix(string(t), "task.")
}

func (p *MQTTPublisher) Publish(_ context.Context, ev Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	token := p.client.Publish(p.topicFor(ev.Type), mqttQoS, false, payload)
	if !token.WaitTimeout(mqttWaitTimeout) {
		return fmt.Errorf("publish %s: timeout", ev.Type)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish %s: %w", ev.Type, err)
	}
	return nil
}

func (p *MQTTPublisher) Close() {
	if c, ok := p.client.(mqtt.Client); ok {
		c.Disconnect(250)
	}
}
