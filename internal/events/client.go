// Package events publishes gesture changes and emotion analyses to an MQTT
// broker so other devices on the network can react to them.
package events

import (
	"fmt"
	"log"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

const (
	connectTimeout = 5 * time.Second

	onlinePayload  = "online"
	offlinePayload = "offline"
)

// ClientConfig holds MQTT client configuration.
type ClientConfig struct {
	Broker   string
	ClientID string
	Username string
	Password string
	// Prefix is the topic prefix shared with the Publisher. The client keeps
	// <prefix>/availability at "online" while connected.
	Prefix string
}

// AvailabilityTopic returns the retained topic that reports whether moodcam
// is connected.
func (c ClientConfig) AvailabilityTopic() string {
	return c.Prefix + "/availability"
}

// Connect opens a connection to the broker. It gives up after a few seconds
// so an unreachable broker does not hold up startup.
func Connect(config ClientConfig) (mqtt.Client, error) {
	client := mqtt.NewClient(clientOptions(config))

	token := client.Connect()
	if !token.WaitTimeout(connectTimeout) {
		client.Disconnect(0)
		return nil, fmt.Errorf("connect to MQTT broker %s: timed out after %v", config.Broker, connectTimeout)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connect to MQTT broker %s: %w", config.Broker, err)
	}

	log.Printf("Publishing events to MQTT broker %s under %s/", config.Broker, config.Prefix)
	return client, nil
}

func clientOptions(config ClientConfig) *mqtt.ClientOptions {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(config.Broker)
	opts.SetClientID(config.ClientID)
	opts.SetUsername(config.Username)
	opts.SetPassword(config.Password)
	opts.SetConnectTimeout(connectTimeout)
	opts.SetAutoReconnect(true)
	opts.SetKeepAlive(30 * time.Second)

	// Subscribers see "offline" if moodcam disappears without disconnecting.
	opts.SetWill(config.AvailabilityTopic(), offlinePayload, 1, true)

	opts.SetOnConnectHandler(func(client mqtt.Client) {
		client.Publish(config.AvailabilityTopic(), 1, true, onlinePayload)
	})
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		log.Printf("Lost MQTT connection, events are dropped until it returns: %v", err)
	})
	opts.SetReconnectingHandler(func(mqtt.Client, *mqtt.ClientOptions) {
		log.Printf("Reconnecting to MQTT broker %s", config.Broker)
	})
	return opts
}
