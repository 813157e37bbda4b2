package bridge

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// Forwarder delivers one raw frame to the server.
type Forwarder interface {
	Forward(frame []byte) error
}

// HTTPForwarder posts frames to the server's /api/stm32 endpoint.
type HTTPForwarder struct {
	ServerURL string
	Client    *http.Client
}

func NewHTTPForwarder(serverURL string) *HTTPForwarder {
	return &HTTPForwarder{
		ServerURL: serverURL,
		Client:    &http.Client{Timeout: 5 * time.Second},
	}
}

func (f *HTTPForwarder) Forward(frame []byte) error {
	resp, err := f.Client.Post(f.ServerURL+"/api/stm32", "text/plain", bytes.NewReader(frame))
	if err != nil {
		return fmt.Errorf("post frame: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("post frame: server returned %s", resp.Status)
	}
	return nil
}

// MQTTForwarder publishes frames to the topic the server subscribes to.
type MQTTForwarder struct {
	Client mqtt.Client
	Topic  string
}

func (f *MQTTForwarder) Forward(frame []byte) error {
	token := f.Client.Publish(f.Topic, 1, false, frame)
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("publish timeout for topic %s", f.Topic)
	}
	if token.Error() != nil {
		return fmt.Errorf("publish frame: %w", token.Error())
	}
	return nil
}
