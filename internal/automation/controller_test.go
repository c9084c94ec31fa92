package automation

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/nerrad567/gray-logic-snooze/internal/infrastructure/mqtt"
)

type publishedMessage struct {
	topic    string
	payload  []byte
	qos      byte
	retained bool
}

type mockMQTT struct {
	mu        sync.Mutex
	published []publishedMessage
	err       error

	subscribedTopic string
	handler         mqtt.MessageHandler
	subErr          error
}

func (m *mockMQTT) Publish(topic string, payload []byte, qos byte, retained bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.published = append(m.published, publishedMessage{topic, payload, qos, retained})
	return nil
}

func (m *mockMQTT) Subscribe(topic string, _ byte, handler mqtt.MessageHandler) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.subErr != nil {
		return m.subErr
	}
	m.subscribedTopic = topic
	m.handler = handler
	return nil
}

func TestController_SetEnabled(t *testing.T) {
	reg, _ := newTestRegistry(t)
	pub := &mockMQTT{}
	ctrl := NewController(reg, pub, 1, nil)
	ctx := context.Background()

	if !ctrl.SetEnabled(ctx, "automation.hall_lights", false) {
		t.Fatal("SetEnabled() = false, want true")
	}
	if len(pub.published) != 1 {
		t.Fatalf("published = %d, want 1", len(pub.published))
	}

	msg := pub.published[0]
	if msg.topic != "graylogic/command/automation/automation.hall_lights" {
		t.Errorf("topic = %q", msg.topic)
	}
	if msg.qos != 1 || msg.retained {
		t.Errorf("qos=%d retained=%v, want 1/false", msg.qos, msg.retained)
	}

	var cmd commandPayload
	if err := json.Unmarshal(msg.payload, &cmd); err != nil {
		t.Fatalf("payload: %v", err)
	}
	if cmd.Command != "disable" || cmd.Enabled || cmd.EntityID != "automation.hall_lights" || cmd.Source != "snooze" || cmd.ID == "" {
		t.Errorf("command = %+v", cmd)
	}

	a, _ := reg.GetAutomation(ctx, "automation.hall_lights")
	if a.Enabled {
		t.Error("registry not updated after successful disable")
	}
}

func TestController_SetEnabledFailures(t *testing.T) {
	ctx := context.Background()

	t.Run("unknown automation", func(t *testing.T) {
		reg, _ := newTestRegistry(t)
		pub := &mockMQTT{}
		if NewController(reg, pub, 1, nil).SetEnabled(ctx, "automation.gone", true) {
			t.Error("SetEnabled() = true for unknown automation")
		}
		if len(pub.published) != 0 {
			t.Error("command published for unknown automation")
		}
	})

	t.Run("no mqtt", func(t *testing.T) {
		reg, _ := newTestRegistry(t)
		if NewController(reg, nil, 1, nil).SetEnabled(ctx, "automation.porch", false) {
			t.Error("SetEnabled() = true without MQTT")
		}
	})

	t.Run("publish error", func(t *testing.T) {
		reg, _ := newTestRegistry(t)
		pub := &mockMQTT{err: mqtt.ErrNotConnected}
		if NewController(reg, pub, 1, nil).SetEnabled(ctx, "automation.porch", false) {
			t.Error("SetEnabled() = true on publish failure")
		}
		a, _ := reg.GetAutomation(ctx, "automation.porch")
		if !a.Enabled {
			t.Error("registry changed despite publish failure")
		}
	})
}

func TestController_HandleStateReport(t *testing.T) {
	reg, _ := newTestRegistry(t)
	ctrl := NewController(reg, &mockMQTT{}, 1, nil)
	ctx := context.Background()

	topic := mqtt.Topics{}.AutomationState("automation.porch")
	if err := ctrl.HandleStateReport(topic, []byte(`{"enabled":false}`)); err != nil {
		t.Fatalf("HandleStateReport() error = %v", err)
	}
	a, _ := reg.GetAutomation(ctx, "automation.porch")
	if a.Enabled {
		t.Error("state report not applied")
	}

	tests := []struct {
		name    string
		topic   string
		payload string
		wantErr bool
	}{
		{"unregistered", mqtt.Topics{}.AutomationState("automation.other"), `{"enabled":true}`, false},
		{"bad topic", "graylogic/state/knx/x", `{"enabled":true}`, true},
		{"bad json", topic, `{`, true},
		{"missing field", topic, `{}`, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ctrl.HandleStateReport(tt.topic, []byte(tt.payload))
			if (err != nil) != tt.wantErr {
				t.Errorf("HandleStateReport() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestController_Subscribe(t *testing.T) {
	reg, _ := newTestRegistry(t)
	sub := &mockMQTT{}
	ctrl := NewController(reg, sub, 1, nil)

	if err := ctrl.Subscribe(sub); err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}
	if sub.subscribedTopic != "graylogic/state/automation/+" || sub.handler == nil {
		t.Fatalf("subscribed to %q", sub.subscribedTopic)
	}
	if err := sub.handler(mqtt.Topics{}.AutomationState("automation.porch"), []byte(`{"enabled":false}`)); err != nil {
		t.Errorf("handler error = %v", err)
	}

	sub.subErr = errors.New("refused")
	if err := ctrl.Subscribe(sub); err == nil {
		t.Error("Subscribe() expected error")
	}
}
