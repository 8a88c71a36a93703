package events

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tinkertool/tinker/api/schemas"
	"github.com/tinkertool/tinker/internal/config"
	"go.uber.org/zap/zaptest"
)

func TestTopicMapping(t *testing.T) {
	cases := map[schemas.EventType]string{
		schemas.EventNavigation:    "browser/navigation",
		schemas.EventTabCreated:    "browser/tabs/created",
		schemas.EventTabURLChanged: "browser/tabs/url",
		schemas.EventError:         "browser/error",
	}
	for eventType, want := range cases {
		topic, err := topicFor(eventType)
		require.NoError(t, err)
		assert.Equal(t, want, topic)
	}

	_, err := topicFor("mystery")
	assert.Error(t, err)
}

func TestPublisher_TestModeBypassesBroker(t *testing.T) {
	p := NewPublisher(zaptest.NewLogger(t), config.EventsConfig{
		Enabled:  true,
		Host:     "no-such-broker.invalid",
		Port:     1883,
		ClientID: "tinker-test",
		TestMode: true,
	})

	assert.NoError(t, p.Connect())
	assert.NoError(t, p.Publish(schemas.Navigation("https://example.com")))
	assert.Nil(t, p.client)
	p.Close()
}

func TestPublisher_DisabledBypassesBroker(t *testing.T) {
	p := NewPublisher(zaptest.NewLogger(t), config.EventsConfig{Enabled: false})

	assert.NoError(t, p.Connect())
	assert.NoError(t, p.Publish(schemas.ErrorEvent("boom")))
	p.Close()
}

func TestPublisher_PublishWithoutConnectIsSafe(t *testing.T) {
	p := NewPublisher(zaptest.NewLogger(t), config.EventsConfig{
		Enabled: true,
		Host:    "localhost",
		Port:    1883,
	})

	// No Connect call: events are dropped, not errored.
	assert.NoError(t, p.Publish(schemas.TabCreated(1, "about:blank")))
}
