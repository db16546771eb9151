package hass

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testOrgID = "12345678-1234-1234-1234-123456789ABC"

func docFields(t *testing.T, v any) map[string]any {
	t.Helper()
	payload, err := json.Marshal(v)
	require.NoError(t, err)
	var fields map[string]any
	require.NoError(t, json.Unmarshal(payload, &fields))
	return fields
}

func TestTopics(t *testing.T) {
	topics := NewTopics("quandify2mqtt", "homeassistant", testOrgID)

	org := "12345678-1234-1234-1234-123456789abc"
	assert.Equal(t, "quandify2mqtt/"+org+"/availability", topics.Availability())
	assert.Equal(t, "quandify2mqtt/"+org+"/water_daily/state", topics.DailyState())
	assert.Equal(t, "quandify2mqtt/"+org+"/water_hourly/state", topics.HourlyState())
	assert.Equal(t, "quandify2mqtt/"+org+"/last_update/state", topics.LastUpdateState())
	assert.Equal(t, "homeassistant/sensor/quandify_"+org+"_water_consumption/config", topics.DailyConfig())
	assert.Equal(t, "homeassistant/sensor/quandify_"+org+"_water_last_hour/config", topics.HourlyConfig())
	assert.Equal(t, "homeassistant/sensor/quandify_"+org+"_last_update/config", topics.LastUpdateConfig())
	assert.Equal(t, "homeassistant/status", topics.HomeAssistantStatus())
}

func TestTopicsTrimTrailingSlash(t *testing.T) {
	topics := NewTopics("bridge/", "ha/", testOrgID)
	assert.Equal(t, "bridge/12345678-1234-1234-1234-123456789abc/availability", topics.Availability())
	assert.Equal(t, "ha/status", topics.HomeAssistantStatus())
}

func TestDailySensorDocument(t *testing.T) {
	topics := NewTopics("quandify2mqtt", "homeassistant", testOrgID)
	fields := docFields(t, DailySensor(topics))

	assert.Equal(t, "water", fields["device_class"])
	assert.Equal(t, "total_increasing", fields["state_class"])
	assert.Equal(t, "L", fields["unit_of_measurement"])
	assert.Equal(t, "mdi:water", fields["icon"])
	assert.Equal(t, float64(1), fields["suggested_display_precision"])
	assert.Equal(t, "Water Consumption", fields["name"])
	assert.Equal(t, "quandify_12345678-1234-1234-1234-123456789abc_water_consumption", fields["unique_id"])
	assert.Equal(t, topics.DailyState(), fields["state_topic"])

	availability, ok := fields["availability"].([]any)
	require.True(t, ok)
	require.Len(t, availability, 1)
	entry := availability[0].(map[string]any)
	assert.Equal(t, topics.Availability(), entry["topic"])
	assert.Equal(t, "online", entry["payload_available"])
	assert.Equal(t, "offline", entry["payload_not_available"])
}

func TestHourlySensorDocument(t *testing.T) {
	topics := NewTopics("quandify2mqtt", "homeassistant", testOrgID)
	fields := docFields(t, HourlySensor(topics))

	assert.Equal(t, "water", fields["device_class"])
	assert.Equal(t, "measurement", fields["state_class"], "a sliding window is not a total")
	assert.Equal(t, "L", fields["unit_of_measurement"])
	assert.Equal(t, "mdi:water-pump", fields["icon"])
	assert.Equal(t, "quandify_12345678-1234-1234-1234-123456789abc_water_last_hour", fields["unique_id"])
	assert.Equal(t, topics.HourlyState(), fields["state_topic"])
}

func TestLastUpdateSensorDocument(t *testing.T) {
	topics := NewTopics("quandify2mqtt", "homeassistant", testOrgID)
	fields := docFields(t, LastUpdateSensor(topics))

	assert.Equal(t, "timestamp", fields["device_class"])
	assert.Equal(t, "diagnostic", fields["entity_category"])
	assert.NotContains(t, fields, "unit_of_measurement")
	assert.NotContains(t, fields, "state_class")
}

func TestDeviceDocument(t *testing.T) {
	topics := NewTopics("quandify2mqtt", "homeassistant", testOrgID)
	fields := docFields(t, Device(topics))

	assert.Equal(t, "Quandify Water Monitor", fields["name"])
	assert.Equal(t, "Quandify", fields["manufacturer"])
	assert.Equal(t, "Water Consumption Monitor", fields["model"])
	identifiers, ok := fields["identifiers"].([]any)
	require.True(t, ok)
	assert.Equal(t, []any{"quandify-12345678-1234-1234-1234-123456789abc"}, identifiers)
}

func TestSensorsShareDevice(t *testing.T) {
	topics := NewTopics("quandify2mqtt", "homeassistant", testOrgID)

	daily := DailySensor(topics)
	hourly := HourlySensor(topics)
	lastUpdate := LastUpdateSensor(topics)
	require.NotNil(t, daily.Device)
	require.NotNil(t, hourly.Device)
	require.NotNil(t, lastUpdate.Device)
	assert.Equal(t, daily.Device.Identifiers, hourly.Device.Identifiers)
	assert.Equal(t, daily.Device.Identifiers, lastUpdate.Device.Identifiers)
}
