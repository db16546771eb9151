package hass

import (
	"strings"

	"github.com/quandify2mqtt/quandify2mqtt/internal/common"
)

// Availability payloads shared by the will message, the availability topic
// and every discovery document.
const (
	PayloadAvailable    = "online"
	PayloadNotAvailable = "offline"
)

// State classes understood by Home Assistant sensors.
const (
	StateClassMeasurement     = "measurement"
	StateClassTotalIncreasing = "total_increasing"
)

// DeviceModel groups the published entities under one device in the Home
// Assistant registry.
type DeviceModel struct {
	Identifiers     []string `json:"identifiers,omitempty"`
	Manufacturer    string   `json:"manufacturer,omitempty"`
	Model           string   `json:"model,omitempty"`
	Name            string   `json:"name,omitempty"`
	SoftwareVersion string   `json:"sw_version,omitempty"`
}

// AvailabilityModel tells Home Assistant where to watch for bridge liveness.
type AvailabilityModel struct {
	Topic               string `json:"topic"`
	PayloadAvailable    string `json:"payload_available,omitempty"`
	PayloadNotAvailable string `json:"payload_not_available,omitempty"`
}

// EntityModel carries the discovery fields common to all entity types.
type EntityModel struct {
	Availability   []AvailabilityModel `json:"availability,omitempty"`
	Device         *DeviceModel        `json:"device,omitempty"`
	DeviceClass    string              `json:"device_class,omitempty"`
	EntityCategory string              `json:"entity_category,omitempty"`
	Icon           string              `json:"icon,omitempty"`
	Name           string              `json:"name,omitempty"`
	StateTopic     string              `json:"state_topic,omitempty"`
	UniqueID       string              `json:"unique_id,omitempty"`
}

// SensorModel is the discovery document for an MQTT sensor.
type SensorModel struct {
	EntityModel

	SuggestedDisplayPrecision int    `json:"suggested_display_precision,omitempty"`
	StateClass                string `json:"state_class,omitempty"`
	UnitOfMeasurement         string `json:"unit_of_measurement,omitempty"`
}

// Topics derives every MQTT topic the bridge touches from the two prefixes
// and the organization id.
type Topics struct {
	prefix          string
	discoveryPrefix string
	org             string
}

func NewTopics(prefix, discoveryPrefix, organizationID string) Topics {
	return Topics{
		prefix:          strings.TrimSuffix(prefix, "/"),
		discoveryPrefix: strings.TrimSuffix(discoveryPrefix, "/"),
		org:             strings.ToLower(organizationID),
	}
}

func (t Topics) Availability() string { return t.prefix + "/" + t.org + "/availability" }

func (t Topics) DailyState() string      { return t.prefix + "/" + t.org + "/water_daily/state" }
func (t Topics) HourlyState() string     { return t.prefix + "/" + t.org + "/water_hourly/state" }
func (t Topics) LastUpdateState() string { return t.prefix + "/" + t.org + "/last_update/state" }

func (t Topics) DailyConfig() string {
	return t.discoveryPrefix + "/sensor/" + t.dailyUniqueID() + "/config"
}

func (t Topics) HourlyConfig() string {
	return t.discoveryPrefix + "/sensor/" + t.hourlyUniqueID() + "/config"
}

func (t Topics) LastUpdateConfig() string {
	return t.discoveryPrefix + "/sensor/" + t.lastUpdateUniqueID() + "/config"
}

// HomeAssistantStatus is the birth/will topic of Home Assistant itself.
func (t Topics) HomeAssistantStatus() string { return t.discoveryPrefix + "/status" }

func (t Topics) dailyUniqueID() string      { return "quandify_" + t.org + "_water_consumption" }
func (t Topics) hourlyUniqueID() string     { return "quandify_" + t.org + "_water_last_hour" }
func (t Topics) lastUpdateUniqueID() string { return "quandify_" + t.org + "_last_update" }

// Device returns the shared device document for the organization.
func Device(t Topics) DeviceModel {
	return DeviceModel{
		Identifiers:     []string{"quandify-" + t.org},
		Manufacturer:    "Quandify",
		Model:           "Water Consumption Monitor",
		Name:            "Quandify Water Monitor",
		SoftwareVersion: "quandify2mqtt " + common.Version(),
	}
}

func availability(t Topics) []AvailabilityModel {
	return []AvailabilityModel{{
		Topic:               t.Availability(),
		PayloadAvailable:    PayloadAvailable,
		PayloadNotAvailable: PayloadNotAvailable,
	}}
}

// DailySensor describes the since-midnight consumption total. The state
// resets at local midnight, which total_increasing models for the Energy
// dashboard.
func DailySensor(t Topics) SensorModel {
	device := Device(t)
	return SensorModel{
		EntityModel: EntityModel{
			Availability: availability(t),
			Device:       &device,
			DeviceClass:  "water",
			Icon:         "mdi:water",
			Name:         "Water Consumption",
			StateTopic:   t.DailyState(),
			UniqueID:     t.dailyUniqueID(),
		},
		SuggestedDisplayPrecision: 1,
		StateClass:                StateClassTotalIncreasing,
		UnitOfMeasurement:         "L",
	}
}

// HourlySensor describes the sliding last-hour total. The window moves, so
// the value can fall as well as rise and is a measurement, not a total.
func HourlySensor(t Topics) SensorModel {
	device := Device(t)
	return SensorModel{
		EntityModel: EntityModel{
			Availability: availability(t),
			Device:       &device,
			DeviceClass:  "water",
			Icon:         "mdi:water-pump",
			Name:         "Hourly Water Consumption",
			StateTopic:   t.HourlyState(),
			UniqueID:     t.hourlyUniqueID(),
		},
		SuggestedDisplayPrecision: 1,
		StateClass:                StateClassMeasurement,
		UnitOfMeasurement:         "L",
	}
}

// LastUpdateSensor exposes the last successful refresh as a diagnostic
// timestamp entity.
func LastUpdateSensor(t Topics) SensorModel {
	device := Device(t)
	return SensorModel{
		EntityModel: EntityModel{
			Availability:   availability(t),
			Device:         &device,
			DeviceClass:    "timestamp",
			EntityCategory: "diagnostic",
			Icon:           "mdi:clock-check-outline",
			Name:           "Last Update",
			StateTopic:     t.LastUpdateState(),
			UniqueID:       t.lastUpdateUniqueID(),
		},
	}
}
