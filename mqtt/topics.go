package mqtt

import (
	"github.com/s0up4200/seerrbridge/sensor"
)

// discoveryConfig is the Home Assistant MQTT sensor discovery payload
type discoveryConfig struct {
	Name                string `json:"name"`
	UniqueID            string `json:"unique_id"`
	ObjectID            string `json:"object_id"`
	Icon                string `json:"icon"`
	StateTopic          string `json:"state_topic"`
	JSONAttributesTopic string `json:"json_attributes_topic"`
	AvailabilityTopic   string `json:"availability_topic"`
	StateClass          string `json:"state_class"`
	Device              device `json:"device"`
}

type device struct {
	Identifiers  []string `json:"identifiers"`
	Name         string   `json:"name"`
	Manufacturer string   `json:"manufacturer"`
}

func (s *Sink) topic(suffix string) string {
	return s.cfg.TopicPrefix + "/" + suffix
}

func (s *Sink) statusTopic() string {
	return s.topic("status")
}

func (s *Sink) stateTopic(sn *sensor.Sensor) string {
	return s.topic("sensor/" + string(sn.Label()) + "/state")
}

func (s *Sink) attributesTopic(sn *sensor.Sensor) string {
	return s.topic("sensor/" + string(sn.Label()) + "/attributes")
}

func (s *Sink) discoveryTopic(sn *sensor.Sensor) string {
	return s.cfg.DiscoveryPrefix + "/sensor/" + sn.UniqueID() + "/config"
}

func (s *Sink) discoveryConfig(sn *sensor.Sensor) discoveryConfig {
	return discoveryConfig{
		Name:                sn.Name(),
		UniqueID:            sn.UniqueID(),
		ObjectID:            sn.UniqueID(),
		Icon:                sn.Icon(),
		StateTopic:          s.stateTopic(sn),
		JSONAttributesTopic: s.attributesTopic(sn),
		AvailabilityTopic:   s.statusTopic(),
		StateClass:          "measurement",
		Device: device{
			Identifiers:  []string{s.cfg.TopicPrefix},
			Name:         "Seerr",
			Manufacturer: "Seerr",
		},
	}
}
