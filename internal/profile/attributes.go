package profile

import (
	"github.com/nerrad567/gray-logic-zigbee/internal/capability"
)

// Attribute names a standard (non-EF00) Zigbee attribute report.
type Attribute string

// Standard attributes.
const (
	AttrOnOff              Attribute = "onOff"
	AttrActivePower        Attribute = "activePower"
	AttrRMSVoltage         Attribute = "rmsVoltage"
	AttrRMSCurrent         Attribute = "rmsCurrent"
	AttrSummationDelivered Attribute = "currentSummationDelivered"
	AttrTemperature        Attribute = "temperature"
	AttrHumidity           Attribute = "humidity"
	AttrBatteryPercentage  Attribute = "batteryPercentageRemaining"
)

// AttributeRule maps an attribute to a capability write.
type AttributeRule struct {
	Capability capability.Capability
	Scale      Scale
	Boolean    bool
}

var attributeRules = map[Attribute]AttributeRule{
	AttrOnOff:              {Capability: capability.OnOff, Boolean: true},
	AttrActivePower:        {Capability: capability.MeasurePower, Scale: Div(10)},
	AttrRMSVoltage:         {Capability: capability.MeasureVoltage, Scale: Div(10)},
	AttrRMSCurrent:         {Capability: capability.MeasureCurrent, Scale: Div(1000)},
	AttrSummationDelivered: {Capability: capability.MeterPower, Scale: Div(100)},
	AttrTemperature:        {Capability: capability.MeasureTemperature, Scale: Div(100)},
	AttrHumidity:           {Capability: capability.MeasureHumidity, Scale: Div(100)},
	// Reported in half-percent units.
	AttrBatteryPercentage: {Capability: capability.MeasureBattery, Scale: Div(2)},
}

// AttributeRuleFor returns the rule for attr.
func AttributeRuleFor(attr Attribute) (AttributeRule, bool) {
	r, ok := attributeRules[attr]
	return r, ok
}
