package identity

import (
	"github.com/nerrad567/gray-logic-zigbee/internal/capability"
	"github.com/nerrad567/gray-logic-zigbee/internal/profile"
)

// DefaultCatalog returns the built-in fingerprint and descriptor tables.
// Each call returns a fresh copy.
func DefaultCatalog() Catalog {
	return Catalog{
		Fingerprints: []Fingerprint{
			// Two-channel bidirectional meters (PJ-1203A family)
			{Pattern: "_TZE204_81yrt3lo", Profile: profile.DualChannelMeter},
			{Pattern: "_TZE200_rks0sgb7", Profile: profile.DualChannelMeter},
			{Pattern: "PJ-1203A", Profile: profile.DualChannelMeter},

			// Climate
			{Pattern: "_TZE200_bjawzodf", Profile: profile.ClimateSensor},
			{Pattern: "_TZE284_vvmbj46n", Profile: profile.ClimateSensor},

			// Presence radar
			{Pattern: "_TZE204_sxm7l9xa", Profile: profile.PresenceRadar},
			{Pattern: "_TZE200_ztc6ggyl", Profile: profile.PresenceRadar},

			// Model ids last: a manufacturer match is more specific.
			{Pattern: "TS011F", Profile: profile.SingleChannelMeter},
			{Pattern: "TS0201", Profile: profile.ClimateSensor},
			{Pattern: "TS004", Profile: profile.SceneButton},
			{Pattern: "TS000", Profile: profile.WallSwitch},
		},
		Fallback: profile.GenericTuya,
		Entries: []Entry{
			// Exact
			{
				Model:        "TS0601",
				Manufacturer: "_TZE204_81yrt3lo",
				Descriptor:   dualMeterDescriptor(),
			},
			{
				Model:        "TS0601",
				Manufacturer: "_TZE200_rks0sgb7",
				Descriptor:   dualMeterDescriptor(),
			},
			{
				Model:        "TS0601",
				Manufacturer: "_TZE204_sxm7l9xa",
				Descriptor:   radarDescriptor(),
			},

			// Prefix
			{
				ManufacturerPrefix: "_TZE200_bjawz",
				Model:              "TS0601",
				Descriptor:         climateDescriptor("lcd"),
			},
			{
				ManufacturerPrefix: "_TZE284_",
				Model:              "TS0601",
				Descriptor:         climateDescriptor("e-ink"),
			},
			{
				ManufacturerPrefix: "_TZE200_ztc6",
				Model:              "TS0601",
				Descriptor:         radarDescriptor(),
			},

			// Model only
			{Model: "TS011F", Descriptor: plugDescriptor()},
			{Model: "TS0201", Descriptor: climateDescriptor("")},
			{Model: "TS0041", Descriptor: buttonDescriptor("1_gang")},
			{Model: "TS0042", Descriptor: buttonDescriptor("2_gang")},
			{Model: "TS0043", Descriptor: buttonDescriptor("3_gang")},
			{Model: "TS0044", Descriptor: buttonDescriptor("4_gang")},
			{Model: "TS0001", Descriptor: switchDescriptor("1_gang")},
			{Model: "TS0002", Descriptor: switchDescriptor("2_gang")},
			{Model: "TS0003", Descriptor: switchDescriptor("3_gang")},
			{Model: "TS0004", Descriptor: switchDescriptor("4_gang")},
		},
	}
}

func dualMeterDescriptor() Descriptor {
	return Descriptor{
		CanonicalType: "energy_meter",
		SubType:       "bidirectional_2ch",
		Class:         capability.ClassSensor,
		PowerSource:   PowerMains,
		Capabilities: []capability.Capability{
			capability.MeasurePower,
			capability.MeasurePower.Sub("a"),
			capability.MeasurePower.Sub("b"),
			capability.MeterPower,
			capability.MeterPower.Sub("a"),
			capability.MeterPower.Sub("b"),
			capability.MeasureCurrent.Sub("a"),
			capability.MeasureCurrent.Sub("b"),
			capability.MeasureVoltage,
			capability.MeasureFrequency,
		},
		RecommendedProfile: profile.DualChannelMeter,
	}
}

func plugDescriptor() Descriptor {
	return Descriptor{
		CanonicalType: "smart_plug",
		SubType:       "metering",
		Class:         capability.ClassSocket,
		PowerSource:   PowerMains,
		Capabilities: []capability.Capability{
			capability.OnOff,
			capability.MeasurePower,
			capability.MeterPower,
			capability.MeasureVoltage,
			capability.MeasureCurrent,
		},
		RecommendedProfile: profile.SingleChannelMeter,
	}
}

func climateDescriptor(sub string) Descriptor {
	return Descriptor{
		CanonicalType: "climate_sensor",
		SubType:       sub,
		Class:         capability.ClassSensor,
		PowerSource:   PowerBattery,
		Capabilities: []capability.Capability{
			capability.MeasureTemperature,
			capability.MeasureHumidity,
			capability.MeasureBattery,
			capability.AlarmBattery,
		},
		RecommendedProfile: profile.ClimateSensor,
	}
}

func radarDescriptor() Descriptor {
	return Descriptor{
		CanonicalType: "presence_sensor",
		SubType:       "mmwave",
		Class:         capability.ClassSensor,
		PowerSource:   PowerMains,
		Capabilities: []capability.Capability{
			capability.AlarmMotion,
			capability.MeasureLuminance,
		},
		RecommendedProfile: profile.PresenceRadar,
	}
}

func buttonDescriptor(sub string) Descriptor {
	return Descriptor{
		CanonicalType: "wireless_button",
		SubType:       sub,
		Class:         capability.ClassButton,
		PowerSource:   PowerBattery,
		Capabilities: []capability.Capability{
			capability.Button,
			capability.MeasureBattery,
			capability.AlarmBattery,
		},
		RecommendedProfile: profile.SceneButton,
	}
}

func switchDescriptor(sub string) Descriptor {
	return Descriptor{
		CanonicalType: "wall_switch",
		SubType:       sub,
		Class:         capability.ClassLight,
		PowerSource:   PowerMains,
		Capabilities: []capability.Capability{
			capability.OnOff,
		},
		RecommendedProfile: profile.WallSwitch,
	}
}
