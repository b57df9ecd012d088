// Package zigbee connects the Zigbee transport to the device semantics
// engine over MQTT.
//
// Inbound topics (see mqtt.Topics):
//
//	graylogic/zigbee/interview/{device}  identity inputs and endpoint layout
//	graylogic/zigbee/datapoint/{device}  Tuya datapoints (split or raw 0xEF00)
//	graylogic/zigbee/attribute/{device}  standard attribute reports
//	graylogic/zigbee/settings/{device}   per-device settings
//	graylogic/zigbee/removed/{device}    device left the network
//
// An interview resolves the interpretation profile, the device-type
// descriptor and the gang topology, registers the device and reconciles its
// capability set through the capability mutator. Capabilities are only ever
// added. Runtime traffic is decoded and dispatched on the device's session
// and every resulting capability value goes to the configured writer,
// normally a Sink that publishes it retained on
// graylogic/state/zigbee/{device}/{capability}.
package zigbee
