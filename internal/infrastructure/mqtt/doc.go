// Package mqtt provides the broker connection for the Zigbee service.
//
// This package manages:
//   - Connection to the broker with auto-reconnect
//   - Synchronous and fire-and-forget publishing
//   - Topic subscriptions, restored after reconnect
//   - Last Will and Testament on the system status topic
//
// # Topics
//
// The Zigbee transport publishes interview results, datapoint frames,
// attribute reports, settings changes and removals under
//
//	{prefix}/zigbee/{kind}/{device}
//
// The service publishes resolved capability values (retained) under
//
//	{prefix}/state/zigbee/{device}/{capability}
//
// # Ordering
//
// Ordered delivery is enabled, so messages for one device reach their
// handler in publish order. Handlers must not block; capability writes go
// out through PublishAsync.
//
// # Usage
//
//	topics := mqtt.NewTopics(cfg.Engine.TopicPrefix)
//	client, err := mqtt.Connect(cfg.MQTT, topics)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	err = client.Subscribe(topics.AllInbound(mqtt.KindDatapoint), 1, handler)
package mqtt
