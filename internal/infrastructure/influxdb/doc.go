// Package influxdb records resolved capability values in InfluxDB.
//
// It wraps the official influxdb-client-go v2 library: a batched,
// non-blocking write API, an error callback for asynchronous failures and
// a ping-based health check. Every numeric or boolean capability value the
// dispatcher emits becomes one point in the "capability" measurement,
// tagged by device, base capability and channel.
//
//	client, err := influxdb.Connect(cfg.InfluxDB)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	client.WriteCapability("meter-1", "measure_power.a", 120.0)
package influxdb
