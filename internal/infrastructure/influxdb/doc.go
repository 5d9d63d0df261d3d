// Package influxdb writes game telemetry to InfluxDB.
//
// Every published move and every finished session becomes a point
// (measurements maze_move and maze_session). Writes are non-blocking and
// batched per the batch_size and flush_interval settings; asynchronous
// write failures are reported through SetOnError.
//
//	client, err := influxdb.Connect(ctx, cfg.InfluxDB)
//	if errors.Is(err, influxdb.ErrDisabled) {
//	    // telemetry off
//	}
//	defer client.Close()
//
//	client.WriteMove("TestLobby", "Player4", navigation.Right, from, false)
package influxdb
