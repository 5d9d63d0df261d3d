// Package mqtt is the transport adapter between a player and the game
// broker, built on paho.
//
// The first connection is tried once and fails with ErrConnectionFailed.
// After that paho reconnects by itself and the client re-subscribes every
// filter it holds. Publish and Subscribe wait for the broker's
// acknowledgement, bounded by a timeout. Handlers run in arrival order;
// their errors and panics are logged and never stop delivery.
//
// Set cfg.Broker.TLS for anything beyond localhost, and keep credentials
// in credentials.env or the environment rather than config.yaml.
//
//	client, err := mqtt.ConnectWithLogger(cfg.MQTT, logger)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	err = client.Subscribe(game.Topics{}.AllGameStates("TestLobby"), 1,
//	    func(topic string, payload []byte) error {
//	        return inbox.Offer(topic, payload)
//	    })
//
//	err = client.Publish(game.Topics{}.Move("TestLobby", "Player4"), []byte("RIGHT"), 1, false)
package mqtt
