// Package session drives one game from join to game over.
//
// Run subscribes to the lobby topics, publishes the join request and START,
// then asks the agent for a move on every pacing tick until the server's
// termination message arrives. Inbound messages are copied off the
// transport goroutine onto a bounded channel and applied by a single
// dispatcher, so game states reach the agent in delivery order.
//
//	s, err := session.New(session.Options{
//	    Game:      cfg.Game,
//	    QoS:       byte(cfg.MQTT.QoS),
//	    Transport: mqttClient,
//	    History:   repo,
//	    Logger:    log,
//	})
//	res, err := s.Run(ctx)
package session
