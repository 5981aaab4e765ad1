// Package mqtt provides the MQTT collaborator for owner-thread objects.
//
// This package wraps paho.mqtt.golang with connection management,
// automatic reconnection, and subscription restoration, and layers
// reactor-integrated helpers on top: PublishVia and RequestVia run the
// broker round-trip on the background runtime and deliver the outcome
// to the requesting object's owner thread.
//
// # Features
//
//   - Auto-reconnect with exponential backoff
//   - Last Will and Testament on grayreactor/system/status
//   - Subscriptions restored on reconnect
//   - Panic recovery around message handlers
//   - Owner-thread delivery of publish/request outcomes
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	// From an owner-thread object:
//	mqtt.PublishVia(obj, client, "grayreactor/events", payload, false,
//	    func(o *MyObject, err error) {
//	        // Runs on the owner goroutine.
//	    })
package mqtt
