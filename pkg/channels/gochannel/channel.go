// Package gochannel provides the in-process event channel used by
// single-node deployments and tests.
package gochannel

import (
	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

// runtimeBuffer sizes the per-subscriber output channel. A run emits up to
// three events per node, so this covers runs of a few hundred nodes without
// backpressure on the emitter drain goroutine.
const runtimeBuffer = 1024

// CreateChannel returns the publisher/subscriber pair for one process. Both
// ends are the same GoChannel instance, so events published by the executor
// and job workers reach the gateway handlers without leaving the process.
func CreateChannel(logger watermill.LoggerAdapter) (*gochannel.GoChannel, *gochannel.GoChannel, error) {
	return build(gochannel.Config{
		OutputChannelBuffer: runtimeBuffer,
	}, logger)
}

// CreateTestChannel returns a small, persistent, ack-blocking channel:
// Publish returns only once the subscriber has acked, so tests can assert
// on delivery without polling.
func CreateTestChannel(logger watermill.LoggerAdapter) (*gochannel.GoChannel, *gochannel.GoChannel, error) {
	return build(gochannel.Config{
		OutputChannelBuffer:            16,
		Persistent:                     true,
		BlockPublishUntilSubscriberAck: true,
	}, logger)
}

func build(config gochannel.Config, logger watermill.LoggerAdapter) (*gochannel.GoChannel, *gochannel.GoChannel, error) {
	pubSub := gochannel.NewGoChannel(config, logger)

	return pubSub, pubSub, nil
}
