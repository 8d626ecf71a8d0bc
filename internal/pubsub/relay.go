// Package pubsub carries notification frames between server instances that
// share a state store, so a player can reach a peer connected elsewhere.
package pubsub

import (
	"context"

	"github.com/mcoot/balltoss/internal/model"
)

// Delivery is an encoded frame addressed to one connection. The frame is
// carried as opaque bytes so it arrives exactly as it was encoded.
type Delivery struct {
	To    model.PlayerID `json:"to"`
	Frame []byte         `json:"frame"`
}

// Relay fans deliveries out to every instance
type Relay interface {
	// Publish sends the delivery to all subscribed instances
	Publish(ctx context.Context, d Delivery) error

	// Subscribe calls handle for every delivery until ctx is done
	Subscribe(ctx context.Context, handle func(Delivery)) error
}
