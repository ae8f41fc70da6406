package service

import (
	"github.com/dukapay/payments/internal/model"
	"github.com/dukapay/payments/pkg/gateway"
)

// GatewayRegistry resolves the client that owns a transaction's gateway.
type GatewayRegistry struct {
	clients map[model.Gateway]gateway.Client
}

func NewGatewayRegistry(clients ...gateway.Client) *GatewayRegistry {
	registry := &GatewayRegistry{clients: make(map[model.Gateway]gateway.Client, len(clients))}
	for _, client := range clients {
		registry.clients[model.Gateway(client.Name())] = client
	}

	return registry
}

func (r *GatewayRegistry) ClientFor(gw model.Gateway) (gateway.Client, error) {
	client, ok := r.clients[gw]
	if !ok {
		return nil, ErrUnknownGateway
	}

	return client, nil
}
