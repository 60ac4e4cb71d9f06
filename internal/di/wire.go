//go:build wireinject
// +build wireinject

package di

import (
	"context"

	"github.com/google/wire"
)

// InitializeContainer builds the hub process from configuration.
func InitializeContainer(ctx context.Context) (*Container, func(), error) {
	wire.Build(SuperSet)
	return nil, nil, nil
}
