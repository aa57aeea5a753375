package system

import "context"

// Service is a lifecycle-managed background component. The application starts
// every registered service at boot and stops them in reverse order on
// shutdown.
type Service interface {
	Name() string
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}
