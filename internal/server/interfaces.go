package server

// Server is the lifecycle contract for transport servers. RunServer blocks
// until a shutdown signal arrives; Shutdown drains in-flight requests and
// releases resources.
type Server interface {
	RunServer()
	Shutdown()
}
