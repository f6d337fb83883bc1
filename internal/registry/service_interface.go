package registry

// Service is the interface for every long-running part of the tracker
type Service interface {
	Start() error
	Stop() error
}
