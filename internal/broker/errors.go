package broker

import "errors"

var (
	// ErrBrokerConnection indicates the broker could not be reached
	ErrBrokerConnection = errors.New("broker: connection failed")

	// ErrBrokerRequestFailed indicates the broker rejected the request
	ErrBrokerRequestFailed = errors.New("broker: request failed")

	// ErrBrokerInvalidResponse indicates the broker response could not be parsed
	ErrBrokerInvalidResponse = errors.New("broker: invalid response")
)
