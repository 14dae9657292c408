package services

// GatewayError carries a message suitable for direct user display, produced
// when an external service rejects a request.
type GatewayError struct {
	Message string
}

func (e *GatewayError) Error() string {
	return e.Message
}
