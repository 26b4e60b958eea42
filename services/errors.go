package services

// ServiceError carries an HTTP status code alongside a user-facing
// message. Internal detail stays in logs, never in the message.
type ServiceError struct {
	StatusCode int
	Message    string
}

func (e *ServiceError) Error() string {
	return e.Message
}

func validationErr(msg string) *ServiceError {
	return &ServiceError{StatusCode: 400, Message: msg}
}

func notFoundErr(msg string) *ServiceError {
	return &ServiceError{StatusCode: 404, Message: msg}
}

func forbiddenErr(msg string) *ServiceError {
	return &ServiceError{StatusCode: 403, Message: msg}
}

func conflictErr(msg string) *ServiceError {
	return &ServiceError{StatusCode: 409, Message: msg}
}

func internalErr(msg string) *ServiceError {
	return &ServiceError{StatusCode: 500, Message: msg}
}
