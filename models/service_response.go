package models

// ServiceResponse is the envelope every endpoint answers with
type ServiceResponse[T any] struct {
	Data      *T     `json:"data"`
	Error     string `json:"error"`
	ErrorKind string `json:"errorKind,omitempty"`
}

func GetServiceResponseOk[T any](data *T) ServiceResponse[T] {
	return ServiceResponse[T]{
		Data:  data,
		Error: "",
	}
}

func GetServiceResponseError(errorKind, errorMessage string) ServiceResponse[any] {
	return ServiceResponse[any]{
		Data:      nil,
		Error:     errorMessage,
		ErrorKind: errorKind,
	}
}

// PingResponse answers the health check
type PingResponse struct {
	Message string `json:"message"`
}
