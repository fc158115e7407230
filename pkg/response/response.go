// Package response defines the JSON envelope returned by the HTTP API.
package response

const (
	StatusSuccess = "success"
	StatusError   = "error"
)

type Response struct {
	Status  string `json:"status"`
	Error   string `json:"error,omitempty"`
	Message string `json:"message"`
	Details []any  `json:"details,omitempty"`
	Data    any    `json:"data,omitempty"`
}

var EmptyRequestBodyResponse = Response{
	Status:  StatusError,
	Error:   "Empty Request Body",
	Message: "Request body is empty. Please provide necessary data.",
}

var BadRequestResponse = Response{
	Status:  StatusError,
	Error:   "Bad Request",
	Message: "The request could not be processed.",
}

var ResourceNotFoundResponse = Response{
	Status:  StatusError,
	Error:   "Resource Not Found",
	Message: "The requested resource was not found.",
}

var InvalidShortCodeResponse = Response{
	Status:  StatusError,
	Error:   "Invalid Short Code",
	Message: "Short code must be between 3 and 15 characters long.",
}

var MalformedRecordResponse = Response{
	Status:  StatusError,
	Error:   "Malformed Record",
	Message: "The stored URL is not a valid absolute http or https URL.",
}

var GenerationExhaustedResponse = Response{
	Status:  StatusError,
	Error:   "Generation Exhausted",
	Message: "Unable to generate a unique short code. Please try again.",
}

var CodeCollisionResponse = Response{
	Status:  StatusError,
	Error:   "Short Code Collision",
	Message: "Please try again to generate a new short code.",
}

var ServerErrorResponse = Response{
	Status:  StatusError,
	Error:   "Server Error",
	Message: "An internal server error occurred. Please try again later.",
}

func SuccessResponse(msg string, data ...any) Response {
	resp := Response{
		Status:  StatusSuccess,
		Message: msg,
	}

	if len(data) > 0 {
		resp.Data = data[0]
	}

	return resp
}
