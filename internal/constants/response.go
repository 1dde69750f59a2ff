package constants

// Standard Response Field Keys
const (
	ResponseFieldMessage = "message"
	ResponseFieldDetails = "details"
	ResponseFieldCode    = "code"
)

// BuildErrorResponse builds the error body every handler returns.
func BuildErrorResponse(message string, details any) map[string]any {
	response := map[string]any{
		ResponseFieldMessage: message,
	}

	if details != nil {
		response[ResponseFieldDetails] = details
	}

	return response
}

// BuildCodedErrorResponse is BuildErrorResponse with the domain error code attached.
func BuildCodedErrorResponse(message, code string, details any) map[string]any {
	response := BuildErrorResponse(message, details)
	if code != "" {
		response[ResponseFieldCode] = code
	}
	return response
}
