package validation

var customValidationMessages = map[string]map[string]string{
	"email": {
		"required": "email must not be empty",
		"email":    "email is not a valid address",
	},
	"password": {
		"required": "password must not be empty",
		"max":      "password must be at most 72 characters",
	},
	"firstName": {
		"required": "firstName must not be empty",
	},
	"refreshToken": {
		"required": "refreshToken must not be empty",
	},
}

// CustomMessage returns the per-tag messages for a JSON field, or nil.
func CustomMessage(field string) map[string]string {
	return customValidationMessages[field]
}
