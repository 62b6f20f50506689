package api_error

type JSONAPIError struct {
	Msg          string `json:"error"`
	Code         string `json:"code"`
	ErrorDetails string `json:"error_details,omitempty"`
}
