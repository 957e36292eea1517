package response

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
)

type Response struct {
	StatusCode int      `json:"statusCode"`
	Success    bool     `json:"success"`
	Message    string   `json:"message"`
	Data       any      `json:"data,omitempty"`
	Errors     []string `json:"errors,omitempty"`
}

func OK(status int, message string, data any) Response {
	return Response{
		StatusCode: status,
		Success:    status < http.StatusBadRequest,
		Message:    message,
		Data:       data,
	}
}

func Error(status int, message string) Response {
	return Response{
		StatusCode: status,
		Success:    false,
		Message:    message,
	}
}

func ValidationError(errs validator.ValidationErrors) Response {
	var errMsgs []string

	for _, err := range errs {
		field := err.Field()

		switch err.ActualTag() {
		case "required":
			errMsgs = append(errMsgs, fmt.Sprintf("field %s is a required field", field))
		case "email":
			errMsgs = append(errMsgs, fmt.Sprintf("field %s is not a valid email", field))
		case "url":
			errMsgs = append(errMsgs, fmt.Sprintf("field %s is not a valid URL", field))
		case "max":
			errMsgs = append(errMsgs, fmt.Sprintf("field %s must be at most %s characters", field, err.Param()))
		case "required_without":
			errMsgs = append(errMsgs, fmt.Sprintf("field %s is required when %s is empty", field, err.Param()))
		default:
			errMsgs = append(errMsgs, fmt.Sprintf("field %s is not valid", field))
		}
	}

	return Response{
		StatusCode: http.StatusBadRequest,
		Success:    false,
		Message:    strings.Join(errMsgs, ", "),
		Errors:     errMsgs,
	}
}

// Render writes resp with its own status code.
func Render(w http.ResponseWriter, r *http.Request, resp Response) {
	render.Status(r, resp.StatusCode)
	render.JSON(w, r, resp)
}
