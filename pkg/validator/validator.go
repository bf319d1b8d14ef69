package validator

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

// messages overrides the generic text for a field/tag pair. Keys are either
// "Field.tag" or "Struct.Field.tag", the longer form winning.
var messages = map[string]string{
	"LoginInput.Username.required_without": "Required Field! Must include the username or the email",
	"LoginInput.Email.required_without":    "Required Field! Must include the username or the email",
	"LoginInput.Password.required":         "Required Field! Must include the password",
	"Username.required":                    "Required Field! Must have a username",
	"Username.min":                         "Wrong Format! Must be at least 6-character length",
	"Username.alphanum":                    "Wrong Format! Must contain only letters and numbers",
	"Email.required":                       "Required Field! Must have an email",
	"Email.email":                          "Wrong Email Format!",
	"Password.required":                    "Required Field! Must have a password",
	"Password.min":                         "Wrong Format! Must be at least 10-character length",
	"Birthdate.required":                   "Required Field! Must include your birthdate",
	"Birthdate.datetime":                   "Wrong Date Format!",
	"FirstName.required":                   "Required Field! Please include your first name",
	"LastName.required":                    "Required Field! Please include your last name",
	"School.required":                      "Required Field! Please include your school name",
	"Hobbies.required":                     "Required Field! Please at least one hobby",
	"Skills.required":                      "Required Field! Please include at least one skill",
	"Title.required":                       "Required! Must include a title",
	"Title.min":                            "Too short title!",
	"Text.required":                        "Required! Must include a text",
	"Text.min":                             "Too short text!",
	"Rate.required":                        "Rate must be between 0 and 5!",
	"Rate.min":                             "Rate must be between 0 and 5!",
	"Rate.max":                             "Rate must be between 0 and 5!",
}

// FirstValidationError renders only the first field error.
func FirstValidationError(err error) string {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) && len(validationErrors) > 0 {
		return getFieldErrorMessage(validationErrors[0])
	}
	return bindingMessage(err)
}

func bindingMessage(err error) string {
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	switch {
	case errors.As(err, &syntaxErr):
		return "Malformed JSON body"
	case errors.As(err, &typeErr):
		return fmt.Sprintf("%s has the wrong type", typeErr.Field)
	}
	return err.Error()
}

func getFieldErrorMessage(fe validator.FieldError) string {
	if msg, ok := messages[fe.StructNamespace()+"."+fe.Tag()]; ok {
		return msg
	}
	if msg, ok := messages[fe.Field()+"."+fe.Tag()]; ok {
		return msg
	}

	field := fe.Field()

	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "email":
		return fmt.Sprintf("%s must be a valid email", field)
	case "min":
		if fe.Type().String() == "string" {
			return fmt.Sprintf("%s must be at least %s characters", field, fe.Param())
		}
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "max":
		if fe.Type().String() == "string" {
			return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
		}
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}
