package handler

import (
	"errors"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/newsdesk-cms/newsdesk/internal/auth"
)

type (
	// ErrorResponse is the body of every failed API call.
	ErrorResponse struct {
		Error  string            `json:"error"`
		Fields []FieldValidation `json:"fields,omitempty"`
	}

	// FieldValidation describes one failed validation rule.
	FieldValidation struct {
		Field string `json:"field"`
		Tag   string `json:"tag"`
		Param string `json:"param,omitempty"`
	}
)

var validate = newValidator() //nolint:gochecknoglobals

// newValidator reports fields by their JSON name.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}

		return name
	})

	return v
}

// MsgInvalidCredentials is the body of a failed login.
const MsgInvalidCredentials = "invalid email or password"

// errorStatus maps classified errors to a status and a message that is safe to show.
// An empty msg uses the sentinel's own text.
var errorStatus = []struct { //nolint:gochecknoglobals
	err    error
	status int
	msg    string
}{
	{auth.ErrInvalidCredentials, fiber.StatusUnauthorized, MsgInvalidCredentials},
	{auth.ErrUnauthorized, fiber.StatusUnauthorized, auth.MsgUnauthorized},
	{auth.ErrForbidden, fiber.StatusForbidden, auth.MsgForbidden},
	{auth.ErrNotFound, fiber.StatusNotFound, ""},
	{auth.ErrDuplicateName, fiber.StatusConflict, ""},
	{auth.ErrEmailExists, fiber.StatusConflict, ""},
	{auth.ErrRoleInUse, fiber.StatusConflict, ""},
	{auth.ErrSystemRole, fiber.StatusConflict, ""},
	{auth.ErrInvalidReference, fiber.StatusBadRequest, ""},
	{auth.ErrInvalidRoleName, fiber.StatusBadRequest, ""},
	{auth.ErrInvalidOldPassword, fiber.StatusBadRequest, ""},
	{auth.ErrUnknownPermission, fiber.StatusBadRequest, ""},
}

// SendError writes err as a JSON error response.
// Classified errors get a generic message, everything else becomes a logged 500.
func SendError(c *fiber.Ctx, err error) error {
	for _, e := range errorStatus {
		if !errors.Is(err, e.err) {
			continue
		}

		msg := e.msg
		if msg == "" {
			msg = e.err.Error()
		}

		return c.Status(e.status).JSON(ErrorResponse{Error: msg})
	}

	log.Error().Err(err).Str("path", c.Path()).Str("method", c.Method()).Msg("request failed")

	return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: auth.MsgInternal})
}

// ParseBody decodes the JSON body into dst and validates it.
// On failure the 400 response is already written and ok is false.
func ParseBody(c *fiber.Ctx, dst any) (ok bool, err error) {
	if err := c.BodyParser(dst); err != nil {
		return false, c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: MsgInvalidBody})
	}

	if fields := Validate(dst); len(fields) > 0 {
		return false, c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: MsgValidationFailed, Fields: fields})
	}

	return true, nil
}

// Validate runs the validate struct tags of data.
func Validate(data any) []FieldValidation {
	var fields []FieldValidation

	err := validate.Struct(data)
	if err == nil {
		return nil
	}

	var errs validator.ValidationErrors
	if !errors.As(err, &errs) {
		return []FieldValidation{{Field: "body", Tag: "invalid"}}
	}

	for _, fe := range errs {
		fields = append(fields, FieldValidation{
			Field: fe.Field(),
			Tag:   fe.Tag(),
			Param: fe.Param(),
		})
	}

	return fields
}

// ParseID reads the positive integer path parameter name.
// On failure the 400 response is already written and ok is false.
func ParseID(c *fiber.Ctx, name string) (id uint64, ok bool, err error) {
	id, parseErr := strconv.ParseUint(c.Params(name), 10, 64)
	if parseErr != nil || id == 0 {
		return 0, false, c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: MsgInvalidID})
	}

	return id, true, nil
}
