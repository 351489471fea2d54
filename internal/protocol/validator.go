package protocol

import (
	"github.com/go-playground/validator/v10"
	"github.com/manpreetbhatti/sketchrooms/internal/canvas"
	"github.com/samber/lo"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("brush", func(fl validator.FieldLevel) bool {
		return lo.Contains(canvas.Brushes, canvas.BrushKind(fl.Field().String()))
	})
	return v
}

// Validate checks the struct tags of an inbound payload
func Validate(v any) error {
	return validate.Struct(v)
}
