package utils

import (
	"fmt"
	"mime/multipart"
	"strings"

	"github.com/go-playground/validator/v10"
)

// AllowedImageContentTypes is the set of allowed content types for image uploads.
var AllowedImageContentTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
	"image/gif":  true,
}

// MaxUploadSize is the maximum allowed file size for uploads (5MB).
const MaxUploadSize = 5 << 20

const invalidBodyMessage = "Cuerpo de la solicitud inválido"

// ValidateFileUpload checks that the uploaded file is an allowed image type and at most 5MB.
func ValidateFileUpload(fh *multipart.FileHeader) error {
	if fh.Size > MaxUploadSize {
		return fmt.Errorf("el archivo (%d bytes) supera el tamaño máximo de 5MB", fh.Size)
	}

	contentType := fh.Header.Get("Content-Type")
	if !AllowedImageContentTypes[contentType] {
		return fmt.Errorf("tipo de archivo no permitido '%s'; se aceptan image/jpeg, image/png, image/webp, image/gif", contentType)
	}

	return nil
}

// SanitizeValidationError turns binding errors into a Spanish message that does not leak
// Go struct names.
func SanitizeValidationError(err error) string {
	if err == nil {
		return ""
	}

	validationErrors, ok := err.(validator.ValidationErrors)
	if !ok {
		return invalidBodyMessage
	}

	var messages []string
	for _, fe := range validationErrors {
		field := strings.ToLower(fe.Field())
		switch fe.Tag() {
		case "required":
			messages = append(messages, fmt.Sprintf("%s es obligatorio", field))
		case "email":
			messages = append(messages, fmt.Sprintf("%s debe ser un correo electrónico válido", field))
		case "min":
			if isNumericKind(fe) {
				messages = append(messages, fmt.Sprintf("%s debe ser como mínimo %s", field, fe.Param()))
			} else {
				messages = append(messages, fmt.Sprintf("%s debe tener al menos %s caracteres", field, fe.Param()))
			}
		case "max":
			if isNumericKind(fe) {
				messages = append(messages, fmt.Sprintf("%s debe ser como máximo %s", field, fe.Param()))
			} else {
				messages = append(messages, fmt.Sprintf("%s debe tener como máximo %s caracteres", field, fe.Param()))
			}
		case "oneof":
			messages = append(messages, fmt.Sprintf("%s debe ser uno de: %s", field, fe.Param()))
		default:
			messages = append(messages, fmt.Sprintf("%s no es válido", field))
		}
	}

	if len(messages) == 0 {
		return invalidBodyMessage
	}

	return strings.Join(messages, "; ")
}

func isNumericKind(fe validator.FieldError) bool {
	switch fe.Kind().String() {
	case "int", "int8", "int16", "int32", "int64",
		"uint", "uint8", "uint16", "uint32", "uint64",
		"float32", "float64":
		return true
	}
	return false
}
