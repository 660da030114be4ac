package service

import (
	"strings"

	"lending_crm_backend/internal/leads/domain"
	"lending_crm_backend/platform/phone"
	"lending_crm_backend/platform/validator"

	govalidator "github.com/go-playground/validator/v10"
)

// RegisterDomainTags adds the "pan", "pincode" and "indianmobile" validation
// tags backed by the domain rules. The transport DTOs reference these tags,
// so every validator handed to New must have them registered.
func RegisterDomainTags(val *validator.Validator) error {
	if err := val.RegisterValidation("pan", func(fl govalidator.FieldLevel) bool {
		value := strings.ToUpper(strings.TrimSpace(fl.Field().String()))
		return domain.ValidatePAN(value) == nil
	}); err != nil {
		return err
	}
	if err := val.RegisterValidation("pincode", func(fl govalidator.FieldLevel) bool {
		return domain.ValidatePinCode(fl.Field().String()) == nil
	}); err != nil {
		return err
	}
	return val.RegisterValidation("indianmobile", func(fl govalidator.FieldLevel) bool {
		return phone.IsValidMobile(fl.Field().String())
	})
}
