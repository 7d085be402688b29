package validation

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"stocksync/internal/logger"
	"stocksync/internal/models"
)

// pushRules are the fields Clover requires before it accepts an item.
type pushRules struct {
	SKU   string  `validate:"required,max=127"`
	Name  string  `validate:"required,max=127"`
	Price float64 `validate:"gte=0,lte=99999999.99"`
	Cost  float64 `validate:"gte=0,lte=99999999.99"`
}

type Validator struct {
	validate *validator.Validate
	logger   *logger.Logger
}

func New(logger *logger.Logger) *Validator {
	return &Validator{
		validate: validator.New(),
		logger:   logger,
	}
}

// ValidateProduct checks that a product can be pushed to Clover.
func (v *Validator) ValidateProduct(product *models.Product) error {
	err := v.validate.Struct(pushRules{
		SKU:   strings.TrimSpace(product.SKU),
		Name:  strings.TrimSpace(product.Name),
		Price: product.Price,
		Cost:  product.Cost,
	})
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}

	problems := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		problems = append(problems, describe(fe))
	}
	v.logger.Debug("Product failed push validation",
		zap.String("product_id", product.ID),
		zap.Strings("problems", problems),
	)
	return fmt.Errorf("invalid product %s: %s", product.SKU, strings.Join(problems, "; "))
}

func describe(fe validator.FieldError) string {
	field := strings.ToLower(fe.Field())
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
	case "gte":
		return field + " must not be negative"
	case "lte":
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	default:
		return fmt.Sprintf("%s failed %s", field, fe.Tag())
	}
}
