package core

import (
	"errors"
	"reflect"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// Form inputs. Tags are evaluated by Validator; the form tag names the field
// in ValidationError.Fields.
type (
	PoolInput struct {
		FieldName      string `form:"fieldName" validate:"required,min=3,max=50"`
		ReceivedAmount string `form:"RecivedAmount" validate:"required,amount"`
		FieldType      string `form:"fieldType" validate:"required,oneof=Personal Team"`
		Expiry         string `form:"expiry" validate:"required,calendardate,futuredate"`
	}

	ExpenseInput struct {
		Description string `form:"desc" validate:"required,min=3"`
		Price       string `form:"price" validate:"required,price"`
		Category    string `form:"category" validate:"required,category"`
		Date        string `form:"date" validate:"required,datetime_any"`
		FieldID     string `form:"fieldId"`
	}

	SignUpInput struct {
		Name     string `form:"name" validate:"required,min=4"`
		Email    string `form:"email" validate:"required,email"`
		PhoneNo  string `form:"phoneNo" validate:"required,phone10"`
		Password string `form:"password" validate:"required,min=8"`
	}

	LoginInput struct {
		Email    string `form:"email" validate:"required,email"`
		Password string `form:"password" validate:"required,min=8"`
	}
)

var phonePattern = regexp.MustCompile(`^[0-9]{10}$`)

// messages maps form field and failing tag to the text shown inline.
var messages = map[string]map[string]string{
	"fieldName": {
		"required": "Expense Pool Name is required",
		"min":      "Name must be at least 3 characters",
		"max":      "Name must not exceed 50 characters",
	},
	"RecivedAmount": {
		"required": "Received Amount is required",
		"amount":   "Please enter a valid amount greater than 0",
	},
	"fieldType": {
		"required": "Field Type is required",
		"oneof":    "Please select a valid field type",
	},
	"expiry": {
		"required":     "Expiry date is required",
		"calendardate": "Please enter a valid date in YYYY-MM-DD format",
		"futuredate":   "Expiry date must be in the future",
	},
	"desc": {
		"required": "Description is required",
		"min":      "Description must be at least 3 characters",
	},
	"price": {
		"required": "Price is required",
		"price":    "Price must be positive",
	},
	"category": {
		"required": "Category is required",
		"category": "Please select a valid category",
	},
	"date": {
		"required":     "Date is required",
		"datetime_any": "Please enter a valid date",
	},
	"name": {
		"required": "Name is required",
		"min":      "Name must be at least 4 characters",
	},
	"email": {
		"required": "Email is required",
		"email":    "Invalid email format",
	},
	"phoneNo": {
		"required": "Phone Number is required",
		"phone10":  "Phone number must be 10 digits",
	},
	"password": {
		"required": "Password is required",
		"min":      "Password must be at least 8 characters",
	},
}

// Validator is the form layer. Rules that depend on the current day read
// the injected clock.
type Validator struct {
	v   *validator.Validate
	now func() time.Time
}

// NewValidator builds a Validator; a nil clock means time.Now.
func NewValidator(now func() time.Time) *Validator {
	if now == nil {
		now = time.Now
	}
	val := &Validator{v: validator.New(validator.WithRequiredStructEnabled()), now: now}

	val.v.RegisterTagNameFunc(func(f reflect.StructField) string {
		if name := f.Tag.Get("form"); name != "" && name != "-" {
			return name
		}
		return f.Name
	})

	mustRegister(val.v, "amount", func(fl validator.FieldLevel) bool {
		_, err := ParseAmount(fl.Field().String())
		return err == nil
	})
	mustRegister(val.v, "price", func(fl validator.FieldLevel) bool {
		_, err := ParsePrice(fl.Field().String())
		return err == nil
	})
	mustRegister(val.v, "category", func(fl validator.FieldLevel) bool {
		return Category(fl.Field().String()).Valid()
	})
	mustRegister(val.v, "calendardate", func(fl validator.FieldLevel) bool {
		_, err := ParseDate(fl.Field().String())
		return err == nil
	})
	mustRegister(val.v, "datetime_any", func(fl validator.FieldLevel) bool {
		_, err := ParseDateTime(fl.Field().String())
		return err == nil
	})
	mustRegister(val.v, "futuredate", func(fl validator.FieldLevel) bool {
		d, err := ParseDate(fl.Field().String())
		if err != nil {
			return false
		}
		return d.After(DateOf(val.now()))
	})
	mustRegister(val.v, "phone10", func(fl validator.FieldLevel) bool {
		return phonePattern.MatchString(fl.Field().String())
	})

	return val
}

func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic("register validation " + tag + ": " + err.Error())
	}
}

// Trimmed returns the input with surrounding spaces removed from its text
// fields. Length rules apply to the trimmed values.
func (in PoolInput) Trimmed() PoolInput {
	in.FieldName = strings.TrimSpace(in.FieldName)
	in.ReceivedAmount = strings.TrimSpace(in.ReceivedAmount)
	in.FieldType = strings.TrimSpace(in.FieldType)
	in.Expiry = strings.TrimSpace(in.Expiry)
	return in
}

func (in ExpenseInput) Trimmed() ExpenseInput {
	in.Description = strings.TrimSpace(in.Description)
	in.Price = strings.TrimSpace(in.Price)
	in.Category = strings.TrimSpace(in.Category)
	in.Date = strings.TrimSpace(in.Date)
	in.FieldID = strings.TrimSpace(in.FieldID)
	return in
}

// Trimmed leaves the password untouched.
func (in SignUpInput) Trimmed() SignUpInput {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(in.Email)
	in.PhoneNo = strings.TrimSpace(in.PhoneNo)
	return in
}

func (in LoginInput) Trimmed() LoginInput {
	in.Email = strings.TrimSpace(in.Email)
	return in
}

// Struct validates a form input and returns a *ValidationError listing every
// failing field, or nil. The form inputs of this package are validated in
// their trimmed form.
func (val *Validator) Struct(in any) error {
	switch x := in.(type) {
	case PoolInput:
		in = x.Trimmed()
	case ExpenseInput:
		in = x.Trimmed()
	case SignUpInput:
		in = x.Trimmed()
	case LoginInput:
		in = x.Trimmed()
	}
	err := val.v.Struct(in)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	out := &ValidationError{Fields: make(map[string]string, len(verrs))}
	for _, fe := range verrs {
		field := fe.Field()
		if _, seen := out.Fields[field]; seen {
			continue
		}
		out.Fields[field] = message(field, fe.Tag())
	}
	return out
}

func message(field, tag string) string {
	if m, ok := messages[field][tag]; ok {
		return m
	}
	return strings.TrimSpace(field + " is invalid")
}

// Pool validates the input and converts it to a pool ready to be created.
func (val *Validator) Pool(in PoolInput) (ExpensePool, error) {
	in = in.Trimmed()
	if err := val.Struct(in); err != nil {
		return ExpensePool{}, err
	}
	amount, _ := ParseAmount(in.ReceivedAmount)
	expiry, _ := ParseDate(in.Expiry)
	return ExpensePool{
		Name:           in.FieldName,
		ReceivedAmount: amount,
		Type:           FieldType(in.FieldType),
		Expiry:         expiry,
	}, nil
}

// Expense validates the input and converts it to an expense record.
func (val *Validator) Expense(in ExpenseInput) (FixedExpense, error) {
	in = in.Trimmed()
	if err := val.Struct(in); err != nil {
		return FixedExpense{}, err
	}
	price, _ := ParsePrice(in.Price)
	date, _ := ParseDateTime(in.Date)
	return FixedExpense{
		Description: in.Description,
		Category:    Category(in.Category),
		Date:        date.UTC(),
		Price:       price,
		FieldID:     in.FieldID,
	}, nil
}
