package service

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

const cookingTimeMessage = "cooking time cannot be less than 1 minute"

// MaxIngredientAmount is the largest amount one composition line may carry.
const MaxIngredientAmount = 32767

var usernamePattern = regexp.MustCompile(`^[\w.@-]+$`)

// IngredientAmount is one requested composition line.
type IngredientAmount struct {
	ID     uint `json:"id"`
	Amount int  `json:"amount"`
}

// RecipeInput carries raw recipe fields from a write request. A nil
// Ingredients or Tags slice means the field was not sent at all; an empty
// slice means it was sent empty. Image is a base64 data URI.
type RecipeInput struct {
	Name        string             `json:"name" validate:"required,max=256"`
	Text        string             `json:"text" validate:"required"`
	Image       string             `json:"image" validate:"required"`
	CookingTime int                `json:"cooking_time"`
	Ingredients []IngredientAmount `json:"ingredients"`
	Tags        []uint             `json:"tags"`
}

// CompositionValidator checks a recipe write before anything is persisted.
// It only reads the catalog.
type CompositionValidator struct {
	catalog  *CatalogService
	validate *validator.Validate
}

// NewCompositionValidator creates a new CompositionValidator instance
func NewCompositionValidator(catalog *CatalogService) *CompositionValidator {
	return &CompositionValidator{catalog: catalog, validate: newStructValidator()}
}

// Validate runs the checks in order: scalar fields, ingredients, tags,
// cooking time. The first failing group is returned.
func (v *CompositionValidator) Validate(ctx context.Context, in *RecipeInput, requireImage bool) error {
	if err := v.validateScalars(in, requireImage); err != nil {
		return err
	}
	if err := v.validateIngredients(ctx, in.Ingredients); err != nil {
		return err
	}
	if err := v.validateTags(ctx, in.Tags); err != nil {
		return err
	}
	if in.CookingTime < 1 {
		return RangeError("cooking_time", cookingTimeMessage)
	}
	return nil
}

func (v *CompositionValidator) validateScalars(in *RecipeInput, requireImage bool) error {
	var err error
	if requireImage {
		err = v.validate.Struct(in)
	} else {
		err = v.validate.StructExcept(in, "Image")
	}
	if err == nil {
		return nil
	}
	fields := FieldErrors(err)
	if fields == nil {
		return fmt.Errorf("failed to validate recipe: %w", err)
	}
	return &Error{Kind: KindValidation, Message: "invalid recipe", Fields: fields}
}

func (v *CompositionValidator) validateIngredients(ctx context.Context, items []IngredientAmount) error {
	if len(items) == 0 {
		return ValidationError("ingredients", "at least one ingredient is required")
	}

	ids := make([]uint, len(items))
	for i, it := range items {
		ids[i] = it.ID
	}
	known, err := v.catalog.IngredientsByID(ctx, ids)
	if err != nil {
		return err
	}
	for _, it := range items {
		if _, ok := known[it.ID]; !ok {
			return ReferenceError("ingredients", fmt.Sprintf("ingredient with id %d does not exist", it.ID))
		}
	}

	for _, it := range items {
		if it.Amount < 1 {
			return RangeError("ingredients", fmt.Sprintf("amount of %s must be at least 1", known[it.ID].Name))
		}
		if it.Amount > MaxIngredientAmount {
			return RangeError("ingredients", fmt.Sprintf("amount of %s must be at most %d", known[it.ID].Name, MaxIngredientAmount))
		}
	}

	var dup []string
	for _, id := range repeated(ids) {
		dup = append(dup, known[id].Name)
	}
	if len(dup) > 0 {
		return DuplicateError("ingredients", "duplicate ingredients: "+joinSorted(dup))
	}
	return nil
}

func (v *CompositionValidator) validateTags(ctx context.Context, ids []uint) error {
	if len(ids) == 0 {
		return ValidationError("tags", "at least one tag is required")
	}

	known, err := v.catalog.TagsByID(ctx, ids)
	if err != nil {
		return err
	}

	if rep := repeated(ids); len(rep) > 0 {
		names := make([]string, len(rep))
		for i, id := range rep {
			if t, ok := known[id]; ok {
				names[i] = t.Name
			} else {
				names[i] = strconv.FormatUint(uint64(id), 10)
			}
		}
		return DuplicateError("tags", "duplicate tags: "+joinSorted(names))
	}

	for _, id := range ids {
		if _, ok := known[id]; !ok {
			return ReferenceError("tags", fmt.Sprintf("tag with id %d does not exist", id))
		}
	}
	return nil
}

// repeated returns every id that occurs more than once, in first-seen order.
func repeated(ids []uint) []uint {
	count := make(map[uint]int, len(ids))
	var out []uint
	for _, id := range ids {
		count[id]++
		if count[id] == 2 {
			out = append(out, id)
		}
	}
	return out
}

func joinSorted(names []string) string {
	sort.Strings(names)
	return strings.Join(names, ", ")
}

func newStructValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	RegisterValidators(v)
	return v
}

// RegisterValidators reports fields by JSON name and adds the "username"
// rule. The HTTP layer applies it to gin's binding engine too.
func RegisterValidators(v *validator.Validate) {
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("username", func(fl validator.FieldLevel) bool {
		return usernamePattern.MatchString(fl.Field().String())
	})
}

// FieldErrors converts validator failures into a field->message map keyed by
// JSON field name. It returns nil for errors that are not validation errors.
func FieldErrors(err error) map[string]string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}
	out := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		out[fe.Field()] = fieldMessage(fe)
	}
	return out
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required."
	case "max":
		return fmt.Sprintf("Ensure this field has no more than %s characters.", fe.Param())
	case "min":
		return fmt.Sprintf("Ensure this value is at least %s.", fe.Param())
	case "email":
		return "Enter a valid email address."
	case "username":
		return "Enter a valid username. It may contain only letters, digits and @/./-/_ characters."
	default:
		return fmt.Sprintf("Failed on the %q rule.", fe.Tag())
	}
}
