package posts

import (
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Validate enforces the invariants every rendered post must satisfy.
func (p *Post) Validate() error {
	return validation.ValidateStruct(p,
		validation.Field(&p.Title, validation.Required),
		validation.Field(&p.Date, validation.Required),
		validation.Field(&p.Path, validation.Required, validation.By(func(value any) error {
			route, _ := value.(string)
			if !strings.HasPrefix(route, "/") {
				return validation.NewError("validation_route_prefix", "must start with a slash")
			}
			if strings.ContainsAny(route, " ?#") {
				return validation.NewError("validation_route_chars", "must not contain spaces, query or fragment")
			}
			return nil
		})),
	)
}
