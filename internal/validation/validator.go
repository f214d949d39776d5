package validation

import (
	"reflect"
	"strings"
	"time"

	validatorv10 "github.com/go-playground/validator/v10"
)

// DateLayout is the due date format. Lexical order equals date order.
const DateLayout = "2006-01-02"

// New returns a configured validator with custom tags and struct-level
// validation registered. Field errors are reported under JSON names.
func New() *validatorv10.Validate {
	v := validatorv10.New()

	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		for _, tag := range []string{"json", "form"} {
			name := strings.SplitN(f.Tag.Get(tag), ",", 2)[0]
			if name != "" && name != "-" {
				return name
			}
		}
		return f.Name
	})

	_ = v.RegisterValidation("isodate", isISODate)
	_ = v.RegisterValidation("notblank", notBlank)

	// a listing uses a single index, so at most one filter may be set and
	// the due date range must be ordered
	v.RegisterStructValidation(taskListQueryStructValidation, TaskListQuery{})

	return v
}

// isISODate accepts YYYY-MM-DD calendar dates.
func isISODate(fl validatorv10.FieldLevel) bool {
	s := fl.Field().String()
	if len(s) != len(DateLayout) {
		return false
	}
	_, err := time.Parse(DateLayout, s)
	return err == nil
}

func notBlank(fl validatorv10.FieldLevel) bool {
	return strings.TrimSpace(fl.Field().String()) != ""
}

func taskListQueryStructValidation(sl validatorv10.StructLevel) {
	q := sl.Current().Interface().(TaskListQuery)

	filters := 0
	for _, set := range []bool{q.Status != "", q.Priority != "", q.Category != "", q.DueFrom != "" || q.DueTo != ""} {
		if set {
			filters++
		}
	}
	if filters > 1 {
		sl.ReportError(q.Status, "status", "Status", "single_filter", "")
	}
	if q.DueFrom != "" && q.DueTo != "" && q.DueFrom > q.DueTo {
		sl.ReportError(q.DueTo, "due_to", "DueTo", "gtefield", "due_from")
	}
}
