package web

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/JonMunkholm/countsheet/internal/core"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		if name := f.Tag.Get("form"); name != "" {
			return name
		}
		return f.Name
	})
	v.RegisterValidation("layout", func(fl validator.FieldLevel) bool {
		_, ok := core.GetLayout(fl.Field().String())
		return ok
	})
	v.RegisterValidation("cursor", func(fl validator.FieldLevel) bool {
		return core.CursorMode(fl.Field().String()).Valid()
	})
	return v
}

// generateForm holds the non-file fields of a generation request.
type generateForm struct {
	Store       string `form:"store" validate:"max=120"`
	ResumeToken string `form:"resume_token" validate:"max=120"`
	Layout      string `form:"layout" validate:"omitempty,layout"`
	Cursor      string `form:"cursor" validate:"omitempty,cursor"`
	PickList    string `form:"pick_list" validate:"omitempty,oneof=true false on off 1 0"`
}

// parseGenerateForm reads and validates the form fields of r, which must
// already be parsed.
func parseGenerateForm(r *http.Request) (generateForm, error) {
	f := generateForm{
		Store:       strings.TrimSpace(r.FormValue("store")),
		ResumeToken: strings.TrimSpace(r.FormValue("resume_token")),
		Layout:      strings.TrimSpace(r.FormValue("layout")),
		Cursor:      strings.ToLower(strings.TrimSpace(r.FormValue("cursor"))),
		PickList:    strings.ToLower(strings.TrimSpace(r.FormValue("pick_list"))),
	}

	if err := validate.Struct(f); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return f, fmt.Errorf("invalid form field %s: failed %q check", fe.Field(), fe.Tag())
		}
		return f, fmt.Errorf("invalid form field: %w", err)
	}
	return f, nil
}

// pickList returns nil when the field was not sent.
func (f generateForm) pickList() *bool {
	var v bool
	switch f.PickList {
	case "":
		return nil
	case "on":
		v = true
	case "off":
		v = false
	default:
		v, _ = strconv.ParseBool(f.PickList)
	}
	return &v
}

func (f generateForm) request(fileName string, data io.Reader) core.Request {
	return core.Request{
		FileName:    fileName,
		Data:        data,
		Layout:      f.Layout,
		Store:       f.Store,
		ResumeToken: f.ResumeToken,
		CursorMode:  core.CursorMode(f.Cursor),
		PickList:    f.pickList(),
	}
}
