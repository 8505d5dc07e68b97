package handler

import (
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var aliasRegexp = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// reservedAliases корневые сегменты, занятые собственными маршрутами роутера
var reservedAliases = map[string]struct{}{
	metricsPath[1:]: {},
}

var (
	registerOnce sync.Once
	registerErr  error
)

// RegisterValidators регистрирует правила alias, notreserved и JSON-имена полей в валидаторе gin
func RegisterValidators() error {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			registerErr = fmt.Errorf("unexpected validator engine %T", binding.Validator.Engine())
			return
		}

		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})

		if registerErr = v.RegisterValidation("alias", func(fl validator.FieldLevel) bool {
			return aliasRegexp.MatchString(fl.Field().String())
		}); registerErr != nil {
			return
		}

		registerErr = v.RegisterValidation("notreserved", func(fl validator.FieldLevel) bool {
			_, reserved := reservedAliases[fl.Field().String()]
			return !reserved
		})
	})
	return registerErr
}
