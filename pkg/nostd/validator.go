package nostd

import (
	"errors"
	"fmt"

	"github.com/go-playground/locales/zh"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	zhtranslations "github.com/go-playground/validator/v10/translations/zh"
)

// CustomValidator echo请求参数校验器，错误信息翻译为中文
type CustomValidator struct {
	Validator *validator.Validate
	trans     ut.Translator
}

// TransInit 初始化翻译器
func (cv *CustomValidator) TransInit() error {
	zhLocale := zh.New()
	uni := ut.New(zhLocale, zhLocale)
	trans, ok := uni.GetTranslator("zh")
	if !ok {
		return fmt.Errorf("translator not found: zh")
	}
	cv.trans = trans
	return zhtranslations.RegisterDefaultTranslations(cv.Validator, trans)
}

func (cv *CustomValidator) Validate(i interface{}) error {
	if err := cv.Validator.Struct(i); err != nil {
		var errs validator.ValidationErrors
		if errors.As(err, &errs) {
			for _, e := range errs {
				return errors.New(e.Translate(cv.trans))
			}
		}
		return err
	}
	return nil
}
