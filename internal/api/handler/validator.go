package handler

import (
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/gabrielsqw/badminton-club/internal/model"
)

var registerOnce sync.Once

// RegisterValidators 向 gin 的校验器注册自定义 tag：
//   - timeslot: 固定时间段标签
//   - isodate:  YYYY-MM-DD 日期
func RegisterValidators() {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		_ = v.RegisterValidation("timeslot", func(fl validator.FieldLevel) bool {
			return model.IsValidTimeSlot(fl.Field().String())
		})
		_ = v.RegisterValidation("isodate", func(fl validator.FieldLevel) bool {
			_, err := model.ParseDate(fl.Field().String())
			return err == nil
		})
	})
}
