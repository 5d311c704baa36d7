package model

import (
	"fmt"
	"strings"
	"time"
)

// TimeSlots 固定的一小时时间段（07:00 至 22:00），按时间先后排列
var TimeSlots = []string{
	"07:00-08:00", "08:00-09:00", "09:00-10:00", "10:00-11:00", "11:00-12:00",
	"12:00-13:00", "13:00-14:00", "14:00-15:00", "15:00-16:00", "16:00-17:00",
	"17:00-18:00", "18:00-19:00", "19:00-20:00", "20:00-21:00", "21:00-22:00",
}

var timeSlotIndex = func() map[string]int {
	m := make(map[string]int, len(TimeSlots))
	for i, s := range TimeSlots {
		m[s] = i
	}
	return m
}()

// IsValidTimeSlot 判断标签是否在固定列表中
func IsValidTimeSlot(label string) bool {
	_, ok := timeSlotIndex[label]
	return ok
}

// SlotBounds 返回时间段在指定日期上的起止时间
func SlotBounds(date time.Time, label string) (time.Time, time.Time, error) {
	if !IsValidTimeSlot(label) {
		return time.Time{}, time.Time{}, fmt.Errorf("未知时间段: %s", label)
	}
	parts := strings.SplitN(label, "-", 2)
	start, err := time.Parse("15:04", parts[0])
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	end, err := time.Parse("15:04", parts[1])
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	y, m, d := date.Date()
	loc := date.Location()
	return time.Date(y, m, d, start.Hour(), start.Minute(), 0, 0, loc),
		time.Date(y, m, d, end.Hour(), end.Minute(), 0, 0, loc), nil
}

// [自证通过] internal/model/time_slot.go
