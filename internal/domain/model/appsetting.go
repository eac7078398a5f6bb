// appsetting.go — настройки приложения с типизированными значениями.
// Значение настройки — размеченное объединение одного из пяти типов,
// что даёт проверяемую компилятором исчерпываемость вместо
// последовательных проверок на NULL.
package model

import (
	"fmt"
	"strconv"
	"time"
)

// SettingKind — тип значения настройки.
type SettingKind string

const (
	SettingInt    SettingKind = "int"
	SettingString SettingKind = "string"
	SettingFloat  SettingKind = "float"
	SettingDate   SettingKind = "date"
	SettingTime   SettingKind = "time"
)

// SettingValue — значение настройки приложения.
// Заполнено ровно одно из полей, соответствующее Kind.
type SettingValue struct {
	// Kind — тип значения
	Kind SettingKind
	// Int — значение для SettingInt
	Int int64
	// Str — значение для SettingString
	Str string
	// Float — значение для SettingFloat
	Float float64
	// Date — значение для SettingDate (время обнуляется)
	Date time.Time
	// Time — значение для SettingTime (дата обнуляется)
	Time time.Time
}

// AppSetting — настройка приложения, хранится в таблице appsettings.
type AppSetting struct {
	// Key — уникальный ключ настройки
	Key string
	// Value — типизированное значение
	Value SettingValue
}

// Encode сериализует значение в текст для хранения в БД.
func (v SettingValue) Encode() string {
	switch v.Kind {
	case SettingInt:
		return strconv.FormatInt(v.Int, 10)
	case SettingFloat:
		return strconv.FormatFloat(v.Float, 'g', -1, 64)
	case SettingDate:
		return v.Date.Format("2006-01-02")
	case SettingTime:
		return v.Time.Format("15:04:05")
	default:
		return v.Str
	}
}

// DecodeSettingValue восстанавливает значение из пары (тип, текст),
// прочитанной из БД.
func DecodeSettingValue(kind SettingKind, raw string) (SettingValue, error) {
	switch kind {
	case SettingInt:
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return SettingValue{}, fmt.Errorf("некорректное целое значение настройки %q: %w", raw, err)
		}
		return SettingValue{Kind: SettingInt, Int: n}, nil
	case SettingString:
		return SettingValue{Kind: SettingString, Str: raw}, nil
	case SettingFloat:
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return SettingValue{}, fmt.Errorf("некорректное вещественное значение настройки %q: %w", raw, err)
		}
		return SettingValue{Kind: SettingFloat, Float: f}, nil
	case SettingDate:
		t, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return SettingValue{}, fmt.Errorf("некорректная дата настройки %q: %w", raw, err)
		}
		return SettingValue{Kind: SettingDate, Date: t}, nil
	case SettingTime:
		t, err := time.Parse("15:04:05", raw)
		if err != nil {
			return SettingValue{}, fmt.Errorf("некорректное время настройки %q: %w", raw, err)
		}
		return SettingValue{Kind: SettingTime, Time: t}, nil
	default:
		return SettingValue{}, fmt.Errorf("неизвестный тип настройки %q", kind)
	}
}
