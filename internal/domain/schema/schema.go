// Пакет schema — валидация наборов метаданных против конфигурируемой
// администратором схемы (определения metadata).
// Чистая логика без обращений к БД: набор определений загружается
// вызывающим кодом и передаётся параметром.
package schema

import (
	"fmt"
	"regexp"
	"sort"
	"time"

	"github.com/bigkaa/gometastore/internal/domain/model"
)

// CanonicalTimeLayout — канонический формат хранения значений даты/времени.
// Пользовательский ввод разбирается по формату из определения поля и
// нормализуется в этот формат перед сохранением.
const CanonicalTimeLayout = time.RFC3339

// Сообщения валидации.
const (
	msgUnexpectedField  = "Field is not allowed"
	msgMandatoryMissing = "Record is missing the mandatory field"
	msgMandatoryNull    = "Field value was null, but the field is mandatory"
	msgRegexpMismatch   = "Field value has an invalid format"
	msgDatetimeInvalid  = "Field could not be parsed as a valid date / time"
)

// FieldError — одна ошибка валидации, привязанная к полю.
type FieldError struct {
	// Field — имя поля
	Field string
	// Message — человекочитаемое сообщение
	Message string
}

// Ordered возвращает определения, отсортированные по позиции Ordinal.
func Ordered(defs []*model.MetaDatum) []*model.MetaDatum {
	sorted := make([]*model.MetaDatum, len(defs))
	copy(sorted, defs)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Ordinal < sorted[j].Ordinal
	})
	return sorted
}

// ByName строит индекс определений по имени поля.
func ByName(defs []*model.MetaDatum) map[string]*model.MetaDatum {
	byName := make(map[string]*model.MetaDatum, len(defs))
	for _, md := range defs {
		byName[md.Name] = md
	}
	return byName
}

// WithoutService возвращает определения без полей, принадлежащих сервисам.
// Такие поля не участвуют в обычной валидации при staging и отправке.
func WithoutService(defs []*model.MetaDatum) []*model.MetaDatum {
	result := make([]*model.MetaDatum, 0, len(defs))
	for _, md := range defs {
		if md.ServiceID == nil {
			result = append(result, md)
		}
	}
	return result
}

// ValidateRecord проверяет запись (имя поля → значение) против набора
// определений. rendered == true означает, что значения даты/времени уже
// нормализованы в канонический формат; false — значения в формате,
// заданном администратором.
//
// Проверки по каждому определению:
//   - отсутствие обязательного поля;
//   - NULL-значение обязательного поля;
//   - несоответствие регулярному выражению (прерывает дальнейшие
//     проверки этого поля);
//   - неразбираемое значение даты/времени.
//
// Ключи записи, не соответствующие известным определениям, дают ошибку
// "поле не разрешено". Все нарушения собираются за один проход, без
// прерывания на первой ошибке.
func ValidateRecord(defs []*model.MetaDatum, record map[string]*string, rendered bool) []FieldError {
	var errs []FieldError
	byName := ByName(defs)

	// Неожиданные поля
	for name := range record {
		if _, ok := byName[name]; !ok {
			errs = append(errs, FieldError{Field: name, Message: msgUnexpectedField})
		}
	}

	for _, md := range defs {
		value, present := record[md.Name]

		if !present {
			if md.Mandatory {
				errs = append(errs, FieldError{Field: md.Name, Message: msgMandatoryMissing})
			}
			continue
		}

		if value == nil {
			if md.Mandatory {
				errs = append(errs, FieldError{Field: md.Name, Message: msgMandatoryNull})
			}
			// NULL необязательного поля проверок не требует
			continue
		}

		// Регулярное выражение; несоответствие прерывает проверку поля,
		// чтобы не дублировать её ошибкой разбора даты
		if md.Regexp != nil {
			ok, err := matchFull(*md.Regexp, *value)
			if err != nil || !ok {
				errs = append(errs, FieldError{Field: md.Name, Message: lintMessage(md)})
				continue
			}
		}

		// Формат даты/времени
		if md.DatetimeFmt != nil {
			layout := CanonicalTimeLayout
			if !rendered {
				layout = *md.DatetimeFmt
			}
			if _, err := time.Parse(layout, *value); err != nil {
				errs = append(errs, FieldError{Field: md.Name, Message: msgDatetimeInvalid})
				continue
			}
		}
	}

	return errs
}

// RenderRecord нормализует значения даты/времени из формата администратора
// в канонический формат. Вызывается после успешной валидации сырой записи,
// перед сохранением. Прочие значения возвращаются без изменений.
func RenderRecord(defs []*model.MetaDatum, record map[string]*string) (map[string]*string, error) {
	byName := ByName(defs)
	result := make(map[string]*string, len(record))

	for name, value := range record {
		md, ok := byName[name]
		if !ok || value == nil || md.DatetimeFmt == nil {
			result[name] = value
			continue
		}
		t, err := time.Parse(*md.DatetimeFmt, *value)
		if err != nil {
			return nil, fmt.Errorf("значение %q поля %q не соответствует формату %q: %w",
				*value, name, *md.DatetimeFmt, err)
		}
		rendered := t.Format(CanonicalTimeLayout)
		result[name] = &rendered
	}

	return result, nil
}

// FormatValue преобразует сохранённое каноническое значение обратно
// в формат, заданный администратором для поля. Значения, не являющиеся
// датой/временем или не разбираемые, возвращаются без изменений.
func FormatValue(md *model.MetaDatum, value *string) *string {
	if value == nil || md.DatetimeFmt == nil {
		return value
	}
	t, err := time.Parse(CanonicalTimeLayout, *value)
	if err != nil {
		return value
	}
	formatted := t.Format(*md.DatetimeFmt)
	return &formatted
}

// lintMessage возвращает настроенное сообщение поля или общее по умолчанию.
func lintMessage(md *model.MetaDatum) string {
	if md.LintMessage != nil && *md.LintMessage != "" {
		return *md.LintMessage
	}
	return msgRegexpMismatch
}

// matchFull проверяет полное соответствие значения регулярному выражению.
func matchFull(pattern, value string) (bool, error) {
	re, err := regexp.Compile(`\A(?:` + pattern + `)\z`)
	if err != nil {
		return false, err
	}
	return re.MatchString(value), nil
}
