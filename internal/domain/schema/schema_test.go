package schema

import (
	"testing"

	"github.com/google/uuid"

	"github.com/bigkaa/gometastore/internal/domain/model"
)

func strPtr(s string) *string { return &s }

// testDefs — схема из двух полей: ID с регулярным выражением и Date с форматом даты.
func testDefs() []*model.MetaDatum {
	return []*model.MetaDatum{
		{
			ID:        uuid.New(),
			Name:      "ID",
			Mandatory: true,
			Ordinal:   0,
			Regexp:    strPtr("[A-Z][A-Z][0-9][0-9]"),
		},
		{
			ID:          uuid.New(),
			Name:        "Date",
			Mandatory:   true,
			Ordinal:     1,
			DatetimeFmt: strPtr("2006-01-02"),
		},
		{
			ID:      uuid.New(),
			Name:    "Comment",
			Ordinal: 2,
		},
	}
}

func TestValidateRecord(t *testing.T) {
	tests := []struct {
		name       string
		record     map[string]*string
		rendered   bool
		wantFields []string
	}{
		{
			name: "корректная запись",
			record: map[string]*string{
				"ID":   strPtr("ZZ99"),
				"Date": strPtr("2024-02-29"),
			},
		},
		{
			name: "некорректная дата — 30 февраля",
			record: map[string]*string{
				"ID":   strPtr("ZZ99"),
				"Date": strPtr("2024-02-30"),
			},
			wantFields: []string{"Date"},
		},
		{
			name: "несоответствие регулярному выражению",
			record: map[string]*string{
				"ID":   strPtr("zz99"),
				"Date": strPtr("2024-02-29"),
			},
			wantFields: []string{"ID"},
		},
		{
			name: "частичное совпадение регулярного выражения не принимается",
			record: map[string]*string{
				"ID":   strPtr("ZZ99-extra"),
				"Date": strPtr("2024-02-29"),
			},
			wantFields: []string{"ID"},
		},
		{
			name: "отсутствует обязательное поле",
			record: map[string]*string{
				"ID": strPtr("ZZ99"),
			},
			wantFields: []string{"Date"},
		},
		{
			name: "NULL в обязательном поле",
			record: map[string]*string{
				"ID":   strPtr("ZZ99"),
				"Date": nil,
			},
			wantFields: []string{"Date"},
		},
		{
			name: "NULL необязательного поля допустим",
			record: map[string]*string{
				"ID":      strPtr("ZZ99"),
				"Date":    strPtr("2024-02-29"),
				"Comment": nil,
			},
		},
		{
			name: "неожиданное поле",
			record: map[string]*string{
				"ID":      strPtr("ZZ99"),
				"Date":    strPtr("2024-02-29"),
				"Unknown": strPtr("x"),
			},
			wantFields: []string{"Unknown"},
		},
		{
			name: "неожиданное поле и отсутствующее обязательное — обе ошибки",
			record: map[string]*string{
				"ID":      strPtr("ZZ99"),
				"Unknown": strPtr("x"),
			},
			wantFields: []string{"Unknown", "Date"},
		},
		{
			name: "rendered: каноническое значение принимается",
			record: map[string]*string{
				"ID":   strPtr("ZZ99"),
				"Date": strPtr("2024-02-29T00:00:00Z"),
			},
			rendered: true,
		},
		{
			name: "rendered: значение в формате администратора отклоняется",
			record: map[string]*string{
				"ID":   strPtr("ZZ99"),
				"Date": strPtr("2024-02-29"),
			},
			rendered:   true,
			wantFields: []string{"Date"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := ValidateRecord(testDefs(), tt.record, tt.rendered)

			if len(errs) != len(tt.wantFields) {
				t.Fatalf("получено %d ошибок (%v), хотели %d (%v)",
					len(errs), errs, len(tt.wantFields), tt.wantFields)
			}
			got := map[string]bool{}
			for _, e := range errs {
				got[e.Field] = true
			}
			for _, f := range tt.wantFields {
				if !got[f] {
					t.Errorf("нет ожидаемой ошибки для поля %q, получено: %v", f, errs)
				}
			}
		})
	}
}

// Регулярное выражение и формат даты у одного поля: при несоответствии
// регулярному выражению ошибка разбора даты не добавляется.
func TestValidateRecordRegexpShortCircuit(t *testing.T) {
	defs := []*model.MetaDatum{
		{
			ID:          uuid.New(),
			Name:        "When",
			Mandatory:   true,
			Regexp:      strPtr("[0-9]{4}-[0-9]{2}-[0-9]{2}"),
			DatetimeFmt: strPtr("2006-01-02"),
		},
	}

	errs := ValidateRecord(defs, map[string]*string{"When": strPtr("not-a-date")}, false)

	if len(errs) != 1 {
		t.Fatalf("получено %d ошибок (%v), хотели ровно одну", len(errs), errs)
	}
	if errs[0].Field != "When" {
		t.Errorf("ошибка привязана к полю %q, хотели When", errs[0].Field)
	}
}

func TestValidateRecordLintMessage(t *testing.T) {
	defs := []*model.MetaDatum{
		{
			ID:          uuid.New(),
			Name:        "Code",
			Mandatory:   true,
			Regexp:      strPtr("[A-Z]+"),
			LintMessage: strPtr("Код должен состоять из заглавных латинских букв"),
		},
	}

	errs := ValidateRecord(defs, map[string]*string{"Code": strPtr("abc")}, false)

	if len(errs) != 1 {
		t.Fatalf("получено %d ошибок, хотели одну", len(errs))
	}
	if errs[0].Message != "Код должен состоять из заглавных латинских букв" {
		t.Errorf("сообщение %q, хотели настроенное сообщение поля", errs[0].Message)
	}
}

func TestRenderRecord(t *testing.T) {
	defs := testDefs()

	record := map[string]*string{
		"ID":   strPtr("ZZ99"),
		"Date": strPtr("2024-02-29"),
	}

	rendered, err := RenderRecord(defs, record)
	if err != nil {
		t.Fatalf("неожиданная ошибка: %v", err)
	}
	if got := *rendered["Date"]; got != "2024-02-29T00:00:00Z" {
		t.Errorf("Date = %q, хотели каноническую форму", got)
	}
	if got := *rendered["ID"]; got != "ZZ99" {
		t.Errorf("ID = %q, значение без формата даты должно остаться неизменным", got)
	}

	// Обратное преобразование для отображения
	dateDef := defs[1]
	back := FormatValue(dateDef, rendered["Date"])
	if *back != "2024-02-29" {
		t.Errorf("FormatValue = %q, хотели исходный формат администратора", *back)
	}
}

func TestRenderRecordInvalidDate(t *testing.T) {
	if _, err := RenderRecord(testDefs(), map[string]*string{"Date": strPtr("30.02.2024")}); err == nil {
		t.Error("ожидалась ошибка для значения в чужом формате")
	}
}

func TestOrderedAndFilters(t *testing.T) {
	svcID := uuid.New()
	defs := []*model.MetaDatum{
		{Name: "C", Ordinal: 2},
		{Name: "A", Ordinal: 0},
		{Name: "S", Ordinal: 3, ServiceID: &svcID},
		{Name: "B", Ordinal: 1},
	}

	ordered := Ordered(defs)
	wantOrder := []string{"A", "B", "C", "S"}
	for i, name := range wantOrder {
		if ordered[i].Name != name {
			t.Fatalf("позиция %d: %q, хотели %q", i, ordered[i].Name, name)
		}
	}

	plain := WithoutService(defs)
	if len(plain) != 3 {
		t.Fatalf("WithoutService вернул %d определений, хотели 3", len(plain))
	}
	for _, md := range plain {
		if md.ServiceID != nil {
			t.Errorf("поле %q принадлежит сервису и не должно попасть в выборку", md.Name)
		}
	}
}
