package intake

import (
	"encoding/json"
	"reflect"
	"testing"
)

func TestMergeOverwritesOnlyNonEmpty(t *testing.T) {
	old := Context{KeySpecialty: "Cardiología", KeyUrgency: "ALTA", "custom": 7}
	got := Merge(old, map[string]any{
		KeyUrgency:    "MEDIA",
		KeySpecialty:  "",
		KeyDoctorName: nil,
		KeyDate:       "2025-07-24",
	})

	want := Context{KeySpecialty: "Cardiología", KeyUrgency: "MEDIA", "custom": 7, KeyDate: "2025-07-24"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Merge = %v, want %v", got, want)
	}
	if old[KeyUrgency] != "ALTA" {
		t.Error("Merge modified its input")
	}
}

func TestMergeEmptyIsIdentity(t *testing.T) {
	c := Context{KeyDoctorID: json.Number("3"), KeyDoctorName: "Martínez", "extra": []any{"a"}}
	if got := Merge(c, map[string]any{}); !reflect.DeepEqual(got, c) {
		t.Errorf("Merge(C, {}) = %v, want %v", got, c)
	}
	if got := Merge(nil, nil); len(got) != 0 {
		t.Errorf("expected empty context, got %v", got)
	}
}

func TestContextAccessors(t *testing.T) {
	c := Context{
		"a": json.Number("4"),
		"b": float64(5),
		"c": "6",
		"d": int64(7),
		"e": "  ",
		"f": "texto",
	}
	for key, want := range map[string]int64{"a": 4, "b": 5, "c": 6, "d": 7} {
		got, ok := c.Int64(key)
		if !ok || got != want {
			t.Errorf("Int64(%s) = %d, %v; want %d", key, got, ok, want)
		}
	}
	if _, ok := c.Int64("f"); ok {
		t.Error("expected non-numeric string to fail")
	}
	if c.String("b") != "5" {
		t.Errorf("expected \"5\", got %q", c.String("b"))
	}

	missing := c.Missing("a", "e", "zz", "f")
	if !reflect.DeepEqual(missing, []string{"e", "zz"}) {
		t.Errorf("Missing = %v", missing)
	}
}
