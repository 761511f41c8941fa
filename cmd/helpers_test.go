package cmd

import (
	"encoding/json"
	"testing"
)

func TestParseSortSpec(t *testing.T) {
	tests := []struct {
		name string
		spec string
		want []struct {
			property  string
			ascending bool
		}
	}{
		{
			name: "SingleDefaultAscending",
			spec: "name",
			want: []struct {
				property  string
				ascending bool
			}{{"name", true}},
		},
		{
			name: "ExplicitDescending",
			spec: "age:desc",
			want: []struct {
				property  string
				ascending bool
			}{{"age", false}},
		},
		{
			name: "MultipleKeys",
			spec: "name:asc,age:desc",
			want: []struct {
				property  string
				ascending bool
			}{{"name", true}, {"age", false}},
		},
		{
			name: "SpacesTolerated",
			spec: " name : asc , age ",
			want: []struct {
				property  string
				ascending bool
			}{{"name", true}, {"age", true}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			descriptors, err := parseSortSpec(tt.spec)
			if err != nil {
				t.Fatalf("parseSortSpec(%q) failed: %v", tt.spec, err)
			}
			if len(descriptors) != len(tt.want) {
				t.Fatalf("Expected %d descriptors, got %d", len(tt.want), len(descriptors))
			}
			for i, want := range tt.want {
				if descriptors[i].Property != want.property {
					t.Errorf("Expected property %q, got %q", want.property, descriptors[i].Property)
				}
				if descriptors[i].Ascending != want.ascending {
					t.Errorf("Expected ascending=%v for %q, got %v", want.ascending, want.property, descriptors[i].Ascending)
				}
			}
		})
	}
}

func TestParseSortSpecInvalid(t *testing.T) {
	if _, err := parseSortSpec("age:sideways"); err == nil {
		t.Error("Expected error for unknown sort direction")
	}
	if _, err := parseSortSpec(" , "); err == nil {
		t.Error("Expected error for spec naming no properties")
	}
}

func TestQueryArgs(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want any
	}{
		{"Number", "80", json.Number("80")},
		{"Float", "1.5", json.Number("1.5")},
		{"Bool", "true", true},
		{"Null", "null", nil},
		{"QuotedString", `"Alice"`, "Alice"},
		{"BareString", "Ali", "Ali"},
		{"Timestamp", "2024-01-01T00:00:00Z", "2024-01-01T00:00:00Z"},
		{"TrailingGarbage", "80 extra", "80 extra"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := queryArgs([]string{tt.raw})[0]
			if got != tt.want {
				t.Errorf("Expected %v (%T), got %v (%T)", tt.want, tt.want, got, got)
			}
		})
	}
}
