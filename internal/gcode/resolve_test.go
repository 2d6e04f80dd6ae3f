package gcode

import (
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolve(t *testing.T) {
	tests := []struct {
		name     string
		template string
		values   map[string]string
		expected string
	}{
		{
			name:     "default used when value missing",
			template: "{foo:bar}",
			expected: "bar",
		},
		{
			name:     "missing value without default is empty",
			template: "{foo}",
			expected: "",
		},
		{
			name:     "empty default literal",
			template: "X{foo:}Y",
			values:   map[string]string{},
			expected: "XY",
		},
		{
			name:     "dollar lookup uses sigil",
			template: "{$frame_height}",
			values:   map[string]string{"$frame_height": "2100"},
			expected: "2100",
		},
		{
			name:     "plain name does not read dollar namespace",
			template: "{frame_height}",
			values:   map[string]string{"$frame_height": "2100"},
			expected: "",
		},
		{
			name:     "dollar name does not read plain namespace",
			template: "{$frame_height:0}",
			values:   map[string]string{"frame_height": "2100"},
			expected: "0",
		},
		{
			name:     "multiple placeholders on one line",
			template: "X{a} Y{b:2}",
			values:   map[string]string{"a": "1"},
			expected: "X1 Y2",
		},
		{
			name:     "value wins over default",
			template: "G0 Z{L1:5}",
			values:   map[string]string{"L1": "12.5"},
			expected: "G0 Z12.5",
		},
		{
			name:     "substituted value is not rescanned",
			template: "{a}",
			values:   map[string]string{"a": "{b}", "b": "nope"},
			expected: "{b}",
		},
		{
			name:     "unmatched brace left literal",
			template: "G1 X{L1 Y2",
			values:   map[string]string{"L1": "9"},
			expected: "G1 X{L1 Y2",
		},
		{
			name:     "default may contain colons",
			template: "{t:12:30}",
			expected: "12:30",
		},
		{
			name:     "multi-line template",
			template: "G0 X{$hinge1_position}\nG1 Z-{L2:3}\nM30",
			values:   map[string]string{"$hinge1_position": "250"},
			expected: "G0 X250\nG1 Z-3\nM30",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Resolve(tt.template, tt.values))
		})
	}
}

func TestMerge(t *testing.T) {
	merged := Merge(
		map[string]string{"L1": "1", "depth": "4"},
		map[string]string{"depth": "6"},
		nil,
		map[string]string{"$orientation": "left"},
	)

	assert.Equal(t, map[string]string{
		"L1":           "1",
		"depth":        "6",
		"$orientation": "left",
	}, merged)
}

func TestScan(t *testing.T) {
	got := Scan("G0 X{L1:10} Y{$lock_position}\nG1 Z{depth:2.5} F{L1:99} {L1x} {$lock_position:0}")
	require.Len(t, got, 4)

	assert.Equal(t, Placeholder{Name: "L1", Kind: LVariable, Default: "10", HasDefault: true}, got[0])
	assert.Equal(t, Placeholder{Name: "$lock_position", Kind: DollarVariable}, got[1])
	assert.Equal(t, Placeholder{Name: "depth", Kind: CustomVariable, Default: "2.5", HasDefault: true}, got[2])
	assert.Equal(t, Placeholder{Name: "L1x", Kind: CustomVariable}, got[3])

	assert.Len(t, Filter(got, LVariable), 1)
	assert.Len(t, Filter(got, CustomVariable), 2)
	assert.Nil(t, Scan("G0 X0 Y0"))
}

func TestClassify(t *testing.T) {
	tests := map[string]Kind{
		"L1":        LVariable,
		"L24":       LVariable,
		"L":         CustomVariable,
		"Length":    CustomVariable,
		"l1":        CustomVariable,
		"$L1":       DollarVariable,
		"$hinge1":   DollarVariable,
		"feed_rate": CustomVariable,
	}
	for name, kind := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, kind, Classify(name))
		})
	}
}

func TestPrefixDollar(t *testing.T) {
	assert.Equal(t,
		map[string]string{"$frame_height": "2100", "$orientation": "right"},
		PrefixDollar(map[string]string{"frame_height": "2100", "orientation": "right"}),
	)
}

func TestResolveProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.Rng.Seed(1357)
	parameters.MinSuccessfulTests = 200

	properties := gopter.NewProperties(parameters)

	properties.Property("template without braces is unchanged", prop.ForAll(
		func(template string, values map[string]string) bool {
			return Resolve(template, values) == template
		},
		gen.AnyString().Map(func(s string) string {
			return strings.NewReplacer("{", "", "}", "").Replace(s)
		}),
		gen.MapOf(gen.Identifier(), gen.AlphaString()),
	))

	properties.Property("default is used for absent names", prop.ForAll(
		func(name, def string) bool {
			return Resolve("{"+name+":"+def+"}", nil) == def
		},
		gen.Identifier(),
		gen.AlphaString(),
	))

	properties.Property("present value replaces placeholder", prop.ForAll(
		func(name, value string) bool {
			values := map[string]string{name: value}
			return Resolve("A{"+name+"}B", values) == "A"+value+"B"
		},
		gen.Identifier(),
		gen.AnyString(),
	))

	properties.Property("dollar values never leak into plain names", prop.ForAll(
		func(name, value string) bool {
			values := PrefixDollar(map[string]string{name: value})
			return Resolve("{"+name+"}", values) == ""
		},
		gen.Identifier(),
		gen.AlphaString(),
	))

	properties.TestingRun(t)
}
