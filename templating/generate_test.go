package templating_test

import (
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/byte4ever/latemplate/templating"
)

func mustParse(tb testing.TB, s string) *templating.Template {
	tb.Helper()

	tpl, err := templating.ParseString(s)
	require.NoError(tb, err)

	return tpl
}

func TestGenerateTemplate_hello_report(t *testing.T) {
	t.Parallel()

	vars := templating.StringMap(map[string]string{
		"world_name": "world",
		"name":       "pegasust",
	})

	got, err := templating.GenerateTemplate(
		strings.NewReader(
			"hello ${world_name}, this is ${name} reporting."+
				` This is escaped \$11.00.`,
		),
		vars,
	)

	require.NoError(t, err)
	assert.Equal(
		t,
		"hello world, this is pegasust reporting."+
			" This is escaped $11.00.",
		got,
	)
}

func TestGenerateTemplate_missing_definition(t *testing.T) {
	t.Parallel()

	vars := templating.StringMap(map[string]string{
		"var": "defined",
	})

	got, err := templating.GenerateTemplate(
		strings.NewReader("Many ${var} is ${status}"),
		vars,
	)

	require.Error(t, err)
	assert.Empty(t, got)
	assert.ErrorIs(t, err, templating.ErrMissingDefinition)

	var me *templating.MissingDefinitionError
	require.ErrorAs(t, err, &me)
	assert.Equal(t, []string{"status"}, me.Names)
	assert.Contains(t, err.Error(), `"status"`)
}

func TestGenerateTemplate_over_definition_ignored(t *testing.T) {
	t.Parallel()

	vars := templating.StringMap(map[string]string{
		"var":    "def",
		"status": "good",
		"over":   "defined",
	})

	got, err := templating.GenerateTemplate(
		strings.NewReader("Many ${var} is ${status}"),
		vars,
	)

	require.NoError(t, err)
	assert.Equal(t, "Many def is good", got)
}

func TestGenerateTemplate_empty_template(t *testing.T) {
	t.Parallel()

	vars := templating.StringMap(map[string]string{"a": "b"})

	tpl := mustParse(t, "")
	assert.Empty(t, tpl.Symbols())
	assert.Empty(t, tpl.Tokens())

	got, err := templating.GenerateTemplate(
		strings.NewReader(""), vars,
	)

	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestGenerateTemplate_parse_error_before_validation(t *testing.T) {
	t.Parallel()

	got, err := templating.GenerateTemplate(
		strings.NewReader("${unterminated"),
		templating.Variables{},
	)

	require.Error(t, err)
	assert.Empty(t, got)
	assert.ErrorIs(t, err, templating.ErrParse)
	assert.NotErrorIs(t, err, templating.ErrMissingDefinition)
}

func TestGenerateTemplate_promotes_partial_to_error(t *testing.T) {
	t.Parallel()

	vars, err := templating.Document(map[string]any{
		"name":  "x",
		"count": 3.0,
	})
	require.NoError(t, err)

	got, err := templating.GenerateTemplate(
		strings.NewReader("${name}:${count}"), vars,
	)

	require.Error(t, err)
	assert.Empty(t, got)
	assert.ErrorIs(t, err, templating.ErrSubstitution)
	assert.ErrorIs(t, err, templating.ErrNotString)
}

func TestValidate_reports_all_missing_names(t *testing.T) {
	t.Parallel()

	tpl := mustParse(t, "${a} ${b} ${a} ${c}")

	vars := templating.StringMap(map[string]string{"c": "1"})

	err := templating.Validate(tpl, vars)

	var me *templating.MissingDefinitionError
	require.ErrorAs(t, err, &me)
	assert.Equal(t, []string{"a", "b"}, me.Names)
	assert.Contains(t, err.Error(), "2 variable(s)")
}

func TestValidate_wrong_type_is_not_missing(t *testing.T) {
	t.Parallel()

	tpl := mustParse(t, "${n}")

	vars, err := templating.Document(map[string]any{"n": 1})
	require.NoError(t, err)

	assert.NoError(t, templating.Validate(tpl, vars))
}

func TestApply_partial_output(t *testing.T) {
	t.Parallel()

	tpl := mustParse(t, "a=${a} b=${b} c=${c}")

	vars, err := templating.Document(map[string]any{
		"a": "1",
		"b": []any{"not", "a", "string"},
		"c": "3",
	})
	require.NoError(t, err)

	got, err := templating.Apply(tpl, vars)

	assert.Equal(t, "a=1 b= c=3", got)
	require.Error(t, err)

	var pe *templating.PartialError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, got, pe.Text)
	require.Len(t, pe.Errs, 1)

	var se *templating.SubstitutionError
	require.ErrorAs(t, pe.Errs[0], &se)
	assert.Equal(t, "b", se.Name)
	assert.Equal(t, 1, se.Index)
	assert.Equal(t, 3, se.Position)
	assert.ErrorIs(t, err, templating.ErrNotString)
	assert.Contains(t, err.Error(), "1 substitution(s) failed")
}

func TestApply_index_out_of_range(t *testing.T) {
	t.Parallel()

	tpl := templating.NewTemplate(
		[]templating.Token{
			templating.LiteralToken("x"),
			templating.RefToken(5),
			templating.LiteralToken("y"),
			templating.RefToken(0),
		},
		templating.Symbols{"v"},
	)

	vars := templating.StringMap(map[string]string{"v": "!"})

	require.NoError(t, templating.Validate(tpl, vars))

	got, err := templating.Generate(tpl, vars)

	assert.Equal(t, "xy!", got)
	assert.ErrorIs(t, err, templating.ErrIndexOutOfRange)
	assert.ErrorIs(t, err, templating.ErrSubstitution)
	assert.Contains(t, err.Error(), "symbol 5")
}

func TestGenerate_escape_only(t *testing.T) {
	t.Parallel()

	tpl := mustParse(t, `\$`)
	assert.Empty(t, tpl.Symbols())

	got, err := templating.Generate(tpl, templating.Variables{})

	require.NoError(t, err)
	assert.Equal(t, "$", got)
}

func TestGenerate_round_trip_without_placeholders(t *testing.T) {
	t.Parallel()

	inputs := []string{
		"",
		"plain",
		"multi\nline\ttext with {braces} and }",
		"unicode ✓ ünïcödé",
	}

	for _, in := range inputs {
		got, err := templating.Generate(
			mustParse(t, in), templating.Variables{},
		)

		require.NoError(t, err)
		assert.Equal(t, in, got)
	}
}

func TestGenerate_extra_keys_do_not_change_output(t *testing.T) {
	t.Parallel()

	tpl := mustParse(t, "${a}/${b}/${a}")

	base := map[string]string{"a": "1", "b": "2"}
	extra := map[string]string{"a": "1", "b": "2", "z": "9", "y": ""}

	want, err := templating.Generate(tpl, templating.StringMap(base))
	require.NoError(t, err)

	got, err := templating.Generate(tpl, templating.StringMap(extra))
	require.NoError(t, err)

	assert.Equal(t, "1/2/1", want)
	assert.Equal(t, want, got)
}

func TestGenerate_missing_returns_empty_text(t *testing.T) {
	t.Parallel()

	got, err := templating.Generate(
		mustParse(t, "lead ${x}"), templating.Variables{},
	)

	assert.Empty(t, got)
	assert.ErrorIs(t, err, templating.ErrMissingDefinition)
}

func TestGenerate_concurrent_use(t *testing.T) {
	t.Parallel()

	tpl := mustParse(t, "${who} says ${what}")

	var wg sync.WaitGroup

	results := make([]string, 16)

	for i := range results {
		wg.Add(1)

		go func(idx int) {
			defer wg.Done()

			vars := templating.StringMap(map[string]string{
				"who":  "n" + string(rune('a'+idx)),
				"what": "hi",
			})

			out, err := templating.Generate(tpl, vars)
			if err == nil {
				results[idx] = out
			}
		}(i)
	}

	wg.Wait()

	for i, got := range results {
		assert.Equal(
			t, "n"+string(rune('a'+i))+" says hi", got,
		)
	}
}

func TestParser_GenerateTemplate(t *testing.T) {
	t.Parallel()

	pa := templating.Parser{Symbol: '@'}

	got, err := pa.GenerateTemplate(
		strings.NewReader(`${x} @{x} \@`),
		templating.StringMap(map[string]string{"x": "y"}),
	)

	require.NoError(t, err)
	assert.Equal(t, "${x} y @", got)
}
