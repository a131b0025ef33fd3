package templating_test

import (
	"errors"
	"fmt"
	"strings"

	"github.com/byte4ever/latemplate/templating"
)

func ExampleGenerateTemplate() {
	vars := templating.StringMap(map[string]string{
		"world_name": "world",
		"name":       "pegasust",
	})

	out, err := templating.GenerateTemplate(
		strings.NewReader(
			`hello ${world_name}, this is ${name}. Cost: \$12.`,
		),
		vars,
	)
	if err != nil {
		fmt.Println(err)

		return
	}

	fmt.Println(out)
	// Output:
	// hello world, this is pegasust. Cost: $12.
}

func ExampleGenerate_partial() {
	tpl, err := templating.ParseString("${a}-${b}")
	if err != nil {
		fmt.Println(err)

		return
	}

	vars, err := templating.Document(map[string]any{
		"a": "ok",
		"b": true,
	})
	if err != nil {
		fmt.Println(err)

		return
	}

	out, err := templating.Generate(tpl, vars)

	var pe *templating.PartialError
	fmt.Println(errors.As(err, &pe))
	fmt.Printf("%q\n", out)
	// Output:
	// true
	// "ok-"
}
