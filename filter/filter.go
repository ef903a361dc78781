// Package filter decides which Seerr events a sink forwards, using expr
// expressions such as:
//
//	NotificationType == "MEDIA_PENDING" and MediaType == "movie"
//	contains(Subject, "dune") or field("request.requestedBy_username") == "alice"
package filter

import (
	"strconv"
	"strings"
	"time"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/s0up4200/seerrbridge/events"
)

// Filter is a compiled expression. It is safe for concurrent use.
type Filter struct {
	expression string
	program    *vm.Program
}

// Compile compiles an expression. The result must be boolean.
func Compile(expression string) (*Filter, error) {
	expression = strings.TrimSpace(expression)
	if expression == "" {
		return nil, &CompilationError{
			Expression: expression,
			Reason:     "empty expression",
		}
	}

	program, err := expr.Compile(expression,
		expr.Env(newEnvironment(nil)),
		expr.AllowUndefinedVariables(),
		expr.AsBool(),
	)
	if err != nil {
		return nil, &CompilationError{
			Expression: expression,
			Reason:     "failed to compile expression",
			Err:        err,
		}
	}

	return &Filter{expression: expression, program: program}, nil
}

// Match reports whether e passes the filter. A nil filter matches everything.
func (f *Filter) Match(e events.Event) (bool, error) {
	if f == nil {
		return true, nil
	}

	fields, err := e.Fields()
	if err != nil {
		return false, &EvaluationError{Expression: f.expression, EventID: e.ID, Err: err}
	}

	env := newEnvironment(fields)
	env["EventType"] = e.Type
	env["WebhookID"] = e.WebhookID
	env["ReceivedAt"] = e.ReceivedAt

	result, err := expr.Run(f.program, env)
	if err != nil {
		return false, &EvaluationError{Expression: f.expression, EventID: e.ID, Err: err}
	}

	// AsBool guarantees the type
	return result.(bool), nil
}

// String returns the source expression
func (f *Filter) String() string {
	if f == nil {
		return ""
	}
	return f.expression
}

// newEnvironment builds the variables and helpers visible to expressions.
// Typed zero values are used at compile time so expr can check them.
func newEnvironment(fields map[string]any) map[string]any {
	if fields == nil {
		fields = map[string]any{}
	}

	media, _ := fields["media"].(map[string]any)

	env := map[string]any{
		"Event":            fields,
		"NotificationType": stringField(fields, "notification_type"),
		"Subject":          stringField(fields, "subject"),
		"Message":          stringField(fields, "message"),
		"MediaType":        stringField(media, "media_type"),
		"TmdbID":           scalarField(media, "tmdbId"),
		"EventType":        "",
		"WebhookID":        "",
		"ReceivedAt":       time.Time{},

		"field": func(path string) any {
			return lookup(fields, path)
		},
		"contains": func(str, substr string) bool {
			return strings.Contains(strings.ToLower(str), strings.ToLower(substr))
		},
		"startsWith": func(str, prefix string) bool {
			return strings.HasPrefix(strings.ToLower(str), strings.ToLower(prefix))
		},
		"endsWith": func(str, suffix string) bool {
			return strings.HasSuffix(strings.ToLower(str), strings.ToLower(suffix))
		},
		"lower": strings.ToLower,
		"upper": strings.ToUpper,
		"now":   time.Now,
		"daysSince": func(t time.Time) int {
			return int(time.Since(t).Hours() / 24)
		},
	}
	return env
}

// stringField returns m[key] when it is a string, otherwise ""
func stringField(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return s
}

// scalarField renders a string, number or bool value of m[key] as text.
// Seerr sends ids as strings or numbers depending on the template.
func scalarField(m map[string]any, key string) string {
	switch v := m[key].(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	}
	return ""
}

// lookup walks a dotted path through nested objects
func lookup(m map[string]any, path string) any {
	var current any = m
	for _, part := range strings.Split(path, ".") {
		obj, ok := current.(map[string]any)
		if !ok {
			return nil
		}
		current = obj[part]
	}
	return current
}
