// Package overview cleans archive video descriptions so they read naturally
// in the media server's overview field.
package overview

// Sanitizer turns a raw, non-empty description into overview text.
// Implementations must be deterministic and idempotent, and must not add
// markup to the text.
type Sanitizer interface {
	Sanitize(raw string) string
}

// Rule is a single text transform applied by a Pipeline.
type Rule interface {
	Name() string
	Apply(text string) string
}

// RuleFunc adapts a plain function to the Rule interface.
type RuleFunc struct {
	RuleName string
	Fn       func(string) string
}

func (r RuleFunc) Name() string             { return r.RuleName }
func (r RuleFunc) Apply(text string) string { return r.Fn(text) }

// Pipeline applies its rules in order.
type Pipeline struct {
	rules []Rule
}

// NewPipeline creates a pipeline from the given rules. Nil rules are skipped.
func NewPipeline(rules ...Rule) *Pipeline {
	p := &Pipeline{rules: make([]Rule, 0, len(rules))}
	for _, r := range rules {
		if r != nil {
			p.rules = append(p.rules, r)
		}
	}
	return p
}

// Sanitize implements Sanitizer.
func (p *Pipeline) Sanitize(raw string) string {
	text := raw
	for _, r := range p.rules {
		text = r.Apply(text)
	}
	return text
}

// Rules returns the names of the configured rules, in order.
func (p *Pipeline) Rules() []string {
	names := make([]string, len(p.rules))
	for i, r := range p.rules {
		names[i] = r.Name()
	}
	return names
}

// Options selects which rules the default pipeline runs.
type Options struct {
	StripLinks      bool
	StripHashtags   bool
	StripSeparators bool
	// MaxLength is the maximum overview length in runes. Zero disables truncation.
	MaxLength int
}

// DefaultOptions enables every rule and truncates at 500 runes.
func DefaultOptions() Options {
	return Options{
		StripLinks:      true,
		StripHashtags:   true,
		StripSeparators: true,
		MaxLength:       500,
	}
}

// New builds the standard pipeline for opts. Unicode normalization and
// whitespace cleanup always run; truncation always runs last.
func New(opts Options) *Pipeline {
	rules := []Rule{NormalizeUnicode()}
	if opts.StripLinks {
		rules = append(rules, StripLinks())
	}
	if opts.StripHashtags {
		rules = append(rules, StripHashtags())
	}
	if opts.StripSeparators {
		rules = append(rules, StripSeparators())
	}
	rules = append(rules, CollapseWhitespace())
	if opts.MaxLength > 0 {
		rules = append(rules, Truncate(opts.MaxLength))
	}
	return NewPipeline(rules...)
}

// Default returns New(DefaultOptions()).
func Default() *Pipeline {
	return New(DefaultOptions())
}
