package config

import (
	"fmt"
	"strconv"
	"strings"

	errs "automation/pkg/errors"
)

// Kind tells the resolver how an override value is applied to a field
type Kind int

const (
	KindString Kind = iota
	KindInt
	KindBool
	KindEnum
	KindSection
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindInt:
		return "int"
	case KindBool:
		return "bool"
	case KindEnum:
		return "enum"
	case KindSection:
		return "section"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Section is a node of the configuration tree that can describe its fields
type Section interface {
	Fields() []Field
}

// Field describes one named member of a Section
type Field struct {
	Name string
	Kind Kind

	str     *string
	num     *int
	flag    *bool
	enum    enumAccessor
	section func() Section
}

type enumAccessor interface {
	set(raw string) bool
	get() string
	names() []string
}

type enumRef[T ~string] struct {
	ptr    *T
	values []T
}

func (e enumRef[T]) set(raw string) bool {
	v, ok := matchEnum(raw, e.values)
	if ok {
		*e.ptr = v
	}
	return ok
}

func (e enumRef[T]) get() string { return string(*e.ptr) }

func (e enumRef[T]) names() []string {
	out := make([]string, len(e.values))
	for i, v := range e.values {
		out[i] = string(v)
	}
	return out
}

// StringField describes a string leaf
func StringField(name string, p *string) Field {
	return Field{Name: name, Kind: KindString, str: p}
}

// IntField describes an integer leaf
func IntField(name string, p *int) Field {
	return Field{Name: name, Kind: KindInt, num: p}
}

// BoolField describes a boolean leaf
func BoolField(name string, p *bool) Field {
	return Field{Name: name, Kind: KindBool, flag: p}
}

// EnumField describes an enumeration leaf restricted to values
func EnumField[T ~string](name string, p *T, values []T) Field {
	return Field{Name: name, Kind: KindEnum, enum: enumRef[T]{ptr: p, values: values}}
}

// SectionField describes a nested section. get must instantiate the
// section when it is unset.
func SectionField(name string, get func() Section) Field {
	return Field{Name: name, Kind: KindSection, section: get}
}

// Set applies a raw override value to a leaf
func (f Field) Set(raw string) error {
	switch f.Kind {
	case KindString:
		*f.str = raw
	case KindInt:
		n, err := strconv.Atoi(raw)
		if err != nil {
			return errs.Wrap(errs.ErrorTypeTypeCoercion, err, fmt.Sprintf("value %q is not an integer", raw))
		}
		*f.num = n
	case KindBool:
		// Anything other than "true" reads as false
		*f.flag = strings.EqualFold(raw, "true")
	case KindEnum:
		if !f.enum.set(raw) {
			return errs.New(errs.ErrorTypeNoMatchingEnum,
				fmt.Sprintf("no enum constant for %q (allowed: %s)", raw, strings.Join(f.enum.names(), ", ")))
		}
	}
	return nil
}

// Value renders the current leaf value
func (f Field) Value() string {
	switch f.Kind {
	case KindString:
		return *f.str
	case KindInt:
		return strconv.Itoa(*f.num)
	case KindBool:
		return strconv.FormatBool(*f.flag)
	case KindEnum:
		return f.enum.get()
	default:
		return ""
	}
}

// Allowed returns the enum constants of an enum leaf
func (f Field) Allowed() []string {
	if f.Kind != KindEnum {
		return nil
	}
	return f.enum.names()
}

// Nested returns the nested section, instantiating it if unset
func (f Field) Nested() Section {
	if f.Kind != KindSection {
		return nil
	}
	return f.section()
}

// Fields implements Section. A nil section has no fields.
func (c *AutomationConfig) Fields() []Field {
	if c == nil {
		return nil
	}
	return []Field{
		SectionField("application", func() Section {
			if c.Application == nil {
				c.Application = &ApplicationConfig{}
			}
			return c.Application
		}),
		SectionField("execution", func() Section {
			if c.Execution == nil {
				c.Execution = &ExecutionConfig{}
			}
			return c.Execution
		}),
		SectionField("logging", func() Section {
			if c.Logging == nil {
				c.Logging = &LoggingConfig{}
			}
			return c.Logging
		}),
	}
}

// Fields implements Section
func (a *ApplicationConfig) Fields() []Field {
	if a == nil {
		return nil
	}
	return []Field{
		StringField("baseApi", &a.BaseAPI),
		EnumField("environment", &a.Environment, Environments),
		SectionField("http", func() Section {
			if a.HTTP == nil {
				a.HTTP = &HTTPConfig{}
			}
			return a.HTTP
		}),
	}
}

// Fields implements Section
func (h *HTTPConfig) Fields() []Field {
	if h == nil {
		return nil
	}
	return []Field{
		IntField("timeoutSeconds", &h.TimeoutSeconds),
		BoolField("logBodies", &h.LogBodies),
	}
}

// Fields implements Section
func (e *ExecutionConfig) Fields() []Field {
	if e == nil {
		return nil
	}
	return []Field{
		IntField("retry", &e.Retry),
		IntField("threads", &e.Threads),
		BoolField("retryHooks", &e.RetryHooks),
		IntField("retryDelayMillis", &e.RetryDelayMillis),
		EnumField("retryBackoff", &e.RetryBackoff, BackoffKinds),
	}
}

// Fields implements Section
func (l *LoggingConfig) Fields() []Field {
	if l == nil {
		return nil
	}
	return []Field{
		EnumField("level", &l.Level, LogLevels),
		EnumField("format", &l.Format, LogFormats),
		StringField("file", &l.File),
	}
}

// KeyInfo describes one overridable leaf
type KeyInfo struct {
	Key     string
	Kind    Kind
	Value   string
	Allowed []string
}

// Describe lists every leaf below section in traversal order. Unset nested
// sections are instantiated along the way.
func Describe(section Section, prefix string) []KeyInfo {
	var keys []KeyInfo
	for _, f := range section.Fields() {
		key := prefix + f.Name
		if f.Kind == KindSection {
			keys = append(keys, Describe(f.Nested(), key+".")...)
			continue
		}
		keys = append(keys, KeyInfo{
			Key:     key,
			Kind:    f.Kind,
			Value:   f.Value(),
			Allowed: f.Allowed(),
		})
	}
	return keys
}
