package config

import (
	"errors"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	errs "automation/pkg/errors"
)

// Resolver overrides configuration leaves from a Source
type Resolver struct {
	source Source
	logger *zerolog.Logger
}

// NewResolver creates a resolver reading overrides from src
func NewResolver(src Source) *Resolver {
	if src == nil {
		src = MapSource(nil)
	}
	return &Resolver{source: src}
}

// WithLogger returns a copy of the resolver logging to l
func (r *Resolver) WithLogger(l zerolog.Logger) *Resolver {
	return &Resolver{source: r.source, logger: &l}
}

func (r *Resolver) zlog() *zerolog.Logger {
	if r.logger != nil {
		return r.logger
	}
	return &log.Logger
}

// Resolve walks section depth-first and applies every override whose key is
// prefix + field name. Nested sections are always visited, and instantiated
// first when unset, so grandchild keys resolve even when the parent key has
// no override of its own. The first coercion failure aborts the walk.
func (r *Resolver) Resolve(section Section, prefix string) error {
	if section == nil {
		return nil
	}
	r.zlog().Debug().Str("prefix", prefix).Msg("Updating configuration from override source")

	for _, field := range section.Fields() {
		key := prefix + field.Name
		value, found := r.source.Lookup(key)

		if found {
			if field.Kind == KindSection {
				r.zlog().Debug().Str("key", key).Msg("Ignoring override addressed to a section")
				continue
			}
			if err := field.Set(value); err != nil {
				r.zlog().Error().Str("key", key).Err(err).Msg("Failed to override property")
				return keyed(err, key)
			}
			r.zlog().Debug().Str("key", key).Str("kind", field.Kind.String()).Msg("Property overridden")
			continue
		}

		if field.Kind == KindSection {
			if err := r.Resolve(field.Nested(), key+"."); err != nil {
				return err
			}
		}
	}

	return nil
}

func keyed(err error, key string) error {
	var typed *errs.Error
	if errors.As(err, &typed) {
		return typed.ForKey(key)
	}
	return &errs.Error{Type: errs.ErrorTypeUnknown, Key: key, Message: "failed to override property", Err: err}
}
